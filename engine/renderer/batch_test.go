package renderer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spritekit/prism/engine/core"
	"github.com/spritekit/prism/engine/renderer/metadata"
)

// testWorld is a minimal in-memory handle table pair for driving the batcher.
type testWorld struct {
	textures map[metadata.TextureHandle]*metadata.Texture
	groups   map[metadata.SpriteGroupHandle]*metadata.SpriteGroup
}

func newTestWorld() *testWorld {
	return &testWorld{
		textures: make(map[metadata.TextureHandle]*metadata.Texture),
		groups:   make(map[metadata.SpriteGroupHandle]*metadata.SpriteGroup),
	}
}

func (w *testWorld) addTexture(slot uint32) metadata.TextureHandle {
	h := metadata.TextureHandle{Slot: slot, Generation: 0}
	w.textures[h] = &metadata.Texture{Slot: slot, Name: fmt.Sprintf("tex-%d", slot), Width: 4, Height: 4}
	return h
}

func (w *testWorld) addGroup(slot, capacity uint32) metadata.SpriteGroupHandle {
	h := metadata.SpriteGroupHandle{Slot: slot, Generation: 0}
	w.groups[h] = &metadata.SpriteGroup{Slot: slot, Capacity: capacity}
	return h
}

func (w *testWorld) resolveTexture(h metadata.TextureHandle) (*metadata.Texture, error) {
	t, ok := w.textures[h]
	if !ok {
		return nil, fmt.Errorf("texture %d@%d: %w", h.Slot, h.Generation, core.ErrUnknownHandle)
	}
	return t, nil
}

func (w *testWorld) resolveGroup(h metadata.SpriteGroupHandle) (*metadata.SpriteGroup, error) {
	g, ok := w.groups[h]
	if !ok {
		return nil, fmt.Errorf("group %d@%d: %w", h.Slot, h.Generation, core.ErrUnknownHandle)
	}
	return g, nil
}

func newTestBatcher(w *testWorld, limits BackendLimits) *Batcher {
	return NewBatcher(limits, w.resolveTexture, w.resolveGroup)
}

func sprite(tex metadata.TextureHandle) metadata.SpriteInstance {
	return metadata.SpriteInstance{
		Size:    mgl32.Vec2{1, 1},
		Texture: tex,
		UVRect:  metadata.WholeTexture,
		Color:   metadata.White,
	}
}

func totalInstances(batches []*metadata.Batch) int {
	n := 0
	for _, b := range batches {
		n += b.InstanceCount()
	}
	return n
}

func TestEmptyFrameYieldsNoBatches(t *testing.T) {
	w := newTestWorld()
	b := newTestBatcher(w, BackendLimits{MaxBoundTextureUnits: 16, MaxInstancesPerBuffer: 8192})

	b.BeginFrame(mgl32.Ident4())
	if got := b.EndFrame(); len(got) != 0 {
		t.Fatalf("empty frame emitted %d batches", len(got))
	}
}

func TestEndFrameTwiceIsEmpty(t *testing.T) {
	w := newTestWorld()
	tex := w.addTexture(0)
	grp := w.addGroup(0, 0)
	b := newTestBatcher(w, BackendLimits{MaxBoundTextureUnits: 16, MaxInstancesPerBuffer: 8192})

	b.BeginFrame(mgl32.Ident4())
	if err := b.Submit(grp, sprite(tex)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := b.EndFrame(); len(got) != 1 {
		t.Fatalf("first EndFrame emitted %d batches, want 1", len(got))
	}
	if got := b.EndFrame(); len(got) != 0 {
		t.Fatalf("second EndFrame emitted %d batches, want 0", len(got))
	}
}

func TestInstanceCapSplitsBatches(t *testing.T) {
	w := newTestWorld()
	tex := w.addTexture(0)
	grp := w.addGroup(0, 0)
	b := newTestBatcher(w, BackendLimits{MaxBoundTextureUnits: 16, MaxInstancesPerBuffer: 8192})

	b.BeginFrame(mgl32.Ident4())
	for i := 0; i < 20000; i++ {
		if err := b.Submit(grp, sprite(tex)); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}
	batches := b.EndFrame()
	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(batches))
	}
	want := []int{8192, 8192, 3616}
	for i, wantN := range want {
		if got := batches[i].InstanceCount(); got != wantN {
			t.Errorf("batch %d has %d instances, want %d", i, got, wantN)
		}
	}
	if totalInstances(batches) != 20000 {
		t.Errorf("total instances = %d, want 20000", totalInstances(batches))
	}
}

func TestTextureUnitOverflowSplitsBatches(t *testing.T) {
	const units = 16
	w := newTestWorld()
	grp := w.addGroup(0, 0)
	handles := make([]metadata.TextureHandle, 20)
	for i := range handles {
		handles[i] = w.addTexture(uint32(i))
	}
	b := newTestBatcher(w, BackendLimits{MaxBoundTextureUnits: units, MaxInstancesPerBuffer: 8192})

	b.BeginFrame(mgl32.Ident4())
	for _, h := range handles {
		if err := b.Submit(grp, sprite(h)); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	batches := b.EndFrame()
	if len(batches) < 2 {
		t.Fatalf("got %d batches, want at least 2", len(batches))
	}
	for i, batch := range batches {
		if batch.TextureCount() > units {
			t.Errorf("batch %d binds %d textures, limit is %d", i, batch.TextureCount(), units)
		}
	}
	if totalInstances(batches) != len(handles) {
		t.Errorf("total instances = %d, want %d", totalInstances(batches), len(handles))
	}
}

func TestRepeatedTexturesShareUnits(t *testing.T) {
	w := newTestWorld()
	grp := w.addGroup(0, 0)
	a := w.addTexture(0)
	c := w.addTexture(1)
	b := newTestBatcher(w, BackendLimits{MaxBoundTextureUnits: 2, MaxInstancesPerBuffer: 100})

	b.BeginFrame(mgl32.Ident4())
	for i := 0; i < 10; i++ {
		h := a
		if i%2 == 1 {
			h = c
		}
		if err := b.Submit(grp, sprite(h)); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	batches := b.EndFrame()
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1 (textures alternate within the unit limit)", len(batches))
	}
	if batches[0].TextureCount() != 2 {
		t.Errorf("bound %d textures, want 2", batches[0].TextureCount())
	}
	for i, unit := range batches[0].Units {
		want := int32(i % 2)
		if unit != want {
			t.Errorf("instance %d assigned unit %d, want %d", i, unit, want)
		}
	}
}

func TestGroupCapacityCapsBatch(t *testing.T) {
	w := newTestWorld()
	tex := w.addTexture(0)
	grp := w.addGroup(0, 4)
	b := newTestBatcher(w, BackendLimits{MaxBoundTextureUnits: 16, MaxInstancesPerBuffer: 8192})

	b.BeginFrame(mgl32.Ident4())
	for i := 0; i < 10; i++ {
		if err := b.Submit(grp, sprite(tex)); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	batches := b.EndFrame()
	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3 (capacity 4)", len(batches))
	}
	for i, n := range []int{4, 4, 2} {
		if batches[i].InstanceCount() != n {
			t.Errorf("batch %d has %d instances, want %d", i, batches[i].InstanceCount(), n)
		}
	}
}

func TestPaintOrderPreserved(t *testing.T) {
	w := newTestWorld()
	grp := w.addGroup(0, 0)
	a := w.addTexture(0)
	c := w.addTexture(1)
	b := newTestBatcher(w, BackendLimits{MaxBoundTextureUnits: 16, MaxInstancesPerBuffer: 8192})

	b.BeginFrame(mgl32.Ident4())
	first := sprite(a)
	first.Position = mgl32.Vec2{1, 0}
	second := sprite(c)
	second.Position = mgl32.Vec2{2, 0}
	if err := b.Submit(grp, first); err != nil {
		t.Fatal(err)
	}
	if err := b.Submit(grp, second); err != nil {
		t.Fatal(err)
	}
	batches := b.EndFrame()
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}
	got := batches[0].Instances
	if got[0].Position.X() != 1 || got[1].Position.X() != 2 {
		t.Errorf("instances reordered: %v then %v", got[0].Position, got[1].Position)
	}
}

func TestUnknownHandlesDroppedNotFatal(t *testing.T) {
	w := newTestWorld()
	tex := w.addTexture(0)
	grp := w.addGroup(0, 0)
	b := newTestBatcher(w, BackendLimits{MaxBoundTextureUnits: 16, MaxInstancesPerBuffer: 8192})

	b.BeginFrame(mgl32.Ident4())
	if err := b.Submit(grp, sprite(tex)); err != nil {
		t.Fatal(err)
	}

	staleTex := metadata.TextureHandle{Slot: 0, Generation: 99}
	err := b.Submit(grp, sprite(staleTex))
	if !errors.Is(err, core.ErrUnknownHandle) {
		t.Fatalf("stale texture err = %v, want ErrUnknownHandle", err)
	}

	unknownGroup := metadata.SpriteGroupHandle{Slot: 42, Generation: 0}
	err = b.Submit(unknownGroup, sprite(tex))
	if !errors.Is(err, core.ErrUnknownHandle) {
		t.Fatalf("unknown group err = %v, want ErrUnknownHandle", err)
	}

	if err := b.Submit(grp, sprite(tex)); err != nil {
		t.Fatalf("frame corrupted by dropped submissions: %v", err)
	}

	if b.Submitted() != 2 {
		t.Errorf("Submitted = %d, want 2", b.Submitted())
	}
	if b.Dropped() != 2 {
		t.Errorf("Dropped = %d, want 2", b.Dropped())
	}
	batches := b.EndFrame()
	if totalInstances(batches) != 2 {
		t.Errorf("total instances = %d, want 2", totalInstances(batches))
	}
}

func TestSubmitOutsideFrameFails(t *testing.T) {
	w := newTestWorld()
	tex := w.addTexture(0)
	grp := w.addGroup(0, 0)
	b := newTestBatcher(w, BackendLimits{MaxBoundTextureUnits: 16, MaxInstancesPerBuffer: 8192})

	if err := b.Submit(grp, sprite(tex)); !errors.Is(err, core.ErrBackendNotReady) {
		t.Fatalf("err = %v, want ErrBackendNotReady", err)
	}
}

func TestGroupsEmitInFirstSubmissionOrder(t *testing.T) {
	w := newTestWorld()
	tex := w.addTexture(0)
	g1 := w.addGroup(1, 0)
	g2 := w.addGroup(2, 0)
	b := newTestBatcher(w, BackendLimits{MaxBoundTextureUnits: 16, MaxInstancesPerBuffer: 8192})

	b.BeginFrame(mgl32.Ident4())
	for _, g := range []metadata.SpriteGroupHandle{g2, g1, g2} {
		if err := b.Submit(g, sprite(tex)); err != nil {
			t.Fatal(err)
		}
	}
	batches := b.EndFrame()
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	if batches[0].Group.Slot != 2 || batches[1].Group.Slot != 1 {
		t.Errorf("group order = [%d %d], want [2 1]", batches[0].Group.Slot, batches[1].Group.Slot)
	}
	if batches[0].InstanceCount() != 2 {
		t.Errorf("group 2 coalesced %d instances, want 2", batches[0].InstanceCount())
	}
}

func TestResetDiscardsFrame(t *testing.T) {
	w := newTestWorld()
	tex := w.addTexture(0)
	grp := w.addGroup(0, 0)
	b := newTestBatcher(w, BackendLimits{MaxBoundTextureUnits: 16, MaxInstancesPerBuffer: 8192})

	b.BeginFrame(mgl32.Ident4())
	if err := b.Submit(grp, sprite(tex)); err != nil {
		t.Fatal(err)
	}
	b.Reset()
	if got := b.EndFrame(); len(got) != 0 {
		t.Fatalf("EndFrame after Reset emitted %d batches", len(got))
	}
}
