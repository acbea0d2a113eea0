package noop

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spritekit/prism/engine/core"
	"github.com/spritekit/prism/engine/renderer"
	"github.com/spritekit/prism/engine/renderer/metadata"
)

func initialized(t *testing.T) *Backend {
	t.Helper()
	b := New()
	if err := b.Initialize(nil, renderer.BackendConfig{}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return b
}

func TestRegistered(t *testing.T) {
	backend, err := renderer.Get(renderer.BackendNoop)
	if err != nil {
		t.Fatalf("Get(noop): %v", err)
	}
	if backend.Name() != renderer.BackendNoop {
		t.Errorf("Name = %q", backend.Name())
	}
}

func TestUnknownBackendUnsupported(t *testing.T) {
	_, err := renderer.Get("direct3d")
	if !errors.Is(err, core.ErrUnsupportedBackend) {
		t.Fatalf("err = %v, want ErrUnsupportedBackend", err)
	}
}

func TestLifecycleStates(t *testing.T) {
	b := New()
	if b.State() != renderer.StateUninitialized {
		t.Fatalf("fresh backend state = %v", b.State())
	}

	// Calls before Initialize fail.
	if err := b.BeginFrame(mgl32.Vec4{}); !errors.Is(err, core.ErrBackendNotReady) {
		t.Errorf("BeginFrame before init: %v", err)
	}
	if err := b.TextureCreate(nil, &metadata.Texture{}); !errors.Is(err, core.ErrBackendNotReady) {
		t.Errorf("TextureCreate before init: %v", err)
	}

	if err := b.Initialize(nil, renderer.BackendConfig{}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if b.State() != renderer.StateReady {
		t.Fatalf("state after init = %v", b.State())
	}

	// Double initialize is out of order.
	if err := b.Initialize(nil, renderer.BackendConfig{}); !errors.Is(err, core.ErrBackendNotReady) {
		t.Errorf("second Initialize: %v", err)
	}

	if err := b.BeginFrame(mgl32.Vec4{}); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	if b.State() != renderer.StateSubmitting {
		t.Fatalf("state in frame = %v", b.State())
	}
	// Nested BeginFrame is out of order.
	if err := b.BeginFrame(mgl32.Vec4{}); !errors.Is(err, core.ErrBackendNotReady) {
		t.Errorf("nested BeginFrame: %v", err)
	}
	if err := b.EndFrame(); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}
	if b.State() != renderer.StateReady {
		t.Fatalf("state after frame = %v", b.State())
	}
	// EndFrame without a frame is out of order.
	if err := b.EndFrame(); !errors.Is(err, core.ErrBackendNotReady) {
		t.Errorf("stray EndFrame: %v", err)
	}

	if err := b.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if b.State() != renderer.StateTornDown {
		t.Fatalf("state after shutdown = %v", b.State())
	}

	// Everything after teardown fails.
	if err := b.TextureCreate(nil, &metadata.Texture{}); !errors.Is(err, core.ErrBackendNotReady) {
		t.Errorf("TextureCreate after shutdown: %v", err)
	}
	if err := b.Shutdown(); !errors.Is(err, core.ErrBackendNotReady) {
		t.Errorf("double Shutdown: %v", err)
	}
}

func TestResourceCounts(t *testing.T) {
	b := initialized(t)
	tex := &metadata.Texture{}
	grp := &metadata.SpriteGroup{Capacity: 16}

	if err := b.TextureCreate(make([]uint8, 4*4*4), tex); err != nil {
		t.Fatalf("TextureCreate: %v", err)
	}
	if err := b.SpriteGroupCreate(grp); err != nil {
		t.Fatalf("SpriteGroupCreate: %v", err)
	}
	if b.LiveTextures != 1 || b.LiveGroups != 1 {
		t.Fatalf("live = %d/%d, want 1/1", b.LiveTextures, b.LiveGroups)
	}
	if tex.InternalData == nil || grp.InternalData == nil {
		t.Fatal("backend did not attach internal data")
	}

	if err := b.TextureDestroy(tex); err != nil {
		t.Fatalf("TextureDestroy: %v", err)
	}
	if err := b.SpriteGroupDestroy(grp); err != nil {
		t.Fatalf("SpriteGroupDestroy: %v", err)
	}
	if b.LiveTextures != 0 || b.LiveGroups != 0 {
		t.Fatalf("live = %d/%d after destroy", b.LiveTextures, b.LiveGroups)
	}

	// Destroying again is a harmless no-op on the backend side.
	if err := b.TextureDestroy(tex); err != nil {
		t.Fatalf("second TextureDestroy: %v", err)
	}
	if b.LiveTextures != 0 {
		t.Fatalf("LiveTextures went negative: %d", b.LiveTextures)
	}
}

func TestMidFrameResizeDeferred(t *testing.T) {
	b := initialized(t)
	if err := b.Resized(100, 50); err != nil {
		t.Fatalf("Resized: %v", err)
	}
	if err := b.BeginFrame(mgl32.Vec4{}); err != nil {
		t.Fatal(err)
	}
	if err := b.Resized(300, 200); err != nil {
		t.Fatalf("mid-frame Resized: %v", err)
	}
	if w, h := b.Viewport(); w != 100 || h != 50 {
		t.Errorf("viewport changed mid-frame to %dx%d", w, h)
	}
	if err := b.EndFrame(); err != nil {
		t.Fatal(err)
	}
	if w, h := b.Viewport(); w != 300 || h != 200 {
		t.Errorf("deferred resize not applied, viewport %dx%d", w, h)
	}
}

func TestResizeRejectsZero(t *testing.T) {
	b := initialized(t)
	if err := b.Resized(0, 10); !errors.Is(err, core.ErrInvalidViewport) {
		t.Fatalf("err = %v, want ErrInvalidViewport", err)
	}
}

func TestDrawFrameThroughRenderer(t *testing.T) {
	b := initialized(t)
	r := renderer.NewWithBackend(b)

	batches := []*metadata.Batch{
		{Group: &metadata.SpriteGroup{}, Instances: make([]metadata.SpriteInstance, 3), Units: []int32{0, 0, 0}},
		{Group: &metadata.SpriteGroup{}, Instances: make([]metadata.SpriteInstance, 2), Units: []int32{0, 0}},
	}
	if err := r.DrawFrame(batches, mgl32.Vec4{0, 0, 0, 1}, 0.016); err != nil {
		t.Fatalf("DrawFrame: %v", err)
	}
	if b.Uploads != 2 || b.Draws != 2 || b.Frames != 1 {
		t.Errorf("uploads/draws/frames = %d/%d/%d, want 2/2/1", b.Uploads, b.Draws, b.Frames)
	}
	stats := r.Metrics().LastFrame()
	if stats.Batches != 2 || stats.Instances != 5 || stats.DrawCalls != 2 {
		t.Errorf("stats = %+v", stats)
	}
}
