package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spritekit/prism/engine/core"
	"github.com/spritekit/prism/engine/renderer/metadata"
)

// TextureResolver turns a texture handle into its live record, failing with
// core.ErrUnknownHandle for stale or never issued handles.
type TextureResolver func(metadata.TextureHandle) (*metadata.Texture, error)

// GroupResolver does the same for sprite groups.
type GroupResolver func(metadata.SpriteGroupHandle) (*metadata.SpriteGroup, error)

// Batcher accumulates one frame of sprite submissions and partitions them
// into draw-call sized batches under the active backend's limits.
//
// Instances are grouped by sprite group in first-submission order; within a
// group a running batch is cut when it would exceed the instance cap or need
// a texture unit past the backend limit. Both cuts are soft backpressure,
// never an error. Submission order is preserved inside every batch, which is
// what makes the last submitted sprite paint on top.
type Batcher struct {
	limits         BackendLimits
	resolveTexture TextureResolver
	resolveGroup   GroupResolver

	viewProjection mgl32.Mat4
	inFrame        bool
	submitted      int
	dropped        int

	// per-group accumulation, in first-submission order
	order   []uint32
	buckets map[uint32]*groupBucket
}

type groupBucket struct {
	group   *metadata.SpriteGroup
	batches []*metadata.Batch
}

// NewBatcher builds a batcher for a backend with the given limits. The
// resolvers are how the batcher validates handles without owning the tables.
func NewBatcher(limits BackendLimits, textures TextureResolver, groups GroupResolver) *Batcher {
	return &Batcher{
		limits:         limits,
		resolveTexture: textures,
		resolveGroup:   groups,
		buckets:        make(map[uint32]*groupBucket),
	}
}

// BeginFrame starts a new accumulation with a snapshot of the camera's
// view-projection. Any previously accumulated but unemitted state is
// discarded.
func (b *Batcher) BeginFrame(viewProjection mgl32.Mat4) {
	b.viewProjection = viewProjection
	b.inFrame = true
	b.submitted = 0
	b.dropped = 0
	b.order = b.order[:0]
	b.buckets = make(map[uint32]*groupBucket)
}

// Submit adds one sprite instance to the frame. A stale or unknown handle
// fails with core.ErrUnknownHandle; the submission is dropped and counted,
// the rest of the frame is untouched.
func (b *Batcher) Submit(group metadata.SpriteGroupHandle, instance metadata.SpriteInstance) error {
	if !b.inFrame {
		return fmt.Errorf("batcher: submit outside of a frame: %w", core.ErrBackendNotReady)
	}

	g, err := b.resolveGroup(group)
	if err != nil {
		b.dropped++
		core.LogWarn("batcher: dropping submission: %s", err.Error())
		return err
	}
	tex, err := b.resolveTexture(instance.Texture)
	if err != nil {
		b.dropped++
		core.LogWarn("batcher: dropping submission: %s", err.Error())
		return err
	}

	bucket, ok := b.buckets[group.Slot]
	if !ok {
		bucket = &groupBucket{group: g}
		b.buckets[group.Slot] = bucket
		b.order = append(b.order, group.Slot)
	}

	batch := bucket.current()
	if batch == nil || !b.fits(batch, g, tex) {
		batch = &metadata.Batch{
			Group:          g,
			ViewProjection: b.viewProjection,
		}
		bucket.batches = append(bucket.batches, batch)
	}

	unit := textureUnit(batch, tex)
	if unit < 0 {
		unit = int32(len(batch.Textures))
		batch.Textures = append(batch.Textures, tex)
	}
	batch.Instances = append(batch.Instances, instance)
	batch.Units = append(batch.Units, unit)
	b.submitted++
	return nil
}

// EndFrame emits the accumulated batches in submission order and resets the
// accumulation. A frame with zero submissions yields an empty sequence, and
// so does a second EndFrame without intervening submits.
func (b *Batcher) EndFrame() []*metadata.Batch {
	if !b.inFrame {
		return nil
	}
	b.inFrame = false

	var out []*metadata.Batch
	for _, slot := range b.order {
		out = append(out, b.buckets[slot].batches...)
	}
	b.order = nil
	b.buckets = make(map[uint32]*groupBucket)
	return out
}

// Reset discards the current frame's accumulation wholesale.
func (b *Batcher) Reset() {
	b.inFrame = false
	b.submitted = 0
	b.dropped = 0
	b.order = nil
	b.buckets = make(map[uint32]*groupBucket)
}

// Submitted reports the successful submissions of the current frame.
func (b *Batcher) Submitted() int {
	return b.submitted
}

// Dropped reports the submissions rejected for stale handles this frame.
func (b *Batcher) Dropped() int {
	return b.dropped
}

func (gb *groupBucket) current() *metadata.Batch {
	if len(gb.batches) == 0 {
		return nil
	}
	return gb.batches[len(gb.batches)-1]
}

// fits reports whether one more instance sampling tex can join the batch
// without breaking the instance cap or the texture unit limit.
func (b *Batcher) fits(batch *metadata.Batch, g *metadata.SpriteGroup, tex *metadata.Texture) bool {
	cap := b.limits.MaxInstancesPerBuffer
	if g.Capacity > 0 && int(g.Capacity) < cap {
		cap = int(g.Capacity)
	}
	if len(batch.Instances) >= cap {
		return false
	}
	if textureUnit(batch, tex) < 0 && len(batch.Textures) >= b.limits.MaxBoundTextureUnits {
		return false
	}
	return true
}

func textureUnit(batch *metadata.Batch, tex *metadata.Texture) int32 {
	for i, t := range batch.Textures {
		if t == tex {
			return int32(i)
		}
	}
	return -1
}
