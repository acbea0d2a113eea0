package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spritekit/prism/engine/core"
	"github.com/spritekit/prism/engine/renderer/metadata"
)

// Renderer drives one backend instance: resource calls are forwarded with
// logging, and DrawFrame turns an ordered batch list into uploads, draw
// calls and a present. One Renderer per surface; never shared across
// threads, matching the graphics APIs underneath.
type Renderer struct {
	backend RendererBackend
	metrics *core.FrameMetrics
}

// New picks a backend by name, or the best available one when name is empty.
func New(name string) (*Renderer, error) {
	var backend RendererBackend
	var err error
	if name == "" {
		backend, err = Default()
	} else {
		backend, err = Get(name)
	}
	if err != nil {
		return nil, err
	}
	core.LogInfo("renderer: using %q backend", backend.Name())
	return &Renderer{
		backend: backend,
		metrics: core.NewFrameMetrics(),
	}, nil
}

// NewWithBackend wraps an already constructed backend. Used by tests and by
// callers that build backends directly.
func NewWithBackend(backend RendererBackend) *Renderer {
	return &Renderer{
		backend: backend,
		metrics: core.NewFrameMetrics(),
	}
}

func (r *Renderer) Backend() RendererBackend {
	return r.backend
}

func (r *Renderer) Metrics() *core.FrameMetrics {
	return r.metrics
}

func (r *Renderer) Initialize(surface Surface, cfg BackendConfig) error {
	if err := r.backend.Initialize(surface, cfg); err != nil {
		core.LogError("renderer: %q initialization failed: %s", r.backend.Name(), err.Error())
		return err
	}
	limits := r.backend.Limits()
	core.LogInfo("renderer: %q ready, %d texture units, %d instances per buffer",
		r.backend.Name(), limits.MaxBoundTextureUnits, limits.MaxInstancesPerBuffer)
	return nil
}

func (r *Renderer) Shutdown() error {
	return r.backend.Shutdown()
}

func (r *Renderer) OnResize(width, height uint32) error {
	return r.backend.Resized(width, height)
}

func (r *Renderer) Limits() BackendLimits {
	return r.backend.Limits()
}

func (r *Renderer) TextureCreate(pixels []uint8, texture *metadata.Texture) error {
	return r.backend.TextureCreate(pixels, texture)
}

func (r *Renderer) TextureDestroy(texture *metadata.Texture) error {
	return r.backend.TextureDestroy(texture)
}

func (r *Renderer) TextureWriteData(texture *metadata.Texture, region metadata.Region, pixels []uint8) error {
	return r.backend.TextureWriteData(texture, region, pixels)
}

func (r *Renderer) TextureResize(texture *metadata.Texture, width, height uint32, pixels []uint8) error {
	return r.backend.TextureResize(texture, width, height, pixels)
}

func (r *Renderer) SpriteGroupCreate(group *metadata.SpriteGroup) error {
	return r.backend.SpriteGroupCreate(group)
}

func (r *Renderer) SpriteGroupDestroy(group *metadata.SpriteGroup) error {
	return r.backend.SpriteGroupDestroy(group)
}

// DrawFrame executes one frame: clear, then upload and draw every batch in
// the order the batcher emitted them, then present. Batches from a frame
// are never reordered; that is the paint order contract.
func (r *Renderer) DrawFrame(batches []*metadata.Batch, clearColor mgl32.Vec4, elapsed float64) error {
	r.metrics.BeginFrame()

	if err := r.backend.BeginFrame(clearColor); err != nil {
		return fmt.Errorf("renderer: begin frame: %w", err)
	}
	for i, batch := range batches {
		if err := r.backend.UploadBatch(batch); err != nil {
			return fmt.Errorf("renderer: upload batch %d: %w", i, err)
		}
		if err := r.backend.DrawBatch(batch); err != nil {
			return fmt.Errorf("renderer: draw batch %d: %w", i, err)
		}
		r.metrics.Batches++
		r.metrics.Instances += batch.InstanceCount()
		r.metrics.DrawCalls++
	}
	if err := r.backend.EndFrame(); err != nil {
		return fmt.Errorf("renderer: end frame: %w", err)
	}

	r.metrics.EndFrame(elapsed)
	return nil
}
