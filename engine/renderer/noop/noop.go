// Package noop provides a backend that performs no graphics calls. It keeps
// full lifecycle and resource bookkeeping, which makes it the backend of
// choice for headless runs and tests.
package noop

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spritekit/prism/engine/core"
	"github.com/spritekit/prism/engine/renderer"
	"github.com/spritekit/prism/engine/renderer/metadata"
)

func init() {
	renderer.Register(renderer.BackendNoop, func() renderer.RendererBackend {
		return New()
	})
}

// Limits reported by the noop backend. Chosen to mirror a typical desktop
// GL implementation so batching behaves the same headless as on hardware.
const (
	maxTextureUnits       = 16
	maxInstancesPerBuffer = 8192
)

type noopTexture struct{}
type noopGroup struct{}

// Backend implements renderer.RendererBackend without a GPU. Resource and
// call counters are exported for assertions.
type Backend struct {
	state   renderer.State
	surface renderer.Surface

	width  uint32
	height uint32
	// resize received mid-frame, applied at EndFrame
	pendingResize *[2]uint32

	// LiveTextures and LiveGroups track currently allocated resources.
	LiveTextures int
	LiveGroups   int
	// Uploads, Draws, Resizes and Frames count the respective calls since
	// Initialize.
	Uploads int
	Draws   int
	Resizes int
	Frames  int
}

func New() *Backend {
	return &Backend{state: renderer.StateUninitialized}
}

func (b *Backend) Name() string {
	return renderer.BackendNoop
}

func (b *Backend) State() renderer.State {
	return b.state
}

func (b *Backend) ensure(states ...renderer.State) error {
	for _, s := range states {
		if b.state == s {
			return nil
		}
	}
	return fmt.Errorf("noop backend is %s: %w", b.state, core.ErrBackendNotReady)
}

func (b *Backend) Initialize(surface renderer.Surface, _ renderer.BackendConfig) error {
	if err := b.ensure(renderer.StateUninitialized); err != nil {
		return err
	}
	b.surface = surface
	if surface != nil {
		b.width, b.height = surface.FramebufferSize()
	}
	b.state = renderer.StateReady
	return nil
}

func (b *Backend) Shutdown() error {
	if err := b.ensure(renderer.StateReady, renderer.StateSubmitting); err != nil {
		return err
	}
	b.LiveTextures = 0
	b.LiveGroups = 0
	b.state = renderer.StateTornDown
	return nil
}

func (b *Backend) Resized(width, height uint32) error {
	if err := b.ensure(renderer.StateReady, renderer.StateSubmitting); err != nil {
		return err
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("noop: resize to %dx%d: %w", width, height, core.ErrInvalidViewport)
	}
	if b.state == renderer.StateSubmitting {
		// The in-flight frame completes against the old viewport.
		b.pendingResize = &[2]uint32{width, height}
		return nil
	}
	b.width, b.height = width, height
	return nil
}

func (b *Backend) Limits() renderer.BackendLimits {
	return renderer.BackendLimits{
		MaxBoundTextureUnits:  maxTextureUnits,
		MaxInstancesPerBuffer: maxInstancesPerBuffer,
	}
}

// Viewport reports the dimensions the backend currently draws against.
func (b *Backend) Viewport() (uint32, uint32) {
	return b.width, b.height
}

func (b *Backend) TextureCreate(pixels []uint8, texture *metadata.Texture) error {
	if err := b.ensure(renderer.StateReady, renderer.StateSubmitting); err != nil {
		return err
	}
	texture.InternalData = &noopTexture{}
	b.LiveTextures++
	return nil
}

func (b *Backend) TextureDestroy(texture *metadata.Texture) error {
	if err := b.ensure(renderer.StateReady, renderer.StateSubmitting); err != nil {
		return err
	}
	if texture.InternalData != nil {
		texture.InternalData = nil
		b.LiveTextures--
	}
	return nil
}

func (b *Backend) TextureWriteData(texture *metadata.Texture, _ metadata.Region, _ []uint8) error {
	if err := b.ensure(renderer.StateReady, renderer.StateSubmitting); err != nil {
		return err
	}
	if texture.InternalData == nil {
		return fmt.Errorf("noop: write to unallocated texture: %w", core.ErrUnknownHandle)
	}
	return nil
}

func (b *Backend) TextureResize(texture *metadata.Texture, _, _ uint32, _ []uint8) error {
	if err := b.ensure(renderer.StateReady, renderer.StateSubmitting); err != nil {
		return err
	}
	if texture.InternalData == nil {
		return fmt.Errorf("noop: resize of unallocated texture: %w", core.ErrUnknownHandle)
	}
	b.Resizes++
	return nil
}

func (b *Backend) SpriteGroupCreate(group *metadata.SpriteGroup) error {
	if err := b.ensure(renderer.StateReady, renderer.StateSubmitting); err != nil {
		return err
	}
	group.InternalData = &noopGroup{}
	b.LiveGroups++
	return nil
}

func (b *Backend) SpriteGroupDestroy(group *metadata.SpriteGroup) error {
	if err := b.ensure(renderer.StateReady, renderer.StateSubmitting); err != nil {
		return err
	}
	if group.InternalData != nil {
		group.InternalData = nil
		b.LiveGroups--
	}
	return nil
}

func (b *Backend) BeginFrame(_ mgl32.Vec4) error {
	if err := b.ensure(renderer.StateReady); err != nil {
		return err
	}
	b.state = renderer.StateSubmitting
	return nil
}

func (b *Backend) UploadBatch(batch *metadata.Batch) error {
	if err := b.ensure(renderer.StateSubmitting); err != nil {
		return err
	}
	b.Uploads++
	return nil
}

func (b *Backend) DrawBatch(batch *metadata.Batch) error {
	if err := b.ensure(renderer.StateSubmitting); err != nil {
		return err
	}
	b.Draws++
	return nil
}

func (b *Backend) EndFrame() error {
	if err := b.ensure(renderer.StateSubmitting); err != nil {
		return err
	}
	b.Frames++
	b.state = renderer.StateReady
	if b.pendingResize != nil {
		b.width, b.height = b.pendingResize[0], b.pendingResize[1]
		b.pendingResize = nil
	}
	return nil
}
