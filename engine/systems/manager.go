// Package systems hosts the resource handle tables and the frame
// orchestration that sits between an application and the renderer backend.
package systems

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spritekit/prism/engine/config"
	"github.com/spritekit/prism/engine/core"
	"github.com/spritekit/prism/engine/renderer"
	"github.com/spritekit/prism/engine/renderer/components"
	"github.com/spritekit/prism/engine/renderer/metadata"
)

// SystemManager wires the renderer, the handle tables, the cameras and the
// batcher into one frame loop. Construction picks the backend; Initialize
// binds it to a surface and sizes the batcher from the backend limits.
type SystemManager struct {
	Renderer     *renderer.Renderer
	Textures     *TextureSystem
	SpriteGroups *SpriteGroupSystem
	Cameras      *CameraSystem

	cfg        *config.Config
	batcher    *renderer.Batcher
	clearColor mgl32.Vec4
	inFrame    bool
}

func NewSystemManager(cfg *config.Config) (*SystemManager, error) {
	r, err := renderer.New(cfg.Backend)
	if err != nil {
		return nil, err
	}
	return newSystemManager(cfg, r)
}

// NewSystemManagerWithRenderer skips the registry lookup. Used by tests.
func NewSystemManagerWithRenderer(cfg *config.Config, r *renderer.Renderer) (*SystemManager, error) {
	return newSystemManager(cfg, r)
}

func newSystemManager(cfg *config.Config, r *renderer.Renderer) (*SystemManager, error) {
	ts, err := NewTextureSystem(&TextureSystemConfig{MaxTextureCount: cfg.Limits.MaxTextureCount}, r)
	if err != nil {
		return nil, err
	}
	sgs, err := NewSpriteGroupSystem(&SpriteGroupSystemConfig{MaxSpriteGroupCount: cfg.Limits.MaxSpriteGroupCount}, r)
	if err != nil {
		return nil, err
	}
	cs, err := NewCameraSystem(&CameraSystemConfig{
		ViewportWidth:  cfg.Window.Width,
		ViewportHeight: cfg.Window.Height,
		WorldHeight:    float32(cfg.Window.Height),
	})
	if err != nil {
		return nil, err
	}
	return &SystemManager{
		Renderer:     r,
		Textures:     ts,
		SpriteGroups: sgs,
		Cameras:      cs,
		cfg:          cfg,
		clearColor:   mgl32.Vec4{cfg.ClearColor[0], cfg.ClearColor[1], cfg.ClearColor[2], cfg.ClearColor[3]},
	}, nil
}

// Initialize brings the backend up on the surface and builds the batcher
// from the limits the live context reports.
func (sm *SystemManager) Initialize(surface renderer.Surface) error {
	if err := sm.Renderer.Initialize(surface, renderer.BackendConfig{VSync: sm.cfg.VSync}); err != nil {
		return err
	}
	sm.batcher = renderer.NewBatcher(sm.Renderer.Limits(), sm.Textures.Resolve, sm.SpriteGroups.Resolve)
	return nil
}

// BeginFrame opens the submission window. A nil camera uses the default one.
func (sm *SystemManager) BeginFrame(camera *components.Camera) error {
	if sm.batcher == nil {
		return fmt.Errorf("system manager not initialized: %w", core.ErrBackendNotReady)
	}
	if sm.inFrame {
		return fmt.Errorf("frame already open: %w", core.ErrBackendNotReady)
	}
	if camera == nil {
		camera = sm.Cameras.Default()
	}
	sm.batcher.BeginFrame(camera.ViewProjection())
	sm.inFrame = true
	return nil
}

// Submit queues one sprite for the open frame. Stale handles are dropped
// and counted without aborting the frame; the error is informational.
func (sm *SystemManager) Submit(group metadata.SpriteGroupHandle, instance metadata.SpriteInstance) error {
	if !sm.inFrame {
		return fmt.Errorf("submit outside frame: %w", core.ErrBackendNotReady)
	}
	return sm.batcher.Submit(group, instance)
}

// EndFrame partitions the frame into batches and hands them to the backend
// in paint order.
func (sm *SystemManager) EndFrame(elapsed float64) error {
	if !sm.inFrame {
		return fmt.Errorf("end frame without begin: %w", core.ErrBackendNotReady)
	}
	sm.inFrame = false
	dropped := sm.batcher.Dropped()
	batches := sm.batcher.EndFrame()
	err := sm.Renderer.DrawFrame(batches, sm.clearColor, elapsed)
	sm.Renderer.Metrics().Dropped += dropped
	return err
}

// OnResize forwards a new framebuffer size to the cameras and the backend.
func (sm *SystemManager) OnResize(width, height uint32) error {
	if err := sm.Cameras.Resize(width, height); err != nil {
		return err
	}
	return sm.Renderer.OnResize(width, height)
}

func (sm *SystemManager) SetClearColor(color mgl32.Vec4) {
	sm.clearColor = color
}

// Shutdown destroys every live resource before tearing the backend down.
func (sm *SystemManager) Shutdown() error {
	core.LogInfo("system manager shutting down")
	if err := sm.SpriteGroups.DestroyAll(); err != nil {
		core.LogError("sprite group teardown: %s", err.Error())
	}
	if err := sm.Textures.DestroyAll(); err != nil {
		core.LogError("texture teardown: %s", err.Error())
	}
	return sm.Renderer.Shutdown()
}
