package systems

import (
	"fmt"

	"github.com/spritekit/prism/engine/core"
	"github.com/spritekit/prism/engine/renderer/components"
)

type CameraSystemConfig struct {
	ViewportWidth  uint32
	ViewportHeight uint32
	// WorldHeight is the vertical extent of the world visible at zoom 1.
	WorldHeight float32
}

// CameraSystem owns named cameras and keeps their viewports in sync with
// the window. A default camera always exists.
type CameraSystem struct {
	Config        *CameraSystemConfig
	cameras       map[string]*components.Camera
	defaultCamera *components.Camera
}

func NewCameraSystem(config *CameraSystemConfig) (*CameraSystem, error) {
	if config.ViewportWidth == 0 || config.ViewportHeight == 0 {
		return nil, fmt.Errorf("camera viewport %dx%d: %w", config.ViewportWidth, config.ViewportHeight, core.ErrInvalidViewport)
	}
	if config.WorldHeight <= 0 {
		config.WorldHeight = float32(config.ViewportHeight)
	}
	cs := &CameraSystem{
		Config:  config,
		cameras: make(map[string]*components.Camera),
	}
	cs.defaultCamera = components.NewCamera(config.ViewportWidth, config.ViewportHeight, config.WorldHeight)
	cs.cameras[components.DEFAULT_CAMERA_NAME] = cs.defaultCamera
	return cs, nil
}

// Acquire returns the camera registered under name, creating it on first
// use with the system's viewport and world height.
func (cs *CameraSystem) Acquire(name string) *components.Camera {
	if name == "" || name == components.DEFAULT_CAMERA_NAME {
		return cs.defaultCamera
	}
	if c, ok := cs.cameras[name]; ok {
		return c
	}
	c := components.NewCamera(cs.Config.ViewportWidth, cs.Config.ViewportHeight, cs.Config.WorldHeight)
	cs.cameras[name] = c
	return c
}

func (cs *CameraSystem) Default() *components.Camera {
	return cs.defaultCamera
}

// Resize propagates a new viewport to every registered camera.
func (cs *CameraSystem) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("camera viewport %dx%d: %w", width, height, core.ErrInvalidViewport)
	}
	cs.Config.ViewportWidth = width
	cs.Config.ViewportHeight = height
	for _, c := range cs.cameras {
		if err := c.ViewportResize(width, height); err != nil {
			return err
		}
	}
	return nil
}
