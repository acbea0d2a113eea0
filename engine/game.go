package engine

import (
	"github.com/spritekit/prism/engine/config"
	"github.com/spritekit/prism/engine/systems"
)

// Game is the application the engine drives. The engine owns the window and
// the frame lifecycle; the game fills the frames through the system manager.
type Game struct {
	Config  *config.Config
	Systems *systems.SystemManager
	// State is free for the game's own data.
	State interface{}

	FnInitialize Initialize
	FnUpdate     Update
	FnRender     Render
	FnOnResize   OnResize
}

// Initialize runs once after the backend is ready, before the first frame.
type Initialize func() error

// Update advances game state by deltaTime seconds.
type Update func(deltaTime float64) error

// Render submits the frame's sprites. The engine has already opened the
// frame; submissions go through the game's system manager.
type Render func(deltaTime float64) error

// OnResize is notified after the engine has propagated a new window size.
type OnResize func(width, height uint32) error
