// Package engine ties the platform, the renderer systems and the asset
// manager into a frame loop driven by a Game.
package engine

import (
	"fmt"

	"github.com/spritekit/prism/engine/assets"
	"github.com/spritekit/prism/engine/core"
	"github.com/spritekit/prism/engine/platform"
	"github.com/spritekit/prism/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine completed initialization and can run
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    bool
	isSuspended  bool

	platform      *platform.Platform
	events        *core.EventBus
	assetManager  *assets.AssetManager
	systemManager *systems.SystemManager

	width    uint32
	height   uint32
	clock    *core.Clock
	lastTime float64
}

func New(g *Game) (*Engine, error) {
	if g.Config == nil {
		return nil, fmt.Errorf("game has no configuration")
	}
	core.SetLogLevel(g.Config.LogLevel)

	events := core.NewEventBus()
	p := platform.New(events)

	sm, err := systems.NewSystemManager(g.Config)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	g.Systems = sm

	return &Engine{
		currentStage:  EngineStageUninitialized,
		gameInstance:  g,
		clock:         core.NewClock(),
		platform:      p,
		events:        events,
		assetManager:  assets.NewAssetManager(g.Config.Assets.Dir, sm.Textures),
		systemManager: sm,
		isRunning:     false,
		isSuspended:   false,
		width:         g.Config.Window.Width,
		height:        g.Config.Window.Height,
	}, nil
}

func (e *Engine) Initialize() error {
	cfg := e.gameInstance.Config

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e.onQuit)
	e.events.Register(core.EVENT_CODE_RESIZED, e.onResized)
	e.events.Register(core.EVENT_CODE_CONTEXT_LOST, e.onContextLost)

	if err := e.platform.Startup(platform.Config{
		Title:   cfg.Window.Title,
		Width:   cfg.Window.Width,
		Height:  cfg.Window.Height,
		Backend: cfg.Backend,
		VSync:   cfg.VSync,
	}); err != nil {
		return err
	}

	if err := e.systemManager.Initialize(e.platform); err != nil {
		return err
	}

	if cfg.Assets.HotReload {
		if err := e.assetManager.WatchForChanges(); err != nil {
			core.LogWarn("hot reload unavailable: %s", err.Error())
		}
	}

	if err := e.gameInstance.FnInitialize(); err != nil {
		return err
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

// Assets exposes the asset manager to the game.
func (e *Engine) Assets() *assets.AssetManager {
	return e.assetManager
}

func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine is not initialized: %w", core.ErrBackendNotReady)
	}
	e.currentStage = EngineStageRunning
	e.isRunning = true

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		e.platform.PumpMessages()
		if e.platform.ShouldClose() {
			e.isRunning = false
			break
		}
		if e.isSuspended {
			// minimized; stay responsive to events without burning a core
			e.platform.Sleep(100)
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		e.lastTime = currentTime

		if err := e.RunFrame(delta); err != nil {
			core.LogError("frame failed, shutting down: %s", err.Error())
			e.isRunning = false
		}
	}
	return nil
}

// RunFrame advances game state and renders one frame. The desktop loop
// calls this from Run; wasm builds call it from the animation frame
// callback instead.
func (e *Engine) RunFrame(delta float64) error {
	if err := e.gameInstance.FnUpdate(delta); err != nil {
		return fmt.Errorf("game update: %w", err)
	}

	if err := e.systemManager.BeginFrame(nil); err != nil {
		return err
	}
	if err := e.gameInstance.FnRender(delta); err != nil {
		return fmt.Errorf("game render: %w", err)
	}
	return e.systemManager.EndFrame(delta)
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false

	if err := e.assetManager.Close(); err != nil {
		core.LogError("asset manager close: %s", err.Error())
	}
	if err := e.systemManager.Shutdown(); err != nil {
		core.LogError("system manager shutdown: %s", err.Error())
	}
	return e.platform.Shutdown()
}

func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onQuit(core.EventContext) bool {
	core.LogInfo("quit requested, shutting down")
	e.isRunning = false
	return true
}

func (e *Engine) onResized(context core.EventContext) bool {
	width, height := context.WindowWidth, context.WindowHeight
	if width == e.width && height == e.height {
		return false
	}
	e.width, e.height = width, height

	if width == 0 || height == 0 {
		core.LogInfo("window minimized, suspending")
		e.isSuspended = true
		return true
	}
	if e.isSuspended {
		core.LogInfo("window restored, resuming")
		e.isSuspended = false
	}

	if err := e.systemManager.OnResize(width, height); err != nil {
		core.LogError(err.Error())
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError(err.Error())
		}
	}
	return false
}

// onContextLost handles the browser revoking the WebGL context. Every
// resource handle is dead at that point; the loop stops rather than render
// through invalid handles.
func (e *Engine) onContextLost(core.EventContext) bool {
	core.LogError("graphics context lost, stopping")
	e.isRunning = false
	return true
}
