//go:build !js

// Package platform owns the window and the GL context surface. The desktop
// build wraps GLFW; the wasm build wraps an HTML canvas.
package platform

import (
	"fmt"
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spritekit/prism/engine/core"
	"github.com/spritekit/prism/engine/renderer"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Platform is a GLFW window exposing a renderer.Surface. One per process;
// all methods must run on the thread that called Startup.
type Platform struct {
	Window *glfw.Window
	events *core.EventBus
	vsync  bool
}

func New(events *core.EventBus) *Platform {
	return &Platform{events: events}
}

func (p *Platform) Startup(cfg Config) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("platform: initialize glfw: %w", err)
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	switch cfg.Backend {
	case renderer.BackendGLES:
		glfw.WindowHint(glfw.ClientAPI, glfw.OpenGLESAPI)
		glfw.WindowHint(glfw.ContextVersionMajor, 3)
		glfw.WindowHint(glfw.ContextVersionMinor, 1)
	default:
		glfw.WindowHint(glfw.ClientAPI, glfw.OpenGLAPI)
		glfw.WindowHint(glfw.ContextVersionMajor, 3)
		glfw.WindowHint(glfw.ContextVersionMinor, 3)
		glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
		glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	}

	window, err := glfw.CreateWindow(int(cfg.Width), int(cfg.Height), cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("platform: create window: %w: %s", core.ErrContextCreationFailed, err.Error())
	}
	p.Window = window
	p.vsync = cfg.VSync

	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetCloseCallback(p.closeCallback)
	p.Window.Show()

	core.LogInfo("platform: window %dx%d for %q context", cfg.Width, cfg.Height, cfg.Backend)
	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// FramebufferSize reports the drawable size in pixels, which on high-DPI
// displays differs from the window size.
func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

func (p *Platform) MakeContextCurrent() {
	p.Window.MakeContextCurrent()
	if p.vsync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}
}

func (p *Platform) SwapBuffers() {
	p.Window.SwapBuffers()
}

func (p *Platform) PumpMessages() {
	glfw.PollEvents()
}

func (p *Platform) ShouldClose() bool {
	return p.Window.ShouldClose()
}

func (p *Platform) Time() float64 {
	return glfw.GetTime()
}

// Sleep gives ms milliseconds back to the OS.
func (p *Platform) Sleep(ms uint64) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

func (p *Platform) framebufferSizeCallback(_ *glfw.Window, width, height int) {
	if width == 0 || height == 0 {
		// minimized; nothing to resize until the window comes back
		return
	}
	p.events.Fire(core.EventContext{
		Type:         core.EVENT_CODE_RESIZED,
		WindowWidth:  uint32(width),
		WindowHeight: uint32(height),
	})
}

func (p *Platform) closeCallback(_ *glfw.Window) {
	p.events.Fire(core.EventContext{
		Type: core.EVENT_CODE_APPLICATION_QUIT,
	})
}

// static check that the desktop platform satisfies the backend surface
var _ renderer.Surface = (*Platform)(nil)
