//go:build js && wasm

package platform

import (
	"fmt"
	"syscall/js"

	"github.com/spritekit/prism/engine/core"
	"github.com/spritekit/prism/engine/renderer"
)

// Platform wraps an HTML canvas element as the render surface. The browser
// owns the context and the swap; SwapBuffers is a no-op because presenting
// happens when the wasm frame callback returns.
type Platform struct {
	canvas js.Value
	events *core.EventBus

	onResize      js.Func
	onContextLost js.Func
}

func New(events *core.EventBus) *Platform {
	return &Platform{events: events}
}

func (p *Platform) Startup(cfg Config) error {
	doc := js.Global().Get("document")
	if !doc.Truthy() {
		return fmt.Errorf("platform: no document: %w", core.ErrContextCreationFailed)
	}
	canvasID := cfg.CanvasID
	if canvasID == "" {
		canvasID = "canvas"
	}
	canvas := doc.Call("getElementById", canvasID)
	if !canvas.Truthy() {
		return fmt.Errorf("platform: canvas %q not found: %w", canvasID, core.ErrContextCreationFailed)
	}
	canvas.Set("width", int(cfg.Width))
	canvas.Set("height", int(cfg.Height))
	p.canvas = canvas

	p.onResize = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		w := p.canvas.Get("clientWidth").Int()
		h := p.canvas.Get("clientHeight").Int()
		if w == 0 || h == 0 {
			return nil
		}
		p.canvas.Set("width", w)
		p.canvas.Set("height", h)
		p.events.Fire(core.EventContext{
			Type:         core.EVENT_CODE_RESIZED,
			WindowWidth:  uint32(w),
			WindowHeight: uint32(h),
		})
		return nil
	})
	js.Global().Call("addEventListener", "resize", p.onResize)

	p.onContextLost = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) > 0 {
			args[0].Call("preventDefault")
		}
		p.events.Fire(core.EventContext{Type: core.EVENT_CODE_CONTEXT_LOST})
		return nil
	})
	canvas.Call("addEventListener", "webglcontextlost", p.onContextLost)

	core.LogInfo("platform: canvas %q sized %dx%d", canvasID, cfg.Width, cfg.Height)
	return nil
}

func (p *Platform) Shutdown() error {
	if p.canvas.Truthy() {
		p.canvas.Call("removeEventListener", "webglcontextlost", p.onContextLost)
		js.Global().Call("removeEventListener", "resize", p.onResize)
		p.onContextLost.Release()
		p.onResize.Release()
		p.canvas = js.Undefined()
	}
	return nil
}

// Canvas exposes the DOM element so the webgl backend can acquire its
// drawing context.
func (p *Platform) Canvas() js.Value {
	return p.canvas
}

func (p *Platform) FramebufferSize() (uint32, uint32) {
	return uint32(p.canvas.Get("width").Int()), uint32(p.canvas.Get("height").Int())
}

func (p *Platform) MakeContextCurrent() {}

func (p *Platform) SwapBuffers() {}

func (p *Platform) PumpMessages() {}

func (p *Platform) ShouldClose() bool {
	return false
}

func (p *Platform) Time() float64 {
	return js.Global().Get("performance").Call("now").Float() / 1000.0
}

// Sleep is a no-op: the browser schedules frames, the loop never spins.
func (p *Platform) Sleep(ms uint64) {}

var _ renderer.Surface = (*Platform)(nil)
