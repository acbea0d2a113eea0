//go:build js && wasm

/*
Browser entry point: the engine renders into the page's canvas through the
webgl backend, with frames driven by requestAnimationFrame.
*/
package main

import (
	"syscall/js"

	"github.com/spritekit/prism/engine"
	"github.com/spritekit/prism/engine/config"
	"github.com/spritekit/prism/engine/core"
	"github.com/spritekit/prism/testbed"

	_ "github.com/spritekit/prism/engine/renderer/noop"
	_ "github.com/spritekit/prism/engine/renderer/webgl"
)

func main() {
	cfg := config.Default()
	cfg.Backend = "webgl"
	// asset files are not reachable from the browser filesystem
	cfg.Assets.HotReload = false

	tb := testbed.NewTestGame(cfg)

	eng, err := engine.New(tb.Game)
	if err != nil {
		panic(err)
	}
	if err := eng.Initialize(); err != nil {
		panic(err)
	}

	done := make(chan struct{})
	var frame js.Func
	var last float64
	frame = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		now := args[0].Float() / 1000.0
		delta := now - last
		if last == 0 {
			delta = 0
		}
		last = now

		if err := eng.RunFrame(delta); err != nil {
			core.LogError("frame failed, stopping: %s", err.Error())
			close(done)
			return nil
		}
		js.Global().Call("requestAnimationFrame", frame)
		return nil
	})
	js.Global().Call("requestAnimationFrame", frame)

	<-done
	frame.Release()
	_ = eng.Shutdown()
}
