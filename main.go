//go:build !js

/*
Demo application driving the engine with the testbed game. The renderer
backend, window shape and asset directory come from prism.toml when present.
*/
package main

import (
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spritekit/prism/engine"
	"github.com/spritekit/prism/engine/config"
	"github.com/spritekit/prism/engine/core"
	"github.com/spritekit/prism/testbed"

	// link the backends so the registry can pick one
	_ "github.com/spritekit/prism/engine/renderer/noop"
	_ "github.com/spritekit/prism/engine/renderer/opengl"
	_ "github.com/spritekit/prism/engine/renderer/opengles"
)

func main() {
	backend := flag.String("backend", "", "renderer backend to use, overriding the config file")
	flag.Parse()

	cfg, err := config.Load("prism.toml")
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			core.LogWarn("config: %s, using defaults", err.Error())
		}
		cfg = config.Default()
	}
	if *backend != "" {
		cfg.Backend = *backend
	}

	tb := testbed.NewTestGame(cfg)

	eng, err := engine.New(tb.Game)
	if err != nil {
		panic(err)
	}
	if err := eng.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	go func() {
		<-sigCh
		_ = eng.Shutdown()
	}()

	if err := eng.Run(); err != nil {
		panic(err)
	}
	_ = eng.Shutdown()
}
