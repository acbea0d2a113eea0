//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Builds the demo application for the host platform.
func (Build) Desktop() error {
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/prism", "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Builds the wasm bundle that runs the webgl backend in a browser.
func (Build) Wasm() error {
	if _, err := executeCmd("go",
		withArgs("build", "-o", "web/prism.wasm", "."),
		withEnv("GOOS=js", "GOARCH=wasm"),
		withStream()); err != nil {
		return err
	}
	return nil
}
