// Package assets loads textures and fonts from disk and keeps live textures
// in sync with their source files through a filesystem watcher.
package assets

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/spritekit/prism/engine/assets/loaders"
	"github.com/spritekit/prism/engine/core"
	"github.com/spritekit/prism/engine/renderer/metadata"
	"github.com/spritekit/prism/engine/systems"
)

// AssetManager resolves paths under one asset directory and remembers which
// texture handle each image file fed, so a file change can re-upload the
// pixels in place.
type AssetManager struct {
	dir      string
	textures *systems.TextureSystem

	mutex      sync.RWMutex
	registered map[string]metadata.TextureHandle

	watcher *fsnotify.Watcher
	done    chan struct{}
}

func NewAssetManager(dir string, textures *systems.TextureSystem) *AssetManager {
	return &AssetManager{
		dir:        dir,
		textures:   textures,
		registered: make(map[string]metadata.TextureHandle),
	}
}

// LoadTexture decodes an image file relative to the asset directory and
// creates a texture from it. The file is remembered for hot reloading.
func (am *AssetManager) LoadTexture(name string, filter metadata.TextureFilter) (metadata.TextureHandle, error) {
	path := filepath.Join(am.dir, name)
	img, err := loaders.LoadImage(path)
	if err != nil {
		return metadata.NilTextureHandle, err
	}
	handle, err := am.textures.CreateTexture(name, img.Pixels, img.Width, img.Height, metadata.TextureFormatRGBA8, filter)
	if err != nil {
		return metadata.NilTextureHandle, err
	}

	am.mutex.Lock()
	am.registered[path] = handle
	am.mutex.Unlock()
	return handle, nil
}

// LoadFont parses a .fnt descriptor relative to the asset directory, loads
// its atlas page and uploads it as a texture. Fonts sample with linear
// filtering.
func (am *AssetManager) LoadFont(name string) (*loaders.SpriteFont, error) {
	path := filepath.Join(am.dir, name)
	font, err := loaders.LoadFont(path)
	if err != nil {
		return nil, err
	}
	page := filepath.Join(filepath.Dir(name), font.PageFile)
	atlas, err := am.LoadTexture(page, metadata.TextureFilterLinear)
	if err != nil {
		return nil, fmt.Errorf("font atlas: %w", err)
	}
	font.Atlas = atlas
	return font, nil
}

// WatchForChanges starts the hot reload loop. Changed image files that fed
// a live texture are decoded again and written over the texture in place;
// a dimension change reallocates the texture storage, keeping the handle
// valid.
func (am *AssetManager) WatchForChanges() error {
	if am.watcher != nil {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("assets: watcher: %w", err)
	}
	if err := watcher.Add(am.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("assets: watch %s: %w", am.dir, err)
	}
	am.watcher = watcher
	am.done = make(chan struct{})

	go am.watchLoop()
	core.LogInfo("assets: hot reload watching %s", am.dir)
	return nil
}

func (am *AssetManager) watchLoop() {
	for {
		select {
		case e, ok := <-am.watcher.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				am.reload(e.Name)
			}
		case err, ok := <-am.watcher.Errors:
			if !ok {
				return
			}
			core.LogError("assets: watcher: %s", err.Error())
		case <-am.done:
			return
		}
	}
}

func (am *AssetManager) reload(path string) {
	am.mutex.RLock()
	handle, ok := am.registered[path]
	am.mutex.RUnlock()
	if !ok {
		return
	}

	img, err := loaders.LoadImage(path)
	if err != nil {
		// writes are not atomic; a partially written file decodes again on
		// the next event
		core.LogDebug("assets: reload %s: %s", path, err.Error())
		return
	}
	tex, err := am.textures.Resolve(handle)
	if err != nil {
		am.mutex.Lock()
		delete(am.registered, path)
		am.mutex.Unlock()
		return
	}
	if img.Width != tex.Width || img.Height != tex.Height {
		if err := am.textures.ResizeTexture(handle, img.Width, img.Height, img.Pixels); err != nil {
			core.LogError("assets: reload %s: %s", path, err.Error())
			return
		}
		core.LogInfo("assets: reloaded %s at %dx%d", path, img.Width, img.Height)
		return
	}
	if err := am.textures.WriteTexture(handle, metadata.Region{}, img.Pixels); err != nil {
		core.LogError("assets: reload %s: %s", path, err.Error())
		return
	}
	core.LogInfo("assets: reloaded %s", path)
}

// Forget stops tracking a path for hot reload. Called when the texture it
// fed has been destroyed.
func (am *AssetManager) Forget(handle metadata.TextureHandle) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	for path, h := range am.registered {
		if h == handle {
			delete(am.registered, path)
		}
	}
}

func (am *AssetManager) Close() error {
	if am.watcher == nil {
		return nil
	}
	close(am.done)
	err := am.watcher.Close()
	am.watcher = nil
	return err
}
