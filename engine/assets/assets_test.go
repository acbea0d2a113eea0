package assets

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spritekit/prism/engine/renderer"
	"github.com/spritekit/prism/engine/renderer/metadata"
	"github.com/spritekit/prism/engine/renderer/noop"
	"github.com/spritekit/prism/engine/systems"
)

func testTextures(t *testing.T) (*systems.TextureSystem, *noop.Backend) {
	t.Helper()
	backend := noop.New()
	r := renderer.NewWithBackend(backend)
	if err := r.Initialize(nil, renderer.BackendConfig{}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	ts, err := systems.NewTextureSystem(&systems.TextureSystemConfig{MaxTextureCount: 8}, r)
	if err != nil {
		t.Fatalf("NewTextureSystem: %v", err)
	}
	return ts, backend
}

func writePNG(t *testing.T, path string, w, h int, c color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestLoadTexture(t *testing.T) {
	ts, backend := testTextures(t)
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "hero.png"), 8, 8, color.NRGBA{R: 255, A: 255})

	am := NewAssetManager(dir, ts)
	h, err := am.LoadTexture("hero.png", metadata.TextureFilterNearest)
	if err != nil {
		t.Fatalf("LoadTexture: %v", err)
	}
	if backend.LiveTextures != 1 {
		t.Errorf("LiveTextures = %d", backend.LiveTextures)
	}
	tex, err := ts.Resolve(h)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tex.Width != 8 || tex.Height != 8 {
		t.Errorf("texture size = %dx%d", tex.Width, tex.Height)
	}
	if tex.Filter != metadata.TextureFilterNearest {
		t.Errorf("filter = %v", tex.Filter)
	}

	if _, err := am.LoadTexture("missing.png", metadata.TextureFilterLinear); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestReloadWritesInPlace(t *testing.T) {
	ts, backend := testTextures(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "tile.png")
	writePNG(t, path, 4, 4, color.NRGBA{R: 1, A: 255})

	am := NewAssetManager(dir, ts)
	h, err := am.LoadTexture("tile.png", metadata.TextureFilterLinear)
	if err != nil {
		t.Fatalf("LoadTexture: %v", err)
	}
	// same size: the reload writes over the existing texture
	writePNG(t, path, 4, 4, color.NRGBA{G: 1, A: 255})
	am.reload(path)
	if backend.LiveTextures != 1 {
		t.Errorf("LiveTextures = %d, reload must not create textures", backend.LiveTextures)
	}
	tex, err := ts.Resolve(h)
	if err != nil {
		t.Fatalf("Resolve after reload: %v", err)
	}
	if tex.Width != 4 || tex.Height != 4 {
		t.Errorf("texture size = %dx%d after same-size reload", tex.Width, tex.Height)
	}

	// unregistered paths are ignored
	am.reload(filepath.Join(dir, "other.png"))
}

func TestReloadResizesOnDimensionChange(t *testing.T) {
	ts, backend := testTextures(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "grow.png")
	writePNG(t, path, 4, 4, color.NRGBA{R: 1, A: 255})

	am := NewAssetManager(dir, ts)
	h, err := am.LoadTexture("grow.png", metadata.TextureFilterLinear)
	if err != nil {
		t.Fatalf("LoadTexture: %v", err)
	}

	// changed size: the storage is reallocated, the handle stays valid
	writePNG(t, path, 8, 8, color.NRGBA{B: 1, A: 255})
	am.reload(path)
	if backend.LiveTextures != 1 {
		t.Errorf("LiveTextures = %d, resize must not create textures", backend.LiveTextures)
	}
	if backend.Resizes != 1 {
		t.Errorf("Resizes = %d, want 1", backend.Resizes)
	}
	tex, err := ts.Resolve(h)
	if err != nil {
		t.Fatalf("Resolve after resize: %v", err)
	}
	if tex.Width != 8 || tex.Height != 8 {
		t.Errorf("texture size = %dx%d after resize, want 8x8", tex.Width, tex.Height)
	}
}

func TestReloadDropsStaleHandles(t *testing.T) {
	ts, _ := testTextures(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.png")
	writePNG(t, path, 2, 2, color.NRGBA{A: 255})

	am := NewAssetManager(dir, ts)
	h, err := am.LoadTexture("gone.png", metadata.TextureFilterLinear)
	if err != nil {
		t.Fatalf("LoadTexture: %v", err)
	}
	if err := ts.DestroyTexture(h); err != nil {
		t.Fatalf("DestroyTexture: %v", err)
	}

	// the tracked handle is stale now; reload must forget it, not error
	am.reload(path)
	am.mutex.RLock()
	_, tracked := am.registered[path]
	am.mutex.RUnlock()
	if tracked {
		t.Error("stale handle still tracked after reload")
	}
}

func TestForget(t *testing.T) {
	ts, _ := testTextures(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "drop.png")
	writePNG(t, path, 2, 2, color.NRGBA{A: 255})

	am := NewAssetManager(dir, ts)
	h, err := am.LoadTexture("drop.png", metadata.TextureFilterLinear)
	if err != nil {
		t.Fatalf("LoadTexture: %v", err)
	}
	am.Forget(h)

	am.mutex.RLock()
	defer am.mutex.RUnlock()
	if len(am.registered) != 0 {
		t.Errorf("registered = %d entries after Forget", len(am.registered))
	}
}
