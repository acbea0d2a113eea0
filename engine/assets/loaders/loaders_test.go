package loaders

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 50), G: uint8(y * 50), B: 0, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sprite.png")
	writeTestPNG(t, path, 4, 3)

	img, err := LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if img.Width != 4 || img.Height != 3 {
		t.Errorf("size = %dx%d, want 4x3", img.Width, img.Height)
	}
	if len(img.Pixels) != 4*3*4 {
		t.Errorf("pixel length = %d, want %d", len(img.Pixels), 4*3*4)
	}
	// pixel (2,1): R = 100, G = 50, A = 255
	off := (1*4 + 2) * 4
	if img.Pixels[off] != 100 || img.Pixels[off+1] != 50 || img.Pixels[off+3] != 255 {
		t.Errorf("pixel (2,1) = %v", img.Pixels[off:off+4])
	}
}

func TestLoadImageMissingFile(t *testing.T) {
	if _, err := LoadImage(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

const testFnt = `info face="Test" size=32 bold=0 italic=0 charset="" unicode=1 stretchH=100 smooth=1 aa=1 padding=0,0,0,0 spacing=1,1 outline=0
common lineHeight=36 base=29 scaleW=256 scaleH=128 pages=1 packed=0 alphaChnl=1 redChnl=0 greenChnl=0 blueChnl=0
page id=0 file="test_0.png"
chars count=2
char id=65 x=0 y=0 width=20 height=24 xoffset=1 yoffset=5 xadvance=22 page=0 chnl=15
char id=66 x=32 y=0 width=16 height=24 xoffset=1 yoffset=5 xadvance=18 page=0 chnl=15
kernings count=1
kerning first=65 second=66 amount=-2
`

func writeTestFont(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.fnt")
	if err := os.WriteFile(path, []byte(testFnt), 0o644); err != nil {
		t.Fatalf("write font: %v", err)
	}
	return path
}

func TestLoadFont(t *testing.T) {
	font, err := LoadFont(writeTestFont(t))
	if err != nil {
		t.Fatalf("LoadFont: %v", err)
	}
	if font.Face != "Test" {
		t.Errorf("Face = %q", font.Face)
	}
	if font.LineHeight != 36 || font.Baseline != 29 {
		t.Errorf("LineHeight = %v, Baseline = %v", font.LineHeight, font.Baseline)
	}
	if font.PageFile != "test_0.png" {
		t.Errorf("PageFile = %q", font.PageFile)
	}

	g, ok := font.Glyph('A')
	if !ok {
		t.Fatal("glyph 'A' missing")
	}
	if g.Size.X() != 20 || g.Size.Y() != 24 {
		t.Errorf("glyph size = %v", g.Size)
	}
	// x=0 width=20 of a 256 wide atlas
	if g.UVRect.X() != 0 || g.UVRect.Z() != 20.0/256.0 {
		t.Errorf("glyph uv = %v", g.UVRect)
	}
	if _, ok := font.Glyph('Z'); ok {
		t.Error("glyph 'Z' should not exist")
	}
}

func TestLayoutAdvancesAndKerns(t *testing.T) {
	font, err := LoadFont(writeTestFont(t))
	if err != nil {
		t.Fatalf("LoadFont: %v", err)
	}

	quads := font.Layout("AB", mgl32.Vec2{10, 20}, 1, mgl32.Vec4{1, 1, 1, 1})
	if len(quads) != 2 {
		t.Fatalf("quads = %d, want 2", len(quads))
	}
	// 'A': center x = 10 + xoffset 1 + width 20 / 2
	if quads[0].Position.X() != 21 {
		t.Errorf("A center x = %v, want 21", quads[0].Position.X())
	}
	// 'B': pen advanced by 22, kerned by -2
	wantBX := float32(10+22-2) + 1 + 8
	if quads[1].Position.X() != wantBX {
		t.Errorf("B center x = %v, want %v", quads[1].Position.X(), wantBX)
	}
	// y axis points down: yoffset pushes the quad below the pen
	if quads[0].Position.Y() != 20+5+12 {
		t.Errorf("A center y = %v", quads[0].Position.Y())
	}
}

func TestLayoutNewlineAndMissingGlyphs(t *testing.T) {
	font, err := LoadFont(writeTestFont(t))
	if err != nil {
		t.Fatalf("LoadFont: %v", err)
	}

	quads := font.Layout("A\nB", mgl32.Vec2{0, 0}, 1, mgl32.Vec4{1, 1, 1, 1})
	if len(quads) != 2 {
		t.Fatalf("quads = %d, want 2", len(quads))
	}
	if quads[1].Position.Y() <= quads[0].Position.Y() {
		t.Error("newline did not advance down")
	}

	// glyphless runes are skipped, not rendered
	if got := font.Layout("AZB", mgl32.Vec2{0, 0}, 1, mgl32.Vec4{1, 1, 1, 1}); len(got) != 2 {
		t.Errorf("quads = %d, want 2", len(got))
	}

	w, h := font.Measure("A\nAB", 1)
	if h != 2*36 {
		t.Errorf("height = %v, want 72", h)
	}
	if w != 22+18-2 {
		t.Errorf("width = %v, want 38", w)
	}
}
