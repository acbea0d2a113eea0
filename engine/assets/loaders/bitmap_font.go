package loaders

import (
	"fmt"

	"github.com/fzipp/bmfont"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spritekit/prism/engine/renderer/metadata"
)

// Glyph is one character of a bitmap font atlas, with UVs precomputed
// against the atlas size.
type Glyph struct {
	// UVRect addresses the glyph cell inside the atlas texture.
	UVRect mgl32.Vec4
	// Size of the glyph quad in pixels.
	Size mgl32.Vec2
	// Offset from the pen position to the quad's top left, in pixels.
	Offset mgl32.Vec2
	// XAdvance moves the pen after this glyph, in pixels.
	XAdvance float32
}

// SpriteFont is a parsed AngelCode .fnt descriptor plus the texture handle
// of its atlas page. Single page fonts only; that covers the usual sprite
// text workloads.
type SpriteFont struct {
	Face       string
	LineHeight float32
	Baseline   float32
	// PageFile is the atlas image filename next to the descriptor.
	PageFile string
	// Atlas is assigned by the caller after uploading the page image.
	Atlas metadata.TextureHandle

	glyphs   map[rune]Glyph
	kernings map[[2]rune]float32
}

// LoadFont parses an AngelCode .fnt descriptor. The atlas page image is not
// decoded here; the caller uploads it as a texture.
func LoadFont(path string) (*SpriteFont, error) {
	desc, err := bmfont.LoadDescriptor(path)
	if err != nil {
		return nil, fmt.Errorf("font loader: %s: %w", path, err)
	}
	if len(desc.Pages) != 1 {
		return nil, fmt.Errorf("font loader: %s has %d pages, only single page fonts are supported", path, len(desc.Pages))
	}

	out := &SpriteFont{
		Face:       desc.Info.Face,
		LineHeight: float32(desc.Common.LineHeight),
		Baseline:   float32(desc.Common.Base),
		glyphs:     make(map[rune]Glyph, len(desc.Chars)),
		kernings:   make(map[[2]rune]float32, len(desc.Kerning)),
	}
	for _, p := range desc.Pages {
		out.PageFile = p.File
	}

	atlasW := float32(desc.Common.ScaleW)
	atlasH := float32(desc.Common.ScaleH)
	for _, c := range desc.Chars {
		out.glyphs[c.ID] = Glyph{
			UVRect: mgl32.Vec4{
				float32(c.X) / atlasW,
				float32(c.Y) / atlasH,
				float32(c.Width) / atlasW,
				float32(c.Height) / atlasH,
			},
			Size:     mgl32.Vec2{float32(c.Width), float32(c.Height)},
			Offset:   mgl32.Vec2{float32(c.XOffset), float32(c.YOffset)},
			XAdvance: float32(c.XAdvance),
		}
	}
	for pair, k := range desc.Kerning {
		out.kernings[[2]rune{pair.First, pair.Second}] = float32(k.Amount)
	}
	return out, nil
}

// Glyph looks up the glyph for a rune.
func (f *SpriteFont) Glyph(r rune) (Glyph, bool) {
	g, ok := f.glyphs[r]
	return g, ok
}

// Layout turns a text string into sprite instances, one quad per glyph.
// origin is the top left pen position in world units, with the world y axis
// pointing down. Newlines advance by the font line height. Runes without a
// glyph are skipped.
func (f *SpriteFont) Layout(text string, origin mgl32.Vec2, scale float32, color mgl32.Vec4) []metadata.SpriteInstance {
	out := make([]metadata.SpriteInstance, 0, len(text))
	pen := origin
	var prev rune

	for _, r := range text {
		if r == '\n' {
			pen = mgl32.Vec2{origin.X(), pen.Y() + f.LineHeight*scale}
			prev = 0
			continue
		}
		g, ok := f.glyphs[r]
		if !ok {
			prev = r
			continue
		}
		if k, ok := f.kernings[[2]rune{prev, r}]; ok {
			pen = mgl32.Vec2{pen.X() + k*scale, pen.Y()}
		}

		size := g.Size.Mul(scale)
		// instance positions are quad centers
		center := mgl32.Vec2{
			pen.X() + (g.Offset.X()+g.Size.X()/2)*scale,
			pen.Y() + (g.Offset.Y()+g.Size.Y()/2)*scale,
		}
		out = append(out, metadata.SpriteInstance{
			Position: center,
			Size:     size,
			Texture:  f.Atlas,
			UVRect:   g.UVRect,
			Color:    color,
		})
		pen = mgl32.Vec2{pen.X() + g.XAdvance*scale, pen.Y()}
		prev = r
	}
	return out
}

// Measure returns the width and height of the laid out text in world units.
func (f *SpriteFont) Measure(text string, scale float32) (float32, float32) {
	var width, lineWidth float32
	lines := float32(1)
	var prev rune
	for _, r := range text {
		if r == '\n' {
			if lineWidth > width {
				width = lineWidth
			}
			lineWidth = 0
			lines++
			prev = 0
			continue
		}
		g, ok := f.glyphs[r]
		if !ok {
			prev = r
			continue
		}
		if k, ok := f.kernings[[2]rune{prev, r}]; ok {
			lineWidth += k * scale
		}
		lineWidth += g.XAdvance * scale
		prev = r
	}
	if lineWidth > width {
		width = lineWidth
	}
	return width, lines * f.LineHeight * scale
}
