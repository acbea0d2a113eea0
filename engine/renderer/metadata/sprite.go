package metadata

import "github.com/go-gl/mathgl/mgl32"

// SpriteInstance is one textured quad submission. Pure data: the batcher
// copies it on submit, so the caller may reuse the value immediately.
type SpriteInstance struct {
	// Position is the center of the quad in world space.
	Position mgl32.Vec2
	// Size is the width and height of the quad in world units.
	Size mgl32.Vec2
	// Rotation around the quad center, counterclockwise radians.
	Rotation float32
	// Texture sampled by this instance.
	Texture TextureHandle
	// UVRect selects the sampled region: x, y, width, height in [0,1].
	UVRect mgl32.Vec4
	// Color modulates the texel color, including alpha.
	Color mgl32.Vec4
}

// WholeTexture is the UV rect covering the full texture.
var WholeTexture = mgl32.Vec4{0, 0, 1, 1}

// White is the neutral color modulation.
var White = mgl32.Vec4{1, 1, 1, 1}

// SpriteGroup is the bookkeeping record behind a SpriteGroupHandle: a backend
// buffer region sized for Capacity instances sharing one draw configuration.
type SpriteGroup struct {
	Slot       uint32
	Generation uint32
	Name       string
	Capacity   uint32
	// InternalData holds the backend native buffer object.
	InternalData interface{}
}
