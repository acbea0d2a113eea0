package metadata

/** @brief The pixel format of texture data handed to the renderer. */
type TextureFormat int

const (
	// TextureFormatRGBA8 is four bytes per pixel, red, green, blue, alpha,
	// in sRGB color space. Data length must be width*height*4.
	TextureFormatRGBA8 TextureFormat = iota
)

/** @brief The type of interpolation used when sampling a texture. */
type TextureFilter int

const (
	// TextureFilterLinear interpolates between the nearest samples.
	TextureFilterLinear TextureFilter = iota
	// TextureFilterNearest uses the nearest sample. Pixel art wants this.
	TextureFilterNearest
)

/** @brief How texture coordinates outside [0,1] are resolved. */
type TextureWrap int

const (
	TextureWrapClampToEdge TextureWrap = iota
	TextureWrapRepeat
)

// Texture is the bookkeeping record behind a TextureHandle. The slot and
// generation mirror the handle that refers to it; InternalData is owned by
// the backend that created the GPU resource.
type Texture struct {
	Slot       uint32
	Generation uint32
	// Name is used in logs; generated when the caller did not provide one.
	Name   string
	Width  uint32
	Height uint32
	Format TextureFormat
	Filter TextureFilter
	Wrap   TextureWrap
	// InternalData holds the backend native object (GL texture name, js
	// value, ...). Never touched outside the owning backend.
	InternalData interface{}
}

// BytesPerPixel returns the pixel stride of the format.
func (f TextureFormat) BytesPerPixel() int {
	switch f {
	case TextureFormatRGBA8:
		return 4
	}
	return 0
}

// Region is a sub-rectangle of a texture, in pixels.
type Region struct {
	X, Y, Width, Height uint32
}
