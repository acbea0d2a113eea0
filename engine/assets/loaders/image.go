package loaders

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	// register the decoders for the supported texture formats
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
)

// ImageData is a decoded image normalized to tightly packed RGBA8, the only
// pixel format the renderer accepts.
type ImageData struct {
	Width  uint32
	Height uint32
	Pixels []uint8
}

// LoadImage decodes a png, jpg or bmp file into RGBA8 pixels.
func LoadImage(path string) (*ImageData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("image loader: open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("image loader: decode %s: %w", path, err)
	}
	return convertImage(img), nil
}

func convertImage(img image.Image) *ImageData {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != w*4 {
		rgba = image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	return &ImageData{
		Width:  uint32(w),
		Height: uint32(h),
		Pixels: rgba.Pix,
	}
}
