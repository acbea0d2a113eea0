package systems

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/spritekit/prism/engine/core"
	"github.com/spritekit/prism/engine/renderer"
	"github.com/spritekit/prism/engine/renderer/metadata"
)

type TextureSystemConfig struct {
	/** @brief The maximum number of textures that can be loaded at once. */
	MaxTextureCount uint32
}

// TextureSystem is the handle table for textures: a fixed slot array where
// each slot carries a generation counter. Destroying a texture bumps the
// slot's generation, so a handle held past the destroy can never alias the
// slot's next occupant.
type TextureSystem struct {
	Config *TextureSystemConfig
	// Slot array of registered textures.
	registered []*metadata.Texture
	// Generation to stamp on the next texture occupying each slot.
	generations []uint32
	renderer    *renderer.Renderer
}

func NewTextureSystem(config *TextureSystemConfig, r *renderer.Renderer) (*TextureSystem, error) {
	if config.MaxTextureCount == 0 {
		err := fmt.Errorf("func NewTextureSystem - config.MaxTextureCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}

	ts := &TextureSystem{
		Config:      config,
		registered:  make([]*metadata.Texture, config.MaxTextureCount),
		generations: make([]uint32, config.MaxTextureCount),
		renderer:    r,
	}

	// Invalidate all textures in the array.
	for i := uint32(0); i < config.MaxTextureCount; i++ {
		ts.registered[i] = &metadata.Texture{
			Slot:       metadata.InvalidID,
			Generation: metadata.InvalidID,
		}
	}

	return ts, nil
}

// CreateTexture validates the pixel payload, allocates a slot and uploads
// the data through the active backend. The returned handle is unique for
// the lifetime of the backend instance.
//
// pixels may be nil, in which case the texture contents are undefined until
// the first WriteTexture.
func (ts *TextureSystem) CreateTexture(name string, pixels []uint8, width, height uint32, format metadata.TextureFormat, filter metadata.TextureFilter) (metadata.TextureHandle, error) {
	if width == 0 || height == 0 {
		return metadata.NilTextureHandle, fmt.Errorf("texture %dx%d: %w", width, height, core.ErrInvalidResource)
	}
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return metadata.NilTextureHandle, fmt.Errorf("texture format %d: %w", format, core.ErrInvalidResource)
	}
	if pixels != nil && len(pixels) != int(width*height)*bpp {
		return metadata.NilTextureHandle, fmt.Errorf("texture data length %d, expected %d: %w",
			len(pixels), int(width*height)*bpp, core.ErrInvalidResource)
	}

	slot, free := ts.freeSlot()
	if !free {
		return metadata.NilTextureHandle, fmt.Errorf("texture system holds %d textures already, adjust configuration to allow more: %w",
			ts.Config.MaxTextureCount, core.ErrInvalidResource)
	}
	if name == "" {
		name = uuid.New().String()
	}

	t := ts.registered[slot]
	t.Slot = slot
	t.Generation = ts.generations[slot]
	t.Name = name
	t.Width = width
	t.Height = height
	t.Format = format
	t.Filter = filter

	if err := ts.renderer.TextureCreate(pixels, t); err != nil {
		t.Slot = metadata.InvalidID
		t.Generation = metadata.InvalidID
		return metadata.NilTextureHandle, err
	}

	core.LogDebug("texture '%s' created in slot %d generation %d", name, slot, t.Generation)
	return metadata.TextureHandle{Slot: slot, Generation: t.Generation}, nil
}

// DestroyTexture releases the GPU texture and retires the handle. The slot
// is recycled under a new generation.
func (ts *TextureSystem) DestroyTexture(handle metadata.TextureHandle) error {
	t, err := ts.Resolve(handle)
	if err != nil {
		return err
	}
	if err := ts.renderer.TextureDestroy(t); err != nil {
		return err
	}
	ts.retire(t)
	return nil
}

// WriteTexture replaces the pixels of a region of a live texture. A zero
// region addresses the whole texture.
func (ts *TextureSystem) WriteTexture(handle metadata.TextureHandle, region metadata.Region, pixels []uint8) error {
	t, err := ts.Resolve(handle)
	if err != nil {
		return err
	}
	if region == (metadata.Region{}) {
		region = metadata.Region{Width: t.Width, Height: t.Height}
	}
	if region.X+region.Width > t.Width || region.Y+region.Height > t.Height {
		return fmt.Errorf("texture '%s' region out of bounds: %w", t.Name, core.ErrInvalidResource)
	}
	expected := int(region.Width*region.Height) * t.Format.BytesPerPixel()
	if len(pixels) != expected {
		return fmt.Errorf("texture '%s' region data length %d, expected %d: %w",
			t.Name, len(pixels), expected, core.ErrInvalidResource)
	}
	return ts.renderer.TextureWriteData(t, region, pixels)
}

// ResizeTexture reallocates a live texture at new dimensions. The handle
// stays valid; previous contents are discarded. pixels may be nil, or must
// match the new dimensions exactly.
func (ts *TextureSystem) ResizeTexture(handle metadata.TextureHandle, width, height uint32, pixels []uint8) error {
	t, err := ts.Resolve(handle)
	if err != nil {
		return err
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("texture '%s' resize to %dx%d: %w", t.Name, width, height, core.ErrInvalidResource)
	}
	expected := int(width*height) * t.Format.BytesPerPixel()
	if pixels != nil && len(pixels) != expected {
		return fmt.Errorf("texture '%s' resize data length %d, expected %d: %w",
			t.Name, len(pixels), expected, core.ErrInvalidResource)
	}
	if err := ts.renderer.TextureResize(t, width, height, pixels); err != nil {
		return err
	}
	t.Width = width
	t.Height = height
	core.LogDebug("texture '%s' resized to %dx%d", t.Name, width, height)
	return nil
}

// Resolve maps a handle to its live record, rejecting stale generations and
// unknown slots with core.ErrUnknownHandle.
func (ts *TextureSystem) Resolve(handle metadata.TextureHandle) (*metadata.Texture, error) {
	if handle.Slot >= ts.Config.MaxTextureCount {
		return nil, fmt.Errorf("texture slot %d: %w", handle.Slot, core.ErrUnknownHandle)
	}
	t := ts.registered[handle.Slot]
	if t.Slot == metadata.InvalidID || t.Generation != handle.Generation {
		return nil, fmt.Errorf("texture %d@%d is stale: %w", handle.Slot, handle.Generation, core.ErrUnknownHandle)
	}
	return t, nil
}

// DestroyAll releases every live texture. Called at backend teardown so no
// handle outlives the backend instance that created it.
func (ts *TextureSystem) DestroyAll() error {
	for i := uint32(0); i < ts.Config.MaxTextureCount; i++ {
		t := ts.registered[i]
		if t.Slot == metadata.InvalidID {
			continue
		}
		if err := ts.renderer.TextureDestroy(t); err != nil {
			return err
		}
		ts.retire(t)
	}
	return nil
}

func (ts *TextureSystem) freeSlot() (uint32, bool) {
	for i := uint32(0); i < ts.Config.MaxTextureCount; i++ {
		if ts.registered[i].Slot == metadata.InvalidID {
			return i, true
		}
	}
	return metadata.InvalidID, false
}

func (ts *TextureSystem) retire(t *metadata.Texture) {
	slot := t.Slot
	ts.generations[slot] = t.Generation + 1
	t.Slot = metadata.InvalidID
	t.Generation = metadata.InvalidID
	t.InternalData = nil
}
