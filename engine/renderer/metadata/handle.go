package metadata

/** @brief An invalid slot or generation value. */
const InvalidID uint32 = 0xFFFFFFFF

// TextureHandle is an opaque, generation checked reference to a GPU resident
// texture. A handle with a generation that no longer matches its slot is
// stale and is rejected by every operation that takes one.
type TextureHandle struct {
	Slot       uint32
	Generation uint32
}

// NilTextureHandle is the zero value used before a handle is issued.
var NilTextureHandle = TextureHandle{Slot: InvalidID, Generation: InvalidID}

func (h TextureHandle) IsNil() bool {
	return h.Slot == InvalidID
}

// SpriteGroupHandle refers to a backend buffer region reserved for a set of
// sprite instances sharing one draw configuration.
type SpriteGroupHandle struct {
	Slot       uint32
	Generation uint32
}

var NilSpriteGroupHandle = SpriteGroupHandle{Slot: InvalidID, Generation: InvalidID}

func (h SpriteGroupHandle) IsNil() bool {
	return h.Slot == InvalidID
}
