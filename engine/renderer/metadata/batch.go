package metadata

import "github.com/go-gl/mathgl/mgl32"

// Batch is the unit of one draw call: an ordered run of sprite instances and
// the bounded texture set they sample. Batches are built fresh every frame
// and never persist across frames.
type Batch struct {
	// Group whose buffer receives the instance data.
	Group *SpriteGroup
	// Textures bound for this draw, in unit order. Bounded by the backend's
	// texture unit limit.
	Textures []*Texture
	// Instances in submission order. Index i samples Textures[Units[i]].
	Instances []SpriteInstance
	// Units maps each instance to its texture unit.
	Units []int32
	// ViewProjection is the camera snapshot taken at the start of the frame.
	ViewProjection mgl32.Mat4
}

// InstanceCount reports the number of instances drawn by this batch.
func (b *Batch) InstanceCount() int {
	return len(b.Instances)
}

// TextureCount reports the number of distinct textures bound by this batch.
func (b *Batch) TextureCount() int {
	return len(b.Textures)
}
