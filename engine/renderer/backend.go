package renderer

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spritekit/prism/engine/renderer/metadata"
)

// Lifecycle state of a backend instance.
type State int

const (
	// StateUninitialized is the state before Initialize succeeds, and again
	// after a context loss.
	StateUninitialized State = iota
	// StateReady accepts resource and frame calls.
	StateReady
	// StateSubmitting is entered between BeginFrame and EndFrame.
	StateSubmitting
	// StateTornDown is terminal; every call fails with ErrBackendNotReady.
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateSubmitting:
		return "submitting"
	case StateTornDown:
		return "torn down"
	}
	return "unknown"
}

// BackendLimits are immutable per-backend constants queried once after
// initialization. The batcher uses them for partitioning decisions.
type BackendLimits struct {
	// MaxBoundTextureUnits is the number of texture slots one draw call may
	// bind at once.
	MaxBoundTextureUnits int
	// MaxInstancesPerBuffer is the largest number of sprite instances one
	// draw call may carry.
	MaxInstancesPerBuffer int
}

// BackendConfig carries run time options a backend may honor.
type BackendConfig struct {
	VSync bool
}

// Surface is the descriptor of an already created rendering surface. The
// renderer never creates windows or processes input; the surface is owned by
// the windowing collaborator. Concrete backends may type assert a richer
// platform specific surface out of this.
type Surface interface {
	// FramebufferSize returns the current drawable size in pixels.
	FramebufferSize() (uint32, uint32)
	// MakeContextCurrent binds the surface's graphics context to the
	// calling thread. A no-op for surfaces without that concept.
	MakeContextCurrent()
	// SwapBuffers presents the finished frame.
	SwapBuffers()
}

// RendererBackend is the capability contract every backend implements. All
// methods must be called from the single thread owning the graphics context;
// that precondition is documented, not enforced.
//
// Calls are synchronous from the caller's viewpoint: they return once the
// commands are queued, not once pixels are final.
type RendererBackend interface {
	// Name returns the backend identifier, e.g. "gl" or "noop".
	Name() string

	// Initialize acquires the graphics context on the given surface. Fails
	// with core.ErrContextCreationFailed when the context cannot be
	// obtained; that is fatal, there is no retry.
	Initialize(surface Surface, cfg BackendConfig) error

	// Shutdown releases every GPU resource and tears the backend down.
	// Any call after Shutdown fails with core.ErrBackendNotReady.
	Shutdown() error

	// Resized updates the viewport state. A resize arriving while a frame
	// is submitting is deferred: the in-flight frame completes against the
	// old viewport and the new one applies before the next BeginFrame.
	Resized(width, height uint32) error

	// Limits reports the partitioning constants of this backend.
	Limits() BackendLimits

	// State reports the current lifecycle state.
	State() State

	// TextureCreate uploads pixel data and fills texture.InternalData.
	TextureCreate(pixels []uint8, texture *metadata.Texture) error
	// TextureDestroy releases the GPU texture. Destruction is explicit and
	// never blocks on GPU deallocation.
	TextureDestroy(texture *metadata.Texture) error
	// TextureWriteData replaces the pixels of a region of an existing
	// texture.
	TextureWriteData(texture *metadata.Texture, region metadata.Region, pixels []uint8) error
	// TextureResize reallocates the texture storage at a new size, keeping
	// the GPU object alive so handles stay valid. Previous contents are
	// discarded; pixels, when non-nil, become the new contents.
	TextureResize(texture *metadata.Texture, width, height uint32, pixels []uint8) error

	// SpriteGroupCreate reserves a buffer region for group.Capacity
	// instances and fills group.InternalData.
	SpriteGroupCreate(group *metadata.SpriteGroup) error
	// SpriteGroupDestroy releases the buffer region.
	SpriteGroupDestroy(group *metadata.SpriteGroup) error

	// BeginFrame clears the surface and enters the submitting state.
	BeginFrame(clearColor mgl32.Vec4) error
	// UploadBatch copies the batch's instance data into the group buffer.
	UploadBatch(batch *metadata.Batch) error
	// DrawBatch issues the draw call for a previously uploaded batch.
	// Batches must be drawn in the order the batcher emitted them.
	DrawBatch(batch *metadata.Batch) error
	// EndFrame presents and returns to the ready state.
	EndFrame() error
}
