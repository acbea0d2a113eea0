package components

import (
	"fmt"
	stdmath "math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spritekit/prism/engine/core"
)

/** @brief The name of the default camera. */
const DEFAULT_CAMERA_NAME string = "default"

// Camera holds a 2D view transform: position, zoom, rotation and viewport
// size. It produces the projection matrix consumed by each batch. The world
// is y-down; the visible height in world units is Height / Zoom and the
// width follows the viewport aspect ratio.
//
// Mutators mark the cached matrix dirty; ViewProjection recomputes lazily,
// so the matrix is always current at the next frame begin.
type Camera struct {
	position mgl32.Vec2
	rotation float32
	zoom     float32
	// height of the view in world units at zoom 1.
	height float32

	viewportWidth  uint32
	viewportHeight uint32

	viewProjection mgl32.Mat4
	isDirty        bool
}

// NewCamera creates a camera over a viewport. The view spans height world
// units vertically, centered on the origin.
func NewCamera(viewportWidth, viewportHeight uint32, height float32) *Camera {
	c := &Camera{
		viewportWidth:  viewportWidth,
		viewportHeight: viewportHeight,
		height:         height,
	}
	c.Reset()
	return c
}

func (c *Camera) Reset() {
	c.position = mgl32.Vec2{0, 0}
	c.rotation = 0
	c.zoom = 1
	c.viewProjection = mgl32.Ident4()
	c.isDirty = true
}

func (c *Camera) Position() mgl32.Vec2 {
	return c.position
}

// SetPosition moves the center of the view in world space.
func (c *Camera) SetPosition(x, y float32) {
	c.position = mgl32.Vec2{x, y}
	c.isDirty = true
}

// Move shifts the view by a delta in world space.
func (c *Camera) Move(dx, dy float32) {
	c.position = c.position.Add(mgl32.Vec2{dx, dy})
	c.isDirty = true
}

func (c *Camera) Zoom() float32 {
	return c.zoom
}

// SetZoom scales the view. Values above 1 magnify. Non positive values are
// clamped to a small epsilon so the projection stays invertible.
func (c *Camera) SetZoom(zoom float32) {
	c.zoom = core.Clamp(zoom, 1e-6, float32(stdmath.MaxFloat32))
	c.isDirty = true
}

func (c *Camera) Rotation() float32 {
	return c.rotation
}

// SetRotation sets the view angle in counterclockwise radians.
func (c *Camera) SetRotation(radians float32) {
	c.rotation = float32(stdmath.Mod(float64(radians), 2*stdmath.Pi))
	c.isDirty = true
}

// Rotate turns the view by an angle in counterclockwise radians.
func (c *Camera) Rotate(radians float32) {
	c.SetRotation(c.rotation + radians)
}

// ViewportResize updates the viewport dimensions, keeping the world height
// and letting the width follow the new aspect ratio. Fails with
// core.ErrInvalidViewport on non positive dimensions; camera state is left
// untouched in that case.
func (c *Camera) ViewportResize(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("camera: viewport %dx%d: %w", width, height, core.ErrInvalidViewport)
	}
	c.viewportWidth = width
	c.viewportHeight = height
	c.isDirty = true
	return nil
}

func (c *Camera) Viewport() (uint32, uint32) {
	return c.viewportWidth, c.viewportHeight
}

// WorldSize returns the visible width and height in world units.
func (c *Camera) WorldSize() (float32, float32) {
	h := c.height / c.zoom
	w := h * float32(c.viewportWidth) / float32(c.viewportHeight)
	return w, h
}

// ViewProjection returns the combined view and orthographic projection for
// the current camera state. Recomputed only after a mutator ran.
func (c *Camera) ViewProjection() mgl32.Mat4 {
	if c.isDirty {
		w, h := c.WorldSize()
		// y-down orthographic projection centered on the camera.
		proj := mgl32.Ortho2D(-w/2, w/2, h/2, -h/2)
		view := mgl32.Ident4()
		if c.rotation != 0 {
			view = mgl32.HomogRotate3DZ(-c.rotation)
		}
		view = view.Mul4(mgl32.Translate3D(-c.position.X(), -c.position.Y(), 0))
		c.viewProjection = proj.Mul4(view)
		c.isDirty = false
	}
	return c.viewProjection
}

// ScreenToWorld converts a point in screen pixels (origin top left) to world
// space under the current camera state.
func (c *Camera) ScreenToWorld(x, y float32) (float32, float32) {
	w, h := c.WorldSize()
	// pixels -> world units relative to the view center
	wx := (x - float32(c.viewportWidth)/2) * w / float32(c.viewportWidth)
	wy := (y - float32(c.viewportHeight)/2) * h / float32(c.viewportHeight)
	if c.rotation != 0 {
		cos := float32(stdmath.Cos(float64(c.rotation)))
		sin := float32(stdmath.Sin(float64(c.rotation)))
		wx, wy = cos*wx-sin*wy, sin*wx+cos*wy
	}
	return wx + c.position.X(), wy + c.position.Y()
}
