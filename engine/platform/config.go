package platform

// Config selects the window shape and the kind of GL context to request.
// On desktop the Backend name picks the GLFW client API hints; in the
// browser it is informational only, the canvas always carries WebGL2.
type Config struct {
	Title  string
	Width  uint32
	Height uint32
	// Backend is the renderer backend the context is created for.
	Backend string
	VSync   bool
	// CanvasID is the DOM id of the target canvas. Browser builds only.
	CanvasID string
}
