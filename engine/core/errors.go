package core

import (
	"errors"
)

// Renderer error taxonomy. Callers are expected to test against these with
// errors.Is; richer context is wrapped around them at the call site.
var (
	// ErrContextCreationFailed means the underlying graphics context could not
	// be obtained. Fatal at backend initialization, there is no retry.
	ErrContextCreationFailed = errors.New("graphics context creation failed")

	// ErrUnsupportedBackend means the requested backend is not recognized or
	// not available on this platform/build.
	ErrUnsupportedBackend = errors.New("unsupported renderer backend")

	// ErrInvalidResource rejects resource creation with bad inputs, such as
	// zero dimensions or a pixel format the active backend cannot take.
	ErrInvalidResource = errors.New("invalid resource")

	// ErrInvalidViewport rejects viewport updates with non-positive dimensions.
	ErrInvalidViewport = errors.New("invalid viewport dimensions")

	// ErrUnknownHandle means a handle is stale (destroyed, wrong generation)
	// or was never issued. Non fatal per submission; the frame continues.
	ErrUnknownHandle = errors.New("unknown resource handle")

	// ErrBackendNotReady means the backend was called out of lifecycle order,
	// for example a draw after shutdown. Programming error, not recoverable.
	ErrBackendNotReady = errors.New("renderer backend not ready")
)
