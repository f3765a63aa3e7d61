package assets

import "errors"

var (
	// ErrDecode is returned when image bytes cannot be decoded.
	ErrDecode = errors.New("assets: image decode failed")

	// ErrShader is returned when a shader source fails validation.
	ErrShader = errors.New("assets: invalid shader")

	// ErrUnknownKind is returned for paths whose extension maps to no loader.
	ErrUnknownKind = errors.New("assets: unknown asset kind")

	// ErrClosed is returned by operations on a closed server.
	ErrClosed = errors.New("assets: server closed")
)
