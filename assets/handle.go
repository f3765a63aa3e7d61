// Package assets loads sprite images and shader sources by path and keeps
// them available to the renderer under stable handles.
package assets

import (
	"path/filepath"

	"github.com/google/uuid"
)

// namespace scopes name-based handles to this package.
var namespace = uuid.MustParse("6f1d2c43-3a7e-4d55-9b1c-2f6e5b8a9c01")

// Handle identifies an asset. Handles are derived from the asset path, so
// the same path always yields the same handle, before or after loading.
type Handle uuid.UUID

// HandleFromPath returns the handle for path. The path is cleaned and
// slash-separated first so equivalent spellings agree.
func HandleFromPath(path string) Handle {
	p := filepath.ToSlash(filepath.Clean(path))
	return Handle(uuid.NewSHA1(namespace, []byte(p)))
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool { return h == Handle(uuid.Nil) }

func (h Handle) String() string { return uuid.UUID(h).String() }
