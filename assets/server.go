package assets

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Kind is the asset category, derived from the file extension.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindImage
	KindShader
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindShader:
		return "shader"
	default:
		return "unknown"
	}
}

// KindOf returns the asset kind for path.
func KindOf(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp":
		return KindImage
	case ".wgsl":
		return KindShader
	default:
		return KindUnknown
	}
}

// EventType tells what happened to an asset.
type EventType uint8

const (
	Loaded EventType = iota
	Reloaded
	Failed
)

func (t EventType) String() string {
	switch t {
	case Loaded:
		return "loaded"
	case Reloaded:
		return "reloaded"
	default:
		return "failed"
	}
}

// Event records a change to an asset. Events are queued by the server and
// drained by the renderer once per frame.
type Event struct {
	Type   EventType
	Kind   Kind
	Handle Handle
	Path   string
	Err    error
}

// Server loads assets relative to a root directory.
//
// Server is safe for concurrent use. Loading and reloading happen on the
// caller's goroutine or the watcher goroutine; the render side only reads
// finished assets and drains events.
type Server struct {
	root string

	mu      sync.RWMutex
	images  map[Handle]*image.RGBA
	shaders map[Handle]string
	paths   map[Handle]string
	byFile  map[string]Handle
	events  []Event
	closed  bool

	watch *watcher
}

// NewServer creates a server reading assets under root.
func NewServer(root string) *Server {
	return &Server{
		root:    root,
		images:  make(map[Handle]*image.RGBA),
		shaders: make(map[Handle]string),
		paths:   make(map[Handle]string),
		byFile:  make(map[string]Handle),
	}
}

// Root returns the asset root directory.
func (s *Server) Root() string { return s.root }

// Load reads and decodes the asset at path, dispatching on its kind.
func (s *Server) Load(path string) (Handle, error) {
	switch KindOf(path) {
	case KindImage:
		return s.LoadImage(path)
	case KindShader:
		return s.LoadShader(path)
	default:
		return Handle{}, fmt.Errorf("%w: %s", ErrUnknownKind, path)
	}
}

// LoadImage reads and decodes the image at path.
func (s *Server) LoadImage(path string) (Handle, error) {
	h := HandleFromPath(path)
	img, err := s.readImage(path)
	if err != nil {
		s.fail(h, KindImage, path, err)
		return h, err
	}
	s.storeImage(h, path, img)
	return h, nil
}

// LoadShader reads and validates the WGSL shader at path.
func (s *Server) LoadShader(path string) (Handle, error) {
	h := HandleFromPath(path)
	src, err := s.readShader(path)
	if err != nil {
		s.fail(h, KindShader, path, err)
		return h, err
	}
	s.storeShader(h, path, src)
	return h, nil
}

// LoadAll loads every path in parallel. Handles are returned in argument
// order. The first error cancels the remaining loads.
func (s *Server) LoadAll(ctx context.Context, paths ...string) ([]Handle, error) {
	handles := make([]Handle, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			h, err := s.Load(p)
			handles[i] = h
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return handles, err
	}
	return handles, nil
}

// Image returns the decoded image for h.
func (s *Server) Image(h Handle) (*image.RGBA, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.images[h]
	return img, ok
}

// Shader returns the WGSL source for h.
func (s *Server) Shader(h Handle) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.shaders[h]
	return src, ok
}

// Path returns the path h was loaded from.
func (s *Server) Path(h Handle) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.paths[h]
	return p, ok
}

// Drain returns and clears the pending events.
func (s *Server) Drain() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := s.events
	s.events = nil
	return ev
}

// Reload re-reads the asset previously loaded from path.
func (s *Server) Reload(path string) error {
	h := HandleFromPath(path)
	switch KindOf(path) {
	case KindImage:
		img, err := s.readImage(path)
		if err != nil {
			s.fail(h, KindImage, path, err)
			return err
		}
		s.storeImage(h, path, img)
	case KindShader:
		src, err := s.readShader(path)
		if err != nil {
			s.fail(h, KindShader, path, err)
			return err
		}
		s.storeShader(h, path, src)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKind, path)
	}
	return nil
}

// Close stops the watcher, if any.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	w := s.watch
	s.watch = nil
	s.mu.Unlock()

	if w != nil {
		return w.close()
	}
	return nil
}

func (s *Server) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(s.root, path)
}

func (s *Server) readImage(path string) (*image.RGBA, error) {
	data, err := os.ReadFile(s.abs(path))
	if err != nil {
		return nil, fmt.Errorf("assets: read %s: %w", path, err)
	}
	img, err := DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("assets: %s: %w", path, err)
	}
	return img, nil
}

func (s *Server) readShader(path string) (string, error) {
	data, err := os.ReadFile(s.abs(path))
	if err != nil {
		return "", fmt.Errorf("assets: read %s: %w", path, err)
	}
	src := string(data)
	if err := ValidateShader(src); err != nil {
		return "", fmt.Errorf("assets: %s: %w", path, err)
	}
	return src, nil
}

func (s *Server) storeImage(h Handle, path string, img *image.RGBA) {
	s.mu.Lock()
	_, existed := s.images[h]
	s.images[h] = img
	s.track(h, path)
	s.push(h, KindImage, path, existed)
	s.mu.Unlock()
	slogger().Debug("assets: image stored", "path", path, "handle", h, "reload", existed)
}

func (s *Server) storeShader(h Handle, path, src string) {
	s.mu.Lock()
	_, existed := s.shaders[h]
	s.shaders[h] = src
	s.track(h, path)
	s.push(h, KindShader, path, existed)
	s.mu.Unlock()
	slogger().Debug("assets: shader stored", "path", path, "handle", h, "reload", existed)
}

// track must be called with s.mu held.
func (s *Server) track(h Handle, path string) {
	s.paths[h] = path
	s.byFile[s.abs(path)] = h
}

// push must be called with s.mu held.
func (s *Server) push(h Handle, k Kind, path string, reload bool) {
	t := Loaded
	if reload {
		t = Reloaded
	}
	s.events = append(s.events, Event{Type: t, Kind: k, Handle: h, Path: path})
}

func (s *Server) fail(h Handle, k Kind, path string, err error) {
	s.mu.Lock()
	s.events = append(s.events, Event{Type: Failed, Kind: k, Handle: h, Path: path, Err: err})
	s.mu.Unlock()
	slogger().Warn("assets: load failed", "path", path, "err", err)
}
