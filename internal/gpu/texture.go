//go:build !nogpu

package gpu

import (
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/sprite/assets"
)

// spriteTextureFormat is the format sprite images are uploaded in. Image
// bytes are sRGB encoded, so sampling yields linear values.
const spriteTextureFormat = gputypes.TextureFormatRGBA8UnormSrgb

type residentTexture struct {
	tex    hal.Texture
	view   hal.TextureView
	width  uint32
	height uint32
}

// TextureStore tracks which sprite textures are resident on the GPU.
//
// Prepare asks the store for a texture view per sprite. A missing entry is
// the normal "asset still loading" state and resolves itself once the image
// is uploaded.
//
// Textures replaced by a resizing upload or evicted may still be referenced
// by submitted work. They are retired and only destroyed by ReleaseRetired,
// which the caller runs once that work has completed.
type TextureStore struct {
	device hal.Device
	queue  hal.Queue

	mu       sync.RWMutex
	textures map[assets.Handle]*residentTexture
	retired  []*residentTexture
}

// NewTextureStore creates an empty store.
func NewTextureStore(device hal.Device, queue hal.Queue) (*TextureStore, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	return &TextureStore{
		device:   device,
		queue:    queue,
		textures: make(map[assets.Handle]*residentTexture),
	}, nil
}

// Upload makes img resident under h. If a texture of the same size is
// already resident its contents are overwritten; otherwise it is replaced.
func (s *TextureStore) Upload(h assets.Handle, img *image.RGBA) error {
	if img == nil || img.Rect.Empty() {
		return ErrEmptyImage
	}
	w := uint32(img.Rect.Dx()) //nolint:gosec // image bounds are non-negative
	ht := uint32(img.Rect.Dy()) //nolint:gosec // image bounds are non-negative

	s.mu.Lock()
	defer s.mu.Unlock()

	rt := s.textures[h]
	if rt == nil || rt.width != w || rt.height != ht {
		created, err := s.create(h, w, ht)
		if err != nil {
			return err
		}
		if rt != nil {
			s.retired = append(s.retired, rt)
		}
		rt = created
		s.textures[h] = rt
	}

	size := hal.Extent3D{Width: w, Height: ht, DepthOrArrayLayers: 1}
	err := s.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  rt.tex,
			MipLevel: 0,
			Aspect:   gputypes.TextureAspectAll,
		},
		img.Pix,
		&hal.ImageDataLayout{
			Offset:       uint64(img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y)), //nolint:gosec // offset is non-negative
			BytesPerRow:  uint32(img.Stride),                                    //nolint:gosec // stride fits uint32
			RowsPerImage: ht,
		},
		&size,
	)
	if err != nil {
		s.destroy(rt)
		delete(s.textures, h)
		return fmt.Errorf("upload texture %s: %w", h, err)
	}

	slogger().Debug("gpu: texture resident", "handle", h, "width", w, "height", ht)
	return nil
}

func (s *TextureStore) create(h assets.Handle, w, ht uint32) (*residentTexture, error) {
	label := "sprite_texture_" + h.String()
	tex, err := s.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: w, Height: ht, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        spriteTextureFormat,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %s: %w", h, err)
	}
	view, err := s.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        spriteTextureFormat,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		s.device.DestroyTexture(tex)
		return nil, fmt.Errorf("create texture view %s: %w", h, err)
	}
	return &residentTexture{tex: tex, view: view, width: w, height: ht}, nil
}

func (s *TextureStore) destroy(rt *residentTexture) {
	if rt.view != nil {
		s.device.DestroyTextureView(rt.view)
	}
	if rt.tex != nil {
		s.device.DestroyTexture(rt.tex)
	}
}

// View returns the texture view for h, or ErrTextureNotResident.
func (s *TextureStore) View(h assets.Handle) (hal.TextureView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rt, ok := s.textures[h]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTextureNotResident, h)
	}
	return rt.view, nil
}

// Resident reports whether h has been uploaded.
func (s *TextureStore) Resident(h assets.Handle) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.textures[h]
	return ok
}

// Size returns the dimensions of the resident texture h.
func (s *TextureStore) Size(h assets.Handle) (width, height uint32, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rt, ok := s.textures[h]
	if !ok {
		return 0, 0, false
	}
	return rt.width, rt.height, true
}

// Evict releases the texture for h.
func (s *TextureStore) Evict(h assets.Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.textures[h]
	if !ok {
		return false
	}
	s.retired = append(s.retired, rt)
	delete(s.textures, h)
	return true
}

// Retired returns the number of textures waiting for ReleaseRetired.
func (s *TextureStore) Retired() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.retired)
}

// ReleaseRetired destroys textures that were replaced or evicted. The GPU
// must have finished every submission that could sample them.
func (s *TextureStore) ReleaseRetired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releaseRetiredLocked()
}

func (s *TextureStore) releaseRetiredLocked() int {
	n := len(s.retired)
	for i, rt := range s.retired {
		s.destroy(rt)
		s.retired[i] = nil
	}
	s.retired = s.retired[:0]
	if n > 0 {
		slogger().Debug("gpu: retired textures released", "count", n)
	}
	return n
}

// Len returns the number of resident textures.
func (s *TextureStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.textures)
}

// Destroy releases every resident and retired texture.
func (s *TextureStore) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseRetiredLocked()
	for h, rt := range s.textures {
		s.destroy(rt)
		delete(s.textures, h)
	}
}
