//go:build !nogpu

package sprite

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/sprite/render"
)

// ErrInvalidConfig is returned by Validate and LoadConfig.
var ErrInvalidConfig = errors.New("sprite: invalid config")

// Config controls how the renderer builds pipelines and targets.
//
// Example sprite.toml:
//
//	sort_order   = "ascending"
//	sample_count = 4
//	depth_format = "depth24plus-stencil8"
//	filter       = "nearest"
//	clear_color  = [0.1, 0.1, 0.1, 1.0]
type Config struct {
	// SortOrder orders each view's phase by sprite depth.
	SortOrder render.SortOrder `toml:"sort_order"`

	// SampleCount is the multisample count of the pipeline and target.
	// One of 1, 2, 4, 8.
	SampleCount uint32 `toml:"sample_count"`

	// DepthFormat names the depth/stencil attachment format, or "" for none.
	DepthFormat string `toml:"depth_format"`

	// ColorFormat overrides the color target format. Empty means the
	// provider's surface format, or rgba8unorm-srgb when it has none.
	ColorFormat string `toml:"color_format"`

	// Filter is the sprite texture filter: "linear" or "nearest".
	Filter string `toml:"filter"`

	// ClearColor is the RGBA clear color of RenderFrame targets.
	ClearColor [4]float64 `toml:"clear_color"`
}

// DefaultConfig returns the default renderer configuration.
func DefaultConfig() Config {
	return Config{
		SortOrder:   render.Ascending,
		SampleCount: 4,
		Filter:      "linear",
		ClearColor:  [4]float64{0, 0, 0, 1},
	}
}

// LoadConfig reads a TOML file on top of DefaultConfig and validates it.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("sprite: read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes TOML on top of DefaultConfig and validates it.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch c.SampleCount {
	case 1, 2, 4, 8:
	default:
		return fmt.Errorf("%w: sample_count %d", ErrInvalidConfig, c.SampleCount)
	}
	if c.SortOrder != render.Ascending && c.SortOrder != render.Descending {
		return fmt.Errorf("%w: sort_order %d", ErrInvalidConfig, c.SortOrder)
	}
	if _, err := parseDepthFormat(c.DepthFormat); err != nil {
		return err
	}
	if c.ColorFormat != "" {
		if _, err := parseColorFormat(c.ColorFormat); err != nil {
			return err
		}
	}
	if _, err := parseFilter(c.Filter); err != nil {
		return err
	}
	for i, v := range c.ClearColor {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: clear_color[%d] = %v", ErrInvalidConfig, i, v)
		}
	}
	return nil
}

func (c Config) clearColor() gputypes.Color {
	return gputypes.Color{R: c.ClearColor[0], G: c.ClearColor[1], B: c.ClearColor[2], A: c.ClearColor[3]}
}

// colorFormat resolves the color target format against the surface format.
func (c Config) colorFormat(surface gputypes.TextureFormat) gputypes.TextureFormat {
	if c.ColorFormat != "" {
		if f, err := parseColorFormat(c.ColorFormat); err == nil {
			return f
		}
	}
	if surface != gputypes.TextureFormatUndefined {
		return surface
	}
	return gputypes.TextureFormatRGBA8UnormSrgb
}

var colorFormats = map[string]gputypes.TextureFormat{
	"rgba8unorm":      gputypes.TextureFormatRGBA8Unorm,
	"rgba8unorm-srgb": gputypes.TextureFormatRGBA8UnormSrgb,
	"bgra8unorm":      gputypes.TextureFormatBGRA8Unorm,
	"bgra8unorm-srgb": gputypes.TextureFormatBGRA8UnormSrgb,
}

var depthFormats = map[string]gputypes.TextureFormat{
	"":                      gputypes.TextureFormatUndefined,
	"none":                  gputypes.TextureFormatUndefined,
	"depth24plus":           gputypes.TextureFormatDepth24Plus,
	"depth24plus-stencil8":  gputypes.TextureFormatDepth24PlusStencil8,
	"depth32float":          gputypes.TextureFormatDepth32Float,
	"depth32float-stencil8": gputypes.TextureFormatDepth32FloatStencil8,
}

func parseColorFormat(s string) (gputypes.TextureFormat, error) {
	f, ok := colorFormats[strings.ToLower(s)]
	if !ok {
		return gputypes.TextureFormatUndefined, fmt.Errorf("%w: color_format %q", ErrInvalidConfig, s)
	}
	return f, nil
}

func parseDepthFormat(s string) (gputypes.TextureFormat, error) {
	f, ok := depthFormats[strings.ToLower(s)]
	if !ok {
		return gputypes.TextureFormatUndefined, fmt.Errorf("%w: depth_format %q", ErrInvalidConfig, s)
	}
	return f, nil
}

func parseFilter(s string) (gputypes.FilterMode, error) {
	switch strings.ToLower(s) {
	case "", "linear":
		return gputypes.FilterModeLinear, nil
	case "nearest":
		return gputypes.FilterModeNearest, nil
	default:
		return 0, fmt.Errorf("%w: filter %q", ErrInvalidConfig, s)
	}
}
