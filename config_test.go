//go:build !nogpu

package sprite

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/sprite/render"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.SortOrder != render.Ascending {
		t.Errorf("SortOrder = %v", cfg.SortOrder)
	}
	if cfg.SampleCount != 4 {
		t.Errorf("SampleCount = %d", cfg.SampleCount)
	}
	if cfg.DepthFormat != "" {
		t.Errorf("DepthFormat = %q", cfg.DepthFormat)
	}
}

func TestParseConfig(t *testing.T) {
	data := []byte(`
sort_order   = "descending"
sample_count = 1
depth_format = "depth24plus-stencil8"
color_format = "bgra8unorm"
filter       = "nearest"
clear_color  = [0.25, 0.5, 0.75, 1.0]
`)
	cfg, err := ParseConfig(data)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.SortOrder != render.Descending || cfg.SampleCount != 1 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.clearColor() != (gputypes.Color{R: 0.25, G: 0.5, B: 0.75, A: 1}) {
		t.Errorf("clear color = %+v", cfg.clearColor())
	}
	if f := cfg.colorFormat(gputypes.TextureFormatRGBA8Unorm); f != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("color format = %v", f)
	}
}

func TestParseConfigKeepsDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`filter = "nearest"`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SampleCount != 4 || cfg.SortOrder != render.Ascending {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestParseConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"sample count", `sample_count = 3`},
		{"depth format", `depth_format = "stencil8"`},
		{"color format", `color_format = "r8unorm"`},
		{"filter", `filter = "cubic"`},
		{"clear color", `clear_color = [2.0, 0.0, 0.0, 1.0]`},
		{"sort order", `sort_order = "sideways"`},
		{"syntax", `sample_count = `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseConfig([]byte(tt.data)); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sprite.toml")
	if err := os.WriteFile(path, []byte("sample_count = 2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.SampleCount != 2 {
		t.Errorf("SampleCount = %d", cfg.SampleCount)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestColorFormatFallback(t *testing.T) {
	cfg := DefaultConfig()
	if f := cfg.colorFormat(gputypes.TextureFormatBGRA8Unorm); f != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("surface format not used: %v", f)
	}
	if f := cfg.colorFormat(gputypes.TextureFormatUndefined); f != gputypes.TextureFormatRGBA8UnormSrgb {
		t.Errorf("fallback = %v", f)
	}
}
