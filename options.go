//go:build !nogpu

package sprite

import "log/slog"

// RendererOption configures a Renderer during creation.
//
// Example:
//
//	cfg, err := sprite.LoadConfig("sprite.toml")
//	...
//	r, err := sprite.NewRenderer(provider, sprite.WithConfig(cfg))
type RendererOption func(*rendererOptions)

type rendererOptions struct {
	config       Config
	shaderSource string
	logger       *slog.Logger
}

func defaultOptions() rendererOptions {
	return rendererOptions{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) RendererOption {
	return func(o *rendererOptions) {
		o.config = cfg
	}
}

// WithShaderSource replaces the built-in sprite shader. The source must
// keep the built-in entry points, bind groups and vertex locations.
func WithShaderSource(src string) RendererOption {
	return func(o *rendererOptions) {
		o.shaderSource = src
	}
}

// WithLogger installs l with SetLogger before the renderer is built.
func WithLogger(l *slog.Logger) RendererOption {
	return func(o *rendererOptions) {
		o.logger = l
	}
}
