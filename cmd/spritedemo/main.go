//go:build !nogpu

// Command spritedemo renders a grid of sprites headlessly on the noop HAL
// backend and logs per-frame statistics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/sprite"
	"github.com/gogpu/sprite/assets"
	"github.com/gogpu/sprite/render"
	"github.com/gogpu/sprite/scene"
)

const (
	width  = 800
	height = 600
)

func main() {
	var (
		configPath = flag.String("config", "", "TOML config file")
		imagePath  = flag.String("image", "", "sprite image (PNG, JPEG, GIF, BMP, WebP); a checkerboard if empty")
		shaderPath = flag.String("shader", "", "replacement WGSL sprite shader")
		frames     = flag.Int("frames", 3, "number of frames to render")
		count      = flag.Int("sprites", 16, "number of sprites")
		watch      = flag.Bool("watch", false, "reload the image on change between frames")
		interval   = flag.Duration("interval", 100*time.Millisecond, "delay between frames with -watch")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "spritedemo",
	})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}
	sprite.SetLogger(slog.New(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, options{
		configPath: *configPath,
		imagePath:  *imagePath,
		shaderPath: *shaderPath,
		frames:     *frames,
		sprites:    *count,
		watch:      *watch,
		interval:   *interval,
	}); err != nil {
		logger.Fatal("spritedemo failed", "err", err)
	}
}

type options struct {
	configPath string
	imagePath  string
	shaderPath string
	frames     int
	sprites    int
	watch      bool
	interval   time.Duration
}

// loadShader loads a shader named on the command line. path is relative to
// the working directory, not the asset root.
func loadShader(srv *assets.Server, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	h, err := srv.LoadShader(abs)
	if err != nil {
		return "", err
	}
	src, _ := srv.Shader(h)
	return src, nil
}

func run(ctx context.Context, o options) error {
	cfg := sprite.DefaultConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = sprite.LoadConfig(o.configPath); err != nil {
			return err
		}
	}

	device, queue, closeDevice, err := openNoopDevice()
	if err != nil {
		return err
	}
	defer closeDevice()

	root := "."
	if o.imagePath != "" {
		root = filepath.Dir(o.imagePath)
	}
	srv := assets.NewServer(root)
	defer srv.Close()

	rendererOpts := []sprite.RendererOption{sprite.WithConfig(cfg)}
	if o.shaderPath != "" {
		src, err := loadShader(srv, o.shaderPath)
		if err != nil {
			return err
		}
		rendererOpts = append(rendererOpts, sprite.WithShaderSource(src))
	}

	provider := render.NewHalDeviceHandle(device, queue, gputypes.TextureFormatUndefined,
		gpucontext.AdapterInfo{Name: "noop", Type: gpucontext.AdapterTypeSoftware})
	r, err := sprite.NewRenderer(provider, rendererOpts...)
	if err != nil {
		return err
	}
	defer r.Destroy()

	var tex assets.Handle
	if o.imagePath != "" {
		if tex, err = srv.LoadImage(filepath.Base(o.imagePath)); err != nil {
			return err
		}
	} else {
		tex = assets.HandleFromPath("checker.png")
		if err := r.UploadTexture(tex, checkerboard(32, 8)); err != nil {
			return err
		}
	}
	if _, err := r.SyncAssets(srv); err != nil {
		return err
	}

	if o.watch && o.imagePath != "" {
		if err := srv.Watch(ctx); err != nil {
			return err
		}
	}

	world, half := buildScene(o.sprites, tex)
	views := []render.View{
		render.OrthographicView(1, width, height, -1000, 1000, render.AllEntities{}),
		{
			ID:             2,
			ViewProjection: mgl32.Ortho(0, width/2, 0, height/2, -1000, 1000),
			Visible:        half,
		},
	}
	for _, v := range views {
		r.Phases().Insert(v.ID)
	}

	target, err := r.NewTarget(width, height)
	if err != nil {
		return err
	}
	defer target.Destroy()

	for i := 0; i < o.frames; i++ {
		if ctx.Err() != nil {
			break
		}
		if _, err := r.SyncAssets(srv); err != nil {
			sprite.Logger().Warn("asset sync failed", "err", err)
		}
		s, err := r.RenderFrame(world, views, target)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		sprite.Logger().Info("frame rendered",
			"frame", s.Frame,
			"extracted", s.Extracted,
			"queued_all", s.Queued[1],
			"queued_half", s.Queued[2],
			"prepared", s.Prepared,
			"deferred", s.Deferred,
			"drawn", s.Encoded.Drawn,
			"skipped", s.Encoded.Skipped,
			"pipelines", s.Pipelines)
		if o.watch {
			select {
			case <-ctx.Done():
			case <-time.After(o.interval):
			}
		}
	}
	return nil
}

// buildScene spawns n sprites on a grid at increasing depth. The last one
// is hidden. The returned set holds every other sprite.
func buildScene(n int, tex assets.Handle) (*scene.World, render.EntitySet) {
	w := scene.NewWorld()
	half := render.NewEntitySet()
	const cols, cell = 8, 64
	for i := range n {
		x := float32(i%cols) * cell
		y := float32(i/cols) * cell
		t := scene.FromTRS(mgl32.Vec3{x, y, float32(i)}, float32(i)*0.1, mgl32.Vec3{48, 48, 1})
		e := w.SpawnSprite(t, i != n-1, scene.Sprite{Texture: tex})
		if i%2 == 0 {
			half.Add(e)
		}
	}
	return w, half
}

func checkerboard(size, cell int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	light := color.RGBA{R: 230, G: 230, B: 230, A: 255}
	dark := color.RGBA{R: 40, G: 90, B: 160, A: 255}
	for y := range size {
		for x := range size {
			c := dark
			if (x/cell+y/cell)%2 == 0 {
				c = light
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func openNoopDevice() (hal.Device, hal.Queue, func(), error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, nil, errors.New("no adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, nil, fmt.Errorf("open device: %w", err)
	}
	return openDev.Device, openDev.Queue, func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}, nil
}
