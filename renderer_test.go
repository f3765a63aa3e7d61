//go:build !nogpu

package sprite

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/sprite/assets"
	"github.com/gogpu/sprite/render"
	"github.com/gogpu/sprite/scene"
)

// openNoop opens a noop HAL device and queue.
func openNoop(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

func halProvider(device hal.Device, queue hal.Queue) render.DeviceHandle {
	return render.NewHalDeviceHandle(device, queue, gputypes.TextureFormatUndefined,
		gpucontext.AdapterInfo{Name: "noop", Type: gpucontext.AdapterTypeSoftware})
}

// noopProvider opens a noop HAL device wrapped as a DeviceHandle.
func noopProvider(t *testing.T) render.DeviceHandle {
	t.Helper()
	return halProvider(openNoop(t))
}

// laggingQueue never reports a submission as completed.
type laggingQueue struct{ hal.Queue }

func (laggingQueue) PollCompleted() uint64 { return 0 }

// callLog records texture destruction and idle waits.
type callLog struct {
	hal.Device
	calls []string
}

func (d *callLog) DestroyTexture(tex hal.Texture) {
	d.calls = append(d.calls, "DestroyTexture")
	d.Device.DestroyTexture(tex)
}

func (d *callLog) WaitIdle() error {
	d.calls = append(d.calls, "WaitIdle")
	return d.Device.WaitIdle()
}

// waitedBeforeDestroy reports whether a WaitIdle precedes the first
// DestroyTexture, and whether any texture was destroyed at all.
func (d *callLog) waitedBeforeDestroy() (waited, destroyed bool) {
	for _, c := range d.calls {
		switch c {
		case "WaitIdle":
			waited = true
		case "DestroyTexture":
			return waited, true
		}
	}
	return waited, false
}

func newTestRenderer(t *testing.T, opts ...RendererOption) *Renderer {
	t.Helper()
	r, err := NewRenderer(noopProvider(t), opts...)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	t.Cleanup(r.Destroy)
	return r
}

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{G: 255, A: 255})
		}
	}
	return img
}

// countingPass is a PassEncoder that counts draws.
type countingPass struct {
	draws     int
	instances uint32
}

func (*countingPass) SetPipeline(hal.RenderPipeline)                          {}
func (*countingPass) SetBindGroup(uint32, hal.BindGroup, []uint32)            {}
func (*countingPass) SetVertexBuffer(uint32, hal.Buffer, uint64)              {}
func (*countingPass) SetIndexBuffer(hal.Buffer, gputypes.IndexFormat, uint64) {}

func (p *countingPass) DrawIndexed(_, instanceCount, _ uint32, _ int32, _ uint32) {
	p.draws++
	p.instances += instanceCount
}

func TestNewRendererRejectsNonHalProvider(t *testing.T) {
	if _, err := NewRenderer(render.NullDeviceHandle{}); !errors.Is(err, ErrNotHalDevice) {
		t.Errorf("err = %v, want ErrNotHalDevice", err)
	}
	if _, err := NewRenderer(nil); !errors.Is(err, ErrNotHalDevice) {
		t.Errorf("nil provider err = %v, want ErrNotHalDevice", err)
	}
}

func TestNewRendererRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleCount = 5
	if _, err := NewRenderer(noopProvider(t), WithConfig(cfg)); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestNewRendererRejectsInvalidShader(t *testing.T) {
	_, err := NewRenderer(noopProvider(t), WithShaderSource("fn broken( {"))
	if !errors.Is(err, assets.ErrShader) {
		t.Errorf("err = %v, want ErrShader", err)
	}
}

func TestRendererStagesByHand(t *testing.T) {
	r := newTestRenderer(t)
	w := scene.NewWorld()
	tex := assets.HandleFromPath("ship.png")
	w.SpawnSprite(scene.FromTranslation(10, 10, 2), true, scene.Sprite{Texture: tex})
	w.SpawnSprite(scene.FromTranslation(20, 10, 1), true, scene.Sprite{Texture: tex})
	w.SpawnSprite(scene.FromTranslation(30, 10, 0), false, scene.Sprite{Texture: tex})
	if err := r.UploadTexture(tex, solid(4, 4)); err != nil {
		t.Fatal(err)
	}

	r.Phases().Insert(1)
	views := []render.View{render.OrthographicView(1, 100, 100, -10, 10, render.AllEntities{})}

	n, err := r.Extract(w)
	if err != nil || n != 2 {
		t.Fatalf("Extract = %d, %v", n, err)
	}
	if err := r.Queue(views); err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if err := r.Prepare(views); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	pass := &countingPass{}
	es, err := r.Encode(pass, 1)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if es.Drawn != 2 || pass.draws != 2 || pass.instances != 2 {
		t.Errorf("encode = %+v, pass = %+v", es, pass)
	}

	s := r.Stats()
	if s.Extracted != 2 || s.Prepared != 2 || s.Queued[1] != 2 || s.Encoded.Drawn != 2 {
		t.Errorf("stats = %+v", s)
	}
	if s.Pipelines != 1 {
		t.Errorf("pipelines = %d", s.Pipelines)
	}
}

func TestRenderFrame(t *testing.T) {
	r := newTestRenderer(t)
	w := scene.NewWorld()
	tex := assets.HandleFromPath("ship.png")
	w.SpawnSprite(scene.FromTranslation(0, 0, 0), true, scene.Sprite{Texture: tex})
	w.SpawnSprite(scene.FromTranslation(5, 0, 1), true,
		scene.Sprite{Texture: assets.HandleFromPath("later.png")})

	if err := r.UploadTexture(tex, solid(2, 2)); err != nil {
		t.Fatal(err)
	}
	r.Phases().Insert(1)
	views := []render.View{
		render.OrthographicView(1, 64, 64, -10, 10, render.AllEntities{}),
		render.OrthographicView(2, 64, 64, -10, 10, render.AllEntities{}),
	}

	target, err := r.NewTarget(64, 64)
	if err != nil {
		t.Fatalf("NewTarget: %v", err)
	}
	defer target.Destroy()
	if target.Texture() == nil {
		t.Fatal("target has no texture")
	}

	s, err := r.RenderFrame(w, views, target)
	if err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	if s.Frame != 1 {
		t.Errorf("frame = %d", s.Frame)
	}
	if s.Prepared != 1 || s.Deferred != 1 {
		t.Errorf("prepared=%d deferred=%d", s.Prepared, s.Deferred)
	}
	if s.Encoded.Drawn != 1 || s.Encoded.Skipped != 1 {
		t.Errorf("encoded = %+v", s.Encoded)
	}
	if len(s.MissingPhase) != 1 || s.MissingPhase[0] != 2 {
		t.Errorf("missing phase = %v", s.MissingPhase)
	}

	// The deferred sprite draws once its texture is resident.
	if err := r.UploadTexture(assets.HandleFromPath("later.png"), solid(2, 2)); err != nil {
		t.Fatal(err)
	}
	s, err = r.RenderFrame(w, views, target)
	if err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	if s.Frame != 2 || s.Encoded.Drawn != 2 || s.Deferred != 0 {
		t.Errorf("second frame = %+v", s)
	}
	if s.PipelineMisses != 1 || s.PipelineHits != 1 {
		t.Errorf("pipeline hits=%d misses=%d", s.PipelineHits, s.PipelineMisses)
	}
}

func TestReplacedTextureOutlivesInFlightFrame(t *testing.T) {
	device, queue := openNoop(t)
	dev := &callLog{Device: device}
	r, err := NewRenderer(halProvider(dev, laggingQueue{queue}))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Destroy()

	w := scene.NewWorld()
	tex := assets.HandleFromPath("hero.png")
	w.SpawnSprite(scene.FromTranslation(0, 0, 0), true, scene.Sprite{Texture: tex})
	if err := r.UploadTexture(tex, solid(2, 2)); err != nil {
		t.Fatal(err)
	}
	r.Phases().Insert(1)
	views := []render.View{render.OrthographicView(1, 16, 16, -1, 1, render.AllEntities{})}
	target, err := r.NewTarget(16, 16)
	if err != nil {
		t.Fatal(err)
	}
	defer target.Destroy()

	if _, err := r.RenderFrame(w, views, target); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}

	dev.calls = nil
	if err := r.UploadTexture(tex, solid(4, 4)); err != nil {
		t.Fatal(err)
	}
	if len(dev.calls) != 0 {
		t.Fatalf("upload during in-flight frame called %v", dev.calls)
	}

	if _, err := r.RenderFrame(w, views, target); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	waited, destroyed := dev.waitedBeforeDestroy()
	if !destroyed {
		t.Fatalf("replaced texture never destroyed: %v", dev.calls)
	}
	if !waited {
		t.Errorf("texture destroyed before waiting on the GPU: %v", dev.calls)
	}
}

func TestTargetResizeWaitsForInFlightFrame(t *testing.T) {
	device, queue := openNoop(t)
	dev := &callLog{Device: device}
	r, err := NewRenderer(halProvider(dev, laggingQueue{queue}))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Destroy()

	target, err := r.NewTarget(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	defer target.Destroy()
	if _, err := r.RenderFrame(scene.NewWorld(), nil, target); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}

	dev.calls = nil
	if err := target.Resize(8, 8); err != nil {
		t.Fatal(err)
	}
	if len(dev.calls) != 0 {
		t.Errorf("same-size resize called %v", dev.calls)
	}
	if err := target.Resize(32, 16); err != nil {
		t.Fatal(err)
	}
	if w, h := target.Size(); w != 32 || h != 16 {
		t.Errorf("Size = %dx%d", w, h)
	}
	waited, destroyed := dev.waitedBeforeDestroy()
	if !destroyed || !waited {
		t.Errorf("resize calls = %v, want WaitIdle before DestroyTexture", dev.calls)
	}
}

func TestHiddenSpriteLeavesEveryView(t *testing.T) {
	r := newTestRenderer(t)
	w := scene.NewWorld()
	tex := assets.HandleFromPath("a.png")
	e := w.SpawnSprite(scene.FromTranslation(0, 0, 0), true, scene.Sprite{Texture: tex})

	primary := r.Phases().Insert(1)
	minimap := r.Phases().Insert(2)
	views := []render.View{
		{ID: 1, Visible: render.AllEntities{}},
		{ID: 2, Visible: render.AllEntities{}},
	}
	if _, err := r.Extract(w); err != nil {
		t.Fatal(err)
	}
	if err := r.Queue(views); err != nil {
		t.Fatal(err)
	}
	if primary.Len() != 1 || minimap.Len() != 1 {
		t.Fatalf("lens = %d, %d", primary.Len(), minimap.Len())
	}

	w.SetVisible(e, false)
	if _, err := r.Extract(w); err != nil {
		t.Fatal(err)
	}
	if err := r.Queue(views[:1]); err != nil {
		t.Fatal(err)
	}
	if primary.Len() != 0 || minimap.Len() != 0 {
		t.Errorf("hidden sprite still queued: view 1 = %d, view 2 = %d", primary.Len(), minimap.Len())
	}
}

func TestRenderFrameSurvivesPipelineFailure(t *testing.T) {
	device, queue := openNoop(t)
	r, err := NewRenderer(halProvider(failingPipelineDevice{device}, queue))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Destroy()

	w := scene.NewWorld()
	tex := assets.HandleFromPath("a.png")
	w.SpawnSprite(scene.FromTranslation(0, 0, 0), true, scene.Sprite{Texture: tex})
	if err := r.UploadTexture(tex, solid(1, 1)); err != nil {
		t.Fatal(err)
	}
	r.Phases().Insert(1)
	target, err := r.NewTarget(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer target.Destroy()

	s, err := r.RenderFrame(w, []render.View{{ID: 1, Visible: render.AllEntities{}}}, target)
	if err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	if s.PipelineError == nil {
		t.Error("pipeline error not reported")
	}
	if s.Queued[1] != 1 || s.Encoded.Skipped != 1 || s.Encoded.Drawn != 0 {
		t.Errorf("stats = %+v", s)
	}
}

// failingPipelineDevice refuses to build render pipelines.
type failingPipelineDevice struct{ hal.Device }

func (failingPipelineDevice) CreateRenderPipeline(*hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	return nil, errors.New("pipeline rejected")
}

func TestRenderFrameNilTarget(t *testing.T) {
	r := newTestRenderer(t)
	if _, err := r.RenderFrame(scene.NewWorld(), nil, nil); !errors.Is(err, ErrNoTarget) {
		t.Errorf("err = %v, want ErrNoTarget", err)
	}
}

func TestRendererWithDepth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DepthFormat = "depth24plus-stencil8"
	cfg.SampleCount = 1
	cfg.SortOrder = render.Descending
	r := newTestRenderer(t, WithConfig(cfg))

	w := scene.NewWorld()
	tex := assets.HandleFromPath("a.png")
	_ = r.UploadTexture(tex, solid(1, 1))
	w.SpawnSprite(scene.FromTranslation(0, 0, 1), true, scene.Sprite{Texture: tex})
	w.SpawnSprite(scene.FromTranslation(0, 0, 5), true, scene.Sprite{Texture: tex})

	phase := r.Phases().Insert(1)
	target, err := r.NewTarget(16, 16)
	if err != nil {
		t.Fatal(err)
	}
	defer target.Destroy()

	views := []render.View{{ID: 1, Visible: render.AllEntities{}}}
	if _, err := r.RenderFrame(w, views, target); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	items := phase.Items()
	if len(items) != 2 || items[0].SortKey != 5 || items[1].SortKey != 1 {
		t.Errorf("items = %+v", items)
	}
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestSyncAssets(t *testing.T) {
	r := newTestRenderer(t)
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "ship.png"), solid(3, 3))

	srv := assets.NewServer(dir)
	defer srv.Close()
	h, err := srv.LoadImage("ship.png")
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if _, err := srv.LoadImage("missing.png"); err == nil {
		t.Fatal("expected load error")
	}

	n, err := r.SyncAssets(srv)
	if err != nil {
		t.Fatalf("SyncAssets: %v", err)
	}
	if n != 1 || !r.TextureResident(h) {
		t.Errorf("uploaded = %d, resident = %v", n, r.TextureResident(h))
	}

	// Nothing new to sync.
	if n, _ := r.SyncAssets(srv); n != 0 {
		t.Errorf("second sync uploaded %d", n)
	}

	if !r.EvictTexture(h) || r.TextureResident(h) {
		t.Error("EvictTexture did not release the texture")
	}
}

func TestRendererDestroy(t *testing.T) {
	r, err := NewRenderer(noopProvider(t))
	if err != nil {
		t.Fatal(err)
	}
	r.Destroy()
	r.Destroy()

	if _, err := r.Extract(scene.NewWorld()); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Extract err = %v", err)
	}
	if err := r.Queue(nil); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Queue err = %v", err)
	}
	if _, err := r.NewTarget(1, 1); !errors.Is(err, ErrDestroyed) {
		t.Errorf("NewTarget err = %v", err)
	}
	if err := r.UploadTexture(assets.HandleFromPath("a.png"), solid(1, 1)); !errors.Is(err, ErrDestroyed) {
		t.Errorf("UploadTexture err = %v", err)
	}
}

func TestSetLogger(t *testing.T) {
	defer SetLogger(nil)

	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := newTestRenderer(t, WithLogger(l))
	if Logger() != l {
		t.Error("logger not installed")
	}
	if !bytes.Contains(buf.Bytes(), []byte("renderer created")) {
		t.Errorf("log output = %q", buf.String())
	}

	r.Phases().Insert(1)
	if _, err := r.Extract(scene.NewWorld()); err != nil {
		t.Fatal(err)
	}
	if err := r.Queue([]render.View{{ID: 9}}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("no render phase found for view")) {
		t.Error("missing phase not logged")
	}

	SetLogger(nil)
	if Logger().Enabled(t.Context(), slog.LevelError) {
		t.Error("nil logger should disable output")
	}
}
