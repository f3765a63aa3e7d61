//go:build !nogpu

package gpu

import (
	"image"
	"image/color"
	"testing"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/sprite/render"
)

// createNoopDevice creates a noop device and queue for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
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
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// loggingDevice records texture destruction and idle waits.
type loggingDevice struct {
	hal.Device
	calls []string
}

func (d *loggingDevice) DestroyTexture(tex hal.Texture) {
	d.calls = append(d.calls, "DestroyTexture")
	d.Device.DestroyTexture(tex)
}

func (d *loggingDevice) WaitIdle() error {
	d.calls = append(d.calls, "WaitIdle")
	return d.Device.WaitIdle()
}

func (d *loggingDevice) count(op string) int {
	n := 0
	for _, c := range d.calls {
		if c == op {
			n++
		}
	}
	return n
}

// bufferBytes reads back a noop buffer.
func bufferBytes(t *testing.T, device hal.Device, buf hal.Buffer, size uint64) []byte {
	t.Helper()
	m, err := device.MapBuffer(buf, 0, size)
	if err != nil {
		t.Fatalf("MapBuffer: %v", err)
	}
	return unsafe.Slice((*byte)(m.Ptr), size)
}

func solidImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		img.SetRGBA(i%w, i/w, color.RGBA{R: 255, A: 255})
	}
	return img
}

type passCall struct {
	op   string
	args []any
}

// recordingPass is a PassEncoder that records calls.
type recordingPass struct {
	calls []passCall
}

func (r *recordingPass) record(op string, args ...any) {
	r.calls = append(r.calls, passCall{op: op, args: args})
}

func (r *recordingPass) SetPipeline(p hal.RenderPipeline) { r.record("SetPipeline", p) }

func (r *recordingPass) SetBindGroup(index uint32, g hal.BindGroup, _ []uint32) {
	r.record("SetBindGroup", index, g)
}

func (r *recordingPass) SetVertexBuffer(slot uint32, b hal.Buffer, offset uint64) {
	r.record("SetVertexBuffer", slot, b, offset)
}

func (r *recordingPass) SetIndexBuffer(b hal.Buffer, f gputypes.IndexFormat, offset uint64) {
	r.record("SetIndexBuffer", b, f, offset)
}

func (r *recordingPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	r.record("DrawIndexed", indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func (r *recordingPass) ops() []string {
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.op
	}
	return out
}

func (r *recordingPass) draws() []passCall {
	var out []passCall
	for _, c := range r.calls {
		if c.op == "DrawIndexed" {
			out = append(out, c)
		}
	}
	return out
}

// testRig wires the core together on a noop device.
type testRig struct {
	device   hal.Device
	queue    hal.Queue
	quad     *QuadMesh
	pipeline *SpritePipeline
	cache    *PipelineCache
	textures *TextureStore
	draws    *DrawFunctions
	drawFn   render.DrawFunctionID
	phases   *render.ViewPhases
	frame    *Frame
	key      PipelineKey
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)

	quad, err := NewQuadMesh(device, queue)
	if err != nil {
		t.Fatalf("NewQuadMesh: %v", err)
	}
	sp, err := NewSpritePipeline(device, SpritePipelineConfig{Filter: gputypes.FilterModeLinear})
	if err != nil {
		t.Fatalf("NewSpritePipeline: %v", err)
	}
	textures, err := NewTextureStore(device, queue)
	if err != nil {
		t.Fatalf("NewTextureStore: %v", err)
	}
	draws := &DrawFunctions{}
	r := &testRig{
		device:   device,
		queue:    queue,
		quad:     quad,
		pipeline: sp,
		cache:    NewPipelineCache(sp),
		textures: textures,
		draws:    draws,
		drawFn:   draws.Add(SpriteDrawFunction()),
		phases:   render.NewViewPhases(),
		frame:    NewFrame(),
		key: PipelineKey{
			SampleCount: 4,
			ColorFormat: gputypes.TextureFormatRGBA8UnormSrgb,
		},
	}
	t.Cleanup(func() {
		r.frame.Release(device)
		r.cache.Destroy()
		r.textures.Destroy()
		r.pipeline.Destroy()
		r.quad.Destroy(device)
		cleanup()
	})
	return r
}

func (r *testRig) queueParams() QueueParams {
	return QueueParams{
		Phases:       r.phases,
		Pipelines:    r.cache,
		Key:          r.key,
		DrawFunction: r.drawFn,
		Order:        render.Ascending,
	}
}

func (r *testRig) prepareParams() PrepareParams {
	return PrepareParams{
		Device:   r.device,
		Queue:    r.queue,
		Pipeline: r.pipeline,
		Textures: r.textures,
	}
}

func (r *testRig) drawContext(view render.ViewID) *DrawContext {
	return &DrawContext{Frame: r.frame, View: view, Pipelines: r.cache, Quad: r.quad}
}
