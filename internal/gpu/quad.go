//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// quadVertexStride is the byte size of one quad vertex (vec3<f32>).
const quadVertexStride = 12

// QuadIndexCount is the number of indices drawn per sprite instance.
const QuadIndexCount = 6

// quadVertices is the unit square in the XY plane, counter-clockwise.
var quadVertices = [4][3]float32{
	{0, 0, 0},
	{1, 0, 0},
	{1, 1, 0},
	{0, 1, 0},
}

// quadIndices forms two counter-clockwise triangles.
var quadIndices = [QuadIndexCount]uint32{0, 1, 2, 0, 2, 3}

// QuadMesh is the shared, immutable unit quad every sprite is drawn with.
// It is uploaded once at startup and read-only afterwards.
type QuadMesh struct {
	vertexBuf hal.Buffer
	indexBuf  hal.Buffer
}

// NewQuadMesh uploads the unit quad. A failure here is a startup failure.
func NewQuadMesh(device hal.Device, queue hal.Queue) (*QuadMesh, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}

	vb, err := createAndUploadBuffer(device, queue, "sprite_quad_vertices", quadVertexBytes(),
		gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, fmt.Errorf("quad vertices: %w", err)
	}
	ib, err := createAndUploadBuffer(device, queue, "sprite_quad_indices", quadIndexBytes(),
		gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst)
	if err != nil {
		device.DestroyBuffer(vb)
		return nil, fmt.Errorf("quad indices: %w", err)
	}

	slogger().Debug("gpu: quad mesh uploaded", "vertices", len(quadVertices), "indices", len(quadIndices))
	return &QuadMesh{vertexBuf: vb, indexBuf: ib}, nil
}

// Ready reports whether both buffers are uploaded.
func (q *QuadMesh) Ready() bool {
	return q != nil && q.vertexBuf != nil && q.indexBuf != nil
}

// VertexBuffer returns the quad vertex buffer.
func (q *QuadMesh) VertexBuffer() hal.Buffer { return q.vertexBuf }

// IndexBuffer returns the quad index buffer.
func (q *QuadMesh) IndexBuffer() hal.Buffer { return q.indexBuf }

// Destroy releases the quad buffers.
func (q *QuadMesh) Destroy(device hal.Device) {
	if q == nil || device == nil {
		return
	}
	if q.indexBuf != nil {
		device.DestroyBuffer(q.indexBuf)
		q.indexBuf = nil
	}
	if q.vertexBuf != nil {
		device.DestroyBuffer(q.vertexBuf)
		q.vertexBuf = nil
	}
}

func quadVertexBytes() []byte {
	buf := make([]byte, 0, len(quadVertices)*quadVertexStride)
	for _, v := range quadVertices {
		for _, c := range v {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(c))
		}
	}
	return buf
}

func quadIndexBytes() []byte {
	buf := make([]byte, 0, len(quadIndices)*4)
	for _, i := range quadIndices {
		buf = binary.LittleEndian.AppendUint32(buf, i)
	}
	return buf
}

// createAndUploadBuffer creates a GPU buffer and uploads data.
func createAndUploadBuffer(device hal.Device, queue hal.Queue, label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	if err := queue.WriteBuffer(buf, 0, data); err != nil {
		device.DestroyBuffer(buf)
		return nil, fmt.Errorf("write %s: %w", label, err)
	}
	return buf, nil
}
