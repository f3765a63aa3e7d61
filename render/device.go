// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrNotHalDevice is returned when a DeviceHandle does not expose a
// gogpu/wgpu HAL device and queue.
var ErrNotHalDevice = errors.New("render: device handle is not HAL-backed")

// DeviceHandle provides GPU device access from the host application.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider, so any host that
// already integrates with the gpucontext ecosystem can drive the sprite
// renderer without an adapter.
type DeviceHandle = gpucontext.DeviceProvider

// HalDevice extracts the HAL device and queue from a handle.
func HalDevice(h DeviceHandle) (hal.Device, hal.Queue, error) {
	if h == nil {
		return nil, nil, fmt.Errorf("%w: nil handle", ErrNotHalDevice)
	}
	dev, ok := h.Device().(hal.Device)
	if !ok || dev == nil {
		return nil, nil, fmt.Errorf("%w: device is %T", ErrNotHalDevice, h.Device())
	}
	queue, ok := h.Queue().(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, fmt.Errorf("%w: queue is %T", ErrNotHalDevice, h.Queue())
	}
	return dev, queue, nil
}

// HalDeviceHandle adapts a bare HAL device and queue to DeviceHandle.
// Used by headless tools and tests that open a HAL device directly.
type HalDeviceHandle struct {
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat
	info   gpucontext.AdapterInfo
}

// NewHalDeviceHandle wraps device and queue. format is reported as the
// surface format and may be TextureFormatUndefined for headless use.
func NewHalDeviceHandle(device hal.Device, queue hal.Queue, format gputypes.TextureFormat, info gpucontext.AdapterInfo) *HalDeviceHandle {
	return &HalDeviceHandle{device: device, queue: queue, format: format, info: info}
}

// Device returns the HAL device.
func (h *HalDeviceHandle) Device() gpucontext.Device { return h.device }

// Queue returns the HAL queue.
func (h *HalDeviceHandle) Queue() gpucontext.Queue { return h.queue }

// SurfaceFormat returns the configured surface format.
func (h *HalDeviceHandle) SurfaceFormat() gputypes.TextureFormat { return h.format }

// Adapter returns nil; HAL adapters are not exposed.
func (h *HalDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// AdapterInfo returns the adapter description given at construction.
func (h *HalDeviceHandle) AdapterInfo() gpucontext.AdapterInfo { return h.info }

// NullDeviceHandle is a DeviceHandle that provides nil implementations.
// Passing it to the renderer fails with ErrNotHalDevice.
type NullDeviceHandle struct{}

// Device returns nil for the null device.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns undefined format for the null device.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// AdapterInfo reports an unknown adapter.
func (NullDeviceHandle) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown}
}

var (
	_ DeviceHandle = NullDeviceHandle{}
	_ DeviceHandle = (*HalDeviceHandle)(nil)
)
