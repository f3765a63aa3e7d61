// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render defines the vocabulary shared between a host application
// and the sprite renderer: device injection, views with their visible-entity
// sets, draw items and the sorted per-view phases they are queued into.
//
// # Key Principle
//
// The sprite renderer RECEIVES a GPU device from the host, it does NOT
// create one. The host implements DeviceHandle (or wraps a HAL device with
// NewHalDeviceHandle) and passes it to sprite.NewRenderer.
//
// # Views and Phases
//
// A View is a camera-like viewpoint. Each view owns one SortedPhase,
// registered in a ViewPhases registry by the host. A view without a
// registered phase is skipped for the frame.
//
//	phases := render.NewViewPhases()
//	phases.Insert(mainView.ID)
//
//	r.Queue([]render.View{mainView})
//	phase, _ := phases.Get(mainView.ID)
//	for _, item := range phase.Items() {
//	    // ...
//	}
package render
