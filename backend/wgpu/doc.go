// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu provides the GPU render device, built on the gogpu/wgpu
// hardware abstraction layer.
//
// The device does not open an adapter itself. It shares the HAL device and
// queue of a host application through a gpucontext.DeviceProvider whose
// HalDevice and HalQueue methods return hal.Device and hal.Queue:
//
//	wgpu.SetProvider(app)
//	dev, err := backend.Open(backend.BackendWGPU)
//
// Without a provider Init fails with backend.ErrBackendNotAvailable, so
// backend.Open("") falls back to the next registered backend.
//
// # Buffers
//
// Every hardware buffer keeps a CPU shadow copy. Writes go to both the
// shadow and the GPU buffer through the queue; reads are served from the
// shadow, which never falls behind since the GPU only changes these
// buffers through CopyData, which mirrors the copy.
//
// # Queries
//
// Event and timer queries submit an empty command buffer and remember its
// submission index. IsReady compares it with the queue's PollCompleted
// without blocking. Timer queries report the wall-clock time between Begin
// and the moment the submission was first seen completed. Occlusion
// queries are not supported.
//
// Submitted command buffers stay with the device until their index
// completes, so re-issuing a query never waits for the GPU.
package wgpu
