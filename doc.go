// Package ggcore runs GPU resources that are owned by a simulation thread
// and backed by a dedicated core thread.
//
// # Overview
//
// Every GPU resource is a pair: a simulation-side object that user code
// holds and mutates, and a core-side half that owns device memory and is
// only touched on the core thread. Changes flow from one to the other as
// commands queued through an accessor and synced once per frame.
//
// # Quick Start
//
//	rt, err := ggcore.New(config.Default())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer rt.Close()
//
//	layout := hwbuffer.NewVertexDataDesc()
//	_ = layout.AddElement(hwbuffer.SemanticPosition, 0, gputypes.VertexFormatFloat32x3, 0)
//
//	heap, err := rt.NewMeshHeap(layout, gputypes.IndexFormatUint32)
//	...
//	m, err := heap.Alloc(data, mesh.TriangleList)
//	heap.NotifyUsedOnGPU(rt.Accessor(), m)
//	heap.Dealloc(m)
//	_ = rt.EndFrame()
//
// # Architecture
//
// The module is organized into:
//   - corethread: the core thread, accessors and async results
//   - coreobject: the dual object model and per-frame sync
//   - query: event, timer and occlusion queries, GPU profiler
//   - hwbuffer: hardware buffer contract, layouts, parameter blocks
//   - mesh: the transient mesh heap
//   - backend: render devices (software, wgpu)
//   - config: YAML settings
//
// # Logging
//
// ggcore is silent by default. SetLogger enables structured logging for
// the root package and every sub-package.
package ggcore
