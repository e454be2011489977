// Command heapdemo drives a mesh heap through a number of frames and logs
// the heap counters.
//
// Each frame allocates a few meshes of varying size, draws and releases
// meshes from earlier frames, and lets the software GPU finish its work a
// frame late, so both release orders are exercised.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand/v2"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/ggcore"
	"github.com/gogpu/ggcore/backend/software"
	"github.com/gogpu/ggcore/config"
	"github.com/gogpu/ggcore/hwbuffer"
	"github.com/gogpu/ggcore/mesh"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file")
		backendArg = flag.String("backend", "", "render backend (overrides config)")
		frames     = flag.Int("frames", 60, "number of frames to run")
		perFrame   = flag.Int("meshes", 4, "meshes allocated per frame")
		seed       = flag.Uint64("seed", 1, "random seed for mesh sizes")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("heapdemo: %v", err)
		}
	}
	if *verbose {
		cfg.Log.Level = "debug"
	} else if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	var opts []ggcore.Option
	if *backendArg != "" {
		opts = append(opts, ggcore.WithBackend(*backendArg))
	}
	rt, err := ggcore.New(cfg, opts...)
	if err != nil {
		log.Fatalf("heapdemo: %v", err)
	}

	if err := run(rt, *frames, *perFrame, *seed); err != nil {
		_ = rt.Close()
		log.Fatalf("heapdemo: %v", err)
	}
	if err := rt.Close(); err != nil {
		log.Fatalf("heapdemo: %v", err)
	}
}

func run(rt *ggcore.Runtime, frames, perFrame int, seed uint64) error {
	logger := ggcore.Logger()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	layout := hwbuffer.NewVertexDataDesc()
	if err := layout.AddElement(hwbuffer.SemanticPosition, 0, gputypes.VertexFormatFloat32x3, 0); err != nil {
		return err
	}
	if err := layout.AddElement(hwbuffer.SemanticColor, 0, gputypes.VertexFormatFloat32x4, 1); err != nil {
		return err
	}
	heap, err := rt.NewMeshHeap(layout, gputypes.IndexFormatUint32, mesh.WithLabel("demo"))
	if err != nil {
		return err
	}
	defer heap.Destroy()

	soft, _ := rt.Device().(*software.Device)
	var live []*mesh.TransientMesh

	for frame := 0; frame < frames; frame++ {
		// The GPU finishes last frame's work before this frame starts.
		if soft != nil {
			soft.Complete()
		}

		for i := 0; i < perFrame; i++ {
			m, err := allocMesh(heap, rng)
			if err != nil {
				return fmt.Errorf("frame %d: %w", frame, err)
			}
			live = append(live, m)
		}
		for _, m := range live {
			heap.NotifyUsedOnGPU(rt.Accessor(), m)
		}

		// Release the older half while the GPU may still read it.
		n := len(live) / 2
		for _, m := range live[:n] {
			heap.Dealloc(m)
		}
		live = append(live[:0], live[n:]...)

		if err := rt.EndFrame(); err != nil {
			return err
		}
		if frame%10 == 9 || frame == frames-1 {
			op := heap.Stats(rt.Accessor())
			if err := rt.Flush(); err != nil {
				return err
			}
			s := op.ReturnValue()
			logger.Info("heapdemo: frame", "frame", frame+1, "live", len(live), "stats", s.String())
		}
	}

	for _, m := range live {
		if err := m.AllocResult().ReturnValue(); err != nil {
			logger.Warn("heapdemo: allocation failed", "mesh", m.ID(), "err", err)
		}
	}
	return rt.Flush()
}

func allocMesh(heap *mesh.Heap, rng *rand.Rand) (*mesh.TransientMesh, error) {
	quads := uint32(1 + rng.IntN(64))
	numVerts, numIndices := quads*4, quads*6

	data, err := mesh.NewMeshData(numVerts, numIndices, heap.VertexDesc(), heap.IndexFormat())
	if err != nil {
		return nil, err
	}
	pos := make([]float32, numVerts*3)
	col := make([]float32, numVerts*4)
	for i := range pos {
		pos[i] = rng.Float32()
	}
	for i := range col {
		col[i] = 1
	}
	if err := data.SetFloat32Element(hwbuffer.SemanticPosition, 0, pos); err != nil {
		return nil, err
	}
	if err := data.SetFloat32Element(hwbuffer.SemanticColor, 0, col); err != nil {
		return nil, err
	}
	idx := make([]uint32, 0, numIndices)
	for q := uint32(0); q < quads; q++ {
		b := q * 4
		idx = append(idx, b, b+1, b+2, b, b+2, b+3)
	}
	if err := data.SetIndices(idx); err != nil {
		return nil, err
	}
	return heap.Alloc(data, mesh.TriangleList)
}
