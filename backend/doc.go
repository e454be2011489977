// Package backend provides a pluggable render device abstraction.
//
// A Device creates the hardware buffers and GPU queries the core thread
// works with. Implementations live in sub-packages and register themselves
// on import:
//
//	import _ "github.com/gogpu/ggcore/backend/software"
//	import _ "github.com/gogpu/ggcore/backend/wgpu"
//
// # Device Selection
//
// Use Open to get an initialized device, by name or by priority:
//
//	dev, err := backend.Open("")         // best available
//	dev, err := backend.Open("software") // specific backend
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//
// # Available Backends
//
//   - "wgpu": GPU device over gogpu/wgpu HAL (needs a host-provided device)
//   - "software": in-memory buffers and controllable queries (always available)
package backend
