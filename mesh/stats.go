package mesh

import "fmt"

// HeapStats contains heap occupancy counters.
type HeapStats struct {
	VertexCapacity uint32
	IndexCapacity  uint32
	FreeVertices   uint32
	FreeIndices    uint32

	FreeVertexChunks int
	FreeIndexChunks  int

	// Allocations counts meshes holding ranges, including deallocated
	// meshes the GPU may still read.
	Allocations int

	// AwaitingGPU counts deallocated meshes waiting for their event query.
	AwaitingGPU int

	// PendingQueries counts drawn meshes whose event query is not issued
	// yet. They stay in use until it is.
	PendingQueries int

	EventQueries     int
	FreeEventQueries int

	VertexGrows int
	IndexGrows  int
	Merges      int
}

// UsedVertices returns the number of reserved vertices.
func (s HeapStats) UsedVertices() uint32 { return s.VertexCapacity - s.FreeVertices }

// UsedIndices returns the number of reserved indices.
func (s HeapStats) UsedIndices() uint32 { return s.IndexCapacity - s.FreeIndices }

// String returns a human-readable string of heap stats.
func (s HeapStats) String() string {
	return fmt.Sprintf("MeshHeap[vertices %d/%d (%d free chunks), indices %d/%d (%d free chunks), %d allocs (%d awaiting GPU, %d queries pending), %d/%d queries free, %d+%d grows, %d merges]",
		s.UsedVertices(), s.VertexCapacity, s.FreeVertexChunks,
		s.UsedIndices(), s.IndexCapacity, s.FreeIndexChunks,
		s.Allocations, s.AwaitingGPU, s.PendingQueries,
		s.FreeEventQueries, s.EventQueries,
		s.VertexGrows, s.IndexGrows, s.Merges)
}
