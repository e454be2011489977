package mesh

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/ggcore/hwbuffer"
)

// MeshData holds the CPU copy of a mesh: one byte slice per vertex stream
// plus the index data.
type MeshData struct {
	desc        *hwbuffer.VertexDataDesc
	indexFormat gputypes.IndexFormat
	numVertices uint32
	numIndices  uint32
	streams     [][]byte
	indices     []byte
}

// NewMeshData allocates zeroed storage for numVertices vertices laid out as
// desc and numIndices indices of indexFormat.
func NewMeshData(numVertices, numIndices uint32, desc *hwbuffer.VertexDataDesc, indexFormat gputypes.IndexFormat) (*MeshData, error) {
	if desc == nil || desc.MaxStreamIdx() < 0 {
		return nil, fmt.Errorf("%w: empty vertex layout", hwbuffer.ErrInvalidParameters)
	}
	idxSize := hwbuffer.IndexSize(indexFormat)
	if idxSize == 0 {
		return nil, fmt.Errorf("%w: unsupported index format %v", hwbuffer.ErrInvalidParameters, indexFormat)
	}

	m := &MeshData{
		desc:        desc,
		indexFormat: indexFormat,
		numVertices: numVertices,
		numIndices:  numIndices,
		streams:     make([][]byte, desc.MaxStreamIdx()+1),
		indices:     make([]byte, uint64(numIndices)*uint64(idxSize)),
	}
	for s := range m.streams {
		if stride := desc.VertexStride(s); stride > 0 {
			m.streams[s] = make([]byte, uint64(numVertices)*uint64(stride))
		}
	}
	return m, nil
}

// VertexDesc returns the vertex layout.
func (m *MeshData) VertexDesc() *hwbuffer.VertexDataDesc { return m.desc }

// IndexFormat returns the index format.
func (m *MeshData) IndexFormat() gputypes.IndexFormat { return m.indexFormat }

// NumVertices returns the vertex count.
func (m *MeshData) NumVertices() uint32 { return m.numVertices }

// NumIndices returns the index count.
func (m *MeshData) NumIndices() uint32 { return m.numIndices }

// StreamData returns the raw bytes of a vertex stream, nil if the layout
// has no such stream. The slice aliases the mesh data.
func (m *MeshData) StreamData(stream int) []byte {
	if stream < 0 || stream >= len(m.streams) {
		return nil
	}
	return m.streams[stream]
}

// IndexData returns the raw index bytes. The slice aliases the mesh data.
func (m *MeshData) IndexData() []byte { return m.indices }

// SetStreamData replaces the bytes of a vertex stream. data must be exactly
// the stream's size.
func (m *MeshData) SetStreamData(stream int, data []byte) error {
	dst := m.StreamData(stream)
	if dst == nil {
		return fmt.Errorf("%w: no vertex stream %d", hwbuffer.ErrInvalidParameters, stream)
	}
	if len(data) != len(dst) {
		return fmt.Errorf("%w: stream %d holds %d bytes, got %d", hwbuffer.ErrInvalidParameters, stream, len(dst), len(data))
	}
	copy(dst, data)
	return nil
}

// SetFloat32Element writes float components of element sem for every
// vertex. values holds one entry per component per vertex.
func (m *MeshData) SetFloat32Element(sem hwbuffer.Semantic, semanticIdx int, values []float32) error {
	var el *hwbuffer.VertexElement
	elements := m.desc.Elements()
	for i := range elements {
		if elements[i].Semantic == sem && elements[i].SemanticIdx == semanticIdx {
			el = &elements[i]
			break
		}
	}
	if el == nil {
		return fmt.Errorf("%w: layout has no element %v%d", hwbuffer.ErrInvalidParameters, sem, semanticIdx)
	}

	comps := hwbuffer.FormatSize(el.Format) / 4
	if el.Format == gputypes.VertexFormatUint32 {
		return fmt.Errorf("%w: element %v%d is not float", hwbuffer.ErrInvalidParameters, sem, semanticIdx)
	}
	if uint64(len(values)) != uint64(comps)*uint64(m.numVertices) {
		return fmt.Errorf("%w: element %v%d needs %d values, got %d",
			hwbuffer.ErrInvalidParameters, sem, semanticIdx, comps*m.numVertices, len(values))
	}

	stride := m.desc.VertexStride(el.Stream)
	buf := m.streams[el.Stream]
	for v := uint32(0); v < m.numVertices; v++ {
		base := v*stride + el.Offset
		for c := uint32(0); c < comps; c++ {
			binary.LittleEndian.PutUint32(buf[base+c*4:], math.Float32bits(values[v*comps+c]))
		}
	}
	return nil
}

// SetIndices writes indices, narrowing to 16 bits for Uint16 meshes.
func (m *MeshData) SetIndices(indices []uint32) error {
	if uint32(len(indices)) != m.numIndices {
		return fmt.Errorf("%w: mesh has %d indices, got %d", hwbuffer.ErrInvalidParameters, m.numIndices, len(indices))
	}
	switch m.indexFormat {
	case gputypes.IndexFormatUint16:
		for i, idx := range indices {
			if idx > math.MaxUint16 {
				return fmt.Errorf("%w: index %d does not fit 16 bits", hwbuffer.ErrInvalidParameters, idx)
			}
			binary.LittleEndian.PutUint16(m.indices[i*2:], uint16(idx))
		}
	default:
		for i, idx := range indices {
			binary.LittleEndian.PutUint32(m.indices[i*4:], idx)
		}
	}
	return nil
}

// Index returns index i.
func (m *MeshData) Index(i int) uint32 {
	if m.indexFormat == gputypes.IndexFormatUint16 {
		return uint32(binary.LittleEndian.Uint16(m.indices[i*2:]))
	}
	return binary.LittleEndian.Uint32(m.indices[i*4:])
}

func (m *MeshData) clone() *MeshData {
	c := *m
	c.streams = make([][]byte, len(m.streams))
	for i, s := range m.streams {
		if s != nil {
			c.streams[i] = append([]byte(nil), s...)
		}
	}
	c.indices = append([]byte(nil), m.indices...)
	return &c
}

// DrawOperation describes how the index range of a mesh is drawn.
type DrawOperation struct {
	Topology gputypes.PrimitiveTopology
}

// TriangleList is the default draw operation.
var TriangleList = DrawOperation{Topology: gputypes.PrimitiveTopologyTriangleList}
