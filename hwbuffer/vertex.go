package hwbuffer

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Semantic identifies what a vertex element holds.
type Semantic int

const (
	SemanticPosition Semantic = iota
	SemanticNormal
	SemanticTangent
	SemanticColor
	SemanticTexCoord
	SemanticBlendWeights
	SemanticBlendIndices
)

// String returns the string representation of Semantic.
func (s Semantic) String() string {
	switch s {
	case SemanticPosition:
		return "Position"
	case SemanticNormal:
		return "Normal"
	case SemanticTangent:
		return "Tangent"
	case SemanticColor:
		return "Color"
	case SemanticTexCoord:
		return "TexCoord"
	case SemanticBlendWeights:
		return "BlendWeights"
	case SemanticBlendIndices:
		return "BlendIndices"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// FormatSize returns the size in bytes of one element of format f, or 0 if
// the format is not supported.
func FormatSize(f gputypes.VertexFormat) uint32 {
	switch f {
	case gputypes.VertexFormatFloat32, gputypes.VertexFormatUint32:
		return 4
	case gputypes.VertexFormatFloat32x2:
		return 8
	case gputypes.VertexFormatFloat32x3:
		return 12
	case gputypes.VertexFormatFloat32x4:
		return 16
	default:
		return 0
	}
}

// IndexSize returns the size in bytes of one index, or 0 if the format is
// not supported.
func IndexSize(f gputypes.IndexFormat) uint32 {
	switch f {
	case gputypes.IndexFormatUint16:
		return 2
	case gputypes.IndexFormatUint32:
		return 4
	default:
		return 0
	}
}

// VertexElement is one attribute of a vertex.
type VertexElement struct {
	Semantic    Semantic
	SemanticIdx int
	Format      gputypes.VertexFormat
	Stream      int

	// Offset is the byte offset within the stream's vertex, computed by
	// VertexDataDesc.
	Offset uint32
}

// VertexDataDesc describes the vertex layout of a mesh, split over one or
// more streams. Each stream lives in its own vertex buffer.
type VertexDataDesc struct {
	elements []VertexElement
}

// NewVertexDataDesc returns an empty layout.
func NewVertexDataDesc() *VertexDataDesc {
	return &VertexDataDesc{}
}

// AddElement appends an element to stream. Returns ErrInvalidParameters for
// unsupported formats, negative streams, or a duplicate semantic.
func (d *VertexDataDesc) AddElement(sem Semantic, semanticIdx int, format gputypes.VertexFormat, stream int) error {
	size := FormatSize(format)
	if size == 0 {
		return fmt.Errorf("%w: unsupported vertex format %v", ErrInvalidParameters, format)
	}
	if stream < 0 {
		return fmt.Errorf("%w: negative stream %d", ErrInvalidParameters, stream)
	}
	for _, e := range d.elements {
		if e.Semantic == sem && e.SemanticIdx == semanticIdx {
			return fmt.Errorf("%w: duplicate element %v%d", ErrInvalidParameters, sem, semanticIdx)
		}
	}
	d.elements = append(d.elements, VertexElement{
		Semantic:    sem,
		SemanticIdx: semanticIdx,
		Format:      format,
		Stream:      stream,
		Offset:      d.VertexStride(stream),
	})
	return nil
}

// Elements returns the elements in declaration order.
func (d *VertexDataDesc) Elements() []VertexElement {
	return append([]VertexElement(nil), d.elements...)
}

// VertexStride returns the size of one vertex in stream, 0 if the stream
// has no elements.
func (d *VertexDataDesc) VertexStride(stream int) uint32 {
	var stride uint32
	for _, e := range d.elements {
		if e.Stream == stream {
			stride += FormatSize(e.Format)
		}
	}
	return stride
}

// MaxStreamIdx returns the highest stream index used, or -1 if empty.
func (d *VertexDataDesc) MaxStreamIdx() int {
	maxIdx := -1
	for _, e := range d.elements {
		maxIdx = max(maxIdx, e.Stream)
	}
	return maxIdx
}

// HasStream reports whether any element lives in stream.
func (d *VertexDataDesc) HasStream(stream int) bool {
	for _, e := range d.elements {
		if e.Stream == stream {
			return true
		}
	}
	return false
}

// HasElement reports whether the layout contains sem with index semanticIdx.
func (d *VertexDataDesc) HasElement(sem Semantic, semanticIdx int) bool {
	for _, e := range d.elements {
		if e.Semantic == sem && e.SemanticIdx == semanticIdx {
			return true
		}
	}
	return false
}
