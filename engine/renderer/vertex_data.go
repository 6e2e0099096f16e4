package renderer

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/rhodonite-go/engine/geometry"
	"github.com/Carmen-Shannon/rhodonite-go/engine/memory"
)

// vertexStream is one attribute every program's vertex stage reads, in shader location order.
type vertexStream struct {
	semantic   geometry.VertexAttributeSemantic
	components int
}

// vertexStreams are the @location(0..2) inputs of the built-in programs.
var vertexStreams = []vertexStream{
	{geometry.Position, 3},
	{geometry.Normal, 3},
	{geometry.Texcoord0, 2},
}

// vertexData is a primitive flattened into tightly packed per-attribute byte streams.
type vertexData struct {
	mode        geometry.PrimitiveMode
	vertexCount int
	// indices is nil for non-indexed draws.
	indices []uint32
	streams map[geometry.VertexAttributeSemantic][]byte
}

// drawCount returns the number of vertices a draw of the data consumes.
func (d *vertexData) drawCount() int {
	if d.indices != nil {
		return len(d.indices)
	}
	return d.vertexCount
}

// buildVertexData reads the primitive's accessors into upload-ready streams.
// Missing streams are zero filled so every program input has a buffer. Line loops and
// triangle fans are rewritten into indexed lists.
//
// Parameters:
//   - p: the primitive to flatten
//
// Returns:
//   - *vertexData: the streams, indices and uploaded topology
//   - error: an error if the primitive has no positions
func buildVertexData(p *geometry.Primitive) (*vertexData, error) {
	positions, ok := p.Attribute(geometry.Position)
	if !ok || positions.Count() == 0 {
		return nil, fmt.Errorf("primitive %q: no POSITION attribute", p.Name())
	}

	d := &vertexData{
		mode:        p.Mode(),
		vertexCount: positions.Count(),
		streams:     make(map[geometry.VertexAttributeSemantic][]byte, len(vertexStreams)),
	}
	for _, s := range vertexStreams {
		a, _ := p.Attribute(s.semantic)
		d.streams[s.semantic] = packAttribute(a, s.components, d.vertexCount)
	}

	if idx := p.Indices(); idx != nil {
		d.indices = make([]uint32, idx.Count())
		for i := range d.indices {
			d.indices[i] = idx.GetUint(i)
		}
	}
	d.mode, d.indices = drawIndices(d.mode, d.indices, d.vertexCount)
	return d, nil
}

// packAttribute writes vertexCount elements of a as little-endian float32 with exactly
// components values each, truncating or zero padding. A nil accessor yields zeros.
func packAttribute(a *memory.Accessor, components, vertexCount int) []byte {
	out := make([]byte, vertexCount*components*4)
	if a == nil {
		return out
	}

	elem := make([]float32, a.ElementCount())
	n := min(vertexCount, a.Count())
	for i := 0; i < n; i++ {
		a.GetElement(i, elem)
		for c := 0; c < components && c < len(elem); c++ {
			binary.LittleEndian.PutUint32(out[(i*components+c)*4:], math.Float32bits(elem[c]))
		}
	}
	return out
}

// drawIndices maps a glTF topology onto one WebGPU can draw.
// Loops become line lists and fans become triangle lists, generating indices for non-indexed input.
//
// Parameters:
//   - mode: the primitive topology
//   - indices: the index list, nil for non-indexed primitives
//   - vertexCount: the number of vertices
//
// Returns:
//   - geometry.PrimitiveMode: the topology to draw with
//   - []uint32: the indices to draw with, nil for a non-indexed draw
func drawIndices(mode geometry.PrimitiveMode, indices []uint32, vertexCount int) (geometry.PrimitiveMode, []uint32) {
	if mode != geometry.LineLoop && mode != geometry.TriangleFan {
		return mode, indices
	}

	seq := indices
	if seq == nil {
		seq = make([]uint32, vertexCount)
		for i := range seq {
			seq[i] = uint32(i)
		}
	}

	switch mode {
	case geometry.LineLoop:
		out := make([]uint32, 0, len(seq)*2)
		for i := range seq {
			out = append(out, seq[i], seq[(i+1)%len(seq)])
		}
		return geometry.Lines, out
	default:
		out := make([]uint32, 0, max(len(seq)-2, 0)*3)
		for i := 1; i+1 < len(seq); i++ {
			out = append(out, seq[0], seq[i], seq[i+1])
		}
		return geometry.Triangles, out
	}
}

// indexBytes serializes indices as little-endian uint32.
func indexBytes(indices []uint32) []byte {
	out := make([]byte, len(indices)*4)
	for i, v := range indices {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}
