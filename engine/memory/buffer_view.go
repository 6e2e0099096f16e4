package memory

import "fmt"

// BufferView is a fixed byte range of a Buffer from which Accessors are taken.
type BufferView struct {
	buffer             *Buffer
	byteOffsetInBuffer int
	byteLength         int
	byteStride         int
	taken              int
	accessors          []*Accessor
}

// AccessorDescriptor describes the typed view requested from a BufferView.
type AccessorDescriptor struct {
	CompositionType CompositionType
	ComponentType   ComponentType
	Count           int
	// ByteStride between consecutive elements; 0 packs elements tightly.
	ByteStride int
	// ByteAlign applied to the accessor start inside the view; 0 means 4.
	ByteAlign int
}

// TakeAccessor carves a typed view out of the remaining bytes of v.
//
// Parameters:
//   - desc: shape, scalar type, element count and stride of the accessor
//
// Returns:
//   - *Accessor: the accessor
//   - error: ErrAccessorOutOfRange if the view has too little room left
func (v *BufferView) TakeAccessor(desc AccessorDescriptor) (*Accessor, error) {
	elemSize := desc.CompositionType.NumberOfComponents() * desc.ComponentType.SizeInBytes()
	if elemSize == 0 || desc.Count <= 0 {
		return nil, fmt.Errorf("take accessor %s/%s x %d: invalid descriptor", desc.CompositionType, desc.ComponentType, desc.Count)
	}
	stride := desc.ByteStride
	if stride == 0 {
		stride = elemSize
	}
	if stride < elemSize {
		return nil, fmt.Errorf("take accessor: stride %d smaller than element size %d", stride, elemSize)
	}
	align := desc.ByteAlign
	if align == 0 {
		align = 4
	}

	start := alignUp(v.taken, align)
	need := stride*(desc.Count-1) + elemSize
	if start+need > v.byteLength {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, view holds %d", ErrAccessorOutOfRange, need, start, v.byteLength)
	}

	a := &Accessor{
		view:                   v,
		compositionType:        desc.CompositionType,
		componentType:          desc.ComponentType,
		count:                  desc.Count,
		byteOffsetInBufferView: start,
		byteStride:             stride,
		elemSize:               elemSize,
	}
	v.taken = start + need
	v.accessors = append(v.accessors, a)
	return a, nil
}

// Buffer returns the owning buffer.
func (v *BufferView) Buffer() *Buffer { return v.buffer }

func (v *BufferView) ByteOffsetInBuffer() int { return v.byteOffsetInBuffer }

func (v *BufferView) ByteLength() int { return v.byteLength }

func (v *BufferView) ByteStride() int { return v.byteStride }

// Bytes returns the view's byte range of the buffer.
func (v *BufferView) Bytes() []byte {
	return v.buffer.raw[v.byteOffsetInBuffer : v.byteOffsetInBuffer+v.byteLength]
}

// Accessors returns the accessors taken from the view in order.
func (v *BufferView) Accessors() []*Accessor { return v.accessors }
