package memory

// Buffer is one contiguous block of bytes carved into BufferViews.
// Its size is fixed at creation; it never grows, so byte ranges handed out stay valid for its lifetime.
type Buffer struct {
	name      string
	raw       []byte
	byteAlign int
	taken     int
	version   uint64
	views     []*BufferView
}

// NewBuffer allocates a zeroed buffer.
//
// Parameters:
//   - name: a label used in errors and logs
//   - byteLength: total capacity in bytes
//   - byteAlign: alignment applied to every BufferView start and length
//
// Returns:
//   - *Buffer: the new buffer
func NewBuffer(name string, byteLength, byteAlign int) *Buffer {
	if byteAlign <= 0 {
		byteAlign = 4
	}
	return &Buffer{
		name:      name,
		raw:       make([]byte, byteLength),
		byteAlign: byteAlign,
	}
}

// TakeBufferView reserves the next byteLengthToNeed bytes (rounded up to the buffer alignment).
//
// Parameters:
//   - byteLengthToNeed: bytes required
//   - byteStride: element stride recorded on the view, 0 if not interleaved
//
// Returns:
//   - *BufferView: the reserved view
//   - error: an *AllocationError if the remaining capacity is insufficient
func (b *Buffer) TakeBufferView(byteLengthToNeed, byteStride int) (*BufferView, error) {
	length := alignUp(byteLengthToNeed, b.byteAlign)
	if b.taken+length > len(b.raw) {
		return nil, &AllocationError{
			Buffer:          b.name,
			ByteLength:      length,
			TakenSizeInByte: b.taken,
			Capacity:        len(b.raw),
		}
	}

	v := &BufferView{
		buffer:             b,
		byteOffsetInBuffer: b.taken,
		byteLength:         length,
		byteStride:         byteStride,
	}
	b.taken += length
	b.views = append(b.views, v)
	return v, nil
}

// Name returns the buffer label.
func (b *Buffer) Name() string { return b.name }

// ByteLength returns the total capacity.
func (b *Buffer) ByteLength() int { return len(b.raw) }

// TakenSizeInByte returns how many bytes have been handed out to views.
func (b *Buffer) TakenSizeInByte() int { return b.taken }

// Bytes returns the whole backing store. Callers must not retain it across a Reset.
func (b *Buffer) Bytes() []byte { return b.raw }

// UsedBytes returns the prefix of the backing store that has been handed out.
func (b *Buffer) UsedBytes() []byte { return b.raw[:b.taken] }

// Version increases on every write through any of the buffer's accessors.
func (b *Buffer) Version() uint64 { return b.version }

// BufferViews returns the views in allocation order.
func (b *Buffer) BufferViews() []*BufferView { return b.views }
