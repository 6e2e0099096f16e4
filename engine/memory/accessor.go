package memory

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/rhodonite-go/common"
)

// Accessor is a typed, strided view over a BufferView addressed by element index.
// For component members the index is the ComponentSID.
type Accessor struct {
	view                   *BufferView
	compositionType        CompositionType
	componentType          ComponentType
	count                  int
	byteOffsetInBufferView int
	byteStride             int
	elemSize               int
	version                uint64
}

func (a *Accessor) CompositionType() CompositionType { return a.compositionType }

func (a *Accessor) ComponentType() ComponentType { return a.componentType }

// Count returns the number of elements.
func (a *Accessor) Count() int { return a.count }

// ElementCount returns the number of scalars per element.
func (a *Accessor) ElementCount() int { return a.compositionType.NumberOfComponents() }

func (a *Accessor) ByteStride() int { return a.byteStride }

// ByteOffsetInBuffer returns where element 0 starts inside the owning Buffer.
func (a *Accessor) ByteOffsetInBuffer() int {
	return a.view.byteOffsetInBuffer + a.byteOffsetInBufferView
}

// ByteLength returns the number of bytes spanned from element 0 to the end of the last element.
func (a *Accessor) ByteLength() int {
	return a.byteStride*(a.count-1) + a.elemSize
}

// Bytes returns the accessor's span of the owning buffer.
func (a *Accessor) Bytes() []byte {
	off := a.ByteOffsetInBuffer()
	return a.view.buffer.raw[off : off+a.ByteLength()]
}

// BufferView returns the view the accessor was taken from.
func (a *Accessor) BufferView() *BufferView { return a.view }

// Version increases on every write.
func (a *Accessor) Version() uint64 { return a.version }

func (a *Accessor) element(i int) []byte {
	if i < 0 || i >= a.count {
		panic("memory: accessor index out of range")
	}
	off := a.ByteOffsetInBuffer() + i*a.byteStride
	return a.view.buffer.raw[off : off+a.elemSize]
}

func (a *Accessor) touch() {
	a.version++
	a.view.buffer.version++
}

func (a *Accessor) readComponent(b []byte, c int) float32 {
	switch a.componentType {
	case Float:
		return math.Float32frombits(binary.LittleEndian.Uint32(b[c*4:]))
	case UnsignedInt:
		return float32(binary.LittleEndian.Uint32(b[c*4:]))
	case Int:
		return float32(int32(binary.LittleEndian.Uint32(b[c*4:])))
	case UnsignedShort:
		return float32(binary.LittleEndian.Uint16(b[c*2:]))
	case Short:
		return float32(int16(binary.LittleEndian.Uint16(b[c*2:])))
	case UnsignedByte:
		return float32(b[c])
	case Byte:
		return float32(int8(b[c]))
	}
	return 0
}

func (a *Accessor) writeComponent(b []byte, c int, v float32) {
	switch a.componentType {
	case Float:
		binary.LittleEndian.PutUint32(b[c*4:], math.Float32bits(v))
	case UnsignedInt:
		binary.LittleEndian.PutUint32(b[c*4:], uint32(v))
	case Int:
		binary.LittleEndian.PutUint32(b[c*4:], uint32(int32(v)))
	case UnsignedShort:
		binary.LittleEndian.PutUint16(b[c*2:], uint16(v))
	case Short:
		binary.LittleEndian.PutUint16(b[c*2:], uint16(int16(v)))
	case UnsignedByte:
		b[c] = uint8(v)
	case Byte:
		b[c] = uint8(int8(v))
	}
}

// GetElement copies element i into out, converting each scalar to float32.
// Only min(len(out), ElementCount()) scalars are read.
//
// Parameters:
//   - i: element index
//   - out: destination slice
func (a *Accessor) GetElement(i int, out []float32) {
	b := a.element(i)
	n := min(len(out), a.ElementCount())
	for c := 0; c < n; c++ {
		out[c] = a.readComponent(b, c)
	}
}

// SetElement writes values into element i and bumps the version.
// Only min(len(values), ElementCount()) scalars are written.
//
// Parameters:
//   - i: element index
//   - values: source scalars
func (a *Accessor) SetElement(i int, values ...float32) {
	b := a.element(i)
	n := min(len(values), a.ElementCount())
	for c := 0; c < n; c++ {
		a.writeComponent(b, c, values[c])
	}
	a.touch()
}

func (a *Accessor) GetScalar(i int) float32 {
	return a.readComponent(a.element(i), 0)
}

func (a *Accessor) SetScalar(i int, v float32) {
	a.writeComponent(a.element(i), 0, v)
	a.touch()
}

// GetUint reads the first scalar of element i as an unsigned integer; used for index data.
func (a *Accessor) GetUint(i int) uint32 {
	b := a.element(i)
	switch a.componentType {
	case UnsignedInt, Int:
		return binary.LittleEndian.Uint32(b)
	case UnsignedShort, Short:
		return uint32(binary.LittleEndian.Uint16(b))
	case UnsignedByte, Byte:
		return uint32(b[0])
	}
	return uint32(a.readComponent(b, 0))
}

// SetUint writes v into the first scalar of element i without a float32 round trip,
// so 32-bit index values keep every bit. Narrower integer types truncate.
func (a *Accessor) SetUint(i int, v uint32) {
	b := a.element(i)
	switch a.componentType {
	case UnsignedInt, Int:
		binary.LittleEndian.PutUint32(b, v)
	case UnsignedShort, Short:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case UnsignedByte, Byte:
		b[0] = uint8(v)
	default:
		a.writeComponent(b, 0, float32(v))
	}
	a.touch()
}

func (a *Accessor) GetVec2(i int) (float32, float32) {
	var v [2]float32
	a.GetElement(i, v[:])
	return v[0], v[1]
}

func (a *Accessor) SetVec2(i int, x, y float32) {
	a.SetElement(i, x, y)
}

func (a *Accessor) GetVec3(i int) common.Vec3 {
	var v [3]float32
	a.GetElement(i, v[:])
	return common.Vec3{X: v[0], Y: v[1], Z: v[2]}
}

func (a *Accessor) SetVec3(i int, v common.Vec3) {
	a.SetElement(i, v.X, v.Y, v.Z)
}

func (a *Accessor) GetVec4(i int) common.Vec4 {
	var v [4]float32
	a.GetElement(i, v[:])
	return common.Vec4{X: v[0], Y: v[1], Z: v[2], W: v[3]}
}

func (a *Accessor) SetVec4(i int, v common.Vec4) {
	a.SetElement(i, v.X, v.Y, v.Z, v.W)
}

func (a *Accessor) GetMat4(i int) common.Mat4 {
	var m common.Mat4
	a.GetElement(i, m[:])
	return m
}

func (a *Accessor) SetMat4(i int, m common.Mat4) {
	a.SetElement(i, m[:]...)
}

// CopyElement copies element src of from into element dst of a. Both accessors must share a layout.
//
// Parameters:
//   - dst: destination element index in a
//   - from: the source accessor
//   - src: source element index in from
func (a *Accessor) CopyElement(dst int, from *Accessor, src int) {
	copy(a.element(dst), from.element(src))
	a.touch()
}
