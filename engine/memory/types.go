package memory

import "fmt"

// BufferUse names the pre-allocated buffer a component member lives in.
type BufferUse int

const (
	// CPUGeneric holds component data only the CPU reads.
	CPUGeneric BufferUse = iota
	// GPUInstanceData holds per-instance data uploaded to the GPU each frame it changes (world matrices).
	GPUInstanceData
	// GPUVertexData holds vertex and index data.
	GPUVertexData
	// UBOGeneric holds small uniform blocks.
	UBOGeneric
)

func (u BufferUse) String() string {
	switch u {
	case CPUGeneric:
		return "CPUGeneric"
	case GPUInstanceData:
		return "GPUInstanceData"
	case GPUVertexData:
		return "GPUVertexData"
	case UBOGeneric:
		return "UBOGeneric"
	default:
		return fmt.Sprintf("BufferUse(%d)", int(u))
	}
}

// CompositionType is the shape of one accessor element.
type CompositionType int

const (
	Scalar CompositionType = iota
	Vec2
	Vec3
	Vec4
	Mat3
	Mat4
)

// NumberOfComponents returns how many scalars make up one element.
func (c CompositionType) NumberOfComponents() int {
	switch c {
	case Scalar:
		return 1
	case Vec2:
		return 2
	case Vec3:
		return 3
	case Vec4:
		return 4
	case Mat3:
		return 9
	case Mat4:
		return 16
	default:
		return 0
	}
}

func (c CompositionType) String() string {
	switch c {
	case Scalar:
		return "SCALAR"
	case Vec2:
		return "VEC2"
	case Vec3:
		return "VEC3"
	case Vec4:
		return "VEC4"
	case Mat3:
		return "MAT3"
	case Mat4:
		return "MAT4"
	default:
		return fmt.Sprintf("CompositionType(%d)", int(c))
	}
}

// ComponentType is the scalar type of one element component. Values follow the GL enum numbering.
type ComponentType int

const (
	Byte          ComponentType = 5120
	UnsignedByte  ComponentType = 5121
	Short         ComponentType = 5122
	UnsignedShort ComponentType = 5123
	Int           ComponentType = 5124
	UnsignedInt   ComponentType = 5125
	Float         ComponentType = 5126
)

// SizeInBytes returns the byte size of one scalar.
func (c ComponentType) SizeInBytes() int {
	switch c {
	case Byte, UnsignedByte:
		return 1
	case Short, UnsignedShort:
		return 2
	case Int, UnsignedInt, Float:
		return 4
	default:
		return 0
	}
}

func (c ComponentType) String() string {
	switch c {
	case Byte:
		return "BYTE"
	case UnsignedByte:
		return "UNSIGNED_BYTE"
	case Short:
		return "SHORT"
	case UnsignedShort:
		return "UNSIGNED_SHORT"
	case Int:
		return "INT"
	case UnsignedInt:
		return "UNSIGNED_INT"
	case Float:
		return "FLOAT"
	default:
		return fmt.Sprintf("ComponentType(%d)", int(c))
	}
}

func alignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}
