package memory

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/rhodonite-go/common"
	"github.com/Carmen-Shannon/rhodonite-go/engine/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTakeBufferViewAlignsAndAccounts(t *testing.T) {
	b := NewBuffer("test", 64, 16)

	v1, err := b.TakeBufferView(10, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, v1.ByteOffsetInBuffer())
	assert.Equal(t, 16, v1.ByteLength())

	v2, err := b.TakeBufferView(32, 0)
	require.NoError(t, err)
	assert.Equal(t, 16, v2.ByteOffsetInBuffer())
	assert.Equal(t, 48, b.TakenSizeInByte())
}

func TestTakeBufferViewExhausted(t *testing.T) {
	b := NewBuffer("small", 32, 4)
	_, err := b.TakeBufferView(24, 0)
	require.NoError(t, err)

	_, err = b.TakeBufferView(12, 0)
	require.ErrorIs(t, err, ErrBufferExhausted)

	var allocErr *AllocationError
	require.True(t, errors.As(err, &allocErr))
	assert.Equal(t, 12, allocErr.ByteLength)
	assert.Equal(t, 24, allocErr.TakenSizeInByte)
	assert.Equal(t, 32, allocErr.Capacity)
	assert.Equal(t, 24, b.TakenSizeInByte(), "a failed request must not consume space")
}

func TestTakeAccessorOutOfRange(t *testing.T) {
	b := NewBuffer("test", 64, 4)
	v, err := b.TakeBufferView(24, 0)
	require.NoError(t, err)

	_, err = v.TakeAccessor(AccessorDescriptor{CompositionType: Vec3, ComponentType: Float, Count: 2})
	require.NoError(t, err)

	_, err = v.TakeAccessor(AccessorDescriptor{CompositionType: Scalar, ComponentType: Float, Count: 1})
	require.ErrorIs(t, err, ErrAccessorOutOfRange)
}

func TestAccessorReadWriteAndVersion(t *testing.T) {
	b := NewBuffer("test", 256, 4)
	v, err := b.TakeBufferView(4*3*4, 0)
	require.NoError(t, err)
	a, err := v.TakeAccessor(AccessorDescriptor{CompositionType: Vec3, ComponentType: Float, Count: 4})
	require.NoError(t, err)

	before := a.Version()
	a.SetVec3(2, common.Vec3{X: 1, Y: 2, Z: 3})
	assert.Equal(t, common.Vec3{X: 1, Y: 2, Z: 3}, a.GetVec3(2))
	assert.Equal(t, common.Vec3{}, a.GetVec3(1))
	assert.Equal(t, before+1, a.Version())
	assert.Equal(t, uint64(1), b.Version())

	a.GetVec3(0)
	assert.Equal(t, before+1, a.Version(), "reads do not bump the version")
}

func TestAccessorStrided(t *testing.T) {
	b := NewBuffer("interleaved", 64, 4)
	v, err := b.TakeBufferView(64, 32)
	require.NoError(t, err)
	a, err := v.TakeAccessor(AccessorDescriptor{CompositionType: Vec2, ComponentType: Float, Count: 2, ByteStride: 32})
	require.NoError(t, err)

	a.SetVec2(1, 5, 6)
	x, y := a.GetVec2(1)
	assert.Equal(t, float32(5), x)
	assert.Equal(t, float32(6), y)
	assert.Equal(t, 32+8, a.ByteLength())
}

func TestAccessorIntegerIndices(t *testing.T) {
	b := NewBuffer("indices", 16, 4)
	v, err := b.TakeBufferView(6, 0)
	require.NoError(t, err)
	a, err := v.TakeAccessor(AccessorDescriptor{CompositionType: Scalar, ComponentType: UnsignedShort, Count: 3})
	require.NoError(t, err)

	a.SetScalar(0, 7)
	a.SetScalar(2, 65535)
	assert.Equal(t, uint32(7), a.GetUint(0))
	assert.Equal(t, uint32(65535), a.GetUint(2))
}

func TestAccessorSetUintKeepsAllBits(t *testing.T) {
	b := NewBuffer("indices", 16, 4)
	v, err := b.TakeBufferView(8, 0)
	require.NoError(t, err)
	a, err := v.TakeAccessor(AccessorDescriptor{CompositionType: Scalar, ComponentType: UnsignedInt, Count: 2})
	require.NoError(t, err)

	// 2^24+1 is not representable as float32
	before := a.Version()
	a.SetUint(0, 1<<24+1)
	a.SetUint(1, 0xFFFFFFFF)
	assert.Equal(t, uint32(1<<24+1), a.GetUint(0))
	assert.Equal(t, uint32(0xFFFFFFFF), a.GetUint(1))
	assert.Equal(t, before+2, a.Version())
}

func TestFieldSharesStorage(t *testing.T) {
	b := NewBuffer("test", 256, 16)
	v, err := b.TakeBufferView(64*2, 0)
	require.NoError(t, err)
	a, err := v.TakeAccessor(AccessorDescriptor{CompositionType: Mat4, ComponentType: Float, Count: 2})
	require.NoError(t, err)

	f := NewField(a, 1)
	m := common.ComposeTRS(common.Vec3{X: 4}, common.IdentityQuat(), common.Vec3{X: 1, Y: 1, Z: 1})
	f.SetMat4(m)
	assert.Equal(t, m, a.GetMat4(1))
	assert.Equal(t, common.Mat4{}, a.GetMat4(0))
}

func TestMemoryManagerBuffers(t *testing.T) {
	cfg := config.Default()
	cfg.Memory.CPUGenericMiB = 1
	m := NewMemoryManager(cfg)

	_, ok := m.Buffer(CPUGeneric)
	assert.False(t, ok)

	b := m.CreateOrGetBuffer(CPUGeneric)
	assert.Equal(t, 1024*1024, b.ByteLength())
	assert.Same(t, b, m.CreateOrGetBuffer(CPUGeneric))

	od := m.CreateBufferOnDemand(128, "mesh-1", 4)
	got, ok := m.BufferOnDemand("mesh-1")
	require.True(t, ok)
	assert.Same(t, od, got)
	m.RemoveBufferOnDemand("mesh-1")
	_, ok = m.BufferOnDemand("mesh-1")
	assert.False(t, ok)

	assert.Equal(t, [2]int{0, 1024 * 1024}, m.Stats()[CPUGeneric])
}
