package material

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryAssignsIDs(t *testing.T) {
	r := NewMaterialRepository(2, nil)
	assert.Equal(t, []string{StandardMaterialType, FullscreenMaterialType}, r.TypeNames())

	tid, err := r.RegisterMaterial("Toon", StandardShaderSource, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), tid)

	a, err := r.CreateMaterial(StandardMaterialType)
	require.NoError(t, err)
	b, err := r.CreateMaterial(StandardMaterialType, WithName("b"))
	require.NoError(t, err)

	assert.Equal(t, uint32(1), a.MaterialTID())
	assert.Equal(t, 0, a.MaterialSID())
	assert.Equal(t, 1, b.MaterialSID())
	assert.NotEqual(t, a.MaterialUID(), b.MaterialUID())
	assert.Equal(t, "Standard_0", a.Name())
	assert.Equal(t, "b", b.Name())
	assert.Equal(t, StandardShaderSource, a.ShaderSource())

	_, err = r.CreateMaterial(StandardMaterialType)
	require.ErrorIs(t, err, ErrMaterialInstanceLimit)

	_, err = r.CreateMaterial("Missing")
	require.ErrorIs(t, err, ErrMaterialTypeNotFound)

	_, err = r.RegisterMaterial("Toon", "", 1)
	require.ErrorIs(t, err, ErrMaterialTypeExists)
}

func TestRepositoryTIDOverflow(t *testing.T) {
	r := NewMaterialRepository(1, nil)
	var err error
	for i := 0; i < MaxMaterialTID; i++ {
		_, err = r.RegisterMaterial(fmt.Sprintf("type-%d", i), "", 1)
		if err != nil {
			break
		}
	}
	require.ErrorIs(t, err, ErrMaterialTIDOverflow)
}

func TestMaterialVersionAndParams(t *testing.T) {
	m := NewMaterial(WithAlphaMode(AlphaModeMask), WithAlphaCutoff(0.25), WithBaseColor([4]float32{1, 0, 0, 1}))
	v := m.Version()

	m.SetBaseColor([4]float32{0, 1, 0, 1})
	assert.Greater(t, m.Version(), v)

	p := m.GPUParams()
	assert.Equal(t, [4]float32{0, 1, 0, 1}, p.BaseColor)
	assert.Equal(t, float32(0.25), p.Factors[2])
	assert.Len(t, p.Marshal(), p.Size())

	m.SetAlphaMode(AlphaModeBlend)
	assert.True(t, m.IsBlend())
	assert.Equal(t, float32(0), m.GPUParams().Factors[2])
}
