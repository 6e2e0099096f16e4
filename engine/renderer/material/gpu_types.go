package material

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// StandardShaderSource is the lit WGSL program used by materials unless another source is given.
// Bind group 0 holds the frame uniform, world matrices and lights; bind group 1 holds the material.
//
//go:embed assets/standard.wgsl
var StandardShaderSource string

// FullscreenShaderSource draws one viewport-covering triangle without vertex buffers,
// sampling the material's base color texture. Used by post-process render passes.
//
//go:embed assets/fullscreen.wgsl
var FullscreenShaderSource string

// GPUMaterialParams is the GPU-aligned uniform for bind group 1, binding 0.
// Matches the WGSL MaterialParams struct layout exactly.
// Size: 32 bytes (two vec4<f32>, std140 aligned).
type GPUMaterialParams struct {
	BaseColor [4]float32 // offset 0: RGBA base color (16 bytes)
	Factors   [4]float32 // offset 16: metallic, roughness, alpha cutoff, unused (16 bytes)
}

// Size returns the size of the GPUMaterialParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMaterialParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterialParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUMaterialParams) Marshal() []byte {
	buf := make([]byte, 32)
	for i, v := range g.BaseColor {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	for i, v := range g.Factors {
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(v))
	}
	return buf
}
