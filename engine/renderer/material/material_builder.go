package material

import (
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/texture"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithBaseColor is an option builder that sets the albedo/diffuse RGBA color of the material.
//
// Parameters:
//   - color: the base color as RGBA float32 values
//
// Returns:
//   - MaterialBuilderOption: a function that applies the base color option to a material
func WithBaseColor(color [4]float32) MaterialBuilderOption {
	return func(m *material) {
		m.baseColor = color
	}
}

// WithMetallic is an option builder that sets the metallic factor of the material.
//
// Parameters:
//   - metallic: the metallic factor (0.0 = dielectric, 1.0 = metal)
//
// Returns:
//   - MaterialBuilderOption: a function that applies the metallic option to a material
func WithMetallic(metallic float32) MaterialBuilderOption {
	return func(m *material) {
		m.metallic = metallic
	}
}

// WithRoughness is an option builder that sets the roughness factor of the material.
//
// Parameters:
//   - roughness: the roughness factor (0.0 = smooth, 1.0 = rough)
//
// Returns:
//   - MaterialBuilderOption: a function that applies the roughness option to a material
func WithRoughness(roughness float32) MaterialBuilderOption {
	return func(m *material) {
		m.roughness = roughness
	}
}

// WithAlphaMode is an option builder that sets how alpha is interpreted.
//
// Parameters:
//   - mode: opaque, mask or blend
//
// Returns:
//   - MaterialBuilderOption: a function that applies the alpha mode to a material
func WithAlphaMode(mode AlphaMode) MaterialBuilderOption {
	return func(m *material) {
		m.alphaMode = mode
	}
}

// WithAlphaCutoff sets the mask threshold used with AlphaModeMask.
//
// Parameters:
//   - cutoff: alpha below this value is discarded
//
// Returns:
//   - MaterialBuilderOption: a function that applies the cutoff to a material
func WithAlphaCutoff(cutoff float32) MaterialBuilderOption {
	return func(m *material) {
		m.alphaCutoff = cutoff
	}
}

// WithZWriteWhenBlend keeps depth writes enabled for a blended material.
//
// Parameters:
//   - zWrite: whether depth is written while blending
//
// Returns:
//   - MaterialBuilderOption: a function that applies the option to a material
func WithZWriteWhenBlend(zWrite bool) MaterialBuilderOption {
	return func(m *material) {
		m.zWriteWhenBlend = zWrite
	}
}

// WithTranslucent marks the material as transmissive.
func WithTranslucent(translucent bool) MaterialBuilderOption {
	return func(m *material) {
		m.translucent = translucent
	}
}

// WithDoubleSided disables back-face culling.
func WithDoubleSided(doubleSided bool) MaterialBuilderOption {
	return func(m *material) {
		m.doubleSided = doubleSided
	}
}

// WithBaseColorTexture is an option builder that sets the base color texture.
//
// Parameters:
//   - t: the texture; while it is not ready a dummy white texture is bound instead
//
// Returns:
//   - MaterialBuilderOption: a function that applies the texture to a material
func WithBaseColorTexture(t *texture.Texture) MaterialBuilderOption {
	return func(m *material) {
		m.baseColorTexture = t
	}
}

// WithShaderSource replaces the WGSL program. The program must declare the same bind group layout as StandardShaderSource.
//
// Parameters:
//   - source: WGSL source with vs_main and fs_main entry points
//
// Returns:
//   - MaterialBuilderOption: a function that applies the shader source to a material
func WithShaderSource(source string) MaterialBuilderOption {
	return func(m *material) {
		m.shaderSource = source
	}
}
