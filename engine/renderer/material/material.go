// Package material describes shading parameters and the shader program a primitive is drawn with.
package material

import (
	"github.com/Carmen-Shannon/rhodonite-go/common"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/texture"
)

// AlphaMode selects how a material's alpha channel is used.
type AlphaMode int

const (
	AlphaModeOpaque AlphaMode = iota
	AlphaModeMask
	AlphaModeBlend
)

func (a AlphaMode) String() string {
	switch a {
	case AlphaModeMask:
		return "MASK"
	case AlphaModeBlend:
		return "BLEND"
	default:
		return "OPAQUE"
	}
}

// MaxMaterialTID is the largest material type ID that fits the 10-bit sort key field.
const MaxMaterialTID = 1<<10 - 1

// material is the implementation of the Material interface.
type material struct {
	name        string
	typeName    string
	materialTID uint32
	materialSID int
	materialUID int

	alphaMode       AlphaMode
	alphaCutoff     float32
	zWriteWhenBlend bool
	translucent     bool
	doubleSided     bool

	baseColor        [4]float32
	metallic         float32
	roughness        float32
	baseColorTexture *texture.Texture

	shaderSource  string
	shaderProgram common.CGAPIResourceHandle
	paramsHandle  common.CGAPIResourceHandle

	version uint64
}

// Material defines the interface for a render material: surface parameters, blending state,
// the material type it belongs to and the shader program handle the resource repository created for it.
//
// Surface and blending properties are mutable; every change bumps Version so the uniform upload
// can be skipped for unchanged materials.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// TypeName retrieves the registered material type this material is an instance of.
	//
	// Returns:
	//   - string: the material type name
	TypeName() string

	// MaterialTID retrieves the material type ID packed into primitive sort keys.
	//
	// Returns:
	//   - uint32: the type ID (at most MaxMaterialTID)
	MaterialTID() uint32

	// MaterialSID retrieves the instance index within the material type.
	//
	// Returns:
	//   - int: the instance index
	MaterialSID() int

	// MaterialUID retrieves the repository-wide unique instance ID.
	//
	// Returns:
	//   - int: the unique ID
	MaterialUID() int

	// AlphaMode retrieves the alpha mode.
	//
	// Returns:
	//   - AlphaMode: opaque, mask or blend
	AlphaMode() AlphaMode

	// SetAlphaMode sets the alpha mode.
	//
	// Parameters:
	//   - mode: the new alpha mode
	SetAlphaMode(mode AlphaMode)

	// AlphaCutoff retrieves the threshold below which masked fragments are discarded.
	AlphaCutoff() float32

	// IsBlend reports whether the material blends with the framebuffer.
	IsBlend() bool

	// IsTranslucent reports whether the material is a transmissive surface drawn after opaque geometry.
	IsTranslucent() bool

	// SetTranslucent marks the material as transmissive.
	SetTranslucent(translucent bool)

	// ZWriteWhenBlend reports whether a blended material still writes depth.
	ZWriteWhenBlend() bool

	// SetZWriteWhenBlend sets whether a blended material writes depth.
	SetZWriteWhenBlend(zWrite bool)

	// DoubleSided reports whether back-face culling is disabled.
	DoubleSided() bool

	// BaseColor retrieves the albedo/diffuse RGBA color of the material.
	//
	// Returns:
	//   - [4]float32: the base color as RGBA values
	BaseColor() [4]float32

	// SetBaseColor sets the base color.
	SetBaseColor(color [4]float32)

	// Metallic retrieves the metallic factor of the material.
	// A value of 0.0 represents a dielectric surface, 1.0 represents a fully metallic surface.
	Metallic() float32

	// Roughness retrieves the roughness factor of the material.
	// A value of 0.0 represents a perfectly smooth surface, 1.0 represents a fully rough surface.
	Roughness() float32

	// BaseColorTexture retrieves the base color texture, or nil if none is set.
	//
	// Returns:
	//   - *texture.Texture: the texture, possibly not ready yet
	BaseColorTexture() *texture.Texture

	// SetBaseColorTexture sets the base color texture.
	SetBaseColorTexture(t *texture.Texture)

	// ShaderSource retrieves the WGSL source the shader program is built from.
	ShaderSource() string

	// ShaderProgram retrieves the handle of the compiled shader program.
	//
	// Returns:
	//   - common.CGAPIResourceHandle: the handle, invalid until the program is created
	ShaderProgram() common.CGAPIResourceHandle

	// SetShaderProgram stores the handle returned by the resource repository.
	SetShaderProgram(h common.CGAPIResourceHandle)

	// ParamsHandle retrieves the handle of the material's GPU parameter block.
	ParamsHandle() common.CGAPIResourceHandle

	// SetParamsHandle stores the handle of the material's GPU parameter block.
	SetParamsHandle(h common.CGAPIResourceHandle)

	// GPUParams packs the surface parameters for upload.
	//
	// Returns:
	//   - GPUMaterialParams: the packed parameters
	GPUParams() GPUMaterialParams

	// Version increases whenever a parameter changes.
	Version() uint64
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
// Materials are usually created through a MaterialRepository, which assigns the type and instance IDs.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		baseColor:     [4]float32{1, 1, 1, 1},
		metallic:      0.0,
		roughness:     1.0,
		alphaCutoff:   0.5,
		shaderSource:  StandardShaderSource,
		shaderProgram: common.InvalidCGAPIResourceHandle,
		paramsHandle:  common.InvalidCGAPIResourceHandle,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) TypeName() string {
	return m.typeName
}

func (m *material) MaterialTID() uint32 {
	return m.materialTID
}

func (m *material) MaterialSID() int {
	return m.materialSID
}

func (m *material) MaterialUID() int {
	return m.materialUID
}

func (m *material) AlphaMode() AlphaMode {
	return m.alphaMode
}

func (m *material) SetAlphaMode(mode AlphaMode) {
	m.alphaMode = mode
	m.version++
}

func (m *material) AlphaCutoff() float32 {
	return m.alphaCutoff
}

func (m *material) IsBlend() bool {
	return m.alphaMode == AlphaModeBlend
}

func (m *material) IsTranslucent() bool {
	return m.translucent
}

func (m *material) SetTranslucent(translucent bool) {
	m.translucent = translucent
	m.version++
}

func (m *material) ZWriteWhenBlend() bool {
	return m.zWriteWhenBlend
}

func (m *material) SetZWriteWhenBlend(zWrite bool) {
	m.zWriteWhenBlend = zWrite
	m.version++
}

func (m *material) DoubleSided() bool {
	return m.doubleSided
}

func (m *material) BaseColor() [4]float32 {
	return m.baseColor
}

func (m *material) SetBaseColor(color [4]float32) {
	m.baseColor = color
	m.version++
}

func (m *material) Metallic() float32 {
	return m.metallic
}

func (m *material) Roughness() float32 {
	return m.roughness
}

func (m *material) BaseColorTexture() *texture.Texture {
	return m.baseColorTexture
}

func (m *material) SetBaseColorTexture(t *texture.Texture) {
	m.baseColorTexture = t
	m.version++
}

func (m *material) ShaderSource() string {
	return m.shaderSource
}

func (m *material) ShaderProgram() common.CGAPIResourceHandle {
	return m.shaderProgram
}

func (m *material) SetShaderProgram(h common.CGAPIResourceHandle) {
	m.shaderProgram = h
}

func (m *material) ParamsHandle() common.CGAPIResourceHandle {
	return m.paramsHandle
}

func (m *material) SetParamsHandle(h common.CGAPIResourceHandle) {
	m.paramsHandle = h
}

func (m *material) GPUParams() GPUMaterialParams {
	cutoff := float32(0)
	if m.alphaMode == AlphaModeMask {
		cutoff = m.alphaCutoff
	}
	return GPUMaterialParams{
		BaseColor: m.baseColor,
		Factors:   [4]float32{m.metallic, m.roughness, cutoff, 0},
	}
}

func (m *material) Version() uint64 {
	return m.version
}
