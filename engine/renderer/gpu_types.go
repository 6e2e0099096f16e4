package renderer

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/rhodonite-go/common"
)

// Light types as encoded in GPULight.Position.w.
const (
	LightTypeDirectional uint32 = 0
	LightTypePoint       uint32 = 1
	LightTypeSpot        uint32 = 2
)

const (
	// FrameUniformSize is the byte size of the WGSL FrameUniform struct (bind group 0, binding 0).
	FrameUniformSize = 96

	// GPULightSize is the byte size of one WGSL Light struct (bind group 0, binding 2).
	GPULightSize = 64

	// InstanceDataStride is the byte size of one world matrix in the instance storage buffer.
	InstanceDataStride = 64
)

// FrameUniform is the per-frame camera block shared by every draw of a render pass.
// Matches the WGSL FrameUniform struct layout exactly:
//
//	viewProjection: mat4x4<f32>  offset 0
//	cameraPosition: vec4<f32>    offset 64
//	info:           vec4<u32>    offset 80 (x = light count)
type FrameUniform struct {
	ViewProjection common.Mat4
	CameraPosition common.Vec3
	LightCount     uint32
}

// Marshal serializes the FrameUniform into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 96-byte buffer ready for GPU upload.
func (f *FrameUniform) Marshal() []byte {
	buf := make([]byte, FrameUniformSize)
	for i, v := range f.ViewProjection {
		putFloat(buf, i*4, v)
	}
	putFloat(buf, 64, f.CameraPosition.X)
	putFloat(buf, 68, f.CameraPosition.Y)
	putFloat(buf, 72, f.CameraPosition.Z)
	putFloat(buf, 76, 1)
	binary.LittleEndian.PutUint32(buf[80:], f.LightCount)
	return buf
}

// GPULight is one entry of the light storage buffer.
// Matches the WGSL Light struct layout exactly (four vec4<f32>, 64 bytes):
//
//	position:  xyz = world position, w = light type
//	direction: xyz = world direction
//	color:     rgb = color premultiplied by intensity
//	params:    x = range, y = cos inner cone, z = cos outer cone
type GPULight struct {
	Position     common.Vec3
	Type         uint32
	Direction    common.Vec3
	Color        common.Vec3
	Range        float32
	InnerConeCos float32
	OuterConeCos float32
}

// Marshal serializes the GPULight into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload.
func (l *GPULight) Marshal() []byte {
	buf := make([]byte, GPULightSize)
	putVec3(buf, 0, l.Position)
	putFloat(buf, 12, float32(l.Type))
	putVec3(buf, 16, l.Direction)
	putVec3(buf, 32, l.Color)
	putFloat(buf, 48, l.Range)
	putFloat(buf, 52, l.InnerConeCos)
	putFloat(buf, 56, l.OuterConeCos)
	return buf
}

// MarshalLights packs lights back to back for the light storage buffer.
// An empty slice still yields one zeroed entry since WebGPU rejects zero-sized bindings.
func MarshalLights(lights []GPULight) []byte {
	if len(lights) == 0 {
		return make([]byte, GPULightSize)
	}
	buf := make([]byte, 0, len(lights)*GPULightSize)
	for i := range lights {
		buf = append(buf, lights[i].Marshal()...)
	}
	return buf
}

func putFloat(buf []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
}

func putVec3(buf []byte, off int, v common.Vec3) {
	putFloat(buf, off, v.X)
	putFloat(buf, off+4, v.Y)
	putFloat(buf, off+8, v.Z)
}
