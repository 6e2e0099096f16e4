// Package common holds the plain value types shared across the engine: the float32 math vocabulary
// stored in component memory, opaque CG API handles and texture staging data.
package common

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"

	"github.com/cogentcore/webgpu/wgpu"
)

// CGAPIResourceHandle is an opaque identifier for a GPU resource owned by a CG API resource repository.
// The core never interprets handles; it only stores them and passes them back.
type CGAPIResourceHandle int32

// InvalidCGAPIResourceHandle marks a resource that has not been created (or failed to be).
const InvalidCGAPIResourceHandle CGAPIResourceHandle = -1

// IsValid reports whether h refers to a created resource. Repositories hand out handles from 1,
// so the zero value is never valid.
func (h CGAPIResourceHandle) IsValid() bool {
	return h > 0
}

// TextureStagingData holds RGBA pixel data for a texture pending GPU upload.
// Loaders produce it off the main thread; the resource repository consumes it during the Load stage.
type TextureStagingData struct {
	Pixels []byte // RGBA8, 4 bytes per pixel
	Width  uint32
	Height uint32
}

// SamplerStagingData holds the configuration for a sampler pending GPU creation.
// Zero fields fall back to linear filtering with repeat addressing.
type SamplerStagingData struct {
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	MagFilter, MinFilter                     wgpu.FilterMode
	MipmapFilter                             wgpu.MipmapFilterMode
	LodMinClamp, LodMaxClamp                 float32
	Compare                                  wgpu.CompareFunction
	MaxAnisotropy                            uint16
}

// DecodeTextureStaging decodes PNG or JPEG bytes into tightly packed RGBA8 pixels.
//
// Parameters:
//   - name: used in error messages
//   - data: the encoded image
//
// Returns:
//   - *TextureStagingData: the decoded pixels, rows top to bottom
//   - error: an error if data is empty or not a supported image
func DecodeTextureStaging(name string, data []byte) (*TextureStagingData, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("decode texture %s: no image data", name)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode texture %s: %w", name, err)
	}

	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*bounds.Dx() || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	return &TextureStagingData{Pixels: rgba.Pix, Width: uint32(bounds.Dx()), Height: uint32(bounds.Dy())}, nil
}
