// Package texture holds CPU-side texture records whose GPU handles are created by a CG API resource repository.
package texture

import (
	"github.com/Carmen-Shannon/rhodonite-go/common"
)

// Texture tracks a GPU texture and whether it can be sampled yet.
// A texture created from a file starts not ready; draws substitute a dummy until the load completes.
type Texture struct {
	name    string
	width   uint32
	height  uint32
	handle  common.CGAPIResourceHandle
	sampler common.CGAPIResourceHandle
	ready   bool

	staging        *common.TextureStagingData
	samplerStaging *common.SamplerStagingData
}

// NewTexture creates a texture record without GPU storage.
//
// Parameters:
//   - name: label passed to the GPU API
//
// Returns:
//   - *Texture: a not-ready texture
func NewTexture(name string) *Texture {
	return &Texture{
		name:    name,
		handle:  common.InvalidCGAPIResourceHandle,
		sampler: common.InvalidCGAPIResourceHandle,
	}
}

// NewTextureFromPixels creates a texture whose pixels are staged for upload.
//
// Parameters:
//   - name: label passed to the GPU API
//   - data: RGBA pixels
//
// Returns:
//   - *Texture: a not-ready texture with staging data
func NewTextureFromPixels(name string, data *common.TextureStagingData) *Texture {
	t := NewTexture(name)
	t.SetStaging(data)
	return t
}

func (t *Texture) Name() string { return t.name }

func (t *Texture) Width() uint32 { return t.width }

func (t *Texture) Height() uint32 { return t.height }

// IsReady reports whether the GPU texture exists and holds its final pixels.
func (t *Texture) IsReady() bool { return t.ready }

func (t *Texture) Handle() common.CGAPIResourceHandle { return t.handle }

func (t *Texture) SamplerHandle() common.CGAPIResourceHandle { return t.sampler }

// Staging returns pixels waiting for upload, nil once uploaded.
func (t *Texture) Staging() *common.TextureStagingData { return t.staging }

// SetStaging queues pixels for upload and records the texture size.
func (t *Texture) SetStaging(data *common.TextureStagingData) {
	t.staging = data
	if data != nil {
		t.width = data.Width
		t.height = data.Height
	}
}

// SamplerStaging returns custom sampler settings, nil for the default linear/repeat sampler.
func (t *Texture) SamplerStaging() *common.SamplerStagingData { return t.samplerStaging }

func (t *Texture) SetSamplerStaging(s *common.SamplerStagingData) { t.samplerStaging = s }

// MarkReady records the GPU handles and drops the staging pixels.
//
// Parameters:
//   - handle: texture handle from the resource repository
//   - sampler: sampler handle from the resource repository
func (t *Texture) MarkReady(handle, sampler common.CGAPIResourceHandle) {
	t.handle = handle
	t.sampler = sampler
	t.ready = handle.IsValid()
	t.staging = nil
}

// MarkRenderTarget records a texture allocated as a framebuffer attachment.
func (t *Texture) MarkRenderTarget(handle common.CGAPIResourceHandle, width, height uint32) {
	t.handle = handle
	t.width = width
	t.height = height
	t.ready = handle.IsValid()
}

// Or returns t when it is ready and fallback otherwise.
func (t *Texture) Or(fallback *Texture) *Texture {
	if t != nil && t.ready {
		return t
	}
	return fallback
}

// Dummies are 1x1 placeholder textures bound while real textures load.
type Dummies struct {
	White  *Texture
	Black  *Texture
	Normal *Texture
}

// NewDummies creates the placeholder set with staged pixels.
//
// Returns:
//   - *Dummies: white, black and flat-normal 1x1 textures
func NewDummies() *Dummies {
	pixel := func(name string, r, g, b, a byte) *Texture {
		return NewTextureFromPixels(name, &common.TextureStagingData{Pixels: []byte{r, g, b, a}, Width: 1, Height: 1})
	}
	return &Dummies{
		White:  pixel("dummy-white", 255, 255, 255, 255),
		Black:  pixel("dummy-black", 0, 0, 0, 255),
		Normal: pixel("dummy-normal", 128, 128, 255, 255),
	}
}

// All returns every placeholder.
func (d *Dummies) All() []*Texture {
	return []*Texture{d.White, d.Black, d.Normal}
}
