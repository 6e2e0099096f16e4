// Package renderer is the boundary between the engine core and a CG API.
// The core hands primitives, materials, textures and draw commands to a CGAPIResourceRepository
// and only ever stores the opaque handles it returns.
package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/rhodonite-go/common"
	"github.com/Carmen-Shannon/rhodonite-go/engine/geometry"
	"github.com/Carmen-Shannon/rhodonite-go/engine/memory"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/material"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/texture"
	"github.com/Carmen-Shannon/rhodonite-go/engine/window"
	"go.uber.org/zap"
)

// CGAPIResourceRepository defines the interface every CG API strategy implements.
//
// Resources are created during the Load stage and referenced by handle afterwards. A frame is a
// sequence of render passes, each opened with BeginRenderPass, filled with Draw calls and closed
// with EndRenderPass, followed by one Present. Per-pass data (the frame uniform, lights and the
// instance data) must be written before the pass that reads it is begun.
type CGAPIResourceRepository interface {
	// Strategy reports which implementation is behind the repository.
	Strategy() StrategyType

	// CreateVertexBufferAndIndexBuffer uploads a primitive's attributes and indices.
	// The returned handles are also stored on the primitive.
	//
	// Parameters:
	//   - p: the primitive to upload
	//
	// Returns:
	//   - *geometry.VertexHandles: the created buffer handles
	//   - error: an error if the primitive has no positions or buffer creation fails
	CreateVertexBufferAndIndexBuffer(p *geometry.Primitive) (*geometry.VertexHandles, error)

	// DeleteVertexBufferAndIndexBuffer releases the buffers created for a primitive.
	DeleteVertexBufferAndIndexBuffer(h *geometry.VertexHandles)

	// CreateShaderProgram compiles the material's shader source and allocates its parameter block.
	// Programs are shared between materials with identical sources.
	//
	// Parameters:
	//   - m: the material; its ShaderProgram and ParamsHandle are set on success
	//
	// Returns:
	//   - common.CGAPIResourceHandle: the program handle
	//   - error: an error if the source does not parse or compile
	CreateShaderProgram(m material.Material) (common.CGAPIResourceHandle, error)

	// UpdateMaterialParams uploads the material's parameters if they changed since the last upload.
	//
	// Returns:
	//   - bool: true if an upload happened
	//   - error: ErrShaderProgramNotCreated if the material has no parameter block
	UpdateMaterialParams(m material.Material) (bool, error)

	// CreateTexture uploads the texture's staged pixels and creates its sampler, then marks it ready.
	//
	// Parameters:
	//   - t: a texture with staging data
	//
	// Returns:
	//   - error: an error if the texture has no pixels or creation fails
	CreateTexture(t *texture.Texture) error

	// CreateRenderTargetTexture allocates a texture usable as a framebuffer attachment and sampled later.
	//
	// Parameters:
	//   - desc: size, format and sample count
	//
	// Returns:
	//   - common.CGAPIResourceHandle: the texture handle
	//   - error: an error if creation fails
	CreateRenderTargetTexture(desc RenderTargetDescriptor) (common.CGAPIResourceHandle, error)

	// DeleteResource releases any single resource by handle.
	//
	// Returns:
	//   - error: ErrResourceNotFound for unknown handles
	DeleteResource(h common.CGAPIResourceHandle) error

	// UploadInstanceData copies the world matrix array to the GPU storage buffer indexed by SceneGraph SID.
	// The upload is skipped when the owning buffer's version did not change since the last call.
	//
	// Parameters:
	//   - worldMatrices: the SceneGraph world matrix accessor
	//
	// Returns:
	//   - bool: true if an upload happened
	//   - error: an error if the buffer could not be grown
	UploadInstanceData(worldMatrices *memory.Accessor) (bool, error)

	// UpdateFrameUniform writes the camera block read by the next render pass.
	UpdateFrameUniform(u FrameUniform) error

	// UpdateLights writes the light array read by the next render pass.
	UpdateLights(lights []GPULight) error

	// BeginRenderPass opens a render pass. Only one pass can be open at a time.
	//
	// Parameters:
	//   - desc: the attachments, clear values and viewport
	//
	// Returns:
	//   - error: ErrRenderPassOpen, ErrResourceNotFound for unknown attachments, or a surface error
	BeginRenderPass(desc RenderPassDescriptor) error

	// Draw records one draw call into the open render pass.
	//
	// Returns:
	//   - error: ErrNoRenderPass, ErrShaderProgramNotCreated or ErrPrimitiveNotUploaded
	Draw(cmd DrawCommand) error

	// EndRenderPass closes the open render pass and submits its commands.
	EndRenderPass() error

	// Present shows the frame drawn into the surface, if any surface pass ran.
	Present() error

	// Resize reconfigures the surface and the attachments sized to it.
	Resize(width, height int)

	// CanvasSize returns the current surface size in pixels.
	CanvasSize() (int, int)

	// DummyTextures returns the ready placeholder textures substituted for unloaded ones.
	DummyTextures() *texture.Dummies

	// Release frees every GPU resource the repository owns.
	Release()
}

// NewResourceRepository creates a CGAPIResourceRepository for the given strategy.
//
// Parameters:
//   - strategy: StrategyWebGPU or StrategyHeadless
//   - win: the window whose surface is rendered to; ignored (and may be nil) for the headless strategy
//   - options: variadic list of RendererBuilderOption functions
//
// Returns:
//   - CGAPIResourceRepository: the repository
//   - error: an error if the strategy is unknown or the GPU device cannot be created
func NewResourceRepository(strategy StrategyType, win window.Window, options ...RendererBuilderOption) (CGAPIResourceRepository, error) {
	switch strategy {
	case StrategyHeadless:
		return NewHeadlessResourceRepository(options...), nil
	case StrategyWebGPU:
		if win == nil {
			return nil, errors.New("webgpu strategy requires a window")
		}
		return newWGPUResourceRepository(win, newRendererOptions(options...))
	default:
		return nil, fmt.Errorf("unknown cg api strategy %d", int(strategy))
	}
}

// validateDraw checks the preconditions shared by every strategy.
func validateDraw(passOpen bool, cmd DrawCommand) error {
	if !passOpen {
		return ErrNoRenderPass
	}
	if cmd.Material == nil || !cmd.Material.ShaderProgram().IsValid() {
		return ErrShaderProgramNotCreated
	}
	if cmd.Primitive != nil && cmd.Primitive.VertexHandles() == nil {
		return fmt.Errorf("%w: %s", ErrPrimitiveNotUploaded, cmd.Primitive.Name())
	}
	return nil
}

// resourceTable hands out handles from 1 and maps them to strategy-specific resources.
type resourceTable[T any] struct {
	next  common.CGAPIResourceHandle
	items map[common.CGAPIResourceHandle]T
}

func newResourceTable[T any]() *resourceTable[T] {
	return &resourceTable[T]{next: 1, items: make(map[common.CGAPIResourceHandle]T)}
}

func (t *resourceTable[T]) add(v T) common.CGAPIResourceHandle {
	h := t.next
	t.next++
	t.items[h] = v
	return h
}

func (t *resourceTable[T]) get(h common.CGAPIResourceHandle) (T, bool) {
	v, ok := t.items[h]
	return v, ok
}

func (t *resourceTable[T]) remove(h common.CGAPIResourceHandle) (T, bool) {
	v, ok := t.items[h]
	if ok {
		delete(t.items, h)
	}
	return v, ok
}

func (t *resourceTable[T]) len() int {
	return len(t.items)
}

func (t *resourceTable[T]) each(fn func(h common.CGAPIResourceHandle, v T)) {
	for h, v := range t.items {
		fn(h, v)
	}
}

func rendererLogger(o *rendererOptions, strategy StrategyType) *zap.Logger {
	return o.logger.Named("renderer").With(zap.Stringer("strategy", strategy))
}
