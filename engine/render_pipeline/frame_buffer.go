package render_pipeline

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/rhodonite-go/common"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/texture"
	"go.uber.org/zap"
)

// ErrFrameBufferNotCreated is returned when a pass targets a framebuffer whose textures were never allocated.
var ErrFrameBufferNotCreated = errors.New("framebuffer textures not created")

// RenderTargetTexture is one attachment of a FrameBuffer. Its Texture can be bound as a
// material texture once the framebuffer has been created.
type RenderTargetTexture struct {
	renderer.RenderTargetDescriptor
	texture *texture.Texture
}

// Handle returns the CG API handle of the attachment, invalid before creation.
func (t *RenderTargetTexture) Handle() common.CGAPIResourceHandle {
	return t.texture.Handle()
}

// Texture returns the attachment as a texture usable by materials.
func (t *RenderTargetTexture) Texture() *texture.Texture {
	return t.texture
}

// IsReady reports whether the attachment has been allocated.
func (t *RenderTargetTexture) IsReady() bool {
	return t.texture.IsReady()
}

// FrameBuffer is a set of render target textures a render pass draws into.
type FrameBuffer interface {
	Label() string

	// Size returns the width and height of every attachment.
	Size() (uint32, uint32)

	SampleCount() uint32

	// ColorAttachments returns the color attachments in location order.
	ColorAttachments() []*RenderTargetTexture

	// ColorAttachment returns the color attachment at index.
	//
	// Parameters:
	//   - index: attachment location
	//
	// Returns:
	//   - *RenderTargetTexture: the attachment
	//   - bool: false if index is out of range
	ColorAttachment(index int) (*RenderTargetTexture, bool)

	// DepthAttachment returns the depth attachment, nil if the framebuffer has none.
	DepthAttachment() *RenderTargetTexture

	// Create allocates every attachment through repo. Calling it again is a no-op.
	//
	// Parameters:
	//   - repo: the CG API repository
	//
	// Returns:
	//   - error: the first allocation error; attachments created before it are released
	Create(repo renderer.CGAPIResourceRepository) error

	// IsCreated reports whether Create succeeded and Release was not called since.
	IsCreated() bool

	// Resize releases the attachments and creates them again at the new size.
	//
	// Parameters:
	//   - repo: the CG API repository
	//   - width, height: the new size in pixels
	//
	// Returns:
	//   - error: an allocation error
	Resize(repo renderer.CGAPIResourceRepository, width, height uint32) error

	// Release deletes the attachments from repo.
	Release(repo renderer.CGAPIResourceRepository)
}

type frameBuffer struct {
	label       string
	width       uint32
	height      uint32
	sampleCount uint32
	colorCount  int
	depth       bool
	logger      *zap.Logger

	colors  []*RenderTargetTexture
	depthRT *RenderTargetTexture
	created bool
}

var _ FrameBuffer = &frameBuffer{}

// NewFrameBuffer describes a framebuffer. Textures are allocated by Create.
// Defaults to one color attachment, a depth attachment and a single sample.
//
// Parameters:
//   - width, height: attachment size in pixels
//   - options: variadic list of FrameBufferBuilderOption functions
//
// Returns:
//   - FrameBuffer: the framebuffer
func NewFrameBuffer(width, height uint32, options ...FrameBufferBuilderOption) FrameBuffer {
	fb := &frameBuffer{
		label:       "framebuffer",
		width:       width,
		height:      height,
		sampleCount: 1,
		colorCount:  1,
		depth:       true,
		logger:      zap.NewNop(),
	}
	for _, opt := range options {
		opt(fb)
	}
	fb.describe()
	return fb
}

// describe builds the attachment descriptors for the current size.
func (fb *frameBuffer) describe() {
	fb.colors = make([]*RenderTargetTexture, fb.colorCount)
	for i := range fb.colors {
		label := fmt.Sprintf("%s/color%d", fb.label, i)
		fb.colors[i] = &RenderTargetTexture{
			RenderTargetDescriptor: renderer.RenderTargetDescriptor{
				Label:       label,
				Width:       fb.width,
				Height:      fb.height,
				Format:      renderer.FormatRGBA8,
				SampleCount: fb.sampleCount,
			},
			texture: texture.NewTexture(label),
		}
	}
	fb.depthRT = nil
	if fb.depth {
		label := fb.label + "/depth"
		fb.depthRT = &RenderTargetTexture{
			RenderTargetDescriptor: renderer.RenderTargetDescriptor{
				Label:       label,
				Width:       fb.width,
				Height:      fb.height,
				Format:      renderer.FormatDepth24,
				SampleCount: fb.sampleCount,
			},
			texture: texture.NewTexture(label),
		}
	}
}

func (fb *frameBuffer) Label() string { return fb.label }

func (fb *frameBuffer) Size() (uint32, uint32) { return fb.width, fb.height }

func (fb *frameBuffer) SampleCount() uint32 { return fb.sampleCount }

func (fb *frameBuffer) ColorAttachments() []*RenderTargetTexture { return fb.colors }

func (fb *frameBuffer) ColorAttachment(index int) (*RenderTargetTexture, bool) {
	if index < 0 || index >= len(fb.colors) {
		return nil, false
	}
	return fb.colors[index], true
}

func (fb *frameBuffer) DepthAttachment() *RenderTargetTexture { return fb.depthRT }

func (fb *frameBuffer) attachments() []*RenderTargetTexture {
	all := append([]*RenderTargetTexture{}, fb.colors...)
	if fb.depthRT != nil {
		all = append(all, fb.depthRT)
	}
	return all
}

func (fb *frameBuffer) Create(repo renderer.CGAPIResourceRepository) error {
	if fb.created {
		return nil
	}
	for _, rt := range fb.attachments() {
		h, err := repo.CreateRenderTargetTexture(rt.RenderTargetDescriptor)
		if err != nil {
			fb.Release(repo)
			return fmt.Errorf("create framebuffer %q attachment %q: %w", fb.label, rt.Label, err)
		}
		rt.texture.MarkRenderTarget(h, rt.Width, rt.Height)
	}
	fb.created = true
	fb.logger.Debug("framebuffer created",
		zap.String("label", fb.label),
		zap.Uint32("width", fb.width),
		zap.Uint32("height", fb.height),
		zap.Int("colors", len(fb.colors)),
	)
	return nil
}

func (fb *frameBuffer) IsCreated() bool { return fb.created }

func (fb *frameBuffer) Resize(repo renderer.CGAPIResourceRepository, width, height uint32) error {
	if width == fb.width && height == fb.height {
		return nil
	}
	wasCreated := fb.created
	fb.Release(repo)
	fb.width, fb.height = width, height
	fb.describe()
	if !wasCreated {
		return nil
	}
	return fb.Create(repo)
}

func (fb *frameBuffer) Release(repo renderer.CGAPIResourceRepository) {
	for _, rt := range fb.attachments() {
		if h := rt.Handle(); h.IsValid() {
			if err := repo.DeleteResource(h); err != nil {
				fb.logger.Warn("release attachment", zap.String("label", rt.Label), zap.Error(err))
			}
		}
		rt.texture.MarkRenderTarget(common.InvalidCGAPIResourceHandle, rt.Width, rt.Height)
	}
	fb.created = false
}
