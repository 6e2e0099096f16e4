package render_pipeline

import "go.uber.org/zap"

// FrameBufferBuilderOption is a functional option for configuring a FrameBuffer.
type FrameBufferBuilderOption func(fb *frameBuffer)

// WithLabel names the framebuffer; attachment labels are derived from it.
func WithLabel(label string) FrameBufferBuilderOption {
	return func(fb *frameBuffer) {
		fb.label = label
	}
}

// WithColorAttachments sets the number of color attachments (multiple render targets).
//
// Parameters:
//   - n: attachment count, at least 1
//
// Returns:
//   - FrameBufferBuilderOption: option function to apply
func WithColorAttachments(n int) FrameBufferBuilderOption {
	return func(fb *frameBuffer) {
		fb.colorCount = max(n, 1)
	}
}

// WithDepthAttachment enables or disables the depth attachment.
func WithDepthAttachment(enabled bool) FrameBufferBuilderOption {
	return func(fb *frameBuffer) {
		fb.depth = enabled
	}
}

// WithSampleCount sets the MSAA sample count of every attachment.
// A multisampled framebuffer cannot be sampled; pair it with a resolve framebuffer.
func WithSampleCount(n uint32) FrameBufferBuilderOption {
	return func(fb *frameBuffer) {
		fb.sampleCount = max(n, 1)
	}
}

// WithFrameBufferLogger sets the logger used for allocation messages.
func WithFrameBufferLogger(logger *zap.Logger) FrameBufferBuilderOption {
	return func(fb *frameBuffer) {
		if logger != nil {
			fb.logger = logger.Named("framebuffer")
		}
	}
}
