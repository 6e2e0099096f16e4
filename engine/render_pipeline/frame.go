package render_pipeline

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrAttachmentNotFound is returned when an input render pass has no output produced by an earlier expression.
	ErrAttachmentNotFound = errors.New("color attachment not found")

	// ErrExpressionNotInFrame is returned for expressions that were never added to the frame.
	ErrExpressionNotInFrame = errors.New("expression not in frame")

	// ErrPassNotInExpression is returned when an output names a pass of another expression.
	ErrPassNotInExpression = errors.New("render pass not in expression")
)

// ExpressionOption configures how an expression is wired into a Frame.
type ExpressionOption func(l *expressionLink)

// WithInputRenderPasses declares passes of earlier expressions whose outputs this expression reads.
//
// Parameters:
//   - passes: the producing passes
//
// Returns:
//   - ExpressionOption: option function to apply
func WithInputRenderPasses(passes ...RenderPass) ExpressionOption {
	return func(l *expressionLink) {
		l.inputs = append(l.inputs, passes...)
	}
}

// WithOutput assigns fb as the render target of pass when the frame is resolved.
//
// Parameters:
//   - pass: a pass of the expression being added
//   - fb: the framebuffer the pass draws into
//
// Returns:
//   - ExpressionOption: option function to apply
func WithOutput(pass RenderPass, fb FrameBuffer) ExpressionOption {
	return func(l *expressionLink) {
		l.outputs = append(l.outputs, output{pass: pass, frameBuffer: fb})
	}
}

// WithResolveOutput assigns fb as the MSAA resolve target of pass when the frame is resolved.
func WithResolveOutput(pass RenderPass, fb FrameBuffer) ExpressionOption {
	return func(l *expressionLink) {
		l.outputs = append(l.outputs, output{pass: pass, frameBuffer: fb, resolve: true})
	}
}

type output struct {
	pass        RenderPass
	frameBuffer FrameBuffer
	resolve     bool
}

type expressionLink struct {
	expression Expression
	inputs     []RenderPass
	outputs    []output
}

// Frame is the ordered list of expressions drawn for one displayed frame.
// Outputs map passes to framebuffers; inputs let a later expression read what an earlier one drew.
type Frame interface {
	// AddExpression appends e with its input and output wiring.
	AddExpression(e Expression, options ...ExpressionOption)

	// Expressions returns the expressions in execution order.
	Expressions() []Expression

	ExpressionByTag(tag string) (Expression, bool)

	// RenderPasses returns every pass of every expression in execution order.
	RenderPasses() []RenderPass

	// Resolve applies the declared outputs to their passes and checks the inputs.
	//
	// Returns:
	//   - error: ErrPassNotInExpression for an output naming a foreign pass, or
	//     ErrAttachmentNotFound for an input no earlier expression produces
	Resolve() error

	// ColorAttachmentFromInputOf returns a color attachment drawn by an input pass of expression.
	//
	// Parameters:
	//   - expression: the reading expression
	//   - renderPass: one of its declared input passes
	//   - index: the color attachment location
	//
	// Returns:
	//   - *RenderTargetTexture: the attachment; the resolve target wins over the multisampled one
	//   - error: ErrExpressionNotInFrame or ErrAttachmentNotFound
	ColorAttachmentFromInputOf(expression Expression, renderPass RenderPass, index int) (*RenderTargetTexture, error)

	// FrameBuffers returns the distinct framebuffers used by the passes, in first-use order.
	FrameBuffers() []FrameBuffer

	Clear()
}

type frame struct {
	links []*expressionLink
}

var _ Frame = &frame{}

// NewFrame creates an empty frame.
func NewFrame() Frame {
	return &frame{}
}

func (f *frame) AddExpression(e Expression, options ...ExpressionOption) {
	l := &expressionLink{expression: e}
	for _, opt := range options {
		opt(l)
	}
	f.links = append(f.links, l)
}

func (f *frame) Expressions() []Expression {
	out := make([]Expression, len(f.links))
	for i, l := range f.links {
		out[i] = l.expression
	}
	return out
}

func (f *frame) ExpressionByTag(tag string) (Expression, bool) {
	for _, l := range f.links {
		if l.expression.Tag() == tag {
			return l.expression, true
		}
	}
	return nil, false
}

func (f *frame) RenderPasses() []RenderPass {
	var out []RenderPass
	for _, l := range f.links {
		out = append(out, l.expression.RenderPasses()...)
	}
	return out
}

func (f *frame) indexOf(e Expression) int {
	return slices.IndexFunc(f.links, func(l *expressionLink) bool { return l.expression == e })
}

func (f *frame) Resolve() error {
	for i, l := range f.links {
		for _, o := range l.outputs {
			if !l.expression.Contains(o.pass) {
				return fmt.Errorf("expression %q output %q: %w", l.expression.Tag(), o.pass.Tag(), ErrPassNotInExpression)
			}
			if o.resolve {
				o.pass.SetResolveFrameBuffer(o.frameBuffer)
			} else {
				o.pass.SetFrameBuffer(o.frameBuffer)
			}
		}
		for _, in := range l.inputs {
			if _, err := f.producedBy(i, in); err != nil {
				return fmt.Errorf("expression %q input %q: %w", l.expression.Tag(), in.Tag(), err)
			}
		}
	}
	return nil
}

// producedBy finds the framebuffer pass draws into, searching expressions before index before.
func (f *frame) producedBy(before int, pass RenderPass) (FrameBuffer, error) {
	for i := before - 1; i >= 0; i-- {
		l := f.links[i]
		if !l.expression.Contains(pass) {
			continue
		}
		var fb, resolve FrameBuffer
		for _, o := range l.outputs {
			if o.pass != pass {
				continue
			}
			if o.resolve {
				resolve = o.frameBuffer
			} else {
				fb = o.frameBuffer
			}
		}
		if resolve == nil {
			resolve = pass.ResolveFrameBuffer()
		}
		if fb == nil {
			fb = pass.FrameBuffer()
		}
		if resolve != nil {
			return resolve, nil
		}
		if fb != nil {
			return fb, nil
		}
		return nil, fmt.Errorf("pass %q renders to the surface: %w", pass.Tag(), ErrAttachmentNotFound)
	}
	return nil, ErrAttachmentNotFound
}

func (f *frame) ColorAttachmentFromInputOf(expression Expression, renderPass RenderPass, index int) (*RenderTargetTexture, error) {
	i := f.indexOf(expression)
	if i < 0 {
		return nil, ErrExpressionNotInFrame
	}
	if !slices.Contains(f.links[i].inputs, renderPass) {
		return nil, fmt.Errorf("pass %q is not an input of %q: %w", renderPass.Tag(), expression.Tag(), ErrAttachmentNotFound)
	}
	fb, err := f.producedBy(i, renderPass)
	if err != nil {
		return nil, err
	}
	rt, ok := fb.ColorAttachment(index)
	if !ok {
		return nil, fmt.Errorf("framebuffer %q has no color attachment %d: %w", fb.Label(), index, ErrAttachmentNotFound)
	}
	return rt, nil
}

func (f *frame) FrameBuffers() []FrameBuffer {
	var out []FrameBuffer
	add := func(fb FrameBuffer) {
		if fb != nil && !slices.Contains(out, fb) {
			out = append(out, fb)
		}
	}
	for _, l := range f.links {
		for _, o := range l.outputs {
			add(o.frameBuffer)
		}
		for _, p := range l.expression.RenderPasses() {
			add(p.FrameBuffer())
			add(p.ResolveFrameBuffer())
		}
	}
	return out
}

func (f *frame) Clear() { f.links = nil }
