package render_pipeline

import (
	"slices"
	"sync/atomic"
)

var expressionCount atomic.Int32

// Expression is an ordered list of render passes executed one after another.
type Expression interface {
	ExpressionUID() int

	Tag() string
	SetTag(tag string)

	// AddRenderPasses appends passes; they run in the order added.
	AddRenderPasses(passes ...RenderPass)

	RenderPasses() []RenderPass

	// RenderPassByTag returns the first pass with tag.
	RenderPassByTag(tag string) (RenderPass, bool)

	// Contains reports whether p is one of the expression's passes.
	Contains(p RenderPass) bool

	ClearRenderPasses()
}

type expression struct {
	uid    int
	tag    string
	passes []RenderPass
}

var _ Expression = &expression{}

// NewExpression creates an expression holding passes.
//
// Parameters:
//   - tag: name used to look the expression up in a frame
//   - passes: initial render passes in execution order
//
// Returns:
//   - Expression: the expression
func NewExpression(tag string, passes ...RenderPass) Expression {
	e := &expression{uid: int(expressionCount.Add(1)), tag: tag}
	e.AddRenderPasses(passes...)
	return e
}

func (e *expression) ExpressionUID() int { return e.uid }

func (e *expression) Tag() string { return e.tag }

func (e *expression) SetTag(tag string) { e.tag = tag }

func (e *expression) AddRenderPasses(passes ...RenderPass) {
	for _, p := range passes {
		if p != nil {
			e.passes = append(e.passes, p)
		}
	}
}

func (e *expression) RenderPasses() []RenderPass { return slices.Clone(e.passes) }

func (e *expression) RenderPassByTag(tag string) (RenderPass, bool) {
	for _, p := range e.passes {
		if p.Tag() == tag {
			return p, true
		}
	}
	return nil, false
}

func (e *expression) Contains(p RenderPass) bool {
	return slices.Contains(e.passes, p)
}

func (e *expression) ClearRenderPasses() { e.passes = nil }
