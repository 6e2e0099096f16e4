package shader

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrMissingEntryPoint is returned when a program lacks a @vertex or @fragment function.
var ErrMissingEntryPoint = errors.New("shader: missing entry point")

// VertexInput is one @location input of the vertex entry point.
type VertexInput struct {
	Name     string
	Location uint32
	Format   wgpu.VertexFormat
	Size     uint64
}

// program is the implementation of the Program interface.
// It holds the expanded source plus the layout metadata reflected from it.
type program struct {
	key                        string
	source                     string
	vertexEntryPoint           string
	fragmentEntryPoint         string
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	vertexInputs               []VertexInput
}

// Program is a parsed render program: one WGSL module with a vertex and a fragment entry point.
// Its reflected bind group layouts and vertex inputs are used to create GPU pipelines
// without hand-written layout tables.
type Program interface {
	// Key retrieves the unique identifier for this program, used for caching and lookups.
	Key() string

	// Source retrieves the expanded WGSL source code.
	Source() string

	// VertexEntryPoint returns the name of the @vertex function.
	VertexEntryPoint() string

	// FragmentEntryPoint returns the name of the @fragment function.
	FragmentEntryPoint() string

	// BindGroupLayoutDescriptors retrieves all reflected bind group layout descriptors.
	// Every entry is visible to both the vertex and the fragment stage.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name declared at group and binding.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or an empty string if not declared
	BindGroupVarName(group, binding int) string

	// VertexInputs returns the @location inputs of the vertex entry point sorted by location.
	// A buffer-less program (for example a fullscreen triangle) returns none.
	VertexInputs() []VertexInput

	// VertexBufferLayouts returns one tightly packed vertex buffer layout per vertex input,
	// in location order. Each attribute lives in its own buffer.
	VertexBufferLayouts() []wgpu.VertexBufferLayout
}

var _ Program = &program{}

// NewProgram pre-processes and reflects a WGSL source.
//
// Parameters:
//   - key: a unique identifier for the program
//   - source: the WGSL source, possibly containing include directives
//
// Returns:
//   - Program: the parsed program
//   - error: an error if an include fails or an entry point is missing
func NewProgram(key, source string) (Program, error) {
	expanded, err := NewPreProcessor().Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}

	p := &program{
		key:                key,
		source:             expanded,
		vertexEntryPoint:   parseEntryPoint(expanded, stageVertex),
		fragmentEntryPoint: parseEntryPoint(expanded, stageFragment),
	}
	if p.vertexEntryPoint == "" || p.fragmentEntryPoint == "" {
		return nil, fmt.Errorf("shader %s: %w (vertex %q, fragment %q)", key, ErrMissingEntryPoint, p.vertexEntryPoint, p.fragmentEntryPoint)
	}

	p.bindGroupLayoutDescriptors, p.bindingVarNames = parseBindGroupLayouts(expanded, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment)
	p.vertexInputs = parseVertexInputs(expanded, p.vertexEntryPoint)
	return p, nil
}

func (p *program) Key() string {
	return p.key
}

func (p *program) Source() string {
	return p.source
}

func (p *program) VertexEntryPoint() string {
	return p.vertexEntryPoint
}

func (p *program) FragmentEntryPoint() string {
	return p.fragmentEntryPoint
}

func (p *program) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return p.bindGroupLayoutDescriptors
}

func (p *program) BindGroupVarName(group, binding int) string {
	if p.bindingVarNames[group] == nil {
		return ""
	}
	return p.bindingVarNames[group][binding]
}

func (p *program) VertexInputs() []VertexInput {
	return p.vertexInputs
}

func (p *program) VertexBufferLayouts() []wgpu.VertexBufferLayout {
	layouts := make([]wgpu.VertexBufferLayout, 0, len(p.vertexInputs))
	for _, in := range p.vertexInputs {
		layouts = append(layouts, wgpu.VertexBufferLayout{
			ArrayStride: in.Size,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: in.Format, Offset: 0, ShaderLocation: in.Location},
			},
		})
	}
	return layouts
}

// MaxBindGroup returns the highest group index declared by p, or -1 if none.
func MaxBindGroup(p Program) int {
	maxGroup := -1
	for g := range p.BindGroupLayoutDescriptors() {
		if g > maxGroup {
			maxGroup = g
		}
	}
	return maxGroup
}

func sortVertexInputs(inputs []VertexInput) {
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Location < inputs[j].Location })
}
