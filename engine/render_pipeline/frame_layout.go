package render_pipeline

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/Carmen-Shannon/rhodonite-go/engine/ecs"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/material"
	"gopkg.in/yaml.v3"
)

// ErrInvalidFrameLayout is returned for layouts that reference unknown framebuffers or passes.
var ErrInvalidFrameLayout = errors.New("invalid frame layout")

// FrameLayout is the declarative form of a Frame, read from YAML.
//
//	frame_buffers:
//	  - name: scene
//	    width: 1280
//	    height: 720
//	expressions:
//	  - tag: main
//	    passes:
//	      - tag: opaque
//	        frame_buffer: scene
//	        clear_color: [0, 0, 0, 1]
//	        clear_depth: 1
//	  - tag: post
//	    inputs: [main/opaque]
//	    passes:
//	      - tag: blit
//	        fullscreen: true
//	        input_texture: {pass: main/opaque, attachment: 0}
type FrameLayout struct {
	FrameBuffers []FrameBufferLayout `yaml:"frame_buffers"`
	Expressions  []ExpressionLayout  `yaml:"expressions"`
}

// FrameBufferLayout describes one framebuffer. Zero values take the NewFrameBuffer defaults.
type FrameBufferLayout struct {
	Name             string `yaml:"name"`
	Width            uint32 `yaml:"width"`
	Height           uint32 `yaml:"height"`
	ColorAttachments int    `yaml:"color_attachments"`
	Depth            *bool  `yaml:"depth"`
	SampleCount      uint32 `yaml:"sample_count"`
}

// ExpressionLayout describes an expression and the passes of earlier expressions it reads.
// Inputs are written "expressionTag/passTag".
type ExpressionLayout struct {
	Tag    string            `yaml:"tag"`
	Inputs []string          `yaml:"inputs"`
	Passes []RenderPassLayout `yaml:"passes"`
}

// InputTextureLayout binds a color attachment of an input pass as the base color texture of a fullscreen pass.
type InputTextureLayout struct {
	Pass       string `yaml:"pass"`
	Attachment int    `yaml:"attachment"`
}

// RenderPassLayout describes a render pass. Primitives lists the drawn classes among
// "opaque", "translucent", "blend_with_z_write" and "blend_without_z_write"; empty draws all.
type RenderPassLayout struct {
	Tag                string              `yaml:"tag"`
	FrameBuffer        string              `yaml:"frame_buffer"`
	ResolveFrameBuffer string              `yaml:"resolve_frame_buffer"`
	ClearColor         *[4]float32         `yaml:"clear_color"`
	ClearDepth         *float32            `yaml:"clear_depth"`
	Viewport           *[4]float32         `yaml:"viewport"`
	FrustumCulling     bool                `yaml:"frustum_culling"`
	DepthTest          *bool               `yaml:"depth_test"`
	Primitives         []string            `yaml:"primitives"`
	Fullscreen         bool                `yaml:"fullscreen"`
	MaterialType       string              `yaml:"material_type"`
	InputTexture       *InputTextureLayout `yaml:"input_texture"`
}

// ParseFrameLayout decodes a YAML frame layout.
//
// Parameters:
//   - data: YAML document
//
// Returns:
//   - *FrameLayout: the decoded layout
//   - error: a YAML syntax error
func ParseFrameLayout(data []byte) (*FrameLayout, error) {
	var l FrameLayout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse frame layout: %w", err)
	}
	return &l, nil
}

// LoadFrameLayout reads and decodes a YAML frame layout file.
func LoadFrameLayout(path string) (*FrameLayout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read frame layout: %w", err)
	}
	return ParseFrameLayout(data)
}

func primitiveClasses(names []string) (opaque, translucent, blendZ, blendNoZ bool, err error) {
	if len(names) == 0 {
		return true, true, true, true, nil
	}
	for _, n := range names {
		switch n {
		case "opaque":
			opaque = true
		case "translucent":
			translucent = true
		case "blend_with_z_write":
			blendZ = true
		case "blend_without_z_write":
			blendNoZ = true
		default:
			return false, false, false, false, fmt.Errorf("unknown primitive class %q: %w", n, ErrInvalidFrameLayout)
		}
	}
	return
}

// Build instantiates the layout. Entity passes draw entities; fullscreen passes get a new
// material of MaterialType (default material.FullscreenMaterialType) from materials.
// The returned frame is already resolved.
//
// Parameters:
//   - materials: repository for fullscreen materials; may be nil if the layout has none
//   - entities: root entities added to every entity pass
//
// Returns:
//   - Frame: the resolved frame
//   - error: ErrInvalidFrameLayout for dangling references, or a material creation error
func (l *FrameLayout) Build(materials material.MaterialRepository, entities ...*ecs.Entity) (Frame, error) {
	fbs := make(map[string]FrameBuffer, len(l.FrameBuffers))
	for _, d := range l.FrameBuffers {
		if d.Name == "" || fbs[d.Name] != nil {
			return nil, fmt.Errorf("framebuffer name %q missing or duplicated: %w", d.Name, ErrInvalidFrameLayout)
		}
		opts := []FrameBufferBuilderOption{WithLabel(d.Name)}
		if d.ColorAttachments > 0 {
			opts = append(opts, WithColorAttachments(d.ColorAttachments))
		}
		if d.Depth != nil {
			opts = append(opts, WithDepthAttachment(*d.Depth))
		}
		if d.SampleCount > 0 {
			opts = append(opts, WithSampleCount(d.SampleCount))
		}
		fbs[d.Name] = NewFrameBuffer(d.Width, d.Height, opts...)
	}
	lookupFB := func(name string) (FrameBuffer, error) {
		if name == "" {
			return nil, nil
		}
		fb, ok := fbs[name]
		if !ok {
			return nil, fmt.Errorf("framebuffer %q: %w", name, ErrInvalidFrameLayout)
		}
		return fb, nil
	}

	f := NewFrame()
	passes := make(map[string]RenderPass)
	type textureBinding struct {
		expression Expression
		pass       RenderPass
		input      InputTextureLayout
	}
	var bindings []textureBinding

	for _, el := range l.Expressions {
		expr := NewExpression(el.Tag)
		var opts []ExpressionOption
		for _, in := range el.Inputs {
			p, ok := passes[in]
			if !ok {
				return nil, fmt.Errorf("expression %q input %q: %w", el.Tag, in, ErrInvalidFrameLayout)
			}
			opts = append(opts, WithInputRenderPasses(p))
		}

		for _, pl := range el.Passes {
			opaque, translucent, blendZ, blendNoZ, err := primitiveClasses(pl.Primitives)
			if err != nil {
				return nil, fmt.Errorf("pass %q: %w", pl.Tag, err)
			}
			p := NewRenderPass(
				WithTag(pl.Tag),
				WithFrustumCulling(pl.FrustumCulling),
				WithPrimitiveClasses(opaque, translucent, blendZ, blendNoZ),
			)
			p.SetClearColor(pl.ClearColor)
			p.SetClearDepth(pl.ClearDepth)
			p.SetViewport(pl.Viewport)
			if pl.DepthTest != nil {
				p.SetDepthTest(*pl.DepthTest)
			}

			if pl.Fullscreen {
				if materials == nil {
					return nil, fmt.Errorf("pass %q is fullscreen but no material repository was given: %w", pl.Tag, ErrInvalidFrameLayout)
				}
				typeName := pl.MaterialType
				if typeName == "" {
					typeName = material.FullscreenMaterialType
				}
				m, err := materials.CreateMaterial(typeName, material.WithName(el.Tag+"/"+pl.Tag))
				if err != nil {
					return nil, fmt.Errorf("pass %q material: %w", pl.Tag, err)
				}
				p.SetMaterial(m)
			} else {
				p.AddEntities(entities...)
			}

			fb, err := lookupFB(pl.FrameBuffer)
			if err != nil {
				return nil, fmt.Errorf("pass %q: %w", pl.Tag, err)
			}
			if fb != nil {
				opts = append(opts, WithOutput(p, fb))
			}
			rfb, err := lookupFB(pl.ResolveFrameBuffer)
			if err != nil {
				return nil, fmt.Errorf("pass %q: %w", pl.Tag, err)
			}
			if rfb != nil {
				opts = append(opts, WithResolveOutput(p, rfb))
			}

			if pl.InputTexture != nil {
				src, ok := passes[pl.InputTexture.Pass]
				if !ok || !pl.Fullscreen {
					return nil, fmt.Errorf("pass %q input texture %q: %w", pl.Tag, pl.InputTexture.Pass, ErrInvalidFrameLayout)
				}
				if !slices.Contains(el.Inputs, pl.InputTexture.Pass) {
					opts = append(opts, WithInputRenderPasses(src))
				}
				bindings = append(bindings, textureBinding{expression: expr, pass: p, input: *pl.InputTexture})
			}

			expr.AddRenderPasses(p)
			passes[el.Tag+"/"+pl.Tag] = p
		}
		f.AddExpression(expr, opts...)
	}

	if err := f.Resolve(); err != nil {
		return nil, err
	}
	for _, b := range bindings {
		rt, err := f.ColorAttachmentFromInputOf(b.expression, passes[b.input.Pass], b.input.Attachment)
		if err != nil {
			return nil, fmt.Errorf("pass %q input texture: %w", b.pass.Tag(), err)
		}
		b.pass.Material().SetBaseColorTexture(rt.Texture())
	}
	return f, nil
}
