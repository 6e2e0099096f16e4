package geometry

import (
	"github.com/Carmen-Shannon/rhodonite-go/engine/memory"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/material"
)

// PrimitiveBuilderOption is a functional option for configuring a Primitive.
type PrimitiveBuilderOption func(*Primitive)

// WithName sets the primitive label.
func WithName(name string) PrimitiveBuilderOption {
	return func(p *Primitive) {
		p.name = name
	}
}

// WithMode sets the topology.
//
// Parameters:
//   - mode: the primitive topology (default Triangles)
//
// Returns:
//   - PrimitiveBuilderOption: option function to apply
func WithMode(mode PrimitiveMode) PrimitiveBuilderOption {
	return func(p *Primitive) {
		p.mode = mode
	}
}

// WithAttribute adds a vertex attribute.
//
// Parameters:
//   - semantic: the attribute semantic
//   - a: the accessor holding one element per vertex
//
// Returns:
//   - PrimitiveBuilderOption: option function to apply
func WithAttribute(semantic VertexAttributeSemantic, a *memory.Accessor) PrimitiveBuilderOption {
	return func(p *Primitive) {
		if _, exists := p.attributes[semantic]; !exists {
			p.semantics = append(p.semantics, semantic)
		}
		p.attributes[semantic] = a
		p.aabbDirty = true
	}
}

// WithIndices sets the index accessor.
//
// Parameters:
//   - a: a scalar unsigned accessor
//
// Returns:
//   - PrimitiveBuilderOption: option function to apply
func WithIndices(a *memory.Accessor) PrimitiveBuilderOption {
	return func(p *Primitive) {
		p.indices = a
	}
}

// WithMaterial sets the material.
//
// Parameters:
//   - m: the material
//
// Returns:
//   - PrimitiveBuilderOption: option function to apply
func WithMaterial(m material.Material) PrimitiveBuilderOption {
	return func(p *Primitive) {
		p.material = m
	}
}

// WithMaterialVariant registers a named variant.
func WithMaterialVariant(name string, m material.Material) PrimitiveBuilderOption {
	return func(p *Primitive) {
		p.variants[name] = m
	}
}
