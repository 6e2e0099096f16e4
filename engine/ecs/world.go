// Package ecs implements the entity-component core: component classes with structure-of-arrays members,
// the component and entity repositories, and the World that owns them.
package ecs

import (
	"reflect"

	"github.com/Carmen-Shannon/rhodonite-go/engine/config"
	"github.com/Carmen-Shannon/rhodonite-go/engine/memory"
	"go.uber.org/zap"
)

// World is the explicit owner of all component memory, repositories and shared collaborators.
// Nothing in the engine core is global; everything reaches its World through a component or entity.
type World struct {
	cfg    *config.Config
	logger *zap.Logger

	memory     memory.MemoryManager
	components *componentRepository
	entities   *entityRepository

	resources map[reflect.Type]any

	structureVersion uint64
}

// NewWorld creates an empty World. The configuration is copied; later edits to cfg have no effect.
//
// Parameters:
//   - cfg: engine configuration, nil selects config.Default()
//   - options: functional options
//
// Returns:
//   - *World: the new world
func NewWorld(cfg *config.Config, options ...WorldBuilderOption) *World {
	if cfg == nil {
		cfg = config.Default()
	}
	w := &World{
		cfg:    cfg.Clone(),
		logger: zap.NewNop(),
	}
	for _, opt := range options {
		opt(w)
	}
	w.init()
	return w
}

func (w *World) init() {
	w.memory = memory.NewMemoryManager(w.cfg, memory.WithLogger(w.logger))
	w.components = newComponentRepository(w)
	w.entities = newEntityRepository(w)
	w.resources = make(map[reflect.Type]any)
	w.structureVersion = 0
}

// Reset drops every entity, component class, buffer and resource.
func (w *World) Reset() {
	w.init()
}

// Config returns the world's configuration copy.
func (w *World) Config() *config.Config { return w.cfg }

func (w *World) Logger() *zap.Logger { return w.logger }

func (w *World) MemoryManager() memory.MemoryManager { return w.memory }

func (w *World) Components() ComponentRepository { return w.components }

func (w *World) Entities() EntityRepository { return w.entities }

// RegisterComponentClasses registers each class, stopping at the first error.
func (w *World) RegisterComponentClasses(classes ...*ComponentClass) error {
	for _, c := range classes {
		if err := w.components.RegisterComponentClass(c); err != nil {
			return err
		}
	}
	return nil
}

// StructureVersion increases whenever entities, attachments or hierarchy links change.
// Render passes compare it to decide when to rebuild their flattened mesh lists.
func (w *World) StructureVersion() uint64 { return w.structureVersion }

// BumpStructure marks a structural change made outside the repositories (e.g. a reparent).
func (w *World) BumpStructure() { w.bumpStructure() }

func (w *World) bumpStructure() { w.structureVersion++ }

// SetResource stores a collaborator keyed by its static type.
//
// Parameters:
//   - w: the world
//   - v: the value; a later call with the same T replaces it
func SetResource[T any](w *World, v T) {
	w.resources[reflect.TypeFor[T]()] = v
}

// Resource returns the collaborator stored for T.
//
// Parameters:
//   - w: the world
//
// Returns:
//   - T: the value, or the zero value
//   - bool: false if nothing is stored for T
func Resource[T any](w *World) (T, bool) {
	v, ok := w.resources[reflect.TypeFor[T]()]
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}
