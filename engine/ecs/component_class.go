package ecs

import (
	"github.com/Carmen-Shannon/rhodonite-go/engine/config"
	"github.com/Carmen-Shannon/rhodonite-go/engine/memory"
)

// MemberInfo declares one structure-of-arrays field of a component type.
type MemberInfo struct {
	BufferUse       memory.BufferUse
	Name            string
	CompositionType memory.CompositionType
	ComponentType   memory.ComponentType
	InitValues      []float32
}

// ComponentClass is the static description of a component type: identity, capacity, members and constructor.
// A class can be registered into any number of Worlds; each World allocates its own storage for it.
type ComponentClass struct {
	name     string
	tid      ComponentTID
	maxCount func(cfg *config.Config) int
	newFunc  func() Component
	members  []MemberInfo
	requires []ComponentTID
}

// NewComponentClass describes a component type.
//
// Parameters:
//   - name: type name used in logs
//   - tid: the unique type ID
//   - maxCount: returns maxNumberOfComponent for a configuration
//   - newFunc: returns a zero instance; identity is assigned by the repository
//
// Returns:
//   - *ComponentClass: the class, ready for RegisterMember calls
func NewComponentClass(name string, tid ComponentTID, maxCount func(cfg *config.Config) int, newFunc func() Component) *ComponentClass {
	return &ComponentClass{
		name:     name,
		tid:      tid,
		maxCount: maxCount,
		newFunc:  newFunc,
	}
}

// RegisterMember declares a field stored in the buffer for use.
// Must be called before the class is registered into a World.
//
// Parameters:
//   - use: the buffer holding the member
//   - name: member name passed later to TakeOne
//   - compositionType: element shape
//   - componentType: scalar type
//   - initValues: values written into a row whenever an instance is created
//
// Returns:
//   - *ComponentClass: the class, for chaining
func (c *ComponentClass) RegisterMember(use memory.BufferUse, name string, compositionType memory.CompositionType, componentType memory.ComponentType, initValues ...float32) *ComponentClass {
	c.members = append(c.members, MemberInfo{
		BufferUse:       use,
		Name:            name,
		CompositionType: compositionType,
		ComponentType:   componentType,
		InitValues:      initValues,
	})
	return c
}

// Requires declares component types that AddComponentToEntity attaches first when missing.
//
// Parameters:
//   - tids: the required component type IDs, in the order they should be attached
//
// Returns:
//   - *ComponentClass: the class, for chaining
func (c *ComponentClass) Requires(tids ...ComponentTID) *ComponentClass {
	c.requires = append(c.requires, tids...)
	return c
}

func (c *ComponentClass) Name() string { return c.name }

func (c *ComponentClass) TID() ComponentTID { return c.tid }

// Members returns a copy of the declared members.
func (c *ComponentClass) Members() []MemberInfo {
	out := make([]MemberInfo, len(c.members))
	copy(out, c.members)
	return out
}

// RequiredTIDs returns the declared dependencies.
func (c *ComponentClass) RequiredTIDs() []ComponentTID {
	return c.requires
}

// MaxCount returns maxNumberOfComponent for cfg.
func (c *ComponentClass) MaxCount(cfg *config.Config) int {
	if c.maxCount == nil {
		return cfg.MaxEntityNumber
	}
	return c.maxCount(cfg)
}

// FixedCount returns a maxCount function ignoring the configuration.
func FixedCount(n int) func(*config.Config) int {
	return func(*config.Config) int { return n }
}
