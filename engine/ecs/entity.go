package ecs

import (
	"sort"
	"strings"
)

// Entity owns the mapping from component type to the component attached to it.
// It holds no component memory itself.
type Entity struct {
	uid        EntityUID
	world      *World
	alive      bool
	components map[ComponentTID]Component
	tags       map[string]string
	uniqueName string
}

func (e *Entity) EntityUID() EntityUID { return e.uid }

// IsAlive reports whether the entity has not been deleted.
func (e *Entity) IsAlive() bool { return e.alive }

func (e *Entity) World() *World { return e.world }

// Component returns the attached component of type tid.
//
// Parameters:
//   - tid: the component type ID
//
// Returns:
//   - Component: the component, or nil
//   - bool: false if the entity has no component of that type
func (e *Entity) Component(tid ComponentTID) (Component, bool) {
	c, ok := e.components[tid]
	return c, ok
}

// HasComponent reports whether a component of type tid is attached.
func (e *Entity) HasComponent(tid ComponentTID) bool {
	_, ok := e.components[tid]
	return ok
}

// Components returns the attached components ordered by type ID.
func (e *Entity) Components() []Component {
	out := make([]Component, 0, len(e.components))
	for _, c := range e.components {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ComponentTID() < out[j].ComponentTID() })
	return out
}

// UniqueName returns the unique name, empty if none was set.
func (e *Entity) UniqueName() string { return e.uniqueName }

// TryToSetTag sets a tag. Tag names must be non-empty and contain no whitespace.
//
// Parameters:
//   - name: the tag name
//   - value: the tag value
//
// Returns:
//   - bool: false if the name is invalid
func (e *Entity) TryToSetTag(name, value string) bool {
	if name == "" || strings.ContainsAny(name, " \t\n") {
		return false
	}
	if e.tags == nil {
		e.tags = make(map[string]string)
	}
	e.tags[name] = value
	return true
}

// Tag returns the value of a tag.
func (e *Entity) Tag(name string) (string, bool) {
	v, ok := e.tags[name]
	return v, ok
}

// HasTag reports whether the tag is set.
func (e *Entity) HasTag(name string) bool {
	_, ok := e.tags[name]
	return ok
}

// RemoveTag deletes a tag.
func (e *Entity) RemoveTag(name string) {
	delete(e.tags, name)
}

// MatchTags reports whether every given tag is set with the same value.
func (e *Entity) MatchTags(tags map[string]string) bool {
	for k, v := range tags {
		if got, ok := e.tags[k]; !ok || got != v {
			return false
		}
	}
	return true
}

// Get returns the component of type tid attached to e, asserted to T.
//
// Parameters:
//   - e: the entity
//   - tid: the component type ID
//
// Returns:
//   - T: the component
//   - bool: false if missing or of another concrete type
func Get[T Component](e *Entity, tid ComponentTID) (T, bool) {
	var zero T
	if e == nil {
		return zero, false
	}
	c, ok := e.components[tid]
	if !ok {
		return zero, false
	}
	t, ok := c.(T)
	return t, ok
}
