package ecs

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// entityRepository implements the EntityRepository interface.
type entityRepository struct {
	world  *World
	logger *zap.Logger

	entities    map[EntityUID]*Entity
	uniqueNames map[string]EntityUID
	nextUID     EntityUID
}

// EntityRepository manages entity lifecycle and component attachment.
type EntityRepository interface {
	// CreateEntity allocates a new entity with no components.
	//
	// Returns:
	//   - *Entity: the new entity
	CreateEntity() *Entity

	// AddComponentToEntity creates a component of type tid and attaches it to e.
	// Missing component types the class requires are attached first.
	//
	// Parameters:
	//   - tid: the component type ID
	//   - e: the entity
	//
	// Returns:
	//   - Component: the attached component (the existing one with ErrComponentAlreadyAttached)
	//   - error: ErrEntityNotFound, ErrComponentAlreadyAttached or a ComponentRepository error
	AddComponentToEntity(tid ComponentTID, e *Entity) (Component, error)

	// RemoveComponentFromEntity detaches and destroys the component of type tid.
	//
	// Parameters:
	//   - tid: the component type ID
	//   - e: the entity
	//
	// Returns:
	//   - error: ErrComponentNotAttached if the entity lacks the type
	RemoveComponentFromEntity(tid ComponentTID, e *Entity) error

	// GetEntity returns a live entity.
	GetEntity(uid EntityUID) (*Entity, bool)

	// DeleteEntity destroys every component of the entity and removes it.
	// Children linked through a Hierarchical component are detached, not deleted.
	//
	// Parameters:
	//   - uid: the entity to delete
	//
	// Returns:
	//   - error: ErrEntityNotFound
	DeleteEntity(uid EntityUID) error

	// DeleteEntityRecursively deletes the entity and all its descendants.
	//
	// Parameters:
	//   - uid: the root entity to delete
	//
	// Returns:
	//   - error: ErrEntityNotFound
	DeleteEntityRecursively(uid EntityUID) error

	// ShallowCopyEntity duplicates e, its component values and its descendants.
	// References between copied entities (such as skeleton joints) are redirected to the copies.
	//
	// Parameters:
	//   - e: the entity to copy
	//
	// Returns:
	//   - *Entity: the copy of e
	//   - error: any component creation error; partially created copies are deleted
	ShallowCopyEntity(e *Entity) (*Entity, error)

	// Entities returns the live entities ordered by UID.
	Entities() []*Entity

	// EntitiesNumber returns the number of live entities.
	EntitiesNumber() int

	// SearchByTags returns the entities matching every tag, ordered by UID.
	SearchByTags(tags map[string]string) []*Entity

	// TryToSetUniqueName assigns a unique name to e.
	// When the name is taken and toAddNameIfConflict is set, a "_(N)" suffix is appended until it is free.
	//
	// Parameters:
	//   - e: the entity
	//   - name: the requested name
	//   - toAddNameIfConflict: whether to derive a free name on conflict
	//
	// Returns:
	//   - bool: false if the name was taken and no suffix was allowed
	TryToSetUniqueName(e *Entity, name string, toAddNameIfConflict bool) bool

	// EntityByUniqueName looks up an entity by its unique name.
	EntityByUniqueName(name string) (*Entity, bool)
}

var _ EntityRepository = &entityRepository{}

func newEntityRepository(w *World) *entityRepository {
	return &entityRepository{
		world:       w,
		logger:      w.logger.Named("entities"),
		entities:    make(map[EntityUID]*Entity),
		uniqueNames: make(map[string]EntityUID),
	}
}

func (r *entityRepository) CreateEntity() *Entity {
	e := &Entity{
		uid:        r.nextUID,
		world:      r.world,
		alive:      true,
		components: make(map[ComponentTID]Component),
	}
	r.nextUID++
	r.entities[e.uid] = e
	r.world.bumpStructure()
	return e
}

func (r *entityRepository) AddComponentToEntity(tid ComponentTID, e *Entity) (Component, error) {
	if e == nil || !e.alive {
		return nil, ErrEntityNotFound
	}
	if c, ok := e.components[tid]; ok {
		return c, fmt.Errorf("entity %d tid %d: %w", e.uid, tid, ErrComponentAlreadyAttached)
	}

	class, ok := r.world.components.ComponentClass(tid)
	if !ok {
		return nil, fmt.Errorf("entity %d tid %d: %w", e.uid, tid, ErrComponentClassNotFound)
	}
	// requirements attached by this call are removed again if it fails
	had := make(map[ComponentTID]bool, len(e.components))
	for t := range e.components {
		had[t] = true
	}
	rollback := func() {
		cs := e.Components()
		for i := len(cs) - 1; i >= 0; i-- {
			if t := cs[i].ComponentTID(); !had[t] {
				_ = r.RemoveComponentFromEntity(t, e)
			}
		}
	}
	for _, req := range class.requires {
		if e.HasComponent(req) {
			continue
		}
		if _, err := r.AddComponentToEntity(req, e); err != nil {
			rollback()
			return nil, fmt.Errorf("attach %s requirement: %w", class.name, err)
		}
	}

	c, err := r.world.components.CreateComponent(tid, e.uid)
	if err != nil {
		rollback()
		return nil, err
	}
	e.components[tid] = c
	r.world.bumpStructure()
	return c, nil
}

func (r *entityRepository) RemoveComponentFromEntity(tid ComponentTID, e *Entity) error {
	if e == nil || !e.alive {
		return ErrEntityNotFound
	}
	c, ok := e.components[tid]
	if !ok {
		return fmt.Errorf("entity %d tid %d: %w", e.uid, tid, ErrComponentNotAttached)
	}
	delete(e.components, tid)
	r.world.components.DestroyComponent(c)
	r.world.bumpStructure()
	return nil
}

func (r *entityRepository) GetEntity(uid EntityUID) (*Entity, bool) {
	e, ok := r.entities[uid]
	return e, ok
}

func (r *entityRepository) DeleteEntity(uid EntityUID) error {
	e, ok := r.entities[uid]
	if !ok {
		return fmt.Errorf("delete entity %d: %w", uid, ErrEntityNotFound)
	}
	for _, c := range e.Components() {
		r.world.components.DestroyComponent(c)
	}
	e.components = make(map[ComponentTID]Component)
	e.alive = false
	if e.uniqueName != "" {
		delete(r.uniqueNames, e.uniqueName)
	}
	delete(r.entities, uid)
	r.world.bumpStructure()
	return nil
}

func (r *entityRepository) DeleteEntityRecursively(uid EntityUID) error {
	e, ok := r.entities[uid]
	if !ok {
		return fmt.Errorf("delete entity %d: %w", uid, ErrEntityNotFound)
	}
	for _, child := range childEntityUIDs(e) {
		if _, ok := r.entities[child]; !ok {
			continue
		}
		if err := r.DeleteEntityRecursively(child); err != nil {
			return err
		}
	}
	return r.DeleteEntity(uid)
}

func childEntityUIDs(e *Entity) []EntityUID {
	var out []EntityUID
	for _, c := range e.Components() {
		if h, ok := c.(Hierarchical); ok {
			out = append(out, h.ChildEntityUIDs()...)
		}
	}
	return out
}

func (r *entityRepository) ShallowCopyEntity(e *Entity) (*Entity, error) {
	if e == nil || !e.alive {
		return nil, ErrEntityNotFound
	}

	copies := make(map[EntityUID]EntityUID)
	dst, err := r.shallowCopyRecursive(e, copies)
	if err != nil {
		for _, uid := range copies {
			_ = r.DeleteEntity(uid)
		}
		return nil, fmt.Errorf("shallow copy entity %d: %w", e.uid, err)
	}

	remap := func(uid EntityUID) EntityUID {
		if n, ok := copies[uid]; ok {
			return n
		}
		return uid
	}
	for _, uid := range copies {
		for _, c := range r.entities[uid].Components() {
			if cr, ok := c.(CopyRemapper); ok {
				cr.RemapEntities(remap)
			}
		}
	}
	return dst, nil
}

func (r *entityRepository) shallowCopyRecursive(src *Entity, copies map[EntityUID]EntityUID) (*Entity, error) {
	dst := r.CreateEntity()
	copies[src.uid] = dst.uid

	srcComponents := src.Components()
	for _, sc := range srcComponents {
		dc, err := r.world.components.CreateComponent(sc.ComponentTID(), dst.uid)
		if err != nil {
			return nil, err
		}
		dst.components[sc.ComponentTID()] = dc
		r.world.components.CopyMembers(dc, sc)
	}
	for _, sc := range srcComponents {
		if cp, ok := dst.components[sc.ComponentTID()].(ShallowCopier); ok {
			cp.ShallowCopyFrom(sc)
		}
	}
	for k, v := range src.tags {
		dst.TryToSetTag(k, v)
	}

	for _, sc := range srcComponents {
		h, ok := sc.(Hierarchical)
		if !ok {
			continue
		}
		dh := dst.components[sc.ComponentTID()].(Hierarchical)
		for _, childUID := range h.ChildEntityUIDs() {
			child, ok := r.entities[childUID]
			if !ok {
				continue
			}
			childCopy, err := r.shallowCopyRecursive(child, copies)
			if err != nil {
				return nil, err
			}
			cc, ok := childCopy.components[sc.ComponentTID()]
			if !ok {
				continue
			}
			if err := dh.AdoptChild(cc); err != nil {
				return nil, err
			}
		}
	}
	return dst, nil
}

func (r *entityRepository) Entities() []*Entity {
	out := make([]*Entity, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].uid < out[j].uid })
	return out
}

func (r *entityRepository) EntitiesNumber() int {
	return len(r.entities)
}

func (r *entityRepository) SearchByTags(tags map[string]string) []*Entity {
	var out []*Entity
	for _, e := range r.Entities() {
		if e.MatchTags(tags) {
			out = append(out, e)
		}
	}
	return out
}

func (r *entityRepository) TryToSetUniqueName(e *Entity, name string, toAddNameIfConflict bool) bool {
	if owner, ok := r.uniqueNames[name]; ok && owner != e.uid {
		if !toAddNameIfConflict {
			return false
		}
		base := name
		for i := 1; ; i++ {
			name = fmt.Sprintf("%s_(%d)", base, i)
			if _, taken := r.uniqueNames[name]; !taken {
				break
			}
		}
	}
	if e.uniqueName != "" {
		delete(r.uniqueNames, e.uniqueName)
	}
	e.uniqueName = name
	r.uniqueNames[name] = e.uid
	return true
}

func (r *entityRepository) EntityByUniqueName(name string) (*Entity, bool) {
	uid, ok := r.uniqueNames[name]
	if !ok {
		return nil, false
	}
	return r.GetEntity(uid)
}
