package ecs

import (
	"github.com/Carmen-Shannon/rhodonite-go/engine/memory"
)

// Component is a per-entity unit of data and behavior.
// Concrete types embed ComponentBase, which supplies every method of this interface.
type Component interface {
	// ComponentTID returns the type ID of the component.
	ComponentTID() ComponentTID

	// ComponentSID returns the row index of the component within its type's storage.
	ComponentSID() ComponentSID

	// EntityUID returns the entity the component is attached to.
	EntityUID() EntityUID

	// IsAlive reports whether the component has not been destroyed.
	IsAlive() bool

	componentBase() *ComponentBase
}

// ComponentBase carries the identity of a component and gives access to its member rows.
type ComponentBase struct {
	tid       ComponentTID
	sid       ComponentSID
	entityUID EntityUID
	alive     bool

	store *componentStore
	world *World
}

func (b *ComponentBase) componentBase() *ComponentBase { return b }

func (b *ComponentBase) ComponentTID() ComponentTID { return b.tid }

func (b *ComponentBase) ComponentSID() ComponentSID { return b.sid }

func (b *ComponentBase) EntityUID() EntityUID { return b.entityUID }

func (b *ComponentBase) IsAlive() bool { return b.alive }

// World returns the world the component belongs to.
func (b *ComponentBase) World() *World { return b.world }

// Entity returns the owning entity, or nil once the entity has been deleted.
func (b *ComponentBase) Entity() *Entity {
	if b.world == nil {
		return nil
	}
	e, _ := b.world.Entities().GetEntity(b.entityUID)
	return e
}

// Class returns the class the component was created from.
func (b *ComponentBase) Class() *ComponentClass {
	if b.store == nil {
		return nil
	}
	return b.store.class
}

// TakeOne returns the live field of the named member for this component's row.
// Writes through the field land directly in the shared type buffer.
//
// Parameters:
//   - member: the member name given to RegisterMember
//
// Returns:
//   - memory.Field: the bound field, invalid if the member is unknown
func (b *ComponentBase) TakeOne(member string) memory.Field {
	if b.store == nil {
		return memory.Field{}
	}
	a, ok := b.store.accessors[member]
	if !ok {
		return memory.Field{}
	}
	return memory.NewField(a, int(b.sid))
}

// Stage capability interfaces. ComponentRepository.Process calls the method matching the stage
// on every live instance that implements it.
type (
	Creator        interface{ OnCreate() }
	Loader         interface{ OnLoad() }
	Mounter        interface{ OnMount() }
	LogicProcessor interface{ OnLogic() }
	PreRenderer    interface{ OnPreRender() }
	Renderer       interface{ OnRender() }
	Unmounter      interface{ OnUnmount() }
	Discarder      interface{ OnDiscard() }
)

// MemberBinder is called once after a component's identity is assigned, before any stage runs.
// Components use it to cache their fields from TakeOne.
type MemberBinder interface {
	BindMembers()
}

// Destroyer is called when a component is destroyed, before its row is released.
type Destroyer interface {
	OnDestroy()
}

// ShallowCopier copies the non-member state of src into the receiver during ShallowCopyEntity.
// Member rows have already been copied when it is called.
type ShallowCopier interface {
	ShallowCopyFrom(src Component)
}

// Hierarchical is implemented by the component that links entities into a tree.
// Recursive deletion and shallow copy follow it.
type Hierarchical interface {
	// ChildEntityUIDs returns the direct children in order.
	ChildEntityUIDs() []EntityUID
	// AdoptChild attaches child (a component of the same type on another entity) as the last child.
	AdoptChild(child Component) error
}

// CopyRemapper is implemented by components that refer to other entities.
// After a shallow copy, remap translates an original UID into the UID of its copy,
// returning the input unchanged when the entity was not part of the copy.
type CopyRemapper interface {
	RemapEntities(remap func(EntityUID) EntityUID)
}

func runStage(c Component, stage ProcessStage) {
	switch stage {
	case StageCreate:
		if s, ok := c.(Creator); ok {
			s.OnCreate()
		}
	case StageLoad:
		if s, ok := c.(Loader); ok {
			s.OnLoad()
		}
	case StageMount:
		if s, ok := c.(Mounter); ok {
			s.OnMount()
		}
	case StageLogic:
		if s, ok := c.(LogicProcessor); ok {
			s.OnLogic()
		}
	case StagePreRender:
		if s, ok := c.(PreRenderer); ok {
			s.OnPreRender()
		}
	case StageRender:
		if s, ok := c.(Renderer); ok {
			s.OnRender()
		}
	case StageUnmount:
		if s, ok := c.(Unmounter); ok {
			s.OnUnmount()
		}
	case StageDiscard:
		if s, ok := c.(Discarder); ok {
			s.OnDiscard()
		}
	}
}

// implementsStage reports whether c has the method for stage.
func implementsStage(c Component, stage ProcessStage) bool {
	switch stage {
	case StageCreate:
		_, ok := c.(Creator)
		return ok
	case StageLoad:
		_, ok := c.(Loader)
		return ok
	case StageMount:
		_, ok := c.(Mounter)
		return ok
	case StageLogic:
		_, ok := c.(LogicProcessor)
		return ok
	case StagePreRender:
		_, ok := c.(PreRenderer)
		return ok
	case StageRender:
		_, ok := c.(Renderer)
		return ok
	case StageUnmount:
		_, ok := c.(Unmounter)
		return ok
	case StageDiscard:
		_, ok := c.(Discarder)
		return ok
	}
	return false
}
