package ecs

import (
	"errors"
	"fmt"
)

// EntityUID identifies an entity. UIDs increase monotonically and are never handed out twice in a World.
type EntityUID int32

// ComponentTID identifies a component type.
type ComponentTID int32

// ComponentSID is the dense per-type row index of a component instance.
type ComponentSID int32

const (
	InvalidEntityUID    EntityUID    = -1
	InvalidComponentSID ComponentSID = -1
)

// Well-known component type IDs. User-defined types start at FirstUserComponentTID.
const (
	AnimationStateComponentTID   ComponentTID = 1
	AnimationComponentTID        ComponentTID = 2
	TransformComponentTID        ComponentTID = 3
	SceneGraphComponentTID       ComponentTID = 4
	MeshComponentTID             ComponentTID = 5
	MeshRendererComponentTID     ComponentTID = 6
	LightComponentTID            ComponentTID = 7
	CameraControllerComponentTID ComponentTID = 8
	CameraComponentTID           ComponentTID = 9
	SkeletalComponentTID         ComponentTID = 10
	BlendShapeComponentTID       ComponentTID = 11
	PhysicsComponentTID          ComponentTID = 12
	EffekseerComponentTID        ComponentTID = 13
	VrmComponentTID              ComponentTID = 14
	ConstraintComponentTID       ComponentTID = 15

	FirstUserComponentTID ComponentTID = 16
)

var (
	// ErrComponentLimit is returned when a type already has maxNumberOfComponent live instances.
	ErrComponentLimit = errors.New("component limit reached")
	// ErrComponentClassNotFound is returned for an unregistered ComponentTID.
	ErrComponentClassNotFound = errors.New("component class not found")
	// ErrComponentClassExists is returned when a ComponentTID is registered twice.
	ErrComponentClassExists = errors.New("component class already registered")
	// ErrEntityNotFound is returned for an unknown or deleted EntityUID.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrComponentAlreadyAttached is returned when an entity already has a component of the type.
	ErrComponentAlreadyAttached = errors.New("component already attached")
	// ErrComponentNotAttached is returned when removing a component type the entity does not have.
	ErrComponentNotAttached = errors.New("component not attached")
)

// ProcessStage is the phase of the per-frame component sweep.
type ProcessStage int

const (
	StageUnknown ProcessStage = iota
	StageCreate
	StageLoad
	StageMount
	StageLogic
	StagePreRender
	StageRender
	StageUnmount
	StageDiscard
)

// ProcessStages lists the stages in execution order.
var ProcessStages = []ProcessStage{
	StageCreate,
	StageLoad,
	StageMount,
	StageLogic,
	StagePreRender,
	StageRender,
	StageUnmount,
	StageDiscard,
}

func (s ProcessStage) String() string {
	switch s {
	case StageUnknown:
		return "Unknown"
	case StageCreate:
		return "Create"
	case StageLoad:
		return "Load"
	case StageMount:
		return "Mount"
	case StageLogic:
		return "Logic"
	case StagePreRender:
		return "PreRender"
	case StageRender:
		return "Render"
	case StageUnmount:
		return "Unmount"
	case StageDiscard:
		return "Discard"
	default:
		return fmt.Sprintf("ProcessStage(%d)", int(s))
	}
}
