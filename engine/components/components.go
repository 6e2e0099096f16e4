// Package components holds the built-in component types of the engine: transforms, the scene graph,
// meshes and their renderers, cameras, lights and skeletons.
package components

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/rhodonite-go/engine/ecs"
	"github.com/Carmen-Shannon/rhodonite-go/engine/geometry"
)

var (
	// ErrSceneGraphCycle is returned when attaching a node would make it its own ancestor.
	ErrSceneGraphCycle = errors.New("scene graph cycle")
)

// Classes returns the built-in component classes in ascending TID order.
func Classes() []*ecs.ComponentClass {
	return []*ecs.ComponentClass{
		TransformClass,
		SceneGraphClass,
		MeshClass,
		MeshRendererClass,
		LightClass,
		CameraControllerClass,
		CameraClass,
		SkeletalClass,
	}
}

// Register registers every built-in component class with w.
//
// Parameters:
//   - w: the world to register into
//
// Returns:
//   - error: the first registration error, if any
func Register(w *ecs.World) error {
	if err := w.RegisterComponentClasses(Classes()...); err != nil {
		return fmt.Errorf("register built-in components: %w", err)
	}
	return nil
}

func GetTransform(e *ecs.Entity) (*TransformComponent, bool) {
	return ecs.Get[*TransformComponent](e, ecs.TransformComponentTID)
}

func GetSceneGraph(e *ecs.Entity) (*SceneGraphComponent, bool) {
	return ecs.Get[*SceneGraphComponent](e, ecs.SceneGraphComponentTID)
}

func GetMesh(e *ecs.Entity) (*MeshComponent, bool) {
	return ecs.Get[*MeshComponent](e, ecs.MeshComponentTID)
}

func GetMeshRenderer(e *ecs.Entity) (*MeshRendererComponent, bool) {
	return ecs.Get[*MeshRendererComponent](e, ecs.MeshRendererComponentTID)
}

func GetCamera(e *ecs.Entity) (*CameraComponent, bool) {
	return ecs.Get[*CameraComponent](e, ecs.CameraComponentTID)
}

func GetCameraController(e *ecs.Entity) (*CameraControllerComponent, bool) {
	return ecs.Get[*CameraControllerComponent](e, ecs.CameraControllerComponentTID)
}

func GetLight(e *ecs.Entity) (*LightComponent, bool) {
	return ecs.Get[*LightComponent](e, ecs.LightComponentTID)
}

func GetSkeletal(e *ecs.Entity) (*SkeletalComponent, bool) {
	return ecs.Get[*SkeletalComponent](e, ecs.SkeletalComponentTID)
}

// createEntityWith creates an entity and attaches tid, which pulls in its required components.
// The entity is deleted again if attaching fails.
func createEntityWith(w *ecs.World, tid ecs.ComponentTID) (*ecs.Entity, ecs.Component, error) {
	e := w.Entities().CreateEntity()
	c, err := w.Entities().AddComponentToEntity(tid, e)
	if err != nil {
		_ = w.Entities().DeleteEntity(e.EntityUID())
		return nil, nil, err
	}
	return e, c, nil
}

// CreateGroupEntity creates an entity with a Transform and a SceneGraph, used to group children.
//
// Parameters:
//   - w: the world
//
// Returns:
//   - *ecs.Entity: the new entity
//   - error: an error if a component limit was reached
func CreateGroupEntity(w *ecs.World) (*ecs.Entity, error) {
	e, _, err := createEntityWith(w, ecs.SceneGraphComponentTID)
	if err != nil {
		return nil, fmt.Errorf("create group entity: %w", err)
	}
	return e, nil
}

// CreateMeshEntity creates a renderable entity holding mesh.
//
// Parameters:
//   - w: the world
//   - mesh: the mesh to show; may be nil and set later
//
// Returns:
//   - *ecs.Entity: the new entity with Transform, SceneGraph, Mesh and MeshRenderer
//   - error: an error if a component limit was reached
func CreateMeshEntity(w *ecs.World, mesh *geometry.Mesh) (*ecs.Entity, error) {
	e, _, err := createEntityWith(w, ecs.MeshRendererComponentTID)
	if err != nil {
		return nil, fmt.Errorf("create mesh entity: %w", err)
	}
	if mesh != nil {
		m, _ := GetMesh(e)
		m.SetMesh(mesh)
	}
	return e, nil
}

// CreateCameraEntity creates an entity with a perspective camera.
func CreateCameraEntity(w *ecs.World) (*ecs.Entity, *CameraComponent, error) {
	e, c, err := createEntityWith(w, ecs.CameraComponentTID)
	if err != nil {
		return nil, nil, fmt.Errorf("create camera entity: %w", err)
	}
	return e, c.(*CameraComponent), nil
}

// CreateOrbitCameraEntity creates a perspective camera driven by a CameraControllerComponent.
//
// Parameters:
//   - w: the world
//
// Returns:
//   - *ecs.Entity: the new entity
//   - *CameraControllerComponent: the controller; its camera is reachable through Camera()
//   - error: an error if a component limit was reached
func CreateOrbitCameraEntity(w *ecs.World) (*ecs.Entity, *CameraControllerComponent, error) {
	e, c, err := createEntityWith(w, ecs.CameraControllerComponentTID)
	if err != nil {
		return nil, nil, fmt.Errorf("create orbit camera entity: %w", err)
	}
	return e, c.(*CameraControllerComponent), nil
}

// CreateLightEntity creates an entity with a light of type t.
func CreateLightEntity(w *ecs.World, t LightType) (*ecs.Entity, *LightComponent, error) {
	e, c, err := createEntityWith(w, ecs.LightComponentTID)
	if err != nil {
		return nil, nil, fmt.Errorf("create light entity: %w", err)
	}
	l := c.(*LightComponent)
	l.SetType(t)
	return e, l, nil
}
