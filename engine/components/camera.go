package components

import (
	"github.com/Carmen-Shannon/rhodonite-go/common"
	"github.com/Carmen-Shannon/rhodonite-go/engine/config"
	"github.com/Carmen-Shannon/rhodonite-go/engine/ecs"
	"github.com/Carmen-Shannon/rhodonite-go/engine/memory"
	"github.com/chewxy/math32"
)

// ProjectionType selects how a camera projects view space.
type ProjectionType int

const (
	Perspective ProjectionType = iota
	Orthographic
)

// CameraComponent computes view and projection matrices for an entity.
// Without an explicit look-at the view is the inverse of the entity's world matrix,
// looking down its local -Z axis.
type CameraComponent struct {
	ecs.ComponentBase

	// x = vertical fov in radians, y = aspect, z = near, w = far
	perspective memory.Field
	// x = left, y = right, z = bottom, w = top
	orthographic memory.Field

	projection ProjectionType

	lookAt             bool
	eye, target, upVec common.Vec3

	sceneGraph *SceneGraphComponent
}

// CameraClass describes CameraComponent. It requires a SceneGraphComponent.
var CameraClass = ecs.NewComponentClass("Camera", ecs.CameraComponentTID, func(cfg *config.Config) int {
	return cfg.MaxCameraNumber
}, func() ecs.Component {
	return &CameraComponent{}
}).
	RegisterMember(memory.CPUGeneric, "perspective", memory.Vec4, memory.Float, math32.Pi/4, 1, 0.1, 1000).
	RegisterMember(memory.CPUGeneric, "orthographic", memory.Vec4, memory.Float, -1, 1, -1, 1).
	Requires(ecs.SceneGraphComponentTID)

// currentCamera is the World resource naming the camera render passes use by default.
type currentCamera struct {
	uid ecs.EntityUID
}

func (c *CameraComponent) BindMembers() {
	c.perspective = c.TakeOne("perspective")
	c.orthographic = c.TakeOne("orthographic")
	c.upVec = common.Vec3{Y: 1}
}

func (c *CameraComponent) SceneGraph() *SceneGraphComponent {
	if c.sceneGraph != nil && c.sceneGraph.IsAlive() {
		return c.sceneGraph
	}
	c.sceneGraph = nil
	if e := c.Entity(); e != nil {
		c.sceneGraph, _ = ecs.Get[*SceneGraphComponent](e, ecs.SceneGraphComponentTID)
	}
	return c.sceneGraph
}

func (c *CameraComponent) ProjectionType() ProjectionType { return c.projection }

// SetPerspective switches to a perspective projection.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: width / height
//   - near, far: clip distances, 0 < near < far
func (c *CameraComponent) SetPerspective(fovY, aspect, near, far float32) {
	c.projection = Perspective
	c.perspective.SetVec4(common.Vec4{X: fovY, Y: aspect, Z: near, W: far})
}

// SetOrthographic switches to an orthographic projection. Near and far are shared with the perspective settings.
//
// Parameters:
//   - left, right, bottom, top: the view volume extents
func (c *CameraComponent) SetOrthographic(left, right, bottom, top float32) {
	c.projection = Orthographic
	c.orthographic.SetVec4(common.Vec4{X: left, Y: right, Z: bottom, W: top})
}

// Aspect returns the perspective aspect ratio.
func (c *CameraComponent) Aspect() float32 { return c.perspective.Vec4().Y }

// SetAspect changes only the aspect ratio, e.g. after a resize.
func (c *CameraComponent) SetAspect(aspect float32) {
	p := c.perspective.Vec4()
	p.Y = aspect
	c.perspective.SetVec4(p)
}

// NearFar returns the clip distances.
func (c *CameraComponent) NearFar() (float32, float32) {
	p := c.perspective.Vec4()
	return p.Z, p.W
}

// SetLookAt fixes the view to look from eye at target, ignoring the entity transform.
func (c *CameraComponent) SetLookAt(eye, target, up common.Vec3) {
	c.lookAt = true
	c.eye, c.target, c.upVec = eye, target, up
}

// ClearLookAt returns the view to following the entity's world matrix.
func (c *CameraComponent) ClearLookAt() {
	c.lookAt = false
}

// Position returns the camera eye in world space.
func (c *CameraComponent) Position() common.Vec3 {
	if c.lookAt {
		return c.eye
	}
	if sg := c.SceneGraph(); sg != nil {
		return sg.WorldPosition()
	}
	return common.Vec3{}
}

// ViewMatrix returns the world-to-view transform.
func (c *CameraComponent) ViewMatrix() common.Mat4 {
	if c.lookAt {
		return common.LookAtMat4(c.eye, c.target, c.upVec)
	}
	if sg := c.SceneGraph(); sg != nil {
		if inv, ok := sg.WorldMatrix().Inverse(); ok {
			return inv
		}
	}
	return common.IdentityMat4()
}

// ProjectionMatrix returns the view-to-clip transform for WebGPU depth range [0, 1].
func (c *CameraComponent) ProjectionMatrix() common.Mat4 {
	p := c.perspective.Vec4()
	if c.projection == Orthographic {
		o := c.orthographic.Vec4()
		return common.OrthographicMat4(o.X, o.Y, o.Z, o.W, p.Z, p.W)
	}
	return common.PerspectiveMat4(p.X, p.Y, p.Z, p.W)
}

// ViewProjectionMatrix returns projection * view.
func (c *CameraComponent) ViewProjectionMatrix() common.Mat4 {
	return c.ProjectionMatrix().Mul(c.ViewMatrix())
}

// Frustum returns the culling planes of the camera.
func (c *CameraComponent) Frustum() common.Frustum {
	return common.ExtractFrustumFromMatrix(c.ViewProjectionMatrix())
}

// ScreenRay returns the world-space ray through a window position.
//
// Parameters:
//   - x, y: position in pixels, origin at the top left
//   - viewport: x, y, width, height in pixels
//
// Returns:
//   - common.Ray: ray from the near plane toward the far plane, direction normalized
//   - bool: false if the view-projection matrix is singular or the viewport is empty
func (c *CameraComponent) ScreenRay(x, y float32, viewport [4]float32) (common.Ray, bool) {
	if viewport[2] <= 0 || viewport[3] <= 0 {
		return common.Ray{}, false
	}
	inv, ok := c.ViewProjectionMatrix().Inverse()
	if !ok {
		return common.Ray{}, false
	}
	ndcX := (x-viewport[0])/viewport[2]*2 - 1
	ndcY := 1 - (y-viewport[1])/viewport[3]*2

	near := inv.TransformPoint(common.Vec3{X: ndcX, Y: ndcY, Z: 0})
	far := inv.TransformPoint(common.Vec3{X: ndcX, Y: ndcY, Z: 1})
	return common.Ray{Origin: near, Direction: far.Sub(near).Normalize()}, true
}

// SetAsCurrent makes the camera the default for render passes without their own camera.
func (c *CameraComponent) SetAsCurrent() {
	ecs.SetResource(c.World(), currentCamera{uid: c.EntityUID()})
}

func (c *CameraComponent) ShallowCopyFrom(src ecs.Component) {
	s := src.(*CameraComponent)
	c.projection = s.projection
	c.lookAt = s.lookAt
	c.eye, c.target, c.upVec = s.eye, s.target, s.upVec
}

// CurrentCamera returns the camera selected with SetAsCurrent, or the live camera with the lowest SID.
//
// Parameters:
//   - w: the world
//
// Returns:
//   - *CameraComponent: the camera, nil if the world has none
func CurrentCamera(w *ecs.World) *CameraComponent {
	if cur, ok := ecs.Resource[currentCamera](w); ok {
		if e, ok := w.Entities().GetEntity(cur.uid); ok {
			if c, ok := ecs.Get[*CameraComponent](e, ecs.CameraComponentTID); ok {
				return c
			}
		}
	}
	if cams := w.Components().Components(ecs.CameraComponentTID); len(cams) > 0 {
		return cams[0].(*CameraComponent)
	}
	return nil
}
