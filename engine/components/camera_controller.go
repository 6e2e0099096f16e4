package components

import (
	"github.com/Carmen-Shannon/rhodonite-go/common"
	"github.com/Carmen-Shannon/rhodonite-go/engine/config"
	"github.com/Carmen-Shannon/rhodonite-go/engine/ecs"
	"github.com/Carmen-Shannon/rhodonite-go/engine/memory"
	"github.com/chewxy/math32"
)

// CameraControllerComponent orbits its entity's camera around a target point using spherical
// coordinates (radius, azimuth, elevation) and pans the target along the camera's local axes.
// The eye is pushed to the camera as a look-at during Logic.
type CameraControllerComponent struct {
	ecs.ComponentBase

	orbit  memory.Field // radius, azimuth, elevation, unused
	target memory.Field

	minRadius, maxRadius       float32
	minElevation, maxElevation float32

	orbitSpeed       float32
	mouseSensitivity float32
	zoomSpeed        float32
	panSpeed         float32

	camera *CameraComponent
}

// CameraControllerClass describes CameraControllerComponent. It requires a CameraComponent.
var CameraControllerClass = ecs.NewComponentClass("CameraController", ecs.CameraControllerComponentTID, func(cfg *config.Config) int {
	return cfg.MaxCameraNumber
}, func() ecs.Component {
	return &CameraControllerComponent{}
}).
	RegisterMember(memory.CPUGeneric, "orbit", memory.Vec4, memory.Float, 10, 0, math32.Pi/6, 0).
	RegisterMember(memory.CPUGeneric, "target", memory.Vec3, memory.Float, 0, 0, 0).
	Requires(ecs.CameraComponentTID)

func (c *CameraControllerComponent) BindMembers() {
	c.orbit = c.TakeOne("orbit")
	c.target = c.TakeOne("target")

	c.minRadius, c.maxRadius = 0.5, 2000
	c.minElevation, c.maxElevation = -math32.Pi/2+0.05, math32.Pi/2-0.05
	c.orbitSpeed = 0.03
	c.mouseSensitivity = 0.005
	c.zoomSpeed = 1
	c.panSpeed = 1
}

func (c *CameraControllerComponent) Camera() *CameraComponent {
	if c.camera != nil && c.camera.IsAlive() {
		return c.camera
	}
	c.camera = nil
	if e := c.Entity(); e != nil {
		c.camera, _ = ecs.Get[*CameraComponent](e, ecs.CameraComponentTID)
	}
	return c.camera
}

func (c *CameraControllerComponent) Radius() float32 { return c.orbit.Vec4().X }

// SetRadius sets the distance to the target, clamped to the radius bounds.
func (c *CameraControllerComponent) SetRadius(r float32) {
	o := c.orbit.Vec4()
	o.X = min(max(r, c.minRadius), c.maxRadius)
	c.orbit.SetVec4(o)
}

// Azimuth returns the horizontal angle around +Y in radians. Zero looks down -Z.
func (c *CameraControllerComponent) Azimuth() float32 { return c.orbit.Vec4().Y }

func (c *CameraControllerComponent) SetAzimuth(a float32) {
	o := c.orbit.Vec4()
	o.Y = a
	c.orbit.SetVec4(o)
}

// Elevation returns the angle above the horizontal plane in radians.
func (c *CameraControllerComponent) Elevation() float32 { return c.orbit.Vec4().Z }

// SetElevation sets the vertical angle, clamped to the elevation bounds.
func (c *CameraControllerComponent) SetElevation(e float32) {
	o := c.orbit.Vec4()
	o.Z = min(max(e, c.minElevation), c.maxElevation)
	c.orbit.SetVec4(o)
}

func (c *CameraControllerComponent) Target() common.Vec3 { return c.target.Vec3() }

func (c *CameraControllerComponent) SetTarget(t common.Vec3) { c.target.SetVec3(t) }

// SetRadiusBounds sets the zoom limits and re-clamps the radius.
func (c *CameraControllerComponent) SetRadiusBounds(minRadius, maxRadius float32) {
	c.minRadius, c.maxRadius = minRadius, max(minRadius, maxRadius)
	c.SetRadius(c.Radius())
}

// SetElevationBounds sets the tilt limits in radians and re-clamps the elevation.
func (c *CameraControllerComponent) SetElevationBounds(minElevation, maxElevation float32) {
	c.minElevation, c.maxElevation = minElevation, max(minElevation, maxElevation)
	c.SetElevation(c.Elevation())
}

// SetSpeeds sets the input multipliers.
//
// Parameters:
//   - orbit: radians per Orbit step
//   - mouse: radians per dragged pixel
//   - zoom: radius change per Zoom unit
//   - pan: distance per Pan unit
func (c *CameraControllerComponent) SetSpeeds(orbit, mouse, zoom, pan float32) {
	c.orbitSpeed, c.mouseSensitivity, c.zoomSpeed, c.panSpeed = orbit, mouse, zoom, pan
}

// Orbit rotates around the target by the given number of orbit steps.
func (c *CameraControllerComponent) Orbit(azimuthSteps, elevationSteps float32) {
	c.SetAzimuth(c.Azimuth() + azimuthSteps*c.orbitSpeed)
	c.SetElevation(c.Elevation() + elevationSteps*c.orbitSpeed)
}

// Drag orbits by a mouse movement in pixels. Dragging right turns the view right.
func (c *CameraControllerComponent) Drag(dx, dy float32) {
	c.SetAzimuth(c.Azimuth() - dx*c.mouseSensitivity)
	c.SetElevation(c.Elevation() + dy*c.mouseSensitivity)
}

// Zoom moves toward the target for positive delta.
func (c *CameraControllerComponent) Zoom(delta float32) {
	c.SetRadius(c.Radius() - delta*c.zoomSpeed)
}

// Pan translates the target along the camera's local right, up and forward axes,
// keeping the orbit angles and radius.
func (c *CameraControllerComponent) Pan(right, up, forward float32) {
	r, u, f := c.localAxes()
	offset := r.Scale(right).Add(u.Scale(up)).Add(f.Scale(forward)).Scale(c.panSpeed)
	c.SetTarget(c.Target().Add(offset))
}

// Eye returns the camera position implied by the target and spherical coordinates.
func (c *CameraControllerComponent) Eye() common.Vec3 {
	o := c.orbit.Vec4()
	radius, azimuth, elevation := o.X, o.Y, o.Z
	cosElev := math32.Cos(elevation)
	return c.Target().Add(common.Vec3{
		X: radius * cosElev * math32.Sin(azimuth),
		Y: radius * math32.Sin(elevation),
		Z: radius * cosElev * math32.Cos(azimuth),
	})
}

// localAxes returns right, up and forward consistent with a look-at from Eye to Target.
// All three are zero when the eye sits on the target or looks straight along Y.
func (c *CameraControllerComponent) localAxes() (right, up, forward common.Vec3) {
	back := c.Eye().Sub(c.Target())
	if back.Length() < 1e-8 {
		return
	}
	back = back.Normalize()

	// cross(worldUp, back)
	right = common.Vec3{X: back.Z, Z: -back.X}
	if right.Length() < 1e-8 {
		return common.Vec3{}, common.Vec3{}, common.Vec3{}
	}
	right = right.Normalize()
	up = back.Cross(right)
	forward = back.Scale(-1)
	return
}

// OnLogic pushes the orbit pose to the camera.
func (c *CameraControllerComponent) OnLogic() {
	if cam := c.Camera(); cam != nil {
		cam.SetLookAt(c.Eye(), c.Target(), common.Vec3{Y: 1})
	}
}

// ShallowCopyFrom copies bounds and speeds. Orbit and target are component members and copied with them.
func (c *CameraControllerComponent) ShallowCopyFrom(src ecs.Component) {
	s := src.(*CameraControllerComponent)
	c.minRadius, c.maxRadius = s.minRadius, s.maxRadius
	c.minElevation, c.maxElevation = s.minElevation, s.maxElevation
	c.orbitSpeed, c.mouseSensitivity, c.zoomSpeed, c.panSpeed = s.orbitSpeed, s.mouseSensitivity, s.zoomSpeed, s.panSpeed
}
