package components

import (
	"testing"

	"github.com/Carmen-Shannon/rhodonite-go/common"
	"github.com/Carmen-Shannon/rhodonite-go/engine/ecs"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrbitCameraAttachesCamera(t *testing.T) {
	w := newTestWorld(t)
	e, ctrl, err := CreateOrbitCameraEntity(w)
	require.NoError(t, err)

	assert.True(t, e.HasComponent(ecs.CameraComponentTID))
	assert.True(t, e.HasComponent(ecs.SceneGraphComponentTID))
	require.NotNil(t, ctrl.Camera())
	got, ok := GetCameraController(e)
	require.True(t, ok)
	assert.Same(t, ctrl, got)
}

func TestOrbitCameraDrivesLookAt(t *testing.T) {
	w := newTestWorld(t)
	_, ctrl, err := CreateOrbitCameraEntity(w)
	require.NoError(t, err)

	ctrl.SetTarget(common.Vec3{X: 1})
	ctrl.SetElevation(0)
	ctrl.SetAzimuth(0)
	ctrl.SetRadius(5)
	assert.True(t, ctrl.Eye().ApproxEqual(common.Vec3{X: 1, Z: 5}, 1e-5))

	w.Components().ProcessAll(ecs.StageLogic)
	cam := ctrl.Camera()
	assert.True(t, cam.Position().ApproxEqual(common.Vec3{X: 1, Z: 5}, 1e-5))

	// the target lands at the center of the view
	ndc := cam.ViewProjectionMatrix().TransformPoint(common.Vec3{X: 1})
	assert.InDelta(t, 0, ndc.X, 1e-5)
	assert.InDelta(t, 0, ndc.Y, 1e-5)

	ctrl.SetAzimuth(math32.Pi / 2)
	w.Components().ProcessAll(ecs.StageLogic)
	assert.True(t, cam.Position().ApproxEqual(common.Vec3{X: 6}, 1e-4))
}

func TestOrbitCameraClamps(t *testing.T) {
	w := newTestWorld(t)
	_, ctrl, err := CreateOrbitCameraEntity(w)
	require.NoError(t, err)

	ctrl.SetRadiusBounds(2, 20)
	ctrl.Zoom(1000)
	assert.Equal(t, float32(2), ctrl.Radius())
	ctrl.Zoom(-1000)
	assert.Equal(t, float32(20), ctrl.Radius())

	ctrl.SetElevationBounds(0, 1)
	ctrl.Orbit(0, 1000)
	assert.Equal(t, float32(1), ctrl.Elevation())
	ctrl.Drag(0, -100000)
	assert.Equal(t, float32(0), ctrl.Elevation())

	ctrl.SetRadiusBounds(30, 40)
	assert.Equal(t, float32(30), ctrl.Radius())
}

func TestOrbitCameraPan(t *testing.T) {
	w := newTestWorld(t)
	_, ctrl, err := CreateOrbitCameraEntity(w)
	require.NoError(t, err)
	ctrl.SetAzimuth(0)
	ctrl.SetElevation(0)
	ctrl.SetRadius(10)

	// looking down -Z: right is +X, up is +Y, forward is -Z
	ctrl.Pan(2, 0, 0)
	assert.True(t, ctrl.Target().ApproxEqual(common.Vec3{X: 2}, 1e-5))
	ctrl.Pan(0, 1, 0)
	assert.True(t, ctrl.Target().ApproxEqual(common.Vec3{X: 2, Y: 1}, 1e-5))
	ctrl.Pan(0, 0, 3)
	assert.True(t, ctrl.Target().ApproxEqual(common.Vec3{X: 2, Y: 1, Z: -3}, 1e-5))
	assert.Equal(t, float32(10), ctrl.Radius())
}

func TestOrbitCameraShallowCopy(t *testing.T) {
	w := newTestWorld(t)
	e, ctrl, err := CreateOrbitCameraEntity(w)
	require.NoError(t, err)
	ctrl.SetRadiusBounds(1, 3)
	ctrl.SetTarget(common.Vec3{Y: 4})

	dup, err := w.Entities().ShallowCopyEntity(e)
	require.NoError(t, err)
	dc, ok := GetCameraController(dup)
	require.True(t, ok)
	assert.True(t, dc.Target().ApproxEqual(common.Vec3{Y: 4}, 1e-6))
	assert.Equal(t, ctrl.Radius(), dc.Radius())
	dc.Zoom(-1000)
	assert.Equal(t, float32(3), dc.Radius())
	assert.NotSame(t, ctrl.Camera(), dc.Camera())
}
