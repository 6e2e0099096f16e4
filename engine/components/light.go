package components

import (
	"github.com/Carmen-Shannon/rhodonite-go/common"
	"github.com/Carmen-Shannon/rhodonite-go/engine/config"
	"github.com/Carmen-Shannon/rhodonite-go/engine/ecs"
	"github.com/Carmen-Shannon/rhodonite-go/engine/memory"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer"
	"github.com/chewxy/math32"
)

// LightType is the shape of a light source.
type LightType uint32

const (
	DirectionalLight LightType = LightType(renderer.LightTypeDirectional)
	PointLight       LightType = LightType(renderer.LightTypePoint)
	SpotLight        LightType = LightType(renderer.LightTypeSpot)
)

func (t LightType) String() string {
	switch t {
	case DirectionalLight:
		return "Directional"
	case PointLight:
		return "Point"
	case SpotLight:
		return "Spot"
	}
	return "Unknown"
}

// LightComponent is a light placed by its entity's world matrix. Directional and spot lights
// shine along the entity's local -Z axis.
type LightComponent struct {
	ecs.ComponentBase

	color      memory.Field
	intensity  memory.Field
	lightRange memory.Field
	// x = inner cone angle, y = outer cone angle, radians
	spotAngles memory.Field

	lightType LightType
	enabled   bool

	sceneGraph *SceneGraphComponent
}

// LightClass describes LightComponent. Live lights are bounded by MaxLightNumber.
var LightClass = ecs.NewComponentClass("Light", ecs.LightComponentTID, func(cfg *config.Config) int {
	return cfg.MaxLightNumber
}, func() ecs.Component {
	return &LightComponent{}
}).
	RegisterMember(memory.CPUGeneric, "color", memory.Vec3, memory.Float, 1, 1, 1).
	RegisterMember(memory.CPUGeneric, "intensity", memory.Scalar, memory.Float, 1).
	RegisterMember(memory.CPUGeneric, "range", memory.Scalar, memory.Float, 0).
	RegisterMember(memory.CPUGeneric, "spotAngles", memory.Vec2, memory.Float, 0, math32.Pi/4).
	Requires(ecs.SceneGraphComponentTID)

func (l *LightComponent) BindMembers() {
	l.color = l.TakeOne("color")
	l.intensity = l.TakeOne("intensity")
	l.lightRange = l.TakeOne("range")
	l.spotAngles = l.TakeOne("spotAngles")
	l.lightType = PointLight
	l.enabled = true
}

func (l *LightComponent) SceneGraph() *SceneGraphComponent {
	if l.sceneGraph != nil && l.sceneGraph.IsAlive() {
		return l.sceneGraph
	}
	l.sceneGraph = nil
	if e := l.Entity(); e != nil {
		l.sceneGraph, _ = ecs.Get[*SceneGraphComponent](e, ecs.SceneGraphComponentTID)
	}
	return l.sceneGraph
}

func (l *LightComponent) Type() LightType { return l.lightType }

func (l *LightComponent) SetType(t LightType) { l.lightType = t }

func (l *LightComponent) Enabled() bool { return l.enabled }

func (l *LightComponent) SetEnabled(enabled bool) { l.enabled = enabled }

func (l *LightComponent) Color() common.Vec3 { return l.color.Vec3() }

func (l *LightComponent) SetColor(c common.Vec3) { l.color.SetVec3(c) }

func (l *LightComponent) Intensity() float32 { return l.intensity.Scalar() }

func (l *LightComponent) SetIntensity(i float32) { l.intensity.SetScalar(i) }

// Range returns the attenuation distance; 0 means unbounded.
func (l *LightComponent) Range() float32 { return l.lightRange.Scalar() }

func (l *LightComponent) SetRange(r float32) { l.lightRange.SetScalar(r) }

// SpotAngles returns the inner and outer cone angles in radians.
func (l *LightComponent) SpotAngles() (float32, float32) {
	var v [2]float32
	l.spotAngles.Values(v[:])
	return v[0], v[1]
}

func (l *LightComponent) SetSpotAngles(inner, outer float32) { l.spotAngles.Set(inner, outer) }

// Direction returns the world-space direction the light shines toward.
func (l *LightComponent) Direction() common.Vec3 {
	sg := l.SceneGraph()
	if sg == nil {
		return common.Vec3{Z: -1}
	}
	return sg.WorldMatrix().TransformDirection(common.Vec3{Z: -1}).Normalize()
}

// GPULight returns the light in the layout of the light storage buffer.
func (l *LightComponent) GPULight() renderer.GPULight {
	inner, outer := l.SpotAngles()
	pos := common.Vec3{}
	if sg := l.SceneGraph(); sg != nil {
		pos = sg.WorldPosition()
	}
	return renderer.GPULight{
		Position:     pos,
		Type:         uint32(l.lightType),
		Direction:    l.Direction(),
		Color:        l.Color().Scale(l.Intensity()),
		Range:        l.Range(),
		InnerConeCos: math32.Cos(inner),
		OuterConeCos: math32.Cos(outer),
	}
}

func (l *LightComponent) ShallowCopyFrom(src ecs.Component) {
	s := src.(*LightComponent)
	l.lightType = s.lightType
	l.enabled = s.enabled
}

// CollectLights returns the enabled lights of w in ComponentSID order.
func CollectLights(w *ecs.World) []renderer.GPULight {
	var out []renderer.GPULight
	for _, c := range w.Components().Components(ecs.LightComponentTID) {
		if l := c.(*LightComponent); l.enabled {
			out = append(out, l.GPULight())
		}
	}
	return out
}
