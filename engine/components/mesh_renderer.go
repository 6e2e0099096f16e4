package components

import (
	"github.com/Carmen-Shannon/rhodonite-go/engine/ecs"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/material"
	"go.uber.org/zap"
)

// MeshRendererComponent uploads its entity's mesh to the CG API repository and keeps the
// per-instance data current. Drawing itself is done by the render passes.
//
// The repository is taken from the World resource slot for renderer.CGAPIResourceRepository.
type MeshRendererComponent struct {
	ecs.ComponentBase

	mesh    *MeshComponent
	visible bool
	ready   bool
	loadErr error
}

// MeshRendererClass describes MeshRendererComponent. It requires a MeshComponent.
var MeshRendererClass = ecs.NewComponentClass("MeshRenderer", ecs.MeshRendererComponentTID, nil, func() ecs.Component {
	return &MeshRendererComponent{}
}).Requires(ecs.MeshComponentTID)

func (r *MeshRendererComponent) BindMembers() {
	r.visible = true
}

func (r *MeshRendererComponent) MeshComponent() *MeshComponent {
	if r.mesh != nil && r.mesh.IsAlive() {
		return r.mesh
	}
	r.mesh = nil
	if e := r.Entity(); e != nil {
		r.mesh, _ = ecs.Get[*MeshComponent](e, ecs.MeshComponentTID)
	}
	return r.mesh
}

// IsVisible reports whether render passes should draw the entity.
func (r *MeshRendererComponent) IsVisible() bool { return r.visible }

func (r *MeshRendererComponent) SetVisible(visible bool) { r.visible = visible }

// IsReady reports whether every primitive has GPU buffers and every material a shader program.
func (r *MeshRendererComponent) IsReady() bool { return r.ready }

// LoadError returns the last error met while uploading, nil if none.
func (r *MeshRendererComponent) LoadError() error { return r.loadErr }

func (r *MeshRendererComponent) repository() (renderer.CGAPIResourceRepository, bool) {
	if r.World() == nil {
		return nil, false
	}
	return ecs.Resource[renderer.CGAPIResourceRepository](r.World())
}

// OnLoad creates the vertex buffers, shader programs and textures the mesh still lacks.
// A failure is logged and retried next frame; the entity is simply not drawn meanwhile.
func (r *MeshRendererComponent) OnLoad() {
	if r.ready {
		return
	}
	mc := r.MeshComponent()
	repo, ok := r.repository()
	if mc == nil || mc.Mesh() == nil || !ok {
		return
	}

	logger := r.World().Logger().Named("mesh_renderer")
	r.loadErr = nil
	for _, p := range mc.Mesh().Primitives() {
		if p.VertexHandles() == nil {
			if _, err := repo.CreateVertexBufferAndIndexBuffer(p); err != nil {
				logger.Error("vertex upload failed", zap.Int32("entity", int32(r.EntityUID())), zap.String("primitive", p.Name()), zap.Error(err))
				r.loadErr = err
				continue
			}
		}
		// inactive variants get their programs now as well
		materials := []material.Material{p.Material()}
		for _, name := range p.MaterialVariantNames() {
			if m, ok := p.MaterialVariant(name); ok {
				materials = append(materials, m)
			}
		}
		for _, m := range materials {
			if err := r.loadMaterial(repo, m); err != nil {
				logger.Error("material upload failed", zap.Int32("entity", int32(r.EntityUID())), zap.String("material", m.Name()), zap.Error(err))
				r.loadErr = err
			}
		}
	}
	r.ready = r.loadErr == nil
}

func (r *MeshRendererComponent) loadMaterial(repo renderer.CGAPIResourceRepository, m material.Material) error {
	if m == nil {
		return nil
	}
	if !m.ShaderProgram().IsValid() {
		if _, err := repo.CreateShaderProgram(m); err != nil {
			return err
		}
	}
	// a texture still decoding keeps no staging data; the dummy is bound until it arrives
	if t := m.BaseColorTexture(); t != nil && !t.IsReady() && t.Staging() != nil {
		if err := repo.CreateTexture(t); err != nil {
			return err
		}
	}
	return nil
}

// OnPreRender uploads the world matrices and changed material parameters.
// The repository skips the instance upload when the buffer has not changed since the last one.
func (r *MeshRendererComponent) OnPreRender() {
	mc := r.MeshComponent()
	repo, ok := r.repository()
	if mc == nil || !ok || !r.ready {
		return
	}
	if sg := mc.SceneGraph(); sg != nil {
		sg.WorldMatrix()
		if _, err := repo.UploadInstanceData(sg.WorldMatrixAccessor()); err != nil {
			r.World().Logger().Named("mesh_renderer").Error("instance upload failed", zap.Error(err))
		}
	}
	for _, p := range mc.Mesh().Primitives() {
		if m := p.Material(); m != nil && m.ShaderProgram().IsValid() {
			_, _ = repo.UpdateMaterialParams(m)
		}
	}
}

// ShallowCopyFrom copies visibility. The copy shares the mesh, so its upload state carries over.
func (r *MeshRendererComponent) ShallowCopyFrom(src ecs.Component) {
	s := src.(*MeshRendererComponent)
	r.visible = s.visible
	r.ready = s.ready
}
