package render_pipeline

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/rhodonite-go/common"
	"github.com/Carmen-Shannon/rhodonite-go/engine/components"
	"github.com/Carmen-Shannon/rhodonite-go/engine/ecs"
	"github.com/Carmen-Shannon/rhodonite-go/engine/geometry"
	"github.com/Carmen-Shannon/rhodonite-go/engine/memory"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer"
	"go.uber.org/zap"
)

// FrameStats counts the work of one executed frame.
type FrameStats struct {
	RenderPasses int
	DrawCalls    int
	// CulledMeshes is the number of mesh entities skipped by frustum culling.
	CulledMeshes int
	// SkippedDraws is the number of draw calls the repository rejected.
	SkippedDraws int
}

// FrameExecutor walks a Frame and issues its render passes through a CG API repository.
type FrameExecutor interface {
	// Execute draws every enabled pass of f in order, then presents.
	// Material parameters must already be uploaded (PreRender stage). Instance data is uploaded
	// again before a pass draws if world matrices changed after PreRender.
	//
	// Parameters:
	//   - w: the world holding the drawn components
	//   - f: the frame to draw
	//
	// Returns:
	//   - FrameStats: counters of the frame
	//   - error: an error opening or closing a pass, or allocating a framebuffer
	Execute(w *ecs.World, f Frame) (FrameStats, error)
}

type frameExecutor struct {
	repo      renderer.CGAPIResourceRepository
	logger    *zap.Logger
	items     []drawItem
	instances *memory.Accessor
}

var _ FrameExecutor = &frameExecutor{}

type drawItem struct {
	primitive *geometry.Primitive
	instance  uint32
	depth     float32
}

// NewFrameExecutor creates an executor drawing through repo.
//
// Parameters:
//   - repo: the CG API repository
//   - logger: logger for skipped draws; nil disables logging
//
// Returns:
//   - FrameExecutor: the executor
func NewFrameExecutor(repo renderer.CGAPIResourceRepository, logger *zap.Logger) FrameExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &frameExecutor{repo: repo, logger: logger.Named("render_pipeline")}
}

func (x *frameExecutor) Execute(w *ecs.World, f Frame) (FrameStats, error) {
	var stats FrameStats
	lights := components.CollectLights(w)
	if err := x.repo.UpdateLights(lights); err != nil {
		return stats, fmt.Errorf("update lights: %w", err)
	}

	for _, p := range f.RenderPasses() {
		if !p.Enabled() {
			continue
		}
		if err := x.executePass(w, p, uint32(len(lights)), &stats); err != nil {
			return stats, err
		}
		stats.RenderPasses++
	}

	if err := x.repo.Present(); err != nil {
		return stats, fmt.Errorf("present: %w", err)
	}
	return stats, nil
}

func passLabel(p RenderPass) string {
	if p.Tag() != "" {
		return p.Tag()
	}
	return fmt.Sprintf("render-pass-%d", p.RenderPassUID())
}

func (x *frameExecutor) passDescriptor(p RenderPass) (renderer.RenderPassDescriptor, error) {
	desc := renderer.RenderPassDescriptor{
		Label:      passLabel(p),
		ClearColor: p.ClearColor(),
		ClearDepth: p.ClearDepth(),
		Viewport:   p.Viewport(),
	}
	if fb := p.FrameBuffer(); fb != nil {
		if err := fb.Create(x.repo); err != nil {
			return desc, err
		}
		for _, rt := range fb.ColorAttachments() {
			desc.ColorAttachments = append(desc.ColorAttachments, rt.Handle())
		}
		if d := fb.DepthAttachment(); d != nil {
			desc.DepthAttachment = d.Handle()
		}
	}
	if rfb := p.ResolveFrameBuffer(); rfb != nil {
		if err := rfb.Create(x.repo); err != nil {
			return desc, err
		}
		if rt, ok := rfb.ColorAttachment(0); ok {
			desc.ResolveTarget = rt.Handle()
		}
	}
	return desc, nil
}

func (x *frameExecutor) frameUniform(camera *components.CameraComponent, lightCount uint32) renderer.FrameUniform {
	u := renderer.FrameUniform{ViewProjection: common.IdentityMat4(), LightCount: lightCount}
	if camera != nil {
		u.ViewProjection = camera.ViewProjectionMatrix()
		u.CameraPosition = camera.Position()
	}
	return u
}

func (x *frameExecutor) executePass(w *ecs.World, p RenderPass, lightCount uint32, stats *FrameStats) error {
	camera := p.Camera()
	if camera == nil {
		camera = components.CurrentCamera(w)
	}
	if err := x.repo.UpdateFrameUniform(x.frameUniform(camera, lightCount)); err != nil {
		return fmt.Errorf("pass %q frame uniform: %w", passLabel(p), err)
	}

	desc, err := x.passDescriptor(p)
	if err != nil {
		return fmt.Errorf("pass %q: %w", passLabel(p), err)
	}
	if err := x.repo.BeginRenderPass(desc); err != nil {
		return fmt.Errorf("begin pass %q: %w", passLabel(p), err)
	}

	if m := p.Material(); m != nil {
		x.drawFullscreen(p, stats)
	} else {
		x.drawPrimitives(p, camera, stats)
	}

	if err := x.repo.EndRenderPass(); err != nil {
		return fmt.Errorf("end pass %q: %w", passLabel(p), err)
	}
	return nil
}

func (x *frameExecutor) draw(cmd renderer.DrawCommand, stats *FrameStats) {
	if err := x.repo.Draw(cmd); err != nil {
		stats.SkippedDraws++
		x.logger.Debug("draw skipped", zap.Error(err))
		return
	}
	stats.DrawCalls++
}

func (x *frameExecutor) drawFullscreen(p RenderPass, stats *FrameStats) {
	m := p.Material()
	if !m.ShaderProgram().IsValid() {
		if _, err := x.repo.CreateShaderProgram(m); err != nil {
			stats.SkippedDraws++
			x.logger.Debug("fullscreen program failed", zap.String("pass", passLabel(p)), zap.Error(err))
			return
		}
	}
	if _, err := x.repo.UpdateMaterialParams(m); err != nil {
		x.logger.Debug("fullscreen params failed", zap.String("pass", passLabel(p)), zap.Error(err))
	}
	x.draw(renderer.DrawCommand{Material: m}, stats)
}

// collect gathers the drawable primitives of the pass with their instance index and view depth.
func (x *frameExecutor) collect(p RenderPass, camera *components.CameraComponent, stats *FrameStats) []drawItem {
	items := x.items[:0]
	x.instances = nil
	var frustum common.Frustum
	culling := p.FrustumCulling() && camera != nil
	if culling {
		frustum = camera.Frustum()
	}

	for _, mc := range p.MeshComponents() {
		e := mc.Entity()
		if e == nil || mc.Mesh() == nil {
			continue
		}
		if mr, ok := components.GetMeshRenderer(e); !ok || !mr.IsVisible() || !mr.IsReady() {
			continue
		}
		sg := mc.SceneGraph()
		if sg == nil {
			continue
		}
		if culling && !sg.WorldAABB().IntersectsFrustum(frustum) {
			stats.CulledMeshes++
			continue
		}
		depth := mc.CalcViewDepth(camera)
		x.instances = sg.WorldMatrixAccessor()
		for _, prim := range mc.Mesh().Primitives() {
			if prim.Material() == nil || !p.Draws(prim.SortKey().Translucency()) {
				continue
			}
			items = append(items, drawItem{primitive: prim, instance: uint32(sg.ComponentSID()), depth: depth})
		}
	}

	// same order as geometry.SortPrimitives, with the depth taken per instance since meshes can be shared
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		ka, kb := a.primitive.SortKey(), b.primitive.SortKey()
		if ka != kb {
			return ka < kb
		}
		if ka.IsOpaque() {
			return a.depth < b.depth
		}
		return a.depth > b.depth
	})
	x.items = items
	return items
}

func (x *frameExecutor) drawPrimitives(p RenderPass, camera *components.CameraComponent, stats *FrameStats) {
	items := x.collect(p, camera, stats)
	// collect recomputed dirty world matrices; the repository skips this when nothing changed
	if x.instances != nil {
		if _, err := x.repo.UploadInstanceData(x.instances); err != nil {
			x.logger.Error("instance upload failed", zap.String("pass", passLabel(p)), zap.Error(err))
		}
	}
	for _, it := range items {
		key := it.primitive.SortKey()
		x.draw(renderer.DrawCommand{
			Primitive:     it.primitive,
			Material:      it.primitive.Material(),
			FirstInstance: it.instance,
			InstanceCount: 1,
			DepthTest:     p.DepthTest(),
			DepthWrite:    p.DepthTest() && !key.IsBlendWithoutZWrite(),
		}, stats)
	}
}
