package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/rhodonite-go/common"
	"github.com/Carmen-Shannon/rhodonite-go/engine/geometry"
	"github.com/Carmen-Shannon/rhodonite-go/engine/memory"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/material"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/shader"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/texture"
	"go.uber.org/zap"
)

// CommandKind names a call recorded by the headless strategy.
type CommandKind string

const (
	CommandCreateVertexBuffers  CommandKind = "CreateVertexBuffers"
	CommandCreateShaderProgram  CommandKind = "CreateShaderProgram"
	CommandCreateTexture        CommandKind = "CreateTexture"
	CommandCreateRenderTarget   CommandKind = "CreateRenderTarget"
	CommandUploadInstanceData   CommandKind = "UploadInstanceData"
	CommandUpdateMaterialParams CommandKind = "UpdateMaterialParams"
	CommandUpdateFrameUniform   CommandKind = "UpdateFrameUniform"
	CommandUpdateLights         CommandKind = "UpdateLights"
	CommandBeginRenderPass      CommandKind = "BeginRenderPass"
	CommandDraw                 CommandKind = "Draw"
	CommandEndRenderPass        CommandKind = "EndRenderPass"
	CommandPresent              CommandKind = "Present"
	CommandDelete               CommandKind = "Delete"
)

// ResourceKind names what a headless handle stands for.
type ResourceKind string

const (
	ResourceVertexBuffer  ResourceKind = "vertex-buffer"
	ResourceIndexBuffer   ResourceKind = "index-buffer"
	ResourceProgram       ResourceKind = "program"
	ResourceParams        ResourceKind = "params"
	ResourceTexture       ResourceKind = "texture"
	ResourceSampler       ResourceKind = "sampler"
	ResourceRenderTarget  ResourceKind = "render-target"
	ResourceUnknownHandle ResourceKind = ""
)

// Command is one recorded repository call.
type Command struct {
	Kind   CommandKind
	Label  string
	Handle common.CGAPIResourceHandle
	// Pass is the index of the render pass the command belongs to, -1 outside passes.
	Pass       int
	Draw       *DrawCommand
	RenderPass *RenderPassDescriptor
	ByteLength int
}

type headlessResource struct {
	kind       ResourceKind
	label      string
	byteLength int
	program    shader.Program
}

// headlessResourceRepository is the implementation of HeadlessResourceRepository.
type headlessResourceRepository struct {
	mu     *sync.Mutex
	logger *zap.Logger

	resources      *resourceTable[headlessResource]
	programs       map[string]common.CGAPIResourceHandle
	paramsVersions map[common.CGAPIResourceHandle]uint64

	instanceUploaded bool
	instanceVersion  uint64
	instanceData     []byte
	frameUniform     FrameUniform
	lights           []GPULight

	commands  []Command
	pass      *RenderPassDescriptor
	passIndex int

	width, height int
	dummies       *texture.Dummies
}

// HeadlessResourceRepository is a CGAPIResourceRepository that performs no GPU work.
// Every call is validated like the WebGPU strategy would and recorded for inspection.
type HeadlessResourceRepository interface {
	CGAPIResourceRepository

	// Commands returns every recorded call since creation or the last ResetCommands.
	Commands() []Command

	// Draws returns the recorded draw commands in submission order.
	Draws() []DrawCommand

	// ResetCommands clears the recorded calls.
	ResetCommands()

	// ResourceKind reports what a handle refers to, or ResourceUnknownHandle.
	ResourceKind(h common.CGAPIResourceHandle) ResourceKind

	// ResourceCount returns the number of live handles.
	ResourceCount() int

	// FrameUniform returns the last written frame uniform.
	FrameUniform() FrameUniform

	// Lights returns the last written light array.
	Lights() []GPULight

	// InstanceData returns the bytes of the last instance data upload.
	InstanceData() []byte
}

var _ HeadlessResourceRepository = &headlessResourceRepository{}

// NewHeadlessResourceRepository creates a recording repository. The dummy textures are created
// and ready before the first recorded command.
//
// Parameters:
//   - options: variadic list of RendererBuilderOption functions; only logger and canvas size apply
//
// Returns:
//   - HeadlessResourceRepository: the repository
func NewHeadlessResourceRepository(options ...RendererBuilderOption) HeadlessResourceRepository {
	o := newRendererOptions(options...)
	r := &headlessResourceRepository{
		mu:             &sync.Mutex{},
		logger:         rendererLogger(o, StrategyHeadless),
		resources:      newResourceTable[headlessResource](),
		programs:       make(map[string]common.CGAPIResourceHandle),
		paramsVersions: make(map[common.CGAPIResourceHandle]uint64),
		passIndex:      -1,
		width:          o.width,
		height:         o.height,
		dummies:        texture.NewDummies(),
	}
	for _, t := range r.dummies.All() {
		_ = r.CreateTexture(t)
	}
	r.commands = nil
	return r
}

func (r *headlessResourceRepository) Strategy() StrategyType {
	return StrategyHeadless
}

func (r *headlessResourceRepository) record(c Command) {
	if r.pass != nil {
		c.Pass = r.passIndex
	} else {
		c.Pass = -1
	}
	r.commands = append(r.commands, c)
}

func (r *headlessResourceRepository) CreateVertexBufferAndIndexBuffer(p *geometry.Primitive) (*geometry.VertexHandles, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := buildVertexData(p)
	if err != nil {
		return nil, err
	}

	handles := &geometry.VertexHandles{
		IndexBuffer:   common.InvalidCGAPIResourceHandle,
		VertexBuffers: make(map[geometry.VertexAttributeSemantic]common.CGAPIResourceHandle, len(data.streams)),
		Mode:          data.mode,
		Count:         data.drawCount(),
	}
	for _, s := range vertexStreams {
		stream := data.streams[s.semantic]
		handles.VertexBuffers[s.semantic] = r.resources.add(headlessResource{
			kind:       ResourceVertexBuffer,
			label:      fmt.Sprintf("%s %s", p.Name(), s.semantic),
			byteLength: len(stream),
		})
	}
	if data.indices != nil {
		handles.IndexBuffer = r.resources.add(headlessResource{
			kind:       ResourceIndexBuffer,
			label:      p.Name() + " indices",
			byteLength: len(data.indices) * 4,
		})
	}

	p.SetVertexHandles(handles)
	r.record(Command{Kind: CommandCreateVertexBuffers, Label: p.Name(), Handle: handles.VertexBuffers[geometry.Position], ByteLength: data.vertexCount})
	return handles, nil
}

func (r *headlessResourceRepository) DeleteVertexBufferAndIndexBuffer(h *geometry.VertexHandles) {
	if h == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, handle := range h.Handles() {
		if _, ok := r.resources.remove(handle); ok {
			r.record(Command{Kind: CommandDelete, Handle: handle})
		}
	}
}

func (r *headlessResourceRepository) CreateShaderProgram(m material.Material) (common.CGAPIResourceHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.programs[m.ShaderSource()]
	if !ok {
		program, err := shader.NewProgram(m.TypeName(), m.ShaderSource())
		if err != nil {
			r.logger.Error("shader program rejected", zap.String("material", m.Name()), zap.Error(err))
			return common.InvalidCGAPIResourceHandle, err
		}
		h = r.resources.add(headlessResource{kind: ResourceProgram, label: m.TypeName(), program: program})
		r.programs[m.ShaderSource()] = h
		r.record(Command{Kind: CommandCreateShaderProgram, Label: m.TypeName(), Handle: h})
	}
	m.SetShaderProgram(h)

	if !m.ParamsHandle().IsValid() {
		params := m.GPUParams()
		m.SetParamsHandle(r.resources.add(headlessResource{kind: ResourceParams, label: m.Name(), byteLength: params.Size()}))
	}
	r.writeParams(m)
	return h, nil
}

func (r *headlessResourceRepository) writeParams(m material.Material) bool {
	if v, ok := r.paramsVersions[m.ParamsHandle()]; ok && v == m.Version() {
		return false
	}
	r.paramsVersions[m.ParamsHandle()] = m.Version()
	params := m.GPUParams()
	r.record(Command{Kind: CommandUpdateMaterialParams, Label: m.Name(), Handle: m.ParamsHandle(), ByteLength: len(params.Marshal())})
	return true
}

func (r *headlessResourceRepository) UpdateMaterialParams(m material.Material) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.resources.get(m.ParamsHandle()); !ok {
		return false, ErrShaderProgramNotCreated
	}
	return r.writeParams(m), nil
}

func (r *headlessResourceRepository) CreateTexture(t *texture.Texture) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	staging := t.Staging()
	if staging == nil || len(staging.Pixels) == 0 {
		return fmt.Errorf("texture %q has no staged pixels", t.Name())
	}
	if len(staging.Pixels) < int(staging.Width*staging.Height*4) {
		return fmt.Errorf("texture %q: %d bytes for %dx%d RGBA", t.Name(), len(staging.Pixels), staging.Width, staging.Height)
	}

	h := r.resources.add(headlessResource{kind: ResourceTexture, label: t.Name(), byteLength: len(staging.Pixels)})
	s := r.resources.add(headlessResource{kind: ResourceSampler, label: t.Name()})
	t.MarkReady(h, s)
	r.record(Command{Kind: CommandCreateTexture, Label: t.Name(), Handle: h, ByteLength: len(staging.Pixels)})
	return nil
}

func (r *headlessResourceRepository) CreateRenderTargetTexture(desc RenderTargetDescriptor) (common.CGAPIResourceHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if desc.Width == 0 || desc.Height == 0 {
		return common.InvalidCGAPIResourceHandle, fmt.Errorf("render target %q has zero size", desc.Label)
	}
	bpp := 4
	samples := int(max(desc.SampleCount, 1))
	h := r.resources.add(headlessResource{
		kind:       ResourceRenderTarget,
		label:      desc.Label,
		byteLength: int(desc.Width*desc.Height) * bpp * samples,
	})
	r.record(Command{Kind: CommandCreateRenderTarget, Label: desc.Label, Handle: h})
	return h, nil
}

func (r *headlessResourceRepository) DeleteResource(h common.CGAPIResourceHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources.remove(h)
	if !ok {
		return fmt.Errorf("%w: %d", ErrResourceNotFound, h)
	}
	if res.kind == ResourceProgram {
		for src, ph := range r.programs {
			if ph == h {
				delete(r.programs, src)
			}
		}
	}
	delete(r.paramsVersions, h)
	r.record(Command{Kind: CommandDelete, Label: res.label, Handle: h})
	return nil
}

func (r *headlessResourceRepository) UploadInstanceData(worldMatrices *memory.Accessor) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if worldMatrices == nil {
		return false, errors.New("no instance data accessor")
	}
	version := worldMatrices.BufferView().Buffer().Version()
	if r.instanceUploaded && version == r.instanceVersion {
		return false, nil
	}
	r.instanceUploaded = true
	r.instanceVersion = version
	r.instanceData = append(r.instanceData[:0], worldMatrices.Bytes()...)
	r.record(Command{Kind: CommandUploadInstanceData, ByteLength: len(r.instanceData)})
	return true, nil
}

func (r *headlessResourceRepository) UpdateFrameUniform(u FrameUniform) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frameUniform = u
	r.record(Command{Kind: CommandUpdateFrameUniform, ByteLength: FrameUniformSize})
	return nil
}

func (r *headlessResourceRepository) UpdateLights(lights []GPULight) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lights = append(r.lights[:0], lights...)
	r.record(Command{Kind: CommandUpdateLights, ByteLength: len(MarshalLights(lights))})
	return nil
}

func (r *headlessResourceRepository) BeginRenderPass(desc RenderPassDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pass != nil {
		return ErrRenderPassOpen
	}
	attachments := append([]common.CGAPIResourceHandle{}, desc.ColorAttachments...)
	if desc.DepthAttachment.IsValid() {
		attachments = append(attachments, desc.DepthAttachment)
	}
	if desc.ResolveTarget.IsValid() {
		attachments = append(attachments, desc.ResolveTarget)
	}
	for _, h := range attachments {
		if res, ok := r.resources.get(h); !ok || res.kind != ResourceRenderTarget {
			return fmt.Errorf("%w: attachment %d", ErrResourceNotFound, h)
		}
	}

	r.passIndex++
	r.pass = &desc
	r.record(Command{Kind: CommandBeginRenderPass, Label: desc.Label, RenderPass: &desc})
	return nil
}

func (r *headlessResourceRepository) Draw(cmd DrawCommand) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := validateDraw(r.pass != nil, cmd); err != nil {
		return err
	}
	if _, ok := r.resources.get(cmd.Material.ShaderProgram()); !ok {
		return fmt.Errorf("%w: %s", ErrShaderProgramNotCreated, cmd.Material.Name())
	}
	if cmd.Primitive != nil {
		if _, ok := r.resources.get(cmd.Primitive.VertexHandles().VertexBuffers[geometry.Position]); !ok {
			return fmt.Errorf("%w: %s", ErrPrimitiveNotUploaded, cmd.Primitive.Name())
		}
	}

	c := cmd
	c.InstanceCount = cmd.instances()
	r.record(Command{Kind: CommandDraw, Label: cmd.Material.Name(), Handle: cmd.Material.ShaderProgram(), Draw: &c})
	return nil
}

func (r *headlessResourceRepository) EndRenderPass() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pass == nil {
		return ErrNoRenderPass
	}
	r.record(Command{Kind: CommandEndRenderPass, Label: r.pass.Label})
	r.pass = nil
	return nil
}

func (r *headlessResourceRepository) Present() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pass != nil {
		return ErrRenderPassOpen
	}
	r.record(Command{Kind: CommandPresent})
	r.passIndex = -1
	return nil
}

func (r *headlessResourceRepository) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.width, r.height = width, height
}

func (r *headlessResourceRepository) CanvasSize() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *headlessResourceRepository) DummyTextures() *texture.Dummies {
	return r.dummies
}

func (r *headlessResourceRepository) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resources = newResourceTable[headlessResource]()
	r.programs = make(map[string]common.CGAPIResourceHandle)
	r.paramsVersions = make(map[common.CGAPIResourceHandle]uint64)
}

func (r *headlessResourceRepository) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.commands...)
}

func (r *headlessResourceRepository) Draws() []DrawCommand {
	r.mu.Lock()
	defer r.mu.Unlock()
	var draws []DrawCommand
	for _, c := range r.commands {
		if c.Kind == CommandDraw {
			draws = append(draws, *c.Draw)
		}
	}
	return draws
}

func (r *headlessResourceRepository) ResetCommands() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
}

func (r *headlessResourceRepository) ResourceKind(h common.CGAPIResourceHandle) ResourceKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res, ok := r.resources.get(h); ok {
		return res.kind
	}
	return ResourceUnknownHandle
}

func (r *headlessResourceRepository) ResourceCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resources.len()
}

func (r *headlessResourceRepository) FrameUniform() FrameUniform {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frameUniform
}

func (r *headlessResourceRepository) Lights() []GPULight {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]GPULight(nil), r.lights...)
}

func (r *headlessResourceRepository) InstanceData() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.instanceData...)
}
