package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/rhodonite-go/common"
	"github.com/Carmen-Shannon/rhodonite-go/engine/geometry"
	"github.com/Carmen-Shannon/rhodonite-go/engine/memory"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/material"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/shader"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/texture"
	"github.com/Carmen-Shannon/rhodonite-go/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// wgpuResource is anything the WebGPU strategy hands out a handle for.
type wgpuResource interface {
	release()
}

type wgpuBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
}

func (b *wgpuBuffer) release() { b.buffer.Release() }

type wgpuTexture struct {
	texture     *wgpu.Texture
	view        *wgpu.TextureView
	format      wgpu.TextureFormat
	sampleCount uint32
	width       uint32
	height      uint32
}

func (t *wgpuTexture) release() {
	t.view.Release()
	t.texture.Release()
}

type wgpuSampler struct {
	sampler *wgpu.Sampler
}

func (s *wgpuSampler) release() { s.sampler.Release() }

type wgpuProgram struct {
	program      shader.Program
	module       *wgpu.ShaderModule
	groupLayouts map[int]*wgpu.BindGroupLayout
	layout       *wgpu.PipelineLayout
}

func (p *wgpuProgram) release() {
	p.layout.Release()
	for _, l := range p.groupLayouts {
		l.Release()
	}
	p.module.Release()
}

// materialBindGroupKey identifies a material bind group by the resources bound into it.
type materialBindGroupKey struct {
	materialUID int
	texture     common.CGAPIResourceHandle
	sampler     common.CGAPIResourceHandle
}

// wgpuResourceRepository is the WebGPU implementation of CGAPIResourceRepository.
type wgpuResourceRepository struct {
	mu     *sync.Mutex
	logger *zap.Logger

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode
	sampleCount   MSAASampleCount
	width, height int

	msaaTexture  *wgpuTexture
	depthTexture *wgpuTexture

	resources *resourceTable[wgpuResource]
	programs  map[string]common.CGAPIResourceHandle
	pipelines map[string]pipeline.Pipeline

	paramsVersions     map[common.CGAPIResourceHandle]uint64
	materialBindGroups map[materialBindGroupKey]*wgpu.BindGroup
	defaultSampler     *wgpu.Sampler

	// bind group 0
	frameLayout     *wgpu.BindGroupLayout
	frameBuffer     *wgpuBuffer
	instanceBuffer  *wgpuBuffer
	lightBuffer     *wgpuBuffer
	frameBindGroup  *wgpu.BindGroup
	instanceVersion uint64
	instanceValid   bool

	// frame state
	encoder        *wgpu.CommandEncoder
	pass           *wgpu.RenderPassEncoder
	passTarget     passTarget
	surfaceTexture *wgpu.Texture
	surfaceView    *wgpu.TextureView

	dummies *texture.Dummies
}

// passTarget is the attachment configuration of the open pass, used to pick pipelines.
type passTarget struct {
	format      wgpu.TextureFormat
	sampleCount uint32
	hasDepth    bool
}

var _ CGAPIResourceRepository = &wgpuResourceRepository{}

func newWGPUResourceRepository(win window.Window, o *rendererOptions) (CGAPIResourceRepository, error) {
	runtime.LockOSThread()
	r := &wgpuResourceRepository{
		mu:                 &sync.Mutex{},
		logger:             rendererLogger(o, StrategyWebGPU),
		instance:           wgpu.CreateInstance(nil),
		sampleCount:        o.msaa,
		width:              win.Width(),
		height:             win.Height(),
		resources:          newResourceTable[wgpuResource](),
		programs:           make(map[string]common.CGAPIResourceHandle),
		pipelines:          make(map[string]pipeline.Pipeline),
		paramsVersions:     make(map[common.CGAPIResourceHandle]uint64),
		materialBindGroups: make(map[materialBindGroupKey]*wgpu.BindGroup),
		dummies:            texture.NewDummies(),
	}
	r.presentMode = wgpuPresentMode(o.presentMode)
	r.surface = r.instance.CreateSurface(win.SurfaceDescriptor())

	a, err := r.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: o.forceFallbackAdapter,
		CompatibleSurface:    r.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	r.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	r.device = d
	r.queue = d.GetQueue()

	if err := r.configureSurface(r.width, r.height); err != nil {
		return nil, err
	}
	if err := r.initFrameBindGroup(max(o.maxLights, 1)); err != nil {
		return nil, err
	}

	r.defaultSampler, err = r.createSampler("Default Sampler", common.SamplerStagingData{})
	if err != nil {
		return nil, err
	}
	for _, t := range r.dummies.All() {
		if err := r.CreateTexture(t); err != nil {
			return nil, err
		}
	}

	r.logger.Info("webgpu device ready",
		zap.Int("width", r.width),
		zap.Int("height", r.height),
		zap.Uint32("msaa", uint32(r.sampleCount)))
	return r, nil
}

func wgpuPresentMode(mode PresentMode) wgpu.PresentMode {
	switch mode {
	case PresentModeUncapped:
		return wgpu.PresentModeImmediate
	case PresentModeMailbox:
		return wgpu.PresentModeMailbox
	default:
		return wgpu.PresentModeFifo
	}
}

func (r *wgpuResourceRepository) Strategy() StrategyType {
	return StrategyWebGPU
}

// configureSurface configures the swapchain and recreates the MSAA and depth attachments at the new size.
func (r *wgpuResourceRepository) configureSurface(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	capabilities := r.surface.GetCapabilities(r.adapter)
	r.surfaceFormat = capabilities.Formats[0]

	r.surface.Configure(r.adapter, r.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      r.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: r.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	r.width, r.height = width, height

	if r.msaaTexture != nil {
		r.msaaTexture.release()
		r.msaaTexture = nil
	}
	if r.depthTexture != nil {
		r.depthTexture.release()
	}

	count := uint32(r.sampleCount)
	if count > 1 {
		// the pass draws into the MSAA texture and resolves into the swapchain view
		msaa, err := r.newTexture("MSAA Texture", uint32(width), uint32(height), r.surfaceFormat, count, wgpu.TextureUsageRenderAttachment)
		if err != nil {
			return err
		}
		r.msaaTexture = msaa
	}

	depth, err := r.newTexture("Depth Texture", uint32(width), uint32(height), wgpu.TextureFormatDepth24Plus, count, wgpu.TextureUsageRenderAttachment)
	if err != nil {
		return err
	}
	r.depthTexture = depth
	return nil
}

func (r *wgpuResourceRepository) newTexture(label string, width, height uint32, format wgpu.TextureFormat, sampleCount uint32, usage wgpu.TextureUsage) (*wgpuTexture, error) {
	tex, err := r.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   sampleCount,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %s: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("create texture view %s: %w", label, err)
	}
	return &wgpuTexture{texture: tex, view: view, format: format, sampleCount: sampleCount, width: width, height: height}, nil
}

func (r *wgpuResourceRepository) newBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpuBuffer, error) {
	// WebGPU requires buffer sizes to be a multiple of 4
	size = (size + 3) &^ 3
	buf, err := r.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %s: %w", label, err)
	}
	return &wgpuBuffer{buffer: buf, size: size}, nil
}

func (r *wgpuResourceRepository) uploadBuffer(label string, data []byte, usage wgpu.BufferUsage) (*wgpuBuffer, error) {
	buf, err := r.newBuffer(label, uint64(max(len(data), 4)), usage)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		r.queue.WriteBuffer(buf.buffer, 0, padTo4(data))
	}
	return buf, nil
}

func padTo4(data []byte) []byte {
	if len(data)%4 == 0 {
		return data
	}
	return append(append([]byte(nil), data...), make([]byte, 4-len(data)%4)...)
}

// initFrameBindGroup creates the frame uniform, instance and light buffers and the bind group 0
// layout reflected from the standard program.
func (r *wgpuResourceRepository) initFrameBindGroup(maxLights int) error {
	standard, err := shader.NewProgram("frame", material.StandardShaderSource)
	if err != nil {
		return err
	}
	desc, ok := standard.BindGroupLayoutDescriptors()[0]
	if !ok {
		return errors.New("standard program declares no frame bind group")
	}
	desc.Label = "Frame Bind Group Layout"
	r.frameLayout, err = r.device.CreateBindGroupLayout(&desc)
	if err != nil {
		return fmt.Errorf("create frame bind group layout: %w", err)
	}

	if r.frameBuffer, err = r.newBuffer("Frame Uniform", FrameUniformSize, wgpu.BufferUsageUniform); err != nil {
		return err
	}
	if r.instanceBuffer, err = r.newBuffer("Instance Data", InstanceDataStride, wgpu.BufferUsageStorage); err != nil {
		return err
	}
	if r.lightBuffer, err = r.newBuffer("Lights", uint64(maxLights*GPULightSize), wgpu.BufferUsageStorage); err != nil {
		return err
	}
	return r.rebuildFrameBindGroup()
}

func (r *wgpuResourceRepository) rebuildFrameBindGroup() error {
	if r.frameBindGroup != nil {
		r.frameBindGroup.Release()
	}
	bg, err := r.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Frame Bind Group",
		Layout: r.frameLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: r.frameBuffer.buffer, Offset: 0, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: r.instanceBuffer.buffer, Offset: 0, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: r.lightBuffer.buffer, Offset: 0, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("create frame bind group: %w", err)
	}
	r.frameBindGroup = bg
	return nil
}

func (r *wgpuResourceRepository) CreateVertexBufferAndIndexBuffer(p *geometry.Primitive) (*geometry.VertexHandles, error) {
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
		buf, err := r.uploadBuffer(fmt.Sprintf("%s %s", p.Name(), s.semantic), data.streams[s.semantic], wgpu.BufferUsageVertex)
		if err != nil {
			r.releaseHandles(handles)
			return nil, err
		}
		handles.VertexBuffers[s.semantic] = r.resources.add(buf)
	}
	if data.indices != nil {
		buf, err := r.uploadBuffer(p.Name()+" Index Buffer", indexBytes(data.indices), wgpu.BufferUsageIndex)
		if err != nil {
			r.releaseHandles(handles)
			return nil, err
		}
		handles.IndexBuffer = r.resources.add(buf)
	}

	p.SetVertexHandles(handles)
	r.logger.Debug("primitive uploaded", zap.String("primitive", p.Name()), zap.Int("vertices", data.vertexCount))
	return handles, nil
}

func (r *wgpuResourceRepository) releaseHandles(h *geometry.VertexHandles) {
	for _, handle := range h.Handles() {
		if res, ok := r.resources.remove(handle); ok {
			res.release()
		}
	}
}

func (r *wgpuResourceRepository) DeleteVertexBufferAndIndexBuffer(h *geometry.VertexHandles) {
	if h == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseHandles(h)
}

func (r *wgpuResourceRepository) CreateShaderProgram(m material.Material) (common.CGAPIResourceHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.programs[m.ShaderSource()]
	if !ok {
		prog, err := r.compileProgram(m.TypeName(), m.ShaderSource())
		if err != nil {
			r.logger.Error("shader program rejected", zap.String("material", m.Name()), zap.Error(err))
			return common.InvalidCGAPIResourceHandle, err
		}
		h = r.resources.add(prog)
		r.programs[m.ShaderSource()] = h
	}
	m.SetShaderProgram(h)

	if !m.ParamsHandle().IsValid() {
		params := m.GPUParams()
		buf, err := r.newBuffer(m.Name()+" Params", uint64(params.Size()), wgpu.BufferUsageUniform)
		if err != nil {
			return common.InvalidCGAPIResourceHandle, err
		}
		m.SetParamsHandle(r.resources.add(buf))
	}
	r.writeParams(m)
	return h, nil
}

func (r *wgpuResourceRepository) compileProgram(key, source string) (*wgpuProgram, error) {
	prog, err := shader.NewProgram(key, source)
	if err != nil {
		return nil, err
	}

	module, err := r.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: prog.Source(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}

	// groups the program skips still need a layout slot
	maxGroup := shader.MaxBindGroup(prog)
	groupLayouts := make(map[int]*wgpu.BindGroupLayout, maxGroup+1)
	bindGroupLayouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g := 0; g <= maxGroup; g++ {
		desc, ok := prog.BindGroupLayoutDescriptors()[g]
		if !ok {
			desc = wgpu.BindGroupLayoutDescriptor{Label: fmt.Sprintf("%s empty group %d", key, g)}
		}
		layout, err := r.device.CreateBindGroupLayout(&desc)
		if err != nil {
			return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		groupLayouts[g] = layout
		bindGroupLayouts[g] = layout
	}

	layout, err := r.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            key,
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuProgram{program: prog, module: module, groupLayouts: groupLayouts, layout: layout}, nil
}

func (r *wgpuResourceRepository) writeParams(m material.Material) bool {
	if v, ok := r.paramsVersions[m.ParamsHandle()]; ok && v == m.Version() {
		return false
	}
	res, ok := r.resources.get(m.ParamsHandle())
	if !ok {
		return false
	}
	params := m.GPUParams()
	r.queue.WriteBuffer(res.(*wgpuBuffer).buffer, 0, params.Marshal())
	r.paramsVersions[m.ParamsHandle()] = m.Version()
	return true
}

func (r *wgpuResourceRepository) UpdateMaterialParams(m material.Material) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.resources.get(m.ParamsHandle()); !ok {
		return false, ErrShaderProgramNotCreated
	}
	return r.writeParams(m), nil
}

func (r *wgpuResourceRepository) createSampler(label string, s common.SamplerStagingData) (*wgpu.Sampler, error) {
	return r.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  common.Coalesce(s.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(s.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(s.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(s.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(s.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(s.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   s.LodMinClamp,
		LodMaxClamp:   common.Coalesce(s.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(s.MaxAnisotropy, 1),
		Compare:       s.Compare,
	})
}

func (r *wgpuResourceRepository) CreateTexture(t *texture.Texture) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	staging := t.Staging()
	if staging == nil || len(staging.Pixels) == 0 {
		return fmt.Errorf("texture %q has no staged pixels", t.Name())
	}

	tex, err := r.newTexture(t.Name(), staging.Width, staging.Height, wgpu.TextureFormatRGBA8UnormSrgb, 1,
		wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst)
	if err != nil {
		return err
	}

	r.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		staging.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  staging.Width * 4,
			RowsPerImage: staging.Height,
		},
		&wgpu.Extent3D{
			Width:              staging.Width,
			Height:             staging.Height,
			DepthOrArrayLayers: 1,
		},
	)

	samplerStaging := common.SamplerStagingData{}
	if s := t.SamplerStaging(); s != nil {
		samplerStaging = *s
	}
	samp, err := r.createSampler(t.Name()+" Sampler", samplerStaging)
	if err != nil {
		tex.release()
		return err
	}

	t.MarkReady(r.resources.add(tex), r.resources.add(&wgpuSampler{sampler: samp}))
	return nil
}

func (r *wgpuResourceRepository) CreateRenderTargetTexture(desc RenderTargetDescriptor) (common.CGAPIResourceHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if desc.Width == 0 || desc.Height == 0 {
		return common.InvalidCGAPIResourceHandle, fmt.Errorf("render target %q has zero size", desc.Label)
	}
	format := wgpu.TextureFormatRGBA8Unorm
	if desc.Format.IsDepth() {
		format = wgpu.TextureFormatDepth24Plus
	}
	samples := max(desc.SampleCount, 1)
	usage := wgpu.TextureUsageRenderAttachment
	if samples == 1 {
		usage |= wgpu.TextureUsageTextureBinding
	}

	tex, err := r.newTexture(desc.Label, desc.Width, desc.Height, format, samples, usage)
	if err != nil {
		return common.InvalidCGAPIResourceHandle, err
	}
	return r.resources.add(tex), nil
}

func (r *wgpuResourceRepository) DeleteResource(h common.CGAPIResourceHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources.remove(h)
	if !ok {
		return fmt.Errorf("%w: %d", ErrResourceNotFound, h)
	}
	if _, isProgram := res.(*wgpuProgram); isProgram {
		for src, ph := range r.programs {
			if ph == h {
				delete(r.programs, src)
			}
		}
	}
	for key, bg := range r.materialBindGroups {
		if key.texture == h || key.sampler == h {
			bg.Release()
			delete(r.materialBindGroups, key)
		}
	}
	delete(r.paramsVersions, h)
	res.release()
	return nil
}

func (r *wgpuResourceRepository) UploadInstanceData(worldMatrices *memory.Accessor) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if worldMatrices == nil {
		return false, errors.New("no instance data accessor")
	}
	version := worldMatrices.BufferView().Buffer().Version()
	if r.instanceValid && version == r.instanceVersion {
		return false, nil
	}

	data := worldMatrices.Bytes()
	if uint64(len(data)) > r.instanceBuffer.size {
		grown, err := r.newBuffer("Instance Data", uint64(len(data)), wgpu.BufferUsageStorage)
		if err != nil {
			return false, err
		}
		r.instanceBuffer.release()
		r.instanceBuffer = grown
		if err := r.rebuildFrameBindGroup(); err != nil {
			return false, err
		}
	}
	r.queue.WriteBuffer(r.instanceBuffer.buffer, 0, padTo4(data))
	r.instanceValid = true
	r.instanceVersion = version
	return true, nil
}

func (r *wgpuResourceRepository) UpdateFrameUniform(u FrameUniform) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue.WriteBuffer(r.frameBuffer.buffer, 0, u.Marshal())
	return nil
}

func (r *wgpuResourceRepository) UpdateLights(lights []GPULight) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := MarshalLights(lights)
	if uint64(len(data)) > r.lightBuffer.size {
		grown, err := r.newBuffer("Lights", uint64(len(data)), wgpu.BufferUsageStorage)
		if err != nil {
			return err
		}
		r.lightBuffer.release()
		r.lightBuffer = grown
		if err := r.rebuildFrameBindGroup(); err != nil {
			return err
		}
	}
	r.queue.WriteBuffer(r.lightBuffer.buffer, 0, data)
	return nil
}

// acquireSurface gets the swapchain texture for this frame on first use.
func (r *wgpuResourceRepository) acquireSurface() error {
	if r.surfaceTexture != nil {
		return nil
	}
	surfaceTexture, err := r.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	r.surfaceTexture = surfaceTexture
	r.surfaceView = view
	return nil
}

func (r *wgpuResourceRepository) textureResource(h common.CGAPIResourceHandle) (*wgpuTexture, error) {
	res, ok := r.resources.get(h)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrResourceNotFound, h)
	}
	tex, ok := res.(*wgpuTexture)
	if !ok {
		return nil, fmt.Errorf("%w: %d is not a texture", ErrResourceNotFound, h)
	}
	return tex, nil
}

func (r *wgpuResourceRepository) BeginRenderPass(desc RenderPassDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pass != nil {
		return ErrRenderPassOpen
	}

	loadOp, clearColor := wgpu.LoadOpLoad, wgpu.Color{}
	if desc.ClearColor != nil {
		c := desc.ClearColor
		loadOp = wgpu.LoadOpClear
		clearColor = wgpu.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])}
	}
	depthLoadOp, depthClear := wgpu.LoadOpLoad, float32(1.0)
	if desc.ClearDepth != nil {
		depthLoadOp = wgpu.LoadOpClear
		depthClear = *desc.ClearDepth
	}

	var colors []wgpu.RenderPassColorAttachment
	var depthView *wgpu.TextureView
	var target passTarget

	if desc.IsSurface() {
		if err := r.acquireSurface(); err != nil {
			return err
		}
		attachment := wgpu.RenderPassColorAttachment{
			View:       r.surfaceView,
			LoadOp:     loadOp,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: clearColor,
		}
		if r.msaaTexture != nil {
			attachment.View = r.msaaTexture.view
			attachment.ResolveTarget = r.surfaceView
		}
		colors = append(colors, attachment)
		depthView = r.depthTexture.view
		target = passTarget{format: r.surfaceFormat, sampleCount: uint32(r.sampleCount), hasDepth: true}
	} else {
		for i, h := range desc.ColorAttachments {
			tex, err := r.textureResource(h)
			if err != nil {
				return err
			}
			attachment := wgpu.RenderPassColorAttachment{
				View:       tex.view,
				LoadOp:     loadOp,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: clearColor,
			}
			if i == 0 && desc.ResolveTarget.IsValid() {
				resolve, err := r.textureResource(desc.ResolveTarget)
				if err != nil {
					return err
				}
				attachment.ResolveTarget = resolve.view
			}
			colors = append(colors, attachment)
			if i == 0 {
				target = passTarget{format: tex.format, sampleCount: tex.sampleCount}
			}
		}
		if desc.DepthAttachment.IsValid() {
			depth, err := r.textureResource(desc.DepthAttachment)
			if err != nil {
				return err
			}
			depthView = depth.view
			target.hasDepth = true
		}
	}

	passDesc := &wgpu.RenderPassDescriptor{
		Label:            desc.Label,
		ColorAttachments: colors,
	}
	if depthView != nil {
		passDesc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            depthView,
			DepthLoadOp:     depthLoadOp,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: depthClear,
		}
	}

	encoder, err := r.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	pass := encoder.BeginRenderPass(passDesc)
	if v := desc.Viewport; v != nil {
		pass.SetViewport(v[0], v[1], v[2], v[3], 0, 1)
	}

	r.encoder = encoder
	r.pass = pass
	r.passTarget = target
	return nil
}

func topology(mode geometry.PrimitiveMode) (wgpu.PrimitiveTopology, error) {
	switch mode {
	case geometry.Points:
		return wgpu.PrimitiveTopologyPointList, nil
	case geometry.Lines:
		return wgpu.PrimitiveTopologyLineList, nil
	case geometry.LineStrip:
		return wgpu.PrimitiveTopologyLineStrip, nil
	case geometry.Triangles:
		return wgpu.PrimitiveTopologyTriangleList, nil
	case geometry.TriangleStrip:
		return wgpu.PrimitiveTopologyTriangleStrip, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnsupportedTopology, mode)
}

// renderPipeline returns the cached pipeline for the draw's state, creating it on first use.
func (r *wgpuResourceRepository) renderPipeline(prog *wgpuProgram, cmd DrawCommand) (pipeline.Pipeline, error) {
	topo := wgpu.PrimitiveTopologyTriangleList
	if cmd.Primitive != nil {
		var err error
		if topo, err = topology(cmd.Primitive.VertexHandles().Mode); err != nil {
			return nil, err
		}
	}
	cull := wgpu.CullModeBack
	if cmd.Material.DoubleSided() || cmd.Primitive == nil {
		cull = wgpu.CullModeNone
	}

	p := pipeline.NewPipeline(prog.program,
		pipeline.WithTopology(topo),
		pipeline.WithCullMode(cull),
		pipeline.WithBlendEnabled(cmd.Material.IsBlend()),
		pipeline.WithDepthAttachment(r.passTarget.hasDepth),
		pipeline.WithDepthTestEnabled(cmd.DepthTest),
		pipeline.WithDepthWriteEnabled(cmd.DepthWrite),
		pipeline.WithColorTarget(r.passTarget.format, r.passTarget.sampleCount),
	)
	if cached, ok := r.pipelines[p.PipelineKey()]; ok {
		return cached, nil
	}

	created, err := r.device.CreateRenderPipeline(p.Descriptor(prog.layout, prog.module))
	if err != nil {
		return nil, fmt.Errorf("create render pipeline %s: %w", p.PipelineKey(), err)
	}
	p.SetRenderPipeline(created)
	r.pipelines[p.PipelineKey()] = p
	r.logger.Debug("render pipeline created", zap.String("key", p.PipelineKey()))
	return p, nil
}

// materialBindGroup returns the bind group 1 of a material, substituting the white dummy for
// a texture that is not ready and the default sampler when the texture has none.
func (r *wgpuResourceRepository) materialBindGroup(prog *wgpuProgram, m material.Material) (*wgpu.BindGroup, error) {
	tex := m.BaseColorTexture().Or(r.dummies.White)
	key := materialBindGroupKey{materialUID: m.MaterialUID(), texture: tex.Handle(), sampler: tex.SamplerHandle()}
	if bg, ok := r.materialBindGroups[key]; ok {
		return bg, nil
	}

	texRes, err := r.textureResource(tex.Handle())
	if err != nil {
		return nil, err
	}
	sampler := r.defaultSampler
	if res, ok := r.resources.get(tex.SamplerHandle()); ok {
		sampler = res.(*wgpuSampler).sampler
	}
	params, ok := r.resources.get(m.ParamsHandle())
	if !ok {
		return nil, ErrShaderProgramNotCreated
	}

	desc := prog.program.BindGroupLayoutDescriptors()[1]
	entries := make([]wgpu.BindGroupEntry, 0, len(desc.Entries))
	for _, e := range desc.Entries {
		switch {
		case e.Buffer.Type != wgpu.BufferBindingTypeUndefined:
			entries = append(entries, wgpu.BindGroupEntry{Binding: e.Binding, Buffer: params.(*wgpuBuffer).buffer, Offset: 0, Size: wgpu.WholeSize})
		case e.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
			entries = append(entries, wgpu.BindGroupEntry{Binding: e.Binding, TextureView: texRes.view})
		case e.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
			entries = append(entries, wgpu.BindGroupEntry{Binding: e.Binding, Sampler: sampler})
		}
	}

	bg, err := r.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   m.Name() + " Bind Group",
		Layout:  prog.groupLayouts[1],
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create material bind group %s: %w", m.Name(), err)
	}
	r.materialBindGroups[key] = bg
	return bg, nil
}

func (r *wgpuResourceRepository) Draw(cmd DrawCommand) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := validateDraw(r.pass != nil, cmd); err != nil {
		return err
	}
	res, ok := r.resources.get(cmd.Material.ShaderProgram())
	if !ok {
		return fmt.Errorf("%w: %s", ErrShaderProgramNotCreated, cmd.Material.Name())
	}
	prog := res.(*wgpuProgram)

	p, err := r.renderPipeline(prog, cmd)
	if err != nil {
		return err
	}
	r.pass.SetPipeline(p.RenderPipeline())

	declared := prog.program.BindGroupLayoutDescriptors()
	if _, ok := declared[0]; ok {
		r.pass.SetBindGroup(0, r.frameBindGroup, nil)
	}
	if _, ok := declared[1]; ok {
		bg, err := r.materialBindGroup(prog, cmd.Material)
		if err != nil {
			return err
		}
		r.pass.SetBindGroup(1, bg, nil)
	}

	if cmd.IsFullscreen() {
		r.pass.Draw(3, 1, 0, 0)
		return nil
	}

	handles := cmd.Primitive.VertexHandles()
	for _, in := range prog.program.VertexInputs() {
		if int(in.Location) >= len(vertexStreams) {
			return fmt.Errorf("program %s reads unsupported vertex location %d", prog.program.Key(), in.Location)
		}
		vb, ok := r.resources.get(handles.VertexBuffers[vertexStreams[in.Location].semantic])
		if !ok {
			return fmt.Errorf("%w: %s", ErrPrimitiveNotUploaded, cmd.Primitive.Name())
		}
		r.pass.SetVertexBuffer(in.Location, vb.(*wgpuBuffer).buffer, 0, wgpu.WholeSize)
	}

	if handles.IsIndexed() {
		ib, ok := r.resources.get(handles.IndexBuffer)
		if !ok {
			return fmt.Errorf("%w: %s", ErrPrimitiveNotUploaded, cmd.Primitive.Name())
		}
		r.pass.SetIndexBuffer(ib.(*wgpuBuffer).buffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		r.pass.DrawIndexed(uint32(handles.Count), cmd.instances(), 0, 0, cmd.FirstInstance)
		return nil
	}
	r.pass.Draw(uint32(handles.Count), cmd.instances(), 0, cmd.FirstInstance)
	return nil
}

func (r *wgpuResourceRepository) EndRenderPass() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pass == nil {
		return ErrNoRenderPass
	}
	r.pass.End()
	r.pass.Release()
	r.pass = nil

	encoder := r.encoder
	r.encoder = nil
	defer encoder.Release()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	r.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (r *wgpuResourceRepository) Present() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pass != nil {
		return ErrRenderPassOpen
	}
	// nothing was drawn into the surface this frame
	if r.surfaceTexture == nil {
		return nil
	}

	r.surface.Present()
	r.surfaceView.Release()
	r.surfaceTexture.Release()
	r.surfaceView = nil
	r.surfaceTexture = nil
	return nil
}

func (r *wgpuResourceRepository) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.configureSurface(width, height); err != nil {
		r.logger.Error("surface resize failed", zap.Int("width", width), zap.Int("height", height), zap.Error(err))
	}
}

func (r *wgpuResourceRepository) CanvasSize() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *wgpuResourceRepository) DummyTextures() *texture.Dummies {
	return r.dummies
}

func (r *wgpuResourceRepository) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, bg := range r.materialBindGroups {
		bg.Release()
	}
	r.materialBindGroups = make(map[materialBindGroupKey]*wgpu.BindGroup)
	for _, p := range r.pipelines {
		if rp := p.RenderPipeline(); rp != nil {
			rp.Release()
		}
	}
	r.pipelines = make(map[string]pipeline.Pipeline)
	r.resources.each(func(_ common.CGAPIResourceHandle, res wgpuResource) {
		res.release()
	})
	r.resources = newResourceTable[wgpuResource]()
	r.programs = make(map[string]common.CGAPIResourceHandle)

	if r.frameBindGroup != nil {
		r.frameBindGroup.Release()
	}
	r.frameBuffer.release()
	r.instanceBuffer.release()
	r.lightBuffer.release()
	r.frameLayout.Release()
	r.defaultSampler.Release()
	if r.msaaTexture != nil {
		r.msaaTexture.release()
	}
	r.depthTexture.release()
	r.queue.Release()
	r.device.Release()
	r.adapter.Release()
	r.surface.Release()
	r.instance.Release()
}
