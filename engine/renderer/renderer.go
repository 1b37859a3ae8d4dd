package renderer

import (
	"fmt"

	"github.com/spaghettifunk/prisma/engine/config"
	"github.com/spaghettifunk/prisma/engine/containers"
	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
	"github.com/spaghettifunk/prisma/engine/renderer/shaders"
)

// Ring buffer sub-allocation alignments per buffer usage. Uniform buffers get
// the worst-case minUniformBufferOffsetAlignment of desktop hardware so the
// offsets are valid without querying the device.
const (
	uniformBufferAlignment = 256
	storageBufferAlignment = 64
	vertexBufferAlignment  = 16
	indexBufferAlignment   = 4
)

// Renderer is the frontend of the rendering layer. It owns every resource
// registry, the ephemeral ring buffer and the frame state machine, and
// forwards validated work to one Backend. All methods must be called from a
// single goroutine; the GPU runs asynchronously behind the backend's frame
// fences.
//
// Methods that create or delete resources return errors. The per-frame
// command methods panic on contract violations instead: those are bugs in the
// calling code, not runtime conditions.
type Renderer struct {
	backend Backend
	system  *shaders.System
	cfg     config.RendererConfig

	buffers         *containers.Registry[metadata.Buffer]
	textures        *containers.Registry[metadata.Texture]
	renderTargets   *containers.Registry[metadata.RenderTarget]
	renderPasses    *containers.Registry[metadata.RenderPass]
	framebuffers    *containers.Registry[metadata.Framebuffer]
	pipelines       *containers.Registry[metadata.Pipeline]
	samplers        *containers.Registry[metadata.Sampler]
	dsLayouts       *containers.Registry[metadata.DescriptorSetLayout]
	vertexShaders   *containers.Registry[metadata.VertexShader]
	fragmentShaders *containers.Registry[metadata.FragmentShader]

	ring *ringBuffer
	// ring cursor at each in-flight frame's submission, oldest first; when a
	// frame retires its cursor becomes the ring's synced watermark
	frameRingPtrs []uint32
	ephemeral     []metadata.BufferHandle

	inFrame       bool
	inRenderPass  bool
	validPipeline bool
	pipelineDrawn bool
	scissorSet    bool

	currentPipeline    *metadata.Pipeline
	currentRenderPass  metadata.RenderPassHandle
	currentFramebuffer metadata.FramebufferHandle

	bufferBytes  uint64
	textureBytes uint64
	allocations  uint32
}

func New(cfg config.RendererConfig, backend Backend, system *shaders.System) (*Renderer, error) {
	if backend == nil {
		return nil, fmt.Errorf("renderer requires a backend")
	}
	if system == nil {
		return nil, fmt.Errorf("renderer requires a shader system")
	}

	r := &Renderer{
		backend: backend,
		system:  system,
		cfg:     cfg,

		buffers:         containers.NewRegistry[metadata.Buffer](),
		textures:        containers.NewRegistry[metadata.Texture](),
		renderTargets:   containers.NewRegistry[metadata.RenderTarget](),
		renderPasses:    containers.NewRegistry[metadata.RenderPass](),
		framebuffers:    containers.NewRegistry[metadata.Framebuffer](),
		pipelines:       containers.NewRegistry[metadata.Pipeline](),
		samplers:        containers.NewRegistry[metadata.Sampler](),
		dsLayouts:       containers.NewRegistry[metadata.DescriptorSetLayout](),
		vertexShaders:   containers.NewRegistry[metadata.VertexShader](),
		fragmentShaders: containers.NewRegistry[metadata.FragmentShader](),
	}

	ring, err := newRingBuffer(cfg.EphemeralRingBufSize, backend.RecreateRingBuffer)
	if err != nil {
		return nil, fmt.Errorf("renderer ring buffer: %w", err)
	}
	r.ring = ring

	core.LogInfo("renderer initialized, ring buffer %d bytes, %d frames in flight", cfg.EphemeralRingBufSize, cfg.FramesInFlight)
	return r, nil
}

// Shutdown tears down every live resource in reverse dependency order and
// then the backend itself. The renderer is unusable afterwards.
func (r *Renderer) Shutdown() error {
	if r.inFrame {
		panic("Shutdown called inside a frame")
	}

	r.pipelines.ClearWith(r.backend.DestroyPipeline)
	r.framebuffers.ClearWith(r.backend.DestroyFramebuffer)
	r.renderPasses.ClearWith(r.backend.DestroyRenderPass)
	r.renderTargets.ClearWith(r.backend.DestroyRenderTarget)
	r.textures.ClearWith(r.backend.DestroyTexture)
	r.buffers.ClearWith(func(b *metadata.Buffer) {
		if !b.RingBufferAlloc {
			r.backend.DestroyBuffer(b)
		}
	})
	r.samplers.ClearWith(r.backend.DestroySampler)
	r.dsLayouts.ClearWith(r.backend.DestroyDescriptorSetLayout)
	r.vertexShaders.ClearWith(r.backend.DestroyVertexShader)
	r.fragmentShaders.ClearWith(r.backend.DestroyFragmentShader)

	if err := r.system.Close(); err != nil {
		core.LogWarn("shader system close: %v", err)
	}
	return r.backend.Shutdown()
}

// DrawableSize is the current swapchain extent in pixels.
func (r *Renderer) DrawableSize() (uint32, uint32) {
	return r.backend.DrawableSize()
}

// GetMemStats is a snapshot of the renderer's GPU allocation counters.
func (r *Renderer) GetMemStats() metadata.MemoryStats {
	return metadata.MemoryStats{
		BufferBytes:    r.bufferBytes,
		TextureBytes:   r.textureBytes,
		RingBufferSize: r.ring.size,
		Allocations:    r.allocations,
	}
}

// CreateBuffer allocates a standalone GPU buffer with dedicated backing
// storage holding contents.
func (r *Renderer) CreateBuffer(usage metadata.BufferType, contents []byte) (metadata.BufferHandle, error) {
	var nilHandle metadata.BufferHandle
	if usage == metadata.BufferTypeInvalid {
		return nilHandle, fmt.Errorf("createBuffer: invalid buffer type")
	}
	if len(contents) == 0 {
		return nilHandle, fmt.Errorf("createBuffer: empty contents")
	}

	buffer, handle := r.buffers.Add()
	buffer.Type = usage
	buffer.Size = uint32(len(contents))

	if err := r.backend.CreateBuffer(buffer, contents); err != nil {
		r.buffers.Remove(handle)
		return nilHandle, fmt.Errorf("createBuffer: %w", err)
	}

	r.bufferBytes += uint64(len(contents))
	r.allocations++
	return handle, nil
}

// CreateEphemeralBuffer sub-allocates contents from the ring buffer. The
// returned handle is valid only until the next PresentFrame, which releases
// all ephemeral buffers in bulk.
func (r *Renderer) CreateEphemeralBuffer(usage metadata.BufferType, contents []byte) (metadata.BufferHandle, error) {
	var nilHandle metadata.BufferHandle
	if usage == metadata.BufferTypeInvalid {
		return nilHandle, fmt.Errorf("createEphemeralBuffer: invalid buffer type")
	}
	if len(contents) == 0 {
		return nilHandle, fmt.Errorf("createEphemeralBuffer: empty contents")
	}

	sizeBefore := r.ring.size
	offset, err := r.ring.allocate(uint32(len(contents)), ringAlignment(usage))
	if err != nil {
		return nilHandle, fmt.Errorf("createEphemeralBuffer: %w", err)
	}
	if r.ring.size != sizeBefore {
		// the ring was reallocated and its cursor reset, recorded frame
		// cursors no longer mean anything
		r.frameRingPtrs = r.frameRingPtrs[:0]
	}
	r.backend.RingWrite(offset, contents)

	buffer, handle := r.buffers.Add()
	buffer.Type = usage
	buffer.Size = uint32(len(contents))
	buffer.RingBufferAlloc = true
	buffer.BeginOffs = offset

	r.ephemeral = append(r.ephemeral, handle)
	return handle, nil
}

func ringAlignment(usage metadata.BufferType) uint32 {
	switch usage {
	case metadata.BufferTypeUniform:
		return uniformBufferAlignment
	case metadata.BufferTypeStorage:
		return storageBufferAlignment
	case metadata.BufferTypeIndex:
		return indexBufferAlignment
	default:
		return vertexBufferAlignment
	}
}

func (r *Renderer) DeleteBuffer(handle metadata.BufferHandle) error {
	return r.buffers.RemoveWith(handle, func(b *metadata.Buffer) {
		if b.RingBufferAlloc {
			// ring sub-allocations reclaim with the frame, nothing to free
			return
		}
		r.bufferBytes -= uint64(b.Size)
		r.allocations--
		r.backend.DestroyBuffer(b)
	})
}

// CreateTexture uploads a static texture with pre-decoded mip contents.
func (r *Renderer) CreateTexture(desc *metadata.TextureDesc) (metadata.TextureHandle, error) {
	var nilHandle metadata.TextureHandle
	if desc.Name == "" {
		return nilHandle, fmt.Errorf("createTexture: empty name")
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nilHandle, fmt.Errorf("createTexture %q: zero dimension %dx%d", desc.Name, desc.Width, desc.Height)
	}
	if desc.Format == metadata.FormatInvalid {
		return nilHandle, fmt.Errorf("createTexture %q: invalid format", desc.Name)
	}
	if len(desc.MipData) == 0 {
		return nilHandle, fmt.Errorf("createTexture %q: no mip data", desc.Name)
	}

	texture, handle := r.textures.Add()
	texture.Name = desc.Name
	texture.Width = desc.Width
	texture.Height = desc.Height
	texture.Format = desc.Format
	texture.MipCount = uint32(len(desc.MipData))

	if err := r.backend.CreateTexture(texture, desc); err != nil {
		r.textures.Remove(handle)
		return nilHandle, fmt.Errorf("createTexture %q: %w", desc.Name, err)
	}

	r.textureBytes += textureByteSize(desc.Width, desc.Height, texture.MipCount, desc.Format)
	r.allocations++
	return handle, nil
}

func textureByteSize(width, height, mips uint32, format metadata.Format) uint64 {
	var total uint64
	for level := uint32(0); level < mips; level++ {
		w := max(width>>level, 1)
		h := max(height>>level, 1)
		total += uint64(w) * uint64(h) * uint64(format.Size())
	}
	return total
}

// DeleteTexture releases a static texture. Textures owned by a render target
// are released through DeleteRenderTarget instead.
func (r *Renderer) DeleteTexture(handle metadata.TextureHandle) error {
	texture, err := r.textures.Get(handle)
	if err != nil {
		return err
	}
	if texture.RenderTarget {
		return fmt.Errorf("deleteTexture %q: texture is owned by a render target", texture.Name)
	}
	return r.textures.RemoveWith(handle, func(t *metadata.Texture) {
		r.textureBytes -= textureByteSize(t.Width, t.Height, t.MipCount, t.Format)
		r.allocations--
		r.backend.DestroyTexture(t)
	})
}

// CreateRenderTarget allocates an attachment image plus the texture record
// through which shaders sample it.
func (r *Renderer) CreateRenderTarget(desc *metadata.RenderTargetDesc) (metadata.RenderTargetHandle, error) {
	var nilHandle metadata.RenderTargetHandle
	if desc.Name == "" {
		return nilHandle, fmt.Errorf("createRenderTarget: empty name")
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nilHandle, fmt.Errorf("createRenderTarget %q: zero dimension %dx%d", desc.Name, desc.Width, desc.Height)
	}
	if desc.Format == metadata.FormatInvalid {
		return nilHandle, fmt.Errorf("createRenderTarget %q: invalid format", desc.Name)
	}

	texture, textureHandle := r.textures.Add()
	texture.Name = desc.Name
	texture.Width = desc.Width
	texture.Height = desc.Height
	texture.Format = desc.Format
	texture.MipCount = 1
	texture.RenderTarget = true

	rt, handle := r.renderTargets.Add()
	rt.Name = desc.Name
	rt.Width = desc.Width
	rt.Height = desc.Height
	rt.Format = desc.Format
	rt.CurrentLayout = metadata.LayoutUndefined
	rt.Texture = textureHandle

	if err := r.backend.CreateRenderTarget(rt, texture); err != nil {
		r.renderTargets.Remove(handle)
		r.textures.Remove(textureHandle)
		return nilHandle, fmt.Errorf("createRenderTarget %q: %w", desc.Name, err)
	}

	r.textureBytes += textureByteSize(desc.Width, desc.Height, 1, desc.Format)
	r.allocations++
	return handle, nil
}

func (r *Renderer) DeleteRenderTarget(handle metadata.RenderTargetHandle) error {
	return r.renderTargets.RemoveWith(handle, func(rt *metadata.RenderTarget) {
		r.textures.RemoveWith(rt.Texture, func(t *metadata.Texture) {
			r.backend.DestroyTexture(t)
		})
		r.textureBytes -= textureByteSize(rt.Width, rt.Height, 1, rt.Format)
		r.allocations--
		r.backend.DestroyRenderTarget(rt)
	})
}

// GetRenderTargetTexture returns the texture backing a render target, for
// sampling it in a later pass.
func (r *Renderer) GetRenderTargetTexture(handle metadata.RenderTargetHandle) metadata.TextureHandle {
	return r.renderTargets.MustGet(handle).Texture
}

func (r *Renderer) CreateSampler(desc *metadata.SamplerDesc) (metadata.SamplerHandle, error) {
	var nilHandle metadata.SamplerHandle
	if desc.Name == "" {
		return nilHandle, fmt.Errorf("createSampler: empty name")
	}

	sampler, handle := r.samplers.Add()
	sampler.Name = desc.Name

	if err := r.backend.CreateSampler(sampler, desc); err != nil {
		r.samplers.Remove(handle)
		return nilHandle, fmt.Errorf("createSampler %q: %w", desc.Name, err)
	}
	return handle, nil
}

func (r *Renderer) DeleteSampler(handle metadata.SamplerHandle) error {
	return r.samplers.RemoveWith(handle, r.backend.DestroySampler)
}

func (r *Renderer) CreateRenderPass(desc *metadata.RenderPassDesc) (metadata.RenderPassHandle, error) {
	var nilHandle metadata.RenderPassHandle
	if desc.Name == "" {
		return nilHandle, fmt.Errorf("createRenderPass: empty name")
	}
	if desc.ColorFormats[0] == metadata.FormatInvalid && desc.DepthStencilFormat == metadata.FormatInvalid {
		return nilHandle, fmt.Errorf("createRenderPass %q: no attachments declared", desc.Name)
	}

	rp, handle := r.renderPasses.Add()
	rp.Name = desc.Name
	rp.Desc = *desc

	if err := r.backend.CreateRenderPass(rp); err != nil {
		r.renderPasses.Remove(handle)
		return nilHandle, fmt.Errorf("createRenderPass %q: %w", desc.Name, err)
	}
	return handle, nil
}

func (r *Renderer) DeleteRenderPass(handle metadata.RenderPassHandle) error {
	return r.renderPasses.RemoveWith(handle, r.backend.DestroyRenderPass)
}

// CreateFramebuffer binds render targets to a render pass's attachment
// slots. Every attachment must match the pass's declared format and all
// attachments must share one extent.
func (r *Renderer) CreateFramebuffer(desc *metadata.FramebufferDesc) (metadata.FramebufferHandle, error) {
	var nilHandle metadata.FramebufferHandle
	if desc.Name == "" {
		return nilHandle, fmt.Errorf("createFramebuffer: empty name")
	}

	rp, err := r.renderPasses.Get(desc.RenderPass)
	if err != nil {
		return nilHandle, fmt.Errorf("createFramebuffer %q: render pass: %w", desc.Name, err)
	}

	var width, height uint32
	colors := make([]*metadata.RenderTarget, metadata.MaxColorRenderTargets)
	for i, colorHandle := range desc.Colors {
		declared := rp.Desc.ColorFormats[i]
		if colorHandle.IsNil() {
			if declared != metadata.FormatInvalid {
				return nilHandle, fmt.Errorf("createFramebuffer %q: render pass %q declares color attachment %d but none was given", desc.Name, rp.Name, i)
			}
			continue
		}
		rt, err := r.renderTargets.Get(colorHandle)
		if err != nil {
			return nilHandle, fmt.Errorf("createFramebuffer %q: color attachment %d: %w", desc.Name, i, err)
		}
		if rt.Format != declared {
			return nilHandle, fmt.Errorf("createFramebuffer %q: color attachment %d is %s, render pass %q declares %s", desc.Name, i, rt.Format, rp.Name, declared)
		}
		if width == 0 {
			width, height = rt.Width, rt.Height
		} else if rt.Width != width || rt.Height != height {
			return nilHandle, fmt.Errorf("createFramebuffer %q: attachment %q is %dx%d, want %dx%d", desc.Name, rt.Name, rt.Width, rt.Height, width, height)
		}
		colors[i] = rt
	}

	var depthStencil *metadata.RenderTarget
	if rp.Desc.DepthStencilFormat != metadata.FormatInvalid {
		if desc.DepthStencil.IsNil() {
			return nilHandle, fmt.Errorf("createFramebuffer %q: render pass %q declares a depth attachment but none was given", desc.Name, rp.Name)
		}
		rt, err := r.renderTargets.Get(desc.DepthStencil)
		if err != nil {
			return nilHandle, fmt.Errorf("createFramebuffer %q: depth attachment: %w", desc.Name, err)
		}
		if rt.Format != rp.Desc.DepthStencilFormat {
			return nilHandle, fmt.Errorf("createFramebuffer %q: depth attachment is %s, render pass %q declares %s", desc.Name, rt.Format, rp.Name, rp.Desc.DepthStencilFormat)
		}
		if width == 0 {
			width, height = rt.Width, rt.Height
		} else if rt.Width != width || rt.Height != height {
			return nilHandle, fmt.Errorf("createFramebuffer %q: depth attachment %q is %dx%d, want %dx%d", desc.Name, rt.Name, rt.Width, rt.Height, width, height)
		}
		depthStencil = rt
	} else if !desc.DepthStencil.IsNil() {
		return nilHandle, fmt.Errorf("createFramebuffer %q: depth attachment given but render pass %q declares none", desc.Name, rp.Name)
	}

	if width == 0 {
		return nilHandle, fmt.Errorf("createFramebuffer %q: no attachments", desc.Name)
	}

	fb, handle := r.framebuffers.Add()
	fb.Name = desc.Name
	fb.Width = width
	fb.Height = height
	fb.RenderPass = desc.RenderPass
	fb.Colors = desc.Colors
	fb.DepthStencil = desc.DepthStencil

	if err := r.backend.CreateFramebuffer(fb, rp, colors, depthStencil); err != nil {
		r.framebuffers.Remove(handle)
		return nilHandle, fmt.Errorf("createFramebuffer %q: %w", desc.Name, err)
	}
	return handle, nil
}

func (r *Renderer) DeleteFramebuffer(handle metadata.FramebufferHandle) error {
	return r.framebuffers.RemoveWith(handle, r.backend.DestroyFramebuffer)
}

// CreateDescriptorSetLayout consumes layout entries up to a DescriptorTypeEnd
// sentinel.
func (r *Renderer) CreateDescriptorSetLayout(layouts []metadata.DescriptorLayout) (metadata.DSLayoutHandle, error) {
	var nilHandle metadata.DSLayoutHandle

	var descriptors []metadata.DescriptorLayout
	terminated := false
	for _, l := range layouts {
		if l.Type == metadata.DescriptorTypeEnd {
			terminated = true
			break
		}
		descriptors = append(descriptors, l)
	}
	if !terminated {
		return nilHandle, fmt.Errorf("createDescriptorSetLayout: missing End sentinel")
	}
	for i, d := range descriptors {
		for _, prev := range descriptors[:i] {
			if prev.Binding == d.Binding {
				return nilHandle, fmt.Errorf("createDescriptorSetLayout: duplicate binding %d", d.Binding)
			}
		}
	}

	layout, handle := r.dsLayouts.Add()
	layout.Descriptors = descriptors

	if err := r.backend.CreateDescriptorSetLayout(layout); err != nil {
		r.dsLayouts.Remove(handle)
		return nilHandle, fmt.Errorf("createDescriptorSetLayout: %w", err)
	}
	return handle, nil
}

func (r *Renderer) DeleteDescriptorSetLayout(handle metadata.DSLayoutHandle) error {
	return r.dsLayouts.RemoveWith(handle, r.backend.DestroyDescriptorSetLayout)
}

// CreateVertexShader compiles (or loads from cache) the named vertex shader
// variant and uploads it to the backend.
func (r *Renderer) CreateVertexShader(name string, macros *shaders.Macros) (metadata.VertexShaderHandle, error) {
	var nilHandle metadata.VertexShaderHandle
	if name == "" {
		return nilHandle, fmt.Errorf("createVertexShader: empty name")
	}

	binary, err := r.system.Compile(name, macros, metadata.ShaderKindVertex)
	if err != nil {
		return nilHandle, err
	}

	shader, handle := r.vertexShaders.Add()
	shader.Name = name
	shader.Resources = binary.Resources

	if err := r.backend.CreateVertexShader(shader, binary.Words); err != nil {
		r.vertexShaders.Remove(handle)
		return nilHandle, fmt.Errorf("createVertexShader %q: %w", name, err)
	}
	return handle, nil
}

func (r *Renderer) DeleteVertexShader(handle metadata.VertexShaderHandle) error {
	return r.vertexShaders.RemoveWith(handle, r.backend.DestroyVertexShader)
}

// CreateFragmentShader compiles (or loads from cache) the named fragment
// shader variant and uploads it to the backend.
func (r *Renderer) CreateFragmentShader(name string, macros *shaders.Macros) (metadata.FragmentShaderHandle, error) {
	var nilHandle metadata.FragmentShaderHandle
	if name == "" {
		return nilHandle, fmt.Errorf("createFragmentShader: empty name")
	}

	binary, err := r.system.Compile(name, macros, metadata.ShaderKindFragment)
	if err != nil {
		return nilHandle, err
	}

	shader, handle := r.fragmentShaders.Add()
	shader.Name = name
	shader.Resources = binary.Resources

	if err := r.backend.CreateFragmentShader(shader, binary.Words); err != nil {
		r.fragmentShaders.Remove(handle)
		return nilHandle, fmt.Errorf("createFragmentShader %q: %w", name, err)
	}
	return handle, nil
}

func (r *Renderer) DeleteFragmentShader(handle metadata.FragmentShaderHandle) error {
	return r.fragmentShaders.RemoveWith(handle, r.backend.DestroyFragmentShader)
}

// CreatePipeline builds a pipeline from compiled shaders, vertex layout and
// fixed-function state, scoped to one render pass. Shader-reflected resource
// bindings are cross-checked against the declared descriptor set layouts;
// mismatches are logged as configuration errors but do not fail creation, so
// shader iteration stays cheap.
func (r *Renderer) CreatePipeline(desc *metadata.PipelineDesc) (metadata.PipelineHandle, error) {
	var nilHandle metadata.PipelineHandle
	if desc.Name == "" {
		return nilHandle, fmt.Errorf("createPipeline: empty name")
	}

	vs, err := r.vertexShaders.Get(desc.VertexShader)
	if err != nil {
		return nilHandle, fmt.Errorf("createPipeline %q: vertex shader: %w", desc.Name, err)
	}
	fs, err := r.fragmentShaders.Get(desc.FragmentShader)
	if err != nil {
		return nilHandle, fmt.Errorf("createPipeline %q: fragment shader: %w", desc.Name, err)
	}
	rp, err := r.renderPasses.Get(desc.RenderPass)
	if err != nil {
		return nilHandle, fmt.Errorf("createPipeline %q: render pass: %w", desc.Name, err)
	}

	layouts := make([]*metadata.DescriptorSetLayout, metadata.MaxDescriptorSets)
	for i, layoutHandle := range desc.DescriptorSetLayouts {
		if layoutHandle.IsNil() {
			continue
		}
		layout, err := r.dsLayouts.Get(layoutHandle)
		if err != nil {
			return nilHandle, fmt.Errorf("createPipeline %q: descriptor set layout %d: %w", desc.Name, i, err)
		}
		layouts[i] = layout
	}

	r.checkShaderResources(desc.Name, vs.Name, vs.Resources, layouts)
	r.checkShaderResources(desc.Name, fs.Name, fs.Resources, layouts)

	pipeline, handle := r.pipelines.Add()
	pipeline.Name = desc.Name
	pipeline.Desc = *desc

	if err := r.backend.CreatePipeline(pipeline, vs, fs, rp, layouts); err != nil {
		r.pipelines.Remove(handle)
		return nilHandle, fmt.Errorf("createPipeline %q: %w", desc.Name, err)
	}
	return handle, nil
}

// checkShaderResources validates every binding a shader declares against the
// pipeline's descriptor set layouts.
func (r *Renderer) checkShaderResources(pipelineName, shaderName string, resources []metadata.ShaderResource, layouts []*metadata.DescriptorSetLayout) {
	for _, res := range resources {
		if res.Set >= metadata.MaxDescriptorSets || layouts[res.Set] == nil {
			core.LogError("pipeline %q: shader %q uses set %d which has no layout", pipelineName, shaderName, res.Set)
			continue
		}

		found := false
		for _, decl := range layouts[res.Set].Descriptors {
			if decl.Binding != res.Binding {
				continue
			}
			found = true
			if !descriptorTypesCompatible(decl.Type, res.Type) {
				core.LogError("pipeline %q: shader %q expects %s at set %d binding %d, layout declares %s", pipelineName, shaderName, res.Type, res.Set, res.Binding, decl.Type)
			}
			break
		}
		if !found {
			core.LogError("pipeline %q: shader %q uses set %d binding %d which the layout does not declare", pipelineName, shaderName, res.Set, res.Binding)
		}
	}
}

// descriptorTypesCompatible reports whether a shader-side descriptor type is
// satisfiable by a layout declaration. A combined image sampler covers a
// shader that only reads the image.
func descriptorTypesCompatible(declared, reflected metadata.DescriptorType) bool {
	if declared == reflected {
		return true
	}
	return declared == metadata.DescriptorTypeCombinedSampler && reflected == metadata.DescriptorTypeTexture
}

func (r *Renderer) DeletePipeline(handle metadata.PipelineHandle) error {
	return r.pipelines.RemoveWith(handle, r.backend.DestroyPipeline)
}
