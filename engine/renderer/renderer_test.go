package renderer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/config"
	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
	"github.com/spaghettifunk/prisma/engine/renderer/shaders"
)

// fakeBackend records every call so tests can assert on the command stream
// without a GPU.
type fakeBackend struct {
	calls []string

	beginFrameErr error
	ringWrites    []uint32
	ringSize      uint32
}

func (f *fakeBackend) record(name string) { f.calls = append(f.calls, name) }

func (f *fakeBackend) Shutdown() error                 { f.record("Shutdown"); return nil }
func (f *fakeBackend) DrawableSize() (uint32, uint32)  { return 1280, 720 }
func (f *fakeBackend) RecreateRingBuffer(size uint32) error {
	f.record("RecreateRingBuffer")
	f.ringSize = size
	return nil
}
func (f *fakeBackend) RingWrite(offset uint32, data []byte) {
	f.record("RingWrite")
	f.ringWrites = append(f.ringWrites, offset)
}

func (f *fakeBackend) CreateBuffer(b *metadata.Buffer, contents []byte) error {
	f.record("CreateBuffer")
	return nil
}
func (f *fakeBackend) DestroyBuffer(b *metadata.Buffer) { f.record("DestroyBuffer") }
func (f *fakeBackend) CreateTexture(t *metadata.Texture, desc *metadata.TextureDesc) error {
	f.record("CreateTexture")
	return nil
}
func (f *fakeBackend) DestroyTexture(t *metadata.Texture) { f.record("DestroyTexture") }
func (f *fakeBackend) CreateRenderTarget(rt *metadata.RenderTarget, t *metadata.Texture) error {
	f.record("CreateRenderTarget")
	return nil
}
func (f *fakeBackend) DestroyRenderTarget(rt *metadata.RenderTarget) { f.record("DestroyRenderTarget") }
func (f *fakeBackend) CreateRenderPass(rp *metadata.RenderPass) error {
	f.record("CreateRenderPass")
	return nil
}
func (f *fakeBackend) DestroyRenderPass(rp *metadata.RenderPass) { f.record("DestroyRenderPass") }
func (f *fakeBackend) CreateFramebuffer(fb *metadata.Framebuffer, rp *metadata.RenderPass, colors []*metadata.RenderTarget, depthStencil *metadata.RenderTarget) error {
	f.record("CreateFramebuffer")
	return nil
}
func (f *fakeBackend) DestroyFramebuffer(fb *metadata.Framebuffer) { f.record("DestroyFramebuffer") }
func (f *fakeBackend) CreateSampler(s *metadata.Sampler, desc *metadata.SamplerDesc) error {
	f.record("CreateSampler")
	return nil
}
func (f *fakeBackend) DestroySampler(s *metadata.Sampler) { f.record("DestroySampler") }
func (f *fakeBackend) CreateDescriptorSetLayout(l *metadata.DescriptorSetLayout) error {
	f.record("CreateDescriptorSetLayout")
	return nil
}
func (f *fakeBackend) DestroyDescriptorSetLayout(l *metadata.DescriptorSetLayout) {
	f.record("DestroyDescriptorSetLayout")
}
func (f *fakeBackend) CreateVertexShader(s *metadata.VertexShader, words []uint32) error {
	f.record("CreateVertexShader")
	return nil
}
func (f *fakeBackend) DestroyVertexShader(s *metadata.VertexShader) { f.record("DestroyVertexShader") }
func (f *fakeBackend) CreateFragmentShader(s *metadata.FragmentShader, words []uint32) error {
	f.record("CreateFragmentShader")
	return nil
}
func (f *fakeBackend) DestroyFragmentShader(s *metadata.FragmentShader) {
	f.record("DestroyFragmentShader")
}
func (f *fakeBackend) CreatePipeline(p *metadata.Pipeline, vs *metadata.VertexShader, fs *metadata.FragmentShader, rp *metadata.RenderPass, layouts []*metadata.DescriptorSetLayout) error {
	f.record("CreatePipeline")
	return nil
}
func (f *fakeBackend) DestroyPipeline(p *metadata.Pipeline) { f.record("DestroyPipeline") }

func (f *fakeBackend) BeginFrame() error {
	f.record("BeginFrame")
	return f.beginFrameErr
}
func (f *fakeBackend) BeginRenderPass(rp *metadata.RenderPass, fb *metadata.Framebuffer) {
	f.record("BeginRenderPass")
}
func (f *fakeBackend) EndRenderPass()                         { f.record("EndRenderPass") }
func (f *fakeBackend) BindPipeline(p *metadata.Pipeline)      { f.record("BindPipeline") }
func (f *fakeBackend) SetViewport(x, y int32, w, h uint32)    { f.record("SetViewport") }
func (f *fakeBackend) SetScissor(x, y int32, w, h uint32)     { f.record("SetScissor") }
func (f *fakeBackend) BindVertexBuffer(binding uint32, b *metadata.Buffer) {
	f.record("BindVertexBuffer")
}
func (f *fakeBackend) BindIndexBuffer(b *metadata.Buffer, index16Bit bool) {
	f.record("BindIndexBuffer")
}
func (f *fakeBackend) BindDescriptorSet(index uint32, l *metadata.DescriptorSetLayout, descriptors []metadata.BoundDescriptor) {
	f.record("BindDescriptorSet")
}
func (f *fakeBackend) Draw(firstVertex, vertexCount uint32) { f.record("Draw") }
func (f *fakeBackend) DrawIndexed(vertexCount, firstIndex uint32) {
	f.record("DrawIndexed")
}
func (f *fakeBackend) DrawIndexedInstanced(vertexCount, instanceCount uint32) {
	f.record("DrawIndexedInstanced")
}
func (f *fakeBackend) LayoutTransition(rt *metadata.RenderTarget, from, to metadata.Layout) {
	f.record("LayoutTransition")
}
func (f *fakeBackend) PresentFrame(rt *metadata.RenderTarget) error {
	f.record("PresentFrame")
	return nil
}

// stubCompiler hands back a fixed word stream; stubReflector declares the
// resources the test wires up.
type stubCompiler struct{}

func (stubCompiler) Compile(name string, source []byte, kind metadata.ShaderKind, macros []shaders.Macro, resolve shaders.IncludeResolver) ([]uint32, error) {
	return []uint32{0x07230203, 1, 2, 3}, nil
}

type stubReflector struct {
	resources []metadata.ShaderResource
}

func (s stubReflector) Reflect(words []uint32) ([]metadata.ShaderResource, error) {
	return s.resources, nil
}

func newTestRenderer(t *testing.T, backend *fakeBackend) *Renderer {
	return newTestRendererWithReflection(t, backend, nil)
}

func newTestRendererWithReflection(t *testing.T, backend *fakeBackend, resources []metadata.ShaderResource) *Renderer {
	t.Helper()

	srcDir := t.TempDir()
	for _, name := range []string{"tri.vert", "tri.frag"} {
		require.NoError(t, os.WriteFile(filepath.Join(srcDir, name), []byte("void main() {}"), 0o644))
	}

	system, err := shaders.NewSystem(config.ShaderConfig{
		CacheDir:  t.TempDir(),
		SourceDir: srcDir,
		SkipCache: true,
	}, stubCompiler{}, nil, stubReflector{resources: resources})
	require.NoError(t, err)

	r, err := New(config.RendererConfig{
		EphemeralRingBufSize: 1 << 16,
		FramesInFlight:       2,
	}, backend, system)
	require.NoError(t, err)
	return r
}

// sceneSetup is the resource set most frame tests need: one color target
// with its pass, framebuffer, pipeline and buffers.
type sceneSetup struct {
	rt       metadata.RenderTargetHandle
	pass     metadata.RenderPassHandle
	fb       metadata.FramebufferHandle
	layout   metadata.DSLayoutHandle
	pipeline metadata.PipelineHandle
	vertex   metadata.BufferHandle
	index    metadata.BufferHandle
	sampler  metadata.SamplerHandle
}

func buildScene(t *testing.T, r *Renderer, scissor bool) sceneSetup {
	t.Helper()
	var s sceneSetup
	var err error

	s.rt, err = r.CreateRenderTarget(&metadata.RenderTargetDesc{
		Name: "color", Width: 256, Height: 256, Format: metadata.FormatRGBA8,
	})
	require.NoError(t, err)

	s.pass, err = r.CreateRenderPass(&metadata.RenderPassDesc{
		Name:             "main",
		ColorFormats:     [metadata.MaxColorRenderTargets]metadata.Format{metadata.FormatRGBA8},
		ColorFinalLayout: metadata.LayoutColorAttachment,
	})
	require.NoError(t, err)

	s.fb, err = r.CreateFramebuffer(&metadata.FramebufferDesc{
		Name:       "main",
		RenderPass: s.pass,
		Colors:     [metadata.MaxColorRenderTargets]metadata.RenderTargetHandle{s.rt},
	})
	require.NoError(t, err)

	s.layout, err = r.CreateDescriptorSetLayout([]metadata.DescriptorLayout{
		{Type: metadata.DescriptorTypeUniformBuffer, Binding: 0},
		{Type: metadata.DescriptorTypeEnd},
	})
	require.NoError(t, err)

	s.sampler, err = r.CreateSampler(&metadata.SamplerDesc{Name: "nearest"})
	require.NoError(t, err)

	vs, err := r.CreateVertexShader("tri", nil)
	require.NoError(t, err)
	fs, err := r.CreateFragmentShader("tri", nil)
	require.NoError(t, err)

	desc := &metadata.PipelineDesc{
		Name:           "main",
		VertexShader:   vs,
		FragmentShader: fs,
		RenderPass:     s.pass,
		ScissorTest:    scissor,
	}
	desc.DescriptorSetLayouts[0] = s.layout
	s.pipeline, err = r.CreatePipeline(desc)
	require.NoError(t, err)

	s.vertex, err = r.CreateBuffer(metadata.BufferTypeVertex, make([]byte, 36))
	require.NoError(t, err)
	s.index, err = r.CreateBuffer(metadata.BufferTypeIndex, make([]byte, 6))
	require.NoError(t, err)
	return s
}

func TestFullFrame(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend)
	s := buildScene(t, r, false)

	ubo, err := r.CreateEphemeralBuffer(metadata.BufferTypeUniform, make([]byte, 16))
	require.NoError(t, err)

	require.NoError(t, r.BeginFrame())
	r.BeginRenderPass(s.pass, s.fb)
	r.BindPipeline(s.pipeline)
	r.BindVertexBuffer(0, s.vertex)
	r.BindIndexBuffer(s.index, true)
	r.BindDescriptorSet(0, s.layout, metadata.NewDescriptorSet().UniformBuffer(ubo))
	r.DrawIndexedInstanced(3, 1)
	r.EndRenderPass()
	r.LayoutTransition(s.rt, metadata.LayoutColorAttachment, metadata.LayoutTransferSrc)
	require.NoError(t, r.PresentFrame(s.rt))

	expected := []string{
		"BeginFrame", "BeginRenderPass", "BindPipeline", "BindVertexBuffer",
		"BindIndexBuffer", "BindDescriptorSet", "DrawIndexedInstanced",
		"EndRenderPass", "LayoutTransition", "PresentFrame",
	}
	assert.Equal(t, expected, backend.calls[len(backend.calls)-len(expected):])
}

func TestEndRenderPassRecordsFinalLayout(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend)
	s := buildScene(t, r, false)

	require.NoError(t, r.BeginFrame())
	r.BeginRenderPass(s.pass, s.fb)
	r.BindPipeline(s.pipeline)
	r.Draw(0, 3)
	r.EndRenderPass()

	rt := r.renderTargets.MustGet(s.rt)
	assert.Equal(t, metadata.LayoutColorAttachment, rt.CurrentLayout)
}

func TestPresentRequiresTransferSrcLayout(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend)
	s := buildScene(t, r, false)

	require.NoError(t, r.BeginFrame())
	r.BeginRenderPass(s.pass, s.fb)
	r.BindPipeline(s.pipeline)
	r.Draw(0, 3)
	r.EndRenderPass()

	// the pass left the target as a color attachment, presenting without the
	// transition is a driver bug
	assert.Panics(t, func() {
		_ = r.PresentFrame(s.rt)
	})
}

func TestLayoutTransitionChecksCurrentLayout(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend)
	s := buildScene(t, r, false)

	require.NoError(t, r.BeginFrame())
	assert.Panics(t, func() {
		r.LayoutTransition(s.rt, metadata.LayoutShaderRead, metadata.LayoutTransferSrc)
	})
}

func TestBindPipelineTwiceWithoutDraw(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend)
	s := buildScene(t, r, false)

	require.NoError(t, r.BeginFrame())
	r.BeginRenderPass(s.pass, s.fb)
	r.BindPipeline(s.pipeline)
	assert.Panics(t, func() {
		r.BindPipeline(s.pipeline)
	})
}

func TestScissorRectOnNonScissorPipeline(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend)
	s := buildScene(t, r, false)

	require.NoError(t, r.BeginFrame())
	r.BeginRenderPass(s.pass, s.fb)
	r.BindPipeline(s.pipeline)
	assert.Panics(t, func() {
		r.SetScissorRect(0, 0, 64, 64)
	})
}

func TestScissorPipelineRequiresScissorBeforeDraw(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend)
	s := buildScene(t, r, true)

	require.NoError(t, r.BeginFrame())
	r.BeginRenderPass(s.pass, s.fb)
	r.BindPipeline(s.pipeline)
	assert.Panics(t, func() {
		r.Draw(0, 3)
	})

	r.SetScissorRect(0, 0, 256, 256)
	assert.NotPanics(t, func() {
		r.Draw(0, 3)
	})
}

func TestBindDescriptorSetLayoutMismatch(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend)
	s := buildScene(t, r, false)

	other, err := r.CreateDescriptorSetLayout([]metadata.DescriptorLayout{
		{Type: metadata.DescriptorTypeStorageBuffer, Binding: 0},
		{Type: metadata.DescriptorTypeEnd},
	})
	require.NoError(t, err)

	ubo, err := r.CreateEphemeralBuffer(metadata.BufferTypeUniform, make([]byte, 16))
	require.NoError(t, err)

	require.NoError(t, r.BeginFrame())
	r.BeginRenderPass(s.pass, s.fb)
	r.BindPipeline(s.pipeline)
	assert.Panics(t, func() {
		r.BindDescriptorSet(0, other, metadata.NewDescriptorSet().UniformBuffer(ubo))
	})
}

func TestBindDescriptorSetEntryCountMismatch(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend)
	s := buildScene(t, r, false)

	require.NoError(t, r.BeginFrame())
	r.BeginRenderPass(s.pass, s.fb)
	r.BindPipeline(s.pipeline)
	assert.Panics(t, func() {
		r.BindDescriptorSet(0, s.layout, metadata.NewDescriptorSet())
	})
}

func TestBeginRenderPassChecksFramebufferPass(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend)
	s := buildScene(t, r, false)

	otherPass, err := r.CreateRenderPass(&metadata.RenderPassDesc{
		Name:             "other",
		ColorFormats:     [metadata.MaxColorRenderTargets]metadata.Format{metadata.FormatRGBA8},
		ColorFinalLayout: metadata.LayoutShaderRead,
	})
	require.NoError(t, err)

	require.NoError(t, r.BeginFrame())
	assert.Panics(t, func() {
		r.BeginRenderPass(otherPass, s.fb)
	})
}

func TestEphemeralBuffersReleasedAtPresent(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend)
	s := buildScene(t, r, false)

	ubo, err := r.CreateEphemeralBuffer(metadata.BufferTypeUniform, make([]byte, 16))
	require.NoError(t, err)

	require.NoError(t, r.BeginFrame())
	r.BeginRenderPass(s.pass, s.fb)
	r.BindPipeline(s.pipeline)
	r.Draw(0, 3)
	r.EndRenderPass()
	r.LayoutTransition(s.rt, metadata.LayoutColorAttachment, metadata.LayoutTransferSrc)
	require.NoError(t, r.PresentFrame(s.rt))

	assert.ErrorIs(t, r.DeleteBuffer(ubo), core.ErrInvalidHandle)
}

func TestEphemeralUniformAlignment(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend)

	_, err := r.CreateEphemeralBuffer(metadata.BufferTypeUniform, make([]byte, 10))
	require.NoError(t, err)
	_, err = r.CreateEphemeralBuffer(metadata.BufferTypeUniform, make([]byte, 10))
	require.NoError(t, err)

	require.Len(t, backend.ringWrites, 2)
	assert.Equal(t, uint32(0), backend.ringWrites[0])
	assert.Equal(t, uint32(256), backend.ringWrites[1])
}

func TestBeginFramePropagatesBooting(t *testing.T) {
	backend := &fakeBackend{beginFrameErr: core.ErrSwapchainBooting}
	r := newTestRenderer(t, backend)

	err := r.BeginFrame()
	assert.ErrorIs(t, err, core.ErrSwapchainBooting)

	// the frame never started, starting one later is fine
	backend.beginFrameErr = nil
	assert.NoError(t, r.BeginFrame())
}

func TestFramebufferFormatMismatch(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend)

	rt, err := r.CreateRenderTarget(&metadata.RenderTargetDesc{
		Name: "color", Width: 256, Height: 256, Format: metadata.FormatRGBA16Float,
	})
	require.NoError(t, err)

	pass, err := r.CreateRenderPass(&metadata.RenderPassDesc{
		Name:             "main",
		ColorFormats:     [metadata.MaxColorRenderTargets]metadata.Format{metadata.FormatRGBA8},
		ColorFinalLayout: metadata.LayoutShaderRead,
	})
	require.NoError(t, err)

	_, err = r.CreateFramebuffer(&metadata.FramebufferDesc{
		Name:       "main",
		RenderPass: pass,
		Colors:     [metadata.MaxColorRenderTargets]metadata.RenderTargetHandle{rt},
	})
	assert.Error(t, err)
}

func TestFramebufferExtentMismatch(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend)

	rt1, err := r.CreateRenderTarget(&metadata.RenderTargetDesc{
		Name: "a", Width: 256, Height: 256, Format: metadata.FormatRGBA8,
	})
	require.NoError(t, err)
	rt2, err := r.CreateRenderTarget(&metadata.RenderTargetDesc{
		Name: "b", Width: 128, Height: 128, Format: metadata.FormatRGBA8,
	})
	require.NoError(t, err)

	pass, err := r.CreateRenderPass(&metadata.RenderPassDesc{
		Name:             "main",
		ColorFormats:     [metadata.MaxColorRenderTargets]metadata.Format{metadata.FormatRGBA8, metadata.FormatRGBA8},
		ColorFinalLayout: metadata.LayoutShaderRead,
	})
	require.NoError(t, err)

	_, err = r.CreateFramebuffer(&metadata.FramebufferDesc{
		Name:       "main",
		RenderPass: pass,
		Colors:     [metadata.MaxColorRenderTargets]metadata.RenderTargetHandle{rt1, rt2},
	})
	assert.Error(t, err)
}

func TestDescriptorSetLayoutValidation(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend)

	_, err := r.CreateDescriptorSetLayout([]metadata.DescriptorLayout{
		{Type: metadata.DescriptorTypeUniformBuffer, Binding: 0},
	})
	assert.Error(t, err, "missing End sentinel")

	_, err = r.CreateDescriptorSetLayout([]metadata.DescriptorLayout{
		{Type: metadata.DescriptorTypeUniformBuffer, Binding: 0},
		{Type: metadata.DescriptorTypeTexture, Binding: 0},
		{Type: metadata.DescriptorTypeEnd},
	})
	assert.Error(t, err, "duplicate binding")
}

func TestCreateBufferValidation(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend)

	_, err := r.CreateBuffer(metadata.BufferTypeInvalid, []byte{1})
	assert.Error(t, err)

	_, err = r.CreateBuffer(metadata.BufferTypeVertex, nil)
	assert.Error(t, err)
}

func TestDeleteRenderTargetReleasesTexture(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend)

	rt, err := r.CreateRenderTarget(&metadata.RenderTargetDesc{
		Name: "color", Width: 64, Height: 64, Format: metadata.FormatRGBA8,
	})
	require.NoError(t, err)

	texture := r.GetRenderTargetTexture(rt)
	require.NoError(t, r.DeleteRenderTarget(rt))

	_, err = r.textures.Get(texture)
	assert.ErrorIs(t, err, core.ErrInvalidHandle)
	assert.Contains(t, backend.calls, "DestroyRenderTarget")
	assert.Contains(t, backend.calls, "DestroyTexture")
}

func TestRenderTargetTextureNotDirectlyDeletable(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend)

	rt, err := r.CreateRenderTarget(&metadata.RenderTargetDesc{
		Name: "color", Width: 64, Height: 64, Format: metadata.FormatRGBA8,
	})
	require.NoError(t, err)

	assert.Error(t, r.DeleteTexture(r.GetRenderTargetTexture(rt)))
}

func TestMemStats(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend)

	buf, err := r.CreateBuffer(metadata.BufferTypeVertex, make([]byte, 100))
	require.NoError(t, err)

	_, err = r.CreateRenderTarget(&metadata.RenderTargetDesc{
		Name: "color", Width: 16, Height: 16, Format: metadata.FormatRGBA8,
	})
	require.NoError(t, err)

	stats := r.GetMemStats()
	assert.Equal(t, uint64(100), stats.BufferBytes)
	assert.Equal(t, uint64(16*16*4), stats.TextureBytes)
	assert.Equal(t, uint32(2), stats.Allocations)

	require.NoError(t, r.DeleteBuffer(buf))
	stats = r.GetMemStats()
	assert.Equal(t, uint64(0), stats.BufferBytes)
	assert.Equal(t, uint32(1), stats.Allocations)
}

func TestPipelineReflectionMismatchIsNotFatal(t *testing.T) {
	backend := &fakeBackend{}
	// shaders claim a binding the layout never declares; creation must still
	// succeed, the mismatch is reported through the log only
	r := newTestRendererWithReflection(t, backend, []metadata.ShaderResource{
		{Set: 0, Binding: 7, Type: metadata.DescriptorTypeTexture},
		{Set: 3, Binding: 0, Type: metadata.DescriptorTypeUniformBuffer},
	})

	s := buildScene(t, r, false)
	assert.False(t, s.pipeline.IsNil())
}

func TestDrawOutsideFrame(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend)

	assert.Panics(t, func() { r.Draw(0, 3) })
	assert.Panics(t, func() { r.EndRenderPass() })
	assert.Panics(t, func() { _ = r.PresentFrame(metadata.RenderTargetHandle{}) })
}
