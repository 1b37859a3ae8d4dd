package testbed

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
	"github.com/spaghettifunk/prisma/engine/renderer/shaders"
)

// Demo drives a two-pass frame: a rotating triangle rendered into an
// off-screen target, then a full-screen post pass sampling it with a tint
// applied, blitted to the swapchain at present.
type Demo struct {
	renderer *renderer.Renderer

	width  uint32
	height uint32

	scenePass metadata.RenderPassHandle
	postPass  metadata.RenderPassHandle

	sceneRT metadata.RenderTargetHandle
	finalRT metadata.RenderTargetHandle
	sceneFB metadata.FramebufferHandle
	finalFB metadata.FramebufferHandle

	sceneLayout metadata.DSLayoutHandle
	postLayout  metadata.DSLayoutHandle

	scenePipeline metadata.PipelineHandle
	postPipeline  metadata.PipelineHandle

	vertexBuf metadata.BufferHandle
	indexBuf  metadata.BufferHandle
	sampler   metadata.SamplerHandle

	start time.Time
}

func NewDemo(r *renderer.Renderer) *Demo {
	return &Demo{
		renderer: r,
		start:    time.Now(),
	}
}

// Setup creates every static resource. width/height is the initial drawable
// size; render targets follow it on resize.
func (d *Demo) Setup(width, height uint32) error {
	r := d.renderer

	scenePass, err := r.CreateRenderPass(&metadata.RenderPassDesc{
		Name:             "scene",
		ColorFormats:     [metadata.MaxColorRenderTargets]metadata.Format{metadata.FormatRGBA8},
		ColorFinalLayout: metadata.LayoutShaderRead,
		ClearColorValue:  [4]float32{0.05, 0.05, 0.08, 1.0},
	})
	if err != nil {
		return err
	}
	d.scenePass = scenePass

	postPass, err := r.CreateRenderPass(&metadata.RenderPassDesc{
		Name:             "post",
		ColorFormats:     [metadata.MaxColorRenderTargets]metadata.Format{metadata.FormatRGBA8},
		ColorFinalLayout: metadata.LayoutColorAttachment,
	})
	if err != nil {
		return err
	}
	d.postPass = postPass

	sceneLayout, err := r.CreateDescriptorSetLayout([]metadata.DescriptorLayout{
		{Type: metadata.DescriptorTypeUniformBuffer, Binding: 0},
		{Type: metadata.DescriptorTypeEnd},
	})
	if err != nil {
		return err
	}
	d.sceneLayout = sceneLayout

	postLayout, err := r.CreateDescriptorSetLayout([]metadata.DescriptorLayout{
		{Type: metadata.DescriptorTypeUniformBuffer, Binding: 0},
		{Type: metadata.DescriptorTypeCombinedSampler, Binding: 1},
		{Type: metadata.DescriptorTypeEnd},
	})
	if err != nil {
		return err
	}
	d.postLayout = postLayout

	sampler, err := r.CreateSampler(&metadata.SamplerDesc{
		Name:     "linear_clamp",
		Min:      metadata.FilterModeLinear,
		Mag:      metadata.FilterModeLinear,
		WrapMode: metadata.WrapModeClamp,
	})
	if err != nil {
		return err
	}
	d.sampler = sampler

	sceneVS, err := r.CreateVertexShader("scene", nil)
	if err != nil {
		return err
	}
	sceneFS, err := r.CreateFragmentShader("scene", nil)
	if err != nil {
		return err
	}
	postVS, err := r.CreateVertexShader("post", nil)
	if err != nil {
		return err
	}
	postFS, err := r.CreateFragmentShader("post", shaders.NewMacros().Set("VIGNETTE", "1"))
	if err != nil {
		return err
	}

	scenePipelineDesc := &metadata.PipelineDesc{
		Name:             "scene",
		VertexShader:     sceneVS,
		FragmentShader:   sceneFS,
		RenderPass:       scenePass,
		VertexAttribMask: 0b11,
	}
	scenePipelineDesc.VertexAttribs[0] = metadata.VertexAttrib{Format: metadata.VtxFormatFloat, Count: 2, Offset: 0, BufBinding: 0}
	scenePipelineDesc.VertexAttribs[1] = metadata.VertexAttrib{Format: metadata.VtxFormatUNorm8, Count: 4, Offset: 8, BufBinding: 0}
	scenePipelineDesc.VertexBuffers[0] = metadata.VertexBufferBinding{Stride: 12}
	scenePipelineDesc.DescriptorSetLayouts[0] = sceneLayout

	scenePipeline, err := r.CreatePipeline(scenePipelineDesc)
	if err != nil {
		return err
	}
	d.scenePipeline = scenePipeline

	postPipelineDesc := &metadata.PipelineDesc{
		Name:           "post",
		VertexShader:   postVS,
		FragmentShader: postFS,
		RenderPass:     postPass,
		ScissorTest:    true,
	}
	postPipelineDesc.DescriptorSetLayouts[0] = postLayout

	postPipeline, err := r.CreatePipeline(postPipelineDesc)
	if err != nil {
		return err
	}
	d.postPipeline = postPipeline

	d.vertexBuf, err = r.CreateBuffer(metadata.BufferTypeVertex, triangleVertices())
	if err != nil {
		return err
	}
	d.indexBuf, err = r.CreateBuffer(metadata.BufferTypeIndex, triangleIndices())
	if err != nil {
		return err
	}

	return d.createTargets(width, height)
}

func (d *Demo) createTargets(width, height uint32) error {
	r := d.renderer

	sceneRT, err := r.CreateRenderTarget(&metadata.RenderTargetDesc{
		Name: "scene_color", Width: width, Height: height, Format: metadata.FormatRGBA8,
	})
	if err != nil {
		return err
	}
	d.sceneRT = sceneRT

	finalRT, err := r.CreateRenderTarget(&metadata.RenderTargetDesc{
		Name: "final_color", Width: width, Height: height, Format: metadata.FormatRGBA8,
	})
	if err != nil {
		return err
	}
	d.finalRT = finalRT

	sceneFB, err := r.CreateFramebuffer(&metadata.FramebufferDesc{
		Name:       "scene",
		RenderPass: d.scenePass,
		Colors:     [metadata.MaxColorRenderTargets]metadata.RenderTargetHandle{sceneRT},
	})
	if err != nil {
		return err
	}
	d.sceneFB = sceneFB

	finalFB, err := r.CreateFramebuffer(&metadata.FramebufferDesc{
		Name:       "final",
		RenderPass: d.postPass,
		Colors:     [metadata.MaxColorRenderTargets]metadata.RenderTargetHandle{finalRT},
	})
	if err != nil {
		return err
	}
	d.finalFB = finalFB

	d.width = width
	d.height = height
	return nil
}

func (d *Demo) destroyTargets() {
	r := d.renderer
	if err := r.DeleteFramebuffer(d.sceneFB); err != nil {
		core.LogWarn("delete scene framebuffer: %v", err)
	}
	if err := r.DeleteFramebuffer(d.finalFB); err != nil {
		core.LogWarn("delete final framebuffer: %v", err)
	}
	if err := r.DeleteRenderTarget(d.sceneRT); err != nil {
		core.LogWarn("delete scene target: %v", err)
	}
	if err := r.DeleteRenderTarget(d.finalRT); err != nil {
		core.LogWarn("delete final target: %v", err)
	}
}

// Frame renders and presents one frame. A booting swapchain is not an
// error, the frame is simply skipped.
func (d *Demo) Frame() error {
	r := d.renderer

	// Follow the drawable size; stale targets are rebuilt between frames.
	if w, h := r.DrawableSize(); w != d.width || h != d.height {
		if w == 0 || h == 0 {
			return nil
		}
		core.LogInfo("drawable resized to %dx%d, rebuilding targets", w, h)
		d.destroyTargets()
		if err := d.createTargets(w, h); err != nil {
			return err
		}
	}

	if err := r.BeginFrame(); err != nil {
		return err
	}

	elapsed := float32(time.Since(d.start).Seconds())

	sceneUBO, err := r.CreateEphemeralBuffer(metadata.BufferTypeUniform, packFloats(
		float32(math.Cos(float64(elapsed))),
		float32(math.Sin(float64(elapsed))),
		float32(d.height)/float32(d.width),
		0,
	))
	if err != nil {
		return err
	}

	// Tint drifts over time so the post pass visibly does something.
	postUBO, err := r.CreateEphemeralBuffer(metadata.BufferTypeUniform, packFloats(
		1.0,
		0.8+0.2*float32(math.Sin(float64(elapsed)*0.7)),
		0.8+0.2*float32(math.Cos(float64(elapsed)*0.9)),
		1.0,
	))
	if err != nil {
		return err
	}

	r.BeginRenderPass(d.scenePass, d.sceneFB)
	r.BindPipeline(d.scenePipeline)
	r.BindVertexBuffer(0, d.vertexBuf)
	r.BindIndexBuffer(d.indexBuf, true)
	r.BindDescriptorSet(0, d.sceneLayout, metadata.NewDescriptorSet().
		UniformBuffer(sceneUBO))
	r.DrawIndexedInstanced(3, 1)
	r.EndRenderPass()

	r.BeginRenderPass(d.postPass, d.finalFB)
	r.BindPipeline(d.postPipeline)
	r.SetScissorRect(0, 0, d.width, d.height)
	r.BindDescriptorSet(0, d.postLayout, metadata.NewDescriptorSet().
		UniformBuffer(postUBO).
		CombinedSampler(r.GetRenderTargetTexture(d.sceneRT), d.sampler))
	r.Draw(0, 3)
	r.EndRenderPass()

	r.LayoutTransition(d.finalRT, metadata.LayoutColorAttachment, metadata.LayoutTransferSrc)
	return r.PresentFrame(d.finalRT)
}

// triangleVertices packs position (2 floats) + color (4 unorm bytes) per
// vertex, 12 byte stride.
func triangleVertices() []byte {
	type vertex struct {
		x, y       float32
		r, g, b, a uint8
	}
	verts := []vertex{
		{0.0, 0.6, 255, 64, 64, 255},
		{-0.6, -0.6, 64, 255, 64, 255},
		{0.6, -0.6, 64, 64, 255, 255},
	}

	buf := make([]byte, 0, len(verts)*12)
	for _, v := range verts {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v.x))
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v.y))
		buf = append(buf, v.r, v.g, v.b, v.a)
	}
	return buf
}

func triangleIndices() []byte {
	buf := make([]byte, 0, 6)
	for _, i := range []uint16{0, 1, 2} {
		buf = binary.LittleEndian.AppendUint16(buf, i)
	}
	return buf
}

func packFloats(vals ...float32) []byte {
	buf := make([]byte, 0, len(vals)*4)
	for _, v := range vals {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}
