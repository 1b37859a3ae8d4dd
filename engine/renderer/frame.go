package renderer

import (
	"fmt"

	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

// The frame command protocol is BeginFrame → (BeginRenderPass → BindPipeline
// → binds/draws → EndRenderPass)* → layout transitions → PresentFrame. The
// guards below panic when the protocol is broken: every violation is a bug in
// the driver code, never a runtime condition to recover from.

// BeginFrame starts frame recording. It returns core.ErrSwapchainBooting
// while the backend is rebuilding the swapchain; the caller skips the frame
// and retries.
func (r *Renderer) BeginFrame() error {
	if r.inFrame {
		panic("BeginFrame: already in a frame")
	}

	if err := r.backend.BeginFrame(); err != nil {
		return err
	}

	// the oldest in-flight frame has retired behind the backend's fence wait,
	// its ring allocations are reclaimable now
	if uint32(len(r.frameRingPtrs)) >= r.cfg.FramesInFlight && len(r.frameRingPtrs) > 0 {
		r.ring.markSynced(r.frameRingPtrs[0])
		r.frameRingPtrs = r.frameRingPtrs[1:]
	}

	r.inFrame = true
	r.inRenderPass = false
	r.validPipeline = false
	r.pipelineDrawn = true
	r.scissorSet = false
	r.currentPipeline = nil
	return nil
}

// BeginRenderPass starts recording into fb, clearing its attachments per the
// pass declaration. Any previously bound pipeline is invalidated.
func (r *Renderer) BeginRenderPass(pass metadata.RenderPassHandle, fb metadata.FramebufferHandle) {
	if !r.inFrame {
		panic("BeginRenderPass: no frame in progress")
	}
	if r.inRenderPass {
		panic("BeginRenderPass: render pass already in progress")
	}

	rp := r.renderPasses.MustGet(pass)
	framebuffer := r.framebuffers.MustGet(fb)
	if framebuffer.RenderPass != pass {
		panic(fmt.Sprintf("BeginRenderPass: framebuffer %q belongs to render pass %q, not %q", framebuffer.Name, r.renderPasses.MustGet(framebuffer.RenderPass).Name, rp.Name))
	}

	r.backend.BeginRenderPass(rp, framebuffer)

	r.inRenderPass = true
	r.validPipeline = false
	r.currentPipeline = nil
	r.currentRenderPass = pass
	r.currentFramebuffer = fb
}

// EndRenderPass finishes the active pass and records the pass's declared
// final layouts onto the bound render targets, so the next consumer finds
// the layout bookkeeping already correct.
func (r *Renderer) EndRenderPass() {
	if !r.inRenderPass {
		panic("EndRenderPass: no render pass in progress")
	}

	r.backend.EndRenderPass()

	rp := r.renderPasses.MustGet(r.currentRenderPass)
	fb := r.framebuffers.MustGet(r.currentFramebuffer)
	for _, colorHandle := range fb.Colors {
		if colorHandle.IsNil() {
			continue
		}
		r.renderTargets.MustGet(colorHandle).CurrentLayout = rp.Desc.ColorFinalLayout
	}
	if !fb.DepthStencil.IsNil() {
		r.renderTargets.MustGet(fb.DepthStencil).CurrentLayout = rp.Desc.DepthStencilFinalLayout
	}

	r.inRenderPass = false
	r.validPipeline = false
	r.currentPipeline = nil
}

// BindPipeline makes pipeline current for subsequent binds and draws. The
// pipeline must target the active render pass. Rebinding while the previous
// pipeline never drew is flagged: it means the driver code bound a pipeline
// for nothing.
func (r *Renderer) BindPipeline(pipeline metadata.PipelineHandle) {
	if !r.inRenderPass {
		panic("BindPipeline: no render pass in progress")
	}
	if r.validPipeline && !r.pipelineDrawn {
		panic(fmt.Sprintf("BindPipeline: pipeline %q was bound but never drew", r.currentPipeline.Name))
	}

	p := r.pipelines.MustGet(pipeline)
	if p.Desc.RenderPass != r.currentRenderPass {
		panic(fmt.Sprintf("BindPipeline: pipeline %q targets a different render pass than the active one", p.Name))
	}

	r.backend.BindPipeline(p)

	r.currentPipeline = p
	r.validPipeline = true
	r.pipelineDrawn = false
	r.scissorSet = false
}

func (r *Renderer) SetViewport(x, y int32, width, height uint32) {
	if !r.inFrame {
		panic("SetViewport: no frame in progress")
	}
	r.backend.SetViewport(x, y, width, height)
}

// SetScissorRect sets the scissor rectangle in bottom-left origin
// coordinates. Only legal on a pipeline created with scissor testing
// enabled, which then requires it before every draw.
func (r *Renderer) SetScissorRect(x, y int32, width, height uint32) {
	if !r.validPipeline {
		panic("SetScissorRect: no pipeline bound")
	}
	if !r.currentPipeline.Desc.ScissorTest {
		panic(fmt.Sprintf("SetScissorRect: pipeline %q does not enable scissor testing", r.currentPipeline.Name))
	}

	r.backend.SetScissor(x, y, width, height)
	r.scissorSet = true
}

func (r *Renderer) BindVertexBuffer(binding uint32, buffer metadata.BufferHandle) {
	if !r.validPipeline {
		panic("BindVertexBuffer: no pipeline bound")
	}
	r.backend.BindVertexBuffer(binding, r.buffers.MustGet(buffer))
}

func (r *Renderer) BindIndexBuffer(buffer metadata.BufferHandle, index16Bit bool) {
	if !r.validPipeline {
		panic("BindIndexBuffer: no pipeline bound")
	}
	r.backend.BindIndexBuffer(r.buffers.MustGet(buffer), index16Bit)
}

// BindDescriptorSet binds set against the pipeline's layout at the given set
// index. Entries must match the layout declaration entry for entry; each
// resolved resource is bound at its declared binding slot.
func (r *Renderer) BindDescriptorSet(index uint32, layout metadata.DSLayoutHandle, set *metadata.DescriptorSet) {
	if !r.validPipeline {
		panic("BindDescriptorSet: no pipeline bound")
	}
	if index >= metadata.MaxDescriptorSets {
		panic(fmt.Sprintf("BindDescriptorSet: set index %d out of range", index))
	}
	if r.currentPipeline.Desc.DescriptorSetLayouts[index] != layout {
		panic(fmt.Sprintf("BindDescriptorSet: layout does not match pipeline %q set %d", r.currentPipeline.Name, index))
	}

	l := r.dsLayouts.MustGet(layout)
	if len(set.Entries) != len(l.Descriptors) {
		panic(fmt.Sprintf("BindDescriptorSet: set has %d entries, layout declares %d", len(set.Entries), len(l.Descriptors)))
	}

	descriptors := make([]metadata.BoundDescriptor, len(l.Descriptors))
	for i, decl := range l.Descriptors {
		entry := set.Entries[i]
		if entry.Type != decl.Type {
			panic(fmt.Sprintf("BindDescriptorSet: entry %d is %s, layout declares %s", i, entry.Type, decl.Type))
		}

		bound := metadata.BoundDescriptor{Type: decl.Type, Binding: decl.Binding}
		switch decl.Type {
		case metadata.DescriptorTypeUniformBuffer, metadata.DescriptorTypeStorageBuffer:
			bound.Buffer = r.buffers.MustGet(entry.Buffer)
		case metadata.DescriptorTypeSampler:
			bound.Sampler = r.samplers.MustGet(entry.Sampler)
		case metadata.DescriptorTypeTexture:
			bound.Texture = r.textures.MustGet(entry.Texture)
		case metadata.DescriptorTypeCombinedSampler:
			bound.Texture = r.textures.MustGet(entry.Texture)
			bound.Sampler = r.samplers.MustGet(entry.Sampler)
		default:
			panic(fmt.Sprintf("BindDescriptorSet: entry %d has invalid type %s", i, decl.Type))
		}
		descriptors[i] = bound
	}

	r.backend.BindDescriptorSet(index, l, descriptors)
}

// guardDraw holds the common draw preconditions.
func (r *Renderer) guardDraw(op string) {
	if !r.inRenderPass {
		panic(op + ": no render pass in progress")
	}
	if !r.validPipeline {
		panic(op + ": no pipeline bound")
	}
	if r.currentPipeline.Desc.ScissorTest && !r.scissorSet {
		panic(fmt.Sprintf("%s: pipeline %q enables scissor testing but SetScissorRect was not called since BindPipeline", op, r.currentPipeline.Name))
	}
}

func (r *Renderer) Draw(firstVertex, vertexCount uint32) {
	r.guardDraw("Draw")
	if vertexCount == 0 {
		panic("Draw: zero vertex count")
	}
	r.backend.Draw(firstVertex, vertexCount)
	r.pipelineDrawn = true
}

func (r *Renderer) DrawIndexedInstanced(vertexCount, instanceCount uint32) {
	r.guardDraw("DrawIndexedInstanced")
	if vertexCount == 0 || instanceCount == 0 {
		panic("DrawIndexedInstanced: zero count")
	}
	r.backend.DrawIndexedInstanced(vertexCount, instanceCount)
	r.pipelineDrawn = true
}

func (r *Renderer) DrawIndexedOffset(vertexCount, firstIndex uint32) {
	r.guardDraw("DrawIndexedOffset")
	if vertexCount == 0 {
		panic("DrawIndexedOffset: zero vertex count")
	}
	r.backend.DrawIndexed(vertexCount, firstIndex)
	r.pipelineDrawn = true
}

// LayoutTransition moves a render target between image layouts. The target's
// recorded layout must match from; afterwards it is to.
func (r *Renderer) LayoutTransition(target metadata.RenderTargetHandle, from, to metadata.Layout) {
	if !r.inFrame {
		panic("LayoutTransition: no frame in progress")
	}
	if r.inRenderPass {
		panic("LayoutTransition: illegal inside a render pass")
	}

	rt := r.renderTargets.MustGet(target)
	if rt.CurrentLayout != from {
		panic(fmt.Sprintf("LayoutTransition: render target %q is in layout %s, expected %s", rt.Name, rt.CurrentLayout, from))
	}

	r.backend.LayoutTransition(rt, from, to)
	rt.CurrentLayout = to
}

// PresentFrame blits target to the surface, submits the frame and releases
// every ephemeral buffer created since the previous present. The target must
// already be in TransferSrc layout.
func (r *Renderer) PresentFrame(target metadata.RenderTargetHandle) error {
	if !r.inFrame {
		panic("PresentFrame: no frame in progress")
	}
	if r.inRenderPass {
		panic("PresentFrame: render pass still in progress")
	}

	rt := r.renderTargets.MustGet(target)
	if rt.CurrentLayout != metadata.LayoutTransferSrc {
		panic(fmt.Sprintf("PresentFrame: render target %q is in layout %s, expected %s", rt.Name, rt.CurrentLayout, metadata.LayoutTransferSrc))
	}

	err := r.backend.PresentFrame(rt)

	for _, handle := range r.ephemeral {
		r.buffers.Remove(handle)
	}
	r.ephemeral = r.ephemeral[:0]
	r.frameRingPtrs = append(r.frameRingPtrs, r.ring.cursor())

	r.inFrame = false
	r.validPipeline = false
	r.currentPipeline = nil
	return err
}
