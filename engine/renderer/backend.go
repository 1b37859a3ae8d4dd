package renderer

import (
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

// Backend is the GPU API boundary. The frontend owns all handle resolution,
// validation and frame-machine state; backends receive resolved records,
// stash their API objects in the records' InternalData and never see handles.
// A backend call is only made once the frontend has established the call is
// legal, so backends do not re-validate.
type Backend interface {
	Shutdown() error

	// DrawableSize is the current swapchain extent in pixels.
	DrawableSize() (width, height uint32)

	CreateBuffer(buffer *metadata.Buffer, contents []byte) error
	DestroyBuffer(buffer *metadata.Buffer)

	CreateTexture(texture *metadata.Texture, desc *metadata.TextureDesc) error
	DestroyTexture(texture *metadata.Texture)

	// CreateRenderTarget creates the attachment image; texture is the record
	// backing rt.Texture and receives the image's texture view.
	CreateRenderTarget(rt *metadata.RenderTarget, texture *metadata.Texture) error
	DestroyRenderTarget(rt *metadata.RenderTarget)

	CreateRenderPass(rp *metadata.RenderPass) error
	DestroyRenderPass(rp *metadata.RenderPass)

	CreateFramebuffer(fb *metadata.Framebuffer, rp *metadata.RenderPass, colors []*metadata.RenderTarget, depthStencil *metadata.RenderTarget) error
	DestroyFramebuffer(fb *metadata.Framebuffer)

	CreateSampler(sampler *metadata.Sampler, desc *metadata.SamplerDesc) error
	DestroySampler(sampler *metadata.Sampler)

	CreateDescriptorSetLayout(layout *metadata.DescriptorSetLayout) error
	DestroyDescriptorSetLayout(layout *metadata.DescriptorSetLayout)

	CreateVertexShader(shader *metadata.VertexShader, words []uint32) error
	DestroyVertexShader(shader *metadata.VertexShader)

	CreateFragmentShader(shader *metadata.FragmentShader, words []uint32) error
	DestroyFragmentShader(shader *metadata.FragmentShader)

	CreatePipeline(pipeline *metadata.Pipeline, vs *metadata.VertexShader, fs *metadata.FragmentShader, rp *metadata.RenderPass, layouts []*metadata.DescriptorSetLayout) error
	DestroyPipeline(pipeline *metadata.Pipeline)

	// RecreateRingBuffer reallocates the persistently mapped ephemeral
	// buffer. Previous contents are discarded.
	RecreateRingBuffer(size uint32) error
	// RingWrite copies data into the mapped ring buffer at offset.
	RingWrite(offset uint32, data []byte)

	// BeginFrame acquires the next swapchain image and waits for this
	// frame's previous submission to retire. Returns
	// core.ErrSwapchainBooting while the swapchain is being rebuilt.
	BeginFrame() error

	BeginRenderPass(rp *metadata.RenderPass, fb *metadata.Framebuffer)
	EndRenderPass()

	BindPipeline(pipeline *metadata.Pipeline)
	SetViewport(x, y int32, width, height uint32)
	// SetScissor receives framebuffer-convention coordinates with the origin
	// at the bottom left; backends convert as their API requires.
	SetScissor(x, y int32, width, height uint32)

	BindVertexBuffer(binding uint32, buffer *metadata.Buffer)
	BindIndexBuffer(buffer *metadata.Buffer, index16Bit bool)
	BindDescriptorSet(index uint32, layout *metadata.DescriptorSetLayout, descriptors []metadata.BoundDescriptor)

	Draw(firstVertex, vertexCount uint32)
	DrawIndexed(vertexCount, firstIndex uint32)
	DrawIndexedInstanced(vertexCount, instanceCount uint32)

	// LayoutTransition issues the image barrier moving rt between layouts.
	LayoutTransition(rt *metadata.RenderTarget, from, to metadata.Layout)

	// PresentFrame blits rt to the acquired swapchain image, submits the
	// frame's commands and queues the present.
	PresentFrame(rt *metadata.RenderTarget) error
}
