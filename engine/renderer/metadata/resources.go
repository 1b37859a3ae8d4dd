package metadata

import (
	"github.com/spaghettifunk/prisma/engine/containers"
)

// Handle aliases for every resource registry the renderer owns. A handle is
// only valid in the renderer instance that issued it.
type (
	BufferHandle         = containers.Handle[Buffer]
	TextureHandle        = containers.Handle[Texture]
	RenderTargetHandle   = containers.Handle[RenderTarget]
	RenderPassHandle     = containers.Handle[RenderPass]
	FramebufferHandle    = containers.Handle[Framebuffer]
	PipelineHandle       = containers.Handle[Pipeline]
	SamplerHandle        = containers.Handle[Sampler]
	DSLayoutHandle       = containers.Handle[DescriptorSetLayout]
	VertexShaderHandle   = containers.Handle[VertexShader]
	FragmentShaderHandle = containers.Handle[FragmentShader]
)

// Buffer is a GPU memory range. Standalone buffers own a dedicated backing
// allocation and begin at offset 0. Ring buffer allocations reference the one
// shared ring allocation and must not outlive the frame that produced them.
type Buffer struct {
	Type            BufferType
	Size            uint32
	RingBufferAlloc bool
	BeginOffs       uint32
	// InternalData holds the backend-specific buffer object.
	InternalData interface{}
}

// Texture is a GPU image. RenderTarget is set when the texture doubles as a
// render target attachment; such textures are owned by their RenderTarget
// record and are not deletable through DeleteTexture.
type Texture struct {
	Name         string
	Width        uint32
	Height       uint32
	Format       Format
	MipCount     uint32
	RenderTarget bool
	InternalData interface{}
}

// RenderTarget is a texture specialized as a color or depth/stencil
// attachment. CurrentLayout tracks the image's GPU-side layout; it must match
// the access the next operation performs.
type RenderTarget struct {
	Name          string
	Width         uint32
	Height        uint32
	Format        Format
	CurrentLayout Layout
	Texture       TextureHandle
	InternalData  interface{}
}

// RenderPass declares attachment formats and the layout each attachment is
// left in when the pass ends. On Vulkan it is a real GPU object.
type RenderPass struct {
	Name         string
	Desc         RenderPassDesc
	InternalData interface{}
}

// Framebuffer binds concrete render targets to a render pass's attachment
// slots. Dimensions and formats must match the pass declaration exactly.
type Framebuffer struct {
	Name         string
	Width        uint32
	Height       uint32
	RenderPass   RenderPassHandle
	Colors       [MaxColorRenderTargets]RenderTargetHandle
	DepthStencil RenderTargetHandle
	InternalData interface{}
}

// Pipeline bundles shaders, vertex layout, descriptor set layouts and fixed
// function state, scoped to one render pass.
type Pipeline struct {
	Name         string
	Desc         PipelineDesc
	InternalData interface{}
}

type Sampler struct {
	Name         string
	InternalData interface{}
}

// DescriptorSetLayout is the ordered binding declaration a pipeline set slot
// is validated and bound against.
type DescriptorSetLayout struct {
	Descriptors  []DescriptorLayout
	InternalData interface{}
}

// VertexShader is a compiled vertex stage module together with the resource
// bindings reflected from its binary.
type VertexShader struct {
	Name         string
	Resources    []ShaderResource
	InternalData interface{}
}

// FragmentShader is a compiled fragment stage module together with the
// resource bindings reflected from its binary.
type FragmentShader struct {
	Name         string
	Resources    []ShaderResource
	InternalData interface{}
}
