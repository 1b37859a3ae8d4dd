package metadata

// RenderTargetDesc configures CreateRenderTarget.
type RenderTargetDesc struct {
	Name   string
	Width  uint32
	Height uint32
	Format Format
}

// MipLevel carries decoded pixel bytes for one mip of a static texture.
type MipLevel struct {
	Data []byte
}

// TextureDesc configures CreateTexture. MipData must hold one entry per mip
// level, finest first.
type TextureDesc struct {
	Name    string
	Width   uint32
	Height  uint32
	Format  Format
	MipData []MipLevel
}

// RenderPassDesc configures CreateRenderPass. Final layouts are what the pass
// leaves its attachments in; the frame machine records them on the bound
// render targets at EndRenderPass.
type RenderPassDesc struct {
	Name               string
	ColorFormats       [MaxColorRenderTargets]Format
	DepthStencilFormat Format

	ColorFinalLayout        Layout
	DepthStencilFinalLayout Layout

	ClearColorValue [4]float32
	ClearDepth      float32
	ClearStencil    uint32
}

// FramebufferDesc configures CreateFramebuffer.
type FramebufferDesc struct {
	Name         string
	RenderPass   RenderPassHandle
	Colors       [MaxColorRenderTargets]RenderTargetHandle
	DepthStencil RenderTargetHandle
}

// SamplerDesc configures CreateSampler.
type SamplerDesc struct {
	Name     string
	Min      FilterMode
	Mag      FilterMode
	WrapMode WrapMode
}

// VertexAttrib describes one slot of the vertex attribute layout.
type VertexAttrib struct {
	Format     VtxFormat
	Count      uint8
	Offset     uint32
	BufBinding uint32
}

// VertexBufferBinding describes the stride of one vertex buffer binding slot.
type VertexBufferBinding struct {
	Stride uint32
}

// PipelineDesc configures CreatePipeline. VertexAttribMask has one bit per
// active slot in VertexAttribs.
type PipelineDesc struct {
	Name           string
	VertexShader   VertexShaderHandle
	FragmentShader FragmentShaderHandle
	RenderPass     RenderPassHandle

	VertexAttribMask uint32
	VertexAttribs    [MaxVertexAttribs]VertexAttrib
	VertexBuffers    [MaxVertexAttribs]VertexBufferBinding

	DescriptorSetLayouts [MaxDescriptorSets]DSLayoutHandle

	DepthTest   bool
	DepthWrite  bool
	CullFaces   bool
	CullMode    FaceCullMode
	ScissorTest bool
	Blending    bool
}

// DescriptorLayout is one entry of a descriptor set layout declaration.
// CreateDescriptorSetLayout consumes a slice terminated by a
// DescriptorTypeEnd entry.
type DescriptorLayout struct {
	Type    DescriptorType
	Binding uint32
}

// ShaderResource is one binding reflected from a compiled shader binary. It
// is cross-checked against the pipeline's descriptor set layouts at pipeline
// creation time.
type ShaderResource struct {
	Set     uint32
	Binding uint32
	Type    DescriptorType
}

// DescriptorSetEntry is one typed resource reference in a DescriptorSet.
// Which fields are meaningful depends on Type.
type DescriptorSetEntry struct {
	Type    DescriptorType
	Buffer  BufferHandle
	Texture TextureHandle
	Sampler SamplerHandle
}

// BoundDescriptor is a descriptor set entry with its handles resolved to
// records and its binding slot assigned, ready for a backend to write into an
// API-level descriptor set.
type BoundDescriptor struct {
	Type    DescriptorType
	Binding uint32
	Buffer  *Buffer
	Texture *Texture
	Sampler *Sampler
}

// DescriptorSet is an ordered sequence of typed resource references, built to
// mirror a DescriptorSetLayout entry for entry. The builder keeps binding
// cheap (one flat slice, no per-bind reflection) while making mismatched
// entry types detectable at bind time.
type DescriptorSet struct {
	Entries []DescriptorSetEntry
}

func NewDescriptorSet() *DescriptorSet {
	return &DescriptorSet{}
}

func (d *DescriptorSet) UniformBuffer(b BufferHandle) *DescriptorSet {
	d.Entries = append(d.Entries, DescriptorSetEntry{Type: DescriptorTypeUniformBuffer, Buffer: b})
	return d
}

func (d *DescriptorSet) StorageBuffer(b BufferHandle) *DescriptorSet {
	d.Entries = append(d.Entries, DescriptorSetEntry{Type: DescriptorTypeStorageBuffer, Buffer: b})
	return d
}

func (d *DescriptorSet) Sampler(s SamplerHandle) *DescriptorSet {
	d.Entries = append(d.Entries, DescriptorSetEntry{Type: DescriptorTypeSampler, Sampler: s})
	return d
}

func (d *DescriptorSet) Texture(t TextureHandle) *DescriptorSet {
	d.Entries = append(d.Entries, DescriptorSetEntry{Type: DescriptorTypeTexture, Texture: t})
	return d
}

func (d *DescriptorSet) CombinedSampler(t TextureHandle, s SamplerHandle) *DescriptorSet {
	d.Entries = append(d.Entries, DescriptorSetEntry{Type: DescriptorTypeCombinedSampler, Texture: t, Sampler: s})
	return d
}
