package metadata

/** @brief Determines face culling mode during rendering. */
type FaceCullMode int

const (
	/** @brief No faces are culled. */
	FaceCullModeNone FaceCullMode = 0x0
	/** @brief Only front faces are culled. */
	FaceCullModeFront FaceCullMode = 0x1
	/** @brief Only back faces are culled. */
	FaceCullModeBack FaceCullMode = 0x2
	/** @brief Both front and back faces are culled. */
	FaceCullModeFrontAndBack FaceCullMode = 0x3
)

/** @brief Usage class of a buffer allocation. */
type BufferType int

const (
	BufferTypeInvalid BufferType = iota
	BufferTypeVertex
	BufferTypeIndex
	BufferTypeUniform
	BufferTypeStorage
)

// VtxFormat is the component format of one vertex attribute.
type VtxFormat int

const (
	VtxFormatFloat VtxFormat = iota
	VtxFormatUNorm8
)

type FilterMode int

const (
	FilterModeNearest FilterMode = iota
	FilterModeLinear
)

type WrapMode int

const (
	WrapModeClamp WrapMode = iota
	WrapModeWrap
)

// ShaderKind selects the pipeline stage a shader source compiles for.
type ShaderKind int

const (
	ShaderKindVertex ShaderKind = iota
	ShaderKindFragment
)

func (k ShaderKind) String() string {
	switch k {
	case ShaderKindVertex:
		return "Vertex"
	case ShaderKindFragment:
		return "Fragment"
	}
	return "Unknown"
}

// Extension returns the conventional source file suffix for the stage.
func (k ShaderKind) Extension() string {
	switch k {
	case ShaderKindVertex:
		return ".vert"
	case ShaderKindFragment:
		return ".frag"
	}
	return ""
}

// DescriptorType tags one entry of a descriptor set layout.
type DescriptorType int

const (
	DescriptorTypeEnd DescriptorType = iota
	DescriptorTypeUniformBuffer
	DescriptorTypeStorageBuffer
	DescriptorTypeSampler
	DescriptorTypeTexture
	DescriptorTypeCombinedSampler
)

func (t DescriptorType) String() string {
	switch t {
	case DescriptorTypeEnd:
		return "End"
	case DescriptorTypeUniformBuffer:
		return "UniformBuffer"
	case DescriptorTypeStorageBuffer:
		return "StorageBuffer"
	case DescriptorTypeSampler:
		return "Sampler"
	case DescriptorTypeTexture:
		return "Texture"
	case DescriptorTypeCombinedSampler:
		return "CombinedSampler"
	}
	return "ERROR!"
}

const (
	// MaxDescriptorSets is the number of descriptor set slots a pipeline has.
	MaxDescriptorSets = 4
	// MaxVertexAttribs bounds the vertex attribute mask width.
	MaxVertexAttribs = 32
	// MaxColorRenderTargets is the number of color attachment slots in a
	// framebuffer. The post-process pipeline never needs more than two.
	MaxColorRenderTargets = 2
)

// MemoryStats is a snapshot of renderer-side GPU allocation counters.
type MemoryStats struct {
	BufferBytes    uint64
	TextureBytes   uint64
	RingBufferSize uint32
	Allocations    uint32
}
