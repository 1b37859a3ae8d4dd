package metadata

/** @brief Pixel and attachment formats supported by the renderer. */
type Format int

const (
	FormatInvalid Format = iota
	FormatR8
	FormatRG8
	FormatRGB8
	FormatRGBA8
	FormatSRGBA8
	FormatRG16Float
	FormatRGBA16Float
	FormatRGBA32Float
	FormatDepth16
	FormatDepth16S8
	FormatDepth24S8
	FormatDepth24X8
	FormatDepth32Float
)

func (f Format) String() string {
	switch f {
	case FormatInvalid:
		return "Invalid"
	case FormatR8:
		return "R8"
	case FormatRG8:
		return "RG8"
	case FormatRGB8:
		return "RGB8"
	case FormatRGBA8:
		return "RGBA8"
	case FormatSRGBA8:
		return "sRGBA8"
	case FormatRG16Float:
		return "RG16Float"
	case FormatRGBA16Float:
		return "RGBA16Float"
	case FormatRGBA32Float:
		return "RGBA32Float"
	case FormatDepth16:
		return "Depth16"
	case FormatDepth16S8:
		return "Depth16S8"
	case FormatDepth24S8:
		return "Depth24S8"
	case FormatDepth24X8:
		return "Depth24X8"
	case FormatDepth32Float:
		return "Depth32Float"
	}
	return "Unknown"
}

// IsDepth reports whether the format is a depth or depth/stencil format.
func (f Format) IsDepth() bool {
	switch f {
	case FormatDepth16, FormatDepth16S8, FormatDepth24S8, FormatDepth24X8, FormatDepth32Float:
		return true
	}
	return false
}

// IsSRGB reports whether the format carries sRGB encoded color data.
func (f Format) IsSRGB() bool {
	return f == FormatSRGBA8
}

// Size returns the byte size of one texel in the format.
func (f Format) Size() uint32 {
	switch f {
	case FormatR8:
		return 1
	case FormatRG8, FormatDepth16:
		return 2
	case FormatRGB8:
		return 3
	case FormatRGBA8, FormatSRGBA8, FormatRG16Float, FormatDepth16S8, FormatDepth24S8, FormatDepth24X8, FormatDepth32Float:
		return 4
	case FormatRGBA16Float:
		return 8
	case FormatRGBA32Float:
		return 16
	}
	return 4
}

// Layout is the GPU-visible access state of an image. Vulkan tracks these
// explicitly; the value the renderer records must always match the access the
// next operation performs.
type Layout int

const (
	LayoutUndefined Layout = iota
	LayoutShaderRead
	LayoutTransferSrc
	LayoutTransferDst
	LayoutColorAttachment
)

func (l Layout) String() string {
	switch l {
	case LayoutUndefined:
		return "Undefined"
	case LayoutShaderRead:
		return "ShaderRead"
	case LayoutTransferSrc:
		return "TransferSrc"
	case LayoutTransferDst:
		return "TransferDst"
	case LayoutColorAttachment:
		return "ColorAttachment"
	}
	return "Unknown"
}
