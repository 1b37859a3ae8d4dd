package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

func VulkanResultString(result vk.Result) string {
	switch result {
	case vk.Success:
		return "VK_SUCCESS"
	case vk.NotReady:
		return "VK_NOT_READY"
	case vk.Timeout:
		return "VK_TIMEOUT"
	case vk.Incomplete:
		return "VK_INCOMPLETE"
	case vk.Suboptimal:
		return "VK_SUBOPTIMAL_KHR"
	case vk.ErrorOutOfHostMemory:
		return "VK_ERROR_OUT_OF_HOST_MEMORY"
	case vk.ErrorOutOfDeviceMemory:
		return "VK_ERROR_OUT_OF_DEVICE_MEMORY"
	case vk.ErrorInitializationFailed:
		return "VK_ERROR_INITIALIZATION_FAILED"
	case vk.ErrorDeviceLost:
		return "VK_ERROR_DEVICE_LOST"
	case vk.ErrorMemoryMapFailed:
		return "VK_ERROR_MEMORY_MAP_FAILED"
	case vk.ErrorLayerNotPresent:
		return "VK_ERROR_LAYER_NOT_PRESENT"
	case vk.ErrorExtensionNotPresent:
		return "VK_ERROR_EXTENSION_NOT_PRESENT"
	case vk.ErrorFeatureNotPresent:
		return "VK_ERROR_FEATURE_NOT_PRESENT"
	case vk.ErrorIncompatibleDriver:
		return "VK_ERROR_INCOMPATIBLE_DRIVER"
	case vk.ErrorFormatNotSupported:
		return "VK_ERROR_FORMAT_NOT_SUPPORTED"
	case vk.ErrorSurfaceLost:
		return "VK_ERROR_SURFACE_LOST_KHR"
	case vk.ErrorNativeWindowInUse:
		return "VK_ERROR_NATIVE_WINDOW_IN_USE_KHR"
	case vk.ErrorOutOfDate:
		return "VK_ERROR_OUT_OF_DATE_KHR"
	case vk.ErrorOutOfPoolMemory:
		return "VK_ERROR_OUT_OF_POOL_MEMORY"
	case vk.ErrorUnknown:
		return "VK_ERROR_UNKNOWN"
	default:
		return "UNHANDLED_VK_RESULT"
	}
}

func VulkanResultIsSuccess(result vk.Result) bool {
	switch result {
	case vk.Success, vk.NotReady, vk.Timeout, vk.EventSet, vk.EventReset,
		vk.Incomplete, vk.Suboptimal:
		return true
	default:
		return false
	}
}

var end = "\x00"
var endChar byte = '\x00'

func VulkanSafeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func VulkanSafeStrings(list []string) []string {
	for i := range list {
		list[i] = VulkanSafeString(list[i])
	}
	return list
}

func FindFirstZeroInByteArray(arr []byte) int {
	end := 0
	for i, b := range arr {
		if b == 0 {
			end = i
			break
		}
	}
	return end
}

// VulkanFormat maps a renderer format onto its Vulkan equivalent.
func VulkanFormat(format metadata.Format) vk.Format {
	switch format {
	case metadata.FormatR8:
		return vk.FormatR8Unorm
	case metadata.FormatRG8:
		return vk.FormatR8g8Unorm
	case metadata.FormatRGB8:
		return vk.FormatR8g8b8Unorm
	case metadata.FormatRGBA8:
		return vk.FormatR8g8b8a8Unorm
	case metadata.FormatSRGBA8:
		return vk.FormatR8g8b8a8Srgb
	case metadata.FormatRG16Float:
		return vk.FormatR16g16Sfloat
	case metadata.FormatRGBA16Float:
		return vk.FormatR16g16b16a16Sfloat
	case metadata.FormatRGBA32Float:
		return vk.FormatR32g32b32a32Sfloat
	case metadata.FormatDepth16:
		return vk.FormatD16Unorm
	case metadata.FormatDepth16S8:
		return vk.FormatD16UnormS8Uint
	case metadata.FormatDepth24S8:
		return vk.FormatD24UnormS8Uint
	case metadata.FormatDepth24X8:
		return vk.FormatX8D24UnormPack32
	case metadata.FormatDepth32Float:
		return vk.FormatD32Sfloat
	default:
		return vk.FormatUndefined
	}
}

// VulkanImageLayout maps a renderer image layout onto its Vulkan equivalent.
func VulkanImageLayout(layout metadata.Layout) vk.ImageLayout {
	switch layout {
	case metadata.LayoutShaderRead:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case metadata.LayoutTransferSrc:
		return vk.ImageLayoutTransferSrcOptimal
	case metadata.LayoutTransferDst:
		return vk.ImageLayoutTransferDstOptimal
	case metadata.LayoutColorAttachment:
		return vk.ImageLayoutColorAttachmentOptimal
	default:
		return vk.ImageLayoutUndefined
	}
}

// VulkanVertexFormat maps an attribute format and component count onto a
// Vulkan vertex input format.
func VulkanVertexFormat(format metadata.VtxFormat, count uint8) vk.Format {
	switch format {
	case metadata.VtxFormatFloat:
		switch count {
		case 1:
			return vk.FormatR32Sfloat
		case 2:
			return vk.FormatR32g32Sfloat
		case 3:
			return vk.FormatR32g32b32Sfloat
		case 4:
			return vk.FormatR32g32b32a32Sfloat
		}
	case metadata.VtxFormatUNorm8:
		switch count {
		case 1:
			return vk.FormatR8Unorm
		case 2:
			return vk.FormatR8g8Unorm
		case 4:
			return vk.FormatR8g8b8a8Unorm
		}
	}
	return vk.FormatUndefined
}

// VulkanDescriptorType maps a layout entry type onto the Vulkan descriptor
// type used for its binding.
func VulkanDescriptorType(t metadata.DescriptorType) vk.DescriptorType {
	switch t {
	case metadata.DescriptorTypeUniformBuffer:
		return vk.DescriptorTypeUniformBuffer
	case metadata.DescriptorTypeStorageBuffer:
		return vk.DescriptorTypeStorageBuffer
	case metadata.DescriptorTypeSampler:
		return vk.DescriptorTypeSampler
	case metadata.DescriptorTypeTexture:
		return vk.DescriptorTypeSampledImage
	case metadata.DescriptorTypeCombinedSampler:
		return vk.DescriptorTypeCombinedImageSampler
	default:
		return vk.DescriptorTypeMaxEnum
	}
}
