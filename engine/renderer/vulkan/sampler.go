package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

type VulkanSampler struct {
	Handle vk.Sampler
}

func SamplerCreate(context *VulkanContext, desc *metadata.SamplerDesc) (*VulkanSampler, error) {
	filter := func(mode metadata.FilterMode) vk.Filter {
		if mode == metadata.FilterModeLinear {
			return vk.FilterLinear
		}
		return vk.FilterNearest
	}
	addressMode := vk.SamplerAddressModeClampToEdge
	if desc.WrapMode == metadata.WrapModeWrap {
		addressMode = vk.SamplerAddressModeRepeat
	}

	samplerCreateInfo := vk.SamplerCreateInfo{
		SType:            vk.StructureTypeSamplerCreateInfo,
		MagFilter:        filter(desc.Mag),
		MinFilter:        filter(desc.Min),
		MipmapMode:       vk.SamplerMipmapModeNearest,
		AddressModeU:     addressMode,
		AddressModeV:     addressMode,
		AddressModeW:     addressMode,
		MinLod:           0,
		MaxLod:           vk.LodClampNone,
		AnisotropyEnable: vk.False,
	}

	var pSampler vk.Sampler
	if res := vk.CreateSampler(context.Device.LogicalDevice, &samplerCreateInfo, context.Allocator, &pSampler); res != vk.Success {
		err := fmt.Errorf("failed to create sampler %q: %s", desc.Name, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanSampler{Handle: pSampler}, nil
}

func (vs *VulkanSampler) Destroy(context *VulkanContext) {
	if vs.Handle != vk.NullSampler {
		vk.DestroySampler(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = vk.NullSampler
	}
}
