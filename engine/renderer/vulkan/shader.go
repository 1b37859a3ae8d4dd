package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prisma/engine/core"
)

// VulkanShaderModule is one compiled pipeline stage, ready to be referenced
// by pipeline creation.
type VulkanShaderModule struct {
	Handle    vk.ShaderModule
	StageInfo vk.PipelineShaderStageCreateInfo
}

func NewShaderModule(context *VulkanContext, name string, words []uint32, stage vk.ShaderStageFlagBits) (*VulkanShaderModule, error) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(words) * 4),
		PCode:    words,
	}

	module := &VulkanShaderModule{}
	var pModule vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &pModule); res != vk.Success {
		err := fmt.Errorf("failed to create shader module %q: %s", name, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	module.Handle = pModule

	module.StageInfo = vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: module.Handle,
		PName:  VulkanSafeString("main"),
	}

	return module, nil
}

func (vm *VulkanShaderModule) Destroy(context *VulkanContext) {
	if vm.Handle != vk.NullShaderModule {
		vk.DestroyShaderModule(context.Device.LogicalDevice, vm.Handle, context.Allocator)
		vm.Handle = vk.NullShaderModule
	}
}
