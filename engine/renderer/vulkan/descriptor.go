package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

// Sizing for the per-frame descriptor pools. Descriptor sets are allocated
// transiently every bind and thrown away with a pool reset when the frame
// comes around again.
const (
	maxDescriptorSetsPerFrame    uint32 = 256
	maxDescriptorsPerTypePerPool uint32 = 512
)

type VulkanDescriptorSetLayout struct {
	Handle vk.DescriptorSetLayout
}

// DescriptorSetLayoutCreate builds the Vulkan layout with each entry at its
// declared binding slot, visible to both shader stages.
func DescriptorSetLayoutCreate(context *VulkanContext, layout *metadata.DescriptorSetLayout) (*VulkanDescriptorSetLayout, error) {
	bindings := make([]vk.DescriptorSetLayoutBinding, len(layout.Descriptors))
	for i, d := range layout.Descriptors {
		bindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         d.Binding,
			DescriptorType:  VulkanDescriptorType(d.Type),
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		}
	}

	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}

	var pLayout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &createInfo, context.Allocator, &pLayout); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor set layout: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanDescriptorSetLayout{Handle: pLayout}, nil
}

func (vl *VulkanDescriptorSetLayout) Destroy(context *VulkanContext) {
	if vl.Handle != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, vl.Handle, context.Allocator)
		vl.Handle = vk.NullDescriptorSetLayout
	}
}

func FrameDescriptorPoolCreate(context *VulkanContext) (vk.DescriptorPool, error) {
	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: maxDescriptorsPerTypePerPool},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: maxDescriptorsPerTypePerPool},
		{Type: vk.DescriptorTypeSampler, DescriptorCount: maxDescriptorsPerTypePerPool},
		{Type: vk.DescriptorTypeSampledImage, DescriptorCount: maxDescriptorsPerTypePerPool},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: maxDescriptorsPerTypePerPool},
	}

	poolCreateInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
		MaxSets:       maxDescriptorSetsPerFrame,
	}

	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolCreateInfo, context.Allocator, &pool); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor pool: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return vk.NullDescriptorPool, err
	}
	return pool, nil
}

// AllocateAndWriteDescriptorSet produces a transient descriptor set from the
// current frame's pool with every descriptor written at its binding slot.
func AllocateAndWriteDescriptorSet(context *VulkanContext, layout vk.DescriptorSetLayout, descriptors []metadata.BoundDescriptor) (vk.DescriptorSet, error) {
	pool := context.FrameDescriptorPools[context.CurrentFrame]

	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}

	sets := make([]vk.DescriptorSet, 1)
	if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocateInfo, &sets[0]); res != vk.Success {
		err := fmt.Errorf("failed to allocate descriptor set: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return vk.NullDescriptorSet, err
	}
	set := sets[0]

	writes := make([]vk.WriteDescriptorSet, 0, len(descriptors))
	for _, d := range descriptors {
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      d.Binding,
			DstArrayElement: 0,
			DescriptorCount: 1,
			DescriptorType:  VulkanDescriptorType(d.Type),
		}

		switch d.Type {
		case metadata.DescriptorTypeUniformBuffer, metadata.DescriptorTypeStorageBuffer:
			buffer, offset, size := resolveBufferBinding(context, d.Buffer)
			write.PBufferInfo = []vk.DescriptorBufferInfo{{
				Buffer: buffer,
				Offset: offset,
				Range:  size,
			}}
		case metadata.DescriptorTypeSampler:
			write.PImageInfo = []vk.DescriptorImageInfo{{
				Sampler: d.Sampler.InternalData.(*VulkanSampler).Handle,
			}}
		case metadata.DescriptorTypeTexture:
			write.PImageInfo = []vk.DescriptorImageInfo{{
				ImageView:   d.Texture.InternalData.(*VulkanImage).View,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}}
		case metadata.DescriptorTypeCombinedSampler:
			write.PImageInfo = []vk.DescriptorImageInfo{{
				Sampler:     d.Sampler.InternalData.(*VulkanSampler).Handle,
				ImageView:   d.Texture.InternalData.(*VulkanImage).View,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}}
		}
		writes = append(writes, write)
	}

	vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	return set, nil
}

// resolveBufferBinding maps a buffer record onto the GPU buffer, offset and
// range to bind. Ring sub-allocations all live in the shared ring buffer.
func resolveBufferBinding(context *VulkanContext, buffer *metadata.Buffer) (vk.Buffer, vk.DeviceSize, vk.DeviceSize) {
	if buffer.RingBufferAlloc {
		return context.RingBuffer.Buffer.Handle, vk.DeviceSize(buffer.BeginOffs), vk.DeviceSize(buffer.Size)
	}
	vb := buffer.InternalData.(*VulkanBuffer)
	return vb.Handle, 0, vk.DeviceSize(buffer.Size)
}
