package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
}

func bufferUsageFlags(usage metadata.BufferType) vk.BufferUsageFlags {
	switch usage {
	case metadata.BufferTypeVertex:
		return vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	case metadata.BufferTypeIndex:
		return vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	case metadata.BufferTypeUniform:
		return vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	case metadata.BufferTypeStorage:
		return vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)
	default:
		return 0
	}
}

func BufferCreate(context *VulkanContext, size vk.DeviceSize, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	buffer := &VulkanBuffer{Size: size}

	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var pBuffer vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferCreateInfo, context.Allocator, &pBuffer); res != vk.Success {
		err := fmt.Errorf("failed to create buffer: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	buffer.Handle = pBuffer

	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer.Handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryType := context.FindMemoryIndex(memoryRequirements.MemoryTypeBits, uint32(memoryFlags))
	if memoryType == -1 {
		err := fmt.Errorf("required memory type not found, buffer not valid")
		core.LogError(err.Error())
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	var pMemory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &pMemory); res != vk.Success {
		err := fmt.Errorf("failed to allocate buffer memory: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	buffer.Memory = pMemory

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer.Handle, buffer.Memory, 0); res != vk.Success {
		err := fmt.Errorf("failed to bind buffer memory: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	return buffer, nil
}

func (vb *VulkanBuffer) BufferDestroy(context *VulkanContext) {
	if vb.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.Device.LogicalDevice, vb.Memory, context.Allocator)
		vb.Memory = vk.NullDeviceMemory
	}
	if vb.Handle != vk.NullBuffer {
		vk.DestroyBuffer(context.Device.LogicalDevice, vb.Handle, context.Allocator)
		vb.Handle = vk.NullBuffer
	}
	vb.Size = 0
}

// BufferCreateWithData creates a device-local buffer and uploads contents
// through a host-visible staging buffer on a single-use command buffer.
func BufferCreateWithData(context *VulkanContext, usage metadata.BufferType, contents []byte) (*VulkanBuffer, error) {
	size := vk.DeviceSize(len(contents))

	staging, err := BufferCreate(context, size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	defer staging.BufferDestroy(context)

	var mapped unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, staging.Memory, 0, size, 0, &mapped); res != vk.Success {
		err := fmt.Errorf("failed to map staging buffer: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	vk.Memcopy(mapped, contents)
	vk.UnmapMemory(context.Device.LogicalDevice, staging.Memory)

	buffer, err := BufferCreate(context, size,
		bufferUsageFlags(usage)|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}

	cb, err := AllocateAndBeginSingleUse(context, context.Device.GraphicsCommandPool)
	if err != nil {
		buffer.BufferDestroy(context)
		return nil, err
	}
	region := vk.BufferCopy{SrcOffset: 0, DstOffset: 0, Size: size}
	vk.CmdCopyBuffer(cb.Handle, staging.Handle, buffer.Handle, 1, []vk.BufferCopy{region})
	if err := cb.EndSingleUse(context, context.Device.GraphicsCommandPool, context.Device.GraphicsQueue); err != nil {
		buffer.BufferDestroy(context)
		return nil, err
	}

	return buffer, nil
}

// VulkanRingBuffer is the persistently mapped host-coherent buffer that backs
// every ephemeral sub-allocation. It stays mapped for its whole lifetime.
type VulkanRingBuffer struct {
	Buffer *VulkanBuffer
	Mapped unsafe.Pointer
	Size   uint32
}

func RingBufferCreate(context *VulkanContext, size uint32) (*VulkanRingBuffer, error) {
	usage := vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit) |
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit) |
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit) |
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)

	buffer, err := BufferCreate(context, vk.DeviceSize(size), usage,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}

	var mapped unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, buffer.Memory, 0, vk.DeviceSize(size), 0, &mapped); res != vk.Success {
		buffer.BufferDestroy(context)
		err := fmt.Errorf("failed to map ring buffer: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	core.LogDebug("ring buffer created, %d bytes", size)
	return &VulkanRingBuffer{
		Buffer: buffer,
		Mapped: mapped,
		Size:   size,
	}, nil
}

// Write copies data into the mapped range at offset. The memory is host
// coherent, no flush is needed.
func (rb *VulkanRingBuffer) Write(offset uint32, data []byte) {
	dst := unsafe.Add(rb.Mapped, uintptr(offset))
	vk.Memcopy(dst, data)
}

func (rb *VulkanRingBuffer) Destroy(context *VulkanContext) {
	if rb.Buffer != nil {
		vk.UnmapMemory(context.Device.LogicalDevice, rb.Buffer.Memory)
		rb.Buffer.BufferDestroy(context)
		rb.Buffer = nil
		rb.Mapped = nil
	}
}
