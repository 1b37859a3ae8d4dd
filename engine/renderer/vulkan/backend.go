package vulkan

import (
	"fmt"
	"math"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/platform"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

// VulkanRenderer is the Vulkan rendering backend. Frames are composed into
// off-screen render targets and blitted to the swapchain image at present.
type VulkanRenderer struct {
	platform *platform.Platform
	context  *VulkanContext

	cachedFramebufferWidth  uint32
	cachedFramebufferHeight uint32

	// Height of the framebuffer bound by the current render pass, used to
	// flip scissor and viewport rects into Vulkan's top-left convention.
	currentPassHeight uint32

	boundPipeline *VulkanPipeline

	framesInFlight uint8
	vsync          bool
	debug          bool
}

func New(p *platform.Platform, framesInFlight uint8, vsync, debug bool) *VulkanRenderer {
	return &VulkanRenderer{
		platform: p,
		context: &VulkanContext{
			Allocator: nil,
		},
		framesInFlight: framesInFlight,
		vsync:          vsync,
		debug:          debug,
	}
}

func (vr *VulkanRenderer) Initialize(appName string, appWidth, appHeight uint32) error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := fmt.Errorf("vulkan loader not available: GetInstanceProcAddress is nil")
		core.LogError(err.Error())
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return err
	}

	vr.context.FramebufferWidth = appWidth
	vr.context.FramebufferHeight = appHeight

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Prisma"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := []string{"VK_KHR_surface"}
	requiredExtensions = append(requiredExtensions, vr.platform.GetRequiredExtensionNames()...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1 // VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
	}
	if vr.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	var validationLayers []string
	if vr.debug {
		validationLayers = []string{"VK_LAYER_KHRONOS_validation"}
		if !instanceLayersAvailable(validationLayers) {
			core.LogWarn("Validation requested but VK_LAYER_KHRONOS_validation is not installed, continuing without.")
			validationLayers = nil
		}
	}
	createInfo.EnabledLayerCount = uint32(len(validationLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(validationLayers)

	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance); res != vk.Success {
		err := fmt.Errorf("failed to create Vulkan instance: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan instance created.")

	if vr.debug && len(validationLayers) > 0 {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if res := vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg); res != vk.Success {
			core.LogWarn("failed to create debug callback: %s", VulkanResultString(res))
		} else {
			vr.context.debugMessenger = dbg
			core.LogDebug("Vulkan debugger created.")
		}
	}

	surfacePtr, err := vr.platform.Window.CreateWindowSurface(vr.context.Instance, nil)
	if err != nil {
		core.LogError("failed to create platform surface: %s", err)
		return err
	}
	vr.context.Surface = vk.SurfaceFromPointer(surfacePtr)
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(vr.context); err != nil {
		return err
	}

	sc, err := SwapchainCreate(vr.context, vr.context.FramebufferWidth, vr.context.FramebufferHeight, vr.framesInFlight, vr.vsync)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc

	if err := vr.createCommandBuffers(); err != nil {
		return err
	}

	// Sync objects, one per frame in flight.
	vr.context.ImageAvailableSemaphores = make([]vk.Semaphore, vr.framesInFlight)
	vr.context.QueueCompleteSemaphores = make([]vk.Semaphore, vr.framesInFlight)
	vr.context.InFlightFences = make([]*VulkanFence, vr.framesInFlight)
	for i := 0; i < int(vr.framesInFlight); i++ {
		semaphoreCreateInfo := vk.SemaphoreCreateInfo{
			SType: vk.StructureTypeSemaphoreCreateInfo,
		}
		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &vr.context.ImageAvailableSemaphores[i]); res != vk.Success {
			return fmt.Errorf("failed to create image available semaphore: %s", VulkanResultString(res))
		}
		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &vr.context.QueueCompleteSemaphores[i]); res != vk.Success {
			return fmt.Errorf("failed to create queue complete semaphore: %s", VulkanResultString(res))
		}
		// Signaled so the first frame does not wait on a submission that
		// never happened.
		f, err := NewFence(vr.context, true)
		if err != nil {
			return err
		}
		vr.context.InFlightFences[i] = f
	}
	vr.context.ImagesInFlight = make([]*VulkanFence, vr.context.Swapchain.ImageCount)

	// Per-frame descriptor pools, one reset per frame begin.
	vr.context.FrameDescriptorPools = make([]vk.DescriptorPool, vr.framesInFlight)
	for i := range vr.context.FrameDescriptorPools {
		pool, err := FrameDescriptorPoolCreate(vr.context)
		if err != nil {
			return err
		}
		vr.context.FrameDescriptorPools[i] = pool
	}

	// Placeholder layout for descriptor set slots a pipeline leaves empty.
	emptyLayoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType: vk.StructureTypeDescriptorSetLayoutCreateInfo,
	}
	if res := vk.CreateDescriptorSetLayout(vr.context.Device.LogicalDevice, &emptyLayoutInfo, vr.context.Allocator, &vr.context.EmptySetLayout); res != vk.Success {
		return fmt.Errorf("failed to create empty set layout: %s", VulkanResultString(res))
	}

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) Shutdown() error {
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	// Destroy in the opposite order of creation.
	if vr.context.RingBuffer != nil {
		vr.context.RingBuffer.Destroy(vr.context)
		vr.context.RingBuffer = nil
	}

	if vr.context.EmptySetLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(vr.context.Device.LogicalDevice, vr.context.EmptySetLayout, vr.context.Allocator)
		vr.context.EmptySetLayout = vk.NullDescriptorSetLayout
	}
	for i := range vr.context.FrameDescriptorPools {
		vk.DestroyDescriptorPool(vr.context.Device.LogicalDevice, vr.context.FrameDescriptorPools[i], vr.context.Allocator)
	}
	vr.context.FrameDescriptorPools = nil

	for i := 0; i < int(vr.framesInFlight); i++ {
		if vr.context.ImageAvailableSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(vr.context.Device.LogicalDevice, vr.context.ImageAvailableSemaphores[i], vr.context.Allocator)
		}
		if vr.context.QueueCompleteSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(vr.context.Device.LogicalDevice, vr.context.QueueCompleteSemaphores[i], vr.context.Allocator)
		}
		vr.context.InFlightFences[i].FenceDestroy(vr.context)
	}
	vr.context.ImageAvailableSemaphores = nil
	vr.context.QueueCompleteSemaphores = nil
	vr.context.InFlightFences = nil
	vr.context.ImagesInFlight = nil

	for _, cb := range vr.context.GraphicsCommandBuffers {
		if cb != nil && cb.Handle != nil {
			cb.Free(vr.context, vr.context.Device.GraphicsCommandPool)
		}
	}
	vr.context.GraphicsCommandBuffers = nil

	vr.context.Swapchain.SwapchainDestroy(vr.context)

	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(vr.context)

	core.LogDebug("Destroying Vulkan surface...")
	if vr.context.Surface != vk.NullSurface {
		vk.DestroySurface(vr.context.Instance, vr.context.Surface, vr.context.Allocator)
		vr.context.Surface = vk.NullSurface
	}

	if vr.context.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, vr.context.Allocator)
	}

	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)
	return nil
}

// Resized records the new framebuffer size and bumps the size generation so
// the next BeginFrame recreates the swapchain.
func (vr *VulkanRenderer) Resized(width, height uint32) {
	vr.cachedFramebufferWidth = width
	vr.cachedFramebufferHeight = height
	vr.context.FramebufferSizeGeneration++
	core.LogInfo("vulkan backend resized: w/h/gen: %d/%d/%d", width, height, vr.context.FramebufferSizeGeneration)
}

func (vr *VulkanRenderer) DrawableSize() (uint32, uint32) {
	return vr.context.Swapchain.Extent.Width, vr.context.Swapchain.Extent.Height
}

func (vr *VulkanRenderer) BeginFrame() error {
	device := vr.context.Device

	// Boot out while a swapchain recreation is in flight.
	if vr.context.RecreatingSwapchain {
		if result := vk.DeviceWaitIdle(device.LogicalDevice); !VulkanResultIsSuccess(result) {
			err := fmt.Errorf("beginFrame vkDeviceWaitIdle failed: %s", VulkanResultString(result))
			core.LogError(err.Error())
			return err
		}
		core.LogInfo("Recreating swapchain, booting.")
		return core.ErrSwapchainBooting
	}

	// A resize happened since the swapchain was built.
	if vr.context.FramebufferSizeGeneration != vr.context.FramebufferSizeLastGeneration {
		if result := vk.DeviceWaitIdle(device.LogicalDevice); !VulkanResultIsSuccess(result) {
			err := fmt.Errorf("beginFrame vkDeviceWaitIdle failed: %s", VulkanResultString(result))
			core.LogError(err.Error())
			return err
		}
		if !vr.recreateSwapchain() {
			return core.ErrSwapchainBooting
		}
		core.LogInfo("Resized, booting.")
		return core.ErrSwapchainBooting
	}

	// Wait for this frame slot's previous submission to retire.
	if !vr.context.InFlightFences[vr.context.CurrentFrame].FenceWait(vr.context, math.MaxUint64) {
		err := fmt.Errorf("in-flight fence wait failure")
		core.LogWarn(err.Error())
		return err
	}

	imageIndex, ok := vr.context.Swapchain.SwapchainAcquireNextImageIndex(vr.context, math.MaxUint64, vr.context.ImageAvailableSemaphores[vr.context.CurrentFrame], vk.NullFence)
	if !ok {
		return core.ErrSwapchainBooting
	}
	vr.context.ImageIndex = imageIndex

	// Everything this frame slot allocated last time around has retired.
	if res := vk.ResetDescriptorPool(device.LogicalDevice, vr.context.FrameDescriptorPools[vr.context.CurrentFrame], 0); res != vk.Success {
		core.LogWarn("failed to reset frame descriptor pool: %s", VulkanResultString(res))
	}

	commandBuffer := vr.context.GraphicsCommandBuffers[vr.context.ImageIndex]
	commandBuffer.Reset()
	return commandBuffer.Begin(false, false, false)
}

func (vr *VulkanRenderer) BeginRenderPass(rp *metadata.RenderPass, fb *metadata.Framebuffer) {
	commandBuffer := vr.context.GraphicsCommandBuffers[vr.context.ImageIndex]
	renderpass := rp.InternalData.(*VulkanRenderpass)
	framebuffer := fb.InternalData.(*VulkanFramebuffer)

	vr.currentPassHeight = fb.Height
	renderpass.RenderpassBegin(commandBuffer, framebuffer.Handle, fb.Width, fb.Height)

	// Viewport and scissor default to the full framebuffer, flipped so that
	// the renderer's bottom-left origin comes out right side up.
	vr.SetViewport(0, 0, fb.Width, fb.Height)
	vr.SetScissor(0, 0, fb.Width, fb.Height)
}

func (vr *VulkanRenderer) EndRenderPass() {
	commandBuffer := vr.context.GraphicsCommandBuffers[vr.context.ImageIndex]
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
	vr.boundPipeline = nil
}

func (vr *VulkanRenderer) BindPipeline(pipeline *metadata.Pipeline) {
	commandBuffer := vr.context.GraphicsCommandBuffers[vr.context.ImageIndex]
	vp := pipeline.InternalData.(*VulkanPipeline)
	vp.Bind(commandBuffer)
	vr.boundPipeline = vp
}

// SetViewport flips the viewport upside down so a bottom-left origin
// frontend coordinate system renders right side up.
func (vr *VulkanRenderer) SetViewport(x, y int32, width, height uint32) {
	commandBuffer := vr.context.GraphicsCommandBuffers[vr.context.ImageIndex]
	viewport := vk.Viewport{
		X:        float32(x),
		Y:        float32(int32(vr.currentPassHeight) - y),
		Width:    float32(width),
		Height:   -float32(height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	vk.CmdSetViewport(commandBuffer.Handle, 0, 1, []vk.Viewport{viewport})
}

func (vr *VulkanRenderer) SetScissor(x, y int32, width, height uint32) {
	commandBuffer := vr.context.GraphicsCommandBuffers[vr.context.ImageIndex]
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{
			X: x,
			Y: int32(vr.currentPassHeight) - (y + int32(height)),
		},
		Extent: vk.Extent2D{
			Width:  width,
			Height: height,
		},
	}
	vk.CmdSetScissor(commandBuffer.Handle, 0, 1, []vk.Rect2D{scissor})
}

func (vr *VulkanRenderer) BindVertexBuffer(binding uint32, buffer *metadata.Buffer) {
	commandBuffer := vr.context.GraphicsCommandBuffers[vr.context.ImageIndex]
	handle, offset, _ := resolveBufferBinding(vr.context, buffer)
	vk.CmdBindVertexBuffers(commandBuffer.Handle, binding, 1, []vk.Buffer{handle}, []vk.DeviceSize{offset})
}

func (vr *VulkanRenderer) BindIndexBuffer(buffer *metadata.Buffer, index16Bit bool) {
	commandBuffer := vr.context.GraphicsCommandBuffers[vr.context.ImageIndex]
	handle, offset, _ := resolveBufferBinding(vr.context, buffer)
	indexType := vk.IndexTypeUint32
	if index16Bit {
		indexType = vk.IndexTypeUint16
	}
	vk.CmdBindIndexBuffer(commandBuffer.Handle, handle, offset, indexType)
}

func (vr *VulkanRenderer) BindDescriptorSet(index uint32, layout *metadata.DescriptorSetLayout, descriptors []metadata.BoundDescriptor) {
	commandBuffer := vr.context.GraphicsCommandBuffers[vr.context.ImageIndex]
	vl := layout.InternalData.(*VulkanDescriptorSetLayout)

	set, err := AllocateAndWriteDescriptorSet(vr.context, vl.Handle, descriptors)
	if err != nil {
		return
	}
	vk.CmdBindDescriptorSets(commandBuffer.Handle, vk.PipelineBindPointGraphics,
		vr.boundPipeline.PipelineLayout, index, 1, []vk.DescriptorSet{set}, 0, nil)
}

func (vr *VulkanRenderer) Draw(firstVertex, vertexCount uint32) {
	commandBuffer := vr.context.GraphicsCommandBuffers[vr.context.ImageIndex]
	vk.CmdDraw(commandBuffer.Handle, vertexCount, 1, firstVertex, 0)
}

func (vr *VulkanRenderer) DrawIndexed(vertexCount, firstIndex uint32) {
	commandBuffer := vr.context.GraphicsCommandBuffers[vr.context.ImageIndex]
	vk.CmdDrawIndexed(commandBuffer.Handle, vertexCount, 1, firstIndex, 0, 0)
}

func (vr *VulkanRenderer) DrawIndexedInstanced(vertexCount, instanceCount uint32) {
	commandBuffer := vr.context.GraphicsCommandBuffers[vr.context.ImageIndex]
	vk.CmdDrawIndexed(commandBuffer.Handle, vertexCount, instanceCount, 0, 0, 0)
}

func (vr *VulkanRenderer) LayoutTransition(rt *metadata.RenderTarget, from, to metadata.Layout) {
	commandBuffer := vr.context.GraphicsCommandBuffers[vr.context.ImageIndex]
	image := rt.InternalData.(*VulkanImage)
	image.TransitionLayout(commandBuffer, 1, VulkanImageLayout(from), VulkanImageLayout(to))
}

func (vr *VulkanRenderer) PresentFrame(rt *metadata.RenderTarget) error {
	commandBuffer := vr.context.GraphicsCommandBuffers[vr.context.ImageIndex]
	swapchainImage := vr.context.Swapchain.Images[vr.context.ImageIndex]
	extent := vr.context.Swapchain.Extent
	source := rt.InternalData.(*VulkanImage)

	// Blit the presented render target onto the acquired swapchain image.
	vr.swapchainImageBarrier(commandBuffer, swapchainImage,
		vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal,
		0, vk.AccessFlags(vk.AccessTransferWriteBit))

	blit := vk.ImageBlit{
		SrcSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		SrcOffsets: [2]vk.Offset3D{
			{X: 0, Y: 0, Z: 0},
			{X: int32(source.Width), Y: int32(source.Height), Z: 1},
		},
		DstSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		DstOffsets: [2]vk.Offset3D{
			{X: 0, Y: 0, Z: 0},
			{X: int32(extent.Width), Y: int32(extent.Height), Z: 1},
		},
	}
	vk.CmdBlitImage(commandBuffer.Handle,
		source.Handle, vk.ImageLayoutTransferSrcOptimal,
		swapchainImage, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageBlit{blit}, vk.FilterNearest)

	vr.swapchainImageBarrier(commandBuffer, swapchainImage,
		vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutPresentSrc,
		vk.AccessFlags(vk.AccessTransferWriteBit), 0)

	if err := commandBuffer.End(); err != nil {
		return err
	}

	// Make sure a previous frame is not still using this image.
	if vr.context.ImagesInFlight[vr.context.ImageIndex] != nil {
		vr.context.ImagesInFlight[vr.context.ImageIndex].FenceWait(vr.context, math.MaxUint64)
	}
	vr.context.ImagesInFlight[vr.context.ImageIndex] = vr.context.InFlightFences[vr.context.CurrentFrame]

	if err := vr.context.InFlightFences[vr.context.CurrentFrame].FenceReset(vr.context); err != nil {
		return err
	}

	// The first swapchain image access is the blit, so the acquire
	// semaphore gates the transfer stage.
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{commandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{vr.context.QueueCompleteSemaphores[vr.context.CurrentFrame]},
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{vr.context.ImageAvailableSemaphores[vr.context.CurrentFrame]},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageTransferBit)},
	}

	if result := vk.QueueSubmit(vr.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vr.context.InFlightFences[vr.context.CurrentFrame].Handle); result != vk.Success {
		err := fmt.Errorf("vkQueueSubmit failed: %s", VulkanResultString(result))
		core.LogError(err.Error())
		return err
	}
	commandBuffer.UpdateSubmitted()

	vr.context.Swapchain.SwapchainPresent(
		vr.context,
		vr.context.Device.PresentQueue,
		vr.context.QueueCompleteSemaphores[vr.context.CurrentFrame],
		vr.context.ImageIndex)

	return nil
}

func (vr *VulkanRenderer) RecreateRingBuffer(size uint32) error {
	if vr.context.RingBuffer != nil {
		// In-flight frames may still read the old allocation.
		vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)
		vr.context.RingBuffer.Destroy(vr.context)
		vr.context.RingBuffer = nil
	}
	rb, err := RingBufferCreate(vr.context, size)
	if err != nil {
		return err
	}
	vr.context.RingBuffer = rb
	return nil
}

func (vr *VulkanRenderer) RingWrite(offset uint32, data []byte) {
	vr.context.RingBuffer.Write(offset, data)
}

func (vr *VulkanRenderer) CreateBuffer(buffer *metadata.Buffer, contents []byte) error {
	vb, err := BufferCreateWithData(vr.context, buffer.Type, contents)
	if err != nil {
		return err
	}
	buffer.InternalData = vb
	return nil
}

func (vr *VulkanRenderer) DestroyBuffer(buffer *metadata.Buffer) {
	if buffer.RingBufferAlloc || buffer.InternalData == nil {
		return
	}
	buffer.InternalData.(*VulkanBuffer).BufferDestroy(vr.context)
	buffer.InternalData = nil
}

func (vr *VulkanRenderer) CreateTexture(texture *metadata.Texture, desc *metadata.TextureDesc) error {
	mipLevels := uint32(len(desc.MipData))
	image, err := ImageCreate(vr.context,
		desc.Width, desc.Height, mipLevels,
		VulkanFormat(desc.Format),
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageSampledBit)|vk.ImageUsageFlags(vk.ImageUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		true,
		vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		return err
	}

	if err := vr.uploadTextureMips(image, desc); err != nil {
		image.ImageDestroy(vr.context)
		return err
	}

	texture.InternalData = image
	return nil
}

// uploadTextureMips copies every mip level through one staging buffer and
// leaves the image in shader read layout.
func (vr *VulkanRenderer) uploadTextureMips(image *VulkanImage, desc *metadata.TextureDesc) error {
	mipLevels := uint32(len(desc.MipData))

	var totalSize vk.DeviceSize
	for _, mip := range desc.MipData {
		totalSize += vk.DeviceSize(len(mip.Data))
	}

	staging, err := BufferCreate(vr.context, totalSize,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return err
	}
	defer staging.BufferDestroy(vr.context)

	var mapped unsafe.Pointer
	if res := vk.MapMemory(vr.context.Device.LogicalDevice, staging.Memory, 0, totalSize, 0, &mapped); res != vk.Success {
		return fmt.Errorf("failed to map texture staging buffer: %s", VulkanResultString(res))
	}
	regions := make([]vk.BufferImageCopy, mipLevels)
	var bufferOffset vk.DeviceSize
	for level := uint32(0); level < mipLevels; level++ {
		data := desc.MipData[level].Data
		vk.Memcopy(unsafe.Add(mapped, uintptr(bufferOffset)), data)

		regions[level] = vk.BufferImageCopy{
			BufferOffset: bufferOffset,
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:   level,
				LayerCount: 1,
			},
			ImageExtent: vk.Extent3D{
				Width:  max(desc.Width>>level, 1),
				Height: max(desc.Height>>level, 1),
				Depth:  1,
			},
		}
		bufferOffset += vk.DeviceSize(len(data))
	}
	vk.UnmapMemory(vr.context.Device.LogicalDevice, staging.Memory)

	cb, err := AllocateAndBeginSingleUse(vr.context, vr.context.Device.GraphicsCommandPool)
	if err != nil {
		return err
	}
	image.TransitionLayout(cb, mipLevels, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)
	vk.CmdCopyBufferToImage(cb.Handle, staging.Handle, image.Handle, vk.ImageLayoutTransferDstOptimal, mipLevels, regions)
	image.TransitionLayout(cb, mipLevels, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	return cb.EndSingleUse(vr.context, vr.context.Device.GraphicsCommandPool, vr.context.Device.GraphicsQueue)
}

func (vr *VulkanRenderer) DestroyTexture(texture *metadata.Texture) {
	if texture.InternalData == nil {
		return
	}
	texture.InternalData.(*VulkanImage).ImageDestroy(vr.context)
	texture.InternalData = nil
}

// CreateRenderTarget allocates the attachment image. The render target and
// its sampling texture share one image, so both records point at it.
func (vr *VulkanRenderer) CreateRenderTarget(rt *metadata.RenderTarget, texture *metadata.Texture) error {
	usage := vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit) |
		vk.ImageUsageFlags(vk.ImageUsageSampledBit) |
		vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit)
	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	if rt.Format.IsDepth() {
		usage = vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit) |
			vk.ImageUsageFlags(vk.ImageUsageSampledBit)
		aspect = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}

	image, err := ImageCreate(vr.context,
		rt.Width, rt.Height, 1,
		VulkanFormat(rt.Format),
		vk.ImageTilingOptimal,
		usage,
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		true,
		aspect)
	if err != nil {
		return err
	}

	rt.InternalData = image
	texture.InternalData = image
	return nil
}

func (vr *VulkanRenderer) DestroyRenderTarget(rt *metadata.RenderTarget) {
	if rt.InternalData == nil {
		return
	}
	// ImageDestroy nils its handles, so the shared texture record's destroy
	// is a no-op afterwards.
	rt.InternalData.(*VulkanImage).ImageDestroy(vr.context)
	rt.InternalData = nil
}

func (vr *VulkanRenderer) CreateRenderPass(rp *metadata.RenderPass) error {
	renderpass, err := RenderpassCreate(vr.context, &rp.Desc)
	if err != nil {
		return err
	}
	rp.InternalData = renderpass
	return nil
}

func (vr *VulkanRenderer) DestroyRenderPass(rp *metadata.RenderPass) {
	if rp.InternalData == nil {
		return
	}
	rp.InternalData.(*VulkanRenderpass).RenderpassDestroy(vr.context)
	rp.InternalData = nil
}

func (vr *VulkanRenderer) CreateFramebuffer(fb *metadata.Framebuffer, rp *metadata.RenderPass, colors []*metadata.RenderTarget, depthStencil *metadata.RenderTarget) error {
	var attachments []vk.ImageView
	for _, color := range colors {
		attachments = append(attachments, color.InternalData.(*VulkanImage).View)
	}
	if depthStencil != nil {
		attachments = append(attachments, depthStencil.InternalData.(*VulkanImage).View)
	}

	framebuffer, err := FramebufferCreate(vr.context, rp.InternalData.(*VulkanRenderpass), fb.Width, fb.Height, attachments)
	if err != nil {
		return err
	}
	fb.InternalData = framebuffer
	return nil
}

func (vr *VulkanRenderer) DestroyFramebuffer(fb *metadata.Framebuffer) {
	if fb.InternalData == nil {
		return
	}
	fb.InternalData.(*VulkanFramebuffer).Destroy(vr.context)
	fb.InternalData = nil
}

func (vr *VulkanRenderer) CreateSampler(sampler *metadata.Sampler, desc *metadata.SamplerDesc) error {
	vs, err := SamplerCreate(vr.context, desc)
	if err != nil {
		return err
	}
	sampler.InternalData = vs
	return nil
}

func (vr *VulkanRenderer) DestroySampler(sampler *metadata.Sampler) {
	if sampler.InternalData == nil {
		return
	}
	sampler.InternalData.(*VulkanSampler).Destroy(vr.context)
	sampler.InternalData = nil
}

func (vr *VulkanRenderer) CreateDescriptorSetLayout(layout *metadata.DescriptorSetLayout) error {
	vl, err := DescriptorSetLayoutCreate(vr.context, layout)
	if err != nil {
		return err
	}
	layout.InternalData = vl
	return nil
}

func (vr *VulkanRenderer) DestroyDescriptorSetLayout(layout *metadata.DescriptorSetLayout) {
	if layout.InternalData == nil {
		return
	}
	layout.InternalData.(*VulkanDescriptorSetLayout).Destroy(vr.context)
	layout.InternalData = nil
}

func (vr *VulkanRenderer) CreateVertexShader(shader *metadata.VertexShader, words []uint32) error {
	module, err := NewShaderModule(vr.context, shader.Name, words, vk.ShaderStageVertexBit)
	if err != nil {
		return err
	}
	shader.InternalData = module
	return nil
}

func (vr *VulkanRenderer) DestroyVertexShader(shader *metadata.VertexShader) {
	if shader.InternalData == nil {
		return
	}
	shader.InternalData.(*VulkanShaderModule).Destroy(vr.context)
	shader.InternalData = nil
}

func (vr *VulkanRenderer) CreateFragmentShader(shader *metadata.FragmentShader, words []uint32) error {
	module, err := NewShaderModule(vr.context, shader.Name, words, vk.ShaderStageFragmentBit)
	if err != nil {
		return err
	}
	shader.InternalData = module
	return nil
}

func (vr *VulkanRenderer) DestroyFragmentShader(shader *metadata.FragmentShader) {
	if shader.InternalData == nil {
		return
	}
	shader.InternalData.(*VulkanShaderModule).Destroy(vr.context)
	shader.InternalData = nil
}

func (vr *VulkanRenderer) CreatePipeline(pipeline *metadata.Pipeline, vs *metadata.VertexShader, fs *metadata.FragmentShader, rp *metadata.RenderPass, layouts []*metadata.DescriptorSetLayout) error {
	// Pipeline layouts are contiguous, unused set slots below the highest
	// used one get the empty placeholder layout.
	highest := -1
	for i, layout := range layouts {
		if layout != nil {
			highest = i
		}
	}
	setLayouts := make([]vk.DescriptorSetLayout, highest+1)
	for i := 0; i <= highest; i++ {
		if layouts[i] != nil {
			setLayouts[i] = layouts[i].InternalData.(*VulkanDescriptorSetLayout).Handle
		} else {
			setLayouts[i] = vr.context.EmptySetLayout
		}
	}

	colorAttachmentCount := 0
	for _, format := range rp.Desc.ColorFormats {
		if format != metadata.FormatInvalid {
			colorAttachmentCount++
		}
	}

	vp, err := NewGraphicsPipeline(vr.context, &pipeline.Desc,
		vs.InternalData.(*VulkanShaderModule),
		fs.InternalData.(*VulkanShaderModule),
		rp.InternalData.(*VulkanRenderpass),
		colorAttachmentCount,
		setLayouts)
	if err != nil {
		return err
	}
	pipeline.InternalData = vp
	return nil
}

func (vr *VulkanRenderer) DestroyPipeline(pipeline *metadata.Pipeline) {
	if pipeline.InternalData == nil {
		return
	}
	pipeline.InternalData.(*VulkanPipeline).Destroy(vr.context)
	pipeline.InternalData = nil
}

func (vr *VulkanRenderer) createCommandBuffers() error {
	if len(vr.context.GraphicsCommandBuffers) == 0 {
		vr.context.GraphicsCommandBuffers = make([]*VulkanCommandBuffer, vr.context.Swapchain.ImageCount)
	}
	for i := 0; i < int(vr.context.Swapchain.ImageCount); i++ {
		if vr.context.GraphicsCommandBuffers[i] != nil && vr.context.GraphicsCommandBuffers[i].Handle != nil {
			vr.context.GraphicsCommandBuffers[i].Free(vr.context, vr.context.Device.GraphicsCommandPool)
		}
		cb, err := NewVulkanCommandBuffer(vr.context, vr.context.Device.GraphicsCommandPool, true)
		if err != nil {
			return err
		}
		vr.context.GraphicsCommandBuffers[i] = cb
	}
	core.LogDebug("Vulkan command buffers created.")
	return nil
}

func (vr *VulkanRenderer) recreateSwapchain() bool {
	if vr.context.RecreatingSwapchain {
		core.LogDebug("recreateSwapchain called when already recreating. Booting.")
		return false
	}

	// A minimized window has no drawable area.
	if vr.cachedFramebufferWidth == 0 || vr.cachedFramebufferHeight == 0 {
		core.LogDebug("recreateSwapchain called when window is < 1 in a dimension. Booting.")
		return false
	}

	vr.context.RecreatingSwapchain = true
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	for i := range vr.context.ImagesInFlight {
		vr.context.ImagesInFlight[i] = nil
	}

	if err := DeviceQuerySwapchainSupport(vr.context.Device.PhysicalDevice, vr.context.Surface, &vr.context.Device.SwapchainSupport); err != nil {
		core.LogError("swapchain support query failed: %s", err)
		vr.context.RecreatingSwapchain = false
		return false
	}

	sc, err := vr.context.Swapchain.SwapchainRecreate(vr.context, vr.cachedFramebufferWidth, vr.cachedFramebufferHeight, vr.vsync)
	if err != nil {
		core.LogError("swapchain recreation failed: %s", err)
		vr.context.RecreatingSwapchain = false
		return false
	}
	vr.context.Swapchain = sc

	vr.context.FramebufferWidth = vr.cachedFramebufferWidth
	vr.context.FramebufferHeight = vr.cachedFramebufferHeight
	vr.cachedFramebufferWidth = 0
	vr.cachedFramebufferHeight = 0
	vr.context.FramebufferSizeLastGeneration = vr.context.FramebufferSizeGeneration

	vr.context.ImagesInFlight = make([]*VulkanFence, vr.context.Swapchain.ImageCount)
	if err := vr.createCommandBuffers(); err != nil {
		vr.context.RecreatingSwapchain = false
		return false
	}

	vr.context.RecreatingSwapchain = false
	return true
}

func (vr *VulkanRenderer) swapchainImageBarrier(cb *VulkanCommandBuffer, image vk.Image, oldLayout, newLayout vk.ImageLayout, srcAccess, dstAccess vk.AccessFlags) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
		SrcAccessMask: srcAccess,
		DstAccessMask: dstAccess,
	}
	vk.CmdPipelineBarrier(cb.Handle,
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		0,
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{barrier})
}

func instanceLayersAvailable(required []string) bool {
	var availableCount uint32
	if res := vk.EnumerateInstanceLayerProperties(&availableCount, nil); res != vk.Success {
		return false
	}
	available := make([]vk.LayerProperties, availableCount)
	if res := vk.EnumerateInstanceLayerProperties(&availableCount, available); res != vk.Success {
		return false
	}

	for _, name := range required {
		found := false
		for j := range available {
			available[j].Deref()
			end := FindFirstZeroInByteArray(available[j].LayerName[:])
			if name == vk.ToString(available[j].LayerName[:end+1]) {
				found = true
				break
			}
		}
		if !found {
			core.LogWarn("Required validation layer is missing: %s", name)
			return false
		}
	}
	return true
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
