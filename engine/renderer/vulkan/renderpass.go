package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

type VulkanRenderpass struct {
	Handle vk.RenderPass
	// Clear values in attachment order, colors first then depth/stencil.
	ClearValues []vk.ClearValue
}

// RenderpassCreate builds the render pass declared by desc: every attachment
// is cleared on load, stored on end and transitioned to its declared final
// layout.
func RenderpassCreate(context *VulkanContext, desc *metadata.RenderPassDesc) (*VulkanRenderpass, error) {
	outRenderpass := &VulkanRenderpass{}

	var attachmentDescriptions []vk.AttachmentDescription
	var colorAttachmentReferences []vk.AttachmentReference

	for _, format := range desc.ColorFormats {
		if format == metadata.FormatInvalid {
			continue
		}

		finalLayout := VulkanImageLayout(desc.ColorFinalLayout)
		if finalLayout == vk.ImageLayoutUndefined {
			finalLayout = vk.ImageLayoutColorAttachmentOptimal
		}

		colorAttachment := vk.AttachmentDescription{
			Format:         VulkanFormat(format),
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			// Do not expect any particular layout before the pass starts.
			InitialLayout: vk.ImageLayoutUndefined,
			FinalLayout:   finalLayout,
		}
		colorAttachment.Deref()

		colorAttachmentReferences = append(colorAttachmentReferences, vk.AttachmentReference{
			Attachment: uint32(len(attachmentDescriptions)),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		})
		attachmentDescriptions = append(attachmentDescriptions, colorAttachment)

		var clear vk.ClearValue
		clear.SetColor(desc.ClearColorValue[:])
		outRenderpass.ClearValues = append(outRenderpass.ClearValues, clear)
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorAttachmentReferences)),
		PColorAttachments:    colorAttachmentReferences,
	}

	if desc.DepthStencilFormat != metadata.FormatInvalid {
		depthFinalLayout := vk.ImageLayoutDepthStencilAttachmentOptimal
		if l := VulkanImageLayout(desc.DepthStencilFinalLayout); l != vk.ImageLayoutUndefined {
			depthFinalLayout = l
		}

		depthAttachment := vk.AttachmentDescription{
			Format:         VulkanFormat(desc.DepthStencilFormat),
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpClear,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    depthFinalLayout,
		}
		depthAttachment.Deref()

		depthAttachmentReference := vk.AttachmentReference{
			Attachment: uint32(len(attachmentDescriptions)),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
		depthAttachmentReference.Deref()

		subpass.PDepthStencilAttachment = &depthAttachmentReference
		attachmentDescriptions = append(attachmentDescriptions, depthAttachment)

		var clear vk.ClearValue
		clear.SetDepthStencil(desc.ClearDepth, desc.ClearStencil)
		outRenderpass.ClearValues = append(outRenderpass.ClearValues, clear)
	}
	subpass.Deref()

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}
	dependency.Deref()

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}
	renderpassCreateInfo.Deref()

	var pRenderPass vk.RenderPass
	if res := vk.CreateRenderPass(context.Device.LogicalDevice, &renderpassCreateInfo, context.Allocator, &pRenderPass); res != vk.Success {
		err := fmt.Errorf("failed to create render pass %q: %s", desc.Name, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	outRenderpass.Handle = pRenderPass
	return outRenderpass, nil
}

func (vr *VulkanRenderpass) RenderpassDestroy(context *VulkanContext) {
	if vr.Handle != vk.NullRenderPass {
		vk.DestroyRenderPass(context.Device.LogicalDevice, vr.Handle, context.Allocator)
		vr.Handle = vk.NullRenderPass
	}
}

func (vr *VulkanRenderpass) RenderpassBegin(commandBuffer *VulkanCommandBuffer, framebuffer vk.Framebuffer, width, height uint32) {
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vr.Handle,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: width, Height: height},
		},
		ClearValueCount: uint32(len(vr.ClearValues)),
		PClearValues:    vr.ClearValues,
	}
	beginInfo.Deref()

	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (vr *VulkanRenderpass) RenderpassEnd(commandBuffer *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}
