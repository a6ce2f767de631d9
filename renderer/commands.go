package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/hellotriangle/gfxerr"
)

// Commands holds one prerecorded command buffer per swap chain image.
// Buffers[i] clears and draws into framebuffer i and is resubmitted unchanged
// whenever image i is acquired.
type Commands struct {
	Pool    core1_0.CommandPool
	Buffers []core1_0.CommandBuffer
}

func clearValue(color mgl32.Vec4) core1_0.ClearValue {
	return core1_0.ClearValueFloat{color.X(), color.Y(), color.Z(), color.W()}
}

func (c *Context) recordCommands() error {
	pool, _, err := c.device.Driver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: *c.device.Families.GraphicsFamily,
	})
	if err != nil {
		return gfxerr.ResourceCreation(err, "create command pool")
	}
	c.releases.push("command pool", func() {
		c.device.Driver.DestroyCommandPool(pool, nil)
	})

	buffers, _, err := c.device.Driver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        pool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: len(c.swapchain.Images),
	})
	if err != nil {
		return gfxerr.ResourceCreation(err, "allocate command buffers")
	}
	c.releases.push("command buffers", func() {
		c.device.Driver.FreeCommandBuffers(buffers...)
	})

	c.commands = &Commands{Pool: pool, Buffers: buffers}

	clearColor := clearValue(c.cfg.ClearColor)
	for bufferIdx, buffer := range buffers {
		if err := c.record(buffer, c.pipeline.Framebuffers[bufferIdx], clearColor); err != nil {
			return gfxerr.ResourceCreation(err, "record command buffer")
		}
	}

	c.log.Debug("recorded command buffers", "count", len(buffers))
	return nil
}

func (c *Context) record(buffer core1_0.CommandBuffer, framebuffer core1_0.Framebuffer, clearColor core1_0.ClearValue) error {
	_, err := c.device.Driver.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{})
	if err != nil {
		return err
	}

	err = c.device.Driver.CmdBeginRenderPass(buffer, core1_0.SubpassContentsInline,
		core1_0.RenderPassBeginInfo{
			RenderPass:  c.pipeline.RenderPass,
			Framebuffer: framebuffer,
			RenderArea: core1_0.Rect2D{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: c.swapchain.Extent,
			},
			ClearValues: []core1_0.ClearValue{clearColor},
		})
	if err != nil {
		return err
	}

	c.device.Driver.CmdBindPipeline(buffer, core1_0.PipelineBindPointGraphics, c.pipeline.Handle)
	c.device.Driver.CmdDraw(buffer, 3, 1, 0, 0)
	c.device.Driver.CmdEndRenderPass(buffer)

	_, err = c.device.Driver.EndCommandBuffer(buffer)
	return err
}
