package renderer

import (
	"context"

	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/hellotriangle/gfxerr"
	"github.com/vkngwrapper/hellotriangle/internal/shader"
)

// Pipeline is the fixed triangle pipeline plus the render pass it draws in and
// one framebuffer per swap chain view.
type Pipeline struct {
	RenderPass   core1_0.RenderPass
	Layout       core1_0.PipelineLayout
	Handle       core1_0.Pipeline
	Framebuffers []core1_0.Framebuffer
}

func (c *Context) buildPipeline() error {
	stages, err := shader.LoadFiles(context.Background(), c.cfg.VertexShaderPath, c.cfg.FragmentShaderPath)
	if err != nil {
		return gfxerr.ResourceCreation(err, "load shaders")
	}

	c.pipeline = &Pipeline{}

	if err := c.createRenderPass(); err != nil {
		return err
	}
	if err := c.createGraphicsPipeline(stages); err != nil {
		return err
	}
	return c.createFramebuffers()
}

// createRenderPass describes one color attachment that is cleared on load,
// stored, and handed to the presentation engine at the end of the pass.
func (c *Context) createRenderPass() error {
	renderPass, _, err := c.device.Driver.CreateRenderPass(nil, core1_0.RenderPassCreateInfo{
		Attachments: []core1_0.AttachmentDescription{
			{
				Format:         c.swapchain.Format,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    khr_swapchain.ImageLayoutPresentSrc,
			},
		},
		Subpasses: []core1_0.SubpassDescription{
			{
				PipelineBindPoint: core1_0.PipelineBindPointGraphics,
				ColorAttachments: []core1_0.AttachmentReference{
					{
						Attachment: 0,
						Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
					},
				},
			},
		},
		// The layout transition at the start of the pass must wait until the
		// acquired image is actually available.
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass: core1_0.SubpassExternal,
				DstSubpass: 0,

				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				SrcAccessMask: 0,

				DstStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				DstAccessMask: core1_0.AccessColorAttachmentWrite,
			},
		},
	})
	if err != nil {
		return gfxerr.ResourceCreation(err, "create render pass")
	}
	c.releases.push("render pass", func() {
		c.device.Driver.DestroyRenderPass(renderPass, nil)
	})
	c.pipeline.RenderPass = renderPass

	return nil
}

func (c *Context) createShaderModule(code shader.Bytecode) (core1_0.ShaderModule, error) {
	module, _, err := c.device.Driver.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: code,
	})
	return module, err
}

func (c *Context) createGraphicsPipeline(stages shader.Stages) error {
	vertShader, err := c.createShaderModule(stages.Vertex)
	if err != nil {
		return gfxerr.ResourceCreation(err, "create vertex shader module")
	}
	defer c.device.Driver.DestroyShaderModule(vertShader, nil)

	fragShader, err := c.createShaderModule(stages.Fragment)
	if err != nil {
		return gfxerr.ResourceCreation(err, "create fragment shader module")
	}
	defer c.device.Driver.DestroyShaderModule(fragShader, nil)

	// Vertices come from the vertex shader itself.
	vertexInput := &core1_0.PipelineVertexInputStateCreateInfo{}

	inputAssembly := &core1_0.PipelineInputAssemblyStateCreateInfo{
		Topology:               core1_0.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: false,
	}

	vertStage := core1_0.PipelineShaderStageCreateInfo{
		Stage:  core1_0.StageVertex,
		Module: vertShader,
		Name:   "main",
	}

	fragStage := core1_0.PipelineShaderStageCreateInfo{
		Stage:  core1_0.StageFragment,
		Module: fragShader,
		Name:   "main",
	}

	extent := c.swapchain.Extent
	viewport := &core1_0.PipelineViewportStateCreateInfo{
		Viewports: []core1_0.Viewport{
			{
				X:        0,
				Y:        0,
				Width:    float32(extent.Width),
				Height:   float32(extent.Height),
				MinDepth: 0,
				MaxDepth: 1,
			},
		},
		Scissors: []core1_0.Rect2D{
			{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: extent,
			},
		},
	}

	rasterization := &core1_0.PipelineRasterizationStateCreateInfo{
		DepthClampEnable:        false,
		RasterizerDiscardEnable: false,

		PolygonMode: core1_0.PolygonModeFill,
		CullMode:    core1_0.CullModeBack,
		FrontFace:   core1_0.FrontFaceClockwise,

		DepthBiasEnable: false,

		LineWidth: 1.0,
	}

	multisample := &core1_0.PipelineMultisampleStateCreateInfo{
		SampleShadingEnable:  false,
		RasterizationSamples: core1_0.Samples1,
		MinSampleShading:     1.0,
	}

	colorBlend := &core1_0.PipelineColorBlendStateCreateInfo{
		LogicOpEnabled: false,
		LogicOp:        core1_0.LogicOpCopy,

		BlendConstants: [4]float32{0, 0, 0, 0},
		Attachments: []core1_0.PipelineColorBlendAttachmentState{
			{
				BlendEnabled:   false,
				ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
			},
		},
	}

	layout, _, err := c.device.Driver.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{})
	if err != nil {
		return gfxerr.ResourceCreation(err, "create pipeline layout")
	}
	c.releases.push("pipeline layout", func() {
		c.device.Driver.DestroyPipelineLayout(layout, nil)
	})
	c.pipeline.Layout = layout

	pipelines, _, err := c.device.Driver.CreateGraphicsPipelines(nil, nil,
		core1_0.GraphicsPipelineCreateInfo{
			Stages: []core1_0.PipelineShaderStageCreateInfo{
				vertStage,
				fragStage,
			},
			VertexInputState:   vertexInput,
			InputAssemblyState: inputAssembly,
			ViewportState:      viewport,
			RasterizationState: rasterization,
			MultisampleState:   multisample,
			ColorBlendState:    colorBlend,
			Layout:             layout,
			RenderPass:         c.pipeline.RenderPass,
			Subpass:            0,
			BasePipelineIndex:  -1,
		},
	)
	if err != nil {
		return gfxerr.ResourceCreation(err, "create graphics pipeline")
	}
	handle := pipelines[0]
	c.releases.push("graphics pipeline", func() {
		c.device.Driver.DestroyPipeline(handle, nil)
	})
	c.pipeline.Handle = handle

	return nil
}

func (c *Context) createFramebuffers() error {
	for _, imageView := range c.swapchain.Views {
		framebuffer, _, err := c.device.Driver.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
			RenderPass: c.pipeline.RenderPass,
			Layers:     1,
			Attachments: []core1_0.ImageView{
				imageView,
			},
			Width:  c.swapchain.Extent.Width,
			Height: c.swapchain.Extent.Height,
		})
		if err != nil {
			return gfxerr.ResourceCreation(err, "create framebuffer")
		}
		c.releases.push("framebuffer", func() {
			c.device.Driver.DestroyFramebuffer(framebuffer, nil)
		})
		c.pipeline.Framebuffers = append(c.pipeline.Framebuffers, framebuffer)
	}

	return nil
}
