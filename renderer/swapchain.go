package renderer

import (
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/hellotriangle/gfxerr"
)

// Swapchain holds the presentable images and one color view per image.
// Images and Views are index-aligned with the indices acquire returns.
type Swapchain struct {
	Driver khr_swapchain.ExtensionDriver
	Handle khr_swapchain.Swapchain

	Images []core1_0.Image
	Views  []core1_0.ImageView

	Format      core1_0.Format
	ColorSpace  khr_surface.ColorSpace
	PresentMode khr_surface.PresentMode
	Extent      core1_0.Extent2D
}

func (c *Context) createSwapchain() error {
	driver := khr_swapchain.CreateExtensionDriverFromCoreDriver(c.device.Driver)

	support, err := c.probe().SwapchainSupport(c.device.Physical)
	if err != nil {
		return gfxerr.Initialization(err, "query surface capabilities")
	}

	surfaceFormat, err := chooseSurfaceFormat(support.Formats)
	if err != nil {
		return gfxerr.ResourceCreation(err, "choose surface format")
	}
	presentMode := choosePresentMode(support.PresentModes)
	width, height := c.window.DrawableSize()
	extent := chooseExtent(support.Capabilities, width, height)
	imageCount := chooseImageCount(support.Capabilities)

	sharingMode := core1_0.SharingModeExclusive
	queueFamilyIndices := concurrentFamilies(c.device.Families)
	if queueFamilyIndices != nil {
		sharingMode = core1_0.SharingModeConcurrent
	}

	handle, _, err := driver.CreateSwapchain(nil, khr_swapchain.SwapchainCreateInfo{
		Surface: c.surface,

		MinImageCount:    imageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   sharingMode,
		QueueFamilyIndices: queueFamilyIndices,

		PreTransform:   support.Capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    presentMode,
		Clipped:        true,
	})
	if err != nil {
		return gfxerr.ResourceCreation(err, "create swapchain")
	}
	c.releases.push("swapchain", func() {
		driver.DestroySwapchain(handle, nil)
	})

	images, _, err := driver.GetSwapchainImages(handle)
	if err != nil {
		return gfxerr.ResourceCreation(err, "get swapchain images")
	}

	swapchain := &Swapchain{
		Driver:      driver,
		Handle:      handle,
		Images:      images,
		Format:      surfaceFormat.Format,
		ColorSpace:  surfaceFormat.ColorSpace,
		PresentMode: presentMode,
		Extent:      extent,
	}

	for _, image := range images {
		view, _, err := c.device.Driver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
			Image:    image,
			ViewType: core1_0.ImageViewType2D,
			Format:   swapchain.Format,
			Components: core1_0.ComponentMapping{
				R: core1_0.ComponentSwizzleIdentity,
				G: core1_0.ComponentSwizzleIdentity,
				B: core1_0.ComponentSwizzleIdentity,
				A: core1_0.ComponentSwizzleIdentity,
			},
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     core1_0.ImageAspectColor,
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		})
		if err != nil {
			return gfxerr.ResourceCreation(err, "create swapchain image view")
		}
		c.releases.push("swapchain image view", func() {
			c.device.Driver.DestroyImageView(view, nil)
		})
		swapchain.Views = append(swapchain.Views, view)
	}

	c.swapchain = swapchain
	c.log.Info("created swapchain",
		"images", len(images),
		"format", surfaceFormat.Format,
		"presentMode", presentMode,
		"width", extent.Width,
		"height", extent.Height)

	return nil
}
