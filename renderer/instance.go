package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/v3/khr_surface"

	"github.com/vkngwrapper/hellotriangle/gfxerr"
)

func (c *Context) createInstance() error {
	var err error
	c.global, err = core.CreateDriverFromProcAddr(c.window.VulkanProcAddr())
	if err != nil {
		return gfxerr.Initialization(err, "load vulkan")
	}

	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    c.cfg.AppName,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "No Engine",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	extensions, _, err := c.global.AvailableExtensions()
	if err != nil {
		return gfxerr.Initialization(err, "enumerate instance extensions")
	}

	for _, ext := range c.window.VulkanInstanceExtensions() {
		if _, hasExt := extensions[ext]; !hasExt {
			return gfxerr.Initialization(errors.Newf("missing instance extension %s", ext), "create instance")
		}
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext)
	}

	if _, enumerationSupported := extensions[khr_portability_enumeration.ExtensionName]; enumerationSupported {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	if c.cfg.EnableValidation {
		if _, hasDebugUtils := extensions[ext_debug_utils.ExtensionName]; !hasDebugUtils {
			return gfxerr.Initialization(errors.Newf("missing instance extension %s", ext_debug_utils.ExtensionName), "create instance")
		}
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext_debug_utils.ExtensionName)

		layers, _, err := c.global.AvailableLayers()
		if err != nil {
			return gfxerr.Initialization(err, "enumerate instance layers")
		}

		for _, layer := range c.cfg.ValidationLayers {
			if _, hasLayer := layers[layer]; !hasLayer {
				return gfxerr.Initialization(
					errors.Newf("validation layer %s not available- install the LunarG Vulkan SDK or disable validation", layer),
					"create instance")
			}
			instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, layer)
		}

		// Chained so instance creation and destruction are validated too.
		instanceOptions.Next = c.debug.createInfo()
	}

	c.instance, _, err = c.global.CreateInstance(nil, instanceOptions)
	if err != nil {
		return gfxerr.Initialization(err, "create instance")
	}
	c.releases.push("instance", func() {
		c.instance.DestroyInstance(nil)
	})

	return nil
}

func (c *Context) setupDebugMessenger() error {
	if !c.cfg.EnableValidation {
		return nil
	}

	debugDriver := ext_debug_utils.CreateExtensionDriverFromCoreDriver(c.instance)
	messenger, _, err := debugDriver.CreateDebugUtilsMessenger(nil, c.debug.createInfo())
	if err != nil {
		return gfxerr.Initialization(err, "create debug messenger")
	}
	c.releases.push("debug messenger", func() {
		debugDriver.DestroyDebugUtilsMessenger(messenger, nil)
	})

	return nil
}

func (c *Context) createSurface() error {
	c.surfaceDriver = khr_surface.CreateExtensionDriverFromCoreDriver(c.instance)

	surface, err := c.window.CreateSurface(c.instance.Instance(), c.surfaceDriver)
	if err != nil {
		return gfxerr.Initialization(err, "create window surface")
	}
	c.surface = surface
	c.releases.push("surface", func() {
		c.surfaceDriver.DestroySurface(c.surface, nil)
	})

	return nil
}
