package renderer

import (
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v3/khr_surface"

	"github.com/vkngwrapper/hellotriangle/gfxerr"
)

// Device is the chosen adapter, the logical device opened on it and the two
// queues the renderer submits and presents on. GraphicsQueue and PresentQueue
// are the same queue when both roles share a family.
type Device struct {
	Physical core1_0.PhysicalDevice
	Driver   core1_0.CoreDeviceDriver
	Families QueueFamilyIndices

	GraphicsQueue core1_0.Queue
	PresentQueue  core1_0.Queue
}

// vkProbe answers deviceProbe questions against a live instance and surface.
type vkProbe struct {
	instance      core1_0.CoreInstanceDriver
	surfaceDriver khr_surface.ExtensionDriver
	surface       khr_surface.Surface
}

func (p vkProbe) QueueFamilies(device core1_0.PhysicalDevice) ([]queueFamily, error) {
	properties := p.instance.GetPhysicalDeviceQueueFamilyProperties(device)

	families := make([]queueFamily, len(properties))
	for idx, family := range properties {
		supported, _, err := p.surfaceDriver.GetPhysicalDeviceSurfaceSupport(p.surface, device, idx)
		if err != nil {
			return nil, err
		}

		families[idx] = queueFamily{
			Graphics: family.QueueFlags&core1_0.QueueGraphics != 0,
			Present:  supported,
		}
	}
	return families, nil
}

func (p vkProbe) Extensions(device core1_0.PhysicalDevice) ([]string, error) {
	extensions, _, err := p.instance.EnumerateDeviceExtensionProperties(device)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(extensions))
	for name := range extensions {
		names = append(names, name)
	}
	return names, nil
}

func (p vkProbe) SwapchainSupport(device core1_0.PhysicalDevice) (SwapchainSupport, error) {
	var support SwapchainSupport
	var err error

	support.Capabilities, _, err = p.surfaceDriver.GetPhysicalDeviceSurfaceCapabilities(p.surface, device)
	if err != nil {
		return support, err
	}

	support.Formats, _, err = p.surfaceDriver.GetPhysicalDeviceSurfaceFormats(p.surface, device)
	if err != nil {
		return support, err
	}

	support.PresentModes, _, err = p.surfaceDriver.GetPhysicalDeviceSurfacePresentModes(p.surface, device)
	return support, err
}

func (c *Context) probe() vkProbe {
	return vkProbe{instance: c.instance, surfaceDriver: c.surfaceDriver, surface: c.surface}
}

// selectDevice picks the first suitable adapter and opens a logical device
// with one queue per distinct family.
func (c *Context) selectDevice() error {
	physicalDevices, _, err := c.instance.EnumeratePhysicalDevices()
	if err != nil {
		return gfxerr.Initialization(err, "enumerate physical devices")
	}

	probe := c.probe()
	physical, indices, err := pickPhysicalDevice[core1_0.PhysicalDevice](c.log, probe, physicalDevices, c.cfg.DeviceExtensions)
	if err != nil {
		return gfxerr.Initialization(err, "pick physical device")
	}

	properties, err := c.instance.GetPhysicalDeviceProperties(physical)
	if err == nil {
		c.log.Info("selected physical device",
			"name", properties.DeviceName,
			"graphicsFamily", *indices.GraphicsFamily,
			"presentFamily", *indices.PresentFamily)
	}

	var queueFamilyOptions []core1_0.DeviceQueueCreateInfo
	queuePriority := float32(1.0)
	for _, queueFamily := range indices.Unique() {
		queueFamilyOptions = append(queueFamilyOptions, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: queueFamily,
			QueuePriorities:  []float32{queuePriority},
		})
	}

	var extensionNames []string
	extensionNames = append(extensionNames, c.cfg.DeviceExtensions...)

	// Portability implementations (MoltenVK) must enable the subset extension.
	available, err := probe.Extensions(physical)
	if err != nil {
		return gfxerr.Initialization(err, "enumerate device extensions")
	}
	if len(missingExtensions(available, []string{khr_portability_subset.ExtensionName})) == 0 {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	driver, _, err := c.instance.CreateDevice(physical, nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos:      queueFamilyOptions,
		EnabledFeatures:       &core1_0.PhysicalDeviceFeatures{},
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return gfxerr.Initialization(err, "create logical device")
	}
	c.releases.push("logical device", func() {
		driver.DestroyDevice(nil)
	})

	c.device = &Device{
		Physical:      physical,
		Driver:        driver,
		Families:      indices,
		GraphicsQueue: driver.GetQueue(*indices.GraphicsFamily, 0),
		PresentQueue:  driver.GetQueue(*indices.PresentFamily, 0),
	}

	return nil
}
