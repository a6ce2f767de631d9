package renderer

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/extensions/v3/khr_surface"

	"github.com/vkngwrapper/hellotriangle/gfxerr"
)

type QueueFamilyIndices struct {
	GraphicsFamily *int
	PresentFamily  *int
}

func (i *QueueFamilyIndices) IsComplete() bool {
	return i.GraphicsFamily != nil && i.PresentFamily != nil
}

// Unique lists the distinct families, graphics first.
func (i *QueueFamilyIndices) Unique() []int {
	families := []int{*i.GraphicsFamily}
	if *i.PresentFamily != *i.GraphicsFamily {
		families = append(families, *i.PresentFamily)
	}
	return families
}

type SwapchainSupport struct {
	Capabilities *khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode
}

func (s *SwapchainSupport) Adequate() bool {
	return len(s.Formats) > 0 && len(s.PresentModes) > 0
}

type queueFamily struct {
	Graphics bool
	Present  bool
}

// deviceProbe answers the capability questions device selection asks about a
// physical device of type P.
type deviceProbe[P any] interface {
	QueueFamilies(device P) ([]queueFamily, error)
	Extensions(device P) ([]string, error)
	SwapchainSupport(device P) (SwapchainSupport, error)
}

// findQueueFamilies prefers one family that can both draw and present; failing
// that it takes the first graphics family and the first presenting family.
func findQueueFamilies(families []queueFamily) QueueFamilyIndices {
	indices := QueueFamilyIndices{}

	for idx, family := range families {
		if family.Graphics && family.Present {
			shared := idx
			return QueueFamilyIndices{GraphicsFamily: &shared, PresentFamily: &shared}
		}
	}

	for idx, family := range families {
		if family.Graphics && indices.GraphicsFamily == nil {
			graphics := idx
			indices.GraphicsFamily = &graphics
		}
		if family.Present && indices.PresentFamily == nil {
			present := idx
			indices.PresentFamily = &present
		}
	}

	return indices
}

func missingExtensions(available, required []string) []string {
	have := make(map[string]struct{}, len(available))
	for _, ext := range available {
		have[ext] = struct{}{}
	}

	var missing []string
	for _, ext := range required {
		if _, ok := have[ext]; !ok {
			missing = append(missing, ext)
		}
	}
	return missing
}

// checkDevice reports why device is unusable, or nil if it passes all four
// checks: graphics queue, present queue, required extensions, and a non-empty
// format and present-mode list for the surface.
func checkDevice[P any](probe deviceProbe[P], device P, required []string) (QueueFamilyIndices, error) {
	families, err := probe.QueueFamilies(device)
	if err != nil {
		return QueueFamilyIndices{}, errors.Wrap(err, "query queue families")
	}

	indices := findQueueFamilies(families)
	if indices.GraphicsFamily == nil {
		return indices, errors.New("no graphics queue family")
	}
	if indices.PresentFamily == nil {
		return indices, errors.New("no queue family can present to the surface")
	}

	extensions, err := probe.Extensions(device)
	if err != nil {
		return indices, errors.Wrap(err, "enumerate device extensions")
	}
	if missing := missingExtensions(extensions, required); len(missing) > 0 {
		return indices, errors.Newf("missing device extensions %v", missing)
	}

	support, err := probe.SwapchainSupport(device)
	if err != nil {
		return indices, errors.Wrap(err, "query swapchain support")
	}
	if !support.Adequate() {
		return indices, errors.Newf("surface offers %d formats and %d present modes", len(support.Formats), len(support.PresentModes))
	}

	return indices, nil
}

// pickPhysicalDevice returns the first device that passes checkDevice. There
// is no ranking between suitable devices.
func pickPhysicalDevice[P any](log *slog.Logger, probe deviceProbe[P], devices []P, required []string) (P, QueueFamilyIndices, error) {
	var none P

	if len(devices) == 0 {
		return none, QueueFamilyIndices{}, errors.Wrap(gfxerr.ErrNoSuitableDevice, "failed to find GPUs with Vulkan support")
	}

	for idx, device := range devices {
		indices, err := checkDevice(probe, device, required)
		if err != nil {
			log.Debug("physical device rejected", "index", idx, "reason", err)
			continue
		}
		return device, indices, nil
	}

	return none, QueueFamilyIndices{}, errors.Wrapf(gfxerr.ErrNoSuitableDevice, "none of %d physical devices qualified", len(devices))
}
