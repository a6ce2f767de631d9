package renderer

import (
	"unsafe"

	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// Window is the presentation collaborator the renderer draws into.
type Window interface {
	// VulkanProcAddr returns the loader's vkGetInstanceProcAddr.
	VulkanProcAddr() unsafe.Pointer

	// VulkanInstanceExtensions lists the instance extensions the window's
	// presentation mechanism requires.
	VulkanInstanceExtensions() []string

	CreateSurface(instance core1_0.Instance, surfaceDriver khr_surface.ExtensionDriver) (khr_surface.Surface, error)

	// DrawableSize is the framebuffer size in pixels.
	DrawableSize() (width, height int)
}
