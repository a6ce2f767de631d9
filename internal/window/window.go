// Package window wraps an SDL2 window created for Vulkan presentation.
package window

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v3"
)

type Event int

const (
	EventNone Event = iota
	EventQuit
	EventMinimized
	EventRestored
)

func (e Event) String() string {
	switch e {
	case EventQuit:
		return "quit"
	case EventMinimized:
		return "minimized"
	case EventRestored:
		return "restored"
	}
	return "none"
}

// Window is a fixed-size SDL2 window. It must be created, polled and closed on
// the thread that initialized SDL.
type Window struct {
	window *sdl.Window
}

// Open initializes SDL video and creates a non-resizable Vulkan window.
func Open(title string, width, height int) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, errors.Wrap(err, "init sdl video")
	}

	window, err := sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, int32(width), int32(height), sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "create window")
	}

	return &Window{window: window}, nil
}

func (w *Window) VulkanProcAddr() unsafe.Pointer {
	return sdl.VulkanGetVkGetInstanceProcAddr()
}

func (w *Window) VulkanInstanceExtensions() []string {
	return w.window.VulkanGetInstanceExtensions()
}

func (w *Window) CreateSurface(instance core1_0.Instance, surfaceDriver khr_surface.ExtensionDriver) (khr_surface.Surface, error) {
	return vkng_sdl2.CreateSurface(instance, surfaceDriver, w.window)
}

func (w *Window) DrawableSize() (width, height int) {
	drawableWidth, drawableHeight := w.window.VulkanGetDrawableSize()
	return int(drawableWidth), int(drawableHeight)
}

// PollEvents drains the SDL event queue and reports the state changes the
// frame loop cares about, in arrival order.
func (w *Window) PollEvents() []Event {
	var events []Event
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		if e := translate(event); e != EventNone {
			events = append(events, e)
		}
	}
	return events
}

func translate(event sdl.Event) Event {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		return EventQuit
	case *sdl.WindowEvent:
		switch e.Event {
		case sdl.WINDOWEVENT_MINIMIZED:
			return EventMinimized
		case sdl.WINDOWEVENT_RESTORED:
			return EventRestored
		}
	}
	return EventNone
}

// Close destroys the window and shuts SDL down. Call it after the renderer
// has released the surface.
func (w *Window) Close() error {
	err := w.window.Destroy()
	sdl.Quit()
	return errors.Wrap(err, "destroy window")
}
