// Package renderer brings up a Vulkan device against a window surface, builds
// the fixed triangle pipeline and its prerecorded command buffers, and drives
// frames through the frame scheduler.
//
// All methods must be called from the thread that owns the window.
package renderer

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"

	"github.com/vkngwrapper/hellotriangle/config"
	"github.com/vkngwrapper/hellotriangle/gfxerr"
	"github.com/vkngwrapper/hellotriangle/internal/frame"
)

// Context owns every GPU object the renderer creates. Objects are released in
// exact reverse order of creation by Shutdown.
type Context struct {
	cfg    *config.Config
	log    *slog.Logger
	window Window
	id     uuid.UUID

	global        core1_0.GlobalDriver
	instance      core1_0.CoreInstanceDriver
	debug         *debugLogger
	surfaceDriver khr_surface.ExtensionDriver
	surface       khr_surface.Surface

	device    *Device
	swapchain *Swapchain
	pipeline  *Pipeline
	commands  *Commands
	frames    *frame.Scheduler[core1_0.Fence, core1_0.Semaphore]

	releases releaser

	warnedSuboptimal bool
}

type initStep struct {
	name string
	fn   func() error
}

// runSteps runs steps in order and stops at the first failure.
func runSteps(log *slog.Logger, steps []initStep) error {
	for _, step := range steps {
		log.Debug("init", "step", step.name)
		if err := step.fn(); err != nil {
			return errors.Wrapf(err, "init %s", step.name)
		}
	}
	return nil
}

// Initialize creates the instance, surface, device, swap chain, pipeline,
// command buffers and frame sync objects, in that order. On failure everything
// already created is released before the error is returned.
func Initialize(cfg *config.Config, window Window, logger *slog.Logger) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, gfxerr.Initialization(err, "invalid config")
	}

	id := uuid.New()
	log := logger.With("context", id.String())

	c := &Context{
		cfg:    cfg,
		log:    log,
		window: window,
		id:     id,
		debug:  &debugLogger{log: log.With("source", "vulkan")},
	}

	err := runSteps(log, []initStep{
		{"instance", c.createInstance},
		{"debug messenger", c.setupDebugMessenger},
		{"surface", c.createSurface},
		{"device", c.selectDevice},
		{"swapchain", c.createSwapchain},
		{"pipeline", c.buildPipeline},
		{"command buffers", c.recordCommands},
		{"frame sync", c.createFrameScheduler},
	})
	if err != nil {
		log.Error("initialization failed, releasing partial state", "objects", c.releases.len(), "err", err)
		c.releases.releaseAll(log)
		return nil, err
	}

	log.Info("renderer initialized",
		"framesInFlight", cfg.FramesInFlight,
		"images", len(c.swapchain.Images),
		"validation", cfg.EnableValidation)
	return c, nil
}

// RenderOneFrame acquires an image, submits its prerecorded commands and
// queues it for presentation. A suboptimal swap chain is reported on the
// returned frame rather than as an error.
func (c *Context) RenderOneFrame() (frame.Frame, error) {
	if c.frames == nil {
		return frame.Frame{}, gfxerr.Submission(errors.New("renderer is shut down"), "render frame")
	}

	f, err := c.frames.RenderFrame()
	if err != nil {
		return f, err
	}

	if f.Suboptimal && !c.warnedSuboptimal {
		c.warnedSuboptimal = true
		c.log.Warn("swapchain no longer matches the surface exactly; continuing", "frame", f.Number)
	}

	return f, nil
}

// WaitIdle blocks until the device has finished all submitted work. Call it
// before Shutdown.
func (c *Context) WaitIdle() error {
	if c.device == nil {
		return nil
	}
	_, err := c.device.Driver.DeviceWaitIdle()
	return gfxerr.Submission(err, "wait for device idle")
}

// Shutdown releases every object in reverse creation order. It is safe to
// call more than once.
func (c *Context) Shutdown() {
	c.releases.releaseAll(c.log)
	c.frames = nil
	c.commands = nil
	c.pipeline = nil
	c.swapchain = nil
	c.device = nil
	c.log.Info("renderer shut down")
}

func (c *Context) Stats() frame.Stats {
	if c.frames == nil {
		return frame.Stats{}
	}
	return c.frames.Stats()
}

func (c *Context) ID() uuid.UUID {
	return c.id
}

// Extent is the swap chain image size in pixels.
func (c *Context) Extent() core1_0.Extent2D {
	if c.swapchain == nil {
		return core1_0.Extent2D{}
	}
	return c.swapchain.Extent
}
