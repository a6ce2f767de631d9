package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/hellotriangle/gfxerr"
	"github.com/vkngwrapper/hellotriangle/internal/frame"
)

// vkFrameDevice drives the frame protocol against the real device, queues and
// swap chain.
type vkFrameDevice struct {
	device    *Device
	swapchain *Swapchain
	commands  *Commands
}

var _ frame.Device[core1_0.Fence, core1_0.Semaphore] = (*vkFrameDevice)(nil)

func (d *vkFrameDevice) CreateSemaphore() (core1_0.Semaphore, error) {
	semaphore, _, err := d.device.Driver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	return semaphore, err
}

func (d *vkFrameDevice) CreateFence(signaled bool) (core1_0.Fence, error) {
	var flags core1_0.FenceCreateFlags
	if signaled {
		flags = core1_0.FenceCreateSignaled
	}
	fence, _, err := d.device.Driver.CreateFence(nil, core1_0.FenceCreateInfo{
		Flags: flags,
	})
	return fence, err
}

func (d *vkFrameDevice) DestroySemaphore(semaphore core1_0.Semaphore) {
	d.device.Driver.DestroySemaphore(semaphore, nil)
}

func (d *vkFrameDevice) DestroyFence(fence core1_0.Fence) {
	d.device.Driver.DestroyFence(fence, nil)
}

func (d *vkFrameDevice) WaitForFence(fence core1_0.Fence) error {
	_, err := d.device.Driver.WaitForFences(true, common.NoTimeout, fence)
	return err
}

func (d *vkFrameDevice) ResetFence(fence core1_0.Fence) error {
	_, err := d.device.Driver.ResetFences(fence)
	return err
}

func (d *vkFrameDevice) AcquireNextImage(signal core1_0.Semaphore) (int, bool, error) {
	imageIndex, res, err := d.swapchain.Driver.AcquireNextImage(d.swapchain.Handle, common.NoTimeout, &signal, nil)
	return imageIndex, res == khr_swapchain.VKSuboptimal, presentResult(res, err)
}

func (d *vkFrameDevice) Submit(image int, wait, signal core1_0.Semaphore, fence core1_0.Fence) error {
	_, err := d.device.Driver.QueueSubmit(d.device.GraphicsQueue, &fence,
		core1_0.SubmitInfo{
			WaitSemaphores:   []core1_0.Semaphore{wait},
			WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
			CommandBuffers:   []core1_0.CommandBuffer{d.commands.Buffers[image]},
			SignalSemaphores: []core1_0.Semaphore{signal},
		},
	)
	return err
}

func (d *vkFrameDevice) Present(image int, wait core1_0.Semaphore) (bool, error) {
	res, err := d.swapchain.Driver.QueuePresent(d.device.PresentQueue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{wait},
		Swapchains:     []khr_swapchain.Swapchain{d.swapchain.Handle},
		ImageIndices:   []int{image},
	})
	return res == khr_swapchain.VKSuboptimal, presentResult(res, err)
}

// presentResult marks an out-of-date surface so callers can tell it apart
// from other acquire and present failures.
func presentResult(res common.VkResult, err error) error {
	if res == khr_swapchain.VKErrorOutOfDate {
		if err == nil {
			err = errors.New("swapchain out of date")
		}
		return errors.Mark(err, gfxerr.ErrSurfaceOutOfDate)
	}
	return err
}

func (c *Context) createFrameScheduler() error {
	device := &vkFrameDevice{
		device:    c.device,
		swapchain: c.swapchain,
		commands:  c.commands,
	}

	scheduler, err := frame.New[core1_0.Fence, core1_0.Semaphore](device, c.cfg.FramesInFlight, len(c.swapchain.Images))
	if err != nil {
		return err
	}
	c.releases.push("frame sync objects", scheduler.Destroy)
	c.frames = scheduler

	return nil
}
