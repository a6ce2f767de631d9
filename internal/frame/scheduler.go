// Package frame implements the frames-in-flight synchronization protocol that
// sits between a single CPU submission thread and an asynchronous GPU.
//
// The Scheduler owns K frame slots, each with an image-available semaphore, a
// render-finished semaphore and a CPU-waitable fence, plus a per-swapchain-image
// record of which slot's fence last claimed that image. Handle types are type
// parameters so the protocol can be driven by the Vulkan device in package
// renderer or by a fake in tests.
package frame

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"

	"github.com/vkngwrapper/hellotriangle/gfxerr"
)

// Device is the GPU functionality the scheduler drives. F is the fence handle
// type and S the semaphore handle type.
type Device[F, S any] interface {
	CreateSemaphore() (S, error)
	// CreateFence creates a fence, already signaled when signaled is true.
	CreateFence(signaled bool) (F, error)
	DestroySemaphore(S)
	DestroyFence(F)

	// WaitForFence blocks without timeout until the fence is signaled.
	WaitForFence(F) error
	ResetFence(F) error

	// AcquireNextImage returns the index of the next presentable image and
	// arranges for signal to be signaled once the image is usable.
	AcquireNextImage(signal S) (image int, suboptimal bool, err error)

	// Submit queues the prerecorded work for image. The work waits for wait
	// at the color attachment output stage, then signals signal and fence.
	Submit(image int, wait, signal S, fence F) error

	// Present queues image for presentation once wait is signaled.
	Present(image int, wait S) (suboptimal bool, err error)
}

// Slot is one frame-in-flight context.
type Slot[F, S any] struct {
	ImageAvailable S
	RenderFinished S
	InFlight       F
}

// Frame describes one completed RenderFrame call.
type Frame struct {
	Number     uint64
	Slot       int
	Image      int
	Suboptimal bool
}

type Stats struct {
	Frames     uint64
	SlotWaits  uint64
	ImageWaits uint64
	Suboptimal uint64
	// WaitTime is the CPU time spent blocked on fences.
	WaitTime time.Duration
}

const noSlot = -1

type Scheduler[F, S any] struct {
	device Device[F, S]
	slots  []Slot[F, S]

	// imagesInFlight[i] is the slot whose fence last claimed image i, or noSlot.
	imagesInFlight []int

	frame uint64
	stats Stats
}

// New creates framesInFlight slots for a swap chain of imageCount images.
// Fences start signaled so the first wait on each slot returns immediately.
// If any creation fails, everything created so far is destroyed.
func New[F, S any](device Device[F, S], framesInFlight, imageCount int) (*Scheduler[F, S], error) {
	if framesInFlight < 1 {
		return nil, errors.Newf("frame: frames in flight must be at least 1, got %d", framesInFlight)
	}
	if imageCount < 1 {
		return nil, errors.Newf("frame: swapchain must have at least one image, got %d", imageCount)
	}

	s := &Scheduler[F, S]{
		device:         device,
		imagesInFlight: make([]int, imageCount),
	}
	for i := range s.imagesInFlight {
		s.imagesInFlight[i] = noSlot
	}

	for i := 0; i < framesInFlight; i++ {
		slot, err := s.createSlot()
		if err != nil {
			s.Destroy()
			return nil, gfxerr.ResourceCreation(err, "frame: create sync objects")
		}
		s.slots = append(s.slots, slot)
	}

	return s, nil
}

func (s *Scheduler[F, S]) createSlot() (Slot[F, S], error) {
	var slot Slot[F, S]

	imageAvailable, err := s.device.CreateSemaphore()
	if err != nil {
		return slot, err
	}

	renderFinished, err := s.device.CreateSemaphore()
	if err != nil {
		s.device.DestroySemaphore(imageAvailable)
		return slot, err
	}

	fence, err := s.device.CreateFence(true)
	if err != nil {
		s.device.DestroySemaphore(renderFinished)
		s.device.DestroySemaphore(imageAvailable)
		return slot, err
	}

	slot.ImageAvailable = imageAvailable
	slot.RenderFinished = renderFinished
	slot.InFlight = fence
	return slot, nil
}

// RenderFrame runs one acquire, submit, present cycle on the calling thread.
// It blocks on the current slot's fence and, if the acquired image is still
// claimed by a frame whose completion has not been observed, on that frame's
// fence as well.
func (s *Scheduler[F, S]) RenderFrame() (Frame, error) {
	if len(s.slots) == 0 {
		return Frame{}, gfxerr.Submission(errors.New("scheduler destroyed"), "frame: render")
	}
	slotIndex := int(s.frame % uint64(len(s.slots)))
	slot := &s.slots[slotIndex]

	if err := s.wait(slot.InFlight); err != nil {
		return Frame{}, gfxerr.Submission(err, "frame: wait for frame slot fence")
	}
	s.stats.SlotWaits++
	s.releaseImages(slotIndex)

	image, acquireSuboptimal, err := s.device.AcquireNextImage(slot.ImageAvailable)
	if err != nil {
		return Frame{}, gfxerr.Presentation(err, "frame: acquire next image")
	}
	if image < 0 || image >= len(s.imagesInFlight) {
		return Frame{}, gfxerr.Presentation(
			errors.Newf("image index %d outside swapchain of %d images", image, len(s.imagesInFlight)),
			"frame: acquire next image")
	}

	if owner := s.imagesInFlight[image]; owner != noSlot {
		if err := s.wait(s.slots[owner].InFlight); err != nil {
			return Frame{}, gfxerr.Submission(err, "frame: wait for image fence")
		}
		s.stats.ImageWaits++
		s.releaseImages(owner)
	}
	s.imagesInFlight[image] = slotIndex

	if err := s.device.ResetFence(slot.InFlight); err != nil {
		return Frame{}, gfxerr.Submission(err, "frame: reset frame slot fence")
	}

	if err := s.device.Submit(image, slot.ImageAvailable, slot.RenderFinished, slot.InFlight); err != nil {
		return Frame{}, gfxerr.Submission(err, "frame: submit command buffer")
	}

	presentSuboptimal, err := s.device.Present(image, slot.RenderFinished)
	if err != nil {
		return Frame{}, gfxerr.Presentation(err, "frame: present")
	}

	f := Frame{
		Number:     s.frame,
		Slot:       slotIndex,
		Image:      image,
		Suboptimal: acquireSuboptimal || presentSuboptimal,
	}
	if f.Suboptimal {
		s.stats.Suboptimal++
	}

	s.frame++
	s.stats.Frames++
	return f, nil
}

// releaseImages forgets every image claimed by slot. Called once the slot's
// fence is known to be signaled: the frame holding those images has finished.
func (s *Scheduler[F, S]) releaseImages(slot int) {
	for i, owner := range s.imagesInFlight {
		if owner == slot {
			s.imagesInFlight[i] = noSlot
		}
	}
}

func (s *Scheduler[F, S]) wait(fence F) error {
	start := hrtime.Now()
	err := s.device.WaitForFence(fence)
	s.stats.WaitTime += hrtime.Since(start)
	return err
}

// FrameCounter is the number of frames fully submitted and presented.
func (s *Scheduler[F, S]) FrameCounter() uint64 {
	return s.frame
}

func (s *Scheduler[F, S]) FramesInFlight() int {
	return len(s.slots)
}

func (s *Scheduler[F, S]) Stats() Stats {
	return s.stats
}

// Destroy releases every slot's fence and semaphores. The device must be idle.
func (s *Scheduler[F, S]) Destroy() {
	for i := len(s.slots) - 1; i >= 0; i-- {
		s.device.DestroyFence(s.slots[i].InFlight)
		s.device.DestroySemaphore(s.slots[i].RenderFinished)
		s.device.DestroySemaphore(s.slots[i].ImageAvailable)
	}
	s.slots = nil
	for i := range s.imagesInFlight {
		s.imagesInFlight[i] = noSlot
	}
}
