package frame

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/vkngwrapper/hellotriangle/gfxerr"
)

type fakeFence struct {
	id       int
	signaled bool
	pending  bool
}

type fakeSemaphore struct {
	id       int
	signaled bool
}

type event struct {
	op      string
	fence   *fakeFence
	image   int
	blocked bool
}

// fakeGPU completes submitted work lazily: a pending fence is signaled the
// moment the CPU waits on it, which is the latest point a real GPU could finish.
type fakeGPU struct {
	images     int
	acquire    []int
	next       int
	events     []event
	live       int
	nextID     int
	fences     []*fakeFence
	maxPending int

	failCreateFence int
	acquireErr      error
	submitErr       error
	presentErr      error
	waitErr         error
	suboptimal      bool
}

func (g *fakeGPU) CreateSemaphore() (*fakeSemaphore, error) {
	g.nextID++
	g.live++
	return &fakeSemaphore{id: g.nextID}, nil
}

func (g *fakeGPU) CreateFence(signaled bool) (*fakeFence, error) {
	if g.failCreateFence > 0 {
		g.failCreateFence--
		if g.failCreateFence == 0 {
			return nil, errors.New("out of device memory")
		}
	}
	g.nextID++
	g.live++
	f := &fakeFence{id: g.nextID, signaled: signaled}
	g.fences = append(g.fences, f)
	return f, nil
}

func (g *fakeGPU) DestroySemaphore(*fakeSemaphore) { g.live-- }
func (g *fakeGPU) DestroyFence(*fakeFence)         { g.live-- }

func (g *fakeGPU) WaitForFence(f *fakeFence) error {
	if g.waitErr != nil {
		return g.waitErr
	}
	blocked := false
	switch {
	case f.pending:
		f.pending = false
		f.signaled = true
		blocked = true
	case !f.signaled:
		return errors.Newf("deadlock: fence %d unsignaled with no pending work", f.id)
	}
	g.events = append(g.events, event{op: "wait", fence: f, blocked: blocked})
	return nil
}

func (g *fakeGPU) ResetFence(f *fakeFence) error {
	if f.pending {
		return errors.Newf("reset of fence %d while in use", f.id)
	}
	f.signaled = false
	g.events = append(g.events, event{op: "reset", fence: f})
	return nil
}

func (g *fakeGPU) AcquireNextImage(signal *fakeSemaphore) (int, bool, error) {
	if g.acquireErr != nil {
		return 0, false, g.acquireErr
	}
	var image int
	if len(g.acquire) > 0 {
		image = g.acquire[g.next%len(g.acquire)]
	} else {
		image = g.next % g.images
	}
	g.next++
	signal.signaled = true
	g.events = append(g.events, event{op: "acquire", image: image})
	return image, false, nil
}

func (g *fakeGPU) Submit(image int, wait, signal *fakeSemaphore, fence *fakeFence) error {
	if g.submitErr != nil {
		return g.submitErr
	}
	if !wait.signaled {
		return errors.Newf("submit waits on unsignaled semaphore %d", wait.id)
	}
	if fence.signaled || fence.pending {
		return errors.Newf("submit with fence %d not reset", fence.id)
	}
	wait.signaled = false
	signal.signaled = true
	fence.pending = true

	pending := 0
	for _, f := range g.fences {
		if f.pending {
			pending++
		}
	}
	if pending > g.maxPending {
		g.maxPending = pending
	}

	g.events = append(g.events, event{op: "submit", fence: fence, image: image})
	return nil
}

func (g *fakeGPU) Present(image int, wait *fakeSemaphore) (bool, error) {
	if g.presentErr != nil {
		return false, g.presentErr
	}
	if !wait.signaled {
		return false, errors.Newf("present waits on unsignaled semaphore %d", wait.id)
	}
	wait.signaled = false
	g.events = append(g.events, event{op: "present", image: image})
	return g.suboptimal, nil
}

func (g *fakeGPU) count(op string) int {
	n := 0
	for _, e := range g.events {
		if e.op == op {
			n++
		}
	}
	return n
}

func newScheduler(t *testing.T, gpu *fakeGPU, k int) *Scheduler[*fakeFence, *fakeSemaphore] {
	t.Helper()
	s, err := New[*fakeFence, *fakeSemaphore](gpu, k, gpu.images)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestTenFramesTwoSlotsThreeImages(t *testing.T) {
	gpu := &fakeGPU{images: 3}
	s := newScheduler(t, gpu, 2)

	var acquired []int
	for i := 0; i < 10; i++ {
		f, err := s.RenderFrame()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if f.Number != uint64(i) || f.Slot != i%2 {
			t.Fatalf("frame %d: got number %d slot %d", i, f.Number, f.Slot)
		}
		acquired = append(acquired, f.Image)
	}

	if got := gpu.count("submit"); got != 10 {
		t.Errorf("submissions = %d, want 10", got)
	}
	if got := gpu.count("present"); got != 10 {
		t.Errorf("presentations = %d, want 10", got)
	}
	if s.FrameCounter() != 10 {
		t.Errorf("FrameCounter() = %d", s.FrameCounter())
	}
	if gpu.maxPending > 2 {
		t.Errorf("%d frames in flight, limit is 2", gpu.maxPending)
	}

	// Walk the log frame by frame: each frame waits exactly once, on its slot
	// fence, and from frame K on that wait blocks on in-flight work.
	frame := 0
	waitsThisFrame := 0
	var presented []int
	var acquiredImage int
	for _, e := range gpu.events {
		switch e.op {
		case "wait":
			if e.fence != s.slots[frame%2].InFlight {
				t.Errorf("frame %d: waited on fence %d, not its slot fence", frame, e.fence.id)
			}
			if frame >= 2 && !e.blocked {
				t.Errorf("frame %d: slot wait did not block on in-flight work", frame)
			}
			waitsThisFrame++
		case "acquire":
			acquiredImage = e.image
		case "submit":
			if waitsThisFrame != 1 {
				t.Errorf("frame %d: %d fence waits before submit, want 1", frame, waitsThisFrame)
			}
			if e.image != acquiredImage {
				t.Errorf("frame %d: submitted image %d, acquired %d", frame, e.image, acquiredImage)
			}
		case "present":
			presented = append(presented, e.image)
			frame++
			waitsThisFrame = 0
		}
	}

	if fmt.Sprint(presented) != fmt.Sprint(acquired) {
		t.Errorf("presented %v, acquired %v", presented, acquired)
	}

	stats := s.Stats()
	if stats.Frames != 10 || stats.SlotWaits != 10 || stats.ImageWaits != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestImageReuseWaitsForOwningFrame(t *testing.T) {
	// The presentation engine hands back image 0 twice in a row while the
	// first frame using it is still in flight.
	gpu := &fakeGPU{images: 3, acquire: []int{0, 0}}
	s := newScheduler(t, gpu, 3)

	if _, err := s.RenderFrame(); err != nil {
		t.Fatal(err)
	}
	firstFence := s.slots[0].InFlight
	if !firstFence.pending {
		t.Fatal("first frame not in flight")
	}

	mark := len(gpu.events)
	if _, err := s.RenderFrame(); err != nil {
		t.Fatal(err)
	}

	var waitedOnFirst, submittedSecond bool
	for _, e := range gpu.events[mark:] {
		if e.op == "wait" && e.fence == firstFence && e.blocked {
			waitedOnFirst = true
		}
		if e.op == "submit" && e.fence == s.slots[1].InFlight {
			submittedSecond = true
			if !waitedOnFirst {
				t.Fatal("second frame submitted before the image's previous fence signaled")
			}
		}
	}
	if !submittedSecond {
		t.Fatal("second frame never submitted")
	}
	if s.Stats().ImageWaits != 1 {
		t.Errorf("ImageWaits = %d, want 1", s.Stats().ImageWaits)
	}
}

func TestSingleSlotNeverWaitsTwice(t *testing.T) {
	gpu := &fakeGPU{images: 2}
	s := newScheduler(t, gpu, 1)

	for i := 0; i < 5; i++ {
		if _, err := s.RenderFrame(); err != nil {
			t.Fatal(err)
		}
	}
	if got := gpu.count("wait"); got != 5 {
		t.Errorf("waits = %d, want 5", got)
	}
	if gpu.maxPending != 1 {
		t.Errorf("max in flight = %d", gpu.maxPending)
	}
}

func TestRenderFrameErrors(t *testing.T) {
	outOfDate := errors.Mark(errors.New("VK_ERROR_OUT_OF_DATE_KHR"), gfxerr.ErrSurfaceOutOfDate)

	tests := []struct {
		name      string
		gpu       *fakeGPU
		wantKind  gfxerr.Kind
		outOfDate bool
	}{
		{"wait", &fakeGPU{images: 3, waitErr: errors.New("device lost")}, gfxerr.KindSubmission, false},
		{"acquire", &fakeGPU{images: 3, acquireErr: errors.New("device lost")}, gfxerr.KindPresentation, false},
		{"acquire out of date", &fakeGPU{images: 3, acquireErr: outOfDate}, gfxerr.KindPresentation, true},
		{"acquire bad index", &fakeGPU{images: 3, acquire: []int{7}}, gfxerr.KindPresentation, false},
		{"submit", &fakeGPU{images: 3, submitErr: errors.New("device lost")}, gfxerr.KindSubmission, false},
		{"present", &fakeGPU{images: 3, presentErr: errors.New("surface lost")}, gfxerr.KindPresentation, false},
		{"present out of date", &fakeGPU{images: 3, presentErr: outOfDate}, gfxerr.KindPresentation, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScheduler(t, tt.gpu, 2)

			_, err := s.RenderFrame()
			if err == nil {
				t.Fatal("expected error")
			}
			if got := gfxerr.KindOf(err); got != tt.wantKind {
				t.Errorf("kind = %s, want %s (%v)", got, tt.wantKind, err)
			}
			if errors.Is(err, gfxerr.ErrSurfaceOutOfDate) != tt.outOfDate {
				t.Errorf("out-of-date mark = %v, want %v", !tt.outOfDate, tt.outOfDate)
			}
			if s.FrameCounter() != 0 {
				t.Errorf("frame counter advanced to %d on failure", s.FrameCounter())
			}
		})
	}
}

func TestSuboptimalIsReported(t *testing.T) {
	gpu := &fakeGPU{images: 3, suboptimal: true}
	s := newScheduler(t, gpu, 2)

	f, err := s.RenderFrame()
	if err != nil {
		t.Fatal(err)
	}
	if !f.Suboptimal {
		t.Error("frame not flagged suboptimal")
	}
	if s.Stats().Suboptimal != 1 {
		t.Errorf("Suboptimal = %d", s.Stats().Suboptimal)
	}
}

func TestNewValidatesCounts(t *testing.T) {
	if _, err := New[*fakeFence, *fakeSemaphore](&fakeGPU{images: 3}, 0, 3); err == nil {
		t.Error("accepted zero frames in flight")
	}
	if _, err := New[*fakeFence, *fakeSemaphore](&fakeGPU{images: 3}, 2, 0); err == nil {
		t.Error("accepted empty swapchain")
	}
}

func TestNewCleansUpOnFailure(t *testing.T) {
	// Second fence creation fails: slot 0 is complete, slot 1 has two semaphores.
	gpu := &fakeGPU{images: 3, failCreateFence: 2}

	_, err := New[*fakeFence, *fakeSemaphore](gpu, 2, 3)
	if err == nil {
		t.Fatal("expected error")
	}
	if gfxerr.KindOf(err) != gfxerr.KindResourceCreation {
		t.Errorf("kind = %s", gfxerr.KindOf(err))
	}
	if gpu.live != 0 {
		t.Errorf("%d sync objects leaked", gpu.live)
	}
}

func TestDestroyReleasesEverything(t *testing.T) {
	gpu := &fakeGPU{images: 3}
	s := newScheduler(t, gpu, 3)
	if gpu.live != 9 {
		t.Fatalf("live = %d, want 9", gpu.live)
	}

	s.Destroy()
	if gpu.live != 0 {
		t.Errorf("live = %d after Destroy", gpu.live)
	}
	if _, err := s.RenderFrame(); err == nil {
		t.Error("RenderFrame succeeded after Destroy")
	}
}
