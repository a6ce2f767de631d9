package renderer

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/vkngwrapper/hellotriangle/config"
	"github.com/vkngwrapper/hellotriangle/gfxerr"
)

func TestRunStepsStopsAtFirstFailure(t *testing.T) {
	var ran []string
	step := func(name string, err error) initStep {
		return initStep{name: name, fn: func() error {
			ran = append(ran, name)
			return err
		}}
	}

	selectErr := errors.Wrap(gfxerr.ErrNoSuitableDevice, "failed to find GPUs with Vulkan support")
	err := runSteps(discardLogger(), []initStep{
		step("instance", nil),
		step("surface", nil),
		step("device", selectErr),
		step("swapchain", nil),
	})

	if got := strings.Join(ran, ","); got != "instance,surface,device" {
		t.Errorf("ran %q, want instance,surface,device", got)
	}
	if !errors.Is(err, gfxerr.ErrNoSuitableDevice) {
		t.Errorf("error %v lost its cause", err)
	}
	if gfxerr.KindOf(err) != gfxerr.KindInitialization {
		t.Errorf("kind = %s", gfxerr.KindOf(err))
	}
	if !strings.Contains(err.Error(), "init device") {
		t.Errorf("error %q does not name the failing step", err)
	}
}

func TestRunStepsAllSucceed(t *testing.T) {
	count := 0
	inc := func() error { count++; return nil }

	if err := runSteps(discardLogger(), []initStep{{"a", inc}, {"b", inc}, {"c", inc}}); err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("ran %d steps, want 3", count)
	}
}

func TestInitializeRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.FramesInFlight = 0

	c, err := Initialize(cfg, nil, discardLogger())
	if err == nil {
		t.Fatal("expected error")
	}
	if c != nil {
		t.Error("context returned alongside an error")
	}
	if gfxerr.KindOf(err) != gfxerr.KindInitialization {
		t.Errorf("kind = %s", gfxerr.KindOf(err))
	}
}

func TestRenderAfterShutdown(t *testing.T) {
	var buf bytes.Buffer
	c := &Context{log: slog.New(slog.NewTextHandler(&buf, nil))}
	c.Shutdown()
	c.Shutdown()

	if _, err := c.RenderOneFrame(); gfxerr.KindOf(err) != gfxerr.KindSubmission {
		t.Errorf("RenderOneFrame after Shutdown: %v", err)
	}
	if err := c.WaitIdle(); err != nil {
		t.Errorf("WaitIdle after Shutdown: %v", err)
	}
	if c.Stats().Frames != 0 {
		t.Error("stats survived shutdown")
	}
}
