package renderer

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/hellotriangle/gfxerr"
)

func TestPresentResult(t *testing.T) {
	if err := presentResult(core1_0.VKSuccess, nil); err != nil {
		t.Errorf("success: %v", err)
	}
	if err := presentResult(khr_swapchain.VKSuboptimal, nil); err != nil {
		t.Errorf("suboptimal is not a failure: %v", err)
	}

	err := presentResult(khr_swapchain.VKErrorOutOfDate, nil)
	if !errors.Is(err, gfxerr.ErrSurfaceOutOfDate) {
		t.Errorf("out of date without driver error: %v", err)
	}

	driverErr := errors.New("VK_ERROR_OUT_OF_DATE_KHR")
	err = presentResult(khr_swapchain.VKErrorOutOfDate, driverErr)
	if !errors.Is(err, gfxerr.ErrSurfaceOutOfDate) || !errors.Is(err, driverErr) {
		t.Errorf("out of date with driver error: %v", err)
	}

	other := errors.New("device lost")
	if err := presentResult(core1_0.VKErrorDeviceLost, other); err != other {
		t.Errorf("other failures pass through, got %v", err)
	}
}
