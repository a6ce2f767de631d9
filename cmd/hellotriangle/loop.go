package main

import (
	"log/slog"
	"time"

	"github.com/loov/hrtime"

	"github.com/vkngwrapper/hellotriangle/config"
	"github.com/vkngwrapper/hellotriangle/internal/frame"
	"github.com/vkngwrapper/hellotriangle/internal/window"
)

type frameRenderer interface {
	RenderOneFrame() (frame.Frame, error)
	Stats() frame.Stats
}

type eventSource interface {
	PollEvents() []window.Event
}

// frameLoop renders frames until the window closes, the frame limit is hit or
// a frame fails. Rendering pauses while the window is minimized.
type frameLoop struct {
	renderer frameRenderer
	events   eventSource
	log      *slog.Logger
	cfg      *config.Config

	// idle is called instead of rendering while minimized.
	idle func()
}

func (l *frameLoop) run() error {
	idle := l.idle
	if idle == nil {
		idle = func() { time.Sleep(10 * time.Millisecond) }
	}

	rendering := true
	start := hrtime.Now()
	lastReport := start
	var lastFrames uint64

	for {
		for _, event := range l.events.PollEvents() {
			switch event {
			case window.EventQuit:
				l.report(start, hrtime.Now())
				return nil
			case window.EventMinimized:
				rendering = false
			case window.EventRestored:
				rendering = true
			}
		}

		if !rendering {
			idle()
			continue
		}

		f, err := l.renderer.RenderOneFrame()
		if err != nil {
			return err
		}

		if l.cfg.MaxFrames > 0 && f.Number+1 >= uint64(l.cfg.MaxFrames) {
			l.report(start, hrtime.Now())
			return nil
		}

		if l.cfg.StatsInterval > 0 {
			now := hrtime.Now()
			if elapsed := now - lastReport; elapsed >= l.cfg.StatsInterval {
				stats := l.renderer.Stats()
				l.log.Info("frame rate",
					"fps", float64(stats.Frames-lastFrames)/elapsed.Seconds(),
					"frames", stats.Frames)
				lastReport = now
				lastFrames = stats.Frames
			}
		}
	}
}

func (l *frameLoop) report(start, end time.Duration) {
	stats := l.renderer.Stats()
	l.log.Info("frame loop finished",
		"frames", stats.Frames,
		"elapsed", end-start,
		"slotWaits", stats.SlotWaits,
		"imageWaits", stats.ImageWaits,
		"suboptimal", stats.Suboptimal,
		"fenceWait", stats.WaitTime)
}
