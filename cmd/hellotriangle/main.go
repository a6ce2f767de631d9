// Command hellotriangle opens a window and draws a single colored triangle
// with Vulkan until the window is closed.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/vkngwrapper/hellotriangle/config"
	"github.com/vkngwrapper/hellotriangle/gfxerr"
	"github.com/vkngwrapper/hellotriangle/internal/window"
	"github.com/vkngwrapper/hellotriangle/renderer"
)

func main() {
	// SDL and the Vulkan queue submission path must stay on the main thread.
	runtime.LockOSThread()

	cfg := config.Default()
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if err := run(cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %+v\n", gfxerr.KindOf(err), err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	win, err := window.Open(cfg.AppName, cfg.Width, cfg.Height)
	if err != nil {
		return gfxerr.Initialization(err, "open window")
	}
	defer func() {
		if err := win.Close(); err != nil {
			logger.Warn("closing window", "err", err)
		}
	}()

	r, err := renderer.Initialize(cfg, win, logger)
	if err != nil {
		return err
	}

	loopErr := (&frameLoop{
		renderer: r,
		events:   win,
		log:      logger,
		cfg:      cfg,
	}).run()

	// Every submitted frame must finish before anything is destroyed, even
	// when the loop failed.
	if err := r.WaitIdle(); err != nil && loopErr == nil {
		loopErr = err
	}
	r.Shutdown()

	return loopErr
}
