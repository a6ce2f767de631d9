// Package config holds the startup configuration shared by the window, the
// renderer and the frame loop. A Config is built once in main and passed by
// pointer; nothing in the module reads configuration from globals.
package config

import (
	"flag"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

const (
	DefaultFramesInFlight = 2
	DefaultWidth          = 800
	DefaultHeight         = 600
)

const ValidationLayer = "VK_LAYER_KHRONOS_validation"

type Config struct {
	AppName string
	Width   int
	Height  int

	// FramesInFlight is K: how many frames the CPU may record ahead of the GPU.
	FramesInFlight int

	// DeviceExtensions must always contain the swapchain extension.
	DeviceExtensions []string

	EnableValidation bool
	ValidationLayers []string

	VertexShaderPath   string
	FragmentShaderPath string

	ClearColor mgl32.Vec4

	LogLevel slog.Level

	// MaxFrames stops the loop after this many frames. Zero runs until the
	// window is closed.
	MaxFrames int

	// StatsInterval is how often the frame loop logs throughput. Zero disables it.
	StatsInterval time.Duration
}

func Default() *Config {
	return &Config{
		AppName:            "Hello Triangle",
		Width:              DefaultWidth,
		Height:             DefaultHeight,
		FramesInFlight:     DefaultFramesInFlight,
		DeviceExtensions:   []string{khr_swapchain.ExtensionName},
		EnableValidation:   true,
		ValidationLayers:   []string{ValidationLayer},
		VertexShaderPath:   "shaders/vert.spv",
		FragmentShaderPath: "shaders/frag.spv",
		ClearColor:         mgl32.Vec4{0, 0, 0, 1},
		LogLevel:           slog.LevelInfo,
		StatsInterval:      5 * time.Second,
	}
}

// RegisterFlags binds the configurable fields to fs, using the current values
// as defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.AppName, "name", c.AppName, "application name reported to the driver")
	fs.IntVar(&c.Width, "width", c.Width, "window width in pixels")
	fs.IntVar(&c.Height, "height", c.Height, "window height in pixels")
	fs.IntVar(&c.FramesInFlight, "frames-in-flight", c.FramesInFlight, "maximum number of frames the CPU may run ahead of the GPU")
	fs.BoolVar(&c.EnableValidation, "validation", c.EnableValidation, "enable validation layers and the debug messenger")
	fs.StringVar(&c.VertexShaderPath, "vert", c.VertexShaderPath, "path to the vertex shader SPIR-V")
	fs.StringVar(&c.FragmentShaderPath, "frag", c.FragmentShaderPath, "path to the fragment shader SPIR-V")
	fs.IntVar(&c.MaxFrames, "max-frames", c.MaxFrames, "stop after this many frames (0 runs until the window closes)")
	fs.DurationVar(&c.StatsInterval, "stats-interval", c.StatsInterval, "frame statistics logging interval (0 disables)")
	fs.TextVar(&c.LogLevel, "log-level", c.LogLevel, "log level (DEBUG, INFO, WARN, ERROR)")
	fs.Var((*extensionList)(&c.DeviceExtensions), "device-extension", "additional required device extension (repeatable)")
	fs.Var((*colorValue)(&c.ClearColor), "clear-color", "clear color as r,g,b,a in [0,1]")
}

// Validate reports the first problem found in c. The swapchain extension is
// appended when missing rather than rejected.
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Newf("config: window size %dx%d must be positive", c.Width, c.Height)
	}
	if c.FramesInFlight < 1 {
		return errors.Newf("config: frames in flight must be at least 1, got %d", c.FramesInFlight)
	}
	if c.VertexShaderPath == "" || c.FragmentShaderPath == "" {
		return errors.New("config: vertex and fragment shader paths are required")
	}
	if c.MaxFrames < 0 {
		return errors.Newf("config: max frames must not be negative, got %d", c.MaxFrames)
	}
	for i, v := range c.ClearColor {
		if v < 0 || v > 1 {
			return errors.Newf("config: clear color component %d out of range: %v", i, v)
		}
	}
	if c.EnableValidation && len(c.ValidationLayers) == 0 {
		return errors.New("config: validation enabled without any validation layers")
	}

	if !c.HasDeviceExtension(khr_swapchain.ExtensionName) {
		c.DeviceExtensions = append(c.DeviceExtensions, khr_swapchain.ExtensionName)
	}
	return nil
}

func (c *Config) HasDeviceExtension(name string) bool {
	for _, ext := range c.DeviceExtensions {
		if ext == name {
			return true
		}
	}
	return false
}

type extensionList []string

func (l *extensionList) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(*l, ",")
}

func (l *extensionList) Set(s string) error {
	if s == "" {
		return errors.New("empty extension name")
	}
	for _, ext := range *l {
		if ext == s {
			return nil
		}
	}
	*l = append(*l, s)
	return nil
}

type colorValue mgl32.Vec4

func (c *colorValue) String() string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("%g,%g,%g,%g", c[0], c[1], c[2], c[3])
}

func (c *colorValue) Set(s string) error {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return errors.Newf("want 4 comma separated components, got %d", len(parts))
	}

	var out mgl32.Vec4
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return errors.Wrapf(err, "component %d", i)
		}
		out[i] = float32(v)
	}
	*c = colorValue(out)
	return nil
}
