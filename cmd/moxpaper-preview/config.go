package main

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/mox-desktop/moxpaper"
)

// config is the preview host's TOML configuration.
type config struct {
	Output     outputConfig
	Transition transitionConfig
	Slots      int
	Wallpaper  []wallpaperConfig
}

type outputConfig struct {
	Name       string
	Width      int
	Height     int
	Scale      float64
	Projection string
	// RefreshRate is how often the fake compositor answers frame requests.
	RefreshRate int `toml:"refresh_rate"`
}

type transitionConfig struct {
	Style      string
	DurationMS int `toml:"duration_ms"`
	Easing     string
	FPS        int
}

type wallpaperConfig struct {
	Path string
	// HoldMS is how long the wallpaper stays before the next one is set.
	HoldMS int `toml:"hold_ms"`

	Resize     string
	Background string
	Rect       []float32
	Container  []float32
	Radius     []float32
	Rotation   float32
	Blur       int
	BlurColor  string `toml:"blur_color"`
	Opacity    float32

	// Transition overrides the default transition when set.
	Transition *transitionConfig
}

func defaultConfig() config {
	return config{
		Output: outputConfig{
			Name:        "preview",
			Width:       1280,
			Height:      720,
			Scale:       1,
			Projection:  "direct",
			RefreshRate: 60,
		},
		Transition: transitionConfig{
			Style:      "simple",
			DurationMS: 3000,
		},
	}
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *config) geometry() (moxpaper.Geometry, error) {
	g := moxpaper.Geometry{
		Width:  c.Output.Width,
		Height: c.Output.Height,
		Scale:  c.Output.Scale,
	}
	switch strings.ToLower(c.Output.Projection) {
	case "", "direct":
		g.Projection = moxpaper.ProjectionDirect
	case "matrix":
		g.Projection = moxpaper.ProjectionMatrix
	default:
		return g, fmt.Errorf("unknown projection %q", c.Output.Projection)
	}
	return g, nil
}

func (t *transitionConfig) spec() (moxpaper.TransitionSpec, error) {
	style, err := moxpaper.ParseTransitionStyle(t.Style)
	if err != nil {
		return moxpaper.TransitionSpec{}, err
	}
	easing, err := moxpaper.ParseEasing(t.Easing)
	if err != nil {
		return moxpaper.TransitionSpec{}, err
	}
	return moxpaper.TransitionSpec{
		Style:    style,
		Duration: time.Duration(t.DurationMS) * time.Millisecond,
		Easing:   easing,
		FPS:      t.FPS,
	}, nil
}

// request builds the wallpaper's request without pixels.
func (w *wallpaperConfig) request() (moxpaper.Request, error) {
	var req moxpaper.Request
	var err error

	if req.Resize, err = moxpaper.ParseResizeStrategy(w.Resize); err != nil {
		return req, err
	}
	if w.Background != "" {
		if req.Background, err = parseHexColor(w.Background); err != nil {
			return req, err
		}
	}
	if w.BlurColor != "" {
		if req.BlurColor, err = parseHexColor(w.BlurColor); err != nil {
			return req, err
		}
	}
	if req.Rect, err = rectFrom("rect", w.Rect); err != nil {
		return req, err
	}
	if req.Container, err = rectFrom("container", w.Container); err != nil {
		return req, err
	}
	switch len(w.Radius) {
	case 0:
	case 1:
		req.Radius = [4]float32{w.Radius[0], w.Radius[0], w.Radius[0], w.Radius[0]}
	case 4:
		copy(req.Radius[:], w.Radius)
	default:
		return req, fmt.Errorf("radius needs 1 or 4 values, got %d", len(w.Radius))
	}
	req.Rotation = w.Rotation
	req.Blur = w.Blur
	req.Opacity = w.Opacity

	if w.Transition != nil {
		spec, err := w.Transition.spec()
		if err != nil {
			return req, err
		}
		req.Transition = &spec
	}
	return req, nil
}

func rectFrom(name string, v []float32) (moxpaper.Rect, error) {
	switch len(v) {
	case 0:
		return moxpaper.Rect{}, nil
	case 4:
		return moxpaper.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
	default:
		return moxpaper.Rect{}, fmt.Errorf("%s needs 4 values [x, y, width, height], got %d", name, len(v))
	}
}

// parseHexColor parses #rgb, #rrggbb or #rrggbbaa.
func parseHexColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
