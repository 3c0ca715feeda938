package moxpaper

import (
	"time"

	"github.com/gogpu/gputypes"

	"github.com/mox-desktop/moxpaper/internal/slots"
)

// Option configures an Engine during creation.
//
// Example:
//
//	eng, err := moxpaper.New(device, queue,
//	    moxpaper.WithSlotCapacity(16),
//	    moxpaper.WithSurfaceFormat(gputypes.TextureFormatRGBA8Unorm),
//	)
type Option func(*engineOptions)

type engineOptions struct {
	slotCapacity      int
	clock             func() time.Time
	surfaceFormat     gputypes.TextureFormat
	defaultTransition TransitionSpec
	eventBuffer       int
	clearColor        gputypes.Color
	submitTimeout     time.Duration
	rng               *randSource
}

// DefaultTransition is the transition used by requests that carry none.
var DefaultTransition = TransitionSpec{
	Style:    StyleSimple,
	Duration: 3 * time.Second,
	Easing:   EaseDefault,
}

func defaultOptions() engineOptions {
	return engineOptions{
		slotCapacity:      slots.DefaultCapacity,
		clock:             time.Now,
		surfaceFormat:     gputypes.TextureFormatBGRA8Unorm,
		defaultTransition: DefaultTransition,
		eventBuffer:       64,
		clearColor:        gputypes.Color{R: 0, G: 0, B: 0, A: 1},
	}
}

// WithSlotCapacity sets how many wallpaper textures stay resident on the
// GPU. Values below 2 are raised to 2 so an output can always hold an
// outgoing and an incoming layer.
func WithSlotCapacity(n int) Option {
	return func(o *engineOptions) {
		o.slotCapacity = max(n, 2)
	}
}

// WithClock replaces time.Now as the source of transition timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) {
		if now != nil {
			o.clock = now
		}
	}
}

// WithSurfaceFormat sets the texture format of the views surfaces return
// from AcquireView. The default is BGRA8Unorm.
func WithSurfaceFormat(f gputypes.TextureFormat) Option {
	return func(o *engineOptions) {
		o.surfaceFormat = f
	}
}

// WithDefaultTransition sets the transition used by requests whose
// Transition is nil.
func WithDefaultTransition(t TransitionSpec) Option {
	return func(o *engineOptions) {
		o.defaultTransition = t
	}
}

// WithEventBuffer sets the capacity of the host event queue.
func WithEventBuffer(n int) Option {
	return func(o *engineOptions) {
		o.eventBuffer = max(n, 1)
	}
}

// WithClearColor sets the colour outputs are cleared to behind their
// wallpapers. The default is opaque black.
func WithClearColor(c gputypes.Color) Option {
	return func(o *engineOptions) {
		o.clearColor = c
	}
}

// WithSubmitTimeout sets how long a frame waits for the GPU to finish
// before the output is treated as lost. Zero keeps the renderer default.
func WithSubmitTimeout(d time.Duration) Option {
	return func(o *engineOptions) {
		o.submitTimeout = max(d, 0)
	}
}

// WithSeed makes random transition choices reproducible.
func WithSeed(seed uint64) Option {
	return func(o *engineOptions) {
		o.rng = &randSource{seed: seed}
	}
}
