package moxpaper

import (
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/mox-desktop/moxpaper/internal/fit"
	"github.com/mox-desktop/moxpaper/internal/transition"
)

// OutputID names an output as the compositor reports it, e.g. "DP-1".
type OutputID string

// Rect is an axis-aligned rectangle in logical output coordinates with the
// origin at the top-left corner.
type Rect = transition.Rect

// Pixels is a decoded image: Width×Height pixels of 8-bit RGBA with
// premultiplied alpha, rows top to bottom, tightly packed. This is the
// layout of image.RGBA.Pix.
type Pixels struct {
	Data          []byte
	Width, Height int
}

func (p Pixels) valid() bool {
	return p.Width > 0 && p.Height > 0 && len(p.Data) >= p.Width*p.Height*4
}

// ResizeStrategy maps a source image onto its target rectangle.
type ResizeStrategy = fit.Strategy

// Resize strategies.
const (
	ResizeCrop    = fit.Crop
	ResizeNo      = fit.No
	ResizeFit     = fit.Fit
	ResizeStretch = fit.Stretch
)

// ParseResizeStrategy parses "crop", "no", "fit" or "stretch". The empty
// string is ResizeCrop.
func ParseResizeStrategy(s string) (ResizeStrategy, error) {
	return fit.ParseStrategy(s)
}

// TransitionStyle selects how an incoming wallpaper replaces the outgoing
// one.
type TransitionStyle = transition.Style

// Transition styles.
const (
	StyleNone   = transition.StyleNone
	StyleSimple = transition.StyleSimple
	StyleFade   = transition.StyleFade
	StyleLeft   = transition.StyleLeft
	StyleRight  = transition.StyleRight
	StyleTop    = transition.StyleTop
	StyleBottom = transition.StyleBottom
	StyleWipe   = transition.StyleWipe
	StyleCenter = transition.StyleCenter
	StyleOuter  = transition.StyleOuter
	StyleAny    = transition.StyleAny
	StyleGrow   = transition.StyleGrow
	StyleRandom = transition.StyleRandom
)

// ParseTransitionStyle parses a style name such as "fade" or "wipe".
func ParseTransitionStyle(s string) (TransitionStyle, error) {
	return transition.ParseStyle(s)
}

// Easing is a cubic-bezier timing curve.
type Easing = transition.Easing

// Easing presets.
var (
	EaseLinear   = transition.Linear
	Ease         = transition.Ease
	EaseIn       = transition.EaseIn
	EaseOut      = transition.EaseOut
	EaseInOut    = transition.EaseInOut
	EaseDefault  = transition.Default
	ParseEasing  = transition.ParseEasing
	BezierEasing = transition.Bezier
)

// TransitionSpec describes the animation from the current wallpaper to a
// new one.
type TransitionSpec struct {
	Style TransitionStyle
	// Duration of the animation. Zero swaps immediately.
	Duration time.Duration
	// Easing shapes progress; the zero value is EaseDefault.
	Easing Easing
	// FPS caps the redraw rate while animating; 0 redraws on every frame
	// callback.
	FPS int
}

func (t TransitionSpec) internal() transition.Spec {
	return transition.Spec{
		Style:    t.Style,
		Duration: t.Duration,
		Easing:   t.Easing,
		FPS:      t.FPS,
	}
}

// Request sets the wallpaper of one output. A request identical to the one
// an output already shows is a no-op.
type Request struct {
	Pixels Pixels

	// Resize maps Pixels onto Rect. The zero value is ResizeCrop.
	Resize ResizeStrategy
	// Background fills the area ResizeNo and ResizeFit leave uncovered.
	// nil is opaque black.
	Background color.Color

	// Rect is where the image is drawn. The zero Rect is the whole output.
	Rect Rect
	// Container clips the image. The zero Rect is the whole output.
	Container Rect

	// Radius rounds the corners of Rect and of Container, each in percent
	// of its own half-diagonal, ordered top-left, top-right, bottom-right,
	// bottom-left.
	Radius [4]float32
	// Rotation in radians around the centre of Rect.
	Rotation float32

	// Blur is the Gaussian blur strength in pixels; 0 disables it.
	Blur int
	// BlurColor is blended behind the image before blurring. nil blurs
	// against transparency.
	BlurColor color.Color

	// Opacity in (0,1]. Zero means fully opaque.
	Opacity float32

	// Transition animates the change. nil uses the engine default.
	Transition *TransitionSpec
}

// placement is a request resolved against an output's physical size.
type placement struct {
	rect      Rect
	container Rect
	// fitW, fitH is the pixel size the image is resized to.
	fitW, fitH int
	degenerate bool
}

// resolve scales r's rectangles by scale and fills zero rectangles with
// the w×h output. Rectangles without area are clamped to 1×1.
func (r *Request) resolve(w, h int, scale float64) placement {
	full := Rect{Width: float32(w), Height: float32(h)}
	pl := placement{rect: full, container: full}

	s := float32(scale)
	var bad bool
	if r.Rect != (Rect{}) {
		pl.rect, bad = scaleRect(r.Rect, s)
		pl.degenerate = pl.degenerate || bad
	}
	if r.Container != (Rect{}) {
		pl.container, bad = scaleRect(r.Container, s)
		pl.degenerate = pl.degenerate || bad
	}
	pl.fitW = max(int(math.Round(float64(pl.rect.Width))), 1)
	pl.fitH = max(int(math.Round(float64(pl.rect.Height))), 1)
	return pl
}

// scaleRect converts a logical rect to physical pixels, clamping a rect
// without area (or with non-finite fields) to 1×1 at its origin.
func scaleRect(r Rect, s float32) (Rect, bool) {
	out := Rect{X: r.X * s, Y: r.Y * s, Width: r.Width * s, Height: r.Height * s}
	if !finite(out.X) || !finite(out.Y) {
		out.X, out.Y = 0, 0
	}
	if !(out.Width >= 1) || !(out.Height >= 1) || !finite(out.Width) || !finite(out.Height) {
		out.Width = max(clampFinite(out.Width), 1)
		out.Height = max(clampFinite(out.Height), 1)
		return out, true
	}
	return out, false
}

func finite(v float32) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}

func clampFinite(v float32) float32 {
	if !finite(v) {
		return 0
	}
	return v
}

// opacity returns the request opacity with zero meaning opaque.
func (r *Request) opacity() float32 {
	switch {
	case r.Opacity <= 0 || math.IsNaN(float64(r.Opacity)):
		return 1
	case r.Opacity > 1:
		return 1
	default:
		return r.Opacity
	}
}

// blurSeed converts BlurColor to premultiplied floats.
func (r *Request) blurSeed() [4]float32 {
	if r.BlurColor == nil {
		return [4]float32{}
	}
	cr, cg, cb, ca := r.BlurColor.RGBA()
	return [4]float32{
		float32(cr) / 0xffff,
		float32(cg) / 0xffff,
		float32(cb) / 0xffff,
		float32(ca) / 0xffff,
	}
}

func (r *Request) validate() error {
	if !r.Pixels.valid() {
		return fmt.Errorf("%w: %dx%d with %d bytes",
			ErrInvalidPixels, r.Pixels.Width, r.Pixels.Height, len(r.Pixels.Data))
	}
	return nil
}
