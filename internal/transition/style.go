package transition

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownStyle is returned by ParseStyle for unrecognised names.
var ErrUnknownStyle = errors.New("transition: unknown style")

// Style selects which layer parameters a transition animates.
type Style uint8

const (
	// StyleNone swaps layers without animation.
	StyleNone Style = iota
	// StyleSimple fades the incoming layer in over the outgoing one.
	StyleSimple
	// StyleFade crossfades: outgoing opacity falls while incoming rises.
	StyleFade
	// StyleLeft reveals the incoming layer from the left edge.
	StyleLeft
	// StyleRight reveals the incoming layer from the right edge.
	StyleRight
	// StyleTop reveals the incoming layer from the top edge.
	StyleTop
	// StyleBottom reveals the incoming layer from the bottom edge.
	StyleBottom
	// StyleWipe reveals the incoming layer diagonally from the top-left
	// corner.
	StyleWipe
	// StyleCenter grows a rounded clip from the centre.
	StyleCenter
	// StyleOuter shrinks the outgoing layer's clip into the centre,
	// uncovering the incoming layer beneath it.
	StyleOuter
	// StyleAny grows a rounded clip from a random point.
	StyleAny
	// StyleGrow scales and rotates the incoming layer into place.
	StyleGrow
	// StyleRandom picks one of the animated styles when the transition
	// starts.
	StyleRandom
)

var styleNames = [...]string{
	StyleNone:   "none",
	StyleSimple: "simple",
	StyleFade:   "fade",
	StyleLeft:   "left",
	StyleRight:  "right",
	StyleTop:    "top",
	StyleBottom: "bottom",
	StyleWipe:   "wipe",
	StyleCenter: "center",
	StyleOuter:  "outer",
	StyleAny:    "any",
	StyleGrow:   "grow",
	StyleRandom: "random",
}

// concreteStyles are the candidates for StyleRandom.
var concreteStyles = []Style{
	StyleSimple, StyleFade, StyleLeft, StyleRight, StyleTop, StyleBottom,
	StyleWipe, StyleCenter, StyleOuter, StyleAny, StyleGrow,
}

// String implements fmt.Stringer.
func (s Style) String() string {
	if int(s) < len(styleNames) {
		return styleNames[s]
	}
	return fmt.Sprintf("Style(%d)", uint8(s))
}

// ParseStyle returns the style with the given name. The empty string is
// StyleFade.
func ParseStyle(name string) (Style, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return StyleFade, nil
	}
	for i, n := range styleNames {
		if n == name {
			return Style(i), nil //nolint:gosec // bounded by styleNames
		}
	}
	return StyleNone, fmt.Errorf("%w: %q", ErrUnknownStyle, name)
}

// Bounds is a clip rectangle in container-relative units: (0,0) is the
// container's top-left corner and (1,1) its bottom-right.
type Bounds struct {
	Left, Top, Right, Bottom float64
}

// FullBounds covers the whole container.
var FullBounds = Bounds{0, 0, 1, 1}

// Empty reports whether b has no area.
func (b Bounds) Empty() bool {
	return b.Right <= b.Left || b.Bottom <= b.Top
}

// Clamp limits every edge to [0,1].
func (b Bounds) Clamp() Bounds {
	return Bounds{clamp01(b.Left), clamp01(b.Top), clamp01(b.Right), clamp01(b.Bottom)}
}

// Appearance is how one layer is drawn at some point of a transition.
type Appearance struct {
	// Opacity multiplies the layer's own opacity.
	Opacity float64
	// Scale multiplies the layer's size around its centre.
	Scale float64
	// Rotation is added to the layer's rotation, in radians.
	Rotation float64
	// Clip narrows the layer's container.
	Clip Bounds
	// ClipRadius, when ClipRounded is set, replaces the layer's corner
	// radii on all four corners, in percent like Layer.Radius.
	ClipRadius  float64
	ClipRounded bool
}

// Identity is the appearance of a layer outside any transition.
var Identity = Appearance{Opacity: 1, Scale: 1, Clip: FullBounds}

// frame is the per-style result for one eased progress value.
type frame struct {
	out, in Appearance
	// inBelow draws the incoming layer before the outgoing one.
	inBelow bool
}

// appear computes both layer appearances for eased progress p. origin is
// the random point StyleAny grows from.
func (s Style) appear(p float64, origin [2]float64) frame {
	p = clamp01(p)
	out, in := Identity, Identity

	switch s {
	case StyleSimple:
		in.Opacity = p
	case StyleFade:
		out.Opacity = 1 - p
		in.Opacity = p
	case StyleLeft:
		in.Clip.Right = p
	case StyleRight:
		in.Clip.Left = 1 - p
	case StyleTop:
		in.Clip.Bottom = p
	case StyleBottom:
		in.Clip.Top = 1 - p
	case StyleWipe:
		in.Clip.Right = p
		in.Clip.Bottom = p
	case StyleCenter:
		h := 0.5 * p
		in.Clip = Bounds{0.5 - h, 0.5 - h, 0.5 + h, 0.5 + h}
		in.ClipRounded = true
		in.ClipRadius = (1 - p) * 100
	case StyleOuter:
		h := 0.5 * (1 - p)
		out.Clip = Bounds{0.5 - h, 0.5 - h, 0.5 + h, 0.5 + h}
		out.ClipRounded = true
		out.ClipRadius = p * 100
		return frame{out: out, in: in, inBelow: true}
	case StyleAny:
		in.Clip = Bounds{origin[0] - p, origin[1] - p, origin[0] + p, origin[1] + p}.Clamp()
		in.ClipRounded = true
		in.ClipRadius = (1 - p) * (0.8 + 0.2*math.Sin(p*5)) * 100
	case StyleGrow:
		in.Scale = p
		in.Rotation = -(1 - p) * math.Pi / 4
		in.Opacity = p
	}
	return frame{out: out, in: in}
}
