package transition

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidEasing is returned by ParseEasing for unknown names and
// malformed or out-of-range control points.
var ErrInvalidEasing = errors.New("transition: invalid easing")

// Easing is a CSS-style cubic-bezier timing curve through (0,0) and (1,1)
// with control points (X1,Y1) and (X2,Y2). All four must lie in [0,1]:
// bounded X keeps the curve a function of x and bounded Y keeps it
// non-decreasing, so a transition never runs backwards.
//
// The zero Easing stands for Default.
type Easing struct {
	X1, Y1, X2, Y2 float64
}

// Named curves.
var (
	Linear    = Easing{0, 0, 1, 1}
	Ease      = Easing{0.25, 0.1, 0.25, 1}
	EaseIn    = Easing{0.42, 0, 1, 1}
	EaseOut   = Easing{0, 0, 0.58, 1}
	EaseInOut = Easing{0.42, 0, 0.58, 1}

	// Default is used when no curve is given.
	Default = Easing{0.54, 0, 0.34, 0.99}
)

var easingNames = map[string]Easing{
	"linear":      Linear,
	"ease":        Ease,
	"ease-in":     EaseIn,
	"ease-out":    EaseOut,
	"ease-in-out": EaseInOut,
	"default":     Default,
}

// Bezier validates and returns a custom curve.
func Bezier(x1, y1, x2, y2 float64) (Easing, error) {
	e := Easing{x1, y1, x2, y2}
	if !e.valid() {
		return Easing{}, fmt.Errorf("%w: control points (%g,%g) (%g,%g)", ErrInvalidEasing, x1, y1, x2, y2)
	}
	return e, nil
}

// ParseEasing accepts a curve name ("linear", "ease", "ease-in",
// "ease-out", "ease-in-out", "default") or "cubic-bezier(x1,y1,x2,y2)".
// The empty string yields Default.
func ParseEasing(s string) (Easing, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Default, nil
	}
	if e, ok := easingNames[s]; ok {
		return e, nil
	}
	args, ok := strings.CutPrefix(s, "cubic-bezier(")
	if !ok || !strings.HasSuffix(args, ")") {
		return Easing{}, fmt.Errorf("%w: %q", ErrInvalidEasing, s)
	}
	parts := strings.Split(strings.TrimSuffix(args, ")"), ",")
	if len(parts) != 4 {
		return Easing{}, fmt.Errorf("%w: %q needs four control values", ErrInvalidEasing, s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Easing{}, fmt.Errorf("%w: %q: %w", ErrInvalidEasing, s, err)
		}
		v[i] = f
	}
	return Bezier(v[0], v[1], v[2], v[3])
}

// String returns the curve name, or its cubic-bezier form.
func (e Easing) String() string {
	for _, name := range []string{"linear", "ease", "ease-in", "ease-out", "ease-in-out", "default"} {
		if easingNames[name] == e {
			return name
		}
	}
	return fmt.Sprintf("cubic-bezier(%g,%g,%g,%g)", e.X1, e.Y1, e.X2, e.Y2)
}

// IsZero reports whether e is the zero Easing.
func (e Easing) IsZero() bool {
	return e == Easing{}
}

func (e Easing) valid() bool {
	for _, v := range []float64{e.X1, e.Y1, e.X2, e.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return in01(e.X1) && in01(e.Y1) && in01(e.X2) && in01(e.Y2)
}

func in01(v float64) bool { return v >= 0 && v <= 1 }

// Ease maps linear progress x in [0,1] to eased progress. It solves the
// curve's x(t) = x for the parameter t and returns y(t), clamped to [0,1].
// Ease(0) == 0 and Ease(1) == 1 for every valid curve.
func (e Easing) Ease(x float64) float64 {
	if e.IsZero() {
		e = Default
	}
	if x <= 0 || math.IsNaN(x) {
		return 0
	}
	if x >= 1 {
		return 1
	}
	if e.X1 == e.Y1 && e.X2 == e.Y2 {
		return x
	}
	t := e.solveX(x)
	return clamp01(bezierCoord(t, e.Y1, e.Y2))
}

// solveX finds t with x(t) == x. Newton iterations converge for nearly
// every curve; bisection finishes the rest since x(t) is monotone.
func (e Easing) solveX(x float64) float64 {
	const epsilon = 1e-7

	t := x
	for i := 0; i < 8; i++ {
		dx := bezierCoord(t, e.X1, e.X2) - x
		if math.Abs(dx) < epsilon {
			return t
		}
		d := bezierSlope(t, e.X1, e.X2)
		if math.Abs(d) < 1e-6 {
			break
		}
		t -= dx / d
		if t < 0 || t > 1 {
			break
		}
	}

	lo, hi := 0.0, 1.0
	t = x
	for i := 0; i < 64; i++ {
		v := bezierCoord(t, e.X1, e.X2)
		if math.Abs(v-x) < epsilon {
			break
		}
		if v < x {
			lo = t
		} else {
			hi = t
		}
		t = (lo + hi) / 2
	}
	return t
}

// bezierCoord evaluates one coordinate of the curve with endpoints 0 and 1.
func bezierCoord(t, p1, p2 float64) float64 {
	mt := 1 - t
	return 3*mt*mt*t*p1 + 3*mt*t*t*p2 + t*t*t
}

func bezierSlope(t, p1, p2 float64) float64 {
	mt := 1 - t
	return 3*mt*mt*p1 + 6*mt*t*(p2-p1) + 3*t*t*(1-p2)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
