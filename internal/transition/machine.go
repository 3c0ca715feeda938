package transition

import (
	"math/rand/v2"
	"time"
)

// State is the lifecycle state of a Machine.
type State uint8

const (
	// Blank shows nothing.
	Blank State = iota
	// Static shows a single layer.
	Static
	// Transitioning blends an outgoing and an incoming layer.
	Transitioning
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Blank:
		return "blank"
	case Static:
		return "static"
	case Transitioning:
		return "transitioning"
	default:
		return "unknown"
	}
}

// Spec describes one transition.
type Spec struct {
	Style    Style
	Duration time.Duration
	// Easing shapes progress; the zero value means Default.
	Easing Easing
	// FPS caps the redraw rate while the transition runs. 0 redraws on
	// every frame callback.
	FPS int
}

// Instant reports whether the spec swaps layers without animating.
func (s Spec) Instant() bool {
	return s.Style == StyleNone || s.Duration <= 0
}

// Machine is the transition state of one output. It is not safe for
// concurrent use.
type Machine struct {
	state State
	out   Layer
	in    Layer

	spec     Spec
	style    Style
	start    time.Time
	progress float64
	origin   [2]float64

	rng *rand.Rand
}

// NewMachine returns a blank machine. rng drives StyleRandom and StyleAny;
// nil uses a randomly seeded source.
func NewMachine(rng *rand.Rand) *Machine {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // visual randomness only
	}
	return &Machine{rng: rng}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Active reports whether a transition is in progress.
func (m *Machine) Active() bool {
	return m.state == Transitioning
}

// Progress returns linear transition progress in [0,1]. It is 1 outside a
// transition.
func (m *Machine) Progress() float64 {
	if m.state != Transitioning {
		return 1
	}
	return m.progress
}

// Eased returns Progress shaped by the transition's easing curve.
func (m *Machine) Eased() float64 {
	if m.state != Transitioning {
		return 1
	}
	return m.spec.Easing.Ease(m.progress)
}

// Spec returns the spec of the running or most recent transition.
func (m *Machine) Spec() Spec {
	return m.spec
}

// Style returns the concrete style of the running transition. StyleRandom
// has already been resolved.
func (m *Machine) Style() Style {
	return m.style
}

// Current returns the layer the machine settles on: the static layer, or
// the incoming layer of a transition.
func (m *Machine) Current() (Layer, bool) {
	switch m.state {
	case Static, Transitioning:
		return m.in, true
	default:
		return Layer{}, false
	}
}

// Layers returns every layer the machine holds, outgoing first.
func (m *Machine) Layers() []Layer {
	switch m.state {
	case Static:
		return []Layer{m.in}
	case Transitioning:
		return []Layer{m.out, m.in}
	default:
		return nil
	}
}

// Set makes l the new wallpaper and returns the layers the machine no
// longer holds.
//
// On a blank machine l is shown at once. Otherwise a transition from the
// visible layer to l starts at now, unless spec is instant. A set during a
// running transition keeps whichever layer dominates the blend (incoming
// once eased progress reaches one half) as the new outgoing layer and
// releases the other; progress restarts at 0.
func (m *Machine) Set(l Layer, spec Spec, now time.Time) []Layer {
	var released []Layer

	switch m.state {
	case Blank:
		m.state = Static
		m.in = l
		m.spec = spec
		m.style = StyleNone
		return nil

	case Transitioning:
		if m.Eased() >= 0.5 {
			released = append(released, m.out)
			m.out = m.in
		} else {
			released = append(released, m.in)
		}

	case Static:
		m.out = m.in
	}

	m.spec = spec
	if spec.Instant() {
		released = append(released, m.out)
		m.out = Layer{}
		m.in = l
		m.state = Static
		m.style = StyleNone
		m.progress = 0
		return released
	}

	m.in = l
	m.state = Transitioning
	m.start = now
	m.progress = 0
	m.style = spec.Style
	if m.style == StyleRandom {
		m.style = concreteStyles[m.rng.IntN(len(concreteStyles))]
	}
	m.origin = [2]float64{m.rng.Float64(), m.rng.Float64()}
	return released
}

// Advance moves progress to now. When the transition completes the machine
// becomes Static on the incoming layer and the outgoing layer is returned,
// once. active reports whether the transition is still running.
//
// Progress is clamped to [0,1] and never decreases, even if now goes
// backwards.
func (m *Machine) Advance(now time.Time) (released []Layer, active bool) {
	if m.state != Transitioning {
		return nil, false
	}

	p := 1.0
	if m.spec.Duration > 0 {
		p = clamp01(float64(now.Sub(m.start)) / float64(m.spec.Duration))
	}
	if p > m.progress {
		m.progress = p
	}
	if m.progress < 1 {
		return nil, true
	}

	released = []Layer{m.out}
	m.out = Layer{}
	m.state = Static
	m.progress = 1
	return released, false
}

// Reset discards every layer and returns them. The machine is Blank
// afterwards.
func (m *Machine) Reset() []Layer {
	released := m.Layers()
	m.state = Blank
	m.out = Layer{}
	m.in = Layer{}
	m.progress = 0
	m.style = StyleNone
	return released
}

// Placements returns the layers to draw this frame in back-to-front order,
// each with its appearance at the current eased progress. Layers that are
// fully transparent or clipped away are omitted.
func (m *Machine) Placements() []Placement {
	switch m.state {
	case Static:
		return []Placement{{Layer: m.in, Appearance: Identity}}
	case Transitioning:
	default:
		return nil
	}

	f := m.style.appear(m.Eased(), m.origin)
	outP := Placement{Layer: m.out, Appearance: f.out}
	inP := Placement{Layer: m.in, Appearance: f.in}

	order := []Placement{outP, inP}
	if f.inBelow {
		order = []Placement{inP, outP}
	}
	visible := order[:0]
	for _, p := range order {
		if p.Appearance.Opacity <= 0 || p.Appearance.Scale <= 0 || p.Appearance.Clip.Empty() {
			continue
		}
		visible = append(visible, p)
	}
	return visible
}
