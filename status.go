package moxpaper

import (
	"context"
	"time"

	"github.com/mox-desktop/moxpaper/internal/gpu"
	"github.com/mox-desktop/moxpaper/internal/sched"
	"github.com/mox-desktop/moxpaper/internal/transition"
)

// OutputState is the transition state of an output.
type OutputState = transition.State

// Output states.
const (
	StateBlank         = transition.Blank
	StateStatic        = transition.Static
	StateTransitioning = transition.Transitioning
)

// PassKind names a GPU pass in a frame plan.
type PassKind = gpu.PassKind

// Pass kinds.
const (
	PassBlurHorizontal = gpu.PassBlurHorizontal
	PassBlurVertical   = gpu.PassBlurVertical
	PassComposite      = gpu.PassComposite
)

// OutputStatus is a snapshot of one output.
type OutputStatus struct {
	ID       OutputID
	Geometry Geometry
	// Width and Height in buffer pixels.
	Width, Height int

	State OutputState
	// Style is the concrete style of the running or last transition.
	Style TransitionStyle
	// Progress is linear transition progress, 1 when not transitioning.
	Progress float64
	// Eased is Progress shaped by the easing curve.
	Eased float64

	// AwaitingFrame reports an outstanding frame callback request.
	AwaitingFrame bool
	// RedrawPending reports a redraw that waits for the next callback.
	RedrawPending bool
	// FrameInterval is the frame-rate cap of the running transition, 0
	// when uncapped.
	FrameInterval time.Duration
	// Deferred reports a request waiting for a free texture slot.
	Deferred bool
	// Lost reports a failed surface that could not be reacquired.
	Lost bool

	// Frames counts presented frames and Rendered those submitted to the
	// GPU. CapDeferred counts callbacks pushed back by the frame-rate cap.
	Frames      uint64
	Rendered    uint64
	CapDeferred uint64
	LastPresent time.Time

	// SourceWidth and SourceHeight are the fitted size of the current
	// wallpaper texture and Pins its pin count. All are 0 on a blank
	// output.
	SourceWidth, SourceHeight int
	Pins                      int
	// LastPlan lists the passes of the last rendered frame.
	LastPlan []PassKind
}

// Status returns a snapshot of an output. It waits for the Run goroutine
// and must not be called from Surface methods.
func (e *Engine) Status(ctx context.Context, id OutputID) (OutputStatus, error) {
	type reply struct {
		st  OutputStatus
		err error
	}
	ch := make(chan reply, 1)
	err := e.post(func() {
		o, ok := e.outputs[id]
		if !ok {
			ch <- reply{err: ErrUnknownOutput}
			return
		}
		ch <- reply{st: e.outputStatus(o)}
	})
	if err != nil {
		return OutputStatus{}, err
	}
	select {
	case r := <-ch:
		return r.st, r.err
	case <-ctx.Done():
		return OutputStatus{}, ctx.Err()
	case <-e.done:
		return OutputStatus{}, ErrClosed
	}
}

func (e *Engine) outputStatus(o *output) OutputStatus {
	_, capDeferred := o.sched.Stats()
	st := OutputStatus{
		ID:            o.id,
		Geometry:      o.geom,
		Width:         o.width,
		Height:        o.height,
		State:         o.machine.State(),
		Style:         o.machine.Style(),
		Progress:      o.machine.Progress(),
		Eased:         o.machine.Eased(),
		AwaitingFrame: o.sched.State() == sched.AwaitingFrame,
		RedrawPending: o.sched.Pending(),
		FrameInterval: o.sched.Interval(),
		Deferred:      o.deferred != nil,
		Lost:          o.lost,
		Frames:        o.frames,
		Rendered:      o.renderer.Frames(),
		CapDeferred:   capDeferred,
		LastPresent:   o.lastPresent,
	}
	if l, ok := o.machine.Current(); ok {
		if w, h, err := e.slots.Size(l.Slot); err == nil {
			st.SourceWidth, st.SourceHeight = w, h
		}
		st.Pins = e.slots.Pins(l.Slot)
	}
	for _, p := range o.lastPlan {
		st.LastPlan = append(st.LastPlan, p.Kind)
	}
	return st
}
