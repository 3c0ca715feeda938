// Package sched paces redraws of one output against compositor frame
// callbacks.
//
// A Scheduler is Idle or AwaitingFrame. RequestRedraw from Idle asks the
// host for a frame callback; further requests before the callback arrives
// coalesce. OnFrame decides whether the callback should produce a draw and
// reports the time since the previous draw. An optional frame-rate cap
// skips callbacks that arrive too early and re-arms instead.
package sched

import "time"

// State is the scheduler state.
type State uint8

const (
	// Idle has no frame callback outstanding.
	Idle State = iota
	// AwaitingFrame has asked the host for a frame callback.
	AwaitingFrame
)

// String implements fmt.Stringer.
func (s State) String() string {
	if s == AwaitingFrame {
		return "awaiting-frame"
	}
	return "idle"
}

// Decision is the result of a frame callback.
type Decision uint8

const (
	// Skip means nothing to draw; the scheduler is Idle.
	Skip Decision = iota
	// Draw means render and present a frame now.
	Draw
	// Defer means a draw is pending but the frame-rate cap has not
	// elapsed; the caller must request another frame callback.
	Defer
)

// Scheduler tracks one output. It is not safe for concurrent use.
type Scheduler struct {
	state    State
	pending  bool
	lastDraw time.Time
	interval time.Duration

	frames  uint64
	skipped uint64
}

// New returns an idle scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// State returns the current state.
func (s *Scheduler) State() State {
	return s.state
}

// Pending reports whether a redraw has been requested and not drawn.
func (s *Scheduler) Pending() bool {
	return s.pending
}

// SetFPS caps draws to fps per second. fps <= 0 removes the cap.
func (s *Scheduler) SetFPS(fps int) {
	if fps <= 0 {
		s.interval = 0
		return
	}
	s.interval = time.Second / time.Duration(fps)
}

// Interval returns the minimum time between draws, 0 when uncapped.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// RequestRedraw marks a redraw pending. It returns true when the caller
// must ask the host for a frame callback, which happens only on the
// Idle → AwaitingFrame edge.
func (s *Scheduler) RequestRedraw() bool {
	s.pending = true
	if s.state == AwaitingFrame {
		return false
	}
	s.state = AwaitingFrame
	return true
}

// OnFrame handles a frame callback at now. On Draw, dt is the time since
// the previous draw (0 for the first) and the pending flag is cleared; the
// scheduler returns to Idle until the caller requests another redraw.
func (s *Scheduler) OnFrame(now time.Time) (d Decision, dt time.Duration) {
	if !s.pending {
		s.state = Idle
		return Skip, 0
	}
	if s.interval > 0 && !s.lastDraw.IsZero() && now.Sub(s.lastDraw) < s.interval {
		s.skipped++
		s.state = AwaitingFrame
		return Defer, 0
	}

	if !s.lastDraw.IsZero() {
		dt = max(now.Sub(s.lastDraw), 0)
	}
	s.lastDraw = now
	s.pending = false
	s.state = Idle
	s.frames++
	return Draw, dt
}

// Reset returns the scheduler to Idle with nothing pending and forgets the
// last draw time. The frame-rate cap is kept.
func (s *Scheduler) Reset() {
	s.state = Idle
	s.pending = false
	s.lastDraw = time.Time{}
}

// Stats returns the number of draws and cap-deferred callbacks.
func (s *Scheduler) Stats() (frames, deferred uint64) {
	return s.frames, s.skipped
}
