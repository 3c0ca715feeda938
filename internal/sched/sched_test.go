package sched

import (
	"testing"
	"time"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestSchedulerRequestCoalesces(t *testing.T) {
	s := New()
	if s.State() != Idle {
		t.Fatalf("initial state = %v, want idle", s.State())
	}
	if !s.RequestRedraw() {
		t.Error("first RequestRedraw should ask for a frame callback")
	}
	if s.RequestRedraw() {
		t.Error("second RequestRedraw should coalesce")
	}
	if s.State() != AwaitingFrame {
		t.Errorf("state = %v, want awaiting-frame", s.State())
	}
}

func TestSchedulerDrawCycle(t *testing.T) {
	s := New()
	s.RequestRedraw()

	d, dt := s.OnFrame(t0)
	if d != Draw || dt != 0 {
		t.Fatalf("first OnFrame = (%v, %v), want (Draw, 0)", d, dt)
	}
	if s.State() != Idle || s.Pending() {
		t.Errorf("after draw: state %v pending %v, want idle and clear", s.State(), s.Pending())
	}

	s.RequestRedraw()
	d, dt = s.OnFrame(t0.Add(16 * time.Millisecond))
	if d != Draw || dt != 16*time.Millisecond {
		t.Errorf("second OnFrame = (%v, %v), want (Draw, 16ms)", d, dt)
	}
}

func TestSchedulerSpuriousCallback(t *testing.T) {
	s := New()
	if d, _ := s.OnFrame(t0); d != Skip {
		t.Errorf("OnFrame without request = %v, want Skip", d)
	}
	if s.State() != Idle {
		t.Errorf("state = %v, want idle", s.State())
	}
}

func TestSchedulerFPSCap(t *testing.T) {
	s := New()
	s.SetFPS(10)
	if s.Interval() != 100*time.Millisecond {
		t.Fatalf("Interval() = %v, want 100ms", s.Interval())
	}

	s.RequestRedraw()
	if d, _ := s.OnFrame(t0); d != Draw {
		t.Fatalf("first frame = %v, want Draw", d)
	}

	s.RequestRedraw()
	if d, _ := s.OnFrame(t0.Add(40 * time.Millisecond)); d != Defer {
		t.Errorf("early frame = %v, want Defer", d)
	}
	if s.State() != AwaitingFrame || !s.Pending() {
		t.Errorf("after defer: state %v pending %v", s.State(), s.Pending())
	}
	d, dt := s.OnFrame(t0.Add(100 * time.Millisecond))
	if d != Draw || dt != 100*time.Millisecond {
		t.Errorf("capped frame = (%v, %v), want (Draw, 100ms)", d, dt)
	}

	frames, deferred := s.Stats()
	if frames != 2 || deferred != 1 {
		t.Errorf("Stats() = (%d, %d), want (2, 1)", frames, deferred)
	}

	s.SetFPS(0)
	if s.Interval() != 0 {
		t.Errorf("Interval() after SetFPS(0) = %v, want 0", s.Interval())
	}
}

func TestSchedulerClockGoingBackwards(t *testing.T) {
	s := New()
	s.RequestRedraw()
	s.OnFrame(t0)
	s.RequestRedraw()
	if _, dt := s.OnFrame(t0.Add(-time.Second)); dt != 0 {
		t.Errorf("dt = %v, want 0 for a backwards clock", dt)
	}
}

func TestSchedulerReset(t *testing.T) {
	s := New()
	s.SetFPS(30)
	s.RequestRedraw()
	s.Reset()
	if s.State() != Idle || s.Pending() {
		t.Errorf("after Reset: state %v pending %v", s.State(), s.Pending())
	}
	if s.Interval() == 0 {
		t.Error("Reset dropped the frame-rate cap")
	}
}
