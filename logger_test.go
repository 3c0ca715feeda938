package moxpaper

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestNopHandler(t *testing.T) {
	h := nopHandler{}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if h.Enabled(context.Background(), level) {
			t.Errorf("nopHandler.Enabled(%v) = true, want false", level)
		}
	}
	if err := h.Handle(context.Background(), slog.Record{}); err != nil {
		t.Errorf("nopHandler.Handle() = %v, want nil", err)
	}
	if _, ok := h.WithAttrs(nil).(nopHandler); !ok {
		t.Error("WithAttrs should return nopHandler")
	}
	if _, ok := h.WithGroup("g").(nopHandler); !ok {
		t.Error("WithGroup should return nopHandler")
	}
}

func TestSetLogger(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	h := newHarness(t)
	h.addOutput("DP-1", 64, 32)

	out := buf.String()
	for _, want := range []string{"engine created", "output added", "output=DP-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}

	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) should restore the silent logger")
	}
}

func TestOptions(t *testing.T) {
	o := defaultOptions()
	if o.slotCapacity < 2 || o.eventBuffer != 64 || o.rng != nil {
		t.Errorf("defaults = %+v", o)
	}

	clock := func() time.Time { return time.Unix(42, 0) }
	spec := TransitionSpec{Style: StyleFade, Duration: time.Second}
	for _, opt := range []Option{
		WithSlotCapacity(1),
		WithClock(clock),
		WithClock(nil),
		WithDefaultTransition(spec),
		WithEventBuffer(0),
		WithSeed(7),
		WithSubmitTimeout(-time.Second),
	} {
		opt(&o)
	}
	if o.slotCapacity != 2 {
		t.Errorf("slotCapacity = %d, want 2", o.slotCapacity)
	}
	if !o.clock().Equal(time.Unix(42, 0)) {
		t.Error("WithClock(nil) should keep the previous clock")
	}
	if o.defaultTransition != spec {
		t.Errorf("defaultTransition = %+v", o.defaultTransition)
	}
	if o.eventBuffer != 1 {
		t.Errorf("eventBuffer = %d, want 1", o.eventBuffer)
	}
	if o.rng == nil || o.rng.seed != 7 {
		t.Errorf("rng = %+v", o.rng)
	}
	if o.submitTimeout != 0 {
		t.Errorf("negative submit timeout kept as %v", o.submitTimeout)
	}
	WithSubmitTimeout(time.Second)(&o)
	if o.submitTimeout != time.Second {
		t.Errorf("submitTimeout = %v, want 1s", o.submitTimeout)
	}
}
