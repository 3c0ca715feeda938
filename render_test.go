package moxpaper

import (
	"image/color"
	"math"
	"testing"

	"github.com/mox-desktop/moxpaper/internal/transition"
)

func TestInstanceForCentresScaledRect(t *testing.T) {
	p := transition.Placement{
		Layer: transition.Layer{
			Rect:      Rect{X: 10, Y: 20, Width: 100, Height: 50},
			Container: Rect{Width: 200, Height: 100},
			Radius:    [4]float32{1, 2, 3, 4},
			Blur:      500,
			Opacity:   0.8,
		},
		Appearance: transition.Appearance{
			Opacity:     0.5,
			Scale:       0.5,
			Rotation:    0.25,
			Clip:        transition.Bounds{Left: 0, Top: 0, Right: 0.5, Bottom: 1},
			ClipRadius:  30,
			ClipRounded: true,
		},
	}
	inst := instanceFor(p, 100)

	if want := [4]float32{35, 42.5, 100, 50}; inst.Rect != want {
		t.Errorf("Rect = %v, want %v", inst.Rect, want)
	}
	if inst.Scale != 0.5 {
		t.Errorf("Scale = %v, want 0.5", inst.Scale)
	}
	if want := [4]float32{0, 0, 100, 100}; inst.Container != want {
		t.Errorf("Container = %v, want %v", inst.Container, want)
	}
	if want := [4]float32{30, 30, 30, 30}; inst.Radius != want {
		t.Errorf("Radius = %v, want the clip radius %v", inst.Radius, want)
	}
	if inst.Opacity != 0.4 {
		t.Errorf("Opacity = %v, want 0.4", inst.Opacity)
	}
	if inst.Rotation != 0.25 {
		t.Errorf("Rotation = %v, want 0.25", inst.Rotation)
	}
	if inst.Blur != 84 {
		t.Errorf("Blur = %d, want clamped 84", inst.Blur)
	}
}

func TestInstanceForIdentity(t *testing.T) {
	p := transition.Placement{
		Layer: transition.Layer{
			Rect:      Rect{Width: 1920, Height: 1080},
			Container: Rect{Width: 1920, Height: 1080},
			Radius:    [4]float32{12, 0, 12, 0},
			Opacity:   1,
		},
		Appearance: transition.Identity,
	}
	inst := instanceFor(p, 1080)
	full := [4]float32{0, 0, 1920, 1080}
	if inst.Rect != full || inst.Container != full {
		t.Errorf("Rect %v Container %v, want both %v", inst.Rect, inst.Container, full)
	}
	if inst.Radius != p.Layer.Radius {
		t.Errorf("Radius = %v, want layer radius %v", inst.Radius, p.Layer.Radius)
	}
	if inst.Opacity != 1 || inst.Scale != 1 {
		t.Errorf("Opacity %v Scale %v, want 1 and 1", inst.Opacity, inst.Scale)
	}
}

func TestRequestResolve(t *testing.T) {
	tests := []struct {
		name       string
		req        Request
		scale      float64
		rect       Rect
		container  Rect
		fitW, fitH int
		degenerate bool
	}{
		{
			name:      "zero rects fill the output",
			scale:     1,
			rect:      Rect{Width: 800, Height: 600},
			container: Rect{Width: 800, Height: 600},
			fitW:      800, fitH: 600,
		},
		{
			name:      "logical rects are scaled",
			req:       Request{Rect: Rect{X: 10, Y: 5, Width: 100, Height: 50}},
			scale:     2,
			rect:      Rect{X: 20, Y: 10, Width: 200, Height: 100},
			container: Rect{Width: 800, Height: 600},
			fitW:      200, fitH: 100,
		},
		{
			name:       "empty rect clamps to one pixel",
			req:        Request{Rect: Rect{X: 10, Y: 10, Width: 20, Height: 0}},
			scale:      2,
			rect:       Rect{X: 20, Y: 20, Width: 40, Height: 1},
			container:  Rect{Width: 800, Height: 600},
			fitW:       40, fitH: 1,
			degenerate: true,
		},
		{
			name:       "negative container clamps",
			req:        Request{Container: Rect{X: 1, Y: 1, Width: -5, Height: -5}},
			scale:      1,
			rect:       Rect{Width: 800, Height: 600},
			container:  Rect{X: 1, Y: 1, Width: 1, Height: 1},
			fitW:       800, fitH: 600,
			degenerate: true,
		},
		{
			name:       "non-finite rect clamps",
			req:        Request{Rect: Rect{X: float32(math.NaN()), Width: float32(math.Inf(1)), Height: 10}},
			scale:      1,
			rect:       Rect{Width: 1, Height: 10},
			container:  Rect{Width: 800, Height: 600},
			fitW:       1, fitH: 10,
			degenerate: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pl := tt.req.resolve(800, 600, tt.scale)
			if pl.rect != tt.rect {
				t.Errorf("rect = %+v, want %+v", pl.rect, tt.rect)
			}
			if pl.container != tt.container {
				t.Errorf("container = %+v, want %+v", pl.container, tt.container)
			}
			if pl.fitW != tt.fitW || pl.fitH != tt.fitH {
				t.Errorf("fit size = %dx%d, want %dx%d", pl.fitW, pl.fitH, tt.fitW, tt.fitH)
			}
			if pl.degenerate != tt.degenerate {
				t.Errorf("degenerate = %v, want %v", pl.degenerate, tt.degenerate)
			}
		})
	}
}

func TestRequestOpacity(t *testing.T) {
	tests := []struct{ in, want float32 }{
		{0, 1}, {-1, 1}, {0.3, 0.3}, {1, 1}, {4, 1}, {float32(math.NaN()), 1},
	}
	for _, tt := range tests {
		r := Request{Opacity: tt.in}
		if got := r.opacity(); got != tt.want {
			t.Errorf("opacity(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRequestBlurSeed(t *testing.T) {
	var r Request
	if got := r.blurSeed(); got != [4]float32{} {
		t.Errorf("nil BlurColor seed = %v, want transparent", got)
	}
	r.BlurColor = color.NRGBA{R: 255, A: 128}
	got := r.blurSeed()
	want := float32(128*257) / 0xffff
	if math.Abs(float64(got[0]-want)) > 1e-6 || math.Abs(float64(got[3]-want)) > 1e-6 {
		t.Errorf("seed = %v, want premultiplied red at alpha %v", got, want)
	}
	if got[1] != 0 || got[2] != 0 {
		t.Errorf("seed = %v, want zero green and blue", got)
	}
}

func TestGeometry(t *testing.T) {
	g, bad := Geometry{Width: 0, Height: -3, Scale: math.NaN()}.normalized()
	if !bad || g.Width != 1 || g.Height != 1 || g.Scale != 1 {
		t.Errorf("normalized = %+v (bad %v), want 1x1 at scale 1", g, bad)
	}
	if w, h := (Geometry{Width: 1280, Height: 720, Scale: 1.25}).Physical(); w != 1600 || h != 900 {
		t.Errorf("Physical = %dx%d, want 1600x900", w, h)
	}
}
