package moxpaper

import (
	"math"

	"github.com/gogpu/wgpu/hal"

	"github.com/mox-desktop/moxpaper/internal/gpu"
)

// Surface is the host side of one output: a presentable texture and a
// source of frame callbacks. The engine calls every method from the Run
// goroutine. Implementations must not call back into the Engine
// synchronously from these methods.
type Surface interface {
	// AcquireView returns the view to render the next frame into. Its
	// format must match the engine's surface format.
	AcquireView() (hal.TextureView, error)
	// Present shows the frame rendered into the last acquired view.
	Present() error
	// RequestFrame asks the compositor for a frame callback. The host
	// answers it by calling Engine.FrameDone for this output.
	RequestFrame()
}

// Reacquirer is implemented by surfaces that can be recreated after an
// acquire or present failure.
type Reacquirer interface {
	Reacquire() error
}

// ProjectionMode selects how wallpapers are mapped onto an output.
type ProjectionMode = gpu.ProjectionMode

// Projection modes.
const (
	// ProjectionDirect maps output pixels straight to clip space.
	ProjectionDirect = gpu.ProjectionDirect
	// ProjectionMatrix uses an orthographic projection matrix.
	ProjectionMatrix = gpu.ProjectionMatrix
)

// Geometry is the size of an output as the compositor reports it.
type Geometry struct {
	// Width and Height in logical pixels.
	Width, Height int
	// Scale is the buffer scale factor; 0 means 1.
	Scale      float64
	Projection ProjectionMode
}

func (g Geometry) scale() float64 {
	if !(g.Scale > 0) || math.IsInf(g.Scale, 0) {
		return 1
	}
	return g.Scale
}

// Physical returns the output size in buffer pixels.
func (g Geometry) Physical() (width, height int) {
	s := g.scale()
	return max(int(math.Round(float64(g.Width)*s)), 1),
		max(int(math.Round(float64(g.Height)*s)), 1)
}

// normalized clamps empty sizes to 1×1 and reports whether it had to.
func (g Geometry) normalized() (Geometry, bool) {
	bad := false
	if g.Width <= 0 {
		g.Width, bad = 1, true
	}
	if g.Height <= 0 {
		g.Height, bad = 1, true
	}
	g.Scale = g.scale()
	return g, bad
}
