package transition

import "github.com/mox-desktop/moxpaper/internal/slots"

// Rect is an axis-aligned rectangle in output pixels, origin at the
// top-left corner of the output.
type Rect struct {
	X, Y, Width, Height float32
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Sub returns the part of r selected by b.
func (r Rect) Sub(b Bounds) Rect {
	b = b.Clamp()
	return Rect{
		X:      r.X + float32(b.Left)*r.Width,
		Y:      r.Y + float32(b.Top)*r.Height,
		Width:  float32(b.Right-b.Left) * r.Width,
		Height: float32(b.Bottom-b.Top) * r.Height,
	}
}

// Layer is one wallpaper placement on an output.
type Layer struct {
	// Slot is the texture the layer samples. The machine never pins or
	// unpins it; layers it hands back are the caller's to release.
	Slot slots.Handle

	// Rect is where the image is drawn.
	Rect Rect
	// Container is the region the layer is clipped against.
	Container Rect

	// Rotation in radians around the centre of Rect.
	Rotation float32
	// Radius is the per-corner radius of Rect and Container in percent of
	// each one's half-diagonal, ordered top-left, top-right, bottom-right,
	// bottom-left.
	Radius [4]float32

	// Blur is the integer blur strength; 0 disables blurring.
	Blur int
	// BlurColor seeds the blur accumulation (premultiplied RGBA). The zero
	// value blurs against transparency.
	BlurColor [4]float32

	// Opacity in [0,1].
	Opacity float32
}

// Placement is a layer with the appearance it has in the current frame.
type Placement struct {
	Layer      Layer
	Appearance Appearance
}
