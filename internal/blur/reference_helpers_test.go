package blur

// CPU mirror of both blur passes. It samples with the same bilinear
// folding and edge clamping as the WGSL shader.

import "math"

// Color is a premultiplied RGBA colour with components in [0, 1].
type Color [4]float32

// Transparent is the zero accumulation seed.
var Transparent = Color{}

// Image is a premultiplied RGBA float image used by the CPU reference
// passes. Pix holds Width*Height*4 values, row-major, top row first.
type Image struct {
	Width, Height int
	Pix           []float32
}

// NewImage allocates a transparent image.
func NewImage(w, h int) *Image {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Image{Width: w, Height: h, Pix: make([]float32, w*h*4)}
}

// ImageFromRGBA converts 8-bit premultiplied RGBA bytes into an Image.
func ImageFromRGBA(data []byte, w, h int) *Image {
	img := NewImage(w, h)
	n := min(len(img.Pix), len(data))
	for i := 0; i < n; i++ {
		img.Pix[i] = float32(data[i]) / 255
	}
	return img
}

// At returns the pixel at (x, y), clamping coordinates to the edge.
func (m *Image) At(x, y int) Color {
	if m.Width == 0 || m.Height == 0 {
		return Color{}
	}
	x = clampInt(x, 0, m.Width-1)
	y = clampInt(y, 0, m.Height-1)
	i := (y*m.Width + x) * 4
	return Color{m.Pix[i], m.Pix[i+1], m.Pix[i+2], m.Pix[i+3]}
}

func (m *Image) set(x, y int, c Color) {
	i := (y*m.Width + x) * 4
	m.Pix[i] = c[0]
	m.Pix[i+1] = c[1]
	m.Pix[i+2] = c[2]
	m.Pix[i+3] = c[3]
}

// Clone returns a deep copy.
func (m *Image) Clone() *Image {
	out := &Image{Width: m.Width, Height: m.Height, Pix: make([]float32, len(m.Pix))}
	copy(out.Pix, m.Pix)
	return out
}

// Apply runs the horizontal pass, then the vertical pass, exactly as the
// blur pipeline orders them. An empty kernel returns an unmodified copy.
func Apply(src *Image, k *Kernel, seed Color, opacity float32) *Image {
	if k == nil || k.Empty() {
		return src.Clone()
	}
	tmp := NewImage(src.Width, src.Height)
	Horizontal(tmp, src, k, seed)
	dst := NewImage(src.Width, src.Height)
	Vertical(dst, tmp, k, opacity)
	return dst
}

// Horizontal convolves rows of src into dst. The seed is composited under
// the accumulated colour, so a transparent seed leaves the blur unchanged and
// an opaque seed blurs the layer against a solid backdrop.
func Horizontal(dst, src *Image, k *Kernel, seed Color) {
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			var acc Color
			if k.Empty() {
				acc = src.At(x, y)
			} else {
				for i, w := range k.Weights {
					s := sampleLinear(src, float32(x)+k.Offsets[i], float32(y))
					acc[0] += s[0] * w
					acc[1] += s[1] * w
					acc[2] += s[2] * w
					acc[3] += s[3] * w
				}
			}
			dst.set(x, y, over(acc, seed))
		}
	}
}

// Vertical convolves columns of src into dst and scales the result by
// opacity.
func Vertical(dst, src *Image, k *Kernel, opacity float32) {
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			var acc Color
			if k.Empty() {
				acc = src.At(x, y)
			} else {
				for i, w := range k.Weights {
					s := sampleLinear(src, float32(x), float32(y)+k.Offsets[i])
					acc[0] += s[0] * w
					acc[1] += s[1] * w
					acc[2] += s[2] * w
					acc[3] += s[3] * w
				}
			}
			dst.set(x, y, Color{acc[0] * opacity, acc[1] * opacity, acc[2] * opacity, acc[3] * opacity})
		}
	}
}

// over composites premultiplied c over backdrop b.
func over(c, b Color) Color {
	inv := 1 - c[3]
	return Color{
		c[0] + b[0]*inv,
		c[1] + b[1]*inv,
		c[2] + b[2]*inv,
		c[3] + b[3]*inv,
	}
}

// sampleLinear reads src at a fractional texel position with bilinear
// filtering and clamp-to-edge addressing, like a linear GPU sampler.
func sampleLinear(src *Image, x, y float32) Color {
	x0f := float32(math.Floor(float64(x)))
	y0f := float32(math.Floor(float64(y)))
	fx := x - x0f
	fy := y - y0f
	x0, y0 := int(x0f), int(y0f)

	c00 := src.At(x0, y0)
	c10 := src.At(x0+1, y0)
	c01 := src.At(x0, y0+1)
	c11 := src.At(x0+1, y0+1)

	var out Color
	for i := 0; i < 4; i++ {
		top := c00[i]*(1-fx) + c10[i]*fx
		bottom := c01[i]*(1-fx) + c11[i]*fx
		out[i] = top*(1-fy) + bottom*fy
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
