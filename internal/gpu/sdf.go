package gpu

import "math"

// cornerRadius converts a radius in percent of the half-diagonal of a box
// with half extents half into pixels, clamped to the shorter half extent.
// Negative or NaN inputs yield 0.
func cornerRadius(percent float32, half [2]float32) float32 {
	if !(percent > 0) || !(half[0] > 0) || !(half[1] > 0) {
		return 0
	}
	diag := float32(math.Hypot(float64(half[0]), float64(half[1])))
	return min(percent*0.01*diag, min(half[0], half[1]))
}

// ContainerRadii returns the container's corner radii in pixels, ordered
// top-left, top-right, bottom-right, bottom-left: each Radius percentage
// of the container half-diagonal, clamped to the shorter half extent.
func (in *Instance) ContainerRadii() [4]float32 {
	half := [2]float32{in.Container[2] / 2, in.Container[3] / 2}
	var r [4]float32
	for i, pct := range in.Radius {
		r[i] = cornerRadius(pct, half)
	}
	return r
}
