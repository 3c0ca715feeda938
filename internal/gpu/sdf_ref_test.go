package gpu

import "math"

// CPU mirror of the coverage math in composite.wgsl.

// aaFactor scales the screen-space derivative of the distance into the
// anti-aliasing half-band, about one pixel of feather.
const aaFactor = 0.6

// minAA keeps the smoothstep band non-empty where derivatives vanish.
const minAA = 1e-4

// roundedRectSDF returns the signed distance from p to a box centred at the
// origin with half extents half, negative inside. r holds the corner radii
// in pixels ordered top-left, top-right, bottom-right, bottom-left; y points
// up.
func roundedRectSDF(p, half [2]float32, r [4]float32) float32 {
	var rad float32
	switch {
	case p[0] > 0 && p[1] > 0:
		rad = r[1]
	case p[0] > 0:
		rad = r[2]
	case p[1] > 0:
		rad = r[0]
	default:
		rad = r[3]
	}
	qx := abs32(p[0]) - half[0] + rad
	qy := abs32(p[1]) - half[1] + rad
	outside := float32(math.Hypot(float64(max(qx, 0)), float64(max(qy, 0))))
	return min(max(qx, qy), 0) + outside - rad
}

func coverage(d, aa float32) float32 {
	aa = max(aa, minAA)
	return smoothstep(-aa, aa, -d)
}

func aaBand(fwidth float32) float32 {
	return max(fwidth*aaFactor, minAA)
}

// boxCoverage is the coverage of p against a box with per-corner radii in
// pixels. Degenerate boxes cover nothing.
func boxCoverage(p, half [2]float32, r [4]float32, aa float32) float32 {
	if !(half[0] > 0) || !(half[1] > 0) {
		return 0
	}
	return coverage(roundedRectSDF(p, half, r), aa)
}

func percentRadii(percent [4]float32, half [2]float32) [4]float32 {
	var r [4]float32
	for i, pct := range percent {
		r[i] = cornerRadius(pct, half)
	}
	return r
}

// instanceCoverage returns the product of the own-rectangle and container
// coverages of inst at world position p (output pixels, y up).
func instanceCoverage(inst Instance, p [2]float32, aa float32) float32 {
	w, h := inst.Rect[2]*inst.Scale, inst.Rect[3]*inst.Scale
	half := [2]float32{w / 2, h / 2}
	cx := inst.Rect[0] + half[0]
	cy := inst.Rect[1] + half[1]

	s, c := math.Sincos(float64(-inst.Rotation))
	dx, dy := float64(p[0]-cx), float64(p[1]-cy)
	local := [2]float32{float32(dx*c - dy*s), float32(dx*s + dy*c)}

	own := boxCoverage(local, half, percentRadii(inst.Radius, half), aa)
	if own == 0 {
		return 0
	}

	chalf := [2]float32{inst.Container[2] / 2, inst.Container[3] / 2}
	cp := [2]float32{
		p[0] - (inst.Container[0] + chalf[0]),
		p[1] - (inst.Container[1] + chalf[1]),
	}
	return own * boxCoverage(cp, chalf, inst.ContainerRadii(), aa)
}

// instanceAlpha is the composite output alpha for a texel of alpha texA.
// Blurred instances already carry their opacity.
func instanceAlpha(inst Instance, p [2]float32, texA, aa float32) float32 {
	opacity := inst.Opacity
	if inst.Blur > 0 {
		opacity = 1
	}
	return texA * instanceCoverage(inst, p, aa) * opacity
}

func smoothstep(e0, e1, x float32) float32 {
	t := (x - e0) / (e1 - e0)
	t = min(max(t, 0), 1)
	return t * t * (3 - 2*t)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
