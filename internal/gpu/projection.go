package gpu

import (
	"encoding/binary"
	"math"
)

// ProjectionMode selects how the composite vertex stage maps output pixels
// to clip space.
type ProjectionMode uint8

const (
	// ProjectionDirect maps p to 2·p/resolution − 1, framing the whole
	// output.
	ProjectionDirect ProjectionMode = iota
	// ProjectionMatrix multiplies by Projection.Matrix.
	ProjectionMatrix
)

// String implements fmt.Stringer.
func (m ProjectionMode) String() string {
	if m == ProjectionMatrix {
		return "matrix"
	}
	return "direct"
}

// Projection is the tagged projection of one output. Matrix is column-major
// and only read in ProjectionMatrix mode.
type Projection struct {
	Mode   ProjectionMode
	Matrix [16]float32
}

// Direct returns the full-output projection.
func Direct() Projection {
	return Projection{Mode: ProjectionDirect}
}

// Ortho returns a matrix projection mapping the box [left,right]×[bottom,top]
// onto clip space.
func Ortho(left, right, bottom, top float32) Projection {
	p := Projection{Mode: ProjectionMatrix}
	w := right - left
	h := top - bottom
	if w == 0 || h == 0 {
		return Direct()
	}
	p.Matrix = [16]float32{
		2 / w, 0, 0, 0,
		0, 2 / h, 0, 0,
		0, 0, 1, 0,
		-(right + left) / w, -(top + bottom) / h, 0, 1,
	}
	return p
}

// Apply maps an output-pixel position to normalized device coordinates.
func (p Projection) Apply(pos [2]float32, width, height float32) [2]float32 {
	if p.Mode == ProjectionMatrix {
		m := &p.Matrix
		x := m[0]*pos[0] + m[4]*pos[1] + m[12]
		y := m[1]*pos[0] + m[5]*pos[1] + m[13]
		w := m[3]*pos[0] + m[7]*pos[1] + m[15]
		if w != 0 && w != 1 {
			x /= w
			y /= w
		}
		return [2]float32{x, y}
	}
	if width <= 0 || height <= 0 {
		return [2]float32{}
	}
	return [2]float32{2*pos[0]/width - 1, 2*pos[1]/height - 1}
}

// compositeUniformSize is the byte size of the composite uniform buffer.
// Layout:
//
//	resolution (vec2<f32>)   = 8 bytes  (offset 0)
//	mode       (u32)         = 4 bytes  (offset 8)
//	padding    (u32)         = 4 bytes  (offset 12)
//	projection (mat4x4<f32>) = 64 bytes (offset 16)
const compositeUniformSize = 80

// makeCompositeUniform packs the composite uniform buffer.
func makeCompositeUniform(w, h uint32, proj Projection) []byte {
	buf := make([]byte, compositeUniformSize)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(float32(w)))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(float32(h)))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(proj.Mode))
	for i, v := range proj.Matrix {
		binary.LittleEndian.PutUint32(buf[16+4*i:20+4*i], math.Float32bits(v))
	}
	return buf
}
