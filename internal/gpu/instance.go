package gpu

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"
)

// instanceVertexStride is the byte stride per vertex in the composite
// pipeline. Every instance is expanded to 6 vertices that share all fields
// except corner.
//
//	corner           (vec2<f32>) = 8 bytes  (location 0)
//	rect             (vec4<f32>) = 16 bytes (location 1)
//	radius           (vec4<f32>) = 16 bytes (location 2)
//	container        (vec4<f32>) = 16 bytes (location 3)
//	scale            (f32)       = 4 bytes  (location 4)
//	rotation         (f32)       = 4 bytes  (location 5)
//	opacity          (f32)       = 4 bytes  (location 6)
//	container_radius (vec4<f32>) = 16 bytes (location 7)
//	blur             (f32)       = 4 bytes  (location 8)
//
// Total = 88 bytes per vertex.
const instanceVertexStride = 88

// verticesPerInstance is two triangles.
const verticesPerInstance = 6

// Instance is one textured rectangle for the composite pass.
//
// Coordinates are output pixels with the origin at the bottom-left corner
// and y pointing up, matching normalized device coordinates. Use FlipRect
// to convert a top-left origin rectangle.
type Instance struct {
	// Rect is x, y, width, height of the unscaled rectangle.
	Rect [4]float32
	// Scale multiplies the size. The vertex stage anchors the scaled
	// rectangle at Rect's position, so callers centre it beforehand.
	Scale float32
	// Rotation in radians, counter-clockwise around the rectangle centre.
	Rotation float32
	// Opacity in [0,1]. Ignored when Blur > 0; the blur pass applies it.
	Opacity float32
	// Radius is the per-corner radius in percent of the half-diagonal,
	// ordered top-left, top-right, bottom-right, bottom-left. The same
	// percentages round the container against its own half-diagonal.
	Radius [4]float32
	// Container is x, y, width, height of the clip rectangle.
	Container [4]float32
	// Blur is the blur strength. When positive the instance samples its
	// blurred intermediate instead of the source texture.
	Blur int32
}

// FlipRect converts a rectangle with a top-left origin into the bottom-left
// origin space of an output that is outputHeight pixels tall.
func FlipRect(x, y, w, h, outputHeight float32) [4]float32 {
	return [4]float32{x, outputHeight - y - h, w, h}
}

// unitQuad lists the corners of two triangles covering [0,1]².
var unitQuad = [verticesPerInstance][2]float32{
	{0, 1}, {1, 1}, {0, 0},
	{1, 1}, {1, 0}, {0, 0},
}

// instanceVertexLayout returns the vertex buffer layout for the composite
// pipeline.
func instanceVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: instanceVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},  // corner
				{Format: gputypes.VertexFormatFloat32x4, Offset: 8, ShaderLocation: 1},  // rect
				{Format: gputypes.VertexFormatFloat32x4, Offset: 24, ShaderLocation: 2}, // radius
				{Format: gputypes.VertexFormatFloat32x4, Offset: 40, ShaderLocation: 3}, // container
				{Format: gputypes.VertexFormatFloat32, Offset: 56, ShaderLocation: 4},   // scale
				{Format: gputypes.VertexFormatFloat32, Offset: 60, ShaderLocation: 5},   // rotation
				{Format: gputypes.VertexFormatFloat32, Offset: 64, ShaderLocation: 6},   // opacity
				{Format: gputypes.VertexFormatFloat32x4, Offset: 68, ShaderLocation: 7}, // container_radius
				{Format: gputypes.VertexFormatFloat32, Offset: 84, ShaderLocation: 8},   // blur
			},
		},
	}
}

// buildInstanceVertices packs every instance as 6 vertices.
func buildInstanceVertices(instances []Instance) []byte {
	buf := make([]byte, len(instances)*verticesPerInstance*instanceVertexStride)
	offset := 0
	for i := range instances {
		for _, c := range unitQuad {
			writeInstanceVertex(buf[offset:], c, &instances[i])
			offset += instanceVertexStride
		}
	}
	return buf
}

// writeInstanceVertex writes a single vertex into buf.
func writeInstanceVertex(buf []byte, corner [2]float32, in *Instance) {
	put := func(off int, v float32) {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
	}
	put(0, corner[0])
	put(4, corner[1])
	for k := 0; k < 4; k++ {
		put(8+4*k, in.Rect[k])
	}
	// The shader selects corners by quadrant in y-up space and expects
	// (top-right, bottom-right, top-left, bottom-left).
	r := shaderRadius(in.Radius)
	for k := 0; k < 4; k++ {
		put(24+4*k, r[k])
	}
	for k := 0; k < 4; k++ {
		put(40+4*k, in.Container[k])
	}
	put(56, in.Scale)
	put(60, in.Rotation)
	put(64, in.Opacity)
	cr := shaderRadius(in.ContainerRadii())
	for k := 0; k < 4; k++ {
		put(68+4*k, cr[k])
	}
	put(84, float32(in.Blur))
}

// shaderRadius reorders top-left, top-right, bottom-right, bottom-left into
// the shader's quadrant order.
func shaderRadius(r [4]float32) [4]float32 {
	return [4]float32{r[1], r[2], r[0], r[3]}
}
