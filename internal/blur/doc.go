// Package blur computes the Gaussian tables consumed by the two-pass blur
// pipeline.
//
// A blur strength is a small integer s. Strength 0 is the identity and
// yields an empty kernel; both GPU pipelines skip sampling loops entirely
// for it. For s > 0 the kernel covers 3·s texels on each side of the
// centre (three standard deviations with σ = s), and adjacent texel pairs
// are folded into a single bilinear tap so the shader samples roughly half
// as many times as the raw kernel width.
//
// Kernels are immutable once built and are cached per strength for the
// lifetime of the process.
package blur
