// Package gpu renders wallpaper frames with gogpu/wgpu's HAL.
//
// A frame is a list of Instances, each a textured rectangle with rotation,
// scale, per-corner rounded clipping and a rounded container clip. The
// Renderer turns a frame into an ordered pass plan: every blurred instance
// first gets a horizontal and a vertical blur pass into offscreen targets,
// then a single composite pass draws all instances into the caller's
// surface view.
//
// Shaders are WGSL sources embedded from shaders/. Their vertex and uniform
// layouts are documented next to the packing code in instance.go,
// composite.go and blur.go.
//
// The CPU functions in sdf.go evaluate the composite shader's coverage
// math so it can be tested without a GPU.
package gpu
