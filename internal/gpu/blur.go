package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/mox-desktop/moxpaper/internal/blur"
)

// IntermediateFormat is the format of blur scratch and output targets.
const IntermediateFormat = gputypes.TextureFormatRGBA8Unorm

// MaxKernelTaps is the size of the kernel uniform array in blur.wgsl.
const MaxKernelTaps = 256

// MaxBlurStrength is the largest strength whose kernel fits MaxKernelTaps:
// blur.TapCount(84) is 253.
const MaxBlurStrength = 84

// blurKernelSize is the byte size of the kernel uniform buffer: one
// vec4<f32> (weight, offset, 0, 0) per tap.
const blurKernelSize = MaxKernelTaps * 16

// blurParamsSize is the byte size of the per-pass uniform buffer.
// Layout:
//
//	step     (vec2<f32>) = 8 bytes  (offset 0)
//	taps     (u32)       = 4 bytes  (offset 8)
//	vertical (u32)       = 4 bytes  (offset 12)
//	seed     (vec4<f32>) = 16 bytes (offset 16)
//	opacity  (f32)       = 4 bytes  (offset 32)
//	padding  (3 × f32)   = 12 bytes (offset 36)
const blurParamsSize = 48

// ClampStrength limits a blur strength to [0, MaxBlurStrength].
func ClampStrength(s int) int {
	return min(max(s, 0), MaxBlurStrength)
}

// blurPipeline runs one direction of the separable blur per draw.
//
// Bind group 0:
//
//	binding 0 = BlurParams (fragment)
//	binding 1 = Kernel     (fragment)
//	binding 2 = source texture
//	binding 3 = sampler
type blurPipeline struct {
	device hal.Device
	queue  hal.Queue

	shader     hal.ShaderModule
	layout     hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline

	kernels *blur.Cache
	// kernelBufs holds one uploaded kernel per strength for the pipeline's
	// lifetime, mirroring the kernel cache.
	kernelBufs map[int]hal.Buffer
}

func newBlurPipeline(device hal.Device, queue hal.Queue, kernels *blur.Cache) *blurPipeline {
	if kernels == nil {
		kernels = blur.NewCache()
	}
	return &blurPipeline{
		device:     device,
		queue:      queue,
		kernels:    kernels,
		kernelBufs: make(map[int]hal.Buffer),
	}
}

func (p *blurPipeline) ensure() error {
	if p.pipeline != nil {
		return nil
	}
	if err := p.create(); err != nil {
		p.destroy()
		return err
	}
	slogger().Info("gpu: blur pipeline created")
	return nil
}

func (p *blurPipeline) create() error { //nolint:dupl // pipeline descriptors share structure with compositePipeline
	if blurShaderSource == "" {
		return fmt.Errorf("%w: blur", ErrEmptyShader)
	}

	shader, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "moxpaper_blur_shader",
		Source: hal.ShaderSource{WGSL: blurShaderSource},
	})
	if err != nil {
		return fmt.Errorf("compile blur shader: %w", err)
	}
	p.shader = shader

	entries := []gputypes.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		},
		{
			Binding:    1,
			Visibility: gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		},
	}
	entries = append(entries, textureSamplerLayoutEntries(2)...)
	layout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "moxpaper_blur_layout",
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create blur layout: %w", err)
	}
	p.layout = layout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "moxpaper_blur_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.layout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "moxpaper_blur_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    IntermediateFormat,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create blur pipeline: %w", err)
	}
	p.pipeline = pipeline
	return nil
}

// kernelBuffer returns the uniform buffer for strength s, uploading it on
// first use.
func (p *blurPipeline) kernelBuffer(strength int) (hal.Buffer, *blur.Kernel, error) {
	k := p.kernels.Get(strength)
	if buf, ok := p.kernelBufs[k.Strength]; ok {
		return buf, k, nil
	}
	buf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: fmt.Sprintf("moxpaper_blur_kernel_%d", k.Strength),
		Size:  blurKernelSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create kernel buffer: %w", err)
	}
	p.queue.WriteBuffer(buf, 0, packKernel(k))
	p.kernelBufs[k.Strength] = buf
	slogger().Debug("gpu: blur kernel uploaded", "strength", k.Strength, "taps", k.Taps())
	return buf, k, nil
}

// destroy releases the pipeline and every kernel buffer.
func (p *blurPipeline) destroy() {
	if p.device == nil {
		return
	}
	for s, buf := range p.kernelBufs {
		p.device.DestroyBuffer(buf)
		delete(p.kernelBufs, s)
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.layout != nil {
		p.device.DestroyBindGroupLayout(p.layout)
		p.layout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}

// packKernel writes k's taps as vec4<f32>(weight, offset, 0, 0). Taps past
// MaxKernelTaps are dropped; ClampStrength keeps kernels within the limit.
func packKernel(k *blur.Kernel) []byte {
	buf := make([]byte, blurKernelSize)
	n := min(k.Taps(), MaxKernelTaps)
	for i := 0; i < n; i++ {
		off := i * 16
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(k.Weights[i]))
		binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(k.Offsets[i]))
	}
	return buf
}

// blurPassParams describes one blur draw.
type blurPassParams struct {
	vertical bool
	width    uint32
	height   uint32
	taps     int
	seed     [4]float32
	opacity  float32
}

// makeBlurParams packs the per-pass uniform buffer. The texel step is the
// reciprocal of the target extent along the pass direction.
func makeBlurParams(pp blurPassParams) []byte {
	buf := make([]byte, blurParamsSize)
	var sx, sy float32
	if pp.vertical {
		if pp.height > 0 {
			sy = 1 / float32(pp.height)
		}
	} else if pp.width > 0 {
		sx = 1 / float32(pp.width)
	}
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(sx))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(sy))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(min(max(pp.taps, 0), MaxKernelTaps))) //nolint:gosec // clamped
	if pp.vertical {
		binary.LittleEndian.PutUint32(buf[12:16], 1)
	}
	for i, v := range pp.seed {
		binary.LittleEndian.PutUint32(buf[16+4*i:20+4*i], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(pp.opacity))
	return buf
}
