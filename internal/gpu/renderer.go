package gpu

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/mox-desktop/moxpaper/internal/blur"
)

// DefaultSubmitTimeout bounds the wait for one frame's submission.
const DefaultSubmitTimeout = 5 * time.Second

// Draw is one instance with the texture it samples.
type Draw struct {
	Instance
	// Source is the instance's texture view, top row first.
	Source hal.TextureView
	// BlurSeed seeds the horizontal blur accumulation (premultiplied
	// RGBA). The zero value blurs against transparency.
	BlurSeed [4]float32
}

// Frame is everything needed to render one output.
type Frame struct {
	// Target is the view the composite pass renders into. Its format must
	// match the renderer's surface format.
	Target        hal.TextureView
	Width, Height uint32
	Projection    Projection
	// Clear is the colour the target is cleared to before compositing.
	Clear gputypes.Color
	// Draws are composited back to front.
	Draws []Draw
}

// Instances returns the instances of f's draws.
func (f *Frame) Instances() []Instance {
	out := make([]Instance, len(f.Draws))
	for i := range f.Draws {
		out[i] = f.Draws[i].Instance
	}
	return out
}

// offscreen is a render-attachment texture that later passes sample.
type offscreen struct {
	tex  hal.Texture
	view hal.TextureView
}

// Renderer owns the composite and blur pipelines of one device and the
// offscreen targets blurred frames need. It is not safe for concurrent
// use; one render goroutine drives it.
type Renderer struct {
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat

	composite *compositePipeline
	blur      *blurPipeline
	sampler   hal.Sampler

	scratch       offscreen
	blurred       []offscreen
	width, height uint32

	timeout time.Duration
	frames  uint64
}

// NewRenderer creates a renderer drawing into targets of the given format.
// Pipelines and offscreen targets are created on first use. kernels may be
// shared with other renderers; nil creates a private cache.
func NewRenderer(device hal.Device, queue hal.Queue, format gputypes.TextureFormat, kernels *blur.Cache) *Renderer {
	return &Renderer{
		device:    device,
		queue:     queue,
		format:    format,
		composite: newCompositePipeline(device, format),
		blur:      newBlurPipeline(device, queue, kernels),
		timeout:   DefaultSubmitTimeout,
	}
}

// Format returns the surface format the composite pipeline targets.
func (r *Renderer) Format() gputypes.TextureFormat {
	return r.format
}

// SetSubmitTimeout changes how long Render waits for the GPU.
func (r *Renderer) SetSubmitTimeout(d time.Duration) {
	if d > 0 {
		r.timeout = d
	}
}

// Frames returns the number of frames submitted.
func (r *Renderer) Frames() uint64 {
	return r.frames
}

// Render encodes f's pass plan, submits it and waits for completion. It
// returns the plan that was executed.
func (r *Renderer) Render(f *Frame) ([]Pass, error) {
	if r.device == nil || r.queue == nil {
		return nil, ErrNoDevice
	}
	if f == nil || f.Target == nil || f.Width == 0 || f.Height == 0 {
		return nil, ErrNoTarget
	}
	for i := range f.Draws {
		if f.Draws[i].Source == nil {
			return nil, fmt.Errorf("%w: draw %d", ErrSourceMismatch, i)
		}
	}

	plan := Plan(f.Instances())
	if err := r.ensure(f.Width, f.Height, blurredCount(plan)); err != nil {
		return nil, err
	}

	var res frameResources
	defer res.release(r.device)

	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "moxpaper_frame_encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("moxpaper_frame"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}

	// sampled[i] is the view the composite pass reads for draw i.
	sampled := make([]hal.TextureView, len(f.Draws))
	for i := range f.Draws {
		sampled[i] = f.Draws[i].Source
	}

	for _, p := range plan {
		switch p.Kind {
		case PassBlurHorizontal:
			d := &f.Draws[p.Instance]
			err = r.encodeBlur(encoder, &res, p, d.Source, r.scratch, blurPassParams{
				width: f.Width, height: f.Height, seed: d.BlurSeed, opacity: 1,
			})
		case PassBlurVertical:
			d := &f.Draws[p.Instance]
			dst := r.blurred[p.Dest.Index]
			err = r.encodeBlur(encoder, &res, p, r.scratch.view, dst, blurPassParams{
				vertical: true, width: f.Width, height: f.Height, opacity: clampOpacity(d.Opacity),
			})
			sampled[p.Instance] = dst.view
		case PassComposite:
			err = r.encodeComposite(encoder, &res, f, sampled)
		}
		if err != nil {
			encoder.DiscardEncoding()
			return nil, fmt.Errorf("encode %s pass: %w", p.Kind, err)
		}
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	defer r.device.FreeCommandBuffer(cmdBuf)

	if err := r.submitAndWait(cmdBuf); err != nil {
		return nil, err
	}
	r.frames++
	slogger().Debug("gpu: frame rendered",
		"passes", len(plan), "draws", len(f.Draws), "width", f.Width, "height", f.Height)
	return plan, nil
}

// encodeBlur records one blur pass from src into dst.
func (r *Renderer) encodeBlur(
	encoder hal.CommandEncoder, res *frameResources, p Pass,
	src hal.TextureView, dst offscreen, pp blurPassParams,
) error {
	kernelBuf, k, err := r.blur.kernelBuffer(p.Strength)
	if err != nil {
		return err
	}
	pp.taps = k.Taps()

	paramsBuf, err := r.uploadBuffer(res, "moxpaper_blur_params", makeBlurParams(pp),
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}

	entries := []gputypes.BindGroupEntry{
		{Binding: 0, Resource: gputypes.BufferBinding{
			Buffer: paramsBuf.NativeHandle(), Offset: 0, Size: blurParamsSize,
		}},
		{Binding: 1, Resource: gputypes.BufferBinding{
			Buffer: kernelBuf.NativeHandle(), Offset: 0, Size: blurKernelSize,
		}},
	}
	entries = append(entries, textureSamplerEntries(2, src, r.sampler)...)
	bg, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "moxpaper_blur_bind",
		Layout:  r.blur.layout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create blur bind group: %w", err)
	}
	res.bindGroups = append(res.bindGroups, bg)

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: dst.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageTextureBinding,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "moxpaper_" + p.Kind.String(),
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:       dst.view,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
			},
		},
	})
	rp.SetPipeline(r.blur.pipeline)
	rp.SetBindGroup(0, bg, nil)
	rp.Draw(3, 1, 0, 0)
	rp.End()
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: dst.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageTextureBinding,
		},
	}})
	return nil
}

// encodeComposite records the composite pass. The target is always
// cleared, so a frame without draws blanks the output.
func (r *Renderer) encodeComposite(
	encoder hal.CommandEncoder, res *frameResources, f *Frame, sampled []hal.TextureView,
) error {
	uniformBuf, err := r.uploadBuffer(res, "moxpaper_composite_uniform",
		makeCompositeUniform(f.Width, f.Height, f.Projection),
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	uniformBG, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "moxpaper_composite_uniform_bind",
		Layout: r.composite.uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: uniformBuf.NativeHandle(), Offset: 0, Size: compositeUniformSize,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("create uniform bind group: %w", err)
	}
	res.bindGroups = append(res.bindGroups, uniformBG)

	var vertBuf hal.Buffer
	textureBGs := make([]hal.BindGroup, len(f.Draws))
	if len(f.Draws) > 0 {
		vertBuf, err = r.uploadBuffer(res, "moxpaper_composite_verts",
			buildInstanceVertices(f.Instances()),
			gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
		if err != nil {
			return err
		}
		for i, view := range sampled {
			bg, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
				Label:   fmt.Sprintf("moxpaper_composite_texture_%d", i),
				Layout:  r.composite.textureLayout,
				Entries: textureSamplerEntries(0, view, r.sampler),
			})
			if err != nil {
				return fmt.Errorf("create texture bind group %d: %w", i, err)
			}
			res.bindGroups = append(res.bindGroups, bg)
			textureBGs[i] = bg
		}
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "moxpaper_composite_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:       f.Target,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: f.Clear,
			},
		},
	})
	if len(f.Draws) > 0 {
		rp.SetPipeline(r.composite.pipeline)
		rp.SetBindGroup(0, uniformBG, nil)
		rp.SetVertexBuffer(0, vertBuf, 0)
		for i, bg := range textureBGs {
			rp.SetBindGroup(1, bg, nil)
			rp.Draw(verticesPerInstance, 1, uint32(i*verticesPerInstance), 0) //nolint:gosec // draw count is small
		}
	}
	rp.End()
	return nil
}

// ensure creates pipelines, the sampler and offscreen targets for a
// width×height frame with the given number of blurred instances.
func (r *Renderer) ensure(w, h uint32, blurred int) error {
	if err := r.composite.ensure(); err != nil {
		return fmt.Errorf("composite pipeline: %w", err)
	}
	if r.sampler == nil {
		s, err := r.device.CreateSampler(&hal.SamplerDescriptor{
			Label:        "moxpaper_linear_sampler",
			AddressModeU: gputypes.AddressModeClampToEdge,
			AddressModeV: gputypes.AddressModeClampToEdge,
			AddressModeW: gputypes.AddressModeClampToEdge,
			MagFilter:    gputypes.FilterModeLinear,
			MinFilter:    gputypes.FilterModeLinear,
			MipmapFilter: gputypes.FilterModeLinear,
		})
		if err != nil {
			return fmt.Errorf("create sampler: %w", err)
		}
		r.sampler = s
	}
	if blurred == 0 {
		return nil
	}
	if err := r.blur.ensure(); err != nil {
		return fmt.Errorf("blur pipeline: %w", err)
	}
	return r.ensureTargets(w, h, blurred)
}

// ensureTargets (re)creates the scratch target and at least n blurred
// targets at w×h. Targets grow but are only shrunk by a size change.
func (r *Renderer) ensureTargets(w, h uint32, n int) error {
	if r.width != w || r.height != h {
		r.destroyTargets()
	}
	if r.scratch.tex == nil {
		t, err := r.createOffscreen("moxpaper_blur_scratch", w, h)
		if err != nil {
			return err
		}
		r.scratch = t
		r.width, r.height = w, h
	}
	for len(r.blurred) < n {
		t, err := r.createOffscreen(fmt.Sprintf("moxpaper_blurred_%d", len(r.blurred)), w, h)
		if err != nil {
			return err
		}
		r.blurred = append(r.blurred, t)
	}
	return nil
}

func (r *Renderer) createOffscreen(label string, w, h uint32) (offscreen, error) {
	tex, err := r.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        IntermediateFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		return offscreen{}, fmt.Errorf("create %s: %w", label, err)
	}
	view, err := r.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        IntermediateFormat,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		r.device.DestroyTexture(tex)
		return offscreen{}, fmt.Errorf("create %s view: %w", label, err)
	}
	return offscreen{tex: tex, view: view}, nil
}

func (r *Renderer) destroyOffscreen(t offscreen) {
	if t.view != nil {
		r.device.DestroyTextureView(t.view)
	}
	if t.tex != nil {
		r.device.DestroyTexture(t.tex)
	}
}

func (r *Renderer) destroyTargets() {
	r.destroyOffscreen(r.scratch)
	r.scratch = offscreen{}
	for _, t := range r.blurred {
		r.destroyOffscreen(t)
	}
	r.blurred = nil
	r.width, r.height = 0, 0
}

// Destroy releases every GPU object the renderer created. Safe to call
// more than once.
func (r *Renderer) Destroy() {
	if r.device == nil {
		return
	}
	r.destroyTargets()
	if r.sampler != nil {
		r.device.DestroySampler(r.sampler)
		r.sampler = nil
	}
	r.blur.destroy()
	r.composite.destroy()
}

// uploadBuffer creates a buffer holding data and records it for release
// after submission.
func (r *Renderer) uploadBuffer(res *frameResources, label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	r.queue.WriteBuffer(buf, 0, data)
	res.buffers = append(res.buffers, buf)
	return buf, nil
}

func (r *Renderer) submitAndWait(cmdBuf hal.CommandBuffer) error {
	fence, err := r.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer r.device.DestroyFence(fence)

	if err := r.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	ok, err := r.device.Wait(fence, 1, r.timeout)
	if err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	if !ok {
		return ErrGPUTimeout
	}
	return nil
}

// frameResources are per-frame objects destroyed after submission.
type frameResources struct {
	buffers    []hal.Buffer
	bindGroups []hal.BindGroup
}

func (res *frameResources) release(device hal.Device) {
	for _, bg := range res.bindGroups {
		device.DestroyBindGroup(bg)
	}
	for _, b := range res.buffers {
		device.DestroyBuffer(b)
	}
	res.bindGroups = nil
	res.buffers = nil
}

func clampOpacity(v float32) float32 {
	return min(max(v, 0), 1)
}

// Target is an offscreen texture frames can be rendered into and read back
// from. Hosts without a presentation surface use it.
type Target struct {
	Texture       hal.Texture
	View          hal.TextureView
	Width, Height uint32
}

// NewTarget creates a width×height offscreen target in the renderer's
// surface format.
func (r *Renderer) NewTarget(w, h uint32) (*Target, error) {
	if r.device == nil {
		return nil, ErrNoDevice
	}
	if w == 0 || h == 0 {
		return nil, ErrNoTarget
	}
	tex, err := r.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "moxpaper_offscreen_target",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        r.format,
		Usage: gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc |
			gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, fmt.Errorf("create offscreen target: %w", err)
	}
	view, err := r.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "moxpaper_offscreen_target_view",
		Format:        r.format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		r.device.DestroyTexture(tex)
		return nil, fmt.Errorf("create offscreen target view: %w", err)
	}
	return &Target{Texture: tex, View: view, Width: w, Height: h}, nil
}

// DestroyTarget releases t.
func (r *Renderer) DestroyTarget(t *Target) {
	if t == nil {
		return
	}
	r.destroyOffscreen(offscreen{tex: t.Texture, view: t.View})
	t.Texture, t.View = nil, nil
}

// Readback copies t's pixels to the CPU as tightly packed rows of four
// bytes per pixel in the target's format, top row first.
func (r *Renderer) Readback(t *Target) ([]byte, error) {
	if r.device == nil || r.queue == nil {
		return nil, ErrNoDevice
	}
	if t == nil || t.Texture == nil {
		return nil, ErrNoTarget
	}
	w, h := t.Width, t.Height

	// Copies require BytesPerRow aligned to 256 bytes.
	bytesPerRow := w * 4
	const copyPitchAlignment = 256
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "moxpaper_readback_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer r.device.DestroyBuffer(staging)

	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "moxpaper_readback_encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("moxpaper_readback"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.Texture,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(t.Texture, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: t.Texture, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.Texture,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	defer r.device.FreeCommandBuffer(cmdBuf)

	if err := r.submitAndWait(cmdBuf); err != nil {
		return nil, err
	}

	raw := make([]byte, stagingSize)
	if err := r.queue.ReadBuffer(staging, 0, raw); err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}
	return stripRowPadding(raw, int(bytesPerRow), int(alignedBytesPerRow), int(h)), nil
}

// stripRowPadding removes per-row padding from an aligned copy.
func stripRowPadding(raw []byte, rowBytes, pitch, rows int) []byte {
	if rowBytes == pitch {
		return raw[:rowBytes*rows]
	}
	tight := make([]byte, rowBytes*rows)
	for row := 0; row < rows; row++ {
		copy(tight[row*rowBytes:(row+1)*rowBytes], raw[row*pitch:row*pitch+rowBytes])
	}
	return tight
}
