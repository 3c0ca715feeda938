package moxpaper

import (
	"fmt"
	"image"

	"github.com/mox-desktop/moxpaper/internal/fit"
	"github.com/mox-desktop/moxpaper/internal/gpu"
	"github.com/mox-desktop/moxpaper/internal/transition"
)

// prepare resizes req's image for o and uploads it, returning the layer
// that shows it. The slot is not pinned.
func (e *Engine) prepare(o *output, req *Request) (transition.Layer, error) {
	pl := req.resolve(o.width, o.height, o.geom.scale())
	if pl.degenerate {
		slogger().Warn("moxpaper: degenerate geometry clamped",
			"output", o.id, "rect", pl.rect, "container", pl.container)
	}

	src, err := fit.RGBA(req.Pixels.Data, req.Pixels.Width, req.Pixels.Height)
	if err != nil {
		return transition.Layer{}, fmt.Errorf("%w: %w", ErrInvalidPixels, err)
	}
	var img *image.RGBA
	if pl.fitW == req.Pixels.Width && pl.fitH == req.Pixels.Height {
		img = src
	} else {
		img = fit.Apply(src, pl.fitW, pl.fitH, req.Resize, fit.Options{Background: req.Background})
	}

	h, err := e.slots.Upload(img.Pix, img.Rect.Dx(), img.Rect.Dy())
	if err != nil {
		return transition.Layer{}, err
	}
	return transition.Layer{
		Slot:      h,
		Rect:      pl.rect,
		Container: pl.container,
		Rotation:  req.Rotation,
		Radius:    req.Radius,
		Blur:      max(req.Blur, 0),
		BlurColor: req.blurSeed(),
		Opacity:   req.opacity(),
	}, nil
}

// buildFrame turns o's current placements into draws.
func (e *Engine) buildFrame(o *output) *gpu.Frame {
	f := &gpu.Frame{
		Width:      uint32(o.width),  //nolint:gosec // clamped positive
		Height:     uint32(o.height), //nolint:gosec // clamped positive
		Projection: o.projection(),
		Clear:      e.opts.clearColor,
	}
	for _, p := range o.machine.Placements() {
		view, err := e.slots.View(p.Layer.Slot)
		if err != nil {
			slogger().Warn("moxpaper: layer texture missing", "output", o.id, "slot", p.Layer.Slot, "err", err)
			continue
		}
		f.Draws = append(f.Draws, gpu.Draw{
			Instance: instanceFor(p, float32(o.height)),
			Source:   view,
			BlurSeed: p.Layer.BlurColor,
		})
	}
	return f
}

func (o *output) projection() gpu.Projection {
	if o.geom.Projection == ProjectionMatrix {
		return gpu.Ortho(0, float32(o.width), 0, float32(o.height))
	}
	return gpu.Direct()
}

// instanceFor converts a placement in top-left output space into a GPU
// instance. The scaled rectangle stays centred on the layer's rectangle
// and the transition clip narrows the container. A rounded clip replaces
// the layer's corner radii, which round both the image and the container.
func instanceFor(p transition.Placement, outputHeight float32) gpu.Instance {
	r := p.Layer.Rect
	scale := float32(p.Appearance.Scale)
	x := r.X + r.Width*(1-scale)/2
	y := r.Y + r.Height*(1-scale)/2
	// FlipRect needs the scaled height to place the bottom edge; Instance
	// stores the unscaled size.
	flipped := gpu.FlipRect(x, y, r.Width*scale, r.Height*scale, outputHeight)

	c := p.Layer.Container.Sub(p.Appearance.Clip)
	radius := p.Layer.Radius
	if p.Appearance.ClipRounded {
		cr := float32(p.Appearance.ClipRadius)
		radius = [4]float32{cr, cr, cr, cr}
	}

	return gpu.Instance{
		Rect:      [4]float32{flipped[0], flipped[1], r.Width, r.Height},
		Scale:     scale,
		Rotation:  p.Layer.Rotation + float32(p.Appearance.Rotation),
		Opacity:   p.Layer.Opacity * float32(p.Appearance.Opacity),
		Radius:    radius,
		Container: gpu.FlipRect(c.X, c.Y, c.Width, c.Height, outputHeight),
		Blur:      int32(gpu.ClampStrength(p.Layer.Blur)), //nolint:gosec // clamped
	}
}
