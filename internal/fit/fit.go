// Package fit maps a decoded wallpaper onto an output's pixel size.
package fit

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	xdraw "golang.org/x/image/draw"
)

// ErrUnknownStrategy is returned by ParseStrategy.
var ErrUnknownStrategy = errors.New("fit: unknown resize strategy")

// Strategy selects how an image is mapped onto an output.
type Strategy uint8

const (
	// Crop scales the image to cover the output and crops the overflow,
	// keeping the centre. It is the default.
	Crop Strategy = iota
	// No keeps the image at its own size, centred, padding or cropping as
	// needed.
	No
	// Fit scales the image to lie within the output, centred, padding the
	// remainder.
	Fit
	// Stretch scales each axis independently to fill the output.
	Stretch
)

var strategyNames = [...]string{
	Crop:    "crop",
	No:      "no",
	Fit:     "fit",
	Stretch: "stretch",
}

// String implements fmt.Stringer.
func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return fmt.Sprintf("Strategy(%d)", uint8(s))
}

// ParseStrategy returns the strategy with the given name. The empty string
// is Crop.
func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Crop, nil
	}
	for i, n := range strategyNames {
		if n == name {
			return Strategy(i), nil //nolint:gosec // bounded by strategyNames
		}
	}
	return Crop, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// Options tune Apply.
type Options struct {
	// Background fills area the image does not cover. nil is opaque black.
	Background color.Color
	// Scaler resamples the image. nil is CatmullRom.
	Scaler xdraw.Scaler
}

// Apply returns a width×height RGBA image holding src mapped with s.
// Non-positive sizes yield a 1×1 image.
func Apply(src image.Image, width, height int, s Strategy, opts Options) *image.RGBA {
	width = max(width, 1)
	height = max(height, 1)
	bg := opts.Background
	if bg == nil {
		bg = color.Black
	}
	scaler := opts.Scaler
	if scaler == nil {
		scaler = xdraw.CatmullRom
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw <= 0 || sh <= 0 {
		xdraw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, xdraw.Src)
		return dst
	}

	if sw == width && sh == height {
		xdraw.Draw(dst, dst.Bounds(), src, sb.Min, xdraw.Src)
		return dst
	}

	switch s {
	case No:
		xdraw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, xdraw.Src)
		at := image.Rect(0, 0, sw, sh).Add(image.Pt((width-sw)/2, (height-sh)/2))
		xdraw.Draw(dst, at, src, sb.Min, xdraw.Over)

	case Fit:
		xdraw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, xdraw.Src)
		fw, fh := width, height
		// Compare aspect ratios without division: sw/sh > width/height.
		if sw*height > width*sh {
			fh = max(sh*width/sw, 1)
		} else {
			fw = max(sw*height/sh, 1)
		}
		at := image.Rect(0, 0, fw, fh).Add(image.Pt((width-fw)/2, (height-fh)/2))
		scaler.Scale(dst, at, src, sb, xdraw.Over, nil)

	case Stretch:
		scaler.Scale(dst, dst.Bounds(), src, sb, xdraw.Src, nil)

	default: // Crop
		scaler.Scale(dst, dst.Bounds(), src, CropRect(sb, width, height), xdraw.Src, nil)
	}
	return dst
}

// CropRect returns the largest centred sub-rectangle of r with the aspect
// ratio width:height.
func CropRect(r image.Rectangle, width, height int) image.Rectangle {
	sw, sh := r.Dx(), r.Dy()
	if sw <= 0 || sh <= 0 || width <= 0 || height <= 0 {
		return r
	}
	cw, ch := sw, sh
	if sw*height > width*sh {
		cw = max(sh*width/height, 1)
	} else {
		ch = max(sw*height/width, 1)
	}
	x := r.Min.X + (sw-cw)/2
	y := r.Min.Y + (sh-ch)/2
	return image.Rect(x, y, x+cw, y+ch)
}

// RGBA wraps a tightly packed RGBA buffer as an image without copying.
func RGBA(pix []byte, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 || len(pix) < width*height*4 {
		return nil, fmt.Errorf("fit: %dx%d image needs %d bytes, have %d", width, height, width*height*4, len(pix))
	}
	return &image.RGBA{
		Pix:    pix[:width*height*4],
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}, nil
}
