package main

import (
	"context"
	"fmt"
	"image"
	"os"

	// Register decoders for image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/mox-desktop/moxpaper"
)

// decodeFile reads an image into premultiplied RGBA pixels.
func decodeFile(ctx context.Context, path string) (moxpaper.Pixels, error) {
	f, err := os.Open(path)
	if err != nil {
		return moxpaper.Pixels{}, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return moxpaper.Pixels{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return moxpaper.Pixels{}, err
	}

	rgba := toRGBA(img)
	logger.Debug("decoded wallpaper", "path", path, "format", format,
		"width", rgba.Rect.Dx(), "height", rgba.Rect.Dy())
	return moxpaper.Pixels{Data: rgba.Pix, Width: rgba.Rect.Dx(), Height: rgba.Rect.Dy()}, nil
}

// toRGBA returns img as a tightly packed *image.RGBA at the origin.
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == 4*b.Dx() {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return dst
}

// acquirer returns a function that decodes w's image into a request.
func acquirer(w wallpaperConfig) (moxpaper.AcquireFunc, error) {
	base, err := w.request()
	if err != nil {
		return nil, fmt.Errorf("wallpaper %s: %w", w.Path, err)
	}
	path := w.Path
	return func(ctx context.Context) (moxpaper.Request, error) {
		pix, err := decodeFile(ctx, path)
		if err != nil {
			return moxpaper.Request{}, err
		}
		req := base
		req.Pixels = pix
		return req, nil
	}, nil
}
