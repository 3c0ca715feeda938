package main

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/mox-desktop/moxpaper"
	"github.com/mox-desktop/moxpaper/internal/gpu"
)

// surfaceFormat is the format of the offscreen target and the engine's
// configured surface format.
const surfaceFormat = gputypes.TextureFormatRGBA8Unorm

// offscreenSurface is a moxpaper.Surface backed by a GPU texture. A ticker
// plays the compositor and answers frame requests at a fixed rate. Each
// presented frame can be read back and written as a PNG.
type offscreenSurface struct {
	id       moxpaper.OutputID
	renderer *gpu.Renderer

	mu     sync.Mutex
	target *gpu.Target

	wanted atomic.Bool

	captureDir string
	maxCapture int
	captured   int
	presented  uint64
}

func newOffscreenSurface(device hal.Device, queue hal.Queue, id moxpaper.OutputID, w, h int, captureDir string, maxCapture int) (*offscreenSurface, error) {
	s := &offscreenSurface{
		id:         id,
		renderer:   gpu.NewRenderer(device, queue, surfaceFormat, nil),
		captureDir: captureDir,
		maxCapture: maxCapture,
	}
	if err := s.resize(w, h); err != nil {
		return nil, err
	}
	return s, nil
}

// resize replaces the target when the physical size changes.
func (s *offscreenSurface) resize(w, h int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target != nil && int(s.target.Width) == w && int(s.target.Height) == h {
		return nil
	}
	t, err := s.renderer.NewTarget(uint32(w), uint32(h))
	if err != nil {
		return fmt.Errorf("create %dx%d target: %w", w, h, err)
	}
	if s.target != nil {
		s.renderer.DestroyTarget(s.target)
	}
	s.target = t
	return nil
}

func (s *offscreenSurface) AcquireView() (hal.TextureView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target == nil {
		return nil, fmt.Errorf("surface %s has no target", s.id)
	}
	return s.target.View, nil
}

func (s *offscreenSurface) Present() error {
	s.presented++
	if s.captureDir == "" || s.captured >= s.maxCapture {
		return nil
	}

	s.mu.Lock()
	t := s.target
	s.mu.Unlock()

	pix, err := s.renderer.Readback(t)
	if err != nil {
		return fmt.Errorf("read back frame: %w", err)
	}
	img := &image.RGBA{
		Pix:    pix,
		Stride: int(t.Width) * 4,
		Rect:   image.Rect(0, 0, int(t.Width), int(t.Height)),
	}
	name := filepath.Join(s.captureDir, fmt.Sprintf("%s-%05d.png", s.id, s.presented))
	if err := writePNG(name, img); err != nil {
		return err
	}
	s.captured++
	return nil
}

func (s *offscreenSurface) RequestFrame() {
	s.wanted.Store(true)
}

// Reacquire recreates the target at its current size.
func (s *offscreenSurface) Reacquire() error {
	s.mu.Lock()
	w, h := 0, 0
	if s.target != nil {
		w, h = int(s.target.Width), int(s.target.Height)
		s.renderer.DestroyTarget(s.target)
		s.target = nil
	}
	s.mu.Unlock()
	if w == 0 || h == 0 {
		return fmt.Errorf("surface %s has no size", s.id)
	}
	return s.resize(w, h)
}

// drive answers frame requests at the given refresh rate until ctx is done.
func (s *offscreenSurface) drive(ctx context.Context, eng *moxpaper.Engine, refreshRate int) {
	if refreshRate <= 0 {
		refreshRate = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(refreshRate))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.wanted.Swap(false) {
				if err := eng.FrameDone(s.id); err != nil {
					return
				}
			}
		}
	}
}

func (s *offscreenSurface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target != nil {
		s.renderer.DestroyTarget(s.target)
		s.target = nil
	}
	s.renderer.Destroy()
}

func writePNG(name string, img image.Image) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return f.Close()
}
