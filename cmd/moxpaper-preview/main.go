// Command moxpaper-preview renders wallpaper transitions offscreen.
//
// It reads a TOML playlist, sets each wallpaper on a single virtual output
// and optionally writes every presented frame as a PNG:
//
//	moxpaper-preview -config playlist.toml -capture frames/ -max-capture 120
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/mox-desktop/moxpaper"
)

var (
	configPath = flag.String("config", "", "TOML playlist (defaults to a single 1280x720 output)")
	backend    = flag.String("backend", "vulkan", "GPU backend: vulkan or noop")
	captureDir = flag.String("capture", "", "directory to write presented frames to")
	maxCapture = flag.Int("max-capture", 300, "maximum number of frames to capture")
	seed       = flag.Uint64("seed", 0, "seed for random transition styles (0 picks one)")
	verbose    = flag.Bool("v", false, "debug logging")
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	flag.Parse()
	if *verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	moxpaper.SetLogger(logger)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	for _, path := range flag.Args() {
		cfg.Wallpaper = append(cfg.Wallpaper, wallpaperConfig{Path: path})
	}
	if len(cfg.Wallpaper) == 0 {
		log.Fatalf("no wallpapers: pass image paths or a -config playlist")
	}

	if err := moxpaper.ValidateShaders(); err != nil {
		log.Fatalf("shaders: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, &cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, cfg *config) error {
	geom, err := cfg.geometry()
	if err != nil {
		return err
	}
	spec, err := cfg.Transition.spec()
	if err != nil {
		return fmt.Errorf("default transition: %w", err)
	}
	acquire := make([]moxpaper.AcquireFunc, len(cfg.Wallpaper))
	for i, w := range cfg.Wallpaper {
		if acquire[i], err = acquirer(w); err != nil {
			return err
		}
	}
	if *captureDir != "" {
		if err := os.MkdirAll(*captureDir, 0o755); err != nil {
			return err
		}
	}

	dev, err := openDevice(*backend)
	if err != nil {
		return err
	}
	defer dev.Close()
	logger.Info("device opened", "backend", *backend, "adapter", dev.name)

	opts := []moxpaper.Option{
		moxpaper.WithSurfaceFormat(surfaceFormat),
		moxpaper.WithDefaultTransition(spec),
	}
	if cfg.Slots > 0 {
		opts = append(opts, moxpaper.WithSlotCapacity(cfg.Slots))
	}
	if *seed != 0 {
		opts = append(opts, moxpaper.WithSeed(*seed))
	}
	eng, err := moxpaper.New(dev.device, dev.queue, opts...)
	if err != nil {
		return err
	}

	id := moxpaper.OutputID(cfg.Output.Name)
	w, h := geom.Physical()
	surf, err := newOffscreenSurface(dev.device, dev.queue, id, w, h, *captureDir, *maxCapture)
	if err != nil {
		return err
	}
	defer surf.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(ctx) }()
	go surf.drive(ctx, eng, cfg.Output.RefreshRate)

	if err := eng.AddOutput(id, geom, surf); err != nil {
		return err
	}

	for i, w := range cfg.Wallpaper {
		if err := eng.Fetch(id, acquire[i]); err != nil {
			return err
		}
		hold := time.Duration(w.HoldMS) * time.Millisecond
		if hold <= 0 {
			hold = holdFor(w, spec)
		}
		logger.Info("wallpaper set", "path", w.Path, "hold", hold)
		if !sleep(ctx, hold) {
			break
		}
	}

	var frames uint64
	if st, err := eng.Status(ctx, id); err == nil {
		frames = st.Frames
	}
	cancel()
	eng.Close()
	if err := <-runErr; err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("preview finished", "frames", frames, "captured", surf.captured)
	return nil
}

// holdFor waits out the wallpaper's transition plus a second of stillness.
func holdFor(w wallpaperConfig, def moxpaper.TransitionSpec) time.Duration {
	d := def.Duration
	if w.Transition != nil {
		d = time.Duration(w.Transition.DurationMS) * time.Millisecond
	}
	return d + time.Second
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
