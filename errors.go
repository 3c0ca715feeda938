package moxpaper

import (
	"errors"

	"github.com/mox-desktop/moxpaper/internal/slots"
)

var (
	// ErrClosed is returned by host calls after Run has returned or Close
	// was called.
	ErrClosed = errors.New("moxpaper: engine closed")

	// ErrNoDevice is returned by New when the device or queue is nil.
	ErrNoDevice = errors.New("moxpaper: no GPU device")

	// ErrProviderNotHAL is returned by NewFromProvider when the provider
	// does not expose hal.Device and hal.Queue.
	ErrProviderNotHAL = errors.New("moxpaper: provider does not expose HAL device and queue")

	// ErrUnknownOutput is reported for operations on an output that was
	// never added or has been removed.
	ErrUnknownOutput = errors.New("moxpaper: unknown output")

	// ErrOutputExists is reported when an output name is added twice.
	ErrOutputExists = errors.New("moxpaper: output already exists")

	// ErrNoSurface is reported when an output is added without a surface.
	ErrNoSurface = errors.New("moxpaper: output has no surface")

	// ErrInvalidPixels is reported for requests whose pixel buffer is
	// smaller than its dimensions.
	ErrInvalidPixels = errors.New("moxpaper: invalid pixel buffer")

	// ErrCapacityExceeded means every texture slot is pinned. Requests
	// that hit it are deferred and retried once a slot is released.
	ErrCapacityExceeded = slots.ErrCapacityExceeded
)
