package gpu

import "errors"

var (
	// ErrNoDevice is returned when a renderer is used without a device.
	ErrNoDevice = errors.New("gpu: no device")

	// ErrEmptyShader is returned when an embedded shader source is empty.
	ErrEmptyShader = errors.New("gpu: shader source is empty")

	// ErrNoTarget is returned when a frame has no target view or a zero
	// size.
	ErrNoTarget = errors.New("gpu: frame has no target")

	// ErrSourceMismatch is returned when a draw has no source view.
	ErrSourceMismatch = errors.New("gpu: one source view per draw required")

	// ErrGPUTimeout is returned when a submission does not complete.
	ErrGPUTimeout = errors.New("gpu: wait for submission timed out")
)
