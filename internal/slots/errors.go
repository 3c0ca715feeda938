package slots

import "errors"

var (
	// ErrCapacityExceeded is returned by Upload when every slot is pinned
	// and the arena is full.
	ErrCapacityExceeded = errors.New("slots: capacity exceeded, all slots pinned")

	// ErrUnknownSlot is returned for handles that were never issued or whose
	// slot has since been evicted.
	ErrUnknownSlot = errors.New("slots: unknown or evicted slot")

	// ErrNotPinned is returned by Unpin when the slot's pin count is zero.
	ErrNotPinned = errors.New("slots: unpin of slot with zero pins")

	// ErrInvalidImage is returned by Upload for empty or short pixel buffers.
	ErrInvalidImage = errors.New("slots: invalid image dimensions or buffer size")

	// ErrDestroyed is returned after Destroy.
	ErrDestroyed = errors.New("slots: manager destroyed")
)
