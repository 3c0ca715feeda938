package slots

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice creates a noop device and queue for testing.
// Returns the device, queue, and a cleanup function.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// solid returns a w×h RGBA buffer filled with one colour.
func solid(w, h int, r, g, b byte) []byte {
	pix := make([]byte, w*h*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = r, g, b, 255
	}
	return pix
}

func newTestManager(t *testing.T, capacity int) *Manager {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	m := New(device, queue, capacity)
	t.Cleanup(func() {
		m.Destroy()
		cleanup()
	})
	return m
}

func mustUpload(t *testing.T, m *Manager, pix []byte, w, h int) Handle {
	t.Helper()
	hd, err := m.Upload(pix, w, h)
	if err != nil {
		t.Fatalf("Upload(%dx%d) failed: %v", w, h, err)
	}
	return hd
}

func TestNewDefaultCapacity(t *testing.T) {
	m := newTestManager(t, 0)
	if m.Capacity() != DefaultCapacity {
		t.Errorf("Capacity() = %d, want %d", m.Capacity(), DefaultCapacity)
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
}

func TestUploadCreatesSlot(t *testing.T) {
	m := newTestManager(t, 4)
	h := mustUpload(t, m, solid(4, 2, 10, 20, 30), 4, 2)

	if !h.Valid() {
		t.Fatal("expected valid handle")
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
	w, hh, err := m.Size(h)
	if err != nil || w != 4 || hh != 2 {
		t.Errorf("Size() = (%d, %d, %v), want (4, 2, nil)", w, hh, err)
	}
	view, err := m.View(h)
	if err != nil || view == nil {
		t.Errorf("View() = (%v, %v), want non-nil view", view, err)
	}
	if m.Pins(h) != 0 {
		t.Errorf("Pins() = %d, want 0 after upload", m.Pins(h))
	}
}

func TestUploadDeduplicates(t *testing.T) {
	m := newTestManager(t, 4)
	a := mustUpload(t, m, solid(8, 8, 1, 2, 3), 8, 8)
	b := mustUpload(t, m, solid(8, 8, 1, 2, 3), 8, 8)

	if a != b {
		t.Errorf("identical uploads returned %v and %v, want same handle", a, b)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
	if uploads, _ := m.Stats(); uploads != 1 {
		t.Errorf("uploads = %d, want 1", uploads)
	}
}

func TestUploadDistinguishesDimensions(t *testing.T) {
	m := newTestManager(t, 4)
	// Same bytes, different shape.
	pix := solid(4, 4, 9, 9, 9)
	a := mustUpload(t, m, pix, 4, 4)
	b := mustUpload(t, m, pix, 8, 2)
	if a == b {
		t.Error("uploads with different dimensions share a slot")
	}
}

func TestUploadInvalid(t *testing.T) {
	m := newTestManager(t, 4)
	tests := []struct {
		name string
		pix  []byte
		w, h int
	}{
		{"zero width", solid(1, 1, 0, 0, 0), 0, 1},
		{"negative height", solid(1, 1, 0, 0, 0), 1, -1},
		{"short buffer", make([]byte, 15), 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Upload(tt.pix, tt.w, tt.h)
			if !errors.Is(err, ErrInvalidImage) {
				t.Errorf("Upload error = %v, want ErrInvalidImage", err)
			}
		})
	}
}

func TestPinUnpin(t *testing.T) {
	m := newTestManager(t, 4)
	h := mustUpload(t, m, solid(2, 2, 1, 1, 1), 2, 2)

	for i := 0; i < 3; i++ {
		if err := m.Pin(h); err != nil {
			t.Fatalf("Pin failed: %v", err)
		}
	}
	if m.Pins(h) != 3 {
		t.Errorf("Pins() = %d, want 3", m.Pins(h))
	}
	if m.Unpinned() != 0 {
		t.Errorf("Unpinned() = %d, want 0", m.Unpinned())
	}
	for i := 0; i < 3; i++ {
		if err := m.Unpin(h); err != nil {
			t.Fatalf("Unpin failed: %v", err)
		}
	}
	if m.Pins(h) != 0 {
		t.Errorf("Pins() = %d, want 0", m.Pins(h))
	}
	if m.Unpinned() != 1 {
		t.Errorf("Unpinned() = %d, want 1", m.Unpinned())
	}
}

func TestUnpinNeverNegative(t *testing.T) {
	m := newTestManager(t, 4)
	h := mustUpload(t, m, solid(2, 2, 1, 1, 1), 2, 2)

	if err := m.Unpin(h); !errors.Is(err, ErrNotPinned) {
		t.Errorf("Unpin on zero pins = %v, want ErrNotPinned", err)
	}
	if m.Pins(h) != 0 {
		t.Errorf("Pins() = %d, want 0", m.Pins(h))
	}
}

func TestUnknownHandle(t *testing.T) {
	m := newTestManager(t, 4)
	var zero Handle
	if err := m.Pin(zero); !errors.Is(err, ErrUnknownSlot) {
		t.Errorf("Pin(zero) = %v, want ErrUnknownSlot", err)
	}
	if _, err := m.View(Handle{index: 7, gen: 1}); !errors.Is(err, ErrUnknownSlot) {
		t.Errorf("View(out of range) = %v, want ErrUnknownSlot", err)
	}
}

func TestEvictUnusedSkipsPinned(t *testing.T) {
	m := newTestManager(t, 4)
	pinned := mustUpload(t, m, solid(2, 2, 1, 0, 0), 2, 2)
	free := mustUpload(t, m, solid(2, 2, 0, 1, 0), 2, 2)
	if err := m.Pin(pinned); err != nil {
		t.Fatal(err)
	}

	if n := m.EvictUnused(0); n != 1 {
		t.Errorf("EvictUnused(0) = %d, want 1", n)
	}
	if !m.resident(pinned) {
		t.Error("pinned slot was evicted")
	}
	if m.resident(free) {
		t.Error("unpinned slot survived EvictUnused(0)")
	}
	if _, err := m.View(free); !errors.Is(err, ErrUnknownSlot) {
		t.Errorf("View(evicted) = %v, want ErrUnknownSlot", err)
	}
}

func TestEvictionOrderIsLeastRecentlyUnpinned(t *testing.T) {
	m := newTestManager(t, 3)
	a := mustUpload(t, m, solid(1, 1, 1, 0, 0), 1, 1)
	b := mustUpload(t, m, solid(1, 1, 2, 0, 0), 1, 1)
	c := mustUpload(t, m, solid(1, 1, 3, 0, 0), 1, 1)

	// Pin all, then unpin in order b, a, c: b is least recently unpinned.
	for _, h := range []Handle{a, b, c} {
		if err := m.Pin(h); err != nil {
			t.Fatal(err)
		}
	}
	for _, h := range []Handle{b, a, c} {
		if err := m.Unpin(h); err != nil {
			t.Fatal(err)
		}
	}

	d := mustUpload(t, m, solid(1, 1, 4, 0, 0), 1, 1)
	if m.resident(b) {
		t.Error("expected b to be evicted first")
	}
	for _, h := range []Handle{a, c, d} {
		if !m.resident(h) {
			t.Errorf("%v evicted, want resident", h)
		}
	}
	if _, evictions := m.Stats(); evictions != 1 {
		t.Errorf("evictions = %d, want 1", evictions)
	}
}

func TestUploadCapacityExceeded(t *testing.T) {
	m := newTestManager(t, 2)
	for i := byte(0); i < 2; i++ {
		h := mustUpload(t, m, solid(1, 1, i, 0, 0), 1, 1)
		if err := m.Pin(h); err != nil {
			t.Fatal(err)
		}
	}

	_, err := m.Upload(solid(1, 1, 99, 0, 0), 1, 1)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("Upload with all slots pinned = %v, want ErrCapacityExceeded", err)
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestUploadDedupWhenFull(t *testing.T) {
	m := newTestManager(t, 1)
	pix := solid(3, 3, 5, 5, 5)
	h := mustUpload(t, m, pix, 3, 3)
	if err := m.Pin(h); err != nil {
		t.Fatal(err)
	}
	// Full and pinned, but identical content needs no new slot.
	again, err := m.Upload(pix, 3, 3)
	if err != nil {
		t.Fatalf("Upload of resident content failed: %v", err)
	}
	if again != h {
		t.Errorf("got %v, want %v", again, h)
	}
}

func TestStaleHandleAfterReuse(t *testing.T) {
	m := newTestManager(t, 1)
	old := mustUpload(t, m, solid(1, 1, 1, 1, 1), 1, 1)
	fresh := mustUpload(t, m, solid(1, 1, 2, 2, 2), 1, 1)

	if old.index != fresh.index {
		t.Fatalf("expected slot reuse, got %v then %v", old, fresh)
	}
	if err := m.Pin(old); !errors.Is(err, ErrUnknownSlot) {
		t.Errorf("Pin(stale) = %v, want ErrUnknownSlot", err)
	}
	if m.Pins(fresh) != 0 {
		t.Errorf("Pins(fresh) = %d, want 0", m.Pins(fresh))
	}
}

func TestDestroy(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	m := New(device, queue, 2)
	h, err := m.Upload(solid(1, 1, 1, 1, 1), 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Pin(h); err != nil {
		t.Fatal(err)
	}
	m.Destroy()
	m.Destroy() // idempotent

	if m.Len() != 0 {
		t.Errorf("Len() = %d after Destroy, want 0", m.Len())
	}
	if _, err := m.Upload(solid(1, 1, 1, 1, 1), 1, 1); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Upload after Destroy = %v, want ErrDestroyed", err)
	}
}
