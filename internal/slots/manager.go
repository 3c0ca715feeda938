package slots

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DefaultCapacity is the slot count used when New is given a capacity < 1.
// Two outputs mid-transition need four slots; the rest absorb rapid
// wallpaper changes without re-uploading.
const DefaultCapacity = 8

// TextureFormat is the format of every slot texture. Pixels passed to
// Upload are 8-bit RGBA, top row first.
const TextureFormat = gputypes.TextureFormatRGBA8Unorm

// Handle identifies a slot. The zero Handle is never valid.
//
// A Handle carries the slot's generation, so a handle kept past its slot's
// eviction reports ErrUnknownSlot instead of aliasing the new occupant.
type Handle struct {
	index uint32
	gen   uint32
}

// Valid reports whether h was issued by a Manager. It does not report
// whether the slot is still resident.
func (h Handle) Valid() bool {
	return h.gen != 0
}

// String implements fmt.Stringer.
func (h Handle) String() string {
	if !h.Valid() {
		return "slot(none)"
	}
	return fmt.Sprintf("slot(%d#%d)", h.index, h.gen)
}

type digest [16]byte

type slot struct {
	gen    uint32
	live   bool
	width  int
	height int
	pins   int
	sum    digest
	tex    hal.Texture
	view   hal.TextureView
	lru    lruLinks
}

// Manager owns the slot arena.
type Manager struct {
	device   hal.Device
	queue    hal.Queue
	capacity int

	slots    []slot
	free     []int
	byDigest map[digest]int
	unpinned lruList
	live     int

	uploads   uint64
	evictions uint64
	destroyed bool
}

// New creates a manager that holds at most capacity slots.
func New(device hal.Device, queue hal.Queue, capacity int) *Manager {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	m := &Manager{
		device:   device,
		queue:    queue,
		capacity: capacity,
		slots:    make([]slot, 0, capacity),
		byDigest: make(map[digest]int, capacity),
	}
	m.unpinned = newLRUList(func(i int) *lruLinks { return &m.slots[i].lru })
	return m
}

// Capacity returns the maximum number of resident slots.
func (m *Manager) Capacity() int {
	return m.capacity
}

// Len returns the number of resident slots.
func (m *Manager) Len() int {
	return m.live
}

// Unpinned returns the number of resident slots with a zero pin count.
func (m *Manager) Unpinned() int {
	return m.unpinned.Len()
}

// Stats returns the number of GPU uploads and evictions performed.
func (m *Manager) Stats() (uploads, evictions uint64) {
	return m.uploads, m.evictions
}

// Upload returns a slot holding pixels, which must contain at least
// width*height*4 bytes of RGBA data. If a resident slot already holds the
// same image its handle is returned and nothing is uploaded.
//
// The returned slot is unpinned; callers Pin it before drawing with it.
// When the arena is full the least recently unpinned slot is evicted. If
// every slot is pinned Upload returns ErrCapacityExceeded.
//
// The texture write is queued on the hal.Queue and therefore completes
// before any command buffer submitted afterwards reads it.
func (m *Manager) Upload(pixels []byte, width, height int) (Handle, error) {
	if m.destroyed {
		return Handle{}, ErrDestroyed
	}
	if width <= 0 || height <= 0 || len(pixels) < width*height*4 {
		return Handle{}, fmt.Errorf("%w: %dx%d with %d bytes", ErrInvalidImage, width, height, len(pixels))
	}
	pixels = pixels[:width*height*4]

	sum := contentDigest(pixels, width, height)
	if i, ok := m.byDigest[sum]; ok {
		s := &m.slots[i]
		if s.pins == 0 {
			m.unpinned.PushFront(i)
		}
		slogger().Debug("slots: upload deduplicated", "slot", i, "width", width, "height", height)
		return Handle{index: uint32(i), gen: s.gen}, nil //nolint:gosec // index bounded by capacity
	}

	if m.live >= m.capacity {
		if m.EvictUnused(1) == 0 {
			return Handle{}, ErrCapacityExceeded
		}
	}

	i := m.allocIndex()
	s := &m.slots[i]

	w := uint32(width)  //nolint:gosec // validated positive
	h := uint32(height) //nolint:gosec // validated positive
	tex, err := m.device.CreateTexture(&hal.TextureDescriptor{
		Label:         fmt.Sprintf("moxpaper_slot_%d", i),
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        TextureFormat,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		m.free = append(m.free, i)
		return Handle{}, fmt.Errorf("slots: create texture %d: %w", i, err)
	}
	view, err := m.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         fmt.Sprintf("moxpaper_slot_%d_view", i),
		Format:        TextureFormat,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		m.device.DestroyTexture(tex)
		m.free = append(m.free, i)
		return Handle{}, fmt.Errorf("slots: create texture view %d: %w", i, err)
	}

	m.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
		},
		pixels,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  w * 4,
			RowsPerImage: h,
		},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)

	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	s.live = true
	s.width = width
	s.height = height
	s.pins = 0
	s.sum = sum
	s.tex = tex
	s.view = view
	m.byDigest[sum] = i
	m.unpinned.PushFront(i)
	m.live++
	m.uploads++

	slogger().Debug("slots: uploaded", "slot", i, "width", width, "height", height, "resident", m.live)
	return Handle{index: uint32(i), gen: s.gen}, nil //nolint:gosec // index bounded by capacity
}

// Pin increments the slot's pin count, protecting it from eviction.
func (m *Manager) Pin(h Handle) error {
	i, err := m.lookup(h)
	if err != nil {
		return err
	}
	s := &m.slots[i]
	if s.pins == 0 {
		m.unpinned.Remove(i)
	}
	s.pins++
	return nil
}

// Unpin decrements the slot's pin count. A slot reaching zero pins becomes
// the most recently unpinned eviction candidate; it stays resident.
func (m *Manager) Unpin(h Handle) error {
	i, err := m.lookup(h)
	if err != nil {
		return err
	}
	s := &m.slots[i]
	if s.pins == 0 {
		return fmt.Errorf("%w: %s", ErrNotPinned, h)
	}
	s.pins--
	if s.pins == 0 {
		m.unpinned.PushFront(i)
	}
	return nil
}

// EvictUnused releases up to n unpinned slots, least recently unpinned
// first, and returns how many were released. n <= 0 releases every
// unpinned slot. Pinned slots are never touched.
func (m *Manager) EvictUnused(n int) int {
	evicted := 0
	for n <= 0 || evicted < n {
		i, ok := m.unpinned.RemoveOldest()
		if !ok {
			break
		}
		m.release(i)
		evicted++
	}
	if evicted > 0 {
		m.evictions += uint64(evicted) //nolint:gosec // evicted is non-negative
		slogger().Debug("slots: evicted", "count", evicted, "resident", m.live)
	}
	return evicted
}

// View returns the texture view of a resident slot.
func (m *Manager) View(h Handle) (hal.TextureView, error) {
	i, err := m.lookup(h)
	if err != nil {
		return nil, err
	}
	return m.slots[i].view, nil
}

// Size returns the source dimensions of a resident slot.
func (m *Manager) Size(h Handle) (width, height int, err error) {
	i, err := m.lookup(h)
	if err != nil {
		return 0, 0, err
	}
	return m.slots[i].width, m.slots[i].height, nil
}

// Pins returns the pin count of a slot, or 0 for an unknown handle.
func (m *Manager) Pins(h Handle) int {
	i, err := m.lookup(h)
	if err != nil {
		return 0
	}
	return m.slots[i].pins
}

// Destroy releases every slot, pinned or not. The manager cannot be used
// afterwards.
func (m *Manager) Destroy() {
	if m.destroyed {
		return
	}
	for i := range m.slots {
		if m.slots[i].live {
			m.unpinned.Remove(i)
			m.release(i)
		}
	}
	m.destroyed = true
}

func (m *Manager) lookup(h Handle) (int, error) {
	if m.destroyed {
		return 0, ErrDestroyed
	}
	i := int(h.index)
	if !h.Valid() || i >= len(m.slots) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSlot, h)
	}
	s := &m.slots[i]
	if !s.live || s.gen != h.gen {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSlot, h)
	}
	return i, nil
}

func (m *Manager) allocIndex() int {
	if n := len(m.free); n > 0 {
		i := m.free[n-1]
		m.free = m.free[:n-1]
		return i
	}
	m.slots = append(m.slots, slot{lru: lruLinks{prev: nilIndex, next: nilIndex}})
	return len(m.slots) - 1
}

func (m *Manager) release(i int) {
	s := &m.slots[i]
	if s.view != nil {
		m.device.DestroyTextureView(s.view)
	}
	if s.tex != nil {
		m.device.DestroyTexture(s.tex)
	}
	delete(m.byDigest, s.sum)
	s.live = false
	s.pins = 0
	s.tex = nil
	s.view = nil
	m.free = append(m.free, i)
	m.live--
}

// contentDigest hashes the dimensions and pixels with FNV-128a.
func contentDigest(pixels []byte, width, height int) digest {
	h := fnv.New128a()
	var dims [16]byte
	binary.LittleEndian.PutUint64(dims[0:], uint64(width))  //nolint:gosec // validated positive
	binary.LittleEndian.PutUint64(dims[8:], uint64(height)) //nolint:gosec // validated positive
	_, _ = h.Write(dims[:])
	_, _ = h.Write(pixels)
	var d digest
	h.Sum(d[:0])
	return d
}
