// Package mailbox hands values from producer goroutines to a single
// consumer, keeping only the latest value per key.
//
// Each key is a single-slot buffer. Put overwrites an unconsumed value and
// counts it as dropped, so a slow consumer always sees the newest value and
// a fast producer never blocks. The consumer selects on Ready and calls
// Drain.
package mailbox

import "sync"

// Mailbox is a keyed latest-wins handoff. The zero value is not usable;
// call New.
type Mailbox[K comparable, V any] struct {
	mu     sync.Mutex
	slots  map[K]V
	order  []K
	ready  chan struct{}
	closed bool

	puts    uint64
	dropped uint64
}

// New creates an empty mailbox.
func New[K comparable, V any]() *Mailbox[K, V] {
	return &Mailbox[K, V]{
		slots: make(map[K]V),
		ready: make(chan struct{}, 1),
	}
}

// Put stores v under k, replacing any unconsumed value. It never blocks.
// It reports false if the mailbox is closed.
func (m *Mailbox[K, V]) Put(k K, v V) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}
	if _, ok := m.slots[k]; ok {
		m.dropped++
	} else {
		m.order = append(m.order, k)
	}
	m.slots[k] = v
	m.puts++

	select {
	case m.ready <- struct{}{}:
	default:
	}
	return true
}

// Ready returns a channel that receives after a Put. One receive may stand
// for several Puts; the consumer drains everything pending.
func (m *Mailbox[K, V]) Ready() <-chan struct{} {
	return m.ready
}

// Entry is one drained key/value pair.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Drain removes and returns every pending value in first-put order.
func (m *Mailbox[K, V]) Drain() []Entry[K, V] {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.order) == 0 {
		return nil
	}
	out := make([]Entry[K, V], 0, len(m.order))
	for _, k := range m.order {
		out = append(out, Entry[K, V]{Key: k, Value: m.slots[k]})
		delete(m.slots, k)
	}
	m.order = m.order[:0]
	return out
}

// Stats returns the number of Puts and of values overwritten before they
// were consumed.
func (m *Mailbox[K, V]) Stats() (puts, dropped uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts, m.dropped
}

// Close rejects further Puts and discards pending values.
func (m *Mailbox[K, V]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	clear(m.slots)
	m.order = nil
}
