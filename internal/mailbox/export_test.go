package mailbox

// take removes and returns the pending value for k.
func (m *Mailbox[K, V]) take(k K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.slots[k]
	if !ok {
		return v, false
	}
	delete(m.slots, k)
	for i, key := range m.order {
		if key == k {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return v, true
}

// pending returns the number of keys with a pending value.
func (m *Mailbox[K, V]) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}
