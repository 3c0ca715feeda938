package slots

// contains reports whether slot i is linked.
func (l *lruList) contains(i int) bool {
	return l.links(i).linked
}

// oldest returns the least recently used slot without unlinking it.
func (l *lruList) oldest() (int, bool) {
	if l.tail == nilIndex {
		return nilIndex, false
	}
	return l.tail, true
}

// resident reports whether h still refers to a live slot.
func (m *Manager) resident(h Handle) bool {
	_, err := m.lookup(h)
	return err == nil
}
