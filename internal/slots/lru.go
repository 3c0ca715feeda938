package slots

// nilIndex marks the absence of a neighbour in lruList.
const nilIndex = -1

// lruLinks are the list pointers embedded in every slot. They are indices
// into the manager's slot arena rather than pointers, so the arena can be
// grown by append without invalidating them.
type lruLinks struct {
	prev, next int
	linked     bool
}

// lruList is an intrusive doubly-linked list over arena indices.
// The head is the most recently unpinned slot, the tail the least.
//
// The list is not thread-safe; callers must handle synchronization.
type lruList struct {
	head, tail int
	len        int
	links      func(i int) *lruLinks
}

func newLRUList(links func(i int) *lruLinks) lruList {
	return lruList{head: nilIndex, tail: nilIndex, links: links}
}

// Len returns the number of linked slots.
func (l *lruList) Len() int {
	return l.len
}

// PushFront links slot i as most recently used. Already linked slots are
// moved to the front.
func (l *lruList) PushFront(i int) {
	n := l.links(i)
	if n.linked {
		if l.head == i {
			return
		}
		l.unlink(i)
	}
	n.prev = nilIndex
	n.next = l.head
	if l.head != nilIndex {
		l.links(l.head).prev = i
	}
	l.head = i
	if l.tail == nilIndex {
		l.tail = i
	}
	n.linked = true
	l.len++
}

// Remove unlinks slot i. Unlinked slots are ignored.
func (l *lruList) Remove(i int) {
	if !l.links(i).linked {
		return
	}
	l.unlink(i)
}

// RemoveOldest unlinks and returns the least recently used slot.
// Returns false if the list is empty.
func (l *lruList) RemoveOldest() (int, bool) {
	if l.tail == nilIndex {
		return nilIndex, false
	}
	i := l.tail
	l.unlink(i)
	return i, true
}

func (l *lruList) unlink(i int) {
	n := l.links(i)
	if n.prev != nilIndex {
		l.links(n.prev).next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nilIndex {
		l.links(n.next).prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev = nilIndex
	n.next = nilIndex
	n.linked = false
	l.len--
}
