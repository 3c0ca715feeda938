package mailbox

import (
	"sync"
	"testing"
	"time"
)

func TestMailboxLatestWins(t *testing.T) {
	m := New[string, int]()
	m.Put("DP-1", 1)
	m.Put("DP-1", 2)
	m.Put("DP-1", 3)

	got := m.Drain()
	if len(got) != 1 || got[0].Key != "DP-1" || got[0].Value != 3 {
		t.Fatalf("Drain() = %v, want [{DP-1 3}]", got)
	}
	puts, dropped := m.Stats()
	if puts != 3 || dropped != 2 {
		t.Errorf("Stats() = (%d, %d), want (3, 2)", puts, dropped)
	}
	if m.Drain() != nil {
		t.Error("second Drain() returned values")
	}
}

func TestMailboxOrder(t *testing.T) {
	m := New[string, int]()
	m.Put("b", 1)
	m.Put("a", 2)
	m.Put("b", 3)

	got := m.Drain()
	if len(got) != 2 || got[0].Key != "b" || got[1].Key != "a" {
		t.Errorf("Drain() = %v, want b then a", got)
	}
	if got[0].Value != 3 {
		t.Errorf("b = %d, want 3", got[0].Value)
	}
}

func TestMailboxReadySignals(t *testing.T) {
	m := New[int, string]()
	select {
	case <-m.Ready():
		t.Fatal("Ready fired before any Put")
	default:
	}

	m.Put(1, "x")
	m.Put(2, "y")
	select {
	case <-m.Ready():
	case <-time.After(time.Second):
		t.Fatal("Ready did not fire after Put")
	}
	if m.pending() != 2 {
		t.Errorf("pending() = %d, want 2", m.pending())
	}
}

func TestMailboxTakeOne(t *testing.T) {
	m := New[string, int]()
	m.Put("a", 1)
	m.Put("b", 2)

	v, ok := m.take("a")
	if !ok || v != 1 {
		t.Errorf("take(a) = (%d, %v), want (1, true)", v, ok)
	}
	if _, ok := m.take("a"); ok {
		t.Error("take(a) twice succeeded")
	}
	got := m.Drain()
	if len(got) != 1 || got[0].Key != "b" {
		t.Errorf("Drain() = %v, want only b", got)
	}
}

func TestMailboxClose(t *testing.T) {
	m := New[string, int]()
	m.Put("a", 1)
	m.Close()
	if m.Put("a", 2) {
		t.Error("Put after Close succeeded")
	}
	if m.pending() != 0 {
		t.Errorf("pending() = %d after Close, want 0", m.pending())
	}
}

func TestMailboxConcurrentProducers(t *testing.T) {
	m := New[int, int]()
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(key int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				m.Put(key, i)
			}
		}(p)
	}
	wg.Wait()

	got := m.Drain()
	if len(got) != 4 {
		t.Fatalf("Drain() returned %d keys, want 4", len(got))
	}
	for _, e := range got {
		if e.Value != 99 {
			t.Errorf("key %d = %d, want 99", e.Key, e.Value)
		}
	}
	if puts, dropped := m.Stats(); puts != 400 || dropped != 396 {
		t.Errorf("Stats() = (%d, %d), want (400, 396)", puts, dropped)
	}
}
