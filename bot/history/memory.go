package history

import (
	"context"
	"sync"
	"time"
)

// DefaultCapacity bounds a Memory recorder created with a non-positive capacity.
const DefaultCapacity = 1000

// Memory keeps the most recent entries in a fixed-size ring.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
	now     func() time.Time
}

// NewMemory constructs a ring holding up to capacity entries.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Memory{entries: make([]Entry, capacity), now: time.Now}
}

// Record implements Recorder. The oldest entry is overwritten when the ring is full.
func (m *Memory) Record(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[m.next] = prepare(e, m.now())
	m.next++
	if m.next == len(m.entries) {
		m.next = 0
		m.full = true
	}
	return nil
}

// Summary implements Recorder.
func (m *Memory) Summary(_ context.Context, since time.Time) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := newSummary(since)
	users := make(map[int64]struct{})
	for _, e := range m.snapshot() {
		if e.CreatedAt.Before(since) {
			continue
		}
		sum.Total++
		sum.ByOutcome[e.Outcome]++
		sum.ByAction[e.Action]++
		users[e.UserID] = struct{}{}
	}
	sum.Users = len(users)
	return sum, nil
}

// Recent returns up to n entries, newest first.
func (m *Memory) Recent(n int) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.snapshot()
	if n <= 0 || n > len(all) {
		n = len(all)
	}
	out := make([]Entry, 0, n)
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, all[i])
	}
	return out
}

// snapshot returns entries oldest first. Callers hold m.mu.
func (m *Memory) snapshot() []Entry {
	if !m.full {
		return m.entries[:m.next]
	}
	out := make([]Entry, 0, len(m.entries))
	out = append(out, m.entries[m.next:]...)
	return append(out, m.entries[:m.next]...)
}
