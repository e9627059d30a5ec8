// Package history records what users asked for and how each request ended.
package history

import (
	"context"
	"crypto/rand"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Outcome classifies a finished request.
type Outcome string

const (
	OutcomeSuccess           Outcome = "success"
	OutcomeEmpty             Outcome = "empty"
	OutcomeFailure           Outcome = "failure"
	OutcomeInvalidAddress    Outcome = "invalid_address"
	OutcomeGenerationFailure Outcome = "generation_failure"
)

// Entry is one handled request.
type Entry struct {
	ID        string    `db:"id"`
	UserID    int64     `db:"user_id"`
	Action    string    `db:"action"`
	Input     string    `db:"input"`
	Outcome   Outcome   `db:"outcome"`
	Reason    string    `db:"reason"`
	CreatedAt time.Time `db:"created_at"`
}

// Summary aggregates entries recorded since a point in time.
type Summary struct {
	Since     time.Time
	Total     int
	ByOutcome map[Outcome]int
	ByAction  map[string]int
	Users     int
}

// Counts returns the outcome counts in a stable order for display.
func (s Summary) Counts() []OutcomeCount {
	out := make([]OutcomeCount, 0, len(s.ByOutcome))
	for o, n := range s.ByOutcome {
		out = append(out, OutcomeCount{Outcome: o, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Outcome < out[j].Outcome
	})
	return out
}

// OutcomeCount pairs an outcome with its number of entries.
type OutcomeCount struct {
	Outcome Outcome
	Count   int
}

// Recorder persists entries and summarizes them.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	Summary(ctx context.Context, since time.Time) (Summary, error)
}

const maxInputLen = 512

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a ULID for t; IDs sort by creation time.
func NewID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// prepare fills the ID and timestamp of e and truncates oversized input.
func prepare(e Entry, now time.Time) Entry {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.ID == "" {
		e.ID = NewID(e.CreatedAt)
	}
	if r := []rune(e.Input); len(r) > maxInputLen {
		e.Input = string(r[:maxInputLen])
	}
	return e
}

func newSummary(since time.Time) Summary {
	return Summary{
		Since:     since,
		ByOutcome: make(map[Outcome]int),
		ByAction:  make(map[string]int),
	}
}
