package history

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRingKeepsNewest(t *testing.T) {
	m := NewMemory(3)
	ctx := context.Background()
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, m.Record(ctx, Entry{UserID: i, Action: "tags", Outcome: OutcomeSuccess}))
	}

	recent := m.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, []int64{5, 4, 3}, []int64{recent[0].UserID, recent[1].UserID, recent[2].UserID})
}

func TestMemorySummary(t *testing.T) {
	m := NewMemory(10)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()
	entries := []Entry{
		{UserID: 1, Action: "tags", Outcome: OutcomeSuccess, CreatedAt: base.Add(-2 * time.Hour)},
		{UserID: 1, Action: "tags", Outcome: OutcomeSuccess, CreatedAt: base},
		{UserID: 2, Action: "title", Outcome: OutcomeFailure, CreatedAt: base.Add(time.Minute)},
		{UserID: 2, Action: "hashtags", Outcome: OutcomeEmpty, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		require.NoError(t, m.Record(ctx, e))
	}

	sum, err := m.Summary(ctx, base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 2, sum.Users)
	assert.Equal(t, 1, sum.ByOutcome[OutcomeSuccess])
	assert.Equal(t, 1, sum.ByAction["title"])

	counts := sum.Counts()
	require.Len(t, counts, 3)
	assert.Equal(t, OutcomeEmpty, counts[0].Outcome)
}

func TestPrepareFillsIDAndTruncates(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	e := prepare(Entry{Input: strings.Repeat("x", maxInputLen+10)}, now)

	assert.Equal(t, now, e.CreatedAt)
	assert.Len(t, e.Input, maxInputLen)
	id, err := ulid.ParseStrict(e.ID)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(now), id.Time())
}

func TestNewIDSortsByTime(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := NewID(t0)
	b := NewID(t0)
	c := NewID(t0.Add(time.Second))
	assert.Less(t, a, b)
	assert.Less(t, b, c)
}
