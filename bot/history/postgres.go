package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Postgres stores entries in the interactions table.
type Postgres struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewPostgres wraps an open connection. The schema comes from the embedded migrations.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db, now: time.Now}
}

const insertEntry = `
INSERT INTO interactions (id, user_id, action, input, outcome, reason, created_at)
VALUES (:id, :user_id, :action, :input, :outcome, :reason, :created_at)`

// Record implements Recorder.
func (p *Postgres) Record(ctx context.Context, e Entry) error {
	e = prepare(e, p.now())
	if _, err := p.db.NamedExecContext(ctx, insertEntry, e); err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

type countRow struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}

// Summary implements Recorder.
func (p *Postgres) Summary(ctx context.Context, since time.Time) (Summary, error) {
	sum := newSummary(since)

	var outcomes []countRow
	if err := p.db.SelectContext(ctx, &outcomes,
		`SELECT outcome AS key, COUNT(*) AS count FROM interactions WHERE created_at >= $1 GROUP BY outcome`, since); err != nil {
		return Summary{}, fmt.Errorf("count outcomes: %w", err)
	}
	for _, r := range outcomes {
		sum.ByOutcome[Outcome(r.Key)] = r.Count
		sum.Total += r.Count
	}

	var actions []countRow
	if err := p.db.SelectContext(ctx, &actions,
		`SELECT action AS key, COUNT(*) AS count FROM interactions WHERE created_at >= $1 GROUP BY action`, since); err != nil {
		return Summary{}, fmt.Errorf("count actions: %w", err)
	}
	for _, r := range actions {
		sum.ByAction[r.Key] = r.Count
	}

	if err := p.db.GetContext(ctx, &sum.Users,
		`SELECT COUNT(DISTINCT user_id) FROM interactions WHERE created_at >= $1`, since); err != nil {
		return Summary{}, fmt.Errorf("count users: %w", err)
	}
	return sum, nil
}
