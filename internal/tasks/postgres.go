package tasks

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"execteam/internal/corelog"
)

// Recorder durably mirrors task mutations, grounded on the JSONB-upsert
// shape of internal/persistence/databases/playground_store.go. It is
// optional and best-effort: a Recorder failure is logged, never returned to
// the caller, since the Task Manager's authoritative state is the in-memory
// store (spec.md §4.2) and Postgres here is a durability mirror, not the
// source of truth.
type Recorder struct {
	pool *pgxpool.Pool
}

// NewRecorder constructs a Recorder and ensures its schema exists.
func NewRecorder(ctx context.Context, pool *pgxpool.Pool) (*Recorder, error) {
	r := &Recorder{pool: pool}
	stmt := `CREATE TABLE IF NOT EXISTS execteam_tasks (
		id TEXT PRIMARY KEY,
		assigned_to TEXT NOT NULL,
		status TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		payload JSONB NOT NULL
	);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return nil, err
	}
	return r, nil
}

// Record upserts t's current state. Errors are logged and swallowed.
func (r *Recorder) Record(ctx context.Context, t *Task) {
	payload, err := json.Marshal(t)
	if err != nil {
		corelog.FromContext(ctx).Error().Err(err).Str("task_id", t.ID).Msg("tasks: marshal for recorder failed")
		return
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO execteam_tasks (id, assigned_to, status, updated_at, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			assigned_to = EXCLUDED.assigned_to,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at,
			payload = EXCLUDED.payload
	`, t.ID, t.AssignedTo, string(t.Status), t.UpdatedAt, payload)
	if err != nil {
		corelog.FromContext(ctx).Error().Err(err).Str("task_id", t.ID).Msg("tasks: recorder upsert failed")
	}
}

// Delete removes t's durability record.
func (r *Recorder) Delete(ctx context.Context, taskID string) {
	if _, err := r.pool.Exec(ctx, `DELETE FROM execteam_tasks WHERE id = $1`, taskID); err != nil {
		corelog.FromContext(ctx).Error().Err(err).Str("task_id", taskID).Msg("tasks: recorder delete failed")
	}
}
