package repository

import (
	"context"
	"database/sql"
	"time"
)

// Action outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Action is one mutating request the console sent to the backend.
type Action struct {
	ID        string
	Actor     string
	Resource  string
	Action    string
	Target    string
	Outcome   string
	Detail    string
	RequestID string
	CreatedAt time.Time
}

// ActionFilter narrows List. Zero values match everything.
type ActionFilter struct {
	Resource string
	Outcome  string
	Limit    int
}

// ActionLogRepo is the local audit trail.
type ActionLogRepo struct {
	db *sql.DB
}

func NewActionLogRepo(db *sql.DB) *ActionLogRepo {
	return &ActionLogRepo{db: db}
}

func (r *ActionLogRepo) Insert(ctx context.Context, a Action) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO action_log(id, actor, resource, action, target, outcome, detail, request_id, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Actor, a.Resource, a.Action, a.Target, a.Outcome, a.Detail, a.RequestID, a.CreatedAt.UTC())
	return err
}

// List returns matching actions, newest first.
func (r *ActionLogRepo) List(ctx context.Context, f ActionFilter) ([]Action, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, actor, resource, action, target, outcome, detail, request_id, created_at
	FROM action_log
	WHERE (? = '' OR resource = ?) AND (? = '' OR outcome = ?)
	ORDER BY created_at DESC, id
	LIMIT ?
	`, f.Resource, f.Resource, f.Outcome, f.Outcome, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Action
	for rows.Next() {
		var a Action
		if err := rows.Scan(&a.ID, &a.Actor, &a.Resource, &a.Action, &a.Target, &a.Outcome, &a.Detail, &a.RequestID, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Prune deletes actions older than cutoff.
func (r *ActionLogRepo) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM action_log WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
