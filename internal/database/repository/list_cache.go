package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// CachedList is the last successful list payload for one resource key.
type CachedList struct {
	Resource  string
	Payload   []byte
	RequestID string
	FetchedAt time.Time
}

// ListCacheRepo keeps one row per resource key so screens can render while
// the backend is unreachable.
type ListCacheRepo struct {
	db *sql.DB
}

func NewListCacheRepo(db *sql.DB) *ListCacheRepo {
	return &ListCacheRepo{db: db}
}

func (r *ListCacheRepo) Put(ctx context.Context, c CachedList) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO list_cache(resource, payload, request_id, fetched_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(resource) DO UPDATE SET
	 payload=excluded.payload,
	 request_id=excluded.request_id,
	 fetched_at=excluded.fetched_at;
	`, c.Resource, c.Payload, c.RequestID, c.FetchedAt.UTC())
	return err
}

// Get returns the cached payload; ok is false when nothing is cached.
func (r *ListCacheRepo) Get(ctx context.Context, resource string) (c CachedList, ok bool, err error) {
	row := r.db.QueryRowContext(ctx, `SELECT resource, payload, request_id, fetched_at FROM list_cache WHERE resource = ?`, resource)
	if err := row.Scan(&c.Resource, &c.Payload, &c.RequestID, &c.FetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CachedList{}, false, nil
		}
		return CachedList{}, false, err
	}
	return c, true, nil
}

// Invalidate drops every key with the given prefix, e.g. "holidays/" after a
// holiday is created.
func (r *ListCacheRepo) Invalidate(ctx context.Context, prefix string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM list_cache WHERE substr(resource, 1, ?) = ?`, len(prefix), prefix)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *ListCacheRepo) Keys(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT resource FROM list_cache ORDER BY resource`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
