package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/attendly/hrdesk/internal/database"
	"github.com/attendly/hrdesk/internal/database/repository"
)

func openCache(t *testing.T) *repository.ListCacheRepo {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(db))
	return repository.NewListCacheRepo(db)
}

func TestListCachePutGetInvalidate(t *testing.T) {
	ctx := context.Background()
	repo := openCache(t)

	_, ok, err := repo.Get(ctx, "holidays/2026")
	require.NoError(t, err)
	require.False(t, ok)

	fetched := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Put(ctx, repository.CachedList{Resource: "holidays/2026", Payload: []byte(`[{"id":"h1"}]`), RequestID: "r1", FetchedAt: fetched}))
	require.NoError(t, repo.Put(ctx, repository.CachedList{Resource: "holidays/2027", Payload: []byte(`[]`), FetchedAt: fetched}))
	require.NoError(t, repo.Put(ctx, repository.CachedList{Resource: "leave-types", Payload: []byte(`[]`), FetchedAt: fetched}))

	// overwrite keeps one row per key
	require.NoError(t, repo.Put(ctx, repository.CachedList{Resource: "holidays/2026", Payload: []byte(`[{"id":"h2"}]`), RequestID: "r2", FetchedAt: fetched.Add(time.Hour)}))
	got, ok, err := repo.Get(ctx, "holidays/2026")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `[{"id":"h2"}]`, string(got.Payload))
	require.Equal(t, "r2", got.RequestID)
	require.True(t, got.FetchedAt.Equal(fetched.Add(time.Hour)))

	n, err := repo.Invalidate(ctx, "holidays/")
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	keys, err := repo.Keys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"leave-types"}, keys)
}

func TestActionLogListAndPrune(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, database.RunMigrations(db))
	repo := repository.NewActionLogRepo(db)

	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	actions := []repository.Action{
		{ID: "a1", Actor: "emp-7", Resource: "holidays", Action: "create", Target: "Pongal", Outcome: repository.OutcomeOK, CreatedAt: base},
		{ID: "a2", Actor: "emp-7", Resource: "leave-applications", Action: "approve", Target: "la-9", Outcome: repository.OutcomeFailed, Detail: "409 conflict", CreatedAt: base.Add(time.Hour)},
		{ID: "a3", Actor: "emp-7", Resource: "holidays", Action: "delete", Target: "h-3", Outcome: repository.OutcomeOK, RequestID: "req-3", CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, a := range actions {
		require.NoError(t, repo.Insert(ctx, a))
	}

	all, err := repo.List(ctx, repository.ActionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "a3", all[0].ID)
	require.Equal(t, "req-3", all[0].RequestID)

	hol, err := repo.List(ctx, repository.ActionFilter{Resource: "holidays"})
	require.NoError(t, err)
	require.Len(t, hol, 2)

	failed, err := repo.List(ctx, repository.ActionFilter{Outcome: repository.OutcomeFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	require.Equal(t, "409 conflict", failed[0].Detail)

	limited, err := repo.List(ctx, repository.ActionFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)

	n, err := repo.Prune(ctx, base.Add(90*time.Minute))
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	left, err := repo.List(ctx, repository.ActionFilter{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	require.Equal(t, "a3", left[0].ID)
}
