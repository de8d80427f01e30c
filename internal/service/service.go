package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/attendly/hrdesk/internal/database/repository"
	"github.com/attendly/hrdesk/internal/hrapi"
	"github.com/attendly/hrdesk/internal/logging"
)

// ErrInvalidInput marks form input rejected before any request is sent.
var ErrInvalidInput = errors.New("invalid input")

// Listing is a list result, possibly served from the local cache.
type Listing[T any] struct {
	Items []T
	// Stale is set when the backend was unreachable and Items came from cache.
	Stale     bool
	FetchedAt time.Time
}

// Audit records every mutating call in the local action log.
type Audit struct {
	Repo  *repository.ActionLogRepo
	Actor func() string
	Now   func() time.Time
}

// Run tags ctx with a fresh request id, calls fn and logs the outcome.
// A nil Audit just calls fn.
func (a *Audit) Run(ctx context.Context, resource, action, target string, fn func(ctx context.Context) error) error {
	reqID := uuid.NewString()
	ctx = hrapi.WithRequestID(ctx, reqID)
	err := fn(ctx)
	if a == nil || a.Repo == nil {
		return err
	}

	entry := repository.Action{
		ID:        uuid.NewString(),
		Actor:     "anonymous",
		Resource:  resource,
		Action:    action,
		Target:    target,
		Outcome:   repository.OutcomeOK,
		RequestID: reqID,
		CreatedAt: time.Now(),
	}
	if a.Actor != nil {
		if actor := a.Actor(); actor != "" {
			entry.Actor = actor
		}
	}
	if a.Now != nil {
		entry.CreatedAt = a.Now()
	}
	if err != nil {
		entry.Outcome = repository.OutcomeFailed
		entry.Detail = hrapi.UserMessage(err)
	}
	// the request already happened; an audit failure must not mask its result
	if logErr := a.Repo.Insert(context.WithoutCancel(ctx), entry); logErr != nil {
		logging.L().Warnw("action log insert failed", "resource", resource, "action", action, "err", logErr)
	}
	return err
}

// Recent lists the newest audit entries.
func (a *Audit) Recent(ctx context.Context, f repository.ActionFilter) ([]repository.Action, error) {
	if a == nil || a.Repo == nil {
		return nil, nil
	}
	return a.Repo.List(ctx, f)
}

// cachedList fetches a list and caches it under key. When the backend cannot
// be reached the cached copy is returned with Stale set.
func cachedList[T any](ctx context.Context, cache *repository.ListCacheRepo, key string, fetch func(context.Context) ([]T, error)) (Listing[T], error) {
	items, err := fetch(ctx)
	if err == nil {
		now := time.Now().UTC()
		if cache != nil {
			if payload, mErr := json.Marshal(items); mErr == nil {
				if pErr := cache.Put(ctx, repository.CachedList{Resource: key, Payload: payload, RequestID: hrapi.RequestIDFrom(ctx), FetchedAt: now}); pErr != nil {
					logging.L().Warnw("list cache write failed", "resource", key, "err", pErr)
				}
			}
		}
		return Listing[T]{Items: items, FetchedAt: now}, nil
	}

	var netErr *url.Error
	if cache == nil || !errors.As(err, &netErr) {
		return Listing[T]{}, err
	}
	cached, ok, cErr := cache.Get(ctx, key)
	if cErr != nil || !ok {
		return Listing[T]{}, err
	}
	var out []T
	if uErr := json.Unmarshal(cached.Payload, &out); uErr != nil {
		logging.L().Warnw("list cache entry unreadable", "resource", key, "err", uErr)
		return Listing[T]{}, err
	}
	logging.L().Infow("serving cached list", "resource", key, "fetched_at", cached.FetchedAt, "err", err)
	return Listing[T]{Items: out, Stale: true, FetchedAt: cached.FetchedAt}, nil
}

func invalidate(ctx context.Context, cache *repository.ListCacheRepo, prefix string) {
	if cache == nil {
		return
	}
	if _, err := cache.Invalidate(ctx, prefix); err != nil {
		logging.L().Warnw("list cache invalidate failed", "prefix", prefix, "err", err)
	}
}
