package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/attendly/hrdesk/internal/database"
	"github.com/attendly/hrdesk/internal/database/repository"
)

// MaintenanceService houses destructive/ops actions surfaced through the TUI.
// Only local state is touched; nothing here talks to the backend.
type MaintenanceService struct {
	DB      *sql.DB
	Actions *repository.ActionLogRepo
}

// Reset wipes the list cache and action log. The schema stays intact so the
// app can continue running.
func (s *MaintenanceService) Reset(ctx context.Context) error {
	if s.DB == nil {
		return fmt.Errorf("maintenance: db not configured")
	}
	if err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		for _, t := range []string{"list_cache", "action_log"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return fmt.Errorf("reset table %s: %w", t, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	_, _ = s.DB.ExecContext(ctx, "VACUUM")
	return nil
}

// PruneActions drops action log entries older than keep.
func (s *MaintenanceService) PruneActions(ctx context.Context, keep time.Duration) (int64, error) {
	if s.Actions == nil {
		return 0, fmt.Errorf("maintenance: action log not configured")
	}
	return s.Actions.Prune(ctx, database.Now().Add(-keep))
}
