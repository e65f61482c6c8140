package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	syncpkg "github.com/tillpoint/tillpoint/internal/sync"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSyncAll is the task type for a full sync cycle.
	TaskTypeSyncAll = "sync:all"
)

// NewSyncAllTask constructs an Asynq task requesting a sync cycle.
func NewSyncAllTask() *asynq.Task {
	return asynq.NewTask(TaskTypeSyncAll, nil)
}

// NewSyncAllHandler builds the handler processing TaskTypeSyncAll tasks.
// A cycle already in flight counts as success; the running cycle covers the
// same data this task would have pushed.
func NewSyncAllHandler(engine *syncpkg.Engine, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		res, err := engine.SyncAll(ctx)
		if errors.Is(err, syncpkg.ErrSyncInProgress) {
			logger.Info("scheduled sync skipped, cycle already running")
			return nil
		}
		if err != nil {
			return err
		}
		if !res.Success {
			logger.Warn("scheduled sync failed", slog.String("message", res.Message))
			return nil
		}
		logger.Info("scheduled sync complete",
			slog.Int("pushed_products", res.PushedProducts),
			slog.Int("pulled_products", res.PulledProducts),
			slog.Int("pushed_sales", res.PushedSales),
			slog.Int("pushed_changes", res.PushedChanges))
		return nil
	}
}
