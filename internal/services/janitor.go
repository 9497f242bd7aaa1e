package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"liondance/internal/domain"
	"liondance/internal/metrics"
)

const (
	janitorMaxAttempts = 10
	janitorBatchSize   = 50
)

// StorageJanitor retries storage deletions that failed after their database rows were removed.
type StorageJanitor struct {
	orphans domain.OrphanedObjectRepository
	storage domain.ObjectStorage
	logger  *slog.Logger
	timeout time.Duration
}

func NewStorageJanitor(orphans domain.OrphanedObjectRepository, storage domain.ObjectStorage, logger *slog.Logger, timeout time.Duration) *StorageJanitor {
	return &StorageJanitor{
		orphans: orphans,
		storage: storage,
		logger:  logger,
		timeout: timeout,
	}
}

// Run makes one pass over pending orphaned objects. Objects that reach the attempt limit stay
// in the table for manual inspection.
func (j *StorageJanitor) Run(ctx context.Context) (resolved, failed int, err error) {
	pending, err := j.orphans.ListPending(ctx, janitorMaxAttempts, janitorBatchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("list orphaned objects: %w", err)
	}
	for _, o := range pending {
		delCtx, cancel := context.WithTimeout(ctx, j.timeout)
		delErr := j.storage.Delete(delCtx, o.ObjectKey)
		cancel()

		if delErr != nil {
			failed++
			metrics.RecordOrphanedObject("retry_failed")
			if err := j.orphans.MarkFailed(ctx, o.ID, delErr.Error()); err != nil {
				j.logger.ErrorContext(ctx, "marking orphaned object failed", "key", o.ObjectKey, "error", err)
			}
			if o.Attempts+1 >= janitorMaxAttempts {
				j.logger.WarnContext(ctx, "giving up on orphaned object", "key", o.ObjectKey, "attempts", o.Attempts+1, "error", delErr)
			}
			continue
		}
		if err := j.orphans.Resolve(ctx, o.ID); err != nil {
			j.logger.ErrorContext(ctx, "resolving orphaned object failed", "key", o.ObjectKey, "error", err)
			continue
		}
		resolved++
		metrics.RecordOrphanedObject("resolved")
	}
	return resolved, failed, nil
}

// Schedule registers the janitor on c using a cron spec such as "@every 1h".
func (j *StorageJanitor) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		resolved, failed, err := j.Run(ctx)
		if err != nil {
			j.logger.Error("storage janitor run failed", "error", err)
			return
		}
		if resolved > 0 || failed > 0 {
			j.logger.Info("storage janitor run finished", "resolved", resolved, "failed", failed)
		}
	})
}
