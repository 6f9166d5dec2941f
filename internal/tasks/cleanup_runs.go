package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/sirupsen/logrus"
)

// RunHistoryCleaner provides the ability to delete old import runs.
type RunHistoryCleaner interface {
	DeleteOldRuns(retention time.Duration) (int64, error)
}

// CleanupRunsTask removes import runs older than the configured retention period.
type CleanupRunsTask struct {
	RetentionDays int `json:"retention_days"`
}

// Config returns the queue configuration for run history cleanup tasks.
func (t CleanupRunsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_import_runs",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupRunsProcessor creates a processor function for CleanupRunsTask.
func CleanupRunsProcessor(cleaner RunHistoryCleaner, log logrus.FieldLogger) backlite.QueueProcessor[CleanupRunsTask] {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return func(ctx context.Context, task CleanupRunsTask) error {
		if cleaner == nil {
			return fmt.Errorf("run history cleaner not configured")
		}

		retentionDays := task.RetentionDays
		if retentionDays <= 0 {
			retentionDays = 90
		}
		retention := time.Duration(retentionDays) * 24 * time.Hour

		deleted, err := cleaner.DeleteOldRuns(retention)
		if err != nil {
			return fmt.Errorf("cleanup import runs: %w", err)
		}

		log.Infof("[TASK] Cleaned up %d import runs older than %d days", deleted, retentionDays)
		return nil
	}
}

// NewCleanupRunsQueue creates a backlite queue for run history cleanup tasks.
func NewCleanupRunsQueue(cleaner RunHistoryCleaner, log logrus.FieldLogger) backlite.Queue {
	return backlite.NewQueue(CleanupRunsProcessor(cleaner, log))
}
