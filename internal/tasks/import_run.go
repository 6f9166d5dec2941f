package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/yamdb-importer/internal/importers"
	"github.com/mrlokans/yamdb-importer/internal/services"
)

// Importer runs one import.
type Importer interface {
	Run(ctx context.Context, req services.ImportRequest) (services.ImportResult, *importers.Report, error)
}

// ImportRunTask executes an import in the background.
type ImportRunTask struct {
	// DataDir overrides the configured data directory when not empty.
	DataDir string `json:"data_dir,omitempty"`
	Trigger string `json:"trigger"`
}

// Config returns the queue configuration for import tasks.
func (t ImportRunTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "import_run",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     30 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ImportRunProcessor creates a processor function for ImportRunTask.
// An aborted run fails the task so it is retried; imports are idempotent.
func ImportRunProcessor(importer Importer, log logrus.FieldLogger) backlite.QueueProcessor[ImportRunTask] {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return func(ctx context.Context, task ImportRunTask) error {
		if importer == nil {
			return fmt.Errorf("importer not configured")
		}

		trigger := task.Trigger
		if trigger == "" {
			trigger = services.TriggerTask
		}

		result, _, err := importer.Run(ctx, services.ImportRequest{Trigger: trigger, DataDir: task.DataDir})
		if err != nil {
			if errors.Is(err, services.ErrImportInProgress) {
				log.Info("[TASK] Import already running, will retry")
			}
			return fmt.Errorf("import run: %w", err)
		}

		log.WithFields(logrus.Fields{
			"run_id":  result.RunID,
			"created": result.Created,
			"skipped": result.Skipped,
			"failed":  result.Failed,
		}).Info("[TASK] Import finished")
		return nil
	}
}

// NewImportRunQueue creates a backlite queue for import tasks with the
// import policy of cfg.
func NewImportRunQueue(importer Importer, cfg Config, log logrus.FieldLogger) backlite.Queue {
	queue := backlite.NewQueue(ImportRunProcessor(importer, log))
	cfg.applyImportPolicy(queue.Config())
	return queue
}
