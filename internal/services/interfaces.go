package services

import (
	"github.com/mrlokans/yamdb-importer/internal/audit"
	"github.com/mrlokans/yamdb-importer/internal/entities"
)

// RunRecorder persists the outcome of import runs.
type RunRecorder interface {
	RecordRun(rec audit.RunRecord) (*entities.ImportRun, error)
}

// ImportResult contains the outcome of an import operation.
type ImportResult struct {
	RunID   string
	Created int
	Skipped int
	Failed  int
	Aborted bool
}
