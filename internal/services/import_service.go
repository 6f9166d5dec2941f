package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/yamdb-importer/internal/audit"
	"github.com/mrlokans/yamdb-importer/internal/importers"
)

// ErrImportInProgress is returned when an import is requested while another
// one is running in the same process.
var ErrImportInProgress = errors.New("an import is already running")

// Import triggers.
const (
	TriggerCLI      = "cli"
	TriggerSchedule = "schedule"
	TriggerTask     = "task"
)

// ImportRequest selects the input of one run.
type ImportRequest struct {
	Trigger string
	// DataDir overrides the configured data directory when not empty.
	DataDir string
}

// ImportService runs imports and records them in the run history.
type ImportService struct {
	store    importers.Store
	options  importers.Options
	recorder RunRecorder
	log      logrus.FieldLogger

	running sync.Mutex
}

// NewImportService creates a new ImportService. recorder may be nil.
func NewImportService(store importers.Store, options importers.Options, recorder RunRecorder, log logrus.FieldLogger) *ImportService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ImportService{
		store:    store,
		options:  options,
		recorder: recorder,
		log:      log,
	}
}

// Run executes one import. The report is returned even when the run aborts.
func (s *ImportService) Run(ctx context.Context, req ImportRequest) (ImportResult, *importers.Report, error) {
	if !s.running.TryLock() {
		return ImportResult{}, nil, ErrImportInProgress
	}
	defer s.running.Unlock()

	runID := uuid.NewString()
	opts := s.options
	if req.DataDir != "" {
		opts.DataDir = req.DataDir
	}
	log := s.log.WithFields(logrus.Fields{"run_id": runID, "trigger": req.Trigger})
	opts.Logger = log

	orchestrator, err := importers.NewOrchestrator(s.store, opts)
	if err != nil {
		return ImportResult{}, nil, fmt.Errorf("invalid import configuration: %w", err)
	}

	log.WithField("data_dir", opts.DataDir).Info("Starting import")
	report, runErr := orchestrator.Run(ctx)

	result := ImportResult{RunID: runID, Aborted: runErr != nil}
	result.Created, result.Skipped, result.Failed = report.Totals()

	if s.recorder != nil {
		_, err := s.recorder.RecordRun(audit.RunRecord{
			RunID:   runID,
			Trigger: req.Trigger,
			DataDir: opts.DataDir,
			Report:  report,
			Err:     runErr,
		})
		if err != nil {
			log.WithError(err).Error("Failed to record import run")
		}
	}

	return result, report, runErr
}
