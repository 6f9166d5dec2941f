package audit

import (
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/yamdb-importer/internal/database/runs"
	"github.com/mrlokans/yamdb-importer/internal/entities"
	"github.com/mrlokans/yamdb-importer/internal/importers"
)

// Service keeps the history of import runs.
type Service struct {
	repo    *runs.Repository
	auditor *Auditor
	log     logrus.FieldLogger
}

// NewService creates a run history service. auditor may be nil, in which
// case no report files are written.
func NewService(repo *runs.Repository, auditor *Auditor, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{repo: repo, auditor: auditor, log: log}
}

// RunRecord describes a finished run.
type RunRecord struct {
	RunID   string
	Trigger string
	DataDir string
	Report  *importers.Report
	Err     error
}

// RecordRun persists a run and writes its report file. Failing to write
// the report file is logged and does not fail the call.
func (s *Service) RecordRun(rec RunRecord) (*entities.ImportRun, error) {
	run := &entities.ImportRun{
		RunID:   rec.RunID,
		Trigger: rec.Trigger,
		DataDir: rec.DataDir,
		Status:  entities.ImportRunStatusCompleted,
	}

	if rec.Report != nil {
		run.Created, run.Skipped, run.Failed = rec.Report.Totals()
		run.StartedAt = rec.Report.StartedAt
		if !rec.Report.FinishedAt.IsZero() {
			finished := rec.Report.FinishedAt
			run.CompletedAt = &finished
		}
		if data, err := json.Marshal(rec.Report); err == nil {
			run.Report = string(data)
		}
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	if rec.Err != nil {
		run.Status = entities.ImportRunStatusAborted
		run.ErrorMsg = truncate(rec.Err.Error(), 500)
	}

	if err := s.repo.SaveRun(run); err != nil {
		return nil, err
	}

	if s.auditor != nil && rec.Report != nil {
		path, err := s.auditor.SaveJSON(rec.RunID, rec.Report)
		if err != nil {
			s.log.WithError(err).WithField("run_id", rec.RunID).Warn("Failed to save run report")
		} else {
			s.log.WithField("path", path).Info("Run report saved")
		}
	}
	return run, nil
}

// GetRuns retrieves paginated runs.
func (s *Service) GetRuns(limit, offset int) ([]entities.ImportRun, int64, error) {
	return s.repo.GetRuns(limit, offset)
}

// GetRun retrieves a single run by its run id.
func (s *Service) GetRun(runID string) (*entities.ImportRun, error) {
	return s.repo.GetRunByRunID(runID)
}

// DeleteOldRuns removes runs older than the specified duration.
func (s *Service) DeleteOldRuns(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldRuns(cutoff)
}

// truncate shortens s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
