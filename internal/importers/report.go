package importers

import (
	"errors"
	"time"
)

type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
)

type StageStatus string

const (
	StagePending       StageStatus = "pending"
	StageCompleted     StageStatus = "completed"
	StageSourceMissing StageStatus = "source_missing"
	StageSourceInvalid StageStatus = "source_invalid"
	StageAborted       StageStatus = "aborted"
)

// FailureKind is the row-level error taxonomy of a report.
type FailureKind string

const (
	FailureParse       FailureKind = "parse_error"
	FailureCoercion    FailureKind = "coercion_error"
	FailureUnresolved  FailureKind = "unresolved_reference"
	FailureConstraint  FailureKind = "constraint_violation"
	FailureUnspecified FailureKind = "error"
)

type Failure struct {
	Line   int         `json:"line"`
	Kind   FailureKind `json:"kind"`
	Reason string      `json:"reason"`
}

// StageReport accumulates the outcome of one entity stage.
type StageReport struct {
	Entity   Entity      `json:"entity"`
	Source   string      `json:"source"`
	Status   StageStatus `json:"status"`
	Created  int         `json:"created"`
	Skipped  int         `json:"skipped"`
	Failed   int         `json:"failed"`
	Failures []Failure   `json:"failures"`
	// Warnings lists rows that were stored with an optional reference
	// left empty because its value did not resolve.
	Warnings []Failure `json:"warnings"`
	// Error explains a source_missing or source_invalid status.
	Error string `json:"error,omitempty"`
}

// Report is the structured result of one run.
type Report struct {
	State      State          `json:"state"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Stages     []*StageReport `json:"stages"`
	Error      string         `json:"error,omitempty"`
}

// Stage returns the report of entity, or nil when the stage was not planned.
func (r *Report) Stage(entity Entity) *StageReport {
	for _, s := range r.Stages {
		if s.Entity == entity {
			return s
		}
	}
	return nil
}

// Totals sums the row counters over all stages.
func (r *Report) Totals() (created, skipped, failed int) {
	for _, s := range r.Stages {
		created += s.Created
		skipped += s.Skipped
		failed += s.Failed
	}
	return created, skipped, failed
}

type RowOutcome int

const (
	RowCreated RowOutcome = iota + 1
	RowSkipped
	RowFailed
)

// RowResult is the outcome of one source row.
type RowResult struct {
	Line    int
	Outcome RowOutcome
	Kind    FailureKind
	Reason  string
	// Warning is set when the row was stored without a dangling optional reference.
	Warning *Failure
}

func createdRow(line int) RowResult {
	return RowResult{Line: line, Outcome: RowCreated}
}

func skippedRow(line int) RowResult {
	return RowResult{Line: line, Outcome: RowSkipped}
}

func failedRow(line int, err error) RowResult {
	return RowResult{Line: line, Outcome: RowFailed, Kind: classify(err), Reason: err.Error()}
}

func (r RowResult) withDangling(refs []UnresolvedRef) RowResult {
	if len(refs) == 0 {
		return r
	}
	r.Warning = &Failure{
		Line:   r.Line,
		Kind:   FailureUnresolved,
		Reason: (&UnresolvedError{Refs: refs}).Error(),
	}
	return r
}

func (s *StageReport) record(res RowResult) {
	if res.Warning != nil {
		s.Warnings = append(s.Warnings, *res.Warning)
	}

	switch res.Outcome {
	case RowCreated:
		s.Created++
	case RowSkipped:
		s.Skipped++
	case RowFailed:
		s.Failed++
		s.Failures = append(s.Failures, Failure{Line: res.Line, Kind: res.Kind, Reason: res.Reason})
	}
}

func classify(err error) FailureKind {
	var (
		parseErr      *ParseError
		coercionErr   *CoercionError
		unresolvedErr *UnresolvedError
		constraintErr *ConstraintError
	)
	switch {
	case errors.As(err, &parseErr):
		return FailureParse
	case errors.As(err, &coercionErr):
		return FailureCoercion
	case errors.As(err, &unresolvedErr):
		return FailureUnresolved
	case errors.As(err, &constraintErr):
		return FailureConstraint
	default:
		return FailureUnspecified
	}
}
