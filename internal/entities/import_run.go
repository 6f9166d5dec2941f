package entities

import "time"

type ImportRunStatus string

const (
	ImportRunStatusCompleted ImportRunStatus = "completed"
	ImportRunStatusAborted   ImportRunStatus = "aborted"
)

// ImportRun is the persisted summary of one importer execution.
type ImportRun struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	RunID       string          `gorm:"uniqueIndex;size:36" json:"run_id"`
	Trigger     string          `gorm:"size:50" json:"trigger"` // "cli", "schedule", "task"
	DataDir     string          `gorm:"size:1024" json:"data_dir"`
	Status      ImportRunStatus `gorm:"index;size:20" json:"status"`
	Created     int             `json:"created"`
	Skipped     int             `json:"skipped"`
	Failed      int             `json:"failed"`
	Report      string          `gorm:"type:text" json:"report,omitempty"` // JSON encoded report
	ErrorMsg    string          `gorm:"size:500" json:"error_msg,omitempty"`
	StartedAt   time.Time       `gorm:"index" json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

func (ImportRun) TableName() string {
	return "import_runs"
}
