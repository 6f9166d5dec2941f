package runs

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/yamdb-importer/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SaveRun stores a finished import run.
func (r *Repository) SaveRun(run *entities.ImportRun) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	return r.db.Create(run).Error
}

// GetRuns retrieves paginated runs, most recent first.
func (r *Repository) GetRuns(limit, offset int) ([]entities.ImportRun, int64, error) {
	var runs []entities.ImportRun
	var total int64

	if err := r.db.Model(&entities.ImportRun{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	err := r.db.Omit("report").Order("started_at DESC").Limit(limit).Offset(offset).Find(&runs).Error
	return runs, total, err
}

// GetRunByRunID retrieves a run including its JSON report.
func (r *Repository) GetRunByRunID(runID string) (*entities.ImportRun, error) {
	var run entities.ImportRun
	err := r.db.Where("run_id = ?", runID).First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetLastRun returns the most recent run, or gorm.ErrRecordNotFound.
func (r *Repository) GetLastRun() (*entities.ImportRun, error) {
	var run entities.ImportRun
	err := r.db.Order("started_at DESC").First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// DeleteOldRuns removes runs started before olderThan.
// Returns the number of deleted runs.
func (r *Repository) DeleteOldRuns(olderThan time.Time) (int64, error) {
	result := r.db.Where("started_at < ?", olderThan).Delete(&entities.ImportRun{})
	return result.RowsAffected, result.Error
}
