package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/yamdb-importer/internal/services"
	"github.com/mrlokans/yamdb-importer/internal/tasks"
)

// CleanupSchedule is when run history cleanup is enqueued: daily at 04:30.
const CleanupSchedule = "30 4 * * *"

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Enqueuer puts tasks on the background queue.
type Enqueuer interface {
	Enqueue(tasks ...backlite.Task) ([]string, error)
}

// Config controls what the import scheduler enqueues and when.
type Config struct {
	Schedule      string // Cron format: "0 3 * * *" = daily at 03:00
	DataDir       string
	RetentionDays int // 0 disables scheduled run history cleanup
}

// ImportScheduler enqueues import runs on a cron schedule. The runs themselves
// execute on the task queue workers.
type ImportScheduler struct {
	enqueuer Enqueuer
	config   Config
	log      logrus.FieldLogger

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

func NewImportScheduler(enqueuer Enqueuer, cfg Config, log logrus.FieldLogger) *ImportScheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ImportScheduler{
		enqueuer: enqueuer,
		config:   cfg,
		log:      log.WithField("component", "scheduler"),
		cron:     cron.New(cron.WithParser(parser)),
	}
}

// ValidateCronSchedule checks a five-field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// NextRunAfter returns the first activation of schedule after t.
func NextRunAfter(schedule string, t time.Time) (time.Time, error) {
	sched, err := parser.Parse(schedule)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(t), nil
}

// Start registers the jobs and starts the cron loop. The scheduler stops when
// ctx is cancelled.
func (s *ImportScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := ValidateCronSchedule(s.config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.config.Schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.config.Schedule, func() {
		s.enqueueImport()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule import job: %w", err)
	}
	s.entryID = entryID

	if s.config.RetentionDays > 0 {
		if _, err := s.cron.AddFunc(CleanupSchedule, func() {
			s.enqueueCleanup()
		}); err != nil {
			s.cron.Remove(entryID)
			return fmt.Errorf("failed to schedule cleanup job: %w", err)
		}
	}

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := NextRunAfter(s.config.Schedule, time.Now())
	s.log.WithFields(logrus.Fields{
		"schedule": s.config.Schedule,
		"next_run": nextRun,
	}).Info("Import scheduler started")

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running job to finish and stops the cron loop.
func (s *ImportScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.isRunning = false
	s.cancelFunc = nil

	s.log.Info("Import scheduler stopped")
}

// RunNow enqueues an import immediately.
func (s *ImportScheduler) RunNow() error {
	return s.enqueue(tasks.ImportRunTask{Trigger: services.TriggerSchedule, DataDir: s.config.DataDir})
}

func (s *ImportScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next import will be enqueued, or nil when
// the scheduler is stopped.
func (s *ImportScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *ImportScheduler) enqueueImport() {
	if err := s.RunNow(); err != nil {
		s.log.WithError(err).Error("Failed to enqueue scheduled import")
	}
}

func (s *ImportScheduler) enqueueCleanup() {
	if err := s.enqueue(tasks.CleanupRunsTask{RetentionDays: s.config.RetentionDays}); err != nil {
		s.log.WithError(err).Error("Failed to enqueue run history cleanup")
	}
}

func (s *ImportScheduler) enqueue(task backlite.Task) error {
	ids, err := s.enqueuer.Enqueue(task)
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"queue":   task.Config().Name,
		"task_id": firstID(ids),
	}).Info("Task enqueued")
	return nil
}

func firstID(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}
