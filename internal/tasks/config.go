package tasks

import (
	"time"

	"github.com/mikestefanello/backlite"
)

// Config holds the worker pool settings of the task queue and the policy
// of the import queue.
type Config struct {
	// Workers is the number of concurrent task workers.
	Workers int

	// ReleaseAfter hands a claimed task back to the queue when its worker
	// has not finished it in time. Keep it above ImportTimeout.
	ReleaseAfter time.Duration

	// CleanupInterval is how often expired tasks are purged.
	CleanupInterval time.Duration

	// ImportAttempts bounds how often an aborted import is tried.
	ImportAttempts int

	// ImportBackoff is how long a failed import waits before the next attempt.
	ImportBackoff time.Duration

	// ImportTimeout is set on the context of one import run.
	ImportTimeout time.Duration

	// ImportRetention is how long finished import tasks stay in the queue database.
	ImportRetention time.Duration
}

// DefaultConfig matches the queue configuration of ImportRunTask.
func DefaultConfig() Config {
	return Config{
		Workers:         1,
		ReleaseAfter:    45 * time.Minute,
		CleanupInterval: time.Hour,
		ImportAttempts:  3,
		ImportBackoff:   time.Minute,
		ImportTimeout:   30 * time.Minute,
		ImportRetention: 7 * 24 * time.Hour,
	}
}

// Merge returns c with every non-zero field of o applied over it.
func (c Config) Merge(o Config) Config {
	if o.Workers > 0 {
		c.Workers = o.Workers
	}
	if o.ReleaseAfter > 0 {
		c.ReleaseAfter = o.ReleaseAfter
	}
	if o.CleanupInterval > 0 {
		c.CleanupInterval = o.CleanupInterval
	}
	if o.ImportAttempts > 0 {
		c.ImportAttempts = o.ImportAttempts
	}
	if o.ImportBackoff > 0 {
		c.ImportBackoff = o.ImportBackoff
	}
	if o.ImportTimeout > 0 {
		c.ImportTimeout = o.ImportTimeout
	}
	if o.ImportRetention > 0 {
		c.ImportRetention = o.ImportRetention
	}
	return c
}

// applyImportPolicy overrides the attempts, backoff, timeout and retention
// of an import queue. Zero fields keep the queue's own values.
func (c Config) applyImportPolicy(q *backlite.QueueConfig) {
	if c.ImportAttempts > 0 {
		q.MaxAttempts = c.ImportAttempts
	}
	if c.ImportBackoff > 0 {
		q.Backoff = c.ImportBackoff
	}
	if c.ImportTimeout > 0 {
		q.Timeout = c.ImportTimeout
	}
	if c.ImportRetention > 0 && q.Retention != nil {
		retention := *q.Retention
		retention.Duration = c.ImportRetention
		q.Retention = &retention
	}
}
