package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/yamdb-importer/internal/importers"
	"github.com/mrlokans/yamdb-importer/internal/services"
)

type mockImporter struct {
	requests    []services.ImportRequest
	result      services.ImportResult
	returnError error
}

func (m *mockImporter) Run(ctx context.Context, req services.ImportRequest) (services.ImportResult, *importers.Report, error) {
	m.requests = append(m.requests, req)
	return m.result, &importers.Report{}, m.returnError
}

type mockCleaner struct {
	retention   time.Duration
	deleted     int64
	returnError error
}

func (m *mockCleaner) DeleteOldRuns(retention time.Duration) (int64, error) {
	m.retention = retention
	return m.deleted, m.returnError
}

func TestImportRunProcessor(t *testing.T) {
	logger, _ := test.NewNullLogger()

	t.Run("runs the import", func(t *testing.T) {
		importer := &mockImporter{result: services.ImportResult{RunID: "r1", Created: 3}}
		process := ImportRunProcessor(importer, logger)

		require.NoError(t, process(context.Background(), ImportRunTask{DataDir: "/data"}))
		require.Len(t, importer.requests, 1)
		assert.Equal(t, services.TriggerTask, importer.requests[0].Trigger)
		assert.Equal(t, "/data", importer.requests[0].DataDir)
	})

	t.Run("keeps the trigger", func(t *testing.T) {
		importer := &mockImporter{}
		process := ImportRunProcessor(importer, logger)

		require.NoError(t, process(context.Background(), ImportRunTask{Trigger: services.TriggerSchedule}))
		assert.Equal(t, services.TriggerSchedule, importer.requests[0].Trigger)
	})

	t.Run("aborted run fails the task", func(t *testing.T) {
		importer := &mockImporter{returnError: importers.ErrStoreUnreachable}
		err := ImportRunProcessor(importer, logger)(context.Background(), ImportRunTask{})
		assert.ErrorIs(t, err, importers.ErrStoreUnreachable)
	})

	t.Run("concurrent import fails the task", func(t *testing.T) {
		importer := &mockImporter{returnError: services.ErrImportInProgress}
		err := ImportRunProcessor(importer, logger)(context.Background(), ImportRunTask{})
		assert.ErrorIs(t, err, services.ErrImportInProgress)
	})

	t.Run("not configured", func(t *testing.T) {
		err := ImportRunProcessor(nil, logger)(context.Background(), ImportRunTask{})
		assert.Error(t, err)
	})
}

func TestCleanupRunsProcessor(t *testing.T) {
	logger, _ := test.NewNullLogger()

	t.Run("uses task retention", func(t *testing.T) {
		cleaner := &mockCleaner{deleted: 4}
		require.NoError(t, CleanupRunsProcessor(cleaner, logger)(context.Background(), CleanupRunsTask{RetentionDays: 7}))
		assert.Equal(t, 7*24*time.Hour, cleaner.retention)
	})

	t.Run("defaults retention", func(t *testing.T) {
		cleaner := &mockCleaner{}
		require.NoError(t, CleanupRunsProcessor(cleaner, logger)(context.Background(), CleanupRunsTask{}))
		assert.Equal(t, 90*24*time.Hour, cleaner.retention)
	})

	t.Run("propagates errors", func(t *testing.T) {
		cleaner := &mockCleaner{returnError: errors.New("locked")}
		err := CleanupRunsProcessor(cleaner, logger)(context.Background(), CleanupRunsTask{})
		assert.ErrorContains(t, err, "cleanup import runs")
	})

	t.Run("not configured", func(t *testing.T) {
		err := CleanupRunsProcessor(nil, logger)(context.Background(), CleanupRunsTask{})
		assert.Error(t, err)
	})
}
