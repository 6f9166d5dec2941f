package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/yamdb-importer/internal/config"
	"github.com/mrlokans/yamdb-importer/internal/database"
	"github.com/mrlokans/yamdb-importer/internal/importers"
	"github.com/mrlokans/yamdb-importer/internal/tasks"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Database.Driver = database.DriverSQLite
	cfg.Database.Path = filepath.Join(t.TempDir(), "yamdb.db")
	cfg.Import.DataDir = t.TempDir()
	cfg.Audit.ReportDir = ""
	return cfg
}

func nullLogger() *logrus.Logger {
	log, _ := test.NewNullLogger()
	return log
}

func writeCSV(t *testing.T, dir, name string, lines ...string) {
	t.Helper()
	content := strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func writeFixtures(t *testing.T, dir string) {
	t.Helper()
	writeCSV(t, dir, "users.csv", "username,email", "alice,a@x.com", "bob,b@x.com")
	writeCSV(t, dir, "category.csv", "slug,name", "book,Book")
}

func TestImportCommandParseFlags(t *testing.T) {
	cfg := testConfig(t)
	cmd := NewImportCommand(cfg)

	require.NoError(t, cmd.ParseFlags(nil))
	assert.Equal(t, cfg.Import.DataDir, cmd.DataDir)
	assert.Equal(t, cfg.Database.Path, cmd.DatabasePath)
	assert.Equal(t, database.DriverSQLite, cmd.Driver)
	assert.False(t, cmd.JSON)

	cmd = NewImportCommand(cfg)
	require.NoError(t, cmd.ParseFlags([]string{"-data", "/srv/data", "-driver", "postgres", "-dsn", "host=db", "-json", "-verbose"}))
	assert.Equal(t, "/srv/data", cmd.DataDir)
	assert.Equal(t, database.DriverPostgres, cmd.Driver)
	assert.Equal(t, "host=db", cmd.DSN)
	assert.True(t, cmd.JSON)
	assert.True(t, cmd.Verbose)
}

func TestImportCommandParseFlagsRequiresData(t *testing.T) {
	cfg := testConfig(t)
	cfg.Import.DataDir = ""

	err := NewImportCommand(cfg).ParseFlags(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-data")
}

func TestConnectionOptions(t *testing.T) {
	_, err := connection{Driver: "mysql"}.options(nil, false)
	assert.ErrorContains(t, err, "unsupported driver")

	_, err = connection{Driver: database.DriverPostgres}.options(nil, false)
	assert.ErrorContains(t, err, "-dsn")

	_, err = connection{Driver: database.DriverSQLite}.options(nil, false)
	assert.ErrorContains(t, err, "-db")

	opts, err := connection{Driver: database.DriverSQLite, DatabasePath: "x.db"}.options(nil, true)
	require.NoError(t, err)
	assert.Equal(t, "x.db", opts.Path)
	assert.True(t, opts.LogQueries)
}

func TestImportCommandRun(t *testing.T) {
	cfg := testConfig(t)
	writeFixtures(t, cfg.Import.DataDir)

	var out bytes.Buffer
	cmd := NewImportCommand(cfg)
	require.NoError(t, cmd.ParseFlags(nil))
	cmd.Out = &out
	cmd.Logger = nullLogger()

	require.NoError(t, cmd.run(context.Background()))
	assert.Contains(t, out.String(), "Total: 3 created, 0 skipped, 0 failed")
	assert.Contains(t, out.String(), "source_missing")

	// A second run only skips.
	out.Reset()
	cmd = NewImportCommand(cfg)
	require.NoError(t, cmd.ParseFlags([]string{"-json"}))
	cmd.Out = &out
	cmd.Logger = nullLogger()

	require.NoError(t, cmd.run(context.Background()))

	var report importers.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, importers.StateCompleted, report.State)
	created, skipped, failed := report.Totals()
	assert.Equal(t, 0, created)
	assert.Equal(t, 3, skipped)
	assert.Equal(t, 0, failed)
}

func TestImportCommandVerboseListsFailures(t *testing.T) {
	cfg := testConfig(t)
	writeCSV(t, cfg.Import.DataDir, "users.csv", "username,email", "me,me@x.com")

	var out bytes.Buffer
	cmd := NewImportCommand(cfg)
	require.NoError(t, cmd.ParseFlags([]string{"-verbose"}))
	cmd.Out = &out
	cmd.Logger = nullLogger()

	require.NoError(t, cmd.run(context.Background()))
	assert.Contains(t, out.String(), "line 2 [constraint_violation]")
}

func TestImportCommandVerboseListsWarnings(t *testing.T) {
	cfg := testConfig(t)
	writeCSV(t, cfg.Import.DataDir, "titles.csv", "name,year,category", "Dune,1965,film")

	var out bytes.Buffer
	cmd := NewImportCommand(cfg)
	require.NoError(t, cmd.ParseFlags([]string{"-verbose"}))
	cmd.Out = &out
	cmd.Logger = nullLogger()

	require.NoError(t, cmd.run(context.Background()))
	assert.Contains(t, out.String(), "Total: 1 created, 0 skipped, 0 failed")
	assert.Contains(t, out.String(), `line 2 [warning] unresolved reference: category="film": no such categories`)
}

func TestImportCommandWritesReport(t *testing.T) {
	cfg := testConfig(t)
	writeFixtures(t, cfg.Import.DataDir)
	reportDir := filepath.Join(t.TempDir(), "reports")

	cmd := NewImportCommand(cfg)
	require.NoError(t, cmd.ParseFlags([]string{"-report-dir", reportDir}))
	cmd.Out = &bytes.Buffer{}
	cmd.Logger = nullLogger()

	require.NoError(t, cmd.run(context.Background()))

	files, err := filepath.Glob(filepath.Join(reportDir, "*.json"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestImportCommandAborted(t *testing.T) {
	cfg := testConfig(t)
	writeFixtures(t, cfg.Import.DataDir)

	var out bytes.Buffer
	cmd := NewImportCommand(cfg)
	require.NoError(t, cmd.ParseFlags(nil))
	cmd.Out = &out
	cmd.Logger = nullLogger()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cmd.run(ctx)
	require.ErrorIs(t, err, ErrRunAborted)
	assert.Contains(t, out.String(), "aborted")
}

func TestHistoryCommand(t *testing.T) {
	cfg := testConfig(t)
	writeFixtures(t, cfg.Import.DataDir)

	importCmd := NewImportCommand(cfg)
	require.NoError(t, importCmd.ParseFlags(nil))
	importCmd.Out = &bytes.Buffer{}
	importCmd.Logger = nullLogger()
	require.NoError(t, importCmd.run(context.Background()))

	var out bytes.Buffer
	history := NewHistoryCommand(cfg)
	require.NoError(t, history.ParseFlags(nil))
	history.Out = &out
	history.Logger = nullLogger()

	require.NoError(t, history.Run())
	assert.Contains(t, out.String(), "RUN ID")
	assert.Contains(t, out.String(), "cli")
	assert.Contains(t, out.String(), "Showing 1 of 1 runs")

	var runs []map[string]any
	out.Reset()
	history = NewHistoryCommand(cfg)
	require.NoError(t, history.ParseFlags([]string{"-json"}))
	history.Out = &out
	history.Logger = nullLogger()
	require.NoError(t, history.Run())
	require.NoError(t, json.Unmarshal(out.Bytes(), &runs))
	require.Len(t, runs, 1)
	runID, _ := runs[0]["run_id"].(string)
	require.NotEmpty(t, runID)

	out.Reset()
	history = NewHistoryCommand(cfg)
	require.NoError(t, history.ParseFlags([]string{"-run", runID}))
	history.Out = &out
	history.Logger = nullLogger()
	require.NoError(t, history.Run())
	assert.Contains(t, out.String(), "Totals:   3 created, 0 skipped, 0 failed")
}

func TestHistoryCommandEmpty(t *testing.T) {
	cfg := testConfig(t)

	var out bytes.Buffer
	history := NewHistoryCommand(cfg)
	require.NoError(t, history.ParseFlags(nil))
	history.Out = &out
	history.Logger = nullLogger()

	require.NoError(t, history.Run())
	assert.Equal(t, "No import runs recorded\n", out.String())
}

func TestHistoryCommandParseFlags(t *testing.T) {
	cfg := testConfig(t)
	assert.Error(t, NewHistoryCommand(cfg).ParseFlags([]string{"-limit", "0"}))
}

func TestScheduleCommandParseFlags(t *testing.T) {
	cfg := testConfig(t)
	cfg.Schedule.Enabled = true

	cmd := NewScheduleCommand(cfg)
	require.NoError(t, cmd.ParseFlags(nil))
	assert.Equal(t, cfg.Schedule.Cron, cmd.Cron)
	assert.Equal(t, cfg.Tasks.Workers, cmd.Workers)

	assert.Error(t, NewScheduleCommand(cfg).ParseFlags([]string{"-cron", "daily"}))
	assert.Error(t, NewScheduleCommand(cfg).ParseFlags([]string{"-workers", "0"}))

	cfg.Schedule.Enabled = false
	assert.NoError(t, NewScheduleCommand(cfg).ParseFlags([]string{"-cron", "daily"}), "cron is not used when the schedule is disabled")
}

func TestScheduleCommandTaskConfig(t *testing.T) {
	cfg := testConfig(t)
	cmd := NewScheduleCommand(cfg)
	require.NoError(t, cmd.ParseFlags([]string{"-workers", "2"}))

	taskCfg := cmd.taskConfig()
	assert.Equal(t, 2, taskCfg.Workers)
	assert.Equal(t, cfg.Tasks.TaskTimeout, taskCfg.ImportTimeout)
	assert.Equal(t, cfg.Tasks.MaxAttempts, taskCfg.ImportAttempts)
	assert.Equal(t, cfg.Tasks.ReleaseAfter, taskCfg.ReleaseAfter)
}

func TestScheduleCommandTaskConfigFallsBackToDefaults(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tasks.TaskTimeout = 0
	cfg.Tasks.RetentionDuration = 0
	cfg.Tasks.MaxAttempts = 5

	cmd := NewScheduleCommand(cfg)
	require.NoError(t, cmd.ParseFlags(nil))

	taskCfg := cmd.taskConfig()
	defaults := tasks.DefaultConfig()
	assert.Equal(t, defaults.ImportTimeout, taskCfg.ImportTimeout)
	assert.Equal(t, defaults.ImportRetention, taskCfg.ImportRetention)
	assert.Equal(t, 5, taskCfg.ImportAttempts)
}

func TestScheduleCommandRunsUntilCancelled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Schedule.Enabled = true
	cfg.Tasks.Enabled = true

	cmd := NewScheduleCommand(cfg)
	require.NoError(t, cmd.ParseFlags([]string{"-shutdown-timeout", "2s"}))
	cmd.Logger = nullLogger()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("schedule command did not stop")
	}

	_, err := os.Stat(tasks.TasksDBPath(cfg.Database.Path))
	assert.NoError(t, err, "task queue database should be created")
}

func TestScheduleCommandRequiresTasks(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tasks.Enabled = false

	cmd := NewScheduleCommand(cfg)
	require.NoError(t, cmd.ParseFlags(nil))
	cmd.Logger = nullLogger()

	assert.ErrorContains(t, cmd.run(context.Background()), "TASKS_ENABLED")
}
