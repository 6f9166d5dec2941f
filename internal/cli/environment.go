package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/yamdb-importer/internal/audit"
	"github.com/mrlokans/yamdb-importer/internal/config"
	"github.com/mrlokans/yamdb-importer/internal/database"
	"github.com/mrlokans/yamdb-importer/internal/database/runs"
	"github.com/mrlokans/yamdb-importer/internal/database/store"
	"github.com/mrlokans/yamdb-importer/internal/logging"
	"github.com/mrlokans/yamdb-importer/internal/services"
)

// connection holds the database flags shared by all commands.
type connection struct {
	Driver       string
	DatabasePath string
	DSN          string
}

func (c connection) options(log logrus.FieldLogger, logQueries bool) (database.Options, error) {
	switch c.Driver {
	case database.DriverSQLite:
		if c.DatabasePath == "" {
			return database.Options{}, fmt.Errorf("required flag -db not provided")
		}
	case database.DriverPostgres:
		if c.DSN == "" {
			return database.Options{}, fmt.Errorf("required flag -dsn not provided for driver %q", c.Driver)
		}
	default:
		return database.Options{}, fmt.Errorf("unsupported driver %q (want %q or %q)", c.Driver, database.DriverSQLite, database.DriverPostgres)
	}
	return database.Options{
		Driver:     c.Driver,
		Path:       c.DatabasePath,
		DSN:        c.DSN,
		Logger:     log,
		LogQueries: logQueries,
	}, nil
}

// environment is the wired object graph a command runs against.
type environment struct {
	db      *database.Database
	history *audit.Service
	imports *services.ImportService
}

func newEnvironment(cfg *config.Config, conn connection, dataDir, reportDir string, verbose bool, log logrus.FieldLogger) (*environment, error) {
	dbOpts, err := conn.options(log, verbose)
	if err != nil {
		return nil, err
	}

	opts, err := cfg.ImporterOptions(dataDir)
	if err != nil {
		return nil, err
	}

	db, err := database.NewDatabase(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	var auditor *audit.Auditor
	if reportDir != "" {
		auditor = audit.NewAuditor(reportDir)
	}
	history := audit.NewService(runs.NewRepository(db.DB), auditor, log)

	return &environment{
		db:      db,
		history: history,
		imports: services.NewImportService(store.NewRepository(db.DB), opts, history, log),
	}, nil
}

func (e *environment) Close() error {
	return e.db.Close()
}

// newLogger builds the command logger; verbose forces debug level.
func newLogger(cfg *config.Config, verbose bool) (*logrus.Logger, error) {
	level := cfg.Log.Level
	if verbose {
		level = logrus.DebugLevel.String()
	}
	return logging.New(level, cfg.Log.Format)
}

func stdout(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}
