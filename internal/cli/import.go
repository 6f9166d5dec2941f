package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/yamdb-importer/internal/config"
	"github.com/mrlokans/yamdb-importer/internal/database"
	"github.com/mrlokans/yamdb-importer/internal/importers"
	"github.com/mrlokans/yamdb-importer/internal/services"
)

// ErrRunAborted is returned by ImportCommand.Run when the import aborted.
var ErrRunAborted = errors.New("import aborted")

// ImportCommand runs one import of the CSV data directory.
type ImportCommand struct {
	connection
	DataDir   string
	ReportDir string
	JSON      bool
	Verbose   bool

	// Out receives the summary; defaults to stdout.
	Out io.Writer
	// Logger overrides the logger built from the configuration.
	Logger *logrus.Logger

	config *config.Config
}

func NewImportCommand(cfg *config.Config) *ImportCommand {
	return &ImportCommand{config: cfg}
}

func (cmd *ImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)

	fs.StringVar(&cmd.DataDir, "data", cmd.config.Import.DataDir, "Directory containing the CSV files")
	fs.StringVar(&cmd.DatabasePath, "db", cmd.config.Database.Path, "Path to the SQLite database file")
	fs.StringVar(&cmd.Driver, "driver", cmd.config.Database.Driver, "Database driver: sqlite or postgres")
	fs.StringVar(&cmd.DSN, "dsn", cmd.config.Database.DSN, "PostgreSQL connection string (driver postgres)")
	fs.StringVar(&cmd.ReportDir, "report-dir", cmd.config.Audit.ReportDir, "Directory for JSON run reports (empty disables them)")
	fs.BoolVar(&cmd.JSON, "json", false, "Print the run report as JSON")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import users, categories, genres, titles, reviews, comments and\n")
		fmt.Fprintf(os.Stderr, "title genres from CSV files. Existing records are skipped.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s import -data ./static/data -db ./yamdb.db\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s import -driver postgres -dsn \"host=localhost user=yamdb dbname=yamdb\" -json\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.DataDir == "" {
		return fmt.Errorf("required flag -data not provided")
	}
	return nil
}

func (cmd *ImportCommand) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return cmd.run(ctx)
}

func (cmd *ImportCommand) run(ctx context.Context) error {
	out := stdout(cmd.Out)

	log := cmd.Logger
	if log == nil {
		var err error
		if log, err = newLogger(cmd.config, cmd.Verbose); err != nil {
			return err
		}
	}

	if cmd.Driver == database.DriverSQLite && cmd.DatabasePath != "" {
		absDBPath, err := filepath.Abs(cmd.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to get absolute path for database: %w", err)
		}
		cmd.DatabasePath = absDBPath
	}

	env, err := newEnvironment(cmd.config, cmd.connection, cmd.DataDir, cmd.ReportDir, cmd.Verbose, log)
	if err != nil {
		return err
	}
	defer env.Close()

	result, report, runErr := env.imports.Run(ctx, services.ImportRequest{Trigger: services.TriggerCLI})
	if report == nil {
		return runErr
	}

	if cmd.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	} else {
		printReport(out, result.RunID, report, cmd.Verbose)
	}

	if runErr != nil {
		return fmt.Errorf("%w: %v", ErrRunAborted, runErr)
	}
	return nil
}

func printReport(w io.Writer, runID string, report *importers.Report, verbose bool) {
	fmt.Fprintf(w, "Import %s: %s\n", runID, report.State)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-14s %-16s %8s %8s %8s\n", "STAGE", "STATUS", "CREATED", "SKIPPED", "FAILED")
	for _, stage := range report.Stages {
		fmt.Fprintf(w, "%-14s %-16s %8d %8d %8d\n", stage.Entity, stage.Status, stage.Created, stage.Skipped, stage.Failed)
		if stage.Error != "" {
			fmt.Fprintf(w, "  %s\n", stage.Error)
		}
		if verbose {
			for _, f := range stage.Failures {
				fmt.Fprintf(w, "  line %d [%s] %s\n", f.Line, f.Kind, f.Reason)
			}
			for _, f := range stage.Warnings {
				fmt.Fprintf(w, "  line %d [warning] %s\n", f.Line, f.Reason)
			}
		}
	}

	created, skipped, failed := report.Totals()
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total: %d created, %d skipped, %d failed\n", created, skipped, failed)
	if report.Error != "" {
		fmt.Fprintf(w, "Aborted: %s\n", report.Error)
	}
}
