package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/yamdb-importer/internal/config"
	"github.com/mrlokans/yamdb-importer/internal/entities"
)

// HistoryCommand lists recent import runs or shows the report of one run.
type HistoryCommand struct {
	connection
	Limit int
	RunID string
	JSON  bool

	// Out receives the listing; defaults to stdout.
	Out io.Writer
	// Logger overrides the logger built from the configuration.
	Logger *logrus.Logger

	config *config.Config
}

func NewHistoryCommand(cfg *config.Config) *HistoryCommand {
	return &HistoryCommand{config: cfg}
}

func (cmd *HistoryCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)

	fs.StringVar(&cmd.DatabasePath, "db", cmd.config.Database.Path, "Path to the SQLite database file")
	fs.StringVar(&cmd.Driver, "driver", cmd.config.Database.Driver, "Database driver: sqlite or postgres")
	fs.StringVar(&cmd.DSN, "dsn", cmd.config.Database.DSN, "PostgreSQL connection string (driver postgres)")
	fs.IntVar(&cmd.Limit, "limit", 20, "Number of runs to list")
	fs.StringVar(&cmd.RunID, "run", "", "Show the full report of one run")
	fs.BoolVar(&cmd.JSON, "json", false, "Print as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s history [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "List recent import runs, newest first.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Limit < 1 {
		return fmt.Errorf("-limit must be at least 1")
	}
	return nil
}

func (cmd *HistoryCommand) Run() error {
	out := stdout(cmd.Out)

	log := cmd.Logger
	if log == nil {
		var err error
		if log, err = newLogger(cmd.config, false); err != nil {
			return err
		}
	}

	env, err := newEnvironment(cmd.config, cmd.connection, "", "", false, log)
	if err != nil {
		return err
	}
	defer env.Close()

	if cmd.RunID != "" {
		run, err := env.history.GetRun(cmd.RunID)
		if err != nil {
			return fmt.Errorf("run %s: %w", cmd.RunID, err)
		}
		return cmd.printRun(out, run)
	}

	runs, total, err := env.history.GetRuns(cmd.Limit, 0)
	if err != nil {
		return fmt.Errorf("failed to load runs: %w", err)
	}

	if cmd.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No import runs recorded")
		return nil
	}

	fmt.Fprintf(out, "%-36s %-9s %-10s %8s %8s %8s  %s\n", "RUN ID", "TRIGGER", "STATUS", "CREATED", "SKIPPED", "FAILED", "STARTED")
	for _, run := range runs {
		fmt.Fprintf(out, "%-36s %-9s %-10s %8d %8d %8d  %s\n",
			run.RunID, run.Trigger, run.Status, run.Created, run.Skipped, run.Failed,
			run.StartedAt.Local().Format(time.DateTime))
	}
	fmt.Fprintf(out, "\nShowing %d of %d runs\n", len(runs), total)
	return nil
}

func (cmd *HistoryCommand) printRun(out io.Writer, run *entities.ImportRun) error {
	if cmd.JSON {
		if run.Report != "" {
			_, err := fmt.Fprintln(out, run.Report)
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	fmt.Fprintf(out, "Run:      %s\n", run.RunID)
	fmt.Fprintf(out, "Trigger:  %s\n", run.Trigger)
	fmt.Fprintf(out, "Data dir: %s\n", run.DataDir)
	fmt.Fprintf(out, "Status:   %s\n", run.Status)
	fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
	if run.CompletedAt != nil {
		fmt.Fprintf(out, "Finished: %s\n", run.CompletedAt.Local().Format(time.DateTime))
	}
	fmt.Fprintf(out, "Totals:   %d created, %d skipped, %d failed\n", run.Created, run.Skipped, run.Failed)
	if run.ErrorMsg != "" {
		fmt.Fprintf(out, "Error:    %s\n", run.ErrorMsg)
	}
	return nil
}
