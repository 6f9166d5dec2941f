package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/yamdb-importer/internal/config"
	"github.com/mrlokans/yamdb-importer/internal/scheduler"
	"github.com/mrlokans/yamdb-importer/internal/tasks"
)

// ScheduleCommand runs the task queue workers and enqueues imports on a
// cron schedule until interrupted.
type ScheduleCommand struct {
	connection
	DataDir         string
	ReportDir       string
	Cron            string
	Workers         int
	RunNow          bool
	ShutdownTimeout time.Duration
	Verbose         bool

	// Logger overrides the logger built from the configuration.
	Logger *logrus.Logger

	config *config.Config
}

func NewScheduleCommand(cfg *config.Config) *ScheduleCommand {
	return &ScheduleCommand{config: cfg}
}

func (cmd *ScheduleCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)

	fs.StringVar(&cmd.DataDir, "data", cmd.config.Import.DataDir, "Directory containing the CSV files")
	fs.StringVar(&cmd.DatabasePath, "db", cmd.config.Database.Path, "Path to the SQLite database file (the task queue lives next to it)")
	fs.StringVar(&cmd.Driver, "driver", cmd.config.Database.Driver, "Database driver: sqlite or postgres")
	fs.StringVar(&cmd.DSN, "dsn", cmd.config.Database.DSN, "PostgreSQL connection string (driver postgres)")
	fs.StringVar(&cmd.ReportDir, "report-dir", cmd.config.Audit.ReportDir, "Directory for JSON run reports (empty disables them)")
	fs.StringVar(&cmd.Cron, "cron", cmd.config.Schedule.Cron, "Cron schedule for imports (5 fields)")
	fs.IntVar(&cmd.Workers, "workers", cmd.config.Tasks.Workers, "Number of task queue workers")
	fs.BoolVar(&cmd.RunNow, "run-now", false, "Enqueue an import immediately on start")
	fs.DurationVar(&cmd.ShutdownTimeout, "shutdown-timeout", 30*time.Second, "How long to wait for running tasks on shutdown")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s schedule [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Run imports in the background on a cron schedule until SIGINT/SIGTERM.\n")
		fmt.Fprintf(os.Stderr, "Set SCHEDULE_ENABLED=true to enable the schedule; otherwise only\n")
		fmt.Fprintf(os.Stderr, "the workers run (use -run-now for a single background import).\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  SCHEDULE_ENABLED=true %s schedule -cron \"0 3 * * *\"\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.DataDir == "" {
		return fmt.Errorf("required flag -data not provided")
	}
	if cmd.Workers < 1 {
		return fmt.Errorf("-workers must be at least 1")
	}
	if cmd.config.Schedule.Enabled {
		if err := scheduler.ValidateCronSchedule(cmd.Cron); err != nil {
			return fmt.Errorf("invalid -cron %q: %w", cmd.Cron, err)
		}
	}
	return nil
}

func (cmd *ScheduleCommand) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return cmd.run(ctx)
}

func (cmd *ScheduleCommand) run(ctx context.Context) error {
	if !cmd.config.Tasks.Enabled {
		return fmt.Errorf("task queue is disabled (TASKS_ENABLED=false)")
	}

	log := cmd.Logger
	if log == nil {
		var err error
		if log, err = newLogger(cmd.config, cmd.Verbose); err != nil {
			return err
		}
	}

	env, err := newEnvironment(cmd.config, cmd.connection, cmd.DataDir, cmd.ReportDir, cmd.Verbose, log)
	if err != nil {
		return err
	}
	defer env.Close()

	taskCfg := cmd.taskConfig()
	taskClient, err := tasks.NewClient(cmd.DatabasePath, taskCfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize task queue: %w", err)
	}
	defer taskClient.Close()

	taskClient.Register(
		tasks.NewImportRunQueue(env.imports, taskCfg, log),
		tasks.NewCleanupRunsQueue(env.history, log),
	)

	taskCtx, taskCancel := context.WithCancel(context.Background())
	defer taskCancel()
	go taskClient.Start(taskCtx)

	sched := scheduler.NewImportScheduler(taskClient, scheduler.Config{
		Schedule:      cmd.Cron,
		DataDir:       cmd.DataDir,
		RetentionDays: cmd.config.Audit.RetentionDays,
	}, log)

	if cmd.config.Schedule.Enabled {
		if err := sched.Start(ctx); err != nil {
			return err
		}
	} else {
		log.Info("Import schedule disabled (SCHEDULE_ENABLED=false), running workers only")
	}

	if cmd.RunNow {
		if err := sched.RunNow(); err != nil {
			return fmt.Errorf("failed to enqueue import: %w", err)
		}
	}

	<-ctx.Done()
	log.Info("Shutting down")

	sched.Stop()

	stopCtx, cancel := context.WithTimeout(context.Background(), cmd.ShutdownTimeout)
	defer cancel()
	taskClient.Stop(stopCtx)
	return nil
}

// taskConfig applies the TASK_* settings and -workers over the queue defaults.
func (cmd *ScheduleCommand) taskConfig() tasks.Config {
	return tasks.DefaultConfig().Merge(tasks.Config{
		Workers:         cmd.Workers,
		ReleaseAfter:    cmd.config.Tasks.ReleaseAfter,
		CleanupInterval: cmd.config.Tasks.CleanupInterval,
		ImportAttempts:  cmd.config.Tasks.MaxAttempts,
		ImportBackoff:   cmd.config.Tasks.RetryDelay,
		ImportTimeout:   cmd.config.Tasks.TaskTimeout,
		ImportRetention: cmd.config.Tasks.RetentionDuration,
	})
}
