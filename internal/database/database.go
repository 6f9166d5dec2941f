package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/yamdb-importer/internal/entities"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects and configures the store connection.
type Options struct {
	Driver string
	// Path is the SQLite database file.
	Path string
	// DSN is the PostgreSQL connection string.
	DSN string
	// Logger receives slow query and error logs. Nil disables SQL logging.
	Logger logrus.FieldLogger
	// LogQueries logs every statement at info level.
	LogQueries bool
}

type Database struct {
	DB     *gorm.DB
	Driver string
}

func NewDatabase(opts Options) (*Database, error) {
	dialector, err := openDialector(opts)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(opts),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	database := &Database{DB: db, Driver: opts.Driver}
	if err := database.Migrate(); err != nil {
		return nil, err
	}

	if opts.Logger != nil {
		opts.Logger.WithField("driver", opts.Driver).Info("Database initialized")
	}
	return database, nil
}

func openDialector(opts Options) (gorm.Dialector, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		if opts.Path == "" {
			return nil, fmt.Errorf("sqlite database path is required")
		}
		return sqlite.Open(sqliteDSN(opts.Path)), nil
	case DriverPostgres:
		if opts.DSN == "" {
			return nil, fmt.Errorf("postgres DSN is required")
		}
		return postgres.Open(opts.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

// sqliteDSN enables foreign key enforcement, which SQLite leaves off per connection.
func sqliteDSN(path string) string {
	if strings.Contains(path, "_foreign_keys") || strings.Contains(path, "_fk=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on"
}

func newGormLogger(opts Options) logger.Interface {
	if opts.Logger == nil {
		return logger.Discard
	}
	level := logger.Warn
	if opts.LogQueries {
		level = logger.Info
	}
	return logger.New(opts.Logger, logger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// Migrate creates the tables the importer writes to and the run history table.
func (d *Database) Migrate() error {
	if err := d.DB.SetupJoinTable(&entities.Title{}, "Genres", &entities.TitleGenre{}); err != nil {
		return fmt.Errorf("failed to set up title genres join table: %w", err)
	}

	err := d.DB.AutoMigrate(
		&entities.User{},
		&entities.Category{},
		&entities.Genre{},
		&entities.Title{},
		&entities.TitleGenre{},
		&entities.Review{},
		&entities.Comment{},
		&entities.ImportRun{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
