package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mrlokans/yamdb-importer/internal/entities"
	"github.com/mrlokans/yamdb-importer/internal/importers"
)

type (
	Config struct {
		Import
		Files
		Rules
		Database
		Audit
		Log
		Schedule
		Tasks
	}

	Import struct {
		DataDir string
		// ReferenceLookup is "<entity>.<field>=<id|natural|auto>" pairs, comma separated.
		ReferenceLookup string
	}
	Files struct {
		Users       string
		Categories  string
		Genres      string
		Titles      string
		Reviews     string
		Comments    string
		GenreTitles string
	}
	Rules struct {
		Roles             []string
		DefaultRole       string
		ReservedUsernames []string
		ScoreMin          int
		ScoreMax          int
	}
	Database struct {
		Driver string // "sqlite" or "postgres"
		Path   string // SQLite file
		DSN    string // PostgreSQL connection string
	}
	Audit struct {
		ReportDir     string // Directory for JSON run reports; empty disables them
		RetentionDays int    // Days to keep run history (default: 90)
	}
	Log struct {
		Level  string
		Format string // "text" or "json"
	}
	Schedule struct {
		Enabled bool
		Cron    string // Cron format: "0 3 * * *" = daily at 03:00
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxAttempts       int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("reference_lookup", "")

	v.SetDefault("users_file", "users.csv")
	v.SetDefault("category_file", "category.csv")
	v.SetDefault("genre_file", "genre.csv")
	v.SetDefault("titles_file", "titles.csv")
	v.SetDefault("review_file", "review.csv")
	v.SetDefault("comments_file", "comments.csv")
	v.SetDefault("genre_title_file", "genre_title.csv")

	v.SetDefault("import_roles", "user,moderator,admin")
	v.SetDefault("import_default_role", "user")
	v.SetDefault("import_reserved_usernames", "me")
	v.SetDefault("import_score_min", 1)
	v.SetDefault("import_score_max", 10)

	v.SetDefault("database_driver", "sqlite")
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")

	v.SetDefault("report_dir", "./reports")
	v.SetDefault("run_retention_days", 90)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetDefault("schedule_enabled", false)
	v.SetDefault("schedule_cron", "0 3 * * *") // Daily at 03:00

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_max_attempts", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "30m")
	v.SetDefault("task_release_after", "45m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "168h")

	return &Config{
		Import: Import{
			DataDir:         v.GetString("DATA_DIR"),
			ReferenceLookup: v.GetString("REFERENCE_LOOKUP"),
		},
		Files: Files{
			Users:       v.GetString("USERS_FILE"),
			Categories:  v.GetString("CATEGORY_FILE"),
			Genres:      v.GetString("GENRE_FILE"),
			Titles:      v.GetString("TITLES_FILE"),
			Reviews:     v.GetString("REVIEW_FILE"),
			Comments:    v.GetString("COMMENTS_FILE"),
			GenreTitles: v.GetString("GENRE_TITLE_FILE"),
		},
		Rules: Rules{
			Roles:             splitList(v.GetString("IMPORT_ROLES")),
			DefaultRole:       v.GetString("IMPORT_DEFAULT_ROLE"),
			ReservedUsernames: splitList(v.GetString("IMPORT_RESERVED_USERNAMES")),
			ScoreMin:          v.GetInt("IMPORT_SCORE_MIN"),
			ScoreMax:          v.GetInt("IMPORT_SCORE_MAX"),
		},
		Database: Database{
			Driver: v.GetString("DATABASE_DRIVER"),
			Path:   v.GetString("DATABASE_PATH"),
			DSN:    v.GetString("DATABASE_DSN"),
		},
		Audit: Audit{
			ReportDir:     v.GetString("REPORT_DIR"),
			RetentionDays: v.GetInt("RUN_RETENTION_DAYS"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Schedule: Schedule{
			Enabled: v.GetBool("SCHEDULE_ENABLED"),
			Cron:    v.GetString("SCHEDULE_CRON"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxAttempts:       v.GetInt("TASK_MAX_ATTEMPTS"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
	}
}

// ImporterOptions builds the orchestrator configuration. dataDir overrides
// DATA_DIR when not empty.
func (c *Config) ImporterOptions(dataDir string) (importers.Options, error) {
	if dataDir == "" {
		dataDir = c.Import.DataDir
	}

	lookups, err := ParseReferenceLookup(c.Import.ReferenceLookup)
	if err != nil {
		return importers.Options{}, err
	}

	roles := make([]entities.Role, 0, len(c.Rules.Roles))
	for _, r := range c.Rules.Roles {
		roles = append(roles, entities.Role(r))
	}

	return importers.Options{
		DataDir: dataDir,
		Files: map[importers.Entity]string{
			importers.EntityUser:       c.Files.Users,
			importers.EntityCategory:   c.Files.Categories,
			importers.EntityGenre:      c.Files.Genres,
			importers.EntityTitle:      c.Files.Titles,
			importers.EntityReview:     c.Files.Reviews,
			importers.EntityComment:    c.Files.Comments,
			importers.EntityTitleGenre: c.Files.GenreTitles,
		},
		Lookups: lookups,
		Rules: importers.Rules{
			Roles:             roles,
			DefaultRole:       entities.Role(c.Rules.DefaultRole),
			ReservedUsernames: c.Rules.ReservedUsernames,
			ScoreMin:          c.Rules.ScoreMin,
			ScoreMax:          c.Rules.ScoreMax,
		},
	}, nil
}

// ParseReferenceLookup parses "reviews.author=natural,comments.review=id".
func ParseReferenceLookup(s string) (map[string]importers.LookupKey, error) {
	lookups := make(map[string]importers.LookupKey)
	for _, pair := range splitList(s) {
		field, value, ok := strings.Cut(pair, "=")
		field = strings.TrimSpace(field)
		if !ok || !strings.Contains(field, ".") {
			return nil, fmt.Errorf("invalid reference lookup %q: want <entity>.<field>=<key>", pair)
		}
		key, err := importers.ParseLookupKey(value)
		if err != nil {
			return nil, fmt.Errorf("invalid reference lookup %q: %w", pair, err)
		}
		lookups[strings.ToLower(field)] = key
	}
	return lookups, nil
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
