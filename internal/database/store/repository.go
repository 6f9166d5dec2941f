package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/yamdb-importer/internal/entities"
	"github.com/mrlokans/yamdb-importer/internal/importers"
)

// PostgreSQL SQLSTATE codes of integrity constraint violations.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
)

var errAlreadyPresent = errors.New("already present")

// Repository is the gorm backed importers.Store.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *Repository) Lookup(ctx context.Context, table, column string, value any) (uint, bool, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Table(table).
		Where(map[string]any{column: value}).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, false, err
	}
	if len(ids) == 0 {
		return 0, false, nil
	}
	return ids[0], true, nil
}

// Insert creates model unless one of its identity keys already matches a
// stored record. Explicit surrogate ids are kept.
func (r *Repository) Insert(ctx context.Context, model entities.Identifiable) (importers.InsertResult, error) {
	table := model.TableName()
	explicitID := false
	if keyed, ok := model.(entities.SurrogateKeyed); ok {
		explicitID = keyed.SurrogateID() != 0
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, key := range model.IdentityKeys() {
			var count int64
			if err := tx.Table(table).Where(key).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check %s identity: %w", table, err)
			}
			if count > 0 {
				return errAlreadyPresent
			}
		}

		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			return err
		}

		if explicitID && tx.Dialector.Name() == "postgres" {
			return syncSequence(tx, table)
		}
		return nil
	})

	switch {
	case err == nil:
		return importers.Created, nil
	case errors.Is(err, errAlreadyPresent):
		return importers.AlreadyPresent, nil
	}

	switch classify(err) {
	case violationUnique:
		return importers.AlreadyPresent, nil
	case violationConstraint:
		return 0, fmt.Errorf("%w: %v", importers.ErrConstraintViolated, err)
	default:
		return 0, err
	}
}

// syncSequence moves the id sequence of table past the largest stored id so
// later inserts without an explicit id do not collide.
func syncSequence(tx *gorm.DB, table string) error {
	err := tx.Exec(
		fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), (SELECT MAX(id) FROM %s))", table, table),
	).Error
	if err != nil {
		return fmt.Errorf("failed to sync %s id sequence: %w", table, err)
	}
	return nil
}

type violation int

const (
	violationNone violation = iota
	violationUnique
	violationConstraint
)

func classify(err error) violation {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return violationUnique
	case errors.Is(err, gorm.ErrCheckConstraintViolated),
		errors.Is(err, gorm.ErrForeignKeyViolated):
		return violationConstraint
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return violationUnique
		default:
			return violationConstraint
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return violationUnique
		case pgForeignKeyViolation, pgNotNullViolation, pgCheckViolation:
			return violationConstraint
		}
	}
	return violationNone
}

var _ importers.Store = (*Repository)(nil)
