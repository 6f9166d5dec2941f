package importers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/yamdb-importer/internal/entities"
)

// ConstraintError is a row rejected by a field rule or a store constraint.
type ConstraintError struct {
	Reasons []string
}

func (e *ConstraintError) Error() string {
	return "constraint violation: " + strings.Join(e.Reasons, "; ")
}

// Upserter creates records that do not exist yet and skips the others.
// Existing records are never modified.
type Upserter struct {
	store    Store
	validate *validator.Validate
	rules    Rules
}

func NewUpserter(store Store, rules Rules, now func() time.Time) (*Upserter, error) {
	if now == nil {
		now = time.Now
	}
	v, err := newValidator(rules, now)
	if err != nil {
		return nil, err
	}
	return &Upserter{store: store, validate: v, rules: rules}, nil
}

// Upsert validates model and inserts it when absent. A *ConstraintError
// invalidates only this row; any other error is fatal for the run.
func (u *Upserter) Upsert(ctx context.Context, model entities.Identifiable) (InsertResult, error) {
	if err := u.validate.Struct(model); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return 0, &ConstraintError{Reasons: describeValidation(verrs, u.rules)}
		}
		return 0, fmt.Errorf("failed to validate %s: %w", model.TableName(), err)
	}

	result, err := u.store.Insert(ctx, model)
	if err != nil {
		if errors.Is(err, ErrConstraintViolated) {
			return 0, &ConstraintError{Reasons: []string{err.Error()}}
		}
		return 0, fmt.Errorf("failed to insert into %s: %w", model.TableName(), err)
	}
	return result, nil
}
