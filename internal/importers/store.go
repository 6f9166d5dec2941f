package importers

import (
	"context"
	"errors"

	"github.com/mrlokans/yamdb-importer/internal/entities"
)

// ErrConstraintViolated is wrapped by Store implementations when a row is
// rejected by a CHECK, NOT NULL or foreign key constraint.
var ErrConstraintViolated = errors.New("constraint violated")

// ErrStoreUnreachable wraps a failed Store.Ping.
var ErrStoreUnreachable = errors.New("store unreachable")

type InsertResult int

const (
	Created InsertResult = iota + 1
	AlreadyPresent
)

func (r InsertResult) String() string {
	switch r {
	case Created:
		return "created"
	case AlreadyPresent:
		return "already present"
	default:
		return "unknown"
	}
}

// Store is the relational store the importer populates.
type Store interface {
	Ping(ctx context.Context) error

	// Lookup returns the id of the record of table whose column equals value.
	Lookup(ctx context.Context, table, column string, value any) (uint, bool, error)

	// Insert creates model unless a record matching any of its identity keys
	// exists. The check and the create run in one transaction. A uniqueness
	// violation at create time is reported as AlreadyPresent.
	Insert(ctx context.Context, model entities.Identifiable) (InsertResult, error)
}
