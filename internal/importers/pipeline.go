package importers

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrlokans/yamdb-importer/internal/entities"
)

// RowHandler turns one parsed row into a stored record.
//
// Implementations:
//   - Pipeline (pipeline.go) - entity stages: coerce → resolve → upsert
//   - LinkResolver (links.go) - the title <-> genre association stage
//
// A returned error is fatal for the run; row-level problems are reported
// in the RowResult.
type RowHandler interface {
	Handle(ctx context.Context, row Row) (RowResult, error)
}

// Pipeline handles the row workflow of an entity stage:
// coerce → resolve references → validate → create-if-absent.
type Pipeline struct {
	schema   *Schema
	coercer  *Coercer
	resolver *Resolver
	upserter *Upserter
}

func NewPipeline(schema *Schema, coercer *Coercer, resolver *Resolver, upserter *Upserter) *Pipeline {
	return &Pipeline{
		schema:   schema,
		coercer:  coercer,
		resolver: resolver,
		upserter: upserter,
	}
}

func (p *Pipeline) Handle(ctx context.Context, row Row) (RowResult, error) {
	values, err := p.coercer.Coerce(row, p.schema.Fields)
	if err != nil {
		return failedRow(row.Line, err), nil
	}

	resolved, err := p.resolver.Resolve(ctx, row, p.schema.Refs)
	if err != nil {
		var unresolved *UnresolvedError
		if errors.As(err, &unresolved) {
			return failedRow(row.Line, err), nil
		}
		return RowResult{}, err
	}

	res, err := upsertRow(ctx, p.upserter, row.Line, p.schema.build(Record{Line: row.Line, Values: values, Refs: resolved.IDs}))
	if err != nil || res.Outcome == RowFailed {
		return res, err
	}
	return res.withDangling(resolved.Dangling), nil
}

func upsertRow(ctx context.Context, upserter *Upserter, line int, model entities.Identifiable) (RowResult, error) {
	result, err := upserter.Upsert(ctx, model)
	if err != nil {
		var constraint *ConstraintError
		if errors.As(err, &constraint) {
			return failedRow(line, err), nil
		}
		return RowResult{}, err
	}

	switch result {
	case Created:
		return createdRow(line), nil
	case AlreadyPresent:
		return skippedRow(line), nil
	default:
		return RowResult{}, fmt.Errorf("unexpected insert result %d", result)
	}
}

var (
	_ RowHandler = (*Pipeline)(nil)
	_ RowHandler = (*LinkResolver)(nil)
)
