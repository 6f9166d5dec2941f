package importers

import (
	"context"
	"errors"

	"github.com/mrlokans/yamdb-importer/internal/entities"
)

// LinkResolver adds title <-> genre associations. Both endpoints must
// already exist; it never creates titles or genres.
type LinkResolver struct {
	schema   *Schema
	resolver *Resolver
	upserter *Upserter
}

func NewLinkResolver(schema *Schema, resolver *Resolver, upserter *Upserter) *LinkResolver {
	return &LinkResolver{schema: schema, resolver: resolver, upserter: upserter}
}

// Handle links the pair of row. An unresolved endpoint is named in the
// failure reason and no association is created. An existing pair is skipped.
func (l *LinkResolver) Handle(ctx context.Context, row Row) (RowResult, error) {
	resolved, err := l.resolver.Resolve(ctx, row, l.schema.Refs)
	if err != nil {
		var unresolved *UnresolvedError
		if errors.As(err, &unresolved) {
			return failedRow(row.Line, err), nil
		}
		return RowResult{}, err
	}

	rec := Record{Line: row.Line, Refs: resolved.IDs}
	link := &entities.TitleGenre{
		TitleID: rec.Ref("title_id"),
		GenreID: rec.Ref("genre_id"),
	}
	return upsertRow(ctx, l.upserter, row.Line, link)
}
