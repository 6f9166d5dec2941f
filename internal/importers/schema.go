package importers

import (
	"github.com/mrlokans/yamdb-importer/internal/entities"
)

// Entity names an entity type; the value is also its table name.
type Entity string

const (
	EntityUser       Entity = "users"
	EntityCategory   Entity = "categories"
	EntityGenre      Entity = "genres"
	EntityTitle      Entity = "titles"
	EntityReview     Entity = "reviews"
	EntityComment    Entity = "comments"
	EntityTitleGenre Entity = "title_genres"
)

// StageOrder is the fixed dependency order of a run.
var StageOrder = []Entity{
	EntityUser,
	EntityCategory,
	EntityGenre,
	EntityTitle,
	EntityReview,
	EntityComment,
	EntityTitleGenre,
}

// naturalKeys lists the human-meaningful unique column of entity types that have one.
var naturalKeys = map[Entity]string{
	EntityUser:     "username",
	EntityCategory: "slug",
	EntityGenre:    "slug",
}

// NaturalKey returns the natural key column of an entity type, if any.
func NaturalKey(entity Entity) (string, bool) {
	col, ok := naturalKeys[entity]
	return col, ok
}

// Schema describes how one entity type is read from its source file.
type Schema struct {
	Entity    Entity
	DependsOn []Entity
	Fields    []FieldSpec
	Refs      []RefSpec

	// build is nil for the link stage, which is handled by LinkResolver.
	build func(rec Record) entities.Identifiable
}

// RequiredColumns returns the header columns a source file must carry.
// Each entry lists the accepted spellings of one column.
func (s *Schema) RequiredColumns() [][]string {
	var cols [][]string
	for _, f := range s.Fields {
		if f.Required {
			cols = append(cols, f.names())
		}
	}
	for _, r := range s.Refs {
		if !r.Optional {
			cols = append(cols, r.names())
		}
	}
	return cols
}

// Record is a coerced row with its references resolved to surrogate ids.
type Record struct {
	Line   int
	Values Values
	Refs   map[string]*uint
}

// Ref returns the resolved id of a required reference.
func (r Record) Ref(field string) uint {
	if id := r.Refs[field]; id != nil {
		return *id
	}
	return 0
}

// OptionalRef returns the resolved id of an optional reference, or nil.
func (r Record) OptionalRef(field string) *uint {
	return r.Refs[field]
}

func idField() FieldSpec {
	return FieldSpec{Name: "id", Kind: KindInteger, Positive: true}
}

func buildSchemas(opts Options) map[Entity]*Schema {
	roles := make([]string, 0, len(opts.Rules.Roles))
	for _, r := range opts.Rules.Roles {
		roles = append(roles, string(r))
	}

	ref := func(owner Entity, field string, aliases []string, target Entity, optional bool) RefSpec {
		return RefSpec{
			Field:    field,
			Aliases:  aliases,
			Target:   target,
			Key:      opts.lookupKey(owner, field),
			Optional: optional,
		}
	}

	return map[Entity]*Schema{
		EntityUser: {
			Entity: EntityUser,
			Fields: []FieldSpec{
				idField(),
				{Name: "username", Kind: KindString, Required: true},
				{Name: "email", Kind: KindString, Required: true},
				{Name: "role", Kind: KindEnum, Allowed: roles, Default: string(opts.Rules.DefaultRole)},
				{Name: "bio", Kind: KindString},
				{Name: "first_name", Kind: KindString},
				{Name: "last_name", Kind: KindString},
			},
			build: func(rec Record) entities.Identifiable {
				return &entities.User{
					ID:        rec.Values.ID(),
					Username:  rec.Values.String("username"),
					Email:     rec.Values.String("email"),
					Role:      entities.Role(rec.Values.String("role")),
					Bio:       rec.Values.String("bio"),
					FirstName: rec.Values.String("first_name"),
					LastName:  rec.Values.String("last_name"),
				}
			},
		},
		EntityCategory: {
			Entity: EntityCategory,
			Fields: slugNameFields(),
			build: func(rec Record) entities.Identifiable {
				return &entities.Category{
					ID:   rec.Values.ID(),
					Name: rec.Values.String("name"),
					Slug: rec.Values.String("slug"),
				}
			},
		},
		EntityGenre: {
			Entity: EntityGenre,
			Fields: slugNameFields(),
			build: func(rec Record) entities.Identifiable {
				return &entities.Genre{
					ID:   rec.Values.ID(),
					Name: rec.Values.String("name"),
					Slug: rec.Values.String("slug"),
				}
			},
		},
		EntityTitle: {
			Entity:    EntityTitle,
			DependsOn: []Entity{EntityCategory},
			Fields: []FieldSpec{
				idField(),
				{Name: "name", Kind: KindString, Required: true},
				{Name: "year", Kind: KindInteger, Required: true},
				{Name: "description", Kind: KindString},
			},
			Refs: []RefSpec{
				ref(EntityTitle, "category", []string{"category_id"}, EntityCategory, true),
			},
			build: func(rec Record) entities.Identifiable {
				return &entities.Title{
					ID:          rec.Values.ID(),
					Name:        rec.Values.String("name"),
					Year:        int(rec.Values.Int("year")),
					Description: rec.Values.String("description"),
					CategoryID:  rec.OptionalRef("category"),
				}
			},
		},
		EntityReview: {
			Entity:    EntityReview,
			DependsOn: []Entity{EntityUser, EntityTitle},
			Fields: []FieldSpec{
				idField(),
				{Name: "text", Kind: KindString, Required: true},
				{Name: "score", Kind: KindInteger, Required: true},
				{Name: "pub_date", Kind: KindDate},
			},
			Refs: []RefSpec{
				ref(EntityReview, "title", []string{"title_id"}, EntityTitle, false),
				ref(EntityReview, "author", []string{"author_id"}, EntityUser, false),
			},
			build: func(rec Record) entities.Identifiable {
				return &entities.Review{
					ID:       rec.Values.ID(),
					TitleID:  rec.Ref("title"),
					AuthorID: rec.Ref("author"),
					Text:     rec.Values.String("text"),
					Score:    int(rec.Values.Int("score")),
					PubDate:  rec.Values.Time("pub_date"),
				}
			},
		},
		EntityComment: {
			Entity:    EntityComment,
			DependsOn: []Entity{EntityUser, EntityReview},
			Fields: []FieldSpec{
				idField(),
				{Name: "text", Kind: KindString, Required: true},
				{Name: "pub_date", Kind: KindDate},
			},
			Refs: []RefSpec{
				ref(EntityComment, "review", []string{"review_id"}, EntityReview, false),
				ref(EntityComment, "author", []string{"author_id"}, EntityUser, false),
			},
			build: func(rec Record) entities.Identifiable {
				return &entities.Comment{
					ID:       rec.Values.ID(),
					ReviewID: rec.Ref("review"),
					AuthorID: rec.Ref("author"),
					Text:     rec.Values.String("text"),
					PubDate:  rec.Values.Time("pub_date"),
				}
			},
		},
		EntityTitleGenre: {
			Entity:    EntityTitleGenre,
			DependsOn: []Entity{EntityTitle, EntityGenre},
			Refs: []RefSpec{
				ref(EntityTitleGenre, "title_id", []string{"title"}, EntityTitle, false),
				ref(EntityTitleGenre, "genre_id", []string{"genre"}, EntityGenre, false),
			},
		},
	}
}

func slugNameFields() []FieldSpec {
	return []FieldSpec{
		idField(),
		{Name: "name", Kind: KindString, Required: true},
		{Name: "slug", Kind: KindString, Required: true},
	}
}
