package importers

import (
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/yamdb-importer/internal/entities"
)

// Rules carries the collaborator constraints the importer enforces. They are
// passed explicitly instead of being read from process-wide settings.
type Rules struct {
	Roles             []entities.Role
	DefaultRole       entities.Role
	ReservedUsernames []string
	ScoreMin          int
	ScoreMax          int
}

// DefaultRules mirrors the constraints of the serving API.
func DefaultRules() Rules {
	return Rules{
		Roles:             append([]entities.Role(nil), entities.DefaultRoles...),
		DefaultRole:       entities.RoleUser,
		ReservedUsernames: []string{"me"},
		ScoreMin:          1,
		ScoreMax:          10,
	}
}

// Options configures an Orchestrator.
type Options struct {
	// DataDir is the directory holding one CSV file per entity type.
	DataDir string

	// Files maps an entity type to its file name inside DataDir.
	// Missing entries fall back to DefaultFiles.
	Files map[Entity]string

	// Lookups overrides the lookup key of a reference field, keyed by
	// "<entity>.<field>" (e.g. "reviews.author"). Unlisted fields use LookupAuto.
	Lookups map[string]LookupKey

	// Stages is the plan of the run. Nil means StageOrder. A subset may be
	// given but every stage must come after the stages it depends on.
	Stages []Entity

	Rules Rules

	// Now is the run clock, used for absent dates and the year check.
	Now func() time.Time

	Logger logrus.FieldLogger
}

// DefaultFiles are the file names of the original data dump.
var DefaultFiles = map[Entity]string{
	EntityUser:       "users.csv",
	EntityCategory:   "category.csv",
	EntityGenre:      "genre.csv",
	EntityTitle:      "titles.csv",
	EntityReview:     "review.csv",
	EntityComment:    "comments.csv",
	EntityTitleGenre: "genre_title.csv",
}

// DefaultOptions returns options reading the default file names from dataDir.
func DefaultOptions(dataDir string) Options {
	return Options{
		DataDir: dataDir,
		Rules:   DefaultRules(),
	}
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	if o.Stages == nil {
		o.Stages = StageOrder
	}
	if o.Rules.DefaultRole == "" && len(o.Rules.Roles) == 0 && o.Rules.ScoreMax == 0 {
		o.Rules = DefaultRules()
	}
	return o
}

// SourcePath returns the input file path of an entity type.
func (o Options) SourcePath(entity Entity) string {
	name, ok := o.Files[entity]
	if !ok || name == "" {
		name = DefaultFiles[entity]
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(o.DataDir, name)
}

func (o Options) lookupKey(entity Entity, field string) LookupKey {
	if key, ok := o.Lookups[string(entity)+"."+field]; ok && key != "" {
		return key
	}
	return LookupAuto
}
