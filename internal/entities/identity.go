package entities

// Identifiable is implemented by every entity the importer writes.
//
// IdentityKeys returns the column sets that identify an existing record. A row
// is considered already present when any one of the sets matches a stored
// record. Sets whose values are unknown (e.g. no surrogate id in the source
// row) are omitted by the implementation.
type Identifiable interface {
	TableName() string
	IdentityKeys() []map[string]any
}

// SurrogateKeyed is implemented by entities with an auto-increment id column.
type SurrogateKeyed interface {
	SurrogateID() uint
}
