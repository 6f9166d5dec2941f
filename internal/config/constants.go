package config

// Default paths
const (
	// DefaultDatabasePath is the default path of the SQLite store
	DefaultDatabasePath = "./yamdb.db"

	// DefaultDataDir is the default directory holding the CSV dump
	DefaultDataDir = "./static/data"
)
