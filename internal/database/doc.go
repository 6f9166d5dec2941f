// Package database provides the data access layer of the importer.
//
// # Architecture
//
//	database/
//	├── database.go      # Connection setup (SQLite or PostgreSQL), migrations
//	├── store/           # importers.Store: lookups and create-if-absent inserts
//	└── runs/            # Import run history
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase(database.Options{Driver: "sqlite", Path: "./yamdb.db"})
//
//	catalog := store.NewRepository(db.DB)
//	history := runs.NewRepository(db.DB)
//
//	orchestrator, err := importers.NewOrchestrator(catalog, importers.DefaultOptions("./data"))
package database
