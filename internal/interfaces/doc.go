// Package interfaces documents the core abstractions used throughout the application.
//
// This package consolidates interface documentation to help contributors find
// extension points and how to implement new functionality.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - Store: committed-state lookups and create-if-absent inserts (internal/importers/store.go)
//   - RunRecorder: persist the outcome of a run (internal/services/interfaces.go)
//   - RunHistoryCleaner: delete old runs (internal/tasks/cleanup_runs.go)
//
// ## Import Pipeline Interfaces
//
//   - RowHandler: turn one parsed row into a stored record (internal/importers/pipeline.go)
//
// ## Background Work Interfaces
//
//   - Importer: run one import (internal/tasks/import_run.go)
//   - Enqueuer: put tasks on the queue (internal/scheduler/import_schedule.go)
//
// # Adding a New Entity Stage
//
// To import another CSV table (e.g., ratings):
//
//  1. Add the model to internal/entities and implement entities.Identifiable:
//
//     func (Rating) TableName() string { return "ratings" }
//     func (r *Rating) IdentityKeys() []map[string]any
//
//  2. Add an Entity constant, its position in StageOrder and a Schema entry
//     in internal/importers/schema.go. DependsOn lists the stages whose
//     records it references; the plan validator rejects orders that break it.
//
//  3. Add the model to Migrate in internal/database/database.go and a file
//     name to DefaultFiles and internal/config.
//
// # Adding a New Store Backend
//
//  1. Implement importers.Store. Insert must check every identity key and
//     create in one transaction, returning AlreadyPresent on any match, and
//     wrap CHECK, NOT NULL and foreign key violations in ErrConstraintViolated.
//
//  2. Add a compile-time check:
//
//     var _ importers.Store = (*MyStore)(nil)
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// This pattern is used throughout the codebase. See checks.go for examples.
package interfaces
