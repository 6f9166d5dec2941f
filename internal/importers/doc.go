// Package importers loads the YaMDb CSV dump into the relational store.
//
// # Architecture
//
// A run is driven by the Orchestrator, which processes one stage per entity
// type in dependency order:
//
//	users → categories → genres → titles → reviews → comments → title_genres
//
// Each row of a stage flows through:
//
//	Source (CSV) → Coercer → Resolver → Upserter → Store
//
// Row-level problems (malformed rows, bad values, unresolved references,
// constraint violations) are recorded in the stage report and never stop the
// stage. Records that already exist are skipped, so running the same input
// twice creates nothing the second time. Only a store failure or context
// cancellation aborts the run.
//
// # Example Usage
//
//	db, err := database.NewDatabase(database.Options{Driver: "sqlite", Path: "./yamdb.db"})
//
//	opts := importers.DefaultOptions("./static/data")
//	orchestrator, err := importers.NewOrchestrator(store.NewRepository(db.DB), opts)
//	report, err := orchestrator.Run(ctx)
//
// # Reference Lookup
//
// Reference columns (e.g. reviews.author) are matched by surrogate id, by
// natural key (username, slug) or, by default, by both: numeric values try the
// id first. Options.Lookups overrides this per "<entity>.<field>".
package importers
