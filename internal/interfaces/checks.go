package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/yamdb-importer/internal/audit"
	"github.com/mrlokans/yamdb-importer/internal/database/store"
	"github.com/mrlokans/yamdb-importer/internal/importers"
	"github.com/mrlokans/yamdb-importer/internal/scheduler"
	"github.com/mrlokans/yamdb-importer/internal/services"
	"github.com/mrlokans/yamdb-importer/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

// Store implementations
var _ importers.Store = (*store.Repository)(nil)

// RunRecorder implementations
var _ services.RunRecorder = (*audit.Service)(nil)

// RunHistoryCleaner implementations
var _ tasks.RunHistoryCleaner = (*audit.Service)(nil)

// =============================================================================
// Import Pipeline
// =============================================================================

// RowHandler implementations
var _ importers.RowHandler = (*importers.Pipeline)(nil)
var _ importers.RowHandler = (*importers.LinkResolver)(nil)

// =============================================================================
// Background Work
// =============================================================================

// Importer implementations
var _ tasks.Importer = (*services.ImportService)(nil)

// Enqueuer implementations
var _ scheduler.Enqueuer = (*tasks.Client)(nil)
