// Package sqlite exposes the SQLite implementation of the offline CRM store
// while keeping its internals private.
package sqlite

import (
	"log/slog"

	"github.com/mesh-intelligence/crmstore/internal/sqlite"
	"github.com/mesh-intelligence/crmstore/pkg/types"
)

// NewBackend creates a detached SQLite store. Call Attach with a Config to
// open it.
//
// Example:
//
//	store := sqlite.NewBackend(nil)
//	err := store.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: "offline",
//	})
//	defer store.Detach()
func NewBackend(log *slog.Logger) types.DataStore {
	return sqlite.NewBackend(sqlite.WithLogger(log))
}
