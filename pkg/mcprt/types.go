// Package mcprt exposes analyst-saved queries as dynamic MCP tools. Queries
// live in the saved_queries table, carry a JSON schema for their named
// parameters, and always execute through the sandbox runner, never against
// a raw handle.
package mcprt

import (
	"context"
	"database/sql"
	"sync"

	"github.com/hazyhaar/etsotracker/internal/sandbox"
)

// SavedQuery is a parameterized read-only query loaded from the registry.
type SavedQuery struct {
	Name        string
	Category    string
	Description string
	InputSchema map[string]any
	Query       string // SELECT with :name placeholders
	Version     int
	IsActive    bool
}

// Runner executes a fully bound query under sandbox policy.
type Runner interface {
	Execute(ctx context.Context, query string) (*sandbox.Result, error)
}

// Registry holds loaded saved queries in memory with a watcher for hot reload.
type Registry struct {
	db          *sql.DB
	queries     map[string]*SavedQuery
	lastVersion int64
	mu          sync.RWMutex
}
