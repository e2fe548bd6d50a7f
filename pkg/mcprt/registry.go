package mcprt

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/etsotracker/internal/sandbox"
)

const Schema = `
CREATE TABLE IF NOT EXISTS saved_queries (
	name TEXT PRIMARY KEY,
	category TEXT NOT NULL DEFAULT 'general',
	description TEXT NOT NULL,
	input_schema TEXT NOT NULL DEFAULT '{"type":"object","properties":{}}',
	query TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1 CHECK(is_active IN (0, 1)),
	created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
	updated_at INTEGER,
	version INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_saved_queries_active ON saved_queries(is_active);

CREATE TRIGGER IF NOT EXISTS trg_saved_queries_updated_at
AFTER UPDATE ON saved_queries
FOR EACH ROW
BEGIN
	UPDATE saved_queries SET updated_at = strftime('%s', 'now') WHERE name = NEW.name;
END;
`

func NewRegistry(db *sql.DB) *Registry {
	return &Registry{
		db:      db,
		queries: make(map[string]*SavedQuery),
	}
}

// Init creates the registry tables.
func (r *Registry) Init() error {
	_, err := r.db.Exec(Schema)
	return err
}

// Load loads all active saved queries from the registry table. Entries
// whose query fails the sandbox guard are skipped at load time, so a bad
// row can never become a callable tool.
func (r *Registry) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, `
		SELECT name, category, description, input_schema, query, version, is_active
		FROM saved_queries
		WHERE is_active = 1
		ORDER BY category, name`)
	if err != nil {
		return fmt.Errorf("query registry: %w", err)
	}
	defer rows.Close()

	loaded := make(map[string]*SavedQuery)
	for rows.Next() {
		var q SavedQuery
		var schemaJSON string
		if err := rows.Scan(&q.Name, &q.Category, &q.Description,
			&schemaJSON, &q.Query, &q.Version, &q.IsActive); err != nil {
			return fmt.Errorf("scan saved query: %w", err)
		}
		if err := json.Unmarshal([]byte(schemaJSON), &q.InputSchema); err != nil {
			slog.Warn("bad input_schema, skipping", "query", q.Name, "error", err)
			continue
		}
		if f := sandbox.CheckQuery(probeQuery(q.Query)); f != nil {
			slog.Warn("saved query fails guard, skipping", "query", q.Name, "error", f)
			continue
		}
		loaded[q.Name] = &q
	}
	if err := rows.Err(); err != nil {
		return err
	}

	r.queries = loaded
	slog.Info("saved queries loaded", "count", len(loaded))
	return nil
}

func (r *Registry) List() []*SavedQuery {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*SavedQuery, 0, len(r.queries))
	for _, q := range r.queries {
		out = append(out, q)
	}
	return out
}

func (r *Registry) Get(name string) (*SavedQuery, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.queries[name]
	return q, ok
}

// Execute binds params into the named query and runs it through the sandbox.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any, runner Runner) (*sandbox.Result, error) {
	q, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("saved query not found: %s", name)
	}

	if required, ok := q.InputSchema["required"].([]any); ok {
		for _, rf := range required {
			field, _ := rf.(string)
			if field == "" {
				continue
			}
			if _, exists := params[field]; !exists {
				return nil, fmt.Errorf("missing required param: %s", field)
			}
		}
	}

	bound, err := bindParams(q.Query, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return runner.Execute(ctx, bound)
}

// RunWatcher polls PRAGMA data_version every 5s and reloads on change.
func (r *Registry) RunWatcher(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	slog.Info("saved query watcher started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("saved query watcher stopped")
			return
		case <-ticker.C:
			var ver int64
			if err := r.db.QueryRow("PRAGMA data_version").Scan(&ver); err != nil {
				slog.Warn("data_version poll failed", "error", err)
				continue
			}
			if ver != r.lastVersion && r.lastVersion != 0 {
				slog.Info("registry change detected, reloading")
				if err := r.Load(ctx); err != nil {
					slog.Error("reload failed", "error", err)
				}
			}
			r.lastVersion = ver
		}
	}
}
