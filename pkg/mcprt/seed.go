// CLAUDE:SUMMARY Default saved queries — seeded once so a fresh instance has working exploration tools
package mcprt

import (
	"database/sql"
	"log/slog"
)

// SeedDefaults inserts a starter set of saved queries if the registry is
// empty. These cover the exploration questions analysts ask before writing
// their first claim.
func SeedDefaults(db *sql.DB) {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM saved_queries").Scan(&count); err != nil {
		slog.Warn("seed: cannot check registry", "error", err)
		return
	}
	if count > 0 {
		return // already seeded
	}

	queries := []struct {
		name, category, desc, schema, query string
	}{
		{
			name:     "recent_port_calls",
			category: "exploration",
			desc:     "Most recent port calls at a given port",
			schema:   `{"type":"object","properties":{"port":{"type":"string","description":"UN/LOCODE port code"}},"required":["port"]}`,
			query:    "SELECT pc.port, pc.country, v.name, v.carrier, pc.arrived_ts, pc.departed_ts FROM port_calls pc JOIN vessels v ON v.imo = pc.imo WHERE pc.port = :port ORDER BY pc.arrived_ts DESC LIMIT 50",
		},
		{
			name:     "route_traffic_volume",
			category: "exploration",
			desc:     "Movement counts per route, busiest first",
			schema:   `{"type":"object","properties":{}}`,
			query:    "SELECT route, COUNT(*) AS movements, AVG(distance_nm) AS avg_distance_nm FROM vessel_movements GROUP BY route ORDER BY movements DESC LIMIT 50",
		},
		{
			name:     "carrier_fleet_activity",
			category: "exploration",
			desc:     "Movements and fuel burn per carrier in a time window",
			schema:   `{"type":"object","properties":{"since":{"type":"string","description":"ISO date lower bound, e.g. 2026-01-01"}},"required":["since"]}`,
			query:    "SELECT v.carrier, COUNT(*) AS movements, SUM(m.fuel_consumed_mt) AS fuel_mt FROM vessel_movements m JOIN vessels v ON v.imo = m.imo WHERE m.departure_ts >= :since GROUP BY v.carrier ORDER BY movements DESC",
		},
	}

	for _, q := range queries {
		_, err := db.Exec(`
			INSERT INTO saved_queries (name, category, description, input_schema, query)
			VALUES (?, ?, ?, ?, ?)`,
			q.name, q.category, q.desc, q.schema, q.query)
		if err != nil {
			slog.Warn("seed: insert failed", "query", q.name, "error", err)
		}
	}
	slog.Info("seeded default saved queries", "count", len(queries))
}
