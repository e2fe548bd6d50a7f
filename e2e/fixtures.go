// CLAUDE:SUMMARY Traffic mirror fixtures — builds a small vessels/movements/port_calls dataset for E2E runs
package e2e

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const trafficSchema = `
CREATE TABLE vessels (
	imo INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	vessel_type TEXT NOT NULL,
	flag TEXT NOT NULL,
	gross_tonnage REAL,
	carrier TEXT
);
CREATE TABLE vessel_movements (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	imo INTEGER NOT NULL REFERENCES vessels(imo),
	departure_port TEXT NOT NULL,
	arrival_port TEXT NOT NULL,
	departure_ts TEXT NOT NULL,
	arrival_ts TEXT NOT NULL,
	route TEXT NOT NULL,
	distance_nm REAL,
	fuel_consumed_mt REAL
);
CREATE TABLE port_calls (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	imo INTEGER NOT NULL REFERENCES vessels(imo),
	port TEXT NOT NULL,
	country TEXT NOT NULL,
	arrived_ts TEXT NOT NULL,
	departed_ts TEXT,
	cargo_ops INTEGER NOT NULL DEFAULT 1
);
`

// SeedTraffic creates the traffic mirror with a fixed small dataset:
// 3 vessels, 12 movements on two routes, 8 port calls. Counts matter —
// several tests assert against them and against the row cap of 5.
func SeedTraffic(path string) error {
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(trafficSchema); err != nil {
		return fmt.Errorf("traffic schema: %w", err)
	}

	vessels := []struct {
		imo     int
		name    string
		vtype   string
		flag    string
		gt      float64
		carrier string
	}{
		{9300001, "Baltic Carrier", "container", "DK", 92000, "Maersk"},
		{9300002, "Aegean Runner", "container", "GR", 54000, "MSC"},
		{9300003, "Iberia Star", "ro-ro", "ES", 31000, "Grimaldi"},
	}
	for _, v := range vessels {
		if _, err := db.Exec(`INSERT INTO vessels VALUES (?,?,?,?,?,?)`,
			v.imo, v.name, v.vtype, v.flag, v.gt, v.carrier); err != nil {
			return err
		}
	}

	// 12 movements: 8 on NLRTM-SGSIN, 4 on ESALG-MAPTM
	for i := 0; i < 8; i++ {
		if _, err := db.Exec(`
			INSERT INTO vessel_movements (imo, departure_port, arrival_port, departure_ts, arrival_ts, route, distance_nm, fuel_consumed_mt)
			VALUES (?, 'NLRTM', 'SGSIN', ?, ?, 'NLRTM-SGSIN', 8300, 410)`,
			9300001, fmt.Sprintf("2026-01-%02dT06:00:00Z", i+1), fmt.Sprintf("2026-01-%02dT18:00:00Z", i+20)); err != nil {
			return err
		}
	}
	for i := 0; i < 4; i++ {
		if _, err := db.Exec(`
			INSERT INTO vessel_movements (imo, departure_port, arrival_port, departure_ts, arrival_ts, route, distance_nm, fuel_consumed_mt)
			VALUES (?, 'ESALG', 'MAPTM', ?, ?, 'ESALG-MAPTM', 18, 2)`,
			9300003, fmt.Sprintf("2026-02-%02dT08:00:00Z", i+1), fmt.Sprintf("2026-02-%02dT10:00:00Z", i+1)); err != nil {
			return err
		}
	}

	for i := 0; i < 8; i++ {
		imo := 9300001
		if i%2 == 1 {
			imo = 9300002
		}
		if _, err := db.Exec(`
			INSERT INTO port_calls (imo, port, country, arrived_ts, departed_ts, cargo_ops)
			VALUES (?, 'NLRTM', 'NL', ?, ?, 1)`,
			imo, fmt.Sprintf("2026-01-%02dT09:00:00Z", i+1), fmt.Sprintf("2026-01-%02dT21:00:00Z", i+1)); err != nil {
			return err
		}
	}
	return nil
}
