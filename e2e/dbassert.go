// CLAUDE:SUMMARY Direct SQLite assertion helpers for E2E tests — persistent connection to the claims DB
package e2e

import (
	"database/sql"
	"sync"
	"testing"

	_ "modernc.org/sqlite"
)

// DBAssert provides direct SQLite assertions on the claims database.
// It keeps a persistent connection to avoid file descriptor exhaustion.
type DBAssert struct {
	claimsPath string

	mu         sync.Mutex
	claimsConn *sql.DB
}

func NewDBAssert(claimsDB string) *DBAssert {
	return &DBAssert{claimsPath: claimsDB}
}

func (d *DBAssert) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.claimsConn != nil {
		d.claimsConn.Close()
		d.claimsConn = nil
	}
}

func (d *DBAssert) claims() (*sql.DB, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.claimsConn != nil {
		return d.claimsConn, nil
	}
	db, err := sql.Open("sqlite", "file:"+d.claimsPath+"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	d.claimsConn = db
	return db, nil
}

// ClaimScore returns the stored confidence score, or nil when unset.
func (d *DBAssert) ClaimScore(t *testing.T, claimID string) *float64 {
	t.Helper()
	db, err := d.claims()
	if err != nil {
		t.Fatalf("opening claims db: %v", err)
	}
	var score sql.NullFloat64
	if err := db.QueryRow(`SELECT confidence_score FROM claims WHERE id = ?`, claimID).Scan(&score); err != nil {
		t.Fatalf("reading claim %s: %v", claimID, err)
	}
	if !score.Valid {
		return nil
	}
	return &score.Float64
}

// ClaimLastError returns the stored failure reason, empty when none.
func (d *DBAssert) ClaimLastError(t *testing.T, claimID string) string {
	t.Helper()
	db, err := d.claims()
	if err != nil {
		t.Fatalf("opening claims db: %v", err)
	}
	var lastErr sql.NullString
	if err := db.QueryRow(`SELECT last_error FROM claims WHERE id = ?`, claimID).Scan(&lastErr); err != nil {
		t.Fatalf("reading claim %s: %v", claimID, err)
	}
	return lastErr.String
}

// ThemeStatus returns the stored theme status.
func (d *DBAssert) ThemeStatus(t *testing.T, themeID string) string {
	t.Helper()
	db, err := d.claims()
	if err != nil {
		t.Fatalf("opening claims db: %v", err)
	}
	var status string
	if err := db.QueryRow(`SELECT status FROM themes WHERE id = ?`, themeID).Scan(&status); err != nil {
		t.Fatalf("reading theme %s: %v", themeID, err)
	}
	return status
}

// TraceCount returns the number of recorded query traces.
func (d *DBAssert) TraceCount(t *testing.T) int {
	t.Helper()
	db, err := d.claims()
	if err != nil {
		t.Fatalf("opening claims db: %v", err)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM query_traces`).Scan(&n); err != nil {
		t.Fatalf("counting traces: %v", err)
	}
	return n
}
