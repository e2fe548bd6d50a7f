package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/etsotracker/internal/db"
	"github.com/hazyhaar/etsotracker/internal/sandbox"
	"github.com/hazyhaar/etsotracker/internal/scoring"
	"github.com/hazyhaar/etsotracker/internal/validate"
)

type testEnv struct {
	mux   *http.ServeMux
	store *db.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := db.Open(filepath.Join(t.TempDir(), "claims.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	traffic, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening traffic db: %v", err)
	}
	traffic.SetMaxOpenConns(1)
	t.Cleanup(func() { traffic.Close() })
	if _, err := traffic.Exec(`
		CREATE TABLE vessels (imo INTEGER PRIMARY KEY, name TEXT);
		INSERT INTO vessels VALUES (9000001, 'Ebba Maersk'), (9000002, 'MSC Oscar');
	`); err != nil {
		t.Fatalf("seeding traffic db: %v", err)
	}

	sb := sandbox.New(traffic, sandbox.Options{RowLimit: 10, QueriesPerSec: 1000, Burst: 100}, nil)
	orch := validate.New(store, sb, scoring.New(scoring.DefaultWeights()), validate.Options{})

	a := New(store, sb, orch, nil)
	mux := http.NewServeMux()
	a.RegisterRoutes(mux)
	return &testEnv{mux: mux, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decoding response (status %d, body %s): %v", rec.Code, rec.Body.String(), err)
	}
}

func (e *testEnv) createTheme(t *testing.T) string {
	t.Helper()
	rec := e.do(t, "POST", "/api/themes", map[string]string{
		"title": "Feeder volumes", "quarter": "2026-Q3",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create theme: status %d: %s", rec.Code, rec.Body.String())
	}
	var theme db.Theme
	decode(t, rec, &theme)
	return theme.ID
}

func (e *testEnv) createClaim(t *testing.T, themeID, query string) string {
	t.Helper()
	rec := e.do(t, "POST", "/api/claims", map[string]string{
		"theme_id":         themeID,
		"claim_text":       "the fleet table is populated",
		"validation_query": query,
		"validation_logic": "rows prove it",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create claim: status %d: %s", rec.Code, rec.Body.String())
	}
	var claim db.Claim
	decode(t, rec, &claim)
	return claim.ID
}

func TestThemeEndpoints(t *testing.T) {
	e := newTestEnv(t)
	id := e.createTheme(t)

	if rec := e.do(t, "GET", "/api/theme/"+id, nil); rec.Code != http.StatusOK {
		t.Errorf("get theme: status %d", rec.Code)
	}
	if rec := e.do(t, "GET", "/api/theme/missing", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing theme: status %d, want 404", rec.Code)
	}
	if rec := e.do(t, "POST", "/api/themes", map[string]string{"quarter": "2026-Q3"}); rec.Code != http.StatusBadRequest {
		t.Errorf("titleless theme: status %d, want 400", rec.Code)
	}
	if rec := e.do(t, "POST", "/api/themes", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("empty body: status %d, want 400", rec.Code)
	}

	var listing struct {
		Themes []db.Theme `json:"themes"`
	}
	rec := e.do(t, "GET", "/api/themes?quarter=2026-Q3", nil)
	decode(t, rec, &listing)
	if len(listing.Themes) != 1 {
		t.Errorf("filtered listing = %d themes, want 1", len(listing.Themes))
	}

	if rec := e.do(t, "DELETE", "/api/theme/"+id, nil); rec.Code != http.StatusOK {
		t.Errorf("delete theme: status %d", rec.Code)
	}
	if rec := e.do(t, "DELETE", "/api/theme/"+id, nil); rec.Code != http.StatusNotFound {
		t.Errorf("double delete: status %d, want 404", rec.Code)
	}
}

func TestCreateClaimGuard(t *testing.T) {
	e := newTestEnv(t)
	themeID := e.createTheme(t)

	e.createClaim(t, themeID, "SELECT * FROM vessels")

	// A mutating query is refused before anything is persisted.
	rec := e.do(t, "POST", "/api/claims", map[string]string{
		"theme_id":         themeID,
		"claim_text":       "x",
		"validation_query": "DELETE FROM vessels",
		"validation_logic": "y",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("mutating claim query: status %d, want 400", rec.Code)
	}
	claims, _ := e.store.ListClaims(themeID)
	if len(claims) != 1 {
		t.Errorf("claims after rejected create = %d, want 1", len(claims))
	}
}

func TestValidateClaimEndpoint(t *testing.T) {
	e := newTestEnv(t)
	themeID := e.createTheme(t)
	claimID := e.createClaim(t, themeID, "SELECT * FROM vessels")

	var report validate.Report
	rec := e.do(t, "POST", "/api/claim/"+claimID+"/validate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("validate: status %d: %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &report)
	if report.SupportsClaim == nil || !*report.SupportsClaim {
		t.Errorf("supports = %v, want true (2 seeded vessels)", report.SupportsClaim)
	}
	if report.DataPoints != 2 {
		t.Errorf("data points = %d, want 2", report.DataPoints)
	}

	if rec := e.do(t, "POST", "/api/claim/missing/validate", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing claim: status %d, want 404", rec.Code)
	}
}

func TestUpdateQueryResetsScore(t *testing.T) {
	e := newTestEnv(t)
	themeID := e.createTheme(t)
	claimID := e.createClaim(t, themeID, "SELECT * FROM vessels")

	if rec := e.do(t, "POST", "/api/claim/"+claimID+"/validate", nil); rec.Code != http.StatusOK {
		t.Fatalf("validate: status %d", rec.Code)
	}

	var claim db.Claim
	rec := e.do(t, "PUT", "/api/claim/"+claimID+"/query", map[string]string{
		"validation_query": "SELECT name FROM vessels WHERE imo = 9000001",
		"validation_logic": "narrowed to one hull",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update query: status %d: %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &claim)
	if claim.ConfidenceScore != nil || claim.SupportsClaim != nil {
		t.Error("updated claim still carries a verdict")
	}

	// Guard applies to updates too.
	rec = e.do(t, "PUT", "/api/claim/"+claimID+"/query", map[string]string{
		"validation_query": "DROP TABLE vessels",
		"validation_logic": "x",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("mutating update: status %d, want 400", rec.Code)
	}
}

func TestBulkValidateEndpoint(t *testing.T) {
	e := newTestEnv(t)
	themeID := e.createTheme(t)
	e.createClaim(t, themeID, "SELECT * FROM vessels")
	e.createClaim(t, themeID, "SELECT * FROM missing_table")

	var tally validate.Tally
	rec := e.do(t, "POST", "/api/validate/bulk", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("bulk: status %d", rec.Code)
	}
	decode(t, rec, &tally)
	if tally.Succeeded != 1 || tally.Failed != 1 {
		t.Errorf("tally = %d/%d, want 1 succeeded 1 failed", tally.Succeeded, tally.Failed)
	}
	if len(tally.Errors) != 1 {
		t.Errorf("errors = %v, want one entry", tally.Errors)
	}
}

func TestResearchWithoutProvider(t *testing.T) {
	e := newTestEnv(t)
	themeID := e.createTheme(t)

	rec := e.do(t, "POST", "/api/theme/"+themeID+"/research", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("research without provider: status %d, want 503", rec.Code)
	}
}

func TestQueryEndpointErrors(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, "POST", "/api/query/test", map[string]string{"query": "PRAGMA journal_mode"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("rejected query: status %d, want 400", rec.Code)
	}
	rec = e.do(t, "POST", "/api/query/test", map[string]string{"query": "SELECT * FROM no_such"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("failing query: status %d, want 422", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("nosniff header missing")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("frame options header missing")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d refused inside the limit", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("request over the limit allowed")
	}
	// Another client has its own bucket.
	if !rl.Allow("10.0.0.2") {
		t.Error("fresh client refused")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	handler := RateLimitMiddleware(rl, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest("POST", "/api/query", nil)
		req.RemoteAddr = "192.0.2.1:12345"
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != want {
			t.Errorf("request %d: status %d, want %d", i+1, rec.Code, want)
		}
	}
}
