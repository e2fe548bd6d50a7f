package e2e

import (
	"net/http"
	"testing"
)

func TestValidationVerdicts(t *testing.T) {
	h, dba := ensureHarness(t)

	themeID := h.CreateTheme(t, "Deep-sea route activity", "2026-Q1", "NLRTM-SGSIN traffic")

	// Supported: rows exist, and more than the row cap of 5 (8 seeded)
	supported := h.CreateClaim(t, themeID,
		"Rotterdam-Singapore sailings continued in January 2026",
		"SELECT * FROM vessel_movements WHERE route = 'NLRTM-SGSIN'",
		"Each row is one sailing on the route")

	var report map[string]interface{}
	resp, err := h.JSON("POST", "/api/claim/"+supported+"/validate", nil, &report)
	if err != nil {
		t.Fatalf("validate supported: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("validate supported: expected 200, got %d", resp.StatusCode)
	}
	if report["supports_claim"] != true {
		t.Errorf("supports_claim = %v, want true", report["supports_claim"])
	}
	if report["truncated"] != true {
		t.Errorf("truncated = %v, want true (8 rows vs cap 5)", report["truncated"])
	}
	// 5 rows at the cap: 0.4 + 0.6*(5/10) - 0.15 = 0.55
	if score := report["confidence_score"].(float64); score < 0.54 || score > 0.56 {
		t.Errorf("confidence_score = %v, want 0.55", score)
	}

	// Refuted: query runs fine but matches nothing
	refuted := h.CreateClaim(t, themeID,
		"A Hamburg-Shanghai service operated in January 2026",
		"SELECT * FROM vessel_movements WHERE route = 'DEHAM-CNSHA'",
		"Rows would show the service existed")

	if _, err := h.JSON("POST", "/api/claim/"+refuted+"/validate", nil, &report); err != nil {
		t.Fatalf("validate refuted: %v", err)
	}
	if report["supports_claim"] != false {
		t.Errorf("supports_claim = %v, want false", report["supports_claim"])
	}
	// Zero rows: execution credit only
	if score := report["confidence_score"].(float64); score < 0.39 || score > 0.41 {
		t.Errorf("confidence_score = %v, want 0.4", score)
	}

	// Failed: broken SQL records the reason, leaves score at its prior value
	failing := h.CreateClaim(t, themeID,
		"Claim with a broken query",
		"SELECT nope FROM no_such_table",
		"Never runs")

	if _, err := h.JSON("POST", "/api/claim/"+failing+"/validate", nil, &report); err != nil {
		t.Fatalf("validate failing: %v", err)
	}
	if report["error"] == nil || report["error"] == "" {
		t.Error("failed validation carries no error")
	}
	if report["supports_claim"] != nil {
		t.Errorf("failed validation has verdict %v, want unset", report["supports_claim"])
	}
	if dba.ClaimScore(t, failing) != nil {
		t.Error("failed validation wrote a score")
	}
	if dba.ClaimLastError(t, failing) == "" {
		t.Error("failure reason not stored")
	}

	// Theme aggregate over the two scored claims: (0.55 + 0.4) / 2
	var status map[string]interface{}
	if _, err := h.JSON("GET", "/api/theme/"+themeID+"/status", nil, &status); err != nil {
		t.Fatalf("theme status: %v", err)
	}
	conf, ok := status["overall_confidence"].(float64)
	if !ok {
		t.Fatalf("overall_confidence = %v, want number", status["overall_confidence"])
	}
	if conf < 0.47 || conf > 0.48 {
		t.Errorf("overall_confidence = %v, want 0.475", conf)
	}

	// Every execution left a trace
	if dba.TraceCount(t) == 0 {
		t.Error("no query traces recorded")
	}
}

func TestBulkValidation(t *testing.T) {
	h, _ := ensureHarness(t)

	themeID := h.CreateTheme(t, "Bulk run theme", "2026-Q2", "bulk validation fixtures")
	h.CreateClaim(t, themeID, "port calls exist",
		"SELECT COUNT(*) FROM port_calls", "count row always returned")
	h.CreateClaim(t, themeID, "vessels exist",
		"SELECT * FROM vessels", "one row per vessel")
	h.CreateClaim(t, themeID, "broken",
		"SELECT * FROM missing_table", "never runs")

	var tally struct {
		Succeeded int      `json:"succeeded"`
		Failed    int      `json:"failed"`
		Errors    []string `json:"errors"`
	}
	resp, err := h.JSON("POST", "/api/validate/bulk", nil, &tally)
	if err != nil {
		t.Fatalf("bulk validate: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bulk validate: expected 200, got %d", resp.StatusCode)
	}
	if tally.Succeeded < 2 {
		t.Errorf("succeeded = %d, want >= 2", tally.Succeeded)
	}
	if tally.Failed < 1 {
		t.Errorf("failed = %d, want >= 1", tally.Failed)
	}
	if len(tally.Errors) != tally.Failed {
		t.Errorf("errors len %d != failed %d", len(tally.Errors), tally.Failed)
	}
}
