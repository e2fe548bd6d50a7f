package e2e

import (
	"net/http"
	"testing"
)

func TestClaimCreateAndGuard(t *testing.T) {
	h, _ := ensureHarness(t)

	themeID := h.CreateTheme(t, "Rotterdam transshipment", "2026-Q1", "port call volume at NLRTM")

	// Valid claim
	claimID := h.CreateClaim(t, themeID,
		"Rotterdam handled container calls in January 2026",
		"SELECT port, COUNT(*) FROM port_calls WHERE port = 'NLRTM' GROUP BY port",
		"Any returned row shows NLRTM activity in the window")
	if claimID == "" {
		t.Fatal("empty claim id")
	}

	// Mutation statement is refused before anything is stored
	resp, err := h.Do("POST", "/api/claims", map[string]string{
		"theme_id":         themeID,
		"claim_text":       "bad",
		"validation_query": "DELETE FROM port_calls",
		"validation_logic": "n/a",
	})
	if err != nil {
		t.Fatalf("create bad claim: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("mutation claim: expected 400, got %d", resp.StatusCode)
	}

	// Missing validation_logic is refused
	resp, err = h.Do("POST", "/api/claims", map[string]string{
		"theme_id":         themeID,
		"claim_text":       "no logic",
		"validation_query": "SELECT 1",
	})
	if err != nil {
		t.Fatalf("create claim without logic: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("claim without logic: expected 400, got %d", resp.StatusCode)
	}
}

func TestQueryUpdateResetsVerdict(t *testing.T) {
	h, dba := ensureHarness(t)

	themeID := h.CreateTheme(t, "Algeciras shuttle", "2026-Q1", "strait crossings")
	claimID := h.CreateClaim(t, themeID,
		"The ESALG-MAPTM shuttle ran in February 2026",
		"SELECT * FROM vessel_movements WHERE route = 'ESALG-MAPTM'",
		"Movements on the route are direct evidence")

	// Validate so the claim has a verdict
	var report map[string]interface{}
	resp, err := h.JSON("POST", "/api/claim/"+claimID+"/validate", nil, &report)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("validate: expected 200, got %d", resp.StatusCode)
	}
	if dba.ClaimScore(t, claimID) == nil {
		t.Fatal("claim has no score after validation")
	}

	// Replace the query: score must be gone afterwards
	var updated map[string]interface{}
	resp, err = h.JSON("PUT", "/api/claim/"+claimID+"/query", map[string]string{
		"validation_query": "SELECT * FROM vessel_movements WHERE route = 'NLRTM-SGSIN'",
		"validation_logic": "Changed scope to the deep-sea route",
	}, &updated)
	if err != nil {
		t.Fatalf("update query: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update query: expected 200, got %d", resp.StatusCode)
	}
	if updated["confidence_score"] != nil {
		t.Errorf("response still carries a score: %v", updated["confidence_score"])
	}
	if dba.ClaimScore(t, claimID) != nil {
		t.Error("stored score survived a query update")
	}
}
