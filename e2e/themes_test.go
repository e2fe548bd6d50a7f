package e2e

import (
	"net/http"
	"testing"
)

func TestThemeLifecycle(t *testing.T) {
	h, dba := ensureHarness(t)

	id := h.CreateTheme(t, "EU ETS surcharge impact", "2026-Q1",
		"Track whether EU ETS carbon costs shifted container traffic away from EU transshipment hubs")

	var theme map[string]interface{}
	resp, err := h.JSON("GET", "/api/theme/"+id, nil, &theme)
	if err != nil {
		t.Fatalf("get theme: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get theme: expected 200, got %d", resp.StatusCode)
	}
	if theme["status"] != "pending" {
		t.Errorf("new theme status = %v, want pending", theme["status"])
	}
	// Category derived from guidance keywords, caller omitted it
	if theme["category"] != "eu_ets" {
		t.Errorf("category = %v, want eu_ets", theme["category"])
	}
	if dba.ThemeStatus(t, id) != "pending" {
		t.Error("stored status is not pending")
	}

	// Quarter filter
	var list struct {
		Themes []map[string]interface{} `json:"themes"`
	}
	if _, err := h.JSON("GET", "/api/themes?quarter=2026-Q1", nil, &list); err != nil {
		t.Fatalf("list themes: %v", err)
	}
	found := false
	for _, th := range list.Themes {
		if th["id"] == id {
			found = true
		}
	}
	if !found {
		t.Error("theme missing from quarter listing")
	}

	// Status endpoint
	var status map[string]interface{}
	if _, err := h.JSON("GET", "/api/theme/"+id+"/status", nil, &status); err != nil {
		t.Fatalf("theme status: %v", err)
	}
	if status["status"] != "pending" {
		t.Errorf("status endpoint = %v, want pending", status["status"])
	}

	// Delete, then 404
	resp, err = h.Do("DELETE", "/api/theme/"+id, nil)
	if err != nil {
		t.Fatalf("delete theme: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete theme: expected 200, got %d", resp.StatusCode)
	}
	resp, err = h.Do("GET", "/api/theme/"+id, nil)
	if err != nil {
		t.Fatalf("get deleted theme: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("deleted theme fetch: expected 404, got %d", resp.StatusCode)
	}
}

func TestResearchWithoutProviders(t *testing.T) {
	h, _ := ensureHarness(t)

	id := h.CreateTheme(t, "Route shift research", "2026-Q1", "general route research")
	resp, err := h.Do("POST", "/api/theme/"+id+"/research", nil)
	if err != nil {
		t.Fatalf("run research: %v", err)
	}
	resp.Body.Close()
	// No LLM keys in the e2e config, so research is declined up front.
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("research without providers: expected 503, got %d", resp.StatusCode)
	}
}
