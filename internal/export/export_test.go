package export

import (
	"bufio"
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/etsotracker/internal/db"
)

func seedStore(t *testing.T) (*db.DB, string) {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "claims.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	theme, err := store.CreateTheme(db.CreateThemeInput{Title: "ETS pass-through", Quarter: "2026-Q3"})
	if err != nil {
		t.Fatalf("theme: %v", err)
	}

	mk := func() *db.Claim {
		c, err := store.CreateClaim(db.CreateClaimInput{
			ThemeID:         theme.ID,
			ClaimText:       "x",
			ValidationQuery: "SELECT 1",
			ValidationLogic: "y",
		})
		if err != nil {
			t.Fatalf("claim: %v", err)
		}
		return c
	}
	supported := mk()
	refuted := mk()
	failed := mk()
	store.ApplyValidation(supported.ID, db.ValidationOutcome{ConfidenceScore: 0.7, SupportsClaim: true, DataPoints: 5})
	store.ApplyValidation(refuted.ID, db.ValidationOutcome{ConfidenceScore: 0.4, DataPoints: 0})
	store.RecordValidationFailure(failed.ID, "no such table: z")

	return store, theme.ID
}

func TestExportTheme(t *testing.T) {
	store, themeID := seedStore(t)

	var buf bytes.Buffer
	if err := NewExporter(store).ExportTheme(&buf, themeID); err != nil {
		t.Fatalf("export: %v", err)
	}

	var out ThemeExport
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Theme.ID != themeID {
		t.Errorf("theme id = %s, want %s", out.Theme.ID, themeID)
	}
	md := out.Metadata
	if md.ClaimCount != 3 || md.ValidatedCount != 2 || md.SupportedCount != 1 || md.RefutedCount != 1 || md.FailedCount != 1 {
		t.Errorf("metadata = %+v, want 3/2/1/1/1", md)
	}
	for _, c := range out.Theme.Claims {
		if c.ValidationQuery == "" {
			t.Error("export omits the validation query")
		}
	}
}

func TestExportThemeMissing(t *testing.T) {
	store, _ := seedStore(t)
	var buf bytes.Buffer
	if err := NewExporter(store).ExportTheme(&buf, "missing"); err == nil {
		t.Error("missing theme exported without error")
	}
}

func TestExportQuarterJSONL(t *testing.T) {
	store, _ := seedStore(t)
	if _, err := store.CreateTheme(db.CreateThemeInput{Title: "second theme", Quarter: "2026-Q3"}); err != nil {
		t.Fatalf("theme: %v", err)
	}

	var buf bytes.Buffer
	if err := NewExporter(store).ExportQuarter(&buf, "2026-Q3"); err != nil {
		t.Fatalf("export: %v", err)
	}

	lines := 0
	scanner := bufio.NewScanner(&buf)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		if len(bytes.TrimSpace(scanner.Bytes())) == 0 {
			continue
		}
		var obj ThemeExport
		if err := json.Unmarshal(scanner.Bytes(), &obj); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines+1, err)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("lines = %d, want 2", lines)
	}
}
