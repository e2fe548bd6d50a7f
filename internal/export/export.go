// CLAUDE:SUMMARY JSONL export of validated themes with per-claim verdicts for quarterly reporting
// Package export produces JSONL reporting exports of themes and claims.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hazyhaar/etsotracker/internal/db"
)

// ThemeExport is a self-contained export of one theme for reporting.
type ThemeExport struct {
	ExportedAt string         `json:"exported_at"`
	Version    string         `json:"export_version"`
	Theme      ExportTheme    `json:"theme"`
	Metadata   ExportMetadata `json:"metadata"`
}

// ExportTheme is a theme with its claims inline.
type ExportTheme struct {
	ID                string        `json:"id"`
	Title             string        `json:"title"`
	Quarter           string        `json:"quarter"`
	Category          string        `json:"category"`
	Status            string        `json:"status"`
	OverallConfidence *float64      `json:"overall_confidence,omitempty"`
	Content           string        `json:"content,omitempty"`
	Claims            []ExportClaim `json:"claims"`
}

// ExportClaim is one claim with its verdict. Queries are included: the
// export is a reproducibility record, not just a results table.
type ExportClaim struct {
	ID                  string     `json:"id"`
	ClaimText           string     `json:"claim_text"`
	ClaimType           string     `json:"claim_type"`
	ValidationQuery     string     `json:"validation_query"`
	ValidationLogic     string     `json:"validation_logic"`
	ConfidenceScore     *float64   `json:"confidence_score,omitempty"`
	SupportsClaim       *bool      `json:"supports_claim,omitempty"`
	DataPointsFound     int        `json:"data_points_found"`
	AnalysisText        *string    `json:"analysis_text,omitempty"`
	LastError           *string    `json:"last_error,omitempty"`
	ValidationTimestamp *time.Time `json:"validation_timestamp,omitempty"`
}

// ExportMetadata carries theme-level tallies.
type ExportMetadata struct {
	ClaimCount     int `json:"claim_count"`
	ValidatedCount int `json:"validated_count"`
	SupportedCount int `json:"supported_count"`
	RefutedCount   int `json:"refuted_count"`
	FailedCount    int `json:"failed_count"` // claims whose last run errored
}

// Exporter produces JSONL exports from the claim store.
type Exporter struct {
	database *db.DB
}

func NewExporter(database *db.DB) *Exporter {
	return &Exporter{database: database}
}

// ExportTheme writes a single theme as a JSON object (one line in JSONL).
func (e *Exporter) ExportTheme(w io.Writer, themeID string) error {
	theme, err := e.database.GetTheme(themeID)
	if err != nil {
		return fmt.Errorf("getting theme: %w", err)
	}
	claims, err := e.database.ListClaims(themeID)
	if err != nil {
		return fmt.Errorf("listing claims: %w", err)
	}

	export := ThemeExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    "1.0",
		Theme: ExportTheme{
			ID:                theme.ID,
			Title:             theme.Title,
			Quarter:           theme.Quarter,
			Category:          theme.Category,
			Status:            theme.Status,
			OverallConfidence: theme.OverallConfidence,
			Content:           theme.Content,
			Claims:            exportClaims(claims),
		},
		Metadata: tally(claims),
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(export)
}

// ExportQuarter writes every theme of the quarter as JSONL (one per line).
func (e *Exporter) ExportQuarter(w io.Writer, quarter string) error {
	themes, err := e.database.ListThemes(quarter)
	if err != nil {
		return err
	}
	for _, t := range themes {
		if err := e.ExportTheme(w, t.ID); err != nil {
			return err
		}
	}
	return nil
}

func exportClaims(claims []*db.Claim) []ExportClaim {
	out := make([]ExportClaim, 0, len(claims))
	for _, c := range claims {
		out = append(out, ExportClaim{
			ID:                  c.ID,
			ClaimText:           c.ClaimText,
			ClaimType:           c.ClaimType,
			ValidationQuery:     c.ValidationQuery,
			ValidationLogic:     c.ValidationLogic,
			ConfidenceScore:     c.ConfidenceScore,
			SupportsClaim:       c.SupportsClaim,
			DataPointsFound:     c.DataPointsFound,
			AnalysisText:        c.AnalysisText,
			LastError:           c.LastError,
			ValidationTimestamp: c.ValidationTimestamp,
		})
	}
	return out
}

func tally(claims []*db.Claim) ExportMetadata {
	md := ExportMetadata{ClaimCount: len(claims)}
	for _, c := range claims {
		if c.Validated() {
			md.ValidatedCount++
			if c.SupportsClaim != nil && *c.SupportsClaim {
				md.SupportedCount++
			} else {
				md.RefutedCount++
			}
		}
		if c.LastError != nil && *c.LastError != "" {
			md.FailedCount++
		}
	}
	return md
}
