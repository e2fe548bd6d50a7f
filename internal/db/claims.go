// CLAUDE:SUMMARY Claim store — create with mandatory query+logic, pending queues, atomic verdict writes, query-update score reset
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// CreateClaimInput carries the fields for a new claim. ValidationQuery and
// ValidationLogic are both mandatory: a query without its human-authored
// explanation is not reviewable, and vice versa.
type CreateClaimInput struct {
	ThemeID         string
	ClaimText       string
	ClaimType       string
	Metadata        map[string]string
	VesselFilter    string
	RouteFilter     string
	PeriodFilter    string
	ValidationQuery string
	ValidationLogic string
}

const claimColumns = `id, theme_id, claim_text, claim_type, metadata,
	vessel_filter, route_filter, period_filter, validation_query, validation_logic,
	confidence_score, supports_claim, data_points_found, analysis_text, last_error,
	validation_timestamp, created_at, updated_at`

// CreateClaim persists a new claim with unset score and verdict.
func (db *DB) CreateClaim(in CreateClaimInput) (*Claim, error) {
	if strings.TrimSpace(in.ValidationQuery) == "" {
		return nil, &ValidationError{Field: "validation_query", Reason: "must not be empty"}
	}
	if strings.TrimSpace(in.ValidationLogic) == "" {
		return nil, &ValidationError{Field: "validation_logic", Reason: "must not be empty"}
	}
	if strings.TrimSpace(in.ClaimText) == "" {
		return nil, &ValidationError{Field: "claim_text", Reason: "must not be empty"}
	}
	claimType := in.ClaimType
	if claimType == "" {
		claimType = ClaimManual
	}
	if !ValidClaimType(claimType) {
		return nil, &ValidationError{Field: "claim_type", Reason: "unknown claim type " + claimType}
	}

	metadata := "{}"
	if len(in.Metadata) > 0 {
		b, err := json.Marshal(in.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encoding metadata: %w", err)
		}
		metadata = string(b)
	}

	id := NewID()
	_, err := db.Exec(`
		INSERT INTO claims (id, theme_id, claim_text, claim_type, metadata,
			vessel_filter, route_filter, period_filter, validation_query, validation_logic)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.ThemeID, in.ClaimText, claimType, metadata,
		in.VesselFilter, in.RouteFilter, in.PeriodFilter, in.ValidationQuery, in.ValidationLogic)
	if err != nil {
		return nil, fmt.Errorf("inserting claim: %w", err)
	}
	return db.GetClaim(id)
}

// GetClaim returns one claim. sql.ErrNoRows when absent.
func (db *DB) GetClaim(id string) (*Claim, error) {
	row := db.QueryRow(`SELECT `+claimColumns+` FROM claims WHERE id = ?`, id)
	return scanClaim(row)
}

// ListClaims returns all claims under a theme, oldest first.
func (db *DB) ListClaims(themeID string) ([]*Claim, error) {
	rows, err := db.Query(`
		SELECT `+claimColumns+` FROM claims WHERE theme_id = ? ORDER BY created_at ASC`, themeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClaimRows(rows)
}

// PendingClaims returns the claims under one theme that have never scored.
func (db *DB) PendingClaims(themeID string) ([]*Claim, error) {
	rows, err := db.Query(`
		SELECT `+claimColumns+` FROM claims
		WHERE theme_id = ? AND confidence_score IS NULL
		ORDER BY created_at ASC`, themeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClaimRows(rows)
}

// AllPendingClaims returns the system-wide bulk-run queue: every claim with
// an unset confidence score.
func (db *DB) AllPendingClaims() ([]*Claim, error) {
	rows, err := db.Query(`
		SELECT ` + claimColumns + ` FROM claims
		WHERE confidence_score IS NULL
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClaimRows(rows)
}

// DeleteClaim removes a claim. Theme status is untouched; only the aggregate
// needs recomputing, which the caller owns.
func (db *DB) DeleteClaim(id string) error {
	res, err := db.Exec(`DELETE FROM claims WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ValidationOutcome is the result of one successful validation run.
type ValidationOutcome struct {
	ConfidenceScore float64
	SupportsClaim   bool
	DataPoints      int
}

// ApplyValidation writes score, verdict, data points and the validation
// timestamp in one statement, clearing any prior failure reason.
func (db *DB) ApplyValidation(claimID string, out ValidationOutcome) error {
	if out.ConfidenceScore < 0 || out.ConfidenceScore > 1 {
		return fmt.Errorf("confidence score %f out of range", out.ConfidenceScore)
	}
	res, err := db.Exec(`
		UPDATE claims
		SET confidence_score = ?, supports_claim = ?, data_points_found = ?,
			last_error = NULL, validation_timestamp = datetime('now'), updated_at = datetime('now')
		WHERE id = ?`,
		out.ConfidenceScore, boolToInt(out.SupportsClaim), out.DataPoints, claimID)
	if err != nil {
		return fmt.Errorf("applying validation: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RecordValidationFailure stores the failure reason verbatim. Any previously
// earned score and verdict are left untouched: a failed attempt never erases
// a good one.
func (db *DB) RecordValidationFailure(claimID, reason string) error {
	_, err := db.Exec(`
		UPDATE claims SET last_error = ?, updated_at = datetime('now') WHERE id = ?`,
		reason, claimID)
	return err
}

// SetAnalysis stores summarizer prose for an already-scored claim.
func (db *DB) SetAnalysis(claimID, analysis string) error {
	_, err := db.Exec(`
		UPDATE claims SET analysis_text = ?, updated_at = datetime('now') WHERE id = ?`,
		analysis, claimID)
	return err
}

// UpdateClaimQuery replaces a claim's query and logic and resets its score,
// verdict, analysis and timestamp in the same statement. A changed query
// invalidates any prior verdict; the reset is deliberate, not incidental.
func (db *DB) UpdateClaimQuery(claimID, query, logic string) error {
	if strings.TrimSpace(query) == "" {
		return &ValidationError{Field: "validation_query", Reason: "must not be empty"}
	}
	if strings.TrimSpace(logic) == "" {
		return &ValidationError{Field: "validation_logic", Reason: "must not be empty"}
	}
	res, err := db.Exec(`
		UPDATE claims
		SET validation_query = ?, validation_logic = ?,
			confidence_score = NULL, supports_claim = NULL, data_points_found = 0,
			analysis_text = NULL, last_error = NULL, validation_timestamp = NULL,
			updated_at = datetime('now')
		WHERE id = ?`, query, logic, claimID)
	if err != nil {
		return fmt.Errorf("updating claim query: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanClaimRows(rows *sql.Rows) ([]*Claim, error) {
	var claims []*Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	if claims == nil {
		claims = []*Claim{}
	}
	return claims, rows.Err()
}

func scanClaim(s scanner) (*Claim, error) {
	var c Claim
	var conf sql.NullFloat64
	var supports sql.NullInt64
	var analysis, lastError sql.NullString
	var validatedAt sql.NullTime
	err := s.Scan(&c.ID, &c.ThemeID, &c.ClaimText, &c.ClaimType, &c.Metadata,
		&c.VesselFilter, &c.RouteFilter, &c.PeriodFilter, &c.ValidationQuery, &c.ValidationLogic,
		&conf, &supports, &c.DataPointsFound, &analysis, &lastError,
		&validatedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if conf.Valid {
		v := conf.Float64
		c.ConfidenceScore = &v
	}
	if supports.Valid {
		v := supports.Int64 == 1
		c.SupportsClaim = &v
	}
	if analysis.Valid {
		c.AnalysisText = &analysis.String
	}
	if lastError.Valid {
		c.LastError = &lastError.String
	}
	if validatedAt.Valid {
		c.ValidationTimestamp = &validatedAt.Time
	}
	return &c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
