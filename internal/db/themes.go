// CLAUDE:SUMMARY Theme store — CRUD, CAS status transitions, aggregate confidence recompute, quarterly summary
package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// CreateThemeInput carries the fields for a new theme.
type CreateThemeInput struct {
	Title    string
	Quarter  string
	Category string // optional; classified from guidance when empty
	Guidance string
}

// ErrBadTransition is returned by TransitionTheme when the requested edge is
// not in the state machine, or when the compare-and-set update matched no
// row: either the theme is gone or another run moved it first. Callers treat
// it as an exclusivity rejection.
var ErrBadTransition = fmt.Errorf("theme status transition conflict")

const themeColumns = `id, title, quarter, category, guidance, content, status,
	overall_confidence, created_at, updated_at`

// CreateTheme persists a new theme in pending state.
func (db *DB) CreateTheme(in CreateThemeInput) (*Theme, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if strings.TrimSpace(in.Quarter) == "" {
		return nil, &ValidationError{Field: "quarter", Reason: "must not be empty"}
	}
	category := in.Category
	if category == "" {
		category = ClassifyCategory(in.Guidance + " " + in.Title)
	}
	if !ValidCategory(category) {
		return nil, &ValidationError{Field: "category", Reason: "unknown category " + category}
	}

	id := NewID()
	_, err := db.Exec(`
		INSERT INTO themes (id, title, quarter, category, guidance, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, in.Title, in.Quarter, category, in.Guidance, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("inserting theme: %w", err)
	}
	return db.GetTheme(id)
}

// GetTheme returns a theme with its claim count. sql.ErrNoRows when absent.
func (db *DB) GetTheme(id string) (*Theme, error) {
	row := db.QueryRow(`
		SELECT `+themeColumns+`,
			(SELECT COUNT(*) FROM claims WHERE theme_id = themes.id)
		FROM themes WHERE id = ?`, id)
	return scanTheme(row)
}

// ListThemes returns themes, optionally filtered by quarter, newest first.
func (db *DB) ListThemes(quarter string) ([]*Theme, error) {
	query := `
		SELECT ` + themeColumns + `,
			(SELECT COUNT(*) FROM claims WHERE theme_id = themes.id)
		FROM themes`
	var args []interface{}
	if quarter != "" {
		query += ` WHERE quarter = ?`
		args = append(args, quarter)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var themes []*Theme
	for rows.Next() {
		t, err := scanTheme(rows)
		if err != nil {
			return nil, err
		}
		themes = append(themes, t)
	}
	if themes == nil {
		themes = []*Theme{}
	}
	return themes, rows.Err()
}

// DeleteTheme removes a theme; the schema cascades to its claims.
func (db *DB) DeleteTheme(id string) error {
	res, err := db.Exec(`DELETE FROM themes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// TransitionTheme moves a theme from one status to another with a
// compare-and-set on the current status, so exclusivity holds across
// process restarts and multiple orchestrator instances. Returns
// ErrBadTransition for an illegal edge and when the CAS matches no row.
func (db *DB) TransitionTheme(id, from, to string) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("illegal theme transition %s -> %s: %w", from, to, ErrBadTransition)
	}
	res, err := db.Exec(`
		UPDATE themes SET status = ?, updated_at = datetime('now')
		WHERE id = ? AND status = ?`, to, id, from)
	if err != nil {
		return fmt.Errorf("transitioning theme: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrBadTransition
	}
	return nil
}

// SetThemeContent stores generated research content. With merge=true the new
// content is appended to what is already there (separated by a rule); with
// merge=false prior content is discarded.
func (db *DB) SetThemeContent(id, content string, merge bool) error {
	if merge {
		_, err := db.Exec(`
			UPDATE themes
			SET content = CASE WHEN content = '' THEN ? ELSE content || char(10) || '---' || char(10) || ? END,
				updated_at = datetime('now')
			WHERE id = ?`, content, content, id)
		return err
	}
	_, err := db.Exec(`
		UPDATE themes SET content = ?, updated_at = datetime('now') WHERE id = ?`,
		content, id)
	return err
}

// ResetThemeScores clears every claim verdict under a theme and the theme
// aggregate. Used by a re-run with merge_previous=false.
func (db *DB) ResetThemeScores(id string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		UPDATE claims
		SET confidence_score = NULL, supports_claim = NULL, data_points_found = 0,
			analysis_text = NULL, last_error = NULL, validation_timestamp = NULL,
			updated_at = datetime('now')
		WHERE theme_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		UPDATE themes SET overall_confidence = NULL, content = '', updated_at = datetime('now')
		WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// RecomputeConfidence recalculates a theme's overall confidence as the mean
// of its validated claims' scores. A theme with no validated claims gets
// NULL. Concurrent sibling validations may interleave here; each call
// recomputes from current rows, so the last writer is always consistent.
func (db *DB) RecomputeConfidence(themeID string) (*float64, error) {
	_, err := db.Exec(`
		UPDATE themes
		SET overall_confidence = (
			SELECT AVG(confidence_score) FROM claims
			WHERE theme_id = ? AND confidence_score IS NOT NULL
		), updated_at = datetime('now')
		WHERE id = ?`, themeID, themeID)
	if err != nil {
		return nil, fmt.Errorf("recomputing confidence: %w", err)
	}

	var conf sql.NullFloat64
	if err := db.QueryRow(`SELECT overall_confidence FROM themes WHERE id = ?`, themeID).Scan(&conf); err != nil {
		return nil, err
	}
	if !conf.Valid {
		return nil, nil
	}
	v := conf.Float64
	return &v, nil
}

// QuarterSummary aggregates validation outcomes for one reporting quarter.
type QuarterSummary struct {
	Quarter           string  `json:"quarter"`
	TotalThemes       int     `json:"total_themes"`
	CompletedThemes   int     `json:"completed_themes"`
	HighConfidence    int     `json:"high_confidence_themes"`
	AverageConfidence float64 `json:"average_confidence"`
	TotalClaims       int     `json:"total_claims"`
	SupportedClaims   int     `json:"supported_claims"`
}

// GetQuarterSummary returns the roll-up for a quarter. High confidence means
// overall_confidence >= 0.7, matching the reporting threshold.
func (db *DB) GetQuarterSummary(quarter string) (*QuarterSummary, error) {
	s := &QuarterSummary{Quarter: quarter}
	err := db.QueryRow(`
		SELECT COUNT(*),
			COUNT(CASE WHEN status = 'completed' THEN 1 END),
			COUNT(CASE WHEN overall_confidence >= 0.7 THEN 1 END),
			COALESCE(AVG(overall_confidence), 0)
		FROM themes WHERE quarter = ?`, quarter).
		Scan(&s.TotalThemes, &s.CompletedThemes, &s.HighConfidence, &s.AverageConfidence)
	if err != nil {
		return nil, err
	}

	err = db.QueryRow(`
		SELECT COUNT(*), COUNT(CASE WHEN c.supports_claim = 1 THEN 1 END)
		FROM claims c JOIN themes t ON t.id = c.theme_id
		WHERE t.quarter = ?`, quarter).
		Scan(&s.TotalClaims, &s.SupportedClaims)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTheme(s scanner) (*Theme, error) {
	var t Theme
	var conf sql.NullFloat64
	var createdAt, updatedAt time.Time
	err := s.Scan(&t.ID, &t.Title, &t.Quarter, &t.Category, &t.Guidance, &t.Content,
		&t.Status, &conf, &createdAt, &updatedAt, &t.ClaimCount)
	if err != nil {
		return nil, err
	}
	if conf.Valid {
		v := conf.Float64
		t.OverallConfidence = &v
	}
	t.CreatedAt = createdAt
	t.UpdatedAt = updatedAt
	return &t, nil
}
