// CLAUDE:SUMMARY Theme and Claim models — status lifecycle, closed category/claim-type enums, guidance keyword classifier
package db

import (
	"fmt"
	"strings"
	"time"
)

// Theme is a research topic scoped to a reporting quarter. It owns zero or
// more claims; deleting a theme cascades to them.
type Theme struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Quarter           string     `json:"quarter"`
	Category          string     `json:"category"`
	Guidance          string     `json:"guidance,omitempty"`
	Content           string     `json:"content,omitempty"`
	Status            string     `json:"status"`
	OverallConfidence *float64   `json:"overall_confidence,omitempty"`
	ClaimCount        int        `json:"claim_count"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	Claims            []*Claim   `json:"claims,omitempty"`
}

// Claim is a single falsifiable assertion paired with a read-only query
// intended to verify it against the traffic mirror.
type Claim struct {
	ID                  string     `json:"id"`
	ThemeID             string     `json:"theme_id"`
	ClaimText           string     `json:"claim_text"`
	ClaimType           string     `json:"claim_type"`
	Metadata            string     `json:"metadata"`
	VesselFilter        string     `json:"vessel_filter,omitempty"`
	RouteFilter         string     `json:"route_filter,omitempty"`
	PeriodFilter        string     `json:"period_filter,omitempty"`
	ValidationQuery     string     `json:"validation_query"`
	ValidationLogic     string     `json:"validation_logic"`
	ConfidenceScore     *float64   `json:"confidence_score,omitempty"`
	SupportsClaim       *bool      `json:"supports_claim,omitempty"`
	DataPointsFound     int        `json:"data_points_found"`
	AnalysisText        *string    `json:"analysis_text,omitempty"`
	LastError           *string    `json:"last_error,omitempty"`
	ValidationTimestamp *time.Time `json:"validation_timestamp,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Validated reports whether the claim has completed at least one successful
// validation run. Only validated claims count toward theme confidence.
func (c *Claim) Validated() bool {
	return c.ConfidenceScore != nil
}

// Theme statuses. Transitions are forward-only except the explicit retry
// (failed -> researching) and re-run (completed -> researching) edges.
const (
	StatusPending     = "pending"
	StatusResearching = "researching"
	StatusValidating  = "validating"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
)

// themeTransitions enumerates the legal status edges.
var themeTransitions = map[string][]string{
	StatusPending:     {StatusResearching},
	StatusResearching: {StatusValidating, StatusFailed},
	StatusValidating:  {StatusCompleted, StatusFailed},
	StatusFailed:      {StatusResearching},
	StatusCompleted:   {StatusResearching}, // explicit re-run only
}

// CanTransition reports whether from -> to is a legal theme status edge.
func CanTransition(from, to string) bool {
	for _, t := range themeTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Theme categories (closed set; schema CHECK mirrors this).
const (
	CategoryEUETS        = "eu_ets"
	CategoryRoutes       = "routes"
	CategoryGeopolitical = "geopolitical"
	CategoryCarrier      = "carrier"
	CategoryRegional     = "regional"
	CategoryGeneral      = "general"
)

// ValidCategory reports whether c is a known theme category.
func ValidCategory(c string) bool {
	switch c {
	case CategoryEUETS, CategoryRoutes, CategoryGeopolitical, CategoryCarrier, CategoryRegional, CategoryGeneral:
		return true
	}
	return false
}

// categoryKeywords drive ClassifyCategory. Order matters: first match wins.
var categoryKeywords = []struct {
	category string
	words    []string
}{
	{CategoryEUETS, []string{"ets", "carbon", "emission"}},
	{CategoryRoutes, []string{"route", "corridor", "service"}},
	{CategoryGeopolitical, []string{"geopolit", "red sea", "suez", "panama"}},
	{CategoryCarrier, []string{"maersk", "carrier", "alliance"}},
	{CategoryRegional, []string{"mediterranean", "egypt", "regional"}},
}

// ClassifyCategory derives a theme category from free-text guidance when the
// caller does not supply one.
func ClassifyCategory(guidance string) string {
	lower := strings.ToLower(guidance)
	for _, ck := range categoryKeywords {
		for _, w := range ck.words {
			if strings.Contains(lower, w) {
				return ck.category
			}
		}
	}
	return CategoryGeneral
}

// Claim types (closed set). "manual" marks analyst-authored claims created
// outside a research run.
const (
	ClaimVesselMovement  = "vessel_movement"
	ClaimRoutePattern    = "route_pattern"
	ClaimPortFrequency   = "port_frequency"
	ClaimTransitTime     = "transit_time"
	ClaimFuelConsumption = "fuel_consumption"
	ClaimManual          = "manual"
)

// ValidClaimType reports whether t is a known claim type.
func ValidClaimType(t string) bool {
	switch t {
	case ClaimVesselMovement, ClaimRoutePattern, ClaimPortFrequency, ClaimTransitTime, ClaimFuelConsumption, ClaimManual:
		return true
	}
	return false
}

// ValidationError marks a malformed create/update request. A claim is never
// persisted when validation fails.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
