// CLAUDE:SUMMARY Research generator — theme guidance to findings prose plus draft claims with candidate SQL
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hazyhaar/etsotracker/internal/db"
)

// trafficSchema describes the read-only traffic mirror to the model. Draft
// queries must target these tables only; anything else fails in the sandbox.
const trafficSchema = `Tables available (read-only):

vessels(imo INTEGER PRIMARY KEY, name TEXT, vessel_type TEXT, flag TEXT, gross_tonnage REAL, carrier TEXT)
vessel_movements(id INTEGER PRIMARY KEY, imo INTEGER, departure_port TEXT, arrival_port TEXT, departure_ts TEXT, arrival_ts TEXT, route TEXT, distance_nm REAL, fuel_consumed_mt REAL)
port_calls(id INTEGER PRIMARY KEY, imo INTEGER, port TEXT, country TEXT, arrived_ts TEXT, departed_ts TEXT, cargo_ops INTEGER)

Timestamps are ISO-8601 text. Ports are UN/LOCODE strings.`

const researchSystemPrompt = `You are a maritime traffic analyst. You study vessel movement data to verify claims about traffic patterns, routes and port activity. You answer strictly in the JSON format requested, with no surrounding prose.`

// DraftClaim is one model-proposed claim with its candidate validation query.
// Everything here is a draft: the analyst reviews, edits and dry-runs the
// query before any of it is persisted.
type DraftClaim struct {
	ClaimText       string `json:"claim_text"`
	ClaimType       string `json:"claim_type"`
	ValidationQuery string `json:"validation_query"`
	ValidationLogic string `json:"validation_logic"`
	VesselFilter    string `json:"vessel_filter,omitempty"`
	RouteFilter     string `json:"route_filter,omitempty"`
	TimePeriodStart string `json:"time_period_start,omitempty"`
	TimePeriodEnd   string `json:"time_period_end,omitempty"`
}

// ResearchResult is the parsed output of one research pass over a theme.
type ResearchResult struct {
	Findings string       `json:"findings"`
	Claims   []DraftClaim `json:"claims"`
}

// Researcher turns theme guidance into findings and draft claims.
type Researcher struct {
	client *Client
	model  string
}

func NewResearcher(client *Client, model string) *Researcher {
	return &Researcher{client: client, model: model}
}

// Generate runs one research pass for the theme. The returned claims are
// unsaved drafts; claim types outside the known set are coerced to manual.
func (r *Researcher) Generate(ctx context.Context, theme *db.Theme) (*ResearchResult, error) {
	prompt := buildResearchPrompt(theme)

	resp, err := r.client.Complete(ctx, Request{
		Model: r.model,
		Messages: []Message{
			{Role: "system", Content: researchSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.4,
		MaxTokens:   4096,
	})
	if err != nil {
		return nil, fmt.Errorf("research completion: %w", err)
	}

	var result ResearchResult
	if err := json.Unmarshal([]byte(CleanJSONResponse(resp.Content)), &result); err != nil {
		return nil, fmt.Errorf("parsing research response: %w", err)
	}
	if strings.TrimSpace(result.Findings) == "" {
		return nil, fmt.Errorf("research response has no findings")
	}

	for i := range result.Claims {
		if !db.ValidClaimType(result.Claims[i].ClaimType) {
			result.Claims[i].ClaimType = db.ClaimManual
		}
	}
	return &result, nil
}

func buildResearchPrompt(theme *db.Theme) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research theme: %s\n", theme.Title)
	fmt.Fprintf(&b, "Quarter: %s\n", theme.Quarter)
	fmt.Fprintf(&b, "Category: %s\n\n", theme.Category)
	if theme.Guidance != "" {
		fmt.Fprintf(&b, "Analyst guidance:\n%s\n\n", theme.Guidance)
	}
	b.WriteString(trafficSchema)
	b.WriteString(`

Produce research findings for this theme and 3-6 testable claims.
Each claim needs a single SELECT statement against the tables above that
returns supporting rows when the claim holds, and a short plain-language
explanation of how the rows relate to the claim.

Respond with exactly this JSON shape:
{
  "findings": "...",
  "claims": [
    {
      "claim_text": "...",
      "claim_type": "vessel_movement|route_pattern|port_frequency|transit_time|fuel_consumption|manual",
      "validation_query": "SELECT ...",
      "validation_logic": "...",
      "vessel_filter": "",
      "route_filter": "",
      "time_period_start": "",
      "time_period_end": ""
    }
  ]
}`)
	return b.String()
}

// CleanJSONResponse strips markdown code fences and any prose around the
// outermost JSON object. Models regularly wrap JSON in fences despite
// instructions, so parsing goes through here everywhere.
func CleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
