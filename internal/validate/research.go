// CLAUDE:SUMMARY Research runs — theme lifecycle driver from guidance to generated claims to verdicts
package validate

import (
	"context"
	"errors"
	"fmt"

	"github.com/hazyhaar/etsotracker/internal/db"
)

// ErrNoResearcher is returned when a research run is requested but no LLM
// provider was configured.
var ErrNoResearcher = errors.New("no researcher configured")

// ResearchRun summarizes one completed research pass.
type ResearchRun struct {
	ThemeID       string `json:"theme_id"`
	ClaimsCreated int    `json:"claims_created"`
	Validation    *Tally `json:"validation"`
}

// RunResearch drives a theme through one full research cycle: generate
// findings and draft claims from the guidance, persist them, then validate
// every pending claim of the theme. When mergePrevious is set, new findings
// are appended to existing content and earlier verdicts stand; when unset,
// prior content and claim scores are reset and every claim is re-validated.
//
// The entry transition (current status to researching) is a CAS update, so
// a theme already researching or validating is refused with
// ErrAlreadyRunning even across processes. A generator failure parks the
// theme in failed, from which a later run may retry.
func (o *Orchestrator) RunResearch(ctx context.Context, themeID string, mergePrevious bool) (*ResearchRun, error) {
	if o.researcher == nil {
		return nil, ErrNoResearcher
	}
	if !o.themes.acquire(themeID) {
		return nil, fmt.Errorf("theme %s: %w", themeID, ErrAlreadyRunning)
	}
	defer o.themes.release(themeID)

	theme, err := o.store.GetTheme(themeID)
	if err != nil {
		return nil, err
	}

	if err := o.store.TransitionTheme(themeID, theme.Status, db.StatusResearching); err != nil {
		if errors.Is(err, db.ErrBadTransition) {
			return nil, fmt.Errorf("theme %s in status %s: %w", themeID, theme.Status, ErrAlreadyRunning)
		}
		return nil, err
	}

	result, err := o.researcher.Generate(ctx, theme)
	if err != nil {
		o.failTheme(themeID)
		return nil, fmt.Errorf("research for theme %s: %w", themeID, err)
	}

	// A non-merging re-run starts clean: prior content and claim verdicts
	// are discarded, which puts every existing claim back on the pending
	// queue for the validation pass below.
	if !mergePrevious {
		if err := o.store.ResetThemeScores(themeID); err != nil {
			o.failTheme(themeID)
			return nil, err
		}
	}

	if err := o.store.SetThemeContent(themeID, result.Findings, mergePrevious); err != nil {
		o.failTheme(themeID)
		return nil, err
	}

	drafts := result.Claims
	if o.maxClaims > 0 && len(drafts) > o.maxClaims {
		o.logger.Warn("generator exceeded claim cap, truncating",
			"theme", themeID, "generated", len(drafts), "cap", o.maxClaims)
		drafts = drafts[:o.maxClaims]
	}

	created := 0
	for _, draft := range drafts {
		_, err := o.store.CreateClaim(db.CreateClaimInput{
			ThemeID:         themeID,
			ClaimText:       draft.ClaimText,
			ClaimType:       draft.ClaimType,
			VesselFilter:    draft.VesselFilter,
			RouteFilter:     draft.RouteFilter,
			PeriodFilter:    periodFilter(draft.TimePeriodStart, draft.TimePeriodEnd),
			ValidationQuery: draft.ValidationQuery,
			ValidationLogic: draft.ValidationLogic,
		})
		if err != nil {
			// A malformed draft is dropped, not fatal to the run.
			o.logger.Warn("skipping generated claim", "theme", themeID, "error", err)
			continue
		}
		created++
	}

	if err := o.store.TransitionTheme(themeID, db.StatusResearching, db.StatusValidating); err != nil {
		return nil, err
	}

	tally, err := o.ValidateTheme(ctx, themeID)
	if err != nil {
		o.logger.Error("bulk validation after research", "theme", themeID, "error", err)
		tally = &Tally{Errors: []string{err.Error()}}
	}

	if err := o.store.TransitionTheme(themeID, db.StatusValidating, db.StatusCompleted); err != nil {
		return nil, err
	}

	o.logger.Info("research run completed",
		"theme", themeID, "claims_created", created,
		"validated", tally.Succeeded, "failed", tally.Failed)

	return &ResearchRun{ThemeID: themeID, ClaimsCreated: created, Validation: tally}, nil
}

func (o *Orchestrator) failTheme(themeID string) {
	if err := o.store.TransitionTheme(themeID, db.StatusResearching, db.StatusFailed); err != nil {
		o.logger.Error("marking theme failed", "theme", themeID, "error", err)
	}
}

func periodFilter(start, end string) string {
	switch {
	case start == "" && end == "":
		return ""
	case end == "":
		return start + "/"
	case start == "":
		return "/" + end
	}
	return start + "/" + end
}
