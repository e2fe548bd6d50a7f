// CLAUDE:SUMMARY Bulk validation — bounded worker fan-out over the pending queue with per-unit error tally
package validate

import (
	"context"
	"sync"

	"github.com/hazyhaar/etsotracker/internal/db"
)

// Tally is the partial-failure accounting for one bulk run. Succeeded plus
// Failed always equals the number of claims dispatched; claims skipped by a
// context cancel are counted in neither.
type Tally struct {
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
}

// BulkValidate runs every pending claim (unset confidence score) across all
// themes. One claim's failure never stops the others; its reason joins the
// tally. Cancelling ctx stops dispatching new claims, but verdicts already
// written stay written.
func (o *Orchestrator) BulkValidate(ctx context.Context) (*Tally, error) {
	pending, err := o.store.AllPendingClaims()
	if err != nil {
		return nil, err
	}
	return o.runBatch(ctx, pending), nil
}

// ValidateTheme runs every pending claim of one theme. The caller holds the
// theme exclusively; per-claim markers still apply so a concurrent single
// validation of one of these claims is refused, not doubled.
func (o *Orchestrator) ValidateTheme(ctx context.Context, themeID string) (*Tally, error) {
	pending, err := o.store.PendingClaims(themeID)
	if err != nil {
		return nil, err
	}
	return o.runBatch(ctx, pending), nil
}

func (o *Orchestrator) runBatch(ctx context.Context, claims []*db.Claim) *Tally {
	tally := &Tally{Errors: []string{}}
	if len(claims) == 0 {
		return tally
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, o.workers)
	)

	for _, claim := range claims {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(claim *db.Claim) {
			defer wg.Done()
			defer func() { <-sem }()

			report, err := o.ValidateClaim(ctx, claim.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				tally.Failed++
				tally.Errors = append(tally.Errors, claim.ID+": "+err.Error())
			case report.Error != "":
				tally.Failed++
				tally.Errors = append(tally.Errors, claim.ID+": "+report.Error)
			default:
				tally.Succeeded++
			}
		}(claim)
	}
	wg.Wait()

	o.logger.Info("bulk validation finished",
		"dispatched", tally.Succeeded+tally.Failed,
		"succeeded", tally.Succeeded, "failed", tally.Failed)
	return tally
}
