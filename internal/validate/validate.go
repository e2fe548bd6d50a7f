// Package validate orchestrates claim validation: it runs a claim's query
// through the sandbox, scores the result, writes the verdict atomically and
// refreshes the owning theme's aggregate confidence. It also drives the
// theme lifecycle for research runs and bulk validation.
//
// Exclusivity has two layers. Per-claim runs are guarded by an in-memory
// keyed marker set; per-theme runs are guarded by the theme status machine
// itself, whose transitions are compare-and-swap UPDATEs, so a second
// process against the same database is refused too.
package validate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/etsotracker/internal/db"
	"github.com/hazyhaar/etsotracker/internal/llm"
	"github.com/hazyhaar/etsotracker/internal/sandbox"
	"github.com/hazyhaar/etsotracker/internal/scoring"
)

// ErrAlreadyRunning is returned when a claim or theme already has a
// validation run in flight. The caller retries later; nothing is queued.
var ErrAlreadyRunning = errors.New("validation already running")

// Runner executes guarded queries. *sandbox.Sandbox is the production
// implementation.
type Runner interface {
	Execute(ctx context.Context, query string) (*sandbox.Result, error)
}

// Orchestrator coordinates validation runs over the claim store.
type Orchestrator struct {
	store      *db.DB
	sandbox    Runner
	scorer     *scoring.Scorer
	researcher *llm.Researcher
	summarizer *llm.Summarizer
	logger     *slog.Logger

	claims    *inflight
	themes    *inflight
	workers   int
	maxClaims int
}

// Options configure an orchestrator. Researcher and Summarizer are optional;
// without them research runs fail fast and analysis prose is skipped.
type Options struct {
	Researcher *llm.Researcher
	Summarizer *llm.Summarizer
	Workers    int // bulk fan-out width, default 4
	MaxClaims  int // cap on generator-seeded claims per research run, 0 = no cap
	Logger     *slog.Logger
}

func New(store *db.DB, runner Runner, scorer *scoring.Scorer, opts Options) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{
		store:      store,
		sandbox:    runner,
		scorer:     scorer,
		researcher: opts.Researcher,
		summarizer: opts.Summarizer,
		logger:     opts.Logger,
		claims:     newInflight(),
		themes:     newInflight(),
		workers:    opts.Workers,
		maxClaims:  opts.MaxClaims,
	}
}

// Report is the caller-facing outcome of one validation run.
type Report struct {
	ClaimID         string   `json:"claim_id"`
	ThemeID         string   `json:"theme_id"`
	ConfidenceScore float64  `json:"confidence_score"`
	SupportsClaim   *bool    `json:"supports_claim"` // nil when the run failed
	DataPoints      int      `json:"data_points_found"`
	Truncated       bool     `json:"truncated"`
	Error           string   `json:"error,omitempty"`
	ThemeConfidence *float64 `json:"theme_confidence,omitempty"`
}

// ValidateClaim runs one claim end to end. A second call for the same claim
// while one is in flight returns ErrAlreadyRunning. On sandbox failure the
// report carries score 0 with an unset verdict and the reason; the stored
// claim keeps any previously earned score, gaining only last_error.
func (o *Orchestrator) ValidateClaim(ctx context.Context, claimID string) (*Report, error) {
	if !o.claims.acquire(claimID) {
		return nil, fmt.Errorf("claim %s: %w", claimID, ErrAlreadyRunning)
	}
	defer o.claims.release(claimID)
	return o.validateLocked(ctx, claimID)
}

func (o *Orchestrator) validateLocked(ctx context.Context, claimID string) (*Report, error) {
	claim, err := o.store.GetClaim(claimID)
	if err != nil {
		return nil, err
	}

	res, err := o.sandbox.Execute(ctx, claim.ValidationQuery)
	if err != nil {
		reason := err.Error()
		if dbErr := o.store.RecordValidationFailure(claimID, reason); dbErr != nil {
			o.logger.Error("recording validation failure", "claim", claimID, "error", dbErr)
		}
		o.logger.Warn("claim validation failed", "claim", claimID, "error", reason)
		return &Report{ClaimID: claimID, ThemeID: claim.ThemeID, Error: reason}, nil
	}

	verdict := o.scorer.Score(res)
	if err := o.store.ApplyValidation(claimID, db.ValidationOutcome{
		ConfidenceScore: verdict.ConfidenceScore,
		SupportsClaim:   verdict.SupportsClaim,
		DataPoints:      res.RowCount,
	}); err != nil {
		return nil, fmt.Errorf("writing verdict for claim %s: %w", claimID, err)
	}

	themeConf, err := o.store.RecomputeConfidence(claim.ThemeID)
	if err != nil {
		o.logger.Error("recomputing theme confidence", "theme", claim.ThemeID, "error", err)
	}

	o.summarize(claim, res, verdict)

	supports := verdict.SupportsClaim
	o.logger.Info("claim validated",
		"claim", claimID, "theme", claim.ThemeID,
		"score", verdict.ConfidenceScore, "supports", supports, "rows", res.RowCount)

	return &Report{
		ClaimID:         claimID,
		ThemeID:         claim.ThemeID,
		ConfidenceScore: verdict.ConfidenceScore,
		SupportsClaim:   &supports,
		DataPoints:      res.RowCount,
		Truncated:       res.Truncated,
		ThemeConfidence: themeConf,
	}, nil
}

// summarize writes analysis prose for a scored claim in the background.
// The verdict is already committed; summarizer failures are only logged.
func (o *Orchestrator) summarize(claim *db.Claim, res *sandbox.Result, verdict scoring.Verdict) {
	if o.summarizer == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		text, err := o.summarizer.Analyze(ctx, llm.AnalysisInput{
			ClaimText:       claim.ClaimText,
			ValidationLogic: claim.ValidationLogic,
			Supported:       verdict.SupportsClaim,
			Confidence:      verdict.ConfidenceScore,
			RowCount:        res.RowCount,
			Truncated:       res.Truncated,
			Sample:          renderSample(res, 5),
		})
		if err != nil {
			o.logger.Warn("claim analysis skipped", "claim", claim.ID, "error", err)
			return
		}
		if err := o.store.SetAnalysis(claim.ID, text); err != nil {
			o.logger.Error("storing claim analysis", "claim", claim.ID, "error", err)
		}
	}()
}

// renderSample formats up to n result rows as pipe-separated text for
// prompt inclusion.
func renderSample(res *sandbox.Result, n int) string {
	if res.RowCount == 0 {
		return ""
	}
	if n > res.RowCount {
		n = res.RowCount
	}
	var b strings.Builder
	b.WriteString(strings.Join(res.Columns, " | "))
	for _, row := range res.Rows[:n] {
		b.WriteByte('\n')
		for i, cell := range row {
			if i > 0 {
				b.WriteString(" | ")
			}
			fmt.Fprintf(&b, "%v", cell)
		}
	}
	return b.String()
}
