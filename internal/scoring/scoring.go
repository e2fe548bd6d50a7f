// Package scoring converts sandbox results into confidence scores and
// supports/refutes verdicts. The policy is deliberately simple and uniform:
// a successful query with at least one row is evidence for the claim, zero
// rows is evidence against it. validation_logic is advisory prose for the
// analyst, never machine-parsed, so the binary rule applies even to claims
// semantically framed as absence checks — a documented gap, not an oversight.
package scoring

import (
	"math"

	"github.com/hazyhaar/etsotracker/internal/sandbox"
)

// Weights are the scoring policy knobs. They come from configuration;
// nothing in the scorer is a hidden magic number.
type Weights struct {
	// Execution is credit for the query completing at all.
	Execution float64
	// Volume is the maximum credit for evidence scale. It accrues
	// proportionally up to Saturation rows, then flattens: row 500 says
	// little more than row 10 about whether the pattern exists.
	Volume float64
	// Saturation is the row count at which the volume term maxes out.
	Saturation int
	// Truncation is subtracted when the sandbox truncated the result set:
	// with the true population size unknown, confidence stays below 1.
	Truncation float64
}

// DefaultWeights mirror the config defaults.
func DefaultWeights() Weights {
	return Weights{
		Execution:  0.4,
		Volume:     0.6,
		Saturation: 10,
		Truncation: 0.15,
	}
}

// Verdict is the scorer's output for one successful execution.
type Verdict struct {
	ConfidenceScore float64
	SupportsClaim   bool
}

// Scorer applies a Weights policy.
type Scorer struct {
	weights Weights
}

func New(w Weights) *Scorer {
	if w.Saturation <= 0 {
		w.Saturation = DefaultWeights().Saturation
	}
	return &Scorer{weights: w}
}

// Score rates a successful sandbox result. Failed executions never reach
// here; the orchestrator maps them to score 0 with an unset verdict.
func (s *Scorer) Score(res *sandbox.Result) Verdict {
	w := s.weights

	supports := res.RowCount > 0

	volume := math.Min(float64(res.RowCount)/float64(w.Saturation), 1.0)
	score := w.Execution + w.Volume*volume
	if res.Truncated {
		score -= w.Truncation
	}

	return Verdict{
		ConfidenceScore: clamp01(score),
		SupportsClaim:   supports,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
