package llm

import (
	"context"
	"fmt"
	"strings"
)

// AnalysisInput carries everything the summarizer needs about a scored
// claim. The caller renders the evidence sample; this package never sees
// raw sandbox results.
type AnalysisInput struct {
	ClaimText       string
	ValidationLogic string
	Supported       bool
	Confidence      float64
	RowCount        int
	Truncated       bool
	Sample          string // preformatted evidence rows, may be empty
}

// Summarizer produces analyst-facing prose for an already scored claim.
// It runs after the verdict is written and never influences it.
type Summarizer struct {
	client *Client
	model  string
}

func NewSummarizer(client *Client, model string) *Summarizer {
	return &Summarizer{client: client, model: model}
}

// Analyze returns a short prose interpretation of the validation outcome.
func (s *Summarizer) Analyze(ctx context.Context, in AnalysisInput) (string, error) {
	verdict := "refuted"
	if in.Supported {
		verdict = "supported"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Claim: %s\n\n", in.ClaimText)
	if in.ValidationLogic != "" {
		fmt.Fprintf(&b, "How the query relates to the claim: %s\n\n", in.ValidationLogic)
	}
	fmt.Fprintf(&b, "Outcome: %s with confidence %.2f. The validation query returned %d rows", verdict, in.Confidence, in.RowCount)
	if in.Truncated {
		b.WriteString(" (result set was truncated at the row cap)")
	}
	b.WriteString(".\n")
	if in.Sample != "" {
		fmt.Fprintf(&b, "\nSample of returned rows:\n%s\n", in.Sample)
	}
	b.WriteString("\nWrite 2-4 sentences for a maritime analyst: what the evidence shows, how strongly it bears on the claim, and any caveat worth noting. Plain prose, no headings, no JSON.")

	resp, err := s.client.Complete(ctx, Request{
		Model: s.model,
		Messages: []Message{
			{Role: "system", Content: "You are a maritime traffic analyst summarizing validation evidence for a colleague."},
			{Role: "user", Content: b.String()},
		},
		Temperature: 0.3,
		MaxTokens:   600,
	})
	if err != nil {
		return "", fmt.Errorf("analysis completion: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}
