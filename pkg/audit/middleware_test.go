package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// captureLogger keeps entries in memory for assertions.
type captureLogger struct {
	entries []*Entry
}

func (c *captureLogger) Log(_ context.Context, e *Entry) error {
	c.entries = append(c.entries, e)
	return nil
}

func (c *captureLogger) LogAsync(e *Entry) { c.entries = append(c.entries, e) }
func (c *captureLogger) Close() error      { return nil }

type claimActionReq struct {
	ThemeID string `json:"theme_id"`
	ClaimID string `json:"claim_id"`
}

func (r *claimActionReq) AuditSubject() (string, string) { return r.ThemeID, r.ClaimID }

func TestMiddlewareRecordsSubject(t *testing.T) {
	logger := &captureLogger{}
	wrapped := Middleware(logger, "validate_claim")(func(ctx context.Context, request any) (any, error) {
		return map[string]string{"verdict": "supported"}, nil
	})

	req := &claimActionReq{ThemeID: "thm_1", ClaimID: "clm_9"}
	if _, err := wrapped(context.Background(), req); err != nil {
		t.Fatalf("endpoint: %v", err)
	}

	if len(logger.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(logger.entries))
	}
	e := logger.entries[0]
	if e.Action != "validate_claim" {
		t.Errorf("action = %q, want validate_claim", e.Action)
	}
	if e.ThemeID != "thm_1" || e.ClaimID != "clm_9" {
		t.Errorf("subject = %q/%q, want thm_1/clm_9", e.ThemeID, e.ClaimID)
	}
	if e.Status != "success" {
		t.Errorf("status = %q, want success", e.Status)
	}
	if !strings.Contains(e.Result, "supported") {
		t.Errorf("result = %q, missing endpoint output", e.Result)
	}
}

func TestMiddlewareRecordsError(t *testing.T) {
	logger := &captureLogger{}
	wrapped := Middleware(logger, "test_query")(func(ctx context.Context, request any) (any, error) {
		return nil, errors.New("rejected_statement: forbidden keyword: delete")
	})

	// A request without a subject still audits, with both ids empty.
	if _, err := wrapped(context.Background(), struct{ Query string }{"DELETE FROM x"}); err == nil {
		t.Fatal("endpoint error swallowed")
	}

	if len(logger.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(logger.entries))
	}
	e := logger.entries[0]
	if e.Status != "error" || !strings.Contains(e.Error, "forbidden keyword") {
		t.Errorf("entry = %q/%q, want error status with reason", e.Status, e.Error)
	}
	if e.ThemeID != "" || e.ClaimID != "" {
		t.Errorf("subject = %q/%q, want empty for a query dry-run", e.ThemeID, e.ClaimID)
	}
}
