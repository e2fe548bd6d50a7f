// Package sandbox executes untrusted read-only SQL against the operational
// traffic mirror with enforced limits. It is the single execution path for
// claim validation queries, pre-save dry runs, and ad-hoc exploration, so
// the policy (statement guard, timeout, row cap) is uniform across all three.
//
// The sandbox is stateless and safe for arbitrary concurrency; the only
// shared state is the rate limiter, which is itself concurrency-safe.
package sandbox

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/hazyhaar/etsotracker/pkg/trace"
)

// Result is a successfully executed query. Cell values are already coerced
// to display-safe primitives: nil, float64, or string.
type Result struct {
	Columns   []string        `json:"columns"`
	Rows      [][]interface{} `json:"rows"`
	RowCount  int             `json:"row_count"`
	Truncated bool            `json:"truncated"`
	Elapsed   time.Duration   `json:"elapsed_ms"`
}

// Sandbox runs guarded queries against a read-only database handle.
type Sandbox struct {
	db       *sql.DB
	rowLimit int
	timeout  time.Duration
	limiter  *rate.Limiter
	traces   *trace.Store
	logger   *slog.Logger
}

// Options tune a sandbox. Zero values fall back to the documented defaults.
type Options struct {
	RowLimit      int           // default 500
	Timeout       time.Duration // default 30s
	QueriesPerSec float64       // default 10
	Burst         int           // default 5
	Traces        *trace.Store  // optional execution trace store
}

// New creates a sandbox over db, which must be a read-only handle to the
// traffic mirror.
func New(db *sql.DB, opts Options, logger *slog.Logger) *Sandbox {
	if opts.RowLimit <= 0 {
		opts.RowLimit = 500
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.QueriesPerSec <= 0 {
		opts.QueriesPerSec = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sandbox{
		db:       db,
		rowLimit: opts.RowLimit,
		timeout:  opts.Timeout,
		limiter:  rate.NewLimiter(rate.Limit(opts.QueriesPerSec), opts.Burst),
		traces:   opts.Traces,
		logger:   logger,
	}
}

// RowLimit returns the configured row cap.
func (s *Sandbox) RowLimit() int { return s.rowLimit }

// Execute runs one guarded query. All failures are returned as *Failure;
// a rejected statement never contacts the database. When the result set
// exceeds the row cap, Rows is truncated to the cap and Truncated is set.
func (s *Sandbox) Execute(ctx context.Context, query string) (*Result, error) {
	if f := CheckQuery(query); f != nil {
		s.record(query, 0, f)
		return nil, f
	}

	if err := s.limiter.Wait(ctx); err != nil {
		f := &Failure{Kind: FailTimeout, Detail: "cancelled while rate-limited: " + err.Error()}
		s.record(query, 0, f)
		return nil, f
	}

	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	rows, err := s.db.QueryContext(qctx, query)
	if err != nil {
		f := s.classify(qctx, err)
		s.record(query, time.Since(start), f)
		return nil, f
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		f := s.classify(qctx, err)
		s.record(query, time.Since(start), f)
		return nil, f
	}

	res := &Result{Columns: cols, Rows: [][]interface{}{}}
	raw := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}

	// Read one past the cap so truncation is detectable without failing.
	for rows.Next() {
		if len(res.Rows) >= s.rowLimit {
			res.Truncated = true
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			f := s.classify(qctx, err)
			s.record(query, time.Since(start), f)
			return nil, f
		}
		coerced := make([]interface{}, len(cols))
		for i, v := range raw {
			coerced[i] = coerceValue(v)
		}
		res.Rows = append(res.Rows, coerced)
	}
	if err := rows.Err(); err != nil {
		f := s.classify(qctx, err)
		s.record(query, time.Since(start), f)
		return nil, f
	}

	res.RowCount = len(res.Rows)
	res.Elapsed = time.Since(start)
	s.record(query, res.Elapsed, nil)

	s.logger.Debug("sandbox query",
		"rows", res.RowCount, "truncated", res.Truncated, "elapsed", res.Elapsed)
	return res, nil
}

// classify maps a driver error to a typed failure. Deadline expiry on the
// query context means the budget ran out; the driver has already cancelled
// the statement server-side via QueryContext.
func (s *Sandbox) classify(qctx context.Context, err error) *Failure {
	if qctx.Err() == context.DeadlineExceeded {
		return &Failure{Kind: FailTimeout, Detail: "query exceeded time budget of " + s.timeout.String()}
	}
	if qctx.Err() == context.Canceled {
		return &Failure{Kind: FailTimeout, Detail: "query cancelled: " + err.Error()}
	}
	return &Failure{Kind: FailExecution, Detail: err.Error()}
}

func (s *Sandbox) record(query string, d time.Duration, f *Failure) {
	if s.traces == nil {
		return
	}
	if f != nil {
		s.traces.Record("sandbox", query, d, f)
		return
	}
	s.traces.Record("sandbox", query, d, nil)
}

// coerceValue flattens driver values to nil, float64 or string so callers
// never special-case the source type system.
func coerceValue(v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case int64:
		return float64(x)
	case float64:
		return x
	case bool:
		if x {
			return float64(1)
		}
		return float64(0)
	case []byte:
		return string(x)
	case string:
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		// Unknown driver type: render it, don't drop it.
		return fmt.Sprintf("%v", x)
	}
}
