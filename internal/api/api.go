// CLAUDE:SUMMARY Core API struct and route table — themes, claims, validation, sandbox query endpoints
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/hazyhaar/etsotracker/internal/db"
	"github.com/hazyhaar/etsotracker/internal/sandbox"
	"github.com/hazyhaar/etsotracker/internal/validate"
	"github.com/hazyhaar/etsotracker/pkg/trace"
)

// maxBodySize is the maximum HTTP body size for JSON endpoints.
const maxBodySize = 200 * 1024 // 200KB

// QueryRateLimiter guards the ad-hoc query endpoint (30 req/60s per IP).
var QueryRateLimiter = NewRateLimiter(30, 60*time.Second)

type API struct {
	db      *db.DB
	sandbox *sandbox.Sandbox
	orch    *validate.Orchestrator
	cache   *gocache.Cache // ad-hoc query results, keyed by query text
	traces  *trace.Store
	logger  *slog.Logger
}

func New(database *db.DB, sb *sandbox.Sandbox, orch *validate.Orchestrator, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		db:      database,
		sandbox: sb,
		orch:    orch,
		cache:   gocache.New(5*time.Minute, 10*time.Minute),
		logger:  logger,
	}
}

// SetTraceStore enables the GET /api/traces endpoint.
func (a *API) SetTraceStore(ts *trace.Store) {
	a.traces = ts
}

func (a *API) RegisterRoutes(mux *http.ServeMux) {
	// Themes
	mux.HandleFunc("POST /api/themes", a.handleCreateTheme)
	mux.HandleFunc("GET /api/themes", a.handleListThemes)
	mux.HandleFunc("GET /api/theme/{id}", a.handleGetTheme)
	mux.HandleFunc("DELETE /api/theme/{id}", a.handleDeleteTheme)
	mux.HandleFunc("GET /api/theme/{id}/status", a.handleThemeStatus)
	mux.HandleFunc("POST /api/theme/{id}/research", a.handleRunResearch)

	// Claims
	mux.HandleFunc("POST /api/claims", a.handleCreateClaim)
	mux.HandleFunc("GET /api/theme/{id}/claims", a.handleListClaims)
	mux.HandleFunc("DELETE /api/claim/{id}", a.handleDeleteClaim)
	mux.HandleFunc("PUT /api/claim/{id}/query", a.handleUpdateClaimQuery)

	// Validation
	mux.HandleFunc("POST /api/claim/{id}/validate", a.handleValidateClaim)
	mux.HandleFunc("POST /api/validate/bulk", a.handleBulkValidate)

	// Sandbox queries
	mux.HandleFunc("POST /api/query/test", a.handleTestQuery)
	mux.HandleFunc("POST /api/query", RateLimitMiddleware(QueryRateLimiter, a.handleAdHocQuery))

	// Reporting
	mux.HandleFunc("GET /api/summary/{quarter}", a.handleQuarterSummary)
	mux.HandleFunc("GET /api/traces", a.handleRecentTraces)
	a.RegisterExportRoutes(mux)
}

func (a *API) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// storeError maps claim store errors to HTTP status codes.
func (a *API) storeError(w http.ResponseWriter, err error) {
	var vErr *db.ValidationError
	switch {
	case errors.Is(err, sql.ErrNoRows):
		jsonError(w, "not found", http.StatusNotFound)
	case errors.As(err, &vErr):
		jsonError(w, vErr.Error(), http.StatusBadRequest)
	case errors.Is(err, db.ErrBadTransition):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, validate.ErrAlreadyRunning):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, validate.ErrNoResearcher):
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		a.logger.Error("store error", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

// sandboxError maps sandbox failures to HTTP status codes. Rejections are
// the caller's fault, timeouts are a gateway condition, execution errors
// carry the store's message verbatim.
func (a *API) sandboxError(w http.ResponseWriter, err error) {
	if f, ok := sandbox.AsFailure(err); ok {
		switch f.Kind {
		case sandbox.FailRejected:
			jsonError(w, f.Detail, http.StatusBadRequest)
		case sandbox.FailTimeout:
			jsonError(w, f.Detail, http.StatusGatewayTimeout)
		default:
			jsonError(w, f.Detail, http.StatusUnprocessableEntity)
		}
		return
	}
	a.logger.Error("sandbox error", "error", err)
	jsonError(w, "internal error", http.StatusInternalServerError)
}

func (a *API) handleRecentTraces(w http.ResponseWriter, r *http.Request) {
	if a.traces == nil {
		jsonError(w, "tracing not enabled", http.StatusNotFound)
		return
	}
	entries, err := a.traces.Recent(100)
	if err != nil {
		a.logger.Error("reading traces", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusOK, map[string]interface{}{"traces": entries})
}

func jsonResp(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
