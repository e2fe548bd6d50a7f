// CLAUDE:SUMMARY Sandbox query handlers — pre-save dry run and cached rate-limited ad-hoc exploration
package api

import (
	"net/http"

	gocache "github.com/patrickmn/go-cache"

	"github.com/hazyhaar/etsotracker/internal/sandbox"
)

// handleTestQuery dry-runs a candidate validation query. Same guard, same
// limits as real validation, but nothing is persisted and no claim needs
// to exist yet.
func (a *API) handleTestQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if !a.decodeBody(w, r, &req) {
		return
	}

	res, err := a.sandbox.Execute(r.Context(), req.Query)
	if err != nil {
		a.sandboxError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, res)
}

// handleAdHocQuery serves exploratory queries. Results are cached briefly
// keyed by the raw query text; the mirror refreshes on the order of hours,
// so minutes-old answers are as good as fresh ones for exploration.
func (a *API) handleAdHocQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if !a.decodeBody(w, r, &req) {
		return
	}

	if cached, ok := a.cache.Get(req.Query); ok {
		jsonResp(w, http.StatusOK, cached.(*sandbox.Result))
		return
	}

	res, err := a.sandbox.Execute(r.Context(), req.Query)
	if err != nil {
		a.sandboxError(w, err)
		return
	}
	a.cache.Set(req.Query, res, gocache.DefaultExpiration)
	jsonResp(w, http.StatusOK, res)
}
