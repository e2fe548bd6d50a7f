// CLAUDE:SUMMARY Theme handlers — CRUD, status probe, research trigger, quarterly summary
package api

import (
	"net/http"

	"github.com/hazyhaar/etsotracker/internal/db"
)

func (a *API) handleCreateTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title    string `json:"title"`
		Quarter  string `json:"quarter"`
		Category string `json:"category"`
		Guidance string `json:"guidance"`
	}
	if !a.decodeBody(w, r, &req) {
		return
	}

	theme, err := a.db.CreateTheme(db.CreateThemeInput{
		Title:    req.Title,
		Quarter:  req.Quarter,
		Category: req.Category,
		Guidance: req.Guidance,
	})
	if err != nil {
		a.storeError(w, err)
		return
	}
	jsonResp(w, http.StatusCreated, theme)
}

func (a *API) handleListThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := a.db.ListThemes(r.URL.Query().Get("quarter"))
	if err != nil {
		a.storeError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, map[string]interface{}{"themes": themes})
}

func (a *API) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := a.db.GetTheme(r.PathValue("id"))
	if err != nil {
		a.storeError(w, err)
		return
	}
	claims, err := a.db.ListClaims(theme.ID)
	if err != nil {
		a.storeError(w, err)
		return
	}
	theme.Claims = claims
	jsonResp(w, http.StatusOK, theme)
}

func (a *API) handleDeleteTheme(w http.ResponseWriter, r *http.Request) {
	if err := a.db.DeleteTheme(r.PathValue("id")); err != nil {
		a.storeError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *API) handleThemeStatus(w http.ResponseWriter, r *http.Request) {
	theme, err := a.db.GetTheme(r.PathValue("id"))
	if err != nil {
		a.storeError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, map[string]interface{}{
		"id":                 theme.ID,
		"status":             theme.Status,
		"overall_confidence": theme.OverallConfidence,
		"claim_count":        theme.ClaimCount,
	})
}

// handleRunResearch kicks off a synchronous research run. Long by nature:
// the generator call plus a bulk validation pass. Clients poll
// /api/theme/{id}/status when they want progress instead.
func (a *API) handleRunResearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MergePrevious bool `json:"merge_previous"`
	}
	if r.ContentLength > 0 && !a.decodeBody(w, r, &req) {
		return
	}

	run, err := a.orch.RunResearch(r.Context(), r.PathValue("id"), req.MergePrevious)
	if err != nil {
		a.storeError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, run)
}

func (a *API) handleQuarterSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := a.db.GetQuarterSummary(r.PathValue("quarter"))
	if err != nil {
		a.storeError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, summary)
}
