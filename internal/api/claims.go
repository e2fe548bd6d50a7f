// CLAUDE:SUMMARY Claim handlers — create with dry-run guard, list, delete, query update, validation triggers
package api

import (
	"net/http"

	"github.com/hazyhaar/etsotracker/internal/db"
	"github.com/hazyhaar/etsotracker/internal/sandbox"
)

func (a *API) handleCreateClaim(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ThemeID         string            `json:"theme_id"`
		ClaimText       string            `json:"claim_text"`
		ClaimType       string            `json:"claim_type"`
		Metadata        map[string]string `json:"metadata"`
		VesselFilter    string            `json:"vessel_filter"`
		RouteFilter     string            `json:"route_filter"`
		PeriodFilter    string            `json:"period_filter"`
		ValidationQuery string            `json:"validation_query"`
		ValidationLogic string            `json:"validation_logic"`
	}
	if !a.decodeBody(w, r, &req) {
		return
	}

	// Reject statements that could never run before persisting anything.
	if f := sandbox.CheckQuery(req.ValidationQuery); f != nil {
		jsonError(w, f.Detail, http.StatusBadRequest)
		return
	}

	claim, err := a.db.CreateClaim(db.CreateClaimInput{
		ThemeID:         req.ThemeID,
		ClaimText:       req.ClaimText,
		ClaimType:       req.ClaimType,
		Metadata:        req.Metadata,
		VesselFilter:    req.VesselFilter,
		RouteFilter:     req.RouteFilter,
		PeriodFilter:    req.PeriodFilter,
		ValidationQuery: req.ValidationQuery,
		ValidationLogic: req.ValidationLogic,
	})
	if err != nil {
		a.storeError(w, err)
		return
	}
	jsonResp(w, http.StatusCreated, claim)
}

func (a *API) handleListClaims(w http.ResponseWriter, r *http.Request) {
	claims, err := a.db.ListClaims(r.PathValue("id"))
	if err != nil {
		a.storeError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, map[string]interface{}{"claims": claims})
}

func (a *API) handleDeleteClaim(w http.ResponseWriter, r *http.Request) {
	if err := a.db.DeleteClaim(r.PathValue("id")); err != nil {
		a.storeError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleUpdateClaimQuery swaps a claim's query and logic. The store resets
// the claim's score and verdict in the same statement; the response carries
// the reset claim so clients see the unscored state immediately.
func (a *API) handleUpdateClaimQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ValidationQuery string `json:"validation_query"`
		ValidationLogic string `json:"validation_logic"`
	}
	if !a.decodeBody(w, r, &req) {
		return
	}
	if f := sandbox.CheckQuery(req.ValidationQuery); f != nil {
		jsonError(w, f.Detail, http.StatusBadRequest)
		return
	}

	id := r.PathValue("id")
	if err := a.db.UpdateClaimQuery(id, req.ValidationQuery, req.ValidationLogic); err != nil {
		a.storeError(w, err)
		return
	}
	claim, err := a.db.GetClaim(id)
	if err != nil {
		a.storeError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, claim)
}

func (a *API) handleValidateClaim(w http.ResponseWriter, r *http.Request) {
	report, err := a.orch.ValidateClaim(r.Context(), r.PathValue("id"))
	if err != nil {
		a.storeError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, report)
}

func (a *API) handleBulkValidate(w http.ResponseWriter, r *http.Request) {
	tally, err := a.orch.BulkValidate(r.Context())
	if err != nil {
		a.storeError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, tally)
}
