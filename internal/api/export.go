// CLAUDE:SUMMARY Export handlers — single-theme JSON and quarterly JSONL downloads
package api

import (
	"net/http"

	"github.com/hazyhaar/etsotracker/internal/export"
)

// RegisterExportRoutes adds the reporting export endpoints.
func (a *API) RegisterExportRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/theme/{id}/export", a.handleExportTheme)
	mux.HandleFunc("GET /api/export/{quarter}", a.handleExportQuarter)
}

func (a *API) handleExportTheme(w http.ResponseWriter, r *http.Request) {
	exporter := export.NewExporter(a.db)
	w.Header().Set("Content-Type", "application/json")
	if err := exporter.ExportTheme(w, r.PathValue("id")); err != nil {
		a.storeError(w, err)
	}
}

func (a *API) handleExportQuarter(w http.ResponseWriter, r *http.Request) {
	exporter := export.NewExporter(a.db)
	w.Header().Set("Content-Type", "application/jsonl")
	w.Header().Set("Content-Disposition", `attachment; filename="themes-`+r.PathValue("quarter")+`.jsonl"`)
	if err := exporter.ExportQuarter(w, r.PathValue("quarter")); err != nil {
		a.logger.Error("quarter export", "error", err)
	}
}
