package http

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"emianalyzer/internal/core"
	"emianalyzer/internal/log"
	"emianalyzer/internal/report"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	th, err := s.analyzer.Thresholds(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, th)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var th core.Thresholds
	if err := decodeJSON(w, r, &th); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.records.SaveThresholds(r.Context(), th); err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Thresholds updated",
		"emi_green_limit", th.EMIGreenLimit,
		"emi_yellow_limit", th.EMIYellowLimit,
		"high_interest_rate_limit", th.HighInterestRateLimit,
		"savings_target_percent", th.SavingsTargetPercent)
	writeJSON(w, http.StatusOK, th)
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	ref, err := referenceDate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := s.analyzer.AdminRows(r.Context(), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rows == nil {
		rows = []report.UserRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": rows})
}

func (s *Server) handleAdminRisk(w http.ResponseWriter, r *http.Request) {
	ref, err := referenceDate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	monitor, err := s.analyzer.RiskMonitor(r.Context(), ref, report.ParseRiskMode(q.Get("mode")), sanitizeInput(q.Get("q")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, monitor)
}

func (s *Server) handleAdminCharts(w http.ResponseWriter, r *http.Request) {
	ref, err := referenceDate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	charts, err := s.analyzer.AdminCharts(r.Context(), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, charts)
}

// handleExport buffers the export so a failure still yields a JSON error.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	kind, err := report.ParseExportKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := s.analyzer.Export(r.Context(), kind, &buf); err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Export generated",
		log.FieldExportKind, string(kind), "bytes", buf.Len())
	NewJSONResponse().Attachment(kind.Filename()).Bytes(w, kind.ContentType(), buf.Bytes())
}

func (s *Server) handleExportSheets(w http.ResponseWriter, r *http.Request) {
	updated, err := s.analyzer.ExportToSheets(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"updated_range": updated})
}
