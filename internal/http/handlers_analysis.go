package http

import (
	"net/http"
	"strconv"
	"strings"

	"emianalyzer/internal/core"
	"emianalyzer/internal/log"
)

const (
	defaultHistoryLimit = 30
	maxHistoryLimit     = 365
)

// analysisParams reads {userID} and the optional reference date.
func analysisParams(r *http.Request) (int64, core.Date, error) {
	userID, err := pathID(r, "userID")
	if err != nil {
		return 0, core.Date{}, err
	}
	ref, err := referenceDate(r)
	if err != nil {
		return 0, core.Date{}, err
	}
	return userID, ref, nil
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	userID, ref, err := analysisParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snapshot, err := s.analyzer.Snapshot(r.Context(), userID, ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	userID, ref, err := analysisParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	charts, err := s.analyzer.Charts(r.Context(), userID, ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, charts)
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	userID, ref, err := analysisParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	profile, err := s.analyzer.Risk(r.Context(), userID, ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handlePayments(w http.ResponseWriter, r *http.Request) {
	userID, ref, err := analysisParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	plan, err := s.analyzer.Payments(r.Context(), userID, ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// handleRiskHistory lists stored assessments, newest first. ?limit= caps the
// result at 365.
func (s *Server) handleRiskHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, r, badRequest("limit must be a positive integer"))
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	history, err := s.store.ListAssessments(r.Context(), userID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if history == nil {
		history = []core.RiskAssessment{}
	}
	log.FromContext(r.Context()).DebugContext(r.Context(), "Risk history served",
		log.FieldUserID, userID, "count", len(history))
	writeJSON(w, http.StatusOK, map[string]any{"assessments": history})
}
