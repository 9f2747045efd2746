package api

import (
	"bytes"
	"fmt"
	"net/http"

	service "github.com/okian/pulse/internal/app"
)

func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var in service.SubmitFeedbackInput
	if err := decodeJSON(r, &in, false); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.deps.SubmitFeedback(r.Context(), teamFromContext(r.Context()), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := service.FeedbackFilter{Type: q.Get("type"), PlayerID: q.Get("playerId")}
	res, err := s.deps.ListRoundFeedback(r.Context(), teamFromContext(r.Context()), r.PathValue("id"), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Summary(r.Context(), teamFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleExport buffers the CSV so a failed read still yields a JSON error instead of a partial file.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	roundID := r.PathValue("id")
	var buf bytes.Buffer
	if err := s.deps.ExportCSV(r.Context(), teamFromContext(r.Context()), roundID, &buf); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "feedback-"+roundID+".csv"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
