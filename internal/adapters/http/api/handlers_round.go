package api

import (
	"fmt"
	"net/http"
	"time"

	service "github.com/okian/pulse/internal/app"
	"github.com/okian/pulse/internal/domain/model"
)

const dateOnly = "2006-01-02"

type createRoundRequest struct {
	Name      string `json:"name"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type assignRequest struct {
	PerRater *int `json:"perRater,omitempty"`
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseDate(field, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil //nolint:nilnil // absent date
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateOnly, v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC 3339 or YYYY-MM-DD", model.ErrInvalidPayload, field)
	}
	return &t, nil
}

func (s *Server) handleCreateRound(w http.ResponseWriter, r *http.Request) {
	var req createRoundRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	start, err := parseDate("startDate", req.StartDate)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	end, err := parseDate("endDate", req.EndDate)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	round, err := s.deps.CreateRound(r.Context(), teamFromContext(r.Context()), service.CreateRoundInput{
		Name: req.Name, StartDate: start, EndDate: end,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, round)
}

func (s *Server) handleListRounds(w http.ResponseWriter, r *http.Request) {
	var status model.RoundStatus
	if q := r.URL.Query().Get("status"); q != "" {
		st, err := model.ParseStatus(q)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		status = st
	}
	rounds, err := s.deps.ListRounds(r.Context(), teamFromContext(r.Context()), status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rounds": rounds})
}

func (s *Server) handleGetRound(w http.ResponseWriter, r *http.Request) {
	round, err := s.deps.GetRound(r.Context(), teamFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	target, err := model.ParseStatus(req.Status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.deps.TransitionRoundStatus(r.Context(), teamFromContext(r.Context()), r.PathValue("id"), target)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeJSON(r, &req, true); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.deps.GenerateAssignments(r.Context(), teamFromContext(r.Context()), r.PathValue("id"), req.PerRater)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.ListAssignments(r.Context(), teamFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assignments": list})
}

func (s *Server) handleAssignmentForRater(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.GetAssignmentForRater(r.Context(), teamFromContext(r.Context()), r.PathValue("id"), r.PathValue("raterId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	rep, err := s.deps.GetProgress(r.Context(), teamFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleThemes(w http.ResponseWriter, r *http.Request) {
	rep, err := s.deps.GetThemes(r.Context(), teamFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
