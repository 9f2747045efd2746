// Package lifecycle implements the round status state machine
// DRAFT -> OPEN -> CLOSED and the operations each state permits.
package lifecycle

import (
	"github.com/okian/pulse/internal/domain/model"
)

// successors maps each status to the single status it may move to.
// CLOSED is terminal and has no entry.
var successors = map[model.RoundStatus]model.RoundStatus{ //nolint:gochecknoglobals // immutable transition table
	model.StatusDraft: model.StatusOpen,
	model.StatusOpen:  model.StatusClosed,
}

// Next returns the successor of s and false when s is terminal or unknown.
func Next(s model.RoundStatus) (model.RoundStatus, bool) {
	n, ok := successors[s]
	return n, ok
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to model.RoundStatus) bool {
	n, ok := successors[from]
	return ok && n == to
}

// Transition moves r to target and returns the previous status.
// Illegal moves, including self-transitions, return a *model.TransitionError
// and leave r untouched.
func Transition(r *model.Round, target model.RoundStatus) (model.RoundStatus, error) {
	prev := r.Status
	if !CanTransition(prev, target) {
		return prev, &model.TransitionError{From: prev, To: target}
	}
	r.Status = target
	return prev, nil
}

// CanGenerateAssignments reports whether assignments may be (re)generated in s.
func CanGenerateAssignments(s model.RoundStatus) bool {
	return s == model.StatusDraft || s == model.StatusOpen
}

// AcceptsFeedback reports whether feedback may be submitted in s.
// Only CLOSED rounds refuse it.
func AcceptsFeedback(s model.RoundStatus) bool {
	return s != model.StatusClosed
}
