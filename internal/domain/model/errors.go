package model

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the service. Callers branch on them with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInsufficientPlayers = errors.New("at least two players are required")
	ErrInvalidPayload      = errors.New("invalid payload")
	ErrInvalidRatee        = errors.New("ratee is not part of the assignment")
	ErrDuplicateSubmission = errors.New("feedback already submitted")
	ErrInvalidDateRange    = errors.New("start date must be before end date")
	ErrInvalidName         = errors.New("invalid name")
	ErrRoundClosed         = errors.New("round is closed")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrConflict            = errors.New("conflict")
)

// TransitionError reports a rejected lifecycle move.
type TransitionError struct {
	From RoundStatus
	To   RoundStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

// Unwrap lets errors.Is match ErrInvalidTransition.
func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
