package model

import (
	"fmt"
	"strings"
	"time"
)

// RoundStatus is the lifecycle state of a round.
type RoundStatus string

// Round states. DRAFT is initial, CLOSED is terminal.
const (
	StatusDraft  RoundStatus = "DRAFT"
	StatusOpen   RoundStatus = "OPEN"
	StatusClosed RoundStatus = "CLOSED"
)

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (RoundStatus, error) {
	switch st := RoundStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusDraft, StatusOpen, StatusClosed:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidPayload, s)
	}
}

// Round is a bounded feedback cycle for a team.
type Round struct {
	ID        string
	TeamID    string
	Name      string
	Status    RoundStatus
	StartDate *time.Time
	EndDate   *time.Time
	// AssignmentIDs is rewritten wholesale on every assignment generation.
	AssignmentIDs []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
