package model

import (
	"slices"
	"time"
)

// Assignment lists the teammates one rater evaluates in a round.
// At most one exists per (round, rater).
type Assignment struct {
	ID        string
	RoundID   string
	RaterID   string
	RateeIDs  []string
	CreatedAt time.Time
}

// HasRatee reports whether id is one of the assignment's ratees.
func (a Assignment) HasRatee(id string) bool {
	return slices.Contains(a.RateeIDs, id)
}
