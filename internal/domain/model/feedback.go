package model

import "time"

// Feedback is one rater's input on one ratee: two strengths and one improvement.
// At most one exists per (assignment, ratee) and it is never edited.
type Feedback struct {
	ID           string
	AssignmentID string
	RoundID      string
	RaterID      string
	RateeID      string
	Strengths    []string
	Improvement  string
	CreatedAt    time.Time
}
