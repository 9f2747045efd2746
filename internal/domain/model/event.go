// Package model contains domain models passed between layers.
package model

import "time"

// EventType names a domain event. Published on subject "<prefix>.<type>".
type EventType string

// Domain events emitted by the service.
const (
	EventRoundCreated         EventType = "round.created"
	EventRoundStatusChanged   EventType = "round.status_changed"
	EventAssignmentsGenerated EventType = "round.assignments_generated"
	EventFeedbackSubmitted    EventType = "feedback.submitted"
)

// Event is a notification about a state change in a team's round.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	TeamID     string      `json:"teamId"`
	RoundID    string      `json:"roundId"`
	From       RoundStatus `json:"from,omitempty"`
	To         RoundStatus `json:"to,omitempty"`
	Count      int         `json:"count,omitempty"`
	OccurredAt time.Time   `json:"occurredAt"`
}
