// Package types contains the read shapes returned by the service and the HTTP layer.
package types

import (
	"time"

	"github.com/okian/pulse/internal/domain/model"
)

// RoundSummary is the public view of a round.
type RoundSummary struct {
	ID              string            `json:"id"`
	TeamID          string            `json:"teamId"`
	Name            string            `json:"name"`
	Status          model.RoundStatus `json:"status"`
	StartDate       *time.Time        `json:"startDate,omitempty"`
	EndDate         *time.Time        `json:"endDate,omitempty"`
	AssignmentCount int               `json:"assignmentCount"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// NewRoundSummary projects a round.
func NewRoundSummary(r model.Round) RoundSummary {
	return RoundSummary{
		ID:              r.ID,
		TeamID:          r.TeamID,
		Name:            r.Name,
		Status:          r.Status,
		StartDate:       r.StartDate,
		EndDate:         r.EndDate,
		AssignmentCount: len(r.AssignmentIDs),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// TransitionResult reports a status change together with the previous status.
type TransitionResult struct {
	Round    RoundSummary      `json:"round"`
	Previous model.RoundStatus `json:"previousStatus"`
}

// PlayerRef names a player.
type PlayerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AssignmentView is an assignment with resolved player names.
type AssignmentView struct {
	AssignmentID string      `json:"assignmentId"`
	RoundID      string      `json:"roundId"`
	Rater        PlayerRef   `json:"rater"`
	Ratees       []PlayerRef `json:"ratees"`
}

// GenerateResult reports an assignment (re)generation.
type GenerateResult struct {
	Count             int `json:"count"`
	Replaced          int `json:"replaced"`
	DiscardedFeedback int `json:"discardedFeedback"`
}

// SubmitResult identifies stored feedback.
type SubmitResult struct {
	ID string `json:"id"`
}

// FeedbackText is one strength or improvement with its timestamp.
type FeedbackText struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// PlayerFeedback groups the feedback a ratee received.
type PlayerFeedback struct {
	PlayerID     string         `json:"playerId"`
	PlayerName   string         `json:"playerName"`
	Strengths    []FeedbackText `json:"strengths"`
	Improvements []FeedbackText `json:"improvements"`
}

// FeedbackListing is the per-ratee view of a round's feedback.
type FeedbackListing struct {
	RoundID       string           `json:"roundId"`
	Players       []PlayerFeedback `json:"players"`
	TotalPlayers  int              `json:"totalPlayers"`
	TotalFeedback int              `json:"totalFeedback"`
}

// PlayerBullets is the flattened feedback for one ratee.
type PlayerBullets struct {
	PlayerID string   `json:"playerId"`
	Name     string   `json:"name"`
	Bullets  []string `json:"bullets"`
}

// Summary flattens a round's feedback into bullets.
type Summary struct {
	RoundID     string          `json:"roundId"`
	TeamBullets []string        `json:"teamBullets"`
	Players     []PlayerBullets `json:"players"`
}

// LoginResult carries a signed team token.
type LoginResult struct {
	Token     string    `json:"token"`
	TeamID    string    `json:"teamId"`
	ExpiresAt time.Time `json:"expiresAt"`
}
