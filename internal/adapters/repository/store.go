// Package repository defines the persistence contracts of the feedback service
// and provides an in-memory implementation of them.
//
// Stores return the kinds declared in the model package: model.ErrNotFound for
// missing rows, model.ErrDuplicateSubmission and model.ErrConflict for
// uniqueness violations, model.ErrStoreUnavailable when the backend is down.
package repository

import (
	"context"
	"time"

	"github.com/okian/pulse/internal/domain/model"
)

// TeamStore persists teams.
type TeamStore interface {
	// CreateTeam inserts a team. Returns model.ErrConflict if the code is taken.
	CreateTeam(ctx context.Context, team model.Team) error
	GetTeam(ctx context.Context, id string) (model.Team, error)
	GetTeamByCode(ctx context.Context, code string) (model.Team, error)
}

// PlayerStore persists team members.
type PlayerStore interface {
	CreatePlayer(ctx context.Context, player model.Player) error
	// ListPlayers returns a team's players ordered by name.
	ListPlayers(ctx context.Context, teamID string) ([]model.Player, error)
}

// RoundStore persists rounds.
type RoundStore interface {
	CreateRound(ctx context.Context, round model.Round) error
	GetRound(ctx context.Context, id string) (model.Round, error)
	// ListRounds returns a team's rounds newest first. An empty status lists all.
	ListRounds(ctx context.Context, teamID string, status model.RoundStatus) ([]model.Round, error)
	// UpdateRoundStatus moves a round from -> to only if it is still in from.
	// A round that moved concurrently yields a *model.TransitionError with its
	// actual status.
	UpdateRoundStatus(ctx context.Context, id string, from, to model.RoundStatus, at time.Time) error
}

// ReplaceResult reports what an assignment replacement removed and created.
type ReplaceResult struct {
	Replaced          int
	Inserted          int
	DiscardedFeedback int
}

// AssignmentStore persists assignments. At most one exists per (round, rater).
type AssignmentStore interface {
	// ReplaceAssignments deletes every assignment of the round, together with
	// the feedback stored against them, inserts the new set and rewrites the
	// round's assignment list. Re-running it with a fresh set repairs a partial failure.
	ReplaceAssignments(ctx context.Context, roundID string, assignments []model.Assignment, at time.Time) (ReplaceResult, error)
	// ListAssignments returns a round's assignments in generation order.
	ListAssignments(ctx context.Context, roundID string) ([]model.Assignment, error)
	GetAssignment(ctx context.Context, id string) (model.Assignment, error)
	GetAssignmentForRater(ctx context.Context, roundID, raterID string) (model.Assignment, error)
}

// FeedbackStore persists feedback. At most one exists per (assignment, ratee).
type FeedbackStore interface {
	// CreateFeedback inserts feedback. The loser of a race on the same
	// (assignment, ratee) gets model.ErrDuplicateSubmission.
	CreateFeedback(ctx context.Context, fb model.Feedback) error
	// ListFeedbackByRound returns a round's feedback oldest first.
	ListFeedbackByRound(ctx context.Context, roundID string) ([]model.Feedback, error)
	// CountFeedbackByAssignment maps assignment id to stored feedback rows for a round.
	CountFeedbackByAssignment(ctx context.Context, roundID string) (map[string]int, error)
}

// Store is the full persistence surface used by the service.
type Store interface {
	TeamStore
	PlayerStore
	RoundStore
	AssignmentStore
	FeedbackStore

	Ping(ctx context.Context) error
	Close() error
}
