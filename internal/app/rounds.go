package service

import (
	"context"
	"fmt"

	"github.com/okian/pulse/internal/domain/lifecycle"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/internal/domain/types"
	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
)

// CreateRound opens a round in DRAFT for the team.
func (s *Service) CreateRound(ctx context.Context, teamID string, in CreateRoundInput) (types.RoundSummary, error) {
	if err := in.Validate(); err != nil {
		return types.RoundSummary{}, err
	}
	if _, err := s.store.GetTeam(ctx, teamID); err != nil {
		return types.RoundSummary{}, s.storeErr("get_team", fmt.Errorf("team %s: %w", teamID, err))
	}
	now := s.now()
	r := model.Round{
		ID:        s.newID(),
		TeamID:    teamID,
		Name:      in.Name,
		Status:    model.StatusDraft,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateRound(ctx, r); err != nil {
		return types.RoundSummary{}, s.storeErr("create_round", fmt.Errorf("create round: %w", err))
	}

	metrics.RecordRoundCreated()
	s.logger.Info(ctx, "round created", logger.String("team_id", teamID), logger.String("round_id", r.ID))
	s.emit(ctx, model.Event{Type: model.EventRoundCreated, TeamID: teamID, RoundID: r.ID, To: r.Status, OccurredAt: now})
	return types.NewRoundSummary(r), nil
}

// ListRounds returns the team's rounds newest first, optionally filtered by status.
func (s *Service) ListRounds(ctx context.Context, teamID string, status model.RoundStatus) ([]types.RoundSummary, error) {
	rounds, err := s.store.ListRounds(ctx, teamID, status)
	if err != nil {
		return nil, s.storeErr("list_rounds", fmt.Errorf("list rounds: %w", err))
	}
	out := make([]types.RoundSummary, 0, len(rounds))
	for _, r := range rounds {
		out = append(out, types.NewRoundSummary(r))
	}
	return out, nil
}

// GetRound returns one of the team's rounds.
func (s *Service) GetRound(ctx context.Context, teamID, roundID string) (types.RoundSummary, error) {
	r, err := s.ownedRound(ctx, teamID, roundID)
	if err != nil {
		return types.RoundSummary{}, err
	}
	return types.NewRoundSummary(r), nil
}

// TransitionRoundStatus moves a round to target along DRAFT -> OPEN -> CLOSED
// and reports the status it left.
func (s *Service) TransitionRoundStatus(ctx context.Context, teamID, roundID string, target model.RoundStatus) (types.TransitionResult, error) {
	r, err := s.ownedRound(ctx, teamID, roundID)
	if err != nil {
		return types.TransitionResult{}, err
	}
	prev, err := lifecycle.Transition(&r, target)
	if err != nil {
		s.logger.Warn(ctx, "transition rejected",
			logger.String("round_id", roundID),
			logger.String("from", string(prev)),
			logger.String("to", string(target)),
		)
		return types.TransitionResult{}, err
	}

	now := s.now()
	if err := s.store.UpdateRoundStatus(ctx, roundID, prev, target, now); err != nil {
		return types.TransitionResult{}, s.storeErr("update_round_status", fmt.Errorf("transition round %s: %w", roundID, err))
	}
	r.UpdatedAt = now

	metrics.RecordRoundTransition(string(prev), string(target))
	s.logger.Info(ctx, "round status changed",
		logger.String("round_id", roundID),
		logger.String("from", string(prev)),
		logger.String("to", string(target)),
	)
	s.emit(ctx, model.Event{
		Type: model.EventRoundStatusChanged, TeamID: teamID, RoundID: roundID,
		From: prev, To: target, OccurredAt: now,
	})
	return types.TransitionResult{Round: types.NewRoundSummary(r), Previous: prev}, nil
}
