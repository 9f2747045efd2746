package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/okian/pulse/internal/domain/assignment"
	"github.com/okian/pulse/internal/domain/lifecycle"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/internal/domain/progress"
	"github.com/okian/pulse/internal/domain/types"
	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
)

// GenerateAssignments replaces every assignment of a DRAFT or OPEN round with a
// fresh random set. Feedback stored against the old set is discarded.
// perRater is clamped to [1,3]; nil uses the configured default.
func (s *Service) GenerateAssignments(ctx context.Context, teamID, roundID string, perRater *int) (types.GenerateResult, error) {
	r, err := s.ownedRound(ctx, teamID, roundID)
	if err != nil {
		return types.GenerateResult{}, err
	}
	if !lifecycle.CanGenerateAssignments(r.Status) {
		s.logger.Warn(ctx, "assignment generation rejected", logger.String("round_id", roundID), logger.String("status", string(r.Status)))
		return types.GenerateResult{}, fmt.Errorf("generate assignments for %s: %w", roundID, model.ErrRoundClosed)
	}

	players, err := s.store.ListPlayers(ctx, teamID)
	if err != nil {
		return types.GenerateResult{}, s.storeErr("list_players", fmt.Errorf("list players: %w", err))
	}
	roster := make([]string, len(players))
	for i, p := range players {
		roster[i] = p.ID
	}

	k := assignment.ClampPerRater(perRater, s.defaultPerRater)
	plans, err := s.generator.Generate(roster, k)
	if err != nil {
		s.logger.Warn(ctx, "assignment generation rejected", logger.String("round_id", roundID), logger.Error(err))
		return types.GenerateResult{}, err
	}

	now := s.now()
	list := make([]model.Assignment, len(plans))
	for i, p := range plans {
		list[i] = model.Assignment{
			ID:        s.newID(),
			RoundID:   roundID,
			RaterID:   p.RaterID,
			RateeIDs:  p.RateeIDs,
			CreatedAt: now,
		}
	}
	res, err := s.store.ReplaceAssignments(ctx, roundID, list, now)
	if err != nil {
		return types.GenerateResult{}, s.storeErr("replace_assignments", fmt.Errorf("replace assignments for %s: %w", roundID, err))
	}

	metrics.RecordAssignmentsGenerated(res.Inserted)
	if res.DiscardedFeedback > 0 {
		metrics.RecordFeedbackDiscarded(res.DiscardedFeedback)
		s.logger.Warn(ctx, "regeneration discarded feedback",
			logger.String("round_id", roundID),
			logger.Int("discarded", res.DiscardedFeedback),
		)
	}
	s.logger.Info(ctx, "assignments generated",
		logger.String("round_id", roundID),
		logger.Int("count", res.Inserted),
		logger.Int("replaced", res.Replaced),
		logger.Int("per_rater", k),
	)
	s.emit(ctx, model.Event{
		Type: model.EventAssignmentsGenerated, TeamID: teamID, RoundID: roundID,
		Count: res.Inserted, OccurredAt: now,
	})
	return types.GenerateResult{
		Count:             res.Inserted,
		Replaced:          res.Replaced,
		DiscardedFeedback: res.DiscardedFeedback,
	}, nil
}

// GetAssignmentForRater returns the teammates rater has to evaluate in the round.
func (s *Service) GetAssignmentForRater(ctx context.Context, teamID, roundID, raterID string) (types.AssignmentView, error) {
	if _, err := s.ownedRound(ctx, teamID, roundID); err != nil {
		return types.AssignmentView{}, err
	}

	var (
		a       model.Assignment
		players []model.Player
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		a, err = s.store.GetAssignmentForRater(gctx, roundID, raterID)
		if err != nil {
			return s.storeErr("get_assignment", fmt.Errorf("assignment for rater %s: %w", raterID, err))
		}
		return nil
	})
	g.Go(func() error {
		var err error
		players, err = s.store.ListPlayers(gctx, teamID)
		return s.storeErr("list_players", err)
	})
	if err := g.Wait(); err != nil {
		return types.AssignmentView{}, err
	}
	return assignmentView(a, playerNames(players)), nil
}

// ListAssignments returns the round's assignments with player names resolved.
func (s *Service) ListAssignments(ctx context.Context, teamID, roundID string) ([]types.AssignmentView, error) {
	if _, err := s.ownedRound(ctx, teamID, roundID); err != nil {
		return nil, err
	}
	list, players, err := s.assignmentsAndPlayers(ctx, teamID, roundID)
	if err != nil {
		return nil, err
	}
	names := playerNames(players)
	out := make([]types.AssignmentView, 0, len(list))
	for _, a := range list {
		out = append(out, assignmentView(a, names))
	}
	return out, nil
}

// GetProgress aggregates completion for the round.
func (s *Service) GetProgress(ctx context.Context, teamID, roundID string) (progress.Report, error) {
	if _, err := s.ownedRound(ctx, teamID, roundID); err != nil {
		return progress.Report{}, err
	}

	var (
		list    []model.Assignment
		players []model.Player
		counts  map[string]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = s.store.ListAssignments(gctx, roundID)
		return s.storeErr("list_assignments", err)
	})
	g.Go(func() error {
		var err error
		players, err = s.store.ListPlayers(gctx, teamID)
		return s.storeErr("list_players", err)
	})
	g.Go(func() error {
		var err error
		counts, err = s.store.CountFeedbackByAssignment(gctx, roundID)
		return s.storeErr("count_feedback", err)
	})
	if err := g.Wait(); err != nil {
		return progress.Report{}, fmt.Errorf("progress for %s: %w", roundID, err)
	}

	names := playerNames(players)
	rows := make([]progress.Row, 0, len(list))
	for _, a := range list {
		rows = append(rows, progress.Row{
			AssignmentID: a.ID,
			RaterID:      a.RaterID,
			RaterName:    names[a.RaterID],
			Ratees:       len(a.RateeIDs),
			Completed:    counts[a.ID],
		})
	}
	return progress.Aggregate(rows), nil
}

func (s *Service) assignmentsAndPlayers(ctx context.Context, teamID, roundID string) ([]model.Assignment, []model.Player, error) {
	var (
		list    []model.Assignment
		players []model.Player
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = s.store.ListAssignments(gctx, roundID)
		return s.storeErr("list_assignments", err)
	})
	g.Go(func() error {
		var err error
		players, err = s.store.ListPlayers(gctx, teamID)
		return s.storeErr("list_players", err)
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("load assignments for %s: %w", roundID, err)
	}
	return list, players, nil
}

func playerNames(players []model.Player) map[string]string {
	names := make(map[string]string, len(players))
	for _, p := range players {
		names[p.ID] = p.Name
	}
	return names
}

func assignmentView(a model.Assignment, names map[string]string) types.AssignmentView {
	v := types.AssignmentView{
		AssignmentID: a.ID,
		RoundID:      a.RoundID,
		Rater:        types.PlayerRef{ID: a.RaterID, Name: names[a.RaterID]},
		Ratees:       make([]types.PlayerRef, 0, len(a.RateeIDs)),
	}
	for _, id := range a.RateeIDs {
		v.Ratees = append(v.Ratees, types.PlayerRef{ID: id, Name: names[id]})
	}
	return v
}
