package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/pulse/internal/domain/lifecycle"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/internal/domain/themes"
	"github.com/okian/pulse/internal/domain/types"
	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
)

// SubmitFeedback stores one rater's feedback on one ratee of their assignment.
// Checks run in order: payload, assignment, round state, ratee, uniqueness.
func (s *Service) SubmitFeedback(ctx context.Context, teamID string, in SubmitFeedbackInput) (types.SubmitResult, error) {
	if err := in.Validate(); err != nil {
		return types.SubmitResult{}, s.rejectFeedback(ctx, "invalid_payload", err)
	}

	a, err := s.store.GetAssignment(ctx, in.AssignmentID)
	if err != nil {
		return types.SubmitResult{}, s.rejectFeedback(ctx, "assignment_missing",
			s.storeErr("get_assignment", fmt.Errorf("assignment %s: %w", in.AssignmentID, err)))
	}
	r, err := s.ownedRound(ctx, teamID, a.RoundID)
	if err != nil {
		return types.SubmitResult{}, s.rejectFeedback(ctx, "round_missing", err)
	}
	if !lifecycle.AcceptsFeedback(r.Status) {
		return types.SubmitResult{}, s.rejectFeedback(ctx, "round_closed",
			fmt.Errorf("submit feedback to %s: %w", r.ID, model.ErrRoundClosed))
	}
	if !a.HasRatee(in.RateeID) {
		return types.SubmitResult{}, s.rejectFeedback(ctx, "invalid_ratee",
			fmt.Errorf("%w: %s", model.ErrInvalidRatee, in.RateeID))
	}

	fb := model.Feedback{
		ID:           s.newID(),
		AssignmentID: a.ID,
		RoundID:      a.RoundID,
		RaterID:      a.RaterID,
		RateeID:      in.RateeID,
		Strengths:    in.Strengths,
		Improvement:  in.Improvement,
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateFeedback(ctx, fb); err != nil {
		if errors.Is(err, model.ErrDuplicateSubmission) {
			metrics.RecordFeedbackDuplicate()
		}
		return types.SubmitResult{}, s.rejectFeedback(ctx, "store",
			s.storeErr("create_feedback", fmt.Errorf("store feedback: %w", err)))
	}

	metrics.RecordFeedbackSubmitted()
	s.logger.Info(ctx, "feedback stored",
		logger.String("round_id", fb.RoundID),
		logger.String("assignment_id", fb.AssignmentID),
	)
	s.emit(ctx, model.Event{Type: model.EventFeedbackSubmitted, TeamID: r.TeamID, RoundID: r.ID, Count: 1, OccurredAt: fb.CreatedAt})
	return types.SubmitResult{ID: fb.ID}, nil
}

func (s *Service) rejectFeedback(ctx context.Context, reason string, err error) error {
	metrics.RecordFeedbackRejected(reason)
	s.logger.Warn(ctx, "feedback rejected", logger.String("reason", reason), logger.Error(err))
	return err
}

// ListRoundFeedback groups the round's feedback per ratee in order of first submission.
func (s *Service) ListRoundFeedback(ctx context.Context, teamID, roundID string, filter FeedbackFilter) (types.FeedbackListing, error) {
	if err := filter.Validate(); err != nil {
		return types.FeedbackListing{}, err
	}
	feedback, names, err := s.roundFeedback(ctx, teamID, roundID)
	if err != nil {
		return types.FeedbackListing{}, err
	}

	listing := types.FeedbackListing{RoundID: roundID, Players: []types.PlayerFeedback{}}
	index := make(map[string]int)
	for _, fb := range feedback {
		if filter.PlayerID != "" && fb.RateeID != filter.PlayerID {
			continue
		}
		i, ok := index[fb.RateeID]
		if !ok {
			i = len(listing.Players)
			index[fb.RateeID] = i
			listing.Players = append(listing.Players, types.PlayerFeedback{
				PlayerID:     fb.RateeID,
				PlayerName:   names[fb.RateeID],
				Strengths:    []types.FeedbackText{},
				Improvements: []types.FeedbackText{},
			})
		}
		p := &listing.Players[i]
		if filter.Type != FilterImprovement {
			for _, text := range fb.Strengths {
				p.Strengths = append(p.Strengths, types.FeedbackText{Text: text, CreatedAt: fb.CreatedAt})
			}
		}
		if filter.Type != FilterStrengths {
			p.Improvements = append(p.Improvements, types.FeedbackText{Text: fb.Improvement, CreatedAt: fb.CreatedAt})
		}
		listing.TotalFeedback++
	}
	listing.TotalPlayers = len(listing.Players)
	return listing, nil
}

// Summary flattens the round's feedback into bullets for the team and per ratee.
// Ratees that are no longer on the team only contribute to the team bullets.
func (s *Service) Summary(ctx context.Context, teamID, roundID string) (types.Summary, error) {
	feedback, names, err := s.roundFeedback(ctx, teamID, roundID)
	if err != nil {
		return types.Summary{}, err
	}

	sum := types.Summary{RoundID: roundID, TeamBullets: []string{}, Players: []types.PlayerBullets{}}
	index := make(map[string]int)
	for _, fb := range feedback {
		bullets := feedbackBullets(fb)
		sum.TeamBullets = append(sum.TeamBullets, bullets...)

		name, ok := names[fb.RateeID]
		if !ok {
			continue
		}
		i, seen := index[fb.RateeID]
		if !seen {
			i = len(sum.Players)
			index[fb.RateeID] = i
			sum.Players = append(sum.Players, types.PlayerBullets{PlayerID: fb.RateeID, Name: name})
		}
		sum.Players[i].Bullets = append(sum.Players[i].Bullets, bullets...)
	}
	return sum, nil
}

// ExportCSV writes the round's team bullets, without names, as a one-column CSV
// with header "bullet".
func (s *Service) ExportCSV(ctx context.Context, teamID, roundID string, w io.Writer) error {
	feedback, _, err := s.roundFeedback(ctx, teamID, roundID)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"bullet"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, fb := range feedback {
		for _, b := range feedbackBullets(fb) {
			if err := cw.Write([]string{b}); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// GetThemes clusters the round's feedback. A round without feedback yields an
// empty report, not an error.
func (s *Service) GetThemes(ctx context.Context, teamID, roundID string) (themes.Report, error) {
	if _, err := s.ownedRound(ctx, teamID, roundID); err != nil {
		return themes.Report{}, err
	}
	feedback, err := s.store.ListFeedbackByRound(ctx, roundID)
	if err != nil {
		return themes.Report{}, s.storeErr("list_feedback", fmt.Errorf("list feedback for %s: %w", roundID, err))
	}

	start := time.Now()
	rep := s.clusterer.Cluster(themes.ItemsFromFeedback(feedback))
	metrics.RecordClusteringDuration(float64(time.Since(start).Microseconds()) / 1000)
	for _, t := range rep.Themes {
		metrics.RecordThemeSnippets(t.Theme.ID, t.Count)
	}
	metrics.RecordUnrecognizedSnippets(rep.UnrecognizedCount)
	return rep, nil
}

func (s *Service) roundFeedback(ctx context.Context, teamID, roundID string) ([]model.Feedback, map[string]string, error) {
	if _, err := s.ownedRound(ctx, teamID, roundID); err != nil {
		return nil, nil, err
	}
	var (
		feedback []model.Feedback
		players  []model.Player
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		feedback, err = s.store.ListFeedbackByRound(gctx, roundID)
		return s.storeErr("list_feedback", err)
	})
	g.Go(func() error {
		var err error
		players, err = s.store.ListPlayers(gctx, teamID)
		return s.storeErr("list_players", err)
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("load feedback for %s: %w", roundID, err)
	}
	return feedback, playerNames(players), nil
}

func feedbackBullets(fb model.Feedback) []string { //nolint:gocritic // hugeParam: read-only projection
	out := make([]string, 0, len(fb.Strengths)+1)
	out = append(out, fb.Strengths...)
	return append(out, fb.Improvement)
}
