package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/okian/pulse/internal/domain/model"
)

type feedbackKey struct {
	assignmentID string
	rateeID      string
}

type raterKey struct {
	roundID string
	raterID string
}

// MemoryStore is an in-memory Store with the same uniqueness rules as the
// postgres schema. It is safe for concurrent use.
type MemoryStore struct {
	mu sync.RWMutex

	teams       map[string]model.Team
	teamByCode  map[string]string
	players     map[string]model.Player
	rounds      map[string]model.Round
	assignments map[string]model.Assignment
	byRater     map[raterKey]string
	feedback    map[string]model.Feedback
	byFeedback  map[feedbackKey]string

	closed bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		teams:       make(map[string]model.Team),
		teamByCode:  make(map[string]string),
		players:     make(map[string]model.Player),
		rounds:      make(map[string]model.Round),
		assignments: make(map[string]model.Assignment),
		byRater:     make(map[raterKey]string),
		feedback:    make(map[string]model.Feedback),
		byFeedback:  make(map[feedbackKey]string),
	}
}

func (s *MemoryStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return fmt.Errorf("%w: memory store closed", model.ErrStoreUnavailable)
	}
	return nil
}

// CreateTeam inserts a team.
func (s *MemoryStore) CreateTeam(ctx context.Context, team model.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	code := strings.ToUpper(team.Code)
	if _, taken := s.teamByCode[code]; taken {
		return fmt.Errorf("%w: team code %q", model.ErrConflict, team.Code)
	}
	if _, exists := s.teams[team.ID]; exists {
		return fmt.Errorf("%w: team %q", model.ErrConflict, team.ID)
	}
	team.CredentialHash = slices.Clone(team.CredentialHash)
	s.teams[team.ID] = team
	s.teamByCode[code] = team.ID
	return nil
}

// GetTeam returns a team by id.
func (s *MemoryStore) GetTeam(ctx context.Context, id string) (model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return model.Team{}, err
	}
	t, ok := s.teams[id]
	if !ok {
		return model.Team{}, fmt.Errorf("%w: team %q", model.ErrNotFound, id)
	}
	return t, nil
}

// GetTeamByCode returns a team by its join code, case-insensitively.
func (s *MemoryStore) GetTeamByCode(ctx context.Context, code string) (model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return model.Team{}, err
	}
	id, ok := s.teamByCode[strings.ToUpper(code)]
	if !ok {
		return model.Team{}, fmt.Errorf("%w: team code %q", model.ErrNotFound, code)
	}
	return s.teams[id], nil
}

// CreatePlayer inserts a player into an existing team.
func (s *MemoryStore) CreatePlayer(ctx context.Context, player model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	if _, ok := s.teams[player.TeamID]; !ok {
		return fmt.Errorf("%w: team %q", model.ErrNotFound, player.TeamID)
	}
	if _, exists := s.players[player.ID]; exists {
		return fmt.Errorf("%w: player %q", model.ErrConflict, player.ID)
	}
	s.players[player.ID] = player
	return nil
}

// ListPlayers returns a team's players ordered by name, then id.
func (s *MemoryStore) ListPlayers(ctx context.Context, teamID string) ([]model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Player, 0)
	for _, p := range s.players {
		if p.TeamID == teamID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b model.Player) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// CreateRound inserts a round.
func (s *MemoryStore) CreateRound(ctx context.Context, round model.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	if _, ok := s.teams[round.TeamID]; !ok {
		return fmt.Errorf("%w: team %q", model.ErrNotFound, round.TeamID)
	}
	if _, exists := s.rounds[round.ID]; exists {
		return fmt.Errorf("%w: round %q", model.ErrConflict, round.ID)
	}
	s.rounds[round.ID] = cloneRound(round)
	return nil
}

// GetRound returns a round by id.
func (s *MemoryStore) GetRound(ctx context.Context, id string) (model.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return model.Round{}, err
	}
	r, ok := s.rounds[id]
	if !ok {
		return model.Round{}, fmt.Errorf("%w: round %q", model.ErrNotFound, id)
	}
	return cloneRound(r), nil
}

// ListRounds returns a team's rounds newest first.
func (s *MemoryStore) ListRounds(ctx context.Context, teamID string, status model.RoundStatus) ([]model.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Round, 0)
	for _, r := range s.rounds {
		if r.TeamID != teamID || (status != "" && r.Status != status) {
			continue
		}
		out = append(out, cloneRound(r))
	}
	slices.SortFunc(out, func(a, b model.Round) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// UpdateRoundStatus performs a compare-and-set on the round status.
func (s *MemoryStore) UpdateRoundStatus(ctx context.Context, id string, from, to model.RoundStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	r, ok := s.rounds[id]
	if !ok {
		return fmt.Errorf("%w: round %q", model.ErrNotFound, id)
	}
	if r.Status != from {
		return &model.TransitionError{From: r.Status, To: to}
	}
	r.Status = to
	r.UpdatedAt = at
	s.rounds[id] = r
	return nil
}

// ReplaceAssignments swaps a round's assignments atomically.
func (s *MemoryStore) ReplaceAssignments(ctx context.Context, roundID string, assignments []model.Assignment, at time.Time) (ReplaceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return ReplaceResult{}, err
	}
	r, ok := s.rounds[roundID]
	if !ok {
		return ReplaceResult{}, fmt.Errorf("%w: round %q", model.ErrNotFound, roundID)
	}

	// Validate the new set before touching anything.
	raters := make(map[string]struct{}, len(assignments))
	for _, a := range assignments {
		if a.RoundID != roundID {
			return ReplaceResult{}, fmt.Errorf("%w: assignment %q belongs to round %q", model.ErrInvalidPayload, a.ID, a.RoundID)
		}
		if _, dup := raters[a.RaterID]; dup {
			return ReplaceResult{}, fmt.Errorf("%w: rater %q assigned twice", model.ErrConflict, a.RaterID)
		}
		raters[a.RaterID] = struct{}{}
	}

	var res ReplaceResult
	old := make(map[string]struct{}, len(r.AssignmentIDs))
	for id, a := range s.assignments {
		if a.RoundID != roundID {
			continue
		}
		old[id] = struct{}{}
		delete(s.assignments, id)
		delete(s.byRater, raterKey{roundID: roundID, raterID: a.RaterID})
		res.Replaced++
	}
	for id, fb := range s.feedback {
		if _, gone := old[fb.AssignmentID]; !gone {
			continue
		}
		delete(s.feedback, id)
		delete(s.byFeedback, feedbackKey{assignmentID: fb.AssignmentID, rateeID: fb.RateeID})
		res.DiscardedFeedback++
	}

	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		a.RateeIDs = slices.Clone(a.RateeIDs)
		s.assignments[a.ID] = a
		s.byRater[raterKey{roundID: roundID, raterID: a.RaterID}] = a.ID
		ids = append(ids, a.ID)
		res.Inserted++
	}
	r.AssignmentIDs = ids
	r.UpdatedAt = at
	s.rounds[roundID] = r
	return res, nil
}

// ListAssignments returns a round's assignments in the order of the round's list.
func (s *MemoryStore) ListAssignments(ctx context.Context, roundID string) ([]model.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	r, ok := s.rounds[roundID]
	if !ok {
		return nil, fmt.Errorf("%w: round %q", model.ErrNotFound, roundID)
	}
	out := make([]model.Assignment, 0, len(r.AssignmentIDs))
	for _, id := range r.AssignmentIDs {
		if a, ok := s.assignments[id]; ok {
			a.RateeIDs = slices.Clone(a.RateeIDs)
			out = append(out, a)
		}
	}
	return out, nil
}

// GetAssignment returns an assignment by id.
func (s *MemoryStore) GetAssignment(ctx context.Context, id string) (model.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return model.Assignment{}, err
	}
	a, ok := s.assignments[id]
	if !ok {
		return model.Assignment{}, fmt.Errorf("%w: assignment %q", model.ErrNotFound, id)
	}
	a.RateeIDs = slices.Clone(a.RateeIDs)
	return a, nil
}

// GetAssignmentForRater returns the rater's assignment in a round.
func (s *MemoryStore) GetAssignmentForRater(ctx context.Context, roundID, raterID string) (model.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return model.Assignment{}, err
	}
	id, ok := s.byRater[raterKey{roundID: roundID, raterID: raterID}]
	if !ok {
		return model.Assignment{}, fmt.Errorf("%w: no assignment for rater %q", model.ErrNotFound, raterID)
	}
	a := s.assignments[id]
	a.RateeIDs = slices.Clone(a.RateeIDs)
	return a, nil
}

// CreateFeedback inserts feedback, enforcing (assignment, ratee) uniqueness.
func (s *MemoryStore) CreateFeedback(ctx context.Context, fb model.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	if _, ok := s.assignments[fb.AssignmentID]; !ok {
		return fmt.Errorf("%w: assignment %q", model.ErrNotFound, fb.AssignmentID)
	}
	key := feedbackKey{assignmentID: fb.AssignmentID, rateeID: fb.RateeID}
	if _, dup := s.byFeedback[key]; dup {
		return fmt.Errorf("%w: assignment %q ratee %q", model.ErrDuplicateSubmission, fb.AssignmentID, fb.RateeID)
	}
	fb.Strengths = slices.Clone(fb.Strengths)
	s.feedback[fb.ID] = fb
	s.byFeedback[key] = fb.ID
	return nil
}

// ListFeedbackByRound returns a round's feedback oldest first.
func (s *MemoryStore) ListFeedbackByRound(ctx context.Context, roundID string) ([]model.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Feedback, 0)
	for _, fb := range s.feedback {
		if fb.RoundID == roundID {
			fb.Strengths = slices.Clone(fb.Strengths)
			out = append(out, fb)
		}
	}
	slices.SortFunc(out, func(a, b model.Feedback) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// CountFeedbackByAssignment counts feedback rows per assignment of a round.
func (s *MemoryStore) CountFeedbackByAssignment(ctx context.Context, roundID string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, fb := range s.feedback {
		if fb.RoundID == roundID {
			out[fb.AssignmentID]++
		}
	}
	return out, nil
}

// Ping reports whether the store is open.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.check(ctx)
}

// Close marks the store unavailable.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func cloneRound(r model.Round) model.Round {
	r.AssignmentIDs = slices.Clone(r.AssignmentIDs)
	return r
}
