// Package postgres implements repository.Store on PostgreSQL with pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/pulse/internal/adapters/repository"
	"github.com/okian/pulse/internal/domain/model"
)

// SQLSTATE codes the store translates.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// Store implements repository.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ repository.Store = (*Store)(nil)

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
	}
	s := New(pool)
	if err := s.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", model.ErrStoreUnavailable, err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// mapError translates pgx failures into model kinds. unique is returned for
// unique violations; foreign key violations become model.ErrNotFound.
func mapError(err error, unique error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %w", model.ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", unique, pgErr.ConstraintName)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", model.ErrNotFound, pgErr.ConstraintName)
		case codeCheckViolation:
			return fmt.Errorf("%w: %s", model.ErrInvalidPayload, pgErr.ConstraintName)
		}
		return err
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
	}
	return err
}

// CreateTeam inserts a team.
func (s *Store) CreateTeam(ctx context.Context, team model.Team) error {
	const query = `INSERT INTO teams (id, name, code, credential_hash, created_at)
		VALUES ($1, $2, UPPER($3), $4, $5)`
	_, err := s.pool.Exec(ctx, query, team.ID, team.Name, team.Code, team.CredentialHash, team.CreatedAt)
	return mapError(err, model.ErrConflict)
}

// GetTeam returns a team by id.
func (s *Store) GetTeam(ctx context.Context, id string) (model.Team, error) {
	const query = `SELECT id, name, code, credential_hash, created_at FROM teams WHERE id = $1`
	return s.scanTeam(s.pool.QueryRow(ctx, query, id))
}

// GetTeamByCode returns a team by join code.
func (s *Store) GetTeamByCode(ctx context.Context, code string) (model.Team, error) {
	const query = `SELECT id, name, code, credential_hash, created_at FROM teams WHERE code = UPPER($1)`
	return s.scanTeam(s.pool.QueryRow(ctx, query, code))
}

func (s *Store) scanTeam(row pgx.Row) (model.Team, error) {
	var t model.Team
	if err := row.Scan(&t.ID, &t.Name, &t.Code, &t.CredentialHash, &t.CreatedAt); err != nil {
		return model.Team{}, mapError(err, model.ErrConflict)
	}
	return t, nil
}

// CreatePlayer inserts a player.
func (s *Store) CreatePlayer(ctx context.Context, p model.Player) error {
	const query = `INSERT INTO players (id, team_id, name, email, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := s.pool.Exec(ctx, query, p.ID, p.TeamID, p.Name, p.Email, p.CreatedAt)
	return mapError(err, model.ErrConflict)
}

// ListPlayers returns a team's players ordered by name.
func (s *Store) ListPlayers(ctx context.Context, teamID string) ([]model.Player, error) {
	const query = `SELECT id, team_id, name, email, created_at FROM players
		WHERE team_id = $1 ORDER BY name, id`
	rows, err := s.pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, mapError(err, model.ErrConflict)
	}
	defer rows.Close()

	players := make([]model.Player, 0)
	for rows.Next() {
		var p model.Player
		if err := rows.Scan(&p.ID, &p.TeamID, &p.Name, &p.Email, &p.CreatedAt); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, mapError(rows.Err(), model.ErrConflict)
}

const roundColumns = `r.id, r.team_id, r.name, r.status, r.start_date, r.end_date, r.created_at, r.updated_at,
	ARRAY(SELECT a.id FROM assignments a WHERE a.round_id = r.id ORDER BY a.position)`

func scanRound(row pgx.Row) (model.Round, error) {
	var r model.Round
	var status string
	if err := row.Scan(&r.ID, &r.TeamID, &r.Name, &status, &r.StartDate, &r.EndDate, &r.CreatedAt, &r.UpdatedAt, &r.AssignmentIDs); err != nil {
		return model.Round{}, err
	}
	r.Status = model.RoundStatus(status)
	return r, nil
}

// CreateRound inserts a round.
func (s *Store) CreateRound(ctx context.Context, r model.Round) error {
	const query = `INSERT INTO rounds (id, team_id, name, status, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.pool.Exec(ctx, query, r.ID, r.TeamID, r.Name, string(r.Status), r.StartDate, r.EndDate, r.CreatedAt, r.UpdatedAt)
	if mapped := mapError(err, model.ErrConflict); mapped != nil {
		if errors.Is(mapped, model.ErrInvalidPayload) {
			return fmt.Errorf("%w: %w", model.ErrInvalidDateRange, mapped)
		}
		return mapped
	}
	return nil
}

// GetRound returns a round with its assignment ids.
func (s *Store) GetRound(ctx context.Context, id string) (model.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds r WHERE r.id = $1`
	r, err := scanRound(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return model.Round{}, mapError(err, model.ErrConflict)
	}
	return r, nil
}

// ListRounds returns a team's rounds newest first.
func (s *Store) ListRounds(ctx context.Context, teamID string, status model.RoundStatus) ([]model.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds r
		WHERE r.team_id = $1 AND ($2 = '' OR r.status = $2)
		ORDER BY r.created_at DESC, r.id`
	rows, err := s.pool.Query(ctx, query, teamID, string(status))
	if err != nil {
		return nil, mapError(err, model.ErrConflict)
	}
	defer rows.Close()

	rounds := make([]model.Round, 0)
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, r)
	}
	return rounds, mapError(rows.Err(), model.ErrConflict)
}

// UpdateRoundStatus performs a compare-and-set on the round status.
func (s *Store) UpdateRoundStatus(ctx context.Context, id string, from, to model.RoundStatus, at time.Time) error {
	const update = `UPDATE rounds SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	tag, err := s.pool.Exec(ctx, update, id, string(from), string(to), at)
	if err != nil {
		return mapError(err, model.ErrConflict)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var current string
	if err := s.pool.QueryRow(ctx, `SELECT status FROM rounds WHERE id = $1`, id).Scan(&current); err != nil {
		return mapError(err, model.ErrConflict)
	}
	return &model.TransitionError{From: model.RoundStatus(current), To: to}
}

// ReplaceAssignments swaps a round's assignments in one transaction.
func (s *Store) ReplaceAssignments(ctx context.Context, roundID string, assignments []model.Assignment, at time.Time) (repository.ReplaceResult, error) {
	var res repository.ReplaceResult

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return res, mapError(err, model.ErrConflict)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock the round so concurrent regenerations serialize.
	var locked string
	if err := tx.QueryRow(ctx, `SELECT id FROM rounds WHERE id = $1 FOR UPDATE`, roundID).Scan(&locked); err != nil {
		return res, mapError(err, model.ErrConflict)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM feedback
		WHERE assignment_id IN (SELECT id FROM assignments WHERE round_id = $1)`, roundID)
	if err != nil {
		return res, mapError(err, model.ErrConflict)
	}
	res.DiscardedFeedback = int(tag.RowsAffected())

	tag, err = tx.Exec(ctx, `DELETE FROM assignments WHERE round_id = $1`, roundID)
	if err != nil {
		return res, mapError(err, model.ErrConflict)
	}
	res.Replaced = int(tag.RowsAffected())

	if len(assignments) > 0 {
		const insert = `INSERT INTO assignments (id, round_id, rater_id, ratee_ids, position, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`
		batch := &pgx.Batch{}
		for i, a := range assignments {
			if a.RoundID != roundID {
				return repository.ReplaceResult{}, fmt.Errorf("%w: assignment %q belongs to round %q", model.ErrInvalidPayload, a.ID, a.RoundID)
			}
			batch.Queue(insert, a.ID, roundID, a.RaterID, a.RateeIDs, i, a.CreatedAt)
		}
		br := tx.SendBatch(ctx, batch)
		for range assignments {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return repository.ReplaceResult{}, mapError(err, model.ErrConflict)
			}
		}
		if err := br.Close(); err != nil {
			return repository.ReplaceResult{}, mapError(err, model.ErrConflict)
		}
	}
	res.Inserted = len(assignments)

	if _, err := tx.Exec(ctx, `UPDATE rounds SET updated_at = $2 WHERE id = $1`, roundID, at); err != nil {
		return repository.ReplaceResult{}, mapError(err, model.ErrConflict)
	}
	if err := tx.Commit(ctx); err != nil {
		return repository.ReplaceResult{}, mapError(err, model.ErrConflict)
	}
	return res, nil
}

const assignmentColumns = `id, round_id, rater_id, ratee_ids, created_at`

func scanAssignment(row pgx.Row) (model.Assignment, error) {
	var a model.Assignment
	if err := row.Scan(&a.ID, &a.RoundID, &a.RaterID, &a.RateeIDs, &a.CreatedAt); err != nil {
		return model.Assignment{}, err
	}
	return a, nil
}

// ListAssignments returns a round's assignments in generation order.
func (s *Store) ListAssignments(ctx context.Context, roundID string) ([]model.Assignment, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rounds WHERE id = $1)`, roundID).Scan(&exists); err != nil {
		return nil, mapError(err, model.ErrConflict)
	}
	if !exists {
		return nil, fmt.Errorf("%w: round %q", model.ErrNotFound, roundID)
	}

	rows, err := s.pool.Query(ctx, `SELECT `+assignmentColumns+` FROM assignments
		WHERE round_id = $1 ORDER BY position`, roundID)
	if err != nil {
		return nil, mapError(err, model.ErrConflict)
	}
	defer rows.Close()

	out := make([]model.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, mapError(rows.Err(), model.ErrConflict)
}

// GetAssignment returns an assignment by id.
func (s *Store) GetAssignment(ctx context.Context, id string) (model.Assignment, error) {
	a, err := scanAssignment(s.pool.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id))
	if err != nil {
		return model.Assignment{}, mapError(err, model.ErrConflict)
	}
	return a, nil
}

// GetAssignmentForRater returns the rater's assignment in a round.
func (s *Store) GetAssignmentForRater(ctx context.Context, roundID, raterID string) (model.Assignment, error) {
	a, err := scanAssignment(s.pool.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM assignments
		WHERE round_id = $1 AND rater_id = $2`, roundID, raterID))
	if err != nil {
		return model.Assignment{}, mapError(err, model.ErrConflict)
	}
	return a, nil
}

// CreateFeedback inserts feedback; the unique (assignment_id, ratee_id)
// constraint decides concurrent submissions.
func (s *Store) CreateFeedback(ctx context.Context, fb model.Feedback) error {
	const query = `INSERT INTO feedback (id, assignment_id, round_id, rater_id, ratee_id, strengths, improvement, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.pool.Exec(ctx, query, fb.ID, fb.AssignmentID, fb.RoundID, fb.RaterID, fb.RateeID, fb.Strengths, fb.Improvement, fb.CreatedAt)
	return mapError(err, model.ErrDuplicateSubmission)
}

// ListFeedbackByRound returns a round's feedback oldest first.
func (s *Store) ListFeedbackByRound(ctx context.Context, roundID string) ([]model.Feedback, error) {
	const query = `SELECT id, assignment_id, round_id, rater_id, ratee_id, strengths, improvement, created_at
		FROM feedback WHERE round_id = $1 ORDER BY created_at, id`
	rows, err := s.pool.Query(ctx, query, roundID)
	if err != nil {
		return nil, mapError(err, model.ErrConflict)
	}
	defer rows.Close()

	out := make([]model.Feedback, 0)
	for rows.Next() {
		var fb model.Feedback
		if err := rows.Scan(&fb.ID, &fb.AssignmentID, &fb.RoundID, &fb.RaterID, &fb.RateeID, &fb.Strengths, &fb.Improvement, &fb.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, fb)
	}
	return out, mapError(rows.Err(), model.ErrConflict)
}

// CountFeedbackByAssignment counts feedback rows per assignment of a round.
func (s *Store) CountFeedbackByAssignment(ctx context.Context, roundID string) (map[string]int, error) {
	const query = `SELECT assignment_id, COUNT(1) FROM feedback WHERE round_id = $1 GROUP BY assignment_id`
	rows, err := s.pool.Query(ctx, query, roundID)
	if err != nil {
		return nil, mapError(err, model.ErrConflict)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, mapError(rows.Err(), model.ErrConflict)
}
