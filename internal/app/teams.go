package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/internal/domain/types"
	"github.com/okian/pulse/pkg/credential"
	"github.com/okian/pulse/pkg/logger"
)

// CreateTeam registers a team with a hashed join credential.
func (s *Service) CreateTeam(ctx context.Context, in CreateTeamInput) (model.Team, error) {
	if err := in.Validate(); err != nil {
		return model.Team{}, err
	}
	hash, err := s.hasher.Hash(in.Credential)
	if err != nil {
		return model.Team{}, fmt.Errorf("hash credential: %w", err)
	}
	team := model.Team{
		ID:             s.newID(),
		Name:           in.Name,
		Code:           in.Code,
		CredentialHash: hash,
		CreatedAt:      s.now(),
	}
	if err := s.store.CreateTeam(ctx, team); err != nil {
		return model.Team{}, s.storeErr("create_team", fmt.Errorf("create team %s: %w", in.Code, err))
	}
	s.logger.Info(ctx, "team created", logger.String("team_id", team.ID), logger.String("code", team.Code))
	return team, nil
}

// Login checks a team credential and issues a bearer token.
func (s *Service) Login(ctx context.Context, in LoginInput) (types.LoginResult, error) {
	if err := in.Validate(); err != nil {
		return types.LoginResult{}, err
	}
	if s.tokens == nil {
		return types.LoginResult{}, fmt.Errorf("%w: login is not configured", model.ErrUnauthorized)
	}
	team, err := s.store.GetTeamByCode(ctx, in.TeamCode)
	if errors.Is(err, model.ErrNotFound) {
		s.logger.Warn(ctx, "login rejected", logger.String("code", in.TeamCode), logger.String("reason", "unknown team"))
		return types.LoginResult{}, model.ErrUnauthorized
	}
	if err != nil {
		return types.LoginResult{}, s.storeErr("get_team", fmt.Errorf("lookup team: %w", err))
	}
	if err := s.hasher.Compare(team.CredentialHash, in.Credential); err != nil {
		if !errors.Is(err, credential.ErrMismatch) {
			s.logger.Error(ctx, "credential check failed", logger.String("team_id", team.ID), logger.Error(err))
		}
		s.logger.Warn(ctx, "login rejected", logger.String("code", in.TeamCode), logger.String("reason", "bad credential"))
		return types.LoginResult{}, model.ErrUnauthorized
	}

	raw, expires, err := s.tokens.Issue(team.ID, team.Code)
	if err != nil {
		return types.LoginResult{}, err
	}
	s.logger.Info(ctx, "team logged in", logger.String("team_id", team.ID))
	return types.LoginResult{Token: raw, TeamID: team.ID, ExpiresAt: expires}, nil
}

// Authenticate resolves a bearer token to its team id.
func (s *Service) Authenticate(_ context.Context, raw string) (string, error) {
	if s.tokens == nil || raw == "" {
		return "", model.ErrUnauthorized
	}
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrUnauthorized, err)
	}
	return claims.TeamID, nil
}

// AddPlayer adds a member to the team.
func (s *Service) AddPlayer(ctx context.Context, teamID string, in AddPlayerInput) (model.Player, error) {
	if err := in.Validate(); err != nil {
		return model.Player{}, err
	}
	p := model.Player{
		ID:        s.newID(),
		TeamID:    teamID,
		Name:      in.Name,
		Email:     in.Email,
		CreatedAt: s.now(),
	}
	if err := s.store.CreatePlayer(ctx, p); err != nil {
		return model.Player{}, s.storeErr("create_player", fmt.Errorf("add player: %w", err))
	}
	s.logger.Info(ctx, "player added", logger.String("team_id", teamID), logger.String("player_id", p.ID))
	return p, nil
}

// ListPlayers returns the team's players ordered by name.
func (s *Service) ListPlayers(ctx context.Context, teamID string) ([]model.Player, error) {
	players, err := s.store.ListPlayers(ctx, teamID)
	if err != nil {
		return nil, s.storeErr("list_players", fmt.Errorf("list players: %w", err))
	}
	return players, nil
}

// TeamByCode looks a team up by its join code in any case.
func (s *Service) TeamByCode(ctx context.Context, code string) (model.Team, error) {
	team, err := s.store.GetTeamByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return model.Team{}, s.storeErr("get_team", fmt.Errorf("lookup team %s: %w", code, err))
	}
	return team, nil
}
