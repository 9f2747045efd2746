// Package seed creates a team and its roster, skipping whatever already exists.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	service "github.com/okian/pulse/internal/app"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
)

// Plan describes the team to create.
type Plan struct {
	TeamName   string
	TeamCode   string
	Credential string
	Players    []string
	// Round, when set, creates a DRAFT round with this name.
	Round string
}

// Result reports what Apply created.
type Result struct {
	Team         model.Team
	CreatedTeam  bool
	AddedPlayers []model.Player
	RoundID      string
}

// Apply creates the team unless its code is taken, then adds the players whose
// names are not on the roster yet. Names compare case-insensitively.
func Apply(ctx context.Context, svc *service.Service, p Plan) (Result, error) {
	log := logger.Named("seed")
	var res Result

	team, err := svc.CreateTeam(ctx, service.CreateTeamInput{Name: p.TeamName, Code: p.TeamCode, Credential: p.Credential})
	switch {
	case err == nil:
		res.CreatedTeam = true
	case errors.Is(err, model.ErrConflict):
		if team, err = svc.TeamByCode(ctx, p.TeamCode); err != nil {
			return res, err
		}
		log.Info(ctx, "team exists", logger.String("team_id", team.ID), logger.String("code", team.Code))
	default:
		return res, fmt.Errorf("create team: %w", err)
	}
	res.Team = team

	existing, err := svc.ListPlayers(ctx, team.ID)
	if err != nil {
		return res, err
	}
	have := make(map[string]bool, len(existing))
	for _, pl := range existing {
		have[strings.ToLower(pl.Name)] = true
	}
	for _, name := range p.Players {
		name = strings.TrimSpace(name)
		if name == "" || have[strings.ToLower(name)] {
			continue
		}
		pl, err := svc.AddPlayer(ctx, team.ID, service.AddPlayerInput{Name: name})
		if err != nil {
			return res, fmt.Errorf("add player %q: %w", name, err)
		}
		have[strings.ToLower(name)] = true
		res.AddedPlayers = append(res.AddedPlayers, pl)
	}

	if p.Round != "" {
		r, err := svc.CreateRound(ctx, team.ID, service.CreateRoundInput{Name: p.Round})
		if err != nil {
			return res, fmt.Errorf("create round: %w", err)
		}
		res.RoundID = r.ID
	}

	log.Info(ctx, "seed applied",
		logger.String("team_id", team.ID),
		logger.Bool("created_team", res.CreatedTeam),
		logger.Int("added_players", len(res.AddedPlayers)),
	)
	return res, nil
}
