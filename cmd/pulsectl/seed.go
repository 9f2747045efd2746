package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/pulse/internal/adapters/repository/postgres"
	service "github.com/okian/pulse/internal/app"
	"github.com/okian/pulse/internal/config"
	"github.com/okian/pulse/internal/seed"
)

var (
	seedTeamName   string
	seedTeamCode   string
	seedCredential string
	seedPlayers    []string
	seedRound      string
)

func init() {
	seedCmd.Flags().StringVar(&seedTeamName, "name", "", "team display name (defaults to the code)")
	seedCmd.Flags().StringVar(&seedTeamCode, "code", "", "team join code (required)")
	seedCmd.Flags().StringVar(&seedCredential, "credential", "", "team credential (required)")
	seedCmd.Flags().StringSliceVar(&seedPlayers, "players", nil, "comma separated player names")
	seedCmd.Flags().StringVar(&seedRound, "round", "", "also create a DRAFT round with this name")

	_ = seedCmd.MarkFlagRequired("code")
	_ = seedCmd.MarkFlagRequired("credential")
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a team and its players in the postgres store",
	Long: `Create a team, add players that are not on the roster yet and optionally a
DRAFT round. Existing teams are reused, so seeding is safe to repeat.

The memory store lives inside the server process; use the server's
PULSE_SEED_TEAM_* settings for it instead.

Examples:
  pulsectl seed --code EAGLE --credential letmein --players Anna,Bram,Cees,Daan
  pulsectl seed --code EAGLE --credential letmein --round "Week 12"`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if cfg.Store != config.StorePostgres {
		return fmt.Errorf("%w: seed needs store=postgres, got %q", config.ErrInvalidConfig, cfg.Store)
	}
	store, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	name := seedTeamName
	if name == "" {
		name = seedTeamCode
	}
	res, err := seed.Apply(ctx, service.New(store), seed.Plan{
		TeamName:   name,
		TeamCode:   seedTeamCode,
		Credential: seedCredential,
		Players:    seedPlayers,
		Round:      seedRound,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	state := "existing"
	if res.CreatedTeam {
		state = "created"
	}
	fmt.Fprintf(out, "team %s (%s): %s\n", res.Team.Code, res.Team.ID, state)
	for _, p := range res.AddedPlayers {
		fmt.Fprintf(out, "  player %s (%s)\n", p.Name, p.ID)
	}
	if res.RoundID != "" {
		fmt.Fprintf(out, "  round %s\n", res.RoundID)
	}
	return nil
}
