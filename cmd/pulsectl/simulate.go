package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/pulse/internal/simulate"
)

var simCfg simulate.Config

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simCfg.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	f.StringVar(&simCfg.TeamCode, "code", "", "team join code (required)")
	f.StringVar(&simCfg.Credential, "credential", "", "team credential (required)")
	f.IntVar(&simCfg.Players, "players", 6, "minimum roster size")
	f.IntVar(&simCfg.PerRater, "per-rater", 2, "ratees per rater")
	f.IntVar(&simCfg.Workers, "workers", runtime.NumCPU(), "concurrent submitters")
	f.DurationVar(&simCfg.Timeout, "timeout", 10*time.Second, "HTTP request timeout")
	f.BoolVar(&simCfg.Duplicates, "duplicates", true, "resubmit one pair to check duplicate rejection")
	f.BoolVar(&simCfg.Close, "close", false, "close the round afterwards")
	f.Int64Var(&simCfg.Seed, "seed", 0, "seed for generated names and phrases")

	_ = simulateCmd.MarkFlagRequired("code")
	_ = simulateCmd.MarkFlagRequired("credential")
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a complete feedback round against a live server",
	Long: `Log in as a team, fill the roster, open a round, submit feedback for every
assigned pair concurrently and check progress, summary and themes.

Examples:
  pulsectl simulate --code EAGLE --credential letmein
  pulsectl simulate --url http://localhost:8080 --code EAGLE --credential letmein --players 12 --per-rater 3`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		stats, err := simulate.Run(cmd.Context(), &simCfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "round %s: %d/%d accepted, %d duplicate, progress %d%%, %d themes in %s\n",
			stats.RoundID, stats.FeedbackSuccessful, stats.FeedbackSubmitted, stats.FeedbackDuplicate,
			stats.ProgressPercent, stats.Themes, stats.Duration.Round(time.Millisecond))
		return nil
	},
}
