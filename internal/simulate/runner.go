package simulate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	service "github.com/okian/pulse/internal/app"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/internal/domain/types"
	"github.com/okian/pulse/pkg/logger"
)

// Defaults applied to zero Config fields.
const (
	defaultPlayers  = 6
	defaultPerRater = 2
	defaultWorkers  = 4
	defaultTimeout  = 10 * time.Second
)

// ErrVerification is returned when the server's read views disagree with what was submitted.
var ErrVerification = errors.New("verification failed")

func (c *Config) withDefaults() Config {
	out := *c
	if out.Players <= 0 {
		out.Players = defaultPlayers
	}
	if out.PerRater <= 0 {
		out.PerRater = defaultPerRater
	}
	if out.Workers <= 0 {
		out.Workers = defaultWorkers
	}
	if out.Timeout <= 0 {
		out.Timeout = defaultTimeout
	}
	return out
}

// Run logs in, fills the roster, opens a round, submits feedback for every
// assigned pair and checks progress, summary and themes against the submissions.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	cfg := config.withDefaults()
	log := logger.Named("simulate")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting simulated round",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("perRater", cfg.PerRater),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	c := newClient(cfg.BaseURL, cfg.Timeout)
	gen := newGenerator(cfg.Seed)

	if err := c.do(ctx, http.MethodGet, "/healthz", nil, nil); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	var login types.LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", service.LoginInput{TeamCode: cfg.TeamCode, Credential: cfg.Credential}, &login); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	c.token = login.Token

	if err := fillRoster(ctx, c, gen, cfg.Players); err != nil {
		return nil, err
	}

	var round types.RoundSummary
	name := "Simulated " + time.Now().UTC().Format(time.DateTime)
	if err := c.do(ctx, http.MethodPost, "/rounds", map[string]string{"name": name}, &round); err != nil {
		return nil, fmt.Errorf("create round: %w", err)
	}
	stats.RoundID = round.ID
	base := "/rounds/" + round.ID

	if err := c.do(ctx, http.MethodPost, base+"/assign", map[string]int{"perRater": cfg.PerRater}, nil); err != nil {
		return nil, fmt.Errorf("generate assignments: %w", err)
	}
	if err := c.do(ctx, http.MethodPut, base+"/status", map[string]string{"status": string(model.StatusOpen)}, nil); err != nil {
		return nil, fmt.Errorf("open round: %w", err)
	}

	var listing struct {
		Assignments []types.AssignmentView `json:"assignments"`
	}
	if err := c.do(ctx, http.MethodGet, base+"/assignments", nil, &listing); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	stats.Assignments = len(listing.Assignments)

	var submissions []service.SubmitFeedbackInput
	for _, a := range listing.Assignments {
		for _, ratee := range a.Ratees {
			submissions = append(submissions, service.SubmitFeedbackInput{
				AssignmentID: a.AssignmentID,
				RateeID:      ratee.ID,
				Strengths:    gen.strengths(),
				Improvement:  gen.improvement(),
			})
		}
	}
	if cfg.Duplicates && len(submissions) > 0 {
		submissions = append(submissions, submissions[0])
	}

	submitFeedback(ctx, c, &cfg, submissions, stats)

	if err := verify(ctx, c, base, stats); err != nil {
		return stats, err
	}

	if cfg.Close {
		if err := c.do(ctx, http.MethodPut, base+"/status", map[string]string{"status": string(model.StatusClosed)}, nil); err != nil {
			return stats, fmt.Errorf("close round: %w", err)
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logStats(ctx, log, stats)
	return stats, nil
}

// fillRoster adds generated players until the team has at least n.
func fillRoster(ctx context.Context, c *client, gen *generator, n int) error {
	var roster struct {
		Players []model.Player `json:"players"`
	}
	if err := c.do(ctx, http.MethodGet, "/players", nil, &roster); err != nil {
		return fmt.Errorf("list players: %w", err)
	}
	taken := make(map[string]bool, len(roster.Players))
	for _, p := range roster.Players {
		taken[p.Name] = true
	}
	for i, have := 0, len(roster.Players); have < n; i++ {
		name := gen.playerName(i)
		if taken[name] {
			continue
		}
		if err := c.do(ctx, http.MethodPost, "/players", service.AddPlayerInput{Name: name}, nil); err != nil {
			return fmt.Errorf("add player %q: %w", name, err)
		}
		taken[name] = true
		have++
	}
	return nil
}

// submitFeedback posts submissions concurrently using a worker pool.
func submitFeedback(ctx context.Context, c *client, cfg *Config, submissions []service.SubmitFeedbackInput, stats *Stats) {
	var submitted, successful, duplicate, rejected, failed int64

	jobs := make(chan service.SubmitFeedbackInput, cfg.Workers*2)
	var wg sync.WaitGroup
	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for in := range jobs {
				err := c.do(ctx, http.MethodPost, "/feedback", in, nil)
				atomic.AddInt64(&submitted, 1)
				switch status := statusOf(err); {
				case err == nil:
					atomic.AddInt64(&successful, 1)
				case status == http.StatusConflict:
					atomic.AddInt64(&duplicate, 1)
				case status >= http.StatusBadRequest && status < http.StatusInternalServerError:
					atomic.AddInt64(&rejected, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

send:
	for _, in := range submissions {
		select {
		case <-ctx.Done():
			break send
		case jobs <- in:
		}
	}
	close(jobs)
	wg.Wait()

	stats.FeedbackSubmitted = int(submitted)
	stats.FeedbackSuccessful = int(successful)
	stats.FeedbackDuplicate = int(duplicate)
	stats.FeedbackRejected = int(rejected)
	stats.FeedbackFailed = int(failed)
}

func logStats(ctx context.Context, log logger.Logger, stats *Stats) {
	log.Info(ctx, "final statistics",
		logger.String("roundId", stats.RoundID),
		logger.Int("assignments", stats.Assignments),
		logger.Int("feedbackSubmitted", stats.FeedbackSubmitted),
		logger.Int("feedbackSuccessful", stats.FeedbackSuccessful),
		logger.Int("feedbackDuplicate", stats.FeedbackDuplicate),
		logger.Int("feedbackRejected", stats.FeedbackRejected),
		logger.Int("feedbackFailed", stats.FeedbackFailed),
		logger.Int("progressPercent", stats.ProgressPercent),
		logger.Int("themes", stats.Themes),
		logger.Int("unrecognized", stats.Unrecognized),
		logger.Duration("duration", stats.Duration))
}
