// Package assignment pairs each player of a roster with teammates to rate.
package assignment

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/pulse/internal/domain/model"
)

// Fan-out bounds.
const (
	DefaultPerRater = 2
	MinPerRater     = 1
	MaxPerRater     = 3
	minRoster       = 2
)

// Plan is the set of ratees for one rater, before it is persisted.
type Plan struct {
	RaterID  string
	RateeIDs []string
}

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithRand replaces the random source, e.g. with a seeded one in tests.
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) {
		if r != nil {
			g.rng = r
		}
	}
}

// WithSeed seeds the random source for reproducible plans.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // pairing is not security sensitive
	}
}

// Generator builds rater -> ratees plans. Safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Generator backed by a time-seeded source unless overridden.
func New(opts ...Option) *Generator {
	g := &Generator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // pairing is not security sensitive
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ClampPerRater resolves an optional requested fan-out to [MinPerRater, MaxPerRater].
// nil yields fallback, itself clamped.
func ClampPerRater(requested *int, fallback int) int {
	k := fallback
	if requested != nil {
		k = *requested
	}
	return min(max(k, MinPerRater), MaxPerRater)
}

// Generate returns one plan per distinct roster entry, in roster order.
// Each rater gets min(k, n-1) distinct teammates drawn uniformly at random,
// never themself. Balance of incoming reviews is not attempted.
func (g *Generator) Generate(roster []string, k int) ([]Plan, error) {
	players := dedupe(roster)
	if len(players) < minRoster {
		return nil, fmt.Errorf("%w: roster has %d", model.ErrInsufficientPlayers, len(players))
	}
	k = min(max(k, MinPerRater), MaxPerRater)
	take := min(k, len(players)-1)

	g.mu.Lock()
	defer g.mu.Unlock()

	plans := make([]Plan, 0, len(players))
	candidates := make([]string, 0, len(players)-1)
	for _, rater := range players {
		candidates = candidates[:0]
		for _, p := range players {
			if p != rater {
				candidates = append(candidates, p)
			}
		}
		g.rng.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
		ratees := make([]string, take)
		copy(ratees, candidates[:take])
		plans = append(plans, Plan{RaterID: rater, RateeIDs: ratees})
	}
	return plans, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
