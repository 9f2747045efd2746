// Package service implements the feedback-round operations used by the HTTP API
// and the operator CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pulse/internal/adapters/repository"
	"github.com/okian/pulse/internal/domain/assignment"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/internal/domain/themes"
	"github.com/okian/pulse/pkg/credential"
	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
	"github.com/okian/pulse/pkg/token"
)

// Emitter receives domain events. Emit must not block.
type Emitter interface {
	Emit(ctx context.Context, e model.Event)
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, model.Event) {}

// Service implements the API dependencies for team feedback rounds.
type Service struct {
	store     repository.Store
	generator *assignment.Generator
	clusterer *themes.Clusterer
	events    Emitter
	hasher    credential.Hasher
	tokens    *token.Issuer

	defaultPerRater int
	now             func() time.Time
	newID           func() string

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithGenerator sets the assignment generator.
func WithGenerator(g *assignment.Generator) Option {
	return func(s *Service) {
		if g != nil {
			s.generator = g
		}
	}
}

// WithClusterer sets the theme clusterer.
func WithClusterer(c *themes.Clusterer) Option {
	return func(s *Service) {
		if c != nil {
			s.clusterer = c
		}
	}
}

// WithEmitter sets where domain events go.
func WithEmitter(e Emitter) Option {
	return func(s *Service) {
		if e != nil {
			s.events = e
		}
	}
}

// WithHasher sets the credential hasher.
func WithHasher(h credential.Hasher) Option {
	return func(s *Service) { s.hasher = h }
}

// WithTokenIssuer enables Login and Authenticate.
func WithTokenIssuer(i *token.Issuer) Option {
	return func(s *Service) { s.tokens = i }
}

// WithDefaultPerRater sets the fan-out used when a request does not name one.
func WithDefaultPerRater(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.defaultPerRater = k
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides entity id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:           store,
		events:          noopEmitter{},
		hasher:          credential.NewHasher(0),
		defaultPerRater: assignment.DefaultPerRater,
		now:             func() time.Time { return time.Now().UTC() },
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.generator == nil {
		s.generator = assignment.New()
	}
	if s.clusterer == nil {
		s.clusterer = themes.NewClusterer(nil)
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	return s
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Themes returns the dictionary the service clusters against.
func (s *Service) Themes() []themes.Definition {
	return s.clusterer.Dictionary().Definitions()
}

// ownedRound loads a round and hides rounds of other teams behind ErrNotFound.
func (s *Service) ownedRound(ctx context.Context, teamID, roundID string) (model.Round, error) {
	r, err := s.store.GetRound(ctx, roundID)
	if err != nil {
		return model.Round{}, s.storeErr("get_round", fmt.Errorf("round %s: %w", roundID, err))
	}
	if r.TeamID != teamID {
		return model.Round{}, fmt.Errorf("round %s: %w", roundID, model.ErrNotFound)
	}
	return r, nil
}

func (s *Service) emit(ctx context.Context, e model.Event) { //nolint:gocritic // hugeParam: events are values
	e.ID = s.newID()
	if e.OccurredAt.IsZero() {
		e.OccurredAt = s.now()
	}
	s.events.Emit(ctx, e)
}

// storeErr records backend failures and passes err through.
func (s *Service) storeErr(op string, err error) error {
	if errors.Is(err, model.ErrStoreUnavailable) {
		metrics.RecordStoreError(op)
		metrics.RecordErrorByComponent("store", op)
	}
	return err
}
