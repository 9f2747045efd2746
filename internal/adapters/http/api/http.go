// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/pulse/internal/adapters/ratelimit"
	service "github.com/okian/pulse/internal/app"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/internal/domain/progress"
	"github.com/okian/pulse/internal/domain/themes"
	"github.com/okian/pulse/internal/domain/types"
	"github.com/okian/pulse/pkg/logger"
)

const (
	maxBodyBytes       = 1 << 20
	defaultRateWindow  = time.Minute
	defaultLoginLimit  = 10
	defaultSubmitLimit = 60
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Pinger

	Login(ctx context.Context, in service.LoginInput) (types.LoginResult, error)
	Authenticate(ctx context.Context, token string) (string, error)

	AddPlayer(ctx context.Context, teamID string, in service.AddPlayerInput) (model.Player, error)
	ListPlayers(ctx context.Context, teamID string) ([]model.Player, error)

	CreateRound(ctx context.Context, teamID string, in service.CreateRoundInput) (types.RoundSummary, error)
	ListRounds(ctx context.Context, teamID string, status model.RoundStatus) ([]types.RoundSummary, error)
	GetRound(ctx context.Context, teamID, roundID string) (types.RoundSummary, error)
	TransitionRoundStatus(ctx context.Context, teamID, roundID string, target model.RoundStatus) (types.TransitionResult, error)

	GenerateAssignments(ctx context.Context, teamID, roundID string, perRater *int) (types.GenerateResult, error)
	ListAssignments(ctx context.Context, teamID, roundID string) ([]types.AssignmentView, error)
	GetAssignmentForRater(ctx context.Context, teamID, roundID, raterID string) (types.AssignmentView, error)
	GetProgress(ctx context.Context, teamID, roundID string) (progress.Report, error)

	SubmitFeedback(ctx context.Context, teamID string, in service.SubmitFeedbackInput) (types.SubmitResult, error)
	ListRoundFeedback(ctx context.Context, teamID, roundID string, filter service.FeedbackFilter) (types.FeedbackListing, error)
	Summary(ctx context.Context, teamID, roundID string) (types.Summary, error)
	ExportCSV(ctx context.Context, teamID, roundID string, w io.Writer) error
	GetThemes(ctx context.Context, teamID, roundID string) (themes.Report, error)
	Themes() []themes.Definition
}

// Server wires HTTP routes for the feedback API.
type Server struct {
	deps    Dependencies
	health  *HealthHandler
	limiter ratelimit.Limiter

	loginLimit  int
	submitLimit int
	rateWindow  time.Duration

	logger logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLimiter enables rate limiting on login and feedback submission.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(s *Server) { s.limiter = l }
}

// WithRateLimits sets per-window request budgets. Zero disables a limit.
func WithRateLimits(login, submit int, window time.Duration) Option {
	return func(s *Server) {
		s.loginLimit = login
		s.submitLimit = submit
		if window > 0 {
			s.rateWindow = window
		}
	}
}

// WithLogger sets a custom logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:        deps,
		health:      NewHealthHandler(deps),
		loginLimit:  defaultLoginLimit,
		submitLimit: defaultSubmitLimit,
		rateWindow:  defaultRateWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("http")
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	handle := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(h, endpoint))
	}

	handle("GET /healthz", "healthz", s.health.HandleHealth)
	mux.HandleFunc("GET /metrics", s.health.HandleMetrics)

	handle("POST /auth/login", "login",
		s.withRateLimit("login", s.loginLimit, rateLimitKeyIP, s.handleLogin))

	handle("GET /themes", "themes", s.requireAuth(s.handleThemeDictionary))

	handle("GET /players", "players", s.requireAuth(s.handleListPlayers))
	handle("POST /players", "players", s.requireAuth(s.handleAddPlayer))

	handle("GET /rounds", "rounds", s.requireAuth(s.handleListRounds))
	handle("POST /rounds", "rounds", s.requireAuth(s.handleCreateRound))
	handle("GET /rounds/{id}", "round", s.requireAuth(s.handleGetRound))
	handle("PUT /rounds/{id}/status", "round_status", s.requireAuth(s.handleTransition))
	handle("POST /rounds/{id}/assign", "round_assign", s.requireAuth(s.handleGenerate))
	handle("GET /rounds/{id}/assignments", "round_assignments", s.requireAuth(s.handleListAssignments))
	handle("GET /rounds/{id}/assignments/{raterId}", "round_assignment", s.requireAuth(s.handleAssignmentForRater))
	handle("GET /rounds/{id}/progress", "round_progress", s.requireAuth(s.handleProgress))
	handle("GET /rounds/{id}/themes", "round_themes", s.requireAuth(s.handleThemes))
	handle("GET /rounds/{id}/feedback", "round_feedback", s.requireAuth(s.handleListFeedback))
	handle("POST /rounds/{id}/summary", "round_summary", s.requireAuth(s.handleSummary))
	handle("GET /rounds/{id}/export.csv", "round_export", s.requireAuth(s.handleExport))

	handle("POST /feedback", "feedback", s.requireAuth(
		s.withRateLimit("feedback", s.submitLimit, rateLimitKeyTeam, s.handleSubmitFeedback)))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fail writes err with the status its kind maps to. Server errors hide their cause.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads a JSON body into v. An empty body is allowed when optional is set.
func decodeJSON(r *http.Request, v any, optional bool) error {
	const op = "api.decode"
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return WrapKind(op, ErrBadRequest, fmt.Errorf("malformed JSON body: %w", err))
	}
	return nil
}
