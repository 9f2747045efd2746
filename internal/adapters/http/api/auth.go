package api

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const teamIDKey contextKey = "team_id"

// requireAuth resolves the bearer token to a team and stores its id on the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	const op = "api.auth"
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearerToken(r.Header.Get("Authorization"))
		if err != nil {
			s.fail(w, r, WrapKind(op, ErrUnauthorized, err))
			return
		}
		teamID, err := s.deps.Authenticate(r.Context(), raw)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), teamIDKey, teamID)))
	}
}

func teamFromContext(ctx context.Context) string {
	id, _ := ctx.Value(teamIDKey).(string)
	return id
}

func bearerToken(header string) (string, error) {
	const op = "api.bearer"
	if header == "" {
		return "", NewKind(op, errMissingAuthHeader)
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", NewKind(op, errInvalidAuthHeader)
	}
	if parts[1] == "" {
		return "", NewKind(op, errEmptyToken)
	}
	return parts[1], nil
}
