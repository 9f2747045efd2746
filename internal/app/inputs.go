package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/okian/pulse/internal/domain/model"
)

// Input limits.
const (
	minNameLen     = 2
	maxNameLen     = 120
	minCodeLen     = 3
	maxCodeLen     = 16
	minCredential  = 4
	minFeedbackLen = 2
	maxFeedbackLen = 280
	strengthsCount = 2
)

var emailPattern = regexp.MustCompile(`^.+@.+\..+$`) //nolint:gochecknoglobals // compiled once

// CreateTeamInput registers a team.
type CreateTeamInput struct {
	Name       string
	Code       string
	Credential string
}

// Validate trims fields and checks their bounds.
func (in *CreateTeamInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	if err := checkName(in.Name); err != nil {
		return err
	}
	if n := utf8.RuneCountInString(in.Code); n < minCodeLen || n > maxCodeLen {
		return fmt.Errorf("%w: team code must be %d to %d characters", model.ErrInvalidPayload, minCodeLen, maxCodeLen)
	}
	if utf8.RuneCountInString(in.Credential) < minCredential {
		return fmt.Errorf("%w: credential must be at least %d characters", model.ErrInvalidPayload, minCredential)
	}
	return nil
}

// LoginInput exchanges a team code and credential for a token.
type LoginInput struct {
	TeamCode   string `json:"teamCode"`
	Credential string `json:"credential"`
}

// Validate requires both fields.
func (in *LoginInput) Validate() error {
	in.TeamCode = strings.ToUpper(strings.TrimSpace(in.TeamCode))
	if in.TeamCode == "" || in.Credential == "" {
		return fmt.Errorf("%w: teamCode and credential are required", model.ErrInvalidPayload)
	}
	return nil
}

// AddPlayerInput adds a member to a team.
type AddPlayerInput struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Validate trims fields and checks the optional email.
func (in *AddPlayerInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := checkName(in.Name); err != nil {
		return err
	}
	if in.Email != "" && !emailPattern.MatchString(in.Email) {
		return fmt.Errorf("%w: malformed email", model.ErrInvalidPayload)
	}
	return nil
}

// CreateRoundInput opens a new round in DRAFT.
type CreateRoundInput struct {
	Name      string     `json:"name"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

// Validate checks the name and, when both are set, that start is before end.
func (in *CreateRoundInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if err := checkName(in.Name); err != nil {
		return err
	}
	if in.StartDate != nil && in.EndDate != nil && !in.StartDate.Before(*in.EndDate) {
		return model.ErrInvalidDateRange
	}
	return nil
}

// SubmitFeedbackInput is one rater's feedback on one ratee.
type SubmitFeedbackInput struct {
	AssignmentID string   `json:"assignmentId"`
	RateeID      string   `json:"rateeId"`
	Strengths    []string `json:"strengths"`
	Improvement  string   `json:"improvement"`
}

// Validate requires exactly two strengths and an improvement, each 2 to 280 characters after trimming.
func (in *SubmitFeedbackInput) Validate() error {
	in.AssignmentID = strings.TrimSpace(in.AssignmentID)
	in.RateeID = strings.TrimSpace(in.RateeID)
	if in.AssignmentID == "" || in.RateeID == "" {
		return fmt.Errorf("%w: assignmentId and rateeId are required", model.ErrInvalidPayload)
	}
	if len(in.Strengths) != strengthsCount {
		return fmt.Errorf("%w: exactly %d strengths are required, got %d", model.ErrInvalidPayload, strengthsCount, len(in.Strengths))
	}
	strengths := make([]string, len(in.Strengths))
	for i, s := range in.Strengths {
		strengths[i] = strings.TrimSpace(s)
		if err := checkFeedbackText("strength", strengths[i]); err != nil {
			return err
		}
	}
	in.Strengths = strengths
	in.Improvement = strings.TrimSpace(in.Improvement)
	return checkFeedbackText("improvement", in.Improvement)
}

// FeedbackFilter narrows a feedback listing.
type FeedbackFilter struct {
	// Type is "strengths", "improvement" or empty for both.
	Type     string
	PlayerID string
}

// Feedback listing kinds.
const (
	FilterStrengths   = "strengths"
	FilterImprovement = "improvement"
)

// Validate rejects unknown types.
func (f *FeedbackFilter) Validate() error {
	f.Type = strings.ToLower(strings.TrimSpace(f.Type))
	switch f.Type {
	case "", FilterStrengths, FilterImprovement:
		return nil
	default:
		return fmt.Errorf("%w: unknown feedback type %q", model.ErrInvalidPayload, f.Type)
	}
}

func checkName(name string) error {
	if n := utf8.RuneCountInString(name); n < minNameLen || n > maxNameLen {
		return fmt.Errorf("%w: must be %d to %d characters", model.ErrInvalidName, minNameLen, maxNameLen)
	}
	return nil
}

func checkFeedbackText(field, text string) error {
	if n := utf8.RuneCountInString(text); n < minFeedbackLen || n > maxFeedbackLen {
		return fmt.Errorf("%w: %s must be %d to %d characters", model.ErrInvalidPayload, field, minFeedbackLen, maxFeedbackLen)
	}
	return nil
}
