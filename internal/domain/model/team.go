package model

import "time"

// Team owns players and rounds. Members join with Code and a shared credential.
type Team struct {
	ID             string
	Name           string
	Code           string
	CredentialHash []byte
	CreatedAt      time.Time
}

// Player is a member of exactly one team.
type Player struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"teamId"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
