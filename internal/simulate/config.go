// Package simulate drives a complete feedback round against a running server over HTTP.
package simulate

import "time"

// Config holds configuration for a simulated round.
type Config struct {
	BaseURL    string        // Base URL of the service
	TeamCode   string        // Team to log in as
	Credential string        // Team credential
	Players    int           // Minimum roster size; missing players are added
	PerRater   int           // Ratees per rater
	Workers    int           // Concurrent feedback submitters
	Timeout    time.Duration // HTTP request timeout
	Duplicates bool          // Resubmit one pair to check duplicate rejection
	Close      bool          // Close the round when done
	Seed       int64         // Seed for generated names and phrases; zero picks one
}

// Stats holds run statistics.
type Stats struct {
	RoundID            string
	Assignments        int
	FeedbackSubmitted  int
	FeedbackSuccessful int
	FeedbackDuplicate  int
	FeedbackRejected   int
	FeedbackFailed     int
	ProgressPercent    int
	TeamBullets        int
	Themes             int
	Unrecognized       int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
