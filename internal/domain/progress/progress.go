// Package progress computes completion statistics for a round.
package progress

import "math"

// Row is one assignment with the number of feedback rows stored against it.
type Row struct {
	AssignmentID string
	RaterID      string
	RaterName    string
	Ratees       int
	Completed    int
}

// PlayerProgress is the per-rater breakdown.
type PlayerProgress struct {
	AssignmentID    string `json:"assignmentId"`
	PlayerID        string `json:"playerId"`
	PlayerName      string `json:"playerName"`
	Completed       int    `json:"completed"`
	Total           int    `json:"total"`
	PercentComplete int    `json:"percentComplete"`
}

// Summary buckets raters by completion.
type Summary struct {
	CompletedAll int `json:"completedAll"`
	Partial      int `json:"partial"`
	NotStarted   int `json:"notStarted"`
	TotalPlayers int `json:"totalPlayers"`
}

// Report is the completion state of a round.
type Report struct {
	Completed      int              `json:"completed"`
	TotalNeeded    int              `json:"totalNeeded"`
	Percent        int              `json:"percent"`
	PlayerProgress []PlayerProgress `json:"playerProgress"`
	Summary        Summary          `json:"summary"`
}

// Percent returns round(completed/total*100), half away from zero, or 0 when total is 0.
func Percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) * 100 / float64(total)))
}

// Aggregate folds assignment rows into a Report. Rows keep their input order.
func Aggregate(rows []Row) Report {
	rep := Report{PlayerProgress: make([]PlayerProgress, 0, len(rows))}
	for _, r := range rows {
		rep.TotalNeeded += r.Ratees
		rep.Completed += r.Completed

		rep.PlayerProgress = append(rep.PlayerProgress, PlayerProgress{
			AssignmentID:    r.AssignmentID,
			PlayerID:        r.RaterID,
			PlayerName:      r.RaterName,
			Completed:       r.Completed,
			Total:           r.Ratees,
			PercentComplete: Percent(r.Completed, r.Ratees),
		})

		switch {
		case r.Completed <= 0 || r.Ratees <= 0:
			rep.Summary.NotStarted++
		case r.Completed >= r.Ratees:
			rep.Summary.CompletedAll++
		default:
			rep.Summary.Partial++
		}
	}
	rep.Summary.TotalPlayers = len(rows)
	rep.Percent = Percent(rep.Completed, rep.TotalNeeded)
	return rep
}
