package simulate

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/pulse/internal/domain/progress"
	"github.com/okian/pulse/internal/domain/themes"
	"github.com/okian/pulse/internal/domain/types"
)

// bulletsPerFeedback is two strengths plus one improvement.
const bulletsPerFeedback = 3

// verify reads progress, summary and themes back and checks them against the accepted submissions.
func verify(ctx context.Context, c *client, base string, stats *Stats) error {
	var rep progress.Report
	if err := c.do(ctx, http.MethodGet, base+"/progress", nil, &rep); err != nil {
		return fmt.Errorf("get progress: %w", err)
	}
	stats.ProgressPercent = rep.Percent
	if rep.Completed != stats.FeedbackSuccessful {
		return fmt.Errorf("%w: progress counts %d submissions, %d were accepted", ErrVerification, rep.Completed, stats.FeedbackSuccessful)
	}
	if stats.FeedbackFailed == 0 && stats.FeedbackRejected == 0 && rep.Percent != 100 {
		return fmt.Errorf("%w: progress is %d%% after every pair was submitted", ErrVerification, rep.Percent)
	}

	var sum types.Summary
	if err := c.do(ctx, http.MethodPost, base+"/summary", nil, &sum); err != nil {
		return fmt.Errorf("get summary: %w", err)
	}
	stats.TeamBullets = len(sum.TeamBullets)
	if want := stats.FeedbackSuccessful * bulletsPerFeedback; stats.TeamBullets != want {
		return fmt.Errorf("%w: summary has %d bullets, want %d", ErrVerification, stats.TeamBullets, want)
	}

	var th themes.Report
	if err := c.do(ctx, http.MethodGet, base+"/themes", nil, &th); err != nil {
		return fmt.Errorf("get themes: %w", err)
	}
	stats.Themes = len(th.Themes)
	stats.Unrecognized = th.UnrecognizedCount
	if th.TotalFeedback != stats.TeamBullets {
		return fmt.Errorf("%w: themes saw %d snippets, summary has %d", ErrVerification, th.TotalFeedback, stats.TeamBullets)
	}
	return nil
}
