package themes

import (
	"fmt"
	"strings"

	"github.com/okian/pulse/internal/domain/model"
)

// ItemsFromFeedback flattens feedback into snippets: one per strength and one
// for the improvement. Blank texts are skipped.
func ItemsFromFeedback(feedback []model.Feedback) []Item {
	items := make([]Item, 0, len(feedback)*3)
	for _, fb := range feedback {
		for i, s := range fb.Strengths {
			if strings.TrimSpace(s) == "" {
				continue
			}
			items = append(items, Item{
				ID:        fmt.Sprintf("%s_strength_%d", fb.ID, i),
				Content:   s,
				Type:      TypeStrength,
				CreatedAt: fb.CreatedAt,
			})
		}
		if strings.TrimSpace(fb.Improvement) != "" {
			items = append(items, Item{
				ID:        fb.ID + "_improvement",
				Content:   fb.Improvement,
				Type:      TypeImprovement,
				CreatedAt: fb.CreatedAt,
			})
		}
	}
	return items
}
