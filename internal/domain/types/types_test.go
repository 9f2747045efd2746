package types_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/okian/pulse/internal/domain/model"
	types "github.com/okian/pulse/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewRoundSummary(t *testing.T) {
	Convey("Given a round with assignments", t, func() {
		start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
		r := model.Round{
			ID:            "r-1",
			TeamID:        "t-1",
			Name:          "Week 2",
			Status:        model.StatusOpen,
			StartDate:     &start,
			AssignmentIDs: []string{"a", "b", "c"},
		}

		s := types.NewRoundSummary(r)

		Convey("Then the summary reflects it", func() {
			So(s.ID, ShouldEqual, "r-1")
			So(s.Status, ShouldEqual, model.StatusOpen)
			So(s.AssignmentCount, ShouldEqual, 3)
			So(s.StartDate, ShouldEqual, &start)
			So(s.EndDate, ShouldBeNil)
		})

		Convey("Then optional dates are omitted from JSON", func() {
			b, err := json.Marshal(s)
			So(err, ShouldBeNil)
			So(string(b), ShouldContainSubstring, `"startDate"`)
			So(string(b), ShouldNotContainSubstring, `"endDate"`)
			So(string(b), ShouldContainSubstring, `"status":"OPEN"`)
		})
	})
}
