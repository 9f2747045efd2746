package progress_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/pulse/internal/domain/progress"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPercent(t *testing.T) {
	Convey("Given completed and total counts", t, func() {
		So(progress.Percent(0, 0), ShouldEqual, 0)
		So(progress.Percent(3, 0), ShouldEqual, 0)
		So(progress.Percent(0, 2), ShouldEqual, 0)
		So(progress.Percent(1, 2), ShouldEqual, 50)
		So(progress.Percent(1, 3), ShouldEqual, 33)
		So(progress.Percent(2, 3), ShouldEqual, 67)
		So(progress.Percent(1, 8), ShouldEqual, 13) // 12.5 rounds away from zero
		So(progress.Percent(3, 3), ShouldEqual, 100)
	})
}

func TestAggregate(t *testing.T) {
	Convey("Given a single assignment A -> [B, C]", t, func() {
		rows := []progress.Row{{AssignmentID: "as-1", RaterID: "A", RaterName: "Anna", Ratees: 2}}

		Convey("When no feedback is stored", func() {
			rep := progress.Aggregate(rows)

			Convey("Then nothing is complete", func() {
				So(rep.Completed, ShouldEqual, 0)
				So(rep.TotalNeeded, ShouldEqual, 2)
				So(rep.Percent, ShouldEqual, 0)
				So(rep.Summary.NotStarted, ShouldEqual, 1)
			})
		})

		Convey("When one feedback for B is stored", func() {
			rows[0].Completed = 1
			rep := progress.Aggregate(rows)

			Convey("Then the round is half done", func() {
				So(rep.Completed, ShouldEqual, 1)
				So(rep.TotalNeeded, ShouldEqual, 2)
				So(rep.Percent, ShouldEqual, 50)
				So(rep.Summary.Partial, ShouldEqual, 1)
				So(rep.PlayerProgress[0].PercentComplete, ShouldEqual, 50)
			})
		})
	})

	Convey("Given a round without assignments", t, func() {
		rep := progress.Aggregate(nil)

		Convey("Then the report is empty and percent is zero", func() {
			So(rep.Percent, ShouldEqual, 0)
			So(rep.TotalNeeded, ShouldEqual, 0)
			So(rep.PlayerProgress, ShouldBeEmpty)
			So(rep.Summary.TotalPlayers, ShouldEqual, 0)
		})
	})

	Convey("Given raters in every state", t, func() {
		rows := []progress.Row{
			{AssignmentID: "1", RaterID: "A", RaterName: "Anna", Ratees: 2, Completed: 2},
			{AssignmentID: "2", RaterID: "B", RaterName: "Bram", Ratees: 2, Completed: 1},
			{AssignmentID: "3", RaterID: "C", RaterName: "Cor", Ratees: 2},
			{AssignmentID: "4", RaterID: "D", RaterName: "Dewi", Ratees: 0},
		}
		rep := progress.Aggregate(rows)

		Convey("Then totals, buckets and breakdown agree", func() {
			want := progress.Report{
				Completed:   3,
				TotalNeeded: 6,
				Percent:     50,
				PlayerProgress: []progress.PlayerProgress{
					{AssignmentID: "1", PlayerID: "A", PlayerName: "Anna", Completed: 2, Total: 2, PercentComplete: 100},
					{AssignmentID: "2", PlayerID: "B", PlayerName: "Bram", Completed: 1, Total: 2, PercentComplete: 50},
					{AssignmentID: "3", PlayerID: "C", PlayerName: "Cor", Completed: 0, Total: 2, PercentComplete: 0},
					{AssignmentID: "4", PlayerID: "D", PlayerName: "Dewi", Completed: 0, Total: 0, PercentComplete: 0},
				},
				Summary: progress.Summary{CompletedAll: 1, Partial: 1, NotStarted: 2, TotalPlayers: 4},
			}
			So(cmp.Diff(want, rep), ShouldBeEmpty)
		})
	})
}
