package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/crypto/bcrypt"

	"github.com/okian/pulse/internal/adapters/repository"
	service "github.com/okian/pulse/internal/app"
	"github.com/okian/pulse/internal/domain/assignment"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/credential"
	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/token"
)

func init() {
	if err := logger.Init(logger.WithOutput(&bytes.Buffer{})); err != nil {
		panic(err)
	}
}

// stepClock returns a strictly increasing time on every call.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type recorder struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *recorder) Emit(_ context.Context, e model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []model.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recorder) last() model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type fixture struct {
	ctx     context.Context
	svc     *service.Service
	store   *repository.MemoryStore
	events  *recorder
	team    model.Team
	players []model.Player
}

// newFixture creates team EAGLE with the given players and a service over a memory store.
func newFixture(names ...string) *fixture {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	issuer, err := token.NewIssuer("test-secret", time.Hour)
	So(err, ShouldBeNil)

	var seq int
	var mu sync.Mutex
	events := &recorder{}
	svc := service.New(store,
		service.WithGenerator(assignment.New(assignment.WithSeed(42))),
		service.WithEmitter(events),
		service.WithHasher(credential.NewHasher(bcrypt.MinCost)),
		service.WithTokenIssuer(issuer),
		service.WithClock((&stepClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}).Now),
		service.WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("id-%03d", seq)
		}),
	)

	team, err := svc.CreateTeam(ctx, service.CreateTeamInput{Name: "Eagles", Code: "eagle", Credential: "letmein"})
	So(err, ShouldBeNil)

	f := &fixture{ctx: ctx, svc: svc, store: store, events: events, team: team}
	for _, name := range names {
		p, err := svc.AddPlayer(ctx, team.ID, service.AddPlayerInput{Name: name})
		So(err, ShouldBeNil)
		f.players = append(f.players, p)
	}
	return f
}

// openRound creates a round, generates assignments with fan-out k and opens it.
func (f *fixture) openRound(k int) string {
	r, err := f.svc.CreateRound(f.ctx, f.team.ID, service.CreateRoundInput{Name: "Week 1"})
	So(err, ShouldBeNil)
	_, err = f.svc.GenerateAssignments(f.ctx, f.team.ID, r.ID, &k)
	So(err, ShouldBeNil)
	_, err = f.svc.TransitionRoundStatus(f.ctx, f.team.ID, r.ID, model.StatusOpen)
	So(err, ShouldBeNil)
	return r.ID
}

func validFeedback(assignmentID, rateeID string) service.SubmitFeedbackInput {
	return service.SubmitFeedbackInput{
		AssignmentID: assignmentID,
		RateeID:      rateeID,
		Strengths:    []string{"Altijd op tijd en doet wat hij zegt", "Werkt hard"},
		Improvement:  "Kan beter luisteren",
	}
}

func TestTeamsAndLogin(t *testing.T) {
	Convey("Given a registered team", t, func() {
		f := newFixture()

		Convey("Then its code is stored upper-cased with a hashed credential", func() {
			So(f.team.Code, ShouldEqual, "EAGLE")
			So(string(f.team.CredentialHash), ShouldNotEqual, "letmein")
		})

		Convey("When logging in with the right credential", func() {
			res, err := f.svc.Login(f.ctx, service.LoginInput{TeamCode: "Eagle", Credential: "letmein"})
			So(err, ShouldBeNil)

			Convey("Then the token authenticates as the team", func() {
				teamID, err := f.svc.Authenticate(f.ctx, res.Token)
				So(err, ShouldBeNil)
				So(teamID, ShouldEqual, f.team.ID)
				So(res.TeamID, ShouldEqual, f.team.ID)
			})
		})

		Convey("When logging in with a wrong credential or unknown code", func() {
			_, errWrong := f.svc.Login(f.ctx, service.LoginInput{TeamCode: "EAGLE", Credential: "nope"})
			_, errUnknown := f.svc.Login(f.ctx, service.LoginInput{TeamCode: "HAWK", Credential: "letmein"})

			Convey("Then both are unauthorized", func() {
				So(errors.Is(errWrong, model.ErrUnauthorized), ShouldBeTrue)
				So(errors.Is(errUnknown, model.ErrUnauthorized), ShouldBeTrue)
			})
		})

		Convey("When a garbage token is presented", func() {
			_, err := f.svc.Authenticate(f.ctx, "garbage")
			So(errors.Is(err, model.ErrUnauthorized), ShouldBeTrue)
		})

		Convey("When the same code is registered again", func() {
			_, err := f.svc.CreateTeam(f.ctx, service.CreateTeamInput{Name: "Other", Code: "EAGLE", Credential: "secret"})
			So(errors.Is(err, model.ErrConflict), ShouldBeTrue)
		})

		Convey("When team input is invalid", func() {
			_, err := f.svc.CreateTeam(f.ctx, service.CreateTeamInput{Name: "X", Code: "HAWK", Credential: "secret"})
			So(errors.Is(err, model.ErrInvalidName), ShouldBeTrue)
			_, err = f.svc.CreateTeam(f.ctx, service.CreateTeamInput{Name: "Hawks", Code: "HK", Credential: "secret"})
			So(errors.Is(err, model.ErrInvalidPayload), ShouldBeTrue)
		})
	})
}

func TestPlayers(t *testing.T) {
	Convey("Given a team", t, func() {
		f := newFixture("Daan", "Anna")

		Convey("Then players list by name", func() {
			players, err := f.svc.ListPlayers(f.ctx, f.team.ID)
			So(err, ShouldBeNil)
			So(players[0].Name, ShouldEqual, "Anna")
			So(players[1].Name, ShouldEqual, "Daan")
		})

		Convey("When a player has a malformed email", func() {
			_, err := f.svc.AddPlayer(f.ctx, f.team.ID, service.AddPlayerInput{Name: "Eva", Email: "eva-at-home"})
			So(errors.Is(err, model.ErrInvalidPayload), ShouldBeTrue)
		})

		Convey("When a player has a valid email", func() {
			p, err := f.svc.AddPlayer(f.ctx, f.team.ID, service.AddPlayerInput{Name: " Eva ", Email: "eva@example.nl"})
			So(err, ShouldBeNil)
			So(p.Name, ShouldEqual, "Eva")
		})
	})
}

func TestRounds(t *testing.T) {
	Convey("Given a team", t, func() {
		f := newFixture("Anna", "Bram")

		Convey("When a round is created", func() {
			r, err := f.svc.CreateRound(f.ctx, f.team.ID, service.CreateRoundInput{Name: "  Sprint 12  "})
			So(err, ShouldBeNil)

			Convey("Then it starts in DRAFT and announces itself", func() {
				So(r.Status, ShouldEqual, model.StatusDraft)
				So(r.Name, ShouldEqual, "Sprint 12")
				So(f.events.last().Type, ShouldEqual, model.EventRoundCreated)
			})

			Convey("Then it walks DRAFT -> OPEN -> CLOSED reporting the previous status", func() {
				res, err := f.svc.TransitionRoundStatus(f.ctx, f.team.ID, r.ID, model.StatusOpen)
				So(err, ShouldBeNil)
				So(res.Previous, ShouldEqual, model.StatusDraft)
				So(res.Round.Status, ShouldEqual, model.StatusOpen)

				ev := f.events.last()
				So(ev.Type, ShouldEqual, model.EventRoundStatusChanged)
				So(ev.From, ShouldEqual, model.StatusDraft)
				So(ev.To, ShouldEqual, model.StatusOpen)

				res, err = f.svc.TransitionRoundStatus(f.ctx, f.team.ID, r.ID, model.StatusClosed)
				So(err, ShouldBeNil)
				So(res.Previous, ShouldEqual, model.StatusOpen)
			})

			Convey("Then illegal moves fail with the attempted pair", func() {
				_, err := f.svc.TransitionRoundStatus(f.ctx, f.team.ID, r.ID, model.StatusClosed)
				var te *model.TransitionError
				So(errors.As(err, &te), ShouldBeTrue)
				So(te.From, ShouldEqual, model.StatusDraft)
				So(te.To, ShouldEqual, model.StatusClosed)

				_, err = f.svc.TransitionRoundStatus(f.ctx, f.team.ID, r.ID, model.StatusDraft)
				So(errors.Is(err, model.ErrInvalidTransition), ShouldBeTrue)

				got, err := f.svc.GetRound(f.ctx, f.team.ID, r.ID)
				So(err, ShouldBeNil)
				So(got.Status, ShouldEqual, model.StatusDraft)
			})

			Convey("Then another team cannot see it", func() {
				other, err := f.svc.CreateTeam(f.ctx, service.CreateTeamInput{Name: "Hawks", Code: "HAWK", Credential: "secret"})
				So(err, ShouldBeNil)
				_, err = f.svc.GetRound(f.ctx, other.ID, r.ID)
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
				_, err = f.svc.TransitionRoundStatus(f.ctx, other.ID, r.ID, model.StatusOpen)
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			})

			Convey("Then rounds list newest first and filter by status", func() {
				_, err := f.svc.CreateRound(f.ctx, f.team.ID, service.CreateRoundInput{Name: "Sprint 13"})
				So(err, ShouldBeNil)
				all, err := f.svc.ListRounds(f.ctx, f.team.ID, "")
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 2)
				So(all[0].Name, ShouldEqual, "Sprint 13")

				open, err := f.svc.ListRounds(f.ctx, f.team.ID, model.StatusOpen)
				So(err, ShouldBeNil)
				So(open, ShouldBeEmpty)
			})
		})

		Convey("When round input is invalid", func() {
			_, err := f.svc.CreateRound(f.ctx, f.team.ID, service.CreateRoundInput{Name: "X"})
			So(errors.Is(err, model.ErrInvalidName), ShouldBeTrue)

			start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
			_, err = f.svc.CreateRound(f.ctx, f.team.ID, service.CreateRoundInput{Name: "Week", StartDate: &start, EndDate: &start})
			So(errors.Is(err, model.ErrInvalidDateRange), ShouldBeTrue)
		})

		Convey("When the team does not exist", func() {
			_, err := f.svc.CreateRound(f.ctx, "missing", service.CreateRoundInput{Name: "Week"})
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestGenerateAssignments(t *testing.T) {
	Convey("Given a team of four with a DRAFT round", t, func() {
		f := newFixture("Anna", "Bram", "Cees", "Daan")
		r, err := f.svc.CreateRound(f.ctx, f.team.ID, service.CreateRoundInput{Name: "Week 1"})
		So(err, ShouldBeNil)

		Convey("When assignments are generated with the default fan-out", func() {
			res, err := f.svc.GenerateAssignments(f.ctx, f.team.ID, r.ID, nil)
			So(err, ShouldBeNil)

			Convey("Then every player rates two distinct teammates", func() {
				So(res.Count, ShouldEqual, 4)
				list, err := f.svc.ListAssignments(f.ctx, f.team.ID, r.ID)
				So(err, ShouldBeNil)
				So(len(list), ShouldEqual, 4)
				raters := map[string]bool{}
				for _, a := range list {
					So(raters[a.Rater.ID], ShouldBeFalse)
					raters[a.Rater.ID] = true
					So(a.Rater.Name, ShouldNotBeEmpty)
					So(len(a.Ratees), ShouldEqual, 2)
					So(a.Ratees[0].ID, ShouldNotEqual, a.Ratees[1].ID)
					for _, ratee := range a.Ratees {
						So(ratee.ID, ShouldNotEqual, a.Rater.ID)
					}
				}
				got, _ := f.svc.GetRound(f.ctx, f.team.ID, r.ID)
				So(got.AssignmentCount, ShouldEqual, 4)
			})

			Convey("Then regenerating replaces the set and reports discarded feedback", func() {
				_, err := f.svc.TransitionRoundStatus(f.ctx, f.team.ID, r.ID, model.StatusOpen)
				So(err, ShouldBeNil)
				a, err := f.svc.GetAssignmentForRater(f.ctx, f.team.ID, r.ID, f.players[0].ID)
				So(err, ShouldBeNil)
				_, err = f.svc.SubmitFeedback(f.ctx, f.team.ID, validFeedback(a.AssignmentID, a.Ratees[0].ID))
				So(err, ShouldBeNil)

				k := 3
				res, err := f.svc.GenerateAssignments(f.ctx, f.team.ID, r.ID, &k)
				So(err, ShouldBeNil)
				So(res.Count, ShouldEqual, 4)
				So(res.Replaced, ShouldEqual, 4)
				So(res.DiscardedFeedback, ShouldEqual, 1)

				list, _ := f.svc.ListAssignments(f.ctx, f.team.ID, r.ID)
				So(len(list), ShouldEqual, 4)
				So(len(list[0].Ratees), ShouldEqual, 3)

				prog, _ := f.svc.GetProgress(f.ctx, f.team.ID, r.ID)
				So(prog.Completed, ShouldEqual, 0)
			})
		})

		Convey("When the requested fan-out is out of range", func() {
			k := 9
			_, err := f.svc.GenerateAssignments(f.ctx, f.team.ID, r.ID, &k)
			So(err, ShouldBeNil)

			Convey("Then it is clamped to three", func() {
				a, err := f.svc.GetAssignmentForRater(f.ctx, f.team.ID, r.ID, f.players[1].ID)
				So(err, ShouldBeNil)
				So(len(a.Ratees), ShouldEqual, 3)
				So(f.events.last().Type, ShouldEqual, model.EventAssignmentsGenerated)
				So(f.events.last().Count, ShouldEqual, 4)
			})
		})

		Convey("When the round is closed", func() {
			_, _ = f.svc.TransitionRoundStatus(f.ctx, f.team.ID, r.ID, model.StatusOpen)
			_, _ = f.svc.TransitionRoundStatus(f.ctx, f.team.ID, r.ID, model.StatusClosed)
			_, err := f.svc.GenerateAssignments(f.ctx, f.team.ID, r.ID, nil)
			So(errors.Is(err, model.ErrRoundClosed), ShouldBeTrue)
		})

		Convey("When the rater has no assignment", func() {
			_, err := f.svc.GetAssignmentForRater(f.ctx, f.team.ID, r.ID, f.players[0].ID)
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given a team of one", t, func() {
		f := newFixture("Solo")
		r, err := f.svc.CreateRound(f.ctx, f.team.ID, service.CreateRoundInput{Name: "Week 1"})
		So(err, ShouldBeNil)

		_, err = f.svc.GenerateAssignments(f.ctx, f.team.ID, r.ID, nil)
		So(errors.Is(err, model.ErrInsufficientPlayers), ShouldBeTrue)
	})
}

func TestProgress(t *testing.T) {
	Convey("Given an open round of three players rating two teammates each", t, func() {
		f := newFixture("Anna", "Bram", "Cees")
		roundID := f.openRound(2)

		Convey("When nothing is submitted", func() {
			p, err := f.svc.GetProgress(f.ctx, f.team.ID, roundID)
			So(err, ShouldBeNil)
			So(p.Completed, ShouldEqual, 0)
			So(p.TotalNeeded, ShouldEqual, 6)
			So(p.Percent, ShouldEqual, 0)
			So(p.Summary.NotStarted, ShouldEqual, 3)
		})

		Convey("When one rater finishes", func() {
			a, err := f.svc.GetAssignmentForRater(f.ctx, f.team.ID, roundID, f.players[0].ID)
			So(err, ShouldBeNil)
			for _, ratee := range a.Ratees {
				_, err := f.svc.SubmitFeedback(f.ctx, f.team.ID, validFeedback(a.AssignmentID, ratee.ID))
				So(err, ShouldBeNil)
			}

			Convey("Then totals and buckets reflect it", func() {
				p, err := f.svc.GetProgress(f.ctx, f.team.ID, roundID)
				So(err, ShouldBeNil)
				So(p.Completed, ShouldEqual, 2)
				So(p.Percent, ShouldEqual, 33)
				So(p.Summary.CompletedAll, ShouldEqual, 1)
				So(p.Summary.NotStarted, ShouldEqual, 2)
				So(p.PlayerProgress[0].PlayerName, ShouldEqual, "Anna")
				So(p.PlayerProgress[0].PercentComplete, ShouldEqual, 100)
			})
		})

		Convey("When the round has no assignments", func() {
			r, err := f.svc.CreateRound(f.ctx, f.team.ID, service.CreateRoundInput{Name: "Empty"})
			So(err, ShouldBeNil)
			p, err := f.svc.GetProgress(f.ctx, f.team.ID, r.ID)
			So(err, ShouldBeNil)
			So(p.Percent, ShouldEqual, 0)
			So(p.TotalNeeded, ShouldEqual, 0)
		})
	})
}

func TestSubmitFeedback(t *testing.T) {
	Convey("Given an open round", t, func() {
		f := newFixture("Anna", "Bram", "Cees")
		roundID := f.openRound(1)
		a, err := f.svc.GetAssignmentForRater(f.ctx, f.team.ID, roundID, f.players[0].ID)
		So(err, ShouldBeNil)
		ratee := a.Ratees[0].ID

		Convey("When feedback is submitted twice for the same ratee", func() {
			first, err := f.svc.SubmitFeedback(f.ctx, f.team.ID, validFeedback(a.AssignmentID, ratee))
			So(err, ShouldBeNil)
			So(first.ID, ShouldNotBeEmpty)
			_, err = f.svc.SubmitFeedback(f.ctx, f.team.ID, validFeedback(a.AssignmentID, ratee))

			Convey("Then the second is a duplicate and one row is kept", func() {
				So(errors.Is(err, model.ErrDuplicateSubmission), ShouldBeTrue)
				stored, _ := f.store.ListFeedbackByRound(f.ctx, roundID)
				So(len(stored), ShouldEqual, 1)
				So(f.events.last().Type, ShouldEqual, model.EventFeedbackSubmitted)
			})
		})

		Convey("When the payload is malformed", func() {
			in := validFeedback(a.AssignmentID, ratee)
			in.Strengths = in.Strengths[:1]
			_, err := f.svc.SubmitFeedback(f.ctx, f.team.ID, in)
			So(errors.Is(err, model.ErrInvalidPayload), ShouldBeTrue)

			in = validFeedback(a.AssignmentID, ratee)
			in.Improvement = " x "
			_, err = f.svc.SubmitFeedback(f.ctx, f.team.ID, in)
			So(errors.Is(err, model.ErrInvalidPayload), ShouldBeTrue)
		})

		Convey("When the assignment does not exist", func() {
			_, err := f.svc.SubmitFeedback(f.ctx, f.team.ID, validFeedback("missing", ratee))
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("When the ratee is not on the assignment", func() {
			_, err := f.svc.SubmitFeedback(f.ctx, f.team.ID, validFeedback(a.AssignmentID, f.players[0].ID))
			So(errors.Is(err, model.ErrInvalidRatee), ShouldBeTrue)
		})

		Convey("When the round is closed", func() {
			_, err := f.svc.TransitionRoundStatus(f.ctx, f.team.ID, roundID, model.StatusClosed)
			So(err, ShouldBeNil)
			_, err = f.svc.SubmitFeedback(f.ctx, f.team.ID, validFeedback(a.AssignmentID, ratee))
			So(errors.Is(err, model.ErrRoundClosed), ShouldBeTrue)
		})

		Convey("When another team submits against it", func() {
			_, err := f.svc.SubmitFeedback(f.ctx, "other-team", validFeedback(a.AssignmentID, ratee))
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("When many submissions race on the same pair", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			ok, dup := 0, 0
			for range 8 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := f.svc.SubmitFeedback(f.ctx, f.team.ID, validFeedback(a.AssignmentID, ratee))
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						ok++
					case errors.Is(err, model.ErrDuplicateSubmission):
						dup++
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one wins", func() {
				So(ok, ShouldEqual, 1)
				So(dup, ShouldEqual, 7)
			})
		})
	})
}

func TestFeedbackViews(t *testing.T) {
	Convey("Given an open round with feedback on one ratee", t, func() {
		f := newFixture("Anna", "Bram", "Cees")
		roundID := f.openRound(1)
		a, err := f.svc.GetAssignmentForRater(f.ctx, f.team.ID, roundID, f.players[0].ID)
		So(err, ShouldBeNil)
		ratee := a.Ratees[0]
		_, err = f.svc.SubmitFeedback(f.ctx, f.team.ID, validFeedback(a.AssignmentID, ratee.ID))
		So(err, ShouldBeNil)

		Convey("When listing feedback", func() {
			listing, err := f.svc.ListRoundFeedback(f.ctx, f.team.ID, roundID, service.FeedbackFilter{})
			So(err, ShouldBeNil)

			Convey("Then it is grouped per ratee with names", func() {
				So(listing.TotalPlayers, ShouldEqual, 1)
				So(listing.TotalFeedback, ShouldEqual, 1)
				p := listing.Players[0]
				So(p.PlayerID, ShouldEqual, ratee.ID)
				So(p.PlayerName, ShouldEqual, ratee.Name)
				So(len(p.Strengths), ShouldEqual, 2)
				So(p.Improvements[0].Text, ShouldEqual, "Kan beter luisteren")
			})
		})

		Convey("When listing only improvements", func() {
			listing, err := f.svc.ListRoundFeedback(f.ctx, f.team.ID, roundID, service.FeedbackFilter{Type: "improvement"})
			So(err, ShouldBeNil)
			So(listing.Players[0].Strengths, ShouldBeEmpty)
			So(len(listing.Players[0].Improvements), ShouldEqual, 1)
		})

		Convey("When filtering by another player", func() {
			listing, err := f.svc.ListRoundFeedback(f.ctx, f.team.ID, roundID, service.FeedbackFilter{PlayerID: f.players[0].ID})
			So(err, ShouldBeNil)
			So(listing.Players, ShouldBeEmpty)
			So(listing.TotalFeedback, ShouldEqual, 0)
		})

		Convey("When the filter type is unknown", func() {
			_, err := f.svc.ListRoundFeedback(f.ctx, f.team.ID, roundID, service.FeedbackFilter{Type: "praise"})
			So(errors.Is(err, model.ErrInvalidPayload), ShouldBeTrue)
		})

		Convey("When summarizing", func() {
			sum, err := f.svc.Summary(f.ctx, f.team.ID, roundID)
			So(err, ShouldBeNil)

			Convey("Then strengths and the improvement become bullets", func() {
				want := []string{"Altijd op tijd en doet wat hij zegt", "Werkt hard", "Kan beter luisteren"}
				So(sum.TeamBullets, ShouldResemble, want)
				So(len(sum.Players), ShouldEqual, 1)
				So(sum.Players[0].Name, ShouldEqual, ratee.Name)
				So(sum.Players[0].Bullets, ShouldResemble, want)
			})
		})

		Convey("When exporting CSV", func() {
			var buf bytes.Buffer
			So(f.svc.ExportCSV(f.ctx, f.team.ID, roundID, &buf), ShouldBeNil)

			Convey("Then it has a bullet header and one row per bullet", func() {
				So(buf.String(), ShouldEqual, "bullet\nAltijd op tijd en doet wat hij zegt\nWerkt hard\nKan beter luisteren\n")
			})
		})

		Convey("When clustering themes", func() {
			rep, err := f.svc.GetThemes(f.ctx, f.team.ID, roundID)
			So(err, ShouldBeNil)

			Convey("Then each snippet lands on its theme", func() {
				So(rep.TotalFeedback, ShouldEqual, 3)
				So(rep.UnrecognizedCount, ShouldEqual, 0)
				So(rep.ThemeDistribution, ShouldResemble, map[string]int{"reliability": 1, "effort": 1, "communication": 1})
				ids := []string{}
				for _, th := range rep.Themes {
					ids = append(ids, th.Theme.ID)
				}
				So(ids, ShouldResemble, []string{"communication", "effort", "reliability"})
				So(rep.Themes[0].ImprovementCount, ShouldEqual, 1)
				So(rep.Themes[2].StrengthCount, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a round without feedback", t, func() {
		f := newFixture("Anna", "Bram")
		r, err := f.svc.CreateRound(f.ctx, f.team.ID, service.CreateRoundInput{Name: "Quiet"})
		So(err, ShouldBeNil)

		Convey("Then themes are empty rather than an error", func() {
			rep, err := f.svc.GetThemes(f.ctx, f.team.ID, r.ID)
			So(err, ShouldBeNil)
			So(rep.Themes, ShouldBeEmpty)
			So(rep.TotalFeedback, ShouldEqual, 0)
			So(rep.UnrecognizedCount, ShouldEqual, 0)
		})

		Convey("Then the CSV has only its header", func() {
			var buf bytes.Buffer
			So(f.svc.ExportCSV(f.ctx, f.team.ID, r.ID, &buf), ShouldBeNil)
			So(buf.String(), ShouldEqual, "bullet\n")
		})
	})
}

func TestStoreUnavailable(t *testing.T) {
	Convey("Given a closed store", t, func() {
		f := newFixture("Anna", "Bram")
		So(f.store.Close(), ShouldBeNil)

		Convey("Then operations surface StoreUnavailable", func() {
			_, err := f.svc.ListRounds(f.ctx, f.team.ID, "")
			So(errors.Is(err, model.ErrStoreUnavailable), ShouldBeTrue)
			So(errors.Is(f.svc.Ping(f.ctx), model.ErrStoreUnavailable), ShouldBeTrue)
		})
	})
}
