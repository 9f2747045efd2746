package token_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/pulse/pkg/token"
	. "github.com/smartystreets/goconvey/convey"
)

func TestIssuer(t *testing.T) {
	Convey("Given an issuer with a fixed clock", t, func() {
		now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		clock := func() time.Time { return now }
		iss, err := token.NewIssuer("s3cret", time.Hour, token.WithClock(clock))
		So(err, ShouldBeNil)

		Convey("When a token is issued", func() {
			raw, expires, err := iss.Issue("team-1", "EAGLE")
			So(err, ShouldBeNil)
			So(expires, ShouldEqual, now.Add(time.Hour))

			Convey("Then it parses back to the same team", func() {
				claims, err := iss.Parse(raw)
				So(err, ShouldBeNil)
				So(claims.TeamID, ShouldEqual, "team-1")
				So(claims.TeamCode, ShouldEqual, "EAGLE")
			})

			Convey("Then another secret rejects it", func() {
				other, _ := token.NewIssuer("other", time.Hour, token.WithClock(clock))
				_, err := other.Parse(raw)
				So(errors.Is(err, token.ErrInvalidToken), ShouldBeTrue)
			})

			Convey("Then it is rejected once expired", func() {
				later, _ := token.NewIssuer("s3cret", time.Hour, token.WithClock(func() time.Time {
					return now.Add(2 * time.Hour)
				}))
				_, err := later.Parse(raw)
				So(errors.Is(err, token.ErrInvalidToken), ShouldBeTrue)
			})
		})

		Convey("When garbage is parsed", func() {
			_, err := iss.Parse("not.a.token")
			So(errors.Is(err, token.ErrInvalidToken), ShouldBeTrue)
		})
	})

	Convey("Given bad issuer settings", t, func() {
		_, err := token.NewIssuer("", time.Hour)
		So(err, ShouldNotBeNil)
		_, err = token.NewIssuer("x", 0)
		So(err, ShouldNotBeNil)
	})
}
