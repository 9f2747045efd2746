package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/pulse/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.JWTTTLMinutes, convey.ShouldEqual, 480)
			convey.So(cfg.JWTTTL(), convey.ShouldEqual, 8*time.Hour)
			convey.So(cfg.RateWindow(), convey.ShouldEqual, time.Minute)
			convey.So(cfg.ThemeStrategy, convey.ShouldEqual, config.ThemeStrategyFirst)
			convey.So(cfg.DefaultPerRater, convey.ShouldEqual, 2)
			convey.So(cfg.WorkerCount, convey.ShouldBeGreaterThanOrEqualTo, 2)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with invalid values", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":        func(c *config.Config) { c.Addr = "" },
			"unknown store":     func(c *config.Config) { c.Store = "mongo" },
			"postgres no url":   func(c *config.Config) { c.Store = config.StorePostgres },
			"empty jwt secret":  func(c *config.Config) { c.JWTSecret = "" },
			"zero ttl":          func(c *config.Config) { c.JWTTTLMinutes = 0 },
			"unknown strategy":  func(c *config.Config) { c.ThemeStrategy = "random" },
			"zero queue":        func(c *config.Config) { c.EventQueueSize = 0 },
			"zero worker count": func(c *config.Config) { c.WorkerCount = 0 },
			"seed without cred": func(c *config.Config) { c.SeedTeamCode = "EAGLE" },
		}

		for name, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate()

			convey.Convey("Then "+name+" is rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})

	convey.Convey("Given values that are normalized", t, func() {
		cfg := config.New()
		cfg.Store = " Postgres "
		cfg.DatabaseURL = "postgres://localhost/pulse"
		cfg.ThemeStrategy = "BEST"
		cfg.DefaultPerRater = 9
		cfg.RateWindowSeconds = 0

		convey.So(cfg.Validate(), convey.ShouldBeNil)

		convey.Convey("Then they are cleaned up and clamped", func() {
			convey.So(cfg.Store, convey.ShouldEqual, config.StorePostgres)
			convey.So(cfg.ThemeStrategy, convey.ShouldEqual, config.ThemeStrategyBest)
			convey.So(cfg.DefaultPerRater, convey.ShouldEqual, 3)
			convey.So(cfg.RateWindowSeconds, convey.ShouldEqual, 60)
		})

		convey.Convey("Then a per-rater below one is raised to one", func() {
			cfg.DefaultPerRater = -4
			convey.So(cfg.Validate(), convey.ShouldBeNil)
			convey.So(cfg.DefaultPerRater, convey.ShouldEqual, 1)
		})
	})
}

func TestConfig_Seed(t *testing.T) {
	convey.Convey("Given a seed team with a player list", t, func() {
		cfg := config.New()
		cfg.SeedTeamCode = "EAGLE"
		cfg.SeedTeamCredential = "letmein"
		cfg.SeedPlayers = "Anna, Bram,,Cees "

		convey.So(cfg.Validate(), convey.ShouldBeNil)

		convey.Convey("Then the name defaults to the code and players are split", func() {
			convey.So(cfg.SeedTeamName, convey.ShouldEqual, "EAGLE")
			convey.So(cfg.SeedPlayerNames(), convey.ShouldResemble, []string{"Anna", "Bram", "Cees"})
		})
	})
}
