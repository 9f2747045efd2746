package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/pulse/internal/adapters/repository"
	"github.com/okian/pulse/internal/config"
	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
)

func init() {
	if err := logger.Init(logger.WithOutput(&bytes.Buffer{})); err != nil {
		panic(err)
	}
}

func testConfig() *config.Config {
	cfg := config.New()
	cfg.WorkerCount = 1
	cfg.EventQueueSize = 8
	return cfg
}

func TestNewApp(t *testing.T) {
	convey.Convey("Given a memory-backed configuration", t, func() {
		ctx := context.Background()
		cfg := testConfig()
		convey.So(cfg.Validate(), convey.ShouldBeNil)

		a, err := newApp(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)
		defer a.close(ctx)

		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			a.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
			return w
		}

		convey.Convey("Then the store is in memory", func() {
			_, ok := a.store.(*repository.MemoryStore)
			convey.So(ok, convey.ShouldBeTrue)
		})

		convey.Convey("Then health, docs and the landing page are served", func() {
			convey.So(get("/healthz").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/metrics").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then API routes require a token", func() {
			convey.So(get("/rounds").Code, convey.ShouldEqual, http.StatusUnauthorized)
		})

		convey.Convey("Then unknown teams cannot log in", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"teamCode":"NOPE","credential":"secret"}`))
			a.handler.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusUnauthorized)
		})
	})

	convey.Convey("Given a seed team", t, func() {
		ctx := context.Background()
		cfg := testConfig()
		cfg.SeedTeamCode = "EAGLE"
		cfg.SeedTeamCredential = "letmein"
		cfg.SeedPlayers = "Anna,Bram,Cees"
		convey.So(cfg.Validate(), convey.ShouldBeNil)

		a, err := newApp(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)
		defer a.close(ctx)

		convey.Convey("Then the team can log in", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"teamCode":"eagle","credential":"letmein"}`))
			a.handler.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"token"`)
		})
	})

	convey.Convey("Given a missing theme file", t, func() {
		cfg := testConfig()
		cfg.ThemesFile = filepath.Join(t.TempDir(), "missing.yaml")

		convey.Convey("Then building fails", func() {
			_, err := newApp(context.Background(), cfg)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "load themes")
		})
	})
}

func TestRunConfigError(t *testing.T) {
	convey.Convey("Given an invalid store setting", t, func() {
		_ = os.Setenv("PULSE_STORE", "cassandra")
		defer func() { _ = os.Unsetenv("PULSE_STORE") }()

		convey.Convey("Then run refuses to start", func() {
			err := run(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "load config")
		})
	})
}

func TestSystemMetricsUpdater(t *testing.T) {
	convey.Convey("Given the metrics registry", t, func() {
		convey.Convey("When system metrics are sampled", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)

			convey.Convey("Then the gauges are exported", func() {
				families, err := metrics.GetRegistry().Gather()
				convey.So(err, convey.ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				convey.So(strings.Join(names, ","), convey.ShouldContainSubstring, "goroutine")
			})
		})

		convey.Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})
	})
}
