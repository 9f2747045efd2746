package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("PULSE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PULSE_TEST_REDIS_ADDR not set")
	}

	Convey("Given a redis limiter", t, func() {
		ctx := context.Background()
		r, err := NewRedis(ctx, addr, "", 0, nil)
		So(err, ShouldBeNil)
		defer func() { _ = r.Close() }()
		key := "test:" + uuid.NewString()

		Convey("When the limit is exceeded", func() {
			So(r.Allow(ctx, key, 2, time.Minute).Allowed, ShouldBeTrue)
			So(r.Allow(ctx, key, 2, time.Minute).Allowed, ShouldBeTrue)
			d := r.Allow(ctx, key, 2, time.Minute)

			Convey("Then the third request is rejected until the window ends", func() {
				So(d.Allowed, ShouldBeFalse)
				So(d.Count, ShouldEqual, 3)
				So(d.WindowEnd, ShouldHappenAfter, time.Now())
			})
		})
	})

	Convey("Given an unreachable redis", t, func() {
		_, err := NewRedis(context.Background(), "127.0.0.1:1", "", 0, nil)
		So(err, ShouldNotBeNil)
	})
}
