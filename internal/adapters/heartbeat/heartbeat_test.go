package heartbeat_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/wrchecker/internal/adapters/heartbeat"
	"github.com/smartystreets/goconvey/convey"
)

func TestPusher(t *testing.T) {
	convey.Convey("Given a push endpoint", t, func() {
		var hits atomic.Int32
		status := http.StatusOK
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(status)
		}))
		defer srv.Close()

		convey.Convey("When the monitor accepts the push", func() {
			err := heartbeat.New(srv.URL+"/api/push/abc?status=up", time.Second).Push(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(hits.Load(), convey.ShouldEqual, 1)
		})

		convey.Convey("When the monitor rejects the push", func() {
			status = http.StatusNotFound
			err := heartbeat.New(srv.URL, time.Second).Push(context.Background())
			convey.So(errors.Is(err, heartbeat.ErrUnhealthy), convey.ShouldBeTrue)
		})

		convey.Convey("When no URL is configured", func() {
			p := heartbeat.New("", 0)
			convey.So(p.Enabled(), convey.ShouldBeFalse)
			convey.So(p.Push(context.Background()), convey.ShouldBeNil)
			convey.So(hits.Load(), convey.ShouldEqual, 0)
		})
	})
}
