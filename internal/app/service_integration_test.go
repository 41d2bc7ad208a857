package service_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/disgoorg/disgo/discord"
	"github.com/okian/wrchecker/internal/adapters/backend"
	"github.com/okian/wrchecker/internal/adapters/notify"
	"github.com/okian/wrchecker/internal/adapters/replay"
	"github.com/okian/wrchecker/internal/adapters/repository"
	service "github.com/okian/wrchecker/internal/app"
	"github.com/okian/wrchecker/internal/catalog"
	"github.com/okian/wrchecker/internal/domain/weekly"
	"github.com/okian/wrchecker/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const integrationScore = `{"time": %v, "userID": "u-%s", "username": "%s", "mapID": "%s",
	"skinUsed": "default", "replayVersion": 3, "platform": "Steam",
	"createdAt": "2024-01-08T10:00:00.000Z", "updatedAt": "%s", "objectId": "obj",
	"replay": {"__type": "File", "name": "%s.replay", "url": "http://files/%s.replay"}}`

const integrationBuckets = `{"current": {"chapterSet": "WC_2_", "challengeID": "c2",
	"levels": [{"name": "Spin Cycle", "id": "SP_9", "physicsmod": {"airjumps": 2}}],
	"name": {"en": "Double Jump"}, "startDate": "2024-01-10T17:00:00.000Z", "endDate": "2024-01-17T17:00:00.000Z"},
	"previous": {"chapterSet": "WC_1_", "challengeID": "c1",
	"levels": [{"name": "Bounce House", "id": "SP_4", "physicsmod": {"nogems": true}}],
	"name": {"en": "Gemless"}, "startDate": "2024-01-03T17:00:00.000Z", "endDate": "2024-01-10T17:00:00.000Z"},
	"sheetID": 1, "curID": 2, "level": "CHALLENGE_DATA"}`

type parseLeaderboard struct {
	mu   sync.Mutex
	best map[string]string
}

func (p *parseLeaderboard) set(level string, tm float64, user, updated string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	name := fmt.Sprintf("%s_%s", level, user)
	p.best[level] = fmt.Sprintf(integrationScore, tm, user, user, level, updated, name, name)
}

func (p *parseLeaderboard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/parse/files/"):
		_, _ = w.Write([]byte("replay-bytes"))
	case r.URL.Path == "/parse/classes/Stats":
		encoded, _ := sonic.MarshalString(integrationBuckets)
		fmt.Fprintf(w, `{"results": [{"objectId": "stat", "LevelID": "CHALLENGE_DATA", "ScoreBuckets": %s}]}`, encoded)
	case r.URL.Path == "/parse/classes/Weekly":
		fmt.Fprintf(w, `{"results": [%s]}`, fmt.Sprintf(integrationScore, 21.5, "ace", "ace", "WC_1_0",
			"2024-01-05T10:00:00.000Z", "w", "w"))
	case r.URL.Path == "/parse/classes/Scores":
		var f backend.MapFilter
		_ = sonic.UnmarshalString(r.URL.Query().Get("where"), &f)
		p.mu.Lock()
		s, ok := p.best[f.MapID]
		p.mu.Unlock()
		if !ok {
			fmt.Fprint(w, `{"results": []}`)
			return
		}
		fmt.Fprintf(w, `{"results": [%s]}`, s)
	default:
		http.NotFound(w, r)
	}
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent map[string][][]discord.Embed
}

func (d *recordingDispatcher) Send(_ context.Context, url string, embeds []discord.Embed) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent[url] = append(d.sent[url], embeds)
	return nil
}

func (d *recordingDispatcher) titles(url string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, msg := range d.sent[url] {
		for _, e := range msg {
			out = append(out, e.Title)
		}
	}
	return out
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service wired to a SQLite store and a Parse server", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		dir := t.TempDir()
		now := time.Date(2024, 1, 10, 18, 0, 0, 0, time.UTC)

		parse := &parseLeaderboard{best: map[string]string{}}
		parse.set("SP_1", 32.5, "slow", "2024-01-08T10:00:00.000Z")
		parse.set("SP_2", 75.25, "steady", "2023-11-01T10:00:00.000Z")
		srv := httptest.NewServer(parse)
		defer srv.Close()

		client := backend.New(backend.Options{
			BaseURL:         srv.URL,
			AppID:           "app",
			ClassName:       "Scores",
			WeeklyClassName: "Weekly",
			StatsClassName:  "Stats",
			Timeout:         5 * time.Second,
			Concurrency:     2,
		})
		cat := catalog.New([]string{"1", "2"}, map[string]string{"1": "Learning to Roll", "2": "Half Pipe"})
		dispatcher := &recordingDispatcher{sent: map[string][][]discord.Embed{}}

		newService := func(store *repository.SQLiteStore) *service.Service {
			discordNotifier := notify.New(dispatcher, cat,
				notify.WithRecordWebhooks("records"), notify.WithWeeklyWebhooks("weekly"),
				notify.WithClock(func() time.Time { return now }))
			tracker := weekly.NewTracker(client, store, store, discordNotifier, cat,
				weekly.WithClock(func() time.Time { return now }))
			archiver := replay.New(client, replay.WithDir(filepath.Join(dir, "replays")))
			return service.New(store, client, discordNotifier, tracker, cat,
				service.WithLogger(logger.Discard()), service.WithReplays(archiver))
		}

		store, err := repository.Open(ctx, filepath.Join(dir, "wr.db"))
		So(err, ShouldBeNil)
		defer func() { _ = store.Close() }()

		svc := newService(store)
		So(svc.Seed(ctx), ShouldBeNil)

		Convey("The first tick announces the running challenge and recaps the seeded records", func() {
			report := svc.Tick(ctx)

			So(report.Errors, ShouldBeEmpty)
			So(report.Announced, ShouldBeEmpty)
			So(report.Weekly.State, ShouldEqual, weekly.RolledOver)
			So(report.Weekly.CursorSaved, ShouldBeTrue)
			So(report.Weekly.Archived, ShouldBeTrue)
			So(report.Weekly.RecapLevels, ShouldEqual, 1)
			So(dispatcher.titles("weekly"), ShouldResemble, []string{"***New Ultra Weekly Challenge Starts Now!***"})
			So(dispatcher.titles("records"), ShouldResemble, []string{"***New Weekly Ultra WR Recap!***"})

			cursor, err := store.GetCursor(ctx)
			So(err, ShouldBeNil)
			So(cursor.Equal(time.Date(2024, 1, 17, 17, 0, 0, 0, time.UTC)), ShouldBeTrue)

			archive, err := store.WeeklyArchive(ctx, 10)
			So(err, ShouldBeNil)
			So(archive, ShouldHaveLength, 1)
			So(archive[0].Scores[0].LevelID, ShouldEqual, "Bounce House")

			Convey("A faster time is announced once, stored and its replay saved", func() {
				parse.set("SP_1", 31.9, "fast", "2024-01-10T12:00:00.000Z")

				report := svc.Tick(ctx)
				So(report.Announced, ShouldHaveLength, 1)
				So(report.Weekly.State, ShouldEqual, weekly.Stable)

				again := svc.Tick(ctx)
				So(again.Announced, ShouldBeEmpty)

				So(dispatcher.titles("records"), ShouldResemble, []string{
					"***New Weekly Ultra WR Recap!***",
					"***New Ultra World Record!***",
				})
				So(dispatcher.titles("weekly"), ShouldHaveLength, 1)

				n, err := store.HistoryLen(ctx, "SP_1")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)

				files, err := os.ReadDir(filepath.Join(dir, "replays", "SP_1"))
				So(err, ShouldBeNil)
				So(files, ShouldHaveLength, 1)

				Convey("A restarted service resumes from the stored best", func() {
					restarted := newService(store)
					So(restarted.Seed(ctx), ShouldBeNil)
					So(restarted.Records()["SP_1"].Time, ShouldEqual, 31.9)
					So(restarted.GetStats()["bootstrapped"], ShouldEqual, 0)
				})
			})
		})
	})
}
