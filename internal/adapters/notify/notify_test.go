package notify_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/okian/wrchecker/internal/adapters/notify"
	"github.com/okian/wrchecker/internal/domain/model"
	"github.com/okian/wrchecker/internal/domain/record"
	"github.com/okian/wrchecker/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type sent struct {
	url    string
	embeds []discord.Embed
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []sent
	fail map[string]bool
}

func (f *fakeDispatcher) Send(_ context.Context, url string, embeds []discord.Embed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[url] {
		return errors.New("rate limited")
	}
	f.sent = append(f.sent, sent{url: url, embeds: embeds})
	return nil
}

type titles map[string]string

func (t titles) Title(id string) (string, bool) {
	v, ok := t[id]
	return v, ok
}

var updated = time.Date(2024, 1, 9, 12, 0, 0, 0, time.UTC)

func announcement(level string, newTime, oldTime float64) record.Announcement {
	return record.Announcement{
		New:      model.Score{LevelID: level, Time: newTime, Username: "fast", Platform: "Steam", UpdatedAt: updated},
		Previous: model.Score{LevelID: level, Time: oldTime, Username: "slow", Platform: "Switch"},
	}
}

func TestRecordEmbed(t *testing.T) {
	convey.Convey("A record embed shows the level and both scores", t, func() {
		e := notify.RecordEmbed(announcement("SP_1", 31.9, 32.5), "Learning to Roll", "1.2.0")

		convey.So(e.Title, convey.ShouldEqual, "***New Ultra World Record!***")
		convey.So(e.Description, convey.ShouldEqual, "Level: **Learning to Roll**\nImprovement: -**0.600000**")
		convey.So(e.Color, convey.ShouldEqual, notify.ColorRecord)
		convey.So(e.Footer.Text, convey.ShouldEqual, "MIUU:OB/1.2.0 By VilleOlof")
		convey.So(e.Timestamp.Equal(updated), convey.ShouldBeTrue)
		convey.So(e.Fields, convey.ShouldHaveLength, 2)
		convey.So(e.Fields[0].Name, convey.ShouldEqual, "New:")
		convey.So(e.Fields[0].Value, convey.ShouldEqual, "31.9\nfast\nSteam\n")
		convey.So(e.Fields[1].Value, convey.ShouldEqual, "32.5\nslow\nSwitch\n")
	})
}

func TestWeeklyEmbed(t *testing.T) {
	convey.Convey("A weekly embed lists the challenge and the previous winners", t, func() {
		var mods model.Modifiers
		convey.So(mods.UnmarshalJSON([]byte(`{"gravity": 0.5, "nogems": true}`)), convey.ShouldBeNil)

		c := model.Challenge{Buckets: model.Buckets{
			Current: model.Bucket{
				Names:  map[string]string{"en": "Floaty"},
				Levels: []model.ChallengeLevel{{Name: "One", Modifiers: mods}, {Name: "Two", Modifiers: mods}},
			},
			Previous: model.Bucket{
				Names:  map[string]string{"en": "Heavy"},
				Levels: []model.ChallengeLevel{{Name: "Old One"}},
			},
		}}
		finals := []model.Score{{LevelID: "Old One", Time: 12.5, Username: "ace", Platform: "Steam"}}

		e := notify.WeeklyEmbed(c, finals, updated, "dev")

		convey.So(e.Description, convey.ShouldEqual, "**Current Challenge:**\nFloaty")
		convey.So(e.Color, convey.ShouldEqual, notify.ColorWeekly)
		convey.So(e.Fields, convey.ShouldHaveLength, 5)
		convey.So(e.Fields[0].Value, convey.ShouldEqual, "Gravity: 50%\nNo Gems")
		convey.So(e.Fields[1].Value, convey.ShouldEqual, "One\nTwo")
		convey.So(e.Fields[2].Value, convey.ShouldEqual, "Heavy")
		convey.So(e.Fields[3].Value, convey.ShouldEqual, "-")
		convey.So(e.Fields[4].Name, convey.ShouldEqual, "Old One")
		convey.So(e.Fields[4].Value, convey.ShouldEqual, "*Steam: ace - 12.5*")
	})
}

func TestRecapEmbed(t *testing.T) {
	convey.Convey("A recap embed totals records and improvement", t, func() {
		start := time.Date(2024, 1, 3, 17, 0, 0, 0, time.UTC)
		end := time.Date(2024, 1, 10, 17, 0, 0, 0, time.UTC)
		entries := []model.RecapEntry{
			{LevelTitle: "A", Scores: []model.Score{{Username: "x", Time: 29}}, Improvement: 1},
			{LevelTitle: "B", Scores: []model.Score{{Username: "y", Time: 10}, {Username: "z", Time: 10.5}}, Improvement: 0.5},
		}

		e := notify.RecapEmbed(entries, start, end, "dev")

		convey.So(e.Description, convey.ShouldEqual,
			"*Date: 2024-01-03  >  2024-01-10*\nTotal New World Records: **3**\nTotal Improvement: **-1.5**")
		convey.So(e.Fields, convey.ShouldHaveLength, 2)
		convey.So(e.Fields[1].Value, convey.ShouldEqual, "- y: **10**\n- z: **10.5**\n*Improvement:* ***-0.500000***")
	})
}

func TestChunk(t *testing.T) {
	convey.Convey("Embeds are split in messages of ten", t, func() {
		embeds := make([]discord.Embed, 23)
		chunks := notify.Chunk(embeds)

		convey.So(chunks, convey.ShouldHaveLength, 3)
		convey.So(chunks[0], convey.ShouldHaveLength, 10)
		convey.So(chunks[2], convey.ShouldHaveLength, 3)
		convey.So(notify.Chunk(nil), convey.ShouldBeEmpty)
	})
}

func TestDiscord(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a notifier with two record webhooks and one weekly webhook", t, func() {
		dispatcher := &fakeDispatcher{fail: map[string]bool{}}
		d := notify.New(dispatcher, titles{"SP_1": "Learning to Roll"},
			notify.WithRecordWebhooks("rec-a", "rec-b"),
			notify.WithWeeklyWebhooks("weekly"),
			notify.WithLogger(logger.Discard()))

		convey.Convey("Records are chunked and sent to every record webhook", func() {
			var as []record.Announcement
			for i := 0; i < 12; i++ {
				as = append(as, announcement("SP_1", 30, 31))
			}
			d.NewRecords(ctx, as)

			convey.So(dispatcher.sent, convey.ShouldHaveLength, 4)
			convey.So(dispatcher.sent[0].url, convey.ShouldEqual, "rec-a")
			convey.So(dispatcher.sent[0].embeds, convey.ShouldHaveLength, 10)
			convey.So(dispatcher.sent[2].embeds, convey.ShouldHaveLength, 2)
			convey.So(strings.Contains(dispatcher.sent[0].embeds[0].Description, "Learning to Roll"), convey.ShouldBeTrue)
		})

		convey.Convey("An unknown level falls back to its id", func() {
			d.NewRecords(ctx, []record.Announcement{announcement("SP_99", 30, 31)})

			convey.So(strings.Contains(dispatcher.sent[0].embeds[0].Description, "SP_99"), convey.ShouldBeTrue)
		})

		convey.Convey("A failing webhook does not stop the others", func() {
			dispatcher.fail["rec-a"] = true
			d.NewRecords(ctx, []record.Announcement{announcement("SP_1", 30, 31)})

			convey.So(dispatcher.sent, convey.ShouldHaveLength, 1)
			convey.So(dispatcher.sent[0].url, convey.ShouldEqual, "rec-b")
		})

		convey.Convey("The weekly announcement goes to the weekly webhook only", func() {
			d.WeeklyStarted(ctx, model.Challenge{}, nil)

			convey.So(dispatcher.sent, convey.ShouldHaveLength, 1)
			convey.So(dispatcher.sent[0].url, convey.ShouldEqual, "weekly")
		})

		convey.Convey("Recaps go to the record webhooks and empty ones are skipped", func() {
			d.WeeklyRecap(ctx, nil, updated, updated)
			convey.So(dispatcher.sent, convey.ShouldBeEmpty)

			d.WeeklyRecap(ctx, []model.RecapEntry{{LevelTitle: "A"}}, updated, updated)
			convey.So(dispatcher.sent, convey.ShouldHaveLength, 2)
		})
	})
}

func TestWebhookDispatcher(t *testing.T) {
	convey.Convey("A malformed webhook URL is rejected before sending", t, func() {
		d := notify.NewWebhookDispatcher(3, logger.Discard())
		defer d.Close(context.Background())

		err := d.Send(context.Background(), "not a webhook", []discord.Embed{{Title: "x"}})

		convey.So(errors.Is(err, notify.ErrInvalidWebhook), convey.ShouldBeTrue)
	})
}
