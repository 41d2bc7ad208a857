// Package notify formats Discord embeds and delivers them to webhooks.
package notify

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/discord"

	"github.com/okian/wrchecker/internal/domain/model"
	"github.com/okian/wrchecker/internal/domain/record"
	"github.com/okian/wrchecker/pkg/logger"
	"github.com/okian/wrchecker/pkg/metrics"
)

// Message kinds used in logs and metrics.
const (
	KindRecord = "record"
	KindWeekly = "weekly"
	KindRecap  = "recap"
)

// Titler resolves level display titles.
type Titler interface {
	Title(id string) (string, bool)
}

// Discord announces records and weekly events. No method reports an error;
// failed deliveries are logged and counted.
type Discord struct {
	dispatcher Dispatcher
	titles     Titler
	records    []string
	weekly     []string
	version    string
	now        func() time.Time
	log        logger.Logger
}

// New creates a Discord notifier.
func New(dispatcher Dispatcher, titles Titler, opts ...Option) *Discord {
	d := &Discord{
		dispatcher: dispatcher,
		titles:     titles,
		version:    "dev",
		now:        time.Now,
		log:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewRecords announces records in discovery order, MaxEmbeds per message.
func (d *Discord) NewRecords(ctx context.Context, announcements []record.Announcement) {
	if len(announcements) == 0 {
		return
	}
	embeds := make([]discord.Embed, 0, len(announcements))
	for _, a := range announcements {
		embeds = append(embeds, RecordEmbed(a, d.levelTitle(ctx, a.New.LevelID), d.version))
	}
	for _, chunk := range Chunk(embeds) {
		d.broadcast(ctx, KindRecord, d.records, chunk)
	}
}

// WeeklyStarted announces a new weekly challenge.
func (d *Discord) WeeklyStarted(ctx context.Context, challenge model.Challenge, finals []model.Score) {
	embed := WeeklyEmbed(challenge, finals, d.now(), d.version)
	d.broadcast(ctx, KindWeekly, d.weekly, []discord.Embed{embed})
}

// WeeklyRecap posts the recap of the window [start, end].
func (d *Discord) WeeklyRecap(ctx context.Context, entries []model.RecapEntry, start, end time.Time) {
	if len(entries) == 0 {
		return
	}
	embed := RecapEmbed(entries, start, end, d.version)
	d.broadcast(ctx, KindRecap, d.records, []discord.Embed{embed})
}

func (d *Discord) levelTitle(ctx context.Context, id string) string {
	if d.titles != nil {
		if title, ok := d.titles.Title(id); ok {
			return title
		}
	}
	d.log.Warn(ctx, "no title for level", logger.String("level", id))
	return id
}

func (d *Discord) broadcast(ctx context.Context, kind string, urls []string, embeds []discord.Embed) {
	for _, url := range urls {
		err := d.dispatcher.Send(ctx, url, embeds)
		metrics.RecordWebhookDelivery(kind, err)
		if err != nil {
			d.log.Error(ctx, "failed to deliver webhook",
				logger.String("kind", kind), logger.Int("embeds", len(embeds)), logger.Error(err))
			continue
		}
		d.log.Debug(ctx, "webhook delivered",
			logger.String("kind", kind), logger.Int("embeds", len(embeds)))
	}
}
