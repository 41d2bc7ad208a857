package notify

import (
	"time"

	"github.com/okian/wrchecker/pkg/logger"
)

// Option configures a Discord notifier.
type Option func(*Discord)

// WithRecordWebhooks sets the URLs receiving records and recaps.
func WithRecordWebhooks(urls ...string) Option {
	return func(d *Discord) { d.records = append(d.records, urls...) }
}

// WithWeeklyWebhooks sets the URLs receiving weekly announcements.
func WithWeeklyWebhooks(urls ...string) Option {
	return func(d *Discord) { d.weekly = append(d.weekly, urls...) }
}

// WithVersion sets the version shown in embed footers.
func WithVersion(v string) Option {
	return func(d *Discord) {
		if v != "" {
			d.version = v
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Discord) {
		if now != nil {
			d.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Discord) {
		if l != nil {
			d.log = l
		}
	}
}
