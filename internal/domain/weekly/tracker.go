package weekly

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/wrchecker/internal/domain/model"
	"github.com/okian/wrchecker/pkg/logger"
	"github.com/okian/wrchecker/pkg/metrics"
)

// Source reads the challenge descriptor and the results of a bucket.
type Source interface {
	FetchChallenge(ctx context.Context) (model.Challenge, error)
	FetchBucketFinals(ctx context.Context, bucket model.Bucket) ([]model.Score, error)
}

// CursorStore persists the last announced end date and the weekly archive.
type CursorStore interface {
	GetCursor(ctx context.Context) (time.Time, error)
	SetCursor(ctx context.Context, endDate time.Time) error
	ArchiveWeekly(ctx context.Context, bucket model.Bucket, finals []model.Score) error
}

// HistoryReader returns the history of a level ordered by ascending time.
type HistoryReader interface {
	GetHistory(ctx context.Context, levelID string) ([]model.Score, error)
}

// Notifier announces weekly events. Delivery failures stay inside it.
type Notifier interface {
	WeeklyStarted(ctx context.Context, challenge model.Challenge, finals []model.Score)
	WeeklyRecap(ctx context.Context, entries []model.RecapEntry, start, end time.Time)
}

// Catalog lists the tracked levels.
type Catalog interface {
	Titler
	IDs() []string
}

// Outcome reports what one Check did.
type Outcome struct {
	State State
	// EndDate is the end date of the current challenge.
	EndDate     time.Time
	Finals      int
	Announced   bool
	CursorSaved bool
	Archived    bool
	RecapLevels int
	RecapSent   bool
}

// Tracker evaluates the weekly state every tick.
type Tracker struct {
	source   Source
	store    CursorStore
	history  HistoryReader
	notifier Notifier
	catalog  Catalog
	window   time.Duration
	now      func() time.Time
	log      logger.Logger
}

// NewTracker creates a Tracker.
func NewTracker(source Source, store CursorStore, history HistoryReader, notifier Notifier, catalog Catalog, opts ...Option) *Tracker {
	t := &Tracker{
		source:   source,
		store:    store,
		history:  history,
		notifier: notifier,
		catalog:  catalog,
		window:   DefaultWindow,
		now:      time.Now,
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Check runs one evaluation. Read failures end the check early and are
// retried on the next tick. After a rollover the recap is built and sent
// whether or not the announcement succeeded.
func (t *Tracker) Check(ctx context.Context) (Outcome, error) {
	var out Outcome

	challenge, err := t.source.FetchChallenge(ctx)
	if err != nil {
		return out, fmt.Errorf("%w: %w", ErrDescriptor, err)
	}
	out.EndDate = challenge.Buckets.Current.EndDate

	hasCursor := true
	cursor, err := t.store.GetCursor(ctx)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrNotFound):
		hasCursor = false
	default:
		return out, fmt.Errorf("%w: %w", ErrCursor, err)
	}

	out.State = Evaluate(challenge, cursor, hasCursor)
	if out.State == Stable {
		return out, nil
	}

	t.log.Info(ctx, "weekly challenge rolled over",
		logger.String("challenge", challenge.Buckets.Current.Name(model.LangEnglish)),
		logger.Time("end_date", out.EndDate),
		logger.Bool("first_run", !hasCursor))

	rollErr := t.rollover(ctx, challenge, &out)
	t.recap(ctx, &out)
	return out, rollErr
}

func (t *Tracker) rollover(ctx context.Context, challenge model.Challenge, out *Outcome) error {
	previous := challenge.Buckets.Previous
	finals, err := t.source.FetchBucketFinals(ctx, previous)
	if err != nil {
		t.log.Warn(ctx, "previous challenge results unavailable", logger.Error(err))
		return fmt.Errorf("%w: %w", ErrFinals, err)
	}
	out.Finals = len(finals)

	t.notifier.WeeklyStarted(ctx, challenge, finals)
	out.Announced = true
	metrics.RecordWeeklyRollover()

	if err := t.store.SetCursor(ctx, out.EndDate); err != nil {
		t.log.Error(ctx, "failed to store weekly cursor", logger.Error(err))
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	out.CursorSaved = true

	if err := t.store.ArchiveWeekly(ctx, previous, finals); err != nil {
		t.log.Warn(ctx, "failed to archive previous challenge",
			logger.String("challenge_id", previous.ChallengeID), logger.Error(err))
		return nil
	}
	out.Archived = true
	return nil
}

func (t *Tracker) recap(ctx context.Context, out *Outcome) {
	now := t.now()
	levels := t.catalog.IDs()
	histories := make(map[string][]model.Score, len(levels))
	for _, level := range levels {
		h, err := t.history.GetHistory(ctx, level)
		if err != nil {
			t.log.Warn(ctx, "skipping level in recap",
				logger.String("level", level), logger.Error(err))
			continue
		}
		histories[level] = h
	}

	entries := BuildRecap(levels, histories, t.catalog, now, t.window)
	total := TotalImprovement(entries)
	metrics.UpdateRecap(len(entries), total)
	out.RecapLevels = len(entries)
	if len(entries) == 0 {
		t.log.Info(ctx, "no records in recap window, recap suppressed")
		return
	}

	t.notifier.WeeklyRecap(ctx, entries, now.Add(-t.window), now)
	out.RecapSent = true
	t.log.Info(ctx, "weekly recap sent",
		logger.Int("levels", len(entries)), logger.Float64("improvement", total))
}
