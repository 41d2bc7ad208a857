package record

import (
	"context"

	"github.com/okian/wrchecker/internal/domain/model"
	"github.com/okian/wrchecker/pkg/logger"
	"github.com/okian/wrchecker/pkg/metrics"
)

// ScoreAppender persists new records as history rows.
type ScoreAppender interface {
	AppendScore(ctx context.Context, score model.Score) error
}

// ReplaySaver archives the replay of a new record.
type ReplaySaver interface {
	Save(ctx context.Context, score model.Score) (string, error)
}

// Engine runs Diff and performs its side effects.
type Engine struct {
	store   ScoreAppender
	replays ReplaySaver
	log     logger.Logger
}

// NewEngine creates an Engine. replays may be nil.
func NewEngine(store ScoreAppender, replays ReplaySaver, log logger.Logger) *Engine {
	if log == nil {
		log = logger.Discard()
	}
	return &Engine{store: store, replays: replays, log: log}
}

// Apply diffs fetched against confirmed, persists every new record and
// requests its replay. Persistence and replay failures never undo the
// in-memory update; failed writes are returned as *PersistError.
func (e *Engine) Apply(ctx context.Context, confirmed Confirmed, fetched []model.Score) ([]Announcement, []error) {
	res := Diff(confirmed, fetched)
	var failed []error

	for _, level := range res.Missing {
		metrics.RecordInconsistency()
		e.log.Warn(ctx, "fetched score for a level without a confirmed record",
			logger.String("level", level))
	}

	for _, a := range res.Announcements {
		e.log.Info(ctx, "new world record",
			logger.String("level", a.New.LevelID),
			logger.Float64("time", a.New.Time),
			logger.Float64("previous", a.Previous.Time),
			logger.String("username", a.New.Username))

		if err := e.store.AppendScore(ctx, a.New); err != nil {
			e.log.Error(ctx, "failed to persist world record",
				logger.String("level", a.New.LevelID), logger.Error(err))
			failed = append(failed, &PersistError{Level: a.New.LevelID, Err: err})
		}

		if e.replays == nil {
			continue
		}
		if _, err := e.replays.Save(ctx, a.New); err != nil {
			e.log.Warn(ctx, "failed to save replay",
				logger.String("level", a.New.LevelID), logger.Error(err))
		}
	}

	metrics.RecordRecordsDetected(len(res.Announcements))
	return res.Announcements, failed
}
