// Package repository persists score history, the weekly cursor and the
// weekly challenge archive.
package repository

import (
	"context"
	"time"

	"github.com/okian/wrchecker/internal/catalog"
	"github.com/okian/wrchecker/internal/domain/model"
)

// Store provides read/write access to the persisted state.
type Store interface {
	// Provision creates missing tables and registers every known level.
	// It is idempotent.
	Provision(ctx context.Context, levels []catalog.Level) error

	// GetBest returns the lowest-time row of a level.
	// Returns ErrNotFound if the level has no history.
	GetBest(ctx context.Context, levelID string) (model.Score, error)
	// AppendScore inserts a history row. Existing rows are never touched.
	AppendScore(ctx context.Context, score model.Score) error
	// GetHistory returns every row of a level ordered by time, then updated_at.
	GetHistory(ctx context.Context, levelID string) ([]model.Score, error)
	// HistoryLen returns the number of history rows of a level.
	HistoryLen(ctx context.Context, levelID string) (int, error)

	// GetCursor returns the last seen weekly end date.
	// Returns ErrNotFound if none was stored yet.
	GetCursor(ctx context.Context) (time.Time, error)
	// SetCursor stores the weekly end date.
	SetCursor(ctx context.Context, endDate time.Time) error

	// ArchiveWeekly stores a finished weekly challenge and its final scores.
	ArchiveWeekly(ctx context.Context, bucket model.Bucket, finals []model.Score) error
	// WeeklyArchive returns archived challenges, newest first.
	WeeklyArchive(ctx context.Context, limit int) ([]ArchivedWeekly, error)

	Close() error
}

// ArchivedWeekly is a finished weekly challenge as stored in the archive.
type ArchivedWeekly struct {
	StartDate   time.Time
	EndDate     time.Time
	ChallengeID string
	Name        string
	Levels      []model.ChallengeLevel
	Scores      []model.Score
}
