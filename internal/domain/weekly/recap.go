package weekly

import (
	"time"

	"github.com/okian/wrchecker/internal/domain/model"
)

// DefaultWindow is the trailing recap duration.
const DefaultWindow = 7 * 24 * time.Hour

// Titler resolves a display title, falling back to the raw id.
type Titler interface {
	TitleOr(id string) string
}

// BuildRecap summarizes the records set in the window ending at now.
// histories must be ordered by ascending time. Levels without an in-window
// record are omitted; an empty result means no recap is sent.
func BuildRecap(levels []string, histories map[string][]model.Score, titles Titler, now time.Time, window time.Duration) []model.RecapEntry {
	start := now.Add(-window)
	var out []model.RecapEntry

	for _, level := range levels {
		entry, ok := recapLevel(histories[level], start)
		if !ok {
			continue
		}
		entry.LevelID = level
		entry.LevelTitle = level
		if titles != nil {
			entry.LevelTitle = titles.TitleOr(level)
		}
		out = append(out, entry)
	}
	return out
}

// recapLevel scans history best-first and stops at the first row older than
// start. Older in-window rows behind that row are not considered. A history
// of several rows with no row older than start yields no entry.
func recapLevel(history []model.Score, start time.Time) (model.RecapEntry, bool) {
	if len(history) == 0 || history[0].UpdatedAt.Before(start) {
		return model.RecapEntry{}, false
	}
	if len(history) == 1 {
		return model.RecapEntry{Scores: history[:1:1]}, true
	}

	var entry model.RecapEntry
	for _, s := range history {
		if s.UpdatedAt.Before(start) {
			entry.Improvement = nonNegative(s.Time - entry.Scores[0].Time)
			return entry, true
		}
		entry.Scores = append(entry.Scores, s)
	}
	return model.RecapEntry{}, false
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// TotalImprovement sums the improvement of every entry.
func TotalImprovement(entries []model.RecapEntry) float64 {
	var total float64
	for _, e := range entries {
		total += e.Improvement
	}
	return total
}
