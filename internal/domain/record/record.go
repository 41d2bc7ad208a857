// Package record detects new world records by diffing freshly fetched best
// scores against the confirmed best score of every level.
package record

import (
	"github.com/okian/wrchecker/internal/domain/model"
)

// Confirmed maps a level id to its best known score. It is owned by the
// tick loop and only mutated by Diff.
type Confirmed map[string]model.Score

// Clone returns a copy safe to hand to other goroutines.
func (c Confirmed) Clone() Confirmed {
	out := make(Confirmed, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Announcement is a new record and the record it replaced.
type Announcement struct {
	New      model.Score
	Previous model.Score
}

// Improvement is the time gained over the previous record.
func (a Announcement) Improvement() float64 {
	return a.Previous.Time - a.New.Time
}

// Result is the outcome of one Diff.
type Result struct {
	// Announcements are in discovery order.
	Announcements []Announcement
	// Missing lists fetched levels absent from the confirmed map.
	Missing []string
}

// Diff compares fetched scores with the confirmed map. A fetched score is a
// new record only when its time is strictly lower than the confirmed one; it
// then replaces the confirmed entry in place.
func Diff(confirmed Confirmed, fetched []model.Score) Result {
	var res Result
	for _, s := range fetched {
		prev, ok := confirmed[s.LevelID]
		if !ok {
			res.Missing = append(res.Missing, s.LevelID)
			continue
		}
		if !s.Beats(prev) {
			continue
		}
		confirmed[s.LevelID] = s
		res.Announcements = append(res.Announcements, Announcement{New: s, Previous: prev})
	}
	return res
}
