// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Replay points at a downloadable replay artifact stored on the backend.
type Replay struct {
	Type string `json:"__type"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Score is one leaderboard entry. Lower Time is better; ties are broken by
// the earlier UpdatedAt.
type Score struct {
	LevelID       string    `json:"mapID"`
	Time          float64   `json:"time"` // seconds
	Username      string    `json:"username"`
	UserID        string    `json:"userID"`
	Platform      string    `json:"platform"`
	SkinUsed      string    `json:"skinUsed"`
	ReplayVersion int       `json:"replayVersion"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	ObjectID      string    `json:"objectId,omitempty"` // empty for locally persisted rows
	Replay        *Replay   `json:"replay,omitempty"`
}

// Beats reports whether s is a strictly better record than other.
func (s Score) Beats(other Score) bool {
	return s.Time < other.Time
}

// Less orders scores by time, then by UpdatedAt.
func (s Score) Less(other Score) bool {
	if s.Time != other.Time {
		return s.Time < other.Time
	}
	return s.UpdatedAt.Before(other.UpdatedAt)
}

// FormattedTime renders the time for display. Times under a minute are
// printed as plain seconds, longer ones as MM:SS.ffffff.
func (s Score) FormattedTime() string {
	if s.Time < 60 {
		return strconv.FormatFloat(s.Time, 'f', -1, 64)
	}
	micros := int64(math.Round(s.Time * 1e6))
	secs := micros / 1e6
	return fmt.Sprintf("%02d:%02d.%06d", (secs/60)%60, secs%60, micros%1e6)
}
