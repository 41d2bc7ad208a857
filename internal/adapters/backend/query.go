package backend

import (
	"time"
)

const (
	// ChallengeDataLevel marks the stats row holding the weekly descriptor.
	ChallengeDataLevel = "CHALLENGE_DATA"

	// OrderBest sorts by ascending time, earlier update first.
	OrderBest = "time,updatedAt"

	parseDateType = "Date"
	parseDateISO  = "2006-01-02T15:04:05.000Z"
)

// Query is a Parse class query.
type Query struct {
	Class string
	// Where is encoded as the JSON "where" constraint. Nil sends none.
	Where any
	Order string
	// Limit <= 0 sends no limit.
	Limit int
}

// MapFilter selects scores of one level, optionally within an update window.
type MapFilter struct {
	MapID     string       `json:"mapID"`
	UpdatedAt *DateBetween `json:"updatedAt,omitempty"`
}

// DateBetween matches dates in [Gte, Lt).
type DateBetween struct {
	Gte ParseDate `json:"$gte"`
	Lt  ParseDate `json:"$lt"`
}

// ParseDate is the Parse encoding of a date value.
type ParseDate struct {
	Type string `json:"__type"`
	ISO  string `json:"iso"`
}

// NewParseDate encodes t as a Parse date.
func NewParseDate(t time.Time) ParseDate {
	return ParseDate{Type: parseDateType, ISO: t.UTC().Format(parseDateISO)}
}

// Between builds the [start, end) window filter.
func Between(start, end time.Time) *DateBetween {
	return &DateBetween{Gte: NewParseDate(start), Lt: NewParseDate(end)}
}

type levelFilter struct {
	LevelID string `json:"LevelID"`
}

type response[T any] struct {
	Results []T    `json:"results"`
	Code    int    `json:"code"`
	Error   string `json:"error"`
}

// challengeRow is the stats row as sent; ScoreBuckets is JSON inside a string.
type challengeRow struct {
	ObjectID     string    `json:"objectId"`
	LevelID      string    `json:"LevelID"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	ScoreBuckets string    `json:"ScoreBuckets"`
}
