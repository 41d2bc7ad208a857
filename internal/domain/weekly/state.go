// Package weekly tracks the weekly challenge rollover and builds the
// trailing recap of new records.
package weekly

import (
	"time"

	"github.com/okian/wrchecker/internal/domain/model"
)

// State is the result of comparing the descriptor with the stored cursor.
type State int

const (
	// Stable means the current challenge was already announced.
	Stable State = iota
	// RolledOver means a new challenge started since the last announcement.
	RolledOver
)

func (s State) String() string {
	switch s {
	case Stable:
		return "STABLE"
	case RolledOver:
		return "ROLLED_OVER"
	default:
		return "UNKNOWN"
	}
}

// Evaluate decides the state for one tick. A missing cursor is a rollover so
// the running challenge is announced on an empty database.
func Evaluate(descriptor model.Challenge, cursor time.Time, hasCursor bool) State {
	if !hasCursor {
		return RolledOver
	}
	if !descriptor.Buckets.Current.EndDate.Equal(cursor) {
		return RolledOver
	}
	return Stable
}
