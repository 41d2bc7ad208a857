package service

import (
	"errors"
	"fmt"
)

// Kind classifies failures by how the loop reacts to them.
type Kind int

const (
	// KindTransient is a failed read; the next tick retries it.
	KindTransient Kind = iota + 1
	// KindInconsistency is backend data that does not match local state.
	KindInconsistency
	// KindPersistence is a failed store write; in-memory state is kept.
	KindPersistence
	// KindFatal is a setup failure; the process cannot continue.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindInconsistency:
		return "inconsistency"
	case KindPersistence:
		return "persistence"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is a classified failure of one operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of err, or 0 when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsFatal reports whether err must stop the process.
func IsFatal(err error) bool {
	return KindOf(err) == KindFatal
}

var errUnknownLevel = errors.New("fetched level has no confirmed record")
