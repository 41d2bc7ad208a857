package weekly

import "errors"

var (
	// ErrDescriptor is returned when the challenge descriptor cannot be read.
	ErrDescriptor = errors.New("fetch challenge descriptor")
	// ErrCursor is returned when the stored cursor cannot be read.
	ErrCursor = errors.New("read weekly cursor")
	// ErrFinals is returned when the previous challenge results are incomplete.
	ErrFinals = errors.New("fetch previous challenge finals")
	// ErrPersist is returned when the new cursor cannot be stored.
	ErrPersist = errors.New("store weekly cursor")
)
