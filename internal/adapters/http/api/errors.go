package api

import "errors"

// Error constants.
var (
	ErrUnknownLevel = errors.New("no confirmed record for level")
	ErrInvalidLimit = errors.New("limit must be a positive integer")
)
