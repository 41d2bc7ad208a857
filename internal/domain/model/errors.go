package model

import "errors"

// ErrNotFound is returned by stores when the requested state does not exist.
var ErrNotFound = errors.New("not found")
