package repository

import (
	"errors"
	"fmt"

	"github.com/okian/wrchecker/internal/domain/model"
)

// Sentinel kinds for store errors. ErrNotFound matches model.ErrNotFound.
var (
	ErrNotFound     = fmt.Errorf("store: %w", model.ErrNotFound)
	ErrInvalidScore = errors.New("invalid score")
	ErrClosed       = errors.New("store closed")
)
