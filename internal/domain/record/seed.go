package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/wrchecker/internal/domain/model"
)

// SeedStore reads the stored best of a level and appends bootstrap rows.
type SeedStore interface {
	GetBest(ctx context.Context, levelID string) (model.Score, error)
	AppendScore(ctx context.Context, score model.Score) error
}

// Bootstrapper fetches the current backend best of a level.
type Bootstrapper interface {
	FetchBest(ctx context.Context, levelID string) (model.Score, error)
}

// Seed builds the confirmed map from the stored best of every level. A level
// without history is bootstrapped from the backend: its current best is
// fetched, appended and confirmed. It returns the bootstrapped level ids.
// Any other failure wraps ErrSeed.
func Seed(ctx context.Context, store SeedStore, levels []string, bootstrap Bootstrapper) (Confirmed, []string, error) {
	confirmed := make(Confirmed, len(levels))
	var bootstrapped []string

	for _, level := range levels {
		best, err := store.GetBest(ctx, level)
		switch {
		case err == nil:
		case errors.Is(err, model.ErrNotFound) && bootstrap != nil:
			best, err = bootstrap.FetchBest(ctx, level)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: bootstrap %s: %w", ErrSeed, level, err)
			}
			best.LevelID = level
			if err := store.AppendScore(ctx, best); err != nil {
				return nil, nil, fmt.Errorf("%w: bootstrap %s: %w", ErrSeed, level, err)
			}
			bootstrapped = append(bootstrapped, level)
		default:
			return nil, nil, fmt.Errorf("%w: %s: %w", ErrSeed, level, err)
		}
		confirmed[level] = best
	}
	return confirmed, bootstrapped, nil
}
