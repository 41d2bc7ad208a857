// Package replay stores the replay files of new world records on disk.
package replay

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/okian/wrchecker/internal/domain/model"
	"github.com/okian/wrchecker/pkg/logger"
	"github.com/okian/wrchecker/pkg/metrics"
)

// ErrNoReplay is returned for scores without a replay reference.
var ErrNoReplay = errors.New("score has no replay")

const defaultDir = "replays"

// Downloader fetches replay bytes for a score.
type Downloader interface {
	DownloadReplay(ctx context.Context, score model.Score) ([]byte, error)
}

// Option applies a configuration option to the Archiver.
type Option func(*Archiver)

// WithDir sets the root directory. Files land in <dir>/<level>/.
func WithDir(dir string) Option {
	return func(a *Archiver) {
		if dir != "" {
			a.dir = dir
		}
	}
}

// WithEnabled toggles downloads. A disabled archiver does nothing.
func WithEnabled(enabled bool) Option {
	return func(a *Archiver) { a.enabled = enabled }
}

// WithLogger sets the archiver logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Archiver) {
		if l != nil {
			a.log = l
		}
	}
}

// Archiver downloads replays and writes them to disk.
type Archiver struct {
	dl      Downloader
	dir     string
	enabled bool
	log     logger.Logger
}

// New creates an enabled Archiver writing below "replays".
func New(dl Downloader, opts ...Option) *Archiver {
	a := &Archiver{
		dl:      dl,
		dir:     defaultDir,
		enabled: true,
		log:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Save downloads the replay of score and returns the written path. A
// disabled archiver returns "" and no error.
func (a *Archiver) Save(ctx context.Context, score model.Score) (path string, err error) {
	if !a.enabled {
		metrics.RecordReplayDownload(metrics.ResultSkipped)
		return "", nil
	}
	defer func() {
		if err != nil {
			metrics.RecordReplayDownload(metrics.ResultError)
			return
		}
		metrics.RecordReplayDownload(metrics.ResultSuccess)
	}()

	if score.Replay == nil || score.Replay.Name == "" {
		return "", fmt.Errorf("save replay %s: %w", score.LevelID, ErrNoReplay)
	}

	data, err := a.dl.DownloadReplay(ctx, score)
	if err != nil {
		return "", fmt.Errorf("save replay %s: %w", score.LevelID, err)
	}

	levelDir := filepath.Join(a.dir, sanitize(score.LevelID))
	if err := os.MkdirAll(levelDir, 0o755); err != nil {
		return "", fmt.Errorf("save replay %s: create dir: %w", score.LevelID, err)
	}

	entries, err := os.ReadDir(levelDir)
	if err != nil {
		return "", fmt.Errorf("save replay %s: list dir: %w", score.LevelID, err)
	}

	path = filepath.Join(levelDir, FileName(len(entries), score))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save replay %s: write: %w", score.LevelID, err)
	}

	a.log.Info(ctx, "replay saved",
		logger.String("level", score.LevelID),
		logger.String("path", path),
		logger.Int("bytes", len(data)))
	return path, nil
}

// FileName is <seq>_<username>_<time>.replay, where seq is the number of
// files already stored for the level.
func FileName(seq int, score model.Score) string {
	return strconv.Itoa(seq) + "_" + sanitize(score.Username) + "_" +
		strconv.FormatFloat(score.Time, 'f', -1, 64) + ".replay"
}

func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return r
	}, s)
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}
