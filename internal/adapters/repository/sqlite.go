package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/okian/wrchecker/internal/catalog"
	"github.com/okian/wrchecker/internal/domain/model"
	"github.com/okian/wrchecker/pkg/logger"
	"github.com/okian/wrchecker/pkg/metrics"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const (
	defaultBusyTimeout = 5 * time.Second

	// CursorKey is the metadata key of the weekly cursor.
	CursorKey = "curr_week_end"

	// fixed width so stored dates sort as text
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

const schema = `
CREATE TABLE IF NOT EXISTS levels (
	level_id TEXT PRIMARY KEY,
	title    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS scores (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	level_id       TEXT    NOT NULL,
	time           REAL    NOT NULL CHECK (time > 0),
	username       TEXT    NOT NULL,
	user_id        TEXT    NOT NULL,
	platform       TEXT    NOT NULL,
	skin_used      TEXT    NOT NULL,
	replay_version INTEGER NOT NULL,
	created_at     INTEGER NOT NULL,
	updated_at     INTEGER NOT NULL,
	replay_type    TEXT,
	replay_name    TEXT,
	replay_url     TEXT
);

CREATE INDEX IF NOT EXISTS scores_level_time ON scores (level_id, time, updated_at);

CREATE TRIGGER IF NOT EXISTS scores_no_update BEFORE UPDATE ON scores
BEGIN
	SELECT RAISE(ABORT, 'scores are append-only');
END;

CREATE TRIGGER IF NOT EXISTS scores_no_delete BEFORE DELETE ON scores
BEGIN
	SELECT RAISE(ABORT, 'scores are append-only');
END;

CREATE TABLE IF NOT EXISTS metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS weekly_history (
	start_date   TEXT PRIMARY KEY,
	end_date     TEXT NOT NULL,
	challenge_id TEXT NOT NULL,
	name         TEXT NOT NULL,
	levels       TEXT NOT NULL,
	scores       TEXT NOT NULL
);
`

const scoreColumns = `level_id, time, username, user_id, platform, skin_used, replay_version,
	created_at, updated_at, replay_type, replay_name, replay_url`

// SQLiteStore is a Store backed by a single SQLite connection.
type SQLiteStore struct {
	mu          sync.Mutex
	conn        *sqlite.Conn
	path        string
	busyTimeout time.Duration
	log         logger.Logger
}

var _ Store = (*SQLiteStore)(nil)

// Open opens (or creates) the database file at path.
func Open(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		path:        path,
		busyTimeout: defaultBusyTimeout,
		log:         logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite|sqlite.OpenCreate|sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	conn.SetBusyTimeout(s.busyTimeout)
	s.conn = conn

	s.log.Info(ctx, "score store opened", logger.String("path", path))
	return s, nil
}

// with runs fn on the connection while holding the store lock. Context
// cancellation interrupts the running statement.
func (s *SQLiteStore) with(ctx context.Context, op string, fn func(conn *sqlite.Conn) error) (err error) {
	start := time.Now()
	defer func() {
		observed := err
		if errors.Is(err, ErrNotFound) {
			observed = nil
		}
		metrics.RecordStoreOperation(op, time.Since(start), observed)
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrClosed
	}

	prev := s.conn.SetInterrupt(ctx.Done())
	defer s.conn.SetInterrupt(prev)

	return fn(s.conn)
}

// Provision creates missing tables and registers every known level.
func (s *SQLiteStore) Provision(ctx context.Context, levels []catalog.Level) error {
	return s.with(ctx, "provision", func(conn *sqlite.Conn) (err error) {
		if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}

		defer sqlitex.Save(conn)(&err)
		for _, l := range levels {
			err := sqlitex.Execute(conn, `
				INSERT INTO levels (level_id, title) VALUES (?, ?)
				ON CONFLICT (level_id) DO UPDATE SET title = excluded.title`,
				&sqlitex.ExecOptions{Args: []any{l.ID, l.Title}})
			if err != nil {
				return fmt.Errorf("register level %s: %w", l.ID, err)
			}
		}
		return nil
	})
}

// GetBest returns the lowest-time row of a level.
func (s *SQLiteStore) GetBest(ctx context.Context, levelID string) (model.Score, error) {
	var (
		best  model.Score
		found bool
	)
	err := s.with(ctx, "get_best", func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT `+scoreColumns+` FROM scores WHERE level_id = ?
			ORDER BY time ASC, updated_at ASC, id ASC LIMIT 1`,
			&sqlitex.ExecOptions{
				Args: []any{levelID},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					best = scanScore(stmt)
					found = true
					return nil
				},
			})
	})
	if err != nil {
		return model.Score{}, fmt.Errorf("get best %s: %w", levelID, err)
	}
	if !found {
		return model.Score{}, fmt.Errorf("get best %s: %w", levelID, ErrNotFound)
	}
	return best, nil
}

// AppendScore inserts a history row. The backend object id is not kept.
func (s *SQLiteStore) AppendScore(ctx context.Context, score model.Score) error {
	if score.LevelID == "" || score.Time <= 0 {
		return fmt.Errorf("%w: level %q time %v", ErrInvalidScore, score.LevelID, score.Time)
	}

	args := []any{
		score.LevelID,
		score.Time,
		score.Username,
		score.UserID,
		score.Platform,
		score.SkinUsed,
		int64(score.ReplayVersion),
		score.CreatedAt.UnixNano(),
		score.UpdatedAt.UnixNano(),
		nil, nil, nil,
	}
	if r := score.Replay; r != nil {
		args[9], args[10], args[11] = r.Type, r.Name, r.URL
	}

	err := s.with(ctx, "append_score", func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`INSERT INTO scores (`+scoreColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: args})
	})
	if err != nil {
		return fmt.Errorf("append score %s: %w", score.LevelID, err)
	}
	return nil
}

// GetHistory returns every row of a level ordered by time, then updated_at.
func (s *SQLiteStore) GetHistory(ctx context.Context, levelID string) ([]model.Score, error) {
	var history []model.Score
	err := s.with(ctx, "get_history", func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT `+scoreColumns+` FROM scores WHERE level_id = ?
			ORDER BY time ASC, updated_at ASC, id ASC`,
			&sqlitex.ExecOptions{
				Args: []any{levelID},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					history = append(history, scanScore(stmt))
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("get history %s: %w", levelID, err)
	}
	return history, nil
}

// HistoryLen returns the number of history rows of a level.
func (s *SQLiteStore) HistoryLen(ctx context.Context, levelID string) (int, error) {
	var n int
	err := s.with(ctx, "history_len", func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT COUNT(*) FROM scores WHERE level_id = ?`,
			&sqlitex.ExecOptions{
				Args: []any{levelID},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					n = stmt.ColumnInt(0)
					return nil
				},
			})
	})
	if err != nil {
		return 0, fmt.Errorf("history len %s: %w", levelID, err)
	}
	return n, nil
}

// GetCursor returns the last seen weekly end date.
func (s *SQLiteStore) GetCursor(ctx context.Context) (time.Time, error) {
	var (
		raw   string
		found bool
	)
	err := s.with(ctx, "get_cursor", func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT value FROM metadata WHERE key = ?`,
			&sqlitex.ExecOptions{
				Args: []any{CursorKey},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					raw = stmt.ColumnText(0)
					found = true
					return nil
				},
			})
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("get cursor: %w", err)
	}
	if !found {
		return time.Time{}, fmt.Errorf("get cursor: %w", ErrNotFound)
	}
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("get cursor: parse %q: %w", raw, err)
	}
	return t, nil
}

// SetCursor stores the weekly end date.
func (s *SQLiteStore) SetCursor(ctx context.Context, endDate time.Time) error {
	err := s.with(ctx, "set_cursor", func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			INSERT INTO metadata (key, value) VALUES (?, ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
			&sqlitex.ExecOptions{Args: []any{CursorKey, formatTime(endDate)}})
	})
	if err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}
	return nil
}

// ArchiveWeekly stores a finished weekly challenge keyed by its start date.
func (s *SQLiteStore) ArchiveWeekly(ctx context.Context, bucket model.Bucket, finals []model.Score) error {
	levels, err := sonic.Marshal(bucket.Levels)
	if err != nil {
		return fmt.Errorf("archive weekly: encode levels: %w", err)
	}
	scores, err := sonic.Marshal(finals)
	if err != nil {
		return fmt.Errorf("archive weekly: encode scores: %w", err)
	}

	err = s.with(ctx, "archive_weekly", func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			INSERT INTO weekly_history (start_date, end_date, challenge_id, name, levels, scores)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (start_date) DO UPDATE SET
				end_date = excluded.end_date,
				challenge_id = excluded.challenge_id,
				name = excluded.name,
				levels = excluded.levels,
				scores = excluded.scores`,
			&sqlitex.ExecOptions{Args: []any{
				formatTime(bucket.StartDate),
				formatTime(bucket.EndDate),
				bucket.ChallengeID,
				bucket.Name(model.LangEnglish),
				string(levels),
				string(scores),
			}})
	})
	if err != nil {
		return fmt.Errorf("archive weekly %s: %w", bucket.ChallengeID, err)
	}
	return nil
}

// WeeklyArchive returns archived challenges, newest first. A limit <= 0
// returns every row.
func (s *SQLiteStore) WeeklyArchive(ctx context.Context, limit int) ([]ArchivedWeekly, error) {
	if limit <= 0 {
		limit = -1
	}
	type row struct {
		start, end, id, name, levels, scores string
	}
	var rows []row
	err := s.with(ctx, "weekly_archive", func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			SELECT start_date, end_date, challenge_id, name, levels, scores
			FROM weekly_history ORDER BY start_date DESC LIMIT ?`,
			&sqlitex.ExecOptions{
				Args: []any{limit},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					rows = append(rows, row{
						start:  stmt.ColumnText(0),
						end:    stmt.ColumnText(1),
						id:     stmt.ColumnText(2),
						name:   stmt.ColumnText(3),
						levels: stmt.ColumnText(4),
						scores: stmt.ColumnText(5),
					})
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("weekly archive: %w", err)
	}

	out := make([]ArchivedWeekly, 0, len(rows))
	for _, r := range rows {
		a := ArchivedWeekly{ChallengeID: r.id, Name: r.name}
		if a.StartDate, err = time.Parse(timeLayout, r.start); err != nil {
			return nil, fmt.Errorf("weekly archive: start date: %w", err)
		}
		if a.EndDate, err = time.Parse(timeLayout, r.end); err != nil {
			return nil, fmt.Errorf("weekly archive: end date: %w", err)
		}
		if err := sonic.UnmarshalString(r.levels, &a.Levels); err != nil {
			return nil, fmt.Errorf("weekly archive: levels: %w", err)
		}
		if err := sonic.UnmarshalString(r.scores, &a.Scores); err != nil {
			return nil, fmt.Errorf("weekly archive: scores: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}

// Close closes the connection. Further calls return ErrClosed.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func scanScore(stmt *sqlite.Stmt) model.Score {
	sc := model.Score{
		LevelID:       stmt.ColumnText(0),
		Time:          stmt.ColumnFloat(1),
		Username:      stmt.ColumnText(2),
		UserID:        stmt.ColumnText(3),
		Platform:      stmt.ColumnText(4),
		SkinUsed:      stmt.ColumnText(5),
		ReplayVersion: stmt.ColumnInt(6),
		CreatedAt:     time.Unix(0, stmt.ColumnInt64(7)).UTC(),
		UpdatedAt:     time.Unix(0, stmt.ColumnInt64(8)).UTC(),
	}
	if stmt.ColumnType(10) != sqlite.TypeNull {
		sc.Replay = &model.Replay{
			Type: stmt.ColumnText(9),
			Name: stmt.ColumnText(10),
			URL:  stmt.ColumnText(11),
		}
	}
	return sc
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
