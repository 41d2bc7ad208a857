// Package backend is the read-only client of the Parse server that hosts the
// leaderboards, the weekly challenge descriptor and replay files.
package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/okian/wrchecker/internal/domain/model"
	"github.com/okian/wrchecker/pkg/logger"
	"github.com/okian/wrchecker/pkg/metrics"
	"github.com/sourcegraph/conc/pool"
)

const (
	defaultTimeout     = 15 * time.Second
	defaultConcurrency = 8
	defaultUserAgent   = "wrchecker"

	maxJSONBody   = 8 << 20
	maxReplayBody = 64 << 20

	headerAppID = "X-Parse-Application-Id"
)

// Options configures a Client.
type Options struct {
	BaseURL         string
	AppID           string
	ClassName       string
	WeeklyClassName string
	StatsClassName  string
	UserAgent       string
	// Timeout bounds each request.
	Timeout time.Duration
	// Concurrency caps in-flight requests of the batch operations.
	Concurrency int
	HTTPClient  *http.Client
	Logger      logger.Logger
}

// Client talks to the Parse REST API.
type Client struct {
	base        string
	appID       string
	class       string
	weekly      string
	stats       string
	userAgent   string
	timeout     time.Duration
	concurrency int
	http        *http.Client
	log         logger.Logger
}

// New creates a Client. Zero option values fall back to defaults.
func New(opts Options) *Client {
	c := &Client{
		base:        strings.TrimRight(opts.BaseURL, "/"),
		appID:       opts.AppID,
		class:       opts.ClassName,
		weekly:      opts.WeeklyClassName,
		stats:       opts.StatsClassName,
		userAgent:   opts.UserAgent,
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
		http:        opts.HTTPClient,
		log:         opts.Logger,
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.concurrency <= 0 {
		c.concurrency = defaultConcurrency
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	if c.log == nil {
		c.log = logger.Discard()
	}
	return c
}

// Query runs a class query and decodes the results as scores.
func (c *Client) Query(ctx context.Context, q Query) ([]model.Score, error) {
	return query[model.Score](ctx, c, "query", q)
}

// FetchBest returns the current best score of a level.
func (c *Client) FetchBest(ctx context.Context, levelID string) (model.Score, error) {
	scores, err := query[model.Score](ctx, c, "fetch_best", Query{
		Class: c.class,
		Where: MapFilter{MapID: levelID},
		Order: OrderBest,
		Limit: 1,
	})
	if err != nil {
		return model.Score{}, fmt.Errorf("fetch best %s: %w", levelID, err)
	}
	if len(scores) == 0 {
		return model.Score{}, fmt.Errorf("fetch best %s: %w", levelID, ErrEmptyResult)
	}
	return scores[0], nil
}

// FetchBests fetches the best score of every level concurrently. Scores keep
// the order of levelIDs; failed levels are left out and reported in the map.
func (c *Client) FetchBests(ctx context.Context, levelIDs []string) ([]model.Score, map[string]error) {
	var (
		scores = make([]model.Score, len(levelIDs))
		ok     = make([]bool, len(levelIDs))
		errs   = make(map[string]error)
		mu     sync.Mutex
		p      = pool.New().WithMaxGoroutines(c.concurrency).WithContext(ctx)
	)

	for i, id := range levelIDs {
		p.Go(func(ctx context.Context) error {
			s, err := c.FetchBest(ctx, id)
			if err != nil {
				mu.Lock()
				errs[id] = err
				mu.Unlock()
				return nil // one level never fails the round
			}
			scores[i], ok[i] = s, true
			return nil
		})
	}
	_ = p.Wait()

	out := make([]model.Score, 0, len(levelIDs))
	for i := range scores {
		if ok[i] {
			out = append(out, scores[i])
		}
	}
	return out, errs
}

// FetchChallenge fetches the weekly challenge descriptor.
func (c *Client) FetchChallenge(ctx context.Context) (model.Challenge, error) {
	rows, err := query[challengeRow](ctx, c, "fetch_challenge", Query{
		Class: c.stats,
		Where: levelFilter{LevelID: ChallengeDataLevel},
	})
	if err != nil {
		return model.Challenge{}, fmt.Errorf("fetch challenge: %w", err)
	}
	if len(rows) == 0 {
		return model.Challenge{}, fmt.Errorf("fetch challenge: %w", ErrEmptyResult)
	}

	row := rows[0]
	ch := model.Challenge{
		ObjectID:  row.ObjectID,
		LevelID:   row.LevelID,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if err := sonic.UnmarshalString(row.ScoreBuckets, &ch.Buckets); err != nil {
		return model.Challenge{}, fmt.Errorf("fetch challenge: score buckets: %w: %w", ErrMalformed, err)
	}
	return ch, nil
}

// FetchBucketFinals fetches the best score set during the bucket for each of
// its levels. Every level must succeed. Results follow the bucket's level
// order and carry the level name as LevelID.
func (c *Client) FetchBucketFinals(ctx context.Context, bucket model.Bucket) ([]model.Score, error) {
	finals := make([]model.Score, len(bucket.Levels))
	p := pool.New().WithMaxGoroutines(c.concurrency).WithContext(ctx).WithCancelOnError()

	for i, level := range bucket.Levels {
		p.Go(func(ctx context.Context) error {
			tid := bucket.TransientID(i)
			scores, err := query[model.Score](ctx, c, "fetch_bucket_final", Query{
				Class: c.weekly,
				Where: MapFilter{MapID: tid, UpdatedAt: Between(bucket.StartDate, bucket.EndDate)},
				Order: "time",
				Limit: 1,
			})
			if err != nil {
				return fmt.Errorf("level %q (%s): %w", level.Name, tid, err)
			}
			if len(scores) == 0 {
				return fmt.Errorf("level %q (%s): %w", level.Name, tid, ErrEmptyResult)
			}
			s := scores[0]
			s.LevelID = level.Name
			finals[i] = s
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("fetch bucket finals %s: %w", bucket.ChallengeID, err)
	}
	return finals, nil
}

// DownloadReplay fetches the replay file referenced by a score.
func (c *Client) DownloadReplay(ctx context.Context, score model.Score) ([]byte, error) {
	if score.Replay == nil || score.Replay.Name == "" {
		return nil, fmt.Errorf("download replay %s: no replay reference: %w", score.LevelID, ErrEmptyResult)
	}
	u := c.base + "/parse/files/" + url.PathEscape(c.appID) + "/" + url.PathEscape(score.Replay.Name)
	body, err := c.get(ctx, "download_replay", u, maxReplayBody)
	if err != nil {
		return nil, fmt.Errorf("download replay %s: %w", score.Replay.Name, err)
	}
	return body, nil
}

func query[T any](ctx context.Context, c *Client, op string, q Query) ([]T, error) {
	u, err := c.classURL(q)
	if err != nil {
		return nil, err
	}
	body, err := c.get(ctx, op, u, maxJSONBody)
	if err != nil {
		return nil, err
	}

	var resp response[T]
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if resp.Code != 0 || resp.Error != "" {
		return nil, fmt.Errorf("%w %d: %s", ErrParse, resp.Code, resp.Error)
	}
	return resp.Results, nil
}

func (c *Client) classURL(q Query) (string, error) {
	params := url.Values{}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Order != "" {
		params.Set("order", q.Order)
	}
	if q.Where != nil {
		where, err := sonic.MarshalString(q.Where)
		if err != nil {
			return "", fmt.Errorf("encode where: %w", err)
		}
		params.Set("where", where)
	}
	u := c.base + "/parse/classes/" + url.PathEscape(q.Class)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u, nil
}

// get performs one bounded GET and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, op, u string, limit int64) (body []byte, err error) {
	start := time.Now()
	defer func() { metrics.RecordBackendRequest(op, time.Since(start), err) }()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set(headerAppID, c.appID)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err = io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var perr response[struct{}]
		if sonic.Unmarshal(body, &perr) == nil && perr.Error != "" {
			return nil, fmt.Errorf("%w %d: %s", ErrParse, perr.Code, perr.Error)
		}
		return nil, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}

	c.log.Debug(ctx, "backend request", logger.String("op", op), logger.Duration("took", time.Since(start)))
	return body, nil
}

