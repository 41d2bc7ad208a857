// Package heartbeat pings an uptime monitor push URL after every tick.
package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/wrchecker/pkg/metrics"
)

// ErrUnhealthy is returned when the monitor answers with a non-2xx status.
var ErrUnhealthy = errors.New("heartbeat rejected")

const defaultTimeout = 10 * time.Second

// Pusher sends heartbeats to a push URL (Uptime Kuma style).
type Pusher struct {
	url  string
	http *http.Client
}

// New creates a Pusher. An empty url makes Push a no-op.
func New(url string, timeout time.Duration) *Pusher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Pusher{url: url, http: &http.Client{Timeout: timeout}}
}

// Enabled reports whether a push URL is configured.
func (p *Pusher) Enabled() bool { return p != nil && p.url != "" }

// Push sends one heartbeat.
func (p *Pusher) Push(ctx context.Context) (err error) {
	if !p.Enabled() {
		return nil
	}
	defer func() { metrics.RecordHeartbeat(err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("heartbeat: creating request: %w", err)
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s", ErrUnhealthy, resp.Status)
	}
	return nil
}
