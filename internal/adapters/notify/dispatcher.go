package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/disgo/webhook"

	"github.com/okian/wrchecker/pkg/logger"
)

// Dispatcher delivers one message of embeds to a webhook URL.
type Dispatcher interface {
	Send(ctx context.Context, url string, embeds []discord.Embed) error
}

// WebhookDispatcher sends through disgo webhook clients, one per URL.
type WebhookDispatcher struct {
	mu          sync.Mutex
	clients     map[string]webhook.Client
	maxAttempts int
	log         logger.Logger
}

// NewWebhookDispatcher creates a dispatcher that tries each send up to
// maxAttempts times with exponential backoff.
func NewWebhookDispatcher(maxAttempts int, log logger.Logger) *WebhookDispatcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if log == nil {
		log = logger.Discard()
	}
	return &WebhookDispatcher{
		clients:     make(map[string]webhook.Client),
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// Send posts embeds to url.
func (d *WebhookDispatcher) Send(ctx context.Context, url string, embeds []discord.Embed) error {
	client, err := d.client(url)
	if err != nil {
		return err
	}

	attempt := 0
	op := func() error {
		attempt++
		_, err := client.CreateEmbeds(embeds, rest.WithCtx(ctx))
		if err != nil {
			d.log.Debug(ctx, "webhook attempt failed",
				logger.Int("attempt", attempt), logger.Error(err))
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(d.maxAttempts-1)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return fmt.Errorf("send webhook after %d attempts: %w", attempt, err)
	}
	return nil
}

func (d *WebhookDispatcher) client(url string) (webhook.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c, ok := d.clients[url]; ok {
		return c, nil
	}
	c, err := webhook.NewWithURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWebhook, err)
	}
	d.clients[url] = c
	return c, nil
}

// Close releases every cached client.
func (d *WebhookDispatcher) Close(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for url, c := range d.clients {
		c.Close(ctx)
		delete(d.clients, url)
	}
}
