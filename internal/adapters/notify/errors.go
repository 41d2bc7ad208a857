package notify

import "errors"

// ErrInvalidWebhook is returned for a URL that is not a Discord webhook.
var ErrInvalidWebhook = errors.New("invalid webhook url")
