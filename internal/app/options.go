package service

import (
	"time"

	"github.com/okian/wrchecker/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHeartbeat sets the heartbeat pushed after every tick.
func WithHeartbeat(h Heartbeat) Option {
	return func(s *Service) {
		s.heartbeat = h
	}
}

// WithReplays sets the replay archiver used for new records.
func WithReplays(r ReplaySaver) Option {
	return func(s *Service) {
		s.replays = r
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
