package events

import (
	"context"

	"github.com/dmitrijs2005/gophgram/internal/logging"
)

// LogPublisher stands in when no broker is configured.
type LogPublisher struct {
	log logging.Logger
}

func NewLogPublisher(log logging.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, key string, e Envelope) error {
	p.log.Debug(ctx, "event", "key", key, "id", e.ID, "session", e.SessionID)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
