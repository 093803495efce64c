// Package events publishes domain notifications (code sent, login, logout,
// media downloaded) for out-of-band consumers. Publishing is best effort:
// failures are logged and never reach the HTTP client.
package events

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophgram/internal/logging"
	"github.com/google/uuid"
)

// Routing keys.
const (
	CodeSent        = "auth.code_sent"
	Authenticated   = "auth.authenticated"
	LoggedOut       = "auth.logged_out"
	MediaDownloaded = "media.downloaded"
)

type Envelope struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	SessionID  string    `json:"session_id,omitempty"`
	Data       any       `json:"data,omitempty"`
}

func NewEnvelope(typ, sessionID string, data any) Envelope {
	return Envelope{
		ID:         uuid.NewString(),
		Type:       typ,
		OccurredAt: time.Now().UTC(),
		SessionID:  sessionID,
		Data:       data,
	}
}

type Publisher interface {
	Publish(ctx context.Context, key string, e Envelope) error
	Close() error
}

// Bus wraps a Publisher and swallows its errors.
type Bus struct {
	pub Publisher
	log logging.Logger
}

func NewBus(pub Publisher, log logging.Logger) *Bus {
	return &Bus{pub: pub, log: log.With("module", "events")}
}

func (b *Bus) Emit(ctx context.Context, typ, sessionID string, data any) {
	e := NewEnvelope(typ, sessionID, data)
	if err := b.pub.Publish(ctx, typ, e); err != nil {
		b.log.Warn(ctx, "event publish failed", "type", typ, "id", e.ID, "error", err)
	}
}

func (b *Bus) Close() error {
	return b.pub.Close()
}

// MediaDownload is the payload of MediaDownloaded.
type MediaDownload struct {
	ChatID    int64  `json:"chat_id"`
	MessageID int    `json:"message_id"`
	Mime      string `json:"mime"`
	Name      string `json:"name,omitempty"`
	Size      int64  `json:"size"`
	Archived  string `json:"archived,omitempty"`
}
