// Package messages lists and classifies the messages of one conversation.
package messages

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophgram/internal/common"
	"github.com/dmitrijs2005/gophgram/internal/logging"
	"github.com/dmitrijs2005/gophgram/internal/platform"
	"github.com/dmitrijs2005/gophgram/internal/server/models"
	"github.com/dmitrijs2005/gophgram/internal/server/session"
)

// peerRefreshLimit is how many dialogs are fetched to fill the peer cache
// when a chat id is not known yet.
const peerRefreshLimit = 100

type Query struct {
	ChatID int64
	Limit  int
	Filter models.MessageFilter
	// OffsetID anchors pagination; zero means most recent.
	OffsetID int
}

type Service struct {
	factory *session.Factory
	log     logging.Logger
}

func NewService(factory *session.Factory, log logging.Logger) *Service {
	return &Service{factory: factory, log: log.With("module", "messages")}
}

// List returns one page of messages matching q.Filter. A page holding any
// attachment the system cannot classify fails as a whole.
func (s *Service) List(ctx context.Context, path string, q Query) ([]models.Message, error) {
	pred, err := Predicate(q.Filter)
	if err != nil {
		return nil, err
	}

	out := []models.Message{}
	err = s.factory.WithAuthorized(ctx, path, func(ctx context.Context, h *session.Handle) error {
		var raw []platform.Message
		err := WithPeerRefresh(ctx, h.Conn, func() error {
			var err error
			raw, err = h.Conn.Messages(ctx, platform.MessagesQuery{
				PeerID:   q.ChatID,
				Filter:   pred,
				OffsetID: q.OffsetID,
				Limit:    q.Limit,
			})
			return err
		})
		if err != nil {
			return err
		}

		for _, m := range raw {
			msg, err := ToMessage(m)
			if err != nil {
				return err
			}
			if !admits(q.Filter, msg.Kind) {
				s.log.Warn(ctx, "dropping message outside filter", "chat", q.ChatID, "id", msg.ID, "kind", msg.Kind, "filter", q.Filter)
				continue
			}
			out = append(out, msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Predicate maps a filter to exactly one platform search predicate.
func Predicate(f models.MessageFilter) (platform.Filter, error) {
	switch f {
	case models.FilterDoc:
		return platform.FilterDocuments, nil
	case models.FilterPhoto:
		return platform.FilterPhotos, nil
	case models.FilterPhotoVideo:
		return platform.FilterPhotoVideo, nil
	default:
		return 0, fmt.Errorf("%w: %q", common.ErrUnsupportedFilter, f)
	}
}

// admits reports whether kind may appear in a listing filtered by f.
// Videos are documents, so photo_video admits both.
func admits(f models.MessageFilter, kind models.MessageKind) bool {
	switch f {
	case models.FilterDoc:
		return kind == models.KindDoc
	case models.FilterPhoto:
		return kind == models.KindPhoto
	case models.FilterPhotoVideo:
		return kind == models.KindPhoto || kind == models.KindDoc
	}
	return false
}

// WithPeerRefresh runs fn and, when the peer is not cached yet, refreshes the
// dialog list once and retries. A peer still unknown is common.ErrUnknownChat.
func WithPeerRefresh(ctx context.Context, conn platform.Conn, fn func() error) error {
	err := fn()
	if !errors.Is(err, platform.ErrPeerNotFound) {
		return wrapPlatform(err)
	}

	if _, err := conn.Dialogs(ctx, platform.DialogsQuery{Limit: peerRefreshLimit}); err != nil {
		return fmt.Errorf("refresh dialogs: %w", err)
	}

	err = fn()
	if errors.Is(err, platform.ErrPeerNotFound) {
		return common.ErrUnknownChat
	}
	return wrapPlatform(err)
}

func wrapPlatform(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, platform.ErrMessageNotFound):
		return common.ErrMessageNotFound
	default:
		return err
	}
}
