// Package download resolves a message attachment into a byte stream and
// stages it as a local artifact that the HTTP layer can serve.
package download

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophgram/internal/common"
	"github.com/dmitrijs2005/gophgram/internal/logging"
	"github.com/dmitrijs2005/gophgram/internal/platform"
	"github.com/dmitrijs2005/gophgram/internal/server/archive"
	"github.com/dmitrijs2005/gophgram/internal/server/artifacts"
	"github.com/dmitrijs2005/gophgram/internal/server/events"
	"github.com/dmitrijs2005/gophgram/internal/server/messages"
	"github.com/dmitrijs2005/gophgram/internal/server/models"
	"github.com/dmitrijs2005/gophgram/internal/server/session"
)

const fallbackMime = "application/octet-stream"

// Mirror copies finished artifacts to long-term storage.
type Mirror interface {
	Put(ctx context.Context, key, path string, size int64, contentType string) (string, error)
}

type Emitter interface {
	Emit(ctx context.Context, typ, sessionID string, data any)
}

type Artifact struct {
	artifacts.Artifact
	Info models.FileInfo
}

type Service struct {
	factory *session.Factory
	stager  *artifacts.Stager
	mirror  Mirror
	events  Emitter
	log     logging.Logger
}

// NewService wires the streamer. mirror may be nil.
func NewService(factory *session.Factory, stager *artifacts.Stager, mirror Mirror, em Emitter, log logging.Logger) *Service {
	return &Service{
		factory: factory,
		stager:  stager,
		mirror:  mirror,
		events:  em,
		log:     log.With("module", "download"),
	}
}

// Resolve fetches one message and opens its attachment as a lazy stream.
// The stream is only valid while h is open.
func Resolve(ctx context.Context, h *session.Handle, chatID int64, messageID int) (io.ReadCloser, models.FileInfo, error) {
	var msg *platform.Message
	err := messages.WithPeerRefresh(ctx, h.Conn, func() error {
		var err error
		msg, err = h.Conn.Message(ctx, chatID, messageID)
		return err
	})
	if err != nil {
		return nil, models.FileInfo{}, err
	}
	if msg == nil {
		return nil, models.FileInfo{}, common.ErrMessageNotFound
	}

	info, err := fileInfo(msg.Attachment)
	if err != nil {
		return nil, models.FileInfo{}, err
	}

	rc, err := h.Conn.Download(ctx, msg.Attachment)
	if err != nil {
		return nil, models.FileInfo{}, fmt.Errorf("download: %w", err)
	}
	return rc, info, nil
}

func fileInfo(a *platform.Attachment) (models.FileInfo, error) {
	if a == nil {
		return models.FileInfo{}, common.ErrNoMedia
	}

	switch a.Kind {
	case platform.AttachmentDocument:
		info := models.FileInfo{Mime: a.MimeType}
		if info.Mime == "" {
			info.Mime = fallbackMime
		}
		if name, ok := messages.FileName(a.Attributes); ok {
			info.Name = &name
		}
		size := a.Size
		info.Size = &size
		return info, nil
	case platform.AttachmentPhoto:
		return models.FileInfo{Mime: messages.PhotoMime}, nil
	default:
		_, _, err := messages.Resolve(a)
		return models.FileInfo{}, err
	}
}

// Fetch stages the attachment of chatID/messageID. The platform connection is
// released before Fetch returns, whether or not the stream was consumed.
func (s *Service) Fetch(ctx context.Context, sessionID, path string, chatID int64, messageID int) (Artifact, error) {
	var out Artifact
	err := s.factory.WithAuthorized(ctx, path, func(ctx context.Context, h *session.Handle) error {
		rc, info, err := Resolve(ctx, h, chatID, messageID)
		if err != nil {
			return err
		}
		defer rc.Close()

		expected := int64(-1)
		if info.Size != nil {
			expected = *info.Size
		}
		a, err := s.stager.Stage(rc, expected)
		if err != nil {
			return fmt.Errorf("stage attachment: %w", err)
		}
		out = Artifact{Artifact: a, Info: info}
		return nil
	})
	if err != nil {
		return Artifact{}, err
	}

	s.log.Info(ctx, "attachment staged", "chat", chatID, "message", messageID, "artifact", out.ID, "size", out.Size)
	s.afterFetch(ctx, sessionID, chatID, messageID, out)
	return out, nil
}

func (s *Service) afterFetch(ctx context.Context, sessionID string, chatID int64, messageID int, a Artifact) {
	ev := events.MediaDownload{ChatID: chatID, MessageID: messageID, Mime: a.Info.Mime, Size: a.Size}
	if a.Info.Name != nil {
		ev.Name = *a.Info.Name
	}

	if s.mirror != nil {
		uri, err := s.mirror.Put(ctx, archive.Key(chatID, messageID, a.ID), a.Path, a.Size, a.Info.Mime)
		if err != nil {
			s.log.Warn(ctx, "archive mirror failed", "artifact", a.ID, "error", err)
		} else {
			ev.Archived = uri
		}
	}

	s.events.Emit(ctx, events.MediaDownloaded, sessionID, ev)
}
