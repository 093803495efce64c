// Package dialogs lists the account's conversations.
package dialogs

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophgram/internal/common"
	"github.com/dmitrijs2005/gophgram/internal/logging"
	"github.com/dmitrijs2005/gophgram/internal/platform"
	"github.com/dmitrijs2005/gophgram/internal/server/models"
	"github.com/dmitrijs2005/gophgram/internal/server/session"
)

// OffsetDateLayout is the naive timestamp format accepted for offset_date.
// RFC 3339 is accepted as well.
const OffsetDateLayout = "2006-01-02T15:04:05"

type Query struct {
	Limit int
	// OffsetDate pages backwards; zero means most recent.
	OffsetDate time.Time
}

type Service struct {
	factory *session.Factory
	log     logging.Logger
}

func NewService(factory *session.Factory, log logging.Logger) *Service {
	return &Service{factory: factory, log: log.With("module", "dialogs")}
}

// List returns conversations newest first. An exhausted listing is an empty
// slice.
func (s *Service) List(ctx context.Context, path string, q Query) ([]models.Dialog, error) {
	out := []models.Dialog{}
	err := s.factory.WithAuthorized(ctx, path, func(ctx context.Context, h *session.Handle) error {
		ds, err := h.Conn.Dialogs(ctx, platform.DialogsQuery{Limit: q.Limit, OffsetDate: q.OffsetDate})
		if err != nil {
			return fmt.Errorf("get dialogs: %w", err)
		}
		for _, d := range ds {
			out = append(out, toDialog(d))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug(ctx, "dialogs listed", "count", len(out))
	return out, nil
}

func toDialog(d platform.Dialog) models.Dialog {
	md := models.Dialog{ID: d.ID, Title: d.Title}
	if !d.Date.IsZero() {
		t := d.Date
		md.Date = &t
	}
	return md
}

// ParseOffsetDate parses the offset_date query value. Empty is the zero time.
// Naive timestamps are read as UTC.
func ParseOffsetDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(OffsetDateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: offset_date %q", common.ErrValidation, s)
	}
	return t, nil
}
