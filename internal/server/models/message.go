package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophgram/internal/common"
)

type MessageKind string

const (
	KindText  MessageKind = "text"
	KindPhoto MessageKind = "photo"
	KindDoc   MessageKind = "doc"
)

// MediaInfo describes an attachment without its bytes. Name and Size are
// nil when the platform has no single value for them.
type MediaInfo struct {
	Mime string  `json:"mime"`
	Name *string `json:"name,omitempty"`
	Size *int64  `json:"size,omitempty"`
}

// FileInfo is MediaInfo resolved at download time.
type FileInfo = MediaInfo

// Message is text-only exactly when Media is nil.
type Message struct {
	ID        int         `json:"id"`
	Kind      MessageKind `json:"kind"`
	Text      string      `json:"text"`
	Media     *MediaInfo  `json:"media"`
	CreatedAt *time.Time  `json:"created_at"`
}

type MessageFilter string

const (
	FilterDoc        MessageFilter = "doc"
	FilterPhoto      MessageFilter = "photo"
	FilterPhotoVideo MessageFilter = "photo_video"
)

// ParseMessageFilter accepts the three filter names; empty means doc.
func ParseMessageFilter(s string) (MessageFilter, error) {
	switch f := MessageFilter(s); f {
	case "":
		return FilterDoc, nil
	case FilterDoc, FilterPhoto, FilterPhotoVideo:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", common.ErrUnsupportedFilter, s)
	}
}
