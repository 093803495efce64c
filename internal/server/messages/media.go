package messages

import (
	"fmt"

	"github.com/dmitrijs2005/gophgram/internal/common"
	"github.com/dmitrijs2005/gophgram/internal/platform"
	"github.com/dmitrijs2005/gophgram/internal/server/models"
)

// PhotoMime is served for every photo; the platform re-encodes photos as JPEG.
const PhotoMime = "image/jpeg"

// Resolve derives the external kind and MediaInfo of an attachment. A nil
// attachment is a text message.
func Resolve(a *platform.Attachment) (models.MessageKind, *models.MediaInfo, error) {
	if a == nil {
		return models.KindText, nil, nil
	}

	switch a.Kind {
	case platform.AttachmentDocument:
		name, _ := FileName(a.Attributes)
		size := a.Size
		return models.KindDoc, &models.MediaInfo{Mime: a.MimeType, Name: &name, Size: &size}, nil
	case platform.AttachmentPhoto:
		return models.KindPhoto, &models.MediaInfo{Mime: PhotoMime}, nil
	default:
		return "", nil, unsupported(a)
	}
}

// FileName returns the first filename attribute of a document.
func FileName(attrs []platform.DocumentAttribute) (string, bool) {
	for _, attr := range attrs {
		if attr.Kind == platform.AttributeFilename {
			return attr.FileName, true
		}
	}
	return "", false
}

func unsupported(a *platform.Attachment) error {
	if a.Description != "" {
		return fmt.Errorf("%w: %s", common.ErrUnsupportedMediaKind, a.Description)
	}
	return fmt.Errorf("%w: %s", common.ErrUnsupportedMediaKind, a.Kind)
}

// ToMessage converts one platform message.
func ToMessage(m platform.Message) (models.Message, error) {
	kind, info, err := Resolve(m.Attachment)
	if err != nil {
		return models.Message{}, fmt.Errorf("message %d: %w", m.ID, err)
	}

	out := models.Message{ID: m.ID, Kind: kind, Text: m.Text, Media: info}
	if !m.Date.IsZero() {
		t := m.Date
		out.CreatedAt = &t
	}
	return out, nil
}
