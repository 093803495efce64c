package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/gotd/td/tg"

	"github.com/dmitrijs2005/gophgram/internal/platform"
)

func searchFilter(f platform.Filter) (tg.MessagesFilterClass, error) {
	switch f {
	case platform.FilterDocuments:
		return &tg.InputMessagesFilterDocument{}, nil
	case platform.FilterPhotos:
		return &tg.InputMessagesFilterPhotos{}, nil
	case platform.FilterPhotoVideo:
		return &tg.InputMessagesFilterPhotoVideo{}, nil
	default:
		return nil, fmt.Errorf("telegram: unknown filter %d", f)
	}
}

func (c *conn) Messages(ctx context.Context, q platform.MessagesQuery) ([]platform.Message, error) {
	filter, err := searchFilter(q.Filter)
	if err != nil {
		return nil, err
	}
	peer, err := c.resolve(ctx, q.PeerID)
	if err != nil {
		return nil, err
	}

	out := make([]platform.Message, 0, max(q.Limit, 0))
	offsetID := q.OffsetID
	for len(out) < q.Limit {
		limit := min(q.Limit-len(out), pageSize)
		res, err := c.api.MessagesSearch(ctx, &tg.MessagesSearchRequest{
			Peer:     peer,
			Filter:   filter,
			OffsetID: offsetID,
			Limit:    limit,
		})
		if err != nil {
			return nil, translate(err)
		}

		msgs, e, err := unpackMessages(res)
		if err != nil {
			return nil, err
		}
		if err := c.remember(ctx, e); err != nil {
			return nil, err
		}

		page := convertMessages(msgs)
		out = append(out, page...)
		if len(msgs) < limit || len(page) == 0 {
			break
		}
		offsetID = page[len(page)-1].ID
	}
	return out, nil
}

func (c *conn) Message(ctx context.Context, peerID int64, messageID int) (*platform.Message, error) {
	peer, err := c.resolve(ctx, peerID)
	if err != nil {
		return nil, err
	}
	ids := []tg.InputMessageClass{&tg.InputMessageID{ID: messageID}}

	var res tg.MessagesMessagesClass
	if ch, ok := peer.(*tg.InputPeerChannel); ok {
		res, err = c.api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
			Channel: &tg.InputChannel{ChannelID: ch.ChannelID, AccessHash: ch.AccessHash},
			ID:      ids,
		})
	} else {
		res, err = c.api.MessagesGetMessages(ctx, ids)
	}
	if err != nil {
		return nil, translate(err)
	}

	msgs, e, err := unpackMessages(res)
	if err != nil {
		return nil, err
	}
	if err := c.remember(ctx, e); err != nil {
		return nil, err
	}

	for _, m := range msgs {
		msg, ok := m.(*tg.Message)
		if !ok || msg.ID != messageID {
			continue
		}
		// Private and basic group ids share one numbering, so check the
		// message really belongs to the requested chat.
		if pid, ok := markPeer(msg.PeerID); !ok || pid != peerID {
			continue
		}
		out := convertMessage(msg)
		return &out, nil
	}
	return nil, fmt.Errorf("%w: %d/%d", platform.ErrMessageNotFound, peerID, messageID)
}

func unpackMessages(res tg.MessagesMessagesClass) ([]tg.MessageClass, entities, error) {
	switch r := res.(type) {
	case *tg.MessagesMessages:
		return r.Messages, collectEntities(r.Users, r.Chats), nil
	case *tg.MessagesMessagesSlice:
		return r.Messages, collectEntities(r.Users, r.Chats), nil
	case *tg.MessagesChannelMessages:
		return r.Messages, collectEntities(r.Users, r.Chats), nil
	case *tg.MessagesMessagesNotModified:
		return nil, entities{}, nil
	default:
		return nil, entities{}, fmt.Errorf("telegram: unexpected messages result %T", res)
	}
}

// convertMessages keeps regular messages; service messages and empty slots
// carry nothing to list.
func convertMessages(msgs []tg.MessageClass) []platform.Message {
	out := make([]platform.Message, 0, len(msgs))
	for _, m := range msgs {
		if msg, ok := m.(*tg.Message); ok {
			out = append(out, convertMessage(msg))
		}
	}
	return out
}

func convertMessage(m *tg.Message) platform.Message {
	out := platform.Message{ID: m.ID, Text: m.Message, Attachment: attachment(m.Media)}
	if m.Date > 0 {
		out.Date = time.Unix(int64(m.Date), 0).UTC()
	}
	return out
}

// attachment classifies message media into the closed AttachmentKind set.
// Nil means the message has no attachment.
func attachment(media tg.MessageMediaClass) *platform.Attachment {
	switch m := media.(type) {
	case nil, *tg.MessageMediaEmpty:
		return nil
	case *tg.MessageMediaDocument:
		if doc, ok := m.Document.(*tg.Document); ok {
			return documentAttachment(doc)
		}
	case *tg.MessageMediaPhoto:
		if photo, ok := m.Photo.(*tg.Photo); ok {
			return photoAttachment(photo)
		}
	}
	return &platform.Attachment{Kind: platform.AttachmentOther, Description: media.TypeName()}
}

func documentAttachment(doc *tg.Document) *platform.Attachment {
	attrs := make([]platform.DocumentAttribute, 0, len(doc.Attributes))
	for _, a := range doc.Attributes {
		attrs = append(attrs, documentAttribute(a))
	}
	return &platform.Attachment{
		Kind:       platform.AttachmentDocument,
		MimeType:   doc.MimeType,
		Size:       doc.Size,
		Attributes: attrs,
		Ref: &tg.InputDocumentFileLocation{
			ID:            doc.ID,
			AccessHash:    doc.AccessHash,
			FileReference: doc.FileReference,
		},
	}
}

func documentAttribute(a tg.DocumentAttributeClass) platform.DocumentAttribute {
	switch a := a.(type) {
	case *tg.DocumentAttributeFilename:
		return platform.DocumentAttribute{Kind: platform.AttributeFilename, FileName: a.FileName}
	case *tg.DocumentAttributeImageSize:
		return platform.DocumentAttribute{Kind: platform.AttributeImageSize}
	case *tg.DocumentAttributeAnimated:
		return platform.DocumentAttribute{Kind: platform.AttributeAnimated}
	case *tg.DocumentAttributeSticker:
		return platform.DocumentAttribute{Kind: platform.AttributeSticker}
	case *tg.DocumentAttributeVideo:
		return platform.DocumentAttribute{Kind: platform.AttributeVideo}
	case *tg.DocumentAttributeAudio:
		return platform.DocumentAttribute{Kind: platform.AttributeAudio}
	default:
		return platform.DocumentAttribute{Kind: platform.AttributeOther}
	}
}

func photoAttachment(photo *tg.Photo) *platform.Attachment {
	thumb, ok := largestPhotoSize(photo.Sizes)
	if !ok {
		return &platform.Attachment{Kind: platform.AttachmentOther, Description: "photo without sizes"}
	}
	return &platform.Attachment{
		Kind:     platform.AttachmentPhoto,
		MimeType: "image/jpeg",
		Ref: &tg.InputPhotoFileLocation{
			ID:            photo.ID,
			AccessHash:    photo.AccessHash,
			FileReference: photo.FileReference,
			ThumbSize:     thumb,
		},
	}
}

// largestPhotoSize picks the downloadable size with the most bytes.
func largestPhotoSize(sizes []tg.PhotoSizeClass) (string, bool) {
	var (
		best     string
		bestSize = -1
	)
	for _, s := range sizes {
		var typ string
		var n int
		switch s := s.(type) {
		case *tg.PhotoSize:
			typ, n = s.Type, s.Size
		case *tg.PhotoSizeProgressive:
			typ = s.Type
			if len(s.Sizes) > 0 {
				n = s.Sizes[len(s.Sizes)-1]
			}
		default:
			continue
		}
		if n > bestSize {
			best, bestSize = typ, n
		}
	}
	return best, bestSize >= 0
}
