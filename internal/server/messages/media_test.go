package messages

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/gophgram/internal/common"
	"github.com/dmitrijs2005/gophgram/internal/platform"
	"github.com/dmitrijs2005/gophgram/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	kind, info, err := Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, models.KindText, kind)
	assert.Nil(t, info)

	kind, info, err = Resolve(&platform.Attachment{
		Kind:     platform.AttachmentDocument,
		MimeType: "application/pdf",
		Size:     2048,
		Attributes: []platform.DocumentAttribute{
			{Kind: platform.AttributeImageSize},
			{Kind: platform.AttributeFilename, FileName: "report.pdf"},
			{Kind: platform.AttributeFilename, FileName: "second.pdf"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.KindDoc, kind)
	require.NotNil(t, info)
	assert.Equal(t, "application/pdf", info.Mime)
	assert.Equal(t, "report.pdf", *info.Name)
	assert.Equal(t, int64(2048), *info.Size)

	kind, info, err = Resolve(&platform.Attachment{Kind: platform.AttachmentDocument, MimeType: "video/mp4"})
	require.NoError(t, err)
	assert.Equal(t, models.KindDoc, kind)
	assert.Equal(t, "", *info.Name)

	kind, info, err = Resolve(&platform.Attachment{Kind: platform.AttachmentPhoto, Size: 99})
	require.NoError(t, err)
	assert.Equal(t, models.KindPhoto, kind)
	assert.Equal(t, &models.MediaInfo{Mime: "image/jpeg"}, info)

	_, _, err = Resolve(&platform.Attachment{Kind: platform.AttachmentOther, Description: "geo"})
	require.ErrorIs(t, err, common.ErrUnsupportedMediaKind)
	assert.Contains(t, err.Error(), "geo")

	_, _, err = Resolve(&platform.Attachment{})
	require.ErrorIs(t, err, common.ErrUnsupportedMediaKind)
}

func TestToMessage_KindAndMediaConsistent(t *testing.T) {
	ts := time.Unix(1700000000, 0).UTC()
	attachments := []*platform.Attachment{
		nil,
		{Kind: platform.AttachmentDocument, MimeType: "text/plain"},
		{Kind: platform.AttachmentPhoto},
	}
	for i, a := range attachments {
		m, err := ToMessage(platform.Message{ID: i, Text: "t", Date: ts, Attachment: a})
		require.NoError(t, err)
		assert.Equal(t, m.Kind == models.KindText, m.Media == nil)
		require.NotNil(t, m.CreatedAt)
		assert.Equal(t, ts, *m.CreatedAt)
	}

	m, err := ToMessage(platform.Message{ID: 1})
	require.NoError(t, err)
	assert.Nil(t, m.CreatedAt)
}
