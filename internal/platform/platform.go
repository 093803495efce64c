// Package platform describes the messaging-platform client capability that
// gophgram consumes. The protocol itself (handshake, encryption, RPC framing)
// lives behind Connector and Conn; everything here is plain data that the
// adapter fills in at the boundary.
package platform

import (
	"context"
	"errors"
	"io"
	"time"
)

// Errors adapters translate platform failures into. Anything else is an
// unclassified platform failure.
var (
	ErrPasswordNeeded  = errors.New("platform: second factor required")
	ErrInvalidCode     = errors.New("platform: invalid code")
	ErrCodeExpired     = errors.New("platform: code expired")
	ErrInvalidPassword = errors.New("platform: invalid password")
	ErrUnauthorized    = errors.New("platform: not authorized")
	ErrPeerNotFound    = errors.New("platform: peer not found")
	ErrMessageNotFound = errors.New("platform: message not found")
)

// Error wraps a platform failure that fits none of the sentinels.
type Error struct {
	Err error
}

func (e *Error) Error() string { return "platform: " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Connector opens connections bound to one credential. Implementations are
// constructed once per process and hold no per-request state.
type Connector interface {
	Connect(ctx context.Context, storage Storage) (Conn, error)
}

// Conn is one live connection. Close disconnects and must be safe to call
// more than once.
type Conn interface {
	SendCode(ctx context.Context, phone string) (phoneCodeHash string, err error)
	SignIn(ctx context.Context, phone, code, phoneCodeHash string) error
	CheckPassword(ctx context.Context, password string) error
	LogOut(ctx context.Context) (bool, error)

	Dialogs(ctx context.Context, q DialogsQuery) ([]Dialog, error)
	Messages(ctx context.Context, q MessagesQuery) ([]Message, error)
	Message(ctx context.Context, peerID int64, messageID int) (*Message, error)

	// Download returns the attachment bytes as a lazy, single-pass stream.
	// Closing the reader early aborts the transfer.
	Download(ctx context.Context, a *Attachment) (io.ReadCloser, error)

	Close() error
}

// Storage is the durable per-credential state a connection reads and writes:
// the opaque protocol session blob and the peer cache.
type Storage interface {
	LoadSession(ctx context.Context) ([]byte, error)
	StoreSession(ctx context.Context, data []byte) error

	LookupPeer(ctx context.Context, id int64) (Peer, bool, error)
	StorePeers(ctx context.Context, peers []Peer) error
}

type PeerKind int

const (
	PeerUser PeerKind = iota + 1
	PeerChat
	PeerChannel
)

func (k PeerKind) String() string {
	switch k {
	case PeerUser:
		return "user"
	case PeerChat:
		return "chat"
	case PeerChannel:
		return "channel"
	default:
		return "unknown"
	}
}

// Peer is a cached entity reference. ID is the marked id clients see.
type Peer struct {
	ID         int64
	Kind       PeerKind
	AccessHash int64
}

type DialogsQuery struct {
	Limit int
	// OffsetDate pages backwards from this instant; zero means most recent.
	OffsetDate time.Time
}

type Dialog struct {
	ID    int64
	Title string
	// Date is the last activity; zero when unknown.
	Date time.Time
}

// Filter is a platform-side message search predicate.
type Filter int

const (
	FilterDocuments Filter = iota + 1
	FilterPhotos
	FilterPhotoVideo
)

type MessagesQuery struct {
	PeerID int64
	Filter Filter
	// OffsetID anchors pagination; zero means most recent.
	OffsetID int
	Limit    int
}

type Message struct {
	ID         int
	Text       string
	Date       time.Time
	Attachment *Attachment
}

// AttachmentKind is the closed set of attachment shapes the boundary knows.
type AttachmentKind int

const (
	AttachmentDocument AttachmentKind = iota + 1
	AttachmentPhoto
	// AttachmentOther is any shape that is neither a usable document nor a
	// usable photo (geo points, polls, web previews, empty documents...).
	AttachmentOther
)

func (k AttachmentKind) String() string {
	switch k {
	case AttachmentDocument:
		return "document"
	case AttachmentPhoto:
		return "photo"
	case AttachmentOther:
		return "other"
	default:
		return "unknown"
	}
}

type AttributeKind int

const (
	AttributeFilename AttributeKind = iota + 1
	AttributeImageSize
	AttributeAnimated
	AttributeSticker
	AttributeVideo
	AttributeAudio
	AttributeOther
)

type DocumentAttribute struct {
	Kind     AttributeKind
	FileName string
}

type Attachment struct {
	Kind       AttachmentKind
	MimeType   string
	Size       int64
	Attributes []DocumentAttribute
	// Ref is adapter-owned download state (file location, references).
	Ref any
	// Description names the native shape for AttachmentOther, for logs.
	Description string
}
