// Package platformtest provides a scriptable in-memory platform.Connector
// for tests.
package platformtest

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/gophgram/internal/platform"
)

// Connector hands out fake connections whose behaviour is driven by the
// function fields. Nil functions return zero values. Fields must be set
// before the first Connect.
type Connector struct {
	ConnectErr error

	SendCode      func(ctx context.Context, phone string) (string, error)
	SignIn        func(ctx context.Context, phone, code, hash string) error
	CheckPassword func(ctx context.Context, password string) error
	LogOut        func(ctx context.Context) (bool, error)
	Dialogs       func(ctx context.Context, q platform.DialogsQuery) ([]platform.Dialog, error)
	Messages      func(ctx context.Context, q platform.MessagesQuery) ([]platform.Message, error)
	Message       func(ctx context.Context, peerID int64, id int) (*platform.Message, error)
	Download      func(ctx context.Context, a *platform.Attachment) (io.ReadCloser, error)
	CloseErr      error

	mu       sync.Mutex
	connects int
	open     int
	maxOpen  int
	closes   int
}

var _ platform.Connector = (*Connector)(nil)

func (c *Connector) Connect(ctx context.Context, storage platform.Storage) (platform.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ConnectErr != nil {
		return nil, c.ConnectErr
	}
	c.connects++
	c.open++
	if c.open > c.maxOpen {
		c.maxOpen = c.open
	}
	return &Conn{parent: c, Storage: storage}, nil
}

// Connects is the number of successful Connect calls.
func (c *Connector) Connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects
}

// Open is the number of connections not closed yet.
func (c *Connector) Open() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// MaxOpen is the highest number of simultaneously open connections seen.
func (c *Connector) MaxOpen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxOpen
}

// Closes counts Close calls that did work.
func (c *Connector) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

// Conn is a connection handed out by Connector.
type Conn struct {
	Storage platform.Storage

	parent   *Connector
	isClosed atomic.Bool
}

var _ platform.Conn = (*Conn)(nil)

var errClosed = errors.New("platformtest: connection closed")

func (c *Conn) closed() bool { return c.isClosed.Load() }

func (c *Conn) SendCode(ctx context.Context, phone string) (string, error) {
	if c.closed() {
		return "", errClosed
	}
	if c.parent.SendCode == nil {
		return "", nil
	}
	return c.parent.SendCode(ctx, phone)
}

func (c *Conn) SignIn(ctx context.Context, phone, code, hash string) error {
	if c.closed() {
		return errClosed
	}
	if c.parent.SignIn == nil {
		return nil
	}
	return c.parent.SignIn(ctx, phone, code, hash)
}

func (c *Conn) CheckPassword(ctx context.Context, password string) error {
	if c.closed() {
		return errClosed
	}
	if c.parent.CheckPassword == nil {
		return nil
	}
	return c.parent.CheckPassword(ctx, password)
}

func (c *Conn) LogOut(ctx context.Context) (bool, error) {
	if c.closed() {
		return false, errClosed
	}
	if c.parent.LogOut == nil {
		return true, nil
	}
	return c.parent.LogOut(ctx)
}

func (c *Conn) Dialogs(ctx context.Context, q platform.DialogsQuery) ([]platform.Dialog, error) {
	if c.closed() {
		return nil, errClosed
	}
	if c.parent.Dialogs == nil {
		return nil, nil
	}
	return c.parent.Dialogs(ctx, q)
}

func (c *Conn) Messages(ctx context.Context, q platform.MessagesQuery) ([]platform.Message, error) {
	if c.closed() {
		return nil, errClosed
	}
	if c.parent.Messages == nil {
		return nil, nil
	}
	return c.parent.Messages(ctx, q)
}

func (c *Conn) Message(ctx context.Context, peerID int64, id int) (*platform.Message, error) {
	if c.closed() {
		return nil, errClosed
	}
	if c.parent.Message == nil {
		return nil, platform.ErrMessageNotFound
	}
	return c.parent.Message(ctx, peerID, id)
}

func (c *Conn) Download(ctx context.Context, a *platform.Attachment) (io.ReadCloser, error) {
	if c.closed() {
		return nil, errClosed
	}
	if c.parent.Download == nil {
		return nil, errors.New("platformtest: no download configured")
	}
	return c.parent.Download(ctx, a)
}

func (c *Conn) Close() error {
	if c.isClosed.CompareAndSwap(false, true) {
		c.parent.mu.Lock()
		c.parent.open--
		c.parent.closes++
		c.parent.mu.Unlock()
	}
	return c.parent.CloseErr
}
