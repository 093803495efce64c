// Package telegram implements the platform capability on top of gotd/td.
//
// Every Conn runs its own MTProto client in a background goroutine for as
// long as the Conn is open. The protocol session and the peer cache are read
// from and written to the platform.Storage passed to Connect.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/dcs"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"
	"golang.org/x/net/proxy"

	"github.com/dmitrijs2005/gophgram/internal/platform"
)

type Options struct {
	AppID   int
	AppHash string
	// Proxy is an optional SOCKS5 address ("host:port").
	Proxy         string
	ProxyUser     string
	ProxyPassword string
	// Logger receives protocol-level logs. Nil disables them.
	Logger *zap.Logger
}

// Connector creates connections. It is safe for concurrent use and holds no
// per-credential state.
type Connector struct {
	opts     Options
	resolver dcs.Resolver
}

var _ platform.Connector = (*Connector)(nil)

func NewConnector(opts Options) (*Connector, error) {
	if opts.AppID == 0 || opts.AppHash == "" {
		return nil, errors.New("telegram: app id and hash are required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	c := &Connector{opts: opts}
	if opts.Proxy != "" {
		dial, err := socks5Dialer(opts.Proxy, opts.ProxyUser, opts.ProxyPassword)
		if err != nil {
			return nil, err
		}
		c.resolver = dcs.Plain(dcs.PlainOptions{Dial: dial})
	}
	return c, nil
}

func socks5Dialer(addr, user, password string) (dcs.DialFunc, error) {
	var auth *proxy.Auth
	if user != "" {
		auth = &proxy.Auth{User: user, Password: password}
	}
	d, err := proxy.SOCKS5("tcp", addr, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("socks5 %s: %w", addr, err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("socks5 %s: dialer does not support context", addr)
	}
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		return cd.DialContext(ctx, network, address)
	}, nil
}

// Connect starts a client and returns once it is ready for RPCs.
func (c *Connector) Connect(ctx context.Context, storage platform.Storage) (platform.Conn, error) {
	client := telegram.NewClient(c.opts.AppID, c.opts.AppHash, telegram.Options{
		SessionStorage: sessionStorage{storage},
		Resolver:       c.resolver,
		Logger:         c.opts.Logger,
		NoUpdates:      true,
	})

	runCtx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- client.Run(runCtx, func(ctx context.Context) error {
			close(ready)
			<-ctx.Done()
			return ctx.Err()
		})
	}()

	select {
	case <-ready:
	case err := <-done:
		cancel()
		return nil, translate(err)
	case <-ctx.Done():
		cancel()
		<-done
		return nil, ctx.Err()
	}

	return &conn{
		client:  client,
		api:     client.API(),
		storage: storage,
		cancel:  cancel,
		done:    done,
	}, nil
}

type conn struct {
	client  *telegram.Client
	api     *tg.Client
	storage platform.Storage

	cancel    context.CancelFunc
	done      <-chan error
	closeOnce sync.Once
	closeErr  error
}

func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		err := <-c.done
		if err != nil && !errors.Is(err, context.Canceled) {
			c.closeErr = err
		}
	})
	return c.closeErr
}

// sessionStorage adapts platform.Storage to gotd's session.Storage, which
// signals a missing session with session.ErrNotFound.
type sessionStorage struct {
	s platform.Storage
}

func (s sessionStorage) LoadSession(ctx context.Context) ([]byte, error) {
	data, err := s.s.LoadSession(ctx)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, session.ErrNotFound
	}
	return data, nil
}

func (s sessionStorage) StoreSession(ctx context.Context, data []byte) error {
	return s.s.StoreSession(ctx, data)
}
