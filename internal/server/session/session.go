// Package session turns a resolved credential path into a live, scoped
// platform connection.
//
// Every request opens its own Handle and closes it before the response is
// written. Handles on the same credential are serialized; handles on
// different credentials run in parallel.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophgram/internal/common"
	"github.com/dmitrijs2005/gophgram/internal/logging"
	"github.com/dmitrijs2005/gophgram/internal/platform"
	"github.com/dmitrijs2005/gophgram/internal/server/credentials"
)

// Handle pairs one opened credential with one platform connection.
type Handle struct {
	Credential *credentials.Credential
	Conn       platform.Conn

	release   func()
	closeOnce sync.Once
	closeErr  error
}

// Close disconnects, closes the credential file and releases the credential
// lock. Only the first call does work; later calls return its result.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		var errs []error
		if err := h.Conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("disconnect: %w", err))
		}
		if err := h.Credential.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close credential: %w", err))
		}
		h.release()
		h.closeErr = errors.Join(errs...)
	})
	return h.closeErr
}

type Factory struct {
	store     *credentials.Store
	connector platform.Connector
	locks     *keyedLock
	log       logging.Logger
}

func NewFactory(store *credentials.Store, connector platform.Connector, log logging.Logger) *Factory {
	return &Factory{
		store:     store,
		connector: connector,
		locks:     newKeyedLock(),
		log:       log.With("module", "session"),
	}
}

// Open waits for the credential lock, opens the credential and connects.
// The caller owns the returned handle and must Close it.
func (f *Factory) Open(ctx context.Context, path string) (*Handle, error) {
	release, err := f.locks.Lock(ctx, path)
	if err != nil {
		return nil, err
	}

	cred, err := f.store.Open(ctx, path)
	if err != nil {
		release()
		return nil, err
	}

	conn, err := f.connector.Connect(ctx, cred)
	if err != nil {
		_ = cred.Close()
		release()
		return nil, fmt.Errorf("connect: %w", err)
	}

	return &Handle{Credential: cred, Conn: conn, release: release}, nil
}

// WithHandle runs fn with an open handle and closes it on every exit path,
// including panics. Close failures are logged; fn's error wins.
func (f *Factory) WithHandle(ctx context.Context, path string, fn func(ctx context.Context, h *Handle) error) error {
	h, err := f.Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if err := h.Close(); err != nil {
			f.log.Warn(ctx, "handle close failed", "credential", h.Credential.ID(), "error", err)
		}
	}()

	return fn(ctx, h)
}

// WithAuthorized is WithHandle for credentials that completed login.
// Anything else is common.ErrForbidden.
func (f *Factory) WithAuthorized(ctx context.Context, path string, fn func(ctx context.Context, h *Handle) error) error {
	return f.WithHandle(ctx, path, func(ctx context.Context, h *Handle) error {
		st, err := h.Credential.State(ctx)
		if err != nil {
			return err
		}
		if st != credentials.StateAuthenticated {
			return common.ErrForbidden
		}
		return fn(ctx, h)
	})
}

// WithLock runs fn holding the credential lock but without opening the
// credential or connecting. Maintenance tasks use it to avoid racing requests.
func (f *Factory) WithLock(ctx context.Context, path string, fn func(ctx context.Context) error) error {
	release, err := f.locks.Lock(ctx, path)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}
