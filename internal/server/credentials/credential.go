package credentials

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophgram/internal/cryptox"
	"github.com/dmitrijs2005/gophgram/internal/dbx"
	"github.com/dmitrijs2005/gophgram/internal/platform"
)

// Credential is one opened credential file. It implements platform.Storage
// so a connection can persist its protocol session and peer cache.
type Credential struct {
	id     string
	path   string
	db     *sql.DB
	meta   *metadataRepo
	peers  *peerRepo
	secret []byte

	keyOnce sync.Once
	key     []byte
	keyErr  error

	closeOnce sync.Once
	closeErr  error
}

var _ platform.Storage = (*Credential)(nil)

func newCredential(id, path string, db *sql.DB, secret []byte) *Credential {
	return &Credential{
		id:     id,
		path:   path,
		db:     db,
		meta:   newMetadataRepo(db),
		peers:  newPeerRepo(db),
		secret: secret,
	}
}

func (c *Credential) ID() string   { return c.id }
func (c *Credential) Path() string { return c.path }

func (c *Credential) State(ctx context.Context) (AuthState, error) {
	v, err := c.meta.Get(ctx, keyState)
	if err != nil {
		return "", err
	}
	return ParseAuthState(string(v))
}

func (c *Credential) SetState(ctx context.Context, st AuthState) error {
	return c.meta.Set(ctx, keyState, []byte(st))
}

// BeginLogin records the pending (phone, hash) pair and moves to code_sent
// in one transaction.
func (c *Credential) BeginLogin(ctx context.Context, phone, phoneCodeHash string) error {
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		m := newMetadataRepo(tx)
		if err := m.Set(ctx, keyPendingPhone, []byte(phone)); err != nil {
			return err
		}
		if err := m.Set(ctx, keyPendingHash, []byte(phoneCodeHash)); err != nil {
			return err
		}
		return m.Set(ctx, keyState, []byte(StateCodeSent))
	})
}

// PendingLogin returns the pair recorded by BeginLogin, empty when none.
func (c *Credential) PendingLogin(ctx context.Context) (phone, phoneCodeHash string, err error) {
	p, err := c.meta.Get(ctx, keyPendingPhone)
	if err != nil {
		return "", "", err
	}
	h, err := c.meta.Get(ctx, keyPendingHash)
	if err != nil {
		return "", "", err
	}
	return string(p), string(h), nil
}

// CompleteLogin clears the pending attempt and marks the credential
// authenticated.
func (c *Credential) CompleteLogin(ctx context.Context) error {
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		m := newMetadataRepo(tx)
		if err := m.Delete(ctx, keyPendingPhone, keyPendingHash); err != nil {
			return err
		}
		return m.Set(ctx, keyState, []byte(StateAuthenticated))
	})
}

func (c *Credential) LoadSession(ctx context.Context) ([]byte, error) {
	sealed, err := c.meta.Get(ctx, keySession)
	if err != nil || sealed == nil {
		return nil, err
	}
	key, err := c.sessionKey(ctx)
	if err != nil {
		return nil, err
	}
	data, err := cryptox.Open(key, sealed)
	if err != nil {
		return nil, fmt.Errorf("open session blob: %w", err)
	}
	return data, nil
}

func (c *Credential) StoreSession(ctx context.Context, data []byte) error {
	key, err := c.sessionKey(ctx)
	if err != nil {
		return err
	}
	sealed, err := cryptox.Seal(key, data)
	if err != nil {
		return fmt.Errorf("seal session blob: %w", err)
	}
	return c.meta.Set(ctx, keySession, sealed)
}

func (c *Credential) LookupPeer(ctx context.Context, id int64) (platform.Peer, bool, error) {
	return c.peers.Lookup(ctx, id)
}

func (c *Credential) StorePeers(ctx context.Context, peers []platform.Peer) error {
	if len(peers) == 0 {
		return nil
	}
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := newPeerRepo(tx)
		for _, p := range peers {
			if err := r.Upsert(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

// PeerCount is the number of cached peers.
func (c *Credential) PeerCount(ctx context.Context) (int, error) {
	return c.peers.Count(ctx)
}

// Close releases the file. Subsequent calls return the first result.
func (c *Credential) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.db.Close()
	})
	return c.closeErr
}

func (c *Credential) sessionKey(ctx context.Context) ([]byte, error) {
	c.keyOnce.Do(func() {
		salt, err := c.meta.Get(ctx, keySalt)
		if err != nil {
			c.keyErr = err
			return
		}
		if salt == nil {
			c.keyErr = fmt.Errorf("credential %s has no salt", c.id)
			return
		}
		c.key, c.keyErr = cryptox.DeriveKey(c.secret, salt)
	})
	return c.key, c.keyErr
}
