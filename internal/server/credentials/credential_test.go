package credentials

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/gophgram/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openNew(t *testing.T, s *Store) *Credential {
	t.Helper()
	ctx := context.Background()
	_, path, err := s.Create(ctx)
	require.NoError(t, err)
	c, err := s.Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCredential_LoginLifecycle(t *testing.T) {
	ctx := context.Background()
	c := openNew(t, newTestStore(t))

	phone, hash, err := c.PendingLogin(ctx)
	require.NoError(t, err)
	assert.Empty(t, phone)
	assert.Empty(t, hash)

	require.NoError(t, c.BeginLogin(ctx, "+15551234567", "h1"))
	st, err := c.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateCodeSent, st)

	phone, hash, err = c.PendingLogin(ctx)
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", phone)
	assert.Equal(t, "h1", hash)

	require.NoError(t, c.CompleteLogin(ctx))
	st, err = c.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, st)

	phone, hash, err = c.PendingLogin(ctx)
	require.NoError(t, err)
	assert.Empty(t, phone)
	assert.Empty(t, hash)
}

func TestCredential_SessionBlobRoundTripAcrossOpens(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, path, err := s.Create(ctx)
	require.NoError(t, err)

	c, err := s.Open(ctx, path)
	require.NoError(t, err)
	got, err := c.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.StoreSession(ctx, []byte(`{"dc":2}`)))
	require.NoError(t, c.Close())

	c, err = s.Open(ctx, path)
	require.NoError(t, err)
	defer c.Close()

	got, err = c.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"dc":2}`), got)

	// blob is not stored in the clear
	raw, err := c.meta.Get(ctx, keySession)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"dc"`)
}

func TestCredential_SessionBlobWrongSecret(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, path, err := s.Create(ctx)
	require.NoError(t, err)

	c, err := s.Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, c.StoreSession(ctx, []byte("secret")))
	require.NoError(t, c.Close())

	other := &Store{dir: s.Dir(), secret: []byte("another secret")}
	c, err = other.Open(ctx, path)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.LoadSession(ctx)
	require.Error(t, err)
}

func TestCredential_Peers(t *testing.T) {
	ctx := context.Background()
	c := openNew(t, newTestStore(t))

	_, ok, err := c.LookupPeer(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.StorePeers(ctx, nil))
	require.NoError(t, c.StorePeers(ctx, []platform.Peer{
		{ID: 42, Kind: platform.PeerUser, AccessHash: 7},
		{ID: -1000000000123, Kind: platform.PeerChannel, AccessHash: -9},
	}))
	require.NoError(t, c.StorePeers(ctx, []platform.Peer{
		{ID: 42, Kind: platform.PeerUser, AccessHash: 8},
	}))

	p, ok, err := c.LookupPeer(ctx, 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, platform.Peer{ID: 42, Kind: platform.PeerUser, AccessHash: 8}, p)

	p, ok, err = c.LookupPeer(ctx, -1000000000123)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, platform.PeerChannel, p.Kind)

	n, err := c.PeerCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCredential_CloseIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, path, err := s.Create(ctx)
	require.NoError(t, err)
	c, err := s.Open(ctx, path)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err = c.State(ctx)
	require.Error(t, err)
}

func TestParseAuthState(t *testing.T) {
	st, err := ParseAuthState("")
	require.NoError(t, err)
	assert.Equal(t, StateUnauthenticated, st)

	st, err = ParseAuthState("code_sent")
	require.NoError(t, err)
	assert.Equal(t, StateCodeSent, st)

	_, err = ParseAuthState("bogus")
	require.Error(t, err)
}
