package ctl

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophgram/internal/platform"
	"github.com/dmitrijs2005/gophgram/internal/server/credentials"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("GOPHGRAM_CONFIG", "")
	var out bytes.Buffer
	cmd := NewRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSessionsList(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "sessions", "list", "--sessions", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions found.")

	store, err := credentials.NewStore(dir, []byte("secret"))
	require.NoError(t, err)
	id, _, err := store.Create(context.Background())
	require.NoError(t, err)

	out, err = run(t, "sessions", "list", "--sessions", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, id)
	assert.Contains(t, out, string(credentials.StateUnauthenticated))
	assert.Contains(t, out, "PEERS")
}

func TestSessionsList_PeerCount(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := credentials.NewStore(dir, []byte("secret"))
	require.NoError(t, err)
	id, path, err := store.Create(ctx)
	require.NoError(t, err)

	cred, err := store.Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, cred.StorePeers(ctx, []platform.Peer{
		{ID: 1, Kind: platform.PeerUser, AccessHash: 10},
		{ID: 2, Kind: platform.PeerUser, AccessHash: 20},
		{ID: 3, Kind: platform.PeerUser, AccessHash: 30},
	}))
	require.NoError(t, cred.Close())

	out, err := run(t, "sessions", "list", "--sessions", dir)
	require.NoError(t, err)
	assert.Regexp(t, id+`\s+unauthenticated\s+3\s+`, out)
}

func TestSessionsRevoke(t *testing.T) {
	dir := t.TempDir()
	store, err := credentials.NewStore(dir, []byte("secret"))
	require.NoError(t, err)
	id, path, err := store.Create(context.Background())
	require.NoError(t, err)

	out, err := run(t, "sessions", "revoke", id, "--sessions", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Revoked session: "+id)
	assert.NoFileExists(t, path)

	_, err = run(t, "sessions", "revoke", id, "--sessions", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown session")

	_, err = run(t, "sessions", "revoke", "--sessions", dir)
	assert.Error(t, err)
}

func TestArtifactsPrune(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-2 * time.Hour)

	stale := filepath.Join(dir, uuid.NewString())
	partial := filepath.Join(dir, uuid.NewString()+".part")
	fresh := filepath.Join(dir, uuid.NewString())
	for _, p := range []string{stale, partial, fresh} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	}
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(partial, old, old))

	out, err := run(t, "artifacts", "prune", "--files", dir, "--older-than", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 artifacts and 1 partial downloads")
	assert.NoFileExists(t, stale)
	assert.NoFileExists(t, partial)
	assert.FileExists(t, fresh)
}

func TestArtifactsRm(t *testing.T) {
	dir := t.TempDir()
	id := uuid.NewString()
	p := filepath.Join(dir, id)
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))

	out, err := run(t, "artifacts", "rm", id, "--files", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed artifact: "+id)
	assert.NoFileExists(t, p)

	_, err = run(t, "artifacts", "rm", id, "--files", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown artifact")

	_, err = run(t, "artifacts", "rm", "../etc/passwd", "--files", dir)
	require.Error(t, err)

	_, err = run(t, "artifacts", "rm", "--files", dir)
	assert.Error(t, err)
}

func TestUnknownConfigFile(t *testing.T) {
	_, err := run(t, "sessions", "list", "-c", filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
