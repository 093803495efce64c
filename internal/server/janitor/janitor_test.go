package janitor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophgram/internal/logging"
	"github.com/dmitrijs2005/gophgram/internal/platform/platformtest"
	"github.com/dmitrijs2005/gophgram/internal/server/artifacts"
	"github.com/dmitrijs2005/gophgram/internal/server/credentials"
	"github.com/dmitrijs2005/gophgram/internal/server/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	j      *Janitor
	store  *credentials.Store
	stager *artifacts.Stager
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := credentials.NewStore(filepath.Join(dir, "sessions"), []byte("k"))
	require.NoError(t, err)
	stager, err := artifacts.NewStager(filepath.Join(dir, "files"))
	require.NoError(t, err)
	f := session.NewFactory(store, &platformtest.Connector{}, logging.NewNop())
	return &fixture{j: New(stager, store, f, opts, logging.NewNop()), store: store, stager: stager}
}

func age(t *testing.T, path string, d time.Duration) {
	t.Helper()
	past := time.Now().Add(-d)
	require.NoError(t, os.Chtimes(path, past, past))
}

func TestSweep_PendingCredentials(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, Options{PendingTTL: time.Hour})

	staleID, stalePath, err := fx.store.Create(ctx)
	require.NoError(t, err)
	freshID, _, err := fx.store.Create(ctx)
	require.NoError(t, err)
	authID, authPath, err := fx.store.Create(ctx)
	require.NoError(t, err)

	c, err := fx.store.Open(ctx, authPath)
	require.NoError(t, err)
	require.NoError(t, c.CompleteLogin(ctx))
	require.NoError(t, c.Close())

	age(t, stalePath, 2*time.Hour)
	age(t, authPath, 2*time.Hour)

	rep, err := fx.j.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Credentials: 1}, rep)

	_, err = fx.store.Resolve(staleID)
	assert.Error(t, err)
	_, err = fx.store.Resolve(freshID)
	assert.NoError(t, err)
	_, err = fx.store.Resolve(authID)
	assert.NoError(t, err)
}

func TestSweep_Artifacts(t *testing.T) {
	fx := newFixture(t, Options{ArtifactTTL: time.Hour})

	a, err := fx.stager.Stage(strings.NewReader("x"), 1)
	require.NoError(t, err)
	age(t, a.Path, 3*time.Hour)
	b, err := fx.stager.Stage(strings.NewReader("y"), 1)
	require.NoError(t, err)

	rep, err := fx.j.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Artifacts: 1}, rep)
	assert.NoFileExists(t, a.Path)
	assert.FileExists(t, b.Path)
}

func TestSweep_Disabled(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, Options{})

	_, p, err := fx.store.Create(ctx)
	require.NoError(t, err)
	age(t, p, 100*time.Hour)

	rep, err := fx.j.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{}, rep)
	assert.FileExists(t, p)
}

func TestStartClose(t *testing.T) {
	fx := newFixture(t, Options{ArtifactTTL: time.Nanosecond})
	a, err := fx.stager.Stage(strings.NewReader("x"), 1)
	require.NoError(t, err)
	age(t, a.Path, time.Minute)

	fx.j.Start(5 * time.Millisecond)
	assert.Eventually(t, func() bool {
		_, err := os.Stat(a.Path)
		return os.IsNotExist(err)
	}, time.Second, 5*time.Millisecond)
	fx.j.Close()
}
