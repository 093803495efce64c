// Package credentials maps opaque session identifiers to per-user credential
// files. Each credential is a small SQLite database holding the auth state,
// the encrypted protocol session and the peer cache.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophgram/internal/common"
	"github.com/dmitrijs2005/gophgram/internal/cryptox"
	"github.com/dmitrijs2005/gophgram/internal/dbx"
	"github.com/dmitrijs2005/gophgram/internal/filex"
	"github.com/dmitrijs2005/gophgram/internal/server/credentials/migrations"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
)

// Ext is the credential file extension.
const Ext = ".session"

// sidecar suffixes SQLite may leave next to a credential file.
var sidecars = []string{"-journal", "-wal", "-shm"}

// gooseUp is a seam for testing migration failures.
var gooseUp = func(ctx context.Context, db *sql.DB) error {
	p, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return err
	}
	_, err = p.Up(ctx)
	return err
}

// Entry describes a credential file on disk.
type Entry struct {
	ID      string
	Path    string
	ModTime time.Time
}

type Store struct {
	dir    string
	secret []byte
}

// NewStore creates dir when missing. secret keys the session blob encryption.
func NewStore(dir string, secret []byte) (*Store, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("sessions dir: %w", err)
	}
	return &Store{dir: abs, secret: secret}, nil
}

func (s *Store) Dir() string { return s.dir }

// Path returns the canonical file for id without checking it exists.
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, id+Ext)
}

// Resolve returns the credential path for id, or common.ErrForbidden when id
// is malformed or names no credential file.
func (s *Store) Resolve(id string) (string, error) {
	if !validID(id) {
		return "", common.ErrForbidden
	}
	p := s.Path(id)
	if !filex.IsRegularFile(p) {
		return "", common.ErrForbidden
	}
	return p, nil
}

// Create makes a fresh credential in the unauthenticated state.
func (s *Store) Create(ctx context.Context) (id, path string, err error) {
	sid := uuid.NewString()
	p := s.Path(sid)

	db, err := dbx.OpenSQLite(ctx, p)
	if err != nil {
		_ = s.Remove(sid)
		return "", "", err
	}
	defer func() {
		if cerr := db.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			_ = s.Remove(sid)
		}
	}()

	if err := gooseUp(ctx, db); err != nil {
		return "", "", fmt.Errorf("migrate %s: %w", p, err)
	}

	salt, err := cryptox.NewSalt()
	if err != nil {
		return "", "", err
	}

	err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		m := newMetadataRepo(tx)
		if err := m.Set(ctx, keySalt, salt); err != nil {
			return err
		}
		return m.Set(ctx, keyState, []byte(StateUnauthenticated))
	})
	if err != nil {
		return "", "", err
	}
	return sid, p, nil
}

// Open opens a resolved credential path.
func (s *Store) Open(ctx context.Context, path string) (*Credential, error) {
	if !filex.IsRegularFile(path) {
		return nil, common.ErrForbidden
	}
	db, err := dbx.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	id := strings.TrimSuffix(filepath.Base(path), Ext)
	return newCredential(id, path, db, s.secret), nil
}

// Remove deletes the credential file and its sidecars. Missing files are not
// an error.
func (s *Store) Remove(id string) error {
	if !validID(id) {
		return common.ErrForbidden
	}
	p := s.Path(id)
	var errs []error
	for _, f := range append([]string{p}, sidecarPaths(p)...) {
		if err := filex.RemoveIfExists(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// List returns credentials sorted by modification time, oldest first.
func (s *Store) List() ([]Entry, error) {
	des, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.dir, err)
	}

	out := make([]Entry, 0, len(des))
	for _, de := range des {
		name := de.Name()
		if !de.Type().IsRegular() || !strings.HasSuffix(name, Ext) {
			continue
		}
		id := strings.TrimSuffix(name, Ext)
		if !validID(id) {
			continue
		}
		info, err := de.Info()
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{ID: id, Path: filepath.Join(s.dir, name), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModTime.Before(out[j].ModTime) })
	return out, nil
}

func validID(id string) bool {
	u, err := uuid.Parse(id)
	return err == nil && u.String() == id
}

func sidecarPaths(p string) []string {
	out := make([]string, len(sidecars))
	for i, s := range sidecars {
		out[i] = p + s
	}
	return out
}
