// Package artifacts stages downloaded attachments on local disk under random
// names. Bytes are written to "<id>.part" and renamed to "<id>" only once the
// stream has been consumed completely, so a servable artifact is never
// partial.
package artifacts

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophgram/internal/filex"
	"github.com/google/uuid"
)

// PartExt marks an artifact that is still being written or was interrupted.
const PartExt = ".part"

// ErrShortWrite means the stream ended before the advertised size.
var ErrShortWrite = errors.New("stream shorter than advertised size")

type Artifact struct {
	ID   string
	Path string
	Size int64
}

type Stager struct {
	dir string
}

func NewStager(dir string) (*Stager, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("files dir: %w", err)
	}
	return &Stager{dir: abs}, nil
}

func (s *Stager) Dir() string { return s.dir }

// Stage copies r into a new artifact. expected is the advertised size, or a
// negative value when unknown. On failure the .part file is left behind for
// Prune.
func (s *Stager) Stage(r io.Reader, expected int64) (Artifact, error) {
	id := uuid.NewString()
	final := filepath.Join(s.dir, id)
	part := final + PartExt

	f, err := os.OpenFile(part, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return Artifact{}, fmt.Errorf("create %s: %w", part, err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("write %s after %d bytes: %w", part, n, err)
	}
	if expected >= 0 && n != expected {
		return Artifact{}, fmt.Errorf("%w: got %d of %d bytes", ErrShortWrite, n, expected)
	}

	if err := os.Rename(part, final); err != nil {
		return Artifact{}, fmt.Errorf("rename %s: %w", part, err)
	}
	return Artifact{ID: id, Path: final, Size: n}, nil
}

// Path returns the location of a finished artifact, false when id is not a
// finished artifact of this stager.
func (s *Stager) Path(id string) (string, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	p := filepath.Join(s.dir, id)
	return p, filex.IsRegularFile(p)
}

func (s *Stager) Remove(id string) error {
	p, ok := s.Path(id)
	if !ok {
		return nil
	}
	return filex.RemoveIfExists(p)
}

// PruneResult counts what Prune removed.
type PruneResult struct {
	Artifacts int
	Partials  int
}

// Prune removes finished and partial artifacts last modified before cutoff.
func (s *Stager) Prune(cutoff time.Time) (PruneResult, error) {
	var res PruneResult

	des, err := os.ReadDir(s.dir)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", s.dir, err)
	}

	var errs []error
	for _, de := range des {
		if !de.Type().IsRegular() {
			continue
		}
		name := de.Name()
		partial := strings.HasSuffix(name, PartExt)
		if _, err := uuid.Parse(strings.TrimSuffix(name, PartExt)); err != nil {
			continue
		}

		info, err := de.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		if err := filex.RemoveIfExists(filepath.Join(s.dir, name)); err != nil {
			errs = append(errs, err)
			continue
		}
		if partial {
			res.Partials++
		} else {
			res.Artifacts++
		}
	}
	return res, errors.Join(errs...)
}
