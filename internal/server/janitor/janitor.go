// Package janitor periodically removes stale staged artifacts and
// credentials that never completed login.
package janitor

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophgram/internal/common"
	"github.com/dmitrijs2005/gophgram/internal/logging"
	"github.com/dmitrijs2005/gophgram/internal/server/artifacts"
	"github.com/dmitrijs2005/gophgram/internal/server/credentials"
	"github.com/dmitrijs2005/gophgram/internal/server/session"
)

type Options struct {
	// ArtifactTTL is how long staged artifacts are kept. Zero disables.
	ArtifactTTL time.Duration
	// PendingTTL is how long a credential may stay unauthenticated. Zero
	// disables.
	PendingTTL time.Duration
}

// Report counts what one sweep removed.
type Report struct {
	Artifacts   int
	Partials    int
	Credentials int
}

type Janitor struct {
	stager  *artifacts.Stager
	store   *credentials.Store
	factory *session.Factory
	opts    Options
	log     logging.Logger
	now     func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

func New(stager *artifacts.Stager, store *credentials.Store, factory *session.Factory, opts Options, log logging.Logger) *Janitor {
	return &Janitor{
		stager:  stager,
		store:   store,
		factory: factory,
		opts:    opts,
		log:     log.With("module", "janitor"),
		now:     time.Now,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start launches the sweep loop. Close stops it.
func (j *Janitor) Start(interval time.Duration) {
	go j.run(interval)
}

// Close stops the loop and waits for it to exit. It must follow Start.
func (j *Janitor) Close() {
	close(j.stopCh)
	<-j.doneCh
}

func (j *Janitor) run(interval time.Duration) {
	defer close(j.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			rep, err := j.Sweep(ctx)
			cancel()
			if err != nil {
				j.log.Warn(ctx, "sweep finished with errors", "error", err)
			}
			if rep != (Report{}) {
				j.log.Info(ctx, "sweep", "artifacts", rep.Artifacts, "partials", rep.Partials, "credentials", rep.Credentials)
			}
		case <-j.stopCh:
			return
		}
	}
}

// Sweep runs one cleanup pass.
func (j *Janitor) Sweep(ctx context.Context) (Report, error) {
	var rep Report
	var errs []error

	if j.opts.ArtifactTTL > 0 {
		res, err := j.stager.Prune(j.now().Add(-j.opts.ArtifactTTL))
		rep.Artifacts, rep.Partials = res.Artifacts, res.Partials
		if err != nil {
			errs = append(errs, err)
		}
	}

	if j.opts.PendingTTL > 0 {
		n, err := j.prunePending(ctx, j.now().Add(-j.opts.PendingTTL))
		rep.Credentials = n
		if err != nil {
			errs = append(errs, err)
		}
	}

	return rep, errors.Join(errs...)
}

func (j *Janitor) prunePending(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := j.store.List()
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs []error
	for _, e := range entries {
		if !e.ModTime.Before(cutoff) {
			continue
		}
		err := j.factory.WithLock(ctx, e.Path, func(ctx context.Context) error {
			st, err := j.state(ctx, e.Path)
			if errors.Is(err, common.ErrForbidden) {
				return nil
			}
			if err != nil || st == credentials.StateAuthenticated {
				return err
			}
			if err := j.store.Remove(e.ID); err != nil {
				return err
			}
			removed++
			return nil
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return removed, errors.Join(errs...)
}

func (j *Janitor) state(ctx context.Context, path string) (credentials.AuthState, error) {
	c, err := j.store.Open(ctx, path)
	if err != nil {
		return "", err
	}
	defer c.Close()
	return c.State(ctx)
}
