package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophgram/internal/dbx"
	"github.com/dmitrijs2005/gophgram/internal/platform"
)

// peerRepo caches entity references (marked id, kind, access hash) so later
// requests can address chats without listing dialogs again.
type peerRepo struct {
	db dbx.DBTX
}

func newPeerRepo(db dbx.DBTX) *peerRepo {
	return &peerRepo{db: db}
}

func (r *peerRepo) Lookup(ctx context.Context, id int64) (platform.Peer, bool, error) {
	p := platform.Peer{ID: id}
	err := r.db.QueryRowContext(ctx,
		`SELECT kind, access_hash FROM peers WHERE id = ?`, id,
	).Scan(&p.Kind, &p.AccessHash)
	if errors.Is(err, sql.ErrNoRows) {
		return platform.Peer{}, false, nil
	}
	if err != nil {
		return platform.Peer{}, false, fmt.Errorf("failed to get peer %d: %w", id, err)
	}
	return p, true, nil
}

func (r *peerRepo) Upsert(ctx context.Context, p platform.Peer) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO peers (id, kind, access_hash) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			access_hash = excluded.access_hash,
			updated_at = CURRENT_TIMESTAMP
	`, p.ID, p.Kind, p.AccessHash)
	if err != nil {
		return fmt.Errorf("failed to store peer %d: %w", p.ID, err)
	}
	return nil
}

func (r *peerRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM peers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count peers: %w", err)
	}
	return n, nil
}
