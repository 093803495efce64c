package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophgram/internal/dbx"
)

// Metadata keys stored in a credential file.
const (
	keyState        = "auth_state"
	keyPendingPhone = "pending_phone"
	keyPendingHash  = "pending_phone_code_hash"
	keySalt         = "salt"
	keySession      = "session"
)

// metadataRepo is a key/value table inside one credential file.
type metadataRepo struct {
	db dbx.DBTX
}

func newMetadataRepo(db dbx.DBTX) *metadataRepo {
	return &metadataRepo{db: db}
}

// Get returns (nil, nil) when the key is absent.
func (r *metadataRepo) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func (r *metadataRepo) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

func (r *metadataRepo) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key); err != nil {
			return fmt.Errorf("failed to delete metadata[%s]: %w", key, err)
		}
	}
	return nil
}
