package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophgram/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataRepo_DBErrorsWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	r := newMetadataRepo(db)
	boom := errors.New("disk I/O error")

	mock.ExpectQuery(`SELECT value FROM metadata`).WithArgs("k").WillReturnError(boom)
	_, err = r.Get(ctx, "k")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to get metadata[k]")

	mock.ExpectExec(`INSERT INTO metadata`).WithArgs("k", []byte("v")).WillReturnError(boom)
	err = r.Set(ctx, "k", []byte("v"))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to set metadata[k]")

	mock.ExpectExec(`DELETE FROM metadata`).WithArgs("a").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM metadata`).WithArgs("b").WillReturnError(boom)
	err = r.Delete(ctx, "a", "b")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to delete metadata[b]")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMetadataRepo_GetMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT value FROM metadata`).WithArgs("absent").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	v, err := newMetadataRepo(db).Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestPeerRepo_DBErrorsWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	r := newPeerRepo(db)
	boom := errors.New("locked")

	mock.ExpectQuery(`SELECT kind, access_hash FROM peers`).WithArgs(int64(5)).WillReturnError(boom)
	_, _, err = r.Lookup(ctx, 5)
	require.ErrorIs(t, err, boom)

	mock.ExpectExec(`INSERT INTO peers`).WillReturnError(boom)
	err = r.Upsert(ctx, platform.Peer{ID: 5, Kind: platform.PeerChat, AccessHash: 1})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to store peer 5")

	mock.ExpectQuery(`SELECT COUNT`).WillReturnError(boom)
	_, err = r.Count(ctx)
	require.ErrorIs(t, err, boom)

	require.NoError(t, mock.ExpectationsWereMet())
}
