package authorizations

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

var (
	alice = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bob   = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE authorizations (
  account      TEXT PRIMARY KEY,
  granted_at   INTEGER NOT NULL,
  last_used_at INTEGER NOT NULL
);`)
	require.NoError(t, err)

	r := NewSQLiteRepository(db)
	base := time.Unix(1_700_000_000, 0)
	tick := 0
	r.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return r
}

func accounts(t *testing.T, r *SQLiteRepository) []common.Address {
	t.Helper()
	list, err := r.List(context.Background())
	require.NoError(t, err)
	out := make([]common.Address, 0, len(list))
	for _, a := range list {
		out = append(out, a.Account)
	}
	return out
}

func TestList_EmptyReturnsNil(t *testing.T) {
	r := setupRepo(t)
	assert.Empty(t, accounts(t, r))
}

func TestGrant_MostRecentFirst(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Grant(ctx, alice))
	require.NoError(t, r.Grant(ctx, bob))

	assert.Equal(t, []common.Address{bob, alice}, accounts(t, r))
}

func TestGrant_RegrantKeepsGrantedAt(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Grant(ctx, alice))
	first, err := r.List(ctx)
	require.NoError(t, err)

	require.NoError(t, r.Grant(ctx, alice))
	second, err := r.List(ctx)
	require.NoError(t, err)

	require.Len(t, second, 1)
	assert.True(t, first[0].GrantedAt.Equal(second[0].GrantedAt))
	assert.True(t, second[0].LastUsedAt.After(first[0].LastUsedAt))
}

func TestSelect_MovesAccountToFront(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()
	require.NoError(t, r.Grant(ctx, alice))
	require.NoError(t, r.Grant(ctx, bob))

	require.NoError(t, r.Select(ctx, alice))

	assert.Equal(t, []common.Address{alice, bob}, accounts(t, r))
}

func TestSelect_UnknownAccount(t *testing.T) {
	r := setupRepo(t)

	err := r.Select(context.Background(), alice)

	require.ErrorIs(t, err, ErrNotAuthorized)
}

func TestRevokeAndClear(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()
	require.NoError(t, r.Grant(ctx, alice))
	require.NoError(t, r.Grant(ctx, bob))

	require.NoError(t, r.Revoke(ctx, bob))
	require.NoError(t, r.Revoke(ctx, bob))
	assert.Equal(t, []common.Address{alice}, accounts(t, r))

	require.NoError(t, r.Clear(ctx))
	assert.Empty(t, accounts(t, r))
}
