package index

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisIndex_Claim(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	idx := NewRedis(rdb, "")
	ctx := context.Background()

	mock.ExpectSAdd("killfeed:claims", "100:h1").SetVal(1)
	won, err := idx.Claim(ctx, 100, "h1")
	require.NoError(t, err)
	assert.True(t, won)

	mock.ExpectSAdd("killfeed:claims", "100:h1").SetVal(0)
	won, err = idx.Claim(ctx, 100, "h1")
	require.NoError(t, err)
	assert.False(t, won, "SADD of an existing member loses the claim")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisIndex_ReconcilePrunesStale(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	idx := NewRedis(rdb, "claims")
	ctx := context.Background()

	mock.ExpectSMembers("claims").SetVal([]string{"100:h1", "101:h2", "garbage"})
	mock.ExpectSRem("claims", "101:h2", "garbage").SetVal(2)

	err := idx.Reconcile(ctx, map[Key]struct{}{{ID: 100, Hash: "h1"}: {}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisIndex_ReconcileNoStaleSkipsSRem(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	idx := NewRedis(rdb, "claims")

	mock.ExpectSMembers("claims").SetVal([]string{"100:h1"})
	err := idx.Reconcile(context.Background(), map[Key]struct{}{{ID: 100, Hash: "h1"}: {}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisIndex_Snapshot(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	idx := NewRedis(rdb, "claims")

	mock.ExpectSMembers("claims").SetVal([]string{"100:h1", "101:h:with:colons", "not-a-ref"})
	snap, err := idx.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[Key]struct{}{
		{ID: 100, Hash: "h1"}:           {},
		{ID: 101, Hash: "h:with:colons"}: {},
	}, snap, "hashes may contain colons; only the first separates id from hash")
}

func TestMemberRoundTrip(t *testing.T) {
	k, ok := parseMember(member(12345, "abcdef"))
	require.True(t, ok)
	assert.Equal(t, Key{ID: 12345, Hash: "abcdef"}, k)

	_, ok = parseMember("no-separator")
	assert.False(t, ok)
	_, ok = parseMember("notanumber:hash")
	assert.False(t, ok)
}
