package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/besra/killfeed/internal/store"
)

func openTestIndex(t *testing.T, path string) *FileIndex {
	t.Helper()
	idx, err := OpenFile(store.NewJSONFile(path))
	require.NoError(t, err)
	return idx
}

func TestFileIndex_ClaimOnce(t *testing.T) {
	idx := openTestIndex(t, filepath.Join(t.TempDir(), "index.json"))
	ctx := context.Background()

	won, err := idx.Claim(ctx, 100, "h1")
	require.NoError(t, err)
	assert.True(t, won)

	won, err = idx.Claim(ctx, 100, "h1")
	require.NoError(t, err)
	assert.False(t, won, "second claim of the same ref must lose")

	// same id with a different hash is a distinct ref
	won, err = idx.Claim(ctx, 100, "h2")
	require.NoError(t, err)
	assert.True(t, won)
}

func TestFileIndex_ClaimSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	ctx := context.Background()

	idx := openTestIndex(t, path)
	won, err := idx.Claim(ctx, 100, "h1")
	require.NoError(t, err)
	require.True(t, won)

	reopened := openTestIndex(t, path)
	won, err = reopened.Claim(ctx, 100, "h1")
	require.NoError(t, err)
	assert.False(t, won, "claims are durable across restarts")
}

func TestFileIndex_FailedPersistRollsBack(t *testing.T) {
	dir := t.TempDir()
	idx := openTestIndex(t, filepath.Join(dir, "index.json"))
	ctx := context.Background()

	// make the target unwritable so Save fails
	idx.file = store.NewJSONFile(filepath.Join(dir, "index.json", "impossible"))
	won, err := idx.Claim(ctx, 200, "h1")
	assert.False(t, won)
	assert.Error(t, err)

	// the in-memory claim was rolled back: a retry can win it
	idx.file = store.NewJSONFile(filepath.Join(dir, "index.json"))
	won, err = idx.Claim(ctx, 200, "h1")
	require.NoError(t, err)
	assert.True(t, won, "a non-durable claim must be claimable again")
}

func TestFileIndex_ReconcileKeepsIntersection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	idx := openTestIndex(t, path)
	ctx := context.Background()

	for _, ref := range []struct {
		id   int64
		hash string
	}{{100, "h1"}, {101, "h2"}, {102, "h3"}} {
		won, err := idx.Claim(ctx, ref.id, ref.hash)
		require.NoError(t, err)
		require.True(t, won)
	}

	current := map[Key]struct{}{
		{ID: 100, Hash: "h1"}: {},
		{ID: 102, Hash: "h3"}: {},
		{ID: 999, Hash: "hx"}: {}, // upstream-only, never claimed
	}
	require.NoError(t, idx.Reconcile(ctx, current))

	snap, err := idx.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[Key]struct{}{
		{ID: 100, Hash: "h1"}: {},
		{ID: 102, Hash: "h3"}: {},
	}, snap, "reconcile keeps claimed ∩ upstream, never inserts")

	// pruned refs are claimable again
	won, err := idx.Claim(ctx, 101, "h2")
	require.NoError(t, err)
	assert.True(t, won)

	// and the prune was persisted
	reopened := openTestIndex(t, path)
	snap, err = reopened.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap, 3)
}

func TestFileIndex_ReconcileNoChangeSkipsWrite(t *testing.T) {
	idx := openTestIndex(t, filepath.Join(t.TempDir(), "index.json"))
	ctx := context.Background()

	won, err := idx.Claim(ctx, 100, "h1")
	require.NoError(t, err)
	require.True(t, won)

	// nothing stale: even with a broken file target this must be a no-op
	idx.file = store.NewJSONFile("/dev/null/impossible")
	err = idx.Reconcile(ctx, map[Key]struct{}{{ID: 100, Hash: "h1"}: {}})
	assert.NoError(t, err)
}

func TestFileIndex_SnapshotIsACopy(t *testing.T) {
	idx := openTestIndex(t, filepath.Join(t.TempDir(), "index.json"))
	ctx := context.Background()

	won, err := idx.Claim(ctx, 100, "h1")
	require.NoError(t, err)
	require.True(t, won)

	snap, err := idx.Snapshot(ctx)
	require.NoError(t, err)
	delete(snap, Key{ID: 100, Hash: "h1"})

	again, err := idx.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, again, 1, "mutating a snapshot must not touch the ledger")
}
