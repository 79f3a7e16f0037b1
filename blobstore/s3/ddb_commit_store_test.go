package s3

import (
	"context"
	"fmt"
	"testing"

	"github.com/hupe1980/vtable/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDDBCommitStore(ddb *mockDDBClient, baseURI string) *DDBCommitStore {
	return NewDDBCommitStore(NewStore(&MockS3Client{}, "test-bucket", "test/"), ddb, "vtable-commits", baseURI)
}

func readCurrent(t *testing.T, store blobstore.Store) string {
	t.Helper()
	data, err := blobstore.ReadAll(context.Background(), store, CurrentName)
	require.NoError(t, err)
	return string(data)
}

func TestDDBCommitStoreFirstCommit(t *testing.T) {
	ctx := context.Background()
	store := newTestDDBCommitStore(newMockDDBClient(), "s3://test-bucket/test/")

	_, err := store.Open(ctx, CurrentName)
	require.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, store.Put(ctx, CurrentName, []byte("snapshots/snapshot-00000000000000000001.bin")))
	assert.Equal(t, "snapshots/snapshot-00000000000000000001.bin", readCurrent(t, store))

	v, err := store.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)
}

func TestDDBCommitStoreLatestWins(t *testing.T) {
	ctx := context.Background()
	ddb := newMockDDBClient()
	store := newTestDDBCommitStore(ddb, "s3://test-bucket/test/")
	store.keep = 3

	for i := 1; i <= 12; i++ {
		require.NoError(t, store.Put(ctx, CurrentName, []byte(fmt.Sprintf("snapshot-%d", i))))
	}
	assert.Equal(t, "snapshot-12", readCurrent(t, store))
	assert.Equal(t, 3, ddb.len(), "old versions are pruned")
}

func TestDDBCommitStoreConflict(t *testing.T) {
	ctx := context.Background()
	ddb := newMockDDBClient()
	store := newTestDDBCommitStore(ddb, "s3://test-bucket/test/")
	other := newTestDDBCommitStore(ddb, "s3://test-bucket/test/")

	require.NoError(t, store.Put(ctx, CurrentName, []byte("a")))

	// The other writer commits version 2 after we read version 1.
	ddb.beforePut = func() {
		ddb.beforePut = nil
		require.NoError(t, other.Put(ctx, CurrentName, []byte("theirs")))
	}
	err := store.Put(ctx, CurrentName, []byte("ours"))
	assert.ErrorIs(t, err, ErrConcurrentModification)
	assert.Equal(t, "theirs", readCurrent(t, store))
}

func TestDDBCommitStoreIsolatedNamespaces(t *testing.T) {
	ctx := context.Background()
	ddb := newMockDDBClient()
	a := newTestDDBCommitStore(ddb, "s3://bucket/a/")
	b := newTestDDBCommitStore(ddb, "s3://bucket/b/")

	require.NoError(t, a.Put(ctx, CurrentName, []byte("a-1")))
	require.NoError(t, b.Put(ctx, CurrentName, []byte("b-1")))
	require.NoError(t, a.Put(ctx, CurrentName, []byte("a-2")))

	assert.Equal(t, "a-2", readCurrent(t, a))
	assert.Equal(t, "b-1", readCurrent(t, b))
}

func TestDDBCommitStoreCurrentNotDeletable(t *testing.T) {
	store := newTestDDBCommitStore(newMockDDBClient(), "s3://bucket/x/")
	assert.Error(t, store.Delete(context.Background(), CurrentName))
}
