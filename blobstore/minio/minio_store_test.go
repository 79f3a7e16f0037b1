package minio

import (
	"context"
	"os"
	"testing"

	"github.com/hupe1980/vtable/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreKeys(t *testing.T) {
	client, err := NewClient("localhost:9000", "key", "secret", false)
	require.NoError(t, err)

	store := NewStore(client, "bucket", "tenant/")
	assert.Equal(t, "tenant/snapshots/snapshot-1.bin", store.key("snapshots/snapshot-1.bin"))
	assert.Equal(t, "tenant/CURRENT", store.key("CURRENT"))
}

// TestStoreIntegration runs against the MinIO server in VTABLE_MINIO_ENDPOINT
// (credentials minioadmin/minioadmin).
func TestStoreIntegration(t *testing.T) {
	endpoint := os.Getenv("VTABLE_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("VTABLE_MINIO_ENDPOINT not set")
	}

	client, err := NewClient(endpoint, "minioadmin", "minioadmin", false)
	require.NoError(t, err)

	ctx := context.Background()
	store := NewStore(client, "vtable-test", "it/")
	require.NoError(t, store.EnsureBucket(ctx))

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "snapshots/a.bin", data))

	got, err := blobstore.ReadAll(ctx, store, "snapshots/a.bin")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	names, err := store.List(ctx, "snapshots/")
	require.NoError(t, err)
	assert.Contains(t, names, "snapshots/a.bin")

	require.NoError(t, store.Delete(ctx, "snapshots/a.bin"))
	_, err = store.Open(ctx, "snapshots/a.bin")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
