package filejournal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/vtable/blobstore"
	"github.com/hupe1980/vtable/codec"
	"github.com/hupe1980/vtable/docstore"
	"github.com/hupe1980/vtable/internal/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commit(version uint64) *docstore.Commit {
	return &docstore.Commit{
		Version: version,
		Mutations: []docstore.Mutation{{
			Op:         docstore.OpPut,
			Collection: "things",
			ID:         fmt.Sprintf("id-%d", version),
			Data:       []byte(fmt.Sprintf(`{"n":%d}`, version)),
		}},
	}
}

func openJournal(t *testing.T, dir string, optFns ...func(o *Options)) (*Journal, []*docstore.Commit) {
	t.Helper()
	j, err := Open(dir, optFns...)
	require.NoError(t, err)

	var got []*docstore.Commit
	require.NoError(t, j.Recover(context.Background(), func(c *docstore.Commit) error {
		got = append(got, c)
		return nil
	}))
	return j, got
}

func versions(cs []*docstore.Commit) []uint64 {
	out := make([]uint64, len(cs))
	for i, c := range cs {
		out[i] = c.Version
	}
	return out
}

func TestAppendRecover(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	j, got := openJournal(t, dir)
	assert.Empty(t, got)
	for v := uint64(1); v <= 3; v++ {
		require.NoError(t, j.Append(ctx, commit(v)))
	}
	assert.Equal(t, uint64(3), j.Version())
	require.NoError(t, j.Close())

	j, got = openJournal(t, dir)
	defer j.Close()
	assert.Equal(t, []uint64{1, 2, 3}, versions(got))
	assert.Equal(t, commit(2).Mutations, got[1].Mutations)
	assert.Equal(t, []string{segmentName(1)}, j.Segments())
}

func TestCompressedRecords(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	j, _ := openJournal(t, dir, func(o *Options) { o.Compress = true })
	require.NoError(t, j.Append(ctx, commit(1)))
	require.NoError(t, j.Close())

	// Compression is per record, so a reader without it still decodes.
	j, _ = openJournal(t, dir)
	require.NoError(t, j.Append(ctx, commit(2)))
	require.NoError(t, j.Close())

	j, got := openJournal(t, dir, func(o *Options) { o.Compress = true })
	defer j.Close()
	assert.Equal(t, []uint64{1, 2}, versions(got))
	assert.Equal(t, commit(1).Mutations, got[0].Mutations)
}

func TestTornTailIsTruncated(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	j, _ := openJournal(t, dir)
	require.NoError(t, j.Append(ctx, commit(1)))
	require.NoError(t, j.Append(ctx, commit(2)))
	require.NoError(t, j.Close())

	path := filepath.Join(dir, segmentName(1))
	before, err := os.Stat(path)
	require.NoError(t, err)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.Write([]byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x03})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	j, got := openJournal(t, dir)
	assert.Equal(t, []uint64{1, 2}, versions(got))

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.Size(), after.Size())

	require.NoError(t, j.Append(ctx, commit(3)))
	require.NoError(t, j.Close())

	j, got = openJournal(t, dir)
	defer j.Close()
	assert.Equal(t, []uint64{1, 2, 3}, versions(got))
}

func TestPartialWriteIsTruncated(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	faulty := fs.NewFaultyFS(fs.Default)
	j, _ := openJournal(t, dir, func(o *Options) { o.FileSystem = faulty })
	require.NoError(t, j.Append(ctx, commit(1)))
	require.NoError(t, j.Close())

	// The header is already on disk, so the limit counts record bytes only.
	faulty.AddRule("wal-", fs.Fault{FailAfterBytes: 10})
	j, got := openJournal(t, dir, func(o *Options) { o.FileSystem = faulty })
	assert.Len(t, got, 1)
	assert.ErrorIs(t, j.Append(ctx, commit(2)), fs.ErrInjected)
	_ = j.Close()

	faulty.Reset()
	j, got = openJournal(t, dir, func(o *Options) { o.FileSystem = faulty })
	defer j.Close()
	assert.Equal(t, []uint64{1}, versions(got))
}

func TestCheckpoint(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	snaps := blobstore.NewMemoryStore()
	withSnaps := func(o *Options) { o.Snapshots = snaps }

	j, _ := openJournal(t, dir, withSnaps)
	for v := uint64(1); v <= 3; v++ {
		require.NoError(t, j.Append(ctx, commit(v)))
	}

	base := &docstore.Commit{Version: 3}
	for v := uint64(1); v <= 3; v++ {
		base.Mutations = append(base.Mutations, commit(v).Mutations...)
	}
	require.NoError(t, j.BeginCheckpoint(3))
	require.NoError(t, j.Append(ctx, commit(4)))
	require.NoError(t, j.Checkpoint(ctx, base))

	assert.Equal(t, []string{segmentName(4)}, j.Segments())
	names, err := snaps.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"snapshots/CURRENT", snapshotName(DefaultSnapshotPrefix, 3)}, names)
	require.NoError(t, j.Close())

	j, got := openJournal(t, dir, withSnaps)
	defer j.Close()
	assert.Equal(t, []uint64{3, 4}, versions(got))
	assert.Len(t, got[0].Mutations, 3)
	assert.Equal(t, uint64(4), j.Version())
}

func TestBeginCheckpointWithoutNewCommits(t *testing.T) {
	ctx := context.Background()
	j, _ := openJournal(t, t.TempDir(), func(o *Options) { o.Snapshots = blobstore.NewMemoryStore() })
	defer j.Close()

	require.NoError(t, j.Append(ctx, commit(1)))
	require.NoError(t, j.BeginCheckpoint(1))
	require.NoError(t, j.BeginCheckpoint(1))
	assert.Equal(t, []string{segmentName(1), segmentName(2)}, j.Segments())
}

func TestSnapshotRetention(t *testing.T) {
	ctx := context.Background()
	snaps := blobstore.NewMemoryStore()
	j, _ := openJournal(t, t.TempDir(), func(o *Options) {
		o.Snapshots = snaps
		o.KeepSnapshots = 2
	})
	defer j.Close()

	for v := uint64(1); v <= 4; v++ {
		require.NoError(t, j.Append(ctx, commit(v)))
		require.NoError(t, j.BeginCheckpoint(v))
		require.NoError(t, j.Checkpoint(ctx, &docstore.Commit{Version: v}))
	}

	names, err := snaps.List(ctx, DefaultSnapshotPrefix+"snapshot-")
	require.NoError(t, err)
	assert.Equal(t, []string{
		snapshotName(DefaultSnapshotPrefix, 3),
		snapshotName(DefaultSnapshotPrefix, 4),
	}, names)
	assert.Equal(t, []string{segmentName(5)}, j.Segments())
}

func TestSnapshotCodecMismatch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	snaps := blobstore.NewMemoryStore()

	j, _ := openJournal(t, dir, func(o *Options) {
		o.Snapshots = snaps
		o.Codec = codec.JSON{}
	})
	require.NoError(t, j.Append(ctx, commit(1)))
	require.NoError(t, j.BeginCheckpoint(1))
	require.NoError(t, j.Checkpoint(ctx, commit(1)))
	require.NoError(t, j.Close())

	j, err := Open(dir, func(o *Options) {
		o.Snapshots = snaps
		o.Codec = codec.GoJSON{}
	})
	require.NoError(t, err)
	defer j.Close()
	err = j.Recover(ctx, func(*docstore.Commit) error { return nil })
	assert.ErrorIs(t, err, ErrCodecMismatch)
}

func TestSnapshotChecksum(t *testing.T) {
	data, err := encodeSnapshot(commit(9), "json")
	require.NoError(t, err)

	c, err := decodeSnapshot(data, "json")
	require.NoError(t, err)
	assert.Equal(t, commit(9), c)

	data[len(data)-1] ^= 0xff
	_, err = decodeSnapshot(data, "json")
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	_, err = decodeSnapshot([]byte("short"), "json")
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
}

func TestDirectoryLock(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(dir)
	require.NoError(t, err)

	_, err = Open(dir)
	assert.ErrorIs(t, err, fs.ErrLocked)

	require.NoError(t, j.Close())
	j, err = Open(dir)
	require.NoError(t, err)
	require.NoError(t, j.Close())
}

func TestAppendBeforeRecover(t *testing.T) {
	j, err := Open(t.TempDir())
	require.NoError(t, err)
	defer j.Close()

	assert.ErrorIs(t, j.Append(context.Background(), commit(1)), ErrNotRecovered)
	assert.ErrorIs(t, j.BeginCheckpoint(1), ErrNotRecovered)
}

func TestVersionGapIsCorruption(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	j, _ := openJournal(t, dir)
	require.NoError(t, j.Append(ctx, commit(1)))
	require.NoError(t, j.Append(ctx, commit(3)))
	require.NoError(t, j.Close())

	j, err := Open(dir)
	require.NoError(t, err)
	defer j.Close()
	err = j.Recover(ctx, func(*docstore.Commit) error { return nil })
	assert.ErrorIs(t, err, ErrCorrupt)
}

type thing struct {
	ID    string `json:"id"`
	Group string `json:"group"`
}

var things = docstore.NewCollection[thing]("things",
	docstore.Index[thing]{Name: "byGroup", Key: func(x thing) []any { return []any{x.Group} }},
)

func TestDocstoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	open := func() *docstore.Store {
		j, err := Open(dir, func(o *Options) { o.Compress = true })
		require.NoError(t, err)
		s, err := docstore.Open(ctx, []docstore.Definition{things}, docstore.WithJournal(j))
		require.NoError(t, err)
		return s
	}

	s := open()
	for i := range 5 {
		require.NoError(t, s.Update(ctx, func(tx *docstore.Tx) error {
			return things.Insert(tx, fmt.Sprintf("t%d", i), thing{ID: fmt.Sprintf("t%d", i), Group: "g"})
		}))
	}
	require.NoError(t, s.Checkpoint(ctx))
	require.NoError(t, s.Update(ctx, func(tx *docstore.Tx) error {
		return things.Delete(tx, "t0")
	}))
	require.NoError(t, s.Close())

	s = open()
	defer s.Close()
	assert.Equal(t, uint64(6), s.Version())

	var ids []string
	require.NoError(t, s.View(ctx, func(tx *docstore.Tx) error {
		var err error
		ids, err = things.Query(tx, "byGroup", "g").IDs()
		return err
	}))
	assert.Equal(t, []string{"t1", "t2", "t3", "t4"}, ids)
}
