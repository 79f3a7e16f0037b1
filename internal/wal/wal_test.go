package wal

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hupe1980/vtable/internal/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, path string) ([]*Record, int64, error) {
	t.Helper()
	r, err := OpenReader(nil, path)
	require.NoError(t, err)
	defer r.Close()

	var recs []*Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return recs, r.Offset(), nil
		}
		if err != nil {
			return recs, r.Offset(), err
		}
		recs = append(recs, rec)
	}
}

func TestWALRoundTrip(t *testing.T) {
	for _, d := range []Durability{DurabilitySync, DurabilityAsync} {
		path := filepath.Join(t.TempDir(), "wal-1.log")
		w, err := Open(nil, path, Options{Durability: d})
		require.NoError(t, err)

		in := []*Record{
			{Type: RecordTypeCommit, LSN: 1, Payload: []byte("one")},
			{Type: RecordTypeCommitZstd, LSN: 2, Payload: []byte{0, 1, 2}},
			{Type: RecordTypeCommit, LSN: 3},
		}
		for _, r := range in {
			require.NoError(t, w.Append(r))
		}
		assert.Equal(t, uint64(3), w.LastLSN())
		require.NoError(t, w.Sync())
		require.NoError(t, w.Close())
		assert.ErrorIs(t, w.Close(), os.ErrClosed)

		out, _, err := readAll(t, path)
		require.NoError(t, err)
		require.Len(t, out, 3)
		for i := range in {
			assert.Equal(t, in[i].LSN, out[i].LSN)
			assert.Equal(t, in[i].Type, out[i].Type)
			assert.Equal(t, len(in[i].Payload), len(out[i].Payload))
		}
	}
}

func TestWALReopenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal-1.log")
	w, err := Open(nil, path, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, w.Append(&Record{Type: RecordTypeCommit, LSN: 1, Payload: []byte("a")}))
	require.NoError(t, w.Close())

	w, err = Open(nil, path, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, w.Append(&Record{Type: RecordTypeCommit, LSN: 2, Payload: []byte("b")}))
	require.NoError(t, w.Close())

	out, _, err := readAll(t, path)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestWALTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal-1.log")
	w, err := Open(nil, path, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, w.Append(&Record{Type: RecordTypeCommit, LSN: 1, Payload: []byte("good")}))
	require.NoError(t, w.Append(&Record{Type: RecordTypeCommit, LSN: 2, Payload: []byte("torn")}))
	require.NoError(t, w.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-2))

	out, offset, err := readAll(t, path)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Len(t, out, 1)
	assert.Equal(t, int64(walHeaderSize+recordHeaderSize+4), offset)
}

func TestWALCorruptRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal-1.log")
	w, err := Open(nil, path, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, w.Append(&Record{Type: RecordTypeCommit, LSN: 1, Payload: []byte("payload")}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, _, err = readAll(t, path)
	assert.ErrorIs(t, err, ErrInvalidCRC)
}

func TestWALInvalidHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal-1.log")
	require.NoError(t, os.WriteFile(path, []byte("NOTAWAL!xxxx"), 0o644))

	_, err := Open(nil, path, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidHeader)

	_, err = OpenReader(nil, path)
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestWALWriteFailurePoisons(t *testing.T) {
	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("wal-", fs.Fault{FailAfterBytes: walHeaderSize + 10})

	path := filepath.Join(t.TempDir(), "wal-1.log")
	w, err := Open(ffs, path, Options{Durability: DurabilityAsync})
	require.NoError(t, err)

	err = w.Append(&Record{Type: RecordTypeCommit, LSN: 1, Payload: []byte("too long for the limit")})
	require.ErrorIs(t, err, fs.ErrInjected)

	err = w.Append(&Record{Type: RecordTypeCommit, LSN: 2})
	require.ErrorIs(t, err, fs.ErrInjected)
	_ = w.Close()
}

func TestWALSyncFailure(t *testing.T) {
	ffs := fs.NewFaultyFS(nil)
	path := filepath.Join(t.TempDir(), "wal-1.log")

	// The header sync on create must succeed; reopen with the fault in place.
	w, err := Open(ffs, path, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	ffs.AddRule("wal-", fs.Fault{FailAfterBytes: -1, FailOnSync: true})
	w, err = Open(ffs, path, DefaultOptions())
	require.NoError(t, err)

	err = w.Append(&Record{Type: RecordTypeCommit, LSN: 1})
	assert.ErrorIs(t, err, fs.ErrInjected)
	_ = w.Close()
}

func TestWALGroupCommit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal-1.log")
	w, err := Open(nil, path, DefaultOptions())
	require.NoError(t, err)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		lsn uint64
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				mu.Lock()
				lsn++
				rec := &Record{Type: RecordTypeCommit, LSN: lsn, Payload: []byte("x")}
				offset, err := w.AppendAsync(rec)
				mu.Unlock()
				assert.NoError(t, err)
				assert.NoError(t, w.WaitFor(offset))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, w.Close())

	out, _, err := readAll(t, path)
	require.NoError(t, err)
	require.Len(t, out, 160)
	for i, r := range out {
		assert.Equal(t, uint64(i+1), r.LSN)
	}
}

func TestParseDurability(t *testing.T) {
	d, err := ParseDurability("async")
	require.NoError(t, err)
	assert.Equal(t, DurabilityAsync, d)

	d, err = ParseDurability("")
	require.NoError(t, err)
	assert.Equal(t, DurabilitySync, d)

	_, err = ParseDurability("maybe")
	assert.Error(t, err)
}
