package filejournal

import (
	"log/slog"

	"github.com/hupe1980/vtable/blobstore"
	"github.com/hupe1980/vtable/codec"
	"github.com/hupe1980/vtable/internal/fs"
	"github.com/hupe1980/vtable/internal/wal"
)

const (
	// DefaultKeepSnapshots is how many snapshots survive pruning.
	DefaultKeepSnapshots = 2
	// DefaultSnapshotPrefix is the blob name prefix of snapshots.
	DefaultSnapshotPrefix = "snapshots/"
)

// Options configures a Journal.
type Options struct {
	// FileSystem holds the WAL segments. Defaults to the local disk.
	FileSystem fs.FileSystem

	// Durability controls when Append returns. DurabilitySync waits for
	// fsync (group committed), DurabilityAsync only for the buffered write.
	Durability wal.Durability

	// Compress stores commits zstd-compressed in the WAL.
	Compress bool

	// Snapshots receives checkpoint snapshots. Defaults to a LocalStore
	// under the journal directory.
	Snapshots blobstore.Store

	// SnapshotPrefix is prepended to snapshot blob names.
	SnapshotPrefix string

	// KeepSnapshots bounds the snapshots kept after a checkpoint.
	KeepSnapshots int

	// Codec is the document codec in use. Its name is written into
	// snapshots and checked on recovery.
	Codec codec.Codec

	Logger *slog.Logger
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		FileSystem:     fs.Default,
		Durability:     wal.DurabilitySync,
		SnapshotPrefix: DefaultSnapshotPrefix,
		KeepSnapshots:  DefaultKeepSnapshots,
		Codec:          codec.Default,
		Logger:         slog.New(slog.DiscardHandler),
	}
}
