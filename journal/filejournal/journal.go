package filejournal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/vtable/blobstore"
	"github.com/hupe1980/vtable/docstore"
	"github.com/hupe1980/vtable/internal/fs"
	"github.com/hupe1980/vtable/internal/wal"
	"github.com/hupe1980/vtable/journal"
	"github.com/klauspost/compress/zstd"
)

const (
	lockName      = "LOCK"
	segmentPrefix = "wal-"
	segmentSuffix = ".log"

	// CurrentName is the blob naming the latest snapshot.
	CurrentName = "CURRENT"
)

var (
	ErrNotRecovered     = errors.New("filejournal: Append before Recover")
	ErrAlreadyRecovered = errors.New("filejournal: already recovered")
	ErrCorrupt          = errors.New("filejournal: corrupt log")
)

type segment struct {
	start uint64
	name  string
}

func segmentName(start uint64) string {
	return fmt.Sprintf("%s%020d%s", segmentPrefix, start, segmentSuffix)
}

func parseSegmentName(name string) (uint64, bool) {
	if !strings.HasPrefix(name, segmentPrefix) || !strings.HasSuffix(name, segmentSuffix) {
		return 0, false
	}
	v, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimPrefix(name, segmentPrefix), segmentSuffix), 10, 64)
	return v, err == nil
}

func snapshotName(prefix string, version uint64) string {
	return fmt.Sprintf("%ssnapshot-%020d.bin", prefix, version)
}

// Journal is a docstore.Journal backed by WAL segment files and
// snapshots in a blobstore.
//
// Every checkpoint starts a new segment. Once the snapshot is stored the
// segments it covers are removed.
type Journal struct {
	dir  string
	opts Options
	lock io.Closer

	enc *zstd.Encoder
	dec *zstd.Decoder

	mu        sync.Mutex
	w         *wal.WAL
	segments  []segment
	version   uint64
	recovered bool
	closed    bool
}

var (
	_ docstore.Journal      = (*Journal)(nil)
	_ docstore.Checkpointer = (*Journal)(nil)
)

// Open locks dir and prepares the journal. Recover must be called before
// the first Append; docstore.Open does that.
func Open(dir string, optFns ...func(o *Options)) (*Journal, error) {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.FileSystem == nil {
		opts.FileSystem = fs.Default
	}
	if opts.Logger == nil {
		opts.Logger = DefaultOptions().Logger
	}
	if opts.Codec == nil {
		opts.Codec = DefaultOptions().Codec
	}
	if opts.KeepSnapshots < 1 {
		opts.KeepSnapshots = 1
	}

	if err := opts.FileSystem.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if opts.Snapshots == nil {
		opts.Snapshots = blobstore.NewLocalStore(dir)
	}

	lock, err := fs.Lock(filepath.Join(dir, lockName))
	if err != nil {
		return nil, fmt.Errorf("filejournal: lock %s: %w", dir, err)
	}

	j := &Journal{dir: dir, opts: opts, lock: lock}
	if j.dec, err = zstd.NewReader(nil); err != nil {
		lock.Close()
		return nil, err
	}
	if opts.Compress {
		if j.enc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest)); err != nil {
			j.dec.Close()
			lock.Close()
			return nil, err
		}
	}
	return j, nil
}

func (j *Journal) path(s segment) string {
	return filepath.Join(j.dir, s.name)
}

func (j *Journal) walOptions() wal.Options {
	return wal.Options{Durability: j.opts.Durability}
}

func (j *Journal) listSegments() ([]segment, error) {
	entries, err := j.opts.FileSystem.ReadDir(j.dir)
	if err != nil {
		return nil, err
	}
	var segs []segment
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if start, ok := parseSegmentName(e.Name()); ok {
			segs = append(segs, segment{start: start, name: e.Name()})
		}
	}
	slices.SortFunc(segs, func(a, b segment) int {
		switch {
		case a.start < b.start:
			return -1
		case a.start > b.start:
			return 1
		}
		return 0
	})
	return segs, nil
}

// Recover replays the latest snapshot and then every logged commit after
// it. A torn record at the end of the newest segment is truncated away.
func (j *Journal) Recover(ctx context.Context, fn func(*docstore.Commit) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return docstore.ErrClosed
	}
	if j.recovered {
		return ErrAlreadyRecovered
	}

	start := time.Now()
	base, err := j.loadSnapshot(ctx)
	if err != nil {
		return err
	}
	var applied uint64
	if base != nil {
		if err := fn(base); err != nil {
			return err
		}
		applied = base.Version
	}

	segs, err := j.listSegments()
	if err != nil {
		return err
	}
	var replayed int
	for i := 0; i < len(segs); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		last := i == len(segs)-1
		n, err := j.replaySegment(segs[i], last, &applied, fn)
		if errors.Is(err, wal.ErrInvalidHeader) && last {
			// Crashed while creating the segment.
			j.opts.Logger.Warn("filejournal: removing segment with incomplete header",
				"segment", segs[i].name)
			if err := j.opts.FileSystem.Remove(j.path(segs[i])); err != nil {
				return err
			}
			segs = segs[:i]
			break
		}
		if err != nil {
			return err
		}
		replayed += n
	}

	if len(segs) == 0 {
		segs = append(segs, segment{start: applied + 1, name: segmentName(applied + 1)})
	}
	w, err := wal.Open(j.opts.FileSystem, j.path(segs[len(segs)-1]), j.walOptions())
	if err != nil {
		return err
	}

	j.w = w
	j.segments = segs
	j.version = applied
	j.recovered = true

	j.opts.Logger.Info("filejournal recovered",
		"dir", j.dir,
		"snapshot", base != nil,
		"commits", replayed,
		"segments", len(segs),
		"version", applied,
		"duration", time.Since(start))
	return nil
}

func (j *Journal) loadSnapshot(ctx context.Context) (*docstore.Commit, error) {
	current, err := blobstore.ReadAll(ctx, j.opts.Snapshots, j.opts.SnapshotPrefix+CurrentName)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filejournal: read %s: %w", CurrentName, err)
	}
	name := strings.TrimSpace(string(current))
	data, err := blobstore.ReadAll(ctx, j.opts.Snapshots, name)
	if err != nil {
		return nil, fmt.Errorf("filejournal: read snapshot %s: %w", name, err)
	}
	base, err := decodeSnapshot(data, j.opts.Codec.Name())
	if err != nil {
		return nil, fmt.Errorf("filejournal: snapshot %s: %w", name, err)
	}
	return base, nil
}

func (j *Journal) replaySegment(s segment, last bool, applied *uint64, fn func(*docstore.Commit) error) (int, error) {
	r, err := wal.OpenReader(j.opts.FileSystem, j.path(s))
	if err != nil {
		return 0, err
	}
	defer r.Close()

	var n int
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			if !last {
				return n, fmt.Errorf("%w: %s at offset %d: %v", ErrCorrupt, s.name, r.Offset(), err)
			}
			j.opts.Logger.Warn("filejournal: truncating torn tail",
				"segment", s.name,
				"offset", r.Offset(),
				"error", err)
			return n, j.opts.FileSystem.Truncate(j.path(s), r.Offset())
		}

		if rec.LSN <= *applied {
			continue
		}
		if rec.LSN != *applied+1 {
			return n, fmt.Errorf("%w: %s: version %d follows %d", ErrCorrupt, s.name, rec.LSN, *applied)
		}
		c, err := j.decodeRecord(rec)
		if err != nil {
			return n, fmt.Errorf("%w: %s: version %d: %v", ErrCorrupt, s.name, rec.LSN, err)
		}
		if err := fn(c); err != nil {
			return n, err
		}
		*applied = rec.LSN
		n++
	}
}

func (j *Journal) decodeRecord(rec *wal.Record) (*docstore.Commit, error) {
	payload := rec.Payload
	switch rec.Type {
	case wal.RecordTypeCommit:
	case wal.RecordTypeCommitZstd:
		var err error
		if payload, err = j.dec.DecodeAll(payload, nil); err != nil {
			return nil, err
		}
	default:
		return nil, wal.ErrInvalidType
	}
	c, err := journal.DecodeCommit(payload)
	if err != nil {
		return nil, err
	}
	if c.Version != rec.LSN {
		return nil, fmt.Errorf("record LSN %d holds version %d", rec.LSN, c.Version)
	}
	return c, nil
}

// Append logs c. With DurabilitySync it returns once c is on stable storage.
func (j *Journal) Append(_ context.Context, c *docstore.Commit) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return docstore.ErrClosed
	}
	if !j.recovered {
		return ErrNotRecovered
	}

	rec := &wal.Record{Type: wal.RecordTypeCommit, LSN: c.Version, Payload: journal.EncodeCommit(nil, c)}
	if j.enc != nil {
		rec.Type = wal.RecordTypeCommitZstd
		rec.Payload = j.enc.EncodeAll(rec.Payload, nil)
	}
	if err := j.w.Append(rec); err != nil {
		return err
	}
	j.version = c.Version
	return nil
}

// BeginCheckpoint seals the active segment and starts the next one.
func (j *Journal) BeginCheckpoint(version uint64) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return docstore.ErrClosed
	}
	if !j.recovered {
		return ErrNotRecovered
	}
	next := segment{start: version + 1, name: segmentName(version + 1)}
	if j.segments[len(j.segments)-1].start == next.start {
		return nil
	}

	if err := j.w.Close(); err != nil {
		return err
	}
	w, err := wal.Open(j.opts.FileSystem, j.path(next), j.walOptions())
	if err != nil {
		return err
	}
	j.w = w
	j.segments = append(j.segments, next)
	return nil
}

// Checkpoint stores base as the latest snapshot, then removes the segments
// and snapshots it supersedes.
func (j *Journal) Checkpoint(ctx context.Context, base *docstore.Commit) error {
	data, err := encodeSnapshot(base, j.opts.Codec.Name())
	if err != nil {
		return err
	}
	name := snapshotName(j.opts.SnapshotPrefix, base.Version)
	if err := j.opts.Snapshots.Put(ctx, name, data); err != nil {
		return fmt.Errorf("filejournal: put snapshot: %w", err)
	}
	if err := j.opts.Snapshots.Put(ctx, j.opts.SnapshotPrefix+CurrentName, []byte(name)); err != nil {
		return fmt.Errorf("filejournal: put %s: %w", CurrentName, err)
	}

	removed, err := j.pruneSegments(base.Version)
	if err != nil {
		return err
	}
	pruned, err := j.pruneSnapshots(ctx)
	if err != nil {
		return err
	}

	j.opts.Logger.Info("filejournal checkpoint",
		"snapshot", name,
		"bytes", len(data),
		"segments_removed", removed,
		"snapshots_removed", pruned)
	return nil
}

// pruneSegments removes sealed segments holding only versions <= version.
func (j *Journal) pruneSegments(version uint64) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return 0, docstore.ErrClosed
	}
	var removed int
	for len(j.segments) > 1 && j.segments[1].start <= version+1 {
		if err := j.opts.FileSystem.Remove(j.path(j.segments[0])); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, err
		}
		j.segments = j.segments[1:]
		removed++
	}
	return removed, nil
}

func (j *Journal) pruneSnapshots(ctx context.Context) (int, error) {
	names, err := j.opts.Snapshots.List(ctx, j.opts.SnapshotPrefix+"snapshot-")
	if err != nil {
		return 0, err
	}
	// Fixed-width versions sort lexically.
	var removed int
	for len(names) > j.opts.KeepSnapshots {
		if err := j.opts.Snapshots.Delete(ctx, names[0]); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			return removed, err
		}
		names = names[1:]
		removed++
	}
	return removed, nil
}

// Segments returns the names of the live WAL segments, oldest first.
func (j *Journal) Segments() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	names := make([]string, len(j.segments))
	for i, s := range j.segments {
		names[i] = s.name
	}
	return names
}

// Version returns the version of the last recovered or appended commit.
func (j *Journal) Version() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.version
}

// Close closes the active segment and releases the directory lock.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return docstore.ErrClosed
	}
	j.closed = true

	var errs []error
	if j.w != nil {
		errs = append(errs, j.w.Close())
	}
	if j.enc != nil {
		errs = append(errs, j.enc.Close())
	}
	j.dec.Close()
	errs = append(errs, j.lock.Close())
	return errors.Join(errs...)
}
