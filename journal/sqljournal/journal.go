package sqljournal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hupe1980/vtable/docstore"
	"github.com/microsoft/go-mssqldb/msdsn"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

const (
	// DefaultTablePrefix prefixes the journal's table names.
	DefaultTablePrefix = "vtable_"

	metaVersion = "version"
)

// ErrConcurrentWriter is returned by Append when another process committed
// to the same database since this journal last wrote or recovered.
var ErrConcurrentWriter = errors.New("sqljournal: database modified by another writer")

// Options configures a Journal.
type Options struct {
	TablePrefix string
	Logger      *slog.Logger
	// OwnsDB closes the database with the journal.
	OwnsDB bool
}

// Journal keeps the live documents in SQL tables. Every commit is applied
// in one SQL transaction guarded by a compare-and-swap on the version row,
// so the tables always hold exactly the state at that version.
//
// Recover replays the whole table content as a single commit, so the
// journal needs no checkpoints.
type Journal struct {
	db      *sql.DB
	dialect Dialect
	opts    Options

	qGetVersion string
	qInitMeta   string
	qSetVersion string
	qUpdate     string
	qInsert     string
	qDelete     string
	qScan       string
}

var _ docstore.Journal = (*Journal)(nil)

// Open creates the journal tables in db when missing.
func Open(ctx context.Context, db *sql.DB, dialect Dialect, optFns ...func(o *Options)) (*Journal, error) {
	opts := Options{
		TablePrefix: DefaultTablePrefix,
		Logger:      slog.New(slog.DiscardHandler),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	docs := opts.TablePrefix + "documents"
	meta := opts.TablePrefix + "meta"
	j := &Journal{
		db:          db,
		dialect:     dialect,
		opts:        opts,
		qGetVersion: dialect.rebind("SELECT value FROM " + meta + " WHERE name = ?"),
		qInitMeta:   dialect.rebind("INSERT INTO " + meta + " (name, value) VALUES (?, 0)"),
		qSetVersion: dialect.rebind("UPDATE " + meta + " SET value = ? WHERE name = ? AND value = ?"),
		qUpdate:     dialect.rebind("UPDATE " + docs + " SET data = ?, version = ? WHERE collection = ? AND id = ?"),
		qInsert:     dialect.rebind("INSERT INTO " + docs + " (collection, id, data, version, created, pos) VALUES (?, ?, ?, ?, ?, ?)"),
		qDelete:     dialect.rebind("DELETE FROM " + docs + " WHERE collection = ? AND id = ?"),
		qScan:       "SELECT collection, id, data FROM " + docs + " ORDER BY collection, created, pos",
	}

	for _, stmt := range dialect.schema(opts.TablePrefix) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("sqljournal: create schema: %w", err)
		}
	}
	if _, err := j.currentVersion(ctx, db); errors.Is(err, sql.ErrNoRows) {
		if _, err := db.ExecContext(ctx, j.qInitMeta, metaVersion); err != nil {
			return nil, fmt.Errorf("sqljournal: init meta: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("sqljournal: read version: %w", err)
	}
	return j, nil
}

// OpenDSN opens the database named by dsn and the journal on it. The
// journal closes the database when it is closed.
func OpenDSN(ctx context.Context, dialect Dialect, dsn string, optFns ...func(o *Options)) (*Journal, error) {
	if dialect == DialectMSSQL {
		if _, err := msdsn.Parse(dsn); err != nil {
			return nil, fmt.Errorf("sqljournal: mssql dsn: %w", err)
		}
	}
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("sqljournal: open: %w", err)
	}
	if dialect == DialectSQLite {
		// One writer at a time; avoids SQLITE_BUSY between pooled connections.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqljournal: ping: %w", err)
	}

	j, err := Open(ctx, db, dialect, append(optFns, func(o *Options) { o.OwnsDB = true })...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (j *Journal) currentVersion(ctx context.Context, q queryer) (uint64, error) {
	var v int64
	if err := q.QueryRowContext(ctx, j.qGetVersion, metaVersion).Scan(&v); err != nil {
		return 0, err
	}
	return uint64(v), nil
}

// Dialect returns the journal's dialect.
func (j *Journal) Dialect() Dialect { return j.dialect }

// Version reads the committed version from the database.
func (j *Journal) Version(ctx context.Context) (uint64, error) {
	return j.currentVersion(ctx, j.db)
}

// Recover emits all stored documents as one commit at the stored version.
func (j *Journal) Recover(ctx context.Context, fn func(*docstore.Commit) error) error {
	start := time.Now()

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqljournal: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	version, err := j.currentVersion(ctx, tx)
	if err != nil {
		return fmt.Errorf("sqljournal: read version: %w", err)
	}

	rows, err := tx.QueryContext(ctx, j.qScan)
	if err != nil {
		return fmt.Errorf("sqljournal: scan: %w", err)
	}
	defer rows.Close()

	base := &docstore.Commit{Version: version}
	for rows.Next() {
		m := docstore.Mutation{Op: docstore.OpPut}
		if err := rows.Scan(&m.Collection, &m.ID, &m.Data); err != nil {
			return fmt.Errorf("sqljournal: scan: %w", err)
		}
		base.Mutations = append(base.Mutations, m)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqljournal: scan: %w", err)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqljournal: commit: %w", err)
	}

	if version == 0 && len(base.Mutations) == 0 {
		return nil
	}
	if err := fn(base); err != nil {
		return err
	}
	j.opts.Logger.Info("sqljournal recovered",
		"dialect", string(j.dialect),
		"version", version,
		"documents", len(base.Mutations),
		"duration", time.Since(start))
	return nil
}

// Append applies c in one SQL transaction. It fails with
// ErrConcurrentWriter when the stored version is not c.Version-1.
func (j *Journal) Append(ctx context.Context, c *docstore.Commit) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqljournal: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, j.qSetVersion, int64(c.Version), metaVersion, int64(c.Version-1))
	if err != nil {
		return fmt.Errorf("sqljournal: set version: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("sqljournal: set version: %w", err)
	} else if n != 1 {
		return fmt.Errorf("%w: expected version %d", ErrConcurrentWriter, c.Version-1)
	}

	for pos, m := range c.Mutations {
		if err := j.apply(ctx, tx, c.Version, pos, m); err != nil {
			return fmt.Errorf("sqljournal: %s %s/%s: %w", m.Op, m.Collection, m.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqljournal: commit: %w", err)
	}
	return nil
}

func (j *Journal) apply(ctx context.Context, tx *sql.Tx, version uint64, pos int, m docstore.Mutation) error {
	switch m.Op {
	case docstore.OpDelete:
		_, err := tx.ExecContext(ctx, j.qDelete, m.Collection, m.ID)
		return err
	case docstore.OpPut:
		data := m.Data
		if data == nil {
			data = []byte{}
		}
		res, err := tx.ExecContext(ctx, j.qUpdate, data, int64(version), m.Collection, m.ID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		_, err = tx.ExecContext(ctx, j.qInsert, m.Collection, m.ID, data, int64(version), int64(version), pos)
		return err
	}
	return fmt.Errorf("unknown op %d", m.Op)
}

// Close closes the database when the journal opened it.
func (j *Journal) Close() error {
	if j.opts.OwnsDB {
		return j.db.Close()
	}
	return nil
}
