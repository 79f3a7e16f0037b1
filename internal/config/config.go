// Package config loads the vtabled configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Storage kinds.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMySQL    = "mysql"
	StorageMSSQL    = "mssql"
)

// Snapshot store kinds.
const (
	SnapshotsLocal = "local"
	SnapshotsS3    = "s3"
	SnapshotsMinio = "minio"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config is the daemon configuration.
type Config struct {
	Listen    string    `yaml:"listen"`
	Log       Log       `yaml:"log"`
	RateLimit RateLimit `yaml:"rateLimit"`
	Storage   Storage   `yaml:"storage"`
}

// Log selects the log output.
type Log struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// RateLimit configures the HTTP token bucket. RPS zero disables it.
type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Storage selects the durability backend.
type Storage struct {
	Kind       string `yaml:"kind"`
	MaxRetries int    `yaml:"maxRetries"`
	File       File   `yaml:"file"`
	SQL        SQL    `yaml:"sql"`
}

// File configures the WAL journal.
type File struct {
	WALDir          string    `yaml:"walDir"`
	Durability      string    `yaml:"durability"`
	CompressWAL     bool      `yaml:"compressWAL"`
	CheckpointEvery uint64    `yaml:"checkpointEvery"`
	KeepSnapshots   int       `yaml:"keepSnapshots"`
	Snapshots       Snapshots `yaml:"snapshots"`
}

// Snapshots selects where checkpoints are written.
type Snapshots struct {
	Kind  string `yaml:"kind"`
	Local Local  `yaml:"local"`
	S3    S3     `yaml:"s3"`
	Minio Minio  `yaml:"minio"`
}

// Local stores snapshots in a directory.
type Local struct {
	Dir string `yaml:"dir"`
}

// S3 stores snapshots in a bucket. A non-empty CommitTable routes the
// CURRENT pointer through DynamoDB conditional writes.
type S3 struct {
	Bucket      string `yaml:"bucket"`
	Prefix      string `yaml:"prefix"`
	Region      string `yaml:"region"`
	CommitTable string `yaml:"commitTable"`
}

// Minio stores snapshots in a MinIO (or other S3 compatible) bucket.
type Minio struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"useSSL"`
}

// SQL configures the database journal. TablePrefix defaults to "vtable_".
type SQL struct {
	DSN         string `yaml:"dsn"`
	TablePrefix string `yaml:"tablePrefix"`
}

// Default returns the configuration used for missing fields.
func Default() Config {
	return Config{
		Listen: ":8080",
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		RateLimit: RateLimit{RPS: 200, Burst: 400},
		Storage: Storage{
			Kind:       StorageMemory,
			MaxRetries: 8,
			File: File{
				WALDir:          "./data/wal",
				Durability:      "sync",
				CompressWAL:     true,
				CheckpointEvery: 1000,
				KeepSnapshots:   2,
				Snapshots: Snapshots{
					Kind:  SnapshotsLocal,
					Local: Local{Dir: "./data/snapshots"},
				},
			},
		},
	}
}

// Load reads path, layering it over Default, and validates the result.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes YAML from r over Default and validates the result. Unknown
// keys are rejected.
func Parse(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}

	if c.Listen == "" {
		bad("listen must not be empty")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		bad("log.level: %v", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		bad("log.format %q is not text or json", c.Log.Format)
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		bad("rateLimit values must not be negative")
	}
	if c.Storage.MaxRetries < 0 {
		bad("storage.maxRetries must not be negative")
	}

	switch c.Storage.Kind {
	case StorageMemory:
	case StorageFile:
		errs = append(errs, c.Storage.File.validate()...)
	case StorageSQLite, StoragePostgres, StorageMySQL, StorageMSSQL:
		if c.Storage.SQL.DSN == "" {
			bad("storage.sql.dsn is required for %s", c.Storage.Kind)
		}
	default:
		bad("storage.kind %q is unknown", c.Storage.Kind)
	}
	return errors.Join(errs...)
}

func (f File) validate() []error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}

	if f.WALDir == "" {
		bad("storage.file.walDir is required")
	}
	switch f.Durability {
	case "sync", "async":
	default:
		bad("storage.file.durability %q is not sync or async", f.Durability)
	}
	if f.KeepSnapshots < 1 {
		bad("storage.file.keepSnapshots must be at least 1")
	}

	switch s := f.Snapshots; s.Kind {
	case SnapshotsLocal:
		if s.Local.Dir == "" {
			bad("storage.file.snapshots.local.dir is required")
		}
	case SnapshotsS3:
		if s.S3.Bucket == "" {
			bad("storage.file.snapshots.s3.bucket is required")
		}
	case SnapshotsMinio:
		if s.Minio.Endpoint == "" || s.Minio.Bucket == "" {
			bad("storage.file.snapshots.minio needs endpoint and bucket")
		}
	default:
		bad("storage.file.snapshots.kind %q is unknown", s.Kind)
	}
	return errs
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("unknown level %q", s)
	}
	return l, nil
}
