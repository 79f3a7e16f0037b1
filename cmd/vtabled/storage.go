package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hupe1980/vtable/blobstore"
	"github.com/hupe1980/vtable/blobstore/minio"
	"github.com/hupe1980/vtable/blobstore/s3"
	"github.com/hupe1980/vtable/docstore"
	"github.com/hupe1980/vtable/internal/config"
	"github.com/hupe1980/vtable/internal/wal"
	"github.com/hupe1980/vtable/journal/filejournal"
	"github.com/hupe1980/vtable/journal/sqljournal"
)

// openJournal builds the durability backend named by cfg.Kind.
func openJournal(ctx context.Context, cfg config.Storage, logger *slog.Logger) (docstore.Journal, error) {
	switch cfg.Kind {
	case config.StorageMemory:
		return docstore.NopJournal{}, nil

	case config.StorageFile:
		durability, err := wal.ParseDurability(cfg.File.Durability)
		if err != nil {
			return nil, err
		}
		snapshots, prefix, err := openSnapshots(ctx, cfg.File.Snapshots)
		if err != nil {
			return nil, err
		}
		return filejournal.Open(cfg.File.WALDir, func(o *filejournal.Options) {
			o.Durability = durability
			o.Compress = cfg.File.CompressWAL
			o.Snapshots = snapshots
			o.SnapshotPrefix = prefix
			o.KeepSnapshots = cfg.File.KeepSnapshots
			o.Logger = logger
		})

	case config.StorageSQLite, config.StoragePostgres, config.StorageMySQL, config.StorageMSSQL:
		dialect, err := sqljournal.ParseDialect(cfg.Kind)
		if err != nil {
			return nil, err
		}
		return sqljournal.OpenDSN(ctx, dialect, cfg.SQL.DSN, func(o *sqljournal.Options) {
			if cfg.SQL.TablePrefix != "" {
				o.TablePrefix = cfg.SQL.TablePrefix
			}
			o.Logger = logger
		})

	default:
		return nil, fmt.Errorf("unknown storage kind %q", cfg.Kind)
	}
}

// openSnapshots returns the snapshot store and the blob name prefix the
// journal should use inside it. Object stores carry their own key prefix,
// so CURRENT sits at the root of the store.
func openSnapshots(ctx context.Context, cfg config.Snapshots) (blobstore.Store, string, error) {
	switch cfg.Kind {
	case config.SnapshotsLocal:
		dir, err := filepath.Abs(cfg.Local.Dir)
		if err != nil {
			return nil, "", err
		}
		return blobstore.NewLocalStore(dir), "", nil

	case config.SnapshotsS3:
		awsCfg, err := s3.LoadConfig(ctx, cfg.S3.Region)
		if err != nil {
			return nil, "", fmt.Errorf("load aws config: %w", err)
		}
		store := s3.NewStore(awss3.NewFromConfig(awsCfg), cfg.S3.Bucket, cfg.S3.Prefix)
		if cfg.S3.CommitTable == "" {
			return store, "", nil
		}
		baseURI := fmt.Sprintf("s3://%s/%s", cfg.S3.Bucket, cfg.S3.Prefix)
		return s3.NewDDBCommitStore(store, dynamodb.NewFromConfig(awsCfg), cfg.S3.CommitTable, baseURI), "", nil

	case config.SnapshotsMinio:
		client, err := minio.NewClient(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.UseSSL)
		if err != nil {
			return nil, "", fmt.Errorf("minio client: %w", err)
		}
		store := minio.NewStore(client, cfg.Minio.Bucket, cfg.Minio.Prefix)
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, "", err
		}
		return store, "", nil

	default:
		return nil, "", fmt.Errorf("unknown snapshot store %q", cfg.Kind)
	}
}
