// Package blobstore stores named, immutable blobs such as journal snapshots.
//
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, for tests
//   - LocalStore: a directory on the local file system
//   - s3.Store: Amazon S3, with s3.DDBCommitStore adding a DynamoDB-backed
//     CURRENT pointer
//   - minio.Store: MinIO and other S3-compatible servers
//
// Put replaces a blob atomically: readers see either the old or the new
// content, never a mix.
package blobstore
