// Package fs is the file system seam used by the write-ahead log and the
// file journal.
//
//   - [LocalFS] delegates to the os package and is the default
//   - [FaultyFS] wraps another FileSystem and injects write, sync and close
//     failures for tests
//
// Lock takes an exclusive advisory lock on a path so that two processes
// never append to the same WAL directory.
//
// Operations take no context.Context. Local file calls are not
// interruptible; remote storage goes through the blobstore package instead.
package fs
