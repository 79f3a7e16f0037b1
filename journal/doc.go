// Package journal groups the durable docstore.Journal implementations.
//
//   - filejournal: write-ahead log segments on the local disk plus
//     compressed snapshots in a blobstore.Store
//   - sqljournal: documents and a version row in a SQL database
//     (SQLite, PostgreSQL or MySQL)
//
// The package itself holds the commit wire format shared by both.
package journal
