// Package docstore implements a transactional in-memory document store.
//
// Documents live in named collections and are addressed by string id. Each
// collection declares secondary indexes over tuple keys; queries scan an
// index by key prefix in ascending or descending key order. Postings are
// kept as roaring bitmaps of per-collection document numbers, so documents
// with equal keys come back in insertion order.
//
// # Transactions
//
// Store.Update and Store.View run a function inside a transaction:
//
//	err := store.Update(ctx, func(tx *docstore.Tx) error {
//		row, err := rows.Get(tx, id)
//		if err != nil {
//			return err
//		}
//		return rows.Delete(tx, row.ID)
//	})
//
// Transactions see the latest committed state plus their own writes.
// Every point read records the version of the document and every scan the
// version of the index partition it covered (the first key component). At
// commit the versions are checked under the commit lock; if any changed the
// transaction fails with ErrConflict and the function is run again. This
// makes every committed transaction serializable.
//
// # Durability
//
// A Journal receives each commit before it is applied. Journals that also
// implement Checkpointer can replace their history with a snapshot; see
// Store.Checkpoint and WithCheckpointEvery.
package docstore
