// Package vtable implements virtual tables: user-defined, spreadsheet-like
// tables made of ordered typed columns and rows whose values live in cells.
//
// Tables, columns, rows and cells are stored as four normalized collections
// in an embedded transactional document store (see package docstore). Every
// operation is one serializable transaction, so structural edits keep the
// collections consistent:
//
//   - the orders of a table's columns are always 0..N-1
//   - every (row, column) pair of a table has exactly one cell after any
//     row or column creation
//   - deletes cascade: table -> columns, rows, cells; column -> cells;
//     row -> cells
//
// # Quick Start
//
//	ctx := context.Background()
//	db, _ := vtable.Open(ctx)
//	defer db.Close()
//
//	tableID, _ := db.CreateTable(ctx, vtable.NewTable{Name: "Tasks"})
//	titleID, _ := db.CreateColumn(ctx, vtable.NewColumn{TableID: tableID, Name: "Title", Type: "text"})
//	rowID, _ := db.CreateRow(ctx, tableID)
//	db.UpdateCell(ctx, rowID, titleID, model.StringPtr("Buy milk"))
//
//	view, _ := db.AssembleTable(ctx, tableID)
//
// # Durability
//
// By default a DB lives in memory. WithJournal selects a durable backend:
//
//	j, _ := filejournal.Open("./data/wal")            // WAL + snapshots
//	j, _ := sqljournal.OpenDSN(ctx, sqljournal.DialectSQLite, "vtable.db")
//	db, _ := vtable.Open(ctx, vtable.WithJournal(j))
//
// # Errors
//
// Failures are matched with errors.Is against ErrInvalidType, ErrNotFound,
// ErrValidation and ErrConflict. A failed operation writes nothing.
//
// The package also stores chat messages (SendMessage, ListMessages), the
// companion feature of the application the tables were built for.
package vtable
