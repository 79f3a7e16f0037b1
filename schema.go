package vtable

import (
	"github.com/hupe1980/vtable/docstore"
	"github.com/hupe1980/vtable/model"
)

// Collection and index names as persisted by the journals.
const (
	CollectionTables   = "vtables"
	CollectionColumns  = "vtableColumns"
	CollectionRows     = "vtableRows"
	CollectionCells    = "vtableCells"
	CollectionMessages = "messages"

	indexByOwner           = "byOwner"
	indexByCreatedAt       = "byCreatedAt"
	indexByTableID         = "byTableId"
	indexByTableIDAndOrder = "byTableIdAndOrder"
	indexByRowID           = "byRowId"
	indexByColumnID        = "byColumnId"
	indexByRowAndColumn    = "byRowAndColumn"
)

var (
	tables = docstore.NewCollection[model.Table](CollectionTables,
		docstore.Index[model.Table]{Name: indexByOwner, Key: func(t model.Table) []any {
			if t.OwnerID == nil {
				return nil
			}
			return []any{*t.OwnerID, t.CreatedAt}
		}},
		docstore.Index[model.Table]{Name: indexByCreatedAt, Key: func(t model.Table) []any {
			return []any{t.CreatedAt}
		}},
	)

	columns = docstore.NewCollection[model.Column](CollectionColumns,
		docstore.Index[model.Column]{Name: indexByTableID, Key: func(c model.Column) []any {
			return []any{c.TableID}
		}},
		docstore.Index[model.Column]{Name: indexByTableIDAndOrder, Key: func(c model.Column) []any {
			return []any{c.TableID, c.Order}
		}},
	)

	rows = docstore.NewCollection[model.Row](CollectionRows,
		docstore.Index[model.Row]{Name: indexByTableID, Key: func(r model.Row) []any {
			return []any{r.TableID, r.CreatedAt}
		}},
	)

	cells = docstore.NewCollection[model.Cell](CollectionCells,
		docstore.Index[model.Cell]{Name: indexByRowID, Key: func(c model.Cell) []any {
			return []any{c.RowID}
		}},
		docstore.Index[model.Cell]{Name: indexByColumnID, Key: func(c model.Cell) []any {
			return []any{c.ColumnID}
		}},
		docstore.Index[model.Cell]{Name: indexByRowAndColumn, Key: func(c model.Cell) []any {
			return []any{c.RowID, c.ColumnID}
		}},
	)

	messages = docstore.NewCollection[model.Message](CollectionMessages,
		docstore.Index[model.Message]{Name: indexByCreatedAt, Key: func(m model.Message) []any {
			return []any{m.CreatedAt}
		}},
	)
)

func collections() []docstore.Definition {
	return []docstore.Definition{tables, columns, rows, cells, messages}
}

// Transaction-scoped lookups shared by the operations.

func getTable(tx *docstore.Tx, id model.TableID) (model.Table, error) {
	ok, err := tables.Has(tx, string(id))
	if err != nil {
		return model.Table{}, err
	}
	if !ok {
		return model.Table{}, notFound("table", id)
	}
	return tables.Get(tx, string(id))
}

func getColumn(tx *docstore.Tx, id model.ColumnID) (model.Column, error) {
	ok, err := columns.Has(tx, string(id))
	if err != nil {
		return model.Column{}, err
	}
	if !ok {
		return model.Column{}, notFound("column", id)
	}
	return columns.Get(tx, string(id))
}

func getRow(tx *docstore.Tx, id model.RowID) (model.Row, error) {
	ok, err := rows.Has(tx, string(id))
	if err != nil {
		return model.Row{}, err
	}
	if !ok {
		return model.Row{}, notFound("row", id)
	}
	return rows.Get(tx, string(id))
}

// columnsOf returns the columns of a table sorted by order.
func columnsOf(tx *docstore.Tx, id model.TableID) ([]model.Column, error) {
	return columns.Query(tx, indexByTableIDAndOrder, id).Collect()
}

// rowsOf returns the rows of a table, oldest first.
func rowsOf(tx *docstore.Tx, id model.TableID) ([]model.Row, error) {
	return rows.Query(tx, indexByTableID, id).Collect()
}

func cellsOfRow(tx *docstore.Tx, id model.RowID) ([]model.Cell, error) {
	return cells.Query(tx, indexByRowID, id).Collect()
}

func cellsOfColumn(tx *docstore.Tx, id model.ColumnID) ([]model.Cell, error) {
	return cells.Query(tx, indexByColumnID, id).Collect()
}

func insertCell(tx *docstore.Tx, rowID model.RowID, columnID model.ColumnID, value *string) (model.CellID, error) {
	c := model.Cell{
		ID:       model.NewCellID(),
		RowID:    rowID,
		ColumnID: columnID,
		Value:    value,
	}
	return c.ID, cells.Insert(tx, string(c.ID), c)
}

func deleteCells(tx *docstore.Tx, cs []model.Cell) error {
	for _, c := range cs {
		if err := cells.Delete(tx, string(c.ID)); err != nil {
			return err
		}
	}
	return nil
}
