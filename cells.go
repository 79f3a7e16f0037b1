package vtable

import (
	"context"

	"github.com/hupe1980/vtable/docstore"
	"github.com/hupe1980/vtable/model"
)

// UpdateCell sets the value of the cell at (rowID, columnID). A nil value
// clears it. The value is stored as given, without checking it against the
// column type.
//
// Cells are created by CreateRow and CreateColumn only; a missing cell fails
// with ErrNotFound.
func (db *DB) UpdateCell(ctx context.Context, rowID model.RowID, columnID model.ColumnID, value *string) (model.CellID, error) {
	var id model.CellID
	err := db.update(ctx, "updateCell", func(tx *docstore.Tx) error {
		c, ok, err := cells.Query(tx, indexByRowAndColumn, rowID, columnID).Unique()
		if err != nil {
			return err
		}
		if !ok {
			return notFound("cell", string(rowID)+"/"+string(columnID))
		}
		if value != nil {
			v := *value
			c.Value = &v
		} else {
			c.Value = nil
		}
		id = c.ID
		return cells.Replace(tx, string(c.ID), c)
	}, "row", rowID, "column", columnID)
	if err != nil {
		return "", err
	}
	return id, nil
}
