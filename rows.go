package vtable

import (
	"context"

	"github.com/hupe1980/vtable/docstore"
	"github.com/hupe1980/vtable/model"
)

// CreateRow adds a row with one default-valued cell per column.
func (db *DB) CreateRow(ctx context.Context, tableID model.TableID) (model.RowID, error) {
	id := model.NewRowID()
	err := db.update(ctx, "createRow", func(tx *docstore.Tx) error {
		if _, err := getTable(tx, tableID); err != nil {
			return err
		}
		if err := rows.Insert(tx, string(id), model.Row{
			ID:        id,
			TableID:   tableID,
			CreatedAt: db.millis(),
		}); err != nil {
			return err
		}

		cols, err := columnsOf(tx, tableID)
		if err != nil {
			return err
		}
		for _, c := range cols {
			if _, err := insertCell(tx, id, c.ID, model.DefaultCellValue(c.Type)); err != nil {
				return err
			}
		}
		return nil
	}, "table", tableID, "row", id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// DeleteRow deletes a row and its cells.
func (db *DB) DeleteRow(ctx context.Context, id model.RowID) error {
	return db.update(ctx, "deleteRow", func(tx *docstore.Tx) error {
		if _, err := getRow(tx, id); err != nil {
			return err
		}
		cs, err := cellsOfRow(tx, id)
		if err != nil {
			return err
		}
		if err := deleteCells(tx, cs); err != nil {
			return err
		}
		return rows.Delete(tx, string(id))
	}, "row", id)
}
