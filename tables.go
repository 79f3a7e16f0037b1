package vtable

import (
	"context"

	"github.com/hupe1980/vtable/docstore"
	"github.com/hupe1980/vtable/model"
)

// NewTable is the input of CreateTable.
type NewTable struct {
	Name        string  `json:"name"`
	OwnerID     *string `json:"ownerId,omitempty"`
	Description *string `json:"description,omitempty"`
}

// TablePatch holds the table fields to change. Nil fields are left as they are.
type TablePatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// CreateTable creates an empty table.
func (db *DB) CreateTable(ctx context.Context, in NewTable) (model.TableID, error) {
	id := model.NewTableID()
	err := db.update(ctx, "createTable", func(tx *docstore.Tx) error {
		return tables.Insert(tx, string(id), model.Table{
			ID:          id,
			Name:        in.Name,
			OwnerID:     in.OwnerID,
			Description: in.Description,
			CreatedAt:   db.millis(),
		})
	}, "table", id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateTable patches the name and description of a table.
func (db *DB) UpdateTable(ctx context.Context, id model.TableID, patch TablePatch) error {
	return db.update(ctx, "updateTable", func(tx *docstore.Tx) error {
		t, err := getTable(tx, id)
		if err != nil {
			return err
		}
		if patch.Name == nil && patch.Description == nil {
			return nil
		}
		if patch.Name != nil {
			t.Name = *patch.Name
		}
		if patch.Description != nil {
			t.Description = patch.Description
		}
		return tables.Replace(tx, string(id), t)
	}, "table", id)
}

// DeleteTable deletes a table with all of its columns, rows and cells.
func (db *DB) DeleteTable(ctx context.Context, id model.TableID) error {
	var nCols, nRows, nCells int
	err := db.update(ctx, "deleteTable", func(tx *docstore.Tx) error {
		if _, err := getTable(tx, id); err != nil {
			return err
		}
		cols, err := columnsOf(tx, id)
		if err != nil {
			return err
		}
		rs, err := rowsOf(tx, id)
		if err != nil {
			return err
		}

		// A cell is reachable from its column and from its row.
		seen := make(map[model.CellID]struct{})
		var doomed []model.Cell
		collect := func(cs []model.Cell) {
			for _, c := range cs {
				if _, dup := seen[c.ID]; !dup {
					seen[c.ID] = struct{}{}
					doomed = append(doomed, c)
				}
			}
		}
		for _, c := range cols {
			cs, err := cellsOfColumn(tx, c.ID)
			if err != nil {
				return err
			}
			collect(cs)
		}
		for _, r := range rs {
			cs, err := cellsOfRow(tx, r.ID)
			if err != nil {
				return err
			}
			collect(cs)
		}

		if err := deleteCells(tx, doomed); err != nil {
			return err
		}
		for _, c := range cols {
			if err := columns.Delete(tx, string(c.ID)); err != nil {
				return err
			}
		}
		for _, r := range rs {
			if err := rows.Delete(tx, string(r.ID)); err != nil {
				return err
			}
		}
		nCols, nRows, nCells = len(cols), len(rs), len(doomed)
		return tables.Delete(tx, string(id))
	}, "table", id)
	if err == nil {
		db.logger.LogCascade(ctx, "deleteTable", nCols, nRows, nCells)
	}
	return err
}

// ListTables returns the tables newest first. A non-nil ownerID restricts
// the result to that owner's tables.
func (db *DB) ListTables(ctx context.Context, ownerID *string) ([]model.Table, error) {
	var out []model.Table
	err := db.view(ctx, "listTables", func(tx *docstore.Tx) error {
		q := tables.Query(tx, indexByCreatedAt)
		if ownerID != nil {
			q = tables.Query(tx, indexByOwner, *ownerID)
		}
		var err error
		out, err = q.Desc().Collect()
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
