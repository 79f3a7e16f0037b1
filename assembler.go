package vtable

import (
	"context"

	"github.com/hupe1980/vtable/docstore"
	"github.com/hupe1980/vtable/model"
	"golang.org/x/sync/errgroup"
)

// AssembleTable returns the nested view of a table: columns by order, rows
// newest first, and for every (row, column) pair the cell id and value.
// Pairs without a cell get a CellData with both fields nil.
//
// It returns nil, nil when the table does not exist. The view is read in
// one transaction and reflects a single point in time.
func (db *DB) AssembleTable(ctx context.Context, id model.TableID) (*model.AssembledTable, error) {
	var out *model.AssembledTable
	err := db.view(ctx, "assembleTable", func(tx *docstore.Tx) error {
		out = nil

		ok, err := tables.Has(tx, string(id))
		if err != nil || !ok {
			return err
		}
		t, err := tables.Get(tx, string(id))
		if err != nil {
			return err
		}
		cols, err := columnsOf(tx, id)
		if err != nil {
			return err
		}
		rs, err := rows.Query(tx, indexByTableID, id).Desc().Collect()
		if err != nil {
			return err
		}

		perRow := make([][]model.Cell, len(rs))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(db.fanout)
		for i, r := range rs {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				cs, err := cellsOfRow(tx, r.ID)
				perRow[i] = cs
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		out = assemble(t, cols, rs, perRow)
		return nil
	}, "table", id)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func assemble(t model.Table, cols []model.Column, rs []model.Row, perRow [][]model.Cell) *model.AssembledTable {
	view := &model.AssembledTable{
		Table:   t,
		Columns: make([]model.AssembledColumn, len(cols)),
		Rows:    make([]model.AssembledRow, len(rs)),
	}
	for i, c := range cols {
		view.Columns[i] = model.ColumnView(c)
	}

	for i, r := range rs {
		byColumn := make(map[model.ColumnID]model.Cell, len(perRow[i]))
		for _, c := range perRow[i] {
			byColumn[c.ColumnID] = c
		}

		row := model.AssembledRow{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			Cells:     make(map[model.ColumnID]model.CellData, len(cols)),
		}
		for _, col := range cols {
			c, ok := byColumn[col.ID]
			if !ok {
				row.Cells[col.ID] = model.CellData{}
				continue
			}
			id := c.ID
			row.Cells[col.ID] = model.CellData{ID: &id, Value: c.Value}
		}
		view.Rows[i] = row
	}
	return view
}
