package vtable

import (
	"context"

	"github.com/hupe1980/vtable/docstore"
	"github.com/hupe1980/vtable/model"
)

// NewColumn is the input of CreateColumn.
type NewColumn struct {
	TableID model.TableID `json:"tableId"`
	Name    string        `json:"name"`
	Type    string        `json:"type"`
	Options model.Options `json:"options,omitempty"`
	// Order is the zero-based position. Nil appends the column.
	Order *int `json:"order,omitempty"`
}

// ColumnPatch holds the column fields to change. Nil fields are left as
// they are.
type ColumnPatch struct {
	Name    *string       `json:"name,omitempty"`
	Type    *string       `json:"type,omitempty"`
	Options model.Options `json:"options,omitempty"`
	Order   *int          `json:"order,omitempty"`
}

func validateOptions(o model.Options) error {
	if err := o.Validate(); err != nil {
		return validationErrorf("%v", err)
	}
	return nil
}

func validateOrder(order *int) error {
	if order != nil && *order < 0 {
		return validationErrorf("order must not be negative, got %d", *order)
	}
	return nil
}

// CreateColumn adds a column and gives every existing row a cell holding
// the default value of its type.
//
// Without an order the column is appended. An explicit order inserts it at
// that position, clamped to the column count, and shifts the columns at or
// after it up by one.
func (db *DB) CreateColumn(ctx context.Context, in NewColumn) (model.ColumnID, error) {
	typ, err := model.ValidateColumnType(in.Type)
	if err == nil {
		err = validateOptions(in.Options)
	}
	if err == nil {
		err = validateOrder(in.Order)
	}
	if err != nil {
		return "", db.reject(ctx, "createColumn", err, "table", in.TableID)
	}

	id := model.NewColumnID()
	var backfilled int
	err = db.update(ctx, "createColumn", func(tx *docstore.Tx) error {
		if _, err := getTable(tx, in.TableID); err != nil {
			return err
		}
		existing, err := columnsOf(tx, in.TableID)
		if err != nil {
			return err
		}

		order := 0
		for _, c := range existing {
			order = max(order, c.Order+1)
		}
		if in.Order != nil {
			order = min(*in.Order, len(existing))
			for _, c := range existing {
				if c.Order < order {
					continue
				}
				if err := columns.Patch(tx, string(c.ID), func(c *model.Column) { c.Order++ }); err != nil {
					return err
				}
			}
		}

		col := model.Column{
			ID:      id,
			TableID: in.TableID,
			Name:    in.Name,
			Type:    typ,
			Options: in.Options.Clone(),
			Order:   order,
		}
		if err := columns.Insert(tx, string(id), col); err != nil {
			return err
		}

		rs, err := rowsOf(tx, in.TableID)
		if err != nil {
			return err
		}
		for _, r := range rs {
			if _, err := insertCell(tx, r.ID, id, model.DefaultCellValue(typ)); err != nil {
				return err
			}
		}
		backfilled = len(rs)
		return nil
	}, "table", in.TableID, "column", id)
	if err != nil {
		return "", err
	}
	db.logger.DebugContext(ctx, "column back-filled", "column", id, "cells", backfilled)
	return id, nil
}

// UpdateColumn patches a column in one transaction.
//
// A new type resets every cell of the column to the type's default value.
// A new order moves the column and shifts the columns between its old and
// new position by one; orders past the last column are clamped to it.
func (db *DB) UpdateColumn(ctx context.Context, id model.ColumnID, patch ColumnPatch) error {
	var (
		typ model.ColumnType
		err error
	)
	if patch.Type != nil {
		typ, err = model.ValidateColumnType(*patch.Type)
	}
	if err == nil {
		err = validateOptions(patch.Options)
	}
	if err == nil {
		err = validateOrder(patch.Order)
	}
	if err != nil {
		return db.reject(ctx, "updateColumn", err, "column", id)
	}

	return db.update(ctx, "updateColumn", func(tx *docstore.Tx) error {
		col, err := getColumn(tx, id)
		if err != nil {
			return err
		}

		if patch.Order != nil {
			if err := reorderColumn(tx, &col, *patch.Order); err != nil {
				return err
			}
		}

		typeChanged := patch.Type != nil && typ != col.Type
		if patch.Name != nil {
			col.Name = *patch.Name
		}
		if patch.Type != nil {
			col.Type = typ
		}
		if patch.Options != nil {
			col.Options = patch.Options.Clone()
		}
		if err := columns.Replace(tx, string(id), col); err != nil {
			return err
		}

		if !typeChanged {
			return nil
		}
		cs, err := cellsOfColumn(tx, id)
		if err != nil {
			return err
		}
		for _, c := range cs {
			c.Value = model.DefaultCellValue(typ)
			if err := cells.Replace(tx, string(c.ID), c); err != nil {
				return err
			}
		}
		return nil
	}, "column", id)
}

// reorderColumn shifts the siblings of col for its move to order and sets
// col.Order. The caller writes col.
func reorderColumn(tx *docstore.Tx, col *model.Column, order int) error {
	siblings, err := columnsOf(tx, col.TableID)
	if err != nil {
		return err
	}
	order = min(order, len(siblings)-1)
	cur := col.Order
	if order == cur {
		return nil
	}

	for _, c := range siblings {
		if c.ID == col.ID {
			continue
		}
		delta := 0
		switch {
		case order < cur && c.Order >= order && c.Order < cur:
			delta = 1
		case order > cur && c.Order > cur && c.Order <= order:
			delta = -1
		default:
			continue
		}
		if err := columns.Patch(tx, string(c.ID), func(c *model.Column) { c.Order += delta }); err != nil {
			return err
		}
	}
	col.Order = order
	return nil
}

// DeleteColumn deletes a column and its cells. The columns after it move
// up by one, so orders stay dense.
func (db *DB) DeleteColumn(ctx context.Context, id model.ColumnID) error {
	return db.update(ctx, "deleteColumn", func(tx *docstore.Tx) error {
		col, err := getColumn(tx, id)
		if err != nil {
			return err
		}
		cs, err := cellsOfColumn(tx, id)
		if err != nil {
			return err
		}
		if err := deleteCells(tx, cs); err != nil {
			return err
		}
		if err := columns.Delete(tx, string(id)); err != nil {
			return err
		}

		rest, err := columnsOf(tx, col.TableID)
		if err != nil {
			return err
		}
		for _, c := range rest {
			if c.Order <= col.Order {
				continue
			}
			if err := columns.Patch(tx, string(c.ID), func(c *model.Column) { c.Order-- }); err != nil {
				return err
			}
		}
		return nil
	}, "column", id)
}
