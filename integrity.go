package vtable

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/hupe1980/vtable/docstore"
	"github.com/hupe1980/vtable/model"
)

// ErrIntegrity is returned by CheckIntegrity for a table that breaks the
// order or cell invariants.
var ErrIntegrity = errors.New("integrity violation")

// CheckIntegrity verifies that the column orders of a table are exactly
// 0..N-1 and that every (row, column) pair has exactly one cell. Each
// violation is reported as an error matching ErrIntegrity.
func (db *DB) CheckIntegrity(ctx context.Context, id model.TableID) error {
	var problems []error
	err := db.view(ctx, "checkIntegrity", func(tx *docstore.Tx) error {
		problems = problems[:0]
		report := func(format string, args ...any) {
			problems = append(problems, fmt.Errorf("%w: %s", ErrIntegrity, fmt.Sprintf(format, args...)))
		}

		if _, err := getTable(tx, id); err != nil {
			return err
		}
		cols, err := columnsOf(tx, id)
		if err != nil {
			return err
		}
		orders := make([]int, len(cols))
		known := make(map[model.ColumnID]struct{}, len(cols))
		for i, c := range cols {
			orders[i] = c.Order
			known[c.ID] = struct{}{}
		}
		slices.Sort(orders)
		for i, o := range orders {
			if o != i {
				report("column orders %v are not dense", orders)
				break
			}
		}

		rs, err := rowsOf(tx, id)
		if err != nil {
			return err
		}
		for _, r := range rs {
			cs, err := cellsOfRow(tx, r.ID)
			if err != nil {
				return err
			}
			count := make(map[model.ColumnID]int, len(cs))
			for _, c := range cs {
				if _, ok := known[c.ColumnID]; !ok {
					report("cell %s of row %s references unknown column %s", c.ID, r.ID, c.ColumnID)
					continue
				}
				count[c.ColumnID]++
			}
			for _, c := range cols {
				if n := count[c.ID]; n != 1 {
					report("row %s has %d cells for column %s", r.ID, n, c.ID)
				}
			}
		}
		return nil
	}, "table", id)
	if err != nil {
		return err
	}
	return errors.Join(problems...)
}
