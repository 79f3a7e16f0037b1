package model

// CellData is the assembled value of a (row, column) pair. Both fields are
// nil when the pair has no cell.
type CellData struct {
	ID    *CellID `json:"id"`
	Value *string `json:"value"`
}

// AssembledColumn is a column as seen by a client.
type AssembledColumn struct {
	ID      ColumnID   `json:"id"`
	Name    string     `json:"name"`
	Type    ColumnType `json:"type"`
	Options Options    `json:"options,omitempty"`
	Order   int        `json:"order"`
}

// AssembledRow is a row with its cells keyed by column id.
type AssembledRow struct {
	ID        RowID                 `json:"id"`
	CreatedAt int64                 `json:"createdAt"`
	Cells     map[ColumnID]CellData `json:"cells"`
}

// AssembledTable is the nested view of a table. Columns are sorted by order
// ascending, rows by creation time descending.
type AssembledTable struct {
	Table   Table             `json:"table"`
	Columns []AssembledColumn `json:"columns"`
	Rows    []AssembledRow    `json:"rows"`
}

// ColumnView projects c into its assembled form.
func ColumnView(c Column) AssembledColumn {
	return AssembledColumn{
		ID:      c.ID,
		Name:    c.Name,
		Type:    c.Type,
		Options: c.Options,
		Order:   c.Order,
	}
}
