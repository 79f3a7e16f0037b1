package model

import "time"

// Table is the root of a table namespace.
type Table struct {
	ID          TableID `json:"id"`
	Name        string  `json:"name"`
	OwnerID     *string `json:"ownerId,omitempty"`
	Description *string `json:"description,omitempty"`
	// CreatedAt is the creation time in Unix milliseconds.
	CreatedAt int64 `json:"createdAt"`
}

// Column is an ordered, typed column of a table.
//
// Within one table the orders of all columns form the dense sequence 0..N-1.
type Column struct {
	ID      ColumnID   `json:"id"`
	TableID TableID    `json:"tableId"`
	Name    string     `json:"name"`
	Type    ColumnType `json:"type"`
	Options Options    `json:"options,omitempty"`
	Order   int        `json:"order"`
}

// Row is a row of a table. Its data lives in cells.
type Row struct {
	ID        RowID   `json:"id"`
	TableID   TableID `json:"tableId"`
	CreatedAt int64   `json:"createdAt"`
}

// Cell holds the value of one (row, column) pair.
//
// A nil Value is distinct from an empty string.
type Cell struct {
	ID       CellID   `json:"id"`
	RowID    RowID    `json:"rowId"`
	ColumnID ColumnID `json:"columnId"`
	Value    *string  `json:"value,omitempty"`
}

// Message is a chat message.
type Message struct {
	ID        MessageID `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	CreatedAt int64     `json:"createdAt"`
}

// Millis converts t to Unix milliseconds.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
