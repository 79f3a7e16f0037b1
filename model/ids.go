package model

import "github.com/oklog/ulid/v2"

// TableID identifies a Table.
type TableID string

// ColumnID identifies a Column.
type ColumnID string

// RowID identifies a Row.
type RowID string

// CellID identifies a Cell.
type CellID string

// MessageID identifies a chat Message.
type MessageID string

// newID returns a fresh ULID string. ulid.Make is monotonic within a process,
// so identifiers created in the same millisecond still sort by creation.
func newID() string {
	return ulid.Make().String()
}

// NewTableID returns a new unique TableID.
func NewTableID() TableID { return TableID(newID()) }

// NewColumnID returns a new unique ColumnID.
func NewColumnID() ColumnID { return ColumnID(newID()) }

// NewRowID returns a new unique RowID.
func NewRowID() RowID { return RowID(newID()) }

// NewCellID returns a new unique CellID.
func NewCellID() CellID { return CellID(newID()) }

// NewMessageID returns a new unique MessageID.
func NewMessageID() MessageID { return MessageID(newID()) }
