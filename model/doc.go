// Package model defines the entities of the VTable data model and the column
// type registry.
//
// # Entities
//
//   - Table: root of a table namespace
//   - Column: ordered, typed column of a table
//   - Row: a table row; carries no data itself
//   - Cell: the value of one (row, column) pair, always stored as an optional string
//   - Message: a chat message
//
// # Identity Types
//
// Every collection has its own opaque identifier type (TableID, ColumnID,
// RowID, CellID, MessageID). Identifiers are ULIDs rendered as strings and
// are only meaningful inside their own collection.
//
// # Type Registry
//
// ValidateColumnType checks a type name against the closed set of column
// types and DefaultValueForType returns the value a freshly materialized cell
// of that type starts with:
//
//	t, err := model.ValidateColumnType("number") // model.TypeNumber
//	v, _ := model.DefaultValueForType(t)          // "0"
package model
