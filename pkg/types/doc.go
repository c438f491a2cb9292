// Package types defines the RowStore interface, row and value types, query
// criteria, validation and change records, configuration, and standard
// error types for the rowgrid system.
//
// Everything here is plain data. The memory package implements RowStore,
// the smartops package keeps the minimum-rows and last-empty-row
// invariants, and the grid package composes both behind one facade.
package types
