package types

import (
	"context"
	"iter"
)

// RowStore is the sole authority over row existence, content and identity.
// Positional methods resolve through the filtered view only when
// onlyFiltered is set. Expected absence is reported with a false flag, not
// an error. Every method returns a *DataAccessError once the store is
// closed.
type RowStore interface {
	// AddRow appends one row and returns its new ID.
	AddRow(ctx context.Context, data RowData) (RowID, error)

	// AddRows appends rows in chunks and returns how many were added.
	// Cancellation is checked between chunks; rows already added stay.
	AddRows(ctx context.Context, data []RowData) (int, error)

	// InsertRows inserts rows at a position in the unfiltered order.
	// Rows at and after the position shift by len(data).
	InsertRows(ctx context.Context, data []RowData, at int) ([]RowID, error)

	// ReplaceAllRows discards every row, its validation state and checked
	// state, and the filtered view, then stores data.
	ReplaceAllRows(ctx context.Context, data []RowData) ([]RowID, error)

	GetRowByID(id RowID) (Row, bool, error)
	UpdateRowByID(ctx context.Context, id RowID, data RowData) (bool, error)
	RemoveRowByID(ctx context.Context, id RowID) (bool, error)
	RemoveRowsByID(ctx context.Context, ids []RowID) (int, error)

	GetRow(index int, onlyFiltered bool) (Row, bool, error)
	UpdateRow(ctx context.Context, index int, data RowData, onlyFiltered bool) (bool, error)
	RemoveRow(ctx context.Context, index int, onlyFiltered bool) (bool, error)

	GetAllRows(ctx context.Context, onlyFiltered bool) ([]Row, error)

	// StreamRows yields batches of at most opts.BatchSize rows, computing
	// each batch on demand and checking ctx between batches.
	StreamRows(ctx context.Context, opts StreamOptions) iter.Seq2[[]Row, error]

	GetRowCount(onlyFiltered bool) (int, error)

	SetFilterCriteria(ctx context.Context, criteria []FilterCriteria) error
	ClearFilterCriteria() error
	GetFilterCriteria() ([]FilterCriteria, error)
	MapFilteredIndexToOriginalIndex(filteredIndex int) (int, bool, error)
	MapOriginalIndexToFilteredIndex(originalIndex int) (int, bool, error)

	// GetLastRow returns the row with the highest RowID.
	GetLastRow() (Row, bool, error)

	WriteValidationResults(ctx context.Context, results []ValidationResult) error
	GetValidationErrors(onlyFiltered, onlyChecked bool) ([]ValidationError, error)
	AreAllNonEmptyRowsMarkedValid(onlyFiltered, onlyChecked bool) (bool, error)
	HasValidationStateForScope(onlyFiltered, onlyChecked bool) (bool, error)

	ClearAll(ctx context.Context) error
	ClearValidationState() error

	// Close releases the store. Idempotent.
	Close() error
}
