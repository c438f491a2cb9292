package types

import (
	"errors"
	"fmt"
	"strings"
)

// Store and row errors.
var (
	ErrStoreClosed   = errors.New("row store is closed")
	ErrInvalidID     = errors.New("invalid row ID")
	ErrInvalidData   = errors.New("invalid row data")
	ErrInvalidColumn = errors.New("invalid column")
	ErrInvalidFilter = errors.New("invalid filter criteria")
	ErrInvalidIndex  = errors.New("row index out of range")
	ErrNilArgument   = errors.New("required argument is nil")
)

// Configuration errors.
var (
	ErrBatchSizeInvalid     = errors.New("batch size must be positive")
	ErrRowHeightInvalid     = errors.New("row height bounds are invalid")
	ErrTimeoutInvalid       = errors.New("timeout must be positive and at most 10s")
	ErrThresholdInvalid     = errors.New("threshold must be between 0 and 1")
	ErrMinimumRowsInvalid   = errors.New("minimum rows must not be negative")
	ErrModeUnknown          = errors.New("unknown operation mode")
	ErrParallelThresholdNeg = errors.New("parallel filter threshold must not be negative")
	ErrLoggingLevelUnknown  = errors.New("unknown logging level")
	ErrLoggingFormatUnknown = errors.New("unknown logging format")
)

// ConfigurationError reports an invalid setting. It is returned at
// construction or validation time.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// DataAccessError reports a call on a store that cannot serve it, such as
// one that has been closed.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error { return e.Err }

// OperationError reports that a named operation failed. Context carries
// optional detail for logs.
type OperationError struct {
	Op      string
	Context map[string]any
	Err     error
}

func (e *OperationError) Error() string {
	if len(e.Context) == 0 {
		return fmt.Sprintf("operation %s: %v", e.Op, e.Err)
	}
	parts := make([]string, 0, len(e.Context))
	for _, k := range sortedKeys(e.Context) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, e.Context[k]))
	}
	return fmt.Sprintf("operation %s (%s): %v", e.Op, strings.Join(parts, " "), e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// DataError is a row- or column-scoped fault. Position is -1 when the
// fault is not tied to a position.
type DataError struct {
	Position int
	RowID    RowID
	Column   string
	Err      error
}

func (e *DataError) Error() string {
	var b strings.Builder
	b.WriteString("data")
	if e.Position >= 0 {
		fmt.Fprintf(&b, " row %d", e.Position)
	}
	if e.RowID.Valid() {
		fmt.Fprintf(&b, " id %s", e.RowID)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column %q", e.Column)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *DataError) Unwrap() error { return e.Err }

// CriticalError wraps a recovered panic. It is always surfaced.
type CriticalError struct {
	Op    string
	Cause any
}

func (e *CriticalError) Error() string {
	return fmt.Sprintf("critical failure in %s: %v", e.Op, e.Cause)
}

// Unwrap returns the cause when it is an error.
func (e *CriticalError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}

// IsCritical reports whether err is or wraps a CriticalError.
func IsCritical(err error) bool {
	var ce *CriticalError
	return errors.As(err, &ce)
}
