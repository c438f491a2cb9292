package types

// Severity grades a ValidationError.
type Severity int

// Severities, least to most severe.
const (
	SeverityWarning Severity = iota
	SeverityError
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ValidationError is a data-level finding on a row. It is domain data
// written by the validation subsystem, not a Go error.
type ValidationError struct {
	RowID    RowID
	Column   string // Empty for row-level findings.
	Severity Severity
	Message  string
}

// ValidationResult replaces the validation state of one row. An empty
// Errors slice marks the row valid.
type ValidationResult struct {
	RowID  RowID
	Errors []ValidationError
}

// Valid reports whether the result carries no Error or Critical finding.
// Warnings do not make a row invalid.
func (r ValidationResult) Valid() bool {
	for _, e := range r.Errors {
		if e.Severity >= SeverityError {
			return false
		}
	}
	return true
}
