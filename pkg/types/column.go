package types

// ColumnType is the declared semantic type of a column.
type ColumnType string

// Column types.
const (
	ColumnText     ColumnType = "text"
	ColumnNumber   ColumnType = "number"
	ColumnBool     ColumnType = "bool"
	ColumnDateTime ColumnType = "datetime"
	ColumnCheckbox ColumnType = "checkbox"
	ColumnObject   ColumnType = "object"
)

var validColumnTypes = map[ColumnType]bool{
	ColumnText:     true,
	ColumnNumber:   true,
	ColumnBool:     true,
	ColumnDateTime: true,
	ColumnCheckbox: true,
	ColumnObject:   true,
}

// ColumnDefinition describes one grid column. Definitions are registered
// with the store and consulted by filtering, sorting and search.
type ColumnDefinition struct {
	Name       string
	Type       ColumnType
	Sortable   bool
	Filterable bool
	Visible    bool
	MinWidth   float64
	MaxWidth   float64
}

// NewColumn returns a visible, sortable, filterable column of the given type.
func NewColumn(name string, typ ColumnType) ColumnDefinition {
	return ColumnDefinition{
		Name:       name,
		Type:       typ,
		Sortable:   true,
		Filterable: true,
		Visible:    true,
	}
}

// ColumnTypeOf maps a value kind to the column type that holds it. Null
// maps to text.
func ColumnTypeOf(k Kind) ColumnType {
	switch k {
	case KindNumber:
		return ColumnNumber
	case KindBool:
		return ColumnBool
	case KindDateTime:
		return ColumnDateTime
	case KindOpaque:
		return ColumnObject
	}
	return ColumnText
}

// WithDefaults returns c with the NewColumn flags when none of Sortable,
// Filterable or Visible is set. A bare name-and-type definition is treated
// as unconfigured, not as a hidden locked column.
func (c ColumnDefinition) WithDefaults() ColumnDefinition {
	if c.Sortable || c.Filterable || c.Visible {
		return c
	}
	d := NewColumn(c.Name, c.Type)
	d.MinWidth, d.MaxWidth = c.MinWidth, c.MaxWidth
	return d
}

// Validate checks that the definition is usable.
func (c ColumnDefinition) Validate() error {
	if c.Name == "" {
		return &DataError{Position: -1, Err: ErrInvalidColumn}
	}
	if c.Type != "" && !validColumnTypes[c.Type] {
		return &DataError{Position: -1, Column: c.Name, Err: ErrInvalidColumn}
	}
	if c.MinWidth < 0 || (c.MaxWidth > 0 && c.MaxWidth < c.MinWidth) {
		return &DataError{Position: -1, Column: c.Name, Err: ErrInvalidColumn}
	}
	return nil
}
