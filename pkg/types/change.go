package types

import "github.com/google/uuid"

// ChangeKind names the operation that produced a change.
type ChangeKind string

// Change kinds.
const (
	ChangeAdd        ChangeKind = "add"
	ChangeInsert     ChangeKind = "insert"
	ChangeUpdate     ChangeKind = "update"
	ChangeDelete     ChangeKind = "delete"
	ChangeReplace    ChangeKind = "replace"
	ChangeImport     ChangeKind = "import"
	ChangeFilter     ChangeKind = "filter"
	ChangeSort       ChangeKind = "sort"
	ChangeClear      ChangeKind = "clear"
	ChangeValidation ChangeKind = "validation"
	ChangeRefresh    ChangeKind = "refresh"
)

// ChangeDescriptor is the granular metadata sent to a notification sink so
// a consumer can patch its view instead of reloading it.
type ChangeDescriptor struct {
	ID                 string
	Kind               ChangeKind
	Inserted           []RowID
	Updated            []RowID
	Deleted            []RowID
	AffectedRows       int
	AffectedColumns    int
	RequiresFullReload bool
}

// NewChangeDescriptor returns a descriptor with a fresh UUID v7 ID.
func NewChangeDescriptor(kind ChangeKind) ChangeDescriptor {
	return ChangeDescriptor{ID: NewOperationID(), Kind: kind}
}

// Merge folds another descriptor's identities and counts into d. The full
// reload flag is sticky.
func (d *ChangeDescriptor) Merge(o ChangeDescriptor) {
	d.Inserted = append(d.Inserted, o.Inserted...)
	d.Updated = append(d.Updated, o.Updated...)
	d.Deleted = append(d.Deleted, o.Deleted...)
	d.AffectedRows += o.AffectedRows
	if o.AffectedColumns > d.AffectedColumns {
		d.AffectedColumns = o.AffectedColumns
	}
	d.RequiresFullReload = d.RequiresFullReload || o.RequiresFullReload
}

// Empty reports whether the descriptor describes no change.
func (d ChangeDescriptor) Empty() bool {
	return len(d.Inserted) == 0 && len(d.Updated) == 0 && len(d.Deleted) == 0 &&
		d.AffectedRows == 0 && !d.RequiresFullReload
}

// Delta is the outcome of a smart operation: which rows were physically
// removed, which were only content-cleared, which empty rows were
// synthesized, and how many surviving rows changed position.
type Delta struct {
	ID          string
	Removed     []RowID
	Cleared     []RowID
	Synthesized []RowID
	Added       []RowID
	Filled      []RowID // blank rows that received new content
	Shifted     int
}

// Change converts the delta into a change descriptor.
func (d Delta) Change(kind ChangeKind) ChangeDescriptor {
	c := ChangeDescriptor{
		ID:       d.ID,
		Kind:     kind,
		Deleted:  append([]RowID(nil), d.Removed...),
		Updated:  append(append([]RowID(nil), d.Cleared...), d.Filled...),
		Inserted: append(append([]RowID(nil), d.Added...), d.Synthesized...),
	}
	if c.ID == "" {
		c.ID = NewOperationID()
	}
	c.AffectedRows = len(c.Deleted) + len(c.Updated) + len(c.Inserted)
	return c
}

// Empty reports whether the delta records no change.
func (d Delta) Empty() bool {
	return len(d.Removed) == 0 && len(d.Cleared) == 0 && len(d.Synthesized) == 0 &&
		len(d.Added) == 0 && len(d.Filled) == 0 && d.Shifted == 0
}

// Merge folds another delta into d.
func (d *Delta) Merge(o Delta) {
	d.Removed = append(d.Removed, o.Removed...)
	d.Cleared = append(d.Cleared, o.Cleared...)
	d.Synthesized = append(d.Synthesized, o.Synthesized...)
	d.Added = append(d.Added, o.Added...)
	d.Filled = append(d.Filled, o.Filled...)
	d.Shifted += o.Shifted
}

// OperationResult is what facade operations return instead of raw errors:
// a success flag plus messages, so batch operations can report partial
// success.
type OperationResult struct {
	Success   bool
	Cancelled bool
	Messages  []string
	Change    ChangeDescriptor
	Delta     Delta
	Notified  bool
	// Err is the failure behind an unsuccessful result. A *CriticalError
	// always lands here.
	Err error
}

// NewOperationID generates a UUID v7 string.
func NewOperationID() string {
	return uuid.Must(uuid.NewV7()).String()
}
