package smartops

import (
	"context"
	"strings"

	"github.com/mesh-intelligence/rowgrid/internal/query"
	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

// SmartDeleteRows resolves indexes in the chosen scope to RowIDs and
// deletes them with SmartDeleteRowsByID. Out-of-range indexes are skipped.
func (s *Service) SmartDeleteRows(ctx context.Context, indexes []int, onlyFiltered bool) (types.Delta, error) {
	ids := make([]types.RowID, 0, len(indexes))
	for _, i := range indexes {
		row, ok, err := s.store.GetRow(i, onlyFiltered)
		if err != nil {
			return newDelta(), err
		}
		if ok {
			ids = append(ids, row.ID)
		}
	}
	return s.SmartDeleteRowsByID(ctx, ids)
}

// SmartDeleteRowsByID deletes rows under the policy. With smart operations
// disabled every row is removed. Otherwise rows are physically removed only
// while auto-delete is on and the row count stays at or above the minimum;
// the rest have their content cleared in place. The trailing-empty and
// minimum-row invariants are then restored best-effort.
//
// An error from the removal itself is returned. An error from the fixup is
// logged and returned alongside the delta of the removal that did happen.
func (s *Service) SmartDeleteRowsByID(ctx context.Context, ids []types.RowID) (types.Delta, error) {
	d := newDelta()
	targets := make([]types.Row, 0, len(ids))
	seen := make(map[types.RowID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		row, ok, err := s.store.GetRowByID(id)
		if err != nil {
			return d, err
		}
		if ok {
			targets = append(targets, row)
		}
	}
	if len(targets) == 0 {
		return d, nil
	}

	count, err := s.store.GetRowCount(false)
	if err != nil {
		return d, err
	}
	removable := len(targets)
	if s.policy.Enabled {
		removable = 0
		if s.policy.AutoDelete {
			removable = min(len(targets), max(0, count-s.policy.MinimumRows))
		}
	}

	remove := make([]types.RowID, removable)
	for i, r := range targets[:removable] {
		remove[i] = r.ID
	}
	if len(remove) > 0 {
		shifted, err := s.shiftedBy(ctx, remove)
		if err != nil {
			return d, err
		}
		n, err := s.store.RemoveRowsByID(ctx, remove)
		if err != nil {
			return d, err
		}
		d.Removed = remove[:n]
		d.Shifted = shifted
	}

	for _, r := range targets[removable:] {
		ok, err := s.store.UpdateRowByID(ctx, r.ID, r.Data.Blanked())
		if err != nil {
			return d, err
		}
		if ok {
			d.Cleared = append(d.Cleared, r.ID)
		}
	}

	fix, err := s.EnsureMinRowsAndLastEmpty(ctx)
	d.Merge(fix)
	return d, err
}

// shiftedBy counts the rows that will change position when ids are
// removed: the survivors after the first removed position.
func (s *Service) shiftedBy(ctx context.Context, ids []types.RowID) (int, error) {
	want := make(map[types.RowID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	pos, first, found := 0, -1, 0
	for batch, err := range s.store.StreamRows(ctx, types.StreamOptions{}) {
		if err != nil {
			return 0, err
		}
		for _, r := range batch {
			if want[r.ID] {
				found++
				if first < 0 {
					first = pos
				}
			}
			pos++
		}
	}
	if first < 0 {
		return 0, nil
	}
	return pos - first - found, nil
}

// SmartAddRows appends rows under the policy. When the last row is a
// trailing empty row it receives the first new row's content, so blank
// rows do not pile up between data; the invariants are then restored.
func (s *Service) SmartAddRows(ctx context.Context, data []types.RowData) (types.Delta, error) {
	d := newDelta()
	if len(data) == 0 {
		return d, nil
	}
	rest := data
	if s.policy.Enabled && s.policy.AlwaysKeepLastEmpty {
		last, ok, err := s.store.GetLastRow()
		if err != nil {
			return d, err
		}
		if ok && last.Data.IsBlank() {
			filled, err := s.store.UpdateRowByID(ctx, last.ID, data[0])
			if err != nil {
				return d, err
			}
			if filled {
				d.Filled = append(d.Filled, last.ID)
				rest = data[1:]
			}
		}
	}

	added, err := s.appendRows(ctx, rest)
	d.Added = added
	if err != nil {
		return d, err
	}

	fix, err := s.EnsureMinRowsAndLastEmpty(ctx)
	d.Merge(fix)
	return d, err
}

// AutoExpandEmptyRow appends an empty row when auto-expand is on and the
// last row has content, so there is always somewhere to type.
func (s *Service) AutoExpandEmptyRow(ctx context.Context) (types.Delta, error) {
	d := newDelta()
	if !s.policy.Enabled || !s.policy.AutoExpand {
		return d, nil
	}
	last, ok, err := s.store.GetLastRow()
	if err != nil {
		return d, s.fail(ctx, "auto_expand", err)
	}
	if ok && last.Data.IsBlank() {
		return d, nil
	}
	ids, err := s.appendRows(ctx, []types.RowData{s.blankRow()})
	d.Synthesized = ids
	if err != nil {
		return d, s.fail(ctx, "auto_expand", err)
	}
	return d, nil
}

// EnsureMinRowsAndLastEmpty pads the store with empty rows up to the
// minimum and, when required, makes sure the row with the highest RowID is
// empty. It is a no-op with smart operations disabled.
func (s *Service) EnsureMinRowsAndLastEmpty(ctx context.Context) (types.Delta, error) {
	d := newDelta()
	if !s.policy.Enabled {
		return d, nil
	}
	count, err := s.store.GetRowCount(false)
	if err != nil {
		return d, s.fail(ctx, "ensure_min_rows", err)
	}

	if need := s.policy.MinimumRows - count; need > 0 {
		blank := s.blankRow()
		pad := make([]types.RowData, need)
		for i := range pad {
			pad[i] = blank
		}
		ids, err := s.appendRows(ctx, pad)
		d.Synthesized = append(d.Synthesized, ids...)
		if err != nil {
			return d, s.fail(ctx, "ensure_min_rows", err)
		}
	}

	if !s.policy.AlwaysKeepLastEmpty {
		return d, nil
	}
	last, ok, err := s.store.GetLastRow()
	if err != nil {
		return d, s.fail(ctx, "ensure_last_empty", err)
	}
	if ok && last.Data.IsBlank() {
		return d, nil
	}
	ids, err := s.appendRows(ctx, []types.RowData{s.blankRow()})
	d.Synthesized = append(d.Synthesized, ids...)
	if err != nil {
		return d, s.fail(ctx, "ensure_last_empty", err)
	}
	return d, nil
}

// appendRows appends data one row at a time so each new ID is known even
// while other writers append concurrently. The context is checked between
// rows; IDs of rows already appended are returned with the error.
func (s *Service) appendRows(ctx context.Context, data []types.RowData) ([]types.RowID, error) {
	ids := make([]types.RowID, 0, len(data))
	for _, d := range data {
		id, err := s.store.AddRow(ctx, d)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// FindEmptyRows returns the IDs of rows whose fields are all null or
// whitespace, in display order.
func (s *Service) FindEmptyRows(ctx context.Context, onlyFiltered bool) ([]types.RowID, error) {
	var out []types.RowID
	for batch, err := range s.store.StreamRows(ctx, types.StreamOptions{OnlyFiltered: onlyFiltered}) {
		if err != nil {
			return out, err
		}
		for _, r := range batch {
			if r.Data.IsBlank() {
				out = append(out, r.ID)
			}
		}
	}
	return out, nil
}

// FindDuplicateRows groups non-empty rows whose values match on columns,
// compared case-insensitively after trimming. With no columns every field
// of the row is compared. Only groups with more than one row are returned,
// each in display order, ordered by their first row.
func (s *Service) FindDuplicateRows(ctx context.Context, columns []string, onlyFiltered bool) ([][]types.RowID, error) {
	groups := make(map[string][]types.RowID)
	var order []string
	for batch, err := range s.store.StreamRows(ctx, types.StreamOptions{OnlyFiltered: onlyFiltered}) {
		if err != nil {
			return nil, err
		}
		for _, r := range batch {
			if r.Data.IsBlank() {
				continue
			}
			k := duplicateKey(r.Data, columns)
			if _, ok := groups[k]; !ok {
				order = append(order, k)
			}
			groups[k] = append(groups[k], r.ID)
		}
	}

	var out [][]types.RowID
	for _, k := range order {
		if ids := groups[k]; len(ids) > 1 {
			out = append(out, ids)
		}
	}
	return out, nil
}

func duplicateKey(d types.RowData, columns []string) string {
	if len(columns) == 0 {
		columns = d.Keys()
	}
	var b strings.Builder
	for _, c := range columns {
		b.WriteString(c)
		b.WriteByte(0)
		b.WriteString(query.Fold(strings.TrimSpace(d.Value(c).String())))
		b.WriteByte(0x1e)
	}
	return b.String()
}
