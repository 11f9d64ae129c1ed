package sheet

import "github.com/tabulahq/tabula/pkg/cell"

// RebuildByValueSheet reconciles a plain 2-D value grid against the sheet.
//
// Existing cells whose value and kind match are reused greedily (each at
// most once), so applying an AI-produced full-replacement table keeps cell
// identity, and therefore history and diffability, for unchanged content.
// Only genuinely new content allocates new cells. Matching runs across the
// full cell history, not just the live grid, so a row that was deleted and
// re-added comes back as the same cells.
func (s *Sheet) RebuildByValueSheet(values [][]string) {
	if len(values) == 0 || len(values[0]) == 0 {
		return
	}

	used := make(map[string]bool)
	grid := make([][]string, len(values))
	for r, row := range values {
		grid[r] = make([]string, len(values[0]))
		for c := range values[0] {
			value := ""
			if c < len(row) {
				value = row[c]
			}
			kind := cell.KindAt(r, c)

			if old := s.arena.FindByValue(value, kind, used); old != nil {
				used[old.ID] = true
				grid[r][c] = old.ID
				continue
			}

			fresh := s.arena.Create(kind)
			fresh.Value = value
			used[fresh.ID] = true
			grid[r][c] = fresh.ID
		}
	}

	s.grid = grid
	s.invalidate()
}
