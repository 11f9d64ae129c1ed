package sheet

import (
	"strconv"
	"strings"
)

// Header returns the column header values, excluding the row-header column.
func (s *Sheet) Header() []string {
	if len(s.grid) == 0 {
		return nil
	}
	header := make([]string, 0, len(s.grid[0])-1)
	for _, id := range s.grid[0][1:] {
		header = append(header, s.arena.Resolve(id).Value)
	}
	return header
}

// Content returns the sheet's values with the row-header column stripped.
// When withHeader is false the header row is stripped as well.
func (s *Sheet) Content(withHeader bool) [][]string {
	if !withHeader && s.IsEmpty() {
		return nil
	}
	start := 1
	if withHeader {
		start = 0
	}
	out := make([][]string, 0, len(s.grid))
	for r := start; r < len(s.grid); r++ {
		row := make([]string, 0, len(s.grid[r])-1)
		for _, id := range s.grid[r][1:] {
			row = append(row, s.arena.Resolve(id).Value)
		}
		out = append(out, row)
	}
	return out
}

// ValueGrid returns every value in the grid, headers and row-header column
// included, in grid order.
func (s *Sheet) ValueGrid() [][]string {
	out := make([][]string, len(s.grid))
	for r, row := range s.grid {
		out[r] = make([]string, len(row))
		for c, id := range row {
			out[r][c] = s.arena.Resolve(id).Value
		}
	}
	return out
}

// CSV renders the sheet as comma-separated rows. With removeHeader the
// header row is skipped. For dynamic and fixed sheets the row-header column
// renders as the 0-based data row index instead of its stored content, which
// is what the model is told to address rows by.
func (s *Sheet) CSV(removeHeader bool) string {
	if s.IsEmpty() {
		return "(this table is currently empty)\n"
	}

	start := 0
	if removeHeader {
		start = 1
	}

	var b strings.Builder
	for r := start; r < len(s.grid); r++ {
		for c, id := range s.grid[r] {
			if c > 0 {
				b.WriteByte(',')
			}
			if c == 0 && (s.Kind == KindDynamic || s.Kind == KindFixed) {
				b.WriteString(strconv.Itoa(r - start))
				continue
			}
			b.WriteString(s.arena.Resolve(id).Value)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// RowValues returns the values of one grid row, row-header column included.
func (s *Sheet) RowValues(row int) []string {
	if row < 0 || row >= len(s.grid) {
		return nil
	}
	out := make([]string, len(s.grid[row]))
	for c, id := range s.grid[row] {
		out[c] = s.arena.Resolve(id).Value
	}
	return out
}
