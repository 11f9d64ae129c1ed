package sheet

import (
	"regexp"

	"github.com/tabulahq/tabula/pkg/cell"
)

var addressRe = regexp.MustCompile(`^([A-Z]+)(\d+)$`)

// ParseAddress converts an "A1"-style address into grid coordinates.
//
// Column letters are 1-indexed from A but offset by the reserved row-header
// column, so A maps to grid column 1. Row numbers are 1-indexed data rows
// offset by the header row, so 1 maps to grid row 1. External formula-like
// references depend on this exact offset scheme.
func ParseAddress(address string) (row, col int, ok bool) {
	m := addressRe.FindStringSubmatch(address)
	if m == nil {
		return 0, 0, false
	}

	col = 0
	for _, ch := range m[1] {
		col = col*26 + int(ch-'A') + 1
	}

	row = 0
	for _, ch := range m[2] {
		row = row*10 + int(ch-'0')
	}
	if row == 0 {
		return 0, 0, false
	}

	return row, col, true
}

// CellAtAddress resolves an "A1"-style address against the sheet. Returns
// nil for malformed or out-of-range addresses.
func (s *Sheet) CellAtAddress(address string) *cell.Cell {
	row, col, ok := ParseAddress(address)
	if !ok {
		return nil
	}
	if row >= len(s.grid) || col >= s.ColCount() {
		return nil
	}
	return s.CellAt(row, col)
}
