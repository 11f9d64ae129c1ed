package prompt

import (
	"sort"
	"strings"

	"github.com/tabulahq/tabula/pkg/sheet"
)

// InterleavedRow is one data row in an interleaved rendering, tagged with the
// sheet it came from.
type InterleavedRow struct {
	SheetIndex int
	Values     []string
}

// Interleave merges the data rows of every alternate-enabled sheet into one
// sequence grouped by the value of the first data column, typically a role
// name, so each character's rows from different tables sit together.
//
// Participating sheets are ordered by alternate level, then by their original
// index. Groups appear in order of first appearance of the shared value, and
// rows within a group keep that same ordering.
func Interleave(sheets []*sheet.Sheet) []InterleavedRow {
	type participant struct {
		level int
		index int
	}

	var parts []participant
	for i, s := range sheets {
		if s.Config.ToChat && s.Config.AlternateTable && s.Config.AlternateLevel > 0 {
			parts = append(parts, participant{level: s.Config.AlternateLevel, index: i})
		}
	}
	sort.SliceStable(parts, func(i, j int) bool {
		if parts[i].level != parts[j].level {
			return parts[i].level < parts[j].level
		}
		return parts[i].index < parts[j].index
	})

	var rows []InterleavedRow
	for _, p := range parts {
		grid := sheets[p.index].ValueGrid()
		if len(grid) < 2 {
			continue
		}
		for _, row := range grid[1:] {
			rows = append(rows, InterleavedRow{SheetIndex: p.index, Values: row})
		}
	}

	firstSeen := make(map[string]int, len(rows))
	for i, r := range rows {
		key := groupKey(r.Values)
		if _, ok := firstSeen[key]; !ok {
			firstSeen[key] = i
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return firstSeen[groupKey(rows[i].Values)] < firstSeen[groupKey(rows[j].Values)]
	})
	return rows
}

// groupKey normalizes the first data column value for grouping.
func groupKey(values []string) string {
	if len(values) < 2 {
		return ""
	}
	key := strings.TrimSpace(values[1])
	key = strings.Map(func(r rune) rune {
		// Zero-width characters sneak in via model output.
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff':
			return -1
		}
		return r
	}, key)
	return strings.ToLower(key)
}
