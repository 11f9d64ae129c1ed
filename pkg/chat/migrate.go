package chat

import (
	"log/slog"

	"github.com/tabulahq/tabula/pkg/sheet"
)

// MigrateLegacyTurn converts a turn's old-format tables into hash_sheets
// snapshots in place and returns the sheet records created along the way so
// the caller can register them. The legacy payload is cleared once
// converted.
func MigrateLegacyTurn(turn *Turn, logger *slog.Logger) []sheet.Record {
	if logger == nil {
		logger = slog.Default()
	}

	recs := make([]sheet.Record, 0, len(turn.LegacyTables))
	for _, legacy := range turn.LegacyTables {
		s := sheet.New(legacy.Name, len(legacy.Columns)+1, 2, logger)
		s.RebuildByValueSheet(legacyValueGrid(legacy))
		turn.AttachSnapshot(s.UID, s.Snapshot())
		recs = append(recs, s.ToRecord())
	}

	turn.LegacyTables = nil
	return recs
}

// legacyValueGrid shapes a legacy table into the value grid layout the
// rebuild expects: a leading row-header column and a header row.
func legacyValueGrid(legacy LegacyTable) [][]string {
	grid := make([][]string, 0, len(legacy.Rows)+1)

	header := append([]string{""}, legacy.Columns...)
	grid = append(grid, header)

	for _, row := range legacy.Rows {
		grid = append(grid, append([]string{""}, row...))
	}
	return grid
}
