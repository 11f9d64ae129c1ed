// Package sheet implements the grid addressing layer over the cell store.
//
// A Sheet is a 2-D grid of cell IDs (the "hash sheet"): row 0 holds column
// headers, column 0 holds row headers, and grid[0][0] is the origin cell
// whose metadata carries sheet-level notes and edit trigger rules. The grid
// references cells by ID only; values live in the sheet's cell arena, which
// is append-only, so structural edits and value edits never destroy history.
package sheet

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tabulahq/tabula/pkg/cell"
)

// Domain locates where a grid document lives.
type Domain string

const (
	// DomainGlobal marks user-level templates.
	DomainGlobal Domain = "global"

	// DomainRole marks role-scoped documents.
	DomainRole Domain = "role"

	// DomainChat marks per-conversation sheets.
	DomainChat Domain = "chat"
)

// Kind governs header-editing permissions and default rendering.
type Kind string

const (
	KindFree    Kind = "free"
	KindDynamic Kind = "dynamic"
	KindFixed   Kind = "fixed"
	KindStatic  Kind = "static"
)

// Config holds per-sheet rendering and push-to-chat options.
type Config struct {
	ToChat            bool `json:"toChat"`
	TriggerSendToChat bool `json:"triggerSendToChat"`
	AlternateTable    bool `json:"alternateTable"`
	AlternateLevel    int  `json:"alternateLevel"`
	InsertTable       bool `json:"insertTable"`
	SkipTop           bool `json:"skipTop"`
}

// Meta keys stored on the origin cell.
const (
	MetaNote       = "note"
	MetaInitRule   = "initNode"
	MetaInsertRule = "insertNode"
	MetaUpdateRule = "updateNode"
	MetaDeleteRule = "deleteNode"
)

// Sheet is one live table instance within one conversation.
//
// Many Sheet instances for the same logical table may exist simultaneously
// (one per chat turn it is reconstructed for); only the instance attached to
// the current turn is mutable-and-authoritative.
type Sheet struct {
	UID             string
	Name            string
	Domain          Domain
	Kind            Kind
	Enabled         bool
	Required        bool
	TriggerSend     bool
	TriggerSendDeep int
	Config          Config

	// Template holds the uid of the template this sheet was stamped from,
	// empty for sheets created directly.
	Template string

	grid  [][]string
	arena *cell.Arena

	pos      map[string][2]int
	posDirty bool

	logger *slog.Logger
}

// NewUID generates a sheet identifier.
func NewUID() string {
	return "sheet_" + randomSuffix()
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// New creates a sheet with a fresh rectangular cols x rows grid, one cell
// per position. Row 0 and column 0 are header cells, grid[0][0] the origin.
// The minimum useful geometry is 2x2 (one header row, one header column).
func New(name string, cols, rows int, logger *slog.Logger) *Sheet {
	if logger == nil {
		logger = slog.Default()
	}
	if cols < 2 {
		cols = 2
	}
	if rows < 2 {
		rows = 2
	}

	uid := NewUID()
	s := &Sheet{
		UID:      uid,
		Name:     name,
		Domain:   DomainChat,
		Kind:     KindDynamic,
		Enabled:  true,
		Config:   Config{ToChat: true},
		arena:    cell.NewArena(scopeOf(uid), logger),
		posDirty: true,
		logger:   logger,
	}
	if s.Name == "" {
		s.Name = "NewTable_" + uid[len(uid)-4:]
	}

	s.grid = make([][]string, rows)
	for r := range rows {
		s.grid[r] = make([]string, cols)
		for c := range cols {
			s.grid[r][c] = s.arena.Create(cell.KindAt(r, c)).ID
		}
	}

	return s
}

// scopeOf extracts the random suffix of a sheet uid for cell ID scoping.
func scopeOf(uid string) string {
	if i := strings.IndexByte(uid, '_'); i >= 0 {
		return uid[i+1:]
	}
	return uid
}

// RowCount returns the number of grid rows, headers included.
func (s *Sheet) RowCount() int {
	return len(s.grid)
}

// ColCount returns the number of grid columns, the row-header column included.
func (s *Sheet) ColCount() int {
	if len(s.grid) == 0 {
		return 0
	}
	return len(s.grid[0])
}

// DataRowCount returns the number of data rows (excluding the header row).
func (s *Sheet) DataRowCount() int {
	if len(s.grid) == 0 {
		return 0
	}
	return len(s.grid) - 1
}

// IsEmpty reports whether the sheet has no data rows.
func (s *Sheet) IsEmpty() bool {
	return len(s.grid) <= 1
}

// CellIDAt returns the cell ID at a grid position, or "" when out of range.
func (s *Sheet) CellIDAt(row, col int) string {
	if row < 0 || col < 0 || row >= len(s.grid) || col >= len(s.grid[0]) {
		return ""
	}
	return s.grid[row][col]
}

// CellAt returns the cell at a grid position. Out-of-range positions return
// nil with a warning; a grid ID with no backing cell yields a registered
// placeholder rather than an error.
func (s *Sheet) CellAt(row, col int) *cell.Cell {
	if row < 0 || col < 0 || row >= len(s.grid) || col >= len(s.grid[0]) {
		s.logger.Warn("cell position out of range",
			"sheet", s.UID, "row", row, "col", col)
		return nil
	}
	c := s.arena.Resolve(s.grid[row][col])
	if c.Kind == cell.KindData {
		// Placeholders come back untyped; pin the kind to the position.
		c.Kind = cell.KindAt(row, col)
	}
	return c
}

// ValueAt returns the value at a grid position, "" when out of range.
func (s *Sheet) ValueAt(row, col int) string {
	c := s.CellAt(row, col)
	if c == nil {
		return ""
	}
	return c.Value
}

// FindCellByValue scans the full cell history for the first cell matching
// value (and kind, when non-empty), skipping excluded IDs.
func (s *Sheet) FindCellByValue(value string, kind cell.Kind, exclude map[string]bool) *cell.Cell {
	return s.arena.FindByValue(value, kind, exclude)
}

// Origin returns the grid[0][0] cell.
func (s *Sheet) Origin() *cell.Cell {
	return s.CellAt(0, 0)
}

// OriginMeta returns a sheet-level metadata entry from the origin cell.
func (s *Sheet) OriginMeta(key string) string {
	o := s.Origin()
	if o == nil {
		return ""
	}
	return o.Meta[key]
}

// SetOriginMeta edits the origin cell's metadata via copy-on-write.
func (s *Sheet) SetOriginMeta(key, value string) {
	o := s.Origin()
	if o == nil {
		return
	}
	s.EditCell(o.ID, cell.Patch{Meta: map[string]string{key: value}})
}

// EditCell performs a copy-on-write edit of the cell with the given ID and
// repoints its grid position at the replacement record.
func (s *Sheet) EditCell(id string, patch cell.Patch) *cell.Cell {
	pos, ok := s.Position(id)
	next := s.arena.Edit(id, patch)
	if ok {
		s.grid[pos[0]][pos[1]] = next.ID
	}
	s.invalidate()
	return next
}

// SetValueAt edits the cell at a grid position to hold value.
func (s *Sheet) SetValueAt(row, col int, value string) *cell.Cell {
	c := s.CellAt(row, col)
	if c == nil {
		return nil
	}
	return s.EditCell(c.ID, cell.Patch{Value: cell.String(value)})
}

// InsertRowAfter inserts a new row of fresh cells immediately after the row
// at index. The first cell of the new row is a row header.
func (s *Sheet) InsertRowAfter(index int) {
	cols := s.ColCount()
	row := make([]string, cols)
	for c := range cols {
		kind := cell.KindData
		if c == 0 {
			kind = cell.KindRowHeader
		}
		row[c] = s.arena.Create(kind).ID
	}

	at := index + 1
	s.grid = append(s.grid, nil)
	copy(s.grid[at+1:], s.grid[at:])
	s.grid[at] = row
	s.invalidate()
}

// AppendRow inserts a new row at the end of the grid and returns its index.
func (s *Sheet) AppendRow() int {
	s.InsertRowAfter(len(s.grid) - 1)
	return len(s.grid) - 1
}

// InsertColumnAfter inserts a new column of fresh cells immediately after
// the column at index. The first cell of the new column is a column header.
func (s *Sheet) InsertColumnAfter(index int) {
	at := index + 1
	for r := range s.grid {
		kind := cell.KindData
		if r == 0 {
			kind = cell.KindColumnHeader
		}
		id := s.arena.Create(kind).ID
		s.grid[r] = append(s.grid[r], "")
		copy(s.grid[r][at+1:], s.grid[r][at:])
		s.grid[r][at] = id
	}
	s.invalidate()
}

// DeleteRow removes the row at index from the live grid. The header row
// cannot be removed, and a sheet already at its row minimum is left alone.
// Cell history is untouched either way.
func (s *Sheet) DeleteRow(index int) bool {
	if index <= 0 || index >= len(s.grid) {
		s.logger.Warn("refusing row delete", "sheet", s.UID, "row", index)
		return false
	}
	if len(s.grid) < 2 {
		return false
	}
	s.grid = append(s.grid[:index], s.grid[index+1:]...)
	s.invalidate()
	return true
}

// DeleteColumn removes the column at index. Column 0 (row headers) cannot
// be removed and at least one header plus one data column must remain.
func (s *Sheet) DeleteColumn(index int) bool {
	if index <= 0 || index >= s.ColCount() {
		s.logger.Warn("refusing column delete", "sheet", s.UID, "col", index)
		return false
	}
	if s.ColCount() <= 2 {
		return false
	}
	for r := range s.grid {
		s.grid[r] = append(s.grid[r][:index], s.grid[r][index+1:]...)
	}
	s.invalidate()
	return true
}

// InitHeaderOnly drops all data rows, keeping only the header row. Used when
// reconstructing a sheet for a turn that carries no snapshot for it.
func (s *Sheet) InitHeaderOnly() {
	if len(s.grid) == 0 {
		return
	}
	header := make([]string, len(s.grid[0]))
	copy(header, s.grid[0])
	s.grid = [][]string{header}
	s.invalidate()
}

// Arena exposes the sheet's cell store.
func (s *Sheet) Arena() *cell.Arena {
	return s.arena
}

// Logger returns the sheet's logger.
func (s *Sheet) Logger() *slog.Logger {
	return s.logger
}
