package sheet

import (
	"fmt"
	"log/slog"

	"github.com/tabulahq/tabula/pkg/cell"
)

// Record is the portable persisted form of a sheet or template: the full
// append-only cell history plus the current grid of cell IDs. Registries
// store Records; live instances are rehydrated via FromRecord.
type Record struct {
	UID             string      `json:"uid"`
	Name            string      `json:"name"`
	Domain          Domain      `json:"domain"`
	Kind            Kind        `json:"type"`
	Enabled         bool        `json:"enable"`
	Required        bool        `json:"required"`
	TriggerSend     bool        `json:"triggerSend,omitempty"`
	TriggerSendDeep int         `json:"triggerSendDeep,omitempty"`
	Config          Config      `json:"config"`
	Template        string      `json:"template,omitempty"`
	CellHistory     []cell.Cell `json:"cellHistory"`
	HashSheet       [][]string  `json:"hashSheet"`
}

// ToRecord snapshots the sheet into its persisted form. Cells and grid are
// copied, so later mutations of the live sheet do not leak into the record.
func (s *Sheet) ToRecord() Record {
	history := s.arena.History()
	rec := Record{
		UID:             s.UID,
		Name:            s.Name,
		Domain:          s.Domain,
		Kind:            s.Kind,
		Enabled:         s.Enabled,
		Required:        s.Required,
		TriggerSend:     s.TriggerSend,
		TriggerSendDeep: s.TriggerSendDeep,
		Config:          s.Config,
		Template:        s.Template,
		CellHistory:     make([]cell.Cell, len(history)),
		HashSheet:       s.Snapshot(),
	}
	for i, c := range history {
		rec.CellHistory[i] = *c
	}
	return rec
}

// Snapshot returns a deep copy of the grid of cell IDs, suitable for
// attaching to a chat turn's hash_sheets field.
func (s *Sheet) Snapshot() [][]string {
	grid := make([][]string, len(s.grid))
	for r, row := range s.grid {
		grid[r] = make([]string, len(row))
		copy(grid[r], row)
	}
	return grid
}

// FromRecord rehydrates a live sheet from its persisted form.
//
// Grid IDs with no matching history entry are self-healed with placeholder
// cells, and every grid cell's kind is pinned to its position, mirroring the
// recovery path for data produced by older formats or a confused model.
func FromRecord(rec Record, logger *slog.Logger) (*Sheet, error) {
	if rec.UID == "" {
		return nil, fmt.Errorf("sheet record has no uid")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Sheet{
		UID:             rec.UID,
		Name:            rec.Name,
		Domain:          rec.Domain,
		Kind:            rec.Kind,
		Enabled:         rec.Enabled,
		Required:        rec.Required,
		TriggerSend:     rec.TriggerSend,
		TriggerSendDeep: rec.TriggerSendDeep,
		Config:          rec.Config,
		Template:        rec.Template,
		arena:           cell.NewArena(scopeOf(rec.UID), logger),
		posDirty:        true,
		logger:          logger,
	}
	if s.Kind == "" {
		s.Kind = KindDynamic
	}

	for i := range rec.CellHistory {
		c := rec.CellHistory[i]
		s.arena.Register(&c)
	}

	s.grid = make([][]string, len(rec.HashSheet))
	for r, row := range rec.HashSheet {
		s.grid[r] = make([]string, len(row))
		copy(s.grid[r], row)
		for c, id := range row {
			resolved := s.arena.Resolve(id)
			resolved.Kind = cell.KindAt(r, c)
		}
	}

	return s, nil
}

// LoadSnapshot repoints the sheet's grid at a hash_sheets snapshot taken on
// some chat turn. Cell history is shared; only the layout changes.
func (s *Sheet) LoadSnapshot(grid [][]string) {
	s.grid = make([][]string, len(grid))
	for r, row := range grid {
		s.grid[r] = make([]string, len(row))
		copy(s.grid[r], row)
		for c, id := range row {
			resolved := s.arena.Resolve(id)
			resolved.Kind = cell.KindAt(r, c)
		}
	}
	s.invalidate()
}
