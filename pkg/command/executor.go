package command

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/tabulahq/tabula/pkg/cell"
	"github.com/tabulahq/tabula/pkg/sheet"
)

// Executor applies parsed commands to the enabled sheets of a conversation.
//
// Individual command failures are soft: they are logged and skipped so one
// bad index from the model cannot discard the rest of a batch. The only hard
// failure is having no sheets to edit at all.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor creates an executor.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{logger: logger}
}

// Execute runs the commands against the sheets, indexed by position, and
// returns the set of sheets that were actually modified. Callers persist
// each touched sheet exactly once after the whole batch.
func (e *Executor) Execute(cmds []Command, sheets []*sheet.Sheet) ([]*sheet.Sheet, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no enabled sheets, edit batch aborted")
	}

	touched := make(map[*sheet.Sheet]bool)
	for _, cmd := range sortCommands(cmds) {
		if cmd.TableIndex < 0 || cmd.TableIndex >= len(sheets) {
			e.logger.Error("edit command addresses a missing table",
				"type", cmd.Type, "tableIndex", cmd.TableIndex)
			continue
		}
		s := sheets[cmd.TableIndex]
		if cmd.HasData {
			repairEscapes(cmd.Data)
		}
		if e.apply(cmd, s) {
			touched[s] = true
		}
	}

	var out []*sheet.Sheet
	for _, s := range sheets {
		if touched[s] {
			out = append(out, s)
		}
	}
	return out, nil
}

// sortCommands orders a batch updates first, then inserts, then deletes,
// with deletes applied bottom-up so earlier deletions don't shift the rows
// later ones address. The sort is stable within each class.
func sortCommands(cmds []Command) []Command {
	sorted := make([]Command, len(cmds))
	copy(sorted, cmds)

	priority := map[Type]int{TypeUpdate: 0, TypeInsert: 1, TypeDelete: 2}
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Type == TypeDelete && b.Type == TypeDelete {
			return a.RowIndex > b.RowIndex
		}
		return priority[a.Type] < priority[b.Type]
	})
	return sorted
}

func (e *Executor) apply(cmd Command, s *sheet.Sheet) bool {
	switch cmd.Type {
	case TypeUpdate:
		return e.applyUpdate(cmd, s)
	case TypeInsert:
		return e.applyInsert(cmd, s)
	case TypeDelete:
		return e.applyDelete(cmd, s)
	}
	return false
}

func (e *Executor) applyUpdate(cmd Command, s *sheet.Sheet) bool {
	// Updating a row that doesn't exist yet means the model wanted an
	// append; treat it as one.
	if cmd.RowIndex >= s.DataRowCount() {
		cmd.Type = TypeInsert
		return e.applyInsert(cmd, s)
	}
	if !cmd.HasData {
		return false
	}

	changed := false
	for col, value := range cmd.Data {
		c := s.CellAt(cmd.RowIndex+1, col+1)
		if c == nil {
			e.logger.Error("update addresses a missing column",
				"sheet", s.UID, "row", cmd.RowIndex, "col", col)
			continue
		}
		s.EditCell(c.ID, cell.Patch{Value: cell.String(value)})
		changed = true
	}
	return changed
}

func (e *Executor) applyInsert(cmd Command, s *sheet.Sheet) bool {
	row := s.AppendRow()
	for col, value := range cmd.Data {
		if col+1 >= s.ColCount() {
			e.logger.Error("insert value addresses a missing column",
				"sheet", s.UID, "col", col)
			continue
		}
		s.SetValueAt(row, col+1, value)
	}
	return true
}

func (e *Executor) applyDelete(cmd Command, s *sheet.Sheet) bool {
	if !s.DeleteRow(cmd.RowIndex + 1) {
		e.logger.Error("delete addresses a missing row",
			"sheet", s.UID, "row", cmd.RowIndex)
		return false
	}
	return true
}
