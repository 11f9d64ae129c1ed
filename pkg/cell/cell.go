// Package cell implements the append-only cell store backing a sheet's grid.
//
// Cells are immutable once referenced: editing a cell registers a brand new
// Cell record with a fresh ID and the caller repoints the grid position at
// it. The arena keeps every cell ever created in an append-only history, so
// historical grid snapshots (which reference cells by ID) always resolve,
// enabling diffing and undo across chat turns.
package cell

import (
	"strings"

	"github.com/google/uuid"
)

// Kind classifies a cell by its role in the grid.
type Kind string

const (
	// KindOrigin is the grid[0][0] cell. Its Meta carries sheet-level
	// metadata (note text, edit trigger rules) rather than a displayed value.
	KindOrigin Kind = "sheet_origin"

	// KindColumnHeader is a row-0 cell.
	KindColumnHeader Kind = "column_header"

	// KindRowHeader is a column-0 cell.
	KindRowHeader Kind = "row_header"

	// KindData is an ordinary content cell.
	KindData Kind = "cell"
)

// KindAt returns the cell kind implied by a grid position.
func KindAt(row, col int) Kind {
	switch {
	case row == 0 && col == 0:
		return KindOrigin
	case row == 0:
		return KindColumnHeader
	case col == 0:
		return KindRowHeader
	default:
		return KindData
	}
}

// Cell is the atomic unit of stored content. Values are always strings;
// numbers are stored as decimal strings.
type Cell struct {
	// ID is an opaque token, unique within the owning sheet and stable for
	// the cell's lifetime.
	ID string `json:"uid"`

	Kind   Kind   `json:"type"`
	Value  string `json:"value"`
	Locked bool   `json:"locked,omitempty"`

	// Meta carries auxiliary key/value data. Only meaningful on the origin
	// cell, where it stores the sheet note and insert/update/delete trigger
	// rules.
	Meta map[string]string `json:"meta,omitempty"`
}

// Patch describes a partial cell edit. Nil fields are copied forward from
// the cell being edited.
type Patch struct {
	Value  *string
	Locked *bool
	Meta   map[string]string
}

// String returns a pointer to s, for use in Patch literals.
func String(s string) *string { return &s }

// Bool returns a pointer to b, for use in Patch literals.
func Bool(b bool) *bool { return &b }

// NewID generates a collision-resistant cell identifier scoped by the owning
// sheet's uid suffix.
func NewID(scope string) string {
	r := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "cell_" + scope + "_" + r[:16]
}
