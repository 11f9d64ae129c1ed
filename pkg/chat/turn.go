// Package chat models the host transcript boundary: chat turns, the store
// capability the host hands us, and the piece locator that finds the most
// relevant turn carrying table state.
//
// The transcript itself is owned by the host application. This package
// treats each turn as a mutable record it is permitted to attach sheet
// snapshots to, and nothing more.
package chat

// Turn is a single message in the host chat transcript.
type Turn struct {
	ID      string `json:"id,omitempty"`
	IsUser  bool   `json:"is_user"`
	Message string `json:"mes"`

	// Swipes holds alternate generations of this turn; SwipeID selects the
	// active one. Populated by the host for AI turns that were re-rolled.
	Swipes  []string `json:"swipes,omitempty"`
	SwipeID int      `json:"swipe_id,omitempty"`

	// HashSheets maps sheet uid -> 2-D grid of cell IDs as of this turn.
	// Values are recovered by dereferencing into the sheet's cell history.
	HashSheets map[string][][]string `json:"hash_sheets,omitempty"`

	// LegacyTables carries the old-format table payload, migrated to
	// HashSheets on first discovery.
	LegacyTables []LegacyTable `json:"dataTable,omitempty"`

	// EditMatches records the raw edit blocks applied when this turn was
	// last reconciled, so an edited message can be diffed against what has
	// already run.
	EditMatches []string `json:"tableEditMatches,omitempty"`
}

// LegacyTable is the old persisted table format: full values, no cell IDs.
type LegacyTable struct {
	Name    string     `json:"tableName"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"content"`
}

// HasSheetData reports whether this turn carries table state in either
// format.
func (t *Turn) HasSheetData() bool {
	return len(t.HashSheets) > 0 || len(t.LegacyTables) > 0
}

// AttachSnapshot writes a sheet's grid snapshot into the turn, replacing any
// previous snapshot for the same uid.
func (t *Turn) AttachSnapshot(uid string, grid [][]string) {
	if t.HashSheets == nil {
		t.HashSheets = make(map[string][][]string)
	}
	t.HashSheets[uid] = grid
}

// Store is the capability interface over the host's chat message store.
// Implementations wrap whatever the host exposes; the core never touches
// host globals.
type Store interface {
	// Turns returns the live transcript, oldest first. The returned slice
	// is the host's mutable array; elements may be mutated in place.
	Turns() []*Turn

	// Save persists the transcript after snapshots were attached.
	Save() error
}
