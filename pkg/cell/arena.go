package cell

import "log/slog"

// Arena owns all Cell records for one sheet: a live map for resolution by ID
// and an append-only history preserving every record ever created.
//
// "Deletion" never touches the arena; removing a row only drops grid
// references, so cells referenced by older turn snapshots stay resolvable.
type Arena struct {
	scope   string
	live    map[string]*Cell
	history []*Cell
	logger  *slog.Logger
}

// NewArena creates an empty arena. The scope string (typically the owning
// sheet uid's random suffix) is embedded in generated cell IDs so IDs from
// different sheets cannot collide.
func NewArena(scope string, logger *slog.Logger) *Arena {
	if logger == nil {
		logger = slog.Default()
	}
	return &Arena{
		scope:  scope,
		live:   make(map[string]*Cell),
		logger: logger,
	}
}

// Create allocates a fresh cell of the given kind and registers it.
func (a *Arena) Create(kind Kind) *Cell {
	c := &Cell{
		ID:   NewID(a.scope),
		Kind: kind,
	}
	a.register(c)
	return c
}

// Edit performs a copy-on-write edit: it resolves the cell at id, builds a
// new Cell with a fresh ID carrying forward every field the patch does not
// override, registers it, and returns it. The caller is responsible for
// repointing the grid position at the returned cell's ID.
func (a *Arena) Edit(id string, patch Patch) *Cell {
	prev := a.Resolve(id)

	next := &Cell{
		ID:     NewID(a.scope),
		Kind:   prev.Kind,
		Value:  prev.Value,
		Locked: prev.Locked,
	}
	if len(prev.Meta) > 0 {
		next.Meta = make(map[string]string, len(prev.Meta))
		for k, v := range prev.Meta {
			next.Meta[k] = v
		}
	}

	if patch.Value != nil {
		next.Value = *patch.Value
	}
	if patch.Locked != nil {
		next.Locked = *patch.Locked
	}
	for k, v := range patch.Meta {
		if next.Meta == nil {
			next.Meta = make(map[string]string, len(patch.Meta))
		}
		next.Meta[k] = v
	}

	a.register(next)
	return next
}

// Resolve returns the live cell for id. A missing ID is not fatal: a blank
// placeholder is synthesized and registered at that ID so positional
// indexing never breaks. Upstream data is AI-produced or imported from older
// formats, so holes are expected.
func (a *Arena) Resolve(id string) *Cell {
	if c, ok := a.live[id]; ok {
		return c
	}

	a.logger.Warn("cell missing from arena, synthesizing placeholder", "cell", id)
	c := &Cell{
		ID:   id,
		Kind: KindData,
	}
	a.register(c)
	return c
}

// Has reports whether id resolves without synthesizing a placeholder.
func (a *Arena) Has(id string) bool {
	_, ok := a.live[id]
	return ok
}

// Register adds an externally constructed cell (e.g. loaded from a persisted
// history) to the arena. A cell with a duplicate ID replaces the live entry
// but is not re-appended to history.
func (a *Arena) Register(c *Cell) {
	if _, ok := a.live[c.ID]; ok {
		a.live[c.ID] = c
		return
	}
	a.register(c)
}

// FindByValue scans the append-only history in insertion order and returns
// the first cell whose value (and kind, when non-empty) matches, skipping
// excluded IDs. Used by value-sheet rebuilds to preserve cell identity
// across re-imports.
func (a *Arena) FindByValue(value string, kind Kind, exclude map[string]bool) *Cell {
	for _, c := range a.history {
		if c.Value != value {
			continue
		}
		if kind != "" && c.Kind != kind {
			continue
		}
		if exclude[c.ID] {
			continue
		}
		return c
	}
	return nil
}

// History returns the append-only cell history, oldest first. The returned
// slice must not be mutated.
func (a *Arena) History() []*Cell {
	return a.history
}

// Len returns the number of history entries.
func (a *Arena) Len() int {
	return len(a.history)
}

func (a *Arena) register(c *Cell) {
	a.live[c.ID] = c
	a.history = append(a.history, c)
}
