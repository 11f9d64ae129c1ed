package sheet

// The position cache maps cell ID -> [row, col]. Every structural mutation
// calls invalidate; readers go through ensureFresh. The dirty flag is the
// explicit replacement for the lazily recomputing proxy the cache is derived
// from: a consumer can never observe stale positions because every lookup
// funnels through ensureFresh.

// Position returns the grid position of the cell with the given ID.
func (s *Sheet) Position(id string) ([2]int, bool) {
	s.ensureFresh()
	pos, ok := s.pos[id]
	return pos, ok
}

// invalidate marks the position cache dirty. Called by every structural or
// repointing mutation.
func (s *Sheet) invalidate() {
	s.posDirty = true
}

// ensureFresh recomputes the position cache if a mutation dirtied it.
func (s *Sheet) ensureFresh() {
	if !s.posDirty && s.pos != nil {
		return
	}
	s.pos = make(map[string][2]int, len(s.grid)*s.ColCount())
	for r, row := range s.grid {
		for c, id := range row {
			s.pos[id] = [2]int{r, c}
		}
	}
	s.posDirty = false
}
