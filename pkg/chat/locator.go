package chat

import (
	"log/slog"

	"github.com/tabulahq/tabula/pkg/sheet"
)

// Direction selects which way the locator walks the transcript.
type Direction int

const (
	// Up walks toward older turns.
	Up Direction = iota

	// Down walks toward newer turns.
	Down
)

// DefaultCutoff bounds how many turns a locate may visit.
const DefaultCutoff = 1000

// Result is the outcome of a locate. Index is -1 when no turn carrying
// table state was found within the cutoff, meaning the caller should
// initialize fresh state from templates.
type Result struct {
	Index int
	Turn  *Turn
}

// Found reports whether the locate hit a turn with table state.
func (r Result) Found() bool {
	return r.Index >= 0 && r.Turn != nil
}

// Locator finds the most relevant transcript turn carrying sheet state.
type Locator struct {
	logger *slog.Logger

	// onMigrate receives the sheet records produced when a legacy-format
	// turn is migrated in place. Typically wired to the registry.
	onMigrate func([]sheet.Record)
}

// NewLocator creates a locator. onMigrate may be nil.
func NewLocator(logger *slog.Logger, onMigrate func([]sheet.Record)) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{logger: logger, onMigrate: onMigrate}
}

// Locate walks the transcript looking for the first turn that carries table
// state in either format.
//
// With fromLatest the start index is deep turns back from the end;
// otherwise deep is an absolute index. The walk visits at most cutoff turns
// in the given direction and skips user-authored turns, which never carry
// snapshots. Legacy-format turns are migrated in place on discovery.
func (l *Locator) Locate(turns []*Turn, deep, cutoff int, fromLatest bool, dir Direction) Result {
	if len(turns) == 0 || deep >= len(turns) || deep < 0 {
		return Result{Index: -1}
	}
	if cutoff <= 0 {
		cutoff = DefaultCutoff
	}

	start := deep
	if fromLatest {
		start = len(turns) - deep - 1
	}

	step := -1
	if dir == Down {
		step = 1
	}

	for i, visited := start, 0; i >= 0 && i < len(turns) && visited < cutoff; i, visited = i+step, visited+1 {
		turn := turns[i]
		if turn.IsUser {
			continue
		}
		if len(turn.HashSheets) > 0 {
			return Result{Index: i, Turn: turn}
		}
		if len(turn.LegacyTables) > 0 {
			l.logger.Info("migrating legacy table data", "turn", i)
			recs := MigrateLegacyTurn(turn, l.logger)
			if l.onMigrate != nil {
				l.onMigrate(recs)
			}
			return Result{Index: i, Turn: turn}
		}
	}

	return Result{Index: -1}
}

// LatestPiece returns the newest non-user turn at or above deep turns back
// from the end, regardless of whether it carries table state. This is the
// turn new snapshots attach to.
func LatestPiece(turns []*Turn, deep int) Result {
	if len(turns) == 0 || deep >= len(turns) {
		return Result{Index: -1}
	}
	for i := len(turns) - 1 - deep; i >= 0; i-- {
		if !turns[i].IsUser {
			return Result{Index: i, Turn: turns[i]}
		}
	}
	return Result{Index: -1}
}

// SwipeInfo describes whether the latest turn is an AI turn being re-rolled.
type SwipeInfo struct {
	IsSwipe bool

	// Index is the transcript index of the turn being re-rolled.
	Index int
}

// DetectSwipe reports whether the transcript ends in an AI turn, which the
// host is about to replace (a swipe/regenerate). In that case the turn being
// replaced must not be treated as authoritative history: reference lookups
// start one position further back.
func DetectSwipe(turns []*Turn) SwipeInfo {
	if len(turns) == 0 {
		return SwipeInfo{}
	}
	last := turns[len(turns)-1]
	if last == nil || last.IsUser {
		return SwipeInfo{}
	}
	latest := LatestPiece(turns, 0)
	return SwipeInfo{IsSwipe: true, Index: latest.Index}
}

// ReferencePiece finds the turn whose sheet state should seed the next
// mutation batch: for a swipe, the search skips the turn being replaced.
func (l *Locator) ReferencePiece(turns []*Turn) Result {
	swipe := DetectSwipe(turns)
	if swipe.IsSwipe {
		if swipe.Index <= 0 {
			return Result{Index: -1}
		}
		return l.Locate(turns, swipe.Index-1, DefaultCutoff, false, Up)
	}
	return l.Locate(turns, 0, DefaultCutoff, true, Up)
}
