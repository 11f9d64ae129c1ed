// Package engine ties the transcript to the sheet registry: it reconciles
// model replies into sheet mutations, stamps per-turn snapshots, and restores
// state when turns are edited, swiped, or undone.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/tabulahq/tabula/pkg/chat"
	"github.com/tabulahq/tabula/pkg/command"
	"github.com/tabulahq/tabula/pkg/registry"
	"github.com/tabulahq/tabula/pkg/sheet"
	"github.com/tabulahq/tabula/pkg/worker"
)

// Config is the configuration options for the engine.
type Config struct {
	// Store is the host transcript.
	Store chat.Store

	// Registry holds the conversation's live sheets.
	Registry *registry.Registry

	// Pool, when set, persists snapshot records asynchronously. Without it
	// the registry saves synchronously.
	Pool *worker.Pool

	// DebounceInterval spaces repeated runs of the same operation.
	DebounceInterval time.Duration

	// Logger is the provided slog logger.
	Logger *slog.Logger
}

// Engine reconciles chat turns against the sheet registry.
type Engine struct {
	store   chat.Store
	reg     *registry.Registry
	locator *chat.Locator
	exec    *command.Executor
	pool    *worker.Pool
	guard   *Debounce
	logger  *slog.Logger
}

// New creates an engine from the config.
func New(c *Config) (*Engine, error) {
	if c.Store == nil {
		return nil, fmt.Errorf("engine requires a chat store")
	}
	if c.Registry == nil {
		return nil, fmt.Errorf("engine requires a registry")
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	e := &Engine{
		store:  c.Store,
		reg:    c.Registry,
		exec:   command.NewExecutor(c.Logger),
		pool:   c.Pool,
		guard:  NewDebounce(c.DebounceInterval),
		logger: c.Logger,
	}
	e.locator = chat.NewLocator(c.Logger, e.onMigrate)
	return e, nil
}

// onMigrate registers sheet records recovered from a legacy-format turn.
func (e *Engine) onMigrate(recs []sheet.Record) {
	if err := e.reg.Register(context.Background(), recs); err != nil {
		e.logger.Error("registering migrated sheets failed", "error", err)
	}
}

// HandleMessageReceived reconciles the newest AI turn: edit commands in its
// message are applied on top of the previous turn's state and the result is
// snapshotted onto the turn.
func (e *Engine) HandleMessageReceived(ctx context.Context) error {
	if !e.guard.Allow("message-received") {
		return nil
	}
	return e.reconcile(ctx)
}

// HandleMessageSwiped reconciles after the host replaced the newest AI turn
// with another generation. The turn being replaced is not treated as history.
func (e *Engine) HandleMessageSwiped(ctx context.Context) error {
	if !e.guard.Allow("message-swiped") {
		return nil
	}
	return e.reconcile(ctx)
}

func (e *Engine) reconcile(ctx context.Context) error {
	turns := e.store.Turns()
	piece := chat.LatestPiece(turns, 0)
	if !piece.Found() {
		return nil
	}

	if err := e.loadReference(ctx, turns); err != nil {
		return err
	}

	blocks := command.ExtractBlocks(piece.Turn.Message)
	e.execute(ctx, command.Parse(blocks))

	return e.snapshot(ctx, piece.Turn, blocks)
}

// HandleMessageEdited re-runs reconciliation for an edited turn, but only
// when its edit blocks actually changed. State is rebuilt from the turn
// before it so the old commands are not applied twice.
func (e *Engine) HandleMessageEdited(ctx context.Context, index int) error {
	turns := e.store.Turns()
	if index < 0 || index >= len(turns) {
		return fmt.Errorf("turn index %d out of range", index)
	}
	piece := turns[index]
	if piece.IsUser {
		return nil
	}

	blocks := command.ExtractBlocks(piece.Message)
	if slices.Equal(blocks, piece.EditMatches) {
		return nil
	}

	ref := chat.Result{Index: -1}
	if index > 0 {
		ref = e.locator.Locate(turns, index-1, chat.DefaultCutoff, false, chat.Up)
	}
	if err := e.applyReference(ctx, ref); err != nil {
		return err
	}

	e.execute(ctx, command.Parse(blocks))

	return e.snapshot(ctx, piece, blocks)
}

// Undo restores the state recorded before the latest AI turn and stamps it
// back onto that turn, discarding whatever its commands changed.
func (e *Engine) Undo(ctx context.Context) error {
	turns := e.store.Turns()
	latest := chat.LatestPiece(turns, 0)
	if !latest.Found() {
		return fmt.Errorf("no turn to undo")
	}

	ref := chat.Result{Index: -1}
	if latest.Index > 0 {
		ref = e.locator.Locate(turns, latest.Index-1, chat.DefaultCutoff, false, chat.Up)
	}
	if !ref.Found() {
		return fmt.Errorf("no earlier snapshot to restore")
	}
	if err := e.reg.ApplySnapshots(ctx, ref.Turn.HashSheets); err != nil {
		return err
	}

	return e.snapshot(ctx, latest.Turn, nil)
}

// ClearEmptyRows deletes data rows whose cells are all blank from every
// enabled sheet, then re-snapshots the latest turn.
func (e *Engine) ClearEmptyRows(ctx context.Context) error {
	sheets, err := e.reg.EnabledSheets(ctx)
	if err != nil {
		return err
	}

	for _, s := range sheets {
		for row := s.RowCount() - 1; row >= 1; row-- {
			if rowIsBlank(s.RowValues(row)) {
				s.DeleteRow(row)
			}
		}
	}

	latest := chat.LatestPiece(e.store.Turns(), 0)
	if !latest.Found() {
		return e.reg.Save(ctx)
	}
	return e.snapshot(ctx, latest.Turn, latest.Turn.EditMatches)
}

// rowIsBlank ignores the row-header column: a row counts as empty when the
// model never filled any of its data cells.
func rowIsBlank(values []string) bool {
	if len(values) < 2 {
		return true
	}
	for _, v := range values[1:] {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// loadReference points the registry at the state of the reference turn, or
// stamps fresh sheets from templates when the transcript has none yet.
func (e *Engine) loadReference(ctx context.Context, turns []*chat.Turn) error {
	return e.applyReference(ctx, e.locator.ReferencePiece(turns))
}

func (e *Engine) applyReference(ctx context.Context, ref chat.Result) error {
	if ref.Found() {
		return e.reg.ApplySnapshots(ctx, ref.Turn.HashSheets)
	}
	_, err := e.reg.StampTemplates(ctx)
	return err
}

// execute applies parsed commands to the enabled sheets. Command failures are
// soft; reconciliation still snapshots whatever state resulted.
func (e *Engine) execute(ctx context.Context, cmds []command.Command) {
	if len(cmds) == 0 {
		return
	}
	sheets, err := e.reg.EnabledSheets(ctx)
	if err != nil {
		e.logger.Error("loading sheets for edit batch failed", "error", err)
		return
	}
	if _, err := e.exec.Execute(cmds, sheets); err != nil {
		e.logger.Warn("edit batch skipped", "error", err)
	}
}

// snapshot attaches every sheet's grid to the turn, records the edit blocks
// it was reconciled with, saves the transcript, and persists the records.
func (e *Engine) snapshot(ctx context.Context, turn *chat.Turn, blocks []string) error {
	sheets, err := e.reg.Sheets(ctx)
	if err != nil {
		return err
	}

	records := make([]sheet.Record, 0, len(sheets))
	for _, s := range sheets {
		turn.AttachSnapshot(s.UID, s.Snapshot())
		records = append(records, s.ToRecord())
	}
	turn.EditMatches = blocks

	if err := e.store.Save(); err != nil {
		return fmt.Errorf("saving transcript: %w", err)
	}

	if e.pool != nil {
		e.pool.Enqueue(worker.Job{
			Conversation: e.reg.Conversation(),
			Records:      records,
		})
		return nil
	}
	return e.reg.Save(ctx)
}
