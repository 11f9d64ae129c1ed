package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tabulahq/tabula/pkg/sheet"
)

// Registry caches live sheet instances for a single conversation on top of a
// persistence Driver. All mutating paths write through to the driver so the
// cache never diverges from storage.
type Registry struct {
	driver       Driver
	conversation string
	logger       *slog.Logger

	mu     sync.Mutex
	cache  map[string]*sheet.Sheet
	order  []string
	loaded bool
}

// New creates a registry bound to one conversation namespace.
func New(driver Driver, conversation string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		driver:       driver,
		conversation: conversation,
		logger:       logger,
		cache:        make(map[string]*sheet.Sheet),
	}
}

// Conversation returns the namespace this registry is bound to.
func (r *Registry) Conversation() string {
	return r.conversation
}

// Sheets returns all live sheets for the conversation in insertion order,
// hydrating from the driver on first use.
func (r *Registry) Sheets(ctx context.Context) ([]*sheet.Sheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	sheets := make([]*sheet.Sheet, 0, len(r.order))
	for _, uid := range r.order {
		sheets = append(sheets, r.cache[uid])
	}
	return sheets, nil
}

// EnabledSheets returns the live sheets whose Enabled flag is set.
func (r *Registry) EnabledSheets(ctx context.Context) ([]*sheet.Sheet, error) {
	sheets, err := r.Sheets(ctx)
	if err != nil {
		return nil, err
	}

	enabled := sheets[:0:0]
	for _, s := range sheets {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	return enabled, nil
}

// Sheet returns the live sheet with the given uid.
func (r *Registry) Sheet(ctx context.Context, uid string) (*sheet.Sheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	s, ok := r.cache[uid]
	if !ok {
		return nil, NotFoundError{UID: uid}
	}
	return s, nil
}

// Upsert persists the sheet's current state and caches the live instance.
func (r *Registry) Upsert(ctx context.Context, s *sheet.Sheet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(ctx); err != nil {
		return err
	}
	if err := r.driver.PutSheet(ctx, r.conversation, s.ToRecord()); err != nil {
		return err
	}
	r.put(s)
	return nil
}

// Register persists raw records without disturbing any live instance already
// cached under the same uid. Used by the legacy-format migration path, which
// produces records before the registry has hydrated.
func (r *Registry) Register(ctx context.Context, recs []sheet.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range recs {
		if err := r.driver.PutSheet(ctx, r.conversation, rec); err != nil {
			return fmt.Errorf("registering sheet %s: %w", rec.UID, err)
		}
		if _, ok := r.cache[rec.UID]; ok {
			continue
		}
		if r.loaded {
			s, err := sheet.FromRecord(rec, r.logger)
			if err != nil {
				return err
			}
			r.put(s)
		}
	}
	return nil
}

// Delete removes the sheet from storage and the cache.
func (r *Registry) Delete(ctx context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.driver.DeleteSheet(ctx, r.conversation, uid); err != nil {
		return err
	}
	delete(r.cache, uid)
	for i, u := range r.order {
		if u == uid {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// ApplySnapshots repoints the live sheets at a turn's hash_sheets snapshots.
// Sheets present in the snapshot map get their grid swapped to the recorded
// layout; sheets absent from the map are reset to header-only, so the
// resulting state reflects exactly what that turn knew.
func (r *Registry) ApplySnapshots(ctx context.Context, snapshots map[string][][]string) error {
	sheets, err := r.Sheets(ctx)
	if err != nil {
		return err
	}

	for _, s := range sheets {
		grid, ok := snapshots[s.UID]
		if !ok {
			s.InitHeaderOnly()
			continue
		}
		s.LoadSnapshot(grid)
	}

	for uid := range snapshots {
		if _, err := r.Sheet(ctx, uid); err != nil {
			var nf NotFoundError
			if errors.As(err, &nf) {
				r.logger.Warn("snapshot references unknown sheet", "uid", uid)
				continue
			}
			return err
		}
	}
	return nil
}

// StampTemplates instantiates a conversation sheet from every enabled
// template that has not been stamped yet, persisting and caching the results.
// Returns the newly created sheets.
func (r *Registry) StampTemplates(ctx context.Context) ([]*sheet.Sheet, error) {
	recs, err := r.driver.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}

	sheets, err := r.Sheets(ctx)
	if err != nil {
		return nil, err
	}
	stamped := make(map[string]bool, len(sheets))
	for _, s := range sheets {
		if tpl := s.Template; tpl != "" {
			stamped[tpl] = true
		}
	}

	var created []*sheet.Sheet
	for _, rec := range recs {
		if !rec.Enabled || stamped[rec.UID] {
			continue
		}
		tpl, err := sheet.TemplateFromRecord(rec, r.logger)
		if err != nil {
			r.logger.Warn("skipping corrupt template", "uid", rec.UID, "error", err)
			continue
		}
		s, err := tpl.Stamp(r.logger)
		if err != nil {
			return nil, fmt.Errorf("stamping template %s: %w", rec.UID, err)
		}
		if err := r.Upsert(ctx, s); err != nil {
			return nil, err
		}
		created = append(created, s)
	}
	return created, nil
}

// Templates returns all persisted template instances.
func (r *Registry) Templates(ctx context.Context) ([]*sheet.Template, error) {
	recs, err := r.driver.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}

	templates := make([]*sheet.Template, 0, len(recs))
	for _, rec := range recs {
		tpl, err := sheet.TemplateFromRecord(rec, r.logger)
		if err != nil {
			r.logger.Warn("skipping corrupt template", "uid", rec.UID, "error", err)
			continue
		}
		templates = append(templates, tpl)
	}
	return templates, nil
}

// SaveTemplate persists a template record.
func (r *Registry) SaveTemplate(ctx context.Context, tpl *sheet.Template) error {
	return r.driver.PutTemplate(ctx, tpl.ToRecord())
}

// DeleteTemplate removes a template record.
func (r *Registry) DeleteTemplate(ctx context.Context, uid string) error {
	return r.driver.DeleteTemplate(ctx, uid)
}

// Save persists the current state of every cached sheet.
func (r *Registry) Save(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, uid := range r.order {
		if err := r.driver.PutSheet(ctx, r.conversation, r.cache[uid].ToRecord()); err != nil {
			return fmt.Errorf("saving sheet %s: %w", uid, err)
		}
	}
	return nil
}

// ensureLoaded hydrates the cache from the driver once. Caller holds mu.
func (r *Registry) ensureLoaded(ctx context.Context) error {
	if r.loaded {
		return nil
	}

	recs, err := r.driver.ListSheets(ctx, r.conversation)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if _, ok := r.cache[rec.UID]; ok {
			continue
		}
		s, err := sheet.FromRecord(rec, r.logger)
		if err != nil {
			r.logger.Warn("skipping corrupt sheet record", "uid", rec.UID, "error", err)
			continue
		}
		r.put(s)
	}
	r.loaded = true
	return nil
}

// put caches the live instance. Caller holds mu.
func (r *Registry) put(s *sheet.Sheet) {
	if _, ok := r.cache[s.UID]; !ok {
		r.order = append(r.order, s.UID)
	}
	r.cache[s.UID] = s
}
