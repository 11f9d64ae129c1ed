// Package inmemory provides an in-memory registry driver for tests and
// hosts that persist sheet records through their own chat metadata.
package inmemory

import (
	"context"
	"sync"

	"github.com/tabulahq/tabula/pkg/registry"
	"github.com/tabulahq/tabula/pkg/sheet"
)

// Driver implements registry.Driver using in-process maps.
type Driver struct {
	mu sync.RWMutex

	// sheets maps conversation -> uid -> record; order keeps insertion
	// order per conversation for stable listing.
	sheets map[string]map[string]sheet.Record
	order  map[string][]string

	templates     map[string]sheet.Record
	templateOrder []string
}

// NewDriver creates an empty in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		sheets:    make(map[string]map[string]sheet.Record),
		order:     make(map[string][]string),
		templates: make(map[string]sheet.Record),
	}
}

func (d *Driver) PutSheet(_ context.Context, conversation string, rec sheet.Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sheets[conversation] == nil {
		d.sheets[conversation] = make(map[string]sheet.Record)
	}
	if _, ok := d.sheets[conversation][rec.UID]; !ok {
		d.order[conversation] = append(d.order[conversation], rec.UID)
	}
	d.sheets[conversation][rec.UID] = rec
	return nil
}

func (d *Driver) GetSheet(_ context.Context, conversation, uid string) (sheet.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.sheets[conversation][uid]
	if !ok {
		return sheet.Record{}, registry.NotFoundError{UID: uid}
	}
	return rec, nil
}

func (d *Driver) ListSheets(_ context.Context, conversation string) ([]sheet.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	recs := make([]sheet.Record, 0, len(d.order[conversation]))
	for _, uid := range d.order[conversation] {
		recs = append(recs, d.sheets[conversation][uid])
	}
	return recs, nil
}

func (d *Driver) DeleteSheet(_ context.Context, conversation, uid string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.sheets[conversation][uid]; !ok {
		return registry.NotFoundError{UID: uid}
	}
	delete(d.sheets[conversation], uid)
	order := d.order[conversation]
	for i, u := range order {
		if u == uid {
			d.order[conversation] = append(order[:i], order[i+1:]...)
			break
		}
	}
	return nil
}

func (d *Driver) PutTemplate(_ context.Context, rec sheet.Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.templates[rec.UID]; !ok {
		d.templateOrder = append(d.templateOrder, rec.UID)
	}
	d.templates[rec.UID] = rec
	return nil
}

func (d *Driver) GetTemplate(_ context.Context, uid string) (sheet.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.templates[uid]
	if !ok {
		return sheet.Record{}, registry.NotFoundError{UID: uid}
	}
	return rec, nil
}

func (d *Driver) ListTemplates(_ context.Context) ([]sheet.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	recs := make([]sheet.Record, 0, len(d.templateOrder))
	for _, uid := range d.templateOrder {
		recs = append(recs, d.templates[uid])
	}
	return recs, nil
}

func (d *Driver) DeleteTemplate(_ context.Context, uid string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.templates[uid]; !ok {
		return registry.NotFoundError{UID: uid}
	}
	delete(d.templates, uid)
	for i, u := range d.templateOrder {
		if u == uid {
			d.templateOrder = append(d.templateOrder[:i], d.templateOrder[i+1:]...)
			break
		}
	}
	return nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}
