// Package export reads and writes the portable JSON interchange format for
// table data: one entry per sheet keyed by uid, plus a format marker under
// the reserved "mate" key that import validates before touching anything.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/tabulahq/tabula/pkg/registry"
	"github.com/tabulahq/tabula/pkg/sheet"
)

// markerType identifies a table data file.
const markerType = "chatSheets"

// formatVersion is written on export.
const formatVersion = 1

// Marker is the format stamp stored under the "mate" key.
type Marker struct {
	Type    string `json:"type"`
	Version int    `json:"version"`
}

// Entry is the portable form of one sheet. Content is the full value grid,
// header row and row-header column included.
type Entry struct {
	UID             string            `json:"uid"`
	Name            string            `json:"name"`
	Domain          sheet.Domain      `json:"domain"`
	Kind            sheet.Kind        `json:"type"`
	Enabled         bool              `json:"enable"`
	Required        bool              `json:"required"`
	TriggerSend     bool              `json:"triggerSend,omitempty"`
	TriggerSendDeep int               `json:"triggerSendDeep,omitempty"`
	Config          sheet.Config      `json:"config"`
	SourceData      map[string]string `json:"sourceData,omitempty"`
	Content         [][]string        `json:"content"`
}

// Mode selects how much of an import is applied.
type Mode string

const (
	// ModeBoth imports structure and data: unknown sheets are created and
	// sheets missing from the file are disabled.
	ModeBoth Mode = "both"

	// ModeData updates data on existing sheets only.
	ModeData Mode = "data"
)

// Snapshot serializes one sheet into its portable entry.
func Snapshot(s *sheet.Sheet) Entry {
	meta := map[string]string{}
	if o := s.Origin(); o != nil {
		for k, v := range o.Meta {
			meta[k] = v
		}
	}
	return Entry{
		UID:             s.UID,
		Name:            s.Name,
		Domain:          s.Domain,
		Kind:            s.Kind,
		Enabled:         s.Enabled,
		Required:        s.Required,
		TriggerSend:     s.TriggerSend,
		TriggerSendDeep: s.TriggerSendDeep,
		Config:          s.Config,
		SourceData:      meta,
		Content:         s.ValueGrid(),
	}
}

// Marshal renders the enabled sheets into the interchange format.
func Marshal(sheets []*sheet.Sheet) ([]byte, error) {
	doc := make(map[string]any, len(sheets)+1)
	for _, s := range sheets {
		if !s.Enabled {
			continue
		}
		doc[s.UID] = Snapshot(s)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("no enabled sheets to export")
	}
	doc["mate"] = Marker{Type: markerType, Version: formatVersion}
	return json.MarshalIndent(doc, "", "  ")
}

// Unmarshal parses an interchange file, validating the format marker first.
// Entries come back sorted by uid so callers see a stable order.
func Unmarshal(data []byte) ([]Entry, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing table data file: %w", err)
	}

	rawMarker, ok := doc["mate"]
	if !ok {
		return nil, fmt.Errorf("not a table data file: format marker missing")
	}
	var marker Marker
	if err := json.Unmarshal(rawMarker, &marker); err != nil || marker.Type != markerType {
		return nil, fmt.Errorf("not a table data file: invalid format marker")
	}

	entries := make([]Entry, 0, len(doc)-1)
	for uid, raw := range doc {
		if uid == "mate" {
			continue
		}
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("parsing entry %s: %w", uid, err)
		}
		if e.UID == "" {
			e.UID = uid
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].UID < entries[j].UID })
	return entries, nil
}

// Apply merges imported entries into the conversation's registry. Existing
// sheets are rewritten in place; in ModeBoth unknown entries become new
// sheets and sheets absent from the file are disabled.
func Apply(ctx context.Context, reg *registry.Registry, entries []Entry, mode Mode, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	imported := make(map[string]bool, len(entries))
	for _, e := range entries {
		imported[e.UID] = true

		s, err := reg.Sheet(ctx, e.UID)
		if err != nil {
			if mode == ModeData {
				logger.Warn("skipping unknown sheet in data-only import", "uid", e.UID)
				continue
			}
			s = sheet.New(e.Name, gridCols(e.Content), 2, logger)
			s.UID = e.UID
		}
		applyEntry(s, e)
		if err := reg.Upsert(ctx, s); err != nil {
			return fmt.Errorf("saving imported sheet %s: %w", e.UID, err)
		}
	}

	if mode == ModeData {
		return nil
	}

	sheets, err := reg.Sheets(ctx)
	if err != nil {
		return err
	}
	for _, s := range sheets {
		if imported[s.UID] || !s.Enabled {
			continue
		}
		s.Enabled = false
		if err := reg.Upsert(ctx, s); err != nil {
			return fmt.Errorf("disabling sheet %s: %w", s.UID, err)
		}
	}
	return nil
}

func applyEntry(s *sheet.Sheet, e Entry) {
	s.Name = e.Name
	if e.Domain != "" {
		s.Domain = e.Domain
	}
	if e.Kind != "" {
		s.Kind = e.Kind
	}
	s.Enabled = e.Enabled
	s.Required = e.Required
	s.TriggerSend = e.TriggerSend
	s.TriggerSendDeep = e.TriggerSendDeep
	s.Config = e.Config

	if len(e.Content) > 0 {
		s.RebuildByValueSheet(e.Content)
	}
	for k, v := range e.SourceData {
		s.SetOriginMeta(k, v)
	}
}

func gridCols(content [][]string) int {
	if len(content) == 0 {
		return 2
	}
	return len(content[0])
}
