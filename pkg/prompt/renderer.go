// Package prompt renders sheets into the text blocks injected into model
// context, and resolves the cell-reference macros users embed in templates.
package prompt

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tabulahq/tabula/pkg/chat"
	"github.com/tabulahq/tabula/pkg/command"
	"github.com/tabulahq/tabula/pkg/sheet"
)

// Part selects one section of a sheet's rendered prompt text.
type Part string

const (
	PartTitle     Part = "title"
	PartNote      Part = "note"
	PartHeaders   Part = "headers"
	PartRows      Part = "rows"
	PartEditRules Part = "editRules"
)

// DefaultParts is the full prompt rendering used when the model is expected
// to edit the tables.
func DefaultParts() []Part {
	return []Part{PartTitle, PartNote, PartHeaders, PartRows, PartEditRules}
}

// PureParts renders data only, for read-only injection.
func PureParts() []Part {
	return []Part{PartTitle, PartHeaders, PartRows}
}

// Renderer turns live sheets into prompt text.
type Renderer struct {
	logger *slog.Logger
}

// NewRenderer creates a renderer.
func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{logger: logger}
}

// Sheet renders one sheet. The index is the sheet's position in the enabled
// list, which is how edit commands address it. history carries recent chat
// text for trigger-filtered sheets; rows whose first data column does not
// appear in it are dropped from the rendering.
func (r *Renderer) Sheet(s *sheet.Sheet, index int, parts []Part, history string) string {
	// Trigger depth 0 means the sheet is reference-only and never sent.
	if s.TriggerSend && s.TriggerSendDeep < 1 {
		return ""
	}

	want := make(map[Part]bool, len(parts))
	for _, p := range parts {
		want[p] = true
	}

	var b strings.Builder
	if want[PartTitle] {
		fmt.Fprintf(&b, "* %d:%s\n", index, s.Name)
	}
	if want[PartNote] {
		if note := s.OriginMeta(sheet.MetaNote); note != "" {
			b.WriteString("[Note] " + note + "\n")
		}
	}
	if want[PartHeaders] {
		b.WriteString("[Content]\nrowIndex," + headerLine(s) + "\n")
	}
	if want[PartRows] {
		rows := s.CSV(true)
		if s.TriggerSend {
			rows = filterRowsByHistory(rows, history)
		}
		b.WriteString(rows)
	}
	if want[PartEditRules] {
		b.WriteString(editRules(s))
	}
	return b.String()
}

// Sheets renders every sheet and joins the sections with newlines.
func (r *Renderer) Sheets(sheets []*sheet.Sheet, parts []Part, history string) string {
	rendered := make([]string, 0, len(sheets))
	for i, s := range sheets {
		rendered = append(rendered, r.Sheet(s, i, parts, history))
	}
	return strings.Join(rendered, "\n")
}

// headerLine renders "0:Name,1:Note,..." so the model addresses columns by
// index rather than by header text.
func headerLine(s *sheet.Sheet) string {
	header := s.Header()
	cols := make([]string, len(header))
	for i, v := range header {
		cols[i] = fmt.Sprintf("%d:%s", i, v)
	}
	return strings.Join(cols, ",")
}

// editRules renders the per-sheet trigger conditions stored on the origin
// cell. A required-but-empty sheet exposes only its initial-fill rule.
func editRules(s *sheet.Sheet) string {
	const heading = "[Trigger Conditions]\n"

	if s.Required && s.IsEmpty() {
		return heading + "Insert: " + s.OriginMeta(sheet.MetaInitRule) + "\n\n"
	}

	var b strings.Builder
	b.WriteString(heading)
	if rule := s.OriginMeta(sheet.MetaInsertRule); rule != "" {
		b.WriteString("Insert: " + rule + "\n")
	}
	if rule := s.OriginMeta(sheet.MetaUpdateRule); rule != "" {
		b.WriteString("Update: " + rule + "\n")
	}
	if rule := s.OriginMeta(sheet.MetaDeleteRule); rule != "" {
		b.WriteString("Delete: " + rule + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

// filterRowsByHistory keeps only the CSV rows whose first data column value
// occurs somewhere in the recent chat text.
func filterRowsByHistory(rows, history string) string {
	var kept []string
	for _, line := range strings.Split(rows, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		key := ""
		if len(parts) > 1 {
			key = parts[1]
		}
		if strings.Contains(history, key) {
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return strings.Join(kept, "\n") + "\n"
}

// RecentHistory collects the message bodies of the last deep turns, newest
// last, with edit blocks stripped so trigger matching sees only prose.
func RecentHistory(turns []*chat.Turn, deep int) string {
	n := len(turns)
	if deep > n {
		deep = n
	}

	var b strings.Builder
	for i := n - deep; i < n; i++ {
		b.WriteString(command.StripMessage(turns[i].Message))
	}
	return b.String()
}
