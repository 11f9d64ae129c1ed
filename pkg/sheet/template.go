package sheet

import (
	"log/slog"
	"strings"
)

// Template is the header-only schema variant of a grid document, stored in
// user-level settings and used as a stamp to produce new per-conversation
// sheets. It shares the Sheet machinery; the distinction is carried by the
// explicit Domain tag (global) and the template_ uid prefix, never by
// runtime type inspection of the other side.
type Template struct {
	Sheet
}

// NewTemplateUID generates a template identifier.
func NewTemplateUID() string {
	return "template_" + randomSuffix()
}

// NewTemplate creates a header-only template with the given column count
// (row-header column included).
func NewTemplate(name string, cols int, logger *slog.Logger) *Template {
	s := New(name, cols, 2, logger)
	s.InitHeaderOnly()
	s.UID = NewTemplateUID()
	s.Domain = DomainGlobal
	if name == "" {
		s.Name = "NewTemplate_" + s.UID[len(s.UID)-4:]
	}
	return &Template{Sheet: *s}
}

// TemplateFromRecord rehydrates a template from its persisted form.
func TemplateFromRecord(rec Record, logger *slog.Logger) (*Template, error) {
	s, err := FromRecord(rec, logger)
	if err != nil {
		return nil, err
	}
	s.Domain = DomainGlobal
	return &Template{Sheet: *s}, nil
}

// Stamp instantiates a per-conversation Sheet from the template: all fields
// are copied (cell history included, so header cells keep their identity),
// a fresh conversation-scoped uid is assigned, and the domain flips to chat.
func (t *Template) Stamp(logger *slog.Logger) (*Sheet, error) {
	rec := t.ToRecord()
	rec.UID = NewUID()
	rec.Domain = DomainChat
	rec.Template = t.UID
	rec.Name = strings.Replace(rec.Name, "Template", "Table", 1)

	return FromRecord(rec, logger)
}
