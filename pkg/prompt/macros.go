package prompt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tabulahq/tabula/pkg/sheet"
)

var (
	getMacroRe    = regexp.MustCompile(`\{\{GET::\s*([^:]+?)\s*:\s*([A-Z]+\d+)\s*\}\}`)
	placeholderRe = regexp.MustCompile(`\$([A-Z]+\d+)|S\[(.+?)\]\[(.+?)\]`)
)

// Resolver substitutes cell-reference macros against a set of live sheets.
//
// Three forms are supported: {{GET::Sheet Name:A1}} in chat text, and the
// template placeholders $A1 (current sheet) and S[name-or-index][A1] (cross
// sheet). Unresolvable references render as bracketed notices instead of
// failing, since the surrounding text still has to be delivered.
type Resolver struct {
	sheets []*sheet.Sheet
}

// NewResolver creates a resolver over the conversation's sheets, in registry
// order so numeric sheet references stay stable.
func NewResolver(sheets []*sheet.Sheet) *Resolver {
	return &Resolver{sheets: sheets}
}

// ResolveGet replaces every {{GET::Table:A1}} macro in the text.
func (r *Resolver) ResolveGet(text string) string {
	if !strings.Contains(text, "{{GET::") {
		return text
	}

	return getMacroRe.ReplaceAllStringFunc(text, func(match string) string {
		m := getMacroRe.FindStringSubmatch(match)
		name, address := strings.TrimSpace(m[1]), m[2]

		s := r.findByName(name)
		if s == nil {
			return fmt.Sprintf("[GET: table %q not found]", name)
		}
		c := s.CellAtAddress(address)
		if c == nil {
			return fmt.Sprintf("[GET: cell %q not found in %q]", address, name)
		}
		return c.Value
	})
}

// ResolvePlaceholders replaces $A1 and S[ref][A1] placeholders in a template
// string. current anchors the bare $A1 form and may be nil when only cross
// sheet references are expected.
func (r *Resolver) ResolvePlaceholders(template string, current *sheet.Sheet) string {
	if template == "" {
		return ""
	}

	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		m := placeholderRe.FindStringSubmatch(match)
		switch {
		case m[1] != "":
			if current == nil {
				return ""
			}
			c := current.CellAtAddress(m[1])
			if c == nil {
				return ""
			}
			return c.Value
		case m[2] != "" && m[3] != "":
			target := r.find(m[2])
			if target == nil {
				return fmt.Sprintf("[sheet %q not found]", m[2])
			}
			c := target.CellAtAddress(m[3])
			if c == nil {
				return fmt.Sprintf("[cell %q not found in sheet %q]", m[3], m[2])
			}
			return c.Value
		}
		return match
	})
}

// find resolves a sheet reference that may be a numeric index or a name.
func (r *Resolver) find(identifier string) *sheet.Sheet {
	if idx, err := strconv.Atoi(identifier); err == nil {
		if idx >= 0 && idx < len(r.sheets) {
			return r.sheets[idx]
		}
		return nil
	}
	return r.findByName(identifier)
}

func (r *Resolver) findByName(name string) *sheet.Sheet {
	name = strings.TrimSpace(name)
	for _, s := range r.sheets {
		if strings.TrimSpace(s.Name) == name {
			return s
		}
	}
	return nil
}
