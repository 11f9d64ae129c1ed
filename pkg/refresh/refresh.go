// Package refresh implements full-table regeneration: the current sheets and
// recent chat are serialized into a prompt, a model produces replacement
// tables, and the replacements are reconciled back onto the live sheets with
// cell identity preserved for unchanged content.
package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tabulahq/tabula/pkg/llm"
	"github.com/tabulahq/tabula/pkg/sheet"
)

// TableDoc is the readable JSON form of one table, both as sent to the model
// and as expected back from it.
type TableDoc struct {
	TableName  string     `json:"tableName"`
	TableUID   string     `json:"tableUid,omitempty"`
	TableIndex *int       `json:"tableIndex,omitempty"`
	Columns    []string   `json:"columns"`
	Content    [][]string `json:"content"`
}

// Template is a rebuild prompt pair. $0 expands to the serialized tables,
// $1 to recent chat history, $2 to the header summary, $3 to the user's
// additional instructions.
type Template struct {
	Name         string `json:"name"`
	SystemPrompt string `json:"system_prompt"`
	UserPrompt   string `json:"user_prompt_begin"`
}

// DefaultTemplate is the built-in rebuild prompt.
func DefaultTemplate() Template {
	return Template{
		Name: "rebuild_base",
		SystemPrompt: "You are a meticulous record keeper. You maintain story " +
			"state as a set of tables and rewrite them to reflect what happened.",
		UserPrompt: "Current tables:\n$0\n\nRecent chat:\n$1\n\nTable headers:\n$2\n\n$3\n" +
			"Rewrite every table to accurately reflect the chat. Reply with a single " +
			"JSON array of {tableName, tableIndex, columns, content} objects and nothing else.",
	}
}

// ErrDeclined is returned when the confirmation gate rejects the proposal.
var ErrDeclined = errors.New("rebuild declined")

// Rebuilder orchestrates one full-table regeneration.
type Rebuilder struct {
	newProvider func(key string) llm.Provider
	pool        *llm.KeyPool
	template    Template
	model       string
	logger      *slog.Logger

	// confirm gates application of the parsed proposal. Nil accepts.
	confirm func(proposal []TableDoc) bool
}

// Option configures a Rebuilder.
type Option func(*Rebuilder)

// WithTemplate overrides the default prompt template.
func WithTemplate(t Template) Option {
	return func(r *Rebuilder) {
		r.template = t
	}
}

// WithConfirm installs a confirmation gate invoked with the parsed proposal
// before it is applied.
func WithConfirm(fn func(proposal []TableDoc) bool) Option {
	return func(r *Rebuilder) {
		r.confirm = fn
	}
}

// New creates a rebuilder. newProvider constructs a chat backend for one API
// key; the pool decides which keys get tried and in what order.
func New(newProvider func(key string) llm.Provider, pool *llm.KeyPool, model string, logger *slog.Logger, opts ...Option) *Rebuilder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Rebuilder{
		newProvider: newProvider,
		pool:        pool,
		template:    DefaultTemplate(),
		model:       model,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Serialize renders the sheets into the document list sent to the model.
func Serialize(sheets []*sheet.Sheet) []TableDoc {
	docs := make([]TableDoc, len(sheets))
	for i, s := range sheets {
		idx := i
		docs[i] = TableDoc{
			TableName:  s.Name,
			TableUID:   s.UID,
			TableIndex: &idx,
			Columns:    s.Header(),
			Content:    s.Content(false),
		}
	}
	return docs
}

// BuildPrompts expands the template against the serialized sheets.
func (r *Rebuilder) BuildPrompts(sheets []*sheet.Sheet, history, additional string) (system, user string, err error) {
	docs := Serialize(sheets)
	tablesJSON, err := json.Marshal(docs)
	if err != nil {
		return "", "", fmt.Errorf("serializing tables: %w", err)
	}

	type headerDoc struct {
		TableID string   `json:"tableId"`
		Headers []string `json:"headers"`
	}
	headers := make([]headerDoc, len(sheets))
	for i, s := range sheets {
		headers[i] = headerDoc{TableID: s.UID, Headers: s.Header()}
	}
	headersJSON, err := json.Marshal(headers)
	if err != nil {
		return "", "", fmt.Errorf("serializing headers: %w", err)
	}

	expand := func(in string) string {
		out := strings.ReplaceAll(in, "$0", string(tablesJSON))
		out = strings.ReplaceAll(out, "$1", history)
		out = strings.ReplaceAll(out, "$2", string(headersJSON))
		return strings.ReplaceAll(out, "$3", additional)
	}
	return expand(r.template.SystemPrompt), expand(r.template.UserPrompt), nil
}

// Rebuild runs the full pipeline and returns the sheets that were rewritten.
func (r *Rebuilder) Rebuild(ctx context.Context, sheets []*sheet.Sheet, history, additional string) ([]*sheet.Sheet, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no enabled sheets to rebuild")
	}

	system, user, err := r.BuildPrompts(sheets, history, additional)
	if err != nil {
		return nil, err
	}

	var reply string
	err = r.pool.Try(ctx, func(ctx context.Context, key string) error {
		resp, err := r.newProvider(key).Chat(ctx, &llm.ChatRequest{
			Model: r.model,
			Messages: []llm.Message{
				llm.NewTextMessage("system", system),
				llm.NewTextMessage("user", user),
			},
		})
		if err != nil {
			r.logger.Warn("rebuild attempt failed", "error", err)
			return err
		}
		reply = resp.Content
		return nil
	})
	if err != nil {
		return nil, err
	}

	proposal, err := ParseReply(reply)
	if err != nil {
		return nil, err
	}
	if r.confirm != nil && !r.confirm(proposal) {
		return nil, ErrDeclined
	}
	return r.Apply(proposal, sheets), nil
}

// ParseReply extracts the table proposal from a model reply. The reply is
// scanned for bracket-balanced JSON arrays rather than parsed wholesale, so
// surrounding prose or code fences don't matter; the last well-formed array
// wins.
func ParseReply(raw string) ([]TableDoc, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("empty model reply")
	}

	var result []TableDoc
	found := false
	for _, candidate := range jsonArrayCandidates(raw) {
		var docs []TableDoc
		if err := json.Unmarshal([]byte(candidate), &docs); err != nil {
			continue
		}
		result = docs
		found = true
	}
	if !found {
		return nil, fmt.Errorf("no table array found in model reply")
	}
	return result, nil
}

// jsonArrayCandidates returns every bracket-balanced top-level array slice of
// the input, respecting strings and escapes.
func jsonArrayCandidates(s string) []string {
	var out []string
	start := 0
	for start < len(s) {
		open := strings.IndexByte(s[start:], '[')
		if open == -1 {
			break
		}
		open += start

		depth := 0
		inString := false
		escape := false
		end := -1
		for i := open; i < len(s); i++ {
			c := s[i]
			if escape {
				escape = false
				continue
			}
			switch {
			case c == '\\':
				escape = true
			case c == '"':
				inString = !inString
			case !inString && c == '[':
				depth++
			case !inString && c == ']':
				depth--
				if depth == 0 {
					end = i
				}
			}
			if end != -1 {
				break
			}
		}

		if end == -1 {
			start = open + 1
			continue
		}
		out = append(out, s[open:end+1])
		start = end + 1
	}
	return out
}

// Apply reconciles the proposal onto the sheets. Documents match their sheet
// by uid first, then declared index, then position; unmatched documents are
// skipped. Returns the rewritten sheets.
func (r *Rebuilder) Apply(proposal []TableDoc, sheets []*sheet.Sheet) []*sheet.Sheet {
	byUID := make(map[string]*sheet.Sheet, len(sheets))
	for _, s := range sheets {
		byUID[s.UID] = s
	}

	var touched []*sheet.Sheet
	for i, doc := range proposal {
		var target *sheet.Sheet
		switch {
		case doc.TableUID != "" && byUID[doc.TableUID] != nil:
			target = byUID[doc.TableUID]
		case doc.TableIndex != nil && *doc.TableIndex >= 0 && *doc.TableIndex < len(sheets):
			target = sheets[*doc.TableIndex]
		case i < len(sheets):
			target = sheets[i]
		}
		if target == nil {
			r.logger.Error("no sheet matches proposed table", "name", doc.TableName)
			continue
		}

		values := make([][]string, 0, len(doc.Content)+1)
		values = append(values, append([]string{""}, doc.Columns...))
		for _, row := range doc.Content {
			values = append(values, append([]string{""}, row...))
		}
		target.RebuildByValueSheet(values)
		touched = append(touched, target)
	}
	return touched
}
