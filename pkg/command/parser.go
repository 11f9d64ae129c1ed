// Package command parses and executes the table edit DSL that models emit
// inside their replies.
//
// The grammar is three call forms wrapped in a tableEdit tag, usually inside
// an HTML comment:
//
//	<tableEdit><!--
//	insertRow(0, {0: "Alice", 1: "visiting"})
//	updateRow(0, 1, {1: "left the room"})
//	deleteRow(0, 2)
//	--></tableEdit>
//
// Model output is hostile input. The parser never rejects a block outright;
// it scans for the three tokens, salvages every call it can bound, and drops
// fragments it cannot.
package command

import (
	"regexp"
	"strconv"
	"strings"
)

// Type discriminates the three edit operations.
type Type string

const (
	TypeUpdate Type = "update"
	TypeInsert Type = "insert"
	TypeDelete Type = "delete"
)

// Command is one parsed edit call. TableIndex addresses the sheet within the
// enabled-sheet list in registry order; RowIndex is a 0-based data row; Data
// maps 0-based column indexes to replacement values.
type Command struct {
	Type       Type
	TableIndex int
	RowIndex   int
	Data       map[int]string
	HasData    bool
}

var (
	editTagRe  = regexp.MustCompile(`(?s)<tableEdit>(.*?)</tableEdit>`)
	commentRe  = regexp.MustCompile(`(?s)^\s*<!--|-->?\s*$`)
	functionRe = regexp.MustCompile(`(updateRow|insertRow|deleteRow)\(`)
	argRe      = regexp.MustCompile(`("[^"]*"|\{.*\}|[0-9]+)`)
)

// ExtractBlocks returns the contents of every tableEdit tag in a message
// body, in order of appearance.
func ExtractBlocks(message string) []string {
	var blocks []string
	for _, m := range editTagRe.FindAllStringSubmatch(message, -1) {
		blocks = append(blocks, m[1])
	}
	return blocks
}

// StripMessage removes all tableEdit tags from a message body.
func StripMessage(message string) string {
	return editTagRe.ReplaceAllString(message, "")
}

// trimComment strips the optional HTML comment wrapper inside a block.
func trimComment(block string) string {
	return strings.TrimSpace(commentRe.ReplaceAllString(strings.TrimSpace(block), ""))
}

// Parse scans the blocks for edit calls and returns the commands it could
// salvage. Calls with no recognizable arguments are dropped.
func Parse(blocks []string) []Command {
	var cmds []Command
	for _, block := range blocks {
		cmds = append(cmds, parseBlock(trimComment(block))...)
	}
	return cmds
}

// ParseMessage is ExtractBlocks followed by Parse.
func ParseMessage(message string) []Command {
	return Parse(ExtractBlocks(message))
}

func parseBlock(input string) []Command {
	locs := functionRe.FindAllStringSubmatchIndex(input, -1)

	var cmds []Command
	for i, loc := range locs {
		start := loc[0]
		end := len(input)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		fullCall := input[start:end]

		lastParen := strings.LastIndexByte(fullCall, ')')
		if lastParen == -1 {
			continue
		}
		sliced := fullCall[:lastParen]
		argsPart := sliced[strings.IndexByte(sliced, '(')+1:]

		args := argRe.FindAllString(argsPart, -1)
		if len(args) == 0 {
			continue
		}

		name := input[loc[2]:loc[3]]
		cmds = append(cmds, classify(Type(strings.TrimSuffix(name, "Row")), args))
	}
	return cmds
}

// classify assigns tokenized arguments positionally: the first bare integer
// is the table index, the second the row index, and a dict literal becomes
// the data map. Anything else is ignored.
func classify(t Type, args []string) Command {
	cmd := Command{Type: t}
	numbersSeen := 0
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if n, err := strconv.Atoi(arg); err == nil {
			switch numbersSeen {
			case 0:
				cmd.TableIndex = n
			case 1:
				cmd.RowIndex = n
			}
			numbersSeen++
			continue
		}
		if strings.HasPrefix(arg, "{") && strings.HasSuffix(arg, "}") {
			cmd.Data = parseLooseDict(arg)
			cmd.HasData = true
		}
	}
	return cmd
}

// parseLooseDict parses a dict literal the way a forgiving reader would:
// keys may be bare or quoted with either quote style, values may be
// unquoted, and stray same-style quotes inside a quoted value are flipped to
// the opposite style instead of ending it. Commas inside values are
// rewritten to '/' so downstream CSV stays intact. Only integer keys
// survive.
func parseLooseDict(str string) map[int]string {
	result := make(map[int]string)

	content := strings.TrimSpace(strings.ReplaceAll(str, `\"`, `"`))
	if len(content) < 2 {
		return result
	}
	content = content[1 : len(content)-1]

	i := 0
	n := len(content)
	for i < n {
		var key strings.Builder
		for i < n && content[i] != ':' {
			key.WriteByte(content[i])
			i++
		}
		i++ // colon

		for i < n && isSpace(content[i]) {
			i++
		}

		var value strings.Builder
		var quote byte
		inString := false
		if i < n && (content[i] == '"' || content[i] == '\'') {
			quote = content[i]
			inString = true
			i++
		}

		for i < n {
			c := content[i]
			if inString {
				if c == quote {
					if atEntryEnd(content, i+1) {
						i++ // closing quote
						break
					}
					// Interior quote of the same style; flip it.
					if c == '"' {
						value.WriteByte('\'')
					} else {
						value.WriteByte('"')
					}
					i++
					continue
				}
				value.WriteByte(c)
			} else {
				if c == ',' {
					break
				}
				value.WriteByte(c)
			}
			i++
		}

		k := strings.Trim(strings.TrimSpace(key.String()), `"'`)
		if idx, err := strconv.Atoi(k); err == nil {
			v := strings.TrimSpace(value.String())
			result[idx] = strings.ReplaceAll(v, ",", "/")
		}

		for i < n && (content[i] == ',' || isSpace(content[i])) {
			i++
		}
	}
	return result
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// atEntryEnd reports whether only whitespace stands between position i and
// either a comma or the end of the dict body. A quote in that position is a
// closing quote, not an interior one.
func atEntryEnd(content string, i int) bool {
	for i < len(content) && isSpace(content[i]) {
		i++
	}
	return i >= len(content) || content[i] == ','
}

// repairEscapes undoes the over-escaping some models apply to single quotes.
func repairEscapes(data map[int]string) {
	for k, v := range data {
		data[k] = strings.ReplaceAll(v, `\'`, "'")
	}
}
