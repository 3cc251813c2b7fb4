package bulk

import "strings"

// Delimiter selects how a line is split into columns.
type Delimiter int

const (
	// DelimTab splits on runs of one or more tab characters (spreadsheet paste).
	DelimTab Delimiter = iota
	// DelimComma splits on every comma.
	DelimComma
)

func (d Delimiter) String() string {
	switch d {
	case DelimTab:
		return "tab"
	case DelimComma:
		return "comma"
	default:
		return "unknown"
	}
}

// Line is a non-blank, trimmed input line with its 1-based physical position.
type Line struct {
	Number int
	Text   string
}

// SplitLines splits raw text into trimmed lines, dropping blank ones.
// Line numbers refer to the position in the original text.
func SplitLines(text string) []Line {
	raw := strings.Split(text, "\n")
	lines := make([]Line, 0, len(raw))
	for i, l := range raw {
		l = strings.TrimSpace(strings.TrimSuffix(l, "\r"))
		if l == "" {
			continue
		}
		lines = append(lines, Line{Number: i + 1, Text: l})
	}
	return lines
}

// Tokenize splits a line into trimmed column tokens. It never fails; column
// count problems are left to Validate.
func Tokenize(line string, d Delimiter) []string {
	var parts []string
	switch d {
	case DelimComma:
		parts = strings.Split(line, ",")
	default:
		parts = splitTabRuns(line)
	}

	tokens := make([]string, len(parts))
	for i, p := range parts {
		tokens[i] = strings.TrimSpace(p)
	}
	return tokens
}

// splitTabRuns treats consecutive tabs as a single separator.
func splitTabRuns(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool { return r == '\t' })
}

// TokenizeLines tokenizes every line with the given delimiter.
func TokenizeLines(lines []Line, d Delimiter) []RawRow {
	rows := make([]RawRow, len(lines))
	for i, l := range lines {
		rows[i] = RawRow{Line: l.Number, Tokens: Tokenize(l.Text, d)}
	}
	return rows
}
