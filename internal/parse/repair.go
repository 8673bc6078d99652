package parse

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNotParsed is returned by Decode when the chain exhausted every strategy
// and degraded to raw text.
var ErrNotParsed = errors.New("parse: no strategy produced structured data")

// trailingCommaRe matches a comma followed only by whitespace and a closing
// bracket or brace.
var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// Repair applies conservative fixes for the near-miss JSON that generative
// models commonly emit:
//
//   - trailing commas before } or ] are dropped
//   - single-quoted strings are rewritten as double-quoted, where the
//     quoting is unambiguous
//
// Repair is pure and never applied silently: tryParse only uses it as a
// retry after a strict parse failed, and flags the result as repaired.
func Repair(s string) string {
	s = normalizeQuotes(s)
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	return s
}

// normalizeQuotes rewrites single-quoted JSON strings to double-quoted ones.
// It walks the input tracking whether it is inside a double- or single-quoted
// string, so apostrophes inside double-quoted values ("it's") survive and
// double quotes inside single-quoted values are escaped.
func normalizeQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inDouble := false
	inSingle := false
	escaped := false

	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}

		switch {
		case r == '\\' && (inDouble || inSingle):
			b.WriteRune(r)
			escaped = true
		case r == '"' && !inSingle:
			inDouble = !inDouble
			b.WriteRune(r)
		case r == '"' && inSingle:
			// A literal double quote inside a single-quoted string must be
			// escaped once the delimiters become double quotes.
			b.WriteString(`\"`)
		case r == '\'' && !inDouble:
			inSingle = !inSingle
			b.WriteRune('"')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
