// Package parse recovers structured JSON from free-form model output.
//
// Generated text is only probably valid JSON: models wrap payloads in prose
// or markdown fences, emit single-quoted strings, or leave trailing commas.
// Rather than nested ad hoc recovery, the package runs a fixed-priority
// strategy chain and reports which strategy produced the result, so callers
// can treat repaired or loosely-extracted values as lower confidence.
package parse

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
)

// Strategy identifies which extraction step produced a result.
type Strategy string

const (
	// StrategyDirect parsed the full text as-is.
	StrategyDirect Strategy = "direct"
	// StrategyFencedJSON parsed the contents of a ```json fence.
	StrategyFencedJSON Strategy = "fenced_json"
	// StrategyFencedAny parsed the contents of an untyped code fence.
	StrategyFencedAny Strategy = "fenced_any"
	// StrategyBraceSpan parsed the substring between the first { and last }.
	StrategyBraceSpan Strategy = "brace_span"
	// StrategyNone means every strategy failed; Result.Raw holds the
	// original text unchanged.
	StrategyNone Strategy = "none"
)

// Result is the outcome of a parse attempt. Either Value holds valid JSON
// and Strategy names the step that recovered it, or Strategy is
// StrategyNone and only Raw is meaningful. There is no partial state.
type Result struct {
	Value    json.RawMessage
	Strategy Strategy
	Repaired bool
	Raw      string
}

// Parsed reports whether any strategy produced valid JSON.
func (r Result) Parsed() bool {
	return r.Strategy != StrategyNone
}

var (
	// fencedJSONRe matches a fence explicitly tagged json.
	fencedJSONRe = regexp.MustCompile("(?s)```json\\s*\\n(.*?)```")
	// fencedAnyRe matches any fenced code block, tagged or not.
	fencedAnyRe = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n(.*?)```")
)

// Parse runs the strategy chain over raw and returns the first success.
// Strategy failures are local: they are debug-logged and the chain moves on.
// Only total exhaustion is visible to the caller, as StrategyNone.
func Parse(raw string) Result {
	for _, c := range candidates(raw) {
		if c.text == "" {
			continue
		}
		if value, repaired, ok := tryParse(c.text); ok {
			return Result{
				Value:    value,
				Strategy: c.strategy,
				Repaired: repaired,
				Raw:      raw,
			}
		}
		slog.Debug("parse strategy failed", "strategy", c.strategy)
	}
	return Result{Strategy: StrategyNone, Raw: raw}
}

type candidate struct {
	strategy Strategy
	text     string
}

// candidates produces the chain's inputs in fixed priority order.
func candidates(raw string) []candidate {
	trimmed := strings.TrimSpace(raw)

	out := []candidate{{StrategyDirect, trimmed}}

	if m := fencedJSONRe.FindStringSubmatch(raw); m != nil {
		out = append(out, candidate{StrategyFencedJSON, strings.TrimSpace(m[1])})
	}
	if m := fencedAnyRe.FindStringSubmatch(raw); m != nil {
		out = append(out, candidate{StrategyFencedAny, strings.TrimSpace(m[1])})
	}
	if span := braceSpan(raw); span != "" {
		out = append(out, candidate{StrategyBraceSpan, span})
	}
	return out
}

// braceSpan returns the substring from the first { to the last }, tolerating
// leading and trailing prose. Empty if no such span exists.
func braceSpan(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}

// tryParse attempts a strict parse of text, then retries once on a repaired
// copy. The repaired flag is true only when the strict attempt failed and
// the repaired one succeeded, so callers always know a repair happened.
func tryParse(text string) (value json.RawMessage, repaired bool, ok bool) {
	if looksLikeJSON(text) && json.Valid([]byte(text)) {
		return json.RawMessage(text), false, true
	}

	fixed := Repair(text)
	if fixed != text && looksLikeJSON(fixed) && json.Valid([]byte(fixed)) {
		return json.RawMessage(fixed), true, true
	}
	return nil, false, false
}

// looksLikeJSON filters out candidates that json.Valid would accept but that
// are not the structured payloads callers want: bare scalars like a stray
// number or the word "null" in prose.
func looksLikeJSON(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

// Decode unmarshals a parsed result into v. It fails if the result carries
// no structured value.
func Decode(r Result, v any) error {
	if !r.Parsed() {
		return ErrNotParsed
	}
	return json.Unmarshal(r.Value, v)
}
