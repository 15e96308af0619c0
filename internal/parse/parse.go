// Package parse recovers structured data from LLM output. Models wrap JSON in
// prose or code fences often enough that a strict decode alone is not viable.
package parse

import (
	"encoding/json"
	"fmt"
	"strings"
)

// JSONObject decodes raw into v, trying a strict parse, then fenced-code-block
// extraction, then an outermost-brace scan. Returns an error only when every
// strategy fails.
func JSONObject(raw string, v any) error {
	return tolerant(raw, v, '{', '}')
}

// JSONArray is JSONObject for top-level arrays.
func JSONArray(raw string, v any) error {
	return tolerant(raw, v, '[', ']')
}

func tolerant(raw string, v any, open, closing byte) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fmt.Errorf("empty response")
	}

	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}

	if block, ok := fencedBlock(trimmed); ok {
		if err := json.Unmarshal([]byte(block), v); err == nil {
			return nil
		}
	}

	if span, ok := bracketSpan(trimmed, open, closing); ok {
		if err := json.Unmarshal([]byte(span), v); err == nil {
			return nil
		}
	}

	return fmt.Errorf("no parseable JSON in response (%d bytes)", len(raw))
}

// fencedBlock returns the contents of the first ``` fenced block, with an
// optional language tag stripped.
func fencedBlock(s string) (string, bool) {
	start := strings.Index(s, "```")
	if start < 0 {
		return "", false
	}
	rest := s[start+3:]

	// Drop the language tag line ("json", "JSON", ...), if any.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		first := strings.TrimSpace(rest[:nl])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}[]") {
			rest = rest[nl+1:]
		}
	}

	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// bracketSpan returns the span from the first open bracket to its matching
// close bracket, tracking nesting and string literals.
func bracketSpan(s string, open, closing byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == closing:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// StringList decodes raw as a list of short strings, accepting either a bare
// JSON array or an object with a single array field. Blank entries are
// dropped.
func StringList(raw string) ([]string, error) {
	var list []string
	if err := JSONArray(raw, &list); err != nil {
		var obj map[string][]string
		if err2 := JSONObject(raw, &obj); err2 != nil {
			return nil, err
		}
		for _, v := range obj {
			list = v
			break
		}
	}

	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable entries in list response")
	}
	return out, nil
}
