package maas

import (
	"strings"

	"github.com/tidwall/gjson"
)

// ExtractJSON pulls the first complete JSON object out of text that may
// carry non-JSON content around it. Commissioning scripts print JSON to
// stdout and logs to stderr, but the captured output sometimes interleaves
// both.
func ExtractJSON(text string) (gjson.Result, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return gjson.Result{}, false
	}
	if gjson.Valid(text) {
		return gjson.Parse(text), true
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return gjson.Result{}, false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := text[start : i+1]
				if gjson.Valid(candidate) {
					return gjson.Parse(candidate), true
				}
			}
		}
	}
	return gjson.Result{}, false
}
