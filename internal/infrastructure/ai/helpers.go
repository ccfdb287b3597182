package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

const snippetLimit = 160

// ExtractJSONObject returns the substring from the first '{' to the last '}'
// of text after stripping a surrounding code fence. Models often wrap the
// object in prose, so nothing outside the braces is inspected.
func ExtractJSONObject(text string) (string, bool) {
	trimmed := strings.TrimSpace(stripCodeFence(text))
	start := strings.Index(trimmed, "{")
	if start < 0 {
		return "", false
	}
	end := strings.LastIndex(trimmed, "}")
	if end <= start {
		return "", false
	}
	return trimmed[start : end+1], true
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return content
	}
	body := strings.TrimPrefix(trimmed, "```")
	if newline := strings.Index(body, "\n"); newline >= 0 {
		body = body[newline+1:]
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return body
}

// stringify renders a decoded JSON value as item text. Scalars keep their
// literal form; objects and arrays become compact JSON.
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	runes := []rune(clean)
	if len(runes) > snippetLimit {
		clean = string(runes[:snippetLimit]) + "..."
	}
	return clean
}
