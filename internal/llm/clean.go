package llm

import (
	"bytes"
	"encoding/json"
	"regexp"
)

// fencedJSON matches a Markdown code fence, optionally tagged json.
var fencedJSON = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)\\s*```")

// cleanContent strips surrounding whitespace and, when the model wrapped
// its JSON in a Markdown fence, returns only the fenced body.
func cleanContent(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return trimmed
	}
	if m := fencedJSON.FindSubmatch(trimmed); m != nil {
		return json.RawMessage(m[1])
	}
	return trimmed
}
