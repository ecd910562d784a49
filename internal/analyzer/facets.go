package analyzer

import "strings"

// Correctness is the factual/logical soundness review of a question.
type Correctness struct {
	IsCorrect   bool     `json:"is_correct"`
	Errors      []string `json:"errors"`
	Explanation string   `json:"explanation"`
}

// Complete requires an explanation; a question judged incorrect must also
// name at least one error.
func (c *Correctness) Complete() bool {
	if c == nil || strings.TrimSpace(c.Explanation) == "" {
		return false
	}
	return c.IsCorrect || len(c.Errors) > 0
}

// Language is the grammar, clarity and style review.
type Language struct {
	IssuesFound bool     `json:"issues_found"`
	Feedback    []string `json:"feedback"`
	Explanation string   `json:"explanation"`
}

// Complete requires an explanation; reported issues must be listed.
func (l *Language) Complete() bool {
	if l == nil || strings.TrimSpace(l.Explanation) == "" {
		return false
	}
	return !l.IssuesFound || len(l.Feedback) > 0
}

// Improvement is a suggested rewrite of the question.
type Improvement struct {
	ImprovedQuestion string `json:"improved_question"`
	Justification    string `json:"justification"`
}

func (i *Improvement) Complete() bool {
	return i != nil &&
		strings.TrimSpace(i.ImprovedQuestion) != "" &&
		strings.TrimSpace(i.Justification) != ""
}

// Metadata is the taxonomy classification. Each label is optional.
type Metadata struct {
	Topic       string `json:"topic,omitempty"`
	Subtopic    string `json:"subtopic,omitempty"`
	BloomsLevel string `json:"blooms_level,omitempty"`
	Difficulty  string `json:"difficulty,omitempty"`
}

// Complete requires at least one label.
func (m *Metadata) Complete() bool {
	return m != nil && (m.Topic != "" || m.Subtopic != "" || m.BloomsLevel != "" || m.Difficulty != "")
}

// normalizeList trims entries, drops empty ones and never returns nil, so
// facets serialize lists as [] rather than null.
func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
