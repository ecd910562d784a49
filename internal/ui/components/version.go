// Package components renders question versions for the terminal.
package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/qcbank/internal/question"
	"github.com/abhisek/qcbank/internal/ui/theme"
)

const timeLayout = "2006-01-02 15:04:05"

// VersionCard renders one version with its feedback facets inside a
// rounded card of the given width.
func VersionCard(v question.Version, width int) string {
	var b strings.Builder

	b.WriteString(theme.Title.Render(fmt.Sprintf("v%d", v.VersionNumber)))
	b.WriteString("  ")
	b.WriteString(theme.Hint.Render(fmt.Sprintf("%s by %s", v.Timestamp.Local().Format(timeLayout), v.CreatedBy)))
	b.WriteString("\n\n")

	b.WriteString(row("Text", theme.Body.Render(v.Text())))
	b.WriteString(row("Correctness", correctness(v)))
	b.WriteString(row("Language", language(v)))
	b.WriteString(row("Suggestion", improvement(v)))
	b.WriteString(row("Metadata", metadata(v)))

	style := theme.Card
	if width > 4 {
		style = style.Width(width)
	}
	return style.Render(strings.TrimRight(b.String(), "\n"))
}

// History renders versions oldest first, one card each.
func History(id string, versions []question.Version, width int) string {
	cards := make([]string, 0, len(versions)+1)
	cards = append(cards, theme.Title.Render("Question "+id)+"  "+
		theme.Hint.Render(fmt.Sprintf("%d version(s)", len(versions))))
	for _, v := range versions {
		cards = append(cards, VersionCard(v, width))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, theme.Label.Render(label), value) + "\n"
}

func correctness(v question.Version) string {
	c := v.Correctness
	if c == nil {
		return theme.Missing.Render("unavailable")
	}
	if c.IsCorrect {
		return theme.Correct.Render("correct")
	}
	lines := []string{theme.Incorrect.Render("incorrect")}
	for _, e := range c.Errors {
		lines = append(lines, theme.Body.Render("- "+e))
	}
	return strings.Join(lines, "\n")
}

func language(v question.Version) string {
	l := v.Language
	if l == nil {
		return theme.Missing.Render("unavailable")
	}
	if !l.IssuesFound {
		return theme.Correct.Render("no issues")
	}
	lines := make([]string, 0, len(l.Feedback))
	for _, f := range l.Feedback {
		lines = append(lines, theme.Warning.Render("- "+f))
	}
	return strings.Join(lines, "\n")
}

func improvement(v question.Version) string {
	i := v.Improvement
	if i == nil {
		return theme.Missing.Render("unavailable")
	}
	if i.ImprovedQuestion == v.Text() {
		return theme.Hint.Render("no change")
	}
	return theme.Body.Render(i.ImprovedQuestion)
}

func metadata(v question.Version) string {
	m := v.Metadata
	if m == nil {
		return theme.Missing.Render("unavailable")
	}
	parts := make([]string, 0, 4)
	for _, p := range []string{m.Topic, m.Subtopic, m.BloomsLevel, m.Difficulty} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return theme.Missing.Render("unclassified")
	}
	return theme.Body.Render(strings.Join(parts, " / "))
}
