package analyzer

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Static analyzers are deterministic rule-based stand-ins for the LLM
// analyzers. They are used when no provider is configured and in tests.

// NewStaticSet returns rule-based analyzers for every facet.
func NewStaticSet() Set {
	return Set{
		Correctness: Func[*Correctness](StaticCorrectness),
		Language:    Func[*Language](StaticLanguage),
		Improvement: Func[*Improvement](StaticImprovement),
		Metadata:    Func[*Metadata](StaticMetadata),
	}
}

var (
	equationRe    = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*([-+*/×x÷])\s*(-?\d+(?:\.\d+)?)\s*=\s*(-?\d+(?:\.\d+)?)`)
	multiSpaceRe  = regexp.MustCompile(`[ \t]{2,}`)
	spaceBeforeRe = regexp.MustCompile(`\s+([?.,!;:])`)
)

var interrogatives = []string{
	"what", "which", "who", "whom", "whose", "when", "where", "why", "how",
	"is", "are", "does", "do", "can", "will", "should",
}

// StaticCorrectness checks arithmetic equalities written in the question
// and bracket balance.
func StaticCorrectness(ctx context.Context, text string) (*Correctness, error) {
	if err := ctx.Err(); err != nil {
		return nil, Classify(NameCorrectness, err)
	}

	errs := []string{}
	for _, m := range equationRe.FindAllStringSubmatch(text, -1) {
		if msg, ok := checkEquation(m[1], m[2], m[3], m[4]); !ok {
			errs = append(errs, msg)
		}
	}
	if !balanced(text) {
		errs = append(errs, "Unbalanced brackets in question text.")
	}

	c := &Correctness{IsCorrect: len(errs) == 0, Errors: errs}
	if c.IsCorrect {
		c.Explanation = "No arithmetic or structural errors detected by rule-based checks."
	} else {
		c.Explanation = fmt.Sprintf("Rule-based checks found %d error(s).", len(errs))
	}
	return c, nil
}

func checkEquation(a, op, b, want string) (string, bool) {
	x, _ := strconv.ParseFloat(a, 64)
	y, _ := strconv.ParseFloat(b, 64)
	z, _ := strconv.ParseFloat(want, 64)

	var got float64
	switch op {
	case "+":
		got = x + y
	case "-":
		got = x - y
	case "*", "x", "×":
		got = x * y
	case "/", "÷":
		if y == 0 {
			return fmt.Sprintf("Division by zero in %s %s %s.", a, op, b), false
		}
		got = x / y
	}
	if math.Abs(got-z) > 1e-9 {
		return fmt.Sprintf("%s %s %s equals %s, not %s.", a, op, b, strconv.FormatFloat(got, 'f', -1, 64), want), false
	}
	return "", true
}

func balanced(s string) bool {
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}
	var stack []rune
	for _, r := range s {
		switch r {
		case '(', '[', '{':
			stack = append(stack, r)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}

// StaticLanguage flags spacing, capitalization, repeated words and missing
// terminal punctuation.
func StaticLanguage(ctx context.Context, text string) (*Language, error) {
	if err := ctx.Err(); err != nil {
		return nil, Classify(NameLanguage, err)
	}

	trimmed := strings.TrimSpace(text)
	feedback := []string{}
	if multiSpaceRe.MatchString(trimmed) {
		feedback = append(feedback, "Collapse repeated spaces.")
	}
	if spaceBeforeRe.MatchString(trimmed) {
		feedback = append(feedback, "Remove the space before punctuation.")
	}
	if r, _ := utf8.DecodeRuneInString(trimmed); unicode.IsLower(r) {
		feedback = append(feedback, "Start the question with a capital letter.")
	}
	for _, w := range repeatedWords(trimmed) {
		feedback = append(feedback, fmt.Sprintf("Remove the repeated word %q.", w))
	}
	if !hasTerminalPunctuation(trimmed) {
		feedback = append(feedback, "End the question with a question mark or full stop.")
	}

	l := &Language{IssuesFound: len(feedback) > 0, Feedback: feedback}
	if l.IssuesFound {
		l.Explanation = fmt.Sprintf("Found %d language issue(s).", len(feedback))
	} else {
		l.Explanation = "The question is clearly worded with no detected language issues."
	}
	return l, nil
}

// StaticImprovement applies the mechanical fixes StaticLanguage reports.
func StaticImprovement(ctx context.Context, text string) (*Improvement, error) {
	if err := ctx.Err(); err != nil {
		return nil, Classify(NameImprovement, err)
	}

	improved, changes := tidy(text)
	justification := "No changes needed; the question is already well formed."
	if len(changes) > 0 {
		justification = strings.Join(changes, " ")
	}
	return &Improvement{ImprovedQuestion: improved, Justification: justification}, nil
}

func tidy(text string) (string, []string) {
	var changes []string
	s := strings.TrimSpace(text)

	if c := multiSpaceRe.ReplaceAllString(s, " "); c != s {
		s = c
		changes = append(changes, "Collapsed repeated spaces.")
	}
	if c := spaceBeforeRe.ReplaceAllString(s, "$1"); c != s {
		s = c
		changes = append(changes, "Removed spaces before punctuation.")
	}
	if len(repeatedWords(s)) > 0 {
		s = dedupeWords(s)
		changes = append(changes, "Removed repeated words.")
	}
	if r, size := utf8.DecodeRuneInString(s); unicode.IsLower(r) {
		s = string(unicode.ToUpper(r)) + s[size:]
		changes = append(changes, "Capitalized the first letter.")
	}
	if s != "" && !hasTerminalPunctuation(s) {
		if isInterrogative(s) {
			s += "?"
		} else {
			s += "."
		}
		changes = append(changes, "Added terminal punctuation.")
	}
	return s, changes
}

// repeatedWords returns each word immediately repeated in s, e.g. "the the".
func repeatedWords(s string) []string {
	var out []string
	fields := strings.Fields(s)
	for i := 1; i < len(fields); i++ {
		if strings.EqualFold(fields[i], fields[i-1]) && isAlpha(fields[i]) {
			out = append(out, fields[i])
		}
	}
	return out
}

func dedupeWords(s string) string {
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for i, f := range fields {
		if i > 0 && strings.EqualFold(f, fields[i-1]) && isAlpha(f) {
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

func hasTerminalPunctuation(s string) bool {
	if s == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	return strings.ContainsRune("?.!:", r)
}

func isInterrogative(s string) bool {
	words := strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
	if len(words) == 0 {
		return false
	}
	first := strings.ToLower(words[0])
	for _, w := range interrogatives {
		if first == w {
			return true
		}
	}
	return false
}

// StaticMetadata classifies by keyword taxonomy, Bloom's verbs and a
// length heuristic for difficulty.
func StaticMetadata(ctx context.Context, text string) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, Classify(NameMetadata, err)
	}

	topic, subtopic := classifyTopic(text)
	return &Metadata{
		Topic:       topic,
		Subtopic:    subtopic,
		BloomsLevel: classifyBlooms(text),
		Difficulty:  estimateDifficulty(text),
	}, nil
}

func estimateDifficulty(text string) string {
	words := len(strings.Fields(text))
	numbers := 0
	for _, f := range strings.Fields(text) {
		if strings.IndexFunc(f, unicode.IsDigit) >= 0 {
			numbers++
		}
	}
	switch {
	case words <= 12 && numbers <= 2:
		return DifficultyEasy
	case words <= 40 && numbers <= 5:
		return DifficultyMedium
	default:
		return DifficultyHard
	}
}
