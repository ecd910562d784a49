package llm

import "context"

type contextKey string

const (
	purposeKey    contextKey = "llm_purpose"
	questionIDKey contextKey = "llm_question_id"
)

// WithPurpose attaches a purpose label ("correctness", "metadata", ...) to
// the context so request events can be attributed to an analyzer.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}

// WithQuestionID tags model calls with the question under review.
func WithQuestionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, questionIDKey, id)
}

// QuestionIDFrom returns the question tag, or "" outside a review.
func QuestionIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(questionIDKey).(string)
	return v
}
