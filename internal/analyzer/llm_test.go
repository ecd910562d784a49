package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/qcbank/internal/llm"
)

// keyedProvider answers each analyzer by schema name.
func keyedProvider(replies map[string]llm.MockResponse) *llm.MockProvider {
	p := llm.NewMockProvider()
	p.Respond = func(req llm.Request) llm.MockResponse {
		if r, ok := replies[req.Schema.Name]; ok {
			return r
		}
		return llm.MockResponse{Err: &llm.ErrProviderUnavailable{}}
	}
	return p
}

func goodReplies() map[string]llm.MockResponse {
	return map[string]llm.MockResponse{
		CorrectnessSchema.Name: {Content: json.RawMessage(`{"is_correct":true,"errors":[],"explanation":"2+2 is well defined."}`)},
		LanguageSchema.Name:    {Content: json.RawMessage("```json\n{\"issues_found\":false,\"feedback\":[],\"explanation\":\"Clear.\"}\n```")},
		ImprovementSchema.Name: {Content: json.RawMessage(`{"improved_question":"What is the sum of 2 and 2?","justification":"More explicit."}`)},
		MetadataSchema.Name:    {Content: json.RawMessage(`{"topic":"Mathematics","subtopic":"Arithmetic","blooms_level":"Remember","difficulty":"Easy"}`)},
	}
}

func TestLLMSet_AllFacets(t *testing.T) {
	p := keyedProvider(goodReplies())
	set := NewLLMSet(p, nil)
	require.NoError(t, set.Validate())
	ctx := context.Background()

	c, err := set.Correctness.Analyze(ctx, "What is 2+2?")
	require.NoError(t, err)
	assert.True(t, c.IsCorrect)
	assert.NotNil(t, c.Errors)

	l, err := set.Language.Analyze(ctx, "What is 2+2?")
	require.NoError(t, err)
	assert.False(t, l.IssuesFound)
	assert.Equal(t, "Clear.", l.Explanation)

	i, err := set.Improvement.Analyze(ctx, "What is 2+2?")
	require.NoError(t, err)
	assert.Equal(t, "What is the sum of 2 and 2?", i.ImprovedQuestion)

	m, err := set.Metadata.Analyze(ctx, "What is 2+2?")
	require.NoError(t, err)
	assert.Equal(t, Metadata{Topic: "Mathematics", Subtopic: "Arithmetic", BloomsLevel: "Remember", Difficulty: "Easy"}, *m)

	require.Equal(t, 4, p.CallCount())
	temps := map[string]float64{}
	for _, call := range p.Calls {
		temps[call.Schema.Name] = call.Temperature
		assert.Contains(t, call.Messages[0].Content, "What is 2+2?")
	}
	assert.Equal(t, 0.7, temps[CorrectnessSchema.Name])
	assert.Equal(t, 0.1, temps[MetadataSchema.Name])
}

func TestLLMAnalyzer_ErrorKinds(t *testing.T) {
	tests := []struct {
		name  string
		reply llm.MockResponse
		kind  Kind
	}{
		{
			name:  "schema violation",
			reply: llm.MockResponse{Content: json.RawMessage(`{"is_correct":"yes"}`)},
			kind:  KindInvalidInput,
		},
		{
			name:  "incorrect without errors",
			reply: llm.MockResponse{Content: json.RawMessage(`{"is_correct":false,"errors":[],"explanation":"Wrong."}`)},
			kind:  KindInvalidInput,
		},
		{
			name:  "rate limited",
			reply: llm.MockResponse{Err: &llm.ErrRateLimit{RetryAfter: time.Second}},
			kind:  KindUpstreamFailure,
		},
		{
			name:  "provider down",
			reply: llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("503")}},
			kind:  KindUpstreamFailure,
		},
		{
			name:  "rejected",
			reply: llm.MockResponse{Err: &llm.ErrRequestRejected{Err: errors.New("400")}},
			kind:  KindInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := keyedProvider(map[string]llm.MockResponse{CorrectnessSchema.Name: tt.reply})
			set := NewLLMSet(p, nil)

			c, err := set.Correctness.Analyze(context.Background(), "What is 2+2?")
			assert.Nil(t, c)

			var ae *Error
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, NameCorrectness, ae.Analyzer)
			assert.Equal(t, tt.kind, ae.Kind)
		})
	}
}

func TestLLMAnalyzer_Timeout(t *testing.T) {
	p := keyedProvider(map[string]llm.MockResponse{
		LanguageSchema.Name: {Content: json.RawMessage(`{}`), Delay: time.Second},
	})
	set := NewLLMSet(p, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := set.Language.Analyze(ctx, "What is 2+2?")
	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, KindTimeout, ae.Kind)
}

func TestLLMAnalyzer_InputTooLong(t *testing.T) {
	p := keyedProvider(goodReplies())
	set := NewLLMSet(p, map[Name]LLMConfig{
		NameMetadata: {MaxTokens: 256, Temperature: 0.1, MaxInputChars: 10},
	})

	_, err := set.Metadata.Analyze(context.Background(), strings.Repeat("a", 11))
	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, KindInvalidInput, ae.Kind)
	assert.ErrorIs(t, err, ErrInputTooLong)
	assert.Equal(t, 0, p.CallCount())
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify(NameLanguage, nil))

	wrapped := Classify(NameLanguage, &Error{Analyzer: NameMetadata, Kind: KindTimeout})
	assert.Equal(t, NameMetadata, wrapped.Analyzer, "existing analyzer errors pass through")

	e := Classify(NameImprovement, context.DeadlineExceeded)
	assert.Equal(t, KindTimeout, e.Kind)
	assert.Contains(t, e.Error(), "improvement analyzer: timeout")

	e = Classify(NameImprovement, context.Canceled)
	assert.Equal(t, KindUpstreamFailure, e.Kind)
}
