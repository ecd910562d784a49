package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestMockProvider_ReturnsCannedResponses(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"is_correct":true}`), Usage: Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
		MockResponse{Content: json.RawMessage(`{"topic":"Algebra"}`)},
	)

	resp1, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "first"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp1.Content) != `{"is_correct":true}` {
		t.Fatalf("unexpected content %s", resp1.Content)
	}
	if resp1.Usage.InputTokens != 10 {
		t.Fatalf("expected 10 input tokens, got %d", resp1.Usage.InputTokens)
	}
	if resp1.StopReason != "end" {
		t.Fatalf("expected stop reason 'end', got %q", resp1.StopReason)
	}

	resp2, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "second"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp2.Content) != `{"topic":"Algebra"}` {
		t.Fatalf("unexpected content %s", resp2.Content)
	}
}

func TestMockProvider_EmptyQueueReturnsError(t *testing.T) {
	mock := NewMockProvider()
	_, err := mock.Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got: %T", err)
	}
}

func TestMockProvider_RespondKeysOnSchema(t *testing.T) {
	mock := &MockProvider{Respond: func(req Request) MockResponse {
		return MockResponse{Content: json.RawMessage(`{"schema":"` + req.Schema.Name + `"}`)}
	}}

	resp, err := mock.Generate(context.Background(), Request{Schema: &Schema{Name: "mock-keyed", Definition: map[string]any{"type": "object"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"schema":"mock-keyed"}` {
		t.Fatalf("unexpected content %s", resp.Content)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
}

func TestMockProvider_DelayHonorsContext(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`), Delay: time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := mock.Generate(ctx, Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestMockProvider_StripsMarkdownFence(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage("Here you go:\n```json\n{\"topic\":\"Optics\"}\n```")})

	resp, err := mock.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"topic":"Optics"}` {
		t.Fatalf("unexpected content %s", resp.Content)
	}
}

func TestContextLabels(t *testing.T) {
	ctx := context.Background()
	if p := PurposeFrom(ctx); p != "unknown" {
		t.Fatalf("expected 'unknown', got %q", p)
	}
	if id := QuestionIDFrom(ctx); id != "" {
		t.Fatalf("expected empty question id, got %q", id)
	}

	ctx = WithQuestionID(WithPurpose(ctx, "correctness"), "q-1")
	if p := PurposeFrom(ctx); p != "correctness" {
		t.Fatalf("expected 'correctness', got %q", p)
	}
	if id := QuestionIDFrom(ctx); id != "q-1" {
		t.Fatalf("expected 'q-1', got %q", id)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"gemini without key", Config{Provider: ProviderGemini}, true},
		{"gemini with key", Config{Provider: ProviderGemini, Gemini: GeminiConfig{APIKey: "k"}}, false},
		{"anthropic without key", Config{Provider: ProviderAnthropic}, true},
		{"openai with key", Config{Provider: ProviderOpenAI, OpenAI: OpenAIConfig{APIKey: "sk-test"}}, false},
		{"openrouter without key", Config{Provider: ProviderOpenRouter}, true},
		{"mock needs no key", Config{Provider: ProviderMock}, false},
		{"none needs no key", Config{Provider: ProviderNone}, false},
		{"unknown provider", Config{Provider: "unknown"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("QCBANK_LLM_PROVIDER", "openai")
	t.Setenv("QCBANK_OPENAI_API_KEY", "sk-env")
	t.Setenv("QCBANK_LLM_RPS", "2.5")

	cfg := ConfigFromEnv()
	if cfg.Provider != ProviderOpenAI {
		t.Fatalf("provider = %q, want openai", cfg.Provider)
	}
	if cfg.OpenAI.APIKey != "sk-env" {
		t.Fatalf("api key = %q", cfg.OpenAI.APIKey)
	}
	if cfg.RateLimit.RequestsPerSecond != 2.5 {
		t.Fatalf("rps = %v, want 2.5", cfg.RateLimit.RequestsPerSecond)
	}
	if cfg.Gemini.Model != "gemini-flash" {
		t.Fatalf("gemini default model lost: %q", cfg.Gemini.Model)
	}
}

func TestDiscoverConfig(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OPENROUTER_API_KEY", "")

	cfg := DefaultConfig()
	if !DiscoverConfig(&cfg) {
		t.Fatal("expected a key to be discovered")
	}
	if cfg.Provider != ProviderAnthropic || cfg.Anthropic.APIKey != "sk-ant" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestNewProvider_None(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Provider: ProviderNone}, nil, testLogger())
	if err == nil {
		t.Fatal("expected error for provider none")
	}
}
