package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestWithRateLimit_DisabledReturnsInner(t *testing.T) {
	mock := NewMockProvider()
	if p := WithRateLimit(mock, RateLimitConfig{}); p != Provider(mock) {
		t.Fatalf("expected the inner provider back, got %T", p)
	}
}

func TestWithRateLimit_BurstThenWait(t *testing.T) {
	mock := &MockProvider{Respond: func(Request) MockResponse {
		return MockResponse{Content: json.RawMessage(`{}`)}
	}}
	p := WithRateLimit(mock, RateLimitConfig{RequestsPerSecond: 1, Burst: 2})

	for i := range 2 {
		if _, err := p.Generate(context.Background(), Request{}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	// The bucket is empty; the next token is a second away.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := p.Generate(ctx, Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if mock.CallCount() != 2 {
		t.Fatalf("expected 2 calls to reach the provider, got %d", mock.CallCount())
	}
}
