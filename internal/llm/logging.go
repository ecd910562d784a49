package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// RequestEvent is one recorded model call.
type RequestEvent struct {
	Provider     string
	Model        string
	Purpose      string
	QuestionID   string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	CostUSD      float64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// EventRecorder persists request events. The store implements it.
type EventRecorder interface {
	AppendLLMRequest(ctx context.Context, ev RequestEvent) error
}

// LoggingProvider is a decorator that records every model call.
type LoggingProvider struct {
	inner    Provider
	provider string
	events   EventRecorder
	log      zerolog.Logger
}

// WithLogging wraps a Provider with request event recording.
func WithLogging(p Provider, providerName string, events EventRecorder, log zerolog.Logger) Provider {
	return &LoggingProvider{
		inner:    p,
		provider: providerName,
		events:   events,
		log:      log.With().Str("component", "llm").Logger(),
	}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	resp, err := l.inner.Generate(ctx, req)

	ev := RequestEvent{
		Provider:    l.provider,
		Model:       l.inner.ModelID(),
		Purpose:     PurposeFrom(ctx),
		QuestionID:  QuestionIDFrom(ctx),
		LatencyMs:   time.Since(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}

	if resp != nil {
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			ev.Model = resp.Model
		}
		ev.ResponseBody = string(resp.Content)
		if cost := LookupCost(ev.Model); cost != nil {
			ev.CostUSD = cost.Cost(ev.InputTokens, ev.OutputTokens)
		}
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
	}

	l.log.Debug().
		Str("purpose", ev.Purpose).
		Str("model", ev.Model).
		Int64("latency_ms", ev.LatencyMs).
		Bool("success", ev.Success).
		Msg("model call")

	// The parent context may already be canceled; recording must still land.
	recCtx := context.WithoutCancel(ctx)
	if logErr := l.events.AppendLLMRequest(recCtx, ev); logErr != nil {
		l.log.Warn().Err(logErr).Msg("failed to record model request event")
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// serializeRequest builds a readable representation of the request.
func serializeRequest(req Request) string {
	var b strings.Builder

	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}

	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n", m.Role)
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}

	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n", req.Schema.Name)
			b.Write(def)
			b.WriteString("\n")
		}
	}

	return b.String()
}
