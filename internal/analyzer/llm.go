package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/abhisek/qcbank/internal/llm"
)

// DefaultMaxInputChars bounds the question text sent to a model.
const DefaultMaxInputChars = 8000

// LLMConfig tunes a single LLM-backed analyzer.
type LLMConfig struct {
	MaxTokens     int
	Temperature   float64
	MaxInputChars int
}

// DefaultLLMConfigs returns per-analyzer defaults.
func DefaultLLMConfigs() map[Name]LLMConfig {
	return map[Name]LLMConfig{
		NameCorrectness: {MaxTokens: 512, Temperature: 0.7, MaxInputChars: DefaultMaxInputChars},
		NameLanguage:    {MaxTokens: 512, Temperature: 0.3, MaxInputChars: DefaultMaxInputChars},
		NameImprovement: {MaxTokens: 1024, Temperature: 0.5, MaxInputChars: DefaultMaxInputChars},
		NameMetadata:    {MaxTokens: 256, Temperature: 0.1, MaxInputChars: DefaultMaxInputChars},
	}
}

type llmSpec struct {
	name   Name
	system string
	schema *llm.Schema
}

// LLMAnalyzer asks a model for one facet and decodes its JSON response.
type LLMAnalyzer[F Facet] struct {
	provider llm.Provider
	spec     llmSpec
	cfg      LLMConfig
	decode   func(json.RawMessage) (F, error)
}

// Analyze implements Analyzer.
func (a *LLMAnalyzer[F]) Analyze(ctx context.Context, text string) (F, error) {
	var zero F
	ctx = llm.WithPurpose(ctx, string(a.spec.name))

	if a.cfg.MaxInputChars > 0 && utf8.RuneCountInString(text) > a.cfg.MaxInputChars {
		return zero, Classify(a.spec.name, fmt.Errorf("%w: %d > %d characters",
			ErrInputTooLong, utf8.RuneCountInString(text), a.cfg.MaxInputChars))
	}

	msg, err := buildQuestionMessage(text)
	if err != nil {
		return zero, fmt.Errorf("build %s prompt: %w", a.spec.name, err)
	}

	resp, err := a.provider.Generate(ctx, llm.Request{
		System:      a.spec.system,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: msg}},
		Schema:      a.spec.schema,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
	})
	if err != nil {
		return zero, Classify(a.spec.name, err)
	}

	facet, err := a.decode(resp.Content)
	if err != nil {
		return zero, Classify(a.spec.name, &llm.ErrInvalidResponse{Content: resp.Content, Err: err})
	}
	if !facet.Complete() {
		return zero, Classify(a.spec.name, ErrIncomplete)
	}
	return facet, nil
}

func newLLMAnalyzer[F Facet](p llm.Provider, spec llmSpec, cfg LLMConfig, decode func(json.RawMessage) (F, error)) *LLMAnalyzer[F] {
	return &LLMAnalyzer[F]{provider: p, spec: spec, cfg: cfg, decode: decode}
}

// NewLLMSet builds all four analyzers on one provider. Missing entries in
// cfgs fall back to DefaultLLMConfigs.
func NewLLMSet(p llm.Provider, cfgs map[Name]LLMConfig) Set {
	defaults := DefaultLLMConfigs()
	cfgFor := func(n Name) LLMConfig {
		if c, ok := cfgs[n]; ok {
			return c
		}
		return defaults[n]
	}

	return Set{
		Correctness: newLLMAnalyzer(p, llmSpec{NameCorrectness, correctnessSystemPrompt, CorrectnessSchema},
			cfgFor(NameCorrectness), decodeCorrectness),
		Language: newLLMAnalyzer(p, llmSpec{NameLanguage, languageSystemPrompt, LanguageSchema},
			cfgFor(NameLanguage), decodeLanguage),
		Improvement: newLLMAnalyzer(p, llmSpec{NameImprovement, improvementSystemPrompt, ImprovementSchema},
			cfgFor(NameImprovement), decodeImprovement),
		Metadata: newLLMAnalyzer(p, llmSpec{NameMetadata, metadataSystemPrompt, MetadataSchema},
			cfgFor(NameMetadata), decodeMetadata),
	}
}

func decodeCorrectness(raw json.RawMessage) (*Correctness, error) {
	var c Correctness
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	c.Errors = normalizeList(c.Errors)
	return &c, nil
}

func decodeLanguage(raw json.RawMessage) (*Language, error) {
	var l Language
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, err
	}
	l.Feedback = normalizeList(l.Feedback)
	return &l, nil
}

func decodeImprovement(raw json.RawMessage) (*Improvement, error) {
	var i Improvement
	if err := json.Unmarshal(raw, &i); err != nil {
		return nil, err
	}
	return &i, nil
}

func decodeMetadata(raw json.RawMessage) (*Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
