// Package analyzer defines the review facets and the analyzers that
// compute them from a question's text.
//
// There are four facets: correctness, language, improvement and metadata.
// Each analyzer is independent of the others. An analyzer either returns a
// complete facet or an *Error; it never returns a partially filled facet.
package analyzer

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhisek/qcbank/internal/llm"
)

// Name identifies an analyzer and the facet it produces.
type Name string

const (
	NameCorrectness Name = "correctness"
	NameLanguage    Name = "language"
	NameImprovement Name = "improvement"
	NameMetadata    Name = "metadata"
)

// Names lists every analyzer in display order.
var Names = []Name{NameCorrectness, NameLanguage, NameImprovement, NameMetadata}

// Facet is implemented by every facet result.
type Facet interface {
	// Complete reports whether every required field is populated.
	Complete() bool
}

// Analyzer computes one facet from question text. Implementations must be
// safe for concurrent use and must return when ctx is done.
type Analyzer[F Facet] interface {
	Analyze(ctx context.Context, text string) (F, error)
}

// Func adapts a plain function to the Analyzer interface.
type Func[F Facet] func(ctx context.Context, text string) (F, error)

func (f Func[F]) Analyze(ctx context.Context, text string) (F, error) {
	return f(ctx, text)
}

// Set bundles one analyzer per facet.
type Set struct {
	Correctness Analyzer[*Correctness]
	Language    Analyzer[*Language]
	Improvement Analyzer[*Improvement]
	Metadata    Analyzer[*Metadata]
}

// Validate reports a missing analyzer.
func (s Set) Validate() error {
	switch {
	case s.Correctness == nil:
		return fmt.Errorf("analyzer set: missing %s analyzer", NameCorrectness)
	case s.Language == nil:
		return fmt.Errorf("analyzer set: missing %s analyzer", NameLanguage)
	case s.Improvement == nil:
		return fmt.Errorf("analyzer set: missing %s analyzer", NameImprovement)
	case s.Metadata == nil:
		return fmt.Errorf("analyzer set: missing %s analyzer", NameMetadata)
	}
	return nil
}

// Kind classifies an analyzer failure.
type Kind string

const (
	KindTimeout         Kind = "timeout"
	KindUpstreamFailure Kind = "upstream_failure"
	KindInvalidInput    Kind = "invalid_input"
)

// Error is an analyzer failure. It is data for the caller, which drops the
// facet and carries on.
type Error struct {
	Analyzer Name
	Kind     Kind
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s analyzer: %s: %v", e.Analyzer, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var (
	// ErrIncomplete is wrapped when an analyzer produced a facet with
	// required fields missing.
	ErrIncomplete = errors.New("incomplete facet")

	// ErrInputTooLong is returned for question text above the analyzer's
	// input limit.
	ErrInputTooLong = errors.New("question text too long")
)

// Classify converts any analyzer error into an *Error of the right kind.
func Classify(name Name, err error) *Error {
	if err == nil {
		return nil
	}

	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}

	kind := KindUpstreamFailure
	var (
		rejected *llm.ErrRequestRejected
		invalid  *llm.ErrInvalidResponse
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &rejected), errors.As(err, &invalid),
		errors.Is(err, ErrIncomplete), errors.Is(err, ErrInputTooLong):
		kind = KindInvalidInput
	}
	return &Error{Analyzer: name, Kind: kind, Err: err}
}
