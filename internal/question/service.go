package question

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/abhisek/qcbank/internal/llm"
)

// SubmitRequest is a new piece of question text for a Question.
type SubmitRequest struct {
	Text      string
	CreatedBy string
	// QuestionID selects an existing Question. Empty creates a new one;
	// an unknown id creates a Question under that id.
	QuestionID string
}

// SubmitResult is the newly appended Version with the full history that
// ends in it.
type SubmitResult struct {
	QuestionID string    `json:"question_id"`
	Version    Version   `json:"version"`
	History    []Version `json:"version_history"`
}

// Service is the entry point for writing and reading Question histories.
type Service struct {
	store   Store
	asm     *Assembler
	log     zerolog.Logger
	metrics Metrics
}

// NewService creates a Service. m may be nil.
func NewService(store Store, asm *Assembler, log zerolog.Logger, m Metrics) *Service {
	if m == nil {
		m = nopMetrics{}
	}
	return &Service{
		store:   store,
		asm:     asm,
		log:     log.With().Str("component", "pipeline").Logger(),
		metrics: m,
	}
}

// Submit validates req, runs the analyzers and appends the resulting
// Version. The analyzers run outside the per-Question lock, so concurrent
// submissions to one Question only serialize on the append. If ctx ends
// while the analyzers run, nothing is appended.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	res, err := s.submit(ctx, req)
	s.metrics.SubmissionFinished(submissionStatus(err))
	return res, err
}

func (s *Service) submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, &ValidationError{Field: "question_text", Message: "must not be empty"}
	}
	createdBy := strings.TrimSpace(req.CreatedBy)
	if createdBy == "" {
		createdBy = ActorUser
	}

	q, err := s.store.GetOrCreate(ctx, strings.TrimSpace(req.QuestionID))
	if err != nil {
		return nil, fmt.Errorf("resolve question: %w", err)
	}
	ctx = llm.WithQuestionID(ctx, q.ID)

	facets, err := s.asm.Analyze(ctx, text)
	if err != nil {
		s.log.Info().Str("question_id", q.ID).Msg("submission canceled, discarding analysis")
		return nil, fmt.Errorf("submission canceled: %w", err)
	}

	now := s.asm.now()
	v, err := s.store.Append(ctx, q.ID, func(prior int) Version {
		v := s.asm.Build(facets, text, createdBy, prior, now)
		v.QuestionID = q.ID
		return v
	})
	if err != nil {
		return nil, fmt.Errorf("append version: %w", err)
	}

	// The version is committed; a late cancel must not turn that into a failure.
	history, err := s.store.ListVersions(context.WithoutCancel(ctx), q.ID)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	s.log.Info().
		Str("question_id", q.ID).
		Int("version", v.VersionNumber).
		Str("created_by", createdBy).
		Int("failed_facets", len(facets.Failures)).
		Msg("version appended")

	return &SubmitResult{QuestionID: q.ID, Version: v, History: history}, nil
}

// Improve submits the most recent improvement suggestion of a Question as
// a pipeline-authored version.
func (s *Service) Improve(ctx context.Context, id string) (*SubmitResult, error) {
	history, err := s.store.ListVersions(ctx, id)
	if err != nil {
		return nil, err
	}

	for i := len(history) - 1; i >= 0; i-- {
		if imp := history[i].Improvement; imp != nil {
			return s.Submit(ctx, SubmitRequest{
				Text:       imp.ImprovedQuestion,
				CreatedBy:  ActorPipeline,
				QuestionID: id,
			})
		}
	}
	return nil, &ValidationError{Field: "question_id", Message: "no improvement suggestion available"}
}

// Versions returns the full history of a Question, oldest first.
func (s *Service) Versions(ctx context.Context, id string) ([]Version, error) {
	return s.store.ListVersions(ctx, id)
}

// Version returns a single version of a Question.
func (s *Service) Version(ctx context.Context, id string, n int) (Version, error) {
	if n < 1 {
		return Version{}, &ValidationError{Field: "version_number", Message: "must be a positive integer"}
	}
	return s.store.GetVersion(ctx, id, n)
}

// Questions lists every known Question.
func (s *Service) Questions(ctx context.Context) ([]Summary, error) {
	return s.store.ListQuestions(ctx)
}

func submissionStatus(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
