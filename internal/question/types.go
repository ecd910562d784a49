// Package question implements the versioned review pipeline: assembling a
// Version from analyzer facets, appending it to a Question's history and
// reading that history back.
package question

import (
	"context"
	"strings"
	"time"

	"github.com/abhisek/qcbank/internal/analyzer"
)

// Actor labels for created_by.
const (
	ActorUser     = "User"
	ActorPipeline = "AI"
)

// IsPipelineActor reports whether createdBy names the pipeline rather
// than a human author.
func IsPipelineActor(createdBy string) bool {
	return strings.EqualFold(strings.TrimSpace(createdBy), ActorPipeline)
}

// Question is the identity that owns an ordered history of Versions.
type Question struct {
	ID        string    `json:"question_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary describes a Question and the size of its history.
type Summary struct {
	ID           string    `json:"question_id"`
	CreatedAt    time.Time `json:"created_at"`
	VersionCount int       `json:"version_count"`
}

// Version is one immutable point-in-time state of a Question. A nil facet
// means its analyzer did not produce a result for this version.
type Version struct {
	QuestionID    string    `json:"question_id"`
	VersionNumber int       `json:"version_number"`
	Timestamp     time.Time `json:"timestamp"`
	CreatedBy     string    `json:"created_by"`
	OriginalText  string    `json:"original_text"`
	ImprovedText  string    `json:"improved_text"`

	Correctness *analyzer.Correctness `json:"correctness_feedback"`
	Language    *analyzer.Language    `json:"language_feedback"`
	Improvement *analyzer.Improvement `json:"improvement_feedback"`
	Metadata    *analyzer.Metadata    `json:"metadata"`
}

// Text returns the authoritative text of the version.
func (v Version) Text() string {
	if IsPipelineActor(v.CreatedBy) {
		return v.ImprovedText
	}
	return v.OriginalText
}

// VersionFactory builds the next Version given the current highest
// version number (0 for an empty history).
type VersionFactory func(prior int) Version

// Store persists Questions and their append-only Version histories.
type Store interface {
	// GetOrCreate returns the Question with id, creating it when missing.
	// An empty id creates a Question with a new identity.
	GetOrCreate(ctx context.Context, id string) (Question, error)

	// Append serializes with other appends to the same Question, calls
	// build with the current maximum version number and stores the result.
	// It fails with ErrNotFound for an unknown Question.
	Append(ctx context.Context, id string, build VersionFactory) (Version, error)

	// ListVersions returns the history ordered by version number.
	ListVersions(ctx context.Context, id string) ([]Version, error)

	// GetVersion returns version n of the Question.
	GetVersion(ctx context.Context, id string, n int) (Version, error)

	// ListQuestions returns every Question, oldest first.
	ListQuestions(ctx context.Context) ([]Summary, error)

	// AllVersions returns every stored Version ordered by Question
	// creation then version number.
	AllVersions(ctx context.Context) ([]Version, error)
}
