package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/abhisek/qcbank/internal/question"
)

const (
	maxAppendAttempts = 5
	appendRetryDelay  = 10 * time.Millisecond
)

// versionColumns is the scan order used by scanVersion.
var versionColumns = []string{
	"question_id",
	"version_number",
	"timestamp",
	"created_by",
	"original_text",
	"improved_text",
	"correctness_feedback",
	"language_feedback",
	"improvement_feedback",
	"metadata",
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var _ question.Store = (*Store)(nil)

// GetOrCreate implements question.Store. Concurrent calls with the same id
// resolve to a single row.
func (s *Store) GetOrCreate(ctx context.Context, id string) (question.Question, error) {
	if id == "" {
		id = uuid.NewString()
	}

	query, args := sqlite.Insert(questionsTable).
		Columns("id", "created_at").
		Values(id, s.now().UTC()).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing()).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return question.Question{}, fmt.Errorf("insert question: %w", err)
	}

	return s.getQuestion(ctx, s.db, id)
}

func (s *Store) getQuestion(ctx context.Context, q querier, id string) (question.Question, error) {
	query, args := sqlite.Select("id", "created_at").
		From(entsql.Table(questionsTable)).
		Where(entsql.EQ("id", id)).
		Query()

	var out question.Question
	err := q.QueryRowContext(ctx, query, args...).Scan(&out.ID, &out.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return question.Question{}, question.NotFoundError(id)
	}
	if err != nil {
		return question.Question{}, fmt.Errorf("read question: %w", err)
	}
	out.CreatedAt = out.CreatedAt.UTC()
	return out, nil
}

// Append implements question.Store. The per-Question lock covers reading
// the current maximum, building and inserting; conflicts with other
// processes sharing the database are retried.
func (s *Store) Append(ctx context.Context, id string, build question.VersionFactory) (question.Version, error) {
	unlock, err := s.locks.Lock(ctx, id)
	if err != nil {
		return question.Version{}, fmt.Errorf("lock question %q: %w", id, err)
	}
	defer unlock()

	for attempt := 1; ; attempt++ {
		v, err := s.appendOnce(ctx, id, build)
		if err == nil {
			s.metrics.VersionAppended()
			return v, nil
		}
		if !errors.Is(err, question.ErrConcurrencyConflict) || attempt >= maxAppendAttempts {
			return question.Version{}, err
		}

		s.metrics.StoreConflict()
		s.log.Debug().Err(err).Str("question_id", id).Int("attempt", attempt).Msg("append conflict, retrying")

		select {
		case <-ctx.Done():
			return question.Version{}, ctx.Err()
		case <-time.After(time.Duration(attempt) * appendRetryDelay):
		}
	}
}

func (s *Store) appendOnce(ctx context.Context, id string, build question.VersionFactory) (question.Version, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return question.Version{}, conflictError("begin append", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if _, err := s.getQuestion(ctx, tx, id); err != nil {
		return question.Version{}, err
	}

	prior, priorAt, err := latestVersion(ctx, tx, id)
	if err != nil {
		return question.Version{}, conflictError("read latest version", err)
	}

	v := build(prior)
	v.QuestionID = id
	v.VersionNumber = prior + 1
	if v.Timestamp.IsZero() {
		v.Timestamp = s.now()
	}
	if v.Timestamp.Before(priorAt) {
		v.Timestamp = priorAt
	}
	v.Timestamp = v.Timestamp.UTC()

	if err := insertVersion(ctx, tx, v); err != nil {
		return question.Version{}, conflictError("insert version", err)
	}
	if err := tx.Commit(); err != nil {
		return question.Version{}, conflictError("commit version", err)
	}
	committed = true
	return v, nil
}

// latestVersion returns the highest version number and its timestamp, or
// zero values for an empty history.
func latestVersion(ctx context.Context, q querier, id string) (int, time.Time, error) {
	query, args := sqlite.Select("version_number", "timestamp").
		From(entsql.Table(versionsTable)).
		Where(entsql.EQ("question_id", id)).
		OrderBy(entsql.Desc("version_number")).
		Limit(1).
		Query()

	var (
		n  int
		at time.Time
	)
	err := q.QueryRowContext(ctx, query, args...).Scan(&n, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, time.Time{}, nil
	}
	return n, at, err
}

func insertVersion(ctx context.Context, q querier, v question.Version) error {
	var (
		facets = make([]any, 4)
		err    error
	)
	if facets[0], err = encodeFacet(v.Correctness); err != nil {
		return err
	}
	if facets[1], err = encodeFacet(v.Language); err != nil {
		return err
	}
	if facets[2], err = encodeFacet(v.Improvement); err != nil {
		return err
	}
	if facets[3], err = encodeFacet(v.Metadata); err != nil {
		return err
	}

	query, args := sqlite.Insert(versionsTable).
		Columns(versionColumns...).
		Values(append([]any{
			v.QuestionID, v.VersionNumber, v.Timestamp, v.CreatedBy, v.OriginalText, v.ImprovedText,
		}, facets...)...).
		Query()
	_, err = q.ExecContext(ctx, query, args...)
	return err
}

// ListVersions implements question.Store.
func (s *Store) ListVersions(ctx context.Context, id string) ([]question.Version, error) {
	if _, err := s.getQuestion(ctx, s.db, id); err != nil {
		return nil, err
	}

	query, args := sqlite.Select(versionColumns...).
		From(entsql.Table(versionsTable)).
		Where(entsql.EQ("question_id", id)).
		OrderBy("version_number").
		Query()
	return queryVersions(ctx, s.db, query, args)
}

// GetVersion implements question.Store.
func (s *Store) GetVersion(ctx context.Context, id string, n int) (question.Version, error) {
	if _, err := s.getQuestion(ctx, s.db, id); err != nil {
		return question.Version{}, err
	}

	query, args := sqlite.Select(versionColumns...).
		From(entsql.Table(versionsTable)).
		Where(entsql.And(
			entsql.EQ("question_id", id),
			entsql.EQ("version_number", n),
		)).
		Query()
	vs, err := queryVersions(ctx, s.db, query, args)
	if err != nil {
		return question.Version{}, err
	}
	if len(vs) == 0 {
		return question.Version{}, fmt.Errorf("question %q version %d: %w", id, n, question.ErrNotFound)
	}
	return vs[0], nil
}

// ListQuestions implements question.Store.
func (s *Store) ListQuestions(ctx context.Context) ([]question.Summary, error) {
	q := entsql.Table(questionsTable).As("q")
	v := entsql.Table(versionsTable).As("v")
	query, args := sqlite.Select(
		q.C("id"),
		q.C("created_at"),
		entsql.As(entsql.Count(v.C("id")), "version_count"),
	).
		From(q).
		LeftJoin(v).On(q.C("id"), v.C("question_id")).
		GroupBy(q.C("id"), q.C("created_at")).
		OrderBy(q.C("created_at"), q.C("id")).
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	out := []question.Summary{}
	for rows.Next() {
		var sum question.Summary
		if err := rows.Scan(&sum.ID, &sum.CreatedAt, &sum.VersionCount); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		sum.CreatedAt = sum.CreatedAt.UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}

// AllVersions implements question.Store.
func (s *Store) AllVersions(ctx context.Context) ([]question.Version, error) {
	q := entsql.Table(questionsTable).As("q")
	v := entsql.Table(versionsTable).As("v")
	cols := make([]string, len(versionColumns))
	for i, c := range versionColumns {
		cols[i] = v.C(c)
	}

	query, args := sqlite.Select(cols...).
		From(v).
		Join(q).On(v.C("question_id"), q.C("id")).
		OrderBy(q.C("created_at"), q.C("id"), v.C("version_number")).
		Query()
	return queryVersions(ctx, s.db, query, args)
}

func queryVersions(ctx context.Context, q querier, query string, args []any) ([]question.Version, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	defer rows.Close()

	out := []question.Version{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanVersion(rows *sql.Rows) (question.Version, error) {
	var (
		v          question.Version
		c, l, i, m sql.NullString
	)
	err := rows.Scan(
		&v.QuestionID, &v.VersionNumber, &v.Timestamp, &v.CreatedBy,
		&v.OriginalText, &v.ImprovedText, &c, &l, &i, &m,
	)
	if err != nil {
		return question.Version{}, fmt.Errorf("scan version: %w", err)
	}
	v.Timestamp = v.Timestamp.UTC()

	if err := decodeFacet(c, &v.Correctness); err != nil {
		return question.Version{}, fmt.Errorf("decode correctness_feedback: %w", err)
	}
	if err := decodeFacet(l, &v.Language); err != nil {
		return question.Version{}, fmt.Errorf("decode language_feedback: %w", err)
	}
	if err := decodeFacet(i, &v.Improvement); err != nil {
		return question.Version{}, fmt.Errorf("decode improvement_feedback: %w", err)
	}
	if err := decodeFacet(m, &v.Metadata); err != nil {
		return question.Version{}, fmt.Errorf("decode metadata: %w", err)
	}
	return v, nil
}

// encodeFacet returns the JSON text for a facet, or nil for an absent one.
func encodeFacet[T any](f *T) (any, error) {
	if f == nil {
		return nil, nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode facet: %w", err)
	}
	return string(b), nil
}

func decodeFacet[T any](ns sql.NullString, dst **T) error {
	if !ns.Valid || ns.String == "" || ns.String == "null" {
		return nil
	}
	var out T
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		return err
	}
	*dst = &out
	return nil
}
