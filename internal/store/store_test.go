package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sqlitedrv "modernc.org/sqlite"

	"github.com/abhisek/qcbank/internal/analyzer"
	"github.com/abhisek/qcbank/internal/llm"
	"github.com/abhisek/qcbank/internal/question"
)

type countingMetrics struct {
	mu        sync.Mutex
	appended  int
	conflicts int
}

func (c *countingMetrics) VersionAppended() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appended++
}

func (c *countingMetrics) StoreConflict() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conflicts++
}

func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "qcbank.db"), opts...)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func userVersion(text string) question.VersionFactory {
	return func(prior int) question.Version {
		return question.Version{
			VersionNumber: prior + 1,
			Timestamp:     time.Now().UTC(),
			CreatedBy:     question.ActorUser,
			OriginalText:  text,
			Correctness:   &analyzer.Correctness{IsCorrect: true, Errors: []string{}, Explanation: "fine"},
			Metadata:      &analyzer.Metadata{Topic: "Mathematics", Difficulty: "Easy"},
		}
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
		{"busy_timeout", "5000"},
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qcbank.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.GetOrCreate(ctx, "q1")
	require.NoError(t, err)
	_, err = s.Append(ctx, "q1", userVersion("What is 2+2?"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	vs, err := s.ListVersions(ctx, "q1")
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "What is 2+2?", vs[0].OriginalText)
}

func TestGetOrCreate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	q, err := s.GetOrCreate(ctx, "")
	require.NoError(t, err)
	_, err = uuid.Parse(q.ID)
	assert.NoError(t, err, "system-assigned ids are UUIDs")

	again, err := s.GetOrCreate(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.ID, again.ID)
	assert.True(t, q.CreatedAt.Equal(again.CreatedAt))

	other, err := s.GetOrCreate(ctx, "")
	require.NoError(t, err)
	assert.NotEqual(t, q.ID, other.ID)

	named, err := s.GetOrCreate(ctx, "bank-7")
	require.NoError(t, err)
	assert.Equal(t, "bank-7", named.ID)
}

func TestGetOrCreate_ConcurrentSameID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.GetOrCreate(ctx, "same")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	qs, err := s.ListQuestions(ctx)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "same", qs[0].ID)
}

func TestAppendAndList(t *testing.T) {
	m := &countingMetrics{}
	s := openTestStore(t, WithMetrics(m))
	ctx := context.Background()

	q, err := s.GetOrCreate(ctx, "")
	require.NoError(t, err)

	empty, err := s.ListVersions(ctx, q.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	var priors []int
	for i := 0; i < 3; i++ {
		v, err := s.Append(ctx, q.ID, func(prior int) question.Version {
			priors = append(priors, prior)
			return userVersion(fmt.Sprintf("draft %d", prior+1))(prior)
		})
		require.NoError(t, err)
		assert.Equal(t, i+1, v.VersionNumber)
		assert.Equal(t, q.ID, v.QuestionID)
	}
	assert.Equal(t, []int{0, 1, 2}, priors)
	assert.Equal(t, 3, m.appended)

	vs, err := s.ListVersions(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, vs, 3)
	for i, v := range vs {
		assert.Equal(t, i+1, v.VersionNumber)
		assert.Equal(t, fmt.Sprintf("draft %d", i+1), v.OriginalText)
		assert.Nil(t, v.Language)
		require.NotNil(t, v.Correctness)
		assert.Equal(t, []string{}, v.Correctness.Errors)
	}

	first, err := json.Marshal(vs)
	require.NoError(t, err)
	again, err := s.ListVersions(ctx, q.ID)
	require.NoError(t, err)
	second, err := json.Marshal(again)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second), "repeated reads are identical")
}

func TestAppend_ReturnsStoredVersion(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.GetOrCreate(ctx, "q1")
	require.NoError(t, err)

	v, err := s.Append(ctx, "q1", userVersion("What is 2+2?"))
	require.NoError(t, err)

	stored, err := s.GetVersion(ctx, "q1", 1)
	require.NoError(t, err)

	want, _ := json.Marshal(v)
	got, _ := json.Marshal(stored)
	assert.JSONEq(t, string(want), string(got))
}

func TestAppend_UnknownQuestion(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	called := false
	_, err := s.Append(ctx, "missing", func(prior int) question.Version {
		called = true
		return question.Version{}
	})
	assert.ErrorIs(t, err, question.ErrNotFound)
	assert.False(t, called)

	_, err = s.ListVersions(ctx, "missing")
	assert.ErrorIs(t, err, question.ErrNotFound)

	_, err = s.GetVersion(ctx, "missing", 1)
	assert.ErrorIs(t, err, question.ErrNotFound)
}

func TestAppend_TimestampNeverGoesBackwards(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.GetOrCreate(ctx, "q1")
	require.NoError(t, err)

	late := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = s.Append(ctx, "q1", func(prior int) question.Version {
		return question.Version{Timestamp: late, CreatedBy: question.ActorUser, OriginalText: "a"}
	})
	require.NoError(t, err)

	v, err := s.Append(ctx, "q1", func(prior int) question.Version {
		return question.Version{Timestamp: late.Add(-time.Hour), CreatedBy: question.ActorUser, OriginalText: "b"}
	})
	require.NoError(t, err)
	assert.True(t, v.Timestamp.Equal(late))
	assert.Equal(t, 2, v.VersionNumber)
}

func TestAppend_ConcurrentIsGaplessPerQuestion(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ids := []string{"alpha", "beta"}
	for _, id := range ids {
		_, err := s.GetOrCreate(ctx, id)
		require.NoError(t, err)
	}

	const perQuestion = 15
	var wg sync.WaitGroup
	for _, id := range ids {
		for i := 0; i < perQuestion; i++ {
			wg.Add(1)
			go func(id string, i int) {
				defer wg.Done()
				_, err := s.Append(ctx, id, userVersion(fmt.Sprintf("%s %d", id, i)))
				assert.NoError(t, err)
			}(id, i)
		}
	}
	wg.Wait()

	for _, id := range ids {
		vs, err := s.ListVersions(ctx, id)
		require.NoError(t, err)
		require.Len(t, vs, perQuestion)
		for i, v := range vs {
			assert.Equal(t, i+1, v.VersionNumber, "question %s", id)
			if i > 0 {
				assert.False(t, v.Timestamp.Before(vs[i-1].Timestamp))
			}
		}
	}
	assert.Zero(t, s.locks.size(), "locks are released")
}

func TestGetVersion(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.GetOrCreate(ctx, "q1")
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := s.Append(ctx, "q1", userVersion(fmt.Sprintf("v%d", i+1)))
		require.NoError(t, err)
	}

	v, err := s.GetVersion(ctx, "q1", 2)
	require.NoError(t, err)
	assert.Equal(t, "v2", v.OriginalText)

	_, err = s.GetVersion(ctx, "q1", 3)
	assert.ErrorIs(t, err, question.ErrNotFound)
}

func TestListQuestionsAndAllVersions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for _, id := range []string{"first", "second", "empty"} {
		_, err := s.GetOrCreate(ctx, id)
		require.NoError(t, err)
	}
	_, err := s.Append(ctx, "second", userVersion("s1"))
	require.NoError(t, err)
	_, err = s.Append(ctx, "first", userVersion("f1"))
	require.NoError(t, err)
	_, err = s.Append(ctx, "first", userVersion("f2"))
	require.NoError(t, err)

	qs, err := s.ListQuestions(ctx)
	require.NoError(t, err)
	require.Len(t, qs, 3)
	assert.Equal(t, "first", qs[0].ID)
	assert.Equal(t, 2, qs[0].VersionCount)
	assert.Equal(t, "second", qs[1].ID)
	assert.Equal(t, 1, qs[1].VersionCount)
	assert.Equal(t, 0, qs[2].VersionCount)

	all, err := s.AllVersions(ctx)
	require.NoError(t, err)
	var got []string
	for _, v := range all {
		got = append(got, v.OriginalText)
	}
	assert.Equal(t, []string{"f1", "f2", "s1"}, got)
}

func TestLLMEvents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	events := []llm.RequestEvent{
		{Provider: "gemini", Model: "gemini-2.0-flash", Purpose: "correctness", QuestionID: "q1", InputTokens: 100, OutputTokens: 20, LatencyMs: 300, CostUSD: 0.001, Success: true, RequestBody: "req", ResponseBody: "resp"},
		{Provider: "gemini", Model: "gemini-2.0-flash", Purpose: "metadata", QuestionID: "q1", InputTokens: 50, OutputTokens: 10, LatencyMs: 100, Success: true},
		{Provider: "gemini", Model: "gemini-2.0-flash", Purpose: "metadata", QuestionID: "q2", InputTokens: 70, LatencyMs: 500, ErrorMessage: "rate limited"},
	}
	for _, ev := range events {
		require.NoError(t, s.AppendLLMRequest(ctx, ev))
	}

	all, err := s.QueryLLMEvents(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 3, all[0].ID, "newest first")
	assert.False(t, all[0].Success)
	assert.Equal(t, "rate limited", all[0].ErrorMessage)

	meta, err := s.QueryLLMEvents(ctx, QueryOpts{Purpose: "metadata", Limit: 1})
	require.NoError(t, err)
	require.Len(t, meta, 1)
	assert.Equal(t, "q2", meta[0].QuestionID)

	byQuestion, err := s.QueryLLMEvents(ctx, QueryOpts{QuestionID: "q1", After: 1})
	require.NoError(t, err)
	require.Len(t, byQuestion, 1)
	assert.Equal(t, "metadata", byQuestion[0].Purpose)

	e, err := s.GetLLMEvent(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "req", e.RequestBody)
	assert.Equal(t, "resp", e.ResponseBody)
	assert.InDelta(t, 0.001, e.CostUSD, 1e-12)

	missing, err := s.GetLLMEvent(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)

	usage, err := s.LLMUsageByPurpose(ctx)
	require.NoError(t, err)
	require.Len(t, usage, 2)
	assert.Equal(t, PurposeUsage{Purpose: "correctness", Calls: 1, InputTokens: 100, OutputTokens: 20, AvgLatencyMs: 300}, usage[0])
	assert.Equal(t, PurposeUsage{Purpose: "metadata", Calls: 2, InputTokens: 120, OutputTokens: 10, AvgLatencyMs: 300}, usage[1])

	models, err := s.LLMUsageByModel(ctx)
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, 3, models[0].Calls)
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()
	ctx := context.Background()

	unlockA, err := k.Lock(ctx, "a")
	require.NoError(t, err)

	unlockB, err := k.Lock(ctx, "b")
	require.NoError(t, err, "other keys are not blocked")
	unlockB()

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = k.Lock(waitCtx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlockA()
	assert.Zero(t, k.size())

	unlockA, err = k.Lock(ctx, "a")
	require.NoError(t, err)
	unlockA()
}

func TestIsConflict(t *testing.T) {
	assert.True(t, isConflict(fmt.Errorf("exec: database is locked (5) (SQLITE_BUSY)")))
	assert.False(t, isConflict(fmt.Errorf("no such table")))

	err := conflictError("insert version", fmt.Errorf("database is locked"))
	assert.ErrorIs(t, err, question.ErrConcurrencyConflict)
}

func TestIsConflict_DriverErrors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	insert := "INSERT INTO questions (id, created_at) VALUES (?, ?)"
	_, err := s.db.ExecContext(ctx, insert, "dup", time.Now().UTC())
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, insert, "dup", time.Now().UTC())
	require.Error(t, err)

	var se *sqlitedrv.Error
	require.ErrorAs(t, err, &se)
	assert.True(t, isConflict(err))
	assert.ErrorIs(t, conflictError("insert question", err), question.ErrConcurrencyConflict)

	_, err = s.db.ExecContext(ctx, "SELECT missing FROM questions")
	require.Error(t, err)
	require.ErrorAs(t, err, &se)
	assert.False(t, isConflict(err))
}

func TestListQuestions_CountsEveryVersion(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"bare", "busy"} {
		_, err := s.GetOrCreate(ctx, id)
		require.NoError(t, err)
	}
	for i := 0; i < 4; i++ {
		_, err := s.Append(ctx, "busy", userVersion(fmt.Sprintf("v%d", i)))
		require.NoError(t, err)
	}

	qs, err := s.ListQuestions(ctx)
	require.NoError(t, err)
	counts := map[string]int{}
	for _, q := range qs {
		counts[q.ID] = q.VersionCount
		assert.False(t, q.CreatedAt.IsZero())
	}
	assert.Equal(t, map[string]int{"bare": 0, "busy": 4}, counts)
}
