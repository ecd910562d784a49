package question

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// memStore is an in-memory Store for service tests.
type memStore struct {
	mu        sync.Mutex
	seq       int
	questions map[string]Question
	order     []string
	versions  map[string][]Version
}

func newMemStore() *memStore {
	return &memStore{
		questions: make(map[string]Question),
		versions:  make(map[string][]Version),
	}
}

func (m *memStore) GetOrCreate(_ context.Context, id string) (Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == "" {
		m.seq++
		id = fmt.Sprintf("q-%d", m.seq)
	}
	if q, ok := m.questions[id]; ok {
		return q, nil
	}
	q := Question{ID: id, CreatedAt: time.Now().UTC()}
	m.questions[id] = q
	m.order = append(m.order, id)
	return q, nil
}

func (m *memStore) Append(_ context.Context, id string, build VersionFactory) (Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[id]; !ok {
		return Version{}, NotFoundError(id)
	}
	history := m.versions[id]
	v := build(len(history))
	v.QuestionID = id
	m.versions[id] = append(history, v)
	return v, nil
}

func (m *memStore) ListVersions(_ context.Context, id string) ([]Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[id]; !ok {
		return nil, NotFoundError(id)
	}
	return append([]Version{}, m.versions[id]...), nil
}

func (m *memStore) GetVersion(ctx context.Context, id string, n int) (Version, error) {
	vs, err := m.ListVersions(ctx, id)
	if err != nil {
		return Version{}, err
	}
	if n < 1 || n > len(vs) {
		return Version{}, fmt.Errorf("version %d: %w", n, ErrNotFound)
	}
	return vs[n-1], nil
}

func (m *memStore) ListQuestions(context.Context) ([]Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Summary, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, Summary{ID: id, CreatedAt: m.questions[id].CreatedAt, VersionCount: len(m.versions[id])})
	}
	return out, nil
}

func (m *memStore) AllVersions(context.Context) ([]Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Version
	for _, id := range m.order {
		out = append(out, m.versions[id]...)
	}
	return out, nil
}
