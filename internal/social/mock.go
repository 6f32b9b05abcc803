package social

import (
	"context"
	"fmt"
	"sync"
)

// MockSearcher implements Searcher for testing purposes
type MockSearcher struct {
	mu      sync.Mutex
	name    string
	posts   []Post
	err     error
	failAt  int // Number of posts returned before err, when err is set
	queries []string
	limit   int
}

// NewMockSearcher creates a new mock searcher
func NewMockSearcher() *MockSearcher {
	return &MockSearcher{
		name: "Mock",
		posts: []Post{
			{ID: "m1", Title: "Mock EV plant switches to renewable energy", Body: "Solar roof now covers the assembly hall."},
			{ID: "m2", Title: "Mock recall over battery recycling claims", Body: "Critics question the emission figures."},
			{ID: "m3", Title: "Mock sustainability report released", Body: ""},
		},
	}
}

// Name returns the name of this provider
func (m *MockSearcher) Name() string {
	return m.name
}

// Search returns the configured posts, truncated to limit
func (m *MockSearcher) Search(ctx context.Context, query string, limit int, sort SortMode) ([]Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queries = append(m.queries, query)
	m.limit = limit

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := limit
	if n <= 0 || n > len(m.posts) {
		n = len(m.posts)
	}

	if m.err != nil {
		if m.failAt < n {
			n = m.failAt
		}
		out := make([]Post, n)
		copy(out, m.posts[:n])
		return out, fmt.Errorf("mock search failed: %w", m.err)
	}

	out := make([]Post, n)
	copy(out, m.posts[:n])
	return out, nil
}

// SetPosts allows customization of mock results for testing
func (m *MockSearcher) SetPosts(posts []Post) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts = posts
}

// SetError makes Search fail after returning the first failAt posts
func (m *MockSearcher) SetError(err error, failAt int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	m.failAt = failAt
}

// Queries returns the queries received so far
func (m *MockSearcher) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.queries))
	copy(out, m.queries)
	return out
}

// LastLimit returns the limit passed to the most recent Search
func (m *MockSearcher) LastLimit() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.limit
}
