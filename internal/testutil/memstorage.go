package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/musehq/muse/internal/score"
)

// MemoryStorage is an in-memory implementation of the history storage
// port. It mirrors the SQLite store's ordering contracts (created_at,
// then id) so tests exercise the same determinism guarantees without a
// database file.
type MemoryStorage struct {
	mu      sync.Mutex
	commits map[string]score.Commit
	phrases map[string][]score.Phrase
	heads   map[string]string
}

// NewMemoryStorage creates an empty storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		commits: map[string]score.Commit{},
		phrases: map[string][]score.Phrase{},
		heads:   map[string]string{},
	}
}

// AddCommit records a commit and its phrases. Duplicate ids are ignored,
// matching the SQLite store's ON CONFLICT DO NOTHING behavior.
func (m *MemoryStorage) AddCommit(commit score.Commit, phrases ...score.Phrase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.commits[commit.ID]; exists {
		return
	}
	if commit.Status == "" {
		commit.Status = score.StatusActive
	}
	m.commits[commit.ID] = commit
	m.phrases[commit.ID] = append([]score.Phrase(nil), phrases...)
}

// GetCommit implements the storage port.
func (m *MemoryStorage) GetCommit(_ context.Context, id string) (*score.Commit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.commits[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// GetChildren implements the storage port.
func (m *MemoryStorage) GetChildren(_ context.Context, id string) ([]score.Commit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	children := []score.Commit{}
	for _, c := range m.commits {
		if c.ParentID == id || c.Parent2ID == id {
			children = append(children, c)
		}
	}
	sortCommits(children)
	return children, nil
}

// GetPhrases implements the storage port.
func (m *MemoryStorage) GetPhrases(_ context.Context, commitID string) ([]score.Phrase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]score.Phrase(nil), m.phrases[commitID]...), nil
}

// GetAllCommits implements the storage port.
func (m *MemoryStorage) GetAllCommits(_ context.Context, projectID string) ([]score.Commit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	commits := []score.Commit{}
	for _, c := range m.commits {
		if c.ProjectID == projectID {
			commits = append(commits, c)
		}
	}
	sortCommits(commits)
	return commits, nil
}

// GetHead implements the storage port.
func (m *MemoryStorage) GetHead(_ context.Context, projectID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.heads[projectID], nil
}

// SetHead implements the storage port's compare-and-swap contract.
func (m *MemoryStorage) SetHead(_ context.Context, projectID, expectedOld, newID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.heads[projectID] != expectedOld {
		return false, nil
	}
	m.heads[projectID] = newID
	return true, nil
}

func sortCommits(commits []score.Commit) {
	sort.Slice(commits, func(i, j int) bool {
		if commits[i].CreatedAt != commits[j].CreatedAt {
			return commits[i].CreatedAt < commits[j].CreatedAt
		}
		return commits[i].ID < commits[j].ID
	})
}
