// Package graph assembles a project's full commit DAG and produces a
// deterministic topological ordering.
//
// Commits live in an id-indexed arena; parent and parent2 are ids looked
// up in the arena, never shared pointers. Ordering uses Kahn's algorithm
// with a min-heap keyed (created_at, id), so ties resolve by creation
// time and then lexicographic id: the same input always yields the same
// order, and every node's parents precede it by construction.
package graph

import (
	"container/heap"
	"fmt"

	"github.com/musehq/muse/internal/score"
)

// Graph is the assembled DAG. Ordered is a valid topological order;
// Head is the id of the final commit in that order, the newest tip.
type Graph struct {
	Head    string
	Ordered []score.Commit

	nodes    map[string]*score.Commit
	children map[string][]string
}

// Node returns the commit with the given id, or nil.
func (g *Graph) Node(id string) *score.Commit {
	return g.nodes[id]
}

// Children returns the ids of commits listing id as a parent, in
// topological output order.
func (g *Graph) Children(id string) []string {
	return g.children[id]
}

// Build assembles the graph from a project's commits.
//
// A parent reference that does not resolve inside the set, a duplicate
// id, or a cycle is corrupted history and returns an IntegrityError.
func Build(commits []score.Commit) (*Graph, error) {
	nodes := make(map[string]*score.Commit, len(commits))
	for i := range commits {
		c := &commits[i]
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("build graph: %w", err)
		}
		if _, dup := nodes[c.ID]; dup {
			return nil, score.NewDuplicateCommitError(c.ID)
		}
		nodes[c.ID] = c
	}

	indegree := make(map[string]int, len(nodes))
	childIDs := make(map[string][]string, len(nodes))
	for _, c := range nodes {
		indegree[c.ID] = 0
	}
	for _, c := range nodes {
		for _, parent := range parentsOf(c) {
			if _, ok := nodes[parent]; !ok {
				return nil, score.NewMissingParentError(c.ID, parent)
			}
			indegree[c.ID]++
			childIDs[parent] = append(childIDs[parent], c.ID)
		}
	}

	ready := &commitHeap{}
	heap.Init(ready)
	for _, c := range nodes {
		if indegree[c.ID] == 0 {
			heap.Push(ready, c)
		}
	}

	g := &Graph{
		Ordered:  make([]score.Commit, 0, len(nodes)),
		nodes:    nodes,
		children: make(map[string][]string, len(childIDs)),
	}
	for ready.Len() > 0 {
		c := heap.Pop(ready).(*score.Commit)
		g.Ordered = append(g.Ordered, *c)
		for _, childID := range childIDs[c.ID] {
			indegree[childID]--
			if indegree[childID] == 0 {
				heap.Push(ready, nodes[childID])
			}
		}
	}

	if len(g.Ordered) != len(nodes) {
		for id, deg := range indegree {
			if deg > 0 {
				return nil, score.NewCycleError(id)
			}
		}
	}

	// Children in output order, for deterministic rendering.
	for _, c := range g.Ordered {
		for _, parent := range parentsOf(&c) {
			g.children[parent] = append(g.children[parent], c.ID)
		}
	}

	if n := len(g.Ordered); n > 0 {
		g.Head = g.Ordered[n-1].ID
	}
	return g, nil
}

func parentsOf(c *score.Commit) []string {
	var parents []string
	if c.ParentID != "" {
		parents = append(parents, c.ParentID)
	}
	if c.Parent2ID != "" {
		parents = append(parents, c.Parent2ID)
	}
	return parents
}

// commitHeap is a min-heap keyed (created_at, id).
type commitHeap []*score.Commit

func (h commitHeap) Len() int { return len(h) }

func (h commitHeap) Less(i, j int) bool {
	if h[i].CreatedAt != h[j].CreatedAt {
		return h[i].CreatedAt < h[j].CreatedAt
	}
	return h[i].ID < h[j].ID
}

func (h commitHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *commitHeap) Push(x any) { *h = append(*h, x.(*score.Commit)) }

func (h *commitHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return c
}
