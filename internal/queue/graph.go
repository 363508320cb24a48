// Package queue provides the dependency-aware admission controller that
// decides which tasks may move from TODO to DOING.
package queue

import (
	"errors"
	"fmt"

	"github.com/ShayCichocki/teamflow/pkg/models"
)

// ErrCycleDetected indicates a circular dependency in the task set.
var ErrCycleDetected = errors.New("circular dependency detected")

// Graph is the directed acyclic dependency graph over a task set. Edges point
// from a task to the tasks it depends on. The graph is built once at team
// construction and is immutable afterwards; readiness is computed against
// live task statuses.
type Graph struct {
	// order preserves declaration order of task IDs.
	order []string
	// edges maps task ID to the IDs it depends on.
	edges map[string][]string
}

// BuildGraph validates the task set and constructs the dependency graph.
// Unknown dependency references and cycles are configuration errors.
func BuildGraph(tasks []models.Task) (*Graph, error) {
	g := &Graph{edges: make(map[string][]string, len(tasks))}

	known := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if known[t.ID] {
			return nil, fmt.Errorf("duplicate task id %s", t.ID)
		}
		known[t.ID] = true
		g.order = append(g.order, t.ID)
	}

	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			if !known[dep] {
				return nil, fmt.Errorf("task %s depends on unknown task %s", t.ID, dep)
			}
			g.edges[t.ID] = append(g.edges[t.ID], dep)
		}
	}

	if g.hasCycle() {
		return nil, ErrCycleDetected
	}
	return g, nil
}

// hasCycle detects back edges with depth-first search and coloring.
func (g *Graph) hasCycle() bool {
	// 0 = white (unvisited), 1 = gray (in progress), 2 = black (done).
	colors := make(map[string]int, len(g.order))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1
		for _, dep := range g.edges[id] {
			switch colors[dep] {
			case 1:
				return true
			case 0:
				if visit(dep) {
					return true
				}
			}
		}
		colors[id] = 2
		return false
	}

	for _, id := range g.order {
		if colors[id] == 0 {
			if visit(id) {
				return true
			}
		}
	}
	return false
}

// Dependencies returns the IDs the given task depends on.
func (g *Graph) Dependencies(id string) []string {
	return g.edges[id]
}

// Dependents returns the IDs of tasks that depend on the given task.
func (g *Graph) Dependents(id string) []string {
	var out []string
	for _, candidate := range g.order {
		for _, dep := range g.edges[candidate] {
			if dep == id {
				out = append(out, candidate)
				break
			}
		}
	}
	return out
}

// Order returns the task IDs in declaration order.
func (g *Graph) Order() []string {
	return g.order
}
