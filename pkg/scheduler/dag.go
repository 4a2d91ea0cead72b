package scheduler

import (
	"sort"

	mderrors "github.com/checkdag/checkdag/pkg/model/errors"
)

// graph holds the static depends_on edges plus the reverse (children) index,
// grounded on the teacher's buildDAG/DAGIndex
// (internal/application/engine/dag_executor.go): nodes, edges, in-degree,
// and a children lookup, built once per run from the (already validated at
// config-load time) CheckDefinition set.
type graph struct {
	ids      []string // all checkIds, stable order
	children map[string][]string
	inDegree map[string]int
}

func buildGraph(checks map[string]checkLike) *graph {
	g := &graph{
		children: make(map[string][]string),
		inDegree: make(map[string]int),
	}
	for id := range checks {
		g.ids = append(g.ids, id)
		g.inDegree[id] = 0
	}
	sort.Strings(g.ids) // deterministic iteration order for reproducible waves

	for _, id := range g.ids {
		for _, parent := range checks[id].dependsOn() {
			g.children[parent] = append(g.children[parent], id)
			g.inDegree[id]++
		}
	}
	return g
}

// checkLike is the minimal view buildGraph needs, to avoid importing the
// model package's full CheckDefinition into this file's signature.
type checkLike interface {
	dependsOn() []string
}

// topologicalWaves performs Kahn's algorithm restricted to the given scope
// set, returning waves of checkIds executable in parallel — the same
// wave-extraction idiom as the teacher's topologicalSort
// (dag_executor.go), generalized to operate over an arbitrary scope subset
// instead of the whole graph (spec.md §4.6's "triggered subset").
func (g *graph) topologicalWaves(scope map[string]bool) ([][]string, error) {
	inDegree := make(map[string]int, len(scope))
	for id := range scope {
		inDegree[id] = len(g.parentsInScope(id, scope))
	}

	var waves [][]string
	processed := 0
	for processed < len(scope) {
		var wave []string
		for id := range scope {
			if inDegree[id] == 0 {
				wave = append(wave, id)
			}
		}
		if len(wave) == 0 {
			return nil, mderrors.New(mderrors.ConfigInvalid, "scheduler: cycle detected in static depends_on graph")
		}
		sort.Strings(wave)
		for _, id := range wave {
			delete(inDegree, id)
			processed++
			for _, child := range g.children[id] {
				if scope[child] {
					inDegree[child]--
				}
			}
		}
		waves = append(waves, wave)
	}
	return waves, nil
}

// parentsInScope is rebuilt from the children index rather than stored
// directly, since graph only keeps the forward (children) edges.
func (g *graph) parentsInScope(id string, scope map[string]bool) []string {
	var parents []string
	for _, candidate := range g.ids {
		if !scope[candidate] {
			continue
		}
		for _, child := range g.children[candidate] {
			if child == id {
				parents = append(parents, candidate)
			}
		}
	}
	return parents
}

// closure computes every checkId reachable from roots by following
// children edges (spec.md §4.6: a dependent is in scope once something
// that can trigger it is in scope), including the roots themselves.
func (g *graph) closure(roots []string) map[string]bool {
	scope := make(map[string]bool, len(roots))
	queue := append([]string{}, roots...)
	for _, r := range roots {
		scope[r] = true
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range g.children[id] {
			if !scope[child] {
				scope[child] = true
				queue = append(queue, child)
			}
		}
	}
	return scope
}
