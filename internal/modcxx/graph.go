package modcxx

import (
	"sort"

	"github.com/chalet-org/chalet/internal/chkerr"
	"github.com/chalet-org/chalet/internal/model"
)

// Node is one translation unit in the module graph, indexed by its
// provided module name (header units use their include path as name).
type Node struct {
	Name   string
	File   *model.SourceFileGroup
	Edges  []string // names of modules/header-units this node imports
}

// Graph is the inter-TU DAG described in spec §4.4.
type Graph struct {
	Nodes map[string]*Node
}

// BuildGraph constructs the module/header-unit DAG from a set of scanned
// SourceFileGroups. Nodes with no ProvidesModule but ImportsModules are
// still added under a synthetic name (their source path) so they appear
// as DAG leaves — this covers plain importers like main.cpp.
func BuildGraph(files []*model.SourceFileGroup) *Graph {
	g := &Graph{Nodes: map[string]*Node{}}
	for _, f := range files {
		name := f.ProvidesModule
		if name == "" {
			name = f.Source
		}
		node := &Node{Name: name, File: f}
		node.Edges = append(node.Edges, f.ImportsModules...)
		node.Edges = append(node.Edges, f.ImportsHeaderUnits...)
		g.Nodes[name] = node
	}
	return g
}

// TopoBatches orders compilation into dependency batches (spec §4.4
// "Ordering"): each batch holds nodes whose dependencies are all already
// in an earlier batch. Nodes within a batch may compile in parallel.
// Returns ModuleCycle if the graph is not a DAG.
//
// Grounded on internal/model/deptree.go's buildNode ancestor-tracking
// recursion, adapted from tree construction to batch-level topological
// sort (Kahn's algorithm) since module compilation needs levels, not a
// single tree.
func (g *Graph) TopoBatches() ([][]*Node, error) {
	indegree := map[string]int{}
	dependents := map[string][]string{}

	for name := range g.Nodes {
		indegree[name] = 0
	}
	for name, node := range g.Nodes {
		for _, dep := range node.Edges {
			if _, ok := g.Nodes[dep]; !ok {
				continue // system module or untracked header unit; no edge
			}
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var batches [][]*Node
	remaining := len(g.Nodes)
	current := readySet(indegree)

	for remaining > 0 {
		if len(current) == 0 {
			return nil, &chkerr.Error{Kind: chkerr.ModuleCycle, Modules: cycleNodes(g.Nodes, indegree)}
		}
		var batch []*Node
		var next []string
		for _, name := range current {
			batch = append(batch, g.Nodes[name])
			remaining--
			delete(indegree, name)
			for _, d := range dependents[name] {
				if _, ok := indegree[d]; !ok {
					continue
				}
				indegree[d]--
				if indegree[d] == 0 {
					next = append(next, d)
				}
			}
		}
		sort.Slice(batch, func(i, j int) bool { return batch[i].Name < batch[j].Name })
		batches = append(batches, batch)
		current = next
	}
	return batches, nil
}

func readySet(indegree map[string]int) []string {
	var ready []string
	for name, d := range indegree {
		if d == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)
	return ready
}

// cycleNodes restricts the ModuleCycle report to nodes actually on a
// cycle, rather than every node still unresolved when the batch loop
// stalls (which also includes plain importers merely downstream of a
// cycle, e.g. main.cpp in spec scenario 3). It runs Tarjan's SCC
// algorithm over the subgraph induced by remaining, following only
// edges that stay within remaining, and reports nodes belonging to a
// nontrivial strongly connected component or carrying a self-loop.
func cycleNodes(nodes map[string]*Node, remaining map[string]int) []string {
	var index int
	indices := map[string]int{}
	lowlink := map[string]int{}
	onStack := map[string]bool{}
	var stack []string
	var result []string

	var strongconnect func(v string)
	strongconnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range nodes[v].Edges {
			if _, ok := remaining[w]; !ok {
				continue
			}
			if _, seen := indices[w]; !seen {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			if len(scc) > 1 {
				result = append(result, scc...)
				return
			}
			for _, w := range nodes[scc[0]].Edges {
				if w == scc[0] {
					result = append(result, scc[0])
					break
				}
			}
		}
	}

	names := make([]string, 0, len(remaining))
	for name := range remaining {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, seen := indices[name]; !seen {
			strongconnect(name)
		}
	}
	sort.Strings(result)
	return result
}
