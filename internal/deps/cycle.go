package deps

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Reality2byte/nanoc/internal/site"
)

// CycleWarning describes items that read each other's compiled content.
// Such a cycle makes the next compilation of those items fail.
type CycleWarning struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
	Level   string   `json:"level"`
}

// graph maps an item ref string to the refs whose compiled content it reads.
type graph map[string][]string

// AnalyzeCycles finds cycles of compiled-content edges in the recorded graph
// using Tarjan's strongly connected components algorithm. An acyclic graph
// returns an empty list.
func AnalyzeCycles(edges []Dependency) []CycleWarning {
	g := buildCompiledContentGraph(edges)
	if len(g) == 0 {
		return []CycleWarning{}
	}

	warnings := []CycleWarning{}
	for _, scc := range tarjanSCC(g) {
		if len(scc) > 1 || hasSelfLoop(scc[0], g) {
			warnings = append(warnings, sccToWarning(scc, g))
		}
	}
	slices.SortFunc(warnings, func(a, b CycleWarning) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
	return warnings
}

func buildCompiledContentGraph(edges []Dependency) graph {
	g := graph{}
	for _, e := range edges {
		if !e.Props.CompiledContent || e.From.Kind != site.KindItem {
			continue
		}
		to := e.To.String()
		g[to] = append(g[to], e.From.String())
		if _, ok := g[e.From.String()]; !ok {
			g[e.From.String()] = nil
		}
	}
	for k := range g {
		slices.Sort(g[k])
	}
	return g
}

func hasSelfLoop(node string, g graph) bool {
	return slices.Contains(g[node], node)
}

func tarjanSCC(g graph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(g))
	for node := range g {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func sccToWarning(scc []string, g graph) CycleWarning {
	slices.Sort(scc)
	if len(scc) == 1 {
		return CycleWarning{
			Path:    []string{scc[0], scc[0]},
			Message: fmt.Sprintf("%s reads its own compiled content", scc[0]),
			Level:   "warning",
		}
	}
	path := cyclePath(scc, g)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("compiled content cycle: %s", strings.Join(path, " -> ")),
		Level:   "warning",
	}
}

// cyclePath walks SCC members from the smallest one until it returns to it.
func cyclePath(scc []string, g graph) []string {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	start := scc[0]
	path := []string{start}
	visited := map[string]bool{start: true}
	current := start
	for {
		next := ""
		for _, w := range g[current] {
			if members[w] && (!visited[w] || w == start) {
				next = w
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		visited[next] = true
		current = next
	}
	return path
}
