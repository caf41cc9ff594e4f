package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/hdlreplay/internal/ir"
)

// AnalyzeInstances reports modules that instantiate themselves, directly or
// through other modules. Recursive instantiation never terminates during
// elaboration, so each cycle is an error.
//
// The algorithm:
//  1. Build the module → instantiated module graph
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop as a cycle
func AnalyzeInstances(lib ir.Library) []ValidationError {
	graph := buildInstanceGraph(lib)

	var errs []ValidationError
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			path := reconstructCyclePath(scc, graph)
			errs = append(errs, ValidationError{
				Module:  path[0],
				Field:   "instance",
				Message: fmt.Sprintf("recursive instantiation: %s", strings.Join(path, " → ")),
				Code:    ErrRecursiveInstance,
			})
		}
	}
	return errs
}

// instanceGraph maps module name → modules it instantiates, in statement
// order. Every module of the library is a node.
type instanceGraph map[string][]string

func buildInstanceGraph(lib ir.Library) instanceGraph {
	graph := make(instanceGraph, len(lib))
	for name, spec := range lib {
		graph[name] = []string{}
		collectInstances(spec.Body, func(module string) {
			if _, ok := lib[module]; ok {
				graph[name] = append(graph[name], module)
			}
		})
	}
	return graph
}

func collectInstances(stmts []ir.Stmt, fn func(module string)) {
	for _, s := range stmts {
		switch s.Kind {
		case ir.StmtInstance:
			fn(s.Module)
		case ir.StmtIf:
			collectInstances(s.Then, fn)
			collectInstances(s.Else, fn)
		case ir.StmtSwitch:
			for _, c := range s.Cases {
				collectInstances(c.Body, fn)
			}
			collectInstances(s.Default, fn)
		}
	}
}

func hasSelfLoop(node string, graph instanceGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order so the result is deterministic.
func tarjanSCC(graph instanceGraph) [][]string {
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

		for _, w := range graph[v] {
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
			sort.Strings(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// reconstructCyclePath builds a cycle path through an SCC, starting at its
// first (smallest) member and following edges until it returns there.
func reconstructCyclePath(scc []string, graph instanceGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)
	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
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
		current = next
	}
	return path
}
