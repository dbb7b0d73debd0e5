// Package graph derives the producer dependency DAG from declared contracts.
//
// Producer P depends on producer Q when P reads a key Q writes, when P lists
// Q in After, or when P overrides Q. Keys supplied as job input count as
// already written and create no edges. Every ordering the package returns is
// deterministic: ties are broken by producer name.
package graph

import (
	"container/heap"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/document"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/fault"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/producer"
)

// Graph is an immutable, validated producer DAG.
type Graph struct {
	nodes    []string
	index    map[string]int
	outgoing [][]int
	incoming [][]int
	depth    []int
	order    []int
	writers  map[string][]string
	inputs   document.KeySet
}

// Build validates contracts and derives the dependency graph.
//
// Returns an error wrapping fault.ErrCyclicDependency with a witness path
// such as "a -> b -> a" when the dependencies contain a cycle, and
// fault.ErrUnsatisfiableDependency when After or Overrides names a producer
// that is not in contracts.
func Build(contracts []producer.Contract, inputKeys []string) (*Graph, error) {
	sorted := slices.Clone(contracts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	g := &Graph{
		nodes:   make([]string, len(sorted)),
		index:   make(map[string]int, len(sorted)),
		writers: make(map[string][]string),
		inputs:  document.NewKeySet(inputKeys...),
	}

	for i, c := range sorted {
		if c.Name == "" {
			return nil, producer.ErrEmptyName
		}
		if _, dup := g.index[c.Name]; dup {
			return nil, fmt.Errorf("%w: %s", producer.ErrAlreadyRegistered, c.Name)
		}
		g.nodes[i] = c.Name
		g.index[c.Name] = i
		for _, k := range c.Writes {
			g.writers[k] = append(g.writers[k], c.Name)
		}
	}
	for k := range g.writers {
		sort.Strings(g.writers[k])
	}

	edges := make([]map[int]struct{}, len(sorted))
	for i := range edges {
		edges[i] = make(map[int]struct{})
	}
	addEdge := func(from, to int) {
		if from != to {
			edges[from][to] = struct{}{}
		}
	}

	for i, c := range sorted {
		for _, k := range c.Reads {
			for _, w := range g.writers[k] {
				addEdge(g.index[w], i)
			}
		}
		for _, dep := range c.After {
			j, ok := g.index[dep]
			if !ok {
				return nil, fmt.Errorf("%w: %s runs after unknown producer %s",
					fault.ErrUnsatisfiableDependency, c.Name, dep)
			}
			addEdge(j, i)
		}
		if c.Overrides != "" {
			j, ok := g.index[c.Overrides]
			if !ok {
				return nil, fmt.Errorf("%w: %s overrides unknown producer %s",
					fault.ErrUnsatisfiableDependency, c.Name, c.Overrides)
			}
			addEdge(j, i)
		}
	}

	g.outgoing = make([][]int, len(sorted))
	g.incoming = make([][]int, len(sorted))
	for from, tos := range edges {
		for to := range tos {
			g.outgoing[from] = append(g.outgoing[from], to)
			g.incoming[to] = append(g.incoming[to], from)
		}
	}
	for i := range sorted {
		slices.Sort(g.outgoing[i])
		slices.Sort(g.incoming[i])
	}

	g.order = g.topoOrder()
	if len(g.order) != len(g.nodes) {
		return nil, fmt.Errorf("%w: %s", fault.ErrCyclicDependency, strings.Join(g.findCycle(), " -> "))
	}

	g.depth = make([]int, len(g.nodes))
	for _, n := range g.order {
		for _, m := range g.outgoing[n] {
			g.depth[m] = max(g.depth[m], g.depth[n]+1)
		}
	}

	return g, nil
}

// Len returns the number of producers in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns producer names in lexical order.
func (g *Graph) Nodes() []string {
	return slices.Clone(g.nodes)
}

// Has reports whether name is a node.
func (g *Graph) Has(name string) bool {
	_, ok := g.index[name]
	return ok
}

// Order returns a topological order with name tie-breaks.
func (g *Graph) Order() []string {
	return g.names(g.order)
}

// Depth is the length of the longest dependency chain ending at name.
func (g *Graph) Depth(name string) int {
	i, ok := g.index[name]
	if !ok {
		return 0
	}
	return g.depth[i]
}

// Roots returns the producers with no dependencies.
func (g *Graph) Roots() []string {
	var roots []string
	for i, in := range g.incoming {
		if len(in) == 0 {
			roots = append(roots, g.nodes[i])
		}
	}
	return roots
}

// Dependencies returns the direct upstream producers of name.
func (g *Graph) Dependencies(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	return g.names(g.incoming[i])
}

// Dependents returns the direct downstream producers of name.
func (g *Graph) Dependents(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	return g.names(g.outgoing[i])
}

// Descendants returns every producer transitively downstream of name, in
// topological order.
func (g *Graph) Descendants(name string) []string {
	start, ok := g.index[name]
	if !ok {
		return nil
	}

	reached := make([]bool, len(g.nodes))
	stack := slices.Clone(g.outgoing[start])
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[n] {
			continue
		}
		reached[n] = true
		stack = append(stack, g.outgoing[n]...)
	}

	var out []string
	for _, n := range g.order {
		if reached[n] {
			out = append(out, g.nodes[n])
		}
	}
	return out
}

// Writers returns the producers that declare key in their write-set.
func (g *Graph) Writers(key string) []string {
	return slices.Clone(g.writers[key])
}

// IsInput reports whether key is supplied with the job input.
func (g *Graph) IsInput(key string) bool {
	return g.inputs.Has(key)
}

func (g *Graph) names(indices []int) []string {
	out := make([]string, len(indices))
	for i, n := range indices {
		out[i] = g.nodes[n]
	}
	return out
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topoOrder runs Kahn's algorithm with a min-heap ready queue. The result is
// shorter than the node count when the graph has a cycle.
func (g *Graph) topoOrder() []int {
	indeg := make([]int, len(g.nodes))
	for i, in := range g.incoming {
		indeg[i] = len(in)
	}

	ready := &intMinHeap{}
	for i, d := range indeg {
		if d == 0 {
			heap.Push(ready, i)
		}
	}

	out := make([]int, 0, len(indeg))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		out = append(out, n)
		for _, m := range g.outgoing[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}
	return out
}

// findCycle returns one cycle as a closed path of names, found by a DFS in
// node order.
func (g *Graph) findCycle() []string {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, len(g.nodes))
	parent := make([]int, len(g.nodes))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range g.outgoing[u] {
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				cycle = append(cycle, v)
				for cur := u; cur != -1 && cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for i := range g.nodes {
		if color[i] == white && dfs(i) {
			break
		}
	}

	slices.Reverse(cycle)
	return g.names(cycle)
}
