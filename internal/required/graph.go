package required

import (
	"sort"
)

const (
	white = iota
	grey
	black
)

// graph is an adjacency list over registry indices.
type graph struct {
	edges [][]int
}

func newGraph(n int) *graph {
	return &graph{edges: make([][]int, n)}
}

func (g *graph) addEdge(from, to int) {
	for _, e := range g.edges[from] {
		if e == to {
			return
		}
	}
	g.edges[from] = append(g.edges[from], to)
}

func (g *graph) sortEdges() {
	for _, e := range g.edges {
		sort.Ints(e)
	}
}

type frame struct {
	node int
	next int
}

// findCycle runs an iterative depth-first search over every node and returns
// the first cycle found as a path that starts and ends at the same node.
func (g *graph) findCycle() []int {
	colour := make([]uint8, len(g.edges))
	for root := range g.edges {
		if colour[root] != white {
			continue
		}
		stack := []frame{{node: root}}
		colour[root] = grey
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next == len(g.edges[top.node]) {
				colour[top.node] = black
				stack = stack[:len(stack)-1]
				continue
			}
			to := g.edges[top.node][top.next]
			top.next++
			switch colour[to] {
			case white:
				colour[to] = grey
				stack = append(stack, frame{node: to})
			case grey:
				return cyclePath(stack, to)
			}
		}
	}
	return nil
}

func cyclePath(stack []frame, repeated int) []int {
	start := 0
	for i, f := range stack {
		if f.node == repeated {
			start = i
			break
		}
	}
	path := make([]int, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		path = append(path, f.node)
	}
	return append(path, repeated)
}

// order returns nodes so that every node follows the nodes it depends on.
// The graph must be acyclic.
func (g *graph) order() []int {
	colour := make([]uint8, len(g.edges))
	out := make([]int, 0, len(g.edges))
	for root := range g.edges {
		if colour[root] != white {
			continue
		}
		stack := []frame{{node: root}}
		colour[root] = grey
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next == len(g.edges[top.node]) {
				colour[top.node] = black
				out = append(out, top.node)
				stack = stack[:len(stack)-1]
				continue
			}
			to := g.edges[top.node][top.next]
			top.next++
			if colour[to] == white {
				colour[to] = grey
				stack = append(stack, frame{node: to})
			}
		}
	}
	return out
}
