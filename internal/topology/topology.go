package topology

import (
	"fmt"
	"sort"
)

// Graph is a directed multigraph of element names. Edges are connections.
// It is not safe for concurrent use.
type Graph struct {
	nodes map[string]*node
	order []string
}

// node is un-exported so the graph is only manipulated through names.
type node struct {
	id string
	// out holds the targets of connections leaving this node, in insertion
	// order; a target appears once per connection.
	out []*node
	// in holds the sources of connections arriving at this node.
	in []*node
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// AddNode adds a node. Adding an existing id does nothing.
func (g *Graph) AddNode(id string) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &node{id: id}
	g.order = append(g.order, id)
}

// AddEdge adds a directed edge for a connection from fromID to toID.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}
	from, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	to, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}
	from.out = append(from.out, to)
	to.in = append(to.in, from)
	return nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Neighbours returns the sorted, de-duplicated ids joined to id by an edge in
// either direction.
func (g *Graph) Neighbours(id string) ([]string, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	seen := make(map[string]bool)
	for _, m := range n.out {
		seen[m.id] = true
	}
	for _, m := range n.in {
		seen[m.id] = true
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

// Islands returns the weakly connected components. Each island is sorted and
// islands are ordered by their first member.
func (g *Graph) Islands() [][]string {
	visited := make(map[string]bool, len(g.nodes))
	var islands [][]string
	for _, id := range g.order {
		if visited[id] {
			continue
		}
		var island []string
		stack := []*node{g.nodes[id]}
		visited[id] = true
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			island = append(island, n.id)
			for _, edges := range [][]*node{n.out, n.in} {
				for _, m := range edges {
					if !visited[m.id] {
						visited[m.id] = true
						stack = append(stack, m)
					}
				}
			}
		}
		sort.Strings(island)
		islands = append(islands, island)
	}
	sort.Slice(islands, func(i, j int) bool { return islands[i][0] < islands[j][0] })
	return islands
}

// FindCycle returns the ids along one directed cycle, or nil when the graph
// has none. A loop is legal in a network, since each connection may carry
// flow both ways, but a directed loop of lossless connections lets the solver
// circulate energy at no cost, so callers may want to report it.
func (g *Graph) FindCycle() []string {
	// Classic depth-first search: permanent nodes are fully explored,
	// temporary nodes are on the current path.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)
	var path []string

	var visit func(n *node) []string
	visit = func(n *node) []string {
		if permanent[n.id] {
			return nil
		}
		if temporary[n.id] {
			for i, id := range path {
				if id == n.id {
					return append(append([]string(nil), path[i:]...), n.id)
				}
			}
		}
		temporary[n.id] = true
		path = append(path, n.id)
		for _, m := range n.out {
			if c := visit(m); c != nil {
				return c
			}
		}
		path = path[:len(path)-1]
		delete(temporary, n.id)
		permanent[n.id] = true
		return nil
	}

	for _, id := range g.order {
		if c := visit(g.nodes[id]); c != nil {
			return c
		}
	}
	return nil
}
