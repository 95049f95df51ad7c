package osmroute

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"
)

// GraphEdge connects two graph nodes. The target is a dense index into the
// graph's node arena, resolved once at construction time, so the routing
// inner loop never touches a hash map.
type GraphEdge struct {
	To     int
	Weight float64
}

// GraphNode is a routable node with its position and adjacency list.
type GraphNode struct {
	ID       int64
	Position orb.Point
	Edges    []GraphEdge
}

// Graph is an adjacency-list road graph built from a frozen segment,
// conventionally one pre-filtered to road-like ways. All edges are
// bidirectional and weighted by the planar Euclidean distance between their
// endpoints; the model has no directionality and no road classes. The graph
// is read-only once built.
type Graph struct {
	nodes   []GraphNode
	index   map[int64]int
	segment *Segment
}

// NewGraph walks every way of the segment with a previous-node cursor,
// instantiating each referenced node once and connecting consecutive
// references in both directions. References without a node in the segment
// are skipped.
func NewGraph(segment *Segment) *Graph {
	g := &Graph{
		index:   make(map[int64]int),
		segment: segment,
	}
	for i := range segment.Ways() {
		wd := &segment.Ways()[i]
		last := -1
		for _, ref := range wd.Nodes {
			current, ok := g.index[ref]
			if !ok {
				nd, exists := segment.GetNode(ref)
				if !exists {
					continue
				}
				current = len(g.nodes)
				g.nodes = append(g.nodes, GraphNode{ID: ref, Position: nd.Point()})
				g.index[ref] = current
			}
			if last >= 0 && last != current {
				weight := planar.Distance(g.nodes[last].Position, g.nodes[current].Position)
				g.nodes[last].Edges = append(g.nodes[last].Edges, GraphEdge{To: current, Weight: weight})
				g.nodes[current].Edges = append(g.nodes[current].Edges, GraphEdge{To: last, Weight: weight})
			}
			last = current
		}
	}
	return g
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of directed edges; every connection counts
// twice, once per direction.
func (g *Graph) EdgeCount() int {
	sum := 0
	for i := range g.nodes {
		sum += len(g.nodes[i].Edges)
	}
	return sum
}

// NodeByIndex returns the node at the given dense index. The returned
// pointer aliases graph storage and must be treated as read-only.
func (g *Graph) NodeByIndex(idx int) *GraphNode { return &g.nodes[idx] }

// NodeByID returns the node with the given identifier.
func (g *Graph) NodeByID(id int64) (*GraphNode, bool) {
	idx, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return &g.nodes[idx], true
}

// NodeIndex returns the dense index of the node with the given identifier.
func (g *Graph) NodeIndex(id int64) (int, bool) {
	idx, ok := g.index[id]
	return idx, ok
}

// Segment returns the segment the graph was built from.
func (g *Graph) Segment() *Segment { return g.segment }

// CheckConsistency verifies that every node's identifier resolves through
// the index map to its own arena position and that every edge target is a
// valid node.
func (g *Graph) CheckConsistency() error {
	for i := range g.nodes {
		idx, ok := g.index[g.nodes[i].ID]
		if !ok {
			return errors.Errorf("node %d at index %d is missing from the index map", g.nodes[i].ID, i)
		}
		if idx != i {
			return errors.Errorf("node %d indexed at %d but stored at %d", g.nodes[i].ID, idx, i)
		}
		for _, edge := range g.nodes[i].Edges {
			if edge.To < 0 || edge.To >= len(g.nodes) {
				return errors.Errorf("node %d has edge target %d out of range", g.nodes[i].ID, edge.To)
			}
			if edge.Weight < 0 {
				return errors.Errorf("node %d has negative edge weight %f", g.nodes[i].ID, edge.Weight)
			}
		}
	}
	for id, idx := range g.index {
		if idx < 0 || idx >= len(g.nodes) {
			return errors.Errorf("index entry %d out of range: %d", id, idx)
		}
	}
	return nil
}
