package osmroute

import (
	"container/heap"
	"math"
)

// Route is the result of a shortest-path search: the node identifiers in
// order from start to goal and the total path weight. An empty node
// sequence means no route exists.
type Route struct {
	Nodes    []int64
	Distance float64
}

// Exists reports whether a route was found. Callers must check it before
// using the node sequence.
func (r Route) Exists() bool {
	return len(r.Nodes) > 0
}

// searchRecord is the per-node state of one search run.
type searchRecord struct {
	distance float64
	previous int
	visited  bool
}

type queueItem struct {
	node     int
	distance float64
}

type routeQueue []queueItem

func (q routeQueue) Len() int            { return len(q) }
func (q routeQueue) Less(i, j int) bool  { return q[i].distance < q[j].distance }
func (q routeQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *routeQueue) Push(x interface{}) { *q = append(*q, x.(queueItem)) }
func (q *routeQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// FindRoute runs a priority-queue shortest-path search between the two node
// identifiers. An unknown identifier or an exhausted queue yields a
// non-existent route, never an error. Stale duplicate queue entries are
// expected; the visited check makes a later pop of the same node a no-op.
// Every call is an independent run; the graph itself is never mutated.
func (g *Graph) FindRoute(startID, goalID int64) Route {
	start, ok := g.index[startID]
	if !ok {
		return Route{}
	}
	goal, ok := g.index[goalID]
	if !ok {
		return Route{}
	}
	if start == goal {
		return Route{Nodes: []int64{startID}}
	}

	records := make([]searchRecord, len(g.nodes))
	for i := range records {
		records[i].distance = math.Inf(1)
		records[i].previous = -1
	}
	records[start].distance = 0

	queue := &routeQueue{{node: start, distance: 0}}
	heap.Init(queue)

	for queue.Len() > 0 {
		current := heap.Pop(queue).(queueItem).node
		record := &records[current]
		if record.visited {
			continue
		}
		if current == goal {
			return g.assembleRoute(records, goal)
		}
		for _, edge := range g.nodes[current].Edges {
			next := &records[edge.To]
			if next.visited {
				continue
			}
			if candidate := record.distance + edge.Weight; candidate < next.distance {
				next.distance = candidate
				next.previous = current
				heap.Push(queue, queueItem{node: edge.To, distance: candidate})
			}
		}
		record.visited = true
	}
	return Route{}
}

// assembleRoute walks the back-pointers from the goal to the source and
// reverses the sequence, so routes always read start to goal.
func (g *Graph) assembleRoute(records []searchRecord, goal int) Route {
	nodes := []int64{}
	for i := goal; i >= 0; i = records[i].previous {
		nodes = append(nodes, g.nodes[i].ID)
	}
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	return Route{Nodes: nodes, Distance: records[goal].distance}
}
