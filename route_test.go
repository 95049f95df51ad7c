package osmroute

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindRouteLineGraph(t *testing.T) {
	// Five nodes on a line with edge weights 1, 2, 3, 4 in sequence.
	segment := planarSegment(map[int64][2]float64{
		1: {0, 0},
		2: {1, 0},
		3: {3, 0},
		4: {6, 0},
		5: {10, 0},
	}, []Way{
		testWay(10, []int64{1, 2, 3, 4, 5}),
	})
	graph := NewGraph(segment)

	route := graph.FindRoute(1, 5)
	require.True(t, route.Exists())
	require.Equal(t, []int64{1, 2, 3, 4, 5}, route.Nodes)
	require.InDelta(t, 10.0, route.Distance, 1e-12)

	// The same query backwards reads goal-first; routes are always
	// ordered start to goal.
	back := graph.FindRoute(5, 1)
	require.Equal(t, []int64{5, 4, 3, 2, 1}, back.Nodes)
	require.InDelta(t, 10.0, back.Distance, 1e-12)
}

func TestFindRoutePicksShorterBranch(t *testing.T) {
	// Two branches between 1 and 3: over node 2 (length 2) and over the
	// detour node 4 (length 2 + sqrt(2)).
	segment := planarSegment(map[int64][2]float64{
		1: {0, 0},
		2: {1, 0},
		3: {2, 0},
		4: {1, 2},
	}, []Way{
		testWay(10, []int64{1, 2, 3}),
		testWay(11, []int64{1, 4, 3}),
	})
	graph := NewGraph(segment)

	route := graph.FindRoute(1, 3)
	require.True(t, route.Exists())
	require.Equal(t, []int64{1, 2, 3}, route.Nodes)
	require.InDelta(t, 2.0, route.Distance, 1e-12)
}

func TestFindRouteDisconnected(t *testing.T) {
	segment := planarSegment(map[int64][2]float64{
		1: {0, 0},
		2: {1, 0},
		3: {10, 10},
		4: {11, 10},
	}, []Way{
		testWay(10, []int64{1, 2}),
		testWay(11, []int64{3, 4}),
	})
	graph := NewGraph(segment)

	route := graph.FindRoute(1, 4)
	require.False(t, route.Exists())
	require.Empty(t, route.Nodes)
}

func TestFindRouteSameNode(t *testing.T) {
	segment := planarSegment(map[int64][2]float64{
		1: {0, 0},
		2: {1, 0},
	}, []Way{
		testWay(10, []int64{1, 2}),
	})
	graph := NewGraph(segment)

	route := graph.FindRoute(2, 2)
	require.True(t, route.Exists())
	require.Equal(t, []int64{2}, route.Nodes)
	require.Equal(t, 0.0, route.Distance)
}

func TestFindRouteUnknownNode(t *testing.T) {
	segment := planarSegment(map[int64][2]float64{
		1: {0, 0},
		2: {1, 0},
	}, []Way{
		testWay(10, []int64{1, 2}),
	})
	graph := NewGraph(segment)

	require.False(t, graph.FindRoute(1, 999).Exists())
	require.False(t, graph.FindRoute(999, 1).Exists())
}

func TestFindRouteRepeatedRuns(t *testing.T) {
	// Search state is per call; repeated queries on the same graph must
	// not interfere.
	segment := planarSegment(map[int64][2]float64{
		1: {0, 0},
		2: {1, 0},
		3: {2, 0},
	}, []Way{
		testWay(10, []int64{1, 2, 3}),
	})
	graph := NewGraph(segment)

	first := graph.FindRoute(1, 3)
	second := graph.FindRoute(1, 3)
	require.Equal(t, first.Nodes, second.Nodes)
	require.Equal(t, first.Distance, second.Distance)
}
