package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/LdDl/ch"
	"github.com/routekit/osmroute"
)

var (
	osmFileName = flag.String("file", "my_map.osm", "Filename of *.osm file (XML interchange format)")
	tagStr      = flag.String("tags", "motorway,primary,primary_link,road,secondary,secondary_link,residential,tertiary,tertiary_link,unclassified,trunk,trunk_link,motorway_link", "Set of accepted 'highway' tag values (separated by commas)")
	from        = flag.Int64("from", -1, "Identifier of the start node")
	to          = flag.Int64("to", -1, "Identifier of the goal node")
	workers     = flag.Int("workers", 0, "Number of ingestion workers. Values below 1 use the hardware parallelism")
	geomFormat  = flag.String("geomf", "wkt", "Format of output geometry. Expected values: wkt / geojson")
	engine      = flag.String("engine", "dijkstra", "Routing engine. Expected values: dijkstra / ch (contraction hierarchies)")
	verbose     = flag.Bool("verbose", false, "Print progress and timing information")
)

func main() {
	flag.Parse()

	roadTags := make(map[string]struct{})
	for _, tag := range strings.Split(*tagStr, ",") {
		roadTags[strings.TrimSpace(tag)] = struct{}{}
	}

	segment, err := osmroute.NewParser(*osmFileName,
		osmroute.WithWorkers(*workers),
		osmroute.WithVerbose(*verbose),
	).Ingest()
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("Ingested %d nodes, %d ways, %d relations\n",
		segment.NodeCount(), segment.WayCount(), segment.RelationCount())

	roads := segment.FindNodes(
		func(nd *osmroute.Node) bool { return false },
		func(wd *osmroute.Way) bool {
			value, ok := wd.TagValue("highway")
			if !ok {
				return false
			}
			_, accepted := roadTags[value]
			return accepted
		},
		func(wd *osmroute.Way, nd *osmroute.Node) bool { return true },
	)

	graph := osmroute.NewGraph(roads)
	if err := graph.CheckConsistency(); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("Road graph: %d nodes, %d edges\n", graph.NodeCount(), graph.EdgeCount())

	if *from < 0 || *to < 0 {
		fmt.Println("No -from/-to identifiers given, nothing to route")
		return
	}

	var route osmroute.Route
	st := time.Now()
	switch strings.ToLower(*engine) {
	case "dijkstra":
		route = graph.FindRoute(*from, *to)
	case "ch":
		route, err = contractedRoute(graph, *from, *to)
		if err != nil {
			fmt.Println(err)
			return
		}
	default:
		fmt.Printf("Unknown routing engine '%s'\n", *engine)
		return
	}
	fmt.Printf("Search done in %v\n", time.Since(st))

	if !route.Exists() {
		fmt.Printf("No route between %d and %d\n", *from, *to)
		return
	}

	geomStr := ""
	if strings.ToLower(*geomFormat) == "geojson" {
		geomStr = osmroute.PrepareGeoJSONLinestring(graph.RoutePoints(route))
	} else {
		geomStr = osmroute.PrepareWKTLinestring(graph.RoutePoints(route))
	}
	fmt.Printf("Route with %d nodes, total weight %f\n%s\n", len(route.Nodes), route.Distance, geomStr)
}

// contractedRoute answers the query through the contraction hierarchies
// library instead of the built-in search.
func contractedRoute(graph *osmroute.Graph, from, to int64) (osmroute.Route, error) {
	chGraph := ch.Graph{}
	for i := 0; i < graph.NodeCount(); i++ {
		if err := chGraph.CreateVertex(graph.NodeByIndex(i).ID); err != nil {
			return osmroute.Route{}, err
		}
	}
	for i := 0; i < graph.NodeCount(); i++ {
		node := graph.NodeByIndex(i)
		for _, edge := range node.Edges {
			target := graph.NodeByIndex(edge.To)
			if err := chGraph.AddEdge(node.ID, target.ID, edge.Weight); err != nil {
				return osmroute.Route{}, err
			}
		}
	}

	fmt.Println("Starting contraction process....")
	st := time.Now()
	chGraph.PrepareContractionHierarchies()
	fmt.Printf("Done contraction process in %v\n", time.Since(st))

	cost, path := chGraph.ShortestPath(from, to)
	if cost < 0 || len(path) == 0 {
		return osmroute.Route{}, nil
	}
	return osmroute.Route{Nodes: path, Distance: cost}, nil
}
