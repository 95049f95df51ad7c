package osmroute

import (
	"fmt"
	"strings"

	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
)

// RoutePoints resolves a route's node identifiers to coordinates.
func (g *Graph) RoutePoints(route Route) []orb.Point {
	pts := make([]orb.Point, 0, len(route.Nodes))
	for _, id := range route.Nodes {
		if nd, ok := g.NodeByID(id); ok {
			pts = append(pts, nd.Position)
		}
	}
	return pts
}

// PrepareWKTLinestring returns WKT representation of LineString
func PrepareWKTLinestring(pts []orb.Point) string {
	ptsStr := make([]string, len(pts))
	for i := range pts {
		ptsStr[i] = fmt.Sprintf("%f %f", pts[i].Lon(), pts[i].Lat())
	}
	return fmt.Sprintf("LINESTRING(%s)", strings.Join(ptsStr, ","))
}

// PrepareWKTPoint returns WKT representation of Point
func PrepareWKTPoint(pt orb.Point) string {
	return fmt.Sprintf("POINT(%f %f)", pt.Lon(), pt.Lat())
}

// PrepareGeoJSONLinestring returns GeoJSON representation of LineString
func PrepareGeoJSONLinestring(pts []orb.Point) string {
	pts2d := make([][]float64, len(pts))
	for i := range pts {
		pts2d[i] = []float64{pts[i].Lon(), pts[i].Lat()}
	}
	b, err := geojson.NewLineStringGeometry(pts2d).MarshalJSON()
	if err != nil {
		fmt.Printf("Warning. Can not convert geometry to geojson format: %s", err.Error())
		return ""
	}
	return string(b)
}

// PrepareGeoJSONPoint returns GeoJSON representation of Point
func PrepareGeoJSONPoint(pt orb.Point) string {
	b, err := geojson.NewPointGeometry([]float64{pt.Lon(), pt.Lat()}).MarshalJSON()
	if err != nil {
		fmt.Printf("Warning. Can not convert geometry to geojson format: %s", err.Error())
		return ""
	}
	return string(b)
}

// SegmentFeatureCollection exports a segment as a GeoJSON feature
// collection: one point feature per node and one linestring feature per way
// whose references resolve to at least two nodes.
func SegmentFeatureCollection(segment *Segment) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := range segment.Nodes() {
		nd := &segment.Nodes()[i]
		feature := geojson.NewPointFeature([]float64{nd.Lon, nd.Lat})
		feature.SetProperty("id", nd.ID)
		for _, tag := range nd.Tags {
			feature.SetProperty(tag.Key, tag.Value)
		}
		fc.AddFeature(feature)
	}
	for i := range segment.Ways() {
		wd := &segment.Ways()[i]
		line := make([][]float64, 0, len(wd.Nodes))
		for _, ref := range wd.Nodes {
			if nd, ok := segment.GetNode(ref); ok {
				line = append(line, []float64{nd.Lon, nd.Lat})
			}
		}
		if len(line) < 2 {
			continue
		}
		feature := geojson.NewLineStringFeature(line)
		feature.SetProperty("id", wd.ID)
		for _, tag := range wd.Tags {
			feature.SetProperty(tag.Key, tag.Value)
		}
		fc.AddFeature(feature)
	}
	return fc
}
