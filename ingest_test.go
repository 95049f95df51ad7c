package osmroute

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const smallExtract = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="osmroute-test">
  <meta osm_base="2020-07-01T00:00:00Z"/>
  <bounds minlat="50.0" minlon="8.0" maxlat="50.1" maxlon="8.1"/>
  <node id="1" version="1" lat="50.01" lon="8.01">
    <tag k="name" v="first"/>
  </node>
  <node id="2" version="1" lat="50.02" lon="8.02"/>
  <node id="3" version="2" lat="50.03" lon="8.03"/>
  <way id="10" version="1">
    <nd ref="1"/>
    <nd ref="2"/>
    <nd ref="3"/>
    <tag k="highway" v="residential"/>
  </way>
  <relation id="20" version="1">
    <member type="node" ref="1" role="stop"/>
    <member type="way" ref="10" role="route"/>
    <member type="relation" ref="21" role="parent"/>
    <tag k="type" v="route"/>
  </relation>
</osm>`

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "extract.osm")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func quietParser(t *testing.T, filename string, options ...func(*Parser)) *Parser {
	t.Helper()
	options = append(options, WithLogger(zerolog.Nop()))
	return NewParser(filename, options...)
}

func TestIngestSmallExtract(t *testing.T) {
	segment, err := quietParser(t, writeFixture(t, smallExtract)).Ingest()
	require.NoError(t, err)

	require.Equal(t, 3, segment.NodeCount())
	require.Equal(t, 1, segment.WayCount())
	require.Equal(t, 1, segment.RelationCount())

	nd, ok := segment.GetNode(2)
	require.True(t, ok)
	require.Equal(t, 50.02, nd.Lat)
	require.Equal(t, 8.02, nd.Lon)
	require.Equal(t, int32(1), nd.Version)

	first, ok := segment.GetNode(1)
	require.True(t, ok)
	name, ok := first.TagValue("name")
	require.True(t, ok)
	require.Equal(t, "first", name)

	wd, ok := segment.GetWay(10)
	require.True(t, ok)
	require.Equal(t, []int64{1, 2, 3}, wd.Nodes)
	require.True(t, wd.HasTagValue("highway", "residential"))

	rel, ok := segment.GetRelation(20)
	require.True(t, ok)
	require.Equal(t, []Member{{Ref: 1, Role: "stop"}}, rel.NodeMembers)
	require.Equal(t, []Member{{Ref: 10, Role: "route"}}, rel.WayMembers)
	require.Equal(t, []Member{{Ref: 21, Role: "parent"}}, rel.RelationMembers)

	bounds := segment.Bounds()
	require.Equal(t, 8.01, bounds.Min.Lon())
	require.Equal(t, 50.01, bounds.Min.Lat())
	require.Equal(t, 8.03, bounds.Max.Lon())
	require.Equal(t, 50.03, bounds.Max.Lat())
}

func TestIngestWorkerCountsAgree(t *testing.T) {
	// A larger synthetic extract so striping actually spreads elements
	// over the workers.
	var sb strings.Builder
	sb.WriteString(`<osm version="0.6">`)
	for i := 1; i <= 200; i++ {
		fmt.Fprintf(&sb, `<node id="%d" version="1" lat="%f" lon="%f"/>`, i, 50.0+float64(i)*0.001, 8.0+float64(i)*0.001)
	}
	for i := 1; i <= 40; i++ {
		fmt.Fprintf(&sb, `<way id="%d" version="1"><nd ref="%d"/><nd ref="%d"/></way>`, 1000+i, i, i+1)
	}
	sb.WriteString(`</osm>`)
	path := writeFixture(t, sb.String())

	ids := func(segment *Segment) ([]int64, []int64) {
		nodeIDs := make([]int64, 0, segment.NodeCount())
		for i := range segment.Nodes() {
			nodeIDs = append(nodeIDs, segment.Nodes()[i].ID)
		}
		wayIDs := make([]int64, 0, segment.WayCount())
		for i := range segment.Ways() {
			wayIDs = append(wayIDs, segment.Ways()[i].ID)
		}
		sort.Slice(nodeIDs, func(i, j int) bool { return nodeIDs[i] < nodeIDs[j] })
		sort.Slice(wayIDs, func(i, j int) bool { return wayIDs[i] < wayIDs[j] })
		return nodeIDs, wayIDs
	}

	reference, err := quietParser(t, path, WithWorkers(1)).Ingest()
	require.NoError(t, err)
	wantNodes, wantWays := ids(reference)
	require.Len(t, wantNodes, 200)
	require.Len(t, wantWays, 40)

	for _, workers := range []int{2, 8} {
		segment, err := quietParser(t, path,
			WithWorkers(workers),
			WithBatchCapacity(16),
			WithMergeThreshold(8),
		).Ingest()
		require.NoError(t, err)
		gotNodes, gotWays := ids(segment)
		require.Equal(t, wantNodes, gotNodes, "workers=%d", workers)
		require.Equal(t, wantWays, gotWays, "workers=%d", workers)
	}
}

func TestIngestMissingFile(t *testing.T) {
	_, err := quietParser(t, filepath.Join(t.TempDir(), "does_not_exist.osm")).Ingest()
	require.Error(t, err)
}

func TestIngestMalformedXML(t *testing.T) {
	_, err := quietParser(t, writeFixture(t, `<osm><node id="1"`)).Ingest()
	require.Error(t, err)
}

func TestIngestWrongRoot(t *testing.T) {
	_, err := quietParser(t, writeFixture(t, `<map version="0.6"></map>`)).Ingest()
	require.Error(t, err)
}

func TestIngestStrictMeta(t *testing.T) {
	content := `<osm version="0.6"><node id="1" version="1" lat="1.0" lon="2.0"/></osm>`

	_, err := quietParser(t, writeFixture(t, content), WithStrictMode(true)).Ingest()
	require.Error(t, err)

	segment, err := quietParser(t, writeFixture(t, content)).Ingest()
	require.NoError(t, err)
	require.Equal(t, 1, segment.NodeCount())
}

func TestIngestSkipsInvalidElements(t *testing.T) {
	content := `<osm version="0.6">
  <node id="1" version="1" lat="50.0" lon="8.0"/>
  <node id="2" version="1" lon="8.1"/>
  <node id="3" version="1" lat="abc" lon="8.2"/>
  <node id="4" lat="50.3" lon="8.3"/>
  <node id="5" version="1" lat="50.4" lon="8.4"/>
  <way id="10" version="1">
    <nd ref="1"/>
    <nd/>
    <nd ref="xyz"/>
    <nd ref="5"/>
  </way>
  <way id="11">
    <nd ref="1"/>
  </way>
  <relation id="20" version="1">
    <member type="node" ref="1" role=""/>
    <member type="area" ref="2" role=""/>
    <member type="way" ref="10"/>
    <member type="way" ref="10" role="outer"/>
  </relation>
</osm>`
	segment, err := quietParser(t, writeFixture(t, content)).Ingest()
	require.NoError(t, err)

	// Nodes 2, 3 and 4 miss required attributes or fail numeric
	// conversion; way 11 has no version. Each skip drops only the
	// offending element.
	require.Equal(t, 2, segment.NodeCount())
	require.True(t, segment.HasNode(1))
	require.True(t, segment.HasNode(5))

	require.Equal(t, 1, segment.WayCount())
	wd, ok := segment.GetWay(10)
	require.True(t, ok)
	require.Equal(t, []int64{1, 5}, wd.Nodes)

	rel, ok := segment.GetRelation(20)
	require.True(t, ok)
	require.Equal(t, []Member{{Ref: 1, Role: ""}}, rel.NodeMembers)
	require.Equal(t, []Member{{Ref: 10, Role: "outer"}}, rel.WayMembers)
	require.Empty(t, rel.RelationMembers)
}

func TestIngestDefaults(t *testing.T) {
	parser := NewParser("whatever.osm", WithWorkers(-3), WithBatchCapacity(0), WithMergeThreshold(0))
	require.GreaterOrEqual(t, parser.workers, 1)
	require.Equal(t, DefaultBatchCapacity, parser.batchCapacity)
	require.Equal(t, DefaultMergeThreshold, parser.mergeThreshold)
}
