package osmroute

import (
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// mergeState holds the shared entity collections built up during ingestion.
// Each entity kind has its own lock, so merging nodes never blocks a worker
// that wants to merge ways or relations. The id-to-index maps are assigned at
// merge time: batches from different workers arrive in no particular order,
// so an entity's final position is only known once it lands in the shared
// slice.
type mergeState struct {
	nodesMu   sync.Mutex
	nodes     []Node
	nodeIndex map[int64]int

	waysMu   sync.Mutex
	ways     []Way
	wayIndex map[int64]int

	relationsMu   sync.Mutex
	relations     []Relation
	relationIndex map[int64]int
}

func newMergeState() *mergeState {
	return &mergeState{
		nodeIndex:     make(map[int64]int),
		wayIndex:      make(map[int64]int),
		relationIndex: make(map[int64]int),
	}
}

// mergeNodes appends a local batch into the shared node collection. With
// block set the call waits for the lock; otherwise it gives up immediately
// when the lock is contended and reports false, leaving the batch with the
// caller. Duplicate identifiers keep the first merged occurrence.
func (m *mergeState) mergeNodes(local []Node, block bool) bool {
	if block {
		m.nodesMu.Lock()
	} else if !m.nodesMu.TryLock() {
		return false
	}
	defer m.nodesMu.Unlock()
	for i := range local {
		if _, ok := m.nodeIndex[local[i].ID]; ok {
			continue
		}
		m.nodes = append(m.nodes, local[i])
		m.nodeIndex[local[i].ID] = len(m.nodes) - 1
	}
	return true
}

func (m *mergeState) mergeWays(local []Way, block bool) bool {
	if block {
		m.waysMu.Lock()
	} else if !m.waysMu.TryLock() {
		return false
	}
	defer m.waysMu.Unlock()
	for i := range local {
		if _, ok := m.wayIndex[local[i].ID]; ok {
			continue
		}
		m.ways = append(m.ways, local[i])
		m.wayIndex[local[i].ID] = len(m.ways) - 1
	}
	return true
}

func (m *mergeState) mergeRelations(local []Relation, block bool) bool {
	if block {
		m.relationsMu.Lock()
	} else if !m.relationsMu.TryLock() {
		return false
	}
	defer m.relationsMu.Unlock()
	for i := range local {
		if _, ok := m.relationIndex[local[i].ID]; ok {
			continue
		}
		m.relations = append(m.relations, local[i])
		m.relationIndex[local[i].ID] = len(m.relations) - 1
	}
	return true
}

// ingestStats counts per-worker outcomes; summed after the join.
type ingestStats struct {
	nodes     int
	ways      int
	relations int
	skipped   int
}

func (st *ingestStats) add(other ingestStats) {
	st.nodes += other.nodes
	st.ways += other.ways
	st.relations += other.relations
	st.skipped += other.skipped
}

// Ingest reads, parses and indexes the whole extract. The call is
// synchronous: it returns only after every worker has finished and the
// merged collections have been wrapped into a Segment. File and document
// structure problems are fatal; per-element problems are logged and skip
// just that element.
func (p *Parser) Ingest() (*Segment, error) {
	begin := time.Now()
	p.log.Debug().Str("filename", p.filename).Msg("reading map document")

	root, err := readDocument(p.filename, p.strictMode)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read map document")
	}
	p.log.Debug().
		Int("top_level_elements", len(root.Children)).
		Dur("elapsed", time.Since(begin)).
		Msg("document parsed")

	shared := newMergeState()
	stats := make([]ingestStats, p.workers)

	var wg sync.WaitGroup
	for k := 0; k < p.workers; k++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			stats[offset] = p.runWorker(root, offset, shared)
		}(k)
	}
	wg.Wait()

	total := ingestStats{}
	for i := range stats {
		total.add(stats[i])
	}

	segment := newSegmentFromMerge(shared)
	segment.RecalculateBoundaries()

	p.log.Debug().
		Int("nodes", total.nodes).
		Int("ways", total.ways).
		Int("relations", total.relations).
		Int("skipped", total.skipped).
		Dur("elapsed", time.Since(begin)).
		Msg("ingestion done")
	return segment, nil
}

// runWorker visits every N-th top-level element starting at the worker's
// offset, accumulating entities in thread-local batches. A batch crossing
// the merge threshold triggers a non-blocking merge attempt; when the lock
// is contended the worker just keeps accumulating and retries on a later
// crossing. At end of range any remainder is merged with a blocking
// acquisition, so no entity is lost.
func (p *Parser) runWorker(root *xmlElement, offset int, shared *mergeState) ingestStats {
	stats := ingestStats{}
	nodes := make([]Node, 0, p.batchCapacity)
	ways := make([]Way, 0, p.batchCapacity)
	relations := make([]Relation, 0, p.batchCapacity)

	for i := offset; i < len(root.Children); i += p.workers {
		el := &root.Children[i]
		switch el.XMLName.Local {
		case "node":
			nd, err := p.parseNode(el)
			if err != nil {
				p.log.Warn().Err(err).Msg("skipping node element")
				stats.skipped++
				continue
			}
			nodes = append(nodes, nd)
			stats.nodes++
			if len(nodes) >= p.mergeThreshold && shared.mergeNodes(nodes, false) {
				nodes = nodes[:0]
			}
		case "way":
			wd, err := p.parseWay(el)
			if err != nil {
				p.log.Warn().Err(err).Msg("skipping way element")
				stats.skipped++
				continue
			}
			ways = append(ways, wd)
			stats.ways++
			if len(ways) >= p.mergeThreshold && shared.mergeWays(ways, false) {
				ways = ways[:0]
			}
		case "relation":
			rel, err := p.parseRelation(el)
			if err != nil {
				p.log.Warn().Err(err).Msg("skipping relation element")
				stats.skipped++
				continue
			}
			relations = append(relations, rel)
			stats.relations++
			if len(relations) >= p.mergeThreshold && shared.mergeRelations(relations, false) {
				relations = relations[:0]
			}
		case "meta", "bounds", "note":
			// Metadata elements carry no entities.
		default:
			p.log.Debug().Str("element", el.XMLName.Local).Msg("unknown top-level element")
		}
	}

	if len(nodes) > 0 {
		shared.mergeNodes(nodes, true)
	}
	if len(ways) > 0 {
		shared.mergeWays(ways, true)
	}
	if len(relations) > 0 {
		shared.mergeRelations(relations, true)
	}
	return stats
}

// parseNode requires id, version, lat and lon attributes; any missing or
// numerically invalid one fails the whole element.
func (p *Parser) parseNode(el *xmlElement) (Node, error) {
	id, version, err := parseCommonAttributes(el)
	if err != nil {
		return Node{}, err
	}
	latText, ok := el.attr("lat")
	if !ok {
		return Node{}, errors.Errorf("node %d has no 'lat' attribute", id)
	}
	lonText, ok := el.attr("lon")
	if !ok {
		return Node{}, errors.Errorf("node %d has no 'lon' attribute", id)
	}
	lat, err := strconv.ParseFloat(latText, 64)
	if err != nil {
		return Node{}, errors.Wrapf(err, "node %d has invalid 'lat' attribute", id)
	}
	lon, err := strconv.ParseFloat(lonText, 64)
	if err != nil {
		return Node{}, errors.Wrapf(err, "node %d has invalid 'lon' attribute", id)
	}
	nd := Node{
		MapObject: MapObject{ID: id, Version: version},
		Lat:       lat,
		Lon:       lon,
	}
	for i := range el.Children {
		child := &el.Children[i]
		if child.XMLName.Local != "tag" {
			p.log.Debug().Str("element", child.XMLName.Local).Int64("node", id).Msg("unknown node child")
			continue
		}
		p.appendTag(&nd.MapObject, child)
	}
	return nd, nil
}

// parseWay collects the ordered 'nd' reference list and tags. A reference
// with a missing or invalid 'ref' attribute skips only that reference.
func (p *Parser) parseWay(el *xmlElement) (Way, error) {
	id, version, err := parseCommonAttributes(el)
	if err != nil {
		return Way{}, err
	}
	wd := Way{
		MapObject: MapObject{ID: id, Version: version},
		Nodes:     make([]int64, 0, len(el.Children)),
	}
	for i := range el.Children {
		child := &el.Children[i]
		switch child.XMLName.Local {
		case "nd":
			refText, ok := child.attr("ref")
			if !ok {
				p.log.Warn().Int64("way", id).Msg("way reference has no 'ref' attribute, skipping reference")
				continue
			}
			ref, err := strconv.ParseInt(refText, 10, 64)
			if err != nil {
				p.log.Warn().Err(err).Int64("way", id).Msg("way reference is not numeric, skipping reference")
				continue
			}
			wd.Nodes = append(wd.Nodes, ref)
		case "tag":
			p.appendTag(&wd.MapObject, child)
		default:
			p.log.Debug().Str("element", child.XMLName.Local).Int64("way", id).Msg("unknown way child")
		}
	}
	return wd, nil
}

// parseRelation collects the three typed member lists and tags. Members
// with missing attributes or an unrecognized type are logged and dropped.
func (p *Parser) parseRelation(el *xmlElement) (Relation, error) {
	id, version, err := parseCommonAttributes(el)
	if err != nil {
		return Relation{}, err
	}
	rel := Relation{
		MapObject: MapObject{ID: id, Version: version},
	}
	for i := range el.Children {
		child := &el.Children[i]
		switch child.XMLName.Local {
		case "member":
			memberType, ok := child.attr("type")
			if !ok {
				p.log.Warn().Int64("relation", id).Msg("relation member has no 'type' attribute, skipping member")
				continue
			}
			refText, ok := child.attr("ref")
			if !ok {
				p.log.Warn().Int64("relation", id).Msg("relation member has no 'ref' attribute, skipping member")
				continue
			}
			role, ok := child.attr("role")
			if !ok {
				p.log.Warn().Int64("relation", id).Msg("relation member has no 'role' attribute, skipping member")
				continue
			}
			ref, err := strconv.ParseInt(refText, 10, 64)
			if err != nil {
				p.log.Warn().Err(err).Int64("relation", id).Msg("relation member reference is not numeric, skipping member")
				continue
			}
			member := Member{Ref: ref, Role: role}
			switch memberType {
			case "node":
				rel.NodeMembers = append(rel.NodeMembers, member)
			case "way":
				rel.WayMembers = append(rel.WayMembers, member)
			case "relation":
				rel.RelationMembers = append(rel.RelationMembers, member)
			default:
				p.log.Warn().Str("type", memberType).Int64("relation", id).Msg("unknown relation member type, skipping member")
			}
		case "tag":
			p.appendTag(&rel.MapObject, child)
		default:
			p.log.Debug().Str("element", child.XMLName.Local).Int64("relation", id).Msg("unknown relation child")
		}
	}
	return rel, nil
}

// appendTag parses a <tag k v> child; a tag missing either attribute is
// dropped without failing the parent element.
func (p *Parser) appendTag(obj *MapObject, el *xmlElement) {
	key, ok := el.attr("k")
	if !ok {
		p.log.Warn().Int64("id", obj.ID).Msg("tag has no 'k' attribute, skipping tag")
		return
	}
	value, ok := el.attr("v")
	if !ok {
		p.log.Warn().Int64("id", obj.ID).Msg("tag has no 'v' attribute, skipping tag")
		return
	}
	obj.Tags = append(obj.Tags, newTag(key, value))
}

func parseCommonAttributes(el *xmlElement) (int64, int32, error) {
	idText, ok := el.attr("id")
	if !ok {
		return 0, 0, errors.Errorf("%s has no 'id' attribute", el.XMLName.Local)
	}
	id, err := strconv.ParseInt(idText, 10, 64)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "%s has invalid 'id' attribute", el.XMLName.Local)
	}
	versionText, ok := el.attr("version")
	if !ok {
		return 0, 0, errors.Errorf("%s %d has no 'version' attribute", el.XMLName.Local, id)
	}
	version, err := strconv.ParseInt(versionText, 10, 32)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "%s %d has invalid 'version' attribute", el.XMLName.Local, id)
	}
	return id, int32(version), nil
}
