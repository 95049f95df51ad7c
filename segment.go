package osmroute

import (
	"math"

	"github.com/paulmach/orb"
)

// Segment is an in-memory, possibly filtered, map dataset. It owns the
// three entity collections, an id-to-position index per kind and a bounding
// rectangle enclosing every contained node. Index entries always point to
// the current position of their entity; the only mutations allowed after
// construction are the explicit Add* operations, which preserve that
// invariant.
type Segment struct {
	nodes     []Node
	ways      []Way
	relations []Relation

	nodeIndex     map[int64]int
	wayIndex      map[int64]int
	relationIndex map[int64]int

	bounds orb.Bound
}

// NewSegment returns an empty segment.
func NewSegment() *Segment {
	return &Segment{
		nodeIndex:     make(map[int64]int),
		wayIndex:      make(map[int64]int),
		relationIndex: make(map[int64]int),
	}
}

// newSegmentFromMerge wraps merged ingestion collections, shrinking them to
// reclaim the capacity the batches over-allocated. Index positions survive
// the copy unchanged.
func newSegmentFromMerge(m *mergeState) *Segment {
	segment := &Segment{
		nodes:         make([]Node, len(m.nodes)),
		ways:          make([]Way, len(m.ways)),
		relations:     make([]Relation, len(m.relations)),
		nodeIndex:     m.nodeIndex,
		wayIndex:      m.wayIndex,
		relationIndex: m.relationIndex,
	}
	copy(segment.nodes, m.nodes)
	copy(segment.ways, m.ways)
	copy(segment.relations, m.relations)
	return segment
}

func (s *Segment) NodeCount() int     { return len(s.nodes) }
func (s *Segment) WayCount() int      { return len(s.ways) }
func (s *Segment) RelationCount() int { return len(s.relations) }

func (s *Segment) HasNodes() bool     { return len(s.nodes) > 0 }
func (s *Segment) HasWays() bool      { return len(s.ways) > 0 }
func (s *Segment) HasRelations() bool { return len(s.relations) > 0 }

// Empty reports whether the segment holds no entities at all.
func (s *Segment) Empty() bool {
	return !s.HasNodes() && !s.HasWays() && !s.HasRelations()
}

// Bounds returns the rectangle enclosing every node in the segment.
func (s *Segment) Bounds() orb.Bound { return s.bounds }

func (s *Segment) HasNode(id int64) bool {
	_, ok := s.nodeIndex[id]
	return ok
}

func (s *Segment) HasWay(id int64) bool {
	_, ok := s.wayIndex[id]
	return ok
}

func (s *Segment) HasRelation(id int64) bool {
	_, ok := s.relationIndex[id]
	return ok
}

// GetNode returns the node with the given identifier. The returned pointer
// aliases segment storage and must be treated as read-only.
func (s *Segment) GetNode(id int64) (*Node, bool) {
	idx, ok := s.nodeIndex[id]
	if !ok {
		return nil, false
	}
	return &s.nodes[idx], true
}

func (s *Segment) GetWay(id int64) (*Way, bool) {
	idx, ok := s.wayIndex[id]
	if !ok {
		return nil, false
	}
	return &s.ways[idx], true
}

func (s *Segment) GetRelation(id int64) (*Relation, bool) {
	idx, ok := s.relationIndex[id]
	if !ok {
		return nil, false
	}
	return &s.relations[idx], true
}

// Nodes returns the node collection. Callers must not mutate it.
func (s *Segment) Nodes() []Node { return s.nodes }

// Ways returns the way collection. Callers must not mutate it.
func (s *Segment) Ways() []Way { return s.ways }

// Relations returns the relation collection. Callers must not mutate it.
func (s *Segment) Relations() []Relation { return s.relations }

// AddNode inserts a node. A node with the same identifier already present
// leaves the segment untouched and reports false. With extendBounds the
// bounding rectangle grows incrementally instead of requiring a full
// recompute.
func (s *Segment) AddNode(nd Node, extendBounds bool) bool {
	if s.HasNode(nd.ID) {
		return false
	}
	s.nodes = append(s.nodes, nd)
	s.nodeIndex[nd.ID] = len(s.nodes) - 1
	if extendBounds {
		if len(s.nodes) == 1 {
			s.bounds = orb.Bound{Min: nd.Point(), Max: nd.Point()}
		} else {
			s.bounds = s.bounds.Extend(nd.Point())
		}
	}
	return true
}

// AddWay inserts a way. With addChildren the way's referenced nodes are
// pulled from the source segment, so a filtered way always carries its live
// node dependencies.
func (s *Segment) AddWay(wd Way, src *Segment, addChildren bool, extendBounds bool) bool {
	if s.HasWay(wd.ID) {
		return false
	}
	s.ways = append(s.ways, wd)
	s.wayIndex[wd.ID] = len(s.ways) - 1
	if addChildren && src != nil {
		for _, ref := range wd.Nodes {
			if s.HasNode(ref) {
				continue
			}
			if nd, ok := src.GetNode(ref); ok {
				s.AddNode(*nd, extendBounds)
			}
		}
	}
	return true
}

// AddRelation inserts a relation, optionally pulling its members from the
// source segment recursively. Cycles between relations terminate because
// the relation itself is registered before its members are resolved.
func (s *Segment) AddRelation(rel Relation, src *Segment, addChildren bool, extendBounds bool) bool {
	if s.HasRelation(rel.ID) {
		return false
	}
	s.relations = append(s.relations, rel)
	s.relationIndex[rel.ID] = len(s.relations) - 1
	if addChildren && src != nil {
		for _, member := range rel.NodeMembers {
			if s.HasNode(member.Ref) {
				continue
			}
			if nd, ok := src.GetNode(member.Ref); ok {
				s.AddNode(*nd, extendBounds)
			}
		}
		for _, member := range rel.WayMembers {
			if s.HasWay(member.Ref) {
				continue
			}
			if wd, ok := src.GetWay(member.Ref); ok {
				s.AddWay(*wd, src, true, extendBounds)
			}
		}
		for _, member := range rel.RelationMembers {
			if s.HasRelation(member.Ref) {
				continue
			}
			if child, ok := src.GetRelation(member.Ref); ok {
				s.AddRelation(*child, src, true, extendBounds)
			}
		}
	}
	return true
}

// RecalculateBoundaries recomputes the bounding rectangle with a full scan
// of the node collection.
func (s *Segment) RecalculateBoundaries() {
	if len(s.nodes) == 0 {
		s.bounds = orb.Bound{}
		return
	}
	bounds := orb.Bound{Min: s.nodes[0].Point(), Max: s.nodes[0].Point()}
	for i := 1; i < len(s.nodes); i++ {
		bounds = bounds.Extend(s.nodes[i].Point())
	}
	s.bounds = bounds
}

// FindNodes is the generalized filtering primitive from which every derived
// query is built. A node is included when nodeAccept holds. For each way
// where wayAccept holds, the reference list is narrowed to the references
// whose node satisfies wayNodeAccept; a way whose narrowed list is empty is
// dropped entirely, otherwise a copy carrying only the narrowed references
// is included along with its referenced nodes. References whose node is
// absent from this segment are dropped.
func (s *Segment) FindNodes(
	nodeAccept func(nd *Node) bool,
	wayAccept func(wd *Way) bool,
	wayNodeAccept func(wd *Way, nd *Node) bool,
) *Segment {
	out := NewSegment()
	for i := range s.nodes {
		if nodeAccept(&s.nodes[i]) {
			out.AddNode(s.nodes[i], true)
		}
	}
	for i := range s.ways {
		wd := &s.ways[i]
		if !wayAccept(wd) {
			continue
		}
		refs := make([]int64, 0, len(wd.Nodes))
		for _, ref := range wd.Nodes {
			nd, ok := s.GetNode(ref)
			if !ok {
				continue
			}
			if wayNodeAccept(wd, nd) {
				refs = append(refs, ref)
			}
		}
		if len(refs) == 0 {
			continue
		}
		filtered := Way{MapObject: wd.MapObject, Nodes: refs}
		out.AddWay(filtered, s, true, true)
	}
	return out
}

// FindSquareNodes returns the sub-segment inside the given rectangle. Ways
// keep only the references whose node lies inside.
func (s *Segment) FindSquareNodes(rect orb.Bound) *Segment {
	return s.FindNodes(
		func(nd *Node) bool { return rect.Contains(nd.Point()) },
		func(wd *Way) bool { return true },
		func(wd *Way, nd *Node) bool { return rect.Contains(nd.Point()) },
	)
}

// FindTagNodes returns the sub-segment of nodes carrying the given tag key.
// Ways are narrowed to their tagged nodes; ways keeping no reference are
// dropped.
func (s *Segment) FindTagNodes(tag string) *Segment {
	return s.FindNodes(
		func(nd *Node) bool { return nd.HasTag(tag) },
		func(wd *Way) bool { return true },
		func(wd *Way, nd *Node) bool { return nd.HasTag(tag) },
	)
}

// FindTagWays returns the sub-segment of ways carrying the given tag key.
// The node collection is kept in full.
func (s *Segment) FindTagWays(tag string) *Segment {
	return s.FindNodes(
		func(nd *Node) bool { return true },
		func(wd *Way) bool { return wd.HasTag(tag) },
		func(wd *Way, nd *Node) bool { return true },
	)
}

// FindCircleNodes returns the sub-segment within radiusKm kilometers of the
// given center, measured along the great circle.
func (s *Segment) FindCircleNodes(center orb.Point, radiusKm float64) *Segment {
	inside := func(nd *Node) bool {
		return greatCircleDistance(center, nd.Point()) <= radiusKm
	}
	return s.FindNodes(
		inside,
		func(wd *Way) bool { return true },
		func(wd *Way, nd *Node) bool { return inside(nd) },
	)
}

// FindClosestNode returns the node nearest to the given point, or false for
// an empty segment.
func (s *Segment) FindClosestNode(pt orb.Point) (*Node, bool) {
	best := -1
	bestDistance := math.Inf(1)
	for i := range s.nodes {
		d := greatCircleDistance(pt, s.nodes[i].Point())
		if d < bestDistance {
			bestDistance = d
			best = i
		}
	}
	if best < 0 {
		return nil, false
	}
	return &s.nodes[best], true
}

// FindAddress returns the identifiers of nodes whose address tags match
// every non-empty argument.
func (s *Segment) FindAddress(city, postcode, street, housenumber string) []int64 {
	match := func(nd *Node, key, want string) bool {
		if want == "" {
			return true
		}
		return nd.HasTagValue(key, want)
	}
	ids := []int64{}
	for i := range s.nodes {
		nd := &s.nodes[i]
		if match(nd, "addr:city", city) &&
			match(nd, "addr:postcode", postcode) &&
			match(nd, "addr:street", street) &&
			match(nd, "addr:housenumber", housenumber) {
			ids = append(ids, nd.ID)
		}
	}
	return ids
}

// NodeTagHistogram counts how often each tag key occurs on nodes.
func (s *Segment) NodeTagHistogram() map[string]int {
	hist := make(map[string]int)
	for i := range s.nodes {
		for _, tag := range s.nodes[i].Tags {
			hist[tag.Key]++
		}
	}
	return hist
}

// WayTagHistogram counts how often each tag key occurs on ways.
func (s *Segment) WayTagHistogram() map[string]int {
	hist := make(map[string]int)
	for i := range s.ways {
		for _, tag := range s.ways[i].Tags {
			hist[tag.Key]++
		}
	}
	return hist
}

// TagHistogram counts tag keys across nodes, ways and relations.
func (s *Segment) TagHistogram() map[string]int {
	hist := s.NodeTagHistogram()
	for i := range s.ways {
		for _, tag := range s.ways[i].Tags {
			hist[tag.Key]++
		}
	}
	for i := range s.relations {
		for _, tag := range s.relations[i].Tags {
			hist[tag.Key]++
		}
	}
	return hist
}
