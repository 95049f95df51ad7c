package osmroute

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// MapObject carries the fields shared by every entity kind: a 64-bit
// identifier unique within a dataset, a version counter and an ordered tag
// list. Tag keys may repeat; lookups return the first match. Entities are
// never mutated after construction; filtering produces copies.
type MapObject struct {
	ID      int64
	Version int32
	Tags    osm.Tags
}

// HasTag reports whether a tag with the given key is present.
func (o *MapObject) HasTag(key string) bool {
	for i := range o.Tags {
		if o.Tags[i].Key == key {
			return true
		}
	}
	return false
}

// HasTagValue reports whether the exact key-value pair is present.
func (o *MapObject) HasTagValue(key, value string) bool {
	for i := range o.Tags {
		if o.Tags[i].Key == key && o.Tags[i].Value == value {
			return true
		}
	}
	return false
}

// TagValue returns the value of the first tag with the given key. The
// second return value distinguishes an absent key from a present but
// empty-valued one.
func (o *MapObject) TagValue(key string) (string, bool) {
	for i := range o.Tags {
		if o.Tags[i].Key == key {
			return o.Tags[i].Value, true
		}
	}
	return "", false
}

func newTag(key, value string) osm.Tag {
	return osm.Tag{Key: key, Value: value}
}

// Node is a single point on the map.
type Node struct {
	MapObject
	Lat float64
	Lon float64
}

// Point returns the node position as (lon, lat), the axis order used by
// every geometry type in this module.
func (n *Node) Point() orb.Point {
	return orb.Point{n.Lon, n.Lat}
}

// Way is an ordered polyline of node references. The referenced nodes need
// not all exist in every derived Segment.
type Way struct {
	MapObject
	Nodes []int64
}

// Member is a single typed member of a relation.
type Member struct {
	Ref  int64
	Role string
}

// Relation groups nodes, ways and other relations, each member carrying a
// role string.
type Relation struct {
	MapObject
	NodeMembers     []Member
	WayMembers      []Member
	RelationMembers []Member
}
