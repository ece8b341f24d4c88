package pending

import (
	"sort"

	"github.com/devrev/pairdb/ringmeta/internal/token"
	"github.com/devrev/pairdb/ringmeta/internal/topology"
)

// entry is one non-wrapping sub-interval of the interval map, produced
// by unwrapping any wrapping Range at the minimum sentinel (spec §9
// design note, option (a): sorted half-open non-wrapping intervals plus
// an unwrap step).
type entry struct {
	r         token.Range
	endpoints map[topology.Endpoint]struct{}
}

// IntervalMap is a point-query structure over half-open wrapping
// ranges, each associated with a set of replica endpoints. Point
// lookups return the union of every interval's endpoint set that
// contains the queried token.
type IntervalMap struct {
	entries []entry // sorted by entries[i].r.Start
}

// NewIntervalMap builds an IntervalMap from a Range->endpoint multimap,
// unwrapping any wrapping range into its non-wrapping sub-intervals and
// sorting by start token.
func NewIntervalMap(multimap map[token.Range]map[topology.Endpoint]struct{}) *IntervalMap {
	im := &IntervalMap{}
	for r, eps := range multimap {
		for _, sub := range token.UnwrapAtMinimum(r) {
			im.entries = append(im.entries, entry{r: sub, endpoints: eps})
		}
	}
	sort.Slice(im.entries, func(i, j int) bool {
		return im.entries[i].r.Start.Less(im.entries[j].r.Start)
	})
	return im
}

// Empty reports whether the map carries no intervals at all.
func (im *IntervalMap) Empty() bool {
	return im == nil || len(im.entries) == 0
}

// Len returns the number of non-wrapping sub-intervals the map holds.
func (im *IntervalMap) Len() int {
	if im == nil {
		return 0
	}
	return len(im.entries)
}

// PointLookup returns the union of every interval's endpoint set that
// contains tok. Every stored entry is non-wrapping (NewIntervalMap
// unwraps at the minimum sentinel before storing), so an entry whose
// Start sorts after tok can never contain it; binary search over the
// Start-sorted entries finds the first such entry and bounds the scan
// to the prefix before it. That prefix is still scanned linearly — its
// size is the number of intervals starting at or before tok, not
// O(log N) in the adversarial case of many ranges overlapping the same
// point, but pending ranges rarely overlap beyond the handful of nodes
// concurrently bootstrapping, leaving, or being replaced for a given
// keyspace, so the prefix stays small in practice.
func (im *IntervalMap) PointLookup(tok token.Token) map[topology.Endpoint]struct{} {
	union := make(map[topology.Endpoint]struct{})
	if im == nil {
		return union
	}
	cut := sort.Search(len(im.entries), func(i int) bool {
		return im.entries[i].r.Start.Compare(tok) > 0
	})
	for i := 0; i < cut; i++ {
		if im.entries[i].r.Contains(tok) {
			for ep := range im.entries[i].endpoints {
				union[ep] = struct{}{}
			}
		}
	}
	return union
}

// HasEndpoint reports whether any interval's replica set contains ep.
func (im *IntervalMap) HasEndpoint(ep topology.Endpoint) bool {
	if im == nil {
		return false
	}
	for _, e := range im.entries {
		if _, ok := e.endpoints[ep]; ok {
			return true
		}
	}
	return false
}
