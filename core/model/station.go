package model

import "sort"

// StationSet is an immutable set of nodes carrying a refuelling station.
type StationSet struct {
	ids []NodeID
	in  map[NodeID]struct{}
}

// NewStationSet builds a set from ids. Duplicates are ignored.
func NewStationSet(ids ...NodeID) StationSet {
	s := StationSet{in: make(map[NodeID]struct{}, len(ids))}
	for _, id := range ids {
		if _, ok := s.in[id]; ok {
			continue
		}
		s.in[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
	sort.Slice(s.ids, func(i, j int) bool { return s.ids[i] < s.ids[j] })
	return s
}

// Contains reports whether id carries a station.
func (s StationSet) Contains(id NodeID) bool {
	_, ok := s.in[id]
	return ok
}

// Len returns the number of stations.
func (s StationSet) Len() int { return len(s.ids) }

// IDs returns the station nodes in ascending order.
func (s StationSet) IDs() []NodeID {
	out := make([]NodeID, len(s.ids))
	copy(out, s.ids)
	return out
}
