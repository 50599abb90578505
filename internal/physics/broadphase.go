package physics

import (
	"sort"
)

// SweepAndPrune implements 1-axis sweep with temporal coherence for the
// broad phase. It projects body bounds onto the X axis, sorts endpoints and
// reports overlapping intervals; callers confirm the Y overlap.
//
// Bodies barely move between steps, so insertion sort stays close to O(n).
type SweepAndPrune struct {
	endpoints  []sapEndpoint
	pairs      []Pair
	active     []int
	useInsSort bool
}

type sapEndpoint struct {
	Value float64
	Index int
	IsMin bool
}

// Pair holds the indices of two candidate bodies
type Pair struct {
	A, B int
}

// Bounds is an axis-aligned bounding box
type Bounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// overlapsY reports whether two boxes overlap on the Y axis
func (b Bounds) overlapsY(o Bounds) bool {
	return b.MinY <= o.MaxY && o.MinY <= b.MaxY
}

// NewSweepAndPrune creates a broad phase; capacity preallocates buffers.
func NewSweepAndPrune(capacity int) *SweepAndPrune {
	return &SweepAndPrune{
		endpoints:  make([]sapEndpoint, 0, capacity*2),
		pairs:      make([]Pair, 0, capacity),
		active:     make([]int, 0, capacity),
		useInsSort: true,
	}
}

// Update rebuilds the endpoints and returns pairs whose boxes overlap on both
// axes. The returned slice is reused on the next call.
func (s *SweepAndPrune) Update(bounds []Bounds) []Pair {
	s.pairs = s.pairs[:0]
	s.endpoints = s.endpoints[:0]

	for i, b := range bounds {
		s.endpoints = append(s.endpoints,
			sapEndpoint{b.MinX, i, true},
			sapEndpoint{b.MaxX, i, false},
		)
	}

	if s.useInsSort && len(s.endpoints) > 1 {
		insertionSortEndpoints(s.endpoints)
	} else {
		sort.SliceStable(s.endpoints, func(i, j int) bool {
			return endpointLess(s.endpoints[i], s.endpoints[j])
		})
	}

	s.active = s.active[:0]
	for _, ep := range s.endpoints {
		if ep.IsMin {
			for _, other := range s.active {
				if bounds[ep.Index].overlapsY(bounds[other]) {
					s.pairs = append(s.pairs, orderedPair(other, ep.Index))
				}
			}
			s.active = append(s.active, ep.Index)
			continue
		}
		for i, idx := range s.active {
			if idx == ep.Index {
				s.active[i] = s.active[len(s.active)-1]
				s.active = s.active[:len(s.active)-1]
				break
			}
		}
	}

	// Deterministic order regardless of sweep order
	sort.Slice(s.pairs, func(i, j int) bool {
		if s.pairs[i].A != s.pairs[j].A {
			return s.pairs[i].A < s.pairs[j].A
		}
		return s.pairs[i].B < s.pairs[j].B
	})

	return s.pairs
}

// SetInsertionSort toggles the temporal-coherence sort.
func (s *SweepAndPrune) SetInsertionSort(enabled bool) {
	s.useInsSort = enabled
}

func orderedPair(a, b int) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// endpointLess puts min endpoints before max endpoints at equal values so
// touching intervals count as overlapping.
func endpointLess(a, b sapEndpoint) bool {
	if a.Value != b.Value {
		return a.Value < b.Value
	}
	return a.IsMin && !b.IsMin
}

func insertionSortEndpoints(eps []sapEndpoint) {
	for i := 1; i < len(eps); i++ {
		key := eps[i]
		j := i - 1
		for j >= 0 && endpointLess(key, eps[j]) {
			eps[j+1] = eps[j]
			j--
		}
		eps[j+1] = key
	}
}
