package stream

import (
	"cmp"
	"slices"

	"github.com/james-see/scorestream/pkg/base"
	"github.com/james-see/scorestream/pkg/common"
)

type interval struct {
	el         base.Element
	start, end float64
	// position in stream order
	rank int
}

// overlap reports whether b starts inside a, where a starts first.
func overlap(a, b interval, includeEndBoundary bool) bool {
	if b.start < a.start {
		return false
	}
	if includeEndBoundary {
		return b.start <= a.end
	}
	return b.start < a.end
}

// GetOverlaps groups the top-level elements into clusters whose intervals
// intersect, directly or through other members. Each cluster of two or more
// elements is returned keyed by its earliest offset. Intervals are half-open unless
// includeEndBoundary makes touching intervals overlap; zero-length elements take
// part only when includeDurationless is set.
func (s *Stream) GetOverlaps(includeDurationless, includeEndBoundary bool) map[float64]*Stream {
	var ivs []interval
	for _, e := range s.sortedEntries() {
		ql := elementLength(e.el)
		if ql == 0 && !includeDurationless {
			continue
		}
		off := s.offsetOf(e.el)
		ivs = append(ivs, interval{el: e.el, start: off, end: common.OpFrac(off + ql), rank: len(ivs)})
	}
	// earlier start first, longer first at one start
	slices.SortStableFunc(ivs, func(a, b interval) int {
		if c := cmp.Compare(a.start, b.start); c != 0 {
			return c
		}
		return cmp.Compare(b.end, a.end)
	})

	parent := make([]int, len(ivs))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for i := range ivs {
		for j := i + 1; j < len(ivs); j++ {
			if ivs[j].start > ivs[i].end {
				break
			}
			if overlap(ivs[i], ivs[j], includeEndBoundary) {
				parent[find(j)] = find(i)
			}
		}
	}

	clusters := make(map[int][]interval)
	for i, iv := range ivs {
		r := find(i)
		clusters[r] = append(clusters[r], iv)
	}

	out := make(map[float64]*Stream)
	for _, members := range clusters {
		if len(members) < 2 {
			continue
		}
		slices.SortFunc(members, func(a, b interval) int { return cmp.Compare(a.rank, b.rank) })
		key := members[0].start
		group, ok := out[key]
		if !ok {
			group = s.derive()
			out[key] = group
		} else {
			common.Logger().Warn("separate overlap clusters share an offset, merging", "offset", key)
		}
		for _, m := range members {
			group.add(m.el, m.start)
		}
	}
	return out
}
