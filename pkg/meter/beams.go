package meter

import (
	"github.com/james-see/scorestream/pkg/common"
	"github.com/james-see/scorestream/pkg/duration"
	"github.com/james-see/scorestream/pkg/note"
)

// BeamItem is a note or rest positioned within one bar.
type BeamItem struct {
	Offset        float64
	QuarterLength float64
	// Type is the duration type name; complex durations are never beamed.
	Type   string
	IsRest bool
}

func (b BeamItem) end() float64 {
	return common.OpFrac(b.Offset + b.QuarterLength)
}

// GetBeams computes beams for consecutive items in a bar. Items are beamed together
// when they are adjacent in time and fall in the same group of the beam sequence.
// A beam level with no neighbour becomes a partial beam pointing right, or left when
// the item ends its group. Items that get no beams have nil entries.
func (ts *TimeSignature) GetBeams(items []BeamItem) []note.Beams {
	counts := make([]int, len(items))
	groups := make([]int, len(items))
	spans := ts.beam.Spans()
	for i, it := range items {
		groups[i] = -1
		if it.IsRest {
			continue
		}
		g, err := ts.beam.OffsetToIndex(it.Offset)
		if err != nil || it.end() > spans[g].End {
			continue
		}
		groups[i] = g
		counts[i] = duration.BeamCount(it.Type)
	}

	// linked reports whether items i and i+1 share a beam at level
	linked := func(i, level int) bool {
		if i < 0 || i+1 >= len(items) {
			return false
		}
		return counts[i] >= level && counts[i+1] >= level &&
			groups[i] >= 0 && groups[i] == groups[i+1] &&
			items[i].end() == common.OpFrac(items[i+1].Offset)
	}

	out := make([]note.Beams, len(items))
	for i := range items {
		if counts[i] == 0 || (!linked(i-1, 1) && !linked(i, 1)) {
			continue
		}
		beams := make(note.Beams, 0, counts[i])
		for level := 1; level <= counts[i]; level++ {
			prev, next := linked(i-1, level), linked(i, level)
			b := note.Beam{Number: level}
			switch {
			case prev && next:
				b.Type = note.BeamContinue
			case next:
				b.Type = note.BeamStart
			case prev:
				b.Type = note.BeamStop
			default:
				b.Type = note.BeamPartial
				b.Direction = "right"
				if !linked(i, 1) {
					b.Direction = "left"
				}
			}
			beams = append(beams, b)
		}
		out[i] = beams
	}
	return out
}
