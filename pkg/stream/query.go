package stream

import (
	"github.com/james-see/scorestream/pkg/base"
	"github.com/james-see/scorestream/pkg/common"
	"github.com/james-see/scorestream/pkg/note"
	"github.com/james-see/scorestream/pkg/pitch"
)

// derive returns an empty stream of the same kind to hold query results.
func (s *Stream) derive() *Stream {
	d := newStream(s.kind)
	d.number = s.number
	return d
}

// filter builds a derived stream of the top-level elements keep accepts. Elements
// are shared, not copied, and keep their relative order.
func (s *Stream) filter(keep func(offset float64, el base.Element) bool) *Stream {
	d := s.derive()
	for _, e := range s.sortedEntries() {
		off := s.offsetOf(e.el)
		if keep(off, e.el) {
			d.add(e.el, off)
		}
	}
	return d
}

// GetElementsByClass returns the top-level elements that are any of kinds.
func (s *Stream) GetElementsByClass(kinds ...base.Kind) *Stream {
	return s.filter(func(_ float64, el base.Element) bool {
		return el.Kind().IsAny(kinds...)
	})
}

// GetElementsNotOfClass returns the top-level elements that are none of kinds.
func (s *Stream) GetElementsNotOfClass(kinds ...base.Kind) *Stream {
	return s.filter(func(_ float64, el base.Element) bool {
		return !el.Kind().IsAny(kinds...)
	})
}

// GetElementsByGroup returns the top-level elements tagged with group.
func (s *Stream) GetElementsByGroup(group string) *Stream {
	return s.filter(func(_ float64, el base.Element) bool {
		return el.Base().HasGroup(group)
	})
}

// GetElementByID returns the first top-level element with the given id.
func (s *Stream) GetElementByID(id string) (base.Element, error) {
	for _, e := range s.sortedEntries() {
		if e.el.Base().ID() == id {
			return e.el, nil
		}
	}
	return nil, common.NotFoundf("no element with id %q", id)
}

// NotesAndRests returns notes, chords and rests.
func (s *Stream) NotesAndRests() *Stream {
	return s.GetElementsByClass(base.KindGeneralNote)
}

// Notes returns notes and chords.
func (s *Stream) Notes() *Stream {
	return s.GetElementsByClass(base.KindNotRest)
}

// Pitches collects the pitches of top-level notes and chords in order. Use
// Flat().Pitches() for nested streams.
func (s *Stream) Pitches() []pitch.Pitch {
	var out []pitch.Pitch
	for _, e := range s.sortedEntries() {
		if p, ok := e.el.(note.Pitched); ok {
			out = append(out, p.Pitches()...)
		}
	}
	return out
}

// OffsetOption adjusts GetElementsByOffset.
type OffsetOption func(*offsetFilter)

type offsetFilter struct {
	start, end                    float64
	includeEndBoundary            bool
	mustFinishInSpan              bool
	mustBeginInSpan               bool
	includeElementsThatEndAtStart bool
}

// IncludeEndBoundary controls whether an element starting exactly at end matches.
// Default true.
func IncludeEndBoundary(v bool) OffsetOption {
	return func(f *offsetFilter) { f.includeEndBoundary = v }
}

// MustFinishInSpan requires the element to end by end. Default false.
func MustFinishInSpan(v bool) OffsetOption {
	return func(f *offsetFilter) { f.mustFinishInSpan = v }
}

// MustBeginInSpan requires the element to start at or after start. When false, any
// element sounding during the span matches. Default true.
func MustBeginInSpan(v bool) OffsetOption {
	return func(f *offsetFilter) { f.mustBeginInSpan = v }
}

// IncludeElementsThatEndAtStart controls whether an element ending exactly at start
// matches when MustBeginInSpan is false. Default true.
func IncludeElementsThatEndAtStart(v bool) OffsetOption {
	return func(f *offsetFilter) { f.includeElementsThatEndAtStart = v }
}

func (f *offsetFilter) match(offset float64, el base.Element) bool {
	if offset > f.end {
		return false
	}
	ql := elementLength(el)
	end := common.OpFrac(offset + ql)
	if end < f.start {
		return false
	}
	zeroLength := ql == 0
	// a point search picks up every zero-length element touching it
	zeroLengthSearch := f.start == f.end
	if zeroLengthSearch && zeroLength {
		return true
	}

	if f.mustFinishInSpan {
		if end > f.end {
			return false
		}
		if !f.includeEndBoundary && end == f.end {
			return false
		}
	}

	if f.mustBeginInSpan {
		if offset < f.start {
			return false
		}
		if !f.includeEndBoundary && offset == f.end {
			return false
		}
	} else if !zeroLength && end == f.end && zeroLengthSearch {
		return false
	}

	if !f.includeEndBoundary && offset == f.end {
		return false
	}
	if !f.includeElementsThatEndAtStart && end == f.start {
		return false
	}
	return true
}

// GetElementsByOffset returns the top-level elements whose [offset, offset+length)
// interval satisfies the options against [start, end]. By default an element must
// begin within the span, end boundary included. Pass start == end to search a
// single point.
func (s *Stream) GetElementsByOffset(start, end float64, opts ...OffsetOption) *Stream {
	f := &offsetFilter{
		start:                         common.OpFrac(start),
		end:                           common.OpFrac(end),
		includeEndBoundary:            true,
		mustBeginInSpan:               true,
		includeElementsThatEndAtStart: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return s.filter(f.match)
}

func matchesAny(el base.Element, kinds []base.Kind) bool {
	return len(kinds) == 0 || el.Kind().IsAny(kinds...)
}

// ElementAtOrBefore returns the element with the greatest offset not after offset.
// Among several at that offset the last in stream order wins. kinds restricts the
// search when given.
func (s *Stream) ElementAtOrBefore(offset float64, kinds ...base.Kind) (base.Element, error) {
	offset = common.OpFrac(offset)
	var found base.Element
	for _, e := range s.sortedEntries() {
		if s.offsetOf(e.el) > offset {
			break
		}
		if matchesAny(e.el, kinds) {
			found = e.el
		}
	}
	if found == nil {
		return nil, common.NotFoundf("no element at or before %v", offset)
	}
	return found, nil
}

// ElementAtOrAfter returns the first element in stream order whose offset is not
// before offset.
func (s *Stream) ElementAtOrAfter(offset float64, kinds ...base.Kind) (base.Element, error) {
	offset = common.OpFrac(offset)
	for _, e := range s.sortedEntries() {
		if s.offsetOf(e.el) >= offset && matchesAny(e.el, kinds) {
			return e.el, nil
		}
	}
	return nil, common.NotFoundf("no element at or after %v", offset)
}

// ElementAfterElement returns the next element after el in stream order.
func (s *Stream) ElementAfterElement(el base.Element, kinds ...base.Kind) (base.Element, error) {
	i, err := s.Index(el)
	if err != nil {
		return nil, err
	}
	for _, e := range s.sortedEntries()[i+1:] {
		if matchesAny(e.el, kinds) {
			return e.el, nil
		}
	}
	return nil, common.NotFoundf("no element after %v", el)
}

// Gap is an interval with no sounding element.
type Gap struct {
	Start float64
	End   float64
}

// FindGaps returns the stretches between 0 and the highest time covered by no
// element of non-zero length.
func (s *Stream) FindGaps() []Gap {
	var gaps []Gap
	var reached float64
	for _, e := range s.sortedEntries() {
		ql := elementLength(e.el)
		if ql == 0 {
			continue
		}
		off := s.offsetOf(e.el)
		if off > reached {
			gaps = append(gaps, Gap{Start: reached, End: off})
		}
		reached = max(reached, common.OpFrac(off+ql))
	}
	return gaps
}
