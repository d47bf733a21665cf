package stream

import (
	"slices"

	"github.com/james-see/scorestream/pkg/base"
	"github.com/james-see/scorestream/pkg/common"
	"github.com/james-see/scorestream/pkg/meter"
	"github.com/james-see/scorestream/pkg/note"
)

// DefaultTimeSignature is assumed when no meter is available.
const DefaultTimeSignature = "4/4"

func (s *Stream) substreams(kind base.Kind) []*Stream {
	var out []*Stream
	for _, e := range s.sortedEntries() {
		if st, ok := e.el.(*Stream); ok && st.kind == kind {
			out = append(out, st)
		}
	}
	return out
}

// Measures returns the top-level measures in order.
func (s *Stream) Measures() []*Stream { return s.substreams(base.KindMeasure) }

// Parts returns the top-level parts in order.
func (s *Stream) Parts() []*Stream { return s.substreams(base.KindPart) }

// Measure returns the top-level measure with the given number.
func (s *Stream) Measure(number int) (*Stream, error) {
	for _, m := range s.Measures() {
		if m.number == number {
			return m, nil
		}
	}
	return nil, common.NotFoundf("no measure %d", number)
}

// TimeSignature returns a time signature placed at offset 0 of s, or nil.
func (s *Stream) TimeSignature() *meter.TimeSignature {
	for _, e := range s.sortedEntries() {
		if s.offsetOf(e.el) > 0 {
			break
		}
		if ts, ok := e.el.(*meter.TimeSignature); ok {
			return ts
		}
	}
	return nil
}

// MakeMeasures splits the contents of s into numbered measures. Bar lengths come
// from the time signatures in meterStream, or in s when meterStream is nil, each
// applying from its offset on; without any, 4/4 is assumed. Elements are copied, so
// s is left untouched. Each measure whose meter differs from the previous one gets
// a copy of its time signature, the first measure gets the best clef when s has
// none, and elements running past a barline are split and tied by MakeTies.
// A stream of parts is measured part by part into a new score.
func (s *Stream) MakeMeasures(meterStream *Stream) (*Stream, error) {
	if parts := s.Parts(); len(parts) > 0 {
		out := NewScore()
		for _, p := range parts {
			mp, err := p.MakeMeasures(meterStream)
			if err != nil {
				return nil, err
			}
			out.add(mp, s.offsetOf(p))
		}
		return out, nil
	}

	src := s
	if !s.IsFlat() {
		src = s.Flat()
	}
	if meterStream == nil {
		meterStream = src
	}
	meters := meterStream.GetElementsByClass(base.KindTimeSignature)
	if meters.Len() == 0 {
		common.Logger().Warn("no time signature found, assuming " + DefaultTimeSignature)
		meters.add(meter.MustTimeSignature(DefaultTimeSignature), 0)
	}
	meterAt := func(offset float64) *meter.TimeSignature {
		el, err := meters.ElementAtOrBefore(offset)
		if err != nil {
			el, _ = meters.At(0)
		}
		return el.(*meter.TimeSignature)
	}

	var content []placed
	hasClef := false
	lastOffset := 0.0
	for off, el := range src.All() {
		switch el.Kind() {
		case base.KindTimeSignature:
			continue
		case base.KindClef:
			hasClef = true
		}
		content = append(content, placed{el: el, offset: off})
		lastOffset = max(lastOffset, off)
	}
	total := src.HighestTime()

	kind := s.kind
	if kind == base.KindMeasure {
		kind = base.KindStream
	}
	out := newStream(kind)
	out.SetID(s.ID())
	var measures []*Stream
	var starts []float64
	var prev *meter.TimeSignature
	for o, n := 0.0, 1; n == 1 || o < total || (len(content) > 0 && o <= lastOffset); n++ {
		ts := meterAt(o)
		m := NewMeasure(n)
		if prev == nil || ts.Ratio() != prev.Ratio() {
			m.add(ts.DeepCopy(), 0)
		}
		prev = ts
		out.add(m, o)
		measures = append(measures, m)
		starts = append(starts, o)
		o = common.OpFrac(o + ts.BarDuration())
	}

	for _, p := range content {
		i, found := slices.BinarySearch(starts, p.offset)
		if !found {
			i--
		}
		if i < 0 {
			return nil, common.Invariantf("%v at offset %v lies before the first measure", p.el, p.offset)
		}
		measures[i].add(p.el.DeepCopy(), p.offset-starts[i])
	}

	if !hasClef {
		measures[0].add(src.BestClef(), 0)
	}
	if err := out.MakeTies(); err != nil {
		return nil, err
	}
	return out, nil
}

// MakeTies walks the measures of s in order and splits every element that runs past
// its barline. The overflow moves to the start of the next measure, which is created
// when missing, and the pieces of notes and chords are tied. Parts are handled one
// by one.
func (s *Stream) MakeTies() error {
	if parts := s.Parts(); len(parts) > 0 {
		for _, p := range parts {
			if err := p.MakeTies(); err != nil {
				return err
			}
		}
		return nil
	}

	measures := s.Measures()
	ts := meter.MustTimeSignature(DefaultTimeSignature)
	for i := 0; i < len(measures); i++ {
		m := measures[i]
		if t := m.TimeSignature(); t != nil {
			ts = t
		}
		bar := ts.BarDuration()
		for off, el := range m.All() {
			if _, ok := el.(*Stream); ok {
				continue
			}
			ql := el.Base().QuarterLength()
			if ql == 0 || off >= bar || common.OpFrac(off+ql) <= bar {
				continue
			}
			_, rest, err := SplitAtQuarterLength(el, bar-off)
			if err != nil {
				return err
			}
			if i+1 == len(measures) {
				next := NewMeasure(m.number + 1)
				s.add(next, common.OpFrac(s.offsetOf(m)+bar))
				measures = append(measures, next)
			}
			measures[i+1].add(rest, 0)
		}
	}
	return nil
}

// SplitAtQuarterLength shortens el to ql and returns it with a new element holding
// the remainder. Notes and chords are tied across the split, keeping any tie el
// already had at its outer ends.
func SplitAtQuarterLength(el base.Element, ql float64) (base.Element, base.Element, error) {
	left, right, err := el.Base().Duration().SplitAt(ql)
	if err != nil {
		return nil, nil, err
	}
	rest := el.DeepCopy()
	el.Base().SetDuration(left)
	rest.Base().SetDuration(right)

	if t, ok := el.(note.Tieable); ok {
		first, second := note.TieStart, note.TieStop
		if orig := t.GetTie(); orig != nil {
			switch orig.Type {
			case note.TieStart:
				second = note.TieContinue
			case note.TieStop:
				first = note.TieContinue
			case note.TieContinue:
				first, second = note.TieContinue, note.TieContinue
			}
		}
		t.SetTie(note.NewTie(first))
		rest.(note.Tieable).SetTie(note.NewTie(second))
	}
	return el, rest, nil
}
