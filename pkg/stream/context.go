package stream

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/james-see/scorestream/pkg/base"
	"github.com/james-see/scorestream/pkg/clef"
	"github.com/james-see/scorestream/pkg/common"
	"github.com/james-see/scorestream/pkg/meter"
	"github.com/james-see/scorestream/pkg/note"
	"github.com/james-see/scorestream/pkg/pitch"
)

// ActiveTimeSignature finds the meter in force at the start of s: one placed at its
// offset 0, else the nearest one before it in a containing stream (directly or in
// an earlier measure), searching outward through the containers recorded in its
// Sites. It returns nil when there is none.
func (s *Stream) ActiveTimeSignature() *meter.TimeSignature {
	if ts := s.TimeSignature(); ts != nil {
		return ts
	}
	for _, c := range s.Sites().Containers() {
		parent, ok := c.(*Stream)
		if !ok || !parent.Contains(s) {
			continue
		}
		off := parent.offsetOf(s)
		es := parent.sortedEntries()
		for i := len(es) - 1; i >= 0; i-- {
			el := es[i].el
			eo := parent.offsetOf(el)
			if eo > off || el.Base() == s.Base() {
				continue
			}
			switch x := el.(type) {
			case *meter.TimeSignature:
				return x
			case *Stream:
				if x.kind == base.KindMeasure && eo < off {
					if ts := x.TimeSignature(); ts != nil {
						return ts
					}
				}
			}
		}
		if ts := parent.ActiveTimeSignature(); ts != nil {
			return ts
		}
	}
	return nil
}

// beatContext returns the meter governing el and el's offset within its bar.
func (s *Stream) beatContext(el base.Element) (*meter.TimeSignature, float64, error) {
	off, err := s.ElementOffset(el)
	if err != nil {
		return nil, 0, err
	}
	var ts *meter.TimeSignature
	var start float64
	if s.kind != base.KindMeasure {
		if found, err := s.ElementAtOrBefore(off, base.KindTimeSignature); err == nil {
			ts = found.(*meter.TimeSignature)
			start = s.offsetOf(found)
		}
	}
	if ts == nil {
		ts = s.ActiveTimeSignature()
	}
	if ts == nil {
		ts = meter.MustTimeSignature(DefaultTimeSignature)
	}
	bar := ts.BarDuration()
	rel := off - start
	rel -= bar * math.Floor(rel/bar)
	return ts, common.OpFrac(rel), nil
}

// Beat returns el's beat position, e.g. 2.5 for the second half of beat 2.
func (s *Stream) Beat(el base.Element) (float64, error) {
	ts, off, err := s.beatContext(el)
	if err != nil {
		return 0, err
	}
	return ts.GetBeatProportion(off)
}

// BeatDepth returns the metrical strength of el's position.
func (s *Stream) BeatDepth(el base.Element) (int, error) {
	ts, off, err := s.beatContext(el)
	if err != nil {
		return 0, err
	}
	return ts.GetBeatDepth(off)
}

// AccentWeight returns the accent weight of el's position.
func (s *Stream) AccentWeight(el base.Element) (float64, error) {
	ts, off, err := s.beatContext(el)
	if err != nil {
		return 0, err
	}
	return ts.GetAccentWeight(off)
}

// MakeBeams sets the beams of every note and chord in each measure of s (or in s
// itself when it is a measure) from the active meter. Parts are handled one by one.
func (s *Stream) MakeBeams() error {
	if parts := s.Parts(); len(parts) > 0 {
		for _, p := range parts {
			if err := p.MakeBeams(); err != nil {
				return err
			}
		}
		return nil
	}
	measures := s.Measures()
	if s.kind == base.KindMeasure {
		measures = []*Stream{s}
	}
	ts := meter.MustTimeSignature(DefaultTimeSignature)
	for _, m := range measures {
		if t := m.ActiveTimeSignature(); t != nil {
			ts = t
		}
		var els []base.Element
		var items []meter.BeamItem
		for off, el := range m.All() {
			if !el.Kind().IsA(base.KindGeneralNote) {
				continue
			}
			d := el.Base().Duration()
			els = append(els, el)
			items = append(items, meter.BeamItem{
				Offset:        off,
				QuarterLength: d.QuarterLength(),
				Type:          d.Type(),
				IsRest:        el.Kind().IsA(base.KindRest),
			})
		}
		for i, beams := range ts.GetBeams(items) {
			if b, ok := els[i].(note.Beamable); ok {
				b.SetBeams(beams)
			}
		}
	}
	return nil
}

// MakeNotation measures s and beams the result.
func (s *Stream) MakeNotation(meterStream *Stream) (*Stream, error) {
	out, err := s.MakeMeasures(meterStream)
	if err != nil {
		return nil, err
	}
	if err := out.MakeBeams(); err != nil {
		return nil, err
	}
	return out, nil
}

// BestClef picks treble or bass for all pitches nested in s.
func (s *Stream) BestClef() *clef.Clef {
	return clef.Best(s.Flat().Pitches())
}

// PitchStats summarises the pitches of a stream as MIDI numbers.
type PitchStats struct {
	Count   int         `json:"count"`
	Lowest  pitch.Pitch `json:"lowest"`
	Highest pitch.Pitch `json:"highest"`
	Mean    float64     `json:"mean"`
	StdDev  float64     `json:"stdDev"`
}

// PitchSummary describes every pitch nested in s.
func (s *Stream) PitchSummary() PitchStats {
	ps := s.Flat().Pitches()
	if len(ps) == 0 {
		return PitchStats{}
	}
	out := PitchStats{Count: len(ps), Lowest: ps[0], Highest: ps[0]}
	xs := make([]float64, len(ps))
	for i, p := range ps {
		xs[i] = float64(p.MIDI())
		if p.MIDI() < out.Lowest.MIDI() {
			out.Lowest = p
		}
		if p.MIDI() > out.Highest.MIDI() {
			out.Highest = p
		}
	}
	if len(xs) == 1 {
		out.Mean = xs[0]
		return out
	}
	out.Mean, out.StdDev = stat.MeanStdDev(xs, nil)
	return out
}
