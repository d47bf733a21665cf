package meter

import (
	"fmt"
	"math"

	"github.com/james-see/scorestream/pkg/base"
	"github.com/james-see/scorestream/pkg/common"
)

// accentDepth is how many levels below the beat accents are graded.
const accentDepth = 3

// TimeSignature is a zero-length element describing the bar. It keeps four
// partitions of the same bar: display (as written), beat, beam and accent.
type TimeSignature struct {
	base.Object
	display *Sequence
	beat    *Sequence
	beam    *Sequence
	accent  *Sequence
}

// NewTimeSignature parses "3/4", "6/8", "3/8+2/8" or "2+2+3/8".
func NewTimeSignature(ratio string) (*TimeSignature, error) {
	display, err := NewSequence(ratio)
	if err != nil {
		return nil, err
	}
	ts := &TimeSignature{display: display}
	if err := ts.setDefaults(); err != nil {
		return nil, err
	}
	return ts, nil
}

// MustTimeSignature is like NewTimeSignature but panics on error.
func MustTimeSignature(ratio string) *TimeSignature {
	ts, err := NewTimeSignature(ratio)
	if err != nil {
		panic(err)
	}
	return ts
}

func isCompound(numerator int) bool {
	return numerator > 3 && numerator%3 == 0
}

func (ts *TimeSignature) setDefaults() error {
	num, den := ts.display.numerator, ts.display.denominator
	additive := ts.display.Len() > 1

	ts.beat = ts.display.Clone()
	if !additive {
		count := num
		if isCompound(num) {
			count = num / 3
		}
		if err := ts.beat.Partition(Count(count)); err != nil {
			return err
		}
	}

	ts.beam = ts.display.Clone()
	if !additive {
		var spec PartitionSpec
		switch {
		case isCompound(num):
			spec = Count(num / 3)
		case num == 5:
			spec = Numerators{3, 2}
		case num == 7:
			spec = Count(3)
		case den <= 4:
			spec = Count(num)
		}
		if spec != nil {
			if err := ts.beam.Partition(spec); err != nil {
				return err
			}
		}
	}

	ts.setAccentWeights()
	return nil
}

// setAccentWeights grades every leaf of the beat hierarchy: the strongest position
// weighs 1 and each level weaker halves it.
func (ts *TimeSignature) setAccentWeights() {
	h := ts.beatHierarchy()
	leaves := h.Flatten()
	counts := make([]int, leaves.Len())
	maxCount := 0
	for i, sp := range leaves.Spans() {
		c, err := h.OffsetToDepth(sp.Start, AlignStart)
		if err != nil {
			continue
		}
		counts[i] = c
		maxCount = max(maxCount, c)
	}
	for i, c := range counts {
		leaves.children[i].SetWeight(1 / math.Pow(2, float64(maxCount-c)))
	}
	ts.accent = leaves
}

func (ts *TimeSignature) beatHierarchy() *Sequence {
	h := ts.beat.Clone()
	h.SubdivideNestedHierarchy(accentDepth)
	return h
}

// Kind reports KindTimeSignature.
func (ts *TimeSignature) Kind() base.Kind { return base.KindTimeSignature }

// DeepCopy copies all four partitions.
func (ts *TimeSignature) DeepCopy() base.Element {
	return &TimeSignature{
		Object:  *ts.Object.Clone(),
		display: ts.display.Clone(),
		beat:    ts.beat.Clone(),
		beam:    ts.beam.Clone(),
		accent:  ts.accent.Clone(),
	}
}

// Numerator returns the written numerator.
func (ts *TimeSignature) Numerator() int   { return ts.display.numerator }
// Denominator returns the written denominator.
func (ts *TimeSignature) Denominator() int { return ts.display.denominator }

// Ratio returns the written ratio, e.g. "6/8".
func (ts *TimeSignature) Ratio() string { return ts.display.Ratio() }

// DisplaySequence returns the live written partition; the sequence accessors below
// all share this property, so changes made through them affect later queries.
func (ts *TimeSignature) DisplaySequence() *Sequence { return ts.display }

// BeatSequence returns the live beat partition.
func (ts *TimeSignature) BeatSequence() *Sequence { return ts.beat }

// BeamSequence returns the live beam grouping.
func (ts *TimeSignature) BeamSequence() *Sequence { return ts.beam }

// AccentSequence returns the live accent hierarchy.
func (ts *TimeSignature) AccentSequence() *Sequence { return ts.accent }

// BarDuration is the length of a full bar in quarter lengths.
func (ts *TimeSignature) BarDuration() float64 {
	return ts.display.QuarterLength()
}

// BeatCount is the number of beats in a bar.
func (ts *TimeSignature) BeatCount() int {
	return ts.beat.Len()
}

// IsCompound reports a compound meter such as 6/8 or 12/8.
func (ts *TimeSignature) IsCompound() bool {
	return ts.display.Len() == 1 && isCompound(ts.display.numerator)
}

// BeatDuration is the length of one beat. Bars with unequal beats have none.
func (ts *TimeSignature) BeatDuration() (float64, error) {
	if !ts.beat.IsUniformPartition() {
		return 0, common.Invariantf("beats of %s differ in length: %s", ts.Ratio(), ts.beat)
	}
	return ts.beat.children[0].QuarterLength(), nil
}

// BeatDivisionCount is how many parts the first beat divides into: 2 for simple
// meters, 3 for compound.
func (ts *TimeSignature) BeatDivisionCount() int {
	switch b := ts.beat.children[0].(type) {
	case *Sequence:
		return b.Len()
	default:
		return defaultDivisions(b.Numerator())
	}
}

// GetBeat returns the 1-based beat containing offset.
func (ts *TimeSignature) GetBeat(offset float64) (int, error) {
	i, err := ts.beat.OffsetToIndex(offset)
	if err != nil {
		return 0, err
	}
	return i + 1, nil
}

// GetBeatProportion returns the beat plus the fraction of it already elapsed, so
// the second eighth of beat 2 in 4/4 is 2.5.
func (ts *TimeSignature) GetBeatProportion(offset float64) (float64, error) {
	i, err := ts.beat.OffsetToIndex(offset)
	if err != nil {
		return 0, err
	}
	sp := ts.beat.Spans()[i]
	frac := (common.OpFrac(offset) - sp.Start) / (sp.End - sp.Start)
	return common.OpFrac(float64(i+1) + frac), nil
}

// GetBeatDepth returns the metrical strength of offset within the beat hierarchy
// split three levels deep.
func (ts *TimeSignature) GetBeatDepth(offset float64) (int, error) {
	return ts.beatHierarchy().OffsetToDepth(offset, AlignQuantize)
}

// GetAccentWeight returns the accent weight at offset: 1 for the downbeat,
// halving for each weaker level.
func (ts *TimeSignature) GetAccentWeight(offset float64) (float64, error) {
	i, err := ts.accent.OffsetToIndex(offset)
	if err != nil {
		return 0, err
	}
	return ts.accent.children[i].Weight(), nil
}

// String shows the ratio.
func (ts *TimeSignature) String() string {
	return fmt.Sprintf("<TimeSignature %s>", ts.Ratio())
}
