// Package meter models metre as a partition tree. A Terminal is an undivided span of
// the bar; a Sequence holds children whose lengths sum to its own. TimeSignature keeps
// four such trees for display, beats, beams and accents.
package meter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/james-see/scorestream/pkg/common"
)

// MaxDenominator is the finest denominator a meter node may use.
const MaxDenominator = 128

// Node is a Terminal or a Sequence.
type Node interface {
	Numerator() int
	Denominator() int
	Ratio() string
	QuarterLength() float64
	Weight() float64
	SetWeight(w float64)
	// Depth counts the partition levels below the node; a Terminal has none.
	Depth() int
	clone() Node
}

// Span is a half-open [Start, End) range of quarter lengths.
type Span struct {
	Start float64
	End   float64
}

// Contains reports whether offset falls in the span.
func (s Span) Contains(offset float64) bool {
	return offset >= s.Start && offset < s.End
}

// Terminal is an undivided fraction of a whole note with a weight.
type Terminal struct {
	numerator   int
	denominator int
	weight      float64
}

// NewTerminal parses a ratio such as "3/8".
func NewTerminal(ratio string) (*Terminal, error) {
	n, d, err := parseRatio(ratio)
	if err != nil {
		return nil, err
	}
	return newTerminal(n, d)
}

func newTerminal(numerator, denominator int) (*Terminal, error) {
	if numerator <= 0 {
		return nil, common.Invariantf("meter numerator %d must be positive", numerator)
	}
	if !validDenominator(denominator) {
		return nil, common.Invariantf("meter denominator %d is not a power of two up to %d", denominator, MaxDenominator)
	}
	return &Terminal{numerator: numerator, denominator: denominator, weight: 1}, nil
}

// Numerator returns the top of the ratio.
func (t *Terminal) Numerator() int   { return t.numerator }
// Denominator returns the bottom of the ratio.
func (t *Terminal) Denominator() int { return t.denominator }
// Ratio returns the span as "n/d".
func (t *Terminal) Ratio() string    { return fmt.Sprintf("%d/%d", t.numerator, t.denominator) }
// Weight returns the terminal's accent weight.
func (t *Terminal) Weight() float64  { return t.weight }
// Depth is 0 for a leaf.
func (t *Terminal) Depth() int       { return 0 }

// SetWeight sets the accent weight.
func (t *Terminal) SetWeight(w float64) { t.weight = w }

// QuarterLength is 4 × numerator/denominator.
func (t *Terminal) QuarterLength() float64 {
	return quarterLength(t.numerator, t.denominator)
}

func (t *Terminal) clone() Node {
	c := *t
	return &c
}

// Subdivide returns a Sequence of the terminal's length partitioned by spec. The
// terminal itself is unchanged.
func (t *Terminal) Subdivide(spec PartitionSpec) (*Sequence, error) {
	s := &Sequence{numerator: t.numerator, denominator: t.denominator}
	s.children = []Node{t.clone()}
	if err := s.Partition(spec); err != nil {
		return nil, err
	}
	return s, nil
}

// String shows the ratio.
func (t *Terminal) String() string {
	return t.Ratio()
}

func quarterLength(n, d int) float64 {
	return common.OpFrac(4 * float64(n) / float64(d))
}

func validDenominator(d int) bool {
	return d >= 1 && d <= MaxDenominator && d&(d-1) == 0
}

func parseRatio(ratio string) (int, int, error) {
	num, den, ok := strings.Cut(strings.TrimSpace(ratio), "/")
	if !ok {
		return 0, 0, common.Invariantf("meter ratio %q has no denominator", ratio)
	}
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil {
		return 0, 0, common.Invariantf("meter ratio %q has an invalid numerator", ratio)
	}
	d, err := strconv.Atoi(strings.TrimSpace(den))
	if err != nil {
		return 0, 0, common.Invariantf("meter ratio %q has an invalid denominator", ratio)
	}
	return n, d, nil
}
