package meter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/james-see/scorestream/pkg/common"
)

// Sequence is an ordered partition of a span. Child lengths always sum to the
// sequence's own length. Its weight is the sum of its children's unless overridden.
type Sequence struct {
	numerator      int
	denominator    int
	children       []Node
	weightOverride *float64
}

// NewSequence parses "3/4" (one undivided child), "3/8+3/8" or "2+3/8" (additive:
// bare numerators share the next denominator given).
func NewSequence(ratio string) (*Sequence, error) {
	terms := strings.Split(ratio, "+")
	nums := make([]int, len(terms))
	dens := make([]int, len(terms))
	pending := 0
	for i, term := range terms {
		term = strings.TrimSpace(term)
		if !strings.Contains(term, "/") {
			n, err := strconv.Atoi(term)
			if err != nil {
				return nil, common.Invariantf("invalid meter term %q in %q", term, ratio)
			}
			nums[i] = n
			pending++
			continue
		}
		n, d, err := parseRatio(term)
		if err != nil {
			return nil, err
		}
		nums[i], dens[i] = n, d
		for j := i - pending; j < i; j++ {
			dens[j] = d
		}
		pending = 0
	}
	if pending > 0 {
		return nil, common.Invariantf("meter %q ends without a denominator", ratio)
	}

	s := &Sequence{}
	for i := range terms {
		t, err := newTerminal(nums[i], dens[i])
		if err != nil {
			return nil, err
		}
		s.children = append(s.children, t)
	}
	s.numerator, s.denominator = sumRatios(s.children)
	return s, nil
}

// MustSequence is like NewSequence but panics on error.
func MustSequence(ratio string) *Sequence {
	s, err := NewSequence(ratio)
	if err != nil {
		panic(err)
	}
	return s
}

// sumRatios adds the children's fractions over the largest denominator.
func sumRatios(nodes []Node) (int, int) {
	den := 1
	for _, n := range nodes {
		den = max(den, n.Denominator())
	}
	num := 0
	for _, n := range nodes {
		num += n.Numerator() * (den / n.Denominator())
	}
	return num, den
}

// Numerator returns the top of the ratio.
func (s *Sequence) Numerator() int   { return s.numerator }
// Denominator returns the bottom of the ratio.
func (s *Sequence) Denominator() int { return s.denominator }
// Ratio returns the total span as "n/d".
func (s *Sequence) Ratio() string    { return fmt.Sprintf("%d/%d", s.numerator, s.denominator) }

// QuarterLength is the total span in quarter notes.
func (s *Sequence) QuarterLength() float64 {
	return quarterLength(s.numerator, s.denominator)
}

// Weight returns the overridden weight if set, else the sum of child weights.
func (s *Sequence) Weight() float64 {
	if s.weightOverride != nil {
		return *s.weightOverride
	}
	var w float64
	for _, c := range s.children {
		w += c.Weight()
	}
	return w
}

// SetWeight distributes w over the children in proportion to their length and
// clears any override.
func (s *Sequence) SetWeight(w float64) {
	s.weightOverride = nil
	total := s.QuarterLength()
	for _, c := range s.children {
		c.SetWeight(w * c.QuarterLength() / total)
	}
}

// OverrideWeight fixes the sequence's weight without touching its children.
func (s *Sequence) OverrideWeight(w float64) {
	s.weightOverride = &w
}

// Depth counts the levels below the sequence; a flat partition has depth 1.
func (s *Sequence) Depth() int {
	d := 0
	for _, c := range s.children {
		d = max(d, c.Depth()+1)
	}
	return d
}

func (s *Sequence) clone() Node {
	return s.Clone()
}

// Clone deep-copies the tree.
func (s *Sequence) Clone() *Sequence {
	c := &Sequence{numerator: s.numerator, denominator: s.denominator}
	c.children = make([]Node, len(s.children))
	for i, ch := range s.children {
		c.children[i] = ch.clone()
	}
	if s.weightOverride != nil {
		w := *s.weightOverride
		c.weightOverride = &w
	}
	return c
}

// Len returns the number of immediate children.
func (s *Sequence) Len() int { return len(s.children) }

// Child returns the i-th immediate child.
func (s *Sequence) Child(i int) Node { return s.children[i] }

// Children returns the immediate children.
func (s *Sequence) Children() []Node {
	return append([]Node(nil), s.children...)
}

// Set replaces child i. The replacement must have the same length.
func (s *Sequence) Set(i int, n Node) error {
	if i < 0 || i >= len(s.children) {
		return common.NotFoundf("child %d of %d", i, len(s.children))
	}
	if n.QuarterLength() != s.children[i].QuarterLength() {
		return common.Invariantf("cannot replace %s with %s", s.children[i].Ratio(), n.Ratio())
	}
	s.children[i] = n
	return nil
}

// Partition replaces the children according to spec, keeping the total weight. On
// error the sequence is unchanged.
func (s *Sequence) Partition(spec PartitionSpec) error {
	parts, err := spec.parts(s)
	if err != nil {
		return err
	}
	var total float64
	for _, p := range parts {
		total += p.QuarterLength()
	}
	if common.OpFrac(total) != s.QuarterLength() {
		return common.Invariantf("partition sums to %v, want %v", common.OpFrac(total), s.QuarterLength())
	}
	w := s.Weight()
	s.children = parts
	s.SetWeight(w)
	return nil
}

// Subdivide returns a partitioned copy, leaving s unchanged.
func (s *Sequence) Subdivide(spec PartitionSpec) (*Sequence, error) {
	c := s.Clone()
	if err := c.Partition(spec); err != nil {
		return nil, err
	}
	return c, nil
}

// IsUniformPartition reports whether all immediate children have the same length.
func (s *Sequence) IsUniformPartition() bool {
	if len(s.children) < 2 {
		return true
	}
	for _, c := range s.children[1:] {
		if c.QuarterLength() != s.children[0].QuarterLength() {
			return false
		}
	}
	return true
}

func (s *Sequence) levelNodes(level int) []Node {
	var out []Node
	for _, c := range s.children {
		switch c := c.(type) {
		case *Terminal:
			out = append(out, c)
		case *Sequence:
			if level > 0 {
				out = append(out, c.levelNodes(level-1)...)
				continue
			}
			out = append(out, &Terminal{numerator: c.numerator, denominator: c.denominator, weight: c.Weight()})
		}
	}
	return out
}

// Level returns a flat sequence of the nodes at the given depth below s, with
// shallower terminals carried down and deeper sequences collapsed to terminals.
func (s *Sequence) Level(level int) *Sequence {
	nodes := s.levelNodes(level)
	out := &Sequence{numerator: s.numerator, denominator: s.denominator}
	out.children = make([]Node, len(nodes))
	for i, n := range nodes {
		out.children[i] = n.clone()
	}
	return out
}

// LevelSpan returns the spans of Level(level).
func (s *Sequence) LevelSpan(level int) []Span {
	return spans(s.levelNodes(level))
}

// Flatten returns a sequence of all leaf terminals.
func (s *Sequence) Flatten() *Sequence {
	return s.Level(max(s.Depth()-1, 0))
}

// Spans returns the spans of the immediate children.
func (s *Sequence) Spans() []Span {
	return spans(s.children)
}

func spans(nodes []Node) []Span {
	out := make([]Span, len(nodes))
	var pos float64
	for i, n := range nodes {
		end := common.OpFrac(pos + n.QuarterLength())
		out[i] = Span{Start: pos, End: end}
		pos = end
	}
	return out
}

func (s *Sequence) checkOffset(offset float64) (float64, error) {
	if len(s.children) == 0 {
		return 0, common.NotFoundf("meter %s has no partition", s.Ratio())
	}
	offset = common.OpFrac(offset)
	if offset < 0 || offset >= s.QuarterLength() {
		return 0, common.NotFoundf("offset %v outside meter %s", offset, s.Ratio())
	}
	return offset, nil
}

// OffsetToIndex returns the index of the child whose span contains offset.
func (s *Sequence) OffsetToIndex(offset float64) (int, error) {
	offset, err := s.checkOffset(offset)
	if err != nil {
		return 0, err
	}
	for i, sp := range s.Spans() {
		if sp.Contains(offset) {
			return i, nil
		}
	}
	return 0, common.NotFoundf("offset %v outside meter %s", offset, s.Ratio())
}

// OffsetToSpan returns the span of the child containing offset.
func (s *Sequence) OffsetToSpan(offset float64) (Span, error) {
	i, err := s.OffsetToIndex(offset)
	if err != nil {
		return Span{}, err
	}
	return s.Spans()[i], nil
}

// Align selects how OffsetToDepth treats offsets between leaf boundaries.
type Align int

const (
	// AlignQuantize snaps to the nearest leaf start; halfway goes earlier.
	AlignQuantize Align = iota
	// AlignStart snaps back to the start of the leaf containing the offset.
	AlignStart
)

// OffsetToDepth measures metrical strength: after aligning offset to a leaf
// boundary it counts the levels, including the whole span itself, that have a
// boundary starting there. In 3/4 split to 16ths the downbeat scores 4, other beats
// 3, eighth off-beats 2 and 16th off-beats 1.
func (s *Sequence) OffsetToDepth(offset float64, align Align) (int, error) {
	offset, err := s.checkOffset(offset)
	if err != nil {
		return 0, err
	}
	depth := s.Depth()
	leaves := s.LevelSpan(max(depth-1, 0))
	if len(leaves) == 0 {
		return 0, common.NotFoundf("meter %s has no partition", s.Ratio())
	}

	pos := offset
	switch align {
	case AlignStart:
		for _, sp := range leaves {
			if sp.Contains(offset) {
				pos = sp.Start
				break
			}
		}
	default:
		best := leaves[0].Start
		for _, sp := range leaves[1:] {
			if abs(sp.Start-offset) < abs(best-offset) {
				best = sp.Start
			}
		}
		pos = best
	}

	count := 0
	if pos == 0 {
		count++
	}
	for level := 0; level < depth; level++ {
		for _, sp := range s.LevelSpan(level) {
			if sp.Start == pos {
				count++
				break
			}
		}
	}
	return count, nil
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// defaultDivisions is how a span of n units splits by default: binary spans in two,
// triple spans in three, compound spans by their dotted beats.
func defaultDivisions(n int) int {
	switch {
	case n == 1 || n&(n-1) == 0:
		return 2
	case n == 3:
		return 3
	case n%3 == 0:
		return n / 3
	default:
		return n
	}
}

// SubdivideNestedHierarchy grows the tree to depth levels by splitting terminals
// with their default divisions. A sequence that is a single terminal is first split
// at the top. Terminals too fine to split further are left alone.
func (s *Sequence) SubdivideNestedHierarchy(depth int) {
	if depth <= 0 {
		return
	}
	if len(s.children) == 1 {
		if t, ok := s.children[0].(*Terminal); ok {
			// an error leaves the single terminal in place
			_ = s.Partition(Count(defaultDivisions(t.numerator)))
		}
	}
	s.expand(depth)
}

func (s *Sequence) expand(levels int) {
	if levels <= 1 {
		return
	}
	for i, c := range s.children {
		switch c := c.(type) {
		case *Terminal:
			sub, err := c.Subdivide(Count(defaultDivisions(c.numerator)))
			if err != nil {
				continue
			}
			s.children[i] = sub
			sub.expand(levels - 1)
		case *Sequence:
			c.expand(levels - 1)
		}
	}
}

// String renders the tree, e.g. "{1/4+{1/8+1/8}}".
func (s *Sequence) String() string {
	parts := make([]string, len(s.children))
	for i, c := range s.children {
		parts[i] = fmt.Sprint(c)
	}
	return "{" + strings.Join(parts, "+") + "}"
}
