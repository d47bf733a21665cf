package meter

import (
	"github.com/james-see/scorestream/pkg/common"
)

// PartitionSpec describes how to split a sequence: Count, Numerators, Ratios or
// another *Sequence whose top-level partition is copied.
type PartitionSpec interface {
	parts(s *Sequence) ([]Node, error)
}

// Count splits into n parts. Equal parts are used when the numerator divides evenly.
// Otherwise a numerator larger than n is grouped additively with the longer groups
// last (5/8 by 2 is 2/8+3/8, 7/8 by 3 is 2/8+2/8+3/8), and a smaller one is
// rewritten over a finer denominator (1/4 by 2 is 1/8+1/8).
type Count int

func (c Count) parts(s *Sequence) ([]Node, error) {
	n := int(c)
	if n <= 0 {
		return nil, common.Invariantf("cannot partition %s into %d parts", s.Ratio(), n)
	}
	num, den := s.numerator, s.denominator

	var sizes []int
	switch {
	case num%n == 0:
		sizes = repeat(num/n, n)
	case num > n:
		base, extra := num/n, num%n
		sizes = append(repeat(base, n-extra), repeat(base+1, extra)...)
	default:
		for num%n != 0 {
			num, den = num*2, den*2
			if den > MaxDenominator {
				return nil, common.Invariantf("cannot partition %s into %d equal parts", s.Ratio(), n)
			}
		}
		sizes = repeat(num/n, n)
	}
	return terminals(sizes, den)
}

// Numerators splits into parts over the sequence's denominator. If they sum to a
// power-of-two multiple of the numerator the denominator is scaled to match, so 3/4
// with {3, 3} becomes 3/8+3/8.
type Numerators []int

func (ns Numerators) parts(s *Sequence) ([]Node, error) {
	sum := 0
	for _, n := range ns {
		if n <= 0 {
			return nil, common.Invariantf("non-positive numerator %d in partition of %s", n, s.Ratio())
		}
		sum += n
	}
	den := s.denominator
	if sum != s.numerator {
		scale := sum / s.numerator
		if sum%s.numerator != 0 || scale&(scale-1) != 0 {
			return nil, common.Invariantf("numerators %v do not fill %s", []int(ns), s.Ratio())
		}
		den *= scale
	}
	return terminals(ns, den)
}

// Ratios splits into explicit fractions such as {"1/4", "1/8", "1/8"}.
type Ratios []string

func (rs Ratios) parts(s *Sequence) ([]Node, error) {
	out := make([]Node, 0, len(rs))
	for _, r := range rs {
		t, err := NewTerminal(r)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Sequence) parts(dst *Sequence) ([]Node, error) {
	if s.QuarterLength() != dst.QuarterLength() {
		return nil, common.Invariantf("cannot copy partition of %s into %s", s.Ratio(), dst.Ratio())
	}
	out := make([]Node, len(s.children))
	for i, c := range s.children {
		out[i] = c.clone()
	}
	return out, nil
}

func repeat(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func terminals(nums []int, den int) ([]Node, error) {
	out := make([]Node, 0, len(nums))
	for _, n := range nums {
		t, err := newTerminal(n, den)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
