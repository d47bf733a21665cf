// Package duration models notated time spans. A Duration is a list of notated
// components (type, dots, optional tuplet) whose quarter lengths sum to the whole.
package duration

import "github.com/james-see/scorestream/pkg/common"

// Note value names.
const (
	TypeDuplexMaxima  = "duplex-maxima"
	TypeMaxima        = "maxima"
	TypeLonga         = "longa"
	TypeBreve         = "breve"
	TypeWhole         = "whole"
	TypeHalf          = "half"
	TypeQuarter       = "quarter"
	TypeEighth        = "eighth"
	Type16th          = "16th"
	Type32nd          = "32nd"
	Type64th          = "64th"
	Type128th         = "128th"
	Type256th         = "256th"
	Type512th         = "512th"
	Type1024th        = "1024th"
	Type2048th        = "2048th"
	TypeZero          = "zero"
	TypeComplex       = "complex"
	TypeInexpressible = "inexpressible"
)

// MaxDots is the largest number of augmentation dots tried when matching a
// quarter length to a single notated unit.
const MaxDots = 4

type typeEntry struct {
	name  string
	ql    float64
	beams int
}

// ordered longest first
var typeTable = []typeEntry{
	{TypeDuplexMaxima, 64, 0},
	{TypeMaxima, 32, 0},
	{TypeLonga, 16, 0},
	{TypeBreve, 8, 0},
	{TypeWhole, 4, 0},
	{TypeHalf, 2, 0},
	{TypeQuarter, 1, 0},
	{TypeEighth, 0.5, 1},
	{Type16th, 0.25, 2},
	{Type32nd, 0.125, 3},
	{Type64th, 0.0625, 4},
	{Type128th, 0.03125, 5},
	{Type256th, 0.015625, 6},
	{Type512th, 0.0078125, 7},
	{Type1024th, 0.00390625, 8},
	{Type2048th, 0.001953125, 9},
}

// tuplet numerators tried, each against the largest power of two below it
var tupletActuals = []int{3, 5, 6, 7, 9, 10, 11, 12, 13}

func lookupType(name string) (typeEntry, bool) {
	for _, e := range typeTable {
		if e.name == name {
			return e, true
		}
	}
	return typeEntry{}, false
}

// TypeToQuarterLength returns the undotted quarter length of a note value name.
func TypeToQuarterLength(name string) (float64, error) {
	e, ok := lookupType(name)
	if !ok {
		return 0, common.Invariantf("unknown duration type %q", name)
	}
	return e.ql, nil
}

// BeamCount returns the number of beams (flags) a note value carries: 1 for an
// eighth, 2 for a 16th, and 0 for a quarter or longer.
func BeamCount(name string) int {
	e, ok := lookupType(name)
	if !ok {
		return 0
	}
	return e.beams
}

// QuarterLengthToClosestType returns the longest note value not longer than ql and
// whether it matches ql exactly.
func QuarterLengthToClosestType(ql float64) (string, bool) {
	ql = common.OpFrac(ql)
	for _, e := range typeTable {
		if e.ql == ql {
			return e.name, true
		}
		if e.ql < ql {
			return e.name, false
		}
	}
	return TypeInexpressible, false
}

func dotMultiplier(dots int) float64 {
	m := 1.0
	add := 0.5
	for i := 0; i < dots; i++ {
		m += add
		add /= 2
	}
	return m
}

func powerOfTwoBelow(n int) int {
	p := 1
	for p*2 < n {
		p *= 2
	}
	return p
}
