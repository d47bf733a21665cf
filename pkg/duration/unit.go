package duration

import (
	"math"

	"github.com/james-see/scorestream/pkg/common"
)

// Unit is a single notated component of a Duration.
type Unit struct {
	Type          string
	Dots          int
	QuarterLength float64
	Tuplet        *Tuplet
}

// NewUnit builds a unit from a note value name, dots and an optional tuplet.
func NewUnit(name string, dots int, tuplet *Tuplet) (Unit, error) {
	if dots < 0 {
		return Unit{}, common.Invariantf("negative dot count %d", dots)
	}
	e, ok := lookupType(name)
	if !ok {
		return Unit{}, common.Invariantf("unknown duration type %q", name)
	}
	ql := e.ql * dotMultiplier(dots)
	if tuplet != nil {
		if tuplet.Actual <= 0 || tuplet.Normal <= 0 {
			return Unit{}, common.Invariantf("invalid tuplet %v", *tuplet)
		}
		t := *tuplet
		tuplet = &t
		ql *= t.Multiplier()
	}
	return Unit{Type: name, Dots: dots, QuarterLength: common.OpFrac(ql), Tuplet: tuplet}, nil
}

func (u Unit) clone() Unit {
	if u.Tuplet != nil {
		t := *u.Tuplet
		u.Tuplet = &t
	}
	return u
}

// Expressible reports whether the unit is a real notated value.
func (u Unit) Expressible() bool {
	return u.Type != TypeInexpressible
}

// UnitFromQuarterLength finds a single notated unit (possibly dotted or in a tuplet)
// whose length is exactly ql. Fewer dots win over more, plain values over tuplets.
func UnitFromQuarterLength(ql float64) (Unit, bool) {
	ql = common.OpFrac(ql)
	if ql <= 0 {
		return Unit{}, false
	}
	for dots := 0; dots <= MaxDots; dots++ {
		m := dotMultiplier(dots)
		for _, e := range typeTable {
			if common.OpFrac(e.ql*m) == ql {
				return Unit{Type: e.name, Dots: dots, QuarterLength: ql}, true
			}
		}
	}
	for _, actual := range tupletActuals {
		normal := powerOfTwoBelow(actual)
		t := Tuplet{Actual: actual, Normal: normal}
		for _, e := range typeTable {
			if common.OpFrac(e.ql*t.Multiplier()) == ql {
				t.Type = e.name
				return Unit{Type: e.name, QuarterLength: ql, Tuplet: &t}, true
			}
		}
	}
	return Unit{}, false
}

// smallest representable step; remainders below it cannot be notated
var smallestUnit = typeTable[len(typeTable)-1].ql

// maxComponents bounds the greedy split so pathological input terminates
const maxComponents = 64

// ConvertQuarterLength expresses ql as notated units. A single unit is returned when
// one fits exactly (plain, dotted or tuplet); otherwise the longest undotted value not
// exceeding the remainder is taken repeatedly, testing each remainder again for a
// single-unit fit. A remainder too small to notate becomes one inexpressible unit.
func ConvertQuarterLength(ql float64) ([]Unit, error) {
	if math.IsNaN(ql) || math.IsInf(ql, 0) {
		return nil, common.Invariantf("quarter length %v is not finite", ql)
	}
	if ql < 0 {
		return nil, common.Invariantf("negative quarter length %v", ql)
	}
	ql = common.OpFrac(ql)
	if ql == 0 {
		return nil, nil
	}

	var out []Unit
	rem := ql
	for rem > 0 {
		if u, ok := UnitFromQuarterLength(rem); ok {
			out = append(out, u)
			break
		}
		if rem < smallestUnit || len(out) == maxComponents-1 {
			out = append(out, Unit{Type: TypeInexpressible, QuarterLength: rem})
			break
		}
		name, _ := QuarterLengthToClosestType(rem)
		e, _ := lookupType(name)
		out = append(out, Unit{Type: e.name, QuarterLength: e.ql})
		rem = common.OpFrac(rem - e.ql)
	}
	return out, nil
}
