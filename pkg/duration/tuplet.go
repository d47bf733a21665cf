package duration

import "fmt"

// Tuplet scales a notated unit by Normal/Actual: a triplet puts 3 (Actual) notes in
// the time of 2 (Normal).
type Tuplet struct {
	Actual int
	Normal int
	// Type is the note value the tuplet is counted in; empty means the unit's own type.
	Type string
}

// Multiplier returns the factor applied to the unit's quarter length.
func (t Tuplet) Multiplier() float64 {
	if t.Actual == 0 {
		return 1
	}
	return float64(t.Normal) / float64(t.Actual)
}

// String shows the ratio, e.g. "3:2".
func (t Tuplet) String() string {
	return fmt.Sprintf("%d:%d", t.Actual, t.Normal)
}

// Name returns a conventional name for common tuplet ratios.
func (t Tuplet) Name() string {
	switch t.Actual {
	case 3:
		return "Triplet"
	case 5:
		return "Quintuplet"
	case 6:
		return "Sextuplet"
	case 7:
		return "Septuplet"
	}
	return fmt.Sprintf("Tuplet of %d", t.Actual)
}
