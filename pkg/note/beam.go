package note

import "slices"

// Beam types.
const (
	BeamStart    = "start"
	BeamContinue = "continue"
	BeamStop     = "stop"
	BeamPartial  = "partial"
)

// Beam is one beam line. Number 1 is the eighth-note beam, 2 the 16th and so on.
// Direction is "left" or "right" for partial beams.
type Beam struct {
	Number    int
	Type      string
	Direction string
}

// Beams is the set of beams on one note, ordered by number.
type Beams []Beam

// Clone returns a copy.
func (b Beams) Clone() Beams {
	return slices.Clone(b)
}

// Get returns the beam with the given number.
func (b Beams) Get(number int) (Beam, bool) {
	for _, bm := range b {
		if bm.Number == number {
			return bm, true
		}
	}
	return Beam{}, false
}

// Types lists the beam types in number order, e.g. ["start", "partial"].
func (b Beams) Types() []string {
	out := make([]string, len(b))
	for i, bm := range b {
		out[i] = bm.Type
	}
	return out
}
