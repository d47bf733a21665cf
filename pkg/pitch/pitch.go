// Package pitch is a small pitch model: step, chromatic alteration and octave.
package pitch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/james-see/scorestream/pkg/common"
)

var steps = "CDEFGAB"

// semitone offsets of each step above C
var stepSemitones = [7]int{0, 2, 4, 5, 7, 9, 11}

// Pitch is a named pitch. Octave 4 holds middle C.
type Pitch struct {
	Step   byte
	Alter  int
	Octave int
}

// New builds a pitch from a step letter, alteration in semitones and octave.
func New(step byte, alter, octave int) (Pitch, error) {
	step = byte(strings.ToUpper(string(step))[0])
	if strings.IndexByte(steps, step) < 0 {
		return Pitch{}, common.Invariantf("invalid step %q", step)
	}
	return Pitch{Step: step, Alter: alter, Octave: octave}, nil
}

// Parse reads names like "C4", "F#3", "B-2" or "Ebb5". Sharps are '#', flats are
// '-' or 'b' after the step. A missing octave means 4.
func Parse(name string) (Pitch, error) {
	if name == "" {
		return Pitch{}, common.Invariantf("empty pitch name")
	}
	p, err := New(name[0], 0, 4)
	if err != nil {
		return Pitch{}, err
	}
	rest := name[1:]
accidentals:
	for len(rest) > 0 {
		switch rest[0] {
		case '#':
			p.Alter++
		case '-', 'b':
			p.Alter--
		default:
			break accidentals
		}
		rest = rest[1:]
	}
	if rest != "" {
		oct, err := strconv.Atoi(rest)
		if err != nil {
			return Pitch{}, common.Invariantf("invalid octave in pitch %q", name)
		}
		p.Octave = oct
	}
	return p, nil
}

// MustParse is like Parse but panics on error.
func MustParse(name string) Pitch {
	p, err := Parse(name)
	if err != nil {
		panic(err)
	}
	return p
}

// FromMIDI spells a MIDI note number, using sharps for black keys.
func FromMIDI(n int) Pitch {
	octave := n/12 - 1
	pc := n % 12
	if pc < 0 {
		pc += 12
		octave--
	}
	for i := len(stepSemitones) - 1; i >= 0; i-- {
		if stepSemitones[i] <= pc {
			return Pitch{Step: steps[i], Alter: pc - stepSemitones[i], Octave: octave}
		}
	}
	return Pitch{Step: 'C', Octave: octave}
}

func (p Pitch) stepIndex() int {
	return strings.IndexByte(steps, p.Step)
}

// MIDI returns the MIDI note number (C4 = 60).
func (p Pitch) MIDI() int {
	return (p.Octave+1)*12 + stepSemitones[p.stepIndex()] + p.Alter
}

// PitchClass returns the MIDI number modulo 12.
func (p Pitch) PitchClass() int {
	return ((p.MIDI() % 12) + 12) % 12
}

// DiatonicNoteNum counts diatonic steps from C0 = 1, ignoring alterations, so
// C4 = 29 and B3 = 28.
func (p Pitch) DiatonicNoteNum() int {
	return p.Octave*7 + p.stepIndex() + 1
}

// Transpose moves the pitch by semitones and respells it from the MIDI number.
func (p Pitch) Transpose(semitones int) Pitch {
	return FromMIDI(p.MIDI() + semitones)
}

// Name returns the step with its accidental, e.g. "F#" or "B-".
func (p Pitch) Name() string {
	var acc string
	switch {
	case p.Alter > 0:
		acc = strings.Repeat("#", p.Alter)
	case p.Alter < 0:
		acc = strings.Repeat("-", -p.Alter)
	}
	return string(p.Step) + acc
}

// String returns the name with octave, e.g. "F#3".
func (p Pitch) String() string {
	return fmt.Sprintf("%s%d", p.Name(), p.Octave)
}

// MarshalText encodes the pitch by name; the zero Pitch encodes as "".
func (p Pitch) MarshalText() ([]byte, error) {
	if p.Step == 0 {
		return []byte{}, nil
	}
	return []byte(p.String()), nil
}
