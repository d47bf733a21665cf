// Package clef provides clef elements and picks the clef that best fits a set of
// pitches.
package clef

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/james-see/scorestream/pkg/base"
	"github.com/james-see/scorestream/pkg/common"
	"github.com/james-see/scorestream/pkg/pitch"
)

// Clef fixes which pitch sits on which staff line. Line counts from the bottom line
// (1) up.
type Clef struct {
	base.Object
	Name         string
	Sign         string
	Line         int
	OctaveChange int
}

// Standard clefs.
func Treble() *Clef { return &Clef{Name: "treble", Sign: "G", Line: 2} }
// Bass returns the F clef on the fourth line.
func Bass() *Clef   { return &Clef{Name: "bass", Sign: "F", Line: 4} }
// Alto returns the C clef on the third line.
func Alto() *Clef   { return &Clef{Name: "alto", Sign: "C", Line: 3} }
// Tenor returns the C clef on the fourth line.
func Tenor() *Clef  { return &Clef{Name: "tenor", Sign: "C", Line: 4} }

// Treble8vb is the tenor-voice treble clef sounding an octave lower.
func Treble8vb() *Clef { return &Clef{Name: "treble8vb", Sign: "G", Line: 2, OctaveChange: -1} }

// Bass8vb is the bass clef sounding an octave lower.
func Bass8vb() *Clef { return &Clef{Name: "bass8vb", Sign: "F", Line: 4, OctaveChange: -1} }

// ByName returns a standard clef.
func ByName(name string) (*Clef, error) {
	for _, mk := range []func() *Clef{Treble, Bass, Alto, Tenor, Treble8vb, Bass8vb} {
		if c := mk(); c.Name == name {
			return c, nil
		}
	}
	return nil, common.NotFoundf("unknown clef %q", name)
}

// Kind reports KindClef.
func (c *Clef) Kind() base.Kind { return base.KindClef }

// DeepCopy returns an independent copy with an empty Sites ledger.
func (c *Clef) DeepCopy() base.Element {
	cp := *c
	cp.Object = *c.Object.Clone()
	return &cp
}

// LowestLine is the diatonic note number on the bottom staff line: 31 (E4) for
// treble, 19 (G2) for bass.
func (c *Clef) LowestLine() int {
	// diatonic number on line 1 when the sign sits there
	top := 33
	switch c.Sign {
	case "F":
		top = 25
	case "C":
		top = 29
	}
	return top - 2*(c.Line-1) + 7*c.OctaveChange
}

// MiddleLine is the diatonic note number on the centre staff line.
func (c *Clef) MiddleLine() int {
	return c.LowestLine() + 4
}

// String names the clef.
func (c *Clef) String() string {
	return fmt.Sprintf("<Clef %s>", c.Name)
}

// MeanDistance returns the mean absolute distance, in diatonic steps, between the
// pitches and the clef's centre line.
func (c *Clef) MeanDistance(ps []pitch.Pitch) float64 {
	if len(ps) == 0 {
		return 0
	}
	mid := float64(c.MiddleLine())
	dist := make([]float64, len(ps))
	for i, p := range ps {
		dist[i] = math.Abs(float64(p.DiatonicNoteNum()) - mid)
	}
	return stat.Mean(dist, nil)
}

// Best picks the clef whose centre line is closest on average to the pitches. With
// no candidates it chooses between treble and bass. Equal scores go to the earlier
// candidate; with the default candidates that is treble. Empty input gives treble.
func Best(ps []pitch.Pitch, candidates ...*Clef) *Clef {
	if len(candidates) == 0 {
		candidates = []*Clef{Treble(), Bass()}
	}
	if len(ps) == 0 {
		return Treble()
	}
	best := candidates[0]
	bestScore := best.MeanDistance(ps)
	tied := false
	for _, c := range candidates[1:] {
		score := c.MeanDistance(ps)
		switch {
		case score < bestScore:
			best, bestScore, tied = c, score, false
		case score == bestScore:
			tied = true
		}
	}
	if tied {
		common.Logger().Warn("best clef is ambiguous, keeping first candidate",
			"clef", best.Name, "meanDistance", bestScore)
	}
	return best.DeepCopy().(*Clef)
}
