// Package note provides the sounding and silent elements of a score: notes, chords
// and rests, along with their ties and beams.
package note

import (
	"fmt"
	"strings"

	"github.com/james-see/scorestream/pkg/base"
	"github.com/james-see/scorestream/pkg/duration"
	"github.com/james-see/scorestream/pkg/pitch"
)

// GeneralNote is the common part of notes, chords and rests.
type GeneralNote struct {
	base.Object
	Lyric string
}

// Kind reports KindGeneralNote.
func (g *GeneralNote) Kind() base.Kind { return base.KindGeneralNote }

// DeepCopy returns an independent copy with an empty Sites ledger.
func (g *GeneralNote) DeepCopy() base.Element {
	c := *g
	c.Object = *g.Object.Clone()
	return &c
}

// NotRest is a general note that sounds, and so can be tied and beamed.
type NotRest struct {
	GeneralNote
	Tie   *Tie
	Beams Beams
}

// Kind reports KindNotRest.
func (n *NotRest) Kind() base.Kind { return base.KindNotRest }

// DeepCopy returns an independent copy, tie and beams included.
func (n *NotRest) DeepCopy() base.Element {
	c := *n
	c.copyFrom(n)
	return &c
}

func (n *NotRest) copyFrom(src *NotRest) {
	n.Object = *src.Object.Clone()
	if src.Tie != nil {
		t := *src.Tie
		n.Tie = &t
	}
	n.Beams = src.Beams.Clone()
}

// GetTie returns the tie, or nil.
func (n *NotRest) GetTie() *Tie { return n.Tie }

// SetTie replaces the tie; nil removes it.
func (n *NotRest) SetTie(t *Tie) { n.Tie = t }

// GetBeams returns the beams.
func (n *NotRest) GetBeams() Beams { return n.Beams }

// SetBeams replaces the beams; nil removes them.
func (n *NotRest) SetBeams(b Beams) { n.Beams = b }

// Beamable is implemented by elements that can carry beams.
type Beamable interface {
	base.Element
	GetBeams() Beams
	SetBeams(Beams)
}

// Tieable is implemented by elements that can carry a tie.
type Tieable interface {
	base.Element
	GetTie() *Tie
	SetTie(*Tie)
}

// Note is a single pitched note.
type Note struct {
	NotRest
	Pitch pitch.Pitch
}

// New creates a note of ql quarter lengths from a pitch name such as "C#4".
func New(name string, ql float64) (*Note, error) {
	p, err := pitch.Parse(name)
	if err != nil {
		return nil, err
	}
	return FromPitch(p, ql)
}

// FromPitch creates a note of ql quarter lengths.
func FromPitch(p pitch.Pitch, ql float64) (*Note, error) {
	d, err := duration.New(ql)
	if err != nil {
		return nil, err
	}
	n := &Note{Pitch: p}
	n.SetDuration(d)
	return n, nil
}

// MustNew is like New but panics on error.
func MustNew(name string, ql float64) *Note {
	n, err := New(name, ql)
	if err != nil {
		panic(err)
	}
	return n
}

// Kind reports KindNote.
func (n *Note) Kind() base.Kind { return base.KindNote }

// DeepCopy returns an independent copy, pitch included.
func (n *Note) DeepCopy() base.Element {
	c := *n
	c.copyFrom(&n.NotRest)
	return &c
}

// Pitches returns the note's single pitch.
func (n *Note) Pitches() []pitch.Pitch { return []pitch.Pitch{n.Pitch} }

// String shows the pitch and quarter length.
func (n *Note) String() string {
	return fmt.Sprintf("<Note %s %v>", n.Pitch, n.QuarterLength())
}

// Chord is several pitches sounding together for one duration.
type Chord struct {
	NotRest
	pitches []pitch.Pitch
}

// NewChord creates a chord from pitch names.
func NewChord(ql float64, names ...string) (*Chord, error) {
	ps := make([]pitch.Pitch, 0, len(names))
	for _, name := range names {
		p, err := pitch.Parse(name)
		if err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}
	return ChordFromPitches(ql, ps...)
}

// ChordFromPitches creates a chord of ql quarter lengths.
func ChordFromPitches(ql float64, ps ...pitch.Pitch) (*Chord, error) {
	d, err := duration.New(ql)
	if err != nil {
		return nil, err
	}
	c := &Chord{pitches: append([]pitch.Pitch(nil), ps...)}
	c.SetDuration(d)
	return c, nil
}

// Kind reports KindChord.
func (c *Chord) Kind() base.Kind { return base.KindChord }

// DeepCopy returns an independent copy with its own pitch list.
func (c *Chord) DeepCopy() base.Element {
	cp := *c
	cp.copyFrom(&c.NotRest)
	cp.pitches = append([]pitch.Pitch(nil), c.pitches...)
	return &cp
}

// Pitches returns a copy of the chord's pitches.
func (c *Chord) Pitches() []pitch.Pitch {
	return append([]pitch.Pitch(nil), c.pitches...)
}

// Add appends a pitch to the chord.
func (c *Chord) Add(p pitch.Pitch) {
	c.pitches = append(c.pitches, p)
}

// String shows the pitches and quarter length.
func (c *Chord) String() string {
	names := make([]string, len(c.pitches))
	for i, p := range c.pitches {
		names[i] = p.String()
	}
	return fmt.Sprintf("<Chord %s %v>", strings.Join(names, " "), c.QuarterLength())
}

// Rest is a silence.
type Rest struct {
	GeneralNote
}

// NewRest creates a rest of ql quarter lengths.
func NewRest(ql float64) (*Rest, error) {
	d, err := duration.New(ql)
	if err != nil {
		return nil, err
	}
	r := &Rest{}
	r.SetDuration(d)
	return r, nil
}

// MustNewRest is like NewRest but panics on error.
func MustNewRest(ql float64) *Rest {
	r, err := NewRest(ql)
	if err != nil {
		panic(err)
	}
	return r
}

// Kind reports KindRest.
func (r *Rest) Kind() base.Kind { return base.KindRest }

// DeepCopy returns an independent copy with an empty Sites ledger.
func (r *Rest) DeepCopy() base.Element {
	c := *r
	c.Object = *r.Object.Clone()
	return &c
}

// String shows the quarter length.
func (r *Rest) String() string {
	return fmt.Sprintf("<Rest %v>", r.QuarterLength())
}

// Pitched is implemented by elements that carry pitches.
type Pitched interface {
	base.Element
	Pitches() []pitch.Pitch
}
