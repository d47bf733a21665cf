package duration

import (
	"fmt"
	"strings"

	"github.com/james-see/scorestream/pkg/common"
)

// Duration is a time span in quarter lengths, stored as notated components. The zero
// value is a zero-length duration.
type Duration struct {
	components []Unit
}

// New creates a Duration of ql quarter lengths.
func New(ql float64) (*Duration, error) {
	d := &Duration{}
	if err := d.SetQuarterLength(ql); err != nil {
		return nil, err
	}
	return d, nil
}

// MustNew is like New but panics on an invalid quarter length.
func MustNew(ql float64) *Duration {
	d, err := New(ql)
	if err != nil {
		panic(err)
	}
	return d
}

// FromType creates a single-component Duration from a note value name and dots.
func FromType(name string, dots int) (*Duration, error) {
	u, err := NewUnit(name, dots, nil)
	if err != nil {
		return nil, err
	}
	return &Duration{components: []Unit{u}}, nil
}

// FromUnits creates a Duration from explicit components.
func FromUnits(units ...Unit) *Duration {
	d := &Duration{}
	d.SetComponents(units)
	return d
}

// QuarterLength returns the summed length of all components.
func (d *Duration) QuarterLength() float64 {
	if d == nil {
		return 0
	}
	var total float64
	for _, u := range d.components {
		total += u.QuarterLength
	}
	return common.OpFrac(total)
}

// SetQuarterLength replaces the components with the notated expression of ql.
func (d *Duration) SetQuarterLength(ql float64) error {
	units, err := ConvertQuarterLength(ql)
	if err != nil {
		return err
	}
	d.components = units
	return nil
}

// Type returns the note value name of a single-component duration, "zero" for an
// empty one and "complex" when there are several components.
func (d *Duration) Type() string {
	switch {
	case d == nil || len(d.components) == 0:
		return TypeZero
	case len(d.components) == 1:
		return d.components[0].Type
	default:
		return TypeComplex
	}
}

// SetType replaces the components with one unit of the named value, keeping the
// current dot count.
func (d *Duration) SetType(name string) error {
	u, err := NewUnit(name, d.Dots(), nil)
	if err != nil {
		return err
	}
	d.components = []Unit{u}
	return nil
}

// Dots returns the dot count of a single-component duration, else 0.
func (d *Duration) Dots() int {
	if d == nil || len(d.components) != 1 {
		return 0
	}
	return d.components[0].Dots
}

// SetDots changes the dot count of a single-component duration.
func (d *Duration) SetDots(dots int) error {
	if len(d.components) != 1 {
		return common.Invariantf("cannot set dots on a %s duration", d.Type())
	}
	c := d.components[0]
	u, err := NewUnit(c.Type, dots, c.Tuplet)
	if err != nil {
		return err
	}
	d.components[0] = u
	return nil
}

// Tuplets returns the tuplets of every component that has one.
func (d *Duration) Tuplets() []Tuplet {
	var out []Tuplet
	for _, u := range d.components {
		if u.Tuplet != nil {
			out = append(out, *u.Tuplet)
		}
	}
	return out
}

// AppendTuplet applies t to a single-component duration.
func (d *Duration) AppendTuplet(t Tuplet) error {
	if len(d.components) != 1 {
		return common.Invariantf("cannot add a tuplet to a %s duration", d.Type())
	}
	c := d.components[0]
	if c.Tuplet != nil {
		return common.Invariantf("duration already has tuplet %v", *c.Tuplet)
	}
	u, err := NewUnit(c.Type, c.Dots, &t)
	if err != nil {
		return err
	}
	d.components[0] = u
	return nil
}

// Components returns a copy of the notated components.
func (d *Duration) Components() []Unit {
	if d == nil {
		return nil
	}
	out := make([]Unit, len(d.components))
	for i, u := range d.components {
		out[i] = u.clone()
	}
	return out
}

// SetComponents replaces the components.
func (d *Duration) SetComponents(units []Unit) {
	d.components = make([]Unit, len(units))
	for i, u := range units {
		u.QuarterLength = common.OpFrac(u.QuarterLength)
		d.components[i] = u.clone()
	}
}

// IsComplex reports whether the duration needs more than one notated component.
func (d *Duration) IsComplex() bool {
	return d != nil && len(d.components) > 1
}

// Consolidate collapses all components into one. If the total has no single notated
// form the remaining unit is inexpressible. Component boundaries are lost.
func (d *Duration) Consolidate() {
	if len(d.components) <= 1 {
		return
	}
	ql := d.QuarterLength()
	if u, ok := UnitFromQuarterLength(ql); ok {
		d.components = []Unit{u}
		return
	}
	d.components = []Unit{{Type: TypeInexpressible, QuarterLength: ql}}
}

// ComponentStartTime returns the offset at which component i begins.
func (d *Duration) ComponentStartTime(i int) (float64, error) {
	if i < 0 || i >= len(d.components) {
		return 0, common.NotFoundf("component %d of %d", i, len(d.components))
	}
	var start float64
	for _, u := range d.components[:i] {
		start += u.QuarterLength
	}
	return common.OpFrac(start), nil
}

// ComponentIndexAtPosition returns the index of the component sounding at pos. A
// position equal to the total length maps to the last component.
func (d *Duration) ComponentIndexAtPosition(pos float64) (int, error) {
	pos = common.OpFrac(pos)
	total := d.QuarterLength()
	if len(d.components) == 0 || pos < 0 || pos > total {
		return 0, common.NotFoundf("position %v outside duration of %v", pos, total)
	}
	var start float64
	for i, u := range d.components {
		end := common.OpFrac(start + u.QuarterLength)
		if pos >= start && pos < end {
			return i, nil
		}
		start = end
	}
	return len(d.components) - 1, nil
}

// SliceComponentAtPosition splits the component sounding at pos into two parts that
// meet at pos. Slicing on an existing component boundary changes nothing.
func (d *Duration) SliceComponentAtPosition(pos float64) error {
	pos = common.OpFrac(pos)
	total := d.QuarterLength()
	if pos <= 0 || pos >= total {
		return common.Invariantf("cannot slice a duration of %v at %v", total, pos)
	}
	i, err := d.ComponentIndexAtPosition(pos)
	if err != nil {
		return err
	}
	start, _ := d.ComponentStartTime(i)
	if start == pos {
		return nil
	}
	end := common.OpFrac(start + d.components[i].QuarterLength)

	left, err := ConvertQuarterLength(pos - start)
	if err != nil {
		return err
	}
	right, err := ConvertQuarterLength(end - pos)
	if err != nil {
		return err
	}

	out := make([]Unit, 0, len(d.components)+len(left)+len(right))
	out = append(out, d.components[:i]...)
	out = append(out, left...)
	out = append(out, right...)
	out = append(out, d.components[i+1:]...)
	d.components = out
	return nil
}

// SplitAt divides the duration into the parts before and after pos. The cut always
// falls on a component boundary (the component at pos is sliced first).
func (d *Duration) SplitAt(pos float64) (*Duration, *Duration, error) {
	work := d.Clone()
	if err := work.SliceComponentAtPosition(pos); err != nil {
		return nil, nil, err
	}
	pos = common.OpFrac(pos)
	var start float64
	for i, u := range work.components {
		if start == pos {
			return FromUnits(work.components[:i]...), FromUnits(work.components[i:]...), nil
		}
		start = common.OpFrac(start + u.QuarterLength)
	}
	return nil, nil, common.Invariantf("no component boundary at %v", pos)
}

// Clone returns an independent copy.
func (d *Duration) Clone() *Duration {
	if d == nil {
		return &Duration{}
	}
	return &Duration{components: d.Components()}
}

// FullName describes the duration in words, e.g. "Dotted Quarter" or
// "Half tied to Eighth (2.5 total QL)".
func (d *Duration) FullName() string {
	if len(d.components) == 0 {
		return "Zero Duration"
	}
	if len(d.components) == 1 {
		return unitName(d.components[0])
	}
	names := make([]string, len(d.components))
	for i, u := range d.components {
		names[i] = unitName(u)
	}
	return fmt.Sprintf("%s (%v total QL)", strings.Join(names, " tied to "), d.QuarterLength())
}

func unitName(u Unit) string {
	if !u.Expressible() {
		return fmt.Sprintf("Inexpressible (%v QL)", u.QuarterLength)
	}
	var b strings.Builder
	switch u.Dots {
	case 0:
	case 1:
		b.WriteString("Dotted ")
	case 2:
		b.WriteString("Double Dotted ")
	default:
		fmt.Fprintf(&b, "%d-Times Dotted ", u.Dots)
	}
	b.WriteString(strings.ToUpper(u.Type[:1]) + u.Type[1:])
	if u.Tuplet != nil {
		fmt.Fprintf(&b, " %s (%v QL)", u.Tuplet.Name(), u.QuarterLength)
	}
	return b.String()
}

// String shows the quarter length.
func (d *Duration) String() string {
	return fmt.Sprintf("<Duration %v>", d.QuarterLength())
}
