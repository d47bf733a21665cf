// Package stream provides Stream, the ordered and nestable container of score
// elements. Every element's offset in a stream is recorded in the element's own
// Sites ledger, so one element can sit in many streams at independent offsets.
// Streams come in five kinds: plain streams, measures, parts, scores and voices.
package stream

import (
	"cmp"
	"fmt"
	"iter"
	"math"
	"slices"

	"github.com/james-see/scorestream/pkg/base"
	"github.com/james-see/scorestream/pkg/common"
)

type entry struct {
	el  base.Element
	seq uint64
}

// Stream holds elements by reference. Iteration order is by offset, then class sort
// order (clefs, key signatures, time signatures, then notes), then priority, then
// insertion order.
type Stream struct {
	base.Object
	kind    base.Kind
	number  int
	anchor  *base.Anchor
	entries []*entry
	members map[*base.Object]*entry
	nextSeq uint64
	sorted  bool
}

func newStream(kind base.Kind) *Stream {
	s := &Stream{kind: kind, members: make(map[*base.Object]*entry), sorted: true}
	s.anchor = base.NewAnchor(s)
	return s
}

// New returns an empty plain stream.
func New() *Stream { return newStream(base.KindStream) }

// NewMeasure returns an empty measure with the given number.
func NewMeasure(number int) *Stream {
	m := newStream(base.KindMeasure)
	m.number = number
	return m
}

// NewPart returns an empty part.
func NewPart() *Stream { return newStream(base.KindPart) }

// NewScore returns an empty score.
func NewScore() *Stream { return newStream(base.KindScore) }

// NewVoice returns an empty voice.
func NewVoice() *Stream { return newStream(base.KindVoice) }

// Kind reports the stream kind it was created with.
func (s *Stream) Kind() base.Kind { return s.kind }

// SiteAnchor identifies the stream in its elements' Sites.
func (s *Stream) SiteAnchor() *base.Anchor { return s.anchor }

// Number is the measure number; zero for other kinds.
func (s *Stream) Number() int { return s.number }

// SetNumber sets the measure number.
func (s *Stream) SetNumber(n int) { s.number = n }

// DeepCopy copies the stream and, recursively, every element in it. The copy shares
// nothing with the source.
func (s *Stream) DeepCopy() base.Element {
	c := newStream(s.kind)
	c.Object = *s.Object.Clone()
	c.number = s.number
	for _, e := range s.sortedEntries() {
		c.add(e.el.DeepCopy(), s.offsetOf(e.el))
	}
	return c
}

// Copy is DeepCopy with the concrete type.
func (s *Stream) Copy() *Stream {
	return s.DeepCopy().(*Stream)
}

// QuarterLength of a stream is its highest time.
func (s *Stream) QuarterLength() float64 {
	return s.HighestTime()
}

// Len returns the number of elements at the top level.
func (s *Stream) Len() int { return len(s.entries) }

// Contains reports whether el is a top-level member.
func (s *Stream) Contains(el base.Element) bool {
	_, ok := s.members[el.Base()]
	return ok
}

// Elements returns the top-level elements in order.
func (s *Stream) Elements() []base.Element {
	es := s.sortedEntries()
	out := make([]base.Element, len(es))
	for i, e := range es {
		out[i] = e.el
	}
	return out
}

// At returns the i-th element in order.
func (s *Stream) At(i int) (base.Element, error) {
	es := s.sortedEntries()
	if i < 0 || i >= len(es) {
		return nil, common.NotFoundf("index %d of %d", i, len(es))
	}
	return es[i].el, nil
}

// All iterates over offsets and elements in order. The stream may be modified
// during iteration; the iteration covers the elements present when it began.
func (s *Stream) All() iter.Seq2[float64, base.Element] {
	return func(yield func(float64, base.Element) bool) {
		for _, e := range slices.Clone(s.sortedEntries()) {
			if !yield(s.offsetOf(e.el), e.el) {
				return
			}
		}
	}
}

func (s *Stream) offsetOf(el base.Element) float64 {
	off, _ := el.Base().OffsetBySite(s)
	return off
}

func elementLength(el base.Element) float64 {
	if st, ok := el.(*Stream); ok {
		return st.HighestTime()
	}
	return el.Base().QuarterLength()
}

func (s *Stream) compare(a, b *entry) int {
	if c := cmp.Compare(s.offsetOf(a.el), s.offsetOf(b.el)); c != 0 {
		return c
	}
	if c := cmp.Compare(a.el.Kind().ClassSortOrder(), b.el.Kind().ClassSortOrder()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.el.Base().Priority(), b.el.Base().Priority()); c != 0 {
		return c
	}
	return cmp.Compare(a.seq, b.seq)
}

func (s *Stream) sortedEntries() []*entry {
	if !s.sorted {
		slices.SortStableFunc(s.entries, s.compare)
		s.sorted = true
	}
	return s.entries
}

// IsSorted reports whether the elements are already in order.
func (s *Stream) IsSorted() bool { return s.sorted }

// Sort puts the elements in order. Queries sort on demand, so calling it is never
// required.
func (s *Stream) Sort() { s.sortedEntries() }

// InvalidateOrder marks the cached order stale. Elements call it when a change to
// their priority or offset moves them within the stream.
func (s *Stream) InvalidateOrder() { s.sorted = false }

// checkOffset rejects offsets that cannot place an element in a stream.
func checkOffset(offset float64) error {
	if offset < 0 || math.IsNaN(offset) || math.IsInf(offset, 0) {
		return common.Invariantf("offset %v must be finite and not negative", offset)
	}
	return nil
}

// add records el at offset. A member keeps its entry and only moves.
func (s *Stream) add(el base.Element, offset float64) {
	offset = common.OpFrac(offset)
	if s.Contains(el) {
		el.Base().InsertInto(s, offset)
		s.sorted = false
		return
	}
	e := &entry{el: el, seq: s.nextSeq}
	s.nextSeq++
	el.Base().InsertInto(s, offset)
	if s.sorted && len(s.entries) > 0 && s.compare(s.entries[len(s.entries)-1], e) > 0 {
		s.sorted = false
	}
	s.entries = append(s.entries, e)
	s.members[el.Base()] = e
}

// checkInsertable rejects a stream being placed inside itself or a descendant.
func (s *Stream) checkInsertable(el base.Element) error {
	child, ok := el.(*Stream)
	if !ok {
		return nil
	}
	if child == s {
		return common.Invariantf("cannot insert a stream into itself")
	}
	if child.containsStream(s) {
		return common.Invariantf("cannot insert a stream into its own descendant")
	}
	return nil
}

func (s *Stream) containsStream(target *Stream) bool {
	stack := []*Stream{s}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range cur.entries {
			if st, ok := e.el.(*Stream); ok {
				if st == target {
					return true
				}
				stack = append(stack, st)
			}
		}
	}
	return false
}

// Append places each element at the current highest time, so it follows the
// latest-ending element. Appending an element that is already a member is an
// error; use Insert or SetElementOffset to move it.
func (s *Stream) Append(els ...base.Element) error {
	for _, el := range els {
		if s.Contains(el) {
			return common.Invariantf("%v is already in the stream", el)
		}
		if err := s.checkInsertable(el); err != nil {
			return err
		}
		s.add(el, s.HighestTime())
	}
	return nil
}

// Insert places el at offset. If el is already a member its offset is updated;
// other elements are not moved. Negative offsets are an ErrInvariant.
func (s *Stream) Insert(offset float64, el base.Element) error {
	if err := checkOffset(offset); err != nil {
		return err
	}
	if err := s.checkInsertable(el); err != nil {
		return err
	}
	if s.Contains(el) {
		return s.SetElementOffset(el, offset)
	}
	s.add(el, offset)
	return nil
}

// InsertElement inserts el at its own standalone offset.
func (s *Stream) InsertElement(el base.Element) error {
	return s.Insert(el.Base().Offset(), el)
}

// Placement pairs an element with the offset to insert it at.
type Placement struct {
	Offset  float64
	Element base.Element
}

// InsertPlacements inserts each element at its offset, in order.
func (s *Stream) InsertPlacements(ps ...Placement) error {
	for _, p := range ps {
		if err := s.Insert(p.Offset, p.Element); err != nil {
			return err
		}
	}
	return nil
}

// InsertCopy inserts a deep copy of el at offset and returns the copy. The copy
// is the member; el itself is not.
func (s *Stream) InsertCopy(offset float64, el base.Element) (base.Element, error) {
	c := el.DeepCopy()
	if err := s.Insert(offset, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RepeatAppend appends n independent deep copies of el. el itself is not inserted,
// so Index(el) fails afterwards.
func (s *Stream) RepeatAppend(el base.Element, n int) error {
	for range n {
		if err := s.Append(el.DeepCopy()); err != nil {
			return err
		}
	}
	return nil
}

// RepeatInsert inserts an independent deep copy of el at each offset.
func (s *Stream) RepeatInsert(el base.Element, offsets []float64) error {
	for _, off := range offsets {
		if _, err := s.InsertCopy(off, el); err != nil {
			return err
		}
	}
	return nil
}

// Remove takes el out of the stream and drops its site entry for the stream.
func (s *Stream) Remove(el base.Element) error {
	e, ok := s.members[el.Base()]
	if !ok {
		return common.NotFoundf("%v is not in the stream", el)
	}
	delete(s.members, el.Base())
	s.entries = slices.DeleteFunc(s.entries, func(x *entry) bool { return x == e })
	el.Base().RemoveSite(s)
	return nil
}

// Pop removes and returns the i-th element in order.
func (s *Stream) Pop(i int) (base.Element, error) {
	el, err := s.At(i)
	if err != nil {
		return nil, err
	}
	return el, s.Remove(el)
}

// Replace puts replacement where old was, at the same offset and insertion rank.
func (s *Stream) Replace(old, replacement base.Element) error {
	e, ok := s.members[old.Base()]
	if !ok {
		return common.NotFoundf("%v is not in the stream", old)
	}
	if s.Contains(replacement) {
		return common.Invariantf("%v is already in the stream", replacement)
	}
	if err := s.checkInsertable(replacement); err != nil {
		return err
	}
	off := s.offsetOf(old)
	delete(s.members, old.Base())
	old.Base().RemoveSite(s)
	e.el = replacement
	s.members[replacement.Base()] = e
	replacement.Base().InsertInto(s, off)
	s.sorted = false
	return nil
}

// Clear removes every element.
func (s *Stream) Clear() {
	for _, e := range s.entries {
		e.el.Base().RemoveSite(s)
	}
	s.entries = nil
	clear(s.members)
	s.sorted = true
}

// Index returns the position of el in order. It fails with ErrNotFound when el was
// never inserted, which includes the original passed to RepeatAppend.
func (s *Stream) Index(el base.Element) (int, error) {
	if !s.Contains(el) {
		return 0, common.NotFoundf("%v is not in the stream", el)
	}
	for i, e := range s.sortedEntries() {
		if e.el.Base() == el.Base() {
			return i, nil
		}
	}
	return 0, common.NotFoundf("%v is not in the stream", el)
}

// ElementOffset returns el's offset in this stream.
func (s *Stream) ElementOffset(el base.Element) (float64, error) {
	if !s.Contains(el) {
		return 0, common.NotFoundf("%v is not in the stream", el)
	}
	return el.Base().OffsetBySite(s)
}

// SetElementOffset moves a member to a new offset.
func (s *Stream) SetElementOffset(el base.Element, offset float64) error {
	if !s.Contains(el) {
		return common.NotFoundf("%v is not in the stream", el)
	}
	if err := checkOffset(offset); err != nil {
		return err
	}
	el.Base().InsertInto(s, offset)
	s.sorted = false
	return nil
}

// HighestTime is the latest end (offset plus length) of any element, or 0.
func (s *Stream) HighestTime() float64 {
	var high float64
	for _, e := range s.entries {
		high = max(high, s.offsetOf(e.el)+elementLength(e.el))
	}
	return common.OpFrac(high)
}

// LowestOffset is the smallest element offset, or 0 for an empty stream.
func (s *Stream) LowestOffset() float64 {
	es := s.sortedEntries()
	if len(es) == 0 {
		return 0
	}
	return s.offsetOf(es[0].el)
}

// HighestOffset is the largest element offset, or 0 for an empty stream.
func (s *Stream) HighestOffset() float64 {
	es := s.sortedEntries()
	if len(es) == 0 {
		return 0
	}
	return s.offsetOf(es[len(es)-1].el)
}

// IsFlat reports whether no element is itself a stream.
func (s *Stream) IsFlat() bool {
	for _, e := range s.entries {
		if _, ok := e.el.(*Stream); ok {
			return false
		}
	}
	return true
}

// String shows the kind, or the measure number, and the element count.
func (s *Stream) String() string {
	if s.kind == base.KindMeasure {
		return fmt.Sprintf("<Measure %d, %d elements>", s.number, len(s.entries))
	}
	return fmt.Sprintf("<%s, %d elements>", s.kind, len(s.entries))
}
