package stream

import (
	"runtime"
	"testing"

	"github.com/james-see/scorestream/pkg/base"
	"github.com/james-see/scorestream/pkg/clef"
	"github.com/james-see/scorestream/pkg/common"
	"github.com/james-see/scorestream/pkg/key"
	"github.com/james-see/scorestream/pkg/meter"
	"github.com/james-see/scorestream/pkg/note"
	"github.com/james-see/scorestream/pkg/pitch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offsets(t *testing.T, s *Stream) []float64 {
	t.Helper()
	var out []float64
	for off := range s.All() {
		out = append(out, off)
	}
	return out
}

func mustOffset(t *testing.T, el base.Element, s *Stream) float64 {
	t.Helper()
	off, err := el.Base().OffsetBySite(s)
	require.NoError(t, err)
	return off
}

func TestAppendScenario(t *testing.T) {
	s := New()
	half := note.MustNew("C4", 2)
	eighth := note.MustNew("D4", 0.5)
	require.NoError(t, s.Append(half))
	require.NoError(t, s.Append(eighth))

	assert.Equal(t, 0.0, mustOffset(t, half, s))
	assert.Equal(t, 2.0, mustOffset(t, eighth, s))
	assert.Equal(t, 2.5, s.HighestTime())

	sixteenth := note.MustNew("E4", 0.25)
	require.NoError(t, s.RepeatAppend(sixteenth, 6))
	assert.Equal(t, 8, s.Len())
	assert.Equal(t, 4.0, s.HighestTime())
	assert.Equal(t, []float64{0, 2, 2.5, 2.75, 3, 3.25, 3.5, 3.75}, offsets(t, s))

	_, err := s.Index(sixteenth)
	assert.True(t, common.IsNotFound(err))
}

func TestAppendMonotonicity(t *testing.T) {
	s := New()
	for _, ql := range []float64{1, 0.5, 1.0 / 3, 2.5, 0} {
		before := s.HighestTime()
		n := note.MustNew("G4", ql)
		require.NoError(t, s.Append(n))
		assert.Equal(t, before, mustOffset(t, n, s))
		assert.Equal(t, common.OpFrac(before+ql), s.HighestTime())
	}
}

func TestAppendRejectsMembers(t *testing.T) {
	s := New()
	n := note.MustNew("C4", 1)
	require.NoError(t, s.Append(n))
	assert.True(t, common.IsInvariant(s.Append(n)))
	assert.Equal(t, 1, s.Len())
}

func TestOffsetIndependence(t *testing.T) {
	s1, s2 := New(), New()
	n := note.MustNew("C4", 1)
	require.NoError(t, s1.Insert(3, n))
	require.NoError(t, s2.Insert(7.5, n))

	assert.Equal(t, 3.0, mustOffset(t, n, s1))
	assert.Equal(t, 7.5, mustOffset(t, n, s2))

	require.NoError(t, s1.Insert(1, n))
	assert.Equal(t, 1.0, mustOffset(t, n, s1))
	assert.Equal(t, 7.5, mustOffset(t, n, s2))
	assert.Equal(t, 1, s1.Len())

	// shared reference: a change is seen through both streams
	n.Pitch = pitch.MustParse("D4")
	el1, err := s1.At(0)
	require.NoError(t, err)
	el2, err := s2.At(0)
	require.NoError(t, err)
	assert.Equal(t, "D4", el1.(*note.Note).Pitch.String())
	assert.Same(t, el1, el2)
}

func TestRepeatAppendIsolation(t *testing.T) {
	s := New()
	src := note.MustNew("C4", 1)
	require.NoError(t, s.RepeatAppend(src, 3))

	els := s.Elements()
	require.Len(t, els, 3)
	for i, el := range els {
		assert.NotSame(t, src, el)
		for _, other := range els[i+1:] {
			assert.NotSame(t, el, other)
		}
	}

	first := els[0].(*note.Note)
	first.Pitch = pitch.MustParse("G5")
	require.NoError(t, first.SetQuarterLength(3))
	assert.Equal(t, "C4", src.Pitch.String())
	assert.Equal(t, 1.0, src.QuarterLength())
	assert.Equal(t, "C4", els[1].(*note.Note).Pitch.String())
	assert.Equal(t, 0, src.Sites().Len())
}

func TestRepeatInsert(t *testing.T) {
	s := New()
	src := note.MustNew("A4", 0.5)
	require.NoError(t, s.RepeatInsert(src, []float64{0, 1, 2}))
	assert.Equal(t, []float64{0, 1, 2}, offsets(t, s))
	assert.False(t, s.Contains(src))
}

func TestOrderingByClass(t *testing.T) {
	s := New()
	n := note.MustNew("C4", 1)
	ts := meter.MustTimeSignature("3/4")
	ks, err := key.New(1)
	require.NoError(t, err)
	c := clef.Treble()

	for _, el := range []base.Element{n, ts, ks, c} {
		require.NoError(t, s.Insert(0, el))
	}
	var kinds []base.Kind
	for _, el := range s.Elements() {
		kinds = append(kinds, el.Kind())
	}
	assert.Equal(t, []base.Kind{base.KindClef, base.KindKeySignature, base.KindTimeSignature, base.KindNote}, kinds)
}

func TestOrderingByPriorityThenInsertion(t *testing.T) {
	s := New()
	a := note.MustNew("C4", 1)
	b := note.MustNew("D4", 1)
	c := note.MustNew("E4", 1)
	c.SetPriority(-1)
	require.NoError(t, s.InsertPlacements(
		Placement{Offset: 1, Element: a},
		Placement{Offset: 1, Element: b},
		Placement{Offset: 1, Element: c},
	))
	assert.Equal(t, []base.Element{c, a, b}, s.Elements())
}

func TestInsertElementUsesStandaloneOffset(t *testing.T) {
	s := New()
	n := note.MustNew("C4", 1)
	n.SetOffset(2.5)
	require.NoError(t, s.InsertElement(n))
	assert.Equal(t, 2.5, mustOffset(t, n, s))
}

func TestInsertCycles(t *testing.T) {
	outer, inner := New(), New()
	require.NoError(t, outer.Append(inner))
	assert.True(t, common.IsInvariant(outer.Insert(0, outer)))
	assert.True(t, common.IsInvariant(inner.Insert(0, outer)))
}

func TestRemoveAndPop(t *testing.T) {
	s := New()
	a, b := note.MustNew("C4", 1), note.MustNew("D4", 1)
	require.NoError(t, s.Append(a, b))

	require.NoError(t, s.Remove(a))
	_, err := a.OffsetBySite(s)
	assert.True(t, common.IsNotFound(err))
	assert.Equal(t, 0.0, a.Offset())
	assert.True(t, common.IsNotFound(s.Remove(a)))

	el, err := s.Pop(0)
	require.NoError(t, err)
	assert.Same(t, b, el)
	assert.Equal(t, 0, s.Len())
}

func TestReplace(t *testing.T) {
	s := New()
	a, b, c := note.MustNew("C4", 1), note.MustNew("D4", 1), note.MustNew("E4", 1)
	require.NoError(t, s.Append(a, b))
	require.NoError(t, s.Replace(a, c))
	assert.Equal(t, []base.Element{c, b}, s.Elements())
	assert.Equal(t, 0.0, mustOffset(t, c, s))
	assert.False(t, s.Contains(a))
	assert.True(t, common.IsInvariant(s.Replace(c, b)))
}

func TestClear(t *testing.T) {
	s := New()
	n := note.MustNew("C4", 1)
	require.NoError(t, s.Append(n))
	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, n.Sites().Len())
}

func TestIndex(t *testing.T) {
	s := New()
	a, b := note.MustNew("C4", 1), note.MustNew("D4", 1)
	require.NoError(t, s.Insert(2, a))
	require.NoError(t, s.Insert(0, b))
	i, err := s.Index(a)
	require.NoError(t, err)
	assert.Equal(t, 1, i)
}

func TestLowestAndHighestOffset(t *testing.T) {
	s := New()
	assert.Equal(t, 0.0, s.LowestOffset())
	require.NoError(t, s.Insert(3, note.MustNew("C4", 2)))
	require.NoError(t, s.Insert(1, note.MustNew("C4", 0.5)))
	assert.Equal(t, 1.0, s.LowestOffset())
	assert.Equal(t, 3.0, s.HighestOffset())
	assert.Equal(t, 5.0, s.HighestTime())
}

func TestDeepCopy(t *testing.T) {
	part := NewPart()
	m := NewMeasure(1)
	n := note.MustNew("C4", 1)
	require.NoError(t, m.Append(n))
	require.NoError(t, part.Append(m))

	cp := part.Copy()
	assert.Equal(t, base.KindPart, cp.Kind())
	cm := cp.Measures()[0]
	assert.NotSame(t, m, cm)
	assert.Equal(t, 1, cm.Number())
	cn := cm.Elements()[0].(*note.Note)
	assert.NotSame(t, n, cn)
	cn.Pitch = pitch.MustParse("F4")
	assert.Equal(t, "C4", n.Pitch.String())
	assert.Equal(t, 1, n.Sites().Len())
}

func TestStreamLengthCountsAsDuration(t *testing.T) {
	outer := New()
	inner := New()
	require.NoError(t, inner.Append(note.MustNew("C4", 3)))
	require.NoError(t, outer.Append(inner))
	require.NoError(t, outer.Append(note.MustNew("D4", 1)))
	assert.Equal(t, 4.0, outer.HighestTime())
	assert.Equal(t, 3.0, inner.QuarterLength())
}

func TestDiscardedStreamIsNotKeptAlive(t *testing.T) {
	n := note.MustNew("C4", 1)
	keep := New()
	require.NoError(t, keep.Append(n))
	func() {
		tmp := New()
		require.NoError(t, tmp.Insert(4, n))
	}()
	for i := 0; i < 10 && n.Sites().Len() > 1; i++ {
		runtime.GC()
	}
	assert.Equal(t, 1, n.Sites().Len())
	assert.Equal(t, 0.0, mustOffset(t, n, keep))
	runtime.KeepAlive(keep)
}

func TestReorderAfterMemberChanges(t *testing.T) {
	s := New()
	c := note.MustNew("C4", 1)
	d := note.MustNew("D4", 1)
	e := note.MustNew("E4", 1)
	require.NoError(t, s.Insert(0, c))
	require.NoError(t, s.Insert(0, d))
	require.NoError(t, s.Insert(1, e))
	assert.Equal(t, []base.Element{c, d, e}, s.Elements())

	c.SetPriority(5)
	assert.Equal(t, []base.Element{d, c, e}, s.Elements())

	// moved through the Sites ledger rather than the stream
	d.Base().InsertInto(s, 2)
	assert.Equal(t, []base.Element{c, e, d}, s.Elements())
	assert.True(t, s.IsSorted())
}
