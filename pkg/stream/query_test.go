package stream

import (
	"slices"
	"strings"
	"testing"

	"github.com/james-see/scorestream/pkg/base"
	"github.com/james-see/scorestream/pkg/clef"
	"github.com/james-see/scorestream/pkg/common"
	"github.com/james-see/scorestream/pkg/meter"
	"github.com/james-see/scorestream/pkg/note"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetElementsByClass(t *testing.T) {
	s := New()
	n := note.MustNew("C4", 1)
	r := note.MustNewRest(1)
	c, err := note.NewChord(1, "C4", "E4")
	require.NoError(t, err)
	require.NoError(t, s.Insert(0, clef.Bass()))
	require.NoError(t, s.Append(n, r, c))

	notes := s.GetElementsByClass(base.KindNote)
	assert.Equal(t, []base.Element{n}, notes.Elements())

	general := s.GetElementsByClass(base.KindNote, base.KindRest)
	assert.Equal(t, []base.Element{n, r}, general.Elements())
	assert.Equal(t, 3, s.NotesAndRests().Len())
	assert.Equal(t, 2, s.Notes().Len())
	assert.Equal(t, 1, s.GetElementsNotOfClass(base.KindGeneralNote).Len())

	// results hold references at the same offsets
	assert.Same(t, n, notes.Elements()[0])
	assert.Equal(t, 0.0, mustOffset(t, n, notes))
	assert.Equal(t, 2.0, mustOffset(t, c, s.Notes()))
}

func TestGetElementsByClassDoesNotRecurse(t *testing.T) {
	outer := New()
	inner := NewMeasure(1)
	require.NoError(t, inner.Append(note.MustNew("C4", 1)))
	require.NoError(t, outer.Append(inner))
	assert.Equal(t, 0, outer.GetElementsByClass(base.KindNote).Len())
	assert.Equal(t, 1, outer.GetElementsByClass(base.KindStream).Len())
	assert.Equal(t, base.KindStream, outer.GetElementsByClass(base.KindNote).Kind())
}

func TestGetElementsByOffsetMustFinishInSpan(t *testing.T) {
	s := New()
	require.NoError(t, s.Insert(2, note.MustNew("C4", 2)))
	require.NoError(t, s.Insert(0, note.MustNew("D4", 2)))
	got := s.GetElementsByOffset(1, 3, MustFinishInSpan(true))
	assert.Equal(t, 0, got.Len())
}

func TestGetElementsByOffsetOptions(t *testing.T) {
	s := New()
	a := note.MustNew("C4", 2) // [0, 2)
	b := note.MustNew("D4", 1) // [2, 3)
	c := note.MustNew("E4", 1) // [3, 4)
	ts := meter.MustTimeSignature("4/4")
	require.NoError(t, s.Append(a, b, c))
	require.NoError(t, s.Insert(2, ts))

	ids := func(st *Stream) []base.Element { return st.Elements() }

	tests := []struct {
		name       string
		start, end float64
		opts       []OffsetOption
		want       []base.Element
	}{
		{"begin in span", 1, 3, nil, []base.Element{ts, b, c}},
		{"exclude end boundary", 1, 3, []OffsetOption{IncludeEndBoundary(false)}, []base.Element{ts, b}},
		{"sounding during span", 1, 2.5, []OffsetOption{MustBeginInSpan(false)}, []base.Element{a, ts, b}},
		{"sounding, not touching start", 2, 2.5, []OffsetOption{MustBeginInSpan(false), IncludeElementsThatEndAtStart(false)}, []base.Element{b}},
		{"sounding, touching start", 2, 2.5, []OffsetOption{MustBeginInSpan(false)}, []base.Element{a, ts, b}},
		{"finish in span", 0, 3, []OffsetOption{MustFinishInSpan(true)}, []base.Element{a, ts, b}},
		{"point search", 2, 2, nil, []base.Element{ts, b}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(s.GetElementsByOffset(tt.start, tt.end, tt.opts...)))
		})
	}
}

func TestGetElementByIDAndGroup(t *testing.T) {
	s := New()
	a, b := note.MustNew("C4", 1), note.MustNew("D4", 1)
	a.SetID("first")
	b.AddGroup("accent")
	require.NoError(t, s.Append(a, b))

	el, err := s.GetElementByID("first")
	require.NoError(t, err)
	assert.Same(t, a, el)

	_, err = s.GetElementByID("missing")
	assert.True(t, common.IsNotFound(err))

	assert.Equal(t, []base.Element{b}, s.GetElementsByGroup("accent").Elements())
	assert.Equal(t, 0, s.GetElementsByGroup("none").Len())
}

// nestedScore builds five streams of one stream each holding five quarter notes.
func nestedScore(t *testing.T) *Stream {
	t.Helper()
	top := NewScore()
	for i := 0; i < 5; i++ {
		mid := NewPart()
		inner := NewMeasure(i + 1)
		for j := 0; j < 5; j++ {
			require.NoError(t, inner.Insert(float64(j), note.MustNew("C4", 1)))
		}
		require.NoError(t, mid.Insert(1, inner))
		require.NoError(t, top.Insert(float64(i*10), mid))
	}
	return top
}

func TestFlatNested(t *testing.T) {
	top := nestedScore(t)
	flat := top.Flat()
	require.Equal(t, 25, flat.Len())
	assert.True(t, flat.IsFlat())
	assert.False(t, top.IsFlat())

	var want []float64
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			want = append(want, float64(i*10+1+j))
		}
	}
	assert.Equal(t, want, offsets(t, flat))
}

func TestFlatIsIdempotent(t *testing.T) {
	flat := nestedScore(t).Flat()
	again := flat.Flat()
	assert.Equal(t, flat.Elements(), again.Elements())
	assert.Equal(t, offsets(t, flat), offsets(t, again))
}

func TestRecurse(t *testing.T) {
	top := nestedScore(t)
	var streams, notes int
	for off, el := range top.Recurse() {
		if _, ok := el.(*Stream); ok {
			streams++
			continue
		}
		notes++
		assert.GreaterOrEqual(t, off, 1.0)
	}
	assert.Equal(t, 10, streams)
	assert.Equal(t, 25, notes)
}

func TestElementAtOrBefore(t *testing.T) {
	s := New()
	a := note.MustNew("C4", 1)
	b := note.MustNew("D4", 1)
	c := note.MustNew("E4", 1)
	ts := meter.MustTimeSignature("3/4")
	require.NoError(t, s.Insert(0, a))
	require.NoError(t, s.Insert(0, ts))
	require.NoError(t, s.Insert(2, b))
	require.NoError(t, s.Insert(2, c))

	el, err := s.ElementAtOrBefore(1.5)
	require.NoError(t, err)
	assert.Same(t, a, el)

	el, err = s.ElementAtOrBefore(2)
	require.NoError(t, err)
	assert.Same(t, c, el)

	el, err = s.ElementAtOrBefore(5, base.KindTimeSignature)
	require.NoError(t, err)
	assert.Same(t, ts, el)

	_, err = s.ElementAtOrBefore(-1)
	assert.True(t, common.IsNotFound(err))

	el, err = s.ElementAtOrAfter(0.5)
	require.NoError(t, err)
	assert.Same(t, b, el)

	el, err = s.ElementAfterElement(b)
	require.NoError(t, err)
	assert.Same(t, c, el)

	_, err = s.ElementAfterElement(c)
	assert.True(t, common.IsNotFound(err))
}

func TestFindGaps(t *testing.T) {
	s := New()
	require.NoError(t, s.Insert(1, note.MustNew("C4", 1)))
	require.NoError(t, s.Insert(3, note.MustNew("C4", 1)))
	assert.Equal(t, []Gap{{0, 1}, {2, 3}}, s.FindGaps())
}

func TestShow(t *testing.T) {
	m := NewMeasure(3)
	require.NoError(t, m.Append(note.MustNew("C#4", 1)))
	out := m.Text()
	assert.True(t, strings.HasPrefix(out, "<Measure 3, 1 elements>"))
	assert.Contains(t, out, "{0} <Note C#4 1>")
}

func TestGetOverlaps(t *testing.T) {
	s := New()
	a := note.MustNew("C4", 2) // [0, 2)
	b := note.MustNew("E4", 1) // [1, 2)
	c := note.MustNew("G4", 1) // [2, 3)
	d := note.MustNew("B4", 1) // [5, 6)
	e := note.MustNew("D5", 2) // [5, 7)
	require.NoError(t, s.InsertPlacements(
		Placement{0, a}, Placement{1, b}, Placement{2, c}, Placement{5, d}, Placement{5, e},
	))

	got := s.GetOverlaps(true, false)
	require.Len(t, got, 2)
	assert.Equal(t, []base.Element{a, b}, got[0].Elements())
	assert.Equal(t, []base.Element{d, e}, got[5].Elements())

	touching := s.GetOverlaps(true, true)
	require.Len(t, touching, 2)
	assert.Equal(t, []base.Element{a, b, c}, touching[0].Elements())
}

func TestGetOverlapsDurationless(t *testing.T) {
	s := New()
	n := note.MustNew("C4", 2)
	cl := clef.Treble()
	require.NoError(t, s.Insert(0, n))
	require.NoError(t, s.Insert(1, cl))

	with := s.GetOverlaps(true, false)
	require.Contains(t, with, 0.0)
	assert.True(t, slices.Contains(with[0].Elements(), base.Element(cl)))

	assert.Empty(t, s.GetOverlaps(false, false))
}

func TestFlatSharedElement(t *testing.T) {
	shared := note.MustNew("G4", 1)
	p1 := NewPart()
	require.NoError(t, p1.Insert(0, shared))
	p2 := NewPart()
	require.NoError(t, p2.Insert(1, note.MustNew("A4", 1)))
	require.NoError(t, p2.Insert(3, shared))
	score := NewScore()
	require.NoError(t, score.Insert(0, p1))
	require.NoError(t, score.Insert(0, p2))

	flat := score.Flat()
	require.Equal(t, 2, flat.Len())
	off, err := flat.ElementOffset(shared)
	require.NoError(t, err)
	assert.Equal(t, 0.0, off)
	assert.Equal(t, []float64{0, 1}, offsets(t, flat))

	require.NoError(t, flat.Remove(shared))
	assert.Equal(t, 1, flat.Len())
	assert.False(t, flat.Contains(shared))

	// the parts keep their own placements
	off, err = p2.ElementOffset(shared)
	require.NoError(t, err)
	assert.Equal(t, 3.0, off)
}
