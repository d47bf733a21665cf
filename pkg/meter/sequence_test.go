package meter

import (
	"testing"

	"github.com/james-see/scorestream/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lengths(s *Sequence) []float64 {
	out := make([]float64, s.Len())
	for i, c := range s.Children() {
		out[i] = c.QuarterLength()
	}
	return out
}

func TestNewSequence(t *testing.T) {
	tests := []struct {
		ratio   string
		want    string
		ql      float64
		lengths []float64
	}{
		{"3/4", "3/4", 3, []float64{3}},
		{"3/8+3/8", "6/8", 3, []float64{1.5, 1.5}},
		{"2+3/8", "5/8", 2.5, []float64{1, 1.5}},
		{"2+2+3/8", "7/8", 3.5, []float64{1, 1, 1.5}},
		{"1/4+1/8", "3/8", 1.5, []float64{1, 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.ratio, func(t *testing.T) {
			s, err := NewSequence(tt.ratio)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Ratio())
			assert.Equal(t, tt.ql, s.QuarterLength())
			assert.Equal(t, tt.lengths, lengths(s))
		})
	}
}

func TestNewSequenceErrors(t *testing.T) {
	for _, ratio := range []string{"3", "3/5", "0/4", "x/4", "3/4+2", "3/256"} {
		_, err := NewSequence(ratio)
		assert.True(t, common.IsInvariant(err), ratio)
	}
}

func TestPartitionNumeratorsScalesDenominator(t *testing.T) {
	s := MustSequence("3/4")
	require.NoError(t, s.Partition(Numerators{3, 3}))
	assert.Equal(t, []float64{1.5, 1.5}, lengths(s))
	assert.Equal(t, "3/8", s.Child(0).Ratio())
	assert.Equal(t, 3.0, s.QuarterLength())
}

func TestPartitionCount(t *testing.T) {
	tests := []struct {
		ratio string
		count int
		want  []float64
	}{
		{"3/4", 3, []float64{1, 1, 1}},
		{"6/8", 2, []float64{1.5, 1.5}},
		{"5/8", 2, []float64{1, 1.5}},
		{"7/8", 3, []float64{1, 1, 1.5}},
		{"1/4", 2, []float64{0.5, 0.5}},
		{"4/4", 1, []float64{4}},
	}

	for _, tt := range tests {
		t.Run(tt.ratio, func(t *testing.T) {
			s := MustSequence(tt.ratio)
			require.NoError(t, s.Partition(Count(tt.count)))
			assert.Equal(t, tt.want, lengths(s))
		})
	}
}

func TestPartitionPreservesDuration(t *testing.T) {
	specs := []PartitionSpec{
		Count(2), Count(3), Count(4), Count(6),
		Numerators{3, 3, 6}, Numerators{6, 6, 6, 6},
		Ratios{"1/4", "1/8", "3/8", "1/4", "1/2"},
		MustSequence("3/8+3/8+3/8+3/8"),
	}
	for _, spec := range specs {
		s := MustSequence("12/8")
		require.NoError(t, s.Partition(spec))
		var sum float64
		for _, l := range lengths(s) {
			sum += l
		}
		assert.Equal(t, s.QuarterLength(), common.OpFrac(sum))
	}
}

func TestPartitionErrorsLeaveSequenceUnchanged(t *testing.T) {
	tests := []struct {
		name string
		spec PartitionSpec
	}{
		{"short ratios", Ratios{"1/4", "1/4"}},
		{"numerators", Numerators{3, 4}},
		{"zero count", Count(0)},
		{"bad ratio", Ratios{"1/3", "2/3"}},
		{"other length", MustSequence("2/4")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := MustSequence("3/4")
			err := s.Partition(tt.spec)
			assert.True(t, common.IsInvariant(err))
			assert.Equal(t, []float64{3}, lengths(s))
		})
	}

	_, err := MustSequence("1/8").Subdivide(Count(3))
	assert.True(t, common.IsInvariant(err))
}

func TestSubdivideDoesNotMutate(t *testing.T) {
	s := MustSequence("4/4")
	sub, err := s.Subdivide(Count(4))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 4, sub.Len())

	term, err := NewTerminal("3/8")
	require.NoError(t, err)
	seq, err := term.Subdivide(Count(3))
	require.NoError(t, err)
	assert.Equal(t, "{1/8+1/8+1/8}", seq.String())
	assert.Equal(t, 1.5, term.QuarterLength())
}

// nested builds {1/4+{1/8+1/8}+1/4+{{1/16+1/16}+1/8}}
func nested(t *testing.T) *Sequence {
	t.Helper()
	s := MustSequence("4/4")
	require.NoError(t, s.Partition(Count(4)))
	for _, i := range []int{1, 3} {
		sub, err := s.Child(i).(*Terminal).Subdivide(Count(2))
		require.NoError(t, err)
		require.NoError(t, s.Set(i, sub))
	}
	last := s.Child(3).(*Sequence)
	sub, err := last.Child(0).(*Terminal).Subdivide(Count(2))
	require.NoError(t, err)
	require.NoError(t, last.Set(0, sub))
	return s
}

func TestNestedStructure(t *testing.T) {
	s := nested(t)
	assert.Equal(t, "{1/4+{1/8+1/8}+1/4+{{1/16+1/16}+1/8}}", s.String())
	assert.Equal(t, 3, s.Depth())
	assert.Equal(t, 4.0, s.QuarterLength())

	assert.Equal(t, []Span{{0, 1}, {1, 2}, {2, 3}, {3, 4}}, s.LevelSpan(0))
	assert.Equal(t, []Span{{0, 1}, {1, 1.5}, {1.5, 2}, {2, 3}, {3, 3.5}, {3.5, 4}}, s.LevelSpan(1))
	assert.Equal(t, 7, s.Flatten().Len())
	assert.Equal(t, "{1/4+1/8+1/8+1/4+1/8+1/8}", s.Level(1).String())
}

func TestSetChecksLength(t *testing.T) {
	s := MustSequence("3/4")
	require.NoError(t, s.Partition(Count(3)))

	wrong, err := NewTerminal("1/8")
	require.NoError(t, err)
	assert.True(t, common.IsInvariant(s.Set(0, wrong)))
	assert.True(t, common.IsNotFound(s.Set(5, wrong)))
}

func TestOffsetToIndexAndSpan(t *testing.T) {
	s := MustSequence("3/4")
	require.NoError(t, s.Partition(Count(3)))

	i, err := s.OffsetToIndex(1.5)
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	sp, err := s.OffsetToSpan(2)
	require.NoError(t, err)
	assert.Equal(t, Span{2, 3}, sp)

	for _, off := range []float64{3, -1, 7} {
		_, err := s.OffsetToIndex(off)
		assert.True(t, common.IsNotFound(err), off)
	}
}

func TestOffsetToDepth(t *testing.T) {
	s := nested(t)
	tests := []struct {
		offset float64
		align  Align
		want   int
	}{
		{0, AlignQuantize, 4},
		{1, AlignQuantize, 3},
		{1.5, AlignQuantize, 2},
		{3, AlignQuantize, 3},
		{3.25, AlignQuantize, 1},
		{3.1, AlignQuantize, 3},
		{3.4, AlignStart, 1},
		{0.5, AlignStart, 4},
	}
	for _, tt := range tests {
		got, err := s.OffsetToDepth(tt.offset, tt.align)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "offset %v", tt.offset)
	}

	_, err := s.OffsetToDepth(4, AlignQuantize)
	assert.True(t, common.IsNotFound(err))
}

func TestWeights(t *testing.T) {
	s := MustSequence("3/4")
	assert.Equal(t, 1.0, s.Weight())
	require.NoError(t, s.Partition(Count(3)))
	assert.InDelta(t, 1.0, s.Weight(), 1e-9)
	assert.InDelta(t, 1.0/3, s.Child(0).Weight(), 1e-9)

	s.SetWeight(3)
	assert.InDelta(t, 1.0, s.Child(2).Weight(), 1e-9)

	s.OverrideWeight(10)
	assert.Equal(t, 10.0, s.Weight())
	assert.InDelta(t, 1.0, s.Child(2).Weight(), 1e-9)
}

func TestSubdivideNestedHierarchy(t *testing.T) {
	s := MustSequence("4/4")
	s.SubdivideNestedHierarchy(3)
	assert.Equal(t, 3, s.Depth())
	assert.Len(t, s.LevelSpan(0), 2)
	assert.Len(t, s.LevelSpan(2), 8)

	c := MustSequence("6/8")
	c.SubdivideNestedHierarchy(2)
	assert.Equal(t, "{{1/8+1/8+1/8}+{1/8+1/8+1/8}}", c.String())
}

func TestIsUniformPartition(t *testing.T) {
	assert.True(t, MustSequence("3/8+3/8").IsUniformPartition())
	assert.False(t, MustSequence("2+3/8").IsUniformPartition())
}

func TestEmptySequenceQueries(t *testing.T) {
	s := &Sequence{}
	_, err := s.OffsetToDepth(0, AlignQuantize)
	assert.True(t, common.IsNotFound(err), "got %v", err)
	_, err = s.OffsetToIndex(0)
	assert.True(t, common.IsNotFound(err), "got %v", err)
	_, err = s.OffsetToSpan(0)
	assert.True(t, common.IsNotFound(err), "got %v", err)
	assert.True(t, s.IsUniformPartition())
}
