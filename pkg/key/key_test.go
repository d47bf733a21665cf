package key

import (
	"testing"

	"github.com/james-see/scorestream/pkg/base"
	"github.com/james-see/scorestream/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlteredSteps(t *testing.T) {
	k, err := New(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"F", "C"}, k.AlteredSteps())

	k, err = New(-3)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "E", "A"}, k.AlteredSteps())
	assert.Equal(t, base.KindKeySignature, k.Kind())
}

func TestInvalidKey(t *testing.T) {
	_, err := New(8)
	assert.True(t, common.IsInvariant(err))
}
