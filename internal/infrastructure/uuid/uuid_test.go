package uuid

import (
	"testing"

	guuid "github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNanoIDGenerator(t *testing.T) {
	gen := NewNanoIDGenerator(16)
	a, err := gen.Generate()
	require.NoError(t, err)
	b, err := gen.Generate()
	require.NoError(t, err)

	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}

func TestNanoIDGenerator_InvalidLength(t *testing.T) {
	assert.Panics(t, func() { NewNanoIDGenerator(0) })
}

func TestRandomGenerator(t *testing.T) {
	id, err := RandomGenerator{}.Generate()
	require.NoError(t, err)

	parsed, err := guuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, guuid.Version(4), parsed.Version())
}
