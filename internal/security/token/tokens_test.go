package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpaqueTokenAndHash(t *testing.T) {
	a, err := GenerateOpaqueToken(24)
	require.NoError(t, err)
	b, err := GenerateOpaqueToken(24)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 32)

	h := SHA256Base64URL(a)
	assert.True(t, EqualHash(a, h))
	assert.False(t, EqualHash(b, h))
	assert.False(t, EqualHash(a, ""))
}
