package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	h, err := HashPassword("123456")
	require.NoError(t, err)
	assert.NotEqual(t, "123456", h)

	assert.True(t, CheckPassword(h, "123456"))
	assert.False(t, CheckPassword(h, "654321"))
	assert.False(t, CheckPassword("not-a-hash", "123456"))
}
