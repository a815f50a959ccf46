package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOTP_Format(t *testing.T) {
	for i := 0; i < 50; i++ {
		code := GenerateOTP()
		assert.Regexp(t, `^\d{6}$`, code)
	}
}

func TestGenerateOTP_Varies(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		seen[GenerateOTP()] = true
	}
	assert.Greater(t, len(seen), 1, "codes should not repeat across every draw")
}

func TestHashCode_Roundtrip(t *testing.T) {
	hash, err := HashCode("123456")
	require.NoError(t, err)
	assert.NotEqual(t, "123456", hash)

	assert.True(t, CheckCode("123456", hash))
	assert.False(t, CheckCode("654321", hash))
	assert.False(t, CheckCode("123456", "not-a-hash"))
}

func TestHashCode_DistinctSalts(t *testing.T) {
	h1, err := HashCode("123456")
	require.NoError(t, err)
	h2, err := HashCode("123456")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}
