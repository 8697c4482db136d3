package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	h, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", h)
	assert.True(t, CheckPassword("secret123", h))
	assert.False(t, CheckPassword("wrong", h))
	assert.False(t, CheckPassword("secret123", ""))
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestUniqueTrimmed(t *testing.T) {
	got := UniqueTrimmed([]string{" a", "b", "a ", "", "  ", "c", "b"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Empty(t, UniqueTrimmed(nil))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "sara@farm.sa", NormalizeEmail("  Sara@Farm.SA "))
	assert.Empty(t, NormalizeEmail("   "))
}
