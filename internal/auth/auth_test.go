package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCheckPlainPassword(t *testing.T) {
	a, err := New("admin", "glaze", "")
	require.NoError(t, err)

	assert.True(t, a.Check("admin", "glaze"))
	assert.False(t, a.Check("admin", "Glaze"))
	assert.False(t, a.Check("root", "glaze"))
}

func TestCheckPrefersHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("kiln"), bcrypt.MinCost)
	require.NoError(t, err)

	a, err := New("admin", "ignored", string(hash))
	require.NoError(t, err)

	assert.True(t, a.Check("admin", "kiln"))
	assert.False(t, a.Check("admin", "ignored"))
}

func TestUnconfiguredRejectsEverything(t *testing.T) {
	a, err := New("admin", "", "")
	require.NoError(t, err)

	assert.False(t, a.Configured())
	assert.False(t, a.Check("admin", ""))
}

func TestInvalidHash(t *testing.T) {
	_, err := New("admin", "", "not-a-hash")
	assert.Error(t, err)
}
