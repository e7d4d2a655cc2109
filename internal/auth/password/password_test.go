package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	encoded, err := Hash("secret123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=65536,t=1,p=4$"))

	assert.True(t, Verify("secret123", encoded))
	assert.False(t, Verify("secret124", encoded))
	assert.False(t, Verify("secret123", "$bcrypt$whatever"))
	assert.False(t, Verify("secret123", ""))
}

func TestHashUsesFreshSalt(t *testing.T) {
	a, err := Hash("secret123")
	require.NoError(t, err)
	b, err := Hash("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("abc12345"))
	assert.ErrorIs(t, Validate("short1"), ErrInvalid)
	assert.ErrorIs(t, Validate("has space 123"), ErrInvalid)
	assert.ErrorIs(t, Validate(strings.Repeat("a", 31)), ErrInvalid)
}
