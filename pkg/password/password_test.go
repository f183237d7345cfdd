package password_test

import (
	"testing"

	"school-im/pkg/password"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := password.Hash("demo123456")
	require.NoError(t, err)
	require.NotEqual(t, "demo123456", hash)

	assert.True(t, password.Verify("demo123456", hash))
	assert.False(t, password.Verify("wrong-password", hash))
	assert.False(t, password.Verify("demo123456", "not-a-bcrypt-hash"))
}
