package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordService(t *testing.T) {
	svc := NewPasswordService()

	hash, err := svc.Hash("hunter2222")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2222", hash)

	assert.True(t, svc.Verify(hash, "hunter2222"))
	assert.False(t, svc.Verify(hash, "wrong"))
	assert.False(t, svc.Verify("not-a-hash", "hunter2222"))

	// bcrypt salts: equal inputs produce distinct hashes
	hash2, err := svc.Hash("hunter2222")
	require.NoError(t, err)
	assert.NotEqual(t, hash, hash2)
}
