package secret_test

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/marcelsud/webhook-router/webhook/secret"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	t.Run("generates 256 bit hex secrets", func(t *testing.T) {
		plain, err := secret.Generate()
		require.NoError(t, err)

		raw, err := hex.DecodeString(plain)
		require.NoError(t, err)
		assert.Len(t, raw, secret.SecretBytes)
	})

	t.Run("secrets are unique", func(t *testing.T) {
		a, err := secret.Generate()
		require.NoError(t, err)
		b, err := secret.Generate()
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
	})
}

func TestHashAndVerify(t *testing.T) {
	t.Run("verifies the original secret", func(t *testing.T) {
		hash, err := secret.Hash("s3cr3t", secret.MinCost)
		require.NoError(t, err)

		assert.NotEqual(t, "s3cr3t", hash)
		assert.True(t, secret.Verify("s3cr3t", hash))
	})

	t.Run("rejects a different secret", func(t *testing.T) {
		hash, err := secret.Hash("s3cr3t", secret.MinCost)
		require.NoError(t, err)

		assert.False(t, secret.Verify("other", hash))
	})

	t.Run("rejects empty input", func(t *testing.T) {
		hash, err := secret.Hash("s3cr3t", secret.MinCost)
		require.NoError(t, err)

		assert.False(t, secret.Verify("", hash))
		assert.False(t, secret.Verify("s3cr3t", ""))
	})

	t.Run("plaintext compared against itself is not a valid hash", func(t *testing.T) {
		assert.False(t, secret.Verify("s3cr3t", "s3cr3t"))
	})

	t.Run("same secret hashes differently", func(t *testing.T) {
		a, err := secret.Hash("s3cr3t", secret.MinCost)
		require.NoError(t, err)
		b, err := secret.Hash("s3cr3t", secret.MinCost)
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
	})

	t.Run("invalid cost", func(t *testing.T) {
		_, err := secret.Hash("s3cr3t", 99)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "bcrypt cost")
	})
}

func TestNew(t *testing.T) {
	generated, err := secret.New(secret.MinCost)
	require.NoError(t, err)

	assert.Len(t, generated.Plain, secret.SecretBytes*2)
	assert.True(t, strings.HasPrefix(generated.Hash, "$2"))
	assert.True(t, secret.Verify(generated.Plain, generated.Hash))
}

func TestValidateHash(t *testing.T) {
	hash, err := secret.Hash("s3cr3t", secret.MinCost)
	require.NoError(t, err)

	assert.NoError(t, secret.ValidateHash(hash))
	assert.Error(t, secret.ValidateHash("s3cr3t"))
	assert.Error(t, secret.ValidateHash(""))
}
