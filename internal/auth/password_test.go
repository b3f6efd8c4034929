package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashAndVerify(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	digest, err := hasher.Hash("correct-horse-1")
	require.NoError(t, err)

	assert.True(t, hasher.Verify("correct-horse-1", digest))
	assert.False(t, hasher.Verify("correct-horse-2", digest))
	assert.NotContains(t, digest, "correct-horse-1")
}

func TestPasswordHashIsSalted(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	first, err := hasher.Hash("same-password-9")
	require.NoError(t, err)
	second, err := hasher.Hash("same-password-9")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, hasher.Verify("same-password-9", first))
	assert.True(t, hasher.Verify("same-password-9", second))
}

func TestPasswordVerifyMalformedDigest(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	for _, digest := range []string{"", "not-a-bcrypt-hash", "$2a$04$short"} {
		assert.False(t, hasher.Verify("anything1", digest), "digest %q", digest)
	}
}

func TestNewPasswordHasherClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(99).cost)
	assert.Equal(t, 12, NewPasswordHasher(12).cost)
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		want     error
	}{
		{"abc1", ErrPasswordTooShort},
		{"abcdefgh", ErrPasswordWeak},
		{"12345678", ErrPasswordWeak},
		{strings.Repeat("a1", 40), ErrPasswordTooLong},
		{"hunter22", nil},
		{"пароль123", nil},
	}

	for _, tt := range tests {
		assert.ErrorIs(t, ValidatePassword(tt.password), tt.want, "password %q", tt.password)
	}
}

func TestVerifyMissingUsesConfiguredCost(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost + 1)

	assert.False(t, hasher.VerifyMissing("correct-horse-1"))
	assert.False(t, hasher.VerifyMissing(dummyPassword))

	cost, err := bcrypt.Cost(hasher.dummy)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)
}

func TestHashRejectsPasswordsPastBcryptLimit(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	atLimit := strings.Repeat("a", 71) + "1"
	digest, err := hasher.Hash(atLimit)
	require.NoError(t, err)
	assert.True(t, hasher.Verify(atLimit, digest))

	_, err = hasher.Hash(atLimit + "x")
	assert.Error(t, err)
	assert.ErrorIs(t, ValidatePassword(atLimit+"x"), ErrPasswordTooLong)
}
