package hashing

import (
	"strings"
	"testing"

	"blog-service/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testHashingConfig(pepper, previous string) config.HashingConfig {
	return config.HashingConfig{
		Argon2MemoryCost:  8 * 1024,
		Argon2TimeCost:    1,
		Argon2Parallelism: 1,
		Pepper:            pepper,
		PreviousPepper:    previous,
	}
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	digest, err := h.Hash("Secr3t!pass")
	require.NoError(t, err)
	assert.NotEqual(t, "Secr3t!pass", digest)

	tests := []struct {
		name      string
		plaintext string
		digest    string
		want      bool
	}{
		{name: "matching password", plaintext: "Secr3t!pass", digest: digest, want: true},
		{name: "different password", plaintext: "Secr3t!pasS", digest: digest, want: false},
		{name: "empty password", plaintext: "", digest: digest, want: false},
		{name: "malformed digest", plaintext: "Secr3t!pass", digest: "not-a-hash", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.Verify(tt.plaintext, tt.digest))
		})
	}
}

func TestPasswordHasherSaltsEachDigest(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	a, err := h.Hash("same-password")
	require.NoError(t, err)
	b, err := h.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, h.Verify("same-password", a))
	assert.True(t, h.Verify("same-password", b))
}

func TestPasswordHasherRejectsLongPassword(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	_, err := h.Hash(strings.Repeat("a", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestNewPasswordHasherDefaultsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(0).cost)
	assert.Equal(t, bcrypt.MinCost, NewPasswordHasher(bcrypt.MinCost).cost)
}

func TestHasherOTPRoundTrip(t *testing.T) {
	h := NewHasher(testHashingConfig("pepper-a", ""))

	encoded, err := h.HashOTP("482913")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, algorithm+"$"))

	ok, err := h.VerifyOTP("482913", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.VerifyOTP("482914", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasherAcceptsPreviousPepper(t *testing.T) {
	old := NewHasher(testHashingConfig("pepper-a", ""))
	encoded, err := old.HashOTP("123456")
	require.NoError(t, err)

	rotated := NewHasher(testHashingConfig("pepper-b", "pepper-a"))
	ok, err := rotated.VerifyOTP("123456", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	dropped := NewHasher(testHashingConfig("pepper-c", "pepper-b"))
	_, err = dropped.VerifyOTP("123456", encoded)
	assert.ErrorIs(t, err, ErrUnknownPepper)
}

func TestParseHash(t *testing.T) {
	_, err := ParseHash("only$three$parts")
	assert.ErrorIs(t, err, ErrInvalidHash)

	_, err = ParseHash("bcrypt$a$b$c")
	assert.ErrorIs(t, err, ErrUnsupportedAlgo)

	res, err := ParseHash("argon2id-v1$abcd$salt$hash")
	require.NoError(t, err)
	assert.Equal(t, "abcd", res.PepperID)
}
