package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

const secret = "test-secret-0123456789"

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager(secret, time.Hour)

	for _, role := range []core.Role{core.RoleStandard, core.RolePrivileged} {
		token, exp, err := tm.Generate(core.User{ID: 42, Username: "u", Role: role})
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

		p, err := tm.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, core.Principal{UserID: 42, Role: role}, p)
	}
}

func TestParseRejects(t *testing.T) {
	tm := NewTokenManager(secret, time.Hour)
	good, _, err := tm.Generate(core.User{ID: 1, Role: core.RoleStandard})
	require.NoError(t, err)

	expired := NewTokenManager(secret, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Generate(core.User{ID: 1, Role: core.RoleStandard})
	require.NoError(t, err)

	otherKey, _, err := NewTokenManager("another-secret-0123456", time.Hour).Generate(core.User{ID: 1, Role: core.RoleStandard})
	require.NoError(t, err)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: "root",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":     "not-a-token",
		"expired":     old,
		"wrong key":   otherKey,
		"bad role":    badRole,
		"alg none":    noneAlg,
		"tampered":    good + "x",
		"empty token": "",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := tm.Parse(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "battery staple"))
	assert.False(t, CheckPassword("not-a-hash", "correct horse"))
}
