package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pistachio-backend/internal/domain"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager(secret, time.Hour)
	user := &domain.User{ID: 3, Username: "muhasebe", Role: domain.UserRoleAccounting}

	token, expiresAt, err := tm.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(3), claims.UserID)

	session := claims.Session()
	assert.Equal(t, "muhasebe", session.Username)
	assert.True(t, session.HasRole(domain.UserRoleAccounting))
	assert.False(t, session.HasRole(domain.UserRoleWarehouse))
}

func TestTokenManager_Expired(t *testing.T) {
	m := &tokenManager{secret: []byte(secret), ttl: time.Minute, now: time.Now}
	token, _, err := m.GenerateAccessToken(&domain.User{ID: 1, Role: domain.UserRoleAdmin})
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	token, _, err := NewTokenManager(secret, time.Hour).GenerateAccessToken(&domain.User{ID: 1})
	require.NoError(t, err)

	_, err = NewTokenManager("another-secret-another-secret-xx", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_WrongType(t *testing.T) {
	claims := UserClaims{
		UserID: 1,
		Type:   "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = NewTokenManager(secret, time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}
