package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	service := NewService("test-secret", time.Hour)

	token, err := service.GenerateToken("ops", []string{"write"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, []string{"write"}, claims.Scopes)
}

func TestGenerateTokenRequiresSubject(t *testing.T) {
	_, err := NewService("test-secret", time.Hour).GenerateToken("", nil)
	assert.Error(t, err)
}

func TestValidateTokenRejects(t *testing.T) {
	service := NewService("test-secret", time.Hour)

	expired := NewService("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.GenerateToken("ops", nil)
	require.NoError(t, err)

	otherKey, err := NewService("other-secret", time.Hour).GenerateToken("ops", nil)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "ops"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "ops"},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "expired", token: expiredToken},
		{name: "wrong key", token: otherKey},
		{name: "none algorithm", token: none},
		{name: "other hmac algorithm", token: hs512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateToken(tt.token)
			assert.Nil(t, claims)
			assert.True(t, errors.Is(err, ErrInvalidToken))
		})
	}
}

func TestContextClaims(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, ClaimsFrom(ctx))
	assert.Empty(t, Subject(ctx))

	ctx = WithClaims(ctx, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "ops"}})
	assert.Equal(t, "ops", Subject(ctx))
}
