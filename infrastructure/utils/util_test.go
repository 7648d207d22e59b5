package utils

import (
	"testing"
	"time"

	"video-relay/domain/model"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignStateToken(t *testing.T) {
	raw, err := SignStateToken("user-1", time.Minute, "secret")
	require.NoError(t, err)

	var claims model.UserClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, "user-1", claims.Issuer)
	assert.True(t, IsStateToken(claims))
	assert.InDelta(t, time.Now().Add(time.Minute).Unix(), claims.ExpiresAt, 2)

	userID, err := ParseStateToken(raw, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestParseStateToken_Rejections(t *testing.T) {
	expired, err := SignStateToken("user-1", -time.Minute, "secret")
	require.NoError(t, err)
	foreign, err := SignStateToken("user-1", time.Minute, "other-secret")
	require.NoError(t, err)
	bearer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, model.UserClaims{StandardClaims: jwt.StandardClaims{
		Issuer:    "user-1",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := map[string]string{
		"missing":      "",
		"expired":      expired,
		"wrong key":    foreign,
		"bearer token": bearer,
		"not a jwt":    "abc.def",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseStateToken(raw, "secret")
			assert.ErrorIs(t, err, errStateRejected)
		})
	}
}

func TestGetCurrentTimeIsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, GetCurrentTime().Location())
}
