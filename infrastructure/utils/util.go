package utils

import (
	"errors"
	"fmt"
	"time"

	"video-relay/domain/model"
	"video-relay/infrastructure/logger"

	"github.com/golang-jwt/jwt"
)

// StateAudience marks tokens that only carry OAuth consent state. They are
// never accepted as bearer tokens.
const StateAudience = "drive-oauth-state"

var errStateRejected = errors.New("state token rejected")

func GetCurrentTime() time.Time {
	return time.Now().UTC()
}

// SignStateToken issues a short lived consent state whose issuer is userID.
func SignStateToken(userID string, ttl time.Duration, secretKey string) (string, error) {
	now := GetCurrentTime()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, model.UserClaims{StandardClaims: jwt.StandardClaims{
		Audience:  StateAudience,
		Issuer:    userID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}})
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while generate token")
		return "", err
	}
	return tokenString, nil
}

// ParseStateToken returns the user a consent state was issued for.
func ParseStateToken(raw, secretKey string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("%w: state missing", errStateRejected)
	}
	var claims model.UserClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", errStateRejected, err)
	}
	if !token.Valid || claims.Issuer == "" || !claims.VerifyAudience(StateAudience, true) {
		return "", errStateRejected
	}
	return claims.Issuer, nil
}

// IsStateToken reports whether claims belong to a consent state token.
func IsStateToken(claims model.UserClaims) bool {
	return claims.Audience == StateAudience
}
