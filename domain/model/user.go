package model

import "github.com/golang-jwt/jwt"

// UserClaims are the JWT claims issued to API callers. Issuer carries the user id.
type UserClaims struct {
	jwt.StandardClaims
	UserName string `json:"user_name"`
}
