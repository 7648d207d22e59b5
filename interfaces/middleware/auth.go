package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"video-relay/domain/dto"
	"video-relay/domain/model"
	"video-relay/infrastructure/logger"
	"video-relay/infrastructure/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

// Auth verifies the bearer token and exposes its issuer as user_id.
func Auth(secretKey string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		res := dto.Res{ResponseCode: "401", ResponseMessage: "Unauthorized"}

		authorization := ctx.Request.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(authorization, "Bearer ")
		if !ok || raw == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}

		userClaims, token, err := getClaim(raw, secretKey)
		if err != nil || token == nil || !token.Valid || userClaims.Issuer == "" {
			res.ResponseMessage = rejection(err)
			logger.GetLogger().WithField("error", err).Warn("Rejected bearer token")
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}

		if utils.IsStateToken(userClaims) {
			logger.GetLogger().WithField("user_id", userClaims.Issuer).Warn("Rejected consent state used as bearer token")
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}

		ctx.Set("user_id", userClaims.Issuer)
		ctx.Set("user_name", userClaims.UserName)
		ctx.Next()
	}
}

func rejection(err error) string {
	var ve *jwt.ValidationError
	if !errors.As(err, &ve) {
		return "Unauthorized"
	}
	switch {
	case ve.Errors&jwt.ValidationErrorMalformed != 0:
		return "That's not even a token"
	case ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0:
		return "Timing is everything"
	default:
		return fmt.Sprintf("Couldn't handle this token:%v", err)
	}
}

func getClaim(raw, secretKey string) (model.UserClaims, *jwt.Token, error) {
	var userClaims model.UserClaims
	token, err := jwt.ParseWithClaims(raw, &userClaims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	return userClaims, token, err
}
