package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"video-relay/domain/model"
	"video-relay/domain/repository"
	"video-relay/infrastructure/logger"
	"video-relay/infrastructure/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

const stateTTL = 10 * time.Minute

// DriveConsent is the OAuth side of the delegated Drive connect flow.
type DriveConsent interface {
	Configured() bool
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// IDriveAuthHandler defines the Drive connect handlers
type IDriveAuthHandler interface {
	GetAuthURL(ctx *gin.Context)
	HandleCallback(ctx *gin.Context)
}

type DriveAuthHandler struct {
	consent     DriveConsent
	credentials repository.IDriveCredential
	secretKey   string
}

func NewDriveAuthHandler(consent DriveConsent, credentials repository.IDriveCredential, secretKey string) IDriveAuthHandler {
	return &DriveAuthHandler{consent: consent, credentials: credentials, secretKey: secretKey}
}

// GetAuthURL handles GET /api/auth/drive
func (h *DriveAuthHandler) GetAuthURL(ctx *gin.Context) {
	if !h.consent.Configured() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "Drive OAuth client is not configured"})
		return
	}
	state, err := utils.SignStateToken(ctx.GetString("user_id"), stateTTL, h.secretKey)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create state", "message": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"auth_url": h.consent.AuthCodeURL(state)})
}

// HandleCallback handles GET /auth/drive/callback
func (h *DriveAuthHandler) HandleCallback(ctx *gin.Context) {
	if errorParam := ctx.Query("error"); errorParam != "" {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":       fmt.Sprintf("OAuth error: %s", errorParam),
			"description": ctx.Query("error_description"),
		})
		return
	}

	userID, err := utils.ParseStateToken(ctx.Query("state"), h.secretKey)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid state", "action": "Visit /api/auth/drive to start over"})
		return
	}
	code := ctx.Query("code")
	if code == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Authorization code not found"})
		return
	}

	token, err := h.consent.Exchange(ctx.Request.Context(), code)
	if err != nil {
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "Failed to exchange code for token", "message": err.Error()})
		return
	}

	cred := &model.DriveCredential{
		UserID:       userID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		cred.ExpiresAt = &expiry
	}
	if scope, ok := token.Extra("scope").(string); ok {
		cred.Scopes = scope
	}
	if err := h.credentials.UpsertUserCredentials(ctx.Request.Context(), cred); err != nil {
		logger.GetLogger().WithField("user_id", userID).WithField("error", err).Error("Failed to store Drive credential")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store Drive credential"})
		return
	}

	logger.GetLogger().WithField("user_id", userID).Info("Drive connected")
	ctx.JSON(http.StatusOK, gin.H{
		"success":           true,
		"has_refresh_token": token.RefreshToken != "",
		"expiry":            cred.ExpiresAt,
	})
}
