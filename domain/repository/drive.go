package repository

import (
	"context"
	"time"

	"video-relay/domain/model"
)

// IDriveUploader uploads a staged file into a Drive folder.
type IDriveUploader interface {
	Upload(ctx context.Context, req model.UploadRequest, cred model.UploadCredential) (*model.RemoteAsset, error)
}

// ITokenRefresher exchanges a refresh token for a new access token.
type ITokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (accessToken string, expiry time.Time, err error)
}

// IDriveCredential persists delegated Drive credentials per user.
type IDriveCredential interface {
	// GetUserCredentials returns nil, nil when the user never connected Drive.
	GetUserCredentials(ctx context.Context, userID string) (*model.DriveCredential, error)
	UpdateUserAccessToken(ctx context.Context, userID, accessToken string, expiry time.Time) error
	UpsertUserCredentials(ctx context.Context, cred *model.DriveCredential) error
}
