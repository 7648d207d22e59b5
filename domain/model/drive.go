package model

import "time"

// UploadStrategy names the credential used to upload an asset.
type UploadStrategy string

const (
	StrategyDelegated UploadStrategy = "delegated"
	StrategyService   UploadStrategy = "service"
)

// DriveCredential stores a user's delegated Drive OAuth token.
type DriveCredential struct {
	ID           int64      `json:"id"`
	UserID       string     `json:"user_id"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Scopes       string     `json:"scopes"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Expired reports whether the access token is unusable at now, allowing skew.
func (c *DriveCredential) Expired(now time.Time, skew time.Duration) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Add(skew).Before(*c.ExpiresAt)
}

// UploadCredential is what the upload gateway needs for one attempt.
type UploadCredential struct {
	Strategy           UploadStrategy
	AccessToken        string
	Expiry             time.Time
	ServiceAccountJSON []byte
}

// UploadRequest describes a local file to place into a Drive folder.
type UploadRequest struct {
	LocalPath string
	FileName  string
	MimeType  string
	FolderID  string
}

// RemoteAsset is an uploaded Drive file.
type RemoteAsset struct {
	ID          string         `json:"id" bson:"id"`
	ViewLink    string         `json:"view_link,omitempty" bson:"view_link,omitempty"`
	ContentLink string         `json:"content_link,omitempty" bson:"content_link,omitempty"`
	Strategy    UploadStrategy `json:"strategy" bson:"strategy"`
}
