package model

import "time"

// Channel is the part of a channel document the relay reads.
type Channel struct {
	ID            string     `json:"id" bson:"_id"`
	UserID        string     `json:"user_id" bson:"user_id"`
	Name          string     `json:"name" bson:"name"`
	DriveFolderID string     `json:"drive_folder_id,omitempty" bson:"drive_folder_id,omitempty"`
	LastAsset     *LastAsset `json:"last_asset,omitempty" bson:"last_asset,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at" bson:"updated_at"`
}

// LastAsset points at the most recently archived video of a channel.
type LastAsset struct {
	RemoteAsset `bson:",inline"`
	FileName    string    `json:"file_name" bson:"file_name"`
	ArchivedAt  time.Time `json:"archived_at" bson:"archived_at"`
}

// ResultRecord is an append-only log entry of a successful archive.
type ResultRecord struct {
	ID         string         `json:"id" bson:"_id"`
	UserID     string         `json:"user_id" bson:"user_id"`
	ChannelID  string         `json:"channel_id" bson:"channel_id"`
	ScheduleID string         `json:"schedule_id,omitempty" bson:"schedule_id,omitempty"`
	MessageID  int            `json:"message_id" bson:"message_id"`
	FileName   string         `json:"file_name" bson:"file_name"`
	Size       int64          `json:"size" bson:"size"`
	FileID     string         `json:"file_id" bson:"file_id"`
	ViewLink   string         `json:"view_link,omitempty" bson:"view_link,omitempty"`
	Content    string         `json:"content_link,omitempty" bson:"content_link,omitempty"`
	Strategy   UploadStrategy `json:"strategy" bson:"strategy"`
	CreatedAt  time.Time      `json:"created_at" bson:"created_at"`
}

// AssetArchivedEvent is published after a successful archive.
type AssetArchivedEvent struct {
	Type       string         `json:"type"`
	UserID     string         `json:"user_id"`
	ChannelID  string         `json:"channel_id"`
	ScheduleID string         `json:"schedule_id,omitempty"`
	FileID     string         `json:"file_id"`
	FileName   string         `json:"file_name"`
	ViewLink   string         `json:"view_link,omitempty"`
	Strategy   UploadStrategy `json:"strategy"`
	ArchivedAt time.Time      `json:"archived_at"`
}
