package model

import (
	"time"
)

// MediaKind describes how a chat message carries its video payload.
type MediaKind string

const (
	MediaKindNone     MediaKind = ""
	MediaKindVideo    MediaKind = "video"    // inline video attachment
	MediaKindDocument MediaKind = "document" // generic document
)

// ChatMediaMessage is a chat transport message as seen by the relay.
type ChatMediaMessage struct {
	ID       int       `json:"id"`
	Date     time.Time `json:"date"`
	Kind     MediaKind `json:"kind"`
	FileName string    `json:"file_name,omitempty"`
	MimeType string    `json:"mime_type,omitempty"`
	Size     int64     `json:"size"`
	HasVideo bool      `json:"has_video_attribute"`
	MediaRef any       `json:"-"` // transport specific handle used by FetchMedia
}

// StagedFile is a downloaded payload sitting in the staging directory.
type StagedFile struct {
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	MessageID int    `json:"message_id"`
}

// ScheduledTask is a pending delayed relay run.
type ScheduledTask struct {
	ID              string    `json:"id"`
	ChannelID       string    `json:"channel_id"`
	ScheduleID      string    `json:"schedule_id"`
	UserID          string    `json:"user_id"`
	AnchorMessageID *int      `json:"anchor_message_id,omitempty"`
	VideoTitle      string    `json:"video_title,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	DueAt           time.Time `json:"due_at"`
}

// TaskSummary is the observable view of a live task.
type TaskSummary struct {
	ID         string    `json:"id"`
	ChannelID  string    `json:"channel_id"`
	ScheduleID string    `json:"schedule_id"`
	UserID     string    `json:"user_id"`
	DueAt      time.Time `json:"due_at"`
}

// RelayRequest are the inputs of one download-and-upload run.
type RelayRequest struct {
	ChannelID       string `json:"channel_id"`
	UserID          string `json:"user_id"`
	AnchorMessageID *int   `json:"anchor_message_id,omitempty"`
	VideoTitle      string `json:"video_title,omitempty"`
	ScheduleID      string `json:"schedule_id,omitempty"`
}

// DownloadAndUploadResult is the outcome of a relay run.
type DownloadAndUploadResult struct {
	Success     bool           `json:"success"`
	FileID      string         `json:"file_id,omitempty"`
	ViewLink    string         `json:"view_link,omitempty"`
	ContentLink string         `json:"content_link,omitempty"`
	Strategy    UploadStrategy `json:"strategy,omitempty"`
	FileName    string         `json:"file_name,omitempty"`
	MessageID   int            `json:"message_id,omitempty"`
	ErrorCode   string         `json:"error_code,omitempty"`
	Error       string         `json:"error,omitempty"`
}
