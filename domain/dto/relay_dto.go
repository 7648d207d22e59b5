package dto

import "time"

// ScheduleAutoDownloadRequest represents POST /api/relay/schedules
type ScheduleAutoDownloadRequest struct {
	ChannelID       string  `json:"channel_id" binding:"required"`
	ScheduleID      string  `json:"schedule_id" binding:"required"`
	AnchorMessageID *int    `json:"anchor_message_id,omitempty"`
	VideoTitle      string  `json:"video_title,omitempty"`
	DelayMinutes    float64 `json:"delay_minutes"`
}

// ScheduleAutoDownloadResponse is returned once the task is registered
type ScheduleAutoDownloadResponse struct {
	TaskID string    `json:"task_id"`
	DueAt  time.Time `json:"due_at"`
}

// RelayRunRequest represents POST /api/relay/run
type RelayRunRequest struct {
	ChannelID       string `json:"channel_id" binding:"required"`
	AnchorMessageID *int   `json:"anchor_message_id,omitempty"`
	VideoTitle      string `json:"video_title,omitempty"`
	ScheduleID      string `json:"schedule_id,omitempty"`
}

// ListResultsQuery represents GET /api/channels/:channelId/results
type ListResultsQuery struct {
	Limit int `form:"limit"`
}
