package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"video-relay/domain/model"

	"github.com/gin-gonic/gin"
)

const heartbeatInterval = 25 * time.Second

// RelayResultEvent is the SSE payload sent when a relay run finishes.
type RelayResultEvent struct {
	Type        string               `json:"type"`
	Success     bool                 `json:"success"`
	FileID      string               `json:"file_id,omitempty"`
	ViewLink    string               `json:"view_link,omitempty"`
	Strategy    model.UploadStrategy `json:"strategy,omitempty"`
	FileName    string               `json:"file_name,omitempty"`
	MessageID   int                  `json:"message_id,omitempty"`
	ErrorCode   string               `json:"error_code,omitempty"`
	Error       string               `json:"error,omitempty"`
	CompletedAt time.Time            `json:"completed_at"`
}

// Hub fans relay results out to the SSE streams of the user who owns the run.
type Hub struct {
	mu    sync.RWMutex
	users map[string]map[chan RelayResultEvent]struct{}
}

func NewRelayHub() *Hub {
	return &Hub{users: make(map[string]map[chan RelayResultEvent]struct{})}
}

// Serve registers an SSE stream for the authenticated user (user_id set by middleware).
func (h *Hub) Serve(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.Status(http.StatusUnauthorized)
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering

	ch := make(chan RelayResultEvent, 8)
	h.addSubscriber(userID, ch)
	defer h.removeSubscriber(userID, ch)

	_, _ = c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-heartbeat.C:
			_, _ = c.Writer.Write([]byte(":ping\n\n"))
			c.Writer.Flush()
		case evt := <-ch:
			data, _ := json.Marshal(evt)
			_, _ = c.Writer.Write([]byte("event: relay_result\n"))
			_, _ = c.Writer.Write([]byte("data: "))
			_, _ = c.Writer.Write(data)
			_, _ = c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

func (h *Hub) addSubscriber(userID string, ch chan RelayResultEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[userID] == nil {
		h.users[userID] = make(map[chan RelayResultEvent]struct{})
	}
	h.users[userID][ch] = struct{}{}
}

func (h *Hub) removeSubscriber(userID string, ch chan RelayResultEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.users[userID]; subs != nil {
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.users, userID)
		}
	}
}

func (h *Hub) subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// BroadcastResult notifies every stream of userID. Slow subscribers miss events.
func (h *Hub) BroadcastResult(userID string, result model.DownloadAndUploadResult) {
	evt := RelayResultEvent{
		Type:        "relay_result",
		Success:     result.Success,
		FileID:      result.FileID,
		ViewLink:    result.ViewLink,
		Strategy:    result.Strategy,
		FileName:    result.FileName,
		MessageID:   result.MessageID,
		ErrorCode:   result.ErrorCode,
		Error:       result.Error,
		CompletedAt: time.Now().UTC(),
	}
	h.mu.RLock()
	for ch := range h.users[userID] {
		select { // non-blocking
		case ch <- evt:
		default:
		}
	}
	h.mu.RUnlock()
}
