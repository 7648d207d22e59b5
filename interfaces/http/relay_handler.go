package http

import (
	"errors"
	"net/http"
	"strconv"

	"video-relay/domain/apperror"
	"video-relay/domain/dto"
	"video-relay/domain/model"
	"video-relay/usecase"

	"github.com/gin-gonic/gin"
)

// IRelayHandler defines the relay HTTP handlers
type IRelayHandler interface {
	ScheduleAutoDownload(ctx *gin.Context)
	CancelScheduledTask(ctx *gin.Context)
	CancelTasksForSchedule(ctx *gin.Context)
	GetActiveTasks(ctx *gin.Context)
	RunNow(ctx *gin.Context)
	ListResults(ctx *gin.Context)
}

type RelayHandler struct {
	relayUsecase usecase.IRelayUsecase
}

func NewRelayHandler(relayUsecase usecase.IRelayUsecase) IRelayHandler {
	return &RelayHandler{relayUsecase: relayUsecase}
}

// ScheduleAutoDownload handles POST /api/relay/schedules
func (h *RelayHandler) ScheduleAutoDownload(ctx *gin.Context) {
	var req dto.ScheduleAutoDownloadRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}

	task, err := h.relayUsecase.ScheduleAutoDownload(ctx.Request.Context(), usecase.ScheduleAutoDownloadOptions{
		ChannelID:       req.ChannelID,
		ScheduleID:      req.ScheduleID,
		UserID:          ctx.GetString("user_id"),
		AnchorMessageID: req.AnchorMessageID,
		VideoTitle:      req.VideoTitle,
		DelayMinutes:    req.DelayMinutes,
	})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, usecase.ErrSchedulerNotRunning) {
			status = http.StatusServiceUnavailable
		}
		ctx.JSON(status, gin.H{"error": "Failed to schedule relay", "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusCreated, dto.ScheduleAutoDownloadResponse{TaskID: task.ID, DueAt: task.DueAt})
}

// CancelScheduledTask handles DELETE /api/relay/tasks/:taskId
func (h *RelayHandler) CancelScheduledTask(ctx *gin.Context) {
	taskID := ctx.Param("taskId")
	if !h.relayUsecase.CancelScheduledTask(taskID) {
		ctx.JSON(http.StatusNotFound, gin.H{"cancelled": false, "task_id": taskID})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"cancelled": true, "task_id": taskID})
}

// CancelTasksForSchedule handles DELETE /api/relay/schedules/:channelId/:scheduleId
func (h *RelayHandler) CancelTasksForSchedule(ctx *gin.Context) {
	n := h.relayUsecase.CancelTasksForSchedule(ctx.Param("channelId"), ctx.Param("scheduleId"))
	ctx.JSON(http.StatusOK, gin.H{"cancelled": n})
}

// GetActiveTasks handles GET /api/relay/tasks
func (h *RelayHandler) GetActiveTasks(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": h.relayUsecase.GetActiveTasks()})
}

// RunNow handles POST /api/relay/run. The result body is returned for failures too.
func (h *RelayHandler) RunNow(ctx *gin.Context) {
	var req dto.RelayRunRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}

	result := h.relayUsecase.DownloadAndUploadVideoToDrive(ctx.Request.Context(), model.RelayRequest{
		ChannelID:       req.ChannelID,
		UserID:          ctx.GetString("user_id"),
		AnchorMessageID: req.AnchorMessageID,
		VideoTitle:      req.VideoTitle,
		ScheduleID:      req.ScheduleID,
	})
	ctx.JSON(statusFor(result), result)
}

// ListResults handles GET /api/channels/:channelId/results
func (h *RelayHandler) ListResults(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	records, err := h.relayUsecase.ListResults(ctx.Request.Context(), ctx.GetString("user_id"), ctx.Param("channelId"), limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list results", "message": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": records})
}

func statusFor(result model.DownloadAndUploadResult) int {
	if result.Success {
		return http.StatusOK
	}
	code := apperror.Code(result.ErrorCode)
	switch {
	case code == apperror.CodeNoVideo || code == apperror.CodeAnchorNotFound:
		return http.StatusNotFound
	case apperror.IsTransportTimeout(apperror.New(code, "")):
		return http.StatusGatewayTimeout
	}
	switch apperror.New(code, "").Category() {
	case apperror.CategoryConfiguration:
		return http.StatusBadRequest
	case apperror.CategoryTransport, apperror.CategoryStaging, apperror.CategoryStorage:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
