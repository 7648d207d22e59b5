package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"video-relay/domain/apperror"
	"video-relay/domain/model"
	"video-relay/domain/repository"
	"video-relay/infrastructure/logger"
	"video-relay/infrastructure/metrics"

	"github.com/google/uuid"
)

// IRelayUsecase is the surface exposed to HTTP handlers and other collaborators.
type IRelayUsecase interface {
	ScheduleAutoDownload(ctx context.Context, opts ScheduleAutoDownloadOptions) (model.ScheduledTask, error)
	CancelScheduledTask(taskID string) bool
	CancelTasksForSchedule(channelID, scheduleID string) int
	GetActiveTasks() []model.TaskSummary
	DownloadAndUploadVideoToDrive(ctx context.Context, req model.RelayRequest) model.DownloadAndUploadResult
	ListResults(ctx context.Context, userID, channelID string, limit int) ([]model.ResultRecord, error)
}

// ScheduleAutoDownloadOptions are the inputs of a delayed relay run.
type ScheduleAutoDownloadOptions struct {
	ChannelID       string
	ScheduleID      string
	UserID          string
	AnchorMessageID *int
	VideoTitle      string
	DelayMinutes    float64
}

// RelayConfig holds process-wide inputs of the relay.
type RelayConfig struct {
	SessionToken       string
	ChatID             string
	DefaultFolderID    string
	ServiceAccountJSON []byte
}

// RelayDeps are the collaborators of the relay. Credentials, Channels,
// Refresher and Publishers may be nil when the backing service is unavailable.
type RelayDeps struct {
	Transport   repository.IChatTransport
	Locator     *MediaLocator
	Staging     repository.IStaging
	Uploader    repository.IDriveUploader
	Refresher   repository.ITokenRefresher
	Credentials repository.IDriveCredential
	Channels    repository.IChannel
	Publishers  []repository.IAssetEventPublisher
}

type RelayUsecase struct {
	cfg         RelayConfig
	transport   repository.IChatTransport
	locator     *MediaLocator
	staging     repository.IStaging
	uploader    repository.IDriveUploader
	refresher   repository.ITokenRefresher
	credentials repository.IDriveCredential
	channels    repository.IChannel
	publishers  []repository.IAssetEventPublisher
	scheduler   *Scheduler
	broadcast   func(userID string, result model.DownloadAndUploadResult)
	now         func() time.Time
}

func NewRelayUsecase(cfg RelayConfig, deps RelayDeps) *RelayUsecase {
	u := &RelayUsecase{
		cfg:         cfg,
		transport:   deps.Transport,
		locator:     deps.Locator,
		staging:     deps.Staging,
		uploader:    deps.Uploader,
		refresher:   deps.Refresher,
		credentials: deps.Credentials,
		channels:    deps.Channels,
		publishers:  deps.Publishers,
		now:         time.Now,
	}
	if u.locator == nil {
		u.locator = NewMediaLocator(deps.Staging, 0, 0, 0)
	}
	u.scheduler = NewScheduler(u.DownloadAndUploadVideoToDrive).WithTaskCountObserver(metrics.SetScheduledTasks)
	return u
}

// WithBroadcaster registers a callback notified after every run.
func (u *RelayUsecase) WithBroadcaster(fn func(userID string, result model.DownloadAndUploadResult)) *RelayUsecase {
	u.broadcast = fn
	return u
}

// Scheduler exposes the scheduler lifecycle to the process owner.
func (u *RelayUsecase) Scheduler() *Scheduler {
	return u.scheduler
}

func (u *RelayUsecase) ScheduleAutoDownload(ctx context.Context, opts ScheduleAutoDownloadOptions) (model.ScheduledTask, error) {
	if opts.DelayMinutes < 0 {
		return model.ScheduledTask{}, fmt.Errorf("delay_minutes must not be negative")
	}
	future, err := u.scheduler.Schedule(ScheduleRequest{
		ChannelID:       opts.ChannelID,
		ScheduleID:      opts.ScheduleID,
		UserID:          opts.UserID,
		AnchorMessageID: opts.AnchorMessageID,
		VideoTitle:      opts.VideoTitle,
		Delay:           time.Duration(opts.DelayMinutes * float64(time.Minute)),
	})
	if err != nil {
		return model.ScheduledTask{}, err
	}
	return future.Task, nil
}

func (u *RelayUsecase) CancelScheduledTask(taskID string) bool {
	return u.scheduler.Cancel(taskID)
}

func (u *RelayUsecase) CancelTasksForSchedule(channelID, scheduleID string) int {
	return u.scheduler.CancelAll(channelID, scheduleID)
}

func (u *RelayUsecase) GetActiveTasks() []model.TaskSummary {
	return u.scheduler.List()
}

func (u *RelayUsecase) ListResults(ctx context.Context, userID, channelID string, limit int) ([]model.ResultRecord, error) {
	if u.channels == nil {
		return []model.ResultRecord{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return u.channels.ListResultRecords(ctx, userID, channelID, limit)
}

// DownloadAndUploadVideoToDrive moves the latest rendered video of the chat
// into the channel's Drive folder. It always returns a result, never panics,
// and never leaves a staged file behind.
func (u *RelayUsecase) DownloadAndUploadVideoToDrive(ctx context.Context, req model.RelayRequest) (result model.DownloadAndUploadResult) {
	started := u.now()
	log := logger.GetLogger().WithField("channel_id", req.ChannelID).WithField("user_id", req.UserID)

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Relay run panicked")
			result = failure(apperror.Unknown(fmt.Errorf("panic: %v", r), "relay", req.ChannelID, req.UserID))
		}
		u.finish(req, result, started)
	}()

	asset, staged, fileName, err := u.relay(ctx, req)
	if err != nil {
		log.WithField("error_code", apperror.GetCode(err)).WithField("error", err).Warn("Relay run failed")
		return failure(err)
	}

	u.persist(ctx, req, asset, staged, fileName)

	return model.DownloadAndUploadResult{
		Success:     true,
		FileID:      asset.ID,
		ViewLink:    asset.ViewLink,
		ContentLink: asset.ContentLink,
		Strategy:    asset.Strategy,
		FileName:    fileName,
		MessageID:   staged.MessageID,
	}
}

// relay runs the precheck, download, upload and cleanup steps.
func (u *RelayUsecase) relay(ctx context.Context, req model.RelayRequest) (*model.RemoteAsset, *model.StagedFile, string, error) {
	log := logger.GetLogger().WithField("channel_id", req.ChannelID).WithField("user_id", req.UserID)

	channel, folderID, err := u.precheck(ctx, req)
	if err != nil {
		return nil, nil, "", err
	}

	session, err := u.transport.Connect(ctx, u.cfg.SessionToken)
	if err != nil {
		if apperror.Is(err, apperror.CodeSessionRevoked) {
			log.WithField("error", err).Error("Chat session revoked, re-authentication required")
		}
		return nil, nil, "", apperror.Unknown(err, "connect", req.ChannelID, req.UserID)
	}
	defer func() {
		if err := session.Disconnect(); err != nil {
			log.WithField("error", err).Warn("Chat session disconnect failed")
		}
	}()

	staged, err := u.locator.LocateAndDownload(ctx, session, u.cfg.ChatID, req.AnchorMessageID)
	if err != nil {
		return nil, nil, "", apperror.Unknown(err, "download", req.ChannelID, req.UserID)
	}
	defer u.cleanup(staged)
	metrics.StagedBytes.Observe(float64(staged.Size))

	channelName := req.ChannelID
	if channel != nil && channel.Name != "" {
		channelName = channel.Name
	}
	fileName := ResolveUploadName(req.VideoTitle, channelName, filepath.Ext(staged.Path), u.now())

	plan := u.planCredentials(ctx, req.UserID)
	asset, err := u.uploadWithFallback(ctx, model.UploadRequest{
		LocalPath: staged.Path,
		FileName:  fileName,
		MimeType:  staged.MimeType,
		FolderID:  folderID,
	}, plan)
	if err != nil {
		return nil, nil, "", apperror.Unknown(err, "upload", req.ChannelID, req.UserID)
	}

	// Removed now so persistence never runs with a staged file on disk.
	u.cleanup(staged)
	return asset, staged, fileName, nil
}

func (u *RelayUsecase) precheck(ctx context.Context, req model.RelayRequest) (*model.Channel, string, error) {
	if req.ChannelID == "" || req.UserID == "" {
		return nil, "", apperror.New(apperror.CodeUnknown, "channel id and user id are required").
			WithUserMessage("channel id and user id are required")
	}
	if u.cfg.SessionToken == "" {
		return nil, "", apperror.New(apperror.CodeMissingSession, "chat transport session is not configured")
	}
	if u.cfg.ChatID == "" {
		return nil, "", apperror.New(apperror.CodeMissingChatID, "destination chat id is not configured")
	}

	var channel *model.Channel
	var lookupErr error
	if u.channels != nil {
		channel, lookupErr = u.channels.GetChannel(ctx, req.UserID, req.ChannelID)
		if lookupErr != nil {
			logger.GetLogger().WithField("channel_id", req.ChannelID).WithField("error", lookupErr).
				Warn("Channel lookup failed, falling back to default folder")
		}
	}

	folderID := u.cfg.DefaultFolderID
	if channel != nil && channel.DriveFolderID != "" {
		folderID = channel.DriveFolderID
	}
	if folderID == "" {
		if lookupErr != nil {
			return nil, "", apperror.Unknown(lookupErr, "precheck", req.ChannelID, req.UserID)
		}
		return nil, "", apperror.New(apperror.CodeMissingFolder, "no destination folder configured for this channel").
			WithContext("channel_id", req.ChannelID)
	}
	return channel, folderID, nil
}

func (u *RelayUsecase) cleanup(staged *model.StagedFile) {
	if staged == nil || u.staging == nil {
		return
	}
	_ = u.staging.Remove(staged.Path)
}

// persist records the archived asset. Failures are logged and never fail the run.
func (u *RelayUsecase) persist(ctx context.Context, req model.RelayRequest, asset *model.RemoteAsset, staged *model.StagedFile, fileName string) {
	log := logger.GetLogger().WithField("channel_id", req.ChannelID).WithField("user_id", req.UserID)
	now := u.now().UTC()

	if u.channels != nil {
		record := &model.ResultRecord{
			ID:         uuid.NewString(),
			UserID:     req.UserID,
			ChannelID:  req.ChannelID,
			ScheduleID: req.ScheduleID,
			MessageID:  staged.MessageID,
			FileName:   fileName,
			Size:       staged.Size,
			FileID:     asset.ID,
			ViewLink:   asset.ViewLink,
			Content:    asset.ContentLink,
			Strategy:   asset.Strategy,
			CreatedAt:  now,
		}
		if err := u.channels.AppendResultRecord(ctx, req.UserID, req.ChannelID, record); err != nil {
			log.WithField("error", err).Error("Failed to append result record")
		}
		last := &model.LastAsset{RemoteAsset: *asset, FileName: fileName, ArchivedAt: now}
		if err := u.channels.UpdateLastAsset(ctx, req.UserID, req.ChannelID, last); err != nil {
			log.WithField("error", err).Error("Failed to update channel last asset")
		}
	}

	event := &model.AssetArchivedEvent{
		Type:       "video_archived",
		UserID:     req.UserID,
		ChannelID:  req.ChannelID,
		ScheduleID: req.ScheduleID,
		FileID:     asset.ID,
		FileName:   fileName,
		ViewLink:   asset.ViewLink,
		Strategy:   asset.Strategy,
		ArchivedAt: now,
	}
	for _, p := range u.publishers {
		if p == nil {
			continue
		}
		if err := p.PublishAssetArchived(ctx, event); err != nil {
			log.WithField("error", err).Warn("Failed to publish archived event")
		}
	}
}

func (u *RelayUsecase) finish(req model.RelayRequest, result model.DownloadAndUploadResult, started time.Time) {
	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}
	metrics.RelayRuns.WithLabelValues(outcome, result.ErrorCode).Inc()
	metrics.RelayDuration.Observe(u.now().Sub(started).Seconds())
	if u.broadcast != nil {
		u.broadcast(req.UserID, result)
	}
}

func failure(err error) model.DownloadAndUploadResult {
	return model.DownloadAndUploadResult{
		Success:   false,
		ErrorCode: string(apperror.GetCode(err)),
		Error:     apperror.Display(err),
	}
}
