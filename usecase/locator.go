package usecase

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"video-relay/domain/apperror"
	"video-relay/domain/model"
	"video-relay/domain/repository"
	"video-relay/infrastructure/logger"
)

const (
	DefaultListTimeout  = 30 * time.Second
	DefaultFetchTimeout = 5 * time.Minute
	DefaultHistoryLimit = 50
)

var videoExtensions = map[string]bool{
	".mp4": true, ".m4v": true, ".mov": true, ".mkv": true, ".webm": true,
	".avi": true, ".mpeg": true, ".mpg": true, ".3gp": true, ".ts": true,
}

var videoMimeExtensions = map[string]string{
	"video/mp4":        ".mp4",
	"video/x-m4v":      ".m4v",
	"video/quicktime":  ".mov",
	"video/x-matroska": ".mkv",
	"video/webm":       ".webm",
	"video/x-msvideo":  ".avi",
	"video/mpeg":       ".mpeg",
	"video/3gpp":       ".3gp",
	"video/mp2t":       ".ts",
}

// IsVideoMessage reports whether a message carries a video we can archive.
func IsVideoMessage(msg model.ChatMediaMessage) bool {
	if msg.Kind == model.MediaKindNone {
		return false
	}
	if msg.Kind == model.MediaKindVideo || msg.HasVideo {
		return true
	}
	if strings.HasPrefix(strings.ToLower(msg.MimeType), "video/") {
		return true
	}
	return videoExtensions[strings.ToLower(filepath.Ext(msg.FileName))]
}

// MediaLocator finds the newest rendered video in a chat and stages it locally.
type MediaLocator struct {
	staging      repository.IStaging
	listTimeout  time.Duration
	fetchTimeout time.Duration
	historyLimit int
}

func NewMediaLocator(staging repository.IStaging, listTimeout, fetchTimeout time.Duration, historyLimit int) *MediaLocator {
	if listTimeout <= 0 {
		listTimeout = DefaultListTimeout
	}
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &MediaLocator{
		staging:      staging,
		listTimeout:  listTimeout,
		fetchTimeout: fetchTimeout,
		historyLimit: historyLimit,
	}
}

// LocateAndDownload stages the most recent qualifying video of chatID.
// The anchor is the prompt message that triggered the render; only videos
// posted after it are considered.
func (l *MediaLocator) LocateAndDownload(ctx context.Context, session repository.IChatSession, chatID string, anchor *int) (*model.StagedFile, error) {
	log := logger.GetLogger().WithField("chat_id", chatID)

	var anchorMsg *model.ChatMediaMessage
	if anchor != nil {
		found, err := l.listWithTimeout(ctx, func(ctx context.Context) ([]model.ChatMediaMessage, error) {
			return session.GetMessages(ctx, chatID, []int{*anchor})
		})
		if err != nil {
			return nil, err
		}
		for i := range found {
			if found[i].ID == *anchor {
				anchorMsg = &found[i]
				break
			}
		}
		if anchorMsg == nil {
			return nil, apperror.Newf(apperror.CodeAnchorNotFound, "anchor message %d not found", *anchor).
				WithContext("anchor_message_id", *anchor)
		}
	}

	window, err := l.listWithTimeout(ctx, func(ctx context.Context) ([]model.ChatMediaMessage, error) {
		return session.ListMessages(ctx, chatID, l.historyLimit)
	})
	if err != nil {
		return nil, err
	}

	candidate := SelectLatestVideo(window, anchorMsg)
	if candidate == nil {
		e := apperror.Newf(apperror.CodeNoVideo, "no video found in the last %d messages", l.historyLimit)
		if anchor != nil {
			e = e.WithContext("anchor_message_id", *anchor)
		}
		return nil, e
	}
	log = log.WithField("message_id", candidate.ID)

	if limit := l.staging.MaxSize(); limit > 0 && candidate.Size > limit {
		return nil, apperror.Newf(apperror.CodeFileTooLarge, "video is %d bytes, limit is %d", candidate.Size, limit).
			WithContext("message_id", candidate.ID)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, l.fetchTimeout)
	defer cancel()
	data, err := session.FetchMedia(fetchCtx, *candidate)
	if err != nil {
		if isDeadline(fetchCtx, err) {
			return nil, apperror.Wrap(err, apperror.CodeDownloadTimeout,
				fmt.Sprintf("downloading message %d timed out after %s", candidate.ID, l.fetchTimeout))
		}
		return nil, err
	}

	staged, err := l.staging.Write(l.staging.NewName(stagingName(*candidate)), data)
	if err != nil {
		return nil, err
	}
	staged.MessageID = candidate.ID
	staged.FileName = candidate.FileName
	staged.MimeType = candidate.MimeType
	if staged.MimeType == "" {
		staged.MimeType = "video/mp4"
	}
	log.WithField("size", staged.Size).WithField("path", staged.Path).Info("Video staged")
	return staged, nil
}

func (l *MediaLocator) listWithTimeout(ctx context.Context, fn func(ctx context.Context) ([]model.ChatMediaMessage, error)) ([]model.ChatMediaMessage, error) {
	listCtx, cancel := context.WithTimeout(ctx, l.listTimeout)
	defer cancel()
	msgs, err := fn(listCtx)
	if err != nil {
		if isDeadline(listCtx, err) {
			return nil, apperror.Wrap(err, apperror.CodeListTimeout,
				fmt.Sprintf("listing messages timed out after %s", l.listTimeout))
		}
		return nil, err
	}
	return msgs, nil
}

// stagingName keeps the original file name, or derives an extension from
// the MIME type for inline videos that carry no name.
func stagingName(msg model.ChatMediaMessage) string {
	if filepath.Ext(msg.FileName) != "" {
		return msg.FileName
	}
	mimeType := strings.ToLower(strings.TrimSpace(strings.Split(msg.MimeType, ";")[0]))
	ext, ok := videoMimeExtensions[mimeType]
	if !ok && mimeType != "" {
		if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	if ext == "" {
		return msg.FileName
	}
	base := msg.FileName
	if base == "" {
		base = "video"
	}
	return base + ext
}

func isDeadline(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// SelectLatestVideo returns the newest qualifying video posted after anchor.
// Candidates are ordered by date with id as tiebreak. If any candidate has
// no date, all of them are ordered by id alone.
func SelectLatestVideo(window []model.ChatMediaMessage, anchor *model.ChatMediaMessage) *model.ChatMediaMessage {
	var videos []model.ChatMediaMessage
	for _, msg := range window {
		if !IsVideoMessage(msg) {
			continue
		}
		if anchor != nil && msg.ID <= anchor.ID {
			continue
		}
		videos = append(videos, msg)
	}
	if len(videos) == 0 {
		return nil
	}
	byID := false
	for _, v := range videos {
		if v.Date.IsZero() {
			byID = true
			break
		}
	}
	sort.Slice(videos, func(i, j int) bool {
		a, b := videos[i], videos[j]
		if !byID && !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.ID > b.ID
	})
	return &videos[0]
}
