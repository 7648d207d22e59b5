package usecase_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"video-relay/domain/apperror"
	"video-relay/domain/model"
	"video-relay/infrastructure/staging"
	"video-relay/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func videoMsg(id int, date time.Time) model.ChatMediaMessage {
	return model.ChatMediaMessage{ID: id, Date: date, Kind: model.MediaKindVideo, FileName: "render.mp4", MimeType: "video/mp4", Size: 4}
}

func TestIsVideoMessage(t *testing.T) {
	tests := []struct {
		name     string
		msg      model.ChatMediaMessage
		expected bool
	}{
		{"inline video", model.ChatMediaMessage{Kind: model.MediaKindVideo}, true},
		{"document with video attribute", model.ChatMediaMessage{Kind: model.MediaKindDocument, HasVideo: true}, true},
		{"document with video mime", model.ChatMediaMessage{Kind: model.MediaKindDocument, MimeType: "video/quicktime"}, true},
		{"document with video extension", model.ChatMediaMessage{Kind: model.MediaKindDocument, FileName: "clip.MKV"}, true},
		{"pdf document", model.ChatMediaMessage{Kind: model.MediaKindDocument, FileName: "a.pdf", MimeType: "application/pdf"}, false},
		{"text message", model.ChatMediaMessage{Kind: model.MediaKindNone, FileName: "x.mp4"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, usecase.IsVideoMessage(tt.msg))
		})
	}
}

func TestSelectLatestVideo(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("newest by date wins", func(t *testing.T) {
		window := []model.ChatMediaMessage{videoMsg(10, base.Add(time.Minute)), videoMsg(11, base), videoMsg(9, base.Add(-time.Minute))}
		assert.Equal(t, 10, usecase.SelectLatestVideo(window, nil).ID)
	})

	t.Run("id breaks ties and missing dates", func(t *testing.T) {
		window := []model.ChatMediaMessage{videoMsg(3, time.Time{}), videoMsg(7, time.Time{}), videoMsg(5, time.Time{})}
		assert.Equal(t, 7, usecase.SelectLatestVideo(window, nil).ID)
	})

	t.Run("any missing date orders the whole window by id", func(t *testing.T) {
		a, b, c := videoMsg(1, base.Add(20*time.Minute)), videoMsg(2, time.Time{}), videoMsg(3, base.Add(10*time.Minute))
		orders := [][]model.ChatMediaMessage{{a, b, c}, {b, c, a}, {c, a, b}, {c, b, a}}
		for _, window := range orders {
			assert.Equal(t, 3, usecase.SelectLatestVideo(window, nil).ID)
		}
	})

	t.Run("equal dates fall back to id", func(t *testing.T) {
		window := []model.ChatMediaMessage{videoMsg(4, base), videoMsg(6, base), videoMsg(5, base)}
		assert.Equal(t, 6, usecase.SelectLatestVideo(window, nil).ID)
	})

	t.Run("only videos after the anchor", func(t *testing.T) {
		anchor := model.ChatMediaMessage{ID: 20, Date: base}
		window := []model.ChatMediaMessage{videoMsg(19, base.Add(-time.Minute)), {ID: 21, Date: base.Add(time.Minute)}}
		assert.Nil(t, usecase.SelectLatestVideo(window, &anchor))
	})
}

func TestLocateAndDownload_AnchorSelectsFollowingVideo(t *testing.T) {
	dir := t.TempDir()
	store := staging.NewStore(dir, 1024)
	locator := usecase.NewMediaLocator(store, time.Second, time.Second, 50)
	session := new(MockChatSession)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	anchorID := 100
	window := []model.ChatMediaMessage{
		{ID: 102, Date: base.Add(2 * time.Minute), Kind: model.MediaKindNone},
		videoMsg(101, base.Add(time.Minute)),
		{ID: 100, Date: base, Kind: model.MediaKindNone},
		videoMsg(95, base.Add(-time.Hour)),
	}
	session.On("GetMessages", mock.Anything, "@render_bot", []int{anchorID}).
		Return([]model.ChatMediaMessage{{ID: anchorID, Date: base}}, nil).Once()
	session.On("ListMessages", mock.Anything, "@render_bot", 50).Return(window, nil).Once()
	session.On("FetchMedia", mock.Anything, mock.MatchedBy(func(m model.ChatMediaMessage) bool { return m.ID == 101 })).
		Return([]byte("data"), nil).Once()

	staged, err := locator.LocateAndDownload(context.Background(), session, "@render_bot", &anchorID)
	require.NoError(t, err)
	assert.Equal(t, 101, staged.MessageID)
	assert.Equal(t, int64(4), staged.Size)
	assert.Equal(t, "render.mp4", staged.FileName)
	assert.Equal(t, ".mp4", staged.Path[len(staged.Path)-4:])
	assert.FileExists(t, staged.Path)
	session.AssertExpectations(t)
}

func TestLocateAndDownload_ExtensionFromMimeType(t *testing.T) {
	store := staging.NewStore(t.TempDir(), 1024)
	locator := usecase.NewMediaLocator(store, time.Second, time.Second, 50)
	session := new(MockChatSession)
	inline := model.ChatMediaMessage{ID: 8, Kind: model.MediaKindVideo, MimeType: "video/webm", Size: 4}
	session.On("ListMessages", mock.Anything, "chat", 50).Return([]model.ChatMediaMessage{inline}, nil).Once()
	session.On("FetchMedia", mock.Anything, mock.Anything).Return([]byte("webm"), nil).Once()

	staged, err := locator.LocateAndDownload(context.Background(), session, "chat", nil)
	require.NoError(t, err)
	assert.Equal(t, ".webm", filepath.Ext(staged.Path))
	assert.Equal(t, "video/webm", staged.MimeType)
}

func TestLocateAndDownload_Failures(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("anchor not found", func(t *testing.T) {
		session := new(MockChatSession)
		anchor := 7
		session.On("GetMessages", mock.Anything, "chat", []int{7}).Return([]model.ChatMediaMessage{}, nil)
		locator := usecase.NewMediaLocator(staging.NewStore(t.TempDir(), 10), time.Second, time.Second, 50)

		_, err := locator.LocateAndDownload(context.Background(), session, "chat", &anchor)
		assert.Equal(t, apperror.CodeAnchorNotFound, apperror.GetCode(err))
		session.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no qualifying video", func(t *testing.T) {
		session := new(MockChatSession)
		session.On("ListMessages", mock.Anything, "chat", 50).
			Return([]model.ChatMediaMessage{{ID: 1, Kind: model.MediaKindDocument, FileName: "a.pdf"}}, nil)
		locator := usecase.NewMediaLocator(staging.NewStore(t.TempDir(), 10), time.Second, time.Second, 50)

		_, err := locator.LocateAndDownload(context.Background(), session, "chat", nil)
		assert.Equal(t, apperror.CodeNoVideo, apperror.GetCode(err))
	})

	t.Run("listing timeout", func(t *testing.T) {
		session := new(MockChatSession)
		session.On("ListMessages", mock.Anything, "chat", 50).
			Run(func(args mock.Arguments) { <-args.Get(0).(context.Context).Done() }).
			Return(nil, context.DeadlineExceeded)
		locator := usecase.NewMediaLocator(staging.NewStore(t.TempDir(), 10), 20*time.Millisecond, time.Second, 50)

		_, err := locator.LocateAndDownload(context.Background(), session, "chat", nil)
		assert.Equal(t, apperror.CodeListTimeout, apperror.GetCode(err))
		assert.True(t, apperror.IsTransportTimeout(err))
	})

	t.Run("download timeout", func(t *testing.T) {
		session := new(MockChatSession)
		session.On("ListMessages", mock.Anything, "chat", 50).Return([]model.ChatMediaMessage{videoMsg(1, base)}, nil)
		session.On("FetchMedia", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { <-args.Get(0).(context.Context).Done() }).
			Return(nil, context.DeadlineExceeded)
		dir := t.TempDir()
		locator := usecase.NewMediaLocator(staging.NewStore(dir, 10), time.Second, 20*time.Millisecond, 50)

		_, err := locator.LocateAndDownload(context.Background(), session, "chat", nil)
		assert.Equal(t, apperror.CodeDownloadTimeout, apperror.GetCode(err))
		assert.True(t, apperror.IsTransportTimeout(err))
		assertNoStagedFiles(t, dir)
	})

	t.Run("empty payload removes file", func(t *testing.T) {
		session := new(MockChatSession)
		session.On("ListMessages", mock.Anything, "chat", 50).Return([]model.ChatMediaMessage{videoMsg(1, base)}, nil)
		session.On("FetchMedia", mock.Anything, mock.Anything).Return([]byte{}, nil)
		dir := t.TempDir()
		locator := usecase.NewMediaLocator(staging.NewStore(dir, 10), time.Second, time.Second, 50)

		_, err := locator.LocateAndDownload(context.Background(), session, "chat", nil)
		assert.Equal(t, apperror.CodeEmptyFile, apperror.GetCode(err))
		assertNoStagedFiles(t, dir)
	})

	t.Run("oversized payload removes file", func(t *testing.T) {
		session := new(MockChatSession)
		msg := videoMsg(1, base)
		msg.Size = 0 // size unknown until downloaded
		session.On("ListMessages", mock.Anything, "chat", 50).Return([]model.ChatMediaMessage{msg}, nil)
		session.On("FetchMedia", mock.Anything, mock.Anything).Return([]byte("0123456789ABC"), nil)
		dir := t.TempDir()
		locator := usecase.NewMediaLocator(staging.NewStore(dir, 10), time.Second, time.Second, 50)

		_, err := locator.LocateAndDownload(context.Background(), session, "chat", nil)
		assert.Equal(t, apperror.CodeFileTooLarge, apperror.GetCode(err))
		assertNoStagedFiles(t, dir)
	})

	t.Run("declared size over limit skips download", func(t *testing.T) {
		session := new(MockChatSession)
		msg := videoMsg(1, base)
		msg.Size = 11
		session.On("ListMessages", mock.Anything, "chat", 50).Return([]model.ChatMediaMessage{msg}, nil)
		locator := usecase.NewMediaLocator(staging.NewStore(t.TempDir(), 10), time.Second, time.Second, 50)

		_, err := locator.LocateAndDownload(context.Background(), session, "chat", nil)
		assert.Equal(t, apperror.CodeFileTooLarge, apperror.GetCode(err))
		session.AssertNotCalled(t, "FetchMedia", mock.Anything, mock.Anything)
	})
}

func assertNoStagedFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return
	}
	require.NoError(t, err)
	assert.Empty(t, entries)
}
