package usecase_test

import (
	"context"
	"time"

	"video-relay/domain/model"
	"video-relay/domain/repository"

	"github.com/stretchr/testify/mock"
)

type MockChatTransport struct {
	mock.Mock
}

func (m *MockChatTransport) Connect(ctx context.Context, sessionToken string) (repository.IChatSession, error) {
	args := m.Called(ctx, sessionToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(repository.IChatSession), args.Error(1)
}

type MockChatSession struct {
	mock.Mock
}

func (m *MockChatSession) ListMessages(ctx context.Context, chatID string, limit int) ([]model.ChatMediaMessage, error) {
	args := m.Called(ctx, chatID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ChatMediaMessage), args.Error(1)
}

func (m *MockChatSession) GetMessages(ctx context.Context, chatID string, ids []int) ([]model.ChatMediaMessage, error) {
	args := m.Called(ctx, chatID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ChatMediaMessage), args.Error(1)
}

func (m *MockChatSession) FetchMedia(ctx context.Context, msg model.ChatMediaMessage) ([]byte, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockChatSession) Disconnect() error {
	args := m.Called()
	return args.Error(0)
}

type MockDriveUploader struct {
	mock.Mock
}

func (m *MockDriveUploader) Upload(ctx context.Context, req model.UploadRequest, cred model.UploadCredential) (*model.RemoteAsset, error) {
	args := m.Called(ctx, req, cred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RemoteAsset), args.Error(1)
}

type MockTokenRefresher struct {
	mock.Mock
}

func (m *MockTokenRefresher) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

type MockDriveCredential struct {
	mock.Mock
}

func (m *MockDriveCredential) GetUserCredentials(ctx context.Context, userID string) (*model.DriveCredential, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DriveCredential), args.Error(1)
}

func (m *MockDriveCredential) UpdateUserAccessToken(ctx context.Context, userID, accessToken string, expiry time.Time) error {
	args := m.Called(ctx, userID, accessToken, expiry)
	return args.Error(0)
}

func (m *MockDriveCredential) UpsertUserCredentials(ctx context.Context, cred *model.DriveCredential) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}

type MockChannelRepository struct {
	mock.Mock
}

func (m *MockChannelRepository) GetChannel(ctx context.Context, userID, channelID string) (*model.Channel, error) {
	args := m.Called(ctx, userID, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Channel), args.Error(1)
}

func (m *MockChannelRepository) AppendResultRecord(ctx context.Context, userID, channelID string, record *model.ResultRecord) error {
	args := m.Called(ctx, userID, channelID, record)
	return args.Error(0)
}

func (m *MockChannelRepository) UpdateLastAsset(ctx context.Context, userID, channelID string, asset *model.LastAsset) error {
	args := m.Called(ctx, userID, channelID, asset)
	return args.Error(0)
}

func (m *MockChannelRepository) ListResultRecords(ctx context.Context, userID, channelID string, limit int) ([]model.ResultRecord, error) {
	args := m.Called(ctx, userID, channelID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ResultRecord), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishAssetArchived(ctx context.Context, event *model.AssetArchivedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
