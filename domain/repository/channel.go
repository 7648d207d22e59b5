package repository

import (
	"context"

	"video-relay/domain/model"
)

// IChannel is the document store holding channels and their archive log.
type IChannel interface {
	// GetChannel returns nil, nil when the channel does not exist.
	GetChannel(ctx context.Context, userID, channelID string) (*model.Channel, error)
	AppendResultRecord(ctx context.Context, userID, channelID string, record *model.ResultRecord) error
	UpdateLastAsset(ctx context.Context, userID, channelID string, asset *model.LastAsset) error
	ListResultRecords(ctx context.Context, userID, channelID string, limit int) ([]model.ResultRecord, error)
}

// IAssetEventPublisher announces archived assets to downstream consumers.
type IAssetEventPublisher interface {
	PublishAssetArchived(ctx context.Context, event *model.AssetArchivedEvent) error
}
