package persistence

import (
	"context"
	"errors"
	"time"

	"video-relay/domain/model"
	"video-relay/infrastructure/logger"
	"video-relay/infrastructure/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	channelsCollection = "channels"
	resultsCollection  = "relay_results"
)

// ChannelRepository reads channels and records archived assets in MongoDB.
type ChannelRepository struct {
	channels *mongo.Collection
	results  *mongo.Collection
}

func NewChannelRepository(client *mongo.Client, dbName string) *ChannelRepository {
	db := client.Database(dbName)
	return &ChannelRepository{
		channels: db.Collection(channelsCollection),
		results:  db.Collection(resultsCollection),
	}
}

func (r *ChannelRepository) GetChannel(ctx context.Context, userID, channelID string) (*model.Channel, error) {
	var ch model.Channel
	err := r.channels.FindOne(ctx, channelFilter(userID, channelID)).Decode(&ch)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &ch, nil
}

func (r *ChannelRepository) AppendResultRecord(ctx context.Context, userID, channelID string, record *model.ResultRecord) error {
	stampRecord(record, userID, channelID, utils.GetCurrentTime())
	_, err := r.results.InsertOne(ctx, record)
	return err
}

func (r *ChannelRepository) UpdateLastAsset(ctx context.Context, userID, channelID string, asset *model.LastAsset) error {
	res, err := r.channels.UpdateOne(ctx, channelFilter(userID, channelID), lastAssetUpdate(asset, utils.GetCurrentTime()))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		logger.GetLogger().WithField("channel_id", channelID).WithField("user_id", userID).
			Warn("Channel document not found while updating last asset")
	}
	return nil
}

// ListResultRecords returns the newest records first.
func (r *ChannelRepository) ListResultRecords(ctx context.Context, userID, channelID string, limit int) ([]model.ResultRecord, error) {
	opts := options.Find().
		SetSort(resultsSort()).
		SetLimit(int64(limit))
	cursor, err := r.results.Find(ctx, resultsFilter(userID, channelID), opts)
	if err != nil {
		return nil, err
	}
	defer func(cursor *mongo.Cursor, ctx context.Context) {
		if err := cursor.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing cursor")
		}
	}(cursor, ctx)

	records := []model.ResultRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Channels are owned per user; a channel id alone never matches.
func channelFilter(userID, channelID string) bson.M {
	return bson.M{"_id": channelID, "user_id": userID}
}

func resultsFilter(userID, channelID string) bson.M {
	return bson.M{"user_id": userID, "channel_id": channelID}
}

func resultsSort() bson.D {
	return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
}

func lastAssetUpdate(asset *model.LastAsset, now time.Time) bson.M {
	return bson.M{"$set": bson.M{"last_asset": asset, "updated_at": now}}
}

func stampRecord(record *model.ResultRecord, userID, channelID string, now time.Time) {
	record.UserID = userID
	record.ChannelID = channelID
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
}
