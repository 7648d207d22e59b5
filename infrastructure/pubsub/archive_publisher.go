package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"video-relay/domain/model"
	"video-relay/infrastructure/logger"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// NewPubSub creates the Pub/Sub client announcing archived videos.
func NewPubSub(ctx context.Context, projectID string, opts ...option.ClientOption) (*pubsub.Client, error) {
	if projectID == "" {
		return nil, errors.New("pubsub project id is not configured")
	}
	return pubsub.NewClient(ctx, projectID, opts...)
}

// ArchivePublisher publishes AssetArchivedEvent messages to a topic,
// creating the topic on first use.
type ArchivePublisher struct {
	client  *pubsub.Client
	topicID string

	mu    sync.Mutex
	topic *pubsub.Topic
}

func NewArchivePublisher(client *pubsub.Client, topicID string) *ArchivePublisher {
	return &ArchivePublisher{client: client, topicID: topicID}
}

func (p *ArchivePublisher) PublishAssetArchived(ctx context.Context, event *model.AssetArchivedEvent) error {
	if p.client == nil {
		return errors.New("pubsub client is not available")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	topic, err := p.ensureTopic(ctx)
	if err != nil {
		return err
	}

	msg := &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"type":       event.Type,
			"user_id":    event.UserID,
			"channel_id": event.ChannelID,
		},
	}
	serverID, err := topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return err
	}

	logger.GetLogger().WithField("server ID", serverID).WithField("file_id", event.FileID).Info("Archive event published")
	return nil
}

func (p *ArchivePublisher) ensureTopic(ctx context.Context) (*pubsub.Topic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.topic != nil {
		return p.topic, nil
	}

	topic := p.client.Topic(p.topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		logger.GetLogger().WithField("topic", p.topicID).Info("Topic doesn't exist - creating it")
		topic, err = p.client.CreateTopic(ctx, p.topicID)
		if err != nil {
			return nil, err
		}
	}
	p.topic = topic
	return topic, nil
}

// Stop flushes pending messages.
func (p *ArchivePublisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.topic != nil {
		p.topic.Stop()
	}
}
