package servicebus

import (
	"context"
	"encoding/json"
	"errors"

	"video-relay/domain/model"
	"video-relay/infrastructure/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

// NewServiceBus connects to a Service Bus namespace with the default Azure credential chain.
func NewServiceBus(ctx context.Context, namespace string) (*azservicebus.Client, error) {
	if namespace == "" {
		return nil, errors.New("service bus namespace is not configured")
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	logger.GetLogger().WithField("namespace", namespace).Info("Connecting to Azure Service Bus")
	return azservicebus.NewClient(namespace, cred, nil)
}

// ArchiveSender queues AssetArchivedEvent messages for downstream workers.
type ArchiveSender struct {
	client *azservicebus.Client
	queue  string
}

func NewArchiveSender(client *azservicebus.Client, queue string) *ArchiveSender {
	return &ArchiveSender{client: client, queue: queue}
}

func (s *ArchiveSender) PublishAssetArchived(ctx context.Context, event *model.AssetArchivedEvent) error {
	if s.client == nil {
		return errors.New("service bus client is not available")
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	sender, err := s.client.NewSender(s.queue, nil)
	if err != nil {
		logger.GetLogger().
			WithField("error", err).
			Error("Error while making new sender service bus.")
		return err
	}
	defer func(sender *azservicebus.Sender, ctx context.Context) {
		if err := sender.Close(ctx); err != nil {
			logger.GetLogger().
				WithField("error", err).
				Error("Error while closing sender.")
		}
	}(sender, context.Background())

	err = sender.SendMessage(ctx, newArchiveMessage(event, body), nil)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return err
	}
	return nil
}

func newArchiveMessage(event *model.AssetArchivedEvent, body []byte) *azservicebus.Message {
	contentType := "application/json"
	subject := event.Type
	messageID := event.FileID
	return &azservicebus.Message{
		Body:        body,
		ContentType: &contentType,
		Subject:     &subject,
		MessageID:   &messageID,
		ApplicationProperties: map[string]any{
			"user_id":    event.UserID,
			"channel_id": event.ChannelID,
		},
	}
}
