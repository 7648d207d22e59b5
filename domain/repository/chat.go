package repository

import (
	"context"

	"video-relay/domain/model"
)

// IChatTransport opens sessions against the chat transport.
type IChatTransport interface {
	Connect(ctx context.Context, sessionToken string) (IChatSession, error)
}

// IChatSession is a connected chat transport session.
type IChatSession interface {
	// ListMessages returns up to limit of the most recent messages of a chat.
	ListMessages(ctx context.Context, chatID string, limit int) ([]model.ChatMediaMessage, error)
	// GetMessages returns the messages with the given ids that still exist.
	GetMessages(ctx context.Context, chatID string, ids []int) ([]model.ChatMediaMessage, error)
	// FetchMedia downloads the whole media payload of a message.
	FetchMedia(ctx context.Context, msg model.ChatMediaMessage) ([]byte, error)
	Disconnect() error
}
