package telegram

import (
	"time"

	"video-relay/domain/model"

	"github.com/gotd/td/tg"
)

// messagesOf unwraps the message list of any history response variant.
func messagesOf(res tg.MessagesMessagesClass) []tg.MessageClass {
	switch r := res.(type) {
	case *tg.MessagesMessages:
		return r.Messages
	case *tg.MessagesMessagesSlice:
		return r.Messages
	case *tg.MessagesChannelMessages:
		return r.Messages
	default:
		return nil
	}
}

// toChatMessages keeps regular messages. Service and empty messages are dropped.
func toChatMessages(msgs []tg.MessageClass) []model.ChatMediaMessage {
	out := make([]model.ChatMediaMessage, 0, len(msgs))
	for _, m := range msgs {
		msg, ok := m.(*tg.Message)
		if !ok {
			continue
		}
		out = append(out, toChatMessage(msg))
	}
	return out
}

func toChatMessage(m *tg.Message) model.ChatMediaMessage {
	msg := model.ChatMediaMessage{
		ID:   m.ID,
		Date: time.Unix(int64(m.Date), 0).UTC(),
	}
	media, ok := m.Media.(*tg.MessageMediaDocument)
	if !ok || media == nil {
		return msg
	}
	doc, ok := media.Document.(*tg.Document)
	if !ok || doc == nil {
		return msg
	}

	msg.Kind = model.MediaKindDocument
	msg.MimeType = doc.MimeType
	msg.Size = doc.Size
	for _, attr := range doc.Attributes {
		switch a := attr.(type) {
		case *tg.DocumentAttributeVideo:
			msg.Kind = model.MediaKindVideo
			msg.HasVideo = true
		case *tg.DocumentAttributeFilename:
			msg.FileName = a.FileName
		}
	}
	msg.MediaRef = &tg.InputDocumentFileLocation{
		ID:            doc.ID,
		AccessHash:    doc.AccessHash,
		FileReference: doc.FileReference,
	}
	return msg
}
