package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"video-relay/domain/apperror"
	"video-relay/domain/model"
	"video-relay/domain/repository"
	"video-relay/infrastructure/logger"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
)

var (
	errNotAuthorized = errors.New("session is not authorized")
	errMediaTooLarge = errors.New("media exceeds the size limit")
)

// DefaultConnectTimeout bounds session setup when no timeout is configured.
const DefaultConnectTimeout = 30 * time.Second

// revokedErrors are RPC error types after which the session can never be reused.
var revokedErrors = []string{
	"AUTH_KEY_UNREGISTERED",
	"AUTH_KEY_INVALID",
	"SESSION_REVOKED",
	"SESSION_EXPIRED",
	"USER_DEACTIVATED",
}

// Transport opens MTProto sessions from exported string sessions.
type Transport struct {
	appID          int
	appHash        string
	connectTimeout time.Duration
	maxMediaBytes  int64
}

// NewTransport builds a transport. maxMediaBytes caps a single download; zero disables the cap.
func NewTransport(appID int, appHash string, connectTimeout time.Duration, maxMediaBytes int64) *Transport {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	return &Transport{appID: appID, appHash: appHash, connectTimeout: connectTimeout, maxMediaBytes: maxMediaBytes}
}

func (t *Transport) Connect(ctx context.Context, sessionToken string) (repository.IChatSession, error) {
	if t.appID == 0 || t.appHash == "" {
		return nil, errors.New("telegram app id and hash are not configured")
	}
	ctx, cancelWait := context.WithTimeout(ctx, t.connectTimeout)
	defer cancelWait()
	data, err := DecodeSession(sessionToken)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeMissingSession, "session string could not be decoded")
	}
	storage := new(session.StorageMemory)
	if err := (&session.Loader{Storage: storage}).Save(ctx, data); err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	client := telegram.NewClient(t.appID, t.appHash, telegram.Options{
		SessionStorage: storage,
		NoUpdates:      true,
	})

	runCtx, cancel := context.WithCancel(context.Background())
	ready := make(chan error, 1)
	done := make(chan error, 1)
	go func() {
		done <- client.Run(runCtx, func(ctx context.Context) error {
			status, err := client.Auth().Status(ctx)
			if err != nil {
				ready <- err
				return err
			}
			if !status.Authorized {
				ready <- errNotAuthorized
				return errNotAuthorized
			}
			ready <- nil
			<-ctx.Done()
			return ctx.Err()
		})
	}()

	select {
	case err := <-ready:
		if err != nil {
			cancel()
			<-done
			return nil, classify(err)
		}
	case err := <-done:
		cancel()
		return nil, classify(err)
	case <-ctx.Done():
		cancel()
		<-done
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperror.Wrap(ctx.Err(), apperror.CodeConnectTimeout,
				fmt.Sprintf("telegram session did not connect within %s", t.connectTimeout))
		}
		return nil, ctx.Err()
	}

	logger.GetLogger().WithField("dc", data.DC).Info("Telegram session connected")
	return newSession(client.API(), cancel, done, t.maxMediaBytes), nil
}

// Session is a running MTProto client bound to one string session.
type Session struct {
	api      *tg.Client
	cancel   context.CancelFunc
	done     chan error
	maxBytes int64

	mu    sync.Mutex
	peers map[string]tg.InputPeerClass

	closeOnce sync.Once
	closeErr  error
}

func newSession(api *tg.Client, cancel context.CancelFunc, done chan error, maxBytes int64) *Session {
	return &Session{
		api:      api,
		cancel:   cancel,
		done:     done,
		maxBytes: maxBytes,
		peers:    make(map[string]tg.InputPeerClass),
	}
}

func (s *Session) ListMessages(ctx context.Context, chatID string, limit int) ([]model.ChatMediaMessage, error) {
	peer, err := s.resolve(ctx, chatID)
	if err != nil {
		return nil, err
	}
	res, err := s.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{Peer: peer, Limit: limit})
	if err != nil {
		return nil, classify(err)
	}
	return toChatMessages(messagesOf(res)), nil
}

func (s *Session) GetMessages(ctx context.Context, chatID string, ids []int) ([]model.ChatMediaMessage, error) {
	peer, err := s.resolve(ctx, chatID)
	if err != nil {
		return nil, err
	}
	input := make([]tg.InputMessageClass, 0, len(ids))
	for _, id := range ids {
		input = append(input, &tg.InputMessageID{ID: id})
	}

	var res tg.MessagesMessagesClass
	if ch, ok := peer.(*tg.InputPeerChannel); ok {
		res, err = s.api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
			Channel: &tg.InputChannel{ChannelID: ch.ChannelID, AccessHash: ch.AccessHash},
			ID:      input,
		})
	} else {
		res, err = s.api.MessagesGetMessages(ctx, input)
	}
	if err != nil {
		return nil, classify(err)
	}
	return toChatMessages(messagesOf(res)), nil
}

func (s *Session) FetchMedia(ctx context.Context, msg model.ChatMediaMessage) ([]byte, error) {
	loc, ok := msg.MediaRef.(*tg.InputDocumentFileLocation)
	if !ok || loc == nil {
		return nil, apperror.Newf(apperror.CodeNoVideo, "message %d has no downloadable document", msg.ID)
	}
	buf := &cappedBuffer{max: s.maxBytes}
	if _, err := downloader.NewDownloader().Download(s.api, loc).Stream(ctx, buf); err != nil {
		if errors.Is(err, errMediaTooLarge) {
			return nil, apperror.Wrap(err, apperror.CodeFileTooLarge,
				fmt.Sprintf("message %d is larger than %d bytes", msg.ID, s.maxBytes)).WithContext("message_id", msg.ID)
		}
		return nil, classify(err)
	}
	return buf.Bytes(), nil
}

// cappedBuffer rejects writes that would grow it past max bytes.
type cappedBuffer struct {
	bytes.Buffer
	max int64
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if b.max > 0 && int64(b.Len())+int64(len(p)) > b.max {
		return 0, errMediaTooLarge
	}
	return b.Buffer.Write(p)
}

// Disconnect stops the client and waits for it to exit. Safe to call twice.
func (s *Session) Disconnect() error {
	s.closeOnce.Do(func() {
		s.cancel()
		if err := <-s.done; err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = err
		}
	})
	return s.closeErr
}

func (s *Session) resolve(ctx context.Context, chatID string) (tg.InputPeerClass, error) {
	switch strings.ToLower(chatID) {
	case "me", "self":
		return &tg.InputPeerSelf{}, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if peer, ok := s.peers[chatID]; ok {
		return peer, nil
	}
	peer, err := message.NewSender(s.api).Resolve(chatID).AsInputPeer(ctx)
	if err != nil {
		return nil, classify(err)
	}
	s.peers[chatID] = peer
	return peer, nil
}

// classify marks terminal session failures. Context errors pass through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errNotAuthorized) || tgerr.Is(err, revokedErrors...) {
		return apperror.Wrap(err, apperror.CodeSessionRevoked, "telegram session is no longer authorized")
	}
	return err
}
