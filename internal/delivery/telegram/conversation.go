package telegram

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/NasaVasa/pairalert/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const replyBuffer = 4

var ErrConversationBusy = errors.New("conversation busy")

type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type convKey struct {
	chatID int64
	userID int64
}

// Router hands plain messages to the dialogue waiting on that chat and user.
// Messages nobody waits for are dropped.
type Router struct {
	mu      sync.Mutex
	waiting map[convKey]chan string
	logger  *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{waiting: make(map[convKey]chan string), logger: logger}
}

// Open reserves the (chat, user) slot until the returned release is called.
func (r *Router) Open(chatID, userID int64) (<-chan string, func(), error) {
	key := convKey{chatID: chatID, userID: userID}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.waiting[key]; busy {
		return nil, nil, ErrConversationBusy
	}
	replies := make(chan string, replyBuffer)
	r.waiting[key] = replies

	release := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.waiting[key] == replies {
			delete(r.waiting, key)
		}
	}
	return replies, release, nil
}

// Deliver reports whether a dialogue accepted the message.
func (r *Router) Deliver(chatID, userID int64, text string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	replies, ok := r.waiting[convKey{chatID: chatID, userID: userID}]
	if !ok {
		return false
	}
	select {
	case replies <- text:
		return true
	default:
		r.logger.Debug("reply dropped, buffer full",
			zap.Int64("chat_id", chatID),
			zap.Int64("telegram_user_id", userID),
			zap.Int("buffer", replyBuffer),
		)
		return false
	}
}

// Chat sends messages to one chat, as markdown first and as plain text if
// Telegram rejects the markup.
type Chat struct {
	sender Sender
	chatID int64
	logger *zap.Logger
}

func NewChat(sender Sender, chatID int64, logger *zap.Logger) *Chat {
	return &Chat{sender: sender, chatID: chatID, logger: logger}
}

func (c *Chat) Send(_ context.Context, text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	_, err := c.sender.Send(msg)
	if err == nil {
		return nil
	}
	c.logger.Debug("markdown send rejected, retrying as plain text", zap.Int64("chat_id", c.chatID), zap.Error(err))

	msg.ParseMode = ""
	if _, err := c.sender.Send(msg); err != nil {
		c.logger.Warn("failed to send message", zap.Int64("chat_id", c.chatID), zap.Error(err))
		return err
	}
	return nil
}

type conversation struct {
	*Chat
	mention string
	replies <-chan string
}

var _ domain.Conversation = (*conversation)(nil)

func (c *conversation) Mention() string {
	return c.mention
}

func (c *conversation) AwaitReply(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		return "", domain.ErrReplyTimeout
	case reply := <-c.replies:
		return reply, nil
	}
}
