package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NasaVasa/pairalert/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSender struct {
	mu             sync.Mutex
	sent           []tgbotapi.MessageConfig
	rejectMarkdown bool
	err            error
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := c.(tgbotapi.MessageConfig)
	if s.err != nil {
		return tgbotapi.Message{}, s.err
	}
	if s.rejectMarkdown && msg.ParseMode != "" {
		return tgbotapi.Message{}, errors.New("Bad Request: can't parse entities")
	}
	s.sent = append(s.sent, msg)
	return tgbotapi.Message{}, nil
}

func (s *fakeSender) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sent))
	for _, msg := range s.sent {
		out = append(out, msg.Text)
	}
	return out
}

func TestRouterDeliversOnlyToMatchingConversation(t *testing.T) {
	router := NewRouter(zap.NewNop())
	replies, release, err := router.Open(10, 7)
	require.NoError(t, err)
	defer release()

	assert.False(t, router.Deliver(10, 8, "other user"))
	assert.False(t, router.Deliver(11, 7, "other chat"))
	assert.True(t, router.Deliver(10, 7, "2"))

	select {
	case reply := <-replies:
		assert.Equal(t, "2", reply)
	default:
		t.Fatal("reply not delivered")
	}
}

func TestRouterLogsDroppedReplies(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	router := NewRouter(zap.New(core))
	_, release, err := router.Open(10, 7)
	require.NoError(t, err)
	defer release()

	for i := 0; i < replyBuffer; i++ {
		assert.True(t, router.Deliver(10, 7, "reply"))
	}
	assert.False(t, router.Deliver(10, 7, "one too many"))

	dropped := logs.FilterMessage("reply dropped, buffer full").All()
	require.Len(t, dropped, 1)
	assert.Equal(t, int64(7), dropped[0].ContextMap()["telegram_user_id"])
}

func TestRouterBusyAndRelease(t *testing.T) {
	router := NewRouter(zap.NewNop())
	_, release, err := router.Open(10, 7)
	require.NoError(t, err)

	_, _, err = router.Open(10, 7)
	assert.ErrorIs(t, err, ErrConversationBusy)

	_, releaseOther, err := router.Open(11, 7)
	require.NoError(t, err)
	releaseOther()

	release()
	assert.False(t, router.Deliver(10, 7, "late"))
	_, release, err = router.Open(10, 7)
	require.NoError(t, err)
	release()
}

func TestConversationAwaitReply(t *testing.T) {
	router := NewRouter(zap.NewNop())
	replies, release, err := router.Open(10, 7)
	require.NoError(t, err)
	defer release()
	conv := &conversation{Chat: NewChat(&fakeSender{}, 10, zap.NewNop()), mention: "@bob", replies: replies}

	router.Deliver(10, 7, "above 5")
	reply, err := conv.AwaitReply(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "above 5", reply)

	_, err = conv.AwaitReply(context.Background(), 10*time.Millisecond)
	assert.ErrorIs(t, err, domain.ErrReplyTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = conv.AwaitReply(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "@bob", conv.Mention())
}

func TestChatFallsBackToPlainText(t *testing.T) {
	sender := &fakeSender{rejectMarkdown: true}
	chat := NewChat(sender, 10, zap.NewNop())

	require.NoError(t, chat.Send(context.Background(), "market_cap is *odd"))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "", sender.sent[0].ParseMode)
	assert.Equal(t, int64(10), sender.sent[0].ChatID)
}

func TestChatSendError(t *testing.T) {
	sender := &fakeSender{err: errors.New("network")}
	chat := NewChat(sender, 10, zap.NewNop())
	assert.Error(t, chat.Send(context.Background(), "hello"))
}
