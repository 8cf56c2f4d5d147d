package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/NasaVasa/pairalert/internal/domain"
	"github.com/NasaVasa/pairalert/internal/usecase"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type AlertService interface {
	SetAlert(ctx, monitorCtx context.Context, conv domain.Conversation, userID, query string) (domain.AlertKey, error)
	RemoveAlerts(ctx context.Context, userID, target string) (int, error)
	ListAlerts(ctx context.Context, userID string) ([]domain.AlertKey, error)
}

type Handlers struct {
	alerts AlertService
	router *Router
	logger *zap.Logger
}

func NewHandlers(alerts AlertService, router *Router, logger *zap.Logger) *Handlers {
	return &Handlers{alerts: alerts, router: router, logger: logger}
}

func (h *Handlers) HandleUpdate(ctx context.Context, api Sender, update tgbotapi.Update) {
	if update.Message == nil {
		return
	}
	if update.Message.From == nil {
		return
	}
	if update.Message.IsCommand() {
		h.handleCommand(ctx, api, update)
		return
	}
	h.router.Deliver(update.Message.Chat.ID, update.Message.From.ID, update.Message.Text)
}

func (h *Handlers) handleCommand(ctx context.Context, api Sender, update tgbotapi.Update) {
	command := update.Message.Command()
	args := update.Message.CommandArguments()
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID
	chat := NewChat(api, chatID, h.logger)

	h.logger.Info(
		"telegram command received",
		zap.Int64("chat_id", chatID),
		zap.Int64("telegram_user_id", userID),
		zap.String("username", update.Message.From.UserName),
		zap.String("command", command),
		zap.String("args", args),
	)

	switch command {
	case "start", "help":
		h.reply(ctx, chat, HelpText)
	case "alert":
		cmd, err := ParseAlertCommand(args)
		if err != nil {
			h.logger.Warn("alert invalid args", zap.Int64("telegram_user_id", userID), zap.String("args", args))
			if cmd.Kind == AlertRemove {
				h.reply(ctx, chat, h.alertErrorMessage(usecase.ErrMissingTarget))
				return
			}
			h.reply(ctx, chat, h.alertErrorMessage(usecase.ErrEmptyQuery))
			return
		}
		switch cmd.Kind {
		case AlertHelp:
			h.reply(ctx, chat, HelpText)
		case AlertList:
			h.handleList(ctx, chat, userID)
		case AlertRemove:
			h.handleRemove(ctx, chat, userID, cmd.Arg)
		case AlertSet:
			replies, release, err := h.router.Open(chatID, userID)
			if err != nil {
				h.reply(ctx, chat, h.alertErrorMessage(err))
				return
			}
			conv := &conversation{Chat: chat, mention: mention(update.Message.From), replies: replies}
			go func() {
				defer release()
				h.handleSet(ctx, conv, userID, cmd.Arg)
			}()
		}
	default:
		h.logger.Warn("unknown command", zap.Int64("telegram_user_id", userID), zap.String("command", command))
		h.reply(ctx, chat, "Unknown command.\n\n"+HelpText)
	}
}

func (h *Handlers) handleSet(ctx context.Context, conv *conversation, userID int64, query string) {
	key, err := h.alerts.SetAlert(ctx, ctx, conv, userKey(userID), query)
	if err != nil {
		h.logger.Warn("alert set failed", zap.Int64("telegram_user_id", userID), zap.String("query", query), zap.Error(err))
		if errors.Is(err, usecase.ErrDuplicateAlert) {
			h.reply(ctx, conv.Chat, fmt.Sprintf("You are already tracking an alert for `%s` with `%s %s %s`.", key.PairAddress, key.Metric, key.Direction, key.Threshold))
			return
		}
		if text := h.alertErrorMessage(err); text != "" {
			h.reply(ctx, conv.Chat, text)
		}
		return
	}
	h.logger.Info("alert set complete", zap.Int64("telegram_user_id", userID), zap.String("alert", key.String()))
}

func (h *Handlers) handleList(ctx context.Context, chat *Chat, userID int64) {
	keys, err := h.alerts.ListAlerts(ctx, userKey(userID))
	if err != nil {
		h.logger.Warn("alert list failed", zap.Int64("telegram_user_id", userID), zap.Error(err))
		h.reply(ctx, chat, h.alertErrorMessage(err))
		return
	}
	if len(keys) == 0 {
		h.reply(ctx, chat, "You have not set any alerts.")
		return
	}
	h.logger.Info("alert list complete", zap.Int64("telegram_user_id", userID), zap.Int("count", len(keys)))
	h.reply(ctx, chat, FormatAlerts(keys))
}

func (h *Handlers) handleRemove(ctx context.Context, chat *Chat, userID int64, target string) {
	removed, err := h.alerts.RemoveAlerts(ctx, userKey(userID), target)
	if err != nil {
		h.logger.Warn("alert remove failed", zap.Int64("telegram_user_id", userID), zap.String("target", target), zap.Error(err))
		h.reply(ctx, chat, h.alertErrorMessage(err))
		return
	}
	h.logger.Info("alert remove complete", zap.Int64("telegram_user_id", userID), zap.String("target", target), zap.Int("count", removed))
	if target == usecase.RemoveAllTarget {
		h.reply(ctx, chat, fmt.Sprintf("All alerts have been removed (%d).", removed))
		return
	}
	h.reply(ctx, chat, fmt.Sprintf("All alerts for pair `%s` have been removed (%d).", target, removed))
}

// alertErrorMessage returns "" for errors already reported during the dialogue.
func (h *Handlers) alertErrorMessage(err error) string {
	switch {
	case errors.Is(err, usecase.ErrSelectionAborted):
		return ""
	case errors.Is(err, usecase.ErrDuplicateAlert):
		return "You are already tracking this alert."
	case errors.Is(err, usecase.ErrEmptyQuery):
		return "You must specify a query. Use `/alert help` for more information."
	case errors.Is(err, usecase.ErrMissingTarget):
		return "Usage: `/alert remove <pair_address|all>`"
	case errors.Is(err, ErrConversationBusy):
		return "Finish or `cancel` your current alert setup first."
	case errors.Is(err, domain.ErrInvalidTimeout):
		return "Timeout must be between 1 and 60 minutes."
	case errors.Is(err, domain.ErrUnsupportedMetric):
		return "Unsupported metric. Currently, only `market_cap` is supported."
	case errors.Is(err, domain.ErrInvalidDirection):
		return "Direction must be either `above` or `below`."
	case errors.Is(err, domain.ErrInvalidThreshold):
		return "Threshold must be a positive number."
	case errors.Is(err, context.Canceled):
		return ""
	}

	h.logger.Warn("unhandled error", zap.Error(err))
	return "Something went wrong. Please try again."
}

func FormatAlerts(keys []domain.AlertKey) string {
	var builder strings.Builder
	builder.WriteString("Your alerts:\n")
	for _, key := range keys {
		builder.WriteString(fmt.Sprintf("- `%s`\n", key.String()))
	}
	return strings.TrimRight(builder.String(), "\n")
}

func (h *Handlers) reply(ctx context.Context, chat *Chat, text string) {
	_ = chat.Send(ctx, text)
}

func userKey(telegramUserID int64) string {
	return strconv.FormatInt(telegramUserID, 10)
}

func mention(user *tgbotapi.User) string {
	if user.UserName != "" {
		return "@" + user.UserName
	}
	return user.FirstName
}
