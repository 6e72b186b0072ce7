package telegram

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	appErr "github.com/samims/hwbot/internal/errors"
	"github.com/samims/hwbot/pkg/tracing"
)

// MessageSender is the subset of *tgbotapi.BotAPI the notifier needs.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NewBot builds a Bot API client without contacting Telegram. Use
// VerifyBot to check the token once the process is up.
func NewBot(token, apiEndpoint string, client *http.Client) *tgbotapi.BotAPI {
	bot := &tgbotapi.BotAPI{
		Token:  token,
		Client: client,
		Buffer: 100,
	}
	bot.SetAPIEndpoint(apiEndpoint)
	return bot
}

// VerifyBot calls getMe and logs the bot identity. Failures are only
// logged: an unreachable Telegram at startup is a delivery problem, not a
// configuration one.
func VerifyBot(bot *tgbotapi.BotAPI, logger *slog.Logger) {
	me, err := bot.GetMe()
	if err != nil {
		logger.Warn("Could not verify Telegram bot", slog.Any("error", err))
		return
	}
	bot.Self = me
	logger.Info("Telegram bot authorized", slog.String("username", me.UserName))
}

// Notifier delivers plain text messages to one fixed chat.
type Notifier struct {
	sender  MessageSender
	chatID  int64
	channel string
	logger  *slog.Logger
	tracer  *tracing.Tracer
}

// NewNotifier targets chatID, or the public channel username when channel
// is non-empty.
func NewNotifier(sender MessageSender, chatID int64, channel string, logger *slog.Logger, tracer *tracing.Tracer) *Notifier {
	return &Notifier{
		sender:  sender,
		chatID:  chatID,
		channel: channel,
		logger:  logger.With("component", "telegram"),
		tracer:  tracer,
	}
}

// Notify sends text to the configured chat. Every failure is returned as
// ErrSendFailed with the cause attached.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	ctx, span := n.tracer.StartClientSpan(ctx, "telegram.send")
	defer span.End()
	n.tracer.AddMessagingAttributes(span, "telegram", n.destination())

	n.logger.DebugContext(ctx, "Sending message to chat", slog.String("chat", n.destination()))

	var msg tgbotapi.MessageConfig
	if n.channel != "" {
		msg = tgbotapi.NewMessageToChannel(n.channel, text)
	} else {
		msg = tgbotapi.NewMessage(n.chatID, text)
	}

	if _, err := n.sender.Send(msg); err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) {
			n.logger.ErrorContext(ctx, "Telegram rejected message",
				slog.Int("code", apiErr.Code),
				slog.String("description", apiErr.Message))
			err = appErr.NewSendFailed("telegram error %d: %w", apiErr.Code, err)
		} else {
			n.logger.ErrorContext(ctx, "Unexpected error while sending message", slog.Any("error", err))
			err = appErr.NewSendFailed("%w", err)
		}
		n.tracer.RecordError(span, err)
		return err
	}

	n.logger.DebugContext(ctx, "Message sent", slog.String("chat", n.destination()))
	return nil
}

func (n *Notifier) destination() string {
	if n.channel != "" {
		return n.channel
	}
	return strconv.FormatInt(n.chatID, 10)
}
