package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"airguard/config"
	"airguard/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramNotifier delivers alert events as Telegram messages. Each alert
// category owns one notification slot: a new alert in a category deletes
// the previous undismissed message for that category before sending, so
// alerts replace rather than stack. Critical alerts are delivered loud;
// low-severity ones are sent silently.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger

	mu        sync.Mutex
	slotMsgID map[models.AlertCategory]int
}

// NewTelegramNotifier authorizes the bot and verifies connectivity.
func NewTelegramNotifier(cfg *config.Config, logger *zap.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	chatID, err := strconv.ParseInt(cfg.TelegramChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse telegram chat id: %w", err)
	}

	logger.Info("Telegram bot authorized", zap.String("username", bot.Self.UserName))

	return &TelegramNotifier{
		bot:       bot,
		chatID:    chatID,
		logger:    logger,
		slotMsgID: make(map[models.AlertCategory]int),
	}, nil
}

// Deliver sends one notification per alert, honoring the per-category
// replace semantics. A failed individual send does not abort the batch; the
// first error is returned after all alerts have been attempted.
func (t *TelegramNotifier) Deliver(ctx context.Context, alerts []*models.AlertEvent) error {
	var firstErr error
	for _, alert := range alerts {
		if err := t.send(alert); err != nil {
			t.logger.Error("Failed to send alert",
				zap.String("category", string(alert.Category)),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (t *TelegramNotifier) send(alert *models.AlertEvent) error {
	t.mu.Lock()
	prevID, hadPrev := t.slotMsgID[alert.Category]
	t.mu.Unlock()

	if hadPrev {
		// Best effort: the user may have already dismissed it.
		if _, err := t.bot.Request(tgbotapi.NewDeleteMessage(t.chatID, prevID)); err != nil {
			t.logger.Debug("Could not delete superseded alert message",
				zap.String("category", string(alert.Category)),
				zap.Error(err))
		}
	}

	msg := tgbotapi.NewMessage(t.chatID, t.format(alert))
	msg.ParseMode = "HTML"
	msg.DisableWebPagePreview = true
	msg.DisableNotification = alert.Severity <= models.SeverityLow

	sent, err := t.bot.Send(msg)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	t.mu.Lock()
	t.slotMsgID[alert.Category] = sent.MessageID
	t.mu.Unlock()
	return nil
}

func (t *TelegramNotifier) format(alert *models.AlertEvent) string {
	return fmt.Sprintf("%s %s <b>%s</b>\n%s\n\n<i>%s</i>",
		alert.SeverityMarker(),
		alert.Emoji(),
		alert.Title,
		alert.Body,
		alert.Timestamp.Format("2006-01-02 15:04:05"))
}

// SendStartupMessage announces that monitoring has come online.
func (t *TelegramNotifier) SendStartupMessage() error {
	msg := tgbotapi.NewMessage(t.chatID, "🟢 <b>Air-quality monitoring online</b>")
	msg.ParseMode = "HTML"
	_, err := t.bot.Send(msg)
	return err
}

// SendText delivers a plain informational message outside the category slots.
func (t *TelegramNotifier) SendText(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = "HTML"
	_, err := t.bot.Send(msg)
	return err
}
