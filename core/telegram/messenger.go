package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/releasebot/core/logger"
	"github.com/m3rciful/releasebot/core/telegram/keyboard"
	"github.com/m3rciful/releasebot/core/telegram/update"
)

// Messenger is the outbound side of the bot.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, markup *tele.ReplyMarkup) error
	EditText(ctx context.Context, ref update.MessageRef, text string) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}

// BotMessenger sends through a telebot client.
type BotMessenger struct {
	bot *tele.Bot
}

// NewMessenger wraps bot.
func NewMessenger(bot *tele.Bot) *BotMessenger {
	return &BotMessenger{bot: bot}
}

// SendText sends plain text with an optional keyboard.
func (m *BotMessenger) SendText(ctx context.Context, chatID int64, text string, markup *tele.ReplyMarkup) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opts := &tele.SendOptions{ReplyMarkup: markup}
	if _, err := m.bot.Send(tele.ChatID(chatID), text, opts); err != nil {
		return fmt.Errorf("send message to %d: %w", chatID, err)
	}
	update.CountersFrom(ctx).Sent(keyboard.HasMarkup(markup))
	return nil
}

// EditText replaces the text of a delivered message.
func (m *BotMessenger) EditText(ctx context.Context, ref update.MessageRef, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &tele.StoredMessage{MessageID: strconv.Itoa(ref.MessageID), ChatID: ref.ChatID}
	if _, err := m.bot.Edit(msg, text); err != nil {
		return fmt.Errorf("edit message %d in %d: %w", ref.MessageID, ref.ChatID, err)
	}
	update.CountersFrom(ctx).Sent(false)
	return nil
}

// AnswerCallback acknowledges a button press, optionally as an alert.
func (m *BotMessenger) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := m.bot.Respond(&tele.Callback{ID: callbackID}, &tele.CallbackResponse{
		CallbackID: callbackID,
		Text:       text,
		ShowAlert:  alert,
	})
	if err != nil {
		logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "callback.answer",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}
