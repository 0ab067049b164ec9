package telegram

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	tele "gopkg.in/telebot.v4"
)

// SecretHeader carries the webhook secret Telegram echoes back on each call.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

const maxUpdateBytes = 1 << 20

var (
	// ErrBadSecret is returned when the secret header does not match.
	ErrBadSecret = errors.New("telegram: webhook secret mismatch")
	// ErrBadUpdate is returned when the body is not a Telegram update.
	ErrBadUpdate = errors.New("telegram: undecodable update")
)

// ReadUpdate validates the secret header and decodes the request body.
func ReadUpdate(r *http.Request, secret string) (tele.Update, error) {
	var u tele.Update
	if secret != "" && r.Header.Get(SecretHeader) != secret {
		return u, ErrBadSecret
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateBytes))
	if err != nil {
		return u, fmt.Errorf("%w: %v", ErrBadUpdate, err)
	}
	if err := json.Unmarshal(body, &u); err != nil {
		return u, fmt.Errorf("%w: %v", ErrBadUpdate, err)
	}
	return u, nil
}

// RegisterWebhook resets the webhook, dropping pending updates, and points it at publicURL.
func RegisterWebhook(bot *tele.Bot, publicURL, secret string) error {
	if err := bot.RemoveWebhook(true); err != nil {
		return fmt.Errorf("reset webhook: %w", err)
	}
	err := bot.SetWebhook(&tele.Webhook{
		Endpoint:       &tele.WebhookEndpoint{PublicURL: publicURL},
		SecretToken:    secret,
		AllowedUpdates: AllowedUpdates,
		DropUpdates:    true,
	})
	if err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}
