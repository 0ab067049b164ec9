// Package telegram adapts telebot to the bot's own event pipeline: it builds
// the API client, sends replies, and feeds raw updates from either webhook or
// long polling.
package telegram

import (
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/releasebot/core/config"
)

// AllowedUpdates lists the update types the bot subscribes to.
var AllowedUpdates = []string{"message", "callback_query"}

// NewBot builds a telebot client. Updates are not consumed through telebot's
// own poller, so the client is created offline when offline is true (tests,
// tooling) and otherwise validated with getMe.
func NewBot(cfg *coreconfig.Config, offline bool) (*tele.Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telegram: nil config")
	}
	timeout := 30 * time.Second
	if lp := time.Duration(cfg.Telegram.LongPollTimeoutSeconds) * time.Second; lp+10*time.Second > timeout {
		timeout = lp + 10*time.Second
	}
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Telegram.Token,
		Client:  BuildHTTPClient(ClientOptions{Timeout: timeout, Retries: 2}),
		Offline: offline,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	return bot, nil
}
