package flows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/releasebot/app/conversation"
	"github.com/m3rciful/releasebot/app/metrics"
	"github.com/m3rciful/releasebot/app/store"
	"github.com/m3rciful/releasebot/core/logger"
	"github.com/m3rciful/releasebot/core/telegram/keyboard"
	"github.com/m3rciful/releasebot/core/telegram/update"
)

const minPhoneDigits = 7

type registrationFlow struct{ s *Set }

func (registrationFlow) Kind() conversation.Kind { return conversation.KindRegistration }

func (f registrationFlow) Step(ctx context.Context, cur conversation.Conversation, ev update.Event) (conversation.Result, error) {
	if ev.Kind == update.KindCallback {
		return ignored(ctx)
	}
	switch cur.State {
	case conversation.AwaitingName:
		return f.s.takeName(ctx, ev)
	case conversation.AwaitingPhone:
		return f.s.takePhone(ctx, cur, ev)
	case conversation.BrowsingMenu:
		return f.s.browse(ctx, ev)
	}
	return ignored(ctx)
}

// startRegistration greets a known user with the menu and asks a new one for
// a name.
func (s *Set) startRegistration(ctx context.Context, ev update.Event, _ conversation.Conversation) (conversation.Result, error) {
	_, err := s.store.GetUserByID(ctx, ev.SenderID)
	switch {
	case err == nil:
		if err := s.sendVideoMenu(ctx, ev.ChatID, msgWelcomeBack); err != nil {
			return conversation.Keep(), err
		}
		return conversation.Move(conversation.Start(conversation.KindRegistration, conversation.BrowsingMenu)), nil
	case errors.Is(err, store.ErrNotFound):
		s.reply(ctx, ev.ChatID, msgAskName, keyboard.Remove())
		return conversation.Move(conversation.Start(conversation.KindRegistration, conversation.AwaitingName)), nil
	default:
		return conversation.Keep(), err
	}
}

func (s *Set) takeName(ctx context.Context, ev update.Event) (conversation.Result, error) {
	name := strings.TrimSpace(ev.Text)
	if name == "" {
		s.reply(ctx, ev.ChatID, msgAskName, nil)
		return conversation.Keep(), nil
	}
	s.reply(ctx, ev.ChatID, msgAskPhone, phoneKeyboard())
	return conversation.Move(conversation.Conversation{
		Kind:    conversation.KindRegistration,
		State:   conversation.AwaitingPhone,
		Scratch: conversation.NamePending{Name: name},
	}), nil
}

func (s *Set) takePhone(ctx context.Context, cur conversation.Conversation, ev update.Event) (conversation.Result, error) {
	phone, ok := readPhone(ev)
	if !ok {
		s.reply(ctx, ev.ChatID, msgBadPhone, phoneKeyboard())
		return conversation.Keep(), nil
	}
	name, _ := cur.Name()

	err := s.store.CreateUser(ctx, ev.SenderID, name, phone)
	switch {
	case err == nil:
		metrics.IncUsersRegistered()
		logger.Info(ctx, component, "user.registered", slog.String("status", "ok"))
	case errors.Is(err, store.ErrAlreadyExists):
		logger.Info(ctx, component, "user.registered", slog.String("status", "exists"))
	default:
		return conversation.Keep(), err
	}

	if err := s.sendVideoMenu(ctx, ev.ChatID, msgRegistered); err != nil {
		logger.Warn(ctx, component, "menu.fail", slog.String("err", err.Error()))
	}
	return conversation.Move(conversation.Start(conversation.KindRegistration, conversation.BrowsingMenu)), nil
}

func (s *Set) browse(ctx context.Context, ev update.Event) (conversation.Result, error) {
	text := strings.TrimSpace(ev.Text)
	switch {
	case ev.Kind != update.KindText || text == "" || IsAdminLabel(text):
		return ignored(ctx)
	case text == LabelRefreshVideos:
		if err := s.sendVideoMenu(ctx, ev.ChatID, msgRefreshed); err != nil {
			return conversation.Keep(), err
		}
		return conversation.Keep(), nil
	}

	v, err := s.store.GetVideoByTitle(ctx, text)
	if errors.Is(err, store.ErrNotFound) {
		return ignored(ctx)
	}
	if err != nil {
		return conversation.Keep(), err
	}
	s.reply(ctx, ev.ChatID, fmt.Sprintf(msgHereIsVideo, v.Link), nil)
	return conversation.Keep(), nil
}

// sendVideoMenu shows the catalogue as a reply keyboard.
func (s *Set) sendVideoMenu(ctx context.Context, chatID int64, text string) error {
	videos, err := s.store.ListVideos(ctx)
	if err != nil {
		return err
	}
	if len(videos) == 0 {
		s.reply(ctx, chatID, msgNoVideosYet, keyboard.Remove())
		return nil
	}
	s.reply(ctx, chatID, text, videoKeyboard(videos))
	return nil
}

// readPhone takes a shared contact as sent and normalizes typed text.
// Either way fewer than seven digits is not a phone number.
func readPhone(ev update.Event) (string, bool) {
	if ev.Kind == update.KindContact {
		phone := strings.TrimSpace(ev.Phone)
		return phone, countDigits(phone) >= minPhoneDigits
	}
	return normalizePhone(ev.Text)
}

// normalizePhone keeps the digits and a leading plus.
func normalizePhone(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	if strings.HasPrefix(raw, "+") {
		b.WriteByte('+')
	}
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	phone := b.String()
	if countDigits(phone) < minPhoneDigits {
		return "", false
	}
	return phone, true
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
