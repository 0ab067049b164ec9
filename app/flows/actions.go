package flows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/releasebot/app/conversation"
	"github.com/m3rciful/releasebot/app/store"
	"github.com/m3rciful/releasebot/core/logger"
	"github.com/m3rciful/releasebot/core/telegram/callbacks"
	"github.com/m3rciful/releasebot/core/telegram/update"
)

// Admin actions never touch the sender's conversation.

func (s *Set) deleteUser(ctx context.Context, ev update.Event, _ conversation.Conversation) (conversation.Result, error) {
	return s.deleteByButton(ctx, ev, "user", msgUserDeleted, s.store.DeleteUser)
}

func (s *Set) deleteVideo(ctx context.Context, ev update.Event, _ conversation.Conversation) (conversation.Result, error) {
	return s.deleteByButton(ctx, ev, "video", msgVideoDeleted, s.store.DeleteVideo)
}

func (s *Set) deleteByButton(ctx context.Context, ev update.Event, what, done string, del func(context.Context, int64) error) (conversation.Result, error) {
	if !s.roles.IsAdmin(ctx, ev.SenderID) {
		s.deny(ctx, ev)
		return conversation.Keep(), nil
	}
	id, err := callbacks.Int64(ev.CallbackPayload)
	if err != nil {
		logger.Warn(ctx, component, what+".delete",
			slog.String("status", "fail"),
			slog.String("payload", ev.CallbackPayload),
		)
		s.answer(ctx, ev.CallbackID, "")
		return ignored(ctx)
	}

	// A row someone else already removed is still gone.
	if err := del(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return conversation.Keep(), err
	}
	logger.Info(ctx, component, what+".delete",
		slog.String("status", "ok"),
		slog.Int64("id", id),
	)

	if ev.Message.MessageID != 0 {
		if err := s.out.EditText(ctx, ev.Message, done); err != nil {
			logger.Warn(ctx, component, "reply.fail", slog.String("err", err.Error()))
			s.reply(ctx, ev.ChatID, done, nil)
		}
	} else {
		s.reply(ctx, ev.ChatID, done, nil)
	}
	s.answer(ctx, ev.CallbackID, "")
	return conversation.Keep(), nil
}

func (s *Set) answer(ctx context.Context, callbackID, text string) {
	if callbackID == "" {
		return
	}
	if err := s.out.AnswerCallback(ctx, callbackID, text, false); err != nil {
		logger.Warn(ctx, component, "reply.fail", slog.String("err", err.Error()))
	}
}

// addAdmin grants admin rights. Only the configured super admin may use it.
func (s *Set) addAdmin(ctx context.Context, ev update.Event, _ conversation.Conversation) (conversation.Result, error) {
	if !s.roles.IsSuperAdmin(ev.SenderID) {
		s.deny(ctx, ev)
		return conversation.Keep(), nil
	}
	fields := strings.Fields(ev.Args)
	if len(fields) != 1 {
		s.reply(ctx, ev.ChatID, msgAddAdminUsage, nil)
		return conversation.Keep(), nil
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || id <= 0 {
		s.reply(ctx, ev.ChatID, msgAddAdminUsage, nil)
		return conversation.Keep(), nil
	}
	if err := s.store.AddAdmin(ctx, id); err != nil {
		return conversation.Keep(), err
	}
	logger.Info(ctx, component, "admin.added",
		slog.String("status", "ok"),
		slog.Int64("admin_id", id),
	)
	s.reply(ctx, ev.ChatID, fmt.Sprintf(msgAdminAdded, id), nil)
	return conversation.Keep(), nil
}
