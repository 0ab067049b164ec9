package flows

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/releasebot/app/conversation"
	"github.com/m3rciful/releasebot/app/metrics"
	"github.com/m3rciful/releasebot/core/logger"
	"github.com/m3rciful/releasebot/core/telegram/keyboard"
	"github.com/m3rciful/releasebot/core/telegram/update"
)

var atMenu = conversation.Start(conversation.KindAdminMenu, conversation.AtMenu)

// openAdminPanel is the /admin entry point. A refusal leaves the sender's
// current conversation alone.
func (s *Set) openAdminPanel(ctx context.Context, ev update.Event, _ conversation.Conversation) (conversation.Result, error) {
	if !s.roles.IsAdmin(ctx, ev.SenderID) {
		s.deny(ctx, ev)
		return conversation.Keep(), nil
	}
	s.reply(ctx, ev.ChatID, msgAdminPanel, adminKeyboard())
	return conversation.Move(atMenu), nil
}

type adminMenuFlow struct{ s *Set }

func (adminMenuFlow) Kind() conversation.Kind { return conversation.KindAdminMenu }

func (f adminMenuFlow) Step(ctx context.Context, _ conversation.Conversation, ev update.Event) (conversation.Result, error) {
	s := f.s
	if !s.roles.IsAdmin(ctx, ev.SenderID) {
		s.deny(ctx, ev)
		return conversation.End(), nil
	}
	if ev.Kind != update.KindText {
		return ignored(ctx)
	}
	switch strings.TrimSpace(ev.Text) {
	case LabelAddVideo:
		s.reply(ctx, ev.ChatID, msgAskTitle, keyboard.Remove())
		return conversation.Move(conversation.Start(conversation.KindAddVideo, conversation.AwaitingTitle)), nil
	case LabelViewUsers:
		return conversation.Keep(), s.listUsers(ctx, ev.ChatID)
	case LabelManageVideos:
		return conversation.Keep(), s.listVideos(ctx, ev.ChatID)
	}
	return ignored(ctx)
}

func (s *Set) listUsers(ctx context.Context, chatID int64) error {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		s.reply(ctx, chatID, msgNoUsers, nil)
		return nil
	}
	for _, u := range users {
		s.reply(ctx, chatID, fmt.Sprintf(msgUserCard, u.FullName, u.Phone, u.TelegramID), deleteUserButton(u.TelegramID))
	}
	return nil
}

func (s *Set) listVideos(ctx context.Context, chatID int64) error {
	videos, err := s.store.ListVideos(ctx)
	if err != nil {
		return err
	}
	if len(videos) == 0 {
		s.reply(ctx, chatID, msgNoVideos, nil)
		return nil
	}
	for _, v := range videos {
		s.reply(ctx, chatID, fmt.Sprintf(msgVideoCard, v.Title, v.Link), deleteVideoButton(v.ID))
	}
	return nil
}

type addVideoFlow struct{ s *Set }

func (addVideoFlow) Kind() conversation.Kind { return conversation.KindAddVideo }

func (f addVideoFlow) Step(ctx context.Context, cur conversation.Conversation, ev update.Event) (conversation.Result, error) {
	s := f.s
	if !s.roles.IsAdmin(ctx, ev.SenderID) {
		s.deny(ctx, ev)
		return conversation.End(), nil
	}
	if ev.Kind != update.KindText {
		return ignored(ctx)
	}
	text := strings.TrimSpace(ev.Text)

	switch cur.State {
	case conversation.AwaitingTitle:
		if text == "" {
			s.reply(ctx, ev.ChatID, msgAskTitle, nil)
			return conversation.Keep(), nil
		}
		s.reply(ctx, ev.ChatID, msgAskLink, nil)
		return conversation.Move(conversation.Conversation{
			Kind:    conversation.KindAddVideo,
			State:   conversation.AwaitingLink,
			Scratch: conversation.TitlePending{Title: text},
		}), nil

	case conversation.AwaitingLink:
		if text == "" {
			s.reply(ctx, ev.ChatID, msgAskLink, nil)
			return conversation.Keep(), nil
		}
		title, _ := cur.Title()
		return s.publishVideo(ctx, ev, title, text)
	}
	return ignored(ctx)
}

// publishVideo stores the video, announces it and puts the admin back on the
// panel.
func (s *Set) publishVideo(ctx context.Context, ev update.Event, title, link string) (conversation.Result, error) {
	v, err := s.store.CreateVideo(ctx, title, link)
	if err != nil {
		return conversation.Keep(), err
	}
	metrics.IncVideosAdded()
	logger.Info(ctx, component, "video.added",
		slog.String("status", "ok"),
		slog.Int64("video_id", v.ID),
	)
	s.reply(ctx, ev.ChatID, msgVideoAdded, nil)

	if err := s.bcast.Enqueue(ctx, fmt.Sprintf(msgNewRelease, v.Link)); err != nil {
		logger.Error(ctx, component, "broadcast.enqueue",
			slog.String("status", "fail"),
			slog.Int64("video_id", v.ID),
			slog.String("err", err.Error()),
		)
	}
	s.reply(ctx, ev.ChatID, msgAdminPanel, adminKeyboard())
	return conversation.Move(atMenu), nil
}
