// Package flows holds the bot's conversations: user registration and the
// video menu, the admin panel, the add-video dialogue and the stateless admin
// actions.
package flows

import (
	"context"
	"errors"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/releasebot/app/conversation"
	"github.com/m3rciful/releasebot/app/metrics"
	"github.com/m3rciful/releasebot/app/store"
	"github.com/m3rciful/releasebot/core/logger"
	"github.com/m3rciful/releasebot/core/telegram"
	"github.com/m3rciful/releasebot/core/telegram/keyboard"
	"github.com/m3rciful/releasebot/core/telegram/update"
)

const component = "conv"

// Store is the persistence the flows need.
type Store interface {
	CreateUser(ctx context.Context, telegramID int64, fullName, phone string) error
	GetUserByID(ctx context.Context, telegramID int64) (store.User, error)
	ListUsers(ctx context.Context) ([]store.User, error)
	DeleteUser(ctx context.Context, telegramID int64) error
	CreateVideo(ctx context.Context, title, link string) (store.Video, error)
	ListVideos(ctx context.Context) ([]store.Video, error)
	GetVideoByTitle(ctx context.Context, title string) (store.Video, error)
	DeleteVideo(ctx context.Context, id int64) error
	AddAdmin(ctx context.Context, telegramID int64) error
}

// Roles answers privilege checks.
type Roles interface {
	IsAdmin(ctx context.Context, id int64) bool
	IsSuperAdmin(id int64) bool
}

// Broadcaster schedules a release announcement.
type Broadcaster interface {
	Enqueue(ctx context.Context, message string) error
}

// Deps are the collaborators shared by every flow.
type Deps struct {
	Store     Store
	Roles     Roles
	Messenger telegram.Messenger
	Broadcast Broadcaster
}

// Set owns the flows and entry points of the bot.
type Set struct {
	store Store
	roles Roles
	out   telegram.Messenger
	bcast Broadcaster
}

// New validates deps.
func New(deps Deps) (*Set, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("flows: store is required")
	case deps.Roles == nil:
		return nil, errors.New("flows: roles are required")
	case deps.Messenger == nil:
		return nil, errors.New("flows: messenger is required")
	case deps.Broadcast == nil:
		return nil, errors.New("flows: broadcaster is required")
	}
	return &Set{
		store: deps.Store,
		roles: deps.Roles,
		out:   deps.Messenger,
		bcast: deps.Broadcast,
	}, nil
}

// EntryPoints lists everything that can start or interrupt a conversation.
func (s *Set) EntryPoints() []conversation.EntryPoint {
	return []conversation.EntryPoint{
		{
			Name:       "cancel",
			Priority:   conversation.PriorityCancel,
			Match:      conversation.CommandEntry("cancel"),
			WhenActive: true,
			Start:      s.cancel,
		},
		{
			Name:     "admin",
			Priority: conversation.PriorityAdmin,
			Match:    conversation.CommandEntry("admin"),
			Start:    s.openAdminPanel,
		},
		{
			Name:     "addadmin",
			Priority: conversation.PriorityAdmin,
			Match:    conversation.CommandEntry("addadmin"),
			Start:    s.addAdmin,
		},
		{
			Name:     "delete_user",
			Priority: conversation.PriorityAdmin,
			Match:    conversation.CallbackEntry(CallbackDeleteUser),
			Start:    s.deleteUser,
		},
		{
			Name:     "delete_video",
			Priority: conversation.PriorityAdmin,
			Match:    conversation.CallbackEntry(CallbackDeleteVideo),
			Start:    s.deleteVideo,
		},
		{
			Name:     "start",
			Priority: conversation.PriorityUser,
			Match:    conversation.CommandEntry("start"),
			Start:    s.startRegistration,
		},
	}
}

// Flows returns the in-progress handlers, one per conversation kind.
func (s *Set) Flows() []conversation.Flow {
	return []conversation.Flow{
		registrationFlow{s},
		adminMenuFlow{s},
		addVideoFlow{s},
	}
}

// Commands describes the slash commands for the client menu.
func Commands() []telegram.Command {
	return []telegram.Command{
		{Name: "/start", Description: "Register or open the video menu"},
		{Name: "/cancel", Description: "Cancel the current action"},
		{Name: "/admin", Description: "Open the admin panel", AdminOnly: true},
		{Name: "/addadmin", Description: "Grant admin rights", AdminOnly: true, Hidden: true},
	}
}

// OnError apologises to the sender after a failed action. The conversation
// stays where it was so the sender can retry.
func (s *Set) OnError(ctx context.Context, ev update.Event, err error) {
	if ev.ChatID == 0 || errors.Is(err, conversation.ErrMalformedEvent) {
		return
	}
	if ev.Kind == update.KindCallback && ev.CallbackID != "" {
		_ = s.out.AnswerCallback(ctx, ev.CallbackID, msgSomethingWrong, true)
		return
	}
	s.reply(ctx, ev.ChatID, msgSomethingWrong, nil)
}

// reply sends best-effort: a lost message is logged and never undoes a
// state change that was already persisted.
func (s *Set) reply(ctx context.Context, chatID int64, text string, markup *tele.ReplyMarkup) {
	if err := s.out.SendText(ctx, chatID, text, markup); err != nil {
		logger.Warn(ctx, component, "reply.fail",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}

// deny tells a non-admin no and marks the event outcome.
func (s *Set) deny(ctx context.Context, ev update.Event) {
	metrics.IncAdminDenied()
	update.CountersFrom(ctx).SetOutcome("denied")
	logger.Warn(ctx, component, "access.denied", slog.String("kind", string(ev.Kind)))
	if ev.Kind == update.KindCallback {
		if err := s.out.AnswerCallback(ctx, ev.CallbackID, msgAccessDenied, true); err != nil {
			logger.Warn(ctx, component, "reply.fail", slog.String("err", err.Error()))
		}
		return
	}
	s.reply(ctx, ev.ChatID, msgAccessDenied, nil)
}

func ignored(ctx context.Context) (conversation.Result, error) {
	update.CountersFrom(ctx).SetOutcome("ignored")
	return conversation.Keep(), nil
}

// cancel closes whatever conversation the sender is in.
func (s *Set) cancel(ctx context.Context, ev update.Event, cur conversation.Conversation) (conversation.Result, error) {
	text := msgCancelled
	if cur.Kind == conversation.KindAdminMenu || cur.Kind == conversation.KindAddVideo {
		text = msgAdminClosed
	}
	s.reply(ctx, ev.ChatID, text, keyboard.Remove())
	return conversation.End(), nil
}
