// Package update turns raw Telegram updates into flat events and defines the
// handler chain they travel through.
package update

import (
	"context"
	"errors"
	"strings"

	"github.com/m3rciful/releasebot/core/logger"
)

var (
	// ErrMalformed marks an update that carries no sender or no usable payload.
	ErrMalformed = errors.New("update: malformed")
	// ErrUnsupported marks update types the bot does not react to.
	ErrUnsupported = errors.New("update: unsupported type")
)

// Kind classifies an inbound event.
type Kind string

const (
	KindCommand  Kind = "command"
	KindText     Kind = "text"
	KindContact  Kind = "contact"
	KindCallback Kind = "callback"
)

// MessageRef points at a message already delivered to a chat.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Event is the decoded form of one update.
type Event struct {
	UpdateID int
	Kind     Kind
	SenderID int64
	ChatID   int64
	Username string

	// Command is lowercased without the leading slash or @bot suffix.
	Command string
	Args    string
	Text    string
	Phone   string

	CallbackID      string
	CallbackKey     string
	CallbackPayload string
	// Message is the message a callback button belongs to.
	Message MessageRef
}

// IsCommand reports whether the event is the named command.
func (e Event) IsCommand(name string) bool {
	return e.Kind == KindCommand && e.Command == strings.TrimPrefix(strings.ToLower(name), "/")
}

// IsCallback reports whether the event is a button press with the given key.
func (e Event) IsCallback(key string) bool {
	return e.Kind == KindCallback && e.CallbackKey == key
}

// RID returns the correlation id used in logs.
func (e Event) RID() string {
	return logger.BuildRID(e.UpdateID, e.ChatID, e.SenderID)
}

// Context derives a logging context carrying the event's identifiers.
func (e Event) Context(parent context.Context) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	ctx := logger.WithRID(parent, e.RID())
	ctx = logger.WithUpdateMeta(ctx, e.UpdateID, e.SenderID, e.ChatID)
	return logger.WithLogger(ctx, logger.Component("tg"))
}

// Handler processes a single event.
type Handler func(ctx context.Context, ev Event) error

// Middleware wraps a Handler.
type Middleware func(Handler) Handler

// Chain wraps h so that mws[0] runs first.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}
