package update

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/releasebot/core/telegram/callbacks"
)

// Decode flattens u into an Event.
func Decode(u tele.Update) (Event, error) {
	switch {
	case u.Callback != nil:
		return decodeCallback(u.ID, u.Callback)
	case u.Message != nil:
		return decodeMessage(u.ID, u.Message)
	default:
		return Event{UpdateID: u.ID}, ErrUnsupported
	}
}

func decodeMessage(id int, m *tele.Message) (Event, error) {
	ev := Event{UpdateID: id}
	if m.Sender == nil || m.Sender.ID == 0 {
		return ev, fmt.Errorf("%w: message %d has no sender", ErrMalformed, m.ID)
	}
	ev.SenderID = m.Sender.ID
	ev.Username = m.Sender.Username
	ev.ChatID = m.Sender.ID
	if m.Chat != nil {
		ev.ChatID = m.Chat.ID
	}

	switch {
	case m.Contact != nil:
		ev.Kind = KindContact
		ev.Phone = strings.TrimSpace(m.Contact.PhoneNumber)
	case strings.HasPrefix(m.Text, "/"):
		ev.Kind = KindCommand
		ev.Text = m.Text
		ev.Command, ev.Args = splitCommand(m.Text)
		if ev.Command == "" {
			ev.Kind = KindText
		}
	default:
		ev.Kind = KindText
		ev.Text = m.Text
	}
	return ev, nil
}

func decodeCallback(id int, cb *tele.Callback) (Event, error) {
	ev := Event{UpdateID: id, Kind: KindCallback, CallbackID: cb.ID}
	if cb.Sender == nil || cb.Sender.ID == 0 {
		return ev, fmt.Errorf("%w: callback %q has no sender", ErrMalformed, cb.ID)
	}
	if cb.ID == "" {
		return ev, fmt.Errorf("%w: callback without id", ErrMalformed)
	}
	ev.SenderID = cb.Sender.ID
	ev.Username = cb.Sender.Username
	ev.ChatID = cb.Sender.ID
	if cb.Message != nil {
		ev.Message.MessageID = cb.Message.ID
		if cb.Message.Chat != nil {
			ev.ChatID = cb.Message.Chat.ID
			ev.Message.ChatID = cb.Message.Chat.ID
		}
	}
	ev.CallbackKey, ev.CallbackPayload = callbacks.Parse(cb.Data)
	if cb.Unique != "" {
		ev.CallbackKey = cb.Unique
	}
	return ev, nil
}

// splitCommand separates "/name@bot args" into "name" and "args".
func splitCommand(text string) (string, string) {
	head, args, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	head, _, _ = strings.Cut(head, "@")
	return strings.ToLower(strings.TrimSpace(head)), strings.TrimSpace(args)
}
