package update

import (
	"context"
	"errors"
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestDecodeCommand(t *testing.T) {
	ev, err := Decode(tele.Update{ID: 1, Message: &tele.Message{
		ID:     10,
		Sender: &tele.User{ID: 42, Username: "alice"},
		Chat:   &tele.Chat{ID: 42},
		Text:   "/AddAdmin@release_bot  777 ",
	}})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind != KindCommand || ev.Command != "addadmin" || ev.Args != "777" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if !ev.IsCommand("/addadmin") {
		t.Fatal("IsCommand should accept a slash-prefixed name")
	}
}

func TestDecodeTextAndContact(t *testing.T) {
	ev, err := Decode(tele.Update{ID: 2, Message: &tele.Message{Sender: &tele.User{ID: 5}, Text: "Intro"}})
	if err != nil || ev.Kind != KindText || ev.Text != "Intro" || ev.ChatID != 5 {
		t.Fatalf("text: %+v %v", ev, err)
	}
	ev, err = Decode(tele.Update{ID: 3, Message: &tele.Message{
		Sender:  &tele.User{ID: 5},
		Contact: &tele.Contact{PhoneNumber: " +15551234567 "},
	}})
	if err != nil || ev.Kind != KindContact || ev.Phone != "+15551234567" {
		t.Fatalf("contact: %+v %v", ev, err)
	}
}

func TestDecodeCallback(t *testing.T) {
	ev, err := Decode(tele.Update{ID: 4, Callback: &tele.Callback{
		ID:      "cb1",
		Sender:  &tele.User{ID: 9},
		Data:    "\fdelete_video|12",
		Message: &tele.Message{ID: 77, Chat: &tele.Chat{ID: 900}},
	}})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !ev.IsCallback("delete_video") || ev.CallbackPayload != "12" {
		t.Fatalf("unexpected callback: %+v", ev)
	}
	if ev.Message != (MessageRef{ChatID: 900, MessageID: 77}) || ev.ChatID != 900 {
		t.Fatalf("unexpected message ref: %+v", ev.Message)
	}
}

func TestDecodeRejects(t *testing.T) {
	if _, err := Decode(tele.Update{ID: 5, Message: &tele.Message{Text: "hi"}}); !errors.Is(err, ErrMalformed) {
		t.Fatalf("missing sender: %v", err)
	}
	if _, err := Decode(tele.Update{ID: 6, Callback: &tele.Callback{Sender: &tele.User{ID: 1}}}); !errors.Is(err, ErrMalformed) {
		t.Fatalf("callback without id: %v", err)
	}
	if _, err := Decode(tele.Update{ID: 7}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("empty update: %v", err)
	}
}

func TestChainOrder(t *testing.T) {
	var trace []string
	mw := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, ev Event) error {
				trace = append(trace, name)
				return next(ctx, ev)
			}
		}
	}
	h := Chain(func(context.Context, Event) error {
		trace = append(trace, "handler")
		return nil
	}, mw("outer"), nil, mw("inner"))
	_ = h(context.Background(), Event{})
	if len(trace) != 3 || trace[0] != "outer" || trace[1] != "inner" || trace[2] != "handler" {
		t.Fatalf("trace = %v", trace)
	}
}

func TestCounters(t *testing.T) {
	ctx, c := WithCounters(context.Background())
	CountersFrom(ctx).Sent(false)
	CountersFrom(ctx).Sent(true)
	if n, kb := c.Snapshot(); n != 2 || !kb {
		t.Fatalf("snapshot = %d %v", n, kb)
	}
	c.SetHandler("registration")
	if c.Handler() != "registration" {
		t.Fatalf("handler = %q", c.Handler())
	}
	var missing *Counters
	missing.Sent(true)
	if n, _ := CountersFrom(context.Background()).Snapshot(); n != 0 {
		t.Fatal("nil counters should report zero")
	}
}
