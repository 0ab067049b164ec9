package conversation

import (
	"context"

	"github.com/m3rciful/releasebot/core/telegram/update"
)

// Priority orders entry points; lower values are tried first.
type Priority int

const (
	PriorityCancel Priority = iota
	PriorityAdmin
	PriorityUser
)

func (p Priority) String() string {
	switch p {
	case PriorityCancel:
		return "cancel"
	case PriorityAdmin:
		return "admin"
	case PriorityUser:
		return "user"
	}
	return "unknown"
}

type resultOp uint8

const (
	opKeep resultOp = iota
	opMove
	opEnd
)

// Result tells the dispatcher what to do with the sender's registry entry.
type Result struct {
	op   resultOp
	next Conversation
}

// Keep leaves the registry entry as it was, including "no entry".
func Keep() Result { return Result{op: opKeep} }

// Move replaces the sender's conversation with next.
func Move(next Conversation) Result { return Result{op: opMove, next: next} }

// End removes the sender's conversation and its scratch.
func End() Result { return Result{op: opEnd} }

// EntryPoint starts or interrupts a conversation when Match accepts the event.
type EntryPoint struct {
	Name     string
	Priority Priority
	Match    func(ev update.Event) bool
	// WhenActive restricts the entry point to senders inside a conversation.
	WhenActive bool
	// Start receives the sender's current conversation (zero when none).
	Start func(ctx context.Context, ev update.Event, cur Conversation) (Result, error)
}

// Flow advances conversations of one kind.
type Flow interface {
	Kind() Kind
	Step(ctx context.Context, cur Conversation, ev update.Event) (Result, error)
}

// CommandEntry matches the named slash command.
func CommandEntry(name string) func(update.Event) bool {
	return func(ev update.Event) bool { return ev.IsCommand(name) }
}

// CallbackEntry matches button presses carrying key.
func CallbackEntry(key string) func(update.Event) bool {
	return func(ev update.Event) bool { return ev.IsCallback(key) }
}
