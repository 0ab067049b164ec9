// Package conversation tracks each sender's dialogue with the bot and routes
// inbound events to the flow that owns it.
package conversation

import (
	"encoding/json"
	"fmt"

	"github.com/m3rciful/releasebot/core/telegram/update"
)

// ErrMalformedEvent is returned by Dispatch for events without a sender.
var ErrMalformedEvent = update.ErrMalformed

// Kind names a conversation flow.
type Kind string

const (
	KindRegistration Kind = "registration"
	KindAdminMenu    Kind = "admin_menu"
	KindAddVideo     Kind = "add_video"
)

// State is a step within a flow.
type State string

const (
	AwaitingName  State = "awaiting_name"
	AwaitingPhone State = "awaiting_phone"
	BrowsingMenu  State = "browsing_menu"
	AtMenu        State = "at_menu"
	AwaitingTitle State = "awaiting_title"
	AwaitingLink  State = "awaiting_link"
)

var flowStates = map[Kind][]State{
	KindRegistration: {AwaitingName, AwaitingPhone, BrowsingMenu},
	KindAdminMenu:    {AtMenu},
	KindAddVideo:     {AwaitingTitle, AwaitingLink},
}

// Scratch is the data a state carries between two events. Only the types in
// this package implement it.
type Scratch interface {
	scratch()
}

// NamePending holds the name typed before the phone number.
type NamePending struct {
	Name string
}

// TitlePending holds the video title typed before the link.
type TitlePending struct {
	Title string
}

func (NamePending) scratch()  {}
func (TitlePending) scratch() {}

// Conversation is one sender's current position in a flow. The zero value
// means "no conversation".
type Conversation struct {
	Kind    Kind
	State   State
	Scratch Scratch
}

// Start returns a conversation of kind at state with no scratch.
func Start(kind Kind, state State) Conversation {
	return Conversation{Kind: kind, State: state}
}

// Active reports whether c names a conversation.
func (c Conversation) Active() bool {
	return c.Kind != ""
}

// Name returns the pending name, if the state carries one.
func (c Conversation) Name() (string, bool) {
	s, ok := c.Scratch.(NamePending)
	return s.Name, ok
}

// Title returns the pending video title, if the state carries one.
func (c Conversation) Title() (string, bool) {
	s, ok := c.Scratch.(TitlePending)
	return s.Title, ok
}

// Validate checks that the state belongs to the kind and that the scratch
// has the shape the state expects.
func (c Conversation) Validate() error {
	states, ok := flowStates[c.Kind]
	if !ok {
		return fmt.Errorf("conversation: unknown kind %q", c.Kind)
	}
	known := false
	for _, s := range states {
		if s == c.State {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("conversation: state %q does not belong to %q", c.State, c.Kind)
	}
	switch c.State {
	case AwaitingPhone:
		if _, ok := c.Scratch.(NamePending); !ok {
			return fmt.Errorf("conversation: %s needs a pending name", c.State)
		}
	case AwaitingLink:
		if _, ok := c.Scratch.(TitlePending); !ok {
			return fmt.Errorf("conversation: %s needs a pending title", c.State)
		}
	default:
		if c.Scratch != nil {
			return fmt.Errorf("conversation: %s carries no scratch, got %T", c.State, c.Scratch)
		}
	}
	return nil
}

type wireConversation struct {
	Kind  Kind   `json:"kind"`
	State State  `json:"state"`
	Name  string `json:"name,omitempty"`
	Title string `json:"title,omitempty"`
}

// MarshalJSON flattens the scratch variant next to kind and state.
func (c Conversation) MarshalJSON() ([]byte, error) {
	w := wireConversation{Kind: c.Kind, State: c.State}
	switch s := c.Scratch.(type) {
	case NamePending:
		w.Name = s.Name
	case TitlePending:
		w.Title = s.Title
	}
	return json.Marshal(w)
}

// UnmarshalJSON rebuilds the scratch variant the state requires.
func (c *Conversation) UnmarshalJSON(data []byte) error {
	var w wireConversation
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := Conversation{Kind: w.Kind, State: w.State}
	switch w.State {
	case AwaitingPhone:
		out.Scratch = NamePending{Name: w.Name}
	case AwaitingLink:
		out.Scratch = TitlePending{Title: w.Title}
	}
	if err := out.Validate(); err != nil {
		return err
	}
	*c = out
	return nil
}
