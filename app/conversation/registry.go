package conversation

import (
	"context"
	"sync"
)

// Registry stores at most one conversation per sender. Set replaces whatever
// the sender had before, regardless of kind.
type Registry interface {
	Get(ctx context.Context, senderID int64) (Conversation, bool, error)
	Set(ctx context.Context, senderID int64, c Conversation) error
	Clear(ctx context.Context, senderID int64) error
}

// MemoryRegistry keeps conversations in a map. Entries live until their
// conversation ends.
type MemoryRegistry struct {
	mu    sync.RWMutex
	convs map[int64]Conversation
}

// NewMemoryRegistry returns an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{convs: make(map[int64]Conversation)}
}

// Get returns the sender's conversation, if any.
func (m *MemoryRegistry) Get(_ context.Context, senderID int64) (Conversation, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.convs[senderID]
	return c, ok, nil
}

// Set validates c and stores it in place of the sender's previous conversation.
func (m *MemoryRegistry) Set(_ context.Context, senderID int64, c Conversation) error {
	if err := c.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.convs[senderID] = c
	return nil
}

// Clear drops the sender's conversation.
func (m *MemoryRegistry) Clear(_ context.Context, senderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.convs, senderID)
	return nil
}

// Len returns the number of senders with a live conversation.
func (m *MemoryRegistry) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.convs)
}
