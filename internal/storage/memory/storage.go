package memory

import (
	"context"
	"sync"

	"github.com/lobbyworks/presencehub/internal/model"
	"github.com/lobbyworks/presencehub/internal/storage"
)

// Storage is an in-memory ring buffer implementation of the chat store
type Storage struct {
	mu       sync.RWMutex
	messages []model.ChatMessage
	bound    int
}

// New creates an in-memory chat store keeping at most bound messages
func New(bound int) *Storage {
	if bound <= 0 {
		bound = 50
	}
	return &Storage{bound: bound}
}

// Ensure Storage implements the interface
var _ storage.ChatStore = (*Storage)(nil)

func (s *Storage) AppendChatMessage(ctx context.Context, msg model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	if len(s.messages) > s.bound {
		s.messages = s.messages[len(s.messages)-s.bound:]
	}
	return nil
}

func (s *Storage) RecentChatMessages(ctx context.Context, limit int) ([]model.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.messages) {
		limit = len(s.messages)
	}
	result := make([]model.ChatMessage, limit)
	copy(result, s.messages[len(s.messages)-limit:])
	return result, nil
}
