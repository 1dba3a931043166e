package storage

import (
	"context"

	"github.com/lobbyworks/presencehub/internal/model"
)

// ChatStore is the bounded chat history backing the replay sent to newly
// identified connections. Presence and identity state never touch storage;
// they are strictly process-lifetime and live in the identity engine.
type ChatStore interface {
	// AppendChatMessage adds a message to the history, evicting the oldest
	// entry once the bound is reached
	AppendChatMessage(ctx context.Context, msg model.ChatMessage) error
	// RecentChatMessages returns up to limit messages, oldest first
	RecentChatMessages(ctx context.Context, limit int) ([]model.ChatMessage, error)
}
