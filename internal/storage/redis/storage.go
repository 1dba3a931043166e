package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lobbyworks/presencehub/internal/model"
	"github.com/lobbyworks/presencehub/internal/storage"
)

// chatHistoryKey is the Redis LIST holding the chat backlog, newest first
const chatHistoryKey = "presencehub:chat"

// Storage is a Redis-backed implementation of the chat store, for when
// several hub processes sit behind one load balancer and should share a chat
// backlog. Presence and identity state stay process-local either way.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis chat store
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{client: client, cfg: cfg}, nil
}

// NewWithClient creates a Redis chat store with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{client: client, cfg: cfg}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.ChatStore = (*Storage)(nil)

func (s *Storage) AppendChatMessage(ctx context.Context, msg model.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.LPush(ctx, chatHistoryKey, data)
	pipe.LTrim(ctx, chatHistoryKey, 0, int64(s.cfg.HistoryBound-1))
	if s.cfg.HistoryTTL > 0 {
		pipe.Expire(ctx, chatHistoryKey, s.cfg.HistoryTTL)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) RecentChatMessages(ctx context.Context, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 || limit > s.cfg.HistoryBound {
		limit = s.cfg.HistoryBound
	}

	raw, err := s.client.LRange(ctx, chatHistoryKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	// The list is newest first; replay wants oldest first
	result := make([]model.ChatMessage, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var msg model.ChatMessage
		if err := json.Unmarshal([]byte(raw[i]), &msg); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, nil
}
