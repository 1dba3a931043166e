package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/lobbyworks/presencehub/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.HistoryBound = 5
	cfg.HistoryTTL = time.Hour

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) message(i int) model.ChatMessage {
	return model.ChatMessage{
		PlayerID:    "p_chatter00001",
		DisplayName: "Alice",
		Text:        fmt.Sprintf("message %d", i),
		SentAt:      time.Date(2024, 1, 1, 12, 0, i, 0, time.UTC),
	}
}

func (s *StorageSuite) TestAppendAndReadBack() {
	err := s.storage.AppendChatMessage(s.ctx, s.message(0))
	s.Require().NoError(err)

	msgs, err := s.storage.RecentChatMessages(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(msgs, 1)
	s.Equal("message 0", msgs[0].Text)
	s.Equal("Alice", msgs[0].DisplayName)
}

func (s *StorageSuite) TestReplayIsOldestFirst() {
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.storage.AppendChatMessage(s.ctx, s.message(i)))
	}

	msgs, err := s.storage.RecentChatMessages(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(msgs, 3)
	s.Equal("message 0", msgs[0].Text)
	s.Equal("message 2", msgs[2].Text)
}

func (s *StorageSuite) TestHistoryIsBounded() {
	for i := 0; i < 8; i++ {
		s.Require().NoError(s.storage.AppendChatMessage(s.ctx, s.message(i)))
	}

	msgs, err := s.storage.RecentChatMessages(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(msgs, 5)

	// Oldest three were trimmed away
	s.Equal("message 3", msgs[0].Text)
	s.Equal("message 7", msgs[4].Text)
}

func (s *StorageSuite) TestLimitTakesNewest() {
	for i := 0; i < 5; i++ {
		s.Require().NoError(s.storage.AppendChatMessage(s.ctx, s.message(i)))
	}

	msgs, err := s.storage.RecentChatMessages(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(msgs, 2)
	s.Equal("message 3", msgs[0].Text)
	s.Equal("message 4", msgs[1].Text)
}

func (s *StorageSuite) TestEmptyHistory() {
	msgs, err := s.storage.RecentChatMessages(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(msgs)
}

func (s *StorageSuite) TestHistoryExpires() {
	s.Require().NoError(s.storage.AppendChatMessage(s.ctx, s.message(0)))

	s.mini.FastForward(2 * time.Hour)

	msgs, err := s.storage.RecentChatMessages(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(msgs)
}
