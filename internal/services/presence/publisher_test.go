package presence

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/lobbyworks/presencehub/internal/dependencies/mocks"
	"github.com/lobbyworks/presencehub/internal/model"
	"github.com/lobbyworks/presencehub/internal/services/identity"
	"github.com/lobbyworks/presencehub/internal/testutil"
)

type captureBroadcaster struct {
	messages [][]byte
}

func (c *captureBroadcaster) Broadcast(message []byte) {
	c.messages = append(c.messages, message)
}

type captureSender struct {
	messages [][]byte
}

func (c *captureSender) Send(message []byte) bool {
	c.messages = append(c.messages, message)
	return true
}

type PublisherSuite struct {
	suite.Suite
	clock     *mocks.MockClock
	engine    *identity.Engine
	hub       *captureBroadcaster
	publisher *Publisher
}

func TestPublisherSuite(t *testing.T) {
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.engine = identity.NewEngine(identity.DefaultConfig(), s.clock, mocks.NewMockRandom(), testutil.NopLogger())
	s.hub = &captureBroadcaster{}
	s.publisher = New(s.engine, s.hub, 100, testutil.NopLogger())
}

func (s *PublisherSuite) connect(fingerprint, name string) identity.Resolution {
	conn := s.engine.Register("203.0.113.10:4000", "")
	res, err := s.engine.Resolve(conn.ID, fingerprint, "", name)
	s.Require().NoError(err)
	return res
}

func (s *PublisherSuite) lastPayload() map[string]any {
	s.Require().NotEmpty(s.hub.messages)
	var payload map[string]any
	s.Require().NoError(json.Unmarshal(s.hub.messages[len(s.hub.messages)-1], &payload))
	return payload
}

func (s *PublisherSuite) TestPublishAllEmptyRoster() {
	s.publisher.PublishAll()

	payload := s.lastPayload()
	s.Equal("users", payload["type"])
	s.Equal([]any{}, payload["users"])
	s.Equal(float64(0), payload["totalUsers"])
}

func (s *PublisherSuite) TestPublishAllCarriesRoster() {
	s.connect("fp-alpha", "Alice")
	s.connect("fp-beta", "Bob")

	s.publisher.PublishAll()

	payload := s.lastPayload()
	s.Equal("users", payload["type"])
	s.Equal(float64(2), payload["totalUsers"])

	users, ok := payload["users"].([]any)
	s.Require().True(ok)
	s.Require().Len(users, 2)

	first, ok := users[0].(map[string]any)
	s.Require().True(ok)
	s.Equal("Alice", first["userName"])
	s.Equal(string(model.StatusOnline), first["status"])
	s.Contains(first, "stats")
	s.Contains(first, "firstJoined")
}

func (s *PublisherSuite) TestPublishAllMarksTruncation() {
	small := New(s.engine, s.hub, 1, testutil.NopLogger())
	s.connect("fp-alpha", "Alice")
	s.connect("fp-beta", "Bob")

	small.PublishAll()

	payload := s.lastPayload()
	s.Equal(true, payload["truncated"])
	s.Equal(float64(2), payload["totalUsers"])
	s.Len(payload["users"], 1)
}

func (s *PublisherSuite) TestPublishToSingleConnection() {
	s.connect("fp-alpha", "Alice")

	target := &captureSender{}
	s.publisher.PublishTo(target)

	s.Len(target.messages, 1)
	s.Empty(s.hub.messages)
}
