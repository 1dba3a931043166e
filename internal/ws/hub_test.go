package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/lobbyworks/presencehub/internal/model"
	"github.com/lobbyworks/presencehub/internal/testutil"
)

type HubSuite struct {
	suite.Suite
	hub *Hub
}

func TestHubSuite(t *testing.T) {
	suite.Run(t, new(HubSuite))
}

func (s *HubSuite) SetupTest() {
	s.hub = NewHub(testutil.NopLogger())
	go s.hub.Run()
}

func (s *HubSuite) TearDownTest() {
	s.hub.Close()
}

func (s *HubSuite) newClient(id string) *Client {
	return &Client{
		send:        make(chan []byte, sendBufferSize),
		connID:      model.ConnectionID(id),
		connectedAt: time.Now(),
	}
}

// waitForClients blocks until the hub has processed pending registrations
func (s *HubSuite) waitForClients(n int) {
	deadline := time.After(time.Second)
	for {
		if s.hub.ClientCount() == n {
			return
		}
		select {
		case <-deadline:
			s.FailNowf("timeout", "hub never reached %d clients", n)
		case <-time.After(time.Millisecond):
		}
	}
}

func (s *HubSuite) TestRegisterAndUnregister() {
	a := s.newClient("conn-a")
	b := s.newClient("conn-b")

	s.hub.Register(a)
	s.hub.Register(b)
	s.waitForClients(2)

	s.hub.Unregister(a)
	s.waitForClients(1)

	// Unregistering closes the send channel
	_, open := <-a.send
	s.False(open)
}

func (s *HubSuite) TestBroadcastReachesAllClients() {
	a := s.newClient("conn-a")
	b := s.newClient("conn-b")
	s.hub.Register(a)
	s.hub.Register(b)
	s.waitForClients(2)

	s.hub.Broadcast([]byte("hello"))

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			s.Equal([]byte("hello"), msg)
		case <-time.After(time.Second):
			s.FailNow("client never received broadcast")
		}
	}
}

func (s *HubSuite) TestBroadcastExceptSkipsSender() {
	a := s.newClient("conn-a")
	b := s.newClient("conn-b")
	s.hub.Register(a)
	s.hub.Register(b)
	s.waitForClients(2)

	s.hub.BroadcastExcept(a, []byte("relay"))

	select {
	case msg := <-b.send:
		s.Equal([]byte("relay"), msg)
	case <-time.After(time.Second):
		s.FailNow("peer never received relay")
	}

	select {
	case msg := <-a.send:
		s.Failf("sender received own relay", "got %q", msg)
	default:
	}
}

func (s *HubSuite) TestSlowClientDoesNotBlockBroadcast() {
	slow := &Client{
		send:        make(chan []byte), // unbuffered and never drained
		connID:      "conn-slow",
		connectedAt: time.Now(),
	}
	fast := s.newClient("conn-fast")
	s.hub.Register(slow)
	s.hub.Register(fast)
	s.waitForClients(2)

	s.hub.Broadcast([]byte("payload"))

	select {
	case msg := <-fast.send:
		s.Equal([]byte("payload"), msg)
	case <-time.After(time.Second):
		s.FailNow("fast client starved by slow client")
	}
}

func (s *HubSuite) TestRegisterAfterCloseDoesNotBlock() {
	h := NewHub(testutil.NopLogger())
	go h.Run()
	h.Close()

	done := make(chan struct{})
	go func() {
		h.Register(s.newClient("conn-late"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.FailNow("register blocked after hub shutdown")
	}
}

func (s *HubSuite) TestUnregisterUnknownClientIsQuiet() {
	s.hub.Unregister(s.newClient("conn-ghost"))
	s.Equal(0, s.hub.ClientCount())
}
