package identity

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/lobbyworks/presencehub/internal/dependencies/mocks"
	"github.com/lobbyworks/presencehub/internal/model"
	"github.com/lobbyworks/presencehub/internal/testutil"
)

type SnapshotSuite struct {
	suite.Suite
	clock  *mocks.MockClock
	engine *Engine
}

func TestSnapshotSuite(t *testing.T) {
	suite.Run(t, new(SnapshotSuite))
}

func (s *SnapshotSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.engine = NewEngine(DefaultConfig(), s.clock, mocks.NewMockRandom(), testutil.NopLogger())
}

func (s *SnapshotSuite) connect(fingerprint, name string) Resolution {
	conn := s.engine.Register("203.0.113.10:4000", "")
	res, err := s.engine.Resolve(conn.ID, fingerprint, "", name)
	s.Require().NoError(err)
	return res
}

func (s *SnapshotSuite) TestEmptySnapshot() {
	snap := s.engine.Snapshot(100)

	s.Empty(snap.Entries)
	s.Zero(snap.Total)
	s.False(snap.Truncated)
}

func (s *SnapshotSuite) TestSnapshotDeduplicatesConnections() {
	res := s.connect("fp-alpha", "Alice")
	// Two more tabs on the same fingerprint
	s.connect("fp-alpha", "")
	s.connect("fp-alpha", "")

	snap := s.engine.Snapshot(100)

	s.Require().Len(snap.Entries, 1)
	s.Equal(string(res.PlayerID), snap.Entries[0].PlayerID)
	s.Equal("Alice", snap.Entries[0].DisplayName)
	s.Equal(model.StatusOnline, snap.Entries[0].Status)
}

func (s *SnapshotSuite) TestSnapshotIncludesOfflineIdentities() {
	conn := s.engine.Register("203.0.113.10:4000", "")
	_, err := s.engine.Resolve(conn.ID, "fp-alpha", "", "Alice")
	s.Require().NoError(err)
	s.engine.MarkConnectionClosed(conn.ID)

	s.connect("fp-beta", "Bob")

	snap := s.engine.Snapshot(100)

	s.Require().Len(snap.Entries, 2)
	s.Equal(model.StatusOffline, snap.Entries[0].Status)
	s.Equal(model.StatusOnline, snap.Entries[1].Status)
}

func (s *SnapshotSuite) TestSnapshotOrderedByFirstJoined() {
	s.connect("fp-alpha", "Alice")
	s.clock.Advance(time.Minute)
	s.connect("fp-beta", "Bob")
	s.clock.Advance(time.Minute)
	s.connect("fp-gamma", "Carol")

	snap := s.engine.Snapshot(100)

	s.Require().Len(snap.Entries, 3)
	s.Equal("Alice", snap.Entries[0].DisplayName)
	s.Equal("Bob", snap.Entries[1].DisplayName)
	s.Equal("Carol", snap.Entries[2].DisplayName)
}

func (s *SnapshotSuite) TestSnapshotTruncatesBeyondCap() {
	for i := 0; i < 5; i++ {
		s.connect(fmt.Sprintf("fp-%d", i), "")
		s.clock.Advance(time.Second)
	}

	snap := s.engine.Snapshot(3)

	s.Len(snap.Entries, 3)
	s.Equal(5, snap.Total)
	s.True(snap.Truncated)
}

func (s *SnapshotSuite) TestSnapshotUnlimitedWhenCapZero() {
	s.connect("fp-alpha", "")
	s.connect("fp-beta", "")

	snap := s.engine.Snapshot(0)

	s.Len(snap.Entries, 2)
	s.False(snap.Truncated)
}
