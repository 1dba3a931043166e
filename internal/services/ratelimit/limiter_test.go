package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/lobbyworks/presencehub/internal/dependencies/mocks"
)

type LimiterSuite struct {
	suite.Suite
	clock   *mocks.MockClock
	limiter *Limiter
}

func TestLimiterSuite(t *testing.T) {
	suite.Run(t, new(LimiterSuite))
}

func (s *LimiterSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.limiter = New(20, time.Minute, 2*time.Minute, s.clock)
}

func (s *LimiterSuite) TestAllowsUpToLimit() {
	for i := 0; i < 20; i++ {
		s.True(s.limiter.Allow("203.0.113.10"), "attempt %d should be allowed", i+1)
	}
}

func (s *LimiterSuite) TestRejectsAttemptCrossingLimit() {
	for i := 0; i < 20; i++ {
		s.limiter.Allow("203.0.113.10")
	}

	s.False(s.limiter.Allow("203.0.113.10"))
	s.True(s.limiter.Blocked("203.0.113.10"))
}

func (s *LimiterSuite) TestAddressesAreIndependent() {
	for i := 0; i < 21; i++ {
		s.limiter.Allow("203.0.113.10")
	}

	s.True(s.limiter.Allow("203.0.113.11"))
	s.False(s.limiter.Blocked("203.0.113.11"))
}

func (s *LimiterSuite) TestWindowSlides() {
	for i := 0; i < 20; i++ {
		s.limiter.Allow("203.0.113.10")
	}

	// Old attempts fall out of the window, so new ones are admitted
	s.clock.Advance(61 * time.Second)
	s.True(s.limiter.Allow("203.0.113.10"))
}

func (s *LimiterSuite) TestBlockExpires() {
	for i := 0; i < 21; i++ {
		s.limiter.Allow("203.0.113.10")
	}
	s.True(s.limiter.Blocked("203.0.113.10"))

	s.clock.Advance(time.Minute)
	s.False(s.limiter.Allow("203.0.113.10"))

	s.clock.Advance(61 * time.Second)
	s.False(s.limiter.Blocked("203.0.113.10"))
	s.True(s.limiter.Allow("203.0.113.10"))
}

func (s *LimiterSuite) TestBlockedAttemptsDoNotExtendBlock() {
	for i := 0; i < 21; i++ {
		s.limiter.Allow("203.0.113.10")
	}

	// Hammering during the block must not reset the expiry
	for i := 0; i < 50; i++ {
		s.clock.Advance(time.Second)
		s.False(s.limiter.Allow("203.0.113.10"))
	}

	s.clock.Advance(71 * time.Second)
	s.True(s.limiter.Allow("203.0.113.10"))
}

func (s *LimiterSuite) TestWindowRestartsAfterBlock() {
	for i := 0; i < 21; i++ {
		s.limiter.Allow("203.0.113.10")
	}

	s.clock.Advance(3 * time.Minute)

	// The counter starts from zero again
	for i := 0; i < 20; i++ {
		s.True(s.limiter.Allow("203.0.113.10"))
	}
	s.False(s.limiter.Allow("203.0.113.10"))
}

func (s *LimiterSuite) TestPruneDropsExpiredState() {
	for i := 0; i < 21; i++ {
		s.limiter.Allow("203.0.113.10")
	}
	s.limiter.Allow("203.0.113.11")

	s.clock.Advance(5 * time.Minute)
	s.limiter.Prune()

	s.Empty(s.limiter.blocked)
	s.Empty(s.limiter.attempts)
}
