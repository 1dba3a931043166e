package identity

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lobbyworks/presencehub/internal/dependencies/clock"
	"github.com/lobbyworks/presencehub/internal/dependencies/random"
	"github.com/lobbyworks/presencehub/internal/model"
)

// Config holds the engine's behavioral knobs
type Config struct {
	// ConnectionCap is the maximum live connections per identity
	ConnectionCap int
	// ConflictGrace is how long a player id must have been inactive before a
	// colliding claim from an unknown fingerprint is treated as the stale-id
	// case rather than ordinary fingerprint drift
	ConflictGrace time.Duration
	// Retention is how long a connectionless binding survives before the
	// sweep evicts it
	Retention time.Duration
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		ConnectionCap: 5,
		ConflictGrace: 7 * 24 * time.Hour,
		Retention:     24 * time.Hour,
	}
}

// Engine owns the three shared tables of the hub: player identities,
// fingerprint bindings and the live connection registry. One mutex guards all
// of them together so cross-table invariants (one binding per fingerprint,
// status derived from live connections) are never observed torn. Nothing in
// here performs I/O while the lock is held.
type Engine struct {
	clock  clock.Clock
	random random.Random
	logger *slog.Logger
	cfg    Config

	mu           sync.Mutex
	identities   map[model.PlayerID]*model.PlayerIdentity
	bindings     map[model.Fingerprint]*model.FingerprintBinding
	connections  map[model.ConnectionID]*model.ConnectionRecord
	guestCounter uint64
}

// NewEngine creates an Engine with empty tables
func NewEngine(cfg Config, clk clock.Clock, rnd random.Random, logger *slog.Logger) *Engine {
	if cfg.ConnectionCap <= 0 {
		cfg.ConnectionCap = DefaultConfig().ConnectionCap
	}
	if cfg.ConflictGrace <= 0 {
		cfg.ConflictGrace = DefaultConfig().ConflictGrace
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultConfig().Retention
	}
	return &Engine{
		clock:       clk,
		random:      rnd,
		logger:      logger.With(slog.String("component", "identity")),
		cfg:         cfg,
		identities:  make(map[model.PlayerID]*model.PlayerIdentity),
		bindings:    make(map[model.Fingerprint]*model.FingerprintBinding),
		connections: make(map[model.ConnectionID]*model.ConnectionRecord),
	}
}

// Register admits a new transport connection into the registry in the
// unidentified state and returns a copy of its record. Rate limiting happens
// before this call, in the transport.
func (e *Engine) Register(remoteAddr, origin string) model.ConnectionRecord {
	now := e.clock.Now()
	rec := &model.ConnectionRecord{
		ID:           model.ConnectionID(uuid.NewString()),
		RemoteAddr:   remoteAddr,
		Origin:       origin,
		State:        model.ConnUnidentified,
		ConnectedAt:  now,
		LastActivity: now,
	}

	e.mu.Lock()
	e.connections[rec.ID] = rec
	total := len(e.connections)
	e.mu.Unlock()

	e.logger.Info("connection registered",
		slog.String("connection_id", string(rec.ID)),
		slog.String("remote_addr", remoteAddr),
		slog.Int("total_connections", total))
	return *rec
}

// Touch records message activity on a connection, keeping the connection and
// its binding fresh for retention purposes.
func (e *Engine) Touch(connID model.ConnectionID) {
	now := e.clock.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	conn, ok := e.connections[connID]
	if !ok {
		return
	}
	conn.LastActivity = now
	conn.MessageCount++
	if conn.Fingerprint != "" {
		if b, ok := e.bindings[conn.Fingerprint]; ok {
			b.LastActivity = now
		}
	}
}

// Connection returns a copy of a live connection record
func (e *Engine) Connection(connID model.ConnectionID) (model.ConnectionRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	conn, ok := e.connections[connID]
	if !ok {
		return model.ConnectionRecord{}, model.ErrConnectionNotFound
	}
	return *conn, nil
}

// GetIdentity returns a copy of the identity record for playerID
func (e *Engine) GetIdentity(playerID model.PlayerID) (model.PlayerIdentity, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := e.identities[playerID]
	if !ok {
		return model.PlayerIdentity{}, model.ErrIdentityNotFound
	}
	return *id, nil
}

// UpdateName renames an identity. Returns true when the name actually
// changed; callers publish presence only in that case. An empty name is
// ignored rather than clearing the current one.
func (e *Engine) UpdateName(playerID model.PlayerID, name string) (bool, error) {
	if name == "" {
		return false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	id, ok := e.identities[playerID]
	if !ok {
		return false, model.ErrIdentityNotFound
	}
	if id.DisplayName == name {
		return false, nil
	}
	id.DisplayName = name
	return true, nil
}

// UpdateLocation records a client-reported location. Returns true on change.
func (e *Engine) UpdateLocation(playerID model.PlayerID, location string) (bool, error) {
	if location == "" {
		location = model.DefaultLocation
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	id, ok := e.identities[playerID]
	if !ok {
		return false, model.ErrIdentityNotFound
	}
	if id.Location == location {
		return false, nil
	}
	id.Location = location
	return true, nil
}

// UpdateStatistic writes one statistic through the model's allow-listed
// setter. Unknown names and mistyped values are rejected.
func (e *Engine) UpdateStatistic(playerID model.PlayerID, name string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, ok := e.identities[playerID]
	if !ok {
		return model.ErrIdentityNotFound
	}
	return id.Stats.Apply(name, value)
}

// MarkConnectionClosed removes a connection from the registry. It is
// idempotent: closing an unknown or already-closed connection is a no-op.
// Returns true when the removal flipped the bound identity offline, meaning
// the caller owes a presence publish.
func (e *Engine) MarkConnectionClosed(connID model.ConnectionID) bool {
	now := e.clock.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	conn, ok := e.connections[connID]
	if !ok {
		return false
	}
	delete(e.connections, connID)
	conn.State = model.ConnClosed

	if conn.PlayerID == "" {
		return false
	}
	return e.recomputeStatusLocked(conn.PlayerID, now)
}

// Counts returns the live connection count, known identity count and the
// number of identities currently online.
func (e *Engine) Counts() (connections, identities, online int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range e.identities {
		if id.Status == model.StatusOnline {
			online++
		}
	}
	return len(e.connections), len(e.identities), online
}

// recomputeStatusLocked re-derives an identity's status from the live
// connection set and returns true if the status flipped. Callers hold e.mu.
func (e *Engine) recomputeStatusLocked(playerID model.PlayerID, now time.Time) bool {
	id, ok := e.identities[playerID]
	if !ok {
		return false
	}
	derived := model.StatusOffline
	if e.hasLiveConnectionLocked(playerID) {
		derived = model.StatusOnline
	}
	if id.Status == derived {
		return false
	}
	id.Status = derived
	id.LastStatusChange = now
	return true
}

func (e *Engine) hasLiveConnectionLocked(playerID model.PlayerID) bool {
	for _, conn := range e.connections {
		if conn.PlayerID == playerID && conn.State == model.ConnIdentified {
			return true
		}
	}
	return false
}

func (e *Engine) liveConnectionCountLocked(playerID model.PlayerID) int {
	count := 0
	for _, conn := range e.connections {
		if conn.PlayerID == playerID && conn.State == model.ConnIdentified {
			count++
		}
	}
	return count
}
