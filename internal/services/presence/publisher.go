package presence

import (
	"encoding/json"
	"log/slog"

	"github.com/lobbyworks/presencehub/internal/model"
	"github.com/lobbyworks/presencehub/internal/services/identity"
)

// Broadcaster delivers an already-serialized message to every live
// connection. Implemented by the websocket hub; sends are fire-and-forget
// with per-connection isolation, so one slow peer cannot stall the rest.
type Broadcaster interface {
	Broadcast(message []byte)
}

// Sender delivers a message to a single connection
type Sender interface {
	Send(message []byte) bool
}

// Publisher derives the deduplicated presence list from the identity engine
// and fans it out. Every invocation point (resolution, rename, relocation,
// status flip, reaper change) triggers exactly one PublishAll: the engine's
// mutating operations report whether the list changed and callers publish on
// change only.
type Publisher struct {
	engine     *identity.Engine
	hub        Broadcaster
	logger     *slog.Logger
	maxEntries int
}

// New creates a Publisher capped at maxEntries per snapshot
func New(engine *identity.Engine, hub Broadcaster, maxEntries int, logger *slog.Logger) *Publisher {
	return &Publisher{
		engine:     engine,
		hub:        hub,
		logger:     logger.With(slog.String("component", "presence")),
		maxEntries: maxEntries,
	}
}

// usersPayload is the wire form of a presence snapshot
type usersPayload struct {
	Type       string                `json:"type"`
	Users      []model.PresenceEntry `json:"users"`
	TotalUsers int                   `json:"totalUsers"`
	Truncated  bool                  `json:"truncated,omitempty"`
}

// PublishAll snapshots presence and broadcasts it to every live connection.
// The snapshot is taken inside the engine's critical section; the broadcast
// happens after the lock is released.
func (p *Publisher) PublishAll() {
	payload, total := p.serialize()
	if payload == nil {
		return
	}
	p.hub.Broadcast(payload)
	p.logger.Debug("presence published", slog.Int("total_users", total))
}

// PublishTo sends the current snapshot to a single connection, used for the
// initial delivery right after a connection identifies.
func (p *Publisher) PublishTo(target Sender) {
	payload, _ := p.serialize()
	if payload == nil {
		return
	}
	target.Send(payload)
}

// Snapshot exposes the raw snapshot for the HTTP status surface
func (p *Publisher) Snapshot() model.PresenceSnapshot {
	return p.engine.Snapshot(p.maxEntries)
}

func (p *Publisher) serialize() ([]byte, int) {
	snap := p.engine.Snapshot(p.maxEntries)
	msg := usersPayload{
		Type:       "users",
		Users:      snap.Entries,
		TotalUsers: snap.Total,
		Truncated:  snap.Truncated,
	}
	if msg.Users == nil {
		msg.Users = []model.PresenceEntry{}
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		// Snapshot contents are all marshalable types; this is a bug, not a
		// runtime condition, but it must never take the hub down
		p.logger.Error("presence serialization failed", slog.Any("error", err))
		return nil, 0
	}
	return payload, snap.Total
}
