package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/lobbyworks/presencehub/internal/dependencies/clock"
	"github.com/lobbyworks/presencehub/internal/model"
	"github.com/lobbyworks/presencehub/internal/services/identity"
	"github.com/lobbyworks/presencehub/internal/services/presence"
)

// StatusResponse is the JSON body of /api/v1/status
type StatusResponse struct {
	Status      string                `json:"status"`
	Uptime      string                `json:"uptime"`
	Connections int                   `json:"connections"`
	Identities  int                   `json:"identities"`
	Online      int                   `json:"online"`
	TotalUsers  int                   `json:"totalUsers"`
	Truncated   bool                  `json:"truncated,omitempty"`
	Users       []model.PresenceEntry `json:"users"`
}

// StatusHandler serves the operator-facing status endpoint
type StatusHandler struct {
	engine    *identity.Engine
	publisher *presence.Publisher
	clock     clock.Clock
	startedAt time.Time
}

// NewStatusHandler creates a StatusHandler anchored at the current time
func NewStatusHandler(engine *identity.Engine, publisher *presence.Publisher, clk clock.Clock) *StatusHandler {
	return &StatusHandler{
		engine:    engine,
		publisher: publisher,
		clock:     clk,
		startedAt: clk.Now(),
	}
}

// ServeHTTP answers with uptime, table counts and the current presence list
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	connections, identities, online := h.engine.Counts()
	snap := h.publisher.Snapshot()

	resp := StatusResponse{
		Status:      "ok",
		Uptime:      h.clock.Since(h.startedAt).Round(time.Second).String(),
		Connections: connections,
		Identities:  identities,
		Online:      online,
		TotalUsers:  snap.Total,
		Truncated:   snap.Truncated,
		Users:       snap.Entries,
	}
	if resp.Users == nil {
		resp.Users = []model.PresenceEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
