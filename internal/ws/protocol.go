package ws

import (
	"encoding/json"
	"time"

	"github.com/lobbyworks/presencehub/internal/model"
)

// Inbound message types
const (
	typeIdentity       = "identity"
	typeUpdateName     = "updateName"
	typeUpdateLocation = "updateLocation"
	typeGetUsers       = "getUsers"
	typeChat           = "chat"
	typeStatUpdate     = "statUpdate"
	typeGame           = "game"
	typeVoice          = "voice"
)

// Policy close codes, in the private-use websocket range
const (
	// CloseTooManyConnections closes the connection that pushed an identity
	// past its concurrency cap
	CloseTooManyConnections = 4002

	reasonTooManyConnections = "too many connections"
)

// inbound is the envelope for every client-to-server message. Only the
// fields relevant to the given type are read; everything else is ignored.
type inbound struct {
	Type string `json:"type"`

	// identity
	BrowserFingerprint string `json:"browserFingerprint,omitempty"`
	UserID             string `json:"userId,omitempty"`
	UserName           string `json:"userName,omitempty"`

	// updateLocation
	Location string `json:"location,omitempty"`

	// statUpdate
	Key   string `json:"key,omitempty"`
	Value any    `json:"value,omitempty"`

	// chat
	Text string `json:"text,omitempty"`

	// game / voice relay; opaque to the hub
	Payload json.RawMessage `json:"payload,omitempty"`
}

// welcomeMessage confirms a successful identity resolution to its connection
type welcomeMessage struct {
	Type                     string               `json:"type"`
	UserID                   string               `json:"userId"`
	UserName                 string               `json:"userName"`
	FirstJoined              time.Time            `json:"firstJoined"`
	Location                 string               `json:"location"`
	Status                   model.PresenceStatus `json:"status"`
	IdentityConflictResolved bool                 `json:"identityConflictResolved"`
}

// nameUpdatedMessage acknowledges an updateName request
type nameUpdatedMessage struct {
	Type     string `json:"type"`
	Success  bool   `json:"success"`
	UserName string `json:"userName,omitempty"`
}

// errorMessage is echoed only to the offending connection, and only for
// identity failures; malformed traffic is dropped silently
type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// chatOutbound is a chat message fanned out to all connections
type chatOutbound struct {
	Type     string    `json:"type"`
	UserID   string    `json:"userId"`
	UserName string    `json:"userName"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sentAt"`
}

// chatHistoryMessage replays the recent backlog to one connection
type chatHistoryMessage struct {
	Type     string              `json:"type"`
	Messages []model.ChatMessage `json:"messages"`
}

// relayMessage wraps gameplay and voice payloads with the sender's resolved
// identity before fan-out
type relayMessage struct {
	Type     string          `json:"type"`
	UserID   string          `json:"userId"`
	UserName string          `json:"userName"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

func marshalError(message string) []byte {
	payload, _ := json.Marshal(errorMessage{Type: "error", Message: message})
	return payload
}
