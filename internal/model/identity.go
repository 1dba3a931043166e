package model

import "time"

// PlayerID uniquely identifies a player across connections and devices
type PlayerID string

// Fingerprint is a normalized browser fingerprint. It is client-supplied and
// semi-stable: good enough to recognize a returning browser, not good enough
// to trust for anything security-sensitive.
type Fingerprint string

// ConnectionID uniquely identifies a single transport connection
type ConnectionID string

// PresenceStatus is the derived online/offline state of an identity
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

// DefaultLocation is used when the client never reported a location
const DefaultLocation = "Unknown"

// PlayerIdentity is the durable notion of "a player", independent of any
// single connection. One record per distinct player.
type PlayerIdentity struct {
	ID               PlayerID
	DisplayName      string
	FirstJoined      time.Time
	Location         string
	Status           PresenceStatus
	LastStatusChange time.Time
	Stats            PlayerStats
}

// FingerprintBinding associates one normalized fingerprint with exactly one
// identity. An identity may have many bindings (multi-device); a fingerprint
// never has more than one identity.
type FingerprintBinding struct {
	Fingerprint  Fingerprint
	PlayerID     PlayerID
	FirstSeen    time.Time
	LastActivity time.Time
}

// ConnectionState tracks a connection through its lifecycle
type ConnectionState string

const (
	// ConnUnidentified means the connection is registered but has not yet
	// sent a valid identity claim
	ConnUnidentified ConnectionState = "unidentified"
	// ConnIdentified means the connection is bound to a resolved identity
	ConnIdentified ConnectionState = "identified"
	// ConnClosed is terminal
	ConnClosed ConnectionState = "closed"
)

// ConnectionRecord is the registry entry for one live transport connection
type ConnectionRecord struct {
	ID           ConnectionID
	RemoteAddr   string
	Origin       string
	PlayerID     PlayerID    // empty until identity resolved
	Fingerprint  Fingerprint // empty until identity claim received
	State        ConnectionState
	ConnectedAt  time.Time
	LastActivity time.Time
	MessageCount int64
}
