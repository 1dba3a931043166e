package model

import "time"

// PresenceEntry is one player's row in the broadcast presence list. Field
// names are the stable wire contract with browser clients.
type PresenceEntry struct {
	PlayerID    string         `json:"userId"`
	DisplayName string         `json:"userName"`
	Stats       PlayerStats    `json:"stats"`
	FirstJoined time.Time      `json:"firstJoined"`
	Location    string         `json:"location"`
	Status      PresenceStatus `json:"status"`
}

// PresenceSnapshot is the deduplicated presence list: exactly one entry per
// distinct identity, however many connections or fingerprints reference it.
// When the true identity count exceeds the cap, Entries is capped, Truncated
// is set and Total still carries the real count.
type PresenceSnapshot struct {
	Entries   []PresenceEntry
	Total     int
	Truncated bool
}
