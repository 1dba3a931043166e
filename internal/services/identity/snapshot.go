package identity

import (
	"sort"

	"github.com/lobbyworks/presencehub/internal/model"
)

// Snapshot builds the deduplicated presence list: one entry per identity,
// regardless of how many fingerprints or connections reference it. The whole
// list is assembled in one critical section so a reader never sees a torn
// view of status versus connections. Entries beyond maxEntries are dropped
// and the snapshot is marked truncated with the true total preserved.
func (e *Engine) Snapshot(maxEntries int) model.PresenceSnapshot {
	e.mu.Lock()
	entries := make([]model.PresenceEntry, 0, len(e.identities))
	for _, id := range e.identities {
		entries = append(entries, model.PresenceEntry{
			PlayerID:    string(id.ID),
			DisplayName: id.DisplayName,
			Stats:       id.Stats,
			FirstJoined: id.FirstJoined,
			Location:    id.Location,
			Status:      id.Status,
		})
	}
	e.mu.Unlock()

	// Order is not part of the contract, but a stable order keeps payloads
	// deterministic for clients and tests
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].FirstJoined.Equal(entries[j].FirstJoined) {
			return entries[i].FirstJoined.Before(entries[j].FirstJoined)
		}
		return entries[i].PlayerID < entries[j].PlayerID
	})

	snap := model.PresenceSnapshot{
		Entries: entries,
		Total:   len(entries),
	}
	if maxEntries > 0 && snap.Total > maxEntries {
		snap.Entries = entries[:maxEntries]
		snap.Truncated = true
	}
	return snap
}
