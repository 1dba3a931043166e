package identity

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/lobbyworks/presencehub/internal/model"
)

const (
	playerIDPrefix   = "p_"
	playerIDLength   = 12
	playerIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Clients embed a millisecond timestamp as a trailing "-<digits>" suffix in
// their fingerprints. It changes on every page load, so it is stripped before
// any lookup or write.
var timestampSuffix = regexp.MustCompile(`-\d{9,}$`)

// NormalizeFingerprint strips the client-embedded timestamp suffix from a raw
// fingerprint. All binding lookups and writes use the normalized form.
func NormalizeFingerprint(raw string) model.Fingerprint {
	return model.Fingerprint(timestampSuffix.ReplaceAllString(strings.TrimSpace(raw), ""))
}

// Resolution is the outcome of one identity claim
type Resolution struct {
	PlayerID    model.PlayerID
	DisplayName string
	FirstJoined time.Time
	Location    string
	Status      model.PresenceStatus
	// Returning is true when the claim matched an existing identity
	Returning bool
	// ConflictResolved is true when the claimed player id collided with
	// previously seen bindings and the collision was arbitrated. Informational
	// only; the claim still succeeded.
	ConflictResolved bool
	// CapExceeded is true when this connection pushed the identity past its
	// connection cap. The engine has already deregistered the connection; the
	// transport must close it with the too-many-connections reason.
	CapExceeded bool
}

// Resolve turns a client identity claim into an authoritative identity and
// binds it to the connection. The whole resolution, rules 1 through 5, runs
// as one critical section: concurrent claims for the same fingerprint cannot
// mint two identities.
//
// Resolution order:
//  1. exact binding match on the normalized fingerprint
//  2. claimed player id match (fingerprint drift: the new fingerprint is
//     learned as an additional binding for the same identity)
//  3. new player, with claimed-id reuse arbitration on the conflict grace
//  4. display name from the claim, else a sequential guest name
//  5. identity + binding creation, status online
func (e *Engine) Resolve(connID model.ConnectionID, rawFingerprint, claimedID, claimedName string) (Resolution, error) {
	fp := NormalizeFingerprint(rawFingerprint)
	if fp == "" {
		return Resolution{}, model.ErrEmptyFingerprint
	}
	now := e.clock.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	conn, ok := e.connections[connID]
	if !ok || conn.State == model.ConnClosed {
		return Resolution{}, model.ErrConnectionNotFound
	}

	var (
		id        *model.PlayerIdentity
		returning bool
		conflict  bool
	)

	// Rule 1: exact binding on the normalized fingerprint
	if b, bound := e.bindings[fp]; bound {
		if existing, known := e.identities[b.PlayerID]; known {
			id = existing
			returning = true
			b.LastActivity = now
		} else {
			// Dangling edge from a partial eviction; drop it and fall through
			delete(e.bindings, fp)
		}
	}

	// Rule 2: unseen fingerprint carrying a known player id. Drift: learn the
	// variant without losing identity continuity. When every prior sighting of
	// that id is inactive beyond the grace window the claim is suspicious, so
	// the conflict is surfaced, but the id is still honored.
	if id == nil && claimedID != "" {
		if existing, known := e.identities[model.PlayerID(claimedID)]; known {
			id = existing
			returning = true
			conflict = e.claimIsStaleLocked(existing, now)
			e.bindings[fp] = &model.FingerprintBinding{
				Fingerprint:  fp,
				PlayerID:     existing.ID,
				FirstSeen:    now,
				LastActivity: now,
			}
		}
	}

	// Rule 3: new player. Arbitrate reuse of the claimed id against any
	// leftover bindings that still reference it.
	if id == nil {
		playerID, reuseConflict := e.arbitrateClaimLocked(model.PlayerID(claimedID), now)
		conflict = conflict || reuseConflict

		// Rule 4: name from the claim, else a guest name
		name := claimedName
		if name == "" {
			name = e.nextGuestNameLocked()
		}

		// Rule 5: create identity and binding
		id = &model.PlayerIdentity{
			ID:               playerID,
			DisplayName:      name,
			FirstJoined:      now,
			Location:         model.DefaultLocation,
			Status:           model.StatusOffline,
			LastStatusChange: now,
		}
		e.identities[playerID] = id
		e.bindings[fp] = &model.FingerprintBinding{
			Fingerprint:  fp,
			PlayerID:     playerID,
			FirstSeen:    now,
			LastActivity: now,
		}
	}

	// Returning players may rename themselves on any claim; last writer wins
	if returning && claimedName != "" && claimedName != id.DisplayName {
		id.DisplayName = claimedName
	}

	// Bind the connection. A re-identification to a different identity
	// releases the old one, which may flip it offline.
	previous := conn.PlayerID
	conn.PlayerID = id.ID
	conn.Fingerprint = fp
	conn.State = model.ConnIdentified
	conn.LastActivity = now
	if previous != "" && previous != id.ID {
		e.recomputeStatusLocked(previous, now)
	}

	if id.Status != model.StatusOnline {
		id.Status = model.StatusOnline
		id.LastStatusChange = now
	}

	res := Resolution{
		PlayerID:         id.ID,
		DisplayName:      id.DisplayName,
		FirstJoined:      id.FirstJoined,
		Location:         id.Location,
		Status:           id.Status,
		Returning:        returning,
		ConflictResolved: conflict,
	}

	// Per-identity concurrency cap: the connection that crosses the cap is
	// deregistered here, inside the same critical section, so it cannot
	// linger in the registry.
	if e.liveConnectionCountLocked(id.ID) > e.cfg.ConnectionCap {
		delete(e.connections, connID)
		conn.State = model.ConnClosed
		res.CapExceeded = true
		e.logger.Warn("connection cap exceeded",
			slog.String("player_id", string(id.ID)),
			slog.String("connection_id", string(connID)),
			slog.Int("cap", e.cfg.ConnectionCap))
		return res, nil
	}

	if conflict {
		e.logger.Info("identity claim conflict resolved",
			slog.String("claimed_id", claimedID),
			slog.String("player_id", string(id.ID)))
	}

	return res, nil
}

// claimIsStaleLocked reports whether every sighting of the identity is
// inactive beyond the conflict grace window. Online identities are never
// stale. Callers hold e.mu.
func (e *Engine) claimIsStaleLocked(id *model.PlayerIdentity, now time.Time) bool {
	if id.Status == model.StatusOnline {
		return false
	}
	latest := id.LastStatusChange
	for _, b := range e.bindings {
		if b.PlayerID == id.ID && b.LastActivity.After(latest) {
			latest = b.LastActivity
		}
	}
	return now.Sub(latest) > e.cfg.ConflictGrace
}

// arbitrateClaimLocked decides the player id for a brand-new identity. A
// claimed id already referenced by leftover bindings (their identity record
// is gone) is honored only if every such binding has been inactive beyond the
// conflict grace; otherwise a fresh id is minted. Either way the caller is
// told a conflict occurred. Callers hold e.mu.
func (e *Engine) arbitrateClaimLocked(claimed model.PlayerID, now time.Time) (model.PlayerID, bool) {
	if claimed == "" {
		return e.mintPlayerIDLocked(), false
	}

	var leftovers []*model.FingerprintBinding
	for _, b := range e.bindings {
		if b.PlayerID == claimed {
			leftovers = append(leftovers, b)
		}
	}
	if len(leftovers) == 0 {
		return claimed, false
	}

	for _, b := range leftovers {
		if now.Sub(b.LastActivity) <= e.cfg.ConflictGrace {
			// Someone plausibly still owns this id; refuse the reuse
			return e.mintPlayerIDLocked(), true
		}
	}
	// All sightings long dead: honor the claim and reclaim the stale edges
	for _, b := range leftovers {
		delete(e.bindings, b.Fingerprint)
	}
	return claimed, true
}

func (e *Engine) mintPlayerIDLocked() model.PlayerID {
	for {
		id := model.PlayerID(playerIDPrefix + e.random.String(playerIDLength, playerIDAlphabet))
		if _, taken := e.identities[id]; !taken {
			return id
		}
	}
}

// nextGuestNameLocked returns the next sequential guest name. The counter is
// process-lifetime and never reused. Callers hold e.mu.
func (e *Engine) nextGuestNameLocked() string {
	e.guestCounter++
	return fmt.Sprintf("Guest%d", e.guestCounter)
}
