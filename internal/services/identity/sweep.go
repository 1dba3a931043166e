package identity

import (
	"log/slog"

	"github.com/lobbyworks/presencehub/internal/model"
)

// SweepResult summarizes one reaper pass
type SweepResult struct {
	// OfflineFlips counts identities whose status was corrected to offline
	OfflineFlips int
	// BindingsEvicted counts bindings removed by retention
	BindingsEvicted int
	// IdentitiesEvicted counts identities removed because their last binding
	// was evicted
	IdentitiesEvicted int
}

// Changed reports whether the sweep requires a presence publish. Evictions
// alone do not: an evicted entry simply stops appearing in the next snapshot.
func (r SweepResult) Changed() bool {
	return r.OfflineFlips > 0
}

// Sweep is the reaper body. It re-derives every identity's status from the
// live connection set, then evicts bindings that have had no connections and
// no activity for longer than the retention threshold, along with identities
// left without any binding.
func (e *Engine) Sweep() SweepResult {
	now := e.clock.Now()
	var res SweepResult

	e.mu.Lock()

	// Status correction: online iff some live connection references the id
	for pid, id := range e.identities {
		if id.Status == model.StatusOnline && !e.hasLiveConnectionLocked(pid) {
			id.Status = model.StatusOffline
			id.LastStatusChange = now
			res.OfflineFlips++
		}
	}

	// Retention eviction for bindings with zero live connections
	for fp, b := range e.bindings {
		if e.fingerprintHasLiveConnectionLocked(fp) {
			continue
		}
		if now.Sub(b.LastActivity) > e.cfg.Retention {
			delete(e.bindings, fp)
			res.BindingsEvicted++
		}
	}

	// Identities with no remaining binding go too, statistics included
	if res.BindingsEvicted > 0 {
		referenced := make(map[model.PlayerID]bool, len(e.bindings))
		for _, b := range e.bindings {
			referenced[b.PlayerID] = true
		}
		for pid := range e.identities {
			if !referenced[pid] {
				delete(e.identities, pid)
				res.IdentitiesEvicted++
			}
		}
	}

	e.mu.Unlock()

	if res.OfflineFlips > 0 || res.BindingsEvicted > 0 || res.IdentitiesEvicted > 0 {
		e.logger.Info("sweep completed",
			slog.Int("offline_flips", res.OfflineFlips),
			slog.Int("bindings_evicted", res.BindingsEvicted),
			slog.Int("identities_evicted", res.IdentitiesEvicted))
	}
	return res
}

func (e *Engine) fingerprintHasLiveConnectionLocked(fp model.Fingerprint) bool {
	for _, conn := range e.connections {
		if conn.Fingerprint == fp && conn.State == model.ConnIdentified {
			return true
		}
	}
	return false
}
