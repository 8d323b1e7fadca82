// Package presence maintains the set of known peers with their
// role, online and busy attributes. It is rebuilt incrementally from
// presence and status events and reconciled via full-list fetches.
package presence

import (
	"log/slog"
	"sort"

	"github.com/samber/lo"

	"support-chat/domain"
)

// Roster is the peer set, keyed by id. It is exclusively owned and
// mutated by the event loop, so it carries no lock; ordering discipline
// replaces synchronization.
type Roster struct {
	log   *slog.Logger
	peers map[string]*domain.Peer
}

func NewRoster(log *slog.Logger) *Roster {
	return &Roster{log: log, peers: make(map[string]*domain.Peer)}
}

// ApplyPresence inserts or removes a peer. Re-announcing an existing
// peer updates the role in place (idempotent upsert); an OFFLINE for an
// untracked id is a no-op, covering late or duplicate departures.
// It reports whether the set actually changed.
func (r *Roster) ApplyPresence(id string, role domain.Role, status domain.PresenceStatus) bool {
	switch status {
	case domain.StatusOnline:
		if p, ok := r.peers[id]; ok {
			changed := !p.Online || p.Role != role
			p.Online = true
			p.Role = role
			return changed
		}
		r.peers[id] = &domain.Peer{ID: id, Role: role, Online: true}
		return true
	case domain.StatusOffline:
		if _, ok := r.peers[id]; !ok {
			r.log.Debug("Ignoring OFFLINE for untracked peer", "id", id)
			return false
		}
		delete(r.peers, id)
		return true
	}
	r.log.Warn("Dropping presence event with unknown status", "id", id, "status", status)
	return false
}

// ApplyStatus updates the busy flag. The peer stays in existence either
// way; visibility (the engineer's selectable list) is derived on read.
// Reports whether the flag actually flipped.
func (r *Roster) ApplyStatus(userID string, busy bool) bool {
	p, ok := r.peers[userID]
	if !ok {
		r.log.Debug("Ignoring status for untracked peer", "id", userID)
		return false
	}
	if p.Busy == busy {
		return false
	}
	p.Busy = busy
	return true
}

// Reconcile replaces the whole peer set atomically with the server's
// authoritative list. Unread counters survive for peers that are still
// present; everything else is rebuilt from scratch.
func (r *Roster) Reconcile(serverList []domain.Peer) {
	next := make(map[string]*domain.Peer, len(serverList))
	for _, p := range serverList {
		peer := p
		peer.Online = true
		if prev, ok := r.peers[p.ID]; ok {
			peer.Unread = prev.Unread
		}
		next[peer.ID] = &peer
	}
	r.peers = next
}

// Get returns a copy of the tracked peer, if any.
func (r *Roster) Get(id string) (domain.Peer, bool) {
	p, ok := r.peers[id]
	if !ok {
		return domain.Peer{}, false
	}
	return *p, true
}

// All returns every tracked peer, sorted by id for stable rendering.
func (r *Roster) All() []domain.Peer {
	peers := lo.Map(lo.Values(r.peers), func(p *domain.Peer, _ int) domain.Peer {
		return *p
	})
	sort.Slice(peers, func(i, j int) bool { return peers[i].ID < peers[j].ID })
	return peers
}

// Selectable is the engineer's view: online, free, and not the local
// identity. Busy peers were picked up by another engineer and drop out
// of the list without leaving the roster.
func (r *Roster) Selectable(localID string) []domain.Peer {
	return lo.Filter(r.All(), func(p domain.Peer, _ int) bool {
		return p.Online && !p.Busy && p.ID != localID
	})
}

// IncrementUnread bumps the unread indicator for a non-displayed peer.
func (r *Roster) IncrementUnread(id string) {
	if p, ok := r.peers[id]; ok {
		p.Unread++
	}
}

// ClearUnread resets the indicator, typically on selection.
func (r *Roster) ClearUnread(id string) {
	if p, ok := r.peers[id]; ok {
		p.Unread = 0
	}
}

// Len reports the number of tracked peers.
func (r *Roster) Len() int { return len(r.peers) }
