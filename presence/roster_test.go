package presence

import (
	"testing"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"support-chat/domain"
)

func TestRoster_Upsert_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	roster := NewRoster(logs.GetLoggerFromString("ERROR"))
	id := uuid.NewString()

	// When the same identity announces itself twice
	req.True(roster.ApplyPresence(id, domain.RoleRegular, domain.StatusOnline))
	req.False(roster.ApplyPresence(id, domain.RoleRegular, domain.StatusOnline))

	// Then a single entry exists
	req.Equal(1, roster.Len())
	peer, ok := roster.Get(id)
	req.True(ok)
	req.True(peer.Online)
}

func TestRoster_Late_Offline_Is_Noop(t *testing.T) {
	req := require.New(t)
	roster := NewRoster(logs.GetLoggerFromString("ERROR"))

	// Given an untracked identity
	// When a late or duplicate OFFLINE arrives
	changed := roster.ApplyPresence("ghost", domain.RoleRegular, domain.StatusOffline)

	// Then nothing happens
	req.False(changed)
	req.Zero(roster.Len())
}

func TestRoster_Offline_Removes_Peer(t *testing.T) {
	req := require.New(t)
	roster := NewRoster(logs.GetLoggerFromString("ERROR"))
	roster.ApplyPresence("u1", domain.RoleRegular, domain.StatusOnline)

	req.True(roster.ApplyPresence("u1", domain.RoleRegular, domain.StatusOffline))
	req.Zero(roster.Len())

	// And the second departure changes nothing
	req.False(roster.ApplyPresence("u1", domain.RoleRegular, domain.StatusOffline))
}

func TestRoster_Status_For_Untracked_Peer_Is_Noop(t *testing.T) {
	req := require.New(t)
	roster := NewRoster(logs.GetLoggerFromString("ERROR"))

	req.False(roster.ApplyStatus("ghost", true))
	req.Zero(roster.Len())
}

func TestRoster_Busy_Removes_From_Selectable_Not_From_Existence(t *testing.T) {
	req := require.New(t)
	roster := NewRoster(logs.GetLoggerFromString("ERROR"))
	roster.ApplyPresence("u1", domain.RoleRegular, domain.StatusOnline)
	roster.ApplyPresence("u2", domain.RoleRegular, domain.StatusOnline)

	// When u1 is picked up by another engineer
	req.True(roster.ApplyStatus("u1", true))
	req.False(roster.ApplyStatus("u1", true))

	// Then u1 leaves the selectable list but stays tracked
	selectable := roster.Selectable("eng1")
	req.Len(selectable, 1)
	req.Equal("u2", selectable[0].ID)
	req.Equal(2, roster.Len())
}

func TestRoster_Selectable_Excludes_Self(t *testing.T) {
	req := require.New(t)
	roster := NewRoster(logs.GetLoggerFromString("ERROR"))
	roster.ApplyPresence("eng1", domain.RoleEngineer, domain.StatusOnline)
	roster.ApplyPresence("u1", domain.RoleRegular, domain.StatusOnline)

	selectable := roster.Selectable("eng1")
	req.Len(selectable, 1)
	req.Equal("u1", selectable[0].ID)
}

func TestRoster_Reconcile_Replaces_Set_And_Keeps_Unread(t *testing.T) {
	req := require.New(t)
	roster := NewRoster(logs.GetLoggerFromString("ERROR"))
	roster.ApplyPresence("u1", domain.RoleRegular, domain.StatusOnline)
	roster.ApplyPresence("stale", domain.RoleRegular, domain.StatusOnline)
	roster.IncrementUnread("u1")
	roster.IncrementUnread("u1")

	// When the server list replaces the local view
	roster.Reconcile([]domain.Peer{
		{ID: "u1", Role: domain.RoleRegular, Busy: true},
		{ID: "u3", Role: domain.RoleRegular},
	})

	// Then stale entries are gone, new ones exist, counters survive
	req.Equal(2, roster.Len())
	_, ok := roster.Get("stale")
	req.False(ok)
	peer, ok := roster.Get("u1")
	req.True(ok)
	req.True(peer.Busy)
	req.Equal(2, peer.Unread)
}

func TestRoster_Never_Holds_Duplicate_Ids(t *testing.T) {
	req := require.New(t)
	roster := NewRoster(logs.GetLoggerFromString("ERROR"))

	// Given an arbitrary storm of presence events for two identities
	events := []struct {
		id     string
		status domain.PresenceStatus
	}{
		{"u1", domain.StatusOnline},
		{"u1", domain.StatusOnline},
		{"u2", domain.StatusOnline},
		{"u1", domain.StatusOffline},
		{"u1", domain.StatusOnline},
		{"u2", domain.StatusOnline},
	}
	for _, e := range events {
		roster.ApplyPresence(e.id, domain.RoleRegular, e.status)
	}

	// Then each id appears at most once
	seen := map[string]int{}
	for _, p := range roster.All() {
		seen[p.ID]++
	}
	for id, count := range seen {
		req.Equal(1, count, "id %s duplicated", id)
	}
}
